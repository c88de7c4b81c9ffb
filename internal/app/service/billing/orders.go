package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	"github.com/socialpulse/backend/pkg/types"
)

const orderCurrency = "USD"

// WalletPayer is the wallet capability invoice payment needs; the wallet
// service implements it.
type WalletPayer interface {
	Pay(ctx context.Context, clientID string, amount decimal.Decimal, description string) error
}

// CreateOrder opens a one-time provider order. When an invoice is referenced
// its stored amount is charged; a client-declared amount is only accepted for
// free-standing orders.
func (s *Service) CreateOrder(ctx context.Context, userID string, amount decimal.Decimal, invoiceNumber string) (*paypalclient.OrderInfo, error) {
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if invoiceNumber != "" {
		invoice, err := s.invoiceForClient(ctx, client.ID, invoiceNumber)
		if err != nil {
			return nil, err
		}
		if invoice.Status == types.InvoiceStatusPaid {
			return nil, types.Faultf(types.FaultConflict, "invoice %s is already paid", invoiceNumber)
		}
		amount = invoice.Amount
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, types.NewFault(types.FaultValidation, "order amount must be positive")
	}

	return s.provider.CreateOrder(ctx, types.Money(amount), orderCurrency, invoiceNumber, userID)
}

// CaptureOrder captures an approved order and settles the referenced invoice.
func (s *Service) CaptureOrder(ctx context.Context, userID, orderID, invoiceNumber string, amount decimal.Decimal) (*paypalclient.OrderInfo, error) {
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	order, err := s.provider.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != paypalclient.OrderStatusCompleted {
		return nil, types.Faultf(types.FaultConflict, "order capture ended in status %s", order.Status)
	}

	if invoiceNumber != "" {
		invoice, err := s.invoiceForClient(ctx, client.ID, invoiceNumber)
		if err != nil {
			return nil, err
		}
		var after func()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			after, err = s.settleInvoice(ctx, tx, invoice.InvoiceNumber, invoice.Amount)
			return err
		})
		if err != nil {
			return nil, err
		}
		if after != nil {
			after()
		}
	}
	return order, nil
}

// ListInvoices returns the client's invoices, newest first.
func (s *Service) ListInvoices(ctx context.Context, userID string) ([]*models.Invoice, error) {
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var invoices []*models.Invoice
	err = s.db.WithContext(ctx).
		Where("client_id = ?", client.ID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "list invoices", err)
	}
	return invoices, nil
}

// PayInvoiceWithWallet settles a pending invoice from the client's wallet
// balance. The wallet debit happens first; a failed debit leaves the invoice
// untouched.
func (s *Service) PayInvoiceWithWallet(ctx context.Context, userID, invoiceNumber string, payer WalletPayer) error {
	client, err := s.clientByUser(ctx, userID)
	if err != nil {
		return err
	}
	invoice, err := s.invoiceForClient(ctx, client.ID, invoiceNumber)
	if err != nil {
		return err
	}
	if invoice.Status == types.InvoiceStatusPaid {
		return types.Faultf(types.FaultConflict, "invoice %s is already paid", invoiceNumber)
	}

	desc := fmt.Sprintf("Invoice %s", invoice.InvoiceNumber)
	if err := payer.Pay(ctx, client.ID, invoice.Amount, desc); err != nil {
		return err
	}

	var after func()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		after, err = s.settleInvoice(ctx, tx, invoice.InvoiceNumber, invoice.Amount)
		return err
	})
	if err != nil {
		return err
	}
	if after != nil {
		after()
	}
	return nil
}

func (s *Service) invoiceForClient(ctx context.Context, clientID, invoiceNumber string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND invoice_number = ?", clientID, invoiceNumber).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.Faultf(types.FaultNotFound, "invoice %s not found", invoiceNumber)
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load invoice", err)
	}
	return &invoice, nil
}
