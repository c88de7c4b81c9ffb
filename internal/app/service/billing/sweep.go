package billing

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// sweepPageSize bounds how many clients one page of the recurring sweep
// loads.
const sweepPageSize = 100

// RecurringDueSweep raises a pending invoice for every active client whose
// next payment date has arrived, and pushes the date 30 days out. Amounts
// come from the plan table, never from the client row alone.
func (s *Service) RecurringDueSweep(ctx context.Context, today time.Time, dryRun bool) (int, error) {
	l := logctx.FromCtx(ctx, s.log)
	cutoff := today.UTC()

	processed := 0
	lastID := ""
	for {
		var clients []*models.Client
		q := s.db.WithContext(ctx).
			Where("status = ? AND current_plan != ? AND next_payment_date IS NOT NULL AND next_payment_date <= ?",
				types.ClientStatusActive, types.PlanNone, cutoff).
			Order("id ASC").
			Limit(sweepPageSize)
		if lastID != "" {
			q = q.Where("id > ?", lastID)
		}
		if err := q.Find(&clients).Error; err != nil {
			return processed, types.WrapFault(types.FaultInternal, "load due clients", err)
		}
		if len(clients) == 0 {
			return processed, nil
		}
		lastID = clients[len(clients)-1].ID

		for _, client := range clients {
			plan := s.cfg.GetPlan(client.CurrentPlan)
			if plan == nil {
				l.Errorw("active client on unknown plan", "client_id", client.ID, "plan", client.CurrentPlan)
				continue
			}
			dueDate := client.NextPaymentDate.UTC().Format(time.DateOnly)
			if dryRun {
				l.Infow("would invoice client", "client_id", client.ID, "plan", plan.ID,
					"amount", plan.Price.StringFixed(2), "due_date", dueDate)
				processed++
				continue
			}

			invoice := &models.Invoice{
				ID:            tool.GenerateUUIDV7(),
				ClientID:      client.ID,
				InvoiceNumber: tool.GenerateInvoiceNumber(today),
				Amount:        types.Money(plan.Price),
				Status:        types.InvoiceStatusPending,
				DueDate:       dueDate,
				Description:   "Subscription renewal: " + plan.Name,
			}
			nextPayment := client.NextPaymentDate.Add(renewalPeriod)
			err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(invoice).Error; err != nil {
					return err
				}
				return tx.Model(&models.Client{}).Where("id = ?", client.ID).
					Updates(map[string]any{
						"next_payment_date": nextPayment,
						"payment_status":    types.PaymentStatusPending,
					}).Error
			})
			if err != nil {
				l.Errorw("raise recurring invoice", "client_id", client.ID, "err", err)
				continue
			}
			s.notify.Dispatch(ctx, types.NotificationInvoiceCreated, client.UserID, map[string]string{
				"invoice_number": invoice.InvoiceNumber,
				"amount":         invoice.Amount.StringFixed(2),
				"due_date":       invoice.DueDate,
			})
			processed++
		}
	}
}
