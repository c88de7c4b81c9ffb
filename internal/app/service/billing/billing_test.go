package billing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/db"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Put(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = "1"
	return true, nil
}

type capturingSender struct {
	mu       sync.Mutex
	subjects []string
}

func (c *capturingSender) Send(_ context.Context, _, subject, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

type fakeProvider struct {
	createSubscription func(ctx context.Context, externalPlanID, customID string) (*paypalclient.SubscriptionInfo, error)
	getSubscription    func(ctx context.Context, subscriptionID string) (*paypalclient.SubscriptionInfo, error)
	cancelErr          error
	cancelled          []string
	captureStatus      string
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, externalPlanID, customID string) (*paypalclient.SubscriptionInfo, error) {
	if f.createSubscription != nil {
		return f.createSubscription(ctx, externalPlanID, customID)
	}
	return &paypalclient.SubscriptionInfo{
		ID:          "I-SUB-1",
		Status:      paypalclient.SubscriptionStatusApprovalPending,
		CustomID:    customID,
		PlanID:      externalPlanID,
		ApprovalURL: "https://paypal.example/approve/I-SUB-1",
	}, nil
}

func (f *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*paypalclient.SubscriptionInfo, error) {
	if f.getSubscription != nil {
		return f.getSubscription(ctx, subscriptionID)
	}
	return nil, types.NewFault(types.FaultUpstreamPermanent, "no such subscription")
}

func (f *fakeProvider) CancelSubscription(_ context.Context, subscriptionID, _ string) error {
	f.cancelled = append(f.cancelled, subscriptionID)
	return f.cancelErr
}

func (f *fakeProvider) CreateOrder(_ context.Context, amount decimal.Decimal, currency, invoiceNumber, customID string) (*paypalclient.OrderInfo, error) {
	return &paypalclient.OrderInfo{
		ID:          "ORDER-" + invoiceNumber,
		Status:      "CREATED",
		ApprovalURL: fmt.Sprintf("https://paypal.example/checkout?amount=%s&cur=%s&custom=%s", amount.StringFixed(2), currency, customID),
	}, nil
}

func (f *fakeProvider) CaptureOrder(_ context.Context, orderID string) (*paypalclient.OrderInfo, error) {
	status := f.captureStatus
	if status == "" {
		status = paypalclient.OrderStatusCompleted
	}
	return &paypalclient.OrderInfo{ID: orderID, Status: status}, nil
}

func (f *fakeProvider) VerifyWebhookSignature(context.Context, *http.Request) (bool, error) {
	return true, nil
}

func newTestBilling(t *testing.T) (*Service, *gorm.DB, *fakeProvider, *capturingSender) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sender := &capturingSender{}
	notify := notifier.NewService(gdb, sender, newMemKV(), zap.NewNop().Sugar())
	provider := &fakeProvider{}
	cfg := &cfgpkg.Config{Plans: cfgpkg.DefaultPlans()}
	s := NewService(gdb, cfg, provider, notify, zap.NewNop().Sugar())
	return s, gdb, provider, sender
}

func seedClient(t *testing.T, gdb *gorm.DB, status types.ClientStatus) *models.Client {
	t.Helper()
	user := &models.User{
		ID: "user-1", Email: "client@example.com", PasswordHash: "x",
		Name: "Dana", Role: types.UserRoleClient,
	}
	require.NoError(t, gdb.Create(user).Error)
	client := &models.Client{
		ID: "client-1", UserID: user.ID, Status: status,
		PaymentStatus: types.PaymentStatusNone, CurrentPlan: types.PlanNone,
	}
	require.NoError(t, gdb.Create(client).Error)
	return client
}

func TestCreateSubscriptionUnknownPlan(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	_, err := s.CreateSubscription(context.Background(), "user-1", types.PlanID("platinum"))
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestCreateSubscriptionParksClientPending(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	checkout, err := s.CreateSubscription(context.Background(), "user-1", types.PlanPro)
	require.NoError(t, err)
	require.Equal(t, "I-SUB-1", checkout.SubscriptionID)
	require.NotEmpty(t, checkout.ApprovalURL)

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", "client-1").Error)
	require.Equal(t, types.ClientStatusPending, c.Status)
	require.Equal(t, types.PaymentStatusPending, c.PaymentStatus)
	require.Equal(t, types.PlanPro, c.CurrentPlan)
	require.NotNil(t, c.ExternalSubscriptionID)
}

func TestCreateSubscriptionConflictOnSamePlan(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	sub := "I-EXISTING"
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
		"external_subscription_id": sub,
		"current_plan":             types.PlanPro,
	}).Error)

	_, err := s.CreateSubscription(context.Background(), "user-1", types.PlanPro)
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

func TestApproveSubscriptionActivates(t *testing.T) {
	s, gdb, provider, sender := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	next := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	provider.getSubscription = func(_ context.Context, id string) (*paypalclient.SubscriptionInfo, error) {
		return &paypalclient.SubscriptionInfo{
			ID: id, Status: paypalclient.SubscriptionStatusActive,
			CustomID: "user-1", PlanID: "P-PRO", NextBillingTime: &next,
		}, nil
	}

	require.NoError(t, s.ApproveSubscription(context.Background(), "user-1", "I-SUB-1"))

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", "client-1").Error)
	require.Equal(t, types.ClientStatusActive, c.Status)
	require.Equal(t, types.PaymentStatusPaid, c.PaymentStatus)
	require.Equal(t, types.PlanPro, c.CurrentPlan)
	require.True(t, c.MonthlyFee.Equal(decimal.NewFromInt(250)))
	require.NotNil(t, c.NextPaymentDate)
	require.Equal(t, next.Format(time.DateOnly), c.NextPaymentDate.Format(time.DateOnly))
	require.Len(t, sender.subjects, 1)
}

func TestApproveSubscriptionRejectsForeignCustomID(t *testing.T) {
	s, gdb, provider, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	provider.getSubscription = func(_ context.Context, id string) (*paypalclient.SubscriptionInfo, error) {
		return &paypalclient.SubscriptionInfo{
			ID: id, Status: paypalclient.SubscriptionStatusActive,
			CustomID: "someone-else", PlanID: "P-PRO",
		}, nil
	}

	err := s.ApproveSubscription(context.Background(), "user-1", "I-SUB-1")
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

func TestCancelSubscriptionSurvivesProviderFailure(t *testing.T) {
	s, gdb, provider, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	sub := "I-SUB-1"
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
		"external_subscription_id": sub,
		"current_plan":             types.PlanStarter,
		"monthly_fee":              decimal.NewFromInt(100),
	}).Error)
	provider.cancelErr = types.NewFault(types.FaultUpstreamTransient, "provider down")

	require.NoError(t, s.CancelSubscription(context.Background(), "user-1"))

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", client.ID).Error)
	require.Equal(t, types.ClientStatusCancelled, c.Status)
	require.Equal(t, types.PlanNone, c.CurrentPlan)
	require.True(t, c.MonthlyFee.IsZero())
	require.Nil(t, c.NextPaymentDate)
	require.NotNil(t, c.SubscriptionEndDate)
	require.Equal(t, []string{sub}, provider.cancelled)
}

func TestCancelSubscriptionWithoutOne(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	err := s.CancelSubscription(context.Background(), "user-1")
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

func activatedEvent(eventID, subID, customID string) *ProviderEvent {
	body := fmt.Sprintf(`{
		"id": %q,
		"event_type": "BILLING.SUBSCRIPTION.ACTIVATED",
		"resource": {"id": %q, "custom_id": %q, "plan_id": "P-STARTER"}
	}`, eventID, subID, customID)
	ev, _ := ParseEvent([]byte(body))
	return ev
}

func TestWebhookActivatedActivatesClient(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	ev := activatedEvent("WH-1", "I-SUB-1", "user-1")
	require.NoError(t, s.HandleWebhookEvent(context.Background(), ev))

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", "client-1").Error)
	require.Equal(t, types.ClientStatusActive, c.Status)
	require.Equal(t, types.PlanStarter, c.CurrentPlan)
	require.Len(t, sender.subjects, 1)
}

func TestWebhookDuplicateDeliveryIsNoop(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	ev := activatedEvent("WH-1", "I-SUB-1", "user-1")
	require.NoError(t, s.HandleWebhookEvent(context.Background(), ev))
	require.NoError(t, s.HandleWebhookEvent(context.Background(), ev))

	var n int64
	require.NoError(t, gdb.Model(&models.WebhookEvent{}).Count(&n).Error)
	require.Equal(t, int64(1), n)
	// No second notification either.
	require.Len(t, sender.subjects, 1)
}

func TestWebhookSaleRecordsRecurringPayment(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	sub := "I-SUB-1"
	next := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
		"external_subscription_id": sub,
		"current_plan":             types.PlanStarter,
		"next_payment_date":        next,
	}).Error)

	body := `{
		"id": "WH-SALE-1",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {"id": "SALE-1", "billing_agreement_id": "I-SUB-1", "amount": {"total": "100.00", "currency": "USD"}}
	}`
	ev, err := ParseEvent([]byte(body))
	require.NoError(t, err)
	require.NoError(t, s.HandleWebhookEvent(context.Background(), ev))

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", client.ID).Error)
	require.True(t, c.TotalSpent.Equal(decimal.NewFromInt(100)))
	require.Equal(t, types.PaymentStatusPaid, c.PaymentStatus)
	// Next payment advances one calendar month from the previous date.
	require.Equal(t, "2026-04-10", c.NextPaymentDate.Format(time.DateOnly))

	var invoices []*models.Invoice
	require.NoError(t, gdb.Find(&invoices).Error)
	require.Len(t, invoices, 1)
	require.Equal(t, types.InvoiceStatusPaid, invoices[0].Status)
	require.NotNil(t, invoices[0].PaidAt)

	require.Len(t, sender.subjects, 1)
	require.Contains(t, sender.subjects[0], "100.00")
}

func TestWebhookSaleForUnknownClientIsAcked(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusActive)

	body := `{
		"id": "WH-SALE-ORPHAN",
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {"id": "SALE-9", "billing_agreement_id": "I-UNKNOWN", "amount": {"total": "50.00", "currency": "USD"}}
	}`
	ev, err := ParseEvent([]byte(body))
	require.NoError(t, err)
	require.NoError(t, s.HandleWebhookEvent(context.Background(), ev))

	var row models.WebhookEvent
	require.NoError(t, gdb.First(&row, "event_id = ?", "WH-SALE-ORPHAN").Error)
	require.NotNil(t, row.ProcessingError)
	require.Empty(t, sender.subjects)
}

func TestWebhookUnknownTypeStoredAndAcked(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)

	ev, err := ParseEvent([]byte(`{"id": "WH-X", "event_type": "CUSTOMER.DISPUTE.CREATED", "resource": {}}`))
	require.NoError(t, err)
	require.NoError(t, s.HandleWebhookEvent(context.Background(), ev))

	var n int64
	require.NoError(t, gdb.Model(&models.WebhookEvent{}).Where("event_id = ?", "WH-X").Count(&n).Error)
	require.Equal(t, int64(1), n)
}

func TestParseEventRejectsMissingID(t *testing.T) {
	_, err := ParseEvent([]byte(`{"event_type": "PAYMENT.SALE.COMPLETED"}`))
	require.Equal(t, types.FaultValidation, types.KindOf(err))

	_, err = ParseEvent([]byte(`not json`))
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestRecurringDueSweepRaisesInvoice(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	due := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
		"current_plan":      types.PlanStarter,
		"next_payment_date": due,
	}).Error)

	today := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	n, err := s.RecurringDueSweep(context.Background(), today, false)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var invoices []*models.Invoice
	require.NoError(t, gdb.Find(&invoices).Error)
	require.Len(t, invoices, 1)
	require.Equal(t, types.InvoiceStatusPending, invoices[0].Status)
	require.True(t, invoices[0].Amount.Equal(decimal.NewFromInt(100)))
	require.Equal(t, "2026-03-09", invoices[0].DueDate)

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", client.ID).Error)
	require.Equal(t, types.PaymentStatusPending, c.PaymentStatus)
	require.Equal(t, due.Add(renewalPeriod).Format(time.DateOnly), c.NextPaymentDate.UTC().Format(time.DateOnly))

	require.Len(t, sender.subjects, 1)
}

func TestRecurringDueSweepDryRun(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	due := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
		"current_plan":      types.PlanStarter,
		"next_payment_date": due,
	}).Error)

	n, err := s.RecurringDueSweep(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), true)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var count int64
	require.NoError(t, gdb.Model(&models.Invoice{}).Count(&count).Error)
	require.Zero(t, count)
	require.Empty(t, sender.subjects)
}

func TestRecurringDueSweepSkipsNotDue(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	future := time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC)
	require.NoError(t, gdb.Model(&models.Client{}).Where("id = ?", client.ID).Updates(map[string]any{
		"current_plan":      types.PlanStarter,
		"next_payment_date": future,
	}).Error)

	n, err := s.RecurringDueSweep(context.Background(), time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestCreateOrderChargesStoredInvoiceAmount(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	require.NoError(t, gdb.Create(&models.Invoice{
		ID: "inv-1", ClientID: client.ID, InvoiceNumber: "INV-0001",
		Amount: decimal.NewFromInt(250), Status: types.InvoiceStatusPending, DueDate: "2026-03-20",
	}).Error)

	// The declared amount is ignored in favor of the invoice's.
	order, err := s.CreateOrder(context.Background(), "user-1", decimal.NewFromInt(1), "INV-0001")
	require.NoError(t, err)
	require.Contains(t, order.ApprovalURL, "amount=250.00")
}

func TestCreateOrderRejectsPaidInvoice(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	require.NoError(t, gdb.Create(&models.Invoice{
		ID: "inv-1", ClientID: client.ID, InvoiceNumber: "INV-0001",
		Amount: decimal.NewFromInt(250), Status: types.InvoiceStatusPaid, DueDate: "2026-03-20",
	}).Error)

	_, err := s.CreateOrder(context.Background(), "user-1", decimal.Zero, "INV-0001")
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

func TestCreateOrderFreeStandingNeedsPositiveAmount(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusActive)

	_, err := s.CreateOrder(context.Background(), "user-1", decimal.Zero, "")
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestCaptureOrderSettlesInvoice(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	require.NoError(t, gdb.Create(&models.Invoice{
		ID: "inv-1", ClientID: client.ID, InvoiceNumber: "INV-0001",
		Amount: decimal.NewFromInt(250), Status: types.InvoiceStatusPending, DueDate: "2026-03-20",
	}).Error)

	order, err := s.CaptureOrder(context.Background(), "user-1", "ORDER-1", "INV-0001", decimal.NewFromInt(250))
	require.NoError(t, err)
	require.Equal(t, paypalclient.OrderStatusCompleted, order.Status)

	var inv models.Invoice
	require.NoError(t, gdb.First(&inv, "id = ?", "inv-1").Error)
	require.Equal(t, types.InvoiceStatusPaid, inv.Status)

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", client.ID).Error)
	require.True(t, c.TotalSpent.Equal(decimal.NewFromInt(250)))
	require.Len(t, sender.subjects, 1)
}

func TestCaptureOrderIncompleteStatus(t *testing.T) {
	s, gdb, provider, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusActive)
	provider.captureStatus = "PENDING"

	_, err := s.CaptureOrder(context.Background(), "user-1", "ORDER-1", "", decimal.Zero)
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

type stubPayer struct {
	err   error
	calls int
}

func (p *stubPayer) Pay(context.Context, string, decimal.Decimal, string) error {
	p.calls++
	return p.err
}

func TestPayInvoiceWithWallet(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	require.NoError(t, gdb.Create(&models.Invoice{
		ID: "inv-1", ClientID: client.ID, InvoiceNumber: "INV-0001",
		Amount: decimal.NewFromInt(250), Status: types.InvoiceStatusPending, DueDate: "2026-03-20",
	}).Error)

	payer := &stubPayer{}
	require.NoError(t, s.PayInvoiceWithWallet(context.Background(), "user-1", "INV-0001", payer))
	require.Equal(t, 1, payer.calls)

	var inv models.Invoice
	require.NoError(t, gdb.First(&inv, "id = ?", "inv-1").Error)
	require.Equal(t, types.InvoiceStatusPaid, inv.Status)
}

func TestPayInvoiceWithWalletDebitFailureLeavesInvoice(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusActive)
	require.NoError(t, gdb.Create(&models.Invoice{
		ID: "inv-1", ClientID: client.ID, InvoiceNumber: "INV-0001",
		Amount: decimal.NewFromInt(250), Status: types.InvoiceStatusPending, DueDate: "2026-03-20",
	}).Error)

	payer := &stubPayer{err: types.NewFault(types.FaultConflict, "insufficient balance")}
	err := s.PayInvoiceWithWallet(context.Background(), "user-1", "INV-0001", payer)
	require.Equal(t, types.FaultConflict, types.KindOf(err))

	var inv models.Invoice
	require.NoError(t, gdb.First(&inv, "id = ?", "inv-1").Error)
	require.Equal(t, types.InvoiceStatusPending, inv.Status)
}

func TestBankTransferLifecycle(t *testing.T) {
	s, gdb, _, sender := newTestBilling(t)
	client := seedClient(t, gdb, types.ClientStatusPending)

	row, err := s.SubmitBankTransfer(context.Background(), "user-1", "Dana Example", decimal.NewFromInt(400))
	require.NoError(t, err)
	require.Equal(t, types.BankTransferStatusPending, row.Status)

	pending, err := s.PendingBankTransfers(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.ApproveBankTransfer(context.Background(), "admin-1", row.ID, types.PlanPremium))

	var c models.Client
	require.NoError(t, gdb.First(&c, "id = ?", client.ID).Error)
	require.Equal(t, types.ClientStatusActive, c.Status)
	require.Equal(t, types.PlanPremium, c.CurrentPlan)
	require.True(t, c.TotalSpent.Equal(decimal.NewFromInt(400)))
	require.NotNil(t, c.NextPaymentDate)

	var stored models.BankTransferVerification
	require.NoError(t, gdb.First(&stored, "id = ?", row.ID).Error)
	require.Equal(t, types.BankTransferStatusApproved, stored.Status)

	// A second approval attempt is a conflict.
	err = s.ApproveBankTransfer(context.Background(), "admin-1", row.ID, types.PlanPremium)
	require.Equal(t, types.FaultConflict, types.KindOf(err))

	require.Len(t, sender.subjects, 1)
}

func TestSubmitBankTransferValidation(t *testing.T) {
	s, gdb, _, _ := newTestBilling(t)
	seedClient(t, gdb, types.ClientStatusPending)

	_, err := s.SubmitBankTransfer(context.Background(), "user-1", "  ", decimal.NewFromInt(100))
	require.Equal(t, types.FaultValidation, types.KindOf(err))

	_, err = s.SubmitBankTransfer(context.Background(), "user-1", "Dana", decimal.Zero)
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}
