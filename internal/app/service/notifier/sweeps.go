package notifier

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/types"
)

// dedupeTTL keeps a sweep's claim long enough to cover the scheduler and a
// same-day manual run, then lets the key expire.
const dedupeTTL = 48 * time.Hour

// claimSweep takes the (kind, date) dedupe key. A lost claim means another
// process already ran this sweep for the date.
func (s *Service) claimSweep(ctx context.Context, kind string, date string) (bool, error) {
	return s.kv.Claim(ctx, "sweep:"+kind+":"+date, dedupeTTL)
}

// OverdueInvoiceSweep flips pending invoices that were due before today to
// overdue, marks their clients' payment status and notifies the client user.
func (s *Service) OverdueInvoiceSweep(ctx context.Context, today time.Time, dryRun bool) (int, error) {
	l := logctx.FromCtx(ctx, s.log)
	date := today.UTC().Format(time.DateOnly)

	if !dryRun {
		won, err := s.claimSweep(ctx, "invoice-overdue", date)
		if err != nil {
			return 0, err
		}
		if !won {
			l.Infow("overdue sweep already ran", "date", date)
			return 0, nil
		}
	}

	var invoices []*models.Invoice
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date < ?", types.InvoiceStatusPending, date).
		Find(&invoices).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "load overdue invoices", err)
	}

	processed := 0
	for _, inv := range invoices {
		if dryRun {
			l.Infow("would mark invoice overdue", "invoice", inv.InvoiceNumber, "due_date", inv.DueDate)
			processed++
			continue
		}
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
				Update("status", types.InvoiceStatusOverdue).Error; err != nil {
				return err
			}
			return tx.Model(&models.Client{}).Where("id = ?", inv.ClientID).
				Update("payment_status", types.PaymentStatusOverdue).Error
		})
		if err != nil {
			l.Errorw("mark invoice overdue", "invoice", inv.InvoiceNumber, "err", err)
			continue
		}
		if userID, ok := s.clientUser(ctx, inv.ClientID); ok {
			s.Dispatch(ctx, types.NotificationInvoiceOverdue, userID, map[string]string{
				"invoice_number": inv.InvoiceNumber,
				"amount":         inv.Amount.StringFixed(2),
				"due_date":       inv.DueDate,
			})
		}
		processed++
	}
	return processed, nil
}

// DueSoonSweep reminds clients about pending invoices due three days out.
func (s *Service) DueSoonSweep(ctx context.Context, today time.Time, dryRun bool) (int, error) {
	l := logctx.FromCtx(ctx, s.log)
	date := today.UTC().Format(time.DateOnly)
	target := today.UTC().AddDate(0, 0, 3).Format(time.DateOnly)

	if !dryRun {
		won, err := s.claimSweep(ctx, "invoice-due-soon", date)
		if err != nil {
			return 0, err
		}
		if !won {
			l.Infow("due-soon sweep already ran", "date", date)
			return 0, nil
		}
	}

	var invoices []*models.Invoice
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_date = ?", types.InvoiceStatusPending, target).
		Find(&invoices).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "load due-soon invoices", err)
	}

	processed := 0
	for _, inv := range invoices {
		if dryRun {
			l.Infow("would send due-soon reminder", "invoice", inv.InvoiceNumber)
			processed++
			continue
		}
		if userID, ok := s.clientUser(ctx, inv.ClientID); ok {
			s.Dispatch(ctx, types.NotificationInvoiceDueSoon, userID, map[string]string{
				"invoice_number": inv.InvoiceNumber,
				"amount":         inv.Amount.StringFixed(2),
				"due_date":       inv.DueDate,
			})
		}
		processed++
	}
	return processed, nil
}

// RenewalReminderSweep notifies active clients whose next payment falls a
// week out.
func (s *Service) RenewalReminderSweep(ctx context.Context, today time.Time, dryRun bool) (int, error) {
	l := logctx.FromCtx(ctx, s.log)
	date := today.UTC().Format(time.DateOnly)
	from := today.UTC().AddDate(0, 0, 7)
	to := from.AddDate(0, 0, 1)

	if !dryRun {
		won, err := s.claimSweep(ctx, "renewal-reminder", date)
		if err != nil {
			return 0, err
		}
		if !won {
			l.Infow("renewal sweep already ran", "date", date)
			return 0, nil
		}
	}

	var clients []*models.Client
	err := s.db.WithContext(ctx).
		Where("status = ? AND next_payment_date >= ? AND next_payment_date < ?",
			types.ClientStatusActive, from.Truncate(24*time.Hour), to.Truncate(24*time.Hour)).
		Find(&clients).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "load renewing clients", err)
	}

	processed := 0
	for _, c := range clients {
		if dryRun {
			l.Infow("would send renewal reminder", "client_id", c.ID)
			processed++
			continue
		}
		next := ""
		if c.NextPaymentDate != nil {
			next = c.NextPaymentDate.Format(time.DateOnly)
		}
		s.Dispatch(ctx, types.NotificationSubscriptionRenewal, c.UserID, map[string]string{
			"plan":         string(c.CurrentPlan),
			"next_payment": next,
			"amount":       c.MonthlyFee.StringFixed(2),
		})
		processed++
	}
	return processed, nil
}

// OverdueTasksSweep notifies client users about open tasks past their due
// date.
func (s *Service) OverdueTasksSweep(ctx context.Context, today time.Time, dryRun bool) (int, error) {
	l := logctx.FromCtx(ctx, s.log)
	date := today.UTC().Format(time.DateOnly)

	if !dryRun {
		won, err := s.claimSweep(ctx, "task-overdue", date)
		if err != nil {
			return 0, err
		}
		if !won {
			l.Infow("overdue-task sweep already ran", "date", date)
			return 0, nil
		}
	}

	var tasks []*models.Task
	err := s.db.WithContext(ctx).
		Where("status IN ? AND due_date < ? AND due_date != ''",
			[]types.TaskStatus{types.TaskStatusPending, types.TaskStatusInProgress}, date).
		Find(&tasks).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "load overdue tasks", err)
	}

	processed := 0
	for _, t := range tasks {
		if dryRun {
			l.Infow("would send task-overdue", "task", t.Title, "due_date", t.DueDate)
			processed++
			continue
		}
		if userID, ok := s.clientUser(ctx, t.ClientID); ok {
			s.Dispatch(ctx, types.NotificationTaskOverdue, userID, map[string]string{
				"task":     t.Title,
				"due_date": t.DueDate,
			})
		}
		processed++
	}
	return processed, nil
}

// MonthlyPerformanceSweep sends each active client a performance_report for
// the previous month, provided at least one of their accounts has samples.
func (s *Service) MonthlyPerformanceSweep(ctx context.Context, today time.Time, dryRun bool) (int, error) {
	l := logctx.FromCtx(ctx, s.log)
	date := today.UTC().Format(time.DateOnly)
	month := today.UTC().AddDate(0, -1, 0).Format("2006-01")

	if !dryRun {
		won, err := s.claimSweep(ctx, "performance-report", date)
		if err != nil {
			return 0, err
		}
		if !won {
			l.Infow("performance sweep already ran", "date", date)
			return 0, nil
		}
	}

	var clients []*models.Client
	err := s.db.WithContext(ctx).
		Where("status = ?", types.ClientStatusActive).
		Find(&clients).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "load active clients", err)
	}

	processed := 0
	for _, c := range clients {
		latest, err := s.latestClientMetrics(ctx, c.ID)
		if err != nil {
			l.Errorw("load client metrics", "client_id", c.ID, "err", err)
			continue
		}
		if latest == nil {
			continue
		}
		if dryRun {
			l.Infow("would send performance report", "client_id", c.ID, "month", month)
			processed++
			continue
		}
		s.Dispatch(ctx, types.NotificationPerformanceReport, c.UserID, map[string]string{
			"month":           month,
			"followers":       itoa(latest.Followers),
			"engagement_rate": latest.EngagementRate.StringFixed(2),
		})
		processed++
	}
	return processed, nil
}

func (s *Service) clientUser(ctx context.Context, clientID string) (string, bool) {
	var client models.Client
	if err := s.db.WithContext(ctx).Where("id = ?", clientID).First(&client).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("load client for notification", "client_id", clientID, "err", err)
		return "", false
	}
	return client.UserID, true
}

// latestClientMetrics returns the newest DailyMetrics across the client's
// active accounts, nil when none exist.
func (s *Service) latestClientMetrics(ctx context.Context, clientID string) (*models.DailyMetrics, error) {
	var accounts []*models.SocialAccount
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND active = ?", clientID, true).
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	var latest *models.DailyMetrics
	for _, a := range accounts {
		var row models.DailyMetrics
		err := s.db.WithContext(ctx).
			Where("account_id = ?", a.ID).
			Order("date DESC").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if latest == nil || row.Date > latest.Date {
			latest = &row
		}
	}
	return latest, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
