package schedule

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/internal/app/service/ingestion"
	"github.com/socialpulse/backend/internal/app/service/notifier"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
)

// Daily sweeps run at a fixed UTC hour; the monthly report goes out later in
// the morning on the first of the month. Redis dedupe keys make concurrent
// replicas safe.
const (
	dailySweepHour   = 9
	monthlySweepHour = 10
)

// Supervisor owns the background tickers: the periodic sync enqueue and the
// daily/monthly notification and billing sweeps.
type Supervisor struct {
	ingest *ingestion.Service
	bill   *billing.Service
	notify *notifier.Service
	cfg    *cfgpkg.Config
	log    *zap.SugaredLogger
}

func NewSupervisor(ingest *ingestion.Service, bill *billing.Service, notify *notifier.Service, cfg *cfgpkg.Config, log *zap.SugaredLogger) *Supervisor {
	return &Supervisor{ingest: ingest, bill: bill, notify: notify, cfg: cfg, log: log}
}

// Start runs the tickers for the process lifetime.
func Start(lc fx.Lifecycle, s *Supervisor) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.tickEvery(ctx, s.cfg.Ingestion.SyncCadence, "sync-enqueue", func(now time.Time) {
				if _, err := s.ingest.EnqueueAllActive(ctx); err != nil {
					s.log.Errorw("periodic enqueue failed", "err", err)
				}
			})
			go s.dailyAt(ctx, dailySweepHour, "daily-sweeps", s.runDailySweeps)
			go s.dailyAt(ctx, monthlySweepHour, "monthly-report", func(now time.Time) {
				if now.UTC().Day() != 1 {
					return
				}
				if _, err := s.notify.MonthlyPerformanceSweep(ctx, now, false); err != nil {
					s.log.Errorw("monthly performance sweep failed", "err", err)
				}
			})
			s.log.Infow("schedule supervisor started", "sync_cadence", s.cfg.Ingestion.SyncCadence)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Supervisor) runDailySweeps(now time.Time) {
	ctx := context.Background()
	if _, err := s.bill.RecurringDueSweep(ctx, now, false); err != nil {
		s.log.Errorw("recurring due sweep failed", "err", err)
	}
	if _, err := s.notify.OverdueInvoiceSweep(ctx, now, false); err != nil {
		s.log.Errorw("overdue invoice sweep failed", "err", err)
	}
	if _, err := s.notify.DueSoonSweep(ctx, now, false); err != nil {
		s.log.Errorw("due-soon sweep failed", "err", err)
	}
	if _, err := s.notify.RenewalReminderSweep(ctx, now, false); err != nil {
		s.log.Errorw("renewal reminder sweep failed", "err", err)
	}
	if _, err := s.notify.OverdueTasksSweep(ctx, now, false); err != nil {
		s.log.Errorw("overdue task sweep failed", "err", err)
	}
}

func (s *Supervisor) tickEvery(ctx context.Context, every time.Duration, name string, fn func(time.Time)) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.log.Debugw("scheduled task firing", "task", name)
			fn(now)
		}
	}
}

// dailyAt fires fn once a day at the given UTC hour.
func (s *Supervisor) dailyAt(ctx context.Context, hour int, name string, fn func(time.Time)) {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		t := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case fireAt := <-t.C:
			s.log.Debugw("scheduled task firing", "task", name)
			fn(fireAt)
		}
	}
}

var Module = fx.Options(
	fx.Provide(NewSupervisor),
	fx.Invoke(Start),
)
