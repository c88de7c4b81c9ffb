package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/app"
	"github.com/socialpulse/backend/internal/app/service/billing"
	"github.com/socialpulse/backend/internal/app/service/insights"
	"github.com/socialpulse/backend/internal/app/service/metricstore"
	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/cache"
	"github.com/socialpulse/backend/internal/platform/db"
	"github.com/socialpulse/backend/internal/platform/email"
	"github.com/socialpulse/backend/internal/platform/paypalclient"
	"github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/logger"
	"github.com/socialpulse/backend/pkg/types"
)

type deps struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.SugaredLogger
	Billing  *billing.Service
	Notifier *notifier.Service
	Insights *insights.Service
}

func main() {
	task := flag.String("task", "", "one of: overdue, due-soon, renewal-reminder, overdue-tasks, recurring-due, aggregate, performance-report")
	dateStr := flag.String("date", "", "reference date, YYYY-MM-DD (default today)")
	dryRun := flag.Bool("dry-run", false, "log intended mutations without applying them")
	flag.Parse()

	if *task == "" {
		fmt.Fprintln(os.Stderr, "missing --task")
		flag.Usage()
		os.Exit(1)
	}

	today := time.Now().UTC()
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --date %q: %v\n", *dateStr, err)
			os.Exit(1)
		}
		today = parsed
	}

	exitCode := 0
	defer func() { os.Exit(exitCode) }()

	var d deps
	a := fx.New(
		logger.Module,
		config.Module,
		db.Module,
		cache.Module,
		email.Module,
		paypalclient.Module,
		metricstore.Module,
		notifier.Module,
		billing.Module,
		insights.Module,
		fx.Populate(&d),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		zap.NewExample().Sugar().Errorf("failed to start: %v", err)
		exitCode = 1
		return
	}
	defer func() {
		stopCtx, cancel2 := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
		defer cancel2()
		if err := a.Stop(stopCtx); err != nil {
			d.Log.Errorf("failed to stop: %v", err)
			exitCode = 1
		}
	}()

	if err := run(context.Background(), d, *task, today, *dryRun); err != nil {
		d.Log.Errorw("task failed", "task", *task, "err", err)
		exitCode = 1
	}
}

func run(ctx context.Context, d deps, task string, today time.Time, dryRun bool) error {
	switch task {
	case "overdue":
		n, err := d.Notifier.OverdueInvoiceSweep(ctx, today, dryRun)
		return report(d, task, n, err)
	case "due-soon":
		n, err := d.Notifier.DueSoonSweep(ctx, today, dryRun)
		return report(d, task, n, err)
	case "renewal-reminder":
		n, err := d.Notifier.RenewalReminderSweep(ctx, today, dryRun)
		return report(d, task, n, err)
	case "overdue-tasks":
		n, err := d.Notifier.OverdueTasksSweep(ctx, today, dryRun)
		return report(d, task, n, err)
	case "recurring-due":
		n, err := d.Billing.RecurringDueSweep(ctx, today, dryRun)
		return report(d, task, n, err)
	case "performance-report":
		n, err := d.Notifier.MonthlyPerformanceSweep(ctx, today, dryRun)
		return report(d, task, n, err)
	case "aggregate":
		return aggregateAll(ctx, d, today, dryRun)
	default:
		return fmt.Errorf("unknown task %q", task)
	}
}

func report(d deps, task string, n int, err error) error {
	if err != nil {
		return err
	}
	d.Log.Infow("task completed", "task", task, "processed", n)
	return nil
}

// aggregateAll recomputes the monthly performance summary of every active
// client for the month containing the reference date.
func aggregateAll(ctx context.Context, d deps, today time.Time, dryRun bool) error {
	month := today.Format("2006-01")
	var clients []*models.Client
	if err := d.DB.WithContext(ctx).
		Where("status = ?", types.ClientStatusActive).
		Find(&clients).Error; err != nil {
		return err
	}

	var failed int
	for _, client := range clients {
		if dryRun {
			d.Log.Infow("would aggregate", "client_id", client.ID, "month", month)
			continue
		}
		summary, err := d.Insights.Aggregate(ctx, client.ID, month)
		if err != nil {
			failed++
			d.Log.Errorw("aggregation failed", "client_id", client.ID, "month", month, "err", err)
			continue
		}
		if summary == nil {
			d.Log.Debugw("no metrics in month", "client_id", client.ID, "month", month)
		}
	}
	d.Log.Infow("task completed", "task", "aggregate", "clients", len(clients), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d clients failed", failed, len(clients))
	}
	return nil
}
