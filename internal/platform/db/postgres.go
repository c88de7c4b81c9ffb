package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	gormzap "github.com/socialpulse/backend/pkg/gormlog"
)

func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	// TranslateError maps driver unique-violation errors onto
	// gorm.ErrDuplicatedKey, which webhook idempotency relies on.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: gormzap.New(l), TranslateError: true})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup.
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if err := Migrate(db); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// Migrate is shared with the test harness, which runs it against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.SocialAccount{},
		&models.DailyMetrics{},
		&models.PostMetrics{},
		&models.SyncLog{},
		&models.PerformanceSummary{},
		&models.Invoice{},
		&models.Notification{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.AutoRecharge{},
		&models.WebhookEvent{},
		&models.BankTransferVerification{},
		&models.ContentPost{},
		&models.Task{},
	)
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown.
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
