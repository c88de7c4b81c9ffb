package ingestion

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// maxAttempts bounds one job at the first try plus three retries.
const maxAttempts = 4

// StartWorkers runs the consumer pool for the lifetime of the process.
func StartWorkers(lc fx.Lifecycle, s *Service) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			deliveries, err := s.broker.Consume()
			if err != nil {
				cancel()
				return err
			}
			for i := 0; i < s.cfg.Ingestion.WorkerPoolSize; i++ {
				wg.Add(1)
				go func(worker int) {
					defer wg.Done()
					s.consume(ctx, worker, deliveries)
				}(i)
			}
			s.log.Infow("ingestion workers started", "pool_size", s.cfg.Ingestion.WorkerPoolSize)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			done := make(chan struct{})
			go func() { wg.Wait(); close(done) }()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func (s *Service) consume(ctx context.Context, worker int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			s.handleDelivery(ctx, worker, d)
		}
	}
}

func (s *Service) handleDelivery(ctx context.Context, worker int, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		s.log.Errorw("malformed job dropped", "worker", worker, "err", err)
		_ = d.Ack(false)
		return
	}

	l := s.log.With("worker", worker, "job_id", job.ID, "account_id", job.AccountID)
	if err := s.RunJob(ctx, job); err != nil {
		l.Errorw("job failed", "err", err)
	}
	// Retries happened in-process; redelivering a terminally failed job
	// would only repeat the failure.
	_ = d.Ack(false)
}

// RunJob executes one sync end to end: tombstone check, per-account lock,
// SyncLog bracket, token refresh, profile and posts sync with transient-fault
// retries.
func (s *Service) RunJob(ctx context.Context, job Job) error {
	l := logctx.FromCtx(ctx, s.log).With("job_id", job.ID, "account_id", job.AccountID)

	if _, cancelled, err := s.kv.Get(ctx, tombstoneKey(job.ID)); err != nil {
		l.Warnw("tombstone check failed", "err", err)
	} else if cancelled {
		l.Infow("cancelled job skipped")
		return nil
	}

	s.locks.Lock(job.AccountID)
	defer s.locks.Unlock(job.AccountID)

	var account models.SocialAccount
	if err := s.db.WithContext(ctx).Where("id = ?", job.AccountID).First(&account).Error; err != nil {
		l.Warnw("job account missing", "err", err)
		return nil
	}
	if !account.Active {
		l.Infow("inactive account skipped")
		return nil
	}

	syncLog := &models.SyncLog{
		ID:        tool.GenerateUUIDV7(),
		AccountID: account.ID,
		Kind:      types.SyncKindMetrics,
		State:     types.SyncStateInProgress,
		StartedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(syncLog).Error; err != nil {
		return types.WrapFault(types.FaultInternal, "open sync log", err)
	}

	posts, err := s.runWithRetries(ctx, &account)
	now := s.now()
	if err != nil {
		msg := err.Error()
		s.db.WithContext(ctx).Model(&models.SyncLog{}).Where("id = ?", syncLog.ID).
			Updates(map[string]any{
				"state":         types.SyncStateFailed,
				"error_message": msg,
				"completed_at":  now,
			})
		s.notify.NotifyAdmins(ctx, types.NotificationSyncFailed, map[string]string{
			"platform": string(account.Platform),
			"account":  account.Username,
			"error":    msg,
		})
		return err
	}

	if err := s.db.WithContext(ctx).Model(&models.SocialAccount{}).
		Where("id = ?", account.ID).
		Update("last_sync_at", now).Error; err != nil {
		l.Warnw("store last sync time", "err", err)
	}
	err = s.db.WithContext(ctx).Model(&models.SyncLog{}).Where("id = ?", syncLog.ID).
		Updates(map[string]any{
			"state":             types.SyncStateSuccess,
			"records_processed": posts + 1,
			"completed_at":      now,
		}).Error
	if err != nil {
		return types.WrapFault(types.FaultInternal, "close sync log", err)
	}
	l.Infow("sync completed", "records", posts+1)
	return nil
}

// runWithRetries performs the sync steps, retrying the whole sequence on
// transient upstream faults with doubling backoff.
func (s *Service) runWithRetries(ctx context.Context, account *models.SocialAccount) (int, error) {
	backoff := s.cfg.Ingestion.RetryBase
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		posts, err := s.runOnce(ctx, account)
		if err == nil {
			return posts, nil
		}
		lastErr = err
		if !types.IsRetryable(err) || attempt == maxAttempts {
			return 0, err
		}
		logctx.FromCtx(ctx, s.log).Warnw("sync attempt failed, retrying",
			"account_id", account.ID, "attempt", attempt, "backoff", backoff, "err", err)
		s.sleep(ctx, backoff)
		backoff *= 2
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
	}
	return 0, lastErr
}

func (s *Service) runOnce(ctx context.Context, account *models.SocialAccount) (int, error) {
	if s.vault.NeedsRefresh(account, s.now()) {
		if err := s.vault.Refresh(ctx, account); err != nil {
			return 0, err
		}
	}
	if _, err := s.SyncProfile(ctx, account); err != nil {
		return 0, err
	}
	return s.SyncRecentPosts(ctx, account, postsPerSync)
}
