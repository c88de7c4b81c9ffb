package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/queue"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// tombstoneTTL covers the longest a cancelled job can plausibly sit queued.
const tombstoneTTL = 24 * time.Hour

// Job is one unit of ingestion work flowing through the queue.
type Job struct {
	ID         string         `json:"id"`
	AccountID  string         `json:"account_id"`
	Platform   types.Platform `json:"platform"`
	Priority   uint8          `json:"priority"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
	OnDemand   bool           `json:"on_demand"`
}

func tombstoneKey(jobID string) string { return "ingest:cancel:" + jobID }

// EnqueueAccount publishes one job for the account. On-demand jobs jump the
// periodic backlog via AMQP priority.
func (s *Service) EnqueueAccount(ctx context.Context, account *models.SocialAccount, onDemand bool) (string, error) {
	priority := queue.PriorityPeriodic
	if onDemand {
		priority = queue.PriorityOnDemand
	}
	job := Job{
		ID:         tool.GenerateUUIDV7(),
		AccountID:  account.ID,
		Platform:   account.Platform,
		Priority:   priority,
		EnqueuedAt: s.now(),
		OnDemand:   onDemand,
	}
	body, err := json.Marshal(job)
	if err != nil {
		return "", types.WrapFault(types.FaultInternal, "marshal job", err)
	}
	if err := s.broker.Publish(ctx, body, priority); err != nil {
		return "", err
	}
	return job.ID, nil
}

// EnqueueOnDemand queues a priority sync for one of the client's accounts.
func (s *Service) EnqueueOnDemand(ctx context.Context, clientID, accountID string) (string, error) {
	var account models.SocialAccount
	err := s.db.WithContext(ctx).
		Where("id = ? AND client_id = ?", accountID, clientID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", types.NewFault(types.FaultNotFound, "social account not found")
	}
	if err != nil {
		return "", types.WrapFault(types.FaultInternal, "load account", err)
	}
	if !account.Active {
		return "", types.NewFault(types.FaultConflict, "account is disconnected")
	}
	return s.EnqueueAccount(ctx, &account, true)
}

// CancelJob tombstones a queued job. Jobs already started run to completion.
func (s *Service) CancelJob(ctx context.Context, jobID string) error {
	return s.kv.Put(ctx, tombstoneKey(jobID), "1", tombstoneTTL)
}

// EnqueueAllActive publishes one periodic job per active account. The ticker
// in the schedule supervisor calls this every sync cadence.
func (s *Service) EnqueueAllActive(ctx context.Context) (int, error) {
	var accounts []*models.SocialAccount
	err := s.db.WithContext(ctx).
		Where("active = ?", true).
		Find(&accounts).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "load active accounts", err)
	}
	queued := 0
	for _, a := range accounts {
		if _, err := s.EnqueueAccount(ctx, a, false); err != nil {
			logctx.FromCtx(ctx, s.log).Errorw("enqueue account", "account_id", a.ID, "err", err)
			continue
		}
		queued++
	}
	logctx.FromCtx(ctx, s.log).Infow("periodic sync enqueued", "accounts", queued)
	return queued, nil
}
