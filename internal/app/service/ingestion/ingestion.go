package ingestion

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialpulse/backend/internal/app/service/metricstore"
	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/app/service/vault"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/cache"
	"github.com/socialpulse/backend/internal/platform/connector"
	"github.com/socialpulse/backend/internal/platform/queue"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// postsPerSync caps how many recent posts one sync pulls per account.
const postsPerSync = 10

// Service runs the metrics ingestion pipeline: jobs flow through the AMQP
// queue into a fixed worker pool, with per-account serialization in-process.
type Service struct {
	db       *gorm.DB
	store    *metricstore.Store
	vault    *vault.Service
	registry connector.Registry
	broker   *queue.Broker
	kv       cache.Store
	notify   *notifier.Service
	cfg      *cfgpkg.Config
	log      *zap.SugaredLogger
	locks    *keyedMutex
	now      func() time.Time
	sleep    func(context.Context, time.Duration)
}

func NewService(
	db *gorm.DB,
	store *metricstore.Store,
	vaultSvc *vault.Service,
	registry connector.Registry,
	broker *queue.Broker,
	kv cache.Store,
	notify *notifier.Service,
	cfg *cfgpkg.Config,
	log *zap.SugaredLogger,
) *Service {
	return &Service{
		db:       db,
		store:    store,
		vault:    vaultSvc,
		registry: registry,
		broker:   broker,
		kv:       kv,
		notify:   notify,
		cfg:      cfg,
		log:      log,
		locks:    newKeyedMutex(),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// SyncProfile pulls the account's channel-level snapshot and writes today's
// DailyMetrics sample, folding in the post-window engagement rate.
func (s *Service) SyncProfile(ctx context.Context, account *models.SocialAccount) (*models.DailyMetrics, error) {
	conn, err := s.registry.For(account.Platform)
	if err != nil {
		return nil, err
	}
	stats, err := conn.FetchProfile(ctx, account)
	if err != nil {
		return nil, err
	}
	engagement, err := s.store.EngagementWindow(ctx, account.ID, s.now())
	if err != nil {
		return nil, err
	}
	return s.store.UpsertDaily(ctx, account.ID, s.now(), stats, engagement)
}

// SyncRecentPosts pulls the newest posts and upserts their metrics, returning
// how many were processed. YouTube posts also land in the content feed.
func (s *Service) SyncRecentPosts(ctx context.Context, account *models.SocialAccount, limit int) (int, error) {
	conn, err := s.registry.For(account.Platform)
	if err != nil {
		return 0, err
	}
	posts, err := conn.FetchRecentPosts(ctx, account, limit)
	if err != nil {
		return 0, err
	}
	for _, post := range posts {
		row, err := s.store.UpsertPost(ctx, account.ID, post)
		if err != nil {
			return 0, err
		}
		if account.Platform == types.PlatformYouTube {
			if err := s.bridgeContentPost(ctx, account, row); err != nil {
				return 0, err
			}
		}
	}
	return len(posts), nil
}

// bridgeContentPost mirrors a synced YouTube video into the client's content
// feed, keyed (client, platform, platform_post_id).
func (s *Service) bridgeContentPost(ctx context.Context, account *models.SocialAccount, post *models.PostMetrics) error {
	row := &models.ContentPost{
		ID:             tool.GenerateUUIDV7(),
		ClientID:       account.ClientID,
		Platform:       types.PlatformYouTube,
		PlatformPostID: post.PlatformPostID,
		Status:         types.ContentPostStatusPosted,
		Title:          post.Caption,
		URL:            "https://www.youtube.com/watch?v=" + post.PlatformPostID,
		Likes:          post.Likes,
		Comments:       post.Comments,
		Views:          post.Reach,
		EngagementRate: post.EngagementRate,
		PostedAt:       post.PostedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "platform"}, {Name: "platform_post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "likes", "comments", "views", "engagement_rate", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return types.WrapFault(types.FaultInternal, "bridge content post", err)
	}
	return nil
}

// DisconnectAccount soft-disconnects: the account stops syncing but its
// historical metrics stay.
func (s *Service) DisconnectAccount(ctx context.Context, clientID, accountID string) error {
	res := s.db.WithContext(ctx).Model(&models.SocialAccount{}).
		Where("id = ? AND client_id = ?", accountID, clientID).
		Update("active", false)
	if res.Error != nil {
		return types.WrapFault(types.FaultInternal, "disconnect account", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewFault(types.FaultNotFound, "social account not found")
	}
	logctx.FromCtx(ctx, s.log).Infow("account disconnected", "account_id", accountID)
	return nil
}

// AccountStatus returns the account with its most recent sync attempts.
func (s *Service) AccountStatus(ctx context.Context, clientID, accountID string) (*models.SocialAccount, []*models.SyncLog, error) {
	var account models.SocialAccount
	err := s.db.WithContext(ctx).
		Where("id = ? AND client_id = ?", accountID, clientID).
		First(&account).Error
	if err != nil {
		return nil, nil, types.NewFault(types.FaultNotFound, "social account not found")
	}
	var logs []*models.SyncLog
	err = s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("started_at DESC").
		Limit(10).
		Find(&logs).Error
	if err != nil {
		return nil, nil, types.WrapFault(types.FaultInternal, "load sync logs", err)
	}
	return &account, logs, nil
}

// ListAccounts returns the client's connected accounts, active first.
func (s *Service) ListAccounts(ctx context.Context, clientID string) ([]*models.SocialAccount, error) {
	var accounts []*models.SocialAccount
	err := s.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("active DESC, created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "list accounts", err)
	}
	return accounts, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(StartWorkers),
)
