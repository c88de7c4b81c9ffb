package insights

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialpulse/backend/internal/app/service/metricstore"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// Stats is the cross-account roll-up shape shared by the monthly aggregate
// and the realtime endpoint.
type Stats struct {
	Followers      int64           `json:"followers"`
	Reach          int64           `json:"reach"`
	Impressions    int64           `json:"impressions"`
	ProfileViews   int64           `json:"profile_views"`
	WebsiteClicks  int64           `json:"website_clicks"`
	EngagementRate decimal.Decimal `json:"engagement_rate"`
	Accounts       int             `json:"accounts"`
}

// Service rolls per-account time series up to client level.
type Service struct {
	db    *gorm.DB
	store *metricstore.Store
	log   *zap.SugaredLogger
}

func NewService(db *gorm.DB, store *metricstore.Store, log *zap.SugaredLogger) *Service {
	return &Service{db: db, store: store, log: log}
}

// Aggregate rolls the client's month (YYYY-MM) into a PerformanceSummary.
// Accounts without samples in the month are skipped; when no account has any,
// nothing is written and nil is returned.
func (s *Service) Aggregate(ctx context.Context, clientID, month string) (*models.PerformanceSummary, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, types.Faultf(types.FaultValidation, "month must be YYYY-MM, got %q", month)
	}

	accounts, err := s.activeAccounts(ctx, clientID)
	if err != nil {
		return nil, err
	}

	stats := Stats{}
	engagementSum := decimal.Zero
	for _, a := range accounts {
		row, err := s.store.LatestInMonth(ctx, a.ID, month)
		if err != nil {
			return nil, err
		}
		if row == nil {
			continue
		}
		stats.Followers += row.Followers
		stats.Reach += row.Reach
		stats.Impressions += row.Impressions
		stats.ProfileViews += row.ProfileViews
		stats.WebsiteClicks += row.WebsiteClicks
		engagementSum = engagementSum.Add(row.EngagementRate)
		stats.Accounts++
	}
	if stats.Accounts == 0 {
		logctx.FromCtx(ctx, s.log).Infow("no samples to aggregate", "client_id", clientID, "month", month)
		return nil, nil
	}
	stats.EngagementRate = engagementSum.Div(decimal.NewFromInt(int64(stats.Accounts))).RoundBank(2)

	growth, err := s.growthVsPreviousMonth(ctx, clientID, month, stats.Followers)
	if err != nil {
		return nil, err
	}

	summary := &models.PerformanceSummary{
		ID:             tool.GenerateUUIDV7(),
		ClientID:       clientID,
		Month:          month + "-01",
		Followers:      stats.Followers,
		Reach:          stats.Reach,
		Impressions:    stats.Impressions,
		ProfileViews:   stats.ProfileViews,
		WebsiteClicks:  stats.WebsiteClicks,
		EngagementRate: stats.EngagementRate,
		GrowthRate:     growth,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"followers", "reach", "impressions", "profile_views",
			"website_clicks", "engagement_rate", "growth_rate", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "upsert performance summary", err)
	}
	return summary, nil
}

// growthVsPreviousMonth is month-over-month follower growth in percent
// against the stored previous summary, zero when that summary is missing or
// had no followers.
func (s *Service) growthVsPreviousMonth(ctx context.Context, clientID, month string, followers int64) (decimal.Decimal, error) {
	t, _ := time.Parse("2006-01", month)
	prevKey := t.AddDate(0, -1, 0).Format("2006-01") + "-01"

	var prev models.PerformanceSummary
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND month = ?", clientID, prevKey).
		First(&prev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, types.WrapFault(types.FaultInternal, "load previous summary", err)
	}
	if prev.Followers <= 0 {
		return decimal.Zero, nil
	}
	return decimal.NewFromInt(followers - prev.Followers).
		Div(decimal.NewFromInt(prev.Followers)).
		Mul(decimal.NewFromInt(100)).
		RoundBank(2), nil
}

// RealtimeStats is the same roll-up over each account's newest sample,
// whatever its date. Nothing is persisted.
func (s *Service) RealtimeStats(ctx context.Context, clientID string) (*Stats, error) {
	accounts, err := s.activeAccounts(ctx, clientID)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(accounts, func(a *models.SocialAccount, _ int) string { return a.ID })
	latest, err := s.store.LatestPerAccount(ctx, ids)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	engagementSum := decimal.Zero
	for _, row := range latest {
		stats.Followers += row.Followers
		stats.Reach += row.Reach
		stats.Impressions += row.Impressions
		stats.ProfileViews += row.ProfileViews
		stats.WebsiteClicks += row.WebsiteClicks
		engagementSum = engagementSum.Add(row.EngagementRate)
		stats.Accounts++
	}
	if stats.Accounts > 0 {
		stats.EngagementRate = engagementSum.Div(decimal.NewFromInt(int64(stats.Accounts))).RoundBank(2)
	} else {
		stats.EngagementRate = decimal.Zero.RoundBank(2)
	}
	return stats, nil
}

func (s *Service) activeAccounts(ctx context.Context, clientID string) ([]*models.SocialAccount, error) {
	var accounts []*models.SocialAccount
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND active = ?", clientID, true).
		Find(&accounts).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load client accounts", err)
	}
	return accounts, nil
}

var Module = fx.Options(
	fx.Provide(NewService),
)
