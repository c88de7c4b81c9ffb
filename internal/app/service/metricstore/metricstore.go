package metricstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/connector"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// engagementWindowDays and engagementWindowPosts bound the per-account
// engagement-rate window: the most recent posts within the last 30 days,
// capped at 10.
const (
	engagementWindowDays  = 30
	engagementWindowPosts = 10
)

// Store owns the time-series tables. Writes are upserts keyed by calendar
// date or platform post id, so re-running a sync is harmless.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertDaily writes the account's sample for the calendar date of at,
// deriving daily growth from the previous day's row when one exists.
func (s *Store) UpsertDaily(ctx context.Context, accountID string, at time.Time, stats *connector.ProfileStats, engagementRate decimal.Decimal) (*models.DailyMetrics, error) {
	date := at.UTC().Format(time.DateOnly)
	yesterday := at.UTC().AddDate(0, 0, -1).Format(time.DateOnly)

	var growth int64
	var prev models.DailyMetrics
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND date = ?", accountID, yesterday).
		First(&prev).Error
	switch {
	case err == nil:
		growth = stats.Followers - prev.Followers
	case errors.Is(err, gorm.ErrRecordNotFound):
		growth = 0
	default:
		return nil, types.WrapFault(types.FaultInternal, "load previous day", err)
	}

	row := &models.DailyMetrics{
		ID:             tool.GenerateUUIDV7(),
		AccountID:      accountID,
		Date:           date,
		Followers:      stats.Followers,
		Following:      stats.Following,
		Posts:          stats.Posts,
		Reach:          stats.Reach,
		Impressions:    stats.Impressions,
		ProfileViews:   stats.ProfileViews,
		WebsiteClicks:  stats.WebsiteClicks,
		DailyGrowth:    growth,
		EngagementRate: types.Money(engagementRate),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"followers", "following", "posts", "reach", "impressions",
			"profile_views", "website_clicks", "daily_growth",
			"engagement_rate", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "upsert daily metrics", err)
	}
	return row, nil
}

// UpsertPost writes one per-post reading, recomputing the post's own
// engagement rate from its counters.
func (s *Store) UpsertPost(ctx context.Context, accountID string, post *connector.PostStats) (*models.PostMetrics, error) {
	row := &models.PostMetrics{
		ID:             tool.GenerateUUIDV7(),
		AccountID:      accountID,
		PlatformPostID: post.PlatformPostID,
		Caption:        post.Caption,
		MediaType:      post.MediaType,
		PostedAt:       post.PostedAt,
		Likes:          post.Likes,
		Comments:       post.Comments,
		Shares:         post.Shares,
		Saves:          post.Saves,
		Reach:          post.Reach,
		Impressions:    post.Impressions,
		EngagementRate: rate(post.Likes+post.Comments, post.Reach),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "platform_post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"caption", "media_type", "posted_at", "likes", "comments",
			"shares", "saves", "reach", "impressions", "engagement_rate",
			"updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "upsert post metrics", err)
	}
	return row, nil
}

// EngagementWindow computes the account-level engagement rate over the most
// recent posts: sum of likes and comments over sum of reach, in percent.
// Zero when the window is empty or reach sums to zero.
func (s *Store) EngagementWindow(ctx context.Context, accountID string, now time.Time) (decimal.Decimal, error) {
	cutoff := now.UTC().AddDate(0, 0, -engagementWindowDays)
	var posts []*models.PostMetrics
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND posted_at >= ?", accountID, cutoff).
		Order("posted_at DESC").
		Limit(engagementWindowPosts).
		Find(&posts).Error
	if err != nil {
		return decimal.Zero, types.WrapFault(types.FaultInternal, "load engagement window", err)
	}

	var interactions, reach int64
	for _, p := range posts {
		interactions += p.Likes + p.Comments
		reach += p.Reach
	}
	return rate(interactions, reach), nil
}

// DailyByDate returns the account's sample for one calendar date, nil when
// none exists.
func (s *Store) DailyByDate(ctx context.Context, accountID string, date string) (*models.DailyMetrics, error) {
	var row models.DailyMetrics
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND date = ?", accountID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load daily metrics", err)
	}
	return &row, nil
}

// RangeDaily returns the account's samples with from <= date <= to,
// ascending.
func (s *Store) RangeDaily(ctx context.Context, accountID string, from, to string) ([]*models.DailyMetrics, error) {
	var rows []*models.DailyMetrics
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND date >= ? AND date <= ?", accountID, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load daily range", err)
	}
	return rows, nil
}

// LatestInMonth returns the account's last sample whose date falls inside
// the given YYYY-MM month, nil when the month is empty.
func (s *Store) LatestInMonth(ctx context.Context, accountID string, month string) (*models.DailyMetrics, error) {
	var row models.DailyMetrics
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND date LIKE ?", accountID, month+"-%").
		Order("date DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load latest in month", err)
	}
	return &row, nil
}

// LatestPerAccount returns the most recent sample for each given account.
// Accounts with no samples yet are simply absent from the result.
func (s *Store) LatestPerAccount(ctx context.Context, accountIDs []string) (map[string]*models.DailyMetrics, error) {
	out := make(map[string]*models.DailyMetrics, len(accountIDs))
	for _, id := range accountIDs {
		var row models.DailyMetrics
		err := s.db.WithContext(ctx).
			Where("account_id = ?", id).
			Order("date DESC").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, types.WrapFault(types.FaultInternal, "load latest metrics", err)
		}
		out[id] = &row
	}
	return out, nil
}

// RecentPosts returns the account's newest post rows, capped at limit.
func (s *Store) RecentPosts(ctx context.Context, accountID string, limit int) ([]*models.PostMetrics, error) {
	var rows []*models.PostMetrics
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("posted_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load recent posts", err)
	}
	return rows, nil
}

// rate is interactions over denominator in percent, banker's-rounded to two
// decimal places. Zero denominator yields zero, never an error.
func rate(interactions, denominator int64) decimal.Decimal {
	if denominator == 0 {
		return decimal.Zero.RoundBank(2)
	}
	return decimal.NewFromInt(interactions).
		Div(decimal.NewFromInt(denominator)).
		Mul(decimal.NewFromInt(100)).
		RoundBank(2)
}

var Module = fx.Options(
	fx.Provide(NewStore),
)
