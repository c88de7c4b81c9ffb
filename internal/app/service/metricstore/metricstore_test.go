package metricstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialpulse/backend/internal/platform/connector"
	"github.com/socialpulse/backend/internal/platform/db"
	"github.com/socialpulse/backend/pkg/types"
)

func newTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return NewStore(gdb), gdb
}

func TestUpsertDailyComputesGrowthFromPreviousDay(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err := store.UpsertDaily(ctx, "acc-1", day1, &connector.ProfileStats{Followers: 1000}, decimal.Zero)
	require.NoError(t, err)

	row, err := store.UpsertDaily(ctx, "acc-1", day1.AddDate(0, 0, 1), &connector.ProfileStats{Followers: 1040}, decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, int64(40), row.DailyGrowth)
}

func TestUpsertDailyFirstSampleHasZeroGrowth(t *testing.T) {
	store, _ := newTestStore(t)

	row, err := store.UpsertDaily(context.Background(), "acc-1",
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		&connector.ProfileStats{Followers: 500}, decimal.Zero)
	require.NoError(t, err)
	require.Zero(t, row.DailyGrowth)
}

func TestUpsertDailyIsIdempotentPerDate(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := store.UpsertDaily(ctx, "acc-1", at, &connector.ProfileStats{Followers: 100}, decimal.Zero)
	require.NoError(t, err)
	// Second sync of the same day overwrites instead of duplicating.
	_, err = store.UpsertDaily(ctx, "acc-1", at.Add(6*time.Hour), &connector.ProfileStats{Followers: 120}, decimal.Zero)
	require.NoError(t, err)

	rows, err := store.RangeDaily(ctx, "acc-1", "2026-03-10", "2026-03-10")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(120), rows[0].Followers)
}

func TestUpsertPostIdempotentByPlatformPostID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	posted := time.Date(2026, 3, 9, 18, 30, 0, 0, time.UTC)

	first, err := store.UpsertPost(ctx, "acc-1", &connector.PostStats{
		PlatformPostID: "17900000001",
		MediaType:      types.MediaTypeImage,
		PostedAt:       posted,
		Likes:          40,
		Comments:       10,
		Reach:          1000,
	})
	require.NoError(t, err)
	require.True(t, first.EngagementRate.Equal(decimal.NewFromInt(5)))

	_, err = store.UpsertPost(ctx, "acc-1", &connector.PostStats{
		PlatformPostID: "17900000001",
		MediaType:      types.MediaTypeImage,
		PostedAt:       posted,
		Likes:          60,
		Comments:       20,
		Reach:          1000,
	})
	require.NoError(t, err)

	rows, err := store.RecentPosts(ctx, "acc-1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(60), rows[0].Likes)
}

func TestEngagementWindowAveragesRecentPosts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// Two in-window posts: (50+10+30+10) / (1000+1000) * 100 = 5%.
	for i, p := range []*connector.PostStats{
		{PlatformPostID: "p1", Likes: 50, Comments: 10, Reach: 1000},
		{PlatformPostID: "p2", Likes: 30, Comments: 10, Reach: 1000},
	} {
		p.PostedAt = now.AddDate(0, 0, -(i + 1))
		_, err := store.UpsertPost(ctx, "acc-1", p)
		require.NoError(t, err)
	}
	// Outside the 30-day window; must not count.
	_, err := store.UpsertPost(ctx, "acc-1", &connector.PostStats{
		PlatformPostID: "old", Likes: 100000, Reach: 1, PostedAt: now.AddDate(0, 0, -45),
	})
	require.NoError(t, err)

	rateNow, err := store.EngagementWindow(ctx, "acc-1", now)
	require.NoError(t, err)
	require.True(t, rateNow.Equal(decimal.NewFromInt(5)), rateNow.String())
}

func TestEngagementWindowEmptyIsZero(t *testing.T) {
	store, _ := newTestStore(t)

	rateNow, err := store.EngagementWindow(context.Background(), "acc-none", time.Now())
	require.NoError(t, err)
	require.True(t, rateNow.IsZero())
}

func TestLatestInMonth(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, day := range []int{3, 17, 28} {
		_, err := store.UpsertDaily(ctx, "acc-1",
			time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC),
			&connector.ProfileStats{Followers: int64(day)}, decimal.Zero)
		require.NoError(t, err)
	}

	row, err := store.LatestInMonth(ctx, "acc-1", "2026-02")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Equal(t, "2026-02-28", row.Date)

	none, err := store.LatestInMonth(ctx, "acc-1", "2026-01")
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestDailyByDateMissingIsNil(t *testing.T) {
	store, _ := newTestStore(t)

	row, err := store.DailyByDate(context.Background(), "acc-1", "2026-03-10")
	require.NoError(t, err)
	require.Nil(t, row)
}

func TestLatestPerAccountSkipsEmptyAccounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertDaily(ctx, "acc-1",
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		&connector.ProfileStats{Followers: 10}, decimal.Zero)
	require.NoError(t, err)

	latest, err := store.LatestPerAccount(ctx, []string{"acc-1", "acc-2"})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Contains(t, latest, "acc-1")
}

func TestRateZeroDenominator(t *testing.T) {
	require.True(t, rate(100, 0).IsZero())
	require.True(t, rate(5, 200).Equal(decimal.NewFromFloat(2.5)))
}
