package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetrics is one time-series sample per (account, date). Date is stored
// as YYYY-MM-DD to make the uniqueness key calendar-based rather than
// timestamp-based.
type DailyMetrics struct {
	ID        string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AccountID string `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_account_date,priority:1" json:"account_id"`
	Date      string `gorm:"column:date;type:varchar(10);not null;uniqueIndex:idx_account_date,priority:2" json:"date"`

	Followers      int64 `gorm:"column:followers;not null;default:0" json:"followers"`
	Following      int64 `gorm:"column:following;not null;default:0" json:"following"`
	Posts          int64 `gorm:"column:posts;not null;default:0" json:"posts"`
	Reach          int64 `gorm:"column:reach;not null;default:0" json:"reach"`
	Impressions    int64 `gorm:"column:impressions;not null;default:0" json:"impressions"`
	ProfileViews   int64 `gorm:"column:profile_views;not null;default:0" json:"profile_views"`
	WebsiteClicks  int64 `gorm:"column:website_clicks;not null;default:0" json:"website_clicks"`
	// DailyGrowth is followers(today) - followers(yesterday), 0 when no
	// previous-day row exists.
	DailyGrowth    int64           `gorm:"column:daily_growth;not null;default:0" json:"daily_growth"`
	EngagementRate decimal.Decimal `gorm:"column:engagement_rate;type:numeric(10,2);not null;default:0" json:"engagement_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DailyMetrics) TableName() string { return "daily_metrics" }
