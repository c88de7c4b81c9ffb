package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceSummary is the month-granularity roll-up of DailyMetrics per
// client, keyed by the first day of the month (YYYY-MM-DD).
type PerformanceSummary struct {
	ID       string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID string `gorm:"column:client_id;type:uuid;not null;uniqueIndex:idx_client_month,priority:1" json:"client_id"`
	Month    string `gorm:"column:month;type:varchar(10);not null;uniqueIndex:idx_client_month,priority:2" json:"month"`

	Followers     int64 `gorm:"column:followers;not null;default:0" json:"followers"`
	Reach         int64 `gorm:"column:reach;not null;default:0" json:"reach"`
	Impressions   int64 `gorm:"column:impressions;not null;default:0" json:"impressions"`
	ProfileViews  int64 `gorm:"column:profile_views;not null;default:0" json:"profile_views"`
	WebsiteClicks int64 `gorm:"column:website_clicks;not null;default:0" json:"website_clicks"`

	EngagementRate decimal.Decimal `gorm:"column:engagement_rate;type:numeric(10,2);not null;default:0" json:"engagement_rate"`
	// GrowthRate is month-over-month follower growth in percent, 0 when no
	// usable previous summary exists.
	GrowthRate decimal.Decimal `gorm:"column:growth_rate;type:numeric(10,2);not null;default:0" json:"growth_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PerformanceSummary) TableName() string { return "performance_summary" }
