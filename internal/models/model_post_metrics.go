package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/pkg/types"
)

// PostMetrics is one row per platform post, upserted by
// (account, platform_post_id).
type PostMetrics struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AccountID      string `gorm:"column:account_id;type:uuid;not null;uniqueIndex:idx_account_post,priority:1" json:"account_id"`
	PlatformPostID string `gorm:"column:platform_post_id;type:varchar(128);not null;uniqueIndex:idx_account_post,priority:2" json:"platform_post_id"`

	Caption   string          `gorm:"column:caption;type:text" json:"caption"`
	MediaType types.MediaType `gorm:"column:media_type;type:varchar(32)" json:"media_type"`
	PostedAt  time.Time       `gorm:"column:posted_at;index" json:"posted_at"`

	Likes          int64           `gorm:"column:likes;not null;default:0" json:"likes"`
	Comments       int64           `gorm:"column:comments;not null;default:0" json:"comments"`
	Shares         int64           `gorm:"column:shares;not null;default:0" json:"shares"`
	Saves          int64           `gorm:"column:saves;not null;default:0" json:"saves"`
	Reach          int64           `gorm:"column:reach;not null;default:0" json:"reach"`
	Impressions    int64           `gorm:"column:impressions;not null;default:0" json:"impressions"`
	EngagementRate decimal.Decimal `gorm:"column:engagement_rate;type:numeric(10,2);not null;default:0" json:"engagement_rate"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PostMetrics) TableName() string { return "post_metrics" }
