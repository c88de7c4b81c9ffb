package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/socialpulse/backend/pkg/types"
)

// ContentPost is the derived view bridged from PostMetrics after a YouTube
// sync; idempotent by (client, platform, platform_post_id).
type ContentPost struct {
	ID             string                  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID       string                  `gorm:"column:client_id;type:uuid;not null;uniqueIndex:idx_client_platform_post,priority:1" json:"client_id"`
	Platform       types.Platform          `gorm:"column:platform;type:varchar(32);not null;uniqueIndex:idx_client_platform_post,priority:2" json:"platform"`
	PlatformPostID string                  `gorm:"column:platform_post_id;type:varchar(128);not null;uniqueIndex:idx_client_platform_post,priority:3" json:"platform_post_id"`
	Status         types.ContentPostStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`

	Title string `gorm:"column:title;type:text" json:"title"`
	URL   string `gorm:"column:url;type:text" json:"url"`

	Likes          int64           `gorm:"column:likes;not null;default:0" json:"likes"`
	Comments       int64           `gorm:"column:comments;not null;default:0" json:"comments"`
	Views          int64           `gorm:"column:views;not null;default:0" json:"views"`
	EngagementRate decimal.Decimal `gorm:"column:engagement_rate;type:numeric(10,2);not null;default:0" json:"engagement_rate"`

	PostedAt  time.Time `gorm:"column:posted_at" json:"posted_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ContentPost) TableName() string { return "content_post" }
