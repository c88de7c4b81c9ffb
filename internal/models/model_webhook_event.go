package models

import (
	"time"

	"gorm.io/datatypes"
)

// WebhookEvent stores billing-provider webhook payloads with deduplication
// metadata. The unique (provider, event_id) index is what makes webhook
// processing idempotent: inserting the row in the same transaction as the
// business mutation turns a replay into a no-op.
type WebhookEvent struct {
	ID        string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Provider  string `gorm:"column:provider;type:varchar(32);not null;uniqueIndex:idx_provider_event,priority:1" json:"provider"`
	EventID   string `gorm:"column:event_id;type:varchar(128);not null;uniqueIndex:idx_provider_event,priority:2" json:"event_id"`
	EventType string `gorm:"column:event_type;type:varchar(64);not null;index" json:"event_type"`

	Payload         datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	ProcessedAt     *time.Time     `gorm:"column:processed_at" json:"processed_at"`
	ProcessingError *string        `gorm:"column:processing_error;type:text" json:"processing_error"`

	CreatedAt time.Time `json:"created_at"`
}

func (WebhookEvent) TableName() string { return "webhook_event" }
