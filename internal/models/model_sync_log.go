package models

import (
	"time"

	"github.com/socialpulse/backend/pkg/types"
)

// SyncLog records one ingestion attempt per account. Use case:
// troubleshooting and the social-account status endpoint.
type SyncLog struct {
	ID        string          `gorm:"column:id;type:uuid;primary_key" json:"id"`
	AccountID string          `gorm:"column:account_id;type:uuid;not null;index:idx_account_started,priority:1" json:"account_id"`
	Kind      types.SyncKind  `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	State     types.SyncState `gorm:"column:state;type:varchar(32);not null" json:"state"`

	RecordsProcessed int     `gorm:"column:records_processed;not null;default:0" json:"records_processed"`
	ErrorMessage     *string `gorm:"column:error_message;type:text" json:"error_message"`

	StartedAt   time.Time  `gorm:"column:started_at;not null;index:idx_account_started,priority:2,sort:desc" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`
}

func (SyncLog) TableName() string { return "sync_log" }
