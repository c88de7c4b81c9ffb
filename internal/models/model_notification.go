package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/socialpulse/backend/pkg/types"
)

// Notification is the in-app record half of a dispatch; the email half is
// sent independently and not persisted.
type Notification struct {
	ID      string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID  string                 `gorm:"column:user_id;type:uuid;not null;index:idx_user_created,priority:1" json:"user_id"`
	Kind    types.NotificationKind `gorm:"column:kind;type:varchar(64);not null" json:"kind"`
	Title   string                 `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Message string                 `gorm:"column:message;type:text" json:"message"`
	// Payload keeps the template inputs for audit.
	Payload   datatypes.JSONMap `gorm:"column:payload;type:jsonb;default:'{}'" json:"payload"`
	Read      bool              `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt time.Time         `gorm:"index:idx_user_created,priority:2,sort:desc" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
