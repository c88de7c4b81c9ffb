package models

import (
	"time"

	"github.com/socialpulse/backend/pkg/types"
)

// User is an identity record. Users are never deleted while a Client,
// Notification or Task still references them.
type User struct {
	ID           string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email        string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Name         string         `gorm:"column:name;type:varchar(255)" json:"name"`
	Role         types.UserRole `gorm:"column:role;type:varchar(32);not null" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (User) TableName() string { return "app_user" }
