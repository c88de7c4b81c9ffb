package models

import (
	"time"

	"github.com/socialpulse/backend/pkg/types"
)

// SocialAccount connects a client to one external platform profile. Tokens
// are stored as TokenVault ciphertext only; disconnection is soft (Active
// flips to false) so historical metrics survive.
type SocialAccount struct {
	ID        string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ClientID  string         `gorm:"column:client_id;type:uuid;not null;uniqueIndex:idx_client_platform_account,priority:1" json:"client_id"`
	Platform  types.Platform `gorm:"column:platform;type:varchar(32);not null;uniqueIndex:idx_client_platform_account,priority:2" json:"platform"`
	AccountID string         `gorm:"column:account_id;type:varchar(128);not null;uniqueIndex:idx_client_platform_account,priority:3" json:"account_id"`

	Username       string `gorm:"column:username;type:varchar(255)" json:"username"`
	ProfilePicture string `gorm:"column:profile_picture_url;type:text" json:"profile_picture"`

	AccessToken    string     `gorm:"column:access_token;type:text" json:"-"`
	RefreshToken   string     `gorm:"column:refresh_token;type:text" json:"-"`
	TokenExpiresAt *time.Time `gorm:"column:token_expires_at" json:"token_expires_at"`

	Active       bool       `gorm:"column:active;not null;default:true" json:"active"`
	LastSyncAt   *time.Time `gorm:"column:last_sync_at" json:"last_sync_at"`
	RefreshFails int        `gorm:"column:refresh_fails;not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SocialAccount) TableName() string { return "social_account" }
