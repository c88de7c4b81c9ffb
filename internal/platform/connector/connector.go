package connector

import (
	"context"
	"time"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/pkg/types"
)

// TokenCodec decrypts stored platform tokens. Implemented by the TokenVault;
// declared here so connectors do not depend on the vault package.
type TokenCodec interface {
	Decrypt(ciphertext string) (string, error)
}

// ProfileStats is a normalized channel-level snapshot read from a platform.
type ProfileStats struct {
	Followers     int64
	Following     int64
	Posts         int64
	Reach         int64
	Impressions   int64
	ProfileViews  int64
	WebsiteClicks int64
}

// PostStats is one normalized per-post reading.
type PostStats struct {
	PlatformPostID string
	Caption        string
	MediaType      types.MediaType
	PostedAt       time.Time
	Likes          int64
	Comments       int64
	Shares         int64
	Saves          int64
	Reach          int64
	Impressions    int64
}

// RefreshedToken is the result of a platform token exchange.
type RefreshedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Connector is the capability a platform variant provides. Implementations
// are pure API clients; persistence happens in the ingestion service.
type Connector interface {
	Platform() types.Platform
	FetchProfile(ctx context.Context, account *models.SocialAccount) (*ProfileStats, error)
	FetchRecentPosts(ctx context.Context, account *models.SocialAccount, limit int) ([]*PostStats, error)
	RefreshToken(ctx context.Context, account *models.SocialAccount) (*RefreshedToken, error)
}

// Registry maps a platform to its connector; the scheduler and the vault
// dispatch over it.
type Registry map[types.Platform]Connector

func (r Registry) For(p types.Platform) (Connector, error) {
	c, ok := r[p]
	if !ok {
		return nil, types.Faultf(types.FaultValidation, "unsupported platform: %s", p)
	}
	return c, nil
}
