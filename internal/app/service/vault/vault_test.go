package vault

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/connector"
	"github.com/socialpulse/backend/internal/platform/db"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

type recordingNotifier struct {
	kinds    []types.NotificationKind
	payloads []map[string]string
}

func (r *recordingNotifier) NotifyAdmins(_ context.Context, kind types.NotificationKind, payload map[string]string) {
	r.kinds = append(r.kinds, kind)
	r.payloads = append(r.payloads, payload)
}

type stubConnector struct {
	platform types.Platform
	token    *connector.RefreshedToken
	err      error
}

func (c *stubConnector) Platform() types.Platform { return c.platform }

func (c *stubConnector) FetchProfile(context.Context, *models.SocialAccount) (*connector.ProfileStats, error) {
	return nil, types.NewFault(types.FaultInternal, "not implemented")
}

func (c *stubConnector) FetchRecentPosts(context.Context, *models.SocialAccount, int) ([]*connector.PostStats, error) {
	return nil, types.NewFault(types.FaultInternal, "not implemented")
}

func (c *stubConnector) RefreshToken(context.Context, *models.SocialAccount) (*connector.RefreshedToken, error) {
	return c.token, c.err
}

func newTestVault(t *testing.T, gdb *gorm.DB, admins AdminNotifier) *Service {
	t.Helper()
	cfg := &cfgpkg.Config{TokenEncryptionKey: "test-key"}
	s, err := NewService(cfg, gdb, admins, zap.NewNop().Sugar())
	require.NoError(t, err)
	return s
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	s := newTestVault(t, newTestDB(t), &recordingNotifier{})

	ct := s.Encrypt("IGQVJ-secret-token")
	require.True(t, s.IsCiphertext(ct))
	require.NotContains(t, ct, "secret")

	plain, err := s.Decrypt(ct)
	require.NoError(t, err)
	require.Equal(t, "IGQVJ-secret-token", plain)
}

func TestDecryptRejectsForeignValues(t *testing.T) {
	s := newTestVault(t, newTestDB(t), &recordingNotifier{})

	_, err := s.Decrypt("plain-token")
	require.Error(t, err)

	_, err = s.Decrypt("enc:v1:not-base64!!!")
	require.Error(t, err)
}

func TestEncryptIfNeededIsIdentityOnCiphertext(t *testing.T) {
	s := newTestVault(t, newTestDB(t), &recordingNotifier{})

	ct := s.EncryptIfNeeded("token")
	require.True(t, s.IsCiphertext(ct))
	require.Equal(t, ct, s.EncryptIfNeeded(ct))
	require.Empty(t, s.EncryptIfNeeded(""))
}

func TestNeedsRefresh(t *testing.T) {
	s := newTestVault(t, newTestDB(t), &recordingNotifier{})
	now := time.Now()

	require.False(t, s.NeedsRefresh(&models.SocialAccount{}, now))

	soon := now.Add(2 * time.Minute)
	require.True(t, s.NeedsRefresh(&models.SocialAccount{TokenExpiresAt: &soon}, now))

	later := now.Add(time.Hour)
	require.False(t, s.NeedsRefresh(&models.SocialAccount{TokenExpiresAt: &later}, now))
}

func seedAccount(t *testing.T, gdb *gorm.DB, fails int) *models.SocialAccount {
	t.Helper()
	account := &models.SocialAccount{
		ID:           "acc-1",
		ClientID:     "client-1",
		Platform:     types.PlatformInstagram,
		AccountID:    "17841400000000000",
		Username:     "agency.demo",
		Active:       true,
		RefreshFails: fails,
	}
	require.NoError(t, gdb.Create(account).Error)
	return account
}

func TestRefreshStoresCiphertextAndResetsFails(t *testing.T) {
	gdb := newTestDB(t)
	s := newTestVault(t, gdb, &recordingNotifier{})
	account := seedAccount(t, gdb, 2)

	expiry := time.Now().Add(30 * 24 * time.Hour).UTC()
	s.SetRegistry(connector.Registry{
		types.PlatformInstagram: &stubConnector{
			platform: types.PlatformInstagram,
			token:    &connector.RefreshedToken{AccessToken: "fresh-token", ExpiresAt: expiry},
		},
	})

	require.NoError(t, s.Refresh(context.Background(), account))

	var stored models.SocialAccount
	require.NoError(t, gdb.First(&stored, "id = ?", account.ID).Error)
	require.True(t, s.IsCiphertext(stored.AccessToken))
	require.Zero(t, stored.RefreshFails)

	plain, err := s.Decrypt(stored.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "fresh-token", plain)
}

func TestRefreshThirdPermanentFailureDeactivates(t *testing.T) {
	gdb := newTestDB(t)
	admins := &recordingNotifier{}
	s := newTestVault(t, gdb, admins)
	account := seedAccount(t, gdb, 0)

	s.SetRegistry(connector.Registry{
		types.PlatformInstagram: &stubConnector{
			platform: types.PlatformInstagram,
			err:      types.NewFault(types.FaultUpstreamPermanent, "token revoked by user"),
		},
	})

	for i := 0; i < 3; i++ {
		require.Error(t, s.Refresh(context.Background(), account))
	}

	var stored models.SocialAccount
	require.NoError(t, gdb.First(&stored, "id = ?", account.ID).Error)
	require.False(t, stored.Active)
	require.Equal(t, 3, stored.RefreshFails)

	require.Len(t, admins.kinds, 1)
	require.Equal(t, types.NotificationSyncFailed, admins.kinds[0])
	require.Equal(t, "instagram", admins.payloads[0]["platform"])
}

func TestRefreshTransientFailureDoesNotCountStrike(t *testing.T) {
	gdb := newTestDB(t)
	admins := &recordingNotifier{}
	s := newTestVault(t, gdb, admins)
	account := seedAccount(t, gdb, 0)

	s.SetRegistry(connector.Registry{
		types.PlatformInstagram: &stubConnector{
			platform: types.PlatformInstagram,
			err:      types.NewFault(types.FaultUpstreamTransient, "rate limited"),
		},
	})

	require.Error(t, s.Refresh(context.Background(), account))

	var stored models.SocialAccount
	require.NoError(t, gdb.First(&stored, "id = ?", account.ID).Error)
	require.True(t, stored.Active)
	require.Zero(t, stored.RefreshFails)
	require.Empty(t, admins.kinds)
}

func TestRefreshWithoutRegistryFails(t *testing.T) {
	s := newTestVault(t, newTestDB(t), &recordingNotifier{})
	err := s.Refresh(context.Background(), &models.SocialAccount{Platform: types.PlatformInstagram})
	require.Error(t, err)
	require.Equal(t, types.FaultInternal, types.KindOf(err))
}
