package ingestion

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialpulse/backend/internal/app/service/metricstore"
	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/app/service/vault"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/connector"
	"github.com/socialpulse/backend/internal/platform/db"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Put(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = "1"
	return true, nil
}

type capturingSender struct {
	mu       sync.Mutex
	subjects []string
}

func (c *capturingSender) Send(_ context.Context, _, subject, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

type stubConnector struct {
	platform types.Platform

	profile    *connector.ProfileStats
	profileErr error
	// profileErrs pops one error per FetchProfile call; nil entries succeed.
	profileErrs []error

	posts    []*connector.PostStats
	postsErr error

	token      *connector.RefreshedToken
	refreshErr error

	mu           sync.Mutex
	profileCalls int
	refreshCalls int
}

func (c *stubConnector) Platform() types.Platform { return c.platform }

func (c *stubConnector) FetchProfile(context.Context, *models.SocialAccount) (*connector.ProfileStats, error) {
	c.mu.Lock()
	call := c.profileCalls
	c.profileCalls++
	c.mu.Unlock()

	if call < len(c.profileErrs) {
		if err := c.profileErrs[call]; err != nil {
			return nil, err
		}
	} else if c.profileErr != nil {
		return nil, c.profileErr
	}
	if c.profile != nil {
		return c.profile, nil
	}
	return &connector.ProfileStats{Followers: 100}, nil
}

func (c *stubConnector) FetchRecentPosts(context.Context, *models.SocialAccount, int) ([]*connector.PostStats, error) {
	return c.posts, c.postsErr
}

func (c *stubConnector) RefreshToken(context.Context, *models.SocialAccount) (*connector.RefreshedToken, error) {
	c.mu.Lock()
	c.refreshCalls++
	c.mu.Unlock()
	return c.token, c.refreshErr
}

type harness struct {
	svc    *Service
	gdb    *gorm.DB
	kv     *memKV
	sender *capturingSender
	conn   *stubConnector
	vault  *vault.Service
}

func newHarness(t *testing.T, platform types.Platform) *harness {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	kv := newMemKV()
	sender := &capturingSender{}
	nop := zap.NewNop().Sugar()
	notify := notifier.NewService(gdb, sender, kv, nop)

	cfg := &cfgpkg.Config{
		TokenEncryptionKey: "test-key",
		Ingestion: cfgpkg.IngestionConfig{
			WorkerPoolSize: 1,
			RetryBase:      time.Millisecond,
		},
	}
	vaultSvc, err := vault.NewService(cfg, gdb, notify, nop)
	require.NoError(t, err)

	conn := &stubConnector{platform: platform}
	registry := connector.Registry{platform: conn}
	vaultSvc.SetRegistry(registry)

	store := metricstore.NewStore(gdb)
	svc := NewService(gdb, store, vaultSvc, registry, nil, kv, notify, cfg, nop)
	svc.now = func() time.Time { return time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC) }
	svc.sleep = func(context.Context, time.Duration) {}

	return &harness{svc: svc, gdb: gdb, kv: kv, sender: sender, conn: conn, vault: vaultSvc}
}

func (h *harness) seedAccount(t *testing.T, platform types.Platform, active bool) *models.SocialAccount {
	t.Helper()
	account := &models.SocialAccount{
		ID:        "acc-1",
		ClientID:  "client-1",
		Platform:  platform,
		AccountID: "ext-1",
		Username:  "agency.demo",
		Active:    active,
	}
	require.NoError(t, h.gdb.Create(account).Error)
	return account
}

func (h *harness) seedAdmin(t *testing.T) {
	t.Helper()
	require.NoError(t, h.gdb.Create(&models.User{
		ID:           "admin-1",
		Email:        "ops@socialpulse.test",
		PasswordHash: "x",
		Name:         "Ops",
		Role:         types.UserRoleAdmin,
	}).Error)
}

func job(accountID string) Job {
	return Job{ID: "job-1", AccountID: accountID, Platform: types.PlatformInstagram}
}

func TestRunJobSuccessBracketsSyncLog(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)
	h.conn.posts = []*connector.PostStats{
		{PlatformPostID: "p1", MediaType: types.MediaTypeImage, PostedAt: h.svc.now(), Likes: 10, Reach: 100},
		{PlatformPostID: "p2", MediaType: types.MediaTypeImage, PostedAt: h.svc.now(), Likes: 20, Reach: 100},
	}

	require.NoError(t, h.svc.RunJob(context.Background(), job(account.ID)))

	var log models.SyncLog
	require.NoError(t, h.gdb.First(&log, "account_id = ?", account.ID).Error)
	require.Equal(t, types.SyncStateSuccess, log.State)
	require.Equal(t, 3, log.RecordsProcessed)
	require.NotNil(t, log.CompletedAt)

	var stored models.SocialAccount
	require.NoError(t, h.gdb.First(&stored, "id = ?", account.ID).Error)
	require.NotNil(t, stored.LastSyncAt)

	var daily int64
	require.NoError(t, h.gdb.Model(&models.DailyMetrics{}).Count(&daily).Error)
	require.Equal(t, int64(1), daily)
}

func TestRunJobRetriesTransientFaults(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)
	h.conn.profileErrs = []error{
		types.NewFault(types.FaultUpstreamTransient, "rate limited"),
		types.NewFault(types.FaultUpstreamTransient, "rate limited"),
		nil,
	}

	require.NoError(t, h.svc.RunJob(context.Background(), job(account.ID)))
	require.Equal(t, 3, h.conn.profileCalls)
}

func TestRunJobGivesUpAfterMaxAttempts(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	h.seedAdmin(t)
	account := h.seedAccount(t, types.PlatformInstagram, true)
	h.conn.profileErr = types.NewFault(types.FaultUpstreamTransient, "rate limited")

	require.Error(t, h.svc.RunJob(context.Background(), job(account.ID)))
	require.Equal(t, maxAttempts, h.conn.profileCalls)

	var log models.SyncLog
	require.NoError(t, h.gdb.First(&log, "account_id = ?", account.ID).Error)
	require.Equal(t, types.SyncStateFailed, log.State)
	require.NotNil(t, log.ErrorMessage)
	require.Contains(t, *log.ErrorMessage, "rate limited")
}

func TestRunJobPermanentFailureNotifiesAdmins(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	h.seedAdmin(t)
	account := h.seedAccount(t, types.PlatformInstagram, true)
	h.conn.profileErr = types.NewFault(types.FaultUpstreamPermanent, "token revoked")

	require.Error(t, h.svc.RunJob(context.Background(), job(account.ID)))
	// Permanent faults fail immediately, no retries.
	require.Equal(t, 1, h.conn.profileCalls)
	require.Len(t, h.sender.subjects, 1)
}

func TestRunJobSkipsTombstonedJob(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)

	j := job(account.ID)
	require.NoError(t, h.svc.CancelJob(context.Background(), j.ID))
	require.NoError(t, h.svc.RunJob(context.Background(), j))

	require.Zero(t, h.conn.profileCalls)
	var n int64
	require.NoError(t, h.gdb.Model(&models.SyncLog{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestRunJobSkipsInactiveAndMissingAccounts(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, false)

	require.NoError(t, h.svc.RunJob(context.Background(), job(account.ID)))
	require.NoError(t, h.svc.RunJob(context.Background(), job("acc-ghost")))

	require.Zero(t, h.conn.profileCalls)
	var n int64
	require.NoError(t, h.gdb.Model(&models.SyncLog{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestRunJobRefreshesExpiringToken(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)
	soon := h.svc.now().Add(2 * time.Minute)
	require.NoError(t, h.gdb.Model(account).Update("token_expires_at", soon).Error)

	h.conn.token = &connector.RefreshedToken{
		AccessToken: "fresh-token",
		ExpiresAt:   h.svc.now().Add(60 * 24 * time.Hour),
	}

	require.NoError(t, h.svc.RunJob(context.Background(), job(account.ID)))
	require.Equal(t, 1, h.conn.refreshCalls)

	var stored models.SocialAccount
	require.NoError(t, h.gdb.First(&stored, "id = ?", account.ID).Error)
	require.True(t, h.vault.IsCiphertext(stored.AccessToken))
}

func TestSyncRecentPostsBridgesYouTubeVideos(t *testing.T) {
	h := newHarness(t, types.PlatformYouTube)
	account := h.seedAccount(t, types.PlatformYouTube, true)
	h.conn.posts = []*connector.PostStats{{
		PlatformPostID: "dQw4w9WgXcQ",
		Caption:        "Launch recap",
		MediaType:      types.MediaTypeVideo,
		PostedAt:       h.svc.now().AddDate(0, 0, -1),
		Likes:          40,
		Comments:       10,
		Reach:          1000,
	}}

	n, err := h.svc.SyncRecentPosts(context.Background(), account, postsPerSync)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	var post models.ContentPost
	require.NoError(t, h.gdb.First(&post, "client_id = ?", account.ClientID).Error)
	require.Equal(t, "Launch recap", post.Title)
	require.Equal(t, types.ContentPostStatusPosted, post.Status)
	require.True(t, strings.HasSuffix(post.URL, "dQw4w9WgXcQ"))

	// A second sync of the same video updates in place.
	h.conn.posts[0].Likes = 55
	_, err = h.svc.SyncRecentPosts(context.Background(), account, postsPerSync)
	require.NoError(t, err)

	var count int64
	require.NoError(t, h.gdb.Model(&models.ContentPost{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
	require.NoError(t, h.gdb.First(&post, "client_id = ?", account.ClientID).Error)
	require.Equal(t, int64(55), post.Likes)
}

func TestEnqueueOnDemandOwnershipAndState(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)

	_, err := h.svc.EnqueueOnDemand(context.Background(), "other-client", account.ID)
	require.Equal(t, types.FaultNotFound, types.KindOf(err))

	require.NoError(t, h.gdb.Model(account).Update("active", false).Error)
	_, err = h.svc.EnqueueOnDemand(context.Background(), account.ClientID, account.ID)
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

func TestDisconnectAccount(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)

	require.NoError(t, h.svc.DisconnectAccount(context.Background(), account.ClientID, account.ID))

	var stored models.SocialAccount
	require.NoError(t, h.gdb.First(&stored, "id = ?", account.ID).Error)
	require.False(t, stored.Active)

	err := h.svc.DisconnectAccount(context.Background(), account.ClientID, "acc-ghost")
	require.Equal(t, types.FaultNotFound, types.KindOf(err))
}

func TestAccountStatusReturnsRecentLogs(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	account := h.seedAccount(t, types.PlatformInstagram, true)
	require.NoError(t, h.svc.RunJob(context.Background(), job(account.ID)))

	got, logs, err := h.svc.AccountStatus(context.Background(), account.ClientID, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)
	require.Len(t, logs, 1)

	_, _, err = h.svc.AccountStatus(context.Background(), "other-client", account.ID)
	require.Equal(t, types.FaultNotFound, types.KindOf(err))
}

func TestListAccountsActiveFirst(t *testing.T) {
	h := newHarness(t, types.PlatformInstagram)
	require.NoError(t, h.gdb.Create(&models.SocialAccount{
		ID: "acc-old", ClientID: "client-1", Platform: types.PlatformYouTube,
		AccountID: "yt-1", Active: false,
	}).Error)
	h.seedAccount(t, types.PlatformInstagram, true)

	accounts, err := h.svc.ListAccounts(context.Background(), "client-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.True(t, accounts[0].Active)
}
