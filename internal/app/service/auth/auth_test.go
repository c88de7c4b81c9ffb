package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/models"
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

type discardSender struct{}

func (discardSender) Send(context.Context, string, string, string) error { return nil }

func newTestAuth(t *testing.T) (*Service, *gorm.DB, *memKV) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	kv := newMemKV()
	nop := zap.NewNop().Sugar()
	notify := notifier.NewService(gdb, discardSender{}, kv, nop)
	cfg := &cfgpkg.Config{JWTSecret: "test-secret"}
	return NewService(gdb, kv, notify, cfg, nop), gdb, kv
}

// issuedCode reads back the code the notifier stored for (purpose, email).
func issuedCode(t *testing.T, kv *memKV, purpose types.VerificationPurpose, email string) string {
	t.Helper()
	code, ok, err := kv.Get(context.Background(), fmt.Sprintf("verify:%s:%s", purpose, email))
	require.NoError(t, err)
	require.True(t, ok)
	return code
}

func registerUser(t *testing.T, s *Service, kv *memKV, email string) *models.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.RequestVerificationCode(ctx, types.VerificationPurposeRegister, email))
	code := issuedCode(t, kv, types.VerificationPurposeRegister, email)
	user, token, err := s.Register(ctx, email, "hunter2hunter2", "Dana", code)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

func TestRegisterCreatesUserAndPendingClient(t *testing.T) {
	s, gdb, kv := newTestAuth(t)
	user := registerUser(t, s, kv, "dana@agency.test")

	require.Equal(t, types.UserRoleClient, user.Role)
	require.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	var client models.Client
	require.NoError(t, gdb.First(&client, "user_id = ?", user.ID).Error)
	require.Equal(t, types.ClientStatusPending, client.Status)
	require.Equal(t, types.PaymentStatusNone, client.PaymentStatus)
	require.Equal(t, types.PlanNone, client.CurrentPlan)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	s, _, _ := newTestAuth(t)
	_, _, err := s.Register(context.Background(), "dana@agency.test", "short", "Dana", "123456")
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestRegisterRejectsWrongCode(t *testing.T) {
	s, gdb, _ := newTestAuth(t)
	ctx := context.Background()

	require.NoError(t, s.RequestVerificationCode(ctx, types.VerificationPurposeRegister, "dana@agency.test"))
	_, _, err := s.Register(ctx, "dana@agency.test", "hunter2hunter2", "Dana", "000000")
	require.Equal(t, types.FaultValidation, types.KindOf(err))

	var n int64
	require.NoError(t, gdb.Model(&models.User{}).Count(&n).Error)
	require.Zero(t, n)
}

func TestRequestCodeForRegisterConflictsOnKnownEmail(t *testing.T) {
	s, _, kv := newTestAuth(t)
	registerUser(t, s, kv, "dana@agency.test")

	err := s.RequestVerificationCode(context.Background(), types.VerificationPurposeRegister, "dana@agency.test")
	require.Equal(t, types.FaultConflict, types.KindOf(err))
}

func TestRequestCodeForResetNeedsKnownEmail(t *testing.T) {
	s, _, _ := newTestAuth(t)
	err := s.RequestVerificationCode(context.Background(), types.VerificationPurposeResetPassword, "ghost@agency.test")
	require.Equal(t, types.FaultNotFound, types.KindOf(err))
}

func TestLoginSuccessAndFailureAreIndistinguishable(t *testing.T) {
	s, _, kv := newTestAuth(t)
	registerUser(t, s, kv, "dana@agency.test")
	ctx := context.Background()

	user, token, err := s.Login(ctx, "Dana@Agency.Test ", "hunter2hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "dana@agency.test", user.Email)

	_, _, wrongPass := s.Login(ctx, "dana@agency.test", "not-the-password")
	_, _, wrongMail := s.Login(ctx, "ghost@agency.test", "hunter2hunter2")
	require.Equal(t, types.FaultValidation, types.KindOf(wrongPass))
	require.Equal(t, types.FaultValidation, types.KindOf(wrongMail))
	require.Equal(t, wrongPass.Error(), wrongMail.Error())
}

func TestParseTokenRoundTrip(t *testing.T) {
	s, _, kv := newTestAuth(t)
	user := registerUser(t, s, kv, "dana@agency.test")
	ctx := context.Background()

	_, token, err := s.Login(ctx, "dana@agency.test", "hunter2hunter2")
	require.NoError(t, err)

	claims, err := s.ParseToken(ctx, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.Subject)
	require.Equal(t, types.UserRoleClient, claims.Role)

	_, err = s.ParseToken(ctx, token+"tampered")
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestLogoutRevokesToken(t *testing.T) {
	s, _, kv := newTestAuth(t)
	registerUser(t, s, kv, "dana@agency.test")
	ctx := context.Background()

	_, token, err := s.Login(ctx, "dana@agency.test", "hunter2hunter2")
	require.NoError(t, err)
	claims, err := s.ParseToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, claims))

	_, err = s.ParseToken(ctx, token)
	require.Equal(t, types.FaultValidation, types.KindOf(err))
	require.Contains(t, err.Error(), "revoked")
}

func TestChangePassword(t *testing.T) {
	s, _, kv := newTestAuth(t)
	user := registerUser(t, s, kv, "dana@agency.test")
	ctx := context.Background()

	err := s.ChangePassword(ctx, user.ID, "wrong-current", "newpassword1")
	require.Equal(t, types.FaultValidation, types.KindOf(err))

	require.NoError(t, s.ChangePassword(ctx, user.ID, "hunter2hunter2", "newpassword1"))

	_, _, err = s.Login(ctx, "dana@agency.test", "hunter2hunter2")
	require.Error(t, err)
	_, _, err = s.Login(ctx, "dana@agency.test", "newpassword1")
	require.NoError(t, err)
}

func TestResetPasswordWithEmailedCode(t *testing.T) {
	s, _, kv := newTestAuth(t)
	registerUser(t, s, kv, "dana@agency.test")
	ctx := context.Background()

	require.NoError(t, s.RequestVerificationCode(ctx, types.VerificationPurposeResetPassword, "dana@agency.test"))
	code := issuedCode(t, kv, types.VerificationPurposeResetPassword, "dana@agency.test")

	require.NoError(t, s.ResetPassword(ctx, "dana@agency.test", code, "resetpassword1"))
	_, _, err := s.Login(ctx, "dana@agency.test", "resetpassword1")
	require.NoError(t, err)

	// The code is consumed on first use.
	err = s.ResetPassword(ctx, "dana@agency.test", code, "anotherpass1")
	require.Equal(t, types.FaultValidation, types.KindOf(err))
}

func TestClientForUser(t *testing.T) {
	s, _, kv := newTestAuth(t)
	user := registerUser(t, s, kv, "dana@agency.test")

	client, err := s.ClientForUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, client.UserID)

	_, err = s.ClientForUser(context.Background(), "ghost")
	require.Equal(t, types.FaultNotFound, types.KindOf(err))
}
