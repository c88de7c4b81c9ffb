package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/connector"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/types"
)

// ciphertextPrefix marks vault-encrypted values so saving an already
// encrypted token is the identity.
const ciphertextPrefix = "enc:v1:"

// refreshSkew treats tokens expiring within this window as already expired,
// so a sync never starts with a token about to die mid-run.
const refreshSkew = 5 * time.Minute

// maxRefreshFails is the number of consecutive permanent refresh failures
// before an account is deactivated.
const maxRefreshFails = 3

// AdminNotifier is the slice of the dispatcher the vault needs; declared
// here to avoid a dependency on the notifier package.
type AdminNotifier interface {
	NotifyAdmins(ctx context.Context, kind types.NotificationKind, payload map[string]string)
}

// Service keeps platform OAuth tokens confidential at rest and mediates
// refresh. Only the vault writes token columns.
type Service struct {
	gcm      cipher.AEAD
	db       *gorm.DB
	registry connector.Registry
	admins   AdminNotifier
	log      *zap.SugaredLogger
}

func NewService(cfg *cfgpkg.Config, db *gorm.DB, admins AdminNotifier, log *zap.SugaredLogger) (*Service, error) {
	gcm, err := newAEAD(cfg.TokenEncryptionKey)
	if err != nil {
		return nil, err
	}
	return &Service{gcm: gcm, db: db, admins: admins, log: log}, nil
}

// SetRegistry wires the connector table in after construction. The vault is
// the connectors' token codec, so the registry cannot exist before it does.
func (s *Service) SetRegistry(r connector.Registry) { s.registry = r }

func newAEAD(key string) (cipher.AEAD, error) {
	if key == "" {
		return nil, types.NewFault(types.FaultInternal, "token_encryption_key is not configured")
	}
	// Accept any key material; derive a fixed 32-byte key from it.
	sum := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(sum[:])
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "init cipher", err)
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext with the process-wide key.
func (s *Service) Encrypt(plaintext string) string {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		// rand.Read on a working system does not fail; treat as unreachable.
		panic(err)
	}
	sealed := s.gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return ciphertextPrefix + base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt opens vault ciphertext. Failure is fatal for the containing
// operation.
func (s *Service) Decrypt(ciphertext string) (string, error) {
	raw, ok := strings.CutPrefix(ciphertext, ciphertextPrefix)
	if !ok {
		return "", types.NewFault(types.FaultInternal, "value is not vault ciphertext")
	}
	sealed, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", types.WrapFault(types.FaultInternal, "decode ciphertext", err)
	}
	if len(sealed) < s.gcm.NonceSize() {
		return "", types.NewFault(types.FaultInternal, "ciphertext too short")
	}
	nonce, ct := sealed[:s.gcm.NonceSize()], sealed[s.gcm.NonceSize():]
	plain, err := s.gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", types.WrapFault(types.FaultInternal, "decrypt token", err)
	}
	return string(plain), nil
}

// IsCiphertext reports whether a value is already vault output.
func (s *Service) IsCiphertext(v string) bool {
	return strings.HasPrefix(v, ciphertextPrefix)
}

// EncryptIfNeeded is the identity on already-encrypted input.
func (s *Service) EncryptIfNeeded(v string) string {
	if v == "" || s.IsCiphertext(v) {
		return v
	}
	return s.Encrypt(v)
}

// NeedsRefresh reports whether the account token is expired at now.
func (s *Service) NeedsRefresh(account *models.SocialAccount, now time.Time) bool {
	if account.TokenExpiresAt == nil {
		return false
	}
	return !account.TokenExpiresAt.After(now.Add(refreshSkew))
}

// Refresh exchanges the account's token with the platform and stores the new
// ciphertext and expiry. A permanent failure bumps the consecutive-failure
// counter; the third one deactivates the account and notifies agency admins.
func (s *Service) Refresh(ctx context.Context, account *models.SocialAccount) error {
	if s.registry == nil {
		return types.NewFault(types.FaultInternal, "connector registry not wired")
	}
	conn, err := s.registry.For(account.Platform)
	if err != nil {
		return err
	}

	refreshed, err := conn.RefreshToken(ctx, account)
	if err != nil {
		if types.KindOf(err) == types.FaultUpstreamPermanent {
			s.recordPermanentFailure(ctx, account, err)
		}
		return err
	}

	account.AccessToken = s.Encrypt(refreshed.AccessToken)
	account.TokenExpiresAt = &refreshed.ExpiresAt
	account.RefreshFails = 0
	if err := s.db.WithContext(ctx).Model(&models.SocialAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"access_token":     account.AccessToken,
			"token_expires_at": account.TokenExpiresAt,
			"refresh_fails":    0,
		}).Error; err != nil {
		return types.WrapFault(types.FaultInternal, "store refreshed token", err)
	}
	return nil
}

func (s *Service) recordPermanentFailure(ctx context.Context, account *models.SocialAccount, cause error) {
	account.RefreshFails++
	updates := map[string]any{"refresh_fails": account.RefreshFails}
	if account.RefreshFails >= maxRefreshFails {
		account.Active = false
		updates["active"] = false
	}
	if err := s.db.WithContext(ctx).Model(&models.SocialAccount{}).
		Where("id = ?", account.ID).Updates(updates).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("record refresh failure", "account_id", account.ID, "err", err)
		return
	}
	if !account.Active {
		logctx.FromCtx(ctx, s.log).Warnw("account deactivated after repeated refresh failures",
			"account_id", account.ID, "platform", account.Platform)
		s.admins.NotifyAdmins(ctx, types.NotificationSyncFailed, map[string]string{
			"platform":   string(account.Platform),
			"account":    account.Username,
			"account_id": account.AccountID,
			"error":      cause.Error(),
		})
	}
}

var Module = fx.Options(
	fx.Provide(NewService),
)
