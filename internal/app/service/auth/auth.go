package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/app/service/notifier"
	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/cache"
	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

const tokenTTL = 24 * time.Hour

// Claims carries the user identity and role inside the access token.
type Claims struct {
	Role types.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Service handles identity: registration behind email verification codes,
// login, token issue/parse and revocation.
type Service struct {
	db     *gorm.DB
	kv     cache.Store
	notify *notifier.Service
	cfg    *cfgpkg.Config
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewService(db *gorm.DB, kv cache.Store, notify *notifier.Service, cfg *cfgpkg.Config, log *zap.SugaredLogger) *Service {
	return &Service{db: db, kv: kv, notify: notify, cfg: cfg, log: log, now: time.Now}
}

// RequestVerificationCode emails a code for registration or password reset.
// Registration requires a fresh address; reset requires a known one.
func (s *Service) RequestVerificationCode(ctx context.Context, purpose types.VerificationPurpose, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return types.NewFault(types.FaultValidation, "email is required")
	}

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return types.WrapFault(types.FaultInternal, "check email", err)
	}

	switch purpose {
	case types.VerificationPurposeRegister:
		if found {
			return types.NewFault(types.FaultConflict, "email is already registered")
		}
	case types.VerificationPurposeResetPassword:
		if !found {
			return types.NewFault(types.FaultNotFound, "no account with this email")
		}
	default:
		return types.Faultf(types.FaultValidation, "unknown verification purpose: %s", purpose)
	}

	return s.notify.IssueVerificationCode(ctx, purpose, email)
}

// Register creates the user plus their client record once the emailed code
// checks out, and signs them in.
func (s *Service) Register(ctx context.Context, email, password, name, code string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if len(password) < 8 {
		return nil, "", types.NewFault(types.FaultValidation, "password must be at least 8 characters")
	}
	if err := s.notify.VerifyCode(ctx, types.VerificationPurposeRegister, email, code); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", types.WrapFault(types.FaultInternal, "hash password", err)
	}

	user := &models.User{
		ID:           tool.GenerateUUIDV7(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         types.UserRoleClient,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		client := &models.Client{
			ID:            tool.GenerateUUIDV7(),
			UserID:        user.ID,
			Status:        types.ClientStatusPending,
			PaymentStatus: types.PaymentStatusNone,
			CurrentPlan:   types.PlanNone,
		}
		return tx.Create(client).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, "", types.NewFault(types.FaultConflict, "email is already registered")
	}
	if err != nil {
		return nil, "", types.WrapFault(types.FaultInternal, "create user", err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, "", err
	}
	logctx.FromCtx(ctx, s.log).Infow("user registered", "user_id", user.ID)
	return user, token, nil
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", types.NewFault(types.FaultValidation, "invalid email or password")
	}
	if err != nil {
		return nil, "", types.WrapFault(types.FaultInternal, "load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", types.NewFault(types.FaultValidation, "invalid email or password")
	}

	token, err := s.issueToken(&user)
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// Logout revokes the presented token until its natural expiry.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.kv.Put(ctx, revokedKey(claims.ID), "1", ttl)
}

// ChangePassword swaps the password after re-verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < 8 {
		return types.NewFault(types.FaultValidation, "password must be at least 8 characters")
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return types.NewFault(types.FaultNotFound, "user not found")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return types.NewFault(types.FaultValidation, "current password does not match")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return types.WrapFault(types.FaultInternal, "hash password", err)
	}
	err = s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("password_hash", string(hash)).Error
	if err != nil {
		return types.WrapFault(types.FaultInternal, "store password", err)
	}
	return nil
}

// ResetPassword sets a new password after checking the emailed reset code.
func (s *Service) ResetPassword(ctx context.Context, email, code, next string) error {
	email = normalizeEmail(email)
	if len(next) < 8 {
		return types.NewFault(types.FaultValidation, "password must be at least 8 characters")
	}
	if err := s.notify.VerifyCode(ctx, types.VerificationPurposeResetPassword, email, code); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return types.WrapFault(types.FaultInternal, "hash password", err)
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("password_hash", string(hash))
	if res.Error != nil {
		return types.WrapFault(types.FaultInternal, "store password", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewFault(types.FaultNotFound, "no account with this email")
	}
	return nil
}

// ParseToken validates the signature and the revocation list.
func (s *Service) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, types.NewFault(types.FaultValidation, "unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, types.NewFault(types.FaultValidation, "invalid token")
	}
	if _, revoked, err := s.kv.Get(ctx, revokedKey(claims.ID)); err == nil && revoked {
		return nil, types.NewFault(types.FaultValidation, "token revoked")
	}
	return claims, nil
}

// ClientForUser resolves the caller's client record.
func (s *Service) ClientForUser(ctx context.Context, userID string) (*models.Client, error) {
	var client models.Client
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewFault(types.FaultNotFound, "client not found")
	}
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "load client", err)
	}
	return &client, nil
}

func (s *Service) issueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        tool.GenerateUUIDV7(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", types.WrapFault(types.FaultInternal, "sign token", err)
	}
	return signed, nil
}

func revokedKey(jti string) string { return "auth:revoked:" + jti }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var Module = fx.Options(
	fx.Provide(NewService),
)
