package notifier

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/socialpulse/backend/internal/models"
	"github.com/socialpulse/backend/internal/platform/cache"
	"github.com/socialpulse/backend/internal/platform/email"
	"github.com/socialpulse/backend/pkg/logctx"
	"github.com/socialpulse/backend/pkg/tool"
	"github.com/socialpulse/backend/pkg/types"
)

// Service turns business events into an in-app Notification row plus one
// email. Both halves are best-effort relative to the caller's primary
// operation: a failed row is a warn log, a failed email an error log, and
// neither aborts the caller.
type Service struct {
	db    *gorm.DB
	email email.Sender
	kv    cache.Store
	log   *zap.SugaredLogger
}

func NewService(db *gorm.DB, sender email.Sender, kv cache.Store, log *zap.SugaredLogger) *Service {
	return &Service{db: db, email: sender, kv: kv, log: log}
}

// Dispatch records and delivers one notification. Calling it N times for the
// same event produces N rows and N emails; dedupe belongs to the caller.
func (s *Service) Dispatch(ctx context.Context, kind types.NotificationKind, userID string, payload map[string]string) {
	l := logctx.FromCtx(ctx, s.log)

	tpl, ok := templates[kind]
	if !ok {
		l.Errorw("unknown notification kind", "kind", kind)
		return
	}
	subject, body := tpl.render(payload)

	row := &models.Notification{
		ID:      tool.GenerateUUIDV7(),
		UserID:  userID,
		Kind:    kind,
		Title:   tpl.Title,
		Message: subject,
		Payload: toJSONMap(payload),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		l.Warnw("persist notification", "kind", kind, "user_id", userID, "err", err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		l.Errorw("load notification recipient", "kind", kind, "user_id", userID, "err", err)
		return
	}
	if payload["name"] == "" {
		subject, body = tpl.render(withName(payload, user.Name))
	}
	if err := s.email.Send(ctx, user.Email, subject, body); err != nil {
		l.Errorw("send notification email", "kind", kind, "user_id", userID, "err", err)
	}
}

// NotifyAdmins fans a dispatch out to every admin user.
func (s *Service) NotifyAdmins(ctx context.Context, kind types.NotificationKind, payload map[string]string) {
	var admins []*models.User
	if err := s.db.WithContext(ctx).Where("role = ?", types.UserRoleAdmin).Find(&admins).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("load admin users", "kind", kind, "err", err)
		return
	}
	for _, admin := range admins {
		s.Dispatch(ctx, kind, admin.ID, payload)
	}
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var rows []*models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, types.WrapFault(types.FaultInternal, "list notifications", err)
	}
	return rows, nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, types.WrapFault(types.FaultInternal, "count unread", err)
	}
	return n, nil
}

// MarkRead flips one of the user's notifications to read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return types.WrapFault(types.FaultInternal, "mark read", res.Error)
	}
	if res.RowsAffected == 0 {
		return types.NewFault(types.FaultNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead flips every unread notification of the user.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
	if err != nil {
		return types.WrapFault(types.FaultInternal, "mark all read", err)
	}
	return nil
}

func toJSONMap(payload map[string]string) datatypes.JSONMap {
	m := datatypes.JSONMap{}
	for k, v := range payload {
		m[k] = v
	}
	return m
}

func withName(payload map[string]string, name string) map[string]string {
	out := make(map[string]string, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["name"] = name
	return out
}

var Module = fx.Options(
	fx.Provide(NewService),
)
