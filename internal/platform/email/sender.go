package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
	"go.uber.org/fx"

	cfgpkg "github.com/socialpulse/backend/pkg/config"
	"github.com/socialpulse/backend/pkg/types"
)

// Sender delivers one HTML email. The notifier logs failures and never lets
// them fail the primary business operation.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type resendSender struct {
	client *resend.Client
	from   string
}

func NewSender(cfg *cfgpkg.Config) Sender {
	return &resendSender{
		client: resend.NewClient(cfg.Email.APIKey),
		from:   cfg.Email.FromAddress,
	}
}

func (s *resendSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return types.NewFault(types.FaultValidation, "empty recipient address")
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return types.WrapFault(types.FaultUpstreamTransient, fmt.Sprintf("send email to %s", to), err)
	}
	return nil
}

var Module = fx.Options(
	fx.Provide(NewSender),
)
