package notifier

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/socialpulse/backend/pkg/types"
)

// codeTTL bounds how long an issued verification code stays valid.
const codeTTL = 10 * time.Minute

func codeKey(purpose types.VerificationPurpose, email string) string {
	return fmt.Sprintf("verify:%s:%s", purpose, email)
}

// IssueVerificationCode generates a 6-digit code, stores it under
// (purpose, email) and emails it. Re-issuing replaces the previous code.
func (s *Service) IssueVerificationCode(ctx context.Context, purpose types.VerificationPurpose, emailAddr string) error {
	if purpose != types.VerificationPurposeRegister && purpose != types.VerificationPurposeResetPassword {
		return types.Faultf(types.FaultValidation, "unknown verification purpose: %s", purpose)
	}
	code, err := sixDigitCode()
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, codeKey(purpose, emailAddr), code, codeTTL); err != nil {
		return err
	}

	subject := "Your verification code"
	body := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>", code)
	if err := s.email.Send(ctx, emailAddr, subject, body); err != nil {
		return err
	}
	return nil
}

// VerifyCode checks a submitted code and consumes it on success. A wrong or
// expired code is a Validation fault and leaves nothing consumed.
func (s *Service) VerifyCode(ctx context.Context, purpose types.VerificationPurpose, emailAddr, code string) error {
	key := codeKey(purpose, emailAddr)
	stored, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return types.NewFault(types.FaultValidation, "verification code expired or never issued")
	}
	if stored != code {
		return types.NewFault(types.FaultValidation, "verification code does not match")
	}
	return s.kv.Del(ctx, key)
}

func sixDigitCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", types.WrapFault(types.FaultInternal, "generate code", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
