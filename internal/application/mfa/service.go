package mfa

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/infrastructure/metrics"
)

type VerifyRequest struct {
	AccountID string `json:"user_id" validate:"required"`
	Code      string `json:"otp" validate:"required,len=4,numeric"`
}

type ResendRequest struct {
	AccountID string `json:"user_id" validate:"required"`
}

// VerifyResult carries the minted session token after a successful challenge.
type VerifyResult struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Verified    bool   `json:"verified"`
}

// ChallengeStore persists one-time codes keyed by account, with conditional
// consume and attempt-count operations.
type ChallengeStore interface {
	Put(ctx context.Context, c *domain.MfaChallenge) error
	Get(ctx context.Context, accountID string) (*domain.MfaChallenge, error)
	Consume(ctx context.Context, accountID string) error
	RecordAttempt(ctx context.Context, accountID string, max int) (int, error)
	Delete(ctx context.Context, accountID string) error
}

type AccountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type Mailer interface {
	SendEmail(to, subject, body string) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type TokenSigner interface {
	Sign(accountID, role string, verified bool) (string, error)
}

type Service interface {
	Issue(ctx context.Context, account *domain.Account) error
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	Resend(ctx context.Context, req ResendRequest) error
}

type ServiceDeps struct {
	Challenges     ChallengeStore
	Accounts       AccountStore
	Mailer         Mailer
	SMS            SMSSender
	Tokens         TokenSigner
	Audit          *audit.Recorder
	Metrics        *metrics.Metrics
	Expiry         time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.Expiry <= 0 {
		deps.Expiry = 10 * time.Minute
	}
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 5
	}
	if deps.ResendCooldown <= 0 {
		deps.ResendCooldown = time.Minute
	}
	return &service{deps: deps}
}

// Issue generates a fresh 4-digit code, stores it (replacing any prior
// challenge for the account) and delivers it over the account's channel. The
// code never appears in any API response.
func (s *service) Issue(ctx context.Context, account *domain.Account) error {
	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := time.Now().UTC()
	c := &domain.MfaChallenge{
		AccountID: account.AccountID,
		Code:      code,
		Channel:   account.MfaType,
		CreatedAt: now,
		ExpiresAt: now.Add(s.deps.Expiry).Unix(),
	}
	if err := s.deps.Challenges.Put(ctx, c); err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}

	if err := s.deliver(ctx, account, code); err != nil {
		return fmt.Errorf("deliver code: %w", err)
	}

	s.deps.Audit.Activity(ctx, domain.EventChallengeIssued, account.AccountID, "verification code sent", map[string]string{
		"channel": c.Channel,
	})
	return nil
}

// Verify checks the submitted code against the active challenge. Expired
// challenges are discarded, wrong codes consume one bounded attempt, and a
// correct code is consumed exactly once even under concurrent submissions.
func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	c, err := s.deps.Challenges.Get(ctx, req.AccountID)
	if err != nil {
		s.deps.Metrics.IncrementChallenge("not_found")
		return nil, err
	}
	if c.Consumed {
		s.deps.Metrics.IncrementChallenge("not_found")
		return nil, domain.ErrChallengeNotFound
	}

	if c.Expired(time.Now().UTC()) {
		_ = s.deps.Challenges.Delete(ctx, req.AccountID)
		s.deps.Audit.Security(ctx, domain.EventChallengeExpired, req.AccountID, "expired code submitted", nil)
		s.deps.Metrics.IncrementChallenge("expired")
		return nil, domain.ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(req.Code)) != 1 {
		return nil, s.handleMismatch(ctx, req.AccountID)
	}

	// Conditional flip; losing a race here means someone else already
	// consumed this code.
	if err := s.deps.Challenges.Consume(ctx, req.AccountID); err != nil {
		s.deps.Metrics.IncrementChallenge("not_found")
		return nil, err
	}

	account, err := s.deps.Accounts.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	token, err := s.deps.Tokens.Sign(account.AccountID, account.Role, account.Verified)
	if err != nil {
		return nil, err
	}

	s.deps.Audit.Activity(ctx, domain.EventChallengeIssued, account.AccountID, "challenge completed", nil)
	s.deps.Metrics.IncrementChallenge("ok")
	return &VerifyResult{AccessToken: token, Role: account.Role, Verified: account.Verified}, nil
}

// Resend issues a replacement code, invalidating the old one. Requests inside
// the cooldown window are refused to keep the delivery channel from being
// used as a spam vector.
func (s *service) Resend(ctx context.Context, req ResendRequest) error {
	account, err := s.deps.Accounts.Get(ctx, req.AccountID)
	if err != nil {
		return err
	}
	if !account.MfaRequired() {
		return fmt.Errorf("account has no mfa channel: %w", domain.ErrBadRequest)
	}

	c, err := s.deps.Challenges.Get(ctx, req.AccountID)
	if err == nil && !c.Consumed {
		if time.Since(c.CreatedAt) < s.deps.ResendCooldown {
			return domain.ErrResendCooldown
		}
	} else if err != nil && !errors.Is(err, domain.ErrChallengeNotFound) {
		return err
	}

	return s.Issue(ctx, account)
}

func (s *service) handleMismatch(ctx context.Context, accountID string) error {
	count, err := s.deps.Challenges.RecordAttempt(ctx, accountID, s.deps.MaxAttempts)
	if errors.Is(err, domain.ErrAttemptsExceeded) {
		s.deps.Audit.Security(ctx, domain.EventChallengeFailed, accountID, "verification attempts exceeded", nil)
		s.deps.Metrics.IncrementChallenge("exceeded")
		return domain.ErrAttemptsExceeded
	}
	if err != nil {
		return err
	}

	s.deps.Audit.Security(ctx, domain.EventChallengeFailed, accountID, "wrong code", map[string]string{
		"attempts": fmt.Sprintf("%d", count),
	})
	s.deps.Metrics.IncrementChallenge("mismatch")
	if count >= s.deps.MaxAttempts {
		return domain.ErrAttemptsExceeded
	}
	return domain.ErrCodeMismatch
}

func (s *service) deliver(ctx context.Context, account *domain.Account, code string) error {
	msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.deps.Expiry.Minutes()))
	switch account.MfaType {
	case domain.MfaSMS:
		if account.Phone == nil || *account.Phone == "" {
			return fmt.Errorf("sms channel selected but no phone on file: %w", domain.ErrBadRequest)
		}
		return s.deps.SMS.SendSMS(ctx, *account.Phone, msg)
	case domain.MfaEmail:
		return s.deps.Mailer.SendEmail(account.Email, "Your verification code", msg)
	default:
		return fmt.Errorf("unsupported mfa channel %q: %w", account.MfaType, domain.ErrBadRequest)
	}
}

// generateCode draws a uniform 4-digit code from crypto/rand.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
