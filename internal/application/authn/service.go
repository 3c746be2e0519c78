package authn

import (
	"context"
	"fmt"
	"time"

	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/infrastructure/metrics"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is either a challenge hand-off (MfaRequired with the delivery
// hint) or a direct token for MFA-exempt roles. The code itself is never
// part of the result.
type LoginResult struct {
	MfaRequired bool   `json:"mfa_required"`
	MfaType     string `json:"mfa_type,omitempty"`
	AccountID   string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Role        string `json:"role,omitempty"`
}

// AccountStore is the account state the authenticator needs.
type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	RecordFailedLogin(ctx context.Context, accountID string) (int, error)
	Lock(ctx context.Context, accountID string, until time.Time) error
	ClearLockout(ctx context.Context, accountID string) error
}

// ChallengeIssuer creates and delivers a fresh MFA challenge for an account.
// Implemented by the mfa service.
type ChallengeIssuer interface {
	Issue(ctx context.Context, account *domain.Account) error
}

// TokenSigner mints session tokens.
type TokenSigner interface {
	Sign(accountID, role string, verified bool) (string, error)
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
}

// ServiceDeps wires the authenticator's collaborators.
type ServiceDeps struct {
	Accounts         AccountStore
	Challenges       ChallengeIssuer
	Tokens           TokenSigner
	Audit            *audit.Recorder
	Metrics          *metrics.Metrics
	LockoutThreshold int
	LockoutDuration  time.Duration
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.LockoutThreshold <= 0 {
		deps.LockoutThreshold = 5
	}
	if deps.LockoutDuration <= 0 {
		deps.LockoutDuration = 30 * time.Minute
	}
	return &service{deps: deps}
}

// Login validates credentials and routes the account into the MFA step or,
// for exempt roles, straight to a token with verified copied from the
// account. All failures surface the generic ErrInvalidCredentials to the
// caller; the precise cause goes to the security log.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	a, err := s.deps.Accounts.GetByUsername(ctx, req.Username)
	if err != nil {
		s.deps.Audit.Security(ctx, domain.EventLoginFailed, "", "unknown username", map[string]string{"username": req.Username})
		s.deps.Metrics.IncrementLogin("invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if !a.Enable {
		s.deps.Audit.Security(ctx, domain.EventLoginFailed, a.AccountID, "disabled account", nil)
		return nil, domain.ErrAccountDisabled
	}

	now := time.Now().UTC()
	if a.Locked(now) {
		s.deps.Audit.Security(ctx, domain.EventLoginFailed, a.AccountID, "locked account", nil)
		s.deps.Metrics.IncrementLogin("locked")
		return nil, domain.ErrAccountLocked
	}

	// bcrypt's comparison is constant-time over the hash.
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		return nil, s.handleFailedPassword(ctx, a)
	}

	if a.Role == domain.RoleAdmin && !a.AuthorizedAdmin {
		s.deps.Audit.Security(ctx, domain.EventLoginFailed, a.AccountID, "unauthorized admin account", nil)
		return nil, fmt.Errorf("admin account not authorized: %w", domain.ErrForbidden)
	}

	if a.FailedLogins > 0 || a.LockedUntil != nil {
		if err := s.deps.Accounts.ClearLockout(ctx, a.AccountID); err != nil {
			return nil, err
		}
	}

	if a.MfaRequired() {
		if err := s.deps.Challenges.Issue(ctx, a); err != nil {
			return nil, err
		}
		s.deps.Metrics.IncrementLogin("ok")
		return &LoginResult{MfaRequired: true, MfaType: a.MfaType, AccountID: a.AccountID}, nil
	}

	token, err := s.deps.Tokens.Sign(a.AccountID, a.Role, a.Verified)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.IncrementLogin("ok")
	return &LoginResult{AccessToken: token, Role: a.Role}, nil
}

func (s *service) handleFailedPassword(ctx context.Context, a *domain.Account) error {
	count, err := s.deps.Accounts.RecordFailedLogin(ctx, a.AccountID)
	if err != nil {
		// Counting failed; still refuse the login.
		return domain.ErrInvalidCredentials
	}

	s.deps.Audit.Security(ctx, domain.EventLoginFailed, a.AccountID, "invalid password", map[string]string{
		"failed_attempts": fmt.Sprintf("%d", count),
	})
	s.deps.Metrics.IncrementLogin("invalid_credentials")

	if count >= s.deps.LockoutThreshold {
		until := time.Now().UTC().Add(s.deps.LockoutDuration)
		if err := s.deps.Accounts.Lock(ctx, a.AccountID, until); err == nil {
			s.deps.Audit.Security(ctx, domain.EventAccountLocked, a.AccountID, "too many failed login attempts", map[string]string{
				"locked_until": until.Format(time.RFC3339),
			})
			s.deps.Metrics.IncrementLogin("locked")
			return domain.ErrAccountLocked
		}
	}
	return domain.ErrInvalidCredentials
}
