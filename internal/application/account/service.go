package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// RegisterResult reports the new account and whether a first verification
// code is already on its way.
type RegisterResult struct {
	AccountID string `json:"user_id"`
	Role      string `json:"role"`
	MfaType   string `json:"mfa_type,omitempty"`
	CodeSent  bool   `json:"code_sent"`
}

type AccountStore interface {
	Put(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	Deactivate(ctx context.Context, accountID string) error
	CountByRole(ctx context.Context, role string) (total, verified int, err error)
}

type RollStore interface {
	Get(ctx context.Context, voterID string) (*domain.RollEntry, error)
}

// ChallengeIssuer delivers the first MFA code right after registration.
type ChallengeIssuer interface {
	Issue(ctx context.Context, account *domain.Account) error
}

type Service interface {
	RegisterVoter(ctx context.Context, req domain.RegisterVoterRequest) (*RegisterResult, error)
	RegisterCandidate(ctx context.Context, req domain.RegisterCandidateRequest) (*RegisterResult, error)
	RegisterAdmin(ctx context.Context, req domain.RegisterAdminRequest) (*RegisterResult, error)
	Deactivate(ctx context.Context, accountID string) error
}

type ServiceDeps struct {
	Accounts   AccountStore
	Roll       RollStore
	Challenges ChallengeIssuer
	Audit      *audit.Recorder
	BcryptCost int
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.BcryptCost == 0 {
		deps.BcryptCost = bcrypt.DefaultCost
	}
	return &service{deps: deps}
}

// RegisterVoter creates a voter account after checking the master voter roll.
// Voters start unverified and receive their first challenge code immediately.
func (s *service) RegisterVoter(ctx context.Context, req domain.RegisterVoterRequest) (*RegisterResult, error) {
	entry, err := s.deps.Roll.Get(ctx, req.VoterID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("voter id not on the roll: %w", domain.ErrForbidden)
		}
		return nil, err
	}
	if !entry.Eligible {
		return nil, fmt.Errorf("voter id not eligible: %w", domain.ErrForbidden)
	}

	mfaType := domain.MfaEmail
	if req.Phone != nil && *req.Phone != "" {
		mfaType = domain.MfaSMS
	}

	a, err := s.create(ctx, req.Username, req.Password, req.Email, domain.RoleVoter, mfaType)
	if err != nil {
		return nil, err
	}
	a.VoterID = req.VoterID
	a.Phone = req.Phone
	if err := s.deps.Accounts.Put(ctx, a); err != nil {
		return nil, err
	}

	codeSent := s.issueFirstChallenge(ctx, a)
	s.deps.Audit.Activity(ctx, domain.EventChallengeIssued, a.AccountID, "voter registered", map[string]string{"role": a.Role})
	return &RegisterResult{AccountID: a.AccountID, Role: a.Role, MfaType: a.MfaType, CodeSent: codeSent}, nil
}

// RegisterCandidate creates a candidate account. Candidates go through the
// same MFA step as voters but skip the roll check.
func (s *service) RegisterCandidate(ctx context.Context, req domain.RegisterCandidateRequest) (*RegisterResult, error) {
	a, err := s.create(ctx, req.Username, req.Password, req.Email, domain.RoleCandidate, domain.MfaEmail)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Accounts.Put(ctx, a); err != nil {
		return nil, err
	}

	codeSent := s.issueFirstChallenge(ctx, a)
	return &RegisterResult{AccountID: a.AccountID, Role: a.Role, MfaType: a.MfaType, CodeSent: codeSent}, nil
}

// RegisterAdmin creates an admin account. Only the first admin is authorized
// automatically; later ones stay unauthorized until flipped out of band.
func (s *service) RegisterAdmin(ctx context.Context, req domain.RegisterAdminRequest) (*RegisterResult, error) {
	a, err := s.create(ctx, req.Username, req.Password, req.Email, domain.RoleAdmin, domain.MfaNone)
	if err != nil {
		return nil, err
	}

	total, _, err := s.deps.Accounts.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	a.AuthorizedAdmin = total == 0

	if err := s.deps.Accounts.Put(ctx, a); err != nil {
		return nil, err
	}
	return &RegisterResult{AccountID: a.AccountID, Role: a.Role, CodeSent: false}, nil
}

// Deactivate disables an account. Records are kept for audit.
func (s *service) Deactivate(ctx context.Context, accountID string) error {
	if _, err := s.deps.Accounts.Get(ctx, accountID); err != nil {
		return err
	}
	return s.deps.Accounts.Deactivate(ctx, accountID)
}

func (s *service) create(ctx context.Context, username, password, email, role, mfaType string) (*domain.Account, error) {
	if _, err := s.deps.Accounts.GetByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.deps.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return &domain.Account{
		AccountID:    id.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		MfaType:      mfaType,
		Enable:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// issueFirstChallenge sends the welcome code. Delivery failure does not fail
// registration; the client can request a resend.
func (s *service) issueFirstChallenge(ctx context.Context, a *domain.Account) bool {
	if !a.MfaRequired() || s.deps.Challenges == nil {
		return false
	}
	if err := s.deps.Challenges.Issue(ctx, a); err != nil {
		s.deps.Audit.Security(ctx, domain.EventChallengeFailed, a.AccountID, "initial code delivery failed", map[string]string{"err": err.Error()})
		return false
	}
	return true
}
