package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/infrastructure/metrics"
	"github.com/election-trust-api/internal/pkg/id"
)

// Caller is the identity asserted by the session token.
type Caller struct {
	AccountID string
	Role      string
	Verified  bool
}

// ElectionData is the ballot catalog served to clients before casting.
type ElectionData struct {
	Candidates []string `json:"candidates"`
	Precincts  []string `json:"precincts"`
}

type AccountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	MarkVoted(ctx context.Context, accountID string) error
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
}

type VoteStore interface {
	Put(ctx context.Context, v *domain.Vote) error
	Get(ctx context.Context, transactionID string) (*domain.Vote, error)
	CountByPrecinctSince(ctx context.Context, precinct string, since time.Time) (int, error)
}

type Service interface {
	CastVote(ctx context.Context, caller Caller, req domain.CastVoteRequest) (*domain.CastVoteResult, error)
	VerifyReceipt(ctx context.Context, transactionID string) (*domain.Vote, error)
	ElectionData(ctx context.Context) (*ElectionData, error)
}

type ServiceDeps struct {
	Accounts   AccountStore
	Votes      VoteStore
	Scorer     Scorer
	Audit      *audit.Recorder
	Metrics    *metrics.Metrics
	Candidates []string
	Precincts  []string
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.Scorer == nil {
		deps.Scorer = NewRuleScorer()
	}
	return &service{deps: deps}
}

// CastVote commits one ballot. Eligibility is enforced by a single
// conditional voted=false -> true flip on the account, so two concurrent
// requests cannot both commit. The persisted ballot carries no account
// reference; the risk label annotates it but never blocks it.
func (s *service) CastVote(ctx context.Context, caller Caller, req domain.CastVoteRequest) (*domain.CastVoteResult, error) {
	if !caller.Verified {
		s.deps.Audit.Security(ctx, domain.EventFraudIndicator, caller.AccountID, "cast attempt without identity verification", nil)
		return nil, domain.ErrVerificationRequired
	}

	account, err := s.deps.Accounts.Get(ctx, caller.AccountID)
	if err != nil {
		return nil, err
	}
	switch domain.StageOf(account) {
	case domain.StageAuthenticated:
		// Token says verified but the account does not; the account wins.
		return nil, domain.ErrVerificationRequired
	case domain.StageVoted:
		s.deps.Audit.Security(ctx, domain.EventFraudIndicator, caller.AccountID, "duplicate cast attempt", nil)
		return nil, domain.ErrAlreadyVoted
	}

	assessment := s.deps.Scorer.Score(s.features(ctx, account, req))

	// Atomic check-and-flip. Exactly one concurrent caller passes.
	if err := s.deps.Accounts.MarkVoted(ctx, caller.AccountID); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			s.deps.Audit.Security(ctx, domain.EventFraudIndicator, caller.AccountID, "duplicate cast attempt", nil)
		}
		return nil, err
	}

	vote := &domain.Vote{
		TransactionID: id.New(),
		Candidate:     req.Vote.CandidateID,
		Precinct:      req.Precinct,
		RiskLabel:     assessment.Label,
		CastAt:        time.Now().UTC(),
	}
	if err := s.deps.Votes.Put(ctx, vote); err != nil {
		// Roll the flag back so the voter is not disenfranchised by a
		// storage failure after the flip.
		if rbErr := s.deps.Accounts.Update(ctx, caller.AccountID, map[string]interface{}{"voted": false}); rbErr != nil {
			slog.Error("failed to roll back voted flag", "account_id", caller.AccountID, "err", rbErr)
		}
		return nil, fmt.Errorf("persist vote: %w", err)
	}

	s.deps.Audit.Activity(ctx, domain.EventVoteCast, caller.AccountID, "vote committed", map[string]string{
		"precinct":       req.Precinct,
		"transaction_id": vote.TransactionID,
		"risk":           assessment.Label,
		"stage":          domain.StageVoted.String(),
	})
	if assessment.Label != domain.RiskLow {
		s.deps.Audit.Security(ctx, domain.EventFraudIndicator, caller.AccountID, "elevated fraud risk on cast", map[string]string{
			"risk":        assessment.Label,
			"probability": fmt.Sprintf("%.2f", assessment.Probability),
		})
	}
	s.deps.Metrics.IncrementVote(assessment.Label)

	return &domain.CastVoteResult{
		TransactionID: vote.TransactionID,
		RiskLabel:     assessment.Label,
		Warning:       assessment.Warning,
	}, nil
}

// VerifyReceipt looks up a committed ballot by its transaction id. The record
// returned contains no voter identity.
func (s *service) VerifyReceipt(ctx context.Context, transactionID string) (*domain.Vote, error) {
	return s.deps.Votes.Get(ctx, transactionID)
}

// ElectionData returns the ballot catalog.
func (s *service) ElectionData(ctx context.Context) (*ElectionData, error) {
	return &ElectionData{Candidates: s.deps.Candidates, Precincts: s.deps.Precincts}, nil
}

// features assembles the scorer input from telemetry, account trust state and
// the precinct's recent vote velocity. A failed velocity read degrades to
// zero rather than failing the cast.
func (s *service) features(ctx context.Context, account *domain.Account, req domain.CastVoteRequest) Features {
	recent, err := s.deps.Votes.CountByPrecinctSince(ctx, req.Precinct, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		slog.Warn("precinct velocity lookup failed", "precinct", req.Precinct, "err", err)
		recent = 0
	}

	// One session, one device; ballots keep no per-voter history to
	// correlate against.
	b := req.BehaviorData
	return Features{
		HourOfDay:          time.Now().UTC().Hour(),
		LoginAttempts:      b.LoginAttempts,
		SessionDurationSec: b.SessionDurationSec,
		VotesInLastHour:    recent,
		UniqueIPs:          1,
		UniqueDevices:      1,
		MfaEnabled:         account.MfaRequired(),
		IdentityVerified:   account.Verified,
	}
}
