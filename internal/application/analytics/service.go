package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/infrastructure/metrics"
)

// statisticsSchemaVersion identifies the report shape so archived snapshots
// stay interpretable when fields change.
const statisticsSchemaVersion = 1

// logWindow bounds the admin log and review feeds.
const logWindow = 50

// StatisticsReport is the aggregate election overview. Turnout figures are
// always recomputed from raw counts, never read back from storage.
type StatisticsReport struct {
	SchemaVersion       int            `json:"schema_version"`
	GeneratedAt         time.Time      `json:"generated_at"`
	TotalPrecincts      int            `json:"total_precincts"`
	TotalVotesReported  int            `json:"total_votes_reported"`
	AvgTurnout          float64        `json:"avg_turnout"`
	SuspiciousPrecincts int            `json:"suspicious_precincts"`
	CandidateAVotes     int            `json:"candidate_a_votes"`
	CandidateBVotes     int            `json:"candidate_b_votes"`
	TotalVotesCast      int            `json:"total_votes_cast"`
	VotesByPrecinct     map[string]int `json:"votes_by_precinct"`
	VotesByRisk         map[string]int `json:"votes_by_risk"`
}

// BenfordReport pairs the raw analysis with its human-readable reading.
type BenfordReport struct {
	Analysis       *BenfordResult `json:"benford_analysis"`
	Interpretation Interpretation `json:"interpretation"`
}

// UserStats summarizes the account population for the admin dashboard.
type UserStats struct {
	TotalVoters     int `json:"total_voters"`
	TotalCandidates int `json:"total_candidates"`
	TotalAdmins     int `json:"total_admins"`
	VerifiedVoters  int `json:"verified_voters"`
}

type VoteStore interface {
	Scan(ctx context.Context) ([]domain.Vote, error)
}

type TallyStore interface {
	Put(ctx context.Context, t *domain.PrecinctTally) error
	Get(ctx context.Context, precinct string) (*domain.PrecinctTally, error)
	Scan(ctx context.Context) ([]domain.PrecinctTally, error)
	UpdateDerived(ctx context.Context, precinct string, turnout float64, suspicious bool) error
}

type VerificationStore interface {
	ListRecent(ctx context.Context, limit int32) ([]domain.IdentityVerificationRecord, error)
}

type AccountStore interface {
	CountByRole(ctx context.Context, role string) (total, verified int, err error)
}

// ReportArchiver persists report snapshots out of band (S3).
type ReportArchiver interface {
	UploadReport(ctx context.Context, kind string, report interface{}) (string, error)
}

type Service interface {
	Statistics(ctx context.Context) (*StatisticsReport, error)
	Benford(ctx context.Context) (*BenfordReport, error)
	RecomputeTallies(ctx context.Context) error
	EnterTally(ctx context.Context, req domain.TallyEntryRequest) (*domain.PrecinctTally, error)
	Tallies(ctx context.Context) ([]domain.PrecinctTally, error)
	ActivityLog(ctx context.Context) ([]domain.SecurityEvent, error)
	SecurityLog(ctx context.Context) ([]domain.SecurityEvent, error)
	VerificationSummaries(ctx context.Context) ([]domain.IdentityVerificationRecord, error)
	UserStats(ctx context.Context) (*UserStats, error)
	Run(ctx context.Context)
}

type ServiceDeps struct {
	Votes         VoteStore
	Tallies       TallyStore
	Verifications VerificationStore
	Accounts      AccountStore
	Archiver      ReportArchiver
	Audit         *audit.Recorder
	Metrics       *metrics.Metrics
	Interval      time.Duration
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.Interval <= 0 {
		deps.Interval = 30 * time.Second
	}
	return &service{deps: deps}
}

// Statistics builds the aggregate overview from reported tallies and
// committed ballots. Read-only over already-committed data.
func (s *service) Statistics(ctx context.Context) (*StatisticsReport, error) {
	tallies, err := s.deps.Tallies.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan tallies: %w", err)
	}
	votes, err := s.deps.Votes.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan votes: %w", err)
	}
	if len(tallies) == 0 && len(votes) == 0 {
		return nil, fmt.Errorf("no data available for statistics: %w", domain.ErrBadRequest)
	}

	report := &StatisticsReport{
		SchemaVersion:   statisticsSchemaVersion,
		GeneratedAt:     time.Now().UTC(),
		TotalPrecincts:  len(tallies),
		VotesByPrecinct: map[string]int{},
		VotesByRisk:     map[string]int{},
	}

	var turnoutSum float64
	for _, t := range tallies {
		report.CandidateAVotes += t.VotesCandidateA
		report.CandidateBVotes += t.VotesCandidateB
		turnoutSum += domain.ComputeTurnout(t.VotesCandidateA, t.VotesCandidateB, t.RegisteredVoters)
		if domain.SuspiciousTally(t.VotesCandidateA, t.VotesCandidateB, t.RegisteredVoters) {
			report.SuspiciousPrecincts++
		}
	}
	report.TotalVotesReported = report.CandidateAVotes + report.CandidateBVotes
	if len(tallies) > 0 {
		report.AvgTurnout = turnoutSum / float64(len(tallies))
	}

	report.TotalVotesCast = len(votes)
	for _, v := range votes {
		report.VotesByPrecinct[v.Precinct]++
		report.VotesByRisk[v.RiskLabel]++
	}
	return report, nil
}

// Benford runs leading-digit conformance over reported candidate counts plus
// live per-precinct cast totals.
func (s *service) Benford(ctx context.Context) (*BenfordReport, error) {
	tallies, err := s.deps.Tallies.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan tallies: %w", err)
	}
	votes, err := s.deps.Votes.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan votes: %w", err)
	}
	if len(tallies) == 0 && len(votes) == 0 {
		return nil, fmt.Errorf("no votes available for leading-digit analysis: %w", domain.ErrBadRequest)
	}

	var counts []int
	for _, t := range tallies {
		counts = append(counts, t.VotesCandidateA, t.VotesCandidateB)
	}
	byPrecinct := map[string]int{}
	for _, v := range votes {
		byPrecinct[v.Precinct]++
	}
	for _, c := range byPrecinct {
		counts = append(counts, c)
	}

	result, err := analyzeBenford(counts)
	if err != nil {
		return nil, err
	}
	return &BenfordReport{Analysis: result, Interpretation: interpret(result)}, nil
}

// RecomputeTallies re-derives turnout and the suspicion flag for every
// reported tally. Derivation is deterministic, so reruns are idempotent.
func (s *service) RecomputeTallies(ctx context.Context) error {
	tallies, err := s.deps.Tallies.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan tallies: %w", err)
	}
	for _, t := range tallies {
		turnout := domain.ComputeTurnout(t.VotesCandidateA, t.VotesCandidateB, t.RegisteredVoters)
		suspicious := domain.SuspiciousTally(t.VotesCandidateA, t.VotesCandidateB, t.RegisteredVoters)
		if turnout == t.Turnout && suspicious == t.Suspicious {
			continue
		}
		if err := s.deps.Tallies.UpdateDerived(ctx, t.Precinct, turnout, suspicious); err != nil {
			return fmt.Errorf("update derived fields for %s: %w", t.Precinct, err)
		}
		if suspicious && !t.Suspicious {
			s.deps.Audit.Security(ctx, domain.EventFraudIndicator, "", "precinct tally flagged suspicious", map[string]string{
				"precinct": t.Precinct,
			})
		}
	}
	return nil
}

// EnterTally records reported counts for a precinct with derived fields
// computed on write. Re-entering a precinct replaces its counts.
func (s *service) EnterTally(ctx context.Context, req domain.TallyEntryRequest) (*domain.PrecinctTally, error) {
	t := &domain.PrecinctTally{
		Precinct:         req.Precinct,
		VotesCandidateA:  req.VotesCandidateA,
		VotesCandidateB:  req.VotesCandidateB,
		RegisteredVoters: req.RegisteredVoters,
		Turnout:          domain.ComputeTurnout(req.VotesCandidateA, req.VotesCandidateB, req.RegisteredVoters),
		Suspicious:       domain.SuspiciousTally(req.VotesCandidateA, req.VotesCandidateB, req.RegisteredVoters),
		UpdatedAt:        time.Now().UTC(),
	}
	if err := s.deps.Tallies.Put(ctx, t); err != nil {
		return nil, fmt.Errorf("store tally: %w", err)
	}
	s.deps.Audit.Activity(ctx, domain.EventTallyEntered, "", "precinct tally entered", map[string]string{
		"precinct": t.Precinct,
	})
	return t, nil
}

func (s *service) Tallies(ctx context.Context) ([]domain.PrecinctTally, error) {
	return s.deps.Tallies.Scan(ctx)
}

func (s *service) ActivityLog(ctx context.Context) ([]domain.SecurityEvent, error) {
	return s.deps.Audit.Recent(ctx, domain.EventCategoryActivity, logWindow)
}

func (s *service) SecurityLog(ctx context.Context) ([]domain.SecurityEvent, error) {
	return s.deps.Audit.Recent(ctx, domain.EventCategorySecurity, logWindow)
}

func (s *service) VerificationSummaries(ctx context.Context) ([]domain.IdentityVerificationRecord, error) {
	return s.deps.Verifications.ListRecent(ctx, logWindow)
}

func (s *service) UserStats(ctx context.Context) (*UserStats, error) {
	voters, verified, err := s.deps.Accounts.CountByRole(ctx, domain.RoleVoter)
	if err != nil {
		return nil, err
	}
	candidates, _, err := s.deps.Accounts.CountByRole(ctx, domain.RoleCandidate)
	if err != nil {
		return nil, err
	}
	admins, _, err := s.deps.Accounts.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &UserStats{
		TotalVoters:     voters,
		TotalCandidates: candidates,
		TotalAdmins:     admins,
		VerifiedVoters:  verified,
	}, nil
}

// Run executes the aggregation loop until the context is cancelled. Each tick
// recomputes derived tally fields and archives a statistics snapshot.
func (s *service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.aggregate(ctx)
		}
	}
}

func (s *service) aggregate(ctx context.Context) {
	start := time.Now()
	defer func() {
		s.deps.Metrics.ObserveAggregation(time.Since(start))
	}()

	if err := s.RecomputeTallies(ctx); err != nil {
		slog.Error("tally recomputation failed", "err", err)
		return
	}

	report, err := s.Statistics(ctx)
	if err != nil {
		// No data yet is routine early in an election.
		slog.Debug("statistics unavailable", "err", err)
		return
	}

	if s.deps.Archiver != nil {
		if url, err := s.deps.Archiver.UploadReport(ctx, "statistics", report); err != nil {
			slog.Warn("failed to archive statistics snapshot", "err", err)
		} else {
			slog.Debug("archived statistics snapshot", "url", url)
		}
	}
}
