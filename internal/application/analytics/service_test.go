package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/election-trust-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVoteStore struct{ mock.Mock }

func (m *mockVoteStore) Scan(ctx context.Context) ([]domain.Vote, error) {
	args := m.Called(ctx)
	if v, _ := args.Get(0).([]domain.Vote); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTallyStore struct{ mock.Mock }

func (m *mockTallyStore) Put(ctx context.Context, t *domain.PrecinctTally) error {
	return m.Called(ctx, t).Error(0)
}
func (m *mockTallyStore) Get(ctx context.Context, precinct string) (*domain.PrecinctTally, error) {
	args := m.Called(ctx, precinct)
	if t, _ := args.Get(0).(*domain.PrecinctTally); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTallyStore) Scan(ctx context.Context) ([]domain.PrecinctTally, error) {
	args := m.Called(ctx)
	if t, _ := args.Get(0).([]domain.PrecinctTally); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTallyStore) UpdateDerived(ctx context.Context, precinct string, turnout float64, suspicious bool) error {
	return m.Called(ctx, precinct, turnout, suspicious).Error(0)
}

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) ListRecent(ctx context.Context, limit int32) ([]domain.IdentityVerificationRecord, error) {
	args := m.Called(ctx, limit)
	if r, _ := args.Get(0).([]domain.IdentityVerificationRecord); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAccountStore struct{ mock.Mock }

func (m *mockAccountStore) CountByRole(ctx context.Context, role string) (int, int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Int(1), args.Error(2)
}

// --- helpers ---

func newService(vs *mockVoteStore, ts *mockTallyStore, vfs *mockVerificationStore, as *mockAccountStore) Service {
	return NewService(ServiceDeps{
		Votes:         vs,
		Tallies:       ts,
		Verifications: vfs,
		Accounts:      as,
		Interval:      time.Minute,
	})
}

// --- Statistics ---

func TestStatistics_RecomputesTurnoutFromCounts(t *testing.T) {
	vs := &mockVoteStore{}
	ts := &mockTallyStore{}
	// Stored turnout figures are garbage on purpose; the report must derive
	// them from the raw counts.
	ts.On("Scan", mock.Anything).Return([]domain.PrecinctTally{
		{Precinct: "P1", VotesCandidateA: 300, VotesCandidateB: 200, RegisteredVoters: 1000, Turnout: 99},
		{Precinct: "P2", VotesCandidateA: 450, VotesCandidateB: 30, RegisteredVoters: 500, Turnout: 0},
	}, nil)
	vs.On("Scan", mock.Anything).Return([]domain.Vote{
		{TransactionID: "t1", Precinct: "P1", RiskLabel: domain.RiskLow},
		{TransactionID: "t2", Precinct: "P1", RiskLabel: domain.RiskHigh},
		{TransactionID: "t3", Precinct: "P2", RiskLabel: domain.RiskLow},
	}, nil)

	svc := newService(vs, ts, nil, nil)
	report, err := svc.Statistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.SchemaVersion)
	assert.Equal(t, 2, report.TotalPrecincts)
	assert.Equal(t, 980, report.TotalVotesReported)
	assert.Equal(t, 750, report.CandidateAVotes)
	assert.Equal(t, 230, report.CandidateBVotes)
	// (50 + 96) / 2
	assert.InDelta(t, 73.0, report.AvgTurnout, 1e-9)
	// P2: turnout 96 > 85, margin 420/500 > 0.4
	assert.Equal(t, 1, report.SuspiciousPrecincts)
	assert.Equal(t, 3, report.TotalVotesCast)
	assert.Equal(t, 2, report.VotesByPrecinct["P1"])
	assert.Equal(t, 1, report.VotesByRisk[domain.RiskHigh])
}

func TestStatistics_NoData(t *testing.T) {
	vs := &mockVoteStore{}
	ts := &mockTallyStore{}
	ts.On("Scan", mock.Anything).Return([]domain.PrecinctTally{}, nil)
	vs.On("Scan", mock.Anything).Return([]domain.Vote{}, nil)

	svc := newService(vs, ts, nil, nil)
	_, err := svc.Statistics(context.Background())

	require.ErrorIs(t, err, domain.ErrBadRequest)
}

// --- RecomputeTallies ---

func TestRecomputeTallies_UpdatesOnlyChanged(t *testing.T) {
	vs := &mockVoteStore{}
	ts := &mockTallyStore{}
	ts.On("Scan", mock.Anything).Return([]domain.PrecinctTally{
		// Already correct: 50% turnout, not suspicious.
		{Precinct: "P1", VotesCandidateA: 300, VotesCandidateB: 200, RegisteredVoters: 1000, Turnout: 50, Suspicious: false},
		// Stale derived fields.
		{Precinct: "P2", VotesCandidateA: 450, VotesCandidateB: 30, RegisteredVoters: 500, Turnout: 10, Suspicious: false},
	}, nil)
	ts.On("UpdateDerived", mock.Anything, "P2", 96.0, true).Return(nil)

	svc := newService(vs, ts, nil, nil)
	require.NoError(t, svc.RecomputeTallies(context.Background()))

	ts.AssertExpectations(t)
	ts.AssertNotCalled(t, "UpdateDerived", mock.Anything, "P1", mock.Anything, mock.Anything)
}

func TestRecomputeTallies_Idempotent(t *testing.T) {
	vs := &mockVoteStore{}
	ts := &mockTallyStore{}
	ts.On("Scan", mock.Anything).Return([]domain.PrecinctTally{
		{Precinct: "P1", VotesCandidateA: 300, VotesCandidateB: 200, RegisteredVoters: 1000, Turnout: 50, Suspicious: false},
	}, nil)

	svc := newService(vs, ts, nil, nil)
	require.NoError(t, svc.RecomputeTallies(context.Background()))
	require.NoError(t, svc.RecomputeTallies(context.Background()))

	ts.AssertNotCalled(t, "UpdateDerived", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// --- EnterTally ---

func TestEnterTally_DerivesFieldsOnWrite(t *testing.T) {
	ts := &mockTallyStore{}
	var stored *domain.PrecinctTally
	ts.On("Put", mock.Anything, mock.AnythingOfType("*domain.PrecinctTally")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*domain.PrecinctTally) }).
		Return(nil)

	svc := newService(nil, ts, nil, nil)
	out, err := svc.EnterTally(context.Background(), domain.TallyEntryRequest{
		Precinct: "P9", VotesCandidateA: 460, VotesCandidateB: 20, RegisteredVoters: 500,
	})

	require.NoError(t, err)
	assert.InDelta(t, 96.0, out.Turnout, 1e-9)
	assert.True(t, out.Suspicious)
	require.NotNil(t, stored)
	assert.Equal(t, out.Turnout, stored.Turnout)
}

// --- UserStats ---

func TestUserStats(t *testing.T) {
	as := &mockAccountStore{}
	as.On("CountByRole", mock.Anything, domain.RoleVoter).Return(120, 75, nil)
	as.On("CountByRole", mock.Anything, domain.RoleCandidate).Return(2, 0, nil)
	as.On("CountByRole", mock.Anything, domain.RoleAdmin).Return(1, 0, nil)

	svc := newService(nil, nil, nil, as)
	stats, err := svc.UserStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalVoters)
	assert.Equal(t, 75, stats.VerifiedVoters)
	assert.Equal(t, 2, stats.TotalCandidates)
	assert.Equal(t, 1, stats.TotalAdmins)
}

// --- Benford ---

func TestBenford_CombinesTalliesAndLiveCounts(t *testing.T) {
	vs := &mockVoteStore{}
	ts := &mockTallyStore{}
	ts.On("Scan", mock.Anything).Return([]domain.PrecinctTally{
		{Precinct: "P1", VotesCandidateA: 120, VotesCandidateB: 85},
	}, nil)
	votes := make([]domain.Vote, 34)
	for i := range votes {
		votes[i] = domain.Vote{TransactionID: string(rune('a' + i)), Precinct: "P1"}
	}
	vs.On("Scan", mock.Anything).Return(votes, nil)

	svc := newService(vs, ts, nil, nil)
	report, err := svc.Benford(context.Background())

	require.NoError(t, err)
	// Samples: 120 (digit 1), 85 (digit 8), 34 live votes in P1 (digit 3).
	assert.Equal(t, 3, report.Analysis.SampleSize)
	assert.Equal(t, 1, report.Analysis.ObservedCounts[1])
	assert.Equal(t, 1, report.Analysis.ObservedCounts[8])
	assert.Equal(t, 1, report.Analysis.ObservedCounts[3])
}

func TestAnalyzeBenford_ConformingDistribution(t *testing.T) {
	// Build a sample whose leading digits follow the expected percentages
	// almost exactly (out of 1000 figures).
	distribution := map[int]int{1: 301, 2: 176, 3: 125, 4: 97, 5: 79, 6: 67, 7: 58, 8: 51, 9: 46}
	var counts []int
	for digit, n := range distribution {
		for i := 0; i < n; i++ {
			counts = append(counts, digit*10)
		}
	}

	result, err := analyzeBenford(counts)

	require.NoError(t, err)
	assert.True(t, result.Conforms)
	assert.Equal(t, 1000, result.SampleSize)
	assert.Less(t, result.ChiSquare, chiSquareCritical)
	assert.Less(t, result.AverageDeviation, 0.1)
}

func TestAnalyzeBenford_UniformDistributionFails(t *testing.T) {
	// Fabricated figures with uniform leading digits scream manipulation.
	var counts []int
	for digit := 1; digit <= 9; digit++ {
		for i := 0; i < 100; i++ {
			counts = append(counts, digit*100)
		}
	}

	result, err := analyzeBenford(counts)

	require.NoError(t, err)
	assert.False(t, result.Conforms)
	assert.Greater(t, result.ChiSquare, chiSquareCritical)
}

func TestAnalyzeBenford_FiltersSmallFigures(t *testing.T) {
	result, err := analyzeBenford([]int{5, 9, 123, 8, 456})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SampleSize)
	assert.Equal(t, 1, result.ObservedCounts[1])
	assert.Equal(t, 1, result.ObservedCounts[4])
}

func TestAnalyzeBenford_AllFiguresTooSmall(t *testing.T) {
	_, err := analyzeBenford([]int{1, 2, 3, 9})
	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestLeadingDigit(t *testing.T) {
	assert.Equal(t, 1, leadingDigit(123))
	assert.Equal(t, 9, leadingDigit(9))
	assert.Equal(t, 4, leadingDigit(4096))
	assert.Equal(t, 7, leadingDigit(-70))
}

func TestInterpretation(t *testing.T) {
	ok := interpret(&BenfordResult{ChiSquare: 4.2, Conforms: true})
	assert.Contains(t, ok.Result, "conforms")
	assert.Contains(t, ok.Significance, "less")
	assert.Contains(t, ok.Conclusion, "is no")

	bad := interpret(&BenfordResult{ChiSquare: 42.0, Conforms: false})
	assert.Contains(t, bad.Result, "does not conform")
	assert.Contains(t, bad.Significance, "greater")
	assert.Contains(t, bad.Conclusion, "may be")
}
