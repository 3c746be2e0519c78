package domain

import "time"

// PrecinctTally holds reported per-precinct counts entered by election staff.
// TurnoutPercentage is always derived from the counts — never trusted as
// stored ground truth. The aggregator recomputes it and the suspicious flag
// on every run.
type PrecinctTally struct {
	Precinct         string    `json:"precinct" dynamodbav:"precinct"`
	VotesCandidateA  int       `json:"votes_candidate_a" dynamodbav:"votes_candidate_a"`
	VotesCandidateB  int       `json:"votes_candidate_b" dynamodbav:"votes_candidate_b"`
	RegisteredVoters int       `json:"registered_voters" dynamodbav:"registered_voters"`
	Turnout          float64   `json:"turnout_percentage" dynamodbav:"turnout_percentage"`
	Suspicious       bool      `json:"flagged_suspicious" dynamodbav:"flagged_suspicious"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

// ComputeTurnout derives the turnout percentage from raw counts, clamped to
// [0, 100]. Deterministic and idempotent by construction.
func ComputeTurnout(votesA, votesB, registered int) float64 {
	if registered <= 0 {
		return 0
	}
	t := 100 * float64(votesA+votesB) / float64(registered)
	if t < 0 {
		return 0
	}
	if t > 100 {
		return 100
	}
	return t
}

// SuspiciousTally flags implausible tallies: near-total turnout combined with
// a landslide margin relative to the registered population.
func SuspiciousTally(votesA, votesB, registered int) bool {
	if registered <= 0 {
		return false
	}
	turnout := ComputeTurnout(votesA, votesB, registered)
	margin := votesA - votesB
	if margin < 0 {
		margin = -margin
	}
	return turnout > 85 && float64(margin)/float64(registered) > 0.4
}

type TallyEntryRequest struct {
	Precinct         string `json:"precinct" validate:"required"`
	VotesCandidateA  int    `json:"votes_candidate_a" validate:"min=0"`
	VotesCandidateB  int    `json:"votes_candidate_b" validate:"min=0"`
	RegisteredVoters int    `json:"registered_voters" validate:"min=1"`
}
