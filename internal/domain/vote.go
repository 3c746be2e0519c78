package domain

import "time"

// Fraud-risk labels attached to cast votes. Annotation only: a label never
// blocks the vote.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Vote is an anonymized ballot record. It deliberately carries no reference
// to the casting account: the cast event is authorized by an account-bound
// token, but the persisted ballot must not be linkable back to it.
type Vote struct {
	TransactionID string    `json:"transaction_id" dynamodbav:"transaction_id"`
	Candidate     string    `json:"candidate" dynamodbav:"candidate"`
	Precinct      string    `json:"precinct" dynamodbav:"precinct"`
	RiskLabel     string    `json:"fraud_risk_level" dynamodbav:"risk_label"`
	CastAt        time.Time `json:"timestamp" dynamodbav:"cast_at"`
}

// BehaviorData is client-side telemetry submitted with a cast-vote request.
// It feeds the fraud-risk scorer only and never gates eligibility.
type BehaviorData struct {
	SessionDurationSec float64 `json:"session_duration"`
	LoginAttempts      int     `json:"login_attempts"`
	PageViews          int     `json:"page_views"`
	TimeOnPageSec      float64 `json:"time_on_page"`
	IsMobile           bool    `json:"is_mobile"`
	IPAddress          string  `json:"ip_address"`
	UserAgent          string  `json:"user_agent"`
}

type CastVoteRequest struct {
	Vote struct {
		CandidateID string `json:"candidate_id" validate:"required"`
		Timestamp   string `json:"timestamp"`
	} `json:"vote"`
	Precinct     string       `json:"precinct" validate:"required"`
	BehaviorData BehaviorData `json:"behavior_data"`
}

// CastVoteResult is returned to the voter after a committed cast.
type CastVoteResult struct {
	TransactionID string `json:"transaction_id"`
	RiskLabel     string `json:"fraud_risk_level"`
	Warning       string `json:"warning,omitempty"`
}
