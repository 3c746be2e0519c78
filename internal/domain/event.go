package domain

import "time"

// Event categories. Security events cover lockouts, repeated code failures
// and fraud indicators; activity events cover the normal pipeline steps.
const (
	EventCategorySecurity = "security"
	EventCategoryActivity = "activity"
)

// Event types written by the pipeline.
const (
	EventLoginFailed      = "login_failed"
	EventAccountLocked    = "account_locked"
	EventChallengeIssued  = "challenge_issued"
	EventChallengeFailed  = "challenge_failed"
	EventChallengeExpired = "challenge_expired"
	EventProofingAttempt  = "proofing_attempt"
	EventFaceMismatch     = "face_mismatch"
	EventFraudIndicator   = "fraud_indicator"
	EventVoteCast         = "vote_cast"
	EventTallyEntered     = "tally_entered"
)

// SecurityEvent is an append-only audit record. Written from the auth,
// proofing and voting paths; read (bounded) by the analytics aggregator and
// admin review endpoints. Events are durable regardless of how generic the
// end-user-visible error was.
type SecurityEvent struct {
	EventID   string            `json:"id" dynamodbav:"event_id"`
	Category  string            `json:"category" dynamodbav:"category"`
	Type      string            `json:"type" dynamodbav:"type"`
	AccountID string            `json:"account_id,omitempty" dynamodbav:"account_id"`
	Detail    string            `json:"detail,omitempty" dynamodbav:"detail"`
	Metadata  map[string]string `json:"metadata,omitempty" dynamodbav:"metadata"`
	CreatedAt time.Time         `json:"created" dynamodbav:"created_at"`
}
