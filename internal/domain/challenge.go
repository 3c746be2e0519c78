package domain

import "time"

// MfaChallenge is a short-lived one-time code. The table is keyed by
// account_id alone, so writing a new challenge replaces any prior one and
// at most one challenge is ever active per account.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type MfaChallenge struct {
	AccountID string    `json:"account_id" dynamodbav:"account_id"`
	Code      string    `json:"-" dynamodbav:"code"`
	Channel   string    `json:"channel" dynamodbav:"channel"` // "email" | "sms"
	Attempts  int       `json:"attempts" dynamodbav:"attempts"`
	Consumed  bool      `json:"consumed" dynamodbav:"consumed"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// Expired reports whether the challenge's window has passed at now.
func (c *MfaChallenge) Expired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}
