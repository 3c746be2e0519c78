package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Trust-pipeline error taxonomy. Each error wraps one of the generic
// sentinels so handlers can match either the specific error or the class:
// errors.Is(err, ErrCodeExpired) and errors.Is(err, ErrUnauthorized) both hold.
var (
	// Authentication. User-facing messages stay generic; the detailed cause
	// goes to the security event log.
	ErrInvalidCredentials = wrap("invalid username or password", ErrUnauthorized)
	ErrAccountLocked      = wrap("account locked due to too many failed attempts", ErrForbidden)
	ErrAccountDisabled    = wrap("account disabled", ErrForbidden)

	// MFA challenges.
	ErrChallengeNotFound = wrap("no active challenge", ErrNotFound)
	ErrCodeExpired       = wrap("code expired", ErrUnauthorized)
	ErrCodeMismatch      = wrap("invalid code", ErrUnauthorized)
	ErrAttemptsExceeded  = wrap("verification attempts exceeded", ErrForbidden)
	ErrResendCooldown    = wrap("a code was requested too recently", ErrConflict)

	// Identity proofing. EvaluatorUnavailable is retryable by the client;
	// the rest require a fresh capture.
	ErrImageTooLarge        = wrap("image exceeds maximum size", ErrBadRequest)
	ErrEvaluatorUnavailable = wrap("identity evaluator unavailable", ErrConflict)
	ErrProofingRejected     = wrap("identity verification failed", ErrUnauthorized)

	// Vote eligibility. Fatal for the request; the only recovery is the
	// correct prior pipeline step.
	ErrVerificationRequired = wrap("identity verification required", ErrForbidden)
	ErrAlreadyVoted         = wrap("a vote has already been cast for this account", ErrForbidden)
)

func wrap(msg string, sentinel error) error {
	return &taggedError{msg: msg, sentinel: sentinel}
}

type taggedError struct {
	msg      string
	sentinel error
}

func (e *taggedError) Error() string { return e.msg }
func (e *taggedError) Unwrap() error { return e.sentinel }
