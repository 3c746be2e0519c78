package domain

// TrustStage is the position of an account in the voter trust pipeline.
// The stages form a strict progression; operations belonging to a later
// stage are rejected until every earlier stage has completed.
type TrustStage int

const (
	StageUnauthenticated TrustStage = iota
	StageChallengePending
	StageAuthenticated // token issued, identity not yet proven
	StageVerified      // genuine identity verification on record
	StageVoted
)

func (s TrustStage) String() string {
	switch s {
	case StageUnauthenticated:
		return "unauthenticated"
	case StageChallengePending:
		return "challenge_pending"
	case StageAuthenticated:
		return "authenticated"
	case StageVerified:
		return "verified"
	case StageVoted:
		return "voted"
	}
	return "unknown"
}

// StageOf derives the pipeline stage from durable account state. Token
// possession is decided by the transport layer; given a valid token this
// places the account at authenticated or beyond.
func StageOf(a *Account) TrustStage {
	switch {
	case a.Voted:
		return StageVoted
	case a.Verified:
		return StageVerified
	default:
		return StageAuthenticated
	}
}

// CanTransition reports whether moving from one stage to the next is an
// allowed forward step. Skipping stages is never allowed.
func CanTransition(from, to TrustStage) bool {
	return to == from+1
}
