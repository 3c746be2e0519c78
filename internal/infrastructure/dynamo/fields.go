package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable       = "enable"
	fieldVerified     = "verified"
	fieldVoted        = "voted"
	fieldFailedLogins = "failed_logins"
	fieldLockedUntil  = "locked_until"
	fieldAttempts     = "attempts"
	fieldConsumed     = "consumed"
	fieldTurnout      = "turnout_percentage"
	fieldSuspicious   = "flagged_suspicious"
)
