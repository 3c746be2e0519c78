package voting

import "github.com/election-trust-api/internal/domain"

// Features is the numeric/categorical input vector for one fraud-risk
// assessment. Values come from client telemetry, the account's trust state
// and aggregate precinct signals.
type Features struct {
	HourOfDay          int
	LoginAttempts      int
	SessionDurationSec float64
	VotesInLastHour    int
	UniqueIPs          int
	UniqueDevices      int
	MfaEnabled         bool
	IdentityVerified   bool
}

// Assessment is the scorer's verdict. The label annotates the vote; it never
// blocks it.
type Assessment struct {
	Probability    float64
	Label          string
	Warning        string
	TriggeredRules []string
}

// Scorer turns a feature vector into a discrete risk label.
type Scorer interface {
	Score(f Features) Assessment
}

// RuleScorer is a weighted-heuristic scorer. Each triggered rule adds its
// weight; the capped sum maps to low/medium/high bands.
type RuleScorer struct{}

func NewRuleScorer() *RuleScorer { return &RuleScorer{} }

type rule struct {
	name   string
	weight float64
	hit    func(f Features) bool
}

var rules = []rule{
	{"rapid_consecutive_votes", 0.3, func(f Features) bool { return f.VotesInLastHour > 3 }},
	{"excessive_login_attempts", 0.2, func(f Features) bool { return f.LoginAttempts > 5 }},
	{"session_too_short", 0.15, func(f Features) bool { return f.SessionDurationSec < 30 }},
	{"multiple_ip_addresses", 0.2, func(f Features) bool { return f.UniqueIPs > 3 }},
	{"multiple_devices", 0.15, func(f Features) bool { return f.UniqueDevices > 3 }},
	{"no_mfa", 0.1, func(f Features) bool { return !f.MfaEnabled }},
	{"identity_not_verified", 0.15, func(f Features) bool { return !f.IdentityVerified }},
	{"unusual_voting_time", 0.05, func(f Features) bool { return f.HourOfDay < 6 || f.HourOfDay > 22 }},
}

func (s *RuleScorer) Score(f Features) Assessment {
	var prob float64
	var triggered []string
	for _, r := range rules {
		if r.hit(f) {
			prob += r.weight
			triggered = append(triggered, r.name)
		}
	}
	if prob > 1 {
		prob = 1
	}

	a := Assessment{Probability: prob, TriggeredRules: triggered}
	switch {
	case prob < 0.3:
		a.Label = domain.RiskLow
	case prob < 0.6:
		a.Label = domain.RiskMedium
		a.Warning = "This vote was flagged for additional review."
	default:
		a.Label = domain.RiskHigh
		a.Warning = "This vote was flagged as high risk and will be reviewed."
	}
	return a
}
