package http

import (
	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/infrastructure/biometric"
	"github.com/election-trust-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/election-trust-api/internal/infrastructure/jwt"
	"github.com/election-trust-api/internal/infrastructure/metrics"
	s3infra "github.com/election-trust-api/internal/infrastructure/s3"
	"github.com/election-trust-api/internal/infrastructure/smtp"
	"github.com/election-trust-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	AccountRepo      *dynamo.AccountRepo
	RollRepo         *dynamo.RollRepo
	ChallengeRepo    *dynamo.ChallengeRepo
	VerificationRepo *dynamo.VerificationRepo
	VoteRepo         *dynamo.VoteRepo
	TallyRepo        *dynamo.TallyRepo
	EventRepo        *dynamo.EventRepo
	ReportStore      *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	Evaluator        biometric.Evaluator
	JWTProvider      *jwtinfra.Provider
	Audit            *audit.Recorder
	Metrics          *metrics.Metrics
}
