package http

import (
	"net/http"

	"github.com/election-trust-api/internal/application/account"
	"github.com/election-trust-api/internal/application/analytics"
	"github.com/election-trust-api/internal/application/authn"
	"github.com/election-trust-api/internal/application/mfa"
	"github.com/election-trust-api/internal/application/proofing"
	"github.com/election-trust-api/internal/application/voting"
	"github.com/election-trust-api/internal/config"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/transport/http/handler"
	appmiddleware "github.com/election-trust-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to credential and code
	// endpoints to slow online guessing.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	mfaSvc := mfa.NewService(mfa.ServiceDeps{
		Challenges:     deps.ChallengeRepo,
		Accounts:       deps.AccountRepo,
		Mailer:         deps.Mailer,
		SMS:            deps.SMSSender,
		Tokens:         deps.JWTProvider,
		Audit:          deps.Audit,
		Metrics:        deps.Metrics,
		Expiry:         cfg.OTPExpiry,
		MaxAttempts:    cfg.OTPMaxAttempts,
		ResendCooldown: cfg.ResendCooldown,
	})
	authnSvc := authn.NewService(authn.ServiceDeps{
		Accounts:         deps.AccountRepo,
		Challenges:       mfaSvc,
		Tokens:           deps.JWTProvider,
		Audit:            deps.Audit,
		Metrics:          deps.Metrics,
		LockoutThreshold: cfg.LockoutThreshold,
		LockoutDuration:  cfg.LockoutDuration,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		Accounts:   deps.AccountRepo,
		Roll:       deps.RollRepo,
		Challenges: mfaSvc,
		Audit:      deps.Audit,
	})
	proofingSvc := proofing.NewService(proofing.ServiceDeps{
		Accounts:       deps.AccountRepo,
		Verifications:  deps.VerificationRepo,
		Evaluator:      deps.Evaluator,
		Tokens:         deps.JWTProvider,
		Audit:          deps.Audit,
		Metrics:        deps.Metrics,
		MaxImageBytes:  cfg.MaxImageBytes,
		MinImageWidth:  cfg.MinImageWidth,
		MinImageHeight: cfg.MinImageHeight,
	})
	votingSvc := voting.NewService(voting.ServiceDeps{
		Accounts:   deps.AccountRepo,
		Votes:      deps.VoteRepo,
		Audit:      deps.Audit,
		Metrics:    deps.Metrics,
		Candidates: cfg.Candidates,
		Precincts:  cfg.Precincts,
	})
	analyticsSvc := analytics.NewService(analytics.ServiceDeps{
		Votes:         deps.VoteRepo,
		Tallies:       deps.TallyRepo,
		Verifications: deps.VerificationRepo,
		Accounts:      deps.AccountRepo,
		Archiver:      deps.ReportStore,
		Audit:         deps.Audit,
		Metrics:       deps.Metrics,
		Interval:      cfg.AggregationInterval,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authnSvc, mfaSvc)
	registerH := handler.NewRegisterHandler(accountSvc)
	identityH := handler.NewIdentityHandler(proofingSvc)
	voteH := handler.NewVoteHandler(votingSvc)
	statsH := handler.NewStatisticsHandler(analyticsSvc)
	adminH := handler.NewAdminHandler(analyticsSvc, accountSvc)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/auth/login", authH.Login)
		r.With(sensitiveRL.Limit).Post("/auth/verify-otp", authH.VerifyOTP)
		r.With(sensitiveRL.Limit).Post("/auth/resend-otp", authH.ResendOTP)
		r.With(sensitiveRL.Limit).Post("/register/voter", registerH.Voter)
		r.With(sensitiveRL.Limit).Post("/register/candidate", registerH.Candidate)
		r.With(sensitiveRL.Limit).Post("/register/admin", registerH.Admin)

		// Receipt verification is public: anyone holding a transaction id can
		// confirm the ballot was recorded.
		r.Get("/votes/{transactionID}", voteH.VerifyReceipt)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Any authenticated user
			r.Post("/identity/verify", identityH.Verify)
			r.Get("/election-data", voteH.ElectionData)
			r.Get("/statistics", statsH.Overview)

			// Verified voters only
			r.With(appmiddleware.RequireVerified()).Post("/votes", voteH.Cast)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/statistics/benford", statsH.Benford)
				r.Get("/admin/user-stats", adminH.UserStats)
				r.Get("/admin/logs", adminH.ActivityLog)
				r.Get("/admin/security-logs", adminH.SecurityLog)
				r.Get("/admin/identity-verifications", adminH.IdentityVerifications)
				r.Get("/admin/tallies", adminH.ListTallies)
				r.Post("/admin/tallies", adminH.EnterTally)
				r.Delete("/admin/users/{id}", adminH.DeactivateAccount)
			})
		})
	})

	return r
}
