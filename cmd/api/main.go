package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/election-trust-api/internal/application/analytics"
	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/config"
	"github.com/election-trust-api/internal/infrastructure/biometric"
	"github.com/election-trust-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/election-trust-api/internal/infrastructure/jwt"
	"github.com/election-trust-api/internal/infrastructure/metrics"
	s3infra "github.com/election-trust-api/internal/infrastructure/s3"
	"github.com/election-trust-api/internal/infrastructure/smtp"
	"github.com/election-trust-api/internal/infrastructure/sns"
	transporthttp "github.com/election-trust-api/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 report archive.
	s3Client := s3infra.NewClient(cfg)
	reportStore := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	eventRepo := dynamo.NewEventRepo(dynamoClient, cfg.DynamoTables.Events)
	appMetrics := metrics.New()

	deps := &transporthttp.Deps{
		AccountRepo:      dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts),
		RollRepo:         dynamo.NewRollRepo(dynamoClient, cfg.DynamoTables.VoterRoll),
		ChallengeRepo:    dynamo.NewChallengeRepo(dynamoClient, cfg.DynamoTables.Challenges),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		VoteRepo:         dynamo.NewVoteRepo(dynamoClient, cfg.DynamoTables.Votes),
		TallyRepo:        dynamo.NewTallyRepo(dynamoClient, cfg.DynamoTables.Tallies),
		EventRepo:        eventRepo,
		ReportStore:      reportStore,
		Mailer:           mailer,
		SMSSender:        smsSender,
		Evaluator:        biometric.NewClient(cfg),
		JWTProvider:      jwtProvider,
		Audit:            audit.NewRecorder(eventRepo),
		Metrics:          appMetrics,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Background aggregator: recomputes precinct tallies, regenerates the
	// statistics report and archives it on every tick.
	aggCtx, stopAggregator := context.WithCancel(context.Background())
	aggregator := analytics.NewService(analytics.ServiceDeps{
		Votes:         deps.VoteRepo,
		Tallies:       deps.TallyRepo,
		Verifications: deps.VerificationRepo,
		Accounts:      deps.AccountRepo,
		Archiver:      deps.ReportStore,
		Audit:         deps.Audit,
		Metrics:       appMetrics,
		Interval:      cfg.AggregationInterval,
	})
	go aggregator.Run(aggCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopAggregator()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
