package proofing

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/election-trust-api/internal/application/audit"
	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/infrastructure/biometric"
	"github.com/election-trust-api/internal/infrastructure/metrics"
	"github.com/election-trust-api/internal/pkg/id"
)

type VerifyIdentityRequest struct {
	LivePhoto    string `json:"live_photo" validate:"required"`
	CameraSource string `json:"camera_source"`
}

// VerifyIdentityResult reports the proofing outcome. Scores are banded to
// coarse 0.05 steps so raw biometric values never leave the service.
type VerifyIdentityResult struct {
	Verified       bool     `json:"verified"`
	LivenessScore  float64  `json:"liveness_score"`
	FaceConfidence float64  `json:"face_match_confidence"`
	Indicators     []string `json:"fraud_indicators,omitempty"`
	Message        string   `json:"message"`
	AccessToken    string   `json:"access_token,omitempty"`
}

type AccountStore interface {
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	SetVerified(ctx context.Context, accountID string, verified bool) error
}

type VerificationStore interface {
	Put(ctx context.Context, rec *domain.IdentityVerificationRecord) error
}

type TokenSigner interface {
	Sign(accountID, role string, verified bool) (string, error)
}

type Service interface {
	VerifyIdentity(ctx context.Context, accountID string, req VerifyIdentityRequest) (*VerifyIdentityResult, error)
}

type ServiceDeps struct {
	Accounts       AccountStore
	Verifications  VerificationStore
	Evaluator      biometric.Evaluator
	Tokens         TokenSigner
	Audit          *audit.Recorder
	Metrics        *metrics.Metrics
	MaxImageBytes  int64
	MinImageWidth  int
	MinImageHeight int
}

type service struct {
	deps ServiceDeps
}

func NewService(deps ServiceDeps) Service {
	if deps.MaxImageBytes <= 0 {
		deps.MaxImageBytes = 5 * 1024 * 1024
	}
	if deps.MinImageWidth <= 0 {
		deps.MinImageWidth = 200
	}
	if deps.MinImageHeight <= 0 {
		deps.MinImageHeight = 200
	}
	return &service{deps: deps}
}

// VerifyIdentity runs one proofing attempt: decode and sanity-check the
// image, hand it to the external evaluator, persist an immutable record of
// the outcome, and on a genuine verdict flip the account's verified flag and
// mint a token carrying it. The image itself lives only for the duration of
// the evaluator call.
func (s *service) VerifyIdentity(ctx context.Context, accountID string, req VerifyIdentityRequest) (*VerifyIdentityResult, error) {
	account, err := s.deps.Accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	img, err := decodeImage(req.LivePhoto)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", domain.ErrBadRequest)
	}
	if int64(len(img)) > s.deps.MaxImageBytes {
		return nil, domain.ErrImageTooLarge
	}

	if undersized, derr := s.belowMinResolution(img); derr != nil {
		return nil, fmt.Errorf("unreadable image: %w", domain.ErrBadRequest)
	} else if undersized {
		rec := s.record(ctx, accountID, req.CameraSource, 0, 0, domain.OutcomeRejected, []string{domain.IndicatorImageTooSmall})
		s.deps.Audit.Security(ctx, domain.EventProofingAttempt, accountID, "image below minimum resolution", nil)
		return s.rejectedResult(rec), nil
	}

	start := time.Now()
	eval, err := s.deps.Evaluator.Evaluate(ctx, accountID, img)
	s.deps.Metrics.ObserveEvaluator(time.Since(start))
	if err != nil {
		if errors.Is(err, domain.ErrEvaluatorUnavailable) {
			s.deps.Audit.Security(ctx, domain.EventProofingAttempt, accountID, "evaluator unavailable", nil)
		}
		return nil, err
	}

	outcome := domain.OutcomeRejected
	if eval.Genuine {
		outcome = domain.OutcomeGenuine
	}
	rec := s.record(ctx, accountID, req.CameraSource, eval.LivenessScore, eval.FaceConfidence, outcome, eval.Indicators)

	if !eval.Genuine {
		s.auditRejection(ctx, accountID, eval.Indicators)
		return s.rejectedResult(rec), nil
	}

	if err := s.deps.Accounts.SetVerified(ctx, accountID, true); err != nil {
		return nil, err
	}
	token, err := s.deps.Tokens.Sign(account.AccountID, account.Role, true)
	if err != nil {
		return nil, err
	}

	s.deps.Audit.Activity(ctx, domain.EventProofingAttempt, accountID, "identity verified", nil)
	return &VerifyIdentityResult{
		Verified:       true,
		LivenessScore:  band(eval.LivenessScore),
		FaceConfidence: band(eval.FaceConfidence),
		Message:        "Identity verified successfully",
		AccessToken:    token,
	}, nil
}

// record persists the attempt. Persist failures are logged via the audit
// recorder's own fallback but do not change the caller-visible outcome.
func (s *service) record(ctx context.Context, accountID, source string, liveness, confidence float64, outcome string, indicators []string) *domain.IdentityVerificationRecord {
	rec := &domain.IdentityVerificationRecord{
		RecordID:       id.New(),
		AccountID:      accountID,
		LivenessScore:  liveness,
		FaceConfidence: confidence,
		Outcome:        outcome,
		Indicators:     indicators,
		CameraSource:   source,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.deps.Verifications.Put(ctx, rec); err != nil {
		s.deps.Audit.Security(ctx, domain.EventProofingAttempt, accountID, "failed to persist verification record", map[string]string{"err": err.Error()})
	}
	return rec
}

func (s *service) rejectedResult(rec *domain.IdentityVerificationRecord) *VerifyIdentityResult {
	return &VerifyIdentityResult{
		Verified:       false,
		LivenessScore:  band(rec.LivenessScore),
		FaceConfidence: band(rec.FaceConfidence),
		Indicators:     rec.Indicators,
		Message:        rejectionMessage(rec.Indicators),
	}
}

func (s *service) auditRejection(ctx context.Context, accountID string, indicators []string) {
	for _, ind := range indicators {
		if ind == domain.IndicatorFaceMismatch {
			s.deps.Audit.Security(ctx, domain.EventFaceMismatch, accountID, "captured face does not match reference", nil)
			return
		}
	}
	s.deps.Audit.Security(ctx, domain.EventFraudIndicator, accountID, "identity proofing rejected", map[string]string{
		"indicators": strings.Join(indicators, ","),
	})
}

func (s *service) belowMinResolution(img []byte) (bool, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return false, err
	}
	return cfg.Width < s.deps.MinImageWidth || cfg.Height < s.deps.MinImageHeight, nil
}

// decodeImage accepts raw base64 or a data URL (data:image/...;base64,...).
func decodeImage(photo string) ([]byte, error) {
	if i := strings.Index(photo, ","); i >= 0 && strings.HasPrefix(photo, "data:") {
		photo = photo[i+1:]
	}
	return base64.StdEncoding.DecodeString(photo)
}

// band rounds a score down to a coarse 0.05 step.
func band(score float64) float64 {
	if score <= 0 {
		return 0
	}
	if score >= 1 {
		return 1
	}
	return math.Floor(score/0.05) * 0.05
}

func rejectionMessage(indicators []string) string {
	for _, ind := range indicators {
		switch ind {
		case domain.IndicatorNoFace:
			return "No face detected. Please retake the photo."
		case domain.IndicatorMultipleFaces:
			return "Multiple faces detected. Please retake the photo alone."
		case domain.IndicatorLowLiveness:
			return "Liveness check failed. Please use a live camera capture."
		case domain.IndicatorFaceMismatch:
			return "Face does not match the reference identity."
		case domain.IndicatorImageTooSmall:
			return "Image resolution too low. Please use a higher quality capture."
		}
	}
	return "Identity verification failed."
}
