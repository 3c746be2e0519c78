package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/election-trust-api/internal/config"
	"github.com/election-trust-api/internal/domain"
)

// Evaluation is the verdict returned by the external biometric service for
// one captured image.
type Evaluation struct {
	Genuine        bool     `json:"genuine"`
	LivenessScore  float64  `json:"liveness_score"`
	FaceConfidence float64  `json:"face_match_confidence"`
	Indicators     []string `json:"fraud_indicators"`
}

// Evaluator sends a captured image to the external face-match/liveness
// service. The image travels only for the duration of the call and is never
// persisted on this side.
type Evaluator interface {
	Evaluate(ctx context.Context, accountID string, image []byte) (*Evaluation, error)
}

type client struct {
	http *http.Client
	url  string
}

func NewClient(cfg *config.Config) Evaluator {
	return &client{
		http: &http.Client{Timeout: cfg.EvaluatorTimeout},
		url:  cfg.EvaluatorURL,
	}
}

type evaluateRequest struct {
	AccountID string `json:"account_id"`
	Image     []byte `json:"image"` // base64-encoded by encoding/json
}

// Evaluate calls the evaluator service. Transport failures, timeouts and 5xx
// responses all map to domain.ErrEvaluatorUnavailable so callers can treat
// them as retryable without inspecting the transport.
func (c *client) Evaluate(ctx context.Context, accountID string, image []byte) (*Evaluation, error) {
	body, err := json.Marshal(evaluateRequest{AccountID: accountID, Image: image})
	if err != nil {
		return nil, fmt.Errorf("marshal evaluate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evaluator call after %s: %w", time.Since(start).Round(time.Millisecond), domain.ErrEvaluatorUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("evaluator returned %d: %w", resp.StatusCode, domain.ErrEvaluatorUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("evaluator returned %d: %w", resp.StatusCode, domain.ErrBadRequest)
	}

	var eval Evaluation
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		return nil, fmt.Errorf("decode evaluator response: %w", domain.ErrEvaluatorUnavailable)
	}
	return &eval, nil
}
