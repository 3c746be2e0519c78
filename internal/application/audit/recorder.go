package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/election-trust-api/internal/domain"
	"github.com/election-trust-api/internal/pkg/id"
)

// EventStore is the append-only sink for audit events.
type EventStore interface {
	Append(ctx context.Context, e *domain.SecurityEvent) error
	ListRecent(ctx context.Context, category string, limit int32) ([]domain.SecurityEvent, error)
}

// Recorder captures security and activity events from the pipeline. Failures
// to persist are logged but never fail the request that produced the event —
// the durable log is a byproduct, not a gate.
type Recorder struct {
	store EventStore
}

func NewRecorder(store EventStore) *Recorder {
	return &Recorder{store: store}
}

// Security records a security-relevant event (lockouts, code failures, fraud
// indicators, mismatches). Written regardless of how generic the
// user-visible error was.
func (r *Recorder) Security(ctx context.Context, eventType, accountID, detail string, metadata map[string]string) {
	r.append(ctx, domain.EventCategorySecurity, eventType, accountID, detail, metadata)
}

// Activity records a normal pipeline step for the admin activity feed.
func (r *Recorder) Activity(ctx context.Context, eventType, accountID, detail string, metadata map[string]string) {
	r.append(ctx, domain.EventCategoryActivity, eventType, accountID, detail, metadata)
}

func (r *Recorder) append(ctx context.Context, category, eventType, accountID, detail string, metadata map[string]string) {
	if r == nil || r.store == nil {
		return
	}
	e := &domain.SecurityEvent{
		EventID:   id.New(),
		Category:  category,
		Type:      eventType,
		AccountID: accountID,
		Detail:    detail,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Append(ctx, e); err != nil {
		slog.Warn("failed to append audit event", "type", eventType, "account_id", accountID, "err", err)
	}
}

// Recent returns the newest events in a category, bounded by limit.
func (r *Recorder) Recent(ctx context.Context, category string, limit int32) ([]domain.SecurityEvent, error) {
	if r == nil || r.store == nil {
		return nil, nil
	}
	return r.store.ListRecent(ctx, category, limit)
}
