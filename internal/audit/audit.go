// Package audit records who did what to which document. Events are appended
// to an events collection for the admin activity view; recording failures
// are logged and never fail the operation being audited.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docstore/internal/jsonstore"
)

// Event is one audited action.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder accepts audit events.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

const collection = "events"

// Logger writes events to the jsonstore events collection and mirrors them
// to slog.
type Logger struct {
	store *jsonstore.Store
	log   *slog.Logger
}

// NewLogger creates an audit recorder over the shared store.
func NewLogger(store *jsonstore.Store, log *slog.Logger) *Logger {
	return &Logger{store: store, log: log}
}

var _ Recorder = (*Logger)(nil)

func (l *Logger) Record(ctx context.Context, e Event) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	l.log.Info("audit event",
		"action", e.Action,
		"resource", e.Resource,
		"resource_id", e.ResourceID,
		"actor", e.Actor,
	)

	err := jsonstore.Update(ctx, l.store, collection, func(events []Event) ([]Event, error) {
		return append(events, e), nil
	})
	if err != nil {
		l.log.Warn("audit event not persisted", "action", e.Action, "error", err)
	}
}

// Nop discards events. Useful in tests.
type Nop struct{}

func (Nop) Record(ctx context.Context, e Event) {}
