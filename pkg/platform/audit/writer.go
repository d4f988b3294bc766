// Package audit is the append-only audit trail for every administrative and
// lifecycle action.
//
// Writer.Write is the raw contract: it stamps a server-generated id and a
// server timestamp, then appends. Writer.Record is the post-mutation path used by
// services after a transition has committed: the business effect already
// happened, so a failed append is reported at LevelCritical and counted, and the
// caller still sees success.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"ringside/pkg/requestcontext"
)

// LevelCritical sits above slog.LevelError so audit loss is distinguishable
// from ordinary mutation failures in operational logging.
const LevelCritical = slog.LevelError + 4

// Writer appends audit entries with server-assigned identity and time.
type Writer struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
	clock   func() time.Time
	newID   func() string
}

// Option configures the Writer.
type Option func(*Writer)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(w *Writer) {
		w.metrics = m
	}
}

// WithClock overrides the server clock. Tests only.
func WithClock(clock func() time.Time) Option {
	return func(w *Writer) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// NewWriter creates an audit writer over store.
func NewWriter(store Store, opts ...Option) *Writer {
	w := &Writer{
		store:  store,
		logger: slog.Default(),
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write validates and appends entry, returning the server-generated log id.
// Caller-supplied LogID and Timestamp are overwritten.
func (w *Writer) Write(ctx context.Context, entry Entry) (string, error) {
	if !entry.Action.Known() {
		return "", fmt.Errorf("audit entry has unknown action %q", entry.Action)
	}
	if entry.ActorID == "" {
		return "", fmt.Errorf("audit entry requires ActorID")
	}
	switch entry.ActorType {
	case ActorAdmin, ActorSystem, ActorUser:
	default:
		return "", fmt.Errorf("audit entry has unknown actor type %q", entry.ActorType)
	}
	if entry.TargetType == "" || entry.TargetID == "" {
		return "", fmt.Errorf("audit entry requires a target")
	}

	entry.LogID = w.newID()
	entry.Timestamp = w.clock().UTC()
	entry.Details = maps.Clone(entry.Details)
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	if entry.IPAddress == nil {
		if ip := requestcontext.ClientIP(ctx); ip != "" {
			entry.IPAddress = &ip
		}
	}
	if client := clientSummary(requestcontext.UserAgent(ctx)); client != "" {
		entry.Details["client"] = client
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		entry.Details["requestId"] = requestID
	}

	if err := w.store.Append(ctx, entry); err != nil {
		return "", fmt.Errorf("append audit entry: %w", err)
	}
	if w.metrics != nil {
		w.metrics.IncEntriesWritten(entry.Action)
	}
	return entry.LogID, nil
}

// Record writes entry after a committed mutation. Failures are logged at
// LevelCritical and counted; they are never returned.
func (w *Writer) Record(ctx context.Context, entry Entry) string {
	logID, err := w.Write(ctx, entry)
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncWriteFailures(entry.Action)
		}
		w.logger.Log(ctx, LevelCritical, "audit write failed after committed mutation",
			"action", entry.Action,
			"actor_id", entry.ActorID,
			"target_type", entry.TargetType,
			"target_id", entry.TargetID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return ""
	}
	return logID
}

// List returns entries newest first.
func (w *Writer) List(ctx context.Context, filter Filter) ([]Entry, error) {
	return w.store.List(ctx, filter)
}
