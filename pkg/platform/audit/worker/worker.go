// Package worker relays committed audit entries from the Postgres outbox to
// the message bus. Delivery is at-least-once; consumers dedupe on logId.
package worker

import (
	"context"
	"log/slog"
	"time"

	"ringside/internal/platform/kafka/producer"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/audit/store/postgres"
)

const (
	defaultBatchSize = 100
	defaultInterval  = 2 * time.Second
)

// Outbox is the relay's view of the audit store.
type Outbox interface {
	RelayBatch(ctx context.Context, limit int, now func() time.Time, fn func(context.Context, []postgres.OutboxRecord) error) (int, error)
}

// Publisher sends relayed entries downstream.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// Worker polls the outbox and publishes pending entries in order.
type Worker struct {
	outbox    Outbox
	publisher Publisher
	logger    *slog.Logger
	metrics   *audit.Metrics
	interval  time.Duration
	batchSize int
	clock     func() time.Time
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithMetrics(m *audit.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewWorker(outbox Outbox, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		publisher: publisher,
		logger:    slog.Default(),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled. Publish failures are logged and retried on
// the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		// Drain full batches before sleeping.
		for {
			n, err := w.RelayOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.ErrorContext(ctx, "audit relay failed", "error", err)
				break
			}
			if n < w.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were relayed.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	n, err := w.outbox.RelayBatch(ctx, w.batchSize, w.clock, func(ctx context.Context, records []postgres.OutboxRecord) error {
		msgs := make([]producer.Message, len(records))
		for i, rec := range records {
			msgs[i] = producer.Message{
				Key:     []byte(rec.LogID),
				Value:   rec.Payload,
				Headers: map[string]string{"action": rec.Action},
			}
		}
		return w.publisher.Publish(ctx, msgs...)
	})
	if w.metrics != nil {
		if err != nil {
			w.metrics.IncRelayFailures()
		} else {
			w.metrics.AddRelayPublished(n)
		}
	}
	return n, err
}
