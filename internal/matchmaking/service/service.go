// Package service is the matchmaking state transition engine. Each exported
// method is one legal transition; clients never write entity state directly.
//
// Every transition follows the same shape: validate input, authorize against
// the locked entity inside a store transaction, apply the model transition,
// commit, then record the audit entry. Audit loss after commit is reported by
// the audit writer and never fails the caller.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ringside/internal/access"
	"ringside/internal/matchmaking/store"
	"ringside/internal/platform/metrics"
	"ringside/internal/roster"
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
	audit "ringside/pkg/platform/audit"
	"ringside/pkg/platform/sentinel"
	"ringside/pkg/requestcontext"
)

const sweepParallelism = 4

// Roster resolves boxers to their clubs.
type Roster interface {
	FindBoxer(ctx context.Context, boxerID id.BoxerID) (*roster.Boxer, error)
}

// KillSwitch reports whether proposal creation is blocked.
type KillSwitch interface {
	IsProposalCreationBlocked(ctx context.Context) (bool, error)
}

// AuditRecorder records an entry after a committed mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) string
}

// Service applies matchmaking transitions.
type Service struct {
	store      store.Store
	roster     Roster
	killSwitch KillSwitch
	audit      AuditRecorder
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	newID      func() uuid.UUID
	sweepBatch int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithIDGenerator overrides uuid generation. Tests only.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithSweepBatch caps how many lapsed proposals one sweep handles.
func WithSweepBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

func New(st store.Store, rosterStore Roster, killSwitch KillSwitch, recorder AuditRecorder, opts ...Option) *Service {
	s := &Service{
		store:      st,
		roster:     rosterStore,
		killSwitch: killSwitch,
		audit:      recorder,
		logger:     slog.Default(),
		tracer:     otel.Tracer("ringside/matchmaking"),
		newID:      uuid.New,
		sweepBatch: 500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// startSpan opens a span for a transition. end records err on the span and the
// error counter.
func (s *Service) startSpan(ctx context.Context, transition string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := s.tracer.Start(ctx, "matchmaking."+transition, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
			if s.metrics != nil {
				s.metrics.IncTransitionError(transition, string(dErrors.CodeOf(err)))
			}
		}
		span.End()
	}
}

func (s *Service) countTransition(entity, transition string) {
	if s.metrics != nil {
		s.metrics.IncTransition(entity, transition)
	}
}

// requireIdentity applies the authentication rule ahead of any lookup so an
// anonymous caller learns nothing about entity existence.
func requireIdentity(ctx context.Context, action access.Action) (*id.Identity, error) {
	identity := requestcontext.Identity(ctx)
	if identity == nil {
		return nil, access.Authorize(nil, action, access.Target{}).Err()
	}
	return identity, nil
}

// translate maps store and model errors onto caller-visible codes. Coded errors
// pass through, invariant violations become failed preconditions, and
// everything else is internal.
func translate(err error, notFound string, op string) error {
	if err == nil {
		return nil
	}
	if de, ok := dErrors.As(err); ok {
		if de.Code == dErrors.CodeInvariantViolation {
			return dErrors.New(dErrors.CodeFailedPrecondition, de.Message)
		}
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrRetryExhausted):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op+": too much contention")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
	}
}
