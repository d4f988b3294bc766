// Package scheduler triggers the proposal expiry sweep on a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"ringside/internal/matchmaking/service"
	"ringside/pkg/requestcontext"
)

// Sweeper expires lapsed proposals.
type Sweeper interface {
	ExpireProposals(ctx context.Context) (*service.SweepResult, error)
}

// Locker is a cross-replica lease. Acquire reports false when another holder
// owns it.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Scheduler runs the sweep once per interval.
type Scheduler struct {
	sweeper  Sweeper
	locker   Locker
	interval time.Duration
	leaseTTL time.Duration
	clock    func() time.Time
	logger   *slog.Logger
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithLocker enables single-sweeper election. Without it every replica sweeps.
func WithLocker(locker Locker) Option {
	return func(s *Scheduler) {
		s.locker = locker
	}
}

// WithClock overrides the sweep cutoff clock. Tests only.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

func New(sweeper Sweeper, interval time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		leaseTTL: interval / 2,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.leaseTTL < time.Second {
		s.leaseTTL = time.Second
	}
	return s
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "expiry scheduler started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep. It returns nil when the lease is held elsewhere or the
// sweep could not list candidates.
func (s *Scheduler) Tick(ctx context.Context) *service.SweepResult {
	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, s.leaseTTL)
		if err != nil {
			s.logger.WarnContext(ctx, "sweep lease unavailable", "error", err)
			return nil
		}
		if !acquired {
			s.logger.DebugContext(ctx, "sweep lease held by another replica")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "sweep lease release failed", "error", err)
			}
		}()
	}

	sweepCtx := requestcontext.WithTime(ctx, s.clock().UTC())
	result, err := s.sweeper.ExpireProposals(sweepCtx)
	if err != nil {
		s.logger.ErrorContext(ctx, "expiry sweep failed", "error", err)
		return nil
	}
	s.logger.InfoContext(ctx, "expiry sweep finished",
		"expired", len(result.Expired),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	return result
}
