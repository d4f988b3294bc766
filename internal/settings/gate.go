package settings

import (
	"context"
	"errors"
	"log/slog"

	dErrors "ringside/pkg/domain-errors"
	"ringside/pkg/platform/sentinel"
)

// Reader loads the settings document.
type Reader interface {
	Get(ctx context.Context) (*AdminSettings, error)
}

// Gate answers whether proposal creation is currently blocked. Every call
// reads the store; nothing is cached, so a flip takes effect on the next call.
type Gate struct {
	store  Reader
	logger *slog.Logger
}

func NewGate(store Reader, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, logger: logger}
}

// IsProposalCreationBlocked fails closed: a missing document blocks, and a read
// failure blocks and returns an internal error.
func (g *Gate) IsProposalCreationBlocked(ctx context.Context) (bool, error) {
	doc, err := g.store.Get(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		g.logger.WarnContext(ctx, "admin settings document missing; proposal creation blocked")
		return true, nil
	}
	if err != nil {
		g.logger.ErrorContext(ctx, "failed to read admin settings; proposal creation blocked", "error", err)
		return true, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read admin settings")
	}
	return doc.ProposalKillSwitch, nil
}
