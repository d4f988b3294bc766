// Package store persists matchmaking entities behind a single transactional
// boundary. Every transition runs inside RunInTx; reads taken through the Tx
// are locked until the callback returns, so validate-then-mutate is atomic.
//
// Missing rows are reported as sentinel.ErrNotFound and a second bout for the
// same proposal as sentinel.ErrConflict.
package store

import (
	"context"
	"time"

	"ringside/internal/matchmaking/models"
	id "ringside/pkg/domain"
)

// Tx is the unit of work handed to RunInTx callbacks.
type Tx interface {
	GetProposal(ctx context.Context, proposalID id.ProposalID) (*models.Proposal, error)
	InsertProposal(ctx context.Context, p *models.Proposal) error
	UpdateProposal(ctx context.Context, p *models.Proposal) error
	// HasPendingConflict reports whether a pending proposal other than exclude
	// involves any of boxers in a window overlapping window.
	HasPendingConflict(ctx context.Context, boxers []id.BoxerID, window models.Window, exclude id.ProposalID) (bool, error)

	GetBout(ctx context.Context, boutID id.BoutID) (*models.Bout, error)
	InsertBout(ctx context.Context, b *models.Bout) error
	UpdateBout(ctx context.Context, b *models.Bout) error

	// GetSlotByBout returns the slot currently holding boutID.
	GetSlotByBout(ctx context.Context, boutID id.BoutID) (*models.Slot, error)
	InsertSlot(ctx context.Context, s *models.Slot) error
	UpdateSlot(ctx context.Context, s *models.Slot) error

	GetToken(ctx context.Context, tokenID id.TokenID) (*models.DeepLinkToken, error)
	InsertToken(ctx context.Context, t *models.DeepLinkToken) error
	UpdateToken(ctx context.Context, t *models.DeepLinkToken) error
}

// Store is implemented by the in-memory and Postgres adapters.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// ListLapsedProposals returns ids of pending proposals whose expiry is at or
	// before cutoff, oldest expiry first.
	ListLapsedProposals(ctx context.Context, cutoff time.Time, limit int) ([]id.ProposalID, error)
}
