package models

import (
	"strings"
	"time"

	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

const maxVoidReasonLength = 500

type BoutState string

const (
	BoutConfirmed BoutState = "confirmed"
	BoutVoided    BoutState = "voided"
)

// Bout is an agreed match created exactly once from an accepted proposal.
type Bout struct {
	ID          id.BoutID
	ProposalID  id.ProposalID
	RedClubID   id.ClubID
	BlueClubID  id.ClubID
	RedBoxerID  id.BoxerID
	BlueBoxerID id.BoxerID
	ShowID      *id.ShowID
	State       BoutState
	VoidReason  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewBoutFromProposal builds the confirmed bout for an accepted proposal.
// The proposing side is red corner.
func NewBoutFromProposal(boutID id.BoutID, p *Proposal, showID *id.ShowID, now time.Time) *Bout {
	return &Bout{
		ID:          boutID,
		ProposalID:  p.ID,
		RedClubID:   p.ProposingClubID,
		BlueClubID:  p.RespondingClubID,
		RedBoxerID:  p.ProposingBoxerID,
		BlueBoxerID: p.RespondingBoxerID,
		ShowID:      showID,
		State:       BoutConfirmed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clubs returns both clubs in corner order.
func (b *Bout) Clubs() []id.ClubID {
	return []id.ClubID{b.RedClubID, b.BlueClubID}
}

func (b *Bout) CanVoid(reason string) error {
	if b.State != BoutConfirmed {
		return dErrors.New(dErrors.CodeInvariantViolation, "bout is already voided")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return dErrors.New(dErrors.CodeInvalidArgument, "void reason is required")
	}
	if len(reason) > maxVoidReasonLength {
		return dErrors.New(dErrors.CodeInvalidArgument, "void reason is too long")
	}
	return nil
}

func (b *Bout) ApplyVoid(reason string, now time.Time) {
	b.State = BoutVoided
	b.VoidReason = strings.TrimSpace(reason)
	b.UpdatedAt = now
}

func (b *Bout) Clone() *Bout {
	c := *b
	if b.ShowID != nil {
		show := *b.ShowID
		c.ShowID = &show
	}
	return &c
}
