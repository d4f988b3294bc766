package models

import (
	"time"

	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

// ProposalTTL is how long a pending proposal waits for a response.
const ProposalTTL = 14 * 24 * time.Hour

// ProposalState is the lifecycle state of a Proposal.
type ProposalState string

const (
	ProposalDraft     ProposalState = "draft"
	ProposalPending   ProposalState = "pending"
	ProposalAccepted  ProposalState = "accepted"
	ProposalRejected  ProposalState = "rejected"
	ProposalWithdrawn ProposalState = "withdrawn"
	ProposalExpired   ProposalState = "expired"
)

var proposalTransitions = map[ProposalState][]ProposalState{
	ProposalDraft:   {ProposalPending, ProposalWithdrawn},
	ProposalPending: {ProposalAccepted, ProposalRejected, ProposalWithdrawn, ProposalExpired},
}

// CanTransitionTo reports whether the state machine allows s → next.
func (s ProposalState) CanTransitionTo(next ProposalState) bool {
	for _, allowed := range proposalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s ProposalState) IsTerminal() bool {
	return len(proposalTransitions[s]) == 0
}

// Window is the inclusive date range a bout is proposed for.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two inclusive windows share any instant.
func (w Window) Overlaps(other Window) bool {
	return !w.Start.After(other.End) && !other.Start.After(w.End)
}

// Proposal is a match offer from one club to another for a candidate bout.
//
// Invariants:
//   - the two clubs differ and so do the two boxers
//   - ExpiresAt is set exactly when the proposal enters Pending
//   - Accepted, Rejected, Withdrawn and Expired are terminal
type Proposal struct {
	ID                id.ProposalID
	ProposingClubID   id.ClubID
	RespondingClubID  id.ClubID
	ProposingBoxerID  id.BoxerID
	RespondingBoxerID id.BoxerID
	Window            Window
	ShowID            *id.ShowID
	State             ProposalState
	CreatedBy         id.UserID
	CreatedAt         time.Time
	UpdatedAt         time.Time
	ExpiresAt         *time.Time
}

// Boxers returns both boxer references.
func (p *Proposal) Boxers() []id.BoxerID {
	return []id.BoxerID{p.ProposingBoxerID, p.RespondingBoxerID}
}

// NewProposal validates input and builds a Draft proposal. Submit it with
// ApplySubmission to start the response clock.
func NewProposal(proposalID id.ProposalID, proposing, responding id.ClubID, proposingBoxer, respondingBoxer id.BoxerID, window Window, showID *id.ShowID, createdBy id.UserID, now time.Time) (*Proposal, error) {
	if proposing == responding {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "proposing and responding clubs must differ")
	}
	if proposingBoxer == respondingBoxer {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "a boxer cannot be matched against themselves")
	}
	if window.Start.IsZero() || window.End.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "date window is required")
	}
	if window.End.Before(window.Start) {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "date window ends before it starts")
	}
	return &Proposal{
		ID:                proposalID,
		ProposingClubID:   proposing,
		RespondingClubID:  responding,
		ProposingBoxerID:  proposingBoxer,
		RespondingBoxerID: respondingBoxer,
		Window:            Window{Start: window.Start.UTC(), End: window.End.UTC()},
		ShowID:            showID,
		State:             ProposalDraft,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsLapsed reports whether a pending proposal is past its expiry but has not
// been swept yet.
func (p *Proposal) IsLapsed(now time.Time) bool {
	return p.State == ProposalPending && p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

func (p *Proposal) CanSubmit() error {
	if p.State != ProposalDraft {
		return dErrors.New(dErrors.CodeInvariantViolation, "only draft proposals can be submitted")
	}
	return nil
}

// ApplySubmission moves the proposal to Pending and starts its expiry clock.
func (p *Proposal) ApplySubmission(now time.Time) {
	expires := now.Add(ProposalTTL)
	p.State = ProposalPending
	p.ExpiresAt = &expires
	p.UpdatedAt = now
}

// CanRespond checks the proposal is awaiting a response at now.
func (p *Proposal) CanRespond(now time.Time) error {
	if p.State != ProposalPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "proposal is not pending")
	}
	if p.IsLapsed(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "proposal has expired")
	}
	return nil
}

func (p *Proposal) ApplyAcceptance(now time.Time) {
	p.State = ProposalAccepted
	p.UpdatedAt = now
}

func (p *Proposal) ApplyRejection(now time.Time) {
	p.State = ProposalRejected
	p.UpdatedAt = now
}

func (p *Proposal) CanWithdraw() error {
	if !p.State.CanTransitionTo(ProposalWithdrawn) {
		return dErrors.New(dErrors.CodeInvariantViolation, "proposal can no longer be withdrawn")
	}
	return nil
}

func (p *Proposal) ApplyWithdrawal(now time.Time) {
	p.State = ProposalWithdrawn
	p.UpdatedAt = now
}

// CanExpire checks the proposal is pending and lapsed at now. The sweep
// re-checks this under lock so a concurrent response wins cleanly.
func (p *Proposal) CanExpire(now time.Time) error {
	if !p.IsLapsed(now) {
		return dErrors.New(dErrors.CodeInvariantViolation, "proposal is not due to expire")
	}
	return nil
}

func (p *Proposal) ApplyExpiry(now time.Time) {
	p.State = ProposalExpired
	p.UpdatedAt = now
}

// Clone returns a deep copy.
func (p *Proposal) Clone() *Proposal {
	c := *p
	if p.ShowID != nil {
		show := *p.ShowID
		c.ShowID = &show
	}
	if p.ExpiresAt != nil {
		exp := *p.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}
