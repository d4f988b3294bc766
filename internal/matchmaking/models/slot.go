package models

import (
	"time"

	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

type SlotState string

const (
	SlotOpen     SlotState = "open"
	SlotFilled   SlotState = "filled"
	SlotReleased SlotState = "released"
)

// Slot is a position on a show's card. A filled slot links exactly one bout.
type Slot struct {
	ID        id.SlotID
	ShowID    id.ShowID
	BoutID    *id.BoutID
	State     SlotState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewFilledSlot places boutID on showID's card.
func NewFilledSlot(slotID id.SlotID, showID id.ShowID, boutID id.BoutID, now time.Time) *Slot {
	return &Slot{
		ID:        slotID,
		ShowID:    showID,
		BoutID:    &boutID,
		State:     SlotFilled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Slot) CanRelease() error {
	if s.State != SlotFilled {
		return dErrors.New(dErrors.CodeInvariantViolation, "slot is not filled")
	}
	return nil
}

// ApplyRelease frees the slot. The bout reference is kept for history.
func (s *Slot) ApplyRelease(now time.Time) {
	s.State = SlotReleased
	s.UpdatedAt = now
}

func (s *Slot) Clone() *Slot {
	c := *s
	if s.BoutID != nil {
		bout := *s.BoutID
		c.BoutID = &bout
	}
	return &c
}
