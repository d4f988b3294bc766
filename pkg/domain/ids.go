// Package domain holds the typed identifiers shared by every module.
//
// Server-generated and cross-referenced entity ids are UUID-backed distinct types,
// so a ProposalID can never be passed where a BoutID is expected. Identity uids are
// opaque strings minted by the identity provider.
package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	dErrors "ringside/pkg/domain-errors"
)

type (
	ProposalID uuid.UUID
	BoutID     uuid.UUID
	SlotID     uuid.UUID
	TokenID    uuid.UUID
	ClubID     uuid.UUID
	BoxerID    uuid.UUID
	ShowID     uuid.UUID
)

// UserID is the identity provider's uid for an actor.
type UserID string

const maxUserIDLength = 128

func (i ProposalID) String() string { return uuid.UUID(i).String() }
func (i BoutID) String() string     { return uuid.UUID(i).String() }
func (i SlotID) String() string     { return uuid.UUID(i).String() }
func (i TokenID) String() string    { return uuid.UUID(i).String() }
func (i ClubID) String() string     { return uuid.UUID(i).String() }
func (i BoxerID) String() string    { return uuid.UUID(i).String() }
func (i ShowID) String() string     { return uuid.UUID(i).String() }
func (i UserID) String() string     { return string(i) }

func (i ProposalID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i BoutID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i SlotID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i TokenID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i ClubID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i BoxerID) IsNil() bool    { return uuid.UUID(i) == uuid.Nil }
func (i ShowID) IsNil() bool     { return uuid.UUID(i) == uuid.Nil }
func (i UserID) IsNil() bool     { return i == "" }

func ParseProposalID(s string) (ProposalID, error) { return parseUUID[ProposalID](s, "proposal") }
func ParseBoutID(s string) (BoutID, error)         { return parseUUID[BoutID](s, "bout") }
func ParseSlotID(s string) (SlotID, error)         { return parseUUID[SlotID](s, "slot") }
func ParseTokenID(s string) (TokenID, error)       { return parseUUID[TokenID](s, "token") }
func ParseClubID(s string) (ClubID, error)         { return parseUUID[ClubID](s, "club") }
func ParseBoxerID(s string) (BoxerID, error)       { return parseUUID[BoxerID](s, "boxer") }
func ParseShowID(s string) (ShowID, error)         { return parseUUID[ShowID](s, "show") }

// ParseUserID validates an identity provider uid at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "user id is required")
	}
	if len(s) > maxUserIDLength {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "user id is too long")
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) || r == unicode.ReplacementChar {
			return "", dErrors.New(dErrors.CodeInvalidArgument, "user id contains invalid characters")
		}
	}
	return UserID(s), nil
}

func parseUUID[T ~[16]byte](s, label string) (T, error) {
	var zero T
	if strings.TrimSpace(s) == "" {
		return zero, dErrors.New(dErrors.CodeInvalidArgument, label+" id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return zero, dErrors.New(dErrors.CodeInvalidArgument, "invalid "+label+" id")
	}
	if parsed == uuid.Nil {
		return zero, dErrors.New(dErrors.CodeInvalidArgument, label+" id cannot be nil")
	}
	return T(parsed), nil
}
