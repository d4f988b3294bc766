package models

import (
	"time"

	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

// TokenTTL is how long an issued deep-link token can be redeemed.
const TokenTTL = 7 * 24 * time.Hour

type TokenState string

const (
	TokenIssued   TokenState = "issued"
	TokenConsumed TokenState = "consumed"
	TokenExpired  TokenState = "expired"
)

// TargetType names what a deep-link token resolves to.
type TargetType string

const (
	TargetProposal TargetType = "proposal"
	TargetBout     TargetType = "bout"
)

func (t TargetType) Valid() bool {
	return t == TargetProposal || t == TargetBout
}

// TargetRef is the entity a deep-link token resolves to.
type TargetRef struct {
	Type TargetType `json:"type"`
	ID   string     `json:"id"`
}

// DeepLinkToken is a single-use pointer to an entity. Expiry is evaluated
// lazily at redemption.
type DeepLinkToken struct {
	ID         id.TokenID
	Target     TargetRef
	IssuedBy   id.UserID
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool
	State      TokenState
	ConsumedAt *time.Time
	ConsumedBy *id.UserID
}

func NewDeepLinkToken(tokenID id.TokenID, target TargetRef, issuedBy id.UserID, now time.Time) *DeepLinkToken {
	return &DeepLinkToken{
		ID:        tokenID,
		Target:    target,
		IssuedBy:  issuedBy,
		IssuedAt:  now,
		ExpiresAt: now.Add(TokenTTL),
		State:     TokenIssued,
	}
}

// IsLapsed reports whether an unconsumed token is past its expiry at now.
func (t *DeepLinkToken) IsLapsed(now time.Time) bool {
	return t.State == TokenIssued && !now.Before(t.ExpiresAt)
}

// CanRedeem checks the token is issued, unconsumed and unexpired at now.
func (t *DeepLinkToken) CanRedeem(now time.Time) error {
	switch {
	case t.Consumed || t.State == TokenConsumed:
		return dErrors.New(dErrors.CodeInvariantViolation, "token already used")
	case t.State == TokenExpired || t.IsLapsed(now):
		return dErrors.New(dErrors.CodeInvariantViolation, "token expired")
	}
	return nil
}

// ApplyRedemption flips the token to consumed. redeemer is empty for
// unauthenticated redemption.
func (t *DeepLinkToken) ApplyRedemption(redeemer id.UserID, now time.Time) {
	t.Consumed = true
	t.State = TokenConsumed
	t.ConsumedAt = &now
	if redeemer != "" {
		t.ConsumedBy = &redeemer
	}
}

// ApplyExpiry records that the token lapsed unredeemed.
func (t *DeepLinkToken) ApplyExpiry() {
	t.State = TokenExpired
}

func (t *DeepLinkToken) Clone() *DeepLinkToken {
	c := *t
	if t.ConsumedAt != nil {
		at := *t.ConsumedAt
		c.ConsumedAt = &at
	}
	if t.ConsumedBy != nil {
		by := *t.ConsumedBy
		c.ConsumedBy = &by
	}
	return &c
}
