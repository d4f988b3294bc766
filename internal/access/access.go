// Package access evaluates whether a caller may perform an action on a target.
//
// Rules are evaluated in table order and the first matching rule decides:
//
//  0. every action except token redemption requires an identity
//  1. admin-only actions require the platform admin claim
//  2. actions on a proposal, bout or slot require affiliation with one of the
//     target's clubs, or the platform admin claim
//  3. token redemption requires a live token; affiliation is not checked
//
// Actions that match no rule are denied. Authorize has no side effects.
package access

import (
	id "ringside/pkg/domain"
	dErrors "ringside/pkg/domain-errors"
)

// Action is an operation subject to authorization.
type Action string

const (
	ActionGrantAdminClaim   Action = "admin.claim.grant"
	ActionRevokeAdminClaim  Action = "admin.claim.revoke"
	ActionUpdateKillSwitch  Action = "admin.settings.update"
	ActionReadAuditLog      Action = "admin.audit.read"
	ActionCreateProposal    Action = "proposal.create"
	ActionSubmitProposal    Action = "proposal.submit"
	ActionRespondToProposal Action = "proposal.respond"
	ActionWithdrawProposal  Action = "proposal.withdraw"
	ActionVoidBout          Action = "bout.void"
	ActionIssueToken        Action = "token.issue"
	ActionRedeemToken       Action = "token.redeem"
)

var adminOnly = map[Action]bool{
	ActionGrantAdminClaim:  true,
	ActionRevokeAdminClaim: true,
	ActionUpdateKillSwitch: true,
	ActionReadAuditLog:     true,
}

var clubScoped = map[Action]bool{
	ActionCreateProposal:    true,
	ActionSubmitProposal:    true,
	ActionRespondToProposal: true,
	ActionWithdrawProposal:  true,
	ActionVoidBout:          true,
	ActionIssueToken:        true,
}

// TokenStatus is the resolved state of a deep-link token at decision time.
type TokenStatus int

const (
	TokenUnresolved TokenStatus = iota
	TokenLive
	TokenConsumed
	TokenExpired
)

// Target is what an action applies to. Clubs lists the club references the
// caller may act through; the service picks them per action (the responding
// club for a response, the proposing club for a withdrawal, both for a void).
type Target struct {
	Clubs []id.ClubID
	Token TokenStatus
}

// ClubTarget builds a target scoped to the given clubs.
func ClubTarget(clubs ...id.ClubID) Target {
	return Target{Clubs: clubs}
}

// TokenTarget builds a redemption target.
func TokenTarget(status TokenStatus) Target {
	return Target{Token: status}
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Rule    int
	Code    dErrors.Code
	Reason  string
}

// Err converts a denial into a coded error. Allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return dErrors.New(d.Code, d.Reason)
}

func allow(rule int) Decision {
	return Decision{Allowed: true, Rule: rule}
}

func deny(rule int, code dErrors.Code, reason string) Decision {
	return Decision{Rule: rule, Code: code, Reason: reason}
}

type rule struct {
	matches func(identity *id.Identity, action Action) bool
	decide  func(identity *id.Identity, action Action, target Target) Decision
}

var rules = []rule{
	{
		matches: func(identity *id.Identity, action Action) bool {
			return identity == nil && action != ActionRedeemToken
		},
		decide: func(*id.Identity, Action, Target) Decision {
			return deny(0, dErrors.CodeUnauthenticated, "authentication required")
		},
	},
	{
		matches: func(_ *id.Identity, action Action) bool { return adminOnly[action] },
		decide: func(identity *id.Identity, _ Action, _ Target) Decision {
			if identity.IsPlatformAdmin() {
				return allow(1)
			}
			return deny(1, dErrors.CodePermissionDenied, "platform admin claim required")
		},
	},
	{
		matches: func(_ *id.Identity, action Action) bool { return clubScoped[action] },
		decide: func(identity *id.Identity, _ Action, target Target) Decision {
			if identity.IsPlatformAdmin() || identity.AffiliatedWith(target.Clubs...) {
				return allow(2)
			}
			return deny(2, dErrors.CodePermissionDenied, "caller is not affiliated with the target club")
		},
	},
	{
		matches: func(_ *id.Identity, action Action) bool { return action == ActionRedeemToken },
		decide: func(_ *id.Identity, _ Action, target Target) Decision {
			switch target.Token {
			case TokenLive:
				return allow(3)
			case TokenConsumed:
				return deny(3, dErrors.CodeFailedPrecondition, "token already used")
			case TokenExpired:
				return deny(3, dErrors.CodeFailedPrecondition, "token expired")
			default:
				return deny(3, dErrors.CodeNotFound, "token not found")
			}
		},
	},
}

// Authorize evaluates the rule table for identity performing action on target.
// A nil identity is an unauthenticated caller.
func Authorize(identity *id.Identity, action Action, target Target) Decision {
	for _, r := range rules {
		if r.matches(identity, action) {
			return r.decide(identity, action, target)
		}
	}
	return deny(-1, dErrors.CodePermissionDenied, "action not permitted")
}
