package audit

import (
	"context"
	"time"

	id "ringside/pkg/domain"
)

// ActorType classifies who performed an audited action.
type ActorType string

const (
	// ActorAdmin is a human caller holding the platform admin claim.
	ActorAdmin ActorType = "admin"
	// ActorSystem is server-driven work with no caller, such as the expiry sweep.
	ActorSystem ActorType = "system"
	// ActorUser is a human caller acting through a club affiliation.
	ActorUser ActorType = "user"
)

// Action is the enumerated kind of an audit entry.
type Action string

const (
	// Admin role model
	ActionAdminClaimGranted Action = "admin.claim.granted"
	ActionAdminClaimRevoked Action = "admin.claim.revoked"
	ActionSettingsUpdated   Action = "admin.settings.updated"

	// Proposal lifecycle
	ActionProposalDrafted   Action = "proposal.drafted"
	ActionProposalCreated   Action = "proposal.created"
	ActionProposalSubmitted Action = "proposal.submitted"
	ActionProposalAccepted  Action = "proposal.accepted"
	ActionProposalRejected  Action = "proposal.rejected"
	ActionProposalWithdrawn Action = "proposal.withdrawn"
	ActionProposalExpired   Action = "proposal.expired"

	// Bout lifecycle
	ActionBoutVoided Action = "bout.voided"

	// Deep-link tokens
	ActionTokenIssued   Action = "token.issued"
	ActionTokenRedeemed Action = "token.redeemed"
)

// TargetType names the kind of entity an audit entry refers to.
type TargetType string

const (
	TargetIdentity TargetType = "identity"
	TargetSettings TargetType = "settings"
	TargetProposal TargetType = "proposal"
	TargetBout     TargetType = "bout"
	TargetSlot     TargetType = "slot"
	TargetToken    TargetType = "token"
)

// knownActions is the closed set of actions the writer accepts.
var knownActions = map[Action]struct{}{
	ActionAdminClaimGranted: {},
	ActionAdminClaimRevoked: {},
	ActionSettingsUpdated:   {},
	ActionProposalDrafted:   {},
	ActionProposalCreated:   {},
	ActionProposalSubmitted: {},
	ActionProposalAccepted:  {},
	ActionProposalRejected:  {},
	ActionProposalWithdrawn: {},
	ActionProposalExpired:   {},
	ActionBoutVoided:        {},
	ActionTokenIssued:       {},
	ActionTokenRedeemed:     {},
}

// Known reports whether a is one of the enumerated audit actions.
func (a Action) Known() bool {
	_, ok := knownActions[a]
	return ok
}

// Entry is one immutable audit record. LogID and Timestamp are always assigned
// by the Writer; values set by callers are discarded.
type Entry struct {
	LogID        string
	Action       Action
	ActorID      string
	ActorType    ActorType
	TargetType   TargetType
	TargetID     string
	TargetClubID *string
	Details      map[string]any
	Timestamp    time.Time
	IPAddress    *string
}

// Filter narrows a List query. Zero values match everything.
type Filter struct {
	Action     Action
	TargetType TargetType
	TargetID   string
	Limit      int
}

// Store is an append-only sink for audit entries. Implementations never expose
// update or delete operations.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// SystemActorID identifies scheduler-driven work in audit entries.
const SystemActorID = "scheduler"

// ActorFor derives the actor columns for a caller identity. A nil identity is
// recorded as the anonymous user.
func ActorFor(identity *id.Identity) (string, ActorType) {
	if identity == nil {
		return "anonymous", ActorUser
	}
	if identity.IsPlatformAdmin() {
		return identity.UID.String(), ActorAdmin
	}
	return identity.UID.String(), ActorUser
}

// ClubRef renders an optional club reference for TargetClubID.
func ClubRef(club id.ClubID) *string {
	if club.IsNil() {
		return nil
	}
	s := club.String()
	return &s
}
