package httptransport

import (
	"encoding/json"
	"time"

	"ringside/internal/matchmaking/models"
	audit "ringside/pkg/platform/audit"
)

type setAdminClaimRequest struct {
	TargetUID string          `json:"targetUid"`
	IsAdmin   json.RawMessage `json:"isAdmin"`
}

type setAdminClaimResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type setKillSwitchRequest struct {
	Enabled json.RawMessage `json:"enabled"`
}

type killSwitchResponse struct {
	ProposalKillSwitch bool      `json:"proposalKillSwitch"`
	Version            int64     `json:"version"`
	UpdatedAt          time.Time `json:"updatedAt"`
	UpdatedBy          string    `json:"updatedBy"`
}

type createProposalRequest struct {
	ProposingClubID   string    `json:"proposingClubId"`
	RespondingClubID  string    `json:"respondingClubId"`
	ProposingBoxerID  string    `json:"proposingBoxerId"`
	RespondingBoxerID string    `json:"respondingBoxerId"`
	WindowStart       time.Time `json:"windowStart"`
	WindowEnd         time.Time `json:"windowEnd"`
	ShowID            string    `json:"showId,omitempty"`
	Draft             bool      `json:"draft,omitempty"`
}

type proposalResponse struct {
	ProposalID string     `json:"proposalId"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type respondRequest struct {
	Decision string `json:"decision"`
	ShowID   string `json:"showId,omitempty"`
}

type respondResponse struct {
	Status string `json:"status"`
	BoutID string `json:"boutId,omitempty"`
	SlotID string `json:"slotId,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type voidBoutRequest struct {
	Reason string `json:"reason"`
}

type issueTokenRequest struct {
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
}

type issueTokenResponse struct {
	TokenID   string    `json:"tokenId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type redeemTokenResponse struct {
	ResolvedTarget models.TargetRef `json:"resolvedTarget"`
}

type auditEntryResponse struct {
	LogID        string         `json:"logId"`
	Action       string         `json:"action"`
	ActorID      string         `json:"actorId"`
	ActorType    string         `json:"actorType"`
	TargetType   string         `json:"targetType"`
	TargetID     string         `json:"targetId"`
	TargetClubID *string        `json:"targetClubId,omitempty"`
	Details      map[string]any `json:"details"`
	Timestamp    time.Time      `json:"timestamp"`
	IPAddress    *string        `json:"ipAddress,omitempty"`
}

type auditLogsResponse struct {
	Entries []auditEntryResponse `json:"entries"`
}

// optionalBool reads a JSON boolean. Absent, null, and non-boolean values all
// yield nil so the service can report them after authorization.
func optionalBool(raw json.RawMessage) *bool {
	if len(raw) == 0 {
		return nil
	}
	var b *bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil
	}
	return b
}

func toProposalResponse(p *models.Proposal) proposalResponse {
	return proposalResponse{
		ProposalID: p.ID.String(),
		Status:     string(p.State),
		ExpiresAt:  p.ExpiresAt,
	}
}

func toAuditEntryResponse(e audit.Entry) auditEntryResponse {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return auditEntryResponse{
		LogID:        e.LogID,
		Action:       string(e.Action),
		ActorID:      e.ActorID,
		ActorType:    string(e.ActorType),
		TargetType:   string(e.TargetType),
		TargetID:     e.TargetID,
		TargetClubID: e.TargetClubID,
		Details:      details,
		Timestamp:    e.Timestamp,
		IPAddress:    e.IPAddress,
	}
}
