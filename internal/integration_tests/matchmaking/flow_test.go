package matchmaking

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringside/internal/identity"
	"ringside/internal/integration_tests/stack"
	"ringside/internal/matchmaking/models"
	"ringside/internal/roster"
	id "ringside/pkg/domain"
	audit "ringside/pkg/platform/audit"
)

type harness struct {
	*stack.Stack
}

func newStack(t *testing.T, users []identity.User, boxers []roster.Boxer) *harness {
	t.Helper()
	s, err := stack.New(stack.WithUsers(users...), stack.WithBoxers(boxers...))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &harness{Stack: s}
}

func (h *harness) token(t *testing.T, who identity.User) string {
	t.Helper()
	tok, err := h.Token(who)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, bearer string, body any, out any) int {
	t.Helper()
	res, err := h.Do(stack.Request{Method: method, Path: path, Bearer: bearer, Body: body})
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, res.Decode(out))
	}
	return res.Status
}

func TestMatchmakingFlow_ProposalToVoidedBout(t *testing.T) {
	redClub := id.ClubID(uuid.New())
	blueClub := id.ClubID(uuid.New())
	redBoxer := roster.Boxer{ID: id.BoxerID(uuid.New()), ClubID: redClub, Name: "Red", Active: true}
	blueBoxer := roster.Boxer{ID: id.BoxerID(uuid.New()), ClubID: blueClub, Name: "Blue", Active: true}

	admin := identity.User{UID: "admin-1", Claims: id.Claims{IsPlatformAdmin: true}}
	redCoach := identity.User{UID: "red-coach", ClubID: &redClub}
	blueCoach := identity.User{UID: "blue-coach", ClubID: &blueClub}

	s := newStack(t, []identity.User{admin, redCoach, blueCoach}, []roster.Boxer{redBoxer, blueBoxer})
	show := uuid.NewString()
	start := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)
	create := map[string]any{
		"proposingClubId":   redClub.String(),
		"respondingClubId":  blueClub.String(),
		"proposingBoxerId":  redBoxer.ID.String(),
		"respondingBoxerId": blueBoxer.ID.String(),
		"windowStart":       start,
		"windowEnd":         start.Add(48 * time.Hour),
		"showId":            show,
	}

	// No settings document yet: creation is blocked.
	var errBody map[string]string
	status := s.do(t, http.MethodPost, "/v1/proposals", s.token(t, redCoach), create, &errBody)
	require.Equal(t, http.StatusPreconditionFailed, status)

	// The gate answers ahead of body validation.
	for _, body := range []any{map[string]any{"windowStart": "yesterday"}, map[string]any{"unexpected": 1}} {
		status = s.do(t, http.MethodPost, "/v1/proposals", s.token(t, redCoach), body, &errBody)
		require.Equal(t, http.StatusPreconditionFailed, status)
		assert.Equal(t, "failed-precondition", errBody["error"])
	}

	status = s.do(t, http.MethodPut, "/v1/admin/settings/kill-switch", s.token(t, redCoach), map[string]any{"enabled": false}, nil)
	require.Equal(t, http.StatusForbidden, status)

	var ks map[string]any
	status = s.do(t, http.MethodPut, "/v1/admin/settings/kill-switch", s.token(t, admin), map[string]any{"enabled": false}, &ks)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, ks["proposalKillSwitch"])

	var proposal struct {
		ProposalID string `json:"proposalId"`
		Status     string `json:"status"`
	}
	status = s.do(t, http.MethodPost, "/v1/proposals", s.token(t, redCoach), map[string]any{"unexpected": 1}, &errBody)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid-argument", errBody["error"])

	status = s.do(t, http.MethodPost, "/v1/proposals", s.token(t, redCoach), create, &proposal)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "pending", proposal.Status)

	// The proposing club cannot answer its own proposal.
	status = s.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/respond", s.token(t, redCoach),
		map[string]any{"decision": "accept"}, nil)
	require.Equal(t, http.StatusForbidden, status)

	var respond struct {
		Status string `json:"status"`
		BoutID string `json:"boutId"`
		SlotID string `json:"slotId"`
	}
	status = s.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/respond", s.token(t, blueCoach),
		map[string]any{"decision": "accept", "showId": show}, &respond)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "accepted", respond.Status)
	require.NotEmpty(t, respond.BoutID)
	require.NotEmpty(t, respond.SlotID)
	assert.Equal(t, 1, s.Match.CountBouts())

	// A second acceptance sees the terminal state.
	status = s.do(t, http.MethodPost, "/v1/proposals/"+proposal.ProposalID+"/respond", s.token(t, blueCoach),
		map[string]any{"decision": "accept"}, nil)
	require.Equal(t, http.StatusPreconditionFailed, status)
	assert.Equal(t, 1, s.Match.CountBouts())

	var tok struct {
		TokenID string `json:"tokenId"`
	}
	status = s.do(t, http.MethodPost, "/v1/tokens", s.token(t, blueCoach),
		map[string]any{"targetType": "bout", "targetId": respond.BoutID}, &tok)
	require.Equal(t, http.StatusCreated, status)

	var redeemed struct {
		ResolvedTarget models.TargetRef `json:"resolvedTarget"`
	}
	status = s.do(t, http.MethodPost, "/v1/tokens/"+tok.TokenID+"/redeem", "", nil, &redeemed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.TargetBout, redeemed.ResolvedTarget.Type)
	assert.Equal(t, respond.BoutID, redeemed.ResolvedTarget.ID)

	status = s.do(t, http.MethodPost, "/v1/tokens/"+tok.TokenID+"/redeem", "", nil, nil)
	require.Equal(t, http.StatusPreconditionFailed, status)

	var voided struct {
		Status string `json:"status"`
	}
	status = s.do(t, http.MethodPost, "/v1/bouts/"+respond.BoutID+"/void", s.token(t, redCoach),
		map[string]any{"reason": "injury"}, &voided)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "voided", voided.Status)

	var logs struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	status = s.do(t, http.MethodGet, "/v1/admin/audit-logs?limit=100", s.token(t, admin), nil, &logs)
	require.Equal(t, http.StatusOK, status)

	var actions []string
	for _, e := range logs.Entries {
		actions = append(actions, e.Action)
	}
	assert.Subset(t, actions, []string{
		string(audit.ActionSettingsUpdated),
		string(audit.ActionProposalCreated),
		string(audit.ActionProposalAccepted),
		string(audit.ActionTokenIssued),
		string(audit.ActionTokenRedeemed),
		string(audit.ActionBoutVoided),
	})
	assert.Equal(t, 1, s.Audit.Count(audit.ActionBoutVoided))
}

func TestMatchmakingFlow_AdminClaimGrant(t *testing.T) {
	admin := identity.User{UID: "admin-1", Claims: id.Claims{IsPlatformAdmin: true}}
	coach := identity.User{UID: "coach-1"}
	s := newStack(t, []identity.User{admin, coach}, nil)

	status := s.do(t, http.MethodPost, "/v1/admin/claims", "", map[string]any{"targetUid": "coach-1", "isAdmin": true}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status = s.do(t, http.MethodPost, "/v1/admin/claims", s.token(t, coach), map[string]any{"targetUid": "coach-1", "isAdmin": true}, nil)
	require.Equal(t, http.StatusForbidden, status)

	var resp struct {
		Success bool `json:"success"`
	}
	status = s.do(t, http.MethodPost, "/v1/admin/claims", s.token(t, admin), map[string]any{"targetUid": "coach-1", "isAdmin": true}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)

	status = s.do(t, http.MethodPost, "/v1/admin/claims", s.token(t, admin), map[string]any{"targetUid": "ghost", "isAdmin": true}, nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 1, s.Audit.Count(audit.ActionAdminClaimGranted))
}
