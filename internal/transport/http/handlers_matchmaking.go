package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"ringside/internal/matchmaking/models"
	matchsvc "ringside/internal/matchmaking/service"
	dErrors "ringside/pkg/domain-errors"
	"ringside/pkg/platform/httputil"
	"ringside/pkg/requestcontext"
)

// fail writes err and logs it. Internal errors are logged at error level with
// the underlying cause; caller errors at debug.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "callable failed",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		h.logger.DebugContext(ctx, "callable rejected",
			"op", op,
			"kind", string(dErrors.CodeOf(err)),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}

// handleCreateProposal passes an undecodable body through to the service so
// the kill switch still answers first.
func (h *Handler) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	bodyErr := httputil.DecodeJSON(r, &req)
	if bodyErr != nil {
		req = createProposalRequest{}
	}

	proposal, err := h.matchmaking.CreateProposal(r.Context(), matchsvc.CreateProposalInput{
		ProposingClubID:   req.ProposingClubID,
		RespondingClubID:  req.RespondingClubID,
		ProposingBoxerID:  req.ProposingBoxerID,
		RespondingBoxerID: req.RespondingBoxerID,
		WindowStart:       req.WindowStart,
		WindowEnd:         req.WindowEnd,
		ShowID:            req.ShowID,
		Draft:             req.Draft,
		BodyErr:           bodyErr,
	})
	if err != nil {
		h.fail(w, r, "createProposal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toProposalResponse(proposal))
}

func (h *Handler) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	proposal, err := h.matchmaking.SubmitProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "submitProposal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toProposalResponse(proposal))
}

func (h *Handler) handleRespondToProposal(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "respondToProposal", err)
		return
	}

	result, err := h.matchmaking.RespondToProposal(r.Context(), chi.URLParam(r, "id"), matchsvc.Decision(req.Decision), req.ShowID)
	if err != nil {
		h.fail(w, r, "respondToProposal", err)
		return
	}
	resp := respondResponse{Status: string(result.Status)}
	if result.BoutID != nil {
		resp.BoutID = result.BoutID.String()
	}
	if result.SlotID != nil {
		resp.SlotID = result.SlotID.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleWithdrawProposal(w http.ResponseWriter, r *http.Request) {
	state, err := h.matchmaking.WithdrawProposal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "withdrawProposal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: string(state)})
}

func (h *Handler) handleVoidBout(w http.ResponseWriter, r *http.Request) {
	var req voidBoutRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "voidBout", err)
		return
	}

	bout, err := h.matchmaking.VoidBout(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, r, "voidBout", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, statusResponse{Status: string(bout.State)})
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, "issueToken", err)
		return
	}

	tok, err := h.matchmaking.IssueToken(r.Context(), models.TargetType(req.TargetType), req.TargetID)
	if err != nil {
		h.fail(w, r, "issueToken", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, issueTokenResponse{
		TokenID:   tok.ID.String(),
		ExpiresAt: tok.ExpiresAt,
	})
}

func (h *Handler) handleRedeemToken(w http.ResponseWriter, r *http.Request) {
	target, err := h.matchmaking.RedeemToken(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "redeemToken", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, redeemTokenResponse{ResolvedTarget: *target})
}
