package httptransport

import (
	"net/http"
	"strconv"

	adminsvc "ringside/internal/admin/service"
	"ringside/pkg/platform/httputil"
)

// handleSetAdminClaim tolerates an undecodable body: the fields are treated as
// missing so a non-admin caller still gets permission-denied.
func (h *Handler) handleSetAdminClaim(w http.ResponseWriter, r *http.Request) {
	var req setAdminClaimRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		req = setAdminClaimRequest{}
	}

	result, err := h.admin.SetAdminClaim(r.Context(), req.TargetUID, optionalBool(req.IsAdmin))
	if err != nil {
		h.fail(w, r, "setAdminClaim", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, setAdminClaimResponse{
		Success: result.Success,
		Message: result.Message,
	})
}

func (h *Handler) handleSetKillSwitch(w http.ResponseWriter, r *http.Request) {
	var req setKillSwitchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		req = setKillSwitchRequest{}
	}

	doc, err := h.admin.SetKillSwitch(r.Context(), optionalBool(req.Enabled))
	if err != nil {
		h.fail(w, r, "setKillSwitch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, killSwitchResponse{
		ProposalKillSwitch: doc.ProposalKillSwitch,
		Version:            doc.Version,
		UpdatedAt:          doc.UpdatedAt,
		UpdatedBy:          doc.UpdatedBy,
	})
}

func (h *Handler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := adminsvc.AuditQuery{
		Action:     q.Get("action"),
		TargetType: q.Get("targetType"),
		TargetID:   q.Get("targetId"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			// Out of range; the service rejects it after authorization.
			limit = -1
		}
		query.Limit = limit
	}

	entries, err := h.admin.ListAuditLogs(r.Context(), query)
	if err != nil {
		h.fail(w, r, "listAuditLogs", err)
		return
	}
	resp := auditLogsResponse{Entries: make([]auditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toAuditEntryResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
