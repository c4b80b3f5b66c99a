package handlers

import (
	"net/http"
	"time"

	"choreboard/internal/authz"
	"choreboard/internal/metrics"
	"choreboard/internal/pairing"
	"choreboard/internal/service"
)

// ParentHandler serves the parent surface: profile, children and
// pairing-code management.
type ParentHandler struct {
	families *service.FamilyService
	protocol *pairing.Protocol
	codeTTL  time.Duration
}

// NewParentHandler creates a new parent handler
func NewParentHandler(families *service.FamilyService, protocol *pairing.Protocol, codeTTL time.Duration) *ParentHandler {
	return &ParentHandler{families: families, protocol: protocol, codeTTL: codeTTL}
}

// Me returns the signed-in parent's profile.
func (h *ParentHandler) Me(w http.ResponseWriter, r *http.Request) {
	parent, err := authz.RequireParent(identityFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parent)
}

// UpdateMe updates the signed-in parent's profile.
func (h *ParentHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		Phone     string `json:"phone"`
		AvatarURL string `json:"avatar_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	parent, err := h.families.UpdateParent(r.Context(), identityFrom(r), req.Name, req.Phone, req.AvatarURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, parent)
}

// ListChildren lists the family's child profiles.
func (h *ParentHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.families.Children(r.Context(), identityFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": children})
}

// AddChild creates a child profile.
func (h *ParentHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	child, err := h.families.AddChild(r.Context(), identityFrom(r), req.Name, req.AvatarURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

// GetChild returns one child profile.
func (h *ParentHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	child, err := h.families.Child(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// UpdateChild updates a child's display fields.
func (h *ParentHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	child, err := h.families.UpdateChild(r.Context(), identityFrom(r), r.PathValue("id"), req.Name, req.AvatarURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// DeleteChild removes a child profile.
func (h *ParentHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	if err := h.families.DeleteChild(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// IssuePairingCode mints a fresh one-time code for a child profile,
// replacing any previous code.
func (h *ParentHandler) IssuePairingCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.protocol.IssueCode(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.PairingCodesIssued.Inc()

	writeJSON(w, http.StatusCreated, map[string]any{
		"code":       code,
		"expires_at": time.Now().UTC().Add(h.codeTTL),
	})
}

// ClearPairingCode revokes any active code on a child profile.
func (h *ParentHandler) ClearPairingCode(w http.ResponseWriter, r *http.Request) {
	if err := h.protocol.ClearCode(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
