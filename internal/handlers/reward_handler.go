package handlers

import (
	"net/http"

	"choreboard/internal/metrics"
	"choreboard/internal/service"
)

// RewardHandler serves reward management and redemption.
type RewardHandler struct {
	rewards *service.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewards *service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

type rewardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Cost        int    `json:"cost"`
	IsActive    *bool  `json:"is_active"`
}

// List returns the family's rewards.
func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.Rewards(r.Context(), identityFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rewards": rewards})
}

// Create creates a reward.
func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reward, err := h.rewards.Create(r.Context(), identityFrom(r), req.Title, req.Description, req.Cost)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

// Update rewrites a reward's fields.
func (h *RewardHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	reward, err := h.rewards.Update(r.Context(), identityFrom(r), r.PathValue("id"), req.Title, req.Description, req.Cost, isActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

// Delete removes a reward.
func (h *RewardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.rewards.Delete(r.Context(), identityFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Redeem spends the acting child's points on a reward.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	redemption, err := h.rewards.Redeem(r.Context(), identityFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	metrics.RewardsRedeemed.Inc()
	writeJSON(w, http.StatusOK, redemption)
}

// Redemptions lists a child's redemption history.
func (h *RewardHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	redemptions, err := h.rewards.Redemptions(r.Context(), identityFrom(r), r.PathValue("childId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"redemptions": redemptions})
}
