package handlers

import (
	"errors"
	"net/http"

	"choreboard/internal/authz"
	"choreboard/internal/metrics"
	"choreboard/internal/pairing"
)

// DeviceHandler serves the child device surface: redeeming a pairing
// code and reading the bound profile.
type DeviceHandler struct {
	protocol *pairing.Protocol
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(protocol *pairing.Protocol) *DeviceHandler {
	return &DeviceHandler{protocol: protocol}
}

// Pair redeems a pairing code for the calling device. The request may
// carry a previously issued device token to reuse; the response carries
// the bound profile and the token the device must keep.
func (h *DeviceHandler) Pair(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code        string `json:"code"`
		DeviceToken string `json:"device_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DeviceToken == "" {
		req.DeviceToken = bearerToken(r)
	}

	result, err := h.protocol.RedeemCode(r.Context(), req.DeviceToken, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, pairing.ErrInvalidPairingCode):
			metrics.PairingRedemptions.WithLabelValues(metrics.OutcomeInvalidCode).Inc()
		case errors.Is(err, pairing.ErrDeviceAlreadyPaired):
			metrics.PairingRedemptions.WithLabelValues(metrics.OutcomeAlreadyPaired).Inc()
		default:
			metrics.PairingRedemptions.WithLabelValues(metrics.OutcomeError).Inc()
		}
		writeServiceError(w, err)
		return
	}
	metrics.PairingRedemptions.WithLabelValues(metrics.OutcomeOK).Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"child":        result.Child,
		"device_token": result.DeviceToken,
	})
}

// Session returns the child profile bound to the calling device.
func (h *DeviceHandler) Session(w http.ResponseWriter, r *http.Request) {
	child, err := authz.RequireChild(identityFrom(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "paired device required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"child": child})
}
