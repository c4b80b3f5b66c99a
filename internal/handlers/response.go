package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"choreboard/internal/authz"
	"choreboard/internal/identity"
	"choreboard/internal/pairing"
	"choreboard/internal/repository"
	"choreboard/internal/service"
	"choreboard/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON parses the request body into v with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps domain sentinels to HTTP responses. Unmatched
// errors are logged and surfaced as a 500 without detail.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve validation.Error
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}

	switch {
	case errors.Is(err, authz.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, pairing.ErrInvalidPairingCode):
		writeError(w, http.StatusUnprocessableEntity, "invalid pairing code")
	case errors.Is(err, pairing.ErrDeviceAlreadyPaired):
		writeError(w, http.StatusConflict, "this device is already paired to another profile")
	case errors.Is(err, pairing.ErrChildNotFound):
		writeError(w, http.StatusNotFound, "child profile not found")
	case errors.Is(err, repository.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task not found")
	case errors.Is(err, repository.ErrRewardNotFound):
		writeError(w, http.StatusNotFound, "reward not found")
	case errors.Is(err, repository.ErrRewardInactive):
		writeError(w, http.StatusConflict, "reward no longer available")
	case errors.Is(err, repository.ErrInsufficientPoints):
		writeError(w, http.StatusConflict, "not enough points")
	case errors.Is(err, repository.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, identity.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	case errors.Is(err, service.ErrProofRequired):
		writeError(w, http.StatusUnprocessableEntity, "proof is required for this task")
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
