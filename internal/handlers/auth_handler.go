package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"choreboard/internal/identity"
	"choreboard/internal/security"
	"choreboard/internal/service"
)

const passwordResetTTL = time.Hour

// AuthHandler serves parent registration, sign-in and password reset.
type AuthHandler struct {
	identity *identity.Service
	families *service.FamilyService
	email    *service.EmailService

	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identitySvc *identity.Service, families *service.FamilyService, email *service.EmailService, oauthProviders map[string]OAuthProvider, appBaseURL string) *AuthHandler {
	return &AuthHandler{
		identity:             identitySvc,
		families:             families,
		email:                email,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: appBaseURL,
		appBaseURL:           appBaseURL,
	}
}

// Register creates a parent account and profile and opens a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	parent, session, err := h.families.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusCreated, parent)
}

// Login verifies credentials and opens a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, session, err := h.identity.SignInDurable(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	parent, err := h.families.EnsureParent(r.Context(), acct, "")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	writeJSON(w, http.StatusOK, parent)
}

// Logout closes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.identity.SignOut(r.Context(), sessionIDFrom(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	http.SetCookie(w, security.CreateDeleteCookie(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// ForgotPassword issues a reset token and emails it. The response does
// not reveal whether the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	token, err := h.identity.RequestPasswordReset(r.Context(), email, passwordResetTTL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if token != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.email.SendPasswordResetEmail(ctx, email, email, token.Token); err != nil {
				log.Printf("failed to send reset email: %v", err)
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "if that email is registered, a reset link was sent"})
}

// ResetPassword consumes a reset token and sets a new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ok, err := h.identity.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid or expired reset token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}
