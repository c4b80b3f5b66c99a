package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"choreboard/internal/authz"
	"choreboard/internal/identity"
	"choreboard/internal/models"
	"choreboard/internal/security"
	"choreboard/internal/session"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// IdentityContextKey carries the resolved authz.Identity.
	IdentityContextKey ContextKey = "identity"
	// SessionIDContextKey carries the parent session id, when present.
	SessionIDContextKey ContextKey = "session_id"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	identity *identity.Service
	resolver *session.Bootstrap
	limiter  *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(identity *identity.Service, resolver *session.Bootstrap, limiter *security.RateLimiter) *Middleware {
	return &Middleware{identity: identity, resolver: resolver, limiter: limiter}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// ResolveIdentity resolves the request's actor: a device bearer token
// maps to a child identity, a session cookie to a parent identity, and
// neither to nobody. The result is always placed in the context; role
// requirements are enforced by RequireParent and RequireChild.
func (m *Middleware) ResolveIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var acct *models.Account
		if token := bearerToken(r); token != "" {
			resolved, err := m.identity.AccountForDeviceToken(ctx, token)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			acct = resolved
		} else if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
			resolved, err := m.identity.ValidateSession(ctx, cookie.Value)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if resolved == nil {
				http.SetCookie(w, security.CreateDeleteCookie(r))
			} else {
				ctx = context.WithValue(ctx, SessionIDContextKey, cookie.Value)
			}
			acct = resolved
		}

		ident, err := m.resolver.Resolve(ctx, acct)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		ctx = context.WithValue(ctx, IdentityContextKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identityFrom returns the resolved identity for the request.
func identityFrom(r *http.Request) authz.Identity {
	if ident, ok := r.Context().Value(IdentityContextKey).(authz.Identity); ok {
		return ident
	}
	return authz.None()
}

// sessionIDFrom returns the parent session id, or "".
func sessionIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(SessionIDContextKey).(string); ok {
		return id
	}
	return ""
}

// RequireParent rejects requests whose actor is not a parent.
func (m *Middleware) RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authz.RequireParent(identityFrom(r)); err != nil {
			writeError(w, http.StatusUnauthorized, "parent sign-in required")
			return
		}
		next(w, r)
	}
}

// RequireChild rejects requests whose actor is not a paired child
// device.
func (m *Middleware) RequireChild(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authz.RequireChild(identityFrom(r)); err != nil {
			writeError(w, http.StatusUnauthorized, "paired device required")
			return
		}
		next(w, r)
	}
}

// RateLimit bounds requests per client IP. Applied to credential and
// pairing-code endpoints.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(security.GetClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
