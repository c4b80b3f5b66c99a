package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"choreboard/internal/models"
	"choreboard/internal/repository"
)

var (
	// ErrInvalidCredentials is returned when email or password do not
	// match a durable account.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken mirrors the repository sentinel for handler use.
	ErrEmailTaken = repository.ErrEmailTaken
)

// Service issues and resolves accounts. Durable accounts are
// email+password (or OAuth) and authenticate with server-side sessions;
// ephemeral accounts are credential-less device identities carried by a
// signed bearer token.
//
// The service also tracks the process-local active session and fans out
// changes to registered listeners, so session bootstrap can re-resolve
// the effective identity whenever sign-in state changes.
type Service struct {
	accounts        *repository.AccountRepository
	tokenSecret     []byte
	sessionDuration time.Duration

	mu        sync.RWMutex
	active    *models.Account
	listeners []func(*models.Account)
}

// NewService creates an identity service. tokenSecret signs device
// bearer tokens and must be stable across restarts.
func NewService(accounts *repository.AccountRepository, tokenSecret string, sessionDuration time.Duration) *Service {
	return &Service{
		accounts:        accounts,
		tokenSecret:     []byte(tokenSecret),
		sessionDuration: sessionDuration,
	}
}

// CreateDurableAccount registers an email+password account.
func (s *Service) CreateDurableAccount(ctx context.Context, email, password string) (*models.Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.accounts.CreateDurableAccount(ctx, email, string(hash))
}

// SignInDurable verifies credentials and opens a server-side session.
func (s *Service) SignInDurable(ctx context.Context, email, password string) (*models.Account, *models.AuthSession, error) {
	acct, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if acct == nil || acct.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.accounts.CreateSession(ctx, acct.ID, s.sessionDuration)
	if err != nil {
		return nil, nil, err
	}
	s.ActivateSession(acct)
	return acct, session, nil
}

// SignInOAuth resolves or creates the durable account for an OAuth
// subject and opens a session. An account already holding the verified
// email is linked to the subject instead of duplicated.
func (s *Service) SignInOAuth(ctx context.Context, provider, subject, email string) (*models.Account, *models.AuthSession, error) {
	acct, err := s.accounts.AccountByOAuth(ctx, provider, subject)
	if err != nil {
		return nil, nil, err
	}
	if acct == nil && email != "" {
		existing, err := s.accounts.AccountByEmail(ctx, email)
		if err != nil {
			return nil, nil, err
		}
		if existing != nil {
			if err := s.accounts.LinkOAuth(ctx, existing.ID, provider, subject); err != nil {
				return nil, nil, err
			}
			acct = existing
		}
	}
	if acct == nil {
		created, err := s.accounts.CreateDurableAccount(ctx, email, "")
		if err != nil {
			return nil, nil, err
		}
		if err := s.accounts.LinkOAuth(ctx, created.ID, provider, subject); err != nil {
			return nil, nil, err
		}
		acct = created
	}

	session, err := s.accounts.CreateSession(ctx, acct.ID, s.sessionDuration)
	if err != nil {
		return nil, nil, err
	}
	s.ActivateSession(acct)
	return acct, session, nil
}

// ValidateSession resolves a session id to its account, or (nil, nil)
// when the session is missing or expired.
func (s *Service) ValidateSession(ctx context.Context, sessionID string) (*models.Account, error) {
	session, err := s.accounts.SessionByID(ctx, sessionID)
	if err != nil || session == nil {
		return nil, err
	}
	return s.accounts.AccountByID(ctx, session.AccountID)
}

// SignOut closes the server-side session, if any, and clears the active
// session.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID != "" {
		if err := s.accounts.DeleteSession(ctx, sessionID); err != nil {
			return err
		}
	}
	s.setActive(nil)
	return nil
}

// CreateEphemeralAccount mints a device account and its bearer token.
func (s *Service) CreateEphemeralAccount(ctx context.Context) (*models.Account, string, error) {
	acct, err := s.accounts.CreateEphemeralAccount(ctx)
	if err != nil {
		return nil, "", err
	}

	claims := jwt.MapClaims{
		"sub":  acct.ID,
		"kind": "device",
		"iat":  time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign device token: %w", err)
	}
	return acct, token, nil
}

// AccountForDeviceToken resolves a device bearer token to its ephemeral
// account. A malformed, forged or dangling token yields (nil, nil), not
// an error: callers fall through to creating a fresh device identity.
func (s *Service) AccountForDeviceToken(ctx context.Context, token string) (*models.Account, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.tokenSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, nil
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, nil
	}
	if kind, _ := claims["kind"].(string); kind != "device" {
		return nil, nil
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, nil
	}

	acct, err := s.accounts.AccountByID(ctx, sub)
	if err != nil {
		return nil, err
	}
	if acct == nil || !acct.IsEphemeral() {
		return nil, nil
	}
	return acct, nil
}

// ActivateSession surfaces acct as the active session and notifies
// listeners.
func (s *Service) ActivateSession(acct *models.Account) {
	s.setActive(acct)
}

// DiscardSession clears the active session if it is acct's. The account
// row itself is kept: a later redemption attempt can reuse the token.
func (s *Service) DiscardSession(acct *models.Account) {
	s.mu.Lock()
	if s.active != nil && acct != nil && s.active.ID != acct.ID {
		s.mu.Unlock()
		return
	}
	s.active = nil
	listeners := append([]func(*models.Account){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
}

// Active returns the current process-local session account, or nil.
func (s *Service) Active() *models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// OnSessionChange registers fn to run whenever the active session
// changes. fn receives the new account, or nil on sign-out, and is
// invoked immediately with the current state.
func (s *Service) OnSessionChange(fn func(*models.Account)) func() {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	current := s.active
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = func(*models.Account) {}
		}
	}
}

func (s *Service) setActive(acct *models.Account) {
	s.mu.Lock()
	s.active = acct
	listeners := append([]func(*models.Account){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(acct)
	}
}

// RequestPasswordReset creates a reset token for the account holding
// email. It returns (nil, nil) when no such account exists so handlers
// can respond identically either way.
func (s *Service) RequestPasswordReset(ctx context.Context, email string, ttl time.Duration) (*models.PasswordResetToken, error) {
	acct, err := s.accounts.AccountByEmail(ctx, email)
	if err != nil || acct == nil {
		return nil, err
	}
	return s.accounts.CreatePasswordResetToken(ctx, acct.ID, ttl)
}

// ResetPassword consumes a reset token and replaces the password. It
// reports whether the token was valid.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	consumed, err := s.accounts.ConsumePasswordResetToken(ctx, token)
	if err != nil || consumed == nil {
		return false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.accounts.UpdatePassword(ctx, consumed.AccountID, string(hash)); err != nil {
		return false, err
	}
	return true, nil
}
