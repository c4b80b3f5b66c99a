package models

import "time"

// AccountKind distinguishes credential-backed accounts from
// device-scoped anonymous ones.
type AccountKind string

const (
	// AccountDurable is an email+password (or OAuth) account that
	// survives reinstall.
	AccountDurable AccountKind = "durable"
	// AccountEphemeral is a credential-less account representing a
	// single app installation; it is the device identity used for
	// child pairing.
	AccountEphemeral AccountKind = "ephemeral"
)

// Account is an identity issued by the identity service.
type Account struct {
	ID            string      `json:"id"`
	Kind          AccountKind `json:"kind"`
	Email         string      `json:"email,omitempty"`
	PasswordHash  string      `json:"-"`
	OAuthProvider string      `json:"-"`
	OAuthSubject  string      `json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsEphemeral reports whether the account is a device-scoped identity.
func (a *Account) IsEphemeral() bool {
	return a.Kind == AccountEphemeral
}

// AuthSession is a server-side session for a durable account.
type AuthSession struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired checks if the session has expired
func (s *AuthSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	Token     string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
	Used      bool
}

// IsExpired checks if the reset token has expired
func (t *PasswordResetToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
