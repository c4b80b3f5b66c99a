package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"choreboard/internal/database"
	"choreboard/internal/models"
)

// ErrEmailTaken is returned when creating or relinking an account with
// an email that already belongs to another account.
var ErrEmailTaken = errors.New("email already registered")

// AccountRepository handles database operations for accounts, auth
// sessions and password reset tokens.
type AccountRepository struct {
	db *database.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, kind, email, password_hash, oauth_provider, oauth_subject, created_at, updated_at`

func scanAccount(row rowScanner) (*models.Account, error) {
	acct := &models.Account{}
	var email, passwordHash, oauthProvider, oauthSubject sql.NullString

	err := row.Scan(
		&acct.ID,
		&acct.Kind,
		&email,
		&passwordHash,
		&oauthProvider,
		&oauthSubject,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	acct.Email = email.String
	acct.PasswordHash = passwordHash.String
	acct.OAuthProvider = oauthProvider.String
	acct.OAuthSubject = oauthSubject.String
	return acct, nil
}

// CreateDurableAccount creates a credential-backed account.
func (r *AccountRepository) CreateDurableAccount(ctx context.Context, email, passwordHash string) (*models.Account, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	query := `
		INSERT INTO accounts (id, kind, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, id, models.AccountDurable, email, passwordHash, now, now)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &models.Account{
		ID:           id,
		Kind:         models.AccountDurable,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CreateEphemeralAccount creates a credential-less device account.
func (r *AccountRepository) CreateEphemeralAccount(ctx context.Context) (*models.Account, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	query := `INSERT INTO accounts (id, kind, created_at, updated_at) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, id, models.AccountEphemeral, now, now); err != nil {
		return nil, fmt.Errorf("failed to create device account: %w", err)
	}

	return &models.Account{
		ID:        id,
		Kind:      models.AccountEphemeral,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AccountByID retrieves an account by ID, or nil when absent.
func (r *AccountRepository) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id = ?"
	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

// AccountByEmail retrieves a durable account by email, or nil.
func (r *AccountRepository) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE email = ?"
	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return acct, nil
}

// AccountByOAuth retrieves an account linked to the given provider
// subject, or nil.
func (r *AccountRepository) AccountByOAuth(ctx context.Context, provider, subject string) (*models.Account, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE oauth_provider = ? AND oauth_subject = ?"
	acct, err := scanAccount(r.db.QueryRowContext(ctx, query, provider, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by oauth subject: %w", err)
	}
	return acct, nil
}

// LinkOAuth attaches a provider subject to an existing account.
func (r *AccountRepository) LinkOAuth(ctx context.Context, accountID, provider, subject string) error {
	query := "UPDATE accounts SET oauth_provider = ?, oauth_subject = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, provider, subject, time.Now().UTC(), accountID); err != nil {
		return fmt.Errorf("failed to link oauth subject: %w", err)
	}
	return nil
}

// UpdatePassword replaces the account's password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, accountID, passwordHash string) error {
	query := "UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), accountID); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// DeleteAccount removes an account; sessions and reset tokens cascade.
func (r *AccountRepository) DeleteAccount(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// CreateSession creates a server-side session for a durable account.
func (r *AccountRepository) CreateSession(ctx context.Context, accountID string, duration time.Duration) (*models.AuthSession, error) {
	session := &models.AuthSession{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ExpiresAt: time.Now().UTC().Add(duration),
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO auth_sessions (id, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, session.ID, session.AccountID, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// SessionByID retrieves a session by ID, or nil when absent or expired.
func (r *AccountRepository) SessionByID(ctx context.Context, id string) (*models.AuthSession, error) {
	session := &models.AuthSession{}
	query := `SELECT id, account_id, expires_at, created_at FROM auth_sessions WHERE id = ?`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&session.ID, &session.AccountID, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session.IsExpired() {
		return nil, nil
	}
	return session, nil
}

// DeleteSession removes a session.
func (r *AccountRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions. Run periodically.
func (r *AccountRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM auth_sessions WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// CreatePasswordResetToken creates a single-use reset token.
func (r *AccountRepository) CreatePasswordResetToken(ctx context.Context, accountID string, ttl time.Duration) (*models.PasswordResetToken, error) {
	token := &models.PasswordResetToken{
		Token:     uuid.New().String(),
		AccountID: accountID,
		ExpiresAt: time.Now().UTC().Add(ttl),
		CreatedAt: time.Now().UTC(),
	}

	query := `INSERT INTO password_reset_tokens (token, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, token.Token, token.AccountID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create reset token: %w", err)
	}
	return token, nil
}

// ConsumePasswordResetToken marks an unexpired, unused token as used and
// returns it, or nil when no such token exists.
func (r *AccountRepository) ConsumePasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	t := &models.PasswordResetToken{}
	var used int
	query := `SELECT token, account_id, expires_at, used, created_at FROM password_reset_tokens WHERE token = ?`
	err := r.db.QueryRowContext(ctx, query, token).Scan(&t.Token, &t.AccountID, &t.ExpiresAt, &used, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	t.Used = used != 0
	if t.Used || t.IsExpired() {
		return nil, nil
	}

	res, err := r.db.ExecContext(ctx, "UPDATE password_reset_tokens SET used = 1 WHERE token = ? AND used = 0", token)
	if err != nil {
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}
	if rows == 0 {
		return nil, nil
	}
	return t, nil
}
