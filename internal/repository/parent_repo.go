package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"choreboard/internal/database"
	"choreboard/internal/models"
	"choreboard/internal/notify"
)

// ParentRepository handles database operations for parent profiles.
type ParentRepository struct {
	db  *database.DB
	hub *notify.Hub
}

// NewParentRepository creates a new parent repository
func NewParentRepository(db *database.DB, hub *notify.Hub) *ParentRepository {
	return &ParentRepository{db: db, hub: hub}
}

const parentColumns = `account_id, name, email, phone, avatar_url, created_at, updated_at`

func scanParent(row rowScanner) (*models.ParentProfile, error) {
	parent := &models.ParentProfile{}
	var avatarURL sql.NullString

	err := row.Scan(
		&parent.AccountID,
		&parent.Name,
		&parent.Email,
		&parent.Phone,
		&avatarURL,
		&parent.CreatedAt,
		&parent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	parent.AvatarURL = avatarURL.String
	return parent, nil
}

// CreateParent creates the profile row for a parent account. Exactly one
// profile exists per account; it is created at sign-up.
func (r *ParentRepository) CreateParent(ctx context.Context, accountID, name, email string) (*models.ParentProfile, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO parent_profiles (account_id, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, accountID, name, email, now, now); err != nil {
		return nil, fmt.Errorf("failed to create parent profile: %w", err)
	}

	parent := &models.ParentProfile{
		AccountID: accountID,
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionParents, Op: notify.OpCreated, ID: accountID, ParentID: accountID})
	return parent, nil
}

// ParentByAccountID retrieves a parent profile by its owning account id,
// or nil when the account has no parent profile.
func (r *ParentRepository) ParentByAccountID(ctx context.Context, accountID string) (*models.ParentProfile, error) {
	query := "SELECT " + parentColumns + " FROM parent_profiles WHERE account_id = ?"
	parent, err := scanParent(r.db.QueryRowContext(ctx, query, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent profile: %w", err)
	}
	return parent, nil
}

// UpdateParent updates a parent's display fields.
func (r *ParentRepository) UpdateParent(ctx context.Context, accountID, name, phone, avatarURL string) error {
	query := "UPDATE parent_profiles SET name = ?, phone = ?, avatar_url = ?, updated_at = ? WHERE account_id = ?"
	res, err := r.db.ExecContext(ctx, query, name, phone, nullableString(avatarURL), time.Now().UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to update parent profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update parent profile: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("parent profile %s not found", accountID)
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionParents, Op: notify.OpUpdated, ID: accountID, ParentID: accountID})
	return nil
}
