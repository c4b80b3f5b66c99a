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
	"choreboard/internal/notify"
	"choreboard/internal/pairing"
)

// ChildRepository handles database operations for child profiles,
// including the pairing-state writes the protocol depends on.
type ChildRepository struct {
	db  *database.DB
	hub *notify.Hub
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *database.DB, hub *notify.Hub) *ChildRepository {
	return &ChildRepository{db: db, hub: hub}
}

const childColumns = `id, parent_id, name, avatar_url, points, completed_tasks, redeemed_rewards,
	pairing_code, pairing_code_issued_at, pairing_code_expires_at, device_id, last_paired_at,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChild(row rowScanner) (*models.ChildProfile, error) {
	child := &models.ChildProfile{}
	var avatarURL, pairingCode, deviceID sql.NullString
	var issuedAt, expiresAt, lastPairedAt sql.NullTime

	err := row.Scan(
		&child.ID,
		&child.ParentID,
		&child.Name,
		&avatarURL,
		&child.Points,
		&child.CompletedTasks,
		&child.RedeemedRewards,
		&pairingCode,
		&issuedAt,
		&expiresAt,
		&deviceID,
		&lastPairedAt,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if avatarURL.Valid {
		child.AvatarURL = avatarURL.String
	}
	if pairingCode.Valid {
		child.PairingCode = &pairingCode.String
	}
	if issuedAt.Valid {
		child.PairingCodeIssuedAt = &issuedAt.Time
	}
	if expiresAt.Valid {
		child.PairingCodeExpiresAt = &expiresAt.Time
	}
	if deviceID.Valid {
		child.DeviceID = &deviceID.String
	}
	if lastPairedAt.Valid {
		child.LastPairedAt = &lastPairedAt.Time
	}

	return child, nil
}

// CreateChild creates a new child profile in the Unpaired-NoCode state.
func (r *ChildRepository) CreateChild(ctx context.Context, parentID, name, avatarURL string) (*models.ChildProfile, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	query := `
		INSERT INTO child_profiles (id, parent_id, name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, id, parentID, name, nullableString(avatarURL), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create child profile: %w", err)
	}

	child := &models.ChildProfile{
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		AvatarURL: avatarURL,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpCreated, ID: id, ParentID: parentID})
	return child, nil
}

// ChildByID retrieves a child profile by ID, or nil when absent.
func (r *ChildRepository) ChildByID(ctx context.Context, id string) (*models.ChildProfile, error) {
	query := "SELECT " + childColumns + " FROM child_profiles WHERE id = ?"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child profile: %w", err)
	}
	return child, nil
}

// ChildrenByParent retrieves all child profiles owned by a parent.
func (r *ChildRepository) ChildrenByParent(ctx context.Context, parentID string) ([]models.ChildProfile, error) {
	query := "SELECT " + childColumns + " FROM child_profiles WHERE parent_id = ? ORDER BY created_at ASC"
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child profiles: %w", err)
	}
	defer rows.Close()

	var children []models.ChildProfile
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child profile: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

// ChildByDeviceID retrieves the child profile bound to a device, or nil.
// device_id carries a unique index so at most one row can match.
func (r *ChildRepository) ChildByDeviceID(ctx context.Context, deviceID string) (*models.ChildProfile, error) {
	query := "SELECT " + childColumns + " FROM child_profiles WHERE device_id = ?"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, deviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child profile by device: %w", err)
	}
	return child, nil
}

// ChildByActiveCode retrieves the unpaired child profile carrying an
// unexpired pairing code, or nil. Codes are unique at issuance; the
// most-recently-issued ordering is kept as a belt against legacy rows.
func (r *ChildRepository) ChildByActiveCode(ctx context.Context, code string, now time.Time) (*models.ChildProfile, error) {
	query := "SELECT " + childColumns + ` FROM child_profiles
		WHERE pairing_code = ? AND device_id IS NULL
		  AND (pairing_code_expires_at IS NULL OR pairing_code_expires_at > ?)
		ORDER BY pairing_code_issued_at DESC LIMIT 1`
	child, err := scanChild(r.db.QueryRowContext(ctx, query, code, now.UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up pairing code: %w", err)
	}
	return child, nil
}

// SetPairingCode writes a fresh code and its validity window, replacing
// any prior code on the profile. The unique index on pairing_code turns
// a cross-profile collision into pairing.ErrCodeCollision.
func (r *ChildRepository) SetPairingCode(ctx context.Context, childID, code string, issuedAt, expiresAt time.Time) error {
	query := `
		UPDATE child_profiles
		SET pairing_code = ?, pairing_code_issued_at = ?, pairing_code_expires_at = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, code, issuedAt.UTC(), expiresAt.UTC(), time.Now().UTC(), childID)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return pairing.ErrCodeCollision
		}
		return fmt.Errorf("failed to set pairing code: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set pairing code: %w", err)
	}
	if rows == 0 {
		return pairing.ErrChildNotFound
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpUpdated, ID: childID})
	return nil
}

// ClearPairingCode revokes any code on the profile.
func (r *ChildRepository) ClearPairingCode(ctx context.Context, childID string) error {
	query := `
		UPDATE child_profiles
		SET pairing_code = NULL, pairing_code_issued_at = NULL, pairing_code_expires_at = NULL, updated_at = ?
		WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), childID); err != nil {
		return fmt.Errorf("failed to clear pairing code: %w", err)
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpUpdated, ID: childID})
	return nil
}

// BindDevice executes the redemption bind as a single conditional
// update inside a transaction: the device must not be bound elsewhere,
// and the profile must still carry exactly the supplied code with no
// device bound. Two devices racing the same code get one winner; the
// loser sees ErrInvalidPairingCode (code already cleared) or
// ErrDeviceAlreadyPaired. The unique index on device_id backstops the
// pre-check against a concurrent bind of the same device.
func (r *ChildRepository) BindDevice(ctx context.Context, childID, code, deviceID string, now time.Time) (*models.ChildProfile, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var boundTo string
	err = tx.QueryRowContext(ctx, "SELECT id FROM child_profiles WHERE device_id = ?", deviceID).Scan(&boundTo)
	switch {
	case err == nil && boundTo != childID:
		return nil, pairing.ErrDeviceAlreadyPaired
	case err == nil:
		// Already bound to this very profile: the code was consumed.
		return nil, pairing.ErrInvalidPairingCode
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to check device binding: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE child_profiles
		SET device_id = ?, pairing_code = NULL, pairing_code_issued_at = NULL,
		    pairing_code_expires_at = NULL, last_paired_at = ?, updated_at = ?
		WHERE id = ? AND pairing_code = ? AND device_id IS NULL
	`, deviceID, now.UTC(), now.UTC(), childID, code)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, pairing.ErrDeviceAlreadyPaired
		}
		return nil, fmt.Errorf("failed to bind device: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to bind device: %w", err)
	}
	if rows == 0 {
		return nil, pairing.ErrInvalidPairingCode
	}

	query := "SELECT " + childColumns + " FROM child_profiles WHERE id = ?"
	child, err := scanChild(tx.QueryRowContext(ctx, query, childID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload child profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit device binding: %w", err)
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpPaired, ID: childID, ParentID: child.ParentID})
	return child, nil
}

// UpdateChild updates a child's display fields.
func (r *ChildRepository) UpdateChild(ctx context.Context, childID, name, avatarURL string) error {
	query := "UPDATE child_profiles SET name = ?, avatar_url = ?, updated_at = ? WHERE id = ?"
	res, err := r.db.ExecContext(ctx, query, name, nullableString(avatarURL), time.Now().UTC(), childID)
	if err != nil {
		return fmt.Errorf("failed to update child profile: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update child profile: %w", err)
	}
	if rows == 0 {
		return pairing.ErrChildNotFound
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpUpdated, ID: childID})
	return nil
}

// DeleteChild deletes a child profile. Tasks referencing it keep their
// assigned_to value; consumers treat the dangling id as unassigned.
func (r *ChildRepository) DeleteChild(ctx context.Context, childID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM child_profiles WHERE id = ?", childID); err != nil {
		return fmt.Errorf("failed to delete child profile: %w", err)
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpDeleted, ID: childID})
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
