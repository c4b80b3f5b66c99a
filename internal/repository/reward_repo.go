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
)

var (
	// ErrRewardNotFound is returned for operations on a missing reward.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrInsufficientPoints is returned when a child redeems a reward
	// costing more points than they hold.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrRewardInactive is returned when redeeming a reward that was
	// already redeemed or withdrawn.
	ErrRewardInactive = errors.New("reward no longer available")
)

// RewardRepository handles database operations for rewards and
// redemptions.
type RewardRepository struct {
	db  *database.DB
	hub *notify.Hub
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB, hub *notify.Hub) *RewardRepository {
	return &RewardRepository{db: db, hub: hub}
}

const rewardColumns = `id, parent_id, title, description, cost, is_active, created_at, updated_at`

func scanReward(row rowScanner) (*models.Reward, error) {
	reward := &models.Reward{}
	err := row.Scan(
		&reward.ID,
		&reward.ParentID,
		&reward.Title,
		&reward.Description,
		&reward.Cost,
		&reward.IsActive,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// CreateReward creates an active reward for a parent.
func (r *RewardRepository) CreateReward(ctx context.Context, parentID, title, description string, cost int) (*models.Reward, error) {
	reward := &models.Reward{
		ID:          uuid.New().String(),
		ParentID:    parentID,
		Title:       title,
		Description: description,
		Cost:        cost,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO rewards (id, parent_id, title, description, cost, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		reward.ID, reward.ParentID, reward.Title, reward.Description,
		reward.Cost, reward.IsActive, reward.CreatedAt, reward.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward: %w", err)
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionRewards, Op: notify.OpCreated, ID: reward.ID, ParentID: parentID})
	return reward, nil
}

// RewardByID retrieves a reward by ID, or nil when absent.
func (r *RewardRepository) RewardByID(ctx context.Context, id string) (*models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards WHERE id = ?"
	reward, err := scanReward(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

// RewardsByParent retrieves all rewards owned by a parent.
func (r *RewardRepository) RewardsByParent(ctx context.Context, parentID string) ([]models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards WHERE parent_id = ? ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, *reward)
	}
	return rewards, rows.Err()
}

// UpdateReward rewrites a reward's mutable fields.
func (r *RewardRepository) UpdateReward(ctx context.Context, reward *models.Reward) error {
	query := `
		UPDATE rewards SET title = ?, description = ?, cost = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query,
		reward.Title, reward.Description, reward.Cost, reward.IsActive,
		time.Now().UTC(), reward.ID)
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update reward: %w", err)
	}
	if rows == 0 {
		return ErrRewardNotFound
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionRewards, Op: notify.OpUpdated, ID: reward.ID, ParentID: reward.ParentID})
	return nil
}

// DeleteReward deletes a reward; its redemption records cascade.
func (r *RewardRepository) DeleteReward(ctx context.Context, reward *models.Reward) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM rewards WHERE id = ?", reward.ID); err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}
	r.hub.Publish(notify.Event{Collection: notify.CollectionRewards, Op: notify.OpDeleted, ID: reward.ID, ParentID: reward.ParentID})
	return nil
}

// Redeem deactivates the reward, debits its cost from the child and
// records the redemption in one transaction. Both updates are
// conditional, so concurrent redemptions get one winner and points
// never go negative.
func (r *RewardRepository) Redeem(ctx context.Context, reward *models.Reward, childID string) (*models.RewardRedemption, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	res, err := tx.ExecContext(ctx,
		"UPDATE rewards SET is_active = ?, updated_at = ? WHERE id = ? AND is_active = ?",
		false, now, reward.ID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate reward: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate reward: %w", err)
	}
	if rows == 0 {
		return nil, ErrRewardInactive
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE child_profiles
		SET points = points - ?, redeemed_rewards = redeemed_rewards + 1, updated_at = ?
		WHERE id = ? AND points >= ?
	`, reward.Cost, now, childID, reward.Cost)
	if err != nil {
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to debit points: %w", err)
	}
	if rows == 0 {
		return nil, ErrInsufficientPoints
	}

	redemption := &models.RewardRedemption{
		ID:          uuid.New().String(),
		RewardID:    reward.ID,
		ChildID:     childID,
		PointsSpent: reward.Cost,
		RedeemedAt:  now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reward_redemptions (id, reward_id, child_id, points_spent, redeemed_at)
		VALUES (?, ?, ?, ?, ?)
	`, redemption.ID, redemption.RewardID, redemption.ChildID, redemption.PointsSpent, redemption.RedeemedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	r.hub.Publish(notify.Event{Collection: notify.CollectionRewards, Op: notify.OpRedeemed, ID: reward.ID, ParentID: reward.ParentID})
	r.hub.Publish(notify.Event{Collection: notify.CollectionChildren, Op: notify.OpUpdated, ID: childID, ParentID: reward.ParentID})
	return redemption, nil
}

// RedemptionsByChild retrieves a child's redemption history.
func (r *RewardRepository) RedemptionsByChild(ctx context.Context, childID string) ([]models.RewardRedemption, error) {
	query := `
		SELECT id, reward_id, child_id, points_spent, redeemed_at
		FROM reward_redemptions WHERE child_id = ? ORDER BY redeemed_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to query redemptions: %w", err)
	}
	defer rows.Close()

	var redemptions []models.RewardRedemption
	for rows.Next() {
		var red models.RewardRedemption
		if err := rows.Scan(&red.ID, &red.RewardID, &red.ChildID, &red.PointsSpent, &red.RedeemedAt); err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, red)
	}
	return redemptions, rows.Err()
}
