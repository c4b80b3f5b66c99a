package models

import "time"

// Reward is something a child can spend points on. A redeemed or
// withdrawn reward is deactivated rather than deleted.
type Reward struct {
	ID          string    `json:"id"`
	ParentID    string    `json:"parent_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Cost        int       `json:"cost"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RewardRedemption records a child spending points on a reward.
type RewardRedemption struct {
	ID          string    `json:"id"`
	RewardID    string    `json:"reward_id"`
	ChildID     string    `json:"child_id"`
	PointsSpent int       `json:"points_spent"`
	RedeemedAt  time.Time `json:"redeemed_at"`
}
