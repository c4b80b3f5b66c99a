package service

import (
	"context"
	"strings"

	"choreboard/internal/authz"
	"choreboard/internal/models"
	"choreboard/internal/pairing"
	"choreboard/internal/repository"
	"choreboard/internal/validation"
)

// RewardService manages rewards and their redemption.
type RewardService struct {
	rewards  *repository.RewardRepository
	children *repository.ChildRepository
}

// NewRewardService creates a new reward service
func NewRewardService(rewards *repository.RewardRepository, children *repository.ChildRepository) *RewardService {
	return &RewardService{rewards: rewards, children: children}
}

// Create creates a reward owned by the signed-in parent.
func (s *RewardService) Create(ctx context.Context, ident authz.Identity, title, description string, cost int) (*models.Reward, error) {
	parent, err := authz.RequireParent(ident)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if err := validation.ValidateName(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateCost(cost); err != nil {
		return nil, err
	}
	return s.rewards.CreateReward(ctx, parent.AccountID, title, description, cost)
}

// Rewards lists the rewards visible to the actor's family.
func (s *RewardService) Rewards(ctx context.Context, ident authz.Identity) ([]models.Reward, error) {
	ownerID := ident.OwnerParentID()
	if ownerID == "" {
		return nil, authz.ErrNotAuthorized
	}
	return s.rewards.RewardsByParent(ctx, ownerID)
}

func (s *RewardService) load(ctx context.Context, rewardID string) (*models.Reward, error) {
	reward, err := s.rewards.RewardByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, repository.ErrRewardNotFound
	}
	return reward, nil
}

// Update rewrites a reward's fields. Owning parent only.
func (s *RewardService) Update(ctx context.Context, ident authz.Identity, rewardID, title, description string, cost int, isActive bool) (*models.Reward, error) {
	reward, err := s.load(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	if err := authz.CheckRewardWrite(ident, reward); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if err := validation.ValidateName(title); err != nil {
		return nil, err
	}
	if err := validation.ValidateCost(cost); err != nil {
		return nil, err
	}

	reward.Title = title
	reward.Description = description
	reward.Cost = cost
	reward.IsActive = isActive
	if err := s.rewards.UpdateReward(ctx, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// Delete removes a reward. Owning parent only.
func (s *RewardService) Delete(ctx context.Context, ident authz.Identity, rewardID string) error {
	reward, err := s.load(ctx, rewardID)
	if err != nil {
		return err
	}
	if err := authz.CheckRewardWrite(ident, reward); err != nil {
		return err
	}
	return s.rewards.DeleteReward(ctx, reward)
}

// Redeem spends the acting child's points on a reward in their family.
func (s *RewardService) Redeem(ctx context.Context, ident authz.Identity, rewardID string) (*models.RewardRedemption, error) {
	reward, err := s.load(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	child, err := authz.CheckRewardRedeem(ident, reward)
	if err != nil {
		return nil, err
	}
	return s.rewards.Redeem(ctx, reward, child.ID)
}

// Redemptions lists a child's redemption history: the child's own, or
// any child owned by the signed-in parent.
func (s *RewardService) Redemptions(ctx context.Context, ident authz.Identity, childID string) ([]models.RewardRedemption, error) {
	switch ident.Role() {
	case authz.RoleChild:
		child, _ := ident.Child()
		if child.ID != childID {
			return nil, authz.ErrNotAuthorized
		}
	case authz.RoleParent:
		child, err := s.children.ChildByID(ctx, childID)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, pairing.ErrChildNotFound
		}
		if err := authz.CheckChildOwnership(ident, child); err != nil {
			return nil, err
		}
	default:
		return nil, authz.ErrNotAuthorized
	}
	return s.rewards.RedemptionsByChild(ctx, childID)
}
