package authz

import (
	"errors"

	"choreboard/internal/models"
)

// ErrNotAuthorized is returned when a role or ownership check fails.
// It indicates a logic bug or stale session, not a retryable condition.
var ErrNotAuthorized = errors.New("not authorized")

// TaskWriteScope limits which task fields a write may touch.
type TaskWriteScope int

const (
	// TaskWriteAll covers title, description, points, assignment and
	// any other field. Reserved for the owning parent.
	TaskWriteAll TaskWriteScope = iota
	// TaskWriteStatus covers only the status transition and submission
	// fields. The assigned child is limited to this scope.
	TaskWriteStatus
)

// RequireParent returns the parent profile or ErrNotAuthorized.
func RequireParent(id Identity) (*models.ParentProfile, error) {
	p, ok := id.Parent()
	if !ok {
		return nil, ErrNotAuthorized
	}
	return p, nil
}

// RequireChild returns the child profile or ErrNotAuthorized.
func RequireChild(id Identity) (*models.ChildProfile, error) {
	c, ok := id.Child()
	if !ok {
		return nil, ErrNotAuthorized
	}
	return c, nil
}

// CheckChildOwnership verifies the actor is the parent owning the child
// profile.
func CheckChildOwnership(id Identity, child *models.ChildProfile) error {
	p, ok := id.Parent()
	if !ok || p.AccountID != child.ParentID {
		return ErrNotAuthorized
	}
	return nil
}

// CheckTaskWrite verifies the actor may write the task within the given
// scope: the owning parent for any scope, or the assigned child for
// status/submission only.
func CheckTaskWrite(id Identity, task *models.Task, scope TaskWriteScope) error {
	switch id.Role() {
	case RoleParent:
		if id.parent.AccountID == task.ParentID {
			return nil
		}
		return ErrNotAuthorized
	case RoleChild:
		if scope == TaskWriteStatus && task.IsAssignedTo(id.child.ID) {
			return nil
		}
		return ErrNotAuthorized
	case RoleNone:
		return ErrNotAuthorized
	default:
		return ErrNotAuthorized
	}
}

// CheckTaskDelete verifies the actor is the owning parent.
func CheckTaskDelete(id Identity, task *models.Task) error {
	p, ok := id.Parent()
	if !ok || p.AccountID != task.ParentID {
		return ErrNotAuthorized
	}
	return nil
}

// CheckRewardWrite verifies the actor is the owning parent.
func CheckRewardWrite(id Identity, reward *models.Reward) error {
	p, ok := id.Parent()
	if !ok || p.AccountID != reward.ParentID {
		return ErrNotAuthorized
	}
	return nil
}

// CheckRewardRedeem verifies the actor is a child of the reward's
// owning parent and the reward is currently active. It returns the
// redeeming child profile.
func CheckRewardRedeem(id Identity, reward *models.Reward) (*models.ChildProfile, error) {
	c, ok := id.Child()
	if !ok {
		return nil, ErrNotAuthorized
	}
	if c.ParentID != reward.ParentID {
		return nil, ErrNotAuthorized
	}
	if !reward.IsActive {
		return nil, ErrNotAuthorized
	}
	return c, nil
}
