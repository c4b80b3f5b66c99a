package authz

import "choreboard/internal/models"

// Role is the resolved role of the current actor.
type Role int

const (
	// RoleNone means no identity is resolved (signed out).
	RoleNone Role = iota
	// RoleParent is a durable account with a parent profile.
	RoleParent
	// RoleChild is a device bound to a child profile.
	RoleChild
)

// String returns the role name for logging.
func (r Role) String() string {
	switch r {
	case RoleParent:
		return "parent"
	case RoleChild:
		return "child"
	default:
		return "none"
	}
}

// Identity is the resolved actor for a session: a parent profile, a
// child profile, or nobody. It is passed explicitly into every
// authorization-checked operation rather than read from ambient state,
// and the role tag keeps check sites exhaustive.
type Identity struct {
	role   Role
	parent *models.ParentProfile
	child  *models.ChildProfile
}

// None is the signed-out identity.
func None() Identity {
	return Identity{role: RoleNone}
}

// AsParent builds a parent identity.
func AsParent(p *models.ParentProfile) Identity {
	return Identity{role: RoleParent, parent: p}
}

// AsChild builds a child identity.
func AsChild(c *models.ChildProfile) Identity {
	return Identity{role: RoleChild, child: c}
}

// Role returns the identity's role tag.
func (id Identity) Role() Role {
	return id.role
}

// Parent returns the parent profile when the role is parent.
func (id Identity) Parent() (*models.ParentProfile, bool) {
	return id.parent, id.role == RoleParent
}

// Child returns the child profile when the role is child.
func (id Identity) Child() (*models.ChildProfile, bool) {
	return id.child, id.role == RoleChild
}

// IsNone reports whether no actor is resolved.
func (id Identity) IsNone() bool {
	return id.role == RoleNone
}

// OwnerParentID returns the parent profile id that owns this actor's
// data: the parent's own id, or the child's ParentID.
func (id Identity) OwnerParentID() string {
	switch id.role {
	case RoleParent:
		return id.parent.AccountID
	case RoleChild:
		return id.child.ParentID
	default:
		return ""
	}
}
