package service

import (
	"context"
	"fmt"
	"strings"

	"choreboard/internal/authz"
	"choreboard/internal/identity"
	"choreboard/internal/models"
	"choreboard/internal/pairing"
	"choreboard/internal/repository"
	"choreboard/internal/validation"
)

// FamilyService manages parent sign-up and the child profiles a parent
// owns.
type FamilyService struct {
	identity *identity.Service
	parents  *repository.ParentRepository
	children *repository.ChildRepository
}

// NewFamilyService creates a new family service
func NewFamilyService(identity *identity.Service, parents *repository.ParentRepository, children *repository.ChildRepository) *FamilyService {
	return &FamilyService{identity: identity, parents: parents, children: children}
}

// SignUp registers a durable account, creates its parent profile and
// opens a session.
func (s *FamilyService) SignUp(ctx context.Context, name, email, password string) (*models.ParentProfile, *models.AuthSession, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateName(name); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	if _, err := s.identity.CreateDurableAccount(ctx, email, password); err != nil {
		return nil, nil, err
	}
	_, session, err := s.identity.SignInDurable(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	parent, err := s.parents.CreateParent(ctx, session.AccountID, name, email)
	if err != nil {
		return nil, nil, err
	}
	return parent, session, nil
}

// EnsureParent returns the account's parent profile, creating one for a
// first OAuth sign-in.
func (s *FamilyService) EnsureParent(ctx context.Context, acct *models.Account, name string) (*models.ParentProfile, error) {
	parent, err := s.parents.ParentByAccountID(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		return parent, nil
	}
	if strings.TrimSpace(name) == "" {
		name = acct.Email
	}
	return s.parents.CreateParent(ctx, acct.ID, name, acct.Email)
}

// UpdateParent updates the signed-in parent's display fields.
func (s *FamilyService) UpdateParent(ctx context.Context, ident authz.Identity, name, phone, avatarURL string) (*models.ParentProfile, error) {
	parent, err := authz.RequireParent(ident)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.parents.UpdateParent(ctx, parent.AccountID, name, phone, avatarURL); err != nil {
		return nil, err
	}
	return s.parents.ParentByAccountID(ctx, parent.AccountID)
}

// AddChild creates a child profile under the signed-in parent.
func (s *FamilyService) AddChild(ctx context.Context, ident authz.Identity, name, avatarURL string) (*models.ChildProfile, error) {
	parent, err := authz.RequireParent(ident)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	return s.children.CreateChild(ctx, parent.AccountID, name, avatarURL)
}

// Children lists the child profiles visible to the actor: all of a
// parent's children, or the child's own family.
func (s *FamilyService) Children(ctx context.Context, ident authz.Identity) ([]models.ChildProfile, error) {
	ownerID := ident.OwnerParentID()
	if ownerID == "" {
		return nil, authz.ErrNotAuthorized
	}
	return s.children.ChildrenByParent(ctx, ownerID)
}

// Child retrieves one child profile owned by the signed-in parent.
func (s *FamilyService) Child(ctx context.Context, ident authz.Identity, childID string) (*models.ChildProfile, error) {
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
	return child, nil
}

// UpdateChild updates a child's display fields.
func (s *FamilyService) UpdateChild(ctx context.Context, ident authz.Identity, childID, name, avatarURL string) (*models.ChildProfile, error) {
	child, err := s.Child(ctx, ident, childID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := s.children.UpdateChild(ctx, child.ID, name, avatarURL); err != nil {
		return nil, err
	}
	return s.children.ChildByID(ctx, child.ID)
}

// DeleteChild removes a child profile owned by the signed-in parent.
func (s *FamilyService) DeleteChild(ctx context.Context, ident authz.Identity, childID string) error {
	child, err := s.Child(ctx, ident, childID)
	if err != nil {
		return err
	}
	if err := s.children.DeleteChild(ctx, child.ID); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}
	return nil
}
