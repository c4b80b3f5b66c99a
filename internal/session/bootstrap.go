package session

import (
	"context"
	"log"
	"sync"
	"time"

	"choreboard/internal/authz"
	"choreboard/internal/models"
)

// ParentStore resolves the parent profile owned by an account.
type ParentStore interface {
	ParentByAccountID(ctx context.Context, accountID string) (*models.ParentProfile, error)
}

// ChildStore resolves the child profile bound to a device.
type ChildStore interface {
	ChildByDeviceID(ctx context.Context, deviceID string) (*models.ChildProfile, error)
}

// IdentityHooks is the identity-service surface bootstrap needs: the
// session-change feed and the ability to discard an orphaned session.
type IdentityHooks interface {
	OnSessionChange(fn func(*models.Account)) func()
	DiscardSession(acct *models.Account)
}

const resolveTimeout = 10 * time.Second

// Bootstrap derives the effective role identity from the current
// session. It re-resolves on every session change and exposes the
// result through Current; resolution is idempotent, so an event that
// changes nothing leaves the identity unchanged.
type Bootstrap struct {
	parents  ParentStore
	children ChildStore
	identity IdentityHooks
	cache    *SnapshotCache

	mu      sync.RWMutex
	current authz.Identity
	unsub   func()
}

// NewBootstrap creates a bootstrap resolver. cache may be nil when no
// snapshot cache is carried.
func NewBootstrap(parents ParentStore, children ChildStore, identity IdentityHooks, cache *SnapshotCache) *Bootstrap {
	return &Bootstrap{
		parents:  parents,
		children: children,
		identity: identity,
		cache:    cache,
		current:  authz.None(),
	}
}

// Start subscribes to session changes and resolves the initial state.
func (b *Bootstrap) Start() {
	b.unsub = b.identity.OnSessionChange(func(acct *models.Account) {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()

		ident, err := b.Resolve(ctx, acct)
		if err != nil {
			log.Printf("session bootstrap: resolve failed: %v", err)
			return
		}
		b.mu.Lock()
		b.current = ident
		b.mu.Unlock()
	})
}

// Stop unsubscribes from session changes.
func (b *Bootstrap) Stop() {
	if b.unsub != nil {
		b.unsub()
	}
}

// Current returns the identity resolved from the latest session change.
func (b *Bootstrap) Current() authz.Identity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Resolve maps a session account to its role identity. Order: the
// cached child snapshot for this device, then the parent profile keyed
// by the account id, then the child profile bound to the device. An
// account matching none of these is an orphan; its session is discarded
// and the result is no identity.
func (b *Bootstrap) Resolve(ctx context.Context, acct *models.Account) (authz.Identity, error) {
	if acct == nil {
		if b.cache != nil {
			b.cache.ClearChildSnapshot()
		}
		return authz.None(), nil
	}

	// Fast path right after a redemption: the protocol cached the bound
	// profile before the read path could observe it.
	if b.cache != nil && acct.IsEphemeral() {
		if snap := b.cache.ChildSnapshot(); snap != nil && snap.DeviceID != nil && *snap.DeviceID == acct.ID {
			return authz.AsChild(snap), nil
		}
	}

	parent, err := b.parents.ParentByAccountID(ctx, acct.ID)
	if err != nil {
		return authz.None(), err
	}
	if parent != nil {
		return authz.AsParent(parent), nil
	}

	child, err := b.children.ChildByDeviceID(ctx, acct.ID)
	if err != nil {
		return authz.None(), err
	}
	if child != nil {
		if b.cache != nil {
			b.cache.StoreChildSnapshot(child)
		}
		return authz.AsChild(child), nil
	}

	// Orphaned anonymous session: nothing resolves this account to a
	// role, so sign it out rather than leave a dangling credential.
	if b.cache != nil {
		b.cache.ClearChildSnapshot()
	}
	b.identity.DiscardSession(acct)
	return authz.None(), nil
}
