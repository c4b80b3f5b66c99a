package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"choreboard/internal/models"
)

const childSnapshotKey = "child-snapshot"

// SnapshotCache holds the last child profile bound on this device so
// bootstrap can resolve a child identity before the store answers. The
// snapshot is advisory: it is always re-validated against the live
// profile and dropped when stale.
type SnapshotCache struct {
	cache *gocache.Cache
}

// NewSnapshotCache creates a snapshot cache whose entries expire after
// ttl.
func NewSnapshotCache(ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{cache: gocache.New(ttl, 2*ttl)}
}

// StoreChildSnapshot records the bound child profile.
func (c *SnapshotCache) StoreChildSnapshot(child *models.ChildProfile) {
	if child == nil {
		return
	}
	copied := *child
	c.cache.SetDefault(childSnapshotKey, &copied)
}

// ChildSnapshot returns the cached profile, or nil when absent or
// expired.
func (c *SnapshotCache) ChildSnapshot() *models.ChildProfile {
	v, ok := c.cache.Get(childSnapshotKey)
	if !ok {
		return nil
	}
	child, ok := v.(*models.ChildProfile)
	if !ok {
		return nil
	}
	copied := *child
	return &copied
}

// ClearChildSnapshot drops the cached profile.
func (c *SnapshotCache) ClearChildSnapshot() {
	c.cache.Delete(childSnapshotKey)
}
