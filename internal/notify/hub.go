package notify

import "sync"

// Collection names used in change events. They mirror the store's
// top-level collections.
const (
	CollectionParents  = "parents"
	CollectionChildren = "childProfiles"
	CollectionTasks    = "tasks"
	CollectionRewards  = "rewards"
)

// Op is the kind of mutation an event describes.
type Op string

const (
	OpCreated   Op = "created"
	OpUpdated   Op = "updated"
	OpDeleted   Op = "deleted"
	OpSubmitted Op = "submitted"
	OpApproved  Op = "approved"
	OpRedeemed  Op = "redeemed"
	OpPaired    Op = "paired"
)

// Event describes a committed change to a document in a collection.
type Event struct {
	Collection string
	Op         Op
	ID         string
	// ParentID is the owning parent profile, when the document has one.
	ParentID string
}

// Hub fans out store change events to subscribers. Repositories publish
// after a successful write; subscribers are read-only consumers (cache
// refresh, notifications) and impose no write coordination.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(Event)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]func(Event))}
}

// Subscribe registers fn for events on the given collection and returns
// an unsubscribe function. Callbacks run on the publisher's goroutine;
// slow consumers should hand off to their own.
func (h *Hub) Subscribe(collection string, fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[collection] == nil {
		h.subs[collection] = make(map[int]func(Event))
	}
	id := h.nextID
	h.nextID++
	h.subs[collection][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[collection], id)
	}
}

// Publish delivers ev to every subscriber of its collection.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	fns := make([]func(Event), 0, len(h.subs[ev.Collection]))
	for _, fn := range h.subs[ev.Collection] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
