package app

import (
	"sync"

	"scopilot/api/internal/scoping"
)

// Event is what watchers receive after a persisted write. Project carries the
// full post-write snapshot for updates; deletions only carry the id.
type Event struct {
	Type      string           `json:"type"`
	ProjectID string           `json:"projectId"`
	Project   *scoping.Project `json:"project,omitempty"`
}

const (
	EventProjectUpdated = "project.updated"
	EventProjectDeleted = "project.deleted"
)

// watchAll is the subscription key for admin listeners, which see every
// owner's events.
const watchAll = "*"

// WatchHub fans post-write project snapshots out to live listeners, keyed by
// owner id. It replaces a store-side subscription: the store itself has no
// change feed, so mutations publish here after the write lands.
type WatchHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan Event
}

func NewWatchHub() *WatchHub {
	return &WatchHub{subs: make(map[string]map[int]chan Event)}
}

// Subscribe registers a listener for one owner's projects (or for everything
// via the admin key). The returned cancel func must be called when the
// listener goes away; a dangling subscription leaks a channel, nothing more.
func (h *WatchHub) Subscribe(key string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan Event)
	}
	h.subs[key][id] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[key]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(h.subs, key)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to the owner's subscribers and to admin
// subscribers. A listener that is not draining its channel is skipped rather
// than blocking the mutation path.
func (h *WatchHub) Publish(ownerID string, event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, key := range []string{ownerID, watchAll} {
		for _, ch := range h.subs[key] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}
