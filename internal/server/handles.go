package server

import (
	"sync"
	"time"

	"github.com/desertthunder/musicman/internal/shared"
)

type handleEntry struct {
	userID    string
	expiresAt time.Time
}

// Handles maps opaque browser session handles to user ids.
//
// A handle is the only credential the HTTP layer accepts; the user id never authenticates a request on its own.
type Handles struct {
	mu      sync.Mutex
	entries map[string]handleEntry
	ttl     time.Duration
	now     func() time.Time
	newID   func() (string, error)
}

// NewHandles creates an empty registry whose handles live for ttl.
func NewHandles(ttl time.Duration) *Handles {
	if ttl <= 0 {
		ttl = sessionCookieTTL
	}
	return &Handles{
		entries: make(map[string]handleEntry),
		ttl:     ttl,
		now:     time.Now,
		newID:   shared.GenerateState,
	}
}

// Issue creates a new handle for userID. Expired handles are pruned on the way.
func (h *Handles) Issue(userID string) (string, error) {
	id, err := h.newID()
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for k, e := range h.entries {
		if !now.Before(e.expiresAt) {
			delete(h.entries, k)
		}
	}
	h.entries[id] = handleEntry{userID: userID, expiresAt: now.Add(h.ttl)}
	return id, nil
}

// Lookup returns the user id bound to handle.
func (h *Handles) Lookup(handle string) (string, bool) {
	if handle == "" {
		return "", false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.entries[handle]
	if !ok {
		return "", false
	}
	if !h.now().Before(e.expiresAt) {
		delete(h.entries, handle)
		return "", false
	}
	return e.userID, true
}

// RevokeUser drops every handle bound to userID.
func (h *Handles) RevokeUser(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for k, e := range h.entries {
		if e.userID == userID {
			delete(h.entries, k)
		}
	}
}

// Len returns the number of live and not yet pruned handles.
func (h *Handles) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
