// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package registration

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionBinder tracks at most one pending ceremony uid per caller session.
type SessionBinder interface {

	// Bind associates uid with the session, replacing any prior binding.
	Bind(sessionID, uid string)

	// Lookup returns the pending uid for the session, or "" when none.
	Lookup(sessionID string) (string, bool)

	// Clear removes the binding for the session. Clearing a missing binding
	// is not an error.
	Clear(sessionID string)

	// SweepExpired removes bindings that have aged out and returns their
	// uids, so the caller can undo the ceremonies they belonged to.
	// Implementations without expiry return nil.
	SweepExpired() []string
}

// NewSessionID returns an opaque session identifier for the pending cookie.
func NewSessionID() string {
	return uuid.NewString()
}

type binding struct {
	uid      string
	deadline time.Time
}

// MemorySessionBinder is an in-process SessionBinder. Bindings expire with
// the challenge TTL so abandoned ceremonies age out.
type MemorySessionBinder struct {
	mu       sync.Mutex
	bindings map[string]binding
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionBinder creates a binder whose entries live for ttl.
func NewMemorySessionBinder(ttl time.Duration) *MemorySessionBinder {
	return &MemorySessionBinder{
		bindings: make(map[string]binding),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Bind associates uid with the session.
func (b *MemorySessionBinder) Bind(sessionID, uid string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings[sessionID] = binding{
		uid:      uid,
		deadline: b.now().Add(b.ttl),
	}
}

// Lookup returns the live pending uid for the session.
func (b *MemorySessionBinder) Lookup(sessionID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.bindings[sessionID]
	if !ok {
		return "", false
	}
	// Expired entries stay in the map until SweepExpired harvests them, so
	// the uid remains known for cleanup.
	if b.now().After(entry.deadline) {
		return "", false
	}
	return entry.uid, true
}

// Clear removes any binding for the session.
func (b *MemorySessionBinder) Clear(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bindings, sessionID)
}

// SweepExpired removes all aged-out bindings and returns their uids.
func (b *MemorySessionBinder) SweepExpired() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var uids []string
	for sessionID, entry := range b.bindings {
		if now.After(entry.deadline) {
			uids = append(uids, entry.uid)
			delete(b.bindings, sessionID)
		}
	}
	return uids
}

var _ SessionBinder = (*MemorySessionBinder)(nil)
