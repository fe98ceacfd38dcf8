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

package challenge

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	challenge []byte
	deadline  time.Time
}

// MemoryStore is an in-process Store used when Redis is unreachable.
// Expired entries are dropped lazily on access; Sweep removes them eagerly.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty in-process challenge store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Put stores a copy of the challenge bytes for uid.
func (s *MemoryStore) Put(ctx context.Context, uid string, challenge []byte, ttl time.Duration) error {
	buf := make([]byte, len(challenge))
	copy(buf, challenge)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[uid] = memoryEntry{
		challenge: buf,
		deadline:  s.now().Add(ttl),
	}
	return nil
}

// Get returns the live challenge for uid without consuming it.
func (s *MemoryStore) Get(ctx context.Context, uid string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[uid]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	if s.now().After(entry.deadline) {
		delete(s.entries, uid)
		return nil, ErrChallengeNotFound
	}
	buf := make([]byte, len(entry.challenge))
	copy(buf, entry.challenge)
	return buf, nil
}

// Consume returns and removes the live challenge for uid.
func (s *MemoryStore) Consume(ctx context.Context, uid string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[uid]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.entries, uid)
	if s.now().After(entry.deadline) {
		return nil, ErrChallengeNotFound
	}
	return entry.challenge, nil
}

// Delete removes any entry for uid.
func (s *MemoryStore) Delete(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, uid)
	return nil
}

// Sweep removes all expired entries and reports how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for uid, entry := range s.entries {
		if now.After(entry.deadline) {
			delete(s.entries, uid)
			dropped++
		}
	}
	return dropped
}

// Count returns the number of entries, including not-yet-swept expired ones.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
