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

package storage

import (
	"context"
	"encoding/hex"
	"sync"
	"time"
)

// MemoryUserStore is an in-memory implementation of UserStore.
// This is intended for development and testing only.
type MemoryUserStore struct {
	mu         sync.RWMutex
	byUID      map[string]User
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byUID:      make(map[string]User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// CreateUser inserts a new account row.
func (s *MemoryUserStore) CreateUser(ctx context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return User{}, ErrConflict
	}
	if _, ok := s.byEmail[user.Email]; ok {
		return User{}, ErrConflict
	}

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.byUID[user.UID] = user
	s.byUsername[user.Username] = user.UID
	s.byEmail[user.Email] = user.UID

	return user, nil
}

// GetUserByUID retrieves an account by its external identifier.
func (s *MemoryUserStore) GetUserByUID(ctx context.Context, uid string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byUID[uid]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// GetUserByUsername retrieves an account by username.
func (s *MemoryUserStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uid, ok := s.byUsername[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return s.byUID[uid], nil
}

// DeleteUser removes an account row.
func (s *MemoryUserStore) DeleteUser(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byUID[uid]
	if !ok {
		return ErrUserNotFound
	}

	delete(s.byUID, uid)
	delete(s.byUsername, user.Username)
	delete(s.byEmail, user.Email)

	return nil
}

// Count returns the number of accounts in the store.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUID)
}

// MemoryCredentialStore is an in-memory implementation of CredentialStore.
// This is intended for development and testing only.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	byID  map[string]Credential
	byUID map[string][]string
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:  make(map[string]Credential),
		byUID: make(map[string][]string),
	}
}

// CreateCredential stores a new credential.
func (s *MemoryCredentialStore) CreateCredential(ctx context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(cred.ID)
	if _, ok := s.byID[key]; ok {
		return ErrDuplicateCredential
	}

	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = time.Now().UTC()
	}

	s.byID[key] = cred
	s.byUID[cred.UserUID] = append(s.byUID[cred.UserUID], key)

	return nil
}

// GetCredential retrieves a credential by its id.
func (s *MemoryCredentialStore) GetCredential(ctx context.Context, credentialID []byte) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cred, nil
}

// ListCredentialsByUser retrieves all credentials owned by an account.
func (s *MemoryCredentialStore) ListCredentialsByUser(ctx context.Context, uid string) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.byUID[uid]
	creds := make([]Credential, 0, len(keys))
	for _, key := range keys {
		creds = append(creds, s.byID[key])
	}
	return creds, nil
}

// Count returns the total number of credentials in the store.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

var _ UserStore = (*MemoryUserStore)(nil)
var _ CredentialStore = (*MemoryCredentialStore)(nil)
