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
	"errors"
	"time"
)

// ErrChallengeNotFound is returned when no live challenge exists for the
// requested uid. Expired entries and already-consumed entries are
// indistinguishable from entries that never existed.
var ErrChallengeNotFound = errors.New("challenge: not found")

// Store holds pending registration challenges keyed by account uid.
// Implementations must return challenge bytes bit-exact as stored.
type Store interface {

	// Put stores the challenge for uid with the given TTL, replacing any
	// previous entry for the same uid.
	Put(ctx context.Context, uid string, challenge []byte, ttl time.Duration) error

	// Get returns the live challenge for uid without consuming it.
	Get(ctx context.Context, uid string) ([]byte, error)

	// Consume atomically returns and removes the live challenge for uid.
	// A second Consume for the same uid returns ErrChallengeNotFound.
	Consume(ctx context.Context, uid string) ([]byte, error)

	// Delete removes any entry for uid. Deleting a missing entry is not
	// an error.
	Delete(ctx context.Context, uid string) error
}
