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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte{0x00, 0x01, 0xfe, 0xff, 0x80, 0x7f}
	require.NoError(t, store.Put(ctx, "user-1", original, time.Minute))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, original, got)

	// Mutating the returned slice must not corrupt the stored value.
	got[0] = 0xaa
	again, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, original, again)
}

func TestMemoryStore_PutReplacesExisting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", []byte("first"), time.Minute))
	require.NoError(t, store.Put(ctx, "user-1", []byte("second"), time.Minute))

	got, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
	assert.Equal(t, 1, store.Count())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "no-such-user")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStore_ConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", []byte("challenge"), time.Minute))

	got, err := store.Consume(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("challenge"), got)

	_, err = store.Consume(ctx, "user-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	_, err = store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", []byte("challenge"), time.Minute))

	const goroutines = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "user-1"); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, "user-1", []byte("challenge"), 10*time.Minute))

	current = current.Add(10*time.Minute + time.Second)

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)

	_, err = store.Consume(ctx, "user-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "user-1", []byte("challenge"), time.Minute))
	require.NoError(t, store.Delete(ctx, "user-1"))
	require.NoError(t, store.Delete(ctx, "user-1"))

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Put(ctx, "expired-1", []byte("a"), time.Minute))
	require.NoError(t, store.Put(ctx, "expired-2", []byte("b"), time.Minute))
	require.NoError(t, store.Put(ctx, "live", []byte("c"), time.Hour))

	current = current.Add(2 * time.Minute)

	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 1, store.Count())

	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}
