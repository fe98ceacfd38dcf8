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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	const goroutines = 32
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("uid-1")
			defer km.Unlock("uid-1")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()

	km.Lock("uid-1")

	done := make(chan struct{})
	go func() {
		km.Lock("uid-2")
		km.Unlock("uid-2")
		close(done)
	}()

	// A different key must be acquirable while uid-1 is held.
	<-done
	km.Unlock("uid-1")
}

func TestKeyedMutex_EntriesAreReleased(t *testing.T) {
	km := newKeyedMutex()

	km.Lock("uid-1")
	km.Unlock("uid-1")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}
