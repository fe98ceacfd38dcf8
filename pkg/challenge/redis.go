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
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultOpTimeout = 2 * time.Second

// RedisStore is the primary Store backend. Consume uses GETDEL so a
// challenge can be claimed by exactly one ceremony even across multiple
// server processes. Every call runs under a bounded per-operation timeout
// so a wedged Redis cannot stall a ceremony indefinitely.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	opTimeout time.Duration
}

// NewRedisStore wraps an existing Redis client. opTimeout bounds each
// round trip; zero selects the default of two seconds.
func NewRedisStore(client *redis.Client, keyPrefix string, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		opTimeout: opTimeout,
	}
}

func (s *RedisStore) key(uid string) string {
	return fmt.Sprintf("%schallenge:%s", s.keyPrefix, uid)
}

func (s *RedisStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Put stores the challenge for uid, replacing any previous entry.
func (s *RedisStore) Put(ctx context.Context, uid string, challenge []byte, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Set(ctx, s.key(uid), challenge, ttl).Err(); err != nil {
		return fmt.Errorf("challenge: redis set: %w", err)
	}
	return nil
}

// Get returns the live challenge for uid without consuming it.
func (s *RedisStore) Get(ctx context.Context, uid string) ([]byte, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("challenge: redis get: %w", err)
	}
	return val, nil
}

// Consume atomically returns and removes the challenge for uid.
func (s *RedisStore) Consume(ctx context.Context, uid string) ([]byte, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	val, err := s.client.GetDel(ctx, s.key(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("challenge: redis getdel: %w", err)
	}
	return val, nil
}

// Ping reports Redis connectivity, used by the readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Delete removes any entry for uid.
func (s *RedisStore) Delete(ctx context.Context, uid string) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.client.Del(ctx, s.key(uid)).Err(); err != nil {
		return fmt.Errorf("challenge: redis del: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
