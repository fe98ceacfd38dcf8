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
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names reported by Select and exported through metrics.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// RedisConfig carries the connection settings for the primary backend.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	OpTimeout time.Duration
}

// Select probes Redis once with a bounded PING and returns the backing
// store plus the backend name. When the probe fails the service degrades
// to the in-process store rather than refusing to start; challenges
// issued before the fallback are lost, which only forces those ceremonies
// to restart.
func Select(ctx context.Context, cfg RedisConfig, logger *slog.Logger) (Store, string) {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	probeCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := client.Ping(probeCtx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-process challenge store",
			slog.String("addr", cfg.Addr),
			slog.String("error", err.Error()))
		client.Close()
		return NewMemoryStore(), BackendMemory
	}

	logger.Info("using redis challenge store", slog.String("addr", cfg.Addr))
	return NewRedisStore(client, cfg.KeyPrefix, opTimeout), BackendRedis
}
