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

// Package challenge provides a TTL key-value store for pending registration
// challenges, keyed by account uid.
//
// Challenge bytes are stored and returned bit-exact: downstream signature
// verification compares the signed client data against the original
// challenge, so any re-encoding loss would break the ceremony.
//
// Two implementations satisfy the one Store interface:
//   - RedisStore, the primary backend, every call bounded by a per-operation
//     timeout
//   - MemoryStore, a mutex-guarded in-process fallback safe under concurrent
//     ceremonies
//
// Select probes Redis once at startup and falls back to the in-process store
// when it is unreachable; callers never branch on the backend again.
package challenge
