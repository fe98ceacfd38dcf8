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

// Package storage provides durable persistence for accounts and passkey
// credentials.
//
// Two implementations are provided behind the same interfaces:
//   - SQLite (modernc.org/sqlite) for production deployments
//   - In-memory stores for development and testing
//
// Uniqueness is enforced by the store itself: username, email, and the
// credential id carry unique constraints, and violations surface as the
// distinct sentinels ErrConflict and ErrDuplicateCredential so callers can
// tell a collision apart from an infrastructure failure.
package storage
