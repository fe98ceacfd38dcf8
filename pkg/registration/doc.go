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

// Package registration implements the passkey registration ceremony.
//
// The Orchestrator drives a ceremony through its states: CreateUser
// tentatively creates an account row, issues a single-use challenge and
// binds it to the caller's session; SubmitCredential consumes the
// challenge, verifies the signed attestation against the configured origin
// and relying party id, and persists the credential; Cleanup abandons a
// pending ceremony. An account row never survives a failed ceremony: every
// failure path after the row is committed deletes it again before the error
// is returned.
//
// Verification failures carry an internal tag (malformed, origin_mismatch,
// rp_id_mismatch, signature_mismatch) for logs and metrics. Callers only
// ever see ErrVerificationFailed.
package registration
