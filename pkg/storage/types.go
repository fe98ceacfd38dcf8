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

import "time"

// User is a durable account record.
//
// The internal database row id is never exposed outside this package. UID is
// the only identifier that may appear in cookies, sessions, or challenge
// store keys; it is assigned exactly once at creation and never changes.
type User struct {
	// UID is the stable, opaque external identifier for the account.
	UID string `json:"uid"`

	// Username is unique across all accounts and required.
	Username string `json:"username"`

	// Email is unique across all accounts and required.
	Email string `json:"email"`

	// Name is an optional display name.
	Name string `json:"name,omitempty"`

	// CreatedAt is when the account row was created.
	CreatedAt time.Time `json:"created_at"`
}

// Credential is a registered passkey public key record.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	// Globally unique: an id may never be attached to more than one user.
	ID []byte `json:"id"`

	// UserUID is the owning account's external identifier.
	UserUID string `json:"user_uid"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// CredentialJSON preserves the full validated credential (attestation
	// type, transports, authenticator flags, sign counter) for a future
	// assertion ceremony.
	CredentialJSON string `json:"credential_json"`

	// CreatedAt is when the credential completed registration.
	CreatedAt time.Time `json:"created_at"`
}
