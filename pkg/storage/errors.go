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

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrConflict is returned when a username or email is already in use.
	ErrConflict = errors.New("username or email already in use")

	// ErrCredentialNotFound is returned when a credential cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrDuplicateCredential is returned when a credential id is already
	// registered, for any user. Credential ids are globally unique.
	ErrDuplicateCredential = errors.New("credential id already registered")
)

// IsConflict returns true if the error indicates a uniqueness violation on
// username or email.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsDuplicateCredential returns true if the error indicates a credential id
// collision.
func IsDuplicateCredential(err error) bool {
	return errors.Is(err, ErrDuplicateCredential)
}
