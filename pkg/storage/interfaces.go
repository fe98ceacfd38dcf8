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

import "context"

// UserStore persists account records.
type UserStore interface {
	// CreateUser inserts a new account row.
	// Returns ErrConflict if the username or email is already in use.
	CreateUser(ctx context.Context, user User) (User, error)

	// GetUserByUID retrieves an account by its external identifier.
	// Returns ErrUserNotFound if no such account exists.
	GetUserByUID(ctx context.Context, uid string) (User, error)

	// GetUserByUsername retrieves an account by username.
	// Returns ErrUserNotFound if no such account exists.
	GetUserByUsername(ctx context.Context, username string) (User, error)

	// DeleteUser removes an account row.
	// Returns ErrUserNotFound if no such account exists.
	DeleteUser(ctx context.Context, uid string) error
}

// CredentialStore persists completed passkey credentials.
type CredentialStore interface {
	// CreateCredential stores a new credential. The write is atomic: either
	// the full record is persisted or nothing is.
	// Returns ErrDuplicateCredential if the credential id already exists
	// for any user.
	CreateCredential(ctx context.Context, cred Credential) error

	// GetCredential retrieves a credential by its id.
	// Returns ErrCredentialNotFound if no such credential exists.
	GetCredential(ctx context.Context, credentialID []byte) (Credential, error)

	// ListCredentialsByUser retrieves all credentials owned by an account.
	// Returns an empty slice when the account has none.
	ListCredentialsByUser(ctx context.Context, uid string) ([]Credential, error)
}
