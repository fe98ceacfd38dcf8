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
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/jeremyhahn/go-passkey/pkg/storage"
)

// ceremonyUser adapts a storage.User to the go-webauthn User interface for
// the duration of one ceremony. The uid bytes serve as the WebAuthn user
// handle; a registering account has no prior credentials to exclude.
type ceremonyUser struct {
	user storage.User
}

func newCeremonyUser(user storage.User) ceremonyUser {
	return ceremonyUser{user: user}
}

// WebAuthnID returns the user handle.
func (u ceremonyUser) WebAuthnID() []byte {
	return []byte(u.user.UID)
}

// WebAuthnName returns the account username.
func (u ceremonyUser) WebAuthnName() string {
	return u.user.Username
}

// WebAuthnDisplayName returns the human-readable name, falling back to the
// username.
func (u ceremonyUser) WebAuthnDisplayName() string {
	if u.user.Name == "" {
		return u.user.Username
	}
	return u.user.Name
}

// WebAuthnCredentials returns no credentials; registration always starts
// from an empty account.
func (u ceremonyUser) WebAuthnCredentials() []webauthn.Credential {
	return nil
}

var _ webauthn.User = ceremonyUser{}
