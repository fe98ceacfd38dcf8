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
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/jeremyhahn/go-passkey/pkg/storage"
)

// Verification failure tags. Logged and counted internally, never returned
// to callers.
const (
	TagMalformed         = "malformed"
	TagOriginMismatch    = "origin_mismatch"
	TagRPIDMismatch      = "rp_id_mismatch"
	TagSignatureMismatch = "signature_mismatch"
)

// VerificationError is a tagged verification failure. It matches
// ErrVerificationFailed under errors.Is, so callers that don't care about
// the tag treat every variant the same way.
type VerificationError struct {
	Tag string
	Err error
}

// Error returns the error message.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed (%s): %v", e.Tag, e.Err)
}

// Unwrap returns the underlying error.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// Verifier validates a raw credential creation response against the
// challenge issued for the user.
type Verifier interface {
	Verify(ctx context.Context, user storage.User, challenge []byte, rawResponse []byte) (*webauthn.Credential, error)
}

// AttestationVerifier is the go-webauthn backed Verifier. It is stateless:
// the session data the library expects is rebuilt from the stored challenge
// bytes and the uid, so no library-side session persistence is involved.
// Origin and relying party id come from configuration only.
type AttestationVerifier struct {
	webauthn         *webauthn.WebAuthn
	userVerification protocol.UserVerificationRequirement
}

// NewVerifier creates an AttestationVerifier from the ceremony config.
func NewVerifier(cfg *Config) (*AttestationVerifier, error) {
	wa, err := webauthn.New(cfg.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create webauthn instance: %w", err)
	}
	return &AttestationVerifier{
		webauthn:         wa,
		userVerification: cfg.userVerificationRequirement(),
	}, nil
}

// Verify parses and validates the attestation response. All failures are
// returned as a tagged VerificationError.
func (v *AttestationVerifier) Verify(ctx context.Context, user storage.User, challenge []byte, rawResponse []byte) (*webauthn.Credential, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBytes(rawResponse)
	if err != nil {
		return nil, &VerificationError{Tag: TagMalformed, Err: err}
	}

	// The library compares the client data challenge against the
	// RawURLEncoding of the session challenge, so the stored bytes round
	// back through the same encoding they were issued with.
	session := webauthn.SessionData{
		Challenge:        base64.RawURLEncoding.EncodeToString(challenge),
		UserID:           []byte(user.UID),
		UserVerification: v.userVerification,
	}

	credential, err := v.webauthn.CreateCredential(newCeremonyUser(user), session, parsed)
	if err != nil {
		return nil, &VerificationError{Tag: classifyVerificationError(err), Err: err}
	}
	return credential, nil
}

// classifyVerificationError maps a go-webauthn validation error to an
// internal tag. The library reports failures through protocol.Error detail
// strings, so classification is by substring.
func classifyVerificationError(err error) string {
	msg := strings.ToLower(err.Error())
	var pErr *protocol.Error
	if errors.As(err, &pErr) {
		msg = strings.ToLower(pErr.Details + " " + pErr.DevInfo + " " + pErr.Type)
	}

	switch {
	case strings.Contains(msg, "origin"):
		return TagOriginMismatch
	case strings.Contains(msg, "rp hash"), strings.Contains(msg, "rp id"), strings.Contains(msg, "rpid"):
		return TagRPIDMismatch
	case strings.Contains(msg, "parse"), strings.Contains(msg, "unmarshal"), strings.Contains(msg, "decode"):
		return TagMalformed
	default:
		return TagSignatureMismatch
	}
}

var _ Verifier = (*AttestationVerifier)(nil)
