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
	"errors"
	"fmt"
)

// Sentinel errors for registration ceremony operations.
var (
	// ErrValidation is returned when required account fields are missing or
	// malformed.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when the requested username or email is
	// already taken.
	ErrConflict = errors.New("account already exists")

	// ErrUserNotFound is returned when the pending account row cannot be
	// resolved.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoPendingSession is returned when the caller has no pending
	// registration ceremony.
	ErrNoPendingSession = errors.New("no pending registration session")

	// ErrChallengeExpired is returned when the challenge is absent, expired,
	// or already consumed.
	ErrChallengeExpired = errors.New("challenge expired or already used")

	// ErrVerificationFailed is returned when the attestation response does
	// not verify. The reason is never disclosed.
	ErrVerificationFailed = errors.New("credential verification failed")

	// ErrNotConfigured is returned when the orchestrator is missing a
	// required dependency.
	ErrNotConfigured = errors.New("registration service not configured")
)

// RegistrationError wraps an error with the operation that produced it.
type RegistrationError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *RegistrationError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *RegistrationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new RegistrationError with the given operation and error.
func NewError(op string, err error) error {
	return &RegistrationError{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsConflict returns true if the error indicates a username or email collision.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsNoPendingSession returns true if the error indicates no pending ceremony.
func IsNoPendingSession(err error) bool {
	return errors.Is(err, ErrNoPendingSession)
}

// IsChallengeExpired returns true if the error indicates a dead challenge.
func IsChallengeExpired(err error) bool {
	return errors.Is(err, ErrChallengeExpired)
}

// IsVerificationFailed returns true if the error indicates verification failed.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}
