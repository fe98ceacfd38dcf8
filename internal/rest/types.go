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

package rest

import "github.com/jeremyhahn/go-passkey/pkg/health"

// Cookie names used by the registration ceremony.
const (
	// SessionCookieName carries the opaque pending registration session id.
	SessionCookieName = "registration_session"

	// UserCookieName carries the identity token after a completed ceremony.
	UserCookieName = "user_uid"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// VerifyResponse represents the outcome of a credential submission.
type VerifyResponse struct {
	Verified bool   `json:"verified"`
	Error    string `json:"error,omitempty"`
}

// CleanupResponse represents the outcome of a cleanup request.
type CleanupResponse struct {
	Cleaned bool `json:"cleaned"`
}

// HealthResponse represents the liveness probe response.
type HealthResponse struct {
	Status           string               `json:"status"`
	Version          string               `json:"version,omitempty"`
	ChallengeBackend string               `json:"challenge_backend,omitempty"`
	StorageBackend   string               `json:"storage_backend,omitempty"`
	Checks           []health.CheckResult `json:"checks,omitempty"`
}
