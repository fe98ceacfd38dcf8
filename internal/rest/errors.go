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

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/registration"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// writeError writes a generic error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message, Code: statusCode}, statusCode)
}

// ceremonyFailure maps a registration error to an HTTP status code, a
// user-facing message, and a metrics failure reason. Verification detail
// stays generic; the sub-check is only ever logged server-side.
func ceremonyFailure(err error) (statusCode int, message string, reason string) {
	switch {
	case errors.Is(err, registration.ErrValidation):
		return http.StatusBadRequest, userFacingMessage(err), metrics.ReasonValidation
	case registration.IsConflict(err):
		return http.StatusConflict, "account already exists", metrics.ReasonConflict
	case registration.IsNoPendingSession(err),
		errors.Is(err, registration.ErrUserNotFound):
		return http.StatusUnauthorized, "no pending registration", metrics.ReasonNoSession
	case registration.IsChallengeExpired(err):
		return http.StatusBadRequest, "challenge expired", metrics.ReasonExpired
	case registration.IsVerificationFailed(err):
		return http.StatusBadRequest, "credential verification failed", metrics.ReasonVerification
	default:
		return http.StatusInternalServerError, "internal server error", metrics.ReasonInternal
	}
}

// userFacingMessage strips the operation prefix from a wrapped ceremony
// error so clients see "validation failed: name is required" rather than
// internal operation names.
func userFacingMessage(err error) string {
	var regErr *registration.RegistrationError
	if errors.As(err, &regErr) {
		return regErr.Err.Error()
	}
	return err.Error()
}
