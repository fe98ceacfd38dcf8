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
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/registration"
)

// maxCredentialBody bounds the attestation response payload.
const maxCredentialBody = 1 << 20

// HandlerContext holds the dependencies the ceremony handlers need.
type HandlerContext struct {
	orchestrator     *registration.Orchestrator
	logger           *slog.Logger
	tokenTTL         time.Duration
	version          string
	challengeBackend string
	storageBackend   string
	checker          *health.Checker
}

// NewHandlerContext creates a new handler context.
func NewHandlerContext(orchestrator *registration.Orchestrator, logger *slog.Logger, tokenTTL time.Duration, version string) *HandlerContext {
	return &HandlerContext{
		orchestrator: orchestrator,
		logger:       logger,
		tokenTTL:     tokenTTL,
		version:      version,
	}
}

// SetBackends records the backend names reported by the liveness probe.
func (h *HandlerContext) SetBackends(challengeBackend, storageBackend string) {
	h.challengeBackend = challengeBackend
	h.storageBackend = storageBackend
}

// SetHealthChecker installs the readiness checker for /healthz.
func (h *HandlerContext) SetHealthChecker(checker *health.Checker) {
	h.checker = checker
}

// CreateUserHandler handles POST /create-user requests.
//
// The form fields name, username and email create a tentative account and
// start the ceremony. The response body is the WebAuthn credential creation
// options; the pending session rides in the registration_session cookie.
func (h *HandlerContext) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		metrics.RecordCeremonyFailed(metrics.ReasonValidation)
		writeError(w, "invalid form data", http.StatusBadRequest)
		return
	}

	result, err := h.orchestrator.CreateUser(r.Context(), registration.CreateUserParams{
		Name:     r.PostFormValue("name"),
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
	})
	if err != nil {
		statusCode, message, reason := ceremonyFailure(err)
		metrics.RecordCeremonyFailed(reason)
		if statusCode == http.StatusInternalServerError {
			h.logger.Error("Failed to create user", "error", err)
		}
		writeError(w, message, statusCode)
		return
	}

	metrics.RecordCeremonyStarted()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    result.SessionID,
		Path:     "/",
		MaxAge:   int(h.orchestrator.Config().ChallengeTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info("Registration ceremony started",
		"uid", result.User.UID,
		"username", result.User.Username)

	writeJSON(w, result.Options, http.StatusCreated)
}

// AddCredentialHandler handles POST /add-credential requests.
//
// The body is the authenticator's credential creation response. On success
// the pending cookie is cleared and the user_uid cookie carries the identity
// token for the completed account.
func (h *HandlerContext) AddCredentialHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		metrics.RecordCeremonyFailed(metrics.ReasonNoSession)
		writeJSON(w, VerifyResponse{Verified: false, Error: "no pending registration"}, http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBody))
	if err != nil {
		metrics.RecordCeremonyFailed(metrics.ReasonVerification)
		writeJSON(w, VerifyResponse{Verified: false, Error: "failed to read request body"}, http.StatusBadRequest)
		return
	}

	user, token, err := h.orchestrator.SubmitCredential(r.Context(), cookie.Value, body)
	if err != nil {
		statusCode, message, reason := ceremonyFailure(err)
		metrics.RecordCeremonyFailed(reason)
		if statusCode == http.StatusInternalServerError {
			h.logger.Error("Failed to submit credential", "error", err)
		}
		writeJSON(w, VerifyResponse{Verified: false, Error: message}, statusCode)
		return
	}

	metrics.RecordCeremonyCompleted()

	// The pending session is spent either way.
	clearCookie(w, SessionCookieName)

	http.SetCookie(w, &http.Cookie{
		Name:     UserCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	h.logger.Info("Registration ceremony completed",
		"uid", user.UID,
		"username", user.Username)

	writeJSON(w, VerifyResponse{Verified: true}, http.StatusCreated)
}

// CleanupHandler handles POST /cleanup-failed-registration requests.
//
// Clients call this when the browser ceremony is cancelled or fails so the
// tentative account does not squat on the username.
func (h *HandlerContext) CleanupHandler(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, CleanupResponse{Cleaned: true}, http.StatusOK)
		return
	}

	if err := h.orchestrator.Cleanup(r.Context(), cookie.Value); err != nil {
		h.logger.Error("Failed to clean up registration", "error", err)
		writeJSON(w, CleanupResponse{Cleaned: false}, http.StatusInternalServerError)
		return
	}

	metrics.RecordCleanup()
	clearCookie(w, SessionCookieName)
	writeJSON(w, CleanupResponse{Cleaned: true}, http.StatusOK)
}

// LoginHandler handles GET /login requests. Authentication ceremonies are
// not part of this service.
func (h *HandlerContext) LoginHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, "login is not implemented", http.StatusNotImplemented)
}

// HealthzHandler handles GET /healthz requests. Without a checker the
// probe reports flat liveness; with one it runs the backend checks and
// returns 503 when any backend is down.
func (h *HandlerContext) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:           string(health.StatusHealthy),
		Version:          h.version,
		ChallengeBackend: h.challengeBackend,
		StorageBackend:   h.storageBackend,
	}

	statusCode := http.StatusOK
	if h.checker != nil {
		resp.Checks = h.checker.Ready(r.Context())
		overall := health.AggregateStatus(resp.Checks)
		resp.Status = string(overall)
		if overall == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, resp, statusCode)
}

// clearCookie expires a cookie on the client.
func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
