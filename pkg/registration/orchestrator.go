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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-passkey/pkg/challenge"
	"github.com/jeremyhahn/go-passkey/pkg/storage"
)

// Orchestrator drives registration ceremonies across the user store,
// credential store, challenge store and session binder.
type Orchestrator struct {
	webauthn   *webauthn.WebAuthn
	config     *Config
	users      storage.UserStore
	creds      storage.CredentialStore
	challenges challenge.Store
	binder     SessionBinder
	verifier   Verifier
	tokens     TokenGenerator // optional
	logger     *slog.Logger
	uidLocks   *keyedMutex
}

// OrchestratorParams contains dependencies for creating an Orchestrator.
type OrchestratorParams struct {
	// Config is the ceremony configuration (required).
	Config *Config

	// UserStore is the account persistence layer (required).
	UserStore storage.UserStore

	// CredentialStore is the credential persistence layer (required).
	CredentialStore storage.CredentialStore

	// ChallengeStore holds pending challenges (required).
	ChallengeStore challenge.Store

	// SessionBinder tracks the pending uid per caller session (required).
	SessionBinder SessionBinder

	// Verifier validates attestation responses. If nil, an
	// AttestationVerifier is built from Config.
	Verifier Verifier

	// TokenGenerator signs the post-ceremony identity token. If nil, the
	// raw uid is used as the token value.
	TokenGenerator TokenGenerator

	// Logger receives ceremony events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator with the provided dependencies.
func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Config == nil {
		return nil, NewError("new orchestrator", errors.New("config is required"))
	}
	if params.UserStore == nil {
		return nil, NewError("new orchestrator", errors.New("user store is required"))
	}
	if params.CredentialStore == nil {
		return nil, NewError("new orchestrator", errors.New("credential store is required"))
	}
	if params.ChallengeStore == nil {
		return nil, NewError("new orchestrator", errors.New("challenge store is required"))
	}
	if params.SessionBinder == nil {
		return nil, NewError("new orchestrator", errors.New("session binder is required"))
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, NewError("new orchestrator", err)
	}

	wa, err := webauthn.New(params.Config.ToWebAuthnConfig())
	if err != nil {
		return nil, NewError("new orchestrator", err)
	}

	verifier := params.Verifier
	if verifier == nil {
		verifier, err = NewVerifier(params.Config)
		if err != nil {
			return nil, NewError("new orchestrator", err)
		}
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		webauthn:   wa,
		config:     params.Config,
		users:      params.UserStore,
		creds:      params.CredentialStore,
		challenges: params.ChallengeStore,
		binder:     params.SessionBinder,
		verifier:   verifier,
		tokens:     params.TokenGenerator,
		logger:     logger,
		uidLocks:   newKeyedMutex(),
	}, nil
}

// CreateUserParams are the account fields for a new ceremony. Name is
// optional; the username doubles as the display name when it is empty.
type CreateUserParams struct {
	Name     string
	Username string
	Email    string
}

// CreateUserResult is the outcome of a successfully started ceremony.
type CreateUserResult struct {
	// User is the tentatively created account.
	User storage.User

	// Options is the credential creation payload for the client, carrying
	// the issued challenge.
	Options *protocol.CredentialCreation

	// SessionID is the opaque value for the pending registration cookie.
	SessionID string
}

func (p *CreateUserParams) validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrValidation)
	}
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	}
	return nil
}

// CreateUser tentatively creates the account row, issues a challenge bound
// to it and binds the new uid to a fresh caller session. If any step after
// the row commit fails, the row is deleted again before the error returns.
func (o *Orchestrator) CreateUser(ctx context.Context, params CreateUserParams) (*CreateUserResult, error) {
	if err := params.validate(); err != nil {
		return nil, NewError("create user", err)
	}

	o.reapExpired(ctx)

	user := storage.User{
		UID:       uuid.NewString(),
		Username:  strings.TrimSpace(params.Username),
		Email:     strings.TrimSpace(params.Email),
		Name:      strings.TrimSpace(params.Name),
		CreatedAt: time.Now().UTC(),
	}

	o.uidLocks.Lock(user.UID)
	defer o.uidLocks.Unlock(user.UID)

	user, err := o.users.CreateUser(ctx, user)
	if err != nil {
		if storage.IsConflict(err) {
			return nil, NewError("create user", ErrConflict)
		}
		return nil, WrapError("create user", err)
	}

	options, _, err := o.webauthn.BeginRegistration(newCeremonyUser(user))
	if err != nil {
		o.compensate(ctx, stepUserCreated, user.UID)
		return nil, WrapError("begin registration", err)
	}

	// options carries the challenge as raw bytes; the same bytes are what
	// the verifier later rebuilds session data from.
	if err := o.challenges.Put(ctx, user.UID, options.Response.Challenge, o.config.ChallengeTTL); err != nil {
		o.compensate(ctx, stepUserCreated, user.UID)
		return nil, WrapError("store challenge", err)
	}

	sessionID := NewSessionID()
	o.binder.Bind(sessionID, user.UID)

	o.logger.Info("registration ceremony started",
		slog.String("uid", user.UID),
		slog.String("username", user.Username))

	return &CreateUserResult{
		User:      user,
		Options:   options,
		SessionID: sessionID,
	}, nil
}

// SubmitCredential completes the ceremony for the caller's pending uid. The
// challenge is consumed exactly once; any failure after the account row
// exists deletes it again, so a failed ceremony leaves no trace. The
// returned token is the value for the user_uid cookie.
func (o *Orchestrator) SubmitCredential(ctx context.Context, sessionID string, rawResponse []byte) (storage.User, string, error) {
	uid, ok := o.binder.Lookup(sessionID)
	if !ok {
		return storage.User{}, "", NewError("submit credential", ErrNoPendingSession)
	}

	o.uidLocks.Lock(uid)
	defer o.uidLocks.Unlock(uid)

	// The binding may have been cleared by a submit or cleanup that held
	// the lock first.
	if _, ok := o.binder.Lookup(sessionID); !ok {
		return storage.User{}, "", NewError("submit credential", ErrNoPendingSession)
	}

	user, err := o.users.GetUserByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			o.binder.Clear(sessionID)
			return storage.User{}, "", NewError("submit credential", ErrUserNotFound)
		}
		return storage.User{}, "", WrapError("get user", err)
	}

	challengeBytes, err := o.challenges.Consume(ctx, uid)
	if err != nil {
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			o.compensate(ctx, stepUserCreated, uid)
			o.binder.Clear(sessionID)
			return storage.User{}, "", NewError("submit credential", ErrChallengeExpired)
		}
		return storage.User{}, "", WrapError("consume challenge", err)
	}

	credential, err := o.verifier.Verify(ctx, user, challengeBytes, rawResponse)
	if err != nil {
		o.logVerificationFailure(uid, err)
		o.compensate(ctx, stepUserCreated, uid)
		o.binder.Clear(sessionID)
		return storage.User{}, "", NewError("submit credential", ErrVerificationFailed)
	}

	credentialJSON, err := json.Marshal(credential)
	if err != nil {
		o.compensate(ctx, stepUserCreated, uid)
		o.binder.Clear(sessionID)
		return storage.User{}, "", WrapError("encode credential", err)
	}

	record := storage.Credential{
		ID:             credential.ID,
		UserUID:        uid,
		PublicKey:      credential.PublicKey,
		CredentialJSON: string(credentialJSON),
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.creds.CreateCredential(ctx, record); err != nil {
		o.compensate(ctx, stepUserCreated, uid)
		o.binder.Clear(sessionID)
		if storage.IsDuplicateCredential(err) {
			// A credential id registered to another account means key
			// reuse; reported as a generic verification failure.
			o.logger.Warn("duplicate credential id rejected", slog.String("uid", uid))
			return storage.User{}, "", NewError("submit credential", ErrVerificationFailed)
		}
		return storage.User{}, "", WrapError("store credential", err)
	}

	o.binder.Clear(sessionID)

	token, err := o.generateToken(user)
	if err != nil {
		// The ceremony is complete; a token failure must not unwind it.
		o.logger.Error("identity token generation failed",
			slog.String("uid", uid),
			slog.String("error", err.Error()))
		token = user.UID
	}

	o.logger.Info("registration ceremony completed",
		slog.String("uid", uid),
		slog.String("username", user.Username))

	return user, token, nil
}

// Cleanup abandons the caller's pending ceremony, removing the account row
// and any live challenge. Cleaning up a session with no pending ceremony is
// a no-op.
func (o *Orchestrator) Cleanup(ctx context.Context, sessionID string) error {
	o.reapExpired(ctx)

	uid, ok := o.binder.Lookup(sessionID)
	if !ok {
		return nil
	}

	o.uidLocks.Lock(uid)
	defer o.uidLocks.Unlock(uid)

	if err := o.challenges.Delete(ctx, uid); err != nil {
		return WrapError("cleanup challenge", err)
	}
	if err := o.users.DeleteUser(ctx, uid); err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return WrapError("cleanup user", err)
	}
	o.binder.Clear(sessionID)

	o.logger.Info("registration ceremony abandoned", slog.String("uid", uid))
	return nil
}

// reapExpired removes ceremonies whose session binding aged out without a
// submit or cleanup, deleting their account rows and challenges so the
// usernames become available again. Accounts that already hold a credential
// are never touched.
func (o *Orchestrator) reapExpired(ctx context.Context) {
	for _, uid := range o.binder.SweepExpired() {
		o.uidLocks.Lock(uid)
		creds, err := o.creds.ListCredentialsByUser(ctx, uid)
		switch {
		case err != nil:
			o.logger.Error("reap: list credentials",
				slog.String("uid", uid),
				slog.String("error", err.Error()))
		case len(creds) == 0:
			o.compensate(ctx, stepChallengeStored, uid)
			o.logger.Info("expired registration ceremony reaped", slog.String("uid", uid))
		}
		o.uidLocks.Unlock(uid)
	}
}

// Config returns the ceremony configuration.
func (o *Orchestrator) Config() *Config {
	return o.config
}

func (o *Orchestrator) generateToken(user storage.User) (string, error) {
	if o.tokens != nil {
		return o.tokens.GenerateToken(user)
	}
	return user.UID, nil
}

func (o *Orchestrator) logVerificationFailure(uid string, err error) {
	tag := "unknown"
	var vErr *VerificationError
	if errors.As(err, &vErr) {
		tag = vErr.Tag
	}
	o.logger.Warn("credential verification failed",
		slog.String("uid", uid),
		slog.String("tag", tag),
		slog.String("error", err.Error()))
}
