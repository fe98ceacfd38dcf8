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
	"testing"

	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegration_FullRegistrationCeremony drives a complete ceremony with a
// virtual authenticator and the real attestation verifier.
func TestIntegration_FullRegistrationCeremony(t *testing.T) {
	ctx := context.Background()
	fixture := newOrchestratorFixture(t, nil) // real verifier built from config
	cfg := fixture.orchestrator.Config()

	rp := virtualwebauthn.RelyingParty{
		Name:   cfg.RPDisplayName,
		ID:     cfg.RPID,
		Origin: cfg.RPOrigins[0],
	}
	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	// Step 1: create the account and receive registration options.
	result, err := fixture.orchestrator.CreateUser(ctx, annParams())
	require.NoError(t, err)

	assert.Equal(t, cfg.RPID, result.Options.Response.RelyingParty.ID)
	assert.Equal(t, "ann", result.Options.Response.User.Name)
	assert.Equal(t, "Ann Example", result.Options.Response.User.DisplayName)
	assert.NotEmpty(t, result.Options.Response.Challenge)

	// Step 2: the virtual authenticator signs the options.
	optionsJSON, err := json.Marshal(result.Options.Response)
	require.NoError(t, err)

	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestationResponse := virtualwebauthn.CreateAttestationResponse(rp, authenticator, credential, *parsedOptions)

	// Step 3: submit the signed response.
	user, token, err := fixture.orchestrator.SubmitCredential(ctx, result.SessionID, []byte(attestationResponse))
	require.NoError(t, err)
	assert.Equal(t, result.User.UID, user.UID)
	assert.NotEmpty(t, token)

	// Exactly one credential row, owned by the new account.
	assert.Equal(t, 1, fixture.creds.Count())
	creds, err := fixture.creds.ListCredentialsByUser(ctx, user.UID)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.NotEmpty(t, creds[0].PublicKey)
}

// TestIntegration_WrongOriginRejected signs the options for a different
// origin than the server is configured for.
func TestIntegration_WrongOriginRejected(t *testing.T) {
	ctx := context.Background()
	fixture := newOrchestratorFixture(t, nil)
	cfg := fixture.orchestrator.Config()

	evilRP := virtualwebauthn.RelyingParty{
		Name:   cfg.RPDisplayName,
		ID:     cfg.RPID,
		Origin: "https://evil.example.net",
	}
	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	result, err := fixture.orchestrator.CreateUser(ctx, annParams())
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(result.Options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestationResponse := virtualwebauthn.CreateAttestationResponse(evilRP, authenticator, credential, *parsedOptions)

	_, _, err = fixture.orchestrator.SubmitCredential(ctx, result.SessionID, []byte(attestationResponse))
	assert.ErrorIs(t, err, ErrVerificationFailed)

	// A failed ceremony leaves no account row and no credential.
	assert.Equal(t, 0, fixture.users.Count())
	assert.Equal(t, 0, fixture.creds.Count())
}

// TestIntegration_TamperedResponseRejected flips bytes in the signed
// payload before submission.
func TestIntegration_TamperedResponseRejected(t *testing.T) {
	ctx := context.Background()
	fixture := newOrchestratorFixture(t, nil)

	result, err := fixture.orchestrator.CreateUser(ctx, annParams())
	require.NoError(t, err)

	_, _, err = fixture.orchestrator.SubmitCredential(ctx, result.SessionID, []byte(`{"not":"an attestation"}`))
	assert.ErrorIs(t, err, ErrVerificationFailed)

	assert.Equal(t, 0, fixture.users.Count())
	assert.Equal(t, 0, fixture.creds.Count())
}

// TestIntegration_StaleChallengeRejected answers a challenge that was
// already replaced by a newer ceremony for a different session.
func TestIntegration_StaleChallengeRejected(t *testing.T) {
	ctx := context.Background()
	fixture := newOrchestratorFixture(t, nil)
	cfg := fixture.orchestrator.Config()

	rp := virtualwebauthn.RelyingParty{
		Name:   cfg.RPDisplayName,
		ID:     cfg.RPID,
		Origin: cfg.RPOrigins[0],
	}
	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	result, err := fixture.orchestrator.CreateUser(ctx, annParams())
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(result.Options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)
	attestationResponse := virtualwebauthn.CreateAttestationResponse(rp, authenticator, credential, *parsedOptions)

	// Overwrite the live challenge, simulating a newer ceremony for the
	// same account uid.
	require.NoError(t, fixture.challenges.Put(ctx, result.User.UID, []byte("fresh-challenge-bytes"), cfg.ChallengeTTL))

	_, _, err = fixture.orchestrator.SubmitCredential(ctx, result.SessionID, []byte(attestationResponse))
	assert.ErrorIs(t, err, ErrVerificationFailed)

	assert.Equal(t, 0, fixture.users.Count())
	assert.Equal(t, 0, fixture.creds.Count())
}
