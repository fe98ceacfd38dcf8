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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-passkey/pkg/storage"
)

func TestJWTGenerator_RequiresSecret(t *testing.T) {
	_, err := NewJWTGenerator(&JWTGeneratorConfig{})
	assert.Error(t, err)

	_, err = NewJWTGenerator(nil)
	assert.Error(t, err)
}

func TestJWTGenerator_RoundTrip(t *testing.T) {
	gen, err := NewJWTGenerator(&JWTGeneratorConfig{
		Secret: []byte("test-secret-key"),
	})
	require.NoError(t, err)

	user := storage.User{
		UID:      "uid-123",
		Username: "ann",
		Name:     "Ann Example",
	}

	token, err := gen.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := gen.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "uid-123", claims["sub"])
	assert.Equal(t, "ann", claims["username"])
	assert.Equal(t, "Ann Example", claims["name"])
	assert.Equal(t, "go-passkey", claims["iss"])
}

func TestJWTGenerator_RejectsWrongSecret(t *testing.T) {
	gen1, err := NewJWTGenerator(&JWTGeneratorConfig{Secret: []byte("secret-one")})
	require.NoError(t, err)
	gen2, err := NewJWTGenerator(&JWTGeneratorConfig{Secret: []byte("secret-two")})
	require.NoError(t, err)

	token, err := gen1.GenerateToken(storage.User{UID: "uid-123", Username: "ann"})
	require.NoError(t, err)

	_, err = gen2.VerifyToken(token)
	assert.Error(t, err)
}

func TestJWTGenerator_Defaults(t *testing.T) {
	gen, err := NewJWTGenerator(&JWTGeneratorConfig{Secret: []byte("s")})
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, gen.ExpiresIn())
}
