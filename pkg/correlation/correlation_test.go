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

package correlation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ctx := WithID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", ID(ctx))
}

func TestMissingID(t *testing.T) {
	assert.Empty(t, ID(context.Background()))
	assert.Empty(t, ID(nil)) //nolint:staticcheck
}

func TestNewIDIsUUID(t *testing.T) {
	id := NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	assert.NotEqual(t, id, NewID())
}

func TestGetOrGenerate(t *testing.T) {
	ctx := WithID(context.Background(), "existing")
	assert.Equal(t, "existing", GetOrGenerate(ctx))

	generated := GetOrGenerate(context.Background())
	_, err := uuid.Parse(generated)
	require.NoError(t, err)
}
