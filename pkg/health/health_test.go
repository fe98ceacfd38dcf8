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

package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyWithoutChecks(t *testing.T) {
	checker := NewChecker()

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, StatusHealthy, results[0].Status)
	assert.True(t, checker.IsHealthy(context.Background()))
}

func TestPingCheck(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("database", PingCheck("database", func(ctx context.Context) error {
		return nil
	}))

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "database", results[0].Name)
	assert.Equal(t, StatusHealthy, results[0].Status)
}

func TestPingCheckFailure(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("cache", PingCheck("cache", func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, StatusUnhealthy, results[0].Status)
	assert.Equal(t, "connection refused", results[0].Error)
	assert.False(t, checker.IsHealthy(context.Background()))
}

func TestStaticCheck(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("cache", StaticCheck("cache", StatusDegraded, "in-process fallback"))

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, StatusDegraded, results[0].Status)
	assert.Equal(t, "in-process fallback", results[0].Message)
}

func TestRegisterReplacesCheck(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("cache", StaticCheck("cache", StatusUnhealthy, ""))
	checker.RegisterCheck("cache", StaticCheck("cache", StatusHealthy, ""))

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, StatusHealthy, results[0].Status)
}

func TestRegisterNilCheckIgnored(t *testing.T) {
	checker := NewChecker()
	checker.RegisterCheck("noop", nil)

	results := checker.Ready(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "default", results[0].Name)
}

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name     string
		results  []CheckResult
		expected Status
	}{
		{
			name:     "empty is healthy",
			expected: StatusHealthy,
		},
		{
			name: "all healthy",
			results: []CheckResult{
				{Status: StatusHealthy},
				{Status: StatusHealthy},
			},
			expected: StatusHealthy,
		},
		{
			name: "degraded wins over healthy",
			results: []CheckResult{
				{Status: StatusHealthy},
				{Status: StatusDegraded},
			},
			expected: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			results: []CheckResult{
				{Status: StatusDegraded},
				{Status: StatusUnhealthy},
			},
			expected: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AggregateStatus(tt.results))
		})
	}
}

func TestUptime(t *testing.T) {
	checker := NewChecker()
	assert.GreaterOrEqual(t, checker.Uptime(), time.Duration(0))
}
