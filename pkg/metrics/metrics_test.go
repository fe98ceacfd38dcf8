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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCeremonyCounters(t *testing.T) {
	Enable()

	started := testutil.ToFloat64(CeremoniesStartedTotal)
	completed := testutil.ToFloat64(CeremoniesCompletedTotal)

	RecordCeremonyStarted()
	RecordCeremonyCompleted()
	RecordCeremonyFailed(ReasonVerification)

	assert.Equal(t, started+1, testutil.ToFloat64(CeremoniesStartedTotal))
	assert.Equal(t, completed+1, testutil.ToFloat64(CeremoniesCompletedTotal))
	assert.GreaterOrEqual(t, testutil.ToFloat64(CeremoniesFailedTotal.WithLabelValues(ReasonVerification)), 1.0)
}

func TestSetChallengeBackend(t *testing.T) {
	Enable()

	SetChallengeBackend("redis")
	assert.Equal(t, 1.0, testutil.ToFloat64(ChallengeBackend.WithLabelValues("redis")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ChallengeBackend.WithLabelValues("memory")))

	SetChallengeBackend("memory")
	assert.Equal(t, 0.0, testutil.ToFloat64(ChallengeBackend.WithLabelValues("redis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ChallengeBackend.WithLabelValues("memory")))
}

func TestDisableStopsRecording(t *testing.T) {
	Enable()
	before := testutil.ToFloat64(CeremoniesStartedTotal)

	Disable()
	defer Enable()

	RecordCeremonyStarted()
	RecordCeremonyFailed(ReasonInternal)

	assert.Equal(t, before, testutil.ToFloat64(CeremoniesStartedTotal))
	assert.False(t, IsEnabled())
}

func TestRecordHTTPRequest(t *testing.T) {
	Enable()

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "201"))
	RecordHTTPRequest("POST", "201", 0.05)
	assert.Equal(t, before+1, testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "201")))
}
