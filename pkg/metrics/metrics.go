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

// Package metrics provides Prometheus instrumentation for the passkey
// registration service: ceremony counters, challenge backend state, HTTP
// request metrics, and process resource gauges.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all passkey metrics
	Namespace = "passkey"

	// Label names
	LabelReason     = "reason"
	LabelBackend    = "backend"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"
	LabelProtocol   = "protocol"

	// Ceremony failure reasons
	ReasonValidation   = "validation"
	ReasonConflict     = "conflict"
	ReasonNoSession    = "no_pending_session"
	ReasonExpired      = "challenge_expired"
	ReasonVerification = "verification_failed"
	ReasonInternal     = "internal"
)

var (
	// CeremoniesStartedTotal counts registration ceremonies that issued a
	// challenge.
	CeremoniesStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_started_total",
			Help:      "Total number of registration ceremonies started",
		},
	)

	// CeremoniesCompletedTotal counts ceremonies that persisted a credential.
	CeremoniesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_completed_total",
			Help:      "Total number of registration ceremonies completed",
		},
	)

	// CeremoniesFailedTotal counts failed ceremonies by reason.
	CeremoniesFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ceremonies_failed_total",
			Help:      "Total number of failed registration ceremonies by reason",
		},
		[]string{LabelReason},
	)

	// CleanupsTotal counts explicit cleanup requests for abandoned ceremonies.
	CleanupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cleanups_total",
			Help:      "Total number of abandoned-ceremony cleanups",
		},
	)

	// ChallengeBackend indicates the active challenge store backend:
	// 1 for the selected backend, 0 for the others.
	ChallengeBackend = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "challenge_backend",
			Help:      "Active challenge store backend (1 = selected)",
		},
		[]string{LabelBackend},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// ActiveConnections tracks the number of active connections by protocol.
	ActiveConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of active connections by protocol",
		},
		[]string{LabelProtocol},
	)

	// Goroutines tracks the current number of goroutines.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	// Updated periodically by the resource collector.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// MemorySysBytes tracks the total bytes of memory obtained from the OS.
	// Updated periodically by the resource collector.
	MemorySysBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_sys_bytes",
			Help:      "Total bytes of memory obtained from the OS",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordCeremonyStarted increments the started-ceremony counter.
func RecordCeremonyStarted() {
	if !enabled.Load() {
		return
	}
	CeremoniesStartedTotal.Inc()
}

// RecordCeremonyCompleted increments the completed-ceremony counter.
func RecordCeremonyCompleted() {
	if !enabled.Load() {
		return
	}
	CeremoniesCompletedTotal.Inc()
}

// RecordCeremonyFailed increments the failed-ceremony counter for the given
// reason (use the Reason* constants).
func RecordCeremonyFailed(reason string) {
	if !enabled.Load() {
		return
	}
	CeremoniesFailedTotal.WithLabelValues(reason).Inc()
}

// RecordCleanup increments the cleanup counter.
func RecordCleanup() {
	if !enabled.Load() {
		return
	}
	CleanupsTotal.Inc()
}

// SetChallengeBackend marks the active challenge store backend. The other
// known backend's gauge is zeroed so dashboards see exactly one active.
func SetChallengeBackend(backend string) {
	if !enabled.Load() {
		return
	}
	for _, known := range []string{"redis", "memory"} {
		value := 0.0
		if known == backend {
			value = 1.0
		}
		ChallengeBackend.WithLabelValues(known).Set(value)
	}
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// IncrementActiveConnections increments the active connection count for a protocol.
func IncrementActiveConnections(protocol string) {
	if !enabled.Load() {
		return
	}
	ActiveConnections.WithLabelValues(protocol).Inc()
}

// DecrementActiveConnections decrements the active connection count for a protocol.
func DecrementActiveConnections(protocol string) {
	if !enabled.Load() {
		return
	}
	ActiveConnections.WithLabelValues(protocol).Dec()
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
