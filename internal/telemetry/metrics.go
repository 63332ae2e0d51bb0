/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crono"

// API metrics.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, route and status.",
	}, []string{"method", "endpoint", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "endpoint", "status"})

	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "In-flight HTTP requests.",
	})

	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Open event stream websocket connections.",
	})
)

// Database metrics.
var (
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "query_duration_seconds",
		Help:      "Database query latency by operation and table.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "table"})

	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "errors_total",
		Help:      "Database errors by operation and table.",
	}, []string{"operation", "table"})

	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "connections_active",
		Help:      "Database connections currently in use.",
	})

	DatabaseConnectionsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "connections_idle",
		Help:      "Idle database connections.",
	})
)

// Leader election metrics.
var (
	LeaderElectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "leader_election",
		Name:      "status",
		Help:      "1 when this instance holds leadership.",
	}, []string{"instance_id"})

	LeaderElectionChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "leader_election",
		Name:      "changes_total",
		Help:      "Leadership transitions observed by this instance.",
	})
)

// Tracking metrics.
var (
	TimerEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "timer_events_total",
		Help:      "Timer transitions by kind (started, stopped, discarded, manual).",
	}, []string{"kind"})

	RemindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reminder",
		Name:      "sent_total",
		Help:      "Long-running timer reminders published.",
	})

	CalendarMaxColumns = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "calendar",
		Name:      "max_columns",
		Help:      "Widest overlap cluster of each laid-out calendar day.",
		Buckets:   []float64{1, 2, 3, 4, 6, 8, 12},
	})

	ReportCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "cache_total",
		Help:      "Report cache lookups by result (hit, miss).",
	}, []string{"result"})

	EventBusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "eventbus",
		Name:      "published_total",
		Help:      "Events published by type.",
	}, []string{"type"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
