// RecService - Personalized News Recommendations for NewsShelf
// Copyright 2026 NewsShelf
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/newsshelf/recservice

// Package metrics defines the Prometheus instrumentation for the service.
// All collectors are registered on the default registry via promauto.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts API requests by method, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recservice",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recservice",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// RecommendationsServed counts recommendation responses by strategy
	// (personalized or popular fallback).
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recservice",
			Name:      "recommendations_served_total",
			Help:      "Recommendation responses by ranking strategy",
		},
		[]string{"strategy"},
	)

	// EventsProcessed counts consumed activity events by type and outcome
	// (processed, ignored, dropped, requeued).
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recservice",
			Name:      "events_processed_total",
			Help:      "Activity events consumed from the stream by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// DBQueryDuration tracks storage query latency by operation and table.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "recservice",
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation", "table"},
	)

	// DBQueryErrors counts failed storage queries by operation and table.
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recservice",
			Name:      "db_query_errors_total",
			Help:      "Total number of failed database queries",
		},
		[]string{"operation", "table"},
	)

	// BreakerState reports the activity-write circuit breaker state
	// (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recservice",
			Name:      "circuit_breaker_state",
			Help:      "State of the storage circuit breaker (0=closed, 1=half-open, 2=open)",
		},
	)
)

// ObserveDBQuery records one storage query's duration. Meant to be
// deferred at the top of each data access method.
func ObserveDBQuery(operation, table string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// ObserveHTTPRequest records one completed API request.
func ObserveHTTPRequest(method, route, status string, start time.Time) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
