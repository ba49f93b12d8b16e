// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package observability provides Prometheus metrics for the HTTP surface, the provider
// attempts and the credential refreshes.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for upstream chat latencies, from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts HTTP requests by method, route and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeapi_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freeapi_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: LLMBuckets,
		},
		[]string{"method", "route"},
	)

	// ProviderAttemptsTotal counts provider calls by outcome kind.
	ProviderAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeapi_provider_attempts_total",
			Help: "Provider attempts",
		},
		[]string{"provider", "model", "outcome"},
	)

	// ProviderLatency records provider call latency in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freeapi_provider_latency_seconds",
			Help:    "Provider latency",
			Buckets: LLMBuckets,
		},
		[]string{"provider", "model"},
	)

	// ProviderTokensTotal counts tokens reported by providers, by direction.
	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeapi_provider_tokens_total",
			Help: "Token count",
		},
		[]string{"provider", "model", "direction"},
	)

	// CredentialRefreshesTotal counts handshakes by provider and result.
	CredentialRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeapi_credential_refreshes_total",
			Help: "Credential handshakes",
		},
		[]string{"provider", "result"},
	)

	// DeliveriesTotal counts requests by terminal state.
	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freeapi_deliveries_total",
			Help: "Chat requests by terminal state",
		},
		[]string{"state"},
	)

	// CredentialReady is 1 while a provider holds a credential.
	CredentialReady = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "freeapi_credential_ready",
			Help: "Whether a provider currently holds a credential",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		ProviderAttemptsTotal,
		ProviderLatency,
		ProviderTokensTotal,
		CredentialRefreshesTotal,
		DeliveriesTotal,
		CredentialReady,
	)
}
