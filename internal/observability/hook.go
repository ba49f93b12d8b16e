// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package observability

import (
	"context"
	"time"

	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// MetricsHook records credential and provider activity as Prometheus metrics.
type MetricsHook struct{}

var _ auth.Hook = MetricsHook{}

// OnRefresh implements auth.Hook.
func (MetricsHook) OnRefresh(_ context.Context, provider executor.ProviderID, err error, _ time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		CredentialReady.WithLabelValues(string(provider)).Set(1)
	}
	CredentialRefreshesTotal.WithLabelValues(string(provider), result).Inc()
}

// OnAttempt implements auth.Hook.
func (MetricsHook) OnAttempt(_ context.Context, a auth.Attempt) {
	provider := string(a.Provider)
	ProviderAttemptsTotal.WithLabelValues(provider, a.Model, a.Outcome.Kind.String()).Inc()
	ProviderLatency.WithLabelValues(provider, a.Model).Observe(a.Duration.Seconds())
	if a.Outcome.Kind == executor.OutcomeAuthExpired {
		CredentialReady.WithLabelValues(provider).Set(0)
	}
	if a.Outcome.OK() {
		u := a.Outcome.Result.Usage
		if u.PromptTokens > 0 {
			ProviderTokensTotal.WithLabelValues(provider, a.Model, "input").Add(float64(u.PromptTokens))
		}
		if u.CompletionTokens > 0 {
			ProviderTokensTotal.WithLabelValues(provider, a.Model, "output").Add(float64(u.CompletionTokens))
		}
	}
}

// OnDelivery implements auth.Hook.
func (MetricsHook) OnDelivery(_ context.Context, d auth.Delivery) {
	DeliveriesTotal.WithLabelValues(d.State.String()).Inc()
}
