// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"time"

	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Hook allows callers to observe credential refreshes and provider attempts.
type Hook interface {
	// OnRefresh fires after every handshake, successful or not.
	OnRefresh(ctx context.Context, provider executor.ProviderID, err error, elapsed time.Duration)
	// OnAttempt fires after every provider call made by the conductor.
	OnAttempt(ctx context.Context, attempt Attempt)
	// OnDelivery fires once per request with its terminal state.
	OnDelivery(ctx context.Context, delivery Delivery)
}

// NoopHook provides optional hook defaults.
type NoopHook struct{}

// OnRefresh implements Hook.
func (NoopHook) OnRefresh(context.Context, executor.ProviderID, error, time.Duration) {}

// OnAttempt implements Hook.
func (NoopHook) OnAttempt(context.Context, Attempt) {}

// OnDelivery implements Hook.
func (NoopHook) OnDelivery(context.Context, Delivery) {}
