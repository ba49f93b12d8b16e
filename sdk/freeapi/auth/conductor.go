// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Resolver maps a logical model id to its ordered upstream candidates.
type Resolver interface {
	Resolve(logicalID string) []executor.ModelSpec
}

// DeliveryState is the terminal state of one request.
type DeliveryState int

const (
	// Delivered means a provider returned content.
	Delivered DeliveryState = iota
	// Exhausted means every candidate failed.
	Exhausted
)

func (s DeliveryState) String() string {
	if s == Delivered {
		return "delivered"
	}
	return "exhausted"
}

// Attempt records one provider call.
type Attempt struct {
	Provider executor.ProviderID
	Model    string
	Outcome  executor.Outcome
	// Retry is set on the single call that follows a successful refresh.
	Retry    bool
	Duration time.Duration
}

// Delivery is the result of Conductor.Execute.
type Delivery struct {
	State     DeliveryState
	LogicalID string
	Result    *executor.Result
	Attempts  []Attempt
}

// LastReason returns the reason of the final failed attempt, if any.
func (d Delivery) LastReason() string {
	for i := len(d.Attempts) - 1; i >= 0; i-- {
		if !d.Attempts[i].Outcome.OK() {
			return d.Attempts[i].Outcome.String()
		}
	}
	return ""
}

// Conductor drives the provider candidates of a request in their declared order.
type Conductor struct {
	resolver Resolver
	manager  *Manager
	hook     Hook

	mu      sync.RWMutex
	clients map[executor.ProviderID]executor.ProviderClient
}

// NewConductor wires a resolver and a credential manager.
func NewConductor(resolver Resolver, manager *Manager, hook Hook) *Conductor {
	if hook == nil {
		hook = NoopHook{}
	}
	return &Conductor{
		resolver: resolver,
		manager:  manager,
		hook:     hook,
		clients:  make(map[executor.ProviderID]executor.ProviderClient),
	}
}

// RegisterClient binds a provider client, replacing any previous one.
func (c *Conductor) RegisterClient(client executor.ProviderClient) {
	if client == nil {
		return
	}
	c.mu.Lock()
	c.clients[client.Identifier()] = client
	c.mu.Unlock()
}

// UnregisterClient removes the client of provider.
func (c *Conductor) UnregisterClient(provider executor.ProviderID) {
	c.mu.Lock()
	delete(c.clients, provider)
	c.mu.Unlock()
}

func (c *Conductor) client(provider executor.ProviderID) executor.ProviderClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clients[provider]
}

// Execute resolves logicalID and tries each candidate once, in order. A candidate that
// reports AuthExpired is retried exactly once after a successful synchronous refresh.
// Cancellation of ctx is not propagated to upstream calls; only their own timeouts apply.
func (c *Conductor) Execute(ctx context.Context, logicalID string, messages []executor.ChatMessage) Delivery {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)
	entry := logging.EntryFromContext(ctx)

	delivery := Delivery{State: Exhausted, LogicalID: logicalID}
	for _, spec := range c.resolver.Resolve(logicalID) {
		outcome := c.attempt(ctx, spec, messages, false, &delivery)
		if outcome.Kind == executor.OutcomeAuthExpired {
			if _, err := c.manager.Refresh(ctx, spec.Provider); err != nil {
				entry.WithField("provider", spec.Provider).Warnf("refresh after rejection failed: %v", err)
				continue
			}
			outcome = c.attempt(ctx, spec, messages, true, &delivery)
		}
		if outcome.OK() {
			delivery.State = Delivered
			delivery.Result = outcome.Result
			break
		}
	}

	if delivery.State == Exhausted {
		entry.WithField("model", logicalID).Warnf("all providers exhausted after %d attempts", len(delivery.Attempts))
	}
	c.hook.OnDelivery(ctx, delivery)
	return delivery
}

func (c *Conductor) attempt(ctx context.Context, spec executor.ModelSpec, messages []executor.ChatMessage, retry bool, delivery *Delivery) executor.Outcome {
	clock := c.manager.Clock()
	start := clock.Now()

	var outcome executor.Outcome
	if client := c.client(spec.Provider); client == nil {
		outcome = executor.Permanent(fmt.Sprintf("provider %s not available", spec.Provider))
	} else {
		outcome = client.Call(ctx, messages, spec.UpstreamModel)
	}
	if outcome.Kind == executor.OutcomeSuccess && outcome.Result == nil {
		outcome = executor.Transient("empty response")
	}
	if outcome.OK() {
		if outcome.Result.Provider == "" {
			outcome.Result.Provider = spec.Provider
		}
		if outcome.Result.Model == "" {
			outcome.Result.Model = spec.UpstreamModel
		}
	}

	att := Attempt{
		Provider: spec.Provider,
		Model:    spec.UpstreamModel,
		Outcome:  outcome,
		Retry:    retry,
		Duration: clock.Now().Sub(start),
	}
	delivery.Attempts = append(delivery.Attempts, att)
	c.hook.OnAttempt(ctx, att)

	entry := logging.EntryFromContext(ctx).WithField("provider", spec.Provider)
	if outcome.OK() {
		entry.Infof("Response from %s in %dms", spec.Provider, att.Duration.Milliseconds())
	} else {
		entry.Warnf("attempt %s failed: %s", spec, outcome)
	}
	return outcome
}
