// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	t := &fakeTicker{interval: d, ch: make(chan time.Time)}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

func (c *fakeClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

type fakeTicker struct {
	interval time.Duration
	ch       chan time.Time
	stopped  atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeRefresher struct {
	provider executor.ProviderID
	ttl      time.Duration
	calls    atomic.Int32
	fail     atomic.Bool
	gate     chan struct{}
	panicMsg string
}

func newFakeRefresher(p executor.ProviderID, ttl time.Duration) *fakeRefresher {
	return &fakeRefresher{provider: p, ttl: ttl}
}

func (r *fakeRefresher) Identifier() executor.ProviderID { return r.provider }
func (r *fakeRefresher) CredentialTTL() time.Duration    { return r.ttl }

func (r *fakeRefresher) Handshake(ctx context.Context) (string, error) {
	n := r.calls.Add(1)
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	if r.fail.Load() {
		return "", errors.New("upstream said no")
	}
	return fmt.Sprintf("%s-token-%d", r.provider, n), nil
}

type scriptedClient struct {
	provider executor.ProviderID
	mu       sync.Mutex
	script   []executor.Outcome
	calls    []string
}

func (c *scriptedClient) Identifier() executor.ProviderID { return c.provider }

func (c *scriptedClient) Call(_ context.Context, _ []executor.ChatMessage, model string) executor.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, model)
	if len(c.script) == 0 {
		return executor.Transient("script exhausted")
	}
	out := c.script[0]
	c.script = c.script[1:]
	return out
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type staticResolver map[string][]executor.ModelSpec

func (r staticResolver) Resolve(id string) []executor.ModelSpec { return r[id] }

type recordingHook struct {
	NoopHook
	mu        sync.Mutex
	refreshes []executor.ProviderID
	attempts  []Attempt
}

func (h *recordingHook) OnRefresh(_ context.Context, p executor.ProviderID, _ error, _ time.Duration) {
	h.mu.Lock()
	h.refreshes = append(h.refreshes, p)
	h.mu.Unlock()
}

func (h *recordingHook) OnAttempt(_ context.Context, a Attempt) {
	h.mu.Lock()
	h.attempts = append(h.attempts, a)
	h.mu.Unlock()
}

func (h *recordingHook) refreshCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.refreshes)
}
