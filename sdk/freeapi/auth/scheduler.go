// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

const (
	// DefaultPuterRefreshInterval is how often the Puter credential is checked.
	DefaultPuterRefreshInterval = time.Hour
	// DefaultDuckAIRefreshInterval is how often the DuckAI credential is checked.
	DefaultDuckAIRefreshInterval = 5 * time.Minute
)

// DefaultRefreshInterval returns the built-in check interval for provider.
func DefaultRefreshInterval(provider executor.ProviderID) time.Duration {
	switch provider {
	case executor.PuterClaude:
		return DefaultPuterRefreshInterval
	default:
		return DefaultDuckAIRefreshInterval
	}
}

// Scheduler keeps every registered provider's credential fresh in the background.
type Scheduler struct {
	manager *Manager

	mu        sync.Mutex
	intervals map[executor.ProviderID]time.Duration
	running   bool
	wg        sync.WaitGroup
}

// NewScheduler returns a scheduler driving manager with the manager's clock.
func NewScheduler(manager *Manager) *Scheduler {
	return &Scheduler{
		manager:   manager,
		intervals: make(map[executor.ProviderID]time.Duration),
	}
}

// SetInterval overrides the check interval of provider. Takes effect on the next Start.
func (s *Scheduler) SetInterval(provider executor.ProviderID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		delete(s.intervals, provider)
		return
	}
	s.intervals[provider] = d
}

// Interval returns the effective check interval of provider.
func (s *Scheduler) Interval(provider executor.ProviderID) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.intervals[provider]; ok {
		return d
	}
	return DefaultRefreshInterval(provider)
}

// Start launches one loop per registered provider. Each loop performs a best-effort refresh
// immediately, then checks on every tick until ctx is cancelled. Start never blocks.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	for _, provider := range s.manager.Providers() {
		interval := s.Interval(provider)
		s.wg.Add(1)
		go s.loop(ctx, provider, interval)
	}
}

// Wait blocks until every loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) loop(ctx context.Context, provider executor.ProviderID, interval time.Duration) {
	defer s.wg.Done()

	if _, err := s.manager.Refresh(ctx, provider); err != nil {
		log.WithField("provider", provider).Warnf("startup credential refresh failed: %v", err)
	} else {
		log.WithField("provider", provider).Info("startup credential acquired")
	}

	ticker := s.manager.Clock().NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.Tick(ctx, provider)
		}
	}
}

// Tick refreshes provider when its credential is missing or stale and reports whether a
// handshake was attempted. The outcome is only logged.
func (s *Scheduler) Tick(ctx context.Context, provider executor.ProviderID) bool {
	cred, ok := s.manager.Peek(provider)
	if ok && cred.Value != "" && !cred.Stale(s.manager.Clock().Now()) {
		return false
	}
	if _, err := s.manager.Refresh(ctx, provider); err != nil {
		log.WithField("provider", provider).Warnf("scheduled credential refresh failed: %v", err)
	}
	return true
}
