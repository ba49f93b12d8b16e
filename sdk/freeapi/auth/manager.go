// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/internal/util"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
	"golang.org/x/sync/singleflight"
)

// MaxHandshakeTimeout bounds every credential handshake.
const MaxHandshakeTimeout = 10 * time.Second

// Refresher performs the credential handshake of one provider.
type Refresher interface {
	Identifier() executor.ProviderID
	// Handshake obtains a fresh token from the upstream.
	Handshake(ctx context.Context) (string, error)
	// CredentialTTL is the assumed lifetime of a token returned by Handshake.
	CredentialTTL() time.Duration
}

// Manager owns the credential store and the handshakes that fill it.
type Manager struct {
	store   Store
	hook    Hook
	clock   Clock
	timeout time.Duration

	mu         sync.RWMutex
	refreshers map[executor.ProviderID]Refresher

	group singleflight.Group
}

// NewManager constructs a manager over store. A nil store gets a fresh MemoryStore.
func NewManager(store Store, hook Hook) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if hook == nil {
		hook = NoopHook{}
	}
	return &Manager{
		store:      store,
		hook:       hook,
		clock:      SystemClock{},
		timeout:    MaxHandshakeTimeout,
		refreshers: make(map[executor.ProviderID]Refresher),
	}
}

// SetClock replaces the time source. Call before the manager is shared.
func (m *Manager) SetClock(clock Clock) {
	if clock != nil {
		m.clock = clock
	}
}

// Clock returns the manager's time source.
func (m *Manager) Clock() Clock { return m.clock }

// SetHandshakeTimeout sets the per-handshake deadline, capped at MaxHandshakeTimeout.
func (m *Manager) SetHandshakeTimeout(d time.Duration) {
	if d <= 0 || d > MaxHandshakeTimeout {
		d = MaxHandshakeTimeout
	}
	m.timeout = d
}

// RegisterRefresher binds a handshake to its provider, replacing any previous one.
func (m *Manager) RegisterRefresher(r Refresher) {
	if r == nil {
		return
	}
	m.mu.Lock()
	m.refreshers[r.Identifier()] = r
	m.mu.Unlock()
}

// Providers returns the providers with a registered refresher in canonical order.
func (m *Manager) Providers() []executor.ProviderID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]executor.ProviderID, 0, len(m.refreshers))
	for _, p := range executor.Providers() {
		if _, ok := m.refreshers[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (m *Manager) refresher(provider executor.ProviderID) Refresher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshers[provider]
}

// Refresh runs one handshake for provider and stores the result. Concurrent callers for the
// same provider share a single in-flight handshake. On failure the store is left untouched and
// a *RefreshError is returned.
func (m *Manager) Refresh(ctx context.Context, provider executor.ProviderID) (Credential, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	v, err, _ := m.group.Do(string(provider), func() (interface{}, error) {
		return m.refresh(ctx, provider)
	})
	if err != nil {
		return Credential{}, err
	}
	return v.(Credential), nil
}

func (m *Manager) refresh(ctx context.Context, provider executor.ProviderID) (cred Credential, err error) {
	r := m.refresher(provider)
	if r == nil {
		return Credential{}, &RefreshError{Provider: provider, Err: ErrNoRefresher}
	}

	// Waiters share this handshake, so one caller's cancellation must not abort it.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	start := m.clock.Now()
	defer func() {
		if rec := recover(); rec != nil {
			cred = Credential{}
			err = &RefreshError{Provider: provider, Err: fmt.Errorf("handshake panic: %v", rec)}
		}
		elapsed := m.clock.Now().Sub(start)
		m.hook.OnRefresh(ctx, provider, err, elapsed)
		entry := logging.EntryFromContext(ctx).WithField("provider", provider)
		if err != nil {
			entry.Warnf("credential refresh failed: %v", err)
			return
		}
		entry.Debugf("credential refreshed (%s) in %s", util.HideAPIKey(cred.Value), elapsed)
	}()

	token, errHandshake := r.Handshake(hctx)
	if errHandshake != nil {
		var re *RefreshError
		if errors.As(errHandshake, &re) {
			return Credential{}, re
		}
		return Credential{}, &RefreshError{Provider: provider, Err: errHandshake}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Credential{}, &RefreshError{Provider: provider, Err: ErrEmptyToken}
	}
	cred = Credential{Value: token, AcquiredAt: m.clock.Now(), TTL: r.CredentialTTL()}
	m.store.Set(provider, cred)
	return cred, nil
}

// Current returns the stored credential, refreshing synchronously when none is stored.
// A stale credential is still returned; staleness is the scheduler's concern.
func (m *Manager) Current(ctx context.Context, provider executor.ProviderID) (Credential, error) {
	if cred, ok := m.store.Get(provider); ok && cred.Value != "" {
		return cred, nil
	}
	return m.Refresh(ctx, provider)
}

// Peek returns the stored credential without refreshing.
func (m *Manager) Peek(provider executor.ProviderID) (Credential, bool) {
	return m.store.Get(provider)
}

// Token implements executor.Credentials.
func (m *Manager) Token(ctx context.Context, provider executor.ProviderID) (string, error) {
	cred, err := m.Current(ctx, provider)
	if err != nil {
		return "", err
	}
	return cred.Value, nil
}

// Invalidate implements executor.Credentials.
func (m *Manager) Invalidate(provider executor.ProviderID) {
	m.store.Invalidate(provider)
	log.WithField("provider", provider).Debug("credential invalidated")
}

// Rotate implements executor.Credentials. The rotated token starts a new lifetime.
func (m *Manager) Rotate(provider executor.ProviderID, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ttl := time.Duration(0)
	if r := m.refresher(provider); r != nil {
		ttl = r.CredentialTTL()
	} else if prev, ok := m.store.Get(provider); ok {
		ttl = prev.TTL
	}
	m.store.Set(provider, Credential{Value: token, AcquiredAt: m.clock.Now(), TTL: ttl})
}

// Snapshot returns a copy of every stored credential.
func (m *Manager) Snapshot() map[executor.ProviderID]Credential {
	return m.store.Snapshot()
}

// Ready reports, per registered provider, whether a credential is currently stored.
func (m *Manager) Ready() map[executor.ProviderID]bool {
	snap := m.store.Snapshot()
	out := make(map[executor.ProviderID]bool)
	for _, p := range executor.Providers() {
		cred, ok := snap[p]
		out[p] = ok && cred.Value != ""
	}
	return out
}
