// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"sync/atomic"

	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Store holds at most one live credential per provider.
type Store interface {
	// Get returns the current credential, if any.
	Get(provider executor.ProviderID) (Credential, bool)
	// Set replaces the credential for provider.
	Set(provider executor.ProviderID, cred Credential)
	// Invalidate drops the credential so the next use must refresh.
	Invalidate(provider executor.ProviderID)
	// Snapshot returns a copy of every stored credential.
	Snapshot() map[executor.ProviderID]Credential
}

type credentialMap map[executor.ProviderID]Credential

// MemoryStore is a copy-on-write Store. Reads are a single atomic load; writers copy the
// published map, mutate the copy and publish it with compare-and-swap.
type MemoryStore struct {
	entries atomic.Pointer[credentialMap]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	empty := credentialMap{}
	s.entries.Store(&empty)
	return s
}

func (s *MemoryStore) Get(provider executor.ProviderID) (Credential, bool) {
	cred, ok := (*s.entries.Load())[provider]
	return cred, ok
}

func (s *MemoryStore) Set(provider executor.ProviderID, cred Credential) {
	s.update(func(m credentialMap) { m[provider] = cred })
}

func (s *MemoryStore) Invalidate(provider executor.ProviderID) {
	s.update(func(m credentialMap) { delete(m, provider) })
}

func (s *MemoryStore) Snapshot() map[executor.ProviderID]Credential {
	current := *s.entries.Load()
	out := make(map[executor.ProviderID]Credential, len(current))
	for k, v := range current {
		out[k] = v
	}
	return out
}

func (s *MemoryStore) update(mutate func(credentialMap)) {
	for {
		old := s.entries.Load()
		next := make(credentialMap, len(*old)+1)
		for k, v := range *old {
			next[k] = v
		}
		mutate(next)
		if s.entries.CompareAndSwap(old, &next) {
			return
		}
	}
}
