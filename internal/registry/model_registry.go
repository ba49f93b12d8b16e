// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry maps caller-facing logical model ids to the ordered upstream candidates
// that can serve them.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// DefaultModel is used when a request omits the model or names an unknown one.
const DefaultModel = "claude3.5"

// ModelInfo is one entry of the GET /v1/models listing.
type ModelInfo struct {
	// ID is the logical model id callers send.
	ID string `json:"id"`
	// Object is always "model".
	Object string `json:"object"`
	// Created is the registry build time in unix seconds.
	Created int64 `json:"created"`
	// OwnedBy names the provider of the first candidate.
	OwnedBy string `json:"owned_by"`
}

// Entry is one logical model with its candidates in fallback order.
type Entry struct {
	ID         string
	Candidates []executor.ModelSpec
}

func candidate(id string, p executor.ProviderID, upstream string) executor.ModelSpec {
	return executor.ModelSpec{LogicalID: id, Provider: p, UpstreamModel: upstream}
}

// BuiltinEntries returns the default routing table.
func BuiltinEntries() []Entry {
	const (
		sonnet35 = "claude-3-5-sonnet-20241022"
		sonnet37 = "claude-3-7-sonnet-latest"
		haiku    = "claude-3-haiku-20240307"
	)
	claude := func(id, upstream string) Entry {
		return Entry{ID: id, Candidates: []executor.ModelSpec{
			candidate(id, executor.PuterClaude, upstream),
			candidate(id, executor.DuckAIChat, haiku),
		}}
	}
	duck := func(id, upstream string) Entry {
		return Entry{ID: id, Candidates: []executor.ModelSpec{candidate(id, executor.DuckAIChat, upstream)}}
	}
	return []Entry{
		claude("claude3.5", sonnet35),
		claude("claude3.7", sonnet37),
		claude(sonnet35, sonnet35),
		claude(sonnet37, sonnet37),
		duck("gpt-4o-mini", "gpt-4o-mini"),
		duck("o3-mini", "o3-mini"),
		duck("claude-3-haiku", haiku),
	}
}

// ModelRegistry is a read-mostly routing table. Lookups are pure functions of the table,
// which only changes through Replace.
type ModelRegistry struct {
	mu           sync.RWMutex
	order        []string
	table        map[string][]executor.ModelSpec
	defaultModel string
	created      int64
}

var globalRegistry *ModelRegistry
var registryOnce sync.Once

// NewModelRegistry returns a registry loaded with the built-in table.
func NewModelRegistry() *ModelRegistry {
	r := &ModelRegistry{created: time.Now().Unix()}
	if err := r.Replace(BuiltinEntries(), DefaultModel); err != nil {
		// The built-in table is static; failing here is a programming error.
		panic(err)
	}
	return r
}

// GetGlobalRegistry returns the process-wide registry.
func GetGlobalRegistry() *ModelRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewModelRegistry()
	})
	return globalRegistry
}

// Replace swaps the whole table. Every entry needs at least one candidate and defaultModel
// must name one of the entries. On error the current table is kept.
func (r *ModelRegistry) Replace(entries []Entry, defaultModel string) error {
	if len(entries) == 0 {
		return fmt.Errorf("registry: empty model table")
	}
	order := make([]string, 0, len(entries))
	table := make(map[string][]executor.ModelSpec, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			return fmt.Errorf("registry: model with empty id")
		}
		if _, dup := table[id]; dup {
			return fmt.Errorf("registry: duplicate model %q", id)
		}
		if len(e.Candidates) == 0 {
			return fmt.Errorf("registry: model %q has no candidates", id)
		}
		rows := make([]executor.ModelSpec, 0, len(e.Candidates))
		for _, c := range e.Candidates {
			if c.Provider == "" || strings.TrimSpace(c.UpstreamModel) == "" {
				return fmt.Errorf("registry: model %q has an incomplete candidate", id)
			}
			c.LogicalID = id
			rows = append(rows, c)
		}
		order = append(order, id)
		table[id] = rows
	}
	defaultModel = strings.TrimSpace(defaultModel)
	if defaultModel == "" {
		defaultModel = order[0]
	}
	if _, ok := table[defaultModel]; !ok {
		return fmt.Errorf("registry: default model %q is not in the table", defaultModel)
	}

	r.mu.Lock()
	r.order = order
	r.table = table
	r.defaultModel = defaultModel
	r.mu.Unlock()
	log.Debugf("model registry loaded with %d models (default %s)", len(order), defaultModel)
	return nil
}

// Resolve returns the candidates of logicalID in fallback order. Unknown or empty ids resolve
// to the default model. The result is never empty and is a copy owned by the caller.
func (r *ModelRegistry) Resolve(logicalID string) []executor.ModelSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows, ok := r.table[strings.TrimSpace(logicalID)]
	if !ok {
		rows = r.table[r.defaultModel]
	}
	out := make([]executor.ModelSpec, len(rows))
	copy(out, rows)
	return out
}

// Known reports whether logicalID has its own table entry.
func (r *ModelRegistry) Known(logicalID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.table[strings.TrimSpace(logicalID)]
	return ok
}

// DefaultModel returns the id used for empty or unknown requests.
func (r *ModelRegistry) DefaultModel() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// Models lists every logical id in table order.
func (r *ModelRegistry) Models() []*ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModelInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, &ModelInfo{
			ID:      id,
			Object:  "model",
			Created: r.created,
			OwnedBy: string(r.table[id][0].Provider),
		})
	}
	return out
}
