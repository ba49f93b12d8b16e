// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"fmt"

	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// EntriesFromConfig converts the configured model table. An empty table yields the built-in one.
func EntriesFromConfig(models []config.ModelConfig) ([]Entry, error) {
	if len(models) == 0 {
		return BuiltinEntries(), nil
	}
	entries := make([]Entry, 0, len(models))
	for _, m := range models {
		e := Entry{ID: m.ID}
		for _, c := range m.Candidates {
			provider, err := c.ProviderID()
			if err != nil {
				return nil, fmt.Errorf("model %q: %w", m.ID, err)
			}
			e.Candidates = append(e.Candidates, executor.ModelSpec{LogicalID: m.ID, Provider: provider, UpstreamModel: c.Model})
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ApplyConfig loads the model table and default model of cfg. On error the current table is kept.
func (r *ModelRegistry) ApplyConfig(cfg *config.Config) error {
	entries, err := EntriesFromConfig(cfg.Models)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	def := cfg.DefaultModel
	if def == "" && len(cfg.Models) == 0 {
		def = DefaultModel
	}
	return r.Replace(entries, def)
}
