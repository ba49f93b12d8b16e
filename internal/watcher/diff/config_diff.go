// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package diff summarizes configuration changes for reload logging.
package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// ComputeModelsHash returns a stable hash of the model table, in table order.
func ComputeModelsHash(models []config.ModelConfig) string {
	if len(models) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range models {
		b.WriteString(strings.ToLower(m.ID))
		for _, c := range m.Candidates {
			b.WriteString("|")
			b.WriteString(strings.ToLower(c.Provider))
			b.WriteString("/")
			b.WriteString(c.Model)
		}
		b.WriteString("\n")
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// BuildConfigChangeDetails lists the reloadable fields that differ between oldCfg and newCfg.
func BuildConfigChangeDetails(oldCfg, newCfg *config.Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var changes []string
	if oldCfg.Debug != newCfg.Debug {
		changes = append(changes, fmt.Sprintf("debug: %t -> %t", oldCfg.Debug, newCfg.Debug))
	}
	if oldCfg.DefaultModel != newCfg.DefaultModel {
		changes = append(changes, fmt.Sprintf("default-model: %q -> %q", oldCfg.DefaultModel, newCfg.DefaultModel))
	}
	if len(oldCfg.APIKeys) != len(newCfg.APIKeys) {
		changes = append(changes, fmt.Sprintf("api-keys count: %d -> %d", len(oldCfg.APIKeys), len(newCfg.APIKeys)))
	}
	if oldCfg.RequestLog != newCfg.RequestLog {
		changes = append(changes, fmt.Sprintf("request-log: %t -> %t", oldCfg.RequestLog, newCfg.RequestLog))
	}
	if ComputeModelsHash(oldCfg.Models) != ComputeModelsHash(newCfg.Models) {
		changes = append(changes, fmt.Sprintf("models: %d entries -> %d entries", len(oldCfg.Models), len(newCfg.Models)))
	}
	for _, p := range executor.Providers() {
		o, n := oldCfg.Providers.Get(p), newCfg.Providers.Get(p)
		if o.Enabled != n.Enabled {
			changes = append(changes, fmt.Sprintf("providers.%s.enabled: %t -> %t (restart required)", p, o.Enabled, n.Enabled))
		}
		if o.RefreshInterval != n.RefreshInterval {
			changes = append(changes, fmt.Sprintf("providers.%s.refresh-interval: %s -> %s (restart required)", p, o.RefreshInterval, n.RefreshInterval))
		}
	}
	if oldCfg.Port != newCfg.Port || oldCfg.Host != newCfg.Host {
		changes = append(changes, "listen address changed (restart required)")
	}
	return changes
}
