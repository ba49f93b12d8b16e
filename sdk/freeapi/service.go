// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package freeapi assembles the proxy: credential manager, refresh scheduler, provider
// executors, model registry, HTTP server and config watcher.
package freeapi

import (
	"context"
	"sync"
	"time"

	"github.com/traylinx/freeapi/internal/api"
	"github.com/traylinx/freeapi/internal/registry"
	"github.com/traylinx/freeapi/sdk/config"
	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Hooks are optional lifecycle callbacks.
type Hooks struct {
	// OnBeforeStart runs before any background work starts.
	OnBeforeStart func(*config.Config)
	// OnAfterStart runs once the server goroutine is launched.
	OnAfterStart func(*Service)
	// OnConfigReload runs after a reloaded configuration was applied.
	OnConfigReload func(*config.Config)
}

// Service wraps the proxy lifecycle so other programs can embed it.
type Service struct {
	// cfg holds the current application configuration.
	cfg   *config.Config
	cfgMu sync.RWMutex

	// configPath is watched for changes when non-empty.
	configPath string

	hooks Hooks

	manager   *auth.Manager
	scheduler *auth.Scheduler
	conductor *auth.Conductor
	registry  *registry.ModelRegistry
	clients   []providerExecutor

	server    *api.Server
	serverErr chan error

	watcherFactory WatcherFactory
	watcher        *WatcherWrapper
	watcherCancel  context.CancelFunc

	schedulerCancel context.CancelFunc

	shutdownOnce sync.Once
}

// providerExecutor is implemented by every built-in upstream executor.
type providerExecutor interface {
	executor.ProviderClient
	auth.Refresher
}

// Manager returns the credential manager.
func (s *Service) Manager() *auth.Manager { return s.manager }

// Conductor returns the request orchestrator.
func (s *Service) Conductor() *auth.Conductor { return s.conductor }

// Registry returns the model registry.
func (s *Service) Registry() *registry.ModelRegistry { return s.registry }

// Config returns the configuration currently in effect.
func (s *Service) Config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// multiHook fans auth events out to several hooks.
type multiHook []auth.Hook

func (m multiHook) OnRefresh(ctx context.Context, p executor.ProviderID, err error, elapsed time.Duration) {
	for _, h := range m {
		h.OnRefresh(ctx, p, err, elapsed)
	}
}

func (m multiHook) OnAttempt(ctx context.Context, a auth.Attempt) {
	for _, h := range m {
		h.OnAttempt(ctx, a)
	}
}

func (m multiHook) OnDelivery(ctx context.Context, d auth.Delivery) {
	for _, h := range m {
		h.OnDelivery(ctx, d)
	}
}
