// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package freeapi

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/observability"
	"github.com/traylinx/freeapi/internal/registry"
	runtimeexecutor "github.com/traylinx/freeapi/internal/runtime/executor"
	"github.com/traylinx/freeapi/sdk/config"
	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Builder configures a Service.
type Builder struct {
	cfg            *config.Config
	configPath     string
	hooks          Hooks
	authHooks      []auth.Hook
	store          auth.Store
	clock          auth.Clock
	watcherFactory WatcherFactory
}

// NewBuilder returns a builder with the default watcher factory.
func NewBuilder() *Builder {
	return &Builder{watcherFactory: defaultWatcherFactory}
}

// WithConfig sets the configuration. Required.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.cfg = cfg
	return b
}

// WithConfigPath enables hot reload of the given file.
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithHooks sets lifecycle callbacks.
func (b *Builder) WithHooks(h Hooks) *Builder {
	b.hooks = h
	return b
}

// WithAuthHook adds an observer of refreshes, attempts and deliveries. Metrics are always recorded.
func (b *Builder) WithAuthHook(h auth.Hook) *Builder {
	if h != nil {
		b.authHooks = append(b.authHooks, h)
	}
	return b
}

// WithStore replaces the in-memory credential store.
func (b *Builder) WithStore(store auth.Store) *Builder {
	b.store = store
	return b
}

// WithClock replaces the time source of the manager and scheduler.
func (b *Builder) WithClock(clock auth.Clock) *Builder {
	b.clock = clock
	return b
}

// WithWatcherFactory replaces the config watcher, mainly for tests.
func (b *Builder) WithWatcherFactory(f WatcherFactory) *Builder {
	if f != nil {
		b.watcherFactory = f
	}
	return b
}

// Build wires every component. Nothing runs until Service.Run.
func (b *Builder) Build() (*Service, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("freeapi: configuration is required")
	}

	hook := append(multiHook{observability.MetricsHook{}}, b.authHooks...)
	manager := auth.NewManager(b.store, hook)
	if b.clock != nil {
		manager.SetClock(b.clock)
	}

	reg := registry.NewModelRegistry()
	if err := reg.ApplyConfig(b.cfg); err != nil {
		return nil, fmt.Errorf("freeapi: %w", err)
	}

	s := &Service{
		cfg:            b.cfg,
		configPath:     b.configPath,
		hooks:          b.hooks,
		manager:        manager,
		scheduler:      auth.NewScheduler(manager),
		conductor:      auth.NewConductor(reg, manager, hook),
		registry:       reg,
		watcherFactory: b.watcherFactory,
	}
	if err := s.registerBuiltinExecutors(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) registerBuiltinExecutors() error {
	var handshakeTimeout time.Duration
	for _, provider := range executor.Providers() {
		pc := s.cfg.Providers.Get(provider)
		if !pc.Enabled {
			log.Infof("provider %s disabled", provider)
			continue
		}
		var (
			exec providerExecutor
			err  error
		)
		switch provider {
		case executor.PuterClaude:
			exec, err = runtimeexecutor.NewPuterExecutor(s.cfg, s.manager)
		case executor.DuckAIChat:
			exec, err = runtimeexecutor.NewDuckAIExecutor(s.cfg, s.manager)
		}
		if err != nil {
			return fmt.Errorf("freeapi: %w", err)
		}
		s.manager.RegisterRefresher(exec)
		s.conductor.RegisterClient(exec)
		s.scheduler.SetInterval(provider, pc.RefreshInterval)
		s.clients = append(s.clients, exec)
		if pc.HandshakeTimeout > handshakeTimeout {
			handshakeTimeout = pc.HandshakeTimeout
		}
	}
	s.manager.SetHandshakeTimeout(handshakeTimeout)
	return nil
}
