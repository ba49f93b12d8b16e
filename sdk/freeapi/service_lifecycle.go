// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package freeapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/api"
	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/sdk/config"
)

// Run starts the refresh scheduler, the config watcher and the HTTP server, and blocks until
// ctx is cancelled or the server fails. Shutdown is performed before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("freeapi: service is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	defer func() {
		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Errorf("service shutdown returned error: %v", err)
		}
	}()

	cfg := s.Config()
	if s.hooks.OnBeforeStart != nil {
		s.hooks.OnBeforeStart(cfg)
	}

	var schedCtx context.Context
	schedCtx, s.schedulerCancel = context.WithCancel(context.Background())
	s.scheduler.Start(schedCtx)

	s.server = api.NewServer(cfg, s.manager, s.conductor, s.registry)
	s.serverErr = make(chan error, 1)
	go func() {
		s.serverErr <- s.server.Start()
	}()

	if s.configPath != "" && s.watcherFactory != nil {
		w, err := s.watcherFactory(s.configPath, s.applyConfig)
		if err != nil {
			log.Warnf("config watcher disabled: %v", err)
		} else {
			s.watcher = w
			s.watcher.SetConfig(cfg)
			var watcherCtx context.Context
			watcherCtx, s.watcherCancel = context.WithCancel(context.Background())
			if err := s.watcher.Start(watcherCtx); err != nil {
				log.Warnf("config watcher disabled: %v", err)
			}
		}
	}

	if s.hooks.OnAfterStart != nil {
		s.hooks.OnAfterStart(s)
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
		return ctx.Err()
	case err := <-s.serverErr:
		if err != nil {
			return err
		}
		return nil
	}
}

// applyConfig installs the reloadable parts of cfg: log level, model table and api keys.
// Provider endpoints and timings are read at build time.
func (s *Service) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	logging.SetLogLevel(cfg.Debug)
	if err := s.registry.ApplyConfig(cfg); err != nil {
		log.Errorf("model table not reloaded: %v", err)
	}
	if s.server != nil {
		s.server.SetAPIKeys(cfg.APIKeys)
	}

	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()

	if s.hooks.OnConfigReload != nil {
		s.hooks.OnConfigReload(cfg)
	}
}

// Shutdown stops background work and drains the HTTP server. It is idempotent.
func (s *Service) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		if s.watcherCancel != nil {
			s.watcherCancel()
		}
		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				log.Errorf("failed to stop file watcher: %v", err)
				shutdownErr = err
			}
		}
		if s.schedulerCancel != nil {
			s.schedulerCancel()
			s.scheduler.Wait()
		}
		if s.server != nil {
			if err := s.server.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("error stopping API server: %v", err)
				if shutdownErr == nil {
					shutdownErr = err
				}
			}
		}
	})
	return shutdownErr
}
