// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api wires the HTTP surface: the OpenAI-compatible routes, health, the index and
// the metrics endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/api/handlers/openai"
	"github.com/traylinx/freeapi/internal/buildinfo"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/internal/constant"
	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/internal/observability"
	"github.com/traylinx/freeapi/internal/registry"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// ReadinessReporter reports which providers currently hold a credential.
type ReadinessReporter interface {
	Ready() map[executor.ProviderID]bool
}

// Server is the HTTP front end.
type Server struct {
	engine   *gin.Engine
	server   *http.Server
	ready    ReadinessReporter
	handler  *openai.Handler
	apiKeys  atomic.Pointer[map[string]struct{}]
	now      func() time.Time
	shutdown atomic.Bool
}

// NewServer builds the engine and registers every route.
func NewServer(cfg *config.Config, ready ReadinessReporter, exec openai.Executor, reg *registry.ModelRegistry) *Server {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if !cfg.Debug && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	s := &Server{
		engine:  engine,
		ready:   ready,
		handler: openai.NewHandler(exec, reg),
		now:     time.Now,
	}
	s.SetAPIKeys(cfg.APIKeys)

	engine.Use(logging.GinRequestID(), logging.GinLogrusLogger(), gin.CustomRecovery(recoverJSON), corsMiddleware(), observability.GinMetrics())
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", observability.Handler())

	v1 := s.engine.Group("/v1", s.apiKeyMiddleware())
	v1.GET("/models", s.handler.Models)
	v1.POST("/chat/completions", s.handler.ChatCompletions)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Not Found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() http.Handler { return s.engine }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.server.Addr }

// SetAPIKeys replaces the accepted inbound keys. An empty list disables the check.
func (s *Server) SetAPIKeys(keys []string) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	s.apiKeys.Store(&set)
}

// Start serves until Stop is called. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	log.Infof("freeapi listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}
	log.Info("shutting down api server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return nil
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   constant.ServiceName + " OpenAI-compatible proxy",
		"version":   buildinfo.Version,
		"endpoints": []string{"/health", "/v1/models", "/v1/chat/completions", "/metrics"},
	})
}

func (s *Server) health(c *gin.Context) {
	providers := make(map[string]bool, len(executor.Providers()))
	for _, p := range executor.Providers() {
		providers[string(p)] = false
	}
	if s.ready != nil {
		for p, ok := range s.ready.Ready() {
			providers[string(p)] = ok
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"providers": providers,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}
