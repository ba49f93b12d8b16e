// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmd provides the command-line entry points of the freeapi server.
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/sdk/freeapi"
)

// StartService builds and runs the proxy service until SIGINT or SIGTERM.
// configPath enables hot reload when the file exists.
func StartService(cfg *config.Config, configPath string) error {
	service, err := freeapi.NewBuilder().
		WithConfig(cfg).
		WithConfigPath(configPath).
		WithHooks(freeapi.Hooks{
			OnAfterStart: func(s *freeapi.Service) {
				log.Infof("serving %d models, default %s", len(s.Registry().Models()), s.Registry().DefaultModel())
			},
		}).
		Build()
	if err != nil {
		return err
	}

	ctxSignal, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := service.Run(ctxSignal); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
