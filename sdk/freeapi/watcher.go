// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package freeapi

import (
	"context"

	"github.com/traylinx/freeapi/internal/watcher"
	"github.com/traylinx/freeapi/sdk/config"
)

// WatcherWrapper adapts a config watcher to the service lifecycle.
type WatcherWrapper struct {
	start     func(ctx context.Context) error
	stop      func() error
	setConfig func(cfg *config.Config)
}

// WatcherFactory creates the watcher for configPath. reload receives every parsed change.
type WatcherFactory func(configPath string, reload func(*config.Config)) (*WatcherWrapper, error)

// NewWatcherWrapper builds a wrapper from plain functions. Nil functions are no-ops.
func NewWatcherWrapper(start func(context.Context) error, stop func() error, setConfig func(*config.Config)) *WatcherWrapper {
	return &WatcherWrapper{start: start, stop: stop, setConfig: setConfig}
}

// Start begins watching.
func (w *WatcherWrapper) Start(ctx context.Context) error {
	if w == nil || w.start == nil {
		return nil
	}
	return w.start(ctx)
}

// Stop releases the watcher.
func (w *WatcherWrapper) Stop() error {
	if w == nil || w.stop == nil {
		return nil
	}
	return w.stop()
}

// SetConfig records the configuration in effect.
func (w *WatcherWrapper) SetConfig(cfg *config.Config) {
	if w == nil || w.setConfig == nil {
		return
	}
	w.setConfig(cfg)
}

func defaultWatcherFactory(configPath string, reload func(*config.Config)) (*WatcherWrapper, error) {
	w, err := watcher.NewWatcher(configPath, reload)
	if err != nil {
		return nil, err
	}
	return NewWatcherWrapper(w.Start, w.Stop, w.SetConfig), nil
}
