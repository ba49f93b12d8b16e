// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher reloads the configuration file when it changes on disk.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/internal/watcher/diff"
)

const configReloadDebounce = 150 * time.Millisecond

// Watcher watches the configuration file and hands every successfully parsed change to a callback.
type Watcher struct {
	configPath     string
	reloadCallback func(*config.Config)
	watcher        *fsnotify.Watcher
	debounce       time.Duration

	mu             sync.Mutex
	config         *config.Config
	lastConfigHash string
	reloadTimer    *time.Timer
}

// NewWatcher creates a watcher for configPath.
func NewWatcher(configPath string, reloadCallback func(*config.Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		configPath:     configPath,
		reloadCallback: reloadCallback,
		watcher:        fw,
		debounce:       configReloadDebounce,
	}, nil
}

// SetConfig records the configuration currently in effect.
func (w *Watcher) SetConfig(cfg *config.Config) {
	w.mu.Lock()
	w.config = cfg
	if data, err := os.ReadFile(w.configPath); err == nil {
		w.lastConfigHash = hashOf(data)
	}
	w.mu.Unlock()
}

// Start watches the directory holding the configuration file, so editors that replace the
// file by rename are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		log.Errorf("failed to watch config directory %s: %v", dir, err)
		return err
	}
	log.Debugf("watching config file: %s", w.configPath)
	go w.processEvents(ctx)
	return nil
}

// Stop releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
		w.reloadTimer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	log.Debugf("config file event: %s", event.Op)
	w.scheduleReload()
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.reloadTimer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.reloadTimer = nil
		w.mu.Unlock()
		w.reloadIfChanged()
	})
}

// reloadIfChanged parses the file and invokes the callback when its content changed.
// It reports whether a new configuration was applied.
func (w *Watcher) reloadIfChanged() bool {
	data, err := os.ReadFile(w.configPath)
	if err != nil {
		log.Errorf("failed to read config file: %v", err)
		return false
	}
	if len(data) == 0 {
		log.Debug("ignoring empty config file write")
		return false
	}
	hash := hashOf(data)

	w.mu.Lock()
	unchanged := hash == w.lastConfigHash
	oldCfg := w.config
	w.mu.Unlock()
	if unchanged {
		log.Debug("config file content unchanged, skipping reload")
		return false
	}

	newCfg, err := config.Parse(data)
	if err != nil {
		log.Errorf("failed to reload config, keeping the previous one: %v", err)
		return false
	}
	if err := newCfg.ApplyEnv(nil); err != nil {
		log.Warnf("ignoring environment override on reload: %v", err)
	}
	for _, d := range diff.BuildConfigChangeDetails(oldCfg, newCfg) {
		log.Infof("config change: %s", d)
	}

	w.mu.Lock()
	w.config = newCfg
	w.lastConfigHash = hash
	w.mu.Unlock()

	log.Infof("config reloaded from %s", w.configPath)
	if w.reloadCallback != nil {
		w.reloadCallback(newCfg)
	}
	return true
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
