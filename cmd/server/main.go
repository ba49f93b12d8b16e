// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package main provides the entry point for the freeapi server, an OpenAI-compatible
// chat proxy over the Puter Claude and DuckDuckGo AI Chat guest endpoints.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/freeapi/internal/buildinfo"
	"github.com/traylinx/freeapi/internal/cmd"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/internal/logging"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = "config.yaml"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("freeapi Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var configPath string
	var envFile string
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load %s: %v", envFile, err)
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		log.Fatalf("invalid environment: %v", err)
	}

	logging.SetLogLevel(cfg.Debug)
	if err := logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogsMaxTotalSizeMB); err != nil {
		log.Fatalf("failed to configure log output: %v", err)
	}

	watchPath := configPath
	if _, err := os.Stat(configPath); err != nil {
		log.Infof("config file %s not found, running with defaults", configPath)
		watchPath = ""
	}

	if err := cmd.StartService(cfg, watchPath); err != nil {
		log.Fatalf("freeapi exited with error: %v", err)
	}
}
