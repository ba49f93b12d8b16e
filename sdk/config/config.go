// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides the public SDK configuration API.
//
// It re-exports the server configuration types and helpers so external projects can
// embed freeapi without importing internal packages.
package config

import internalconfig "github.com/traylinx/freeapi/internal/config"

type SDKConfig = internalconfig.SDKConfig

type Config = internalconfig.Config

type ProvidersConfig = internalconfig.ProvidersConfig
type ProviderConfig = internalconfig.ProviderConfig
type ModelConfig = internalconfig.ModelConfig
type ModelCandidate = internalconfig.ModelCandidate

const DefaultPort = internalconfig.DefaultPort

func LoadConfig(configFile string) (*Config, error) { return internalconfig.LoadConfig(configFile) }

func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	return internalconfig.LoadConfigOptional(configFile, optional)
}

func Defaults() *Config { return internalconfig.Defaults() }

func DefaultPuterConfig() ProviderConfig  { return internalconfig.DefaultPuterConfig() }
func DefaultDuckAIConfig() ProviderConfig { return internalconfig.DefaultDuckAIConfig() }
