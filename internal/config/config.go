// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the freeapi server.
// It handles loading and parsing YAML configuration files, and provides structured
// access to listener settings, logging, provider endpoints and the model table.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"gopkg.in/yaml.v3"
)

// DefaultPort matches the port the service has always listened on.
const DefaultPort = 3032

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	SDKConfig `yaml:",inline"`
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables debug-level logging and gin's debug mode.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size (in MB) of rotated log files. Set to 0 to disable.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// DefaultModel is used when a request omits the model or names an unknown one.
	DefaultModel string `yaml:"default-model" json:"default-model"`

	// Providers configures the upstream endpoints and credential timings.
	Providers ProvidersConfig `yaml:"providers" json:"providers"`

	// Models replaces the built-in model table when non-empty.
	Models []ModelConfig `yaml:"models,omitempty" json:"models,omitempty"`
}

// Defaults returns a configuration with every default applied.
func Defaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	cfg.Host = ""
	cfg.Port = DefaultPort
	cfg.LoggingToFile = false
	cfg.LogsMaxTotalSizeMB = 0
	cfg.Providers.Puter = DefaultPuterConfig()
	cfg.Providers.DuckAI = DefaultDuckAIConfig()
}

// LoadConfig reads a YAML configuration file from the given path and applies defaults.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing or empty, the defaults are returned.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional {
			if os.IsNotExist(err) || errors.Is(err, syscall.EISDIR) {
				return Defaults(), nil
			}
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data over the defaults, then sanitizes and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	// Set defaults before unmarshal so that absent keys keep defaults.
	cfg.applyDefaults()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv applies environment overrides. PORT wins over the configured port.
func (cfg *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if raw, ok := lookup("PORT"); ok && strings.TrimSpace(raw) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid PORT %q", raw)
		}
		cfg.Port = port
	}
	return nil
}

// Sanitize normalizes values in place.
func (cfg *Config) Sanitize() {
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogsMaxTotalSizeMB < 0 {
		cfg.LogsMaxTotalSizeMB = 0
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	cfg.ProxyURL = strings.TrimSpace(cfg.ProxyURL)
	cfg.SanitizeAPIKeys()
	cfg.Providers.Puter.sanitize(DefaultPuterConfig())
	cfg.Providers.DuckAI.sanitize(DefaultDuckAIConfig())
	cfg.SanitizeModels()
}

// Validate rejects configurations the server cannot start with.
func (cfg *Config) Validate() error {
	if cfg.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", cfg.Port)
	}
	for _, m := range cfg.Models {
		if len(m.Candidates) == 0 {
			return fmt.Errorf("config: model %q has no candidates", m.ID)
		}
		for _, c := range m.Candidates {
			if _, err := c.ProviderID(); err != nil {
				return fmt.Errorf("config: model %q: %w", m.ID, err)
			}
			if c.Model == "" {
				return fmt.Errorf("config: model %q: candidate for %s has no model", m.ID, c.Provider)
			}
		}
	}
	if cfg.DefaultModel != "" && len(cfg.Models) > 0 && !cfg.hasModel(cfg.DefaultModel) {
		return fmt.Errorf("config: default-model %q is not in models", cfg.DefaultModel)
	}
	return nil
}

func (cfg *Config) hasModel(id string) bool {
	for _, m := range cfg.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

// NormalizeHeaders trims header names and values and drops empty entries.
func NormalizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	clean := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		clean[key] = val
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}
