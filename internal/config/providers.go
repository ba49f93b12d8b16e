// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"strings"
	"time"

	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

const (
	defaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	maxHandshakeTimeout     = 10 * time.Second
)

// ProvidersConfig groups the per-provider settings.
type ProvidersConfig struct {
	Puter  ProviderConfig `yaml:"puter" json:"puter"`
	DuckAI ProviderConfig `yaml:"duckai" json:"duckai"`
}

// Get returns the settings of provider.
func (p ProvidersConfig) Get(provider executor.ProviderID) ProviderConfig {
	if provider == executor.PuterClaude {
		return p.Puter
	}
	return p.DuckAI
}

// ProviderConfig configures one upstream.
type ProviderConfig struct {
	// Enabled registers the provider at startup. Disabled providers fail their candidates.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// AuthURL is the primary handshake endpoint.
	AuthURL string `yaml:"auth-url" json:"auth-url"`
	// FallbackAuthURL is tried when the primary handshake fails. Optional.
	FallbackAuthURL string `yaml:"fallback-auth-url,omitempty" json:"fallback-auth-url,omitempty"`
	// ChatURL receives chat calls.
	ChatURL string `yaml:"chat-url" json:"chat-url"`
	// Origin and Referer are sent with every call to mimic the upstream web client.
	Origin  string `yaml:"origin" json:"origin"`
	Referer string `yaml:"referer" json:"referer"`
	// TokenTTL is the assumed lifetime of a freshly acquired credential.
	TokenTTL time.Duration `yaml:"token-ttl" json:"token-ttl"`
	// RefreshInterval is the scheduler's check period.
	RefreshInterval time.Duration `yaml:"refresh-interval" json:"refresh-interval"`
	// HandshakeTimeout bounds a single handshake. Capped at 10s.
	HandshakeTimeout time.Duration `yaml:"handshake-timeout" json:"handshake-timeout"`
	// RequestTimeout bounds a single chat call.
	RequestTimeout time.Duration `yaml:"request-timeout" json:"request-timeout"`
	// UserAgent overrides the browser user agent.
	UserAgent string `yaml:"user-agent" json:"user-agent"`
	// Headers are added to every upstream request and override built-in values.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// DefaultPuterConfig returns the built-in Puter settings.
func DefaultPuterConfig() ProviderConfig {
	return ProviderConfig{
		Enabled:          true,
		AuthURL:          "https://puter.com/signup",
		FallbackAuthURL:  "https://api.puter.com/auth/login",
		ChatURL:          "https://api.puter.com/drivers/call",
		Origin:           "https://puter.com",
		Referer:          "https://puter.com/",
		TokenTTL:         10 * time.Hour,
		RefreshInterval:  time.Hour,
		HandshakeTimeout: maxHandshakeTimeout,
		RequestTimeout:   120 * time.Second,
		UserAgent:        defaultBrowserUserAgent,
	}
}

// DefaultDuckAIConfig returns the built-in DuckDuckGo AI Chat settings.
func DefaultDuckAIConfig() ProviderConfig {
	return ProviderConfig{
		Enabled:          true,
		AuthURL:          "https://duckduckgo.com/duckchat/v1/status",
		ChatURL:          "https://duckduckgo.com/duckchat/v1/chat",
		Origin:           "https://duckduckgo.com",
		Referer:          "https://duckduckgo.com/",
		TokenTTL:         30 * time.Minute,
		RefreshInterval:  5 * time.Minute,
		HandshakeTimeout: maxHandshakeTimeout,
		RequestTimeout:   60 * time.Second,
		UserAgent:        defaultBrowserUserAgent,
	}
}

func (p *ProviderConfig) sanitize(def ProviderConfig) {
	p.AuthURL = strings.TrimSpace(p.AuthURL)
	if p.AuthURL == "" {
		p.AuthURL = def.AuthURL
	}
	p.FallbackAuthURL = strings.TrimSpace(p.FallbackAuthURL)
	p.ChatURL = strings.TrimSpace(p.ChatURL)
	if p.ChatURL == "" {
		p.ChatURL = def.ChatURL
	}
	p.Origin = strings.TrimSpace(p.Origin)
	p.Referer = strings.TrimSpace(p.Referer)
	if p.TokenTTL <= 0 {
		p.TokenTTL = def.TokenTTL
	}
	if p.RefreshInterval <= 0 {
		p.RefreshInterval = def.RefreshInterval
	}
	if p.HandshakeTimeout <= 0 || p.HandshakeTimeout > maxHandshakeTimeout {
		p.HandshakeTimeout = maxHandshakeTimeout
	}
	if p.RequestTimeout <= 0 {
		p.RequestTimeout = def.RequestTimeout
	}
	p.UserAgent = strings.TrimSpace(p.UserAgent)
	if p.UserAgent == "" {
		p.UserAgent = def.UserAgent
	}
	p.Headers = NormalizeHeaders(p.Headers)
}

// ModelConfig is one row of the model table override.
type ModelConfig struct {
	ID         string           `yaml:"id" json:"id"`
	Candidates []ModelCandidate `yaml:"candidates" json:"candidates"`
}

// ModelCandidate names one provider and its upstream model id.
type ModelCandidate struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
}

// ProviderID parses the candidate's provider name.
func (c ModelCandidate) ProviderID() (executor.ProviderID, error) {
	return executor.ParseProviderID(c.Provider)
}

// SanitizeModels trims ids and drops rows without an id.
func (cfg *Config) SanitizeModels() {
	if len(cfg.Models) == 0 {
		return
	}
	out := cfg.Models[:0]
	for _, m := range cfg.Models {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			continue
		}
		for i := range m.Candidates {
			m.Candidates[i].Provider = strings.TrimSpace(m.Candidates[i].Provider)
			m.Candidates[i].Model = strings.TrimSpace(m.Candidates[i].Model)
		}
		out = append(out, m)
	}
	cfg.Models = out
}
