// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"strings"

	"github.com/samber/lo"
)

// SDKConfig holds the settings shared by the server and embedders of the sdk package.
type SDKConfig struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// Supported schemes: http, https, socks5.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// RequestLog enables debug logging of upstream request and response bodies.
	RequestLog bool `yaml:"request-log" json:"request-log"`

	// APIKeys is a list of keys for authenticating clients to this proxy server.
	// When empty the /v1 routes are open.
	APIKeys []string `yaml:"api-keys" json:"api-keys"`
}

// SanitizeAPIKeys trims keys and drops empty or duplicate entries, keeping the first occurrence.
func (c *SDKConfig) SanitizeAPIKeys() {
	if c == nil || len(c.APIKeys) == 0 {
		return
	}
	trimmed := lo.Map(c.APIKeys, func(k string, _ int) string { return strings.TrimSpace(k) })
	c.APIKeys = lo.Uniq(lo.Compact(trimmed))
}
