// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package util

import (
	"net/http"
	"strings"
)

// BrowserHeaders describes the web-client identity an upstream expects.
type BrowserHeaders struct {
	UserAgent string
	Origin    string
	Referer   string
}

// ApplyBrowserHeaders sets the browser-like identity headers that are not empty.
func ApplyBrowserHeaders(r *http.Request, h BrowserHeaders) {
	if r == nil {
		return
	}
	if h.UserAgent != "" {
		r.Header.Set("User-Agent", h.UserAgent)
	}
	if h.Origin != "" {
		r.Header.Set("Origin", h.Origin)
	}
	if h.Referer != "" {
		r.Header.Set("Referer", h.Referer)
	}
	if r.Header.Get("Accept-Language") == "" {
		r.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
}

// ApplyCustomHeaders applies user-defined headers. Custom headers override built-in defaults.
func ApplyCustomHeaders(r *http.Request, headers map[string]string) {
	if r == nil || len(headers) == 0 {
		return
	}
	for k, v := range headers {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		r.Header.Set(k, v)
	}
}

// BearerToken extracts the credential from an "Authorization: Bearer" value.
func BearerToken(value string) string {
	value = strings.TrimSpace(value)
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		return strings.TrimSpace(value[7:])
	}
	return ""
}
