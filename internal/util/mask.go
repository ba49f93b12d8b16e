// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package util provides helpers shared by the server and the upstream executors:
// credential masking for logs, outbound header handling and proxy-aware HTTP clients.
package util

import (
	"bytes"
	"regexp"
	"strings"
)

// HideAPIKey obscures a secret for logging purposes, showing only the first and last few characters.
func HideAPIKey(apiKey string) string {
	if len(apiKey) > 8 {
		return apiKey[:4] + "..." + apiKey[len(apiKey)-4:]
	} else if len(apiKey) > 4 {
		return apiKey[:2] + "..." + apiKey[len(apiKey)-2:]
	} else if len(apiKey) > 2 {
		return apiKey[:1] + "..." + apiKey[len(apiKey)-1:]
	}
	return apiKey
}

// MaskAuthorizationHeader masks the credential of an Authorization value and keeps its scheme.
func MaskAuthorizationHeader(value string) string {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) < 2 {
		return HideAPIKey(value)
	}
	return parts[0] + " " + HideAPIKey(parts[1])
}

// MaskSensitiveHeaderValue masks credential-bearing headers, including the rotating x-vqd-4
// session header, and returns other values unchanged.
func MaskSensitiveHeaderValue(key, value string) string {
	lowerKey := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.Contains(lowerKey, "authorization"):
		return MaskAuthorizationHeader(value)
	case strings.HasPrefix(lowerKey, "x-vqd"),
		strings.Contains(lowerKey, "api-key"),
		strings.Contains(lowerKey, "token"),
		strings.Contains(lowerKey, "secret"):
		return HideAPIKey(value)
	default:
		return value
	}
}

var sensitiveJSONKeys = regexp.MustCompile(`(?i)"(api_?key|token|secret|password|authorization)"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// MaskSensitiveJSONBody masks the string values of credential-like keys in a JSON body.
func MaskSensitiveJSONBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	return sensitiveJSONKeys.ReplaceAllFunc(body, func(match []byte) []byte {
		idx := sensitiveJSONKeys.FindSubmatchIndex(match)
		if len(idx) < 6 {
			return match
		}
		key := strings.ToLower(string(match[idx[2]:idx[3]]))
		val := string(match[idx[4]:idx[5]])

		masked := HideAPIKey(val)
		if strings.Contains(key, "password") || strings.Contains(key, "secret") {
			masked = "******"
		}
		var out bytes.Buffer
		out.Write(match[:idx[4]])
		out.WriteString(masked)
		out.Write(match[idx[5]:])
		return out.Bytes()
	})
}
