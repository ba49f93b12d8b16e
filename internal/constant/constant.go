// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package constant defines size limits and names shared across freeapi.
package constant

const (
	// ServiceName identifies the proxy in the index route and log lines.
	ServiceName = "freeapi"

	// MaxStreamingScannerBuffer is the largest single SSE line accepted from an upstream (4MB).
	MaxStreamingScannerBuffer = 4 * 1024 * 1024

	// MaxRequestBodyBytes caps inbound chat request bodies (8MB).
	MaxRequestBodyBytes = 8 * 1024 * 1024
)
