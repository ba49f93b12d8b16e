// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/internal/util"
)

const (
	maxLoggedBody   = 4096
	maxErrorExcerpt = 200
)

// upstreamRequestLog captures the outbound upstream request details for logging.
type upstreamRequestLog struct {
	URL      string
	Method   string
	Headers  http.Header
	Body     []byte
	Provider string
}

// recordAPIRequest logs the outbound request with credentials masked when request logging is on.
func recordAPIRequest(ctx context.Context, enabled bool, info upstreamRequestLog) {
	if !enabled {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "upstream request %s %s\n", info.Method, info.URL)
	writeHeaders(&b, info.Headers)
	if len(info.Body) > 0 {
		b.WriteString("Body: ")
		b.Write(truncateBody(util.MaskSensitiveJSONBody(info.Body)))
	}
	logging.EntryFromContext(ctx).WithField("provider", info.Provider).Debug(b.String())
}

// recordAPIResponse logs the upstream status, headers and body when request logging is on.
func recordAPIResponse(ctx context.Context, enabled bool, provider string, status int, headers http.Header, body []byte) {
	if !enabled {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "upstream response status %d\n", status)
	writeHeaders(&b, headers)
	if len(body) > 0 {
		b.WriteString("Body: ")
		b.Write(truncateBody(util.MaskSensitiveJSONBody(body)))
	}
	logging.EntryFromContext(ctx).WithField("provider", provider).Debug(b.String())
}

func writeHeaders(b *strings.Builder, headers http.Header) {
	if len(headers) == 0 {
		return
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(b, "%s: %s\n", k, util.MaskSensitiveHeaderValue(k, v))
		}
	}
}

func truncateBody(body []byte) []byte {
	if len(body) <= maxLoggedBody {
		return body
	}
	out := make([]byte, 0, maxLoggedBody+16)
	out = append(out, body[:maxLoggedBody]...)
	return append(out, "...(truncated)"...)
}

// summarizeErrorBody returns a short single-line excerpt of an error body.
func summarizeErrorBody(contentType string, body []byte) string {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return "[html body omitted]"
	}
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > maxErrorExcerpt {
		cut := maxErrorExcerpt
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
