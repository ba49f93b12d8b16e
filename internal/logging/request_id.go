// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	requestIDField  = "request_id"
	requestIDHeader = "X-Request-Id"
	ginRequestIDKey = "FREEAPI_REQUEST_ID"
)

type requestIDContextKey struct{}

// NewRequestID returns a short random identifier suitable for log correlation.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithRequestID stores id in ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// GetRequestID returns the request id stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDContextKey{}).(string); ok {
		return id
	}
	return ""
}

// EntryFromContext returns a logrus entry carrying the request id found in ctx.
func EntryFromContext(ctx context.Context) *log.Entry {
	if id := GetRequestID(ctx); id != "" {
		return log.WithField(requestIDField, id)
	}
	return log.NewEntry(log.StandardLogger())
}

// GinRequestID assigns a request id (honouring an inbound X-Request-Id) and propagates it
// through the request context and response headers.
func GinRequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = NewRequestID()
		}
		c.Set(ginRequestIDKey, id)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// GinLogrusLogger logs one line per request after the handler chain completes.
func GinLogrusLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		entry := EntryFromContext(c.Request.Context()).WithField("latency", time.Since(start).Round(time.Millisecond))
		msg := c.Request.Method + " " + path
		switch {
		case status >= 500:
			entry.Errorf("%s -> %d", msg, status)
		case status >= 400:
			entry.Warnf("%s -> %d", msg, status)
		default:
			entry.Infof("%s -> %d", msg, status)
		}
	}
}
