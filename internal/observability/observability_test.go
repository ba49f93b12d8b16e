// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

func TestMetricsHook(t *testing.T) {
	h := MetricsHook{}
	ctx := context.Background()

	before := testutil.ToFloat64(CredentialRefreshesTotal.WithLabelValues("duckai", "error"))
	h.OnRefresh(ctx, executor.DuckAIChat, errors.New("x"), time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(CredentialRefreshesTotal.WithLabelValues("duckai", "error")))

	h.OnRefresh(ctx, executor.PuterClaude, nil, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(CredentialReady.WithLabelValues("puter")))

	h.OnAttempt(ctx, auth.Attempt{
		Provider: executor.PuterClaude,
		Model:    "m-test",
		Outcome:  executor.Success(&executor.Result{Content: "x", Usage: executor.Usage{PromptTokens: 3, CompletionTokens: 4}}),
		Duration: time.Second,
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(ProviderAttemptsTotal.WithLabelValues("puter", "m-test", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(ProviderTokensTotal.WithLabelValues("puter", "m-test", "output")))

	h.OnAttempt(ctx, auth.Attempt{Provider: executor.PuterClaude, Model: "m-test", Outcome: executor.AuthExpired("401")})
	assert.Equal(t, 0.0, testutil.ToFloat64(CredentialReady.WithLabelValues("puter")))

	before = testutil.ToFloat64(DeliveriesTotal.WithLabelValues("exhausted"))
	h.OnDelivery(ctx, auth.Delivery{State: auth.Exhausted})
	assert.Equal(t, before+1, testutil.ToFloat64(DeliveriesTotal.WithLabelValues("exhausted")))
}

func TestGinMetricsAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinMetrics())
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	engine.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, testutil.ToFloat64(RequestsTotal.WithLabelValues("GET", "/ping", "2xx")), 1.0)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "freeapi_requests_total"))
}
