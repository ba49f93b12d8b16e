// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatter(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "attempt failed\n",
		Data:    log.Fields{requestIDField: "a1b2c3d4", "provider": "puter", "model": "m"},
	}
	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [a1b2c3d4] [warn ] attempt failed | model=m, provider=puter\n", string(out))

	entry.Data = log.Fields{}
	entry.Level = log.InfoLevel
	out, err = (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2026-01-02 15:04:05] [--------] [info ] attempt failed\n", string(out))
}

func TestRequestIDContext(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	ctx := WithRequestID(context.Background(), "abcd1234")
	assert.Equal(t, "abcd1234", GetRequestID(ctx))
	assert.Equal(t, "abcd1234", EntryFromContext(ctx).Data[requestIDField])
	assert.Len(t, NewRequestID(), 8)
}

func TestGinRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinRequestID(), GinLogrusLogger())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c.Request.Context()))
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rr.Body.String(), 8)
	assert.Equal(t, rr.Body.String(), rr.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "upstream-id")
	rr = httptest.NewRecorder()
	engine.ServeHTTP(rr, req)
	assert.Equal(t, "upstream-id", rr.Body.String())
}

func TestMaxBackups(t *testing.T) {
	assert.Equal(t, 0, maxBackups(0))
	assert.Equal(t, 1, maxBackups(10))
	assert.Equal(t, 9, maxBackups(100))
}

func TestConfigureLogOutput_File(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FREEAPI_LOG_DIR", dir)
	require.NoError(t, ConfigureLogOutput(true, 50))
	log.Info("to file")
	require.NoError(t, ConfigureLogOutput(false, 0))

	data, err := os.ReadFile(filepath.Join(dir, "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
