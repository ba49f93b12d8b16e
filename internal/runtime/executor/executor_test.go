// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/traylinx/freeapi/internal/config"
	sdkexecutor "github.com/traylinx/freeapi/sdk/freeapi/executor"
)

type fakeCredentials struct {
	mu          sync.Mutex
	token       string
	err         error
	invalidated int
	rotated     []string
}

func (f *fakeCredentials) Token(context.Context, sdkexecutor.ProviderID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.err
}

func (f *fakeCredentials) Invalidate(sdkexecutor.ProviderID) {
	f.mu.Lock()
	f.invalidated++
	f.token = ""
	f.mu.Unlock()
}

func (f *fakeCredentials) Rotate(_ sdkexecutor.ProviderID, token string) {
	f.mu.Lock()
	f.rotated = append(f.rotated, token)
	f.token = token
	f.mu.Unlock()
}

func testConfig(puterBase, duckBase string) *config.Config {
	cfg := config.Defaults()
	if puterBase != "" {
		cfg.Providers.Puter.AuthURL = puterBase + "/signup"
		cfg.Providers.Puter.FallbackAuthURL = puterBase + "/auth/login"
		cfg.Providers.Puter.ChatURL = puterBase + "/drivers/call"
	}
	if duckBase != "" {
		cfg.Providers.DuckAI.AuthURL = duckBase + "/duckchat/v1/status"
		cfg.Providers.DuckAI.ChatURL = duckBase + "/duckchat/v1/chat"
	}
	return cfg
}

var hello = []sdkexecutor.ChatMessage{{Role: sdkexecutor.RoleUser, Content: "Hi"}}

func TestPuterHandshake_Signup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/signup", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.GetBytes(body, "is_temp").Bool())
		assert.Equal(t, "/app/editor", gjson.GetBytes(body, "referrer").String())
		_, _ = w.Write([]byte(`{"token":"jwt-1"}`))
	}))
	defer srv.Close()

	e, err := NewPuterExecutor(testConfig(srv.URL, ""), nil)
	require.NoError(t, err)
	token, err := e.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", token)
	assert.Equal(t, 10*time.Hour, e.CredentialTTL())
}

func TestPuterHandshake_FallsBackToGuestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/signup":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/auth/login":
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "guest_1700000000000", gjson.GetBytes(body, "username").String())
			assert.True(t, gjson.GetBytes(body, "is_guest").Bool())
			_, _ = w.Write([]byte(`{"token":"jwt-guest"}`))
		}
	}))
	defer srv.Close()

	e, err := NewPuterExecutor(testConfig(srv.URL, ""), nil)
	require.NoError(t, err)
	e.now = func() time.Time { return time.UnixMilli(1700000000000) }
	token, err := e.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jwt-guest", token)
}

func TestPuterHandshake_HungSignupLeavesTimeForGuestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/signup":
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		case "/auth/login":
			_, _ = w.Write([]byte(`{"token":"jwt-guest"}`))
		}
	}))
	defer srv.Close()

	e, err := NewPuterExecutor(testConfig(srv.URL, ""), nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	token, err := e.Handshake(ctx)
	require.NoError(t, err)
	assert.Equal(t, "jwt-guest", token)
}

func TestPuterHandshake_BothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	e, err := NewPuterExecutor(testConfig(srv.URL, ""), nil)
	require.NoError(t, err)
	_, err = e.Handshake(context.Background())
	assert.Error(t, err)
}

func TestPuterCall(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var respBody atomic.Value
	respBody.Store(`{"success":true,"result":{"message":{"content":[{"type":"text","text":"Hello!"}]},"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "puter-chat-completion", gjson.GetBytes(body, "interface").String())
		assert.Equal(t, "claude", gjson.GetBytes(body, "driver").String())
		assert.Equal(t, "complete", gjson.GetBytes(body, "method").String())
		assert.Equal(t, "claude-3-5-sonnet-20241022", gjson.GetBytes(body, "args.model").String())
		assert.Equal(t, "Hi", gjson.GetBytes(body, "args.messages.0.content").String())
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(respBody.Load().(string)))
	}))
	defer srv.Close()

	creds := &fakeCredentials{token: "jwt"}
	e, err := NewPuterExecutor(testConfig(srv.URL, ""), creds)
	require.NoError(t, err)

	out := e.Call(context.Background(), hello, "claude-3-5-sonnet-20241022")
	require.True(t, out.OK(), out.String())
	assert.Equal(t, "Hello!", out.Result.Content)
	assert.EqualValues(t, 3, out.Result.Usage.TotalTokens)
	assert.Equal(t, sdkexecutor.PuterClaude, out.Result.Provider)

	respBody.Store(`{"success":true,"result":{"message":{"content":""}}}`)
	out = e.Call(context.Background(), hello, "claude-3-5-sonnet-20241022")
	assert.Equal(t, sdkexecutor.OutcomeTransient, out.Kind)
	assert.Equal(t, "empty response", out.Reason)

	status.Store(http.StatusInternalServerError)
	respBody.Store(`{"error":"boom"}`)
	out = e.Call(context.Background(), hello, "claude-3-5-sonnet-20241022")
	assert.Equal(t, sdkexecutor.OutcomeTransient, out.Kind)
	assert.Zero(t, creds.invalidated)

	status.Store(http.StatusUnauthorized)
	out = e.Call(context.Background(), hello, "claude-3-5-sonnet-20241022")
	assert.Equal(t, sdkexecutor.OutcomeAuthExpired, out.Kind)
	assert.Equal(t, 1, creds.invalidated)
}

func TestPuterCall_DriverErrors(t *testing.T) {
	var respBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(respBody.Load().(string)))
	}))
	defer srv.Close()

	creds := &fakeCredentials{token: "jwt"}
	e, err := NewPuterExecutor(testConfig(srv.URL, ""), creds)
	require.NoError(t, err)

	respBody.Store(`{"success":false,"error":{"code":"invalid_argument","message":"max_tokens must be <= 4096"}}`)
	out := e.Call(context.Background(), hello, "claude-3-5-sonnet-20241022")
	assert.Equal(t, sdkexecutor.OutcomeTransient, out.Kind)
	assert.Zero(t, creds.invalidated)
	assert.Equal(t, "jwt", creds.token)

	respBody.Store(`{"success":false,"error":{"code":"token_auth_failed","message":"bad token"}}`)
	out = e.Call(context.Background(), hello, "claude-3-5-sonnet-20241022")
	assert.Equal(t, sdkexecutor.OutcomeAuthExpired, out.Kind)
	assert.Equal(t, 1, creds.invalidated)
}

func TestPuterCall_NoCredential(t *testing.T) {
	creds := &fakeCredentials{err: errors.New("handshake failed")}
	e, err := NewPuterExecutor(testConfig("http://127.0.0.1:1", ""), creds)
	require.NoError(t, err)
	out := e.Call(context.Background(), hello, "m")
	assert.Equal(t, sdkexecutor.OutcomePermanent, out.Kind)
	assert.Equal(t, "no credential", out.Reason)
}

func TestPuterCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig(srv.URL, "")
	cfg.Providers.Puter.RequestTimeout = 50 * time.Millisecond
	e, err := NewPuterExecutor(cfg, &fakeCredentials{token: "jwt"})
	require.NoError(t, err)
	out := e.Call(context.Background(), hello, "m")
	assert.Equal(t, sdkexecutor.OutcomeTransient, out.Kind)
}

func TestDuckHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("x-vqd-accept"))
		if r.URL.Query().Get("empty") == "" {
			w.Header().Set("x-vqd-4", "4-abc")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, err := NewDuckAIExecutor(testConfig("", srv.URL), nil)
	require.NoError(t, err)
	token, err := e.Handshake(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4-abc", token)
	assert.Equal(t, 30*time.Minute, e.CredentialTTL())

	e.cfg.AuthURL = srv.URL + "/duckchat/v1/status?empty=1"
	_, err = e.Handshake(context.Background())
	assert.Error(t, err)
}

func TestDuckCall_StreamAndRotation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4-old", r.Header.Get("x-vqd-4"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "gpt-4o-mini", gjson.GetBytes(body, "model").String())
		assert.Equal(t, "user", gjson.GetBytes(body, "messages.0.role").String())
		assert.Equal(t, "System: S\n\nUser: Hi", gjson.GetBytes(body, "messages.0.content").String())
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("x-vqd-4", "4-new")
		_, _ = w.Write([]byte("data: {\"message\":\"Hel\"}\n\ndata: {\"message\":\"lo\"}\n\ndata: [DONE]\n\n"))
	}))
	defer srv.Close()

	creds := &fakeCredentials{token: "4-old"}
	e, err := NewDuckAIExecutor(testConfig("", srv.URL), creds)
	require.NoError(t, err)

	out := e.Call(context.Background(), []sdkexecutor.ChatMessage{
		{Role: sdkexecutor.RoleSystem, Content: "S"},
		{Role: sdkexecutor.RoleUser, Content: "Hi"},
	}, "gpt-4o-mini")
	require.True(t, out.OK(), out.String())
	assert.Equal(t, "Hello", out.Result.Content)
	assert.Equal(t, []string{"4-new"}, creds.rotated)
}

func TestDuckCall_InvalidSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(418)
		_, _ = w.Write([]byte(`{"action":"error","status":418,"type":"ERR_INVALID_VQD"}`))
	}))
	defer srv.Close()

	creds := &fakeCredentials{token: "4-old"}
	e, err := NewDuckAIExecutor(testConfig("", srv.URL), creds)
	require.NoError(t, err)

	out := e.Call(context.Background(), hello, "gpt-4o-mini")
	assert.Equal(t, sdkexecutor.OutcomeAuthExpired, out.Kind)
	assert.Equal(t, 1, creds.invalidated)
}

func TestDuckCall_RateLimitedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"action":"error","status":429,"type":"ERR_CONVERSATION_LIMIT"}`))
	}))
	defer srv.Close()

	creds := &fakeCredentials{token: "4-old"}
	e, err := NewDuckAIExecutor(testConfig("", srv.URL), creds)
	require.NoError(t, err)

	out := e.Call(context.Background(), hello, "gpt-4o-mini")
	assert.Equal(t, sdkexecutor.OutcomeTransient, out.Kind)
	assert.Zero(t, creds.invalidated)
}
