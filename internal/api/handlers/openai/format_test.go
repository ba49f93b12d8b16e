// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package openai

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

func delivered(content string, usage executor.Usage) auth.Delivery {
	return auth.Delivery{
		State:     auth.Delivered,
		LogicalID: "claude3.5",
		Result: &executor.Result{
			Content:  content,
			Usage:    usage,
			Provider: executor.PuterClaude,
			Model:    "claude-3-5-sonnet-20241022",
		},
	}
}

func TestFormat_Delivered(t *testing.T) {
	f := NewFormatter()
	f.now = func() time.Time { return time.Unix(1700000000, 0) }

	status, body, err := f.Format(delivered("Hello!", executor.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}), "claude3.5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	root := gjson.ParseBytes(body)
	assert.Regexp(t, `^chatcmpl-[0-9a-f-]{36}$`, root.Get("id").String())
	assert.Equal(t, "chat.completion", root.Get("object").String())
	assert.EqualValues(t, 1700000000, root.Get("created").Int())
	assert.Equal(t, "claude3.5", root.Get("model").String())
	assert.Equal(t, "puter", root.Get("provider").String())
	assert.Equal(t, "assistant", root.Get("choices.0.message.role").String())
	assert.Equal(t, "Hello!", root.Get("choices.0.message.content").String())
	assert.Equal(t, "stop", root.Get("choices.0.finish_reason").String())
	assert.EqualValues(t, 3, root.Get("usage.total_tokens").Int())
	assert.False(t, root.Get("error").Exists())
}

func TestFormat_ZeroUsage(t *testing.T) {
	_, body, err := NewFormatter().Format(delivered("x", executor.Usage{}), "gpt-4o-mini")
	require.NoError(t, err)
	usage := gjson.GetBytes(body, "usage")
	for _, k := range []string{"prompt_tokens", "completion_tokens", "total_tokens"} {
		require.True(t, usage.Get(k).Exists(), k)
		assert.Zero(t, usage.Get(k).Int(), k)
	}
}

func TestFormat_IdempotentModuloIDAndCreated(t *testing.T) {
	d := delivered("same", executor.Usage{TotalTokens: 9})
	_, a, err := NewFormatter().Format(d, "claude3.5")
	require.NoError(t, err)
	_, b, err := NewFormatter().Format(d, "claude3.5")
	require.NoError(t, err)
	assert.NotEqual(t, gjson.GetBytes(a, "id").String(), gjson.GetBytes(b, "id").String())

	strip := func(body []byte) string {
		body, _ = sjson.DeleteBytes(body, "id")
		body, _ = sjson.DeleteBytes(body, "created")
		return string(body)
	}
	assert.JSONEq(t, strip(a), strip(b))
}

func TestFormat_Exhausted(t *testing.T) {
	d := auth.Delivery{State: auth.Exhausted, LogicalID: "claude3.5", Attempts: []auth.Attempt{
		{Provider: executor.PuterClaude, Outcome: executor.Transient("status 500: upstream stack trace")},
	}}
	status, body, err := NewFormatter().Format(d, "claude3.5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, status)

	root := gjson.ParseBytes(body)
	assert.Equal(t, "service_unavailable", root.Get("error.type").String())
	assert.Equal(t, "ALL_PROVIDERS_EXHAUSTED", root.Get("error.code").String())
	assert.NotEmpty(t, root.Get("error.message").String())
	assert.NotContains(t, string(body), "stack trace")
	assert.Equal(t, FallbackContent, root.Get("choices.0.message.content").String())
	assert.Equal(t, "claude3.5", root.Get("model").String())
}

func TestInvalidRequest(t *testing.T) {
	body := InvalidRequest("No messages provided")
	assert.Equal(t, "INVALID_REQUEST", gjson.GetBytes(body, "error.code").String())
	assert.Equal(t, "No messages provided", gjson.GetBytes(body, "error.message").String())
}

func TestRequestTooLarge(t *testing.T) {
	body := RequestTooLarge(1024)
	assert.Equal(t, "REQUEST_TOO_LARGE", gjson.GetBytes(body, "error.code").String())
	assert.Equal(t, "invalid_request_error", gjson.GetBytes(body, "error.type").String())
	assert.Equal(t, "request body exceeds 1024 bytes", gjson.GetBytes(body, "error.message").String())
}
