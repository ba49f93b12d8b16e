// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/tidwall/gjson"
	"github.com/traylinx/freeapi/internal/constant"
	sdkexecutor "github.com/traylinx/freeapi/sdk/freeapi/executor"
)

const acceptEncoding = "gzip, deflate, br, zstd"

type compositeReadCloser struct {
	io.Reader
	closers []func() error
}

func (c *compositeReadCloser) Close() error {
	var firstErr error
	for i := range c.closers {
		if c.closers[i] == nil {
			continue
		}
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// decodeResponseBody wraps body with the decoder named by the Content-Encoding header.
func decodeResponseBody(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	if body == nil {
		return nil, fmt.Errorf("response body is nil")
	}
	for _, raw := range strings.Split(contentEncoding, ",") {
		switch strings.TrimSpace(strings.ToLower(raw)) {
		case "", "identity":
			continue
		case "gzip":
			gz, err := gzip.NewReader(body)
			if err != nil {
				_ = body.Close()
				return nil, fmt.Errorf("failed to create gzip reader: %w", err)
			}
			return &compositeReadCloser{Reader: gz, closers: []func() error{gz.Close, body.Close}}, nil
		case "deflate":
			fr := flate.NewReader(body)
			return &compositeReadCloser{Reader: fr, closers: []func() error{fr.Close, body.Close}}, nil
		case "br":
			return &compositeReadCloser{Reader: brotli.NewReader(body), closers: []func() error{body.Close}}, nil
		case "zstd":
			dec, err := zstd.NewReader(body)
			if err != nil {
				_ = body.Close()
				return nil, fmt.Errorf("failed to create zstd reader: %w", err)
			}
			return &compositeReadCloser{
				Reader:  dec,
				closers: []func() error{func() error { dec.Close(); return nil }, body.Close},
			}, nil
		}
	}
	return body, nil
}

// extractContent reads a message content node that is either a plain string or a list of
// blocks, in which case the text of the first block with type "text" is used.
func extractContent(node gjson.Result) string {
	switch {
	case node.Type == gjson.String:
		return node.String()
	case node.IsArray():
		for _, block := range node.Array() {
			if block.Type == gjson.String {
				return block.String()
			}
			if block.Get("type").String() == "text" {
				return block.Get("text").String()
			}
		}
	}
	return ""
}

// parseUsage accepts OpenAI-style, Anthropic-style and Puter's metered-list usage shapes.
func parseUsage(node gjson.Result) sdkexecutor.Usage {
	var u sdkexecutor.Usage
	if !node.Exists() {
		return u
	}
	if node.IsArray() {
		for _, item := range node.Array() {
			amount := item.Get("amount").Int()
			switch item.Get("type").String() {
			case "prompt", "input":
				u.PromptTokens += amount
			case "completion", "output":
				u.CompletionTokens += amount
			}
		}
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
		return u
	}
	u.PromptTokens = firstInt(node, "prompt_tokens", "input_tokens")
	u.CompletionTokens = firstInt(node, "completion_tokens", "output_tokens")
	u.TotalTokens = node.Get("total_tokens").Int()
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

func firstInt(node gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if v := node.Get(p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}

// decodePuterResponse extracts content and usage from a drivers/call response.
func decodePuterResponse(body []byte) (string, sdkexecutor.Usage, error) {
	if !gjson.ValidBytes(body) {
		return "", sdkexecutor.Usage{}, fmt.Errorf("invalid JSON response")
	}
	root := gjson.ParseBytes(body)
	result := root.Get("result")
	content := extractContent(result.Get("message.content"))
	if content == "" {
		// Some driver versions return the message at the top level.
		content = extractContent(root.Get("message.content"))
	}
	return content, parseUsage(result.Get("usage")), nil
}

// puterDriverError is the error object of a 2xx response carrying "success": false.
type puterDriverError struct {
	code    string
	message string
	status  int
}

func (e puterDriverError) Error() string {
	if e.code == "" {
		return e.message
	}
	return e.code + ": " + e.message
}

// authRejected reports whether the driver refused the JWT itself. The message text is not
// consulted.
func (e puterDriverError) authRejected() bool {
	if e.status == http.StatusUnauthorized || e.status == http.StatusForbidden {
		return true
	}
	switch strings.ToLower(e.code) {
	case "token_auth_failed", "token_missing", "token_invalid", "token_expired", "unauthorized", "forbidden":
		return true
	}
	return false
}

// puterError returns the driver-level error of a 2xx response, if any.
func puterError(body []byte) (puterDriverError, bool) {
	root := gjson.ParseBytes(body)
	if s := root.Get("success"); !s.Exists() || s.Bool() {
		return puterDriverError{}, false
	}
	errNode := root.Get("error")
	if !errNode.IsObject() {
		return puterDriverError{message: errNode.String()}, true
	}
	msg := errNode.Get("message").String()
	if msg == "" {
		msg = errNode.Raw
	}
	return puterDriverError{
		code:    errNode.Get("code").String(),
		message: msg,
		status:  int(errNode.Get("status").Int()),
	}, true
}

// decodeDuckResponse extracts the assistant text from either a JSON object with a "message"
// field or an SSE stream of such objects, concatenated in order and terminated by [DONE].
func decodeDuckResponse(contentType string, body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	if strings.Contains(strings.ToLower(contentType), "text/event-stream") || bytes.HasPrefix(trimmed, []byte("data:")) {
		return decodeDuckStream(trimmed)
	}
	if !gjson.ValidBytes(trimmed) {
		return "", fmt.Errorf("invalid JSON response")
	}
	root := gjson.ParseBytes(trimmed)
	if err := duckChunkError(root); err != nil {
		return "", err
	}
	return root.Get("message").String(), nil
}

func decodeDuckStream(body []byte) (string, error) {
	var out strings.Builder
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), constant.MaxStreamingScannerBuffer)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}
		if !gjson.Valid(payload) {
			continue
		}
		chunk := gjson.Parse(payload)
		if err := duckChunkError(chunk); err != nil {
			return "", err
		}
		out.WriteString(chunk.Get("message").String())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read event stream: %w", err)
	}
	return out.String(), nil
}

// duckError is an in-band error object, e.g. {"action":"error","status":418,"type":"ERR_INVALID_VQD"}.
type duckError struct {
	status int
	kind   string
}

func (e duckError) Error() string {
	return fmt.Sprintf("upstream error %d: %s", e.status, e.kind)
}

// sessionRejected reports whether the error means the VQD session is no longer accepted.
func (e duckError) sessionRejected() bool {
	return e.kind == "ERR_INVALID_VQD" || e.status == 401 || e.status == 403
}

func duckChunkError(node gjson.Result) error {
	if node.Get("action").String() != "error" {
		return nil
	}
	return duckError{status: int(node.Get("status").Int()), kind: node.Get("type").String()}
}
