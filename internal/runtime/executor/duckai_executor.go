// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/sjson"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/internal/logging"
	sdkexecutor "github.com/traylinx/freeapi/sdk/freeapi/executor"
)

const (
	vqdHeader       = "x-vqd-4"
	vqdAcceptHeader = "x-vqd-accept"
)

// DuckAIExecutor calls DuckDuckGo AI Chat with a rotating VQD session header.
type DuckAIExecutor struct {
	cfg      config.ProviderConfig
	upstream *upstreamClient
	creds    sdkexecutor.Credentials
}

// NewDuckAIExecutor creates the DuckAI client. creds may be nil when only the handshake is used.
func NewDuckAIExecutor(cfg *config.Config, creds sdkexecutor.Credentials) (*DuckAIExecutor, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	dc := cfg.Providers.DuckAI
	up, err := newUpstreamClient(string(sdkexecutor.DuckAIChat), dc, cfg.SDKConfig)
	if err != nil {
		return nil, fmt.Errorf("duckai executor: %w", err)
	}
	return &DuckAIExecutor{cfg: dc, upstream: up, creds: creds}, nil
}

// Identifier implements sdkexecutor.ProviderClient.
func (e *DuckAIExecutor) Identifier() sdkexecutor.ProviderID { return sdkexecutor.DuckAIChat }

// CredentialTTL implements auth.Refresher.
func (e *DuckAIExecutor) CredentialTTL() time.Duration { return e.cfg.TokenTTL }

// SetCredentials binds the credential source used by Call.
func (e *DuckAIExecutor) SetCredentials(creds sdkexecutor.Credentials) { e.creds = creds }

// Handshake implements auth.Refresher. The status endpoint hands out a VQD token in the
// x-vqd-4 response header when asked with x-vqd-accept.
func (e *DuckAIExecutor) Handshake(ctx context.Context) (string, error) {
	req, err := e.upstream.newRequest(ctx, http.MethodGet, e.cfg.AuthURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set(vqdAcceptHeader, "1")
	req.Header.Set("Cache-Control", "no-store")
	resp, err := e.upstream.do(req, nil, 0)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(resp.header.Get(vqdHeader))
	if token == "" {
		return "", fmt.Errorf("no %s header in status response", vqdHeader)
	}
	return token, nil
}

// Call implements sdkexecutor.ProviderClient.
func (e *DuckAIExecutor) Call(ctx context.Context, messages []sdkexecutor.ChatMessage, upstreamModel string) sdkexecutor.Outcome {
	if e.creds == nil {
		return sdkexecutor.Permanent("no credential")
	}
	token, err := e.creds.Token(ctx, e.Identifier())
	if err != nil || token == "" {
		logging.EntryFromContext(ctx).Warnf("duckai credential unavailable: %v", err)
		return sdkexecutor.Permanent("no credential")
	}

	payload := []byte(`{"messages":[{"role":"user"}]}`)
	payload, _ = sjson.SetBytes(payload, "model", upstreamModel)
	payload, _ = sjson.SetBytes(payload, "messages.0.content", FlattenPrompt(messages))

	req, err := e.upstream.newRequest(ctx, http.MethodPost, e.cfg.ChatURL, payload)
	if err != nil {
		return sdkexecutor.Permanent(err.Error())
	}
	req.Header.Set(vqdHeader, token)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := e.upstream.do(req, payload, e.cfg.RequestTimeout)
	if resp != nil {
		// The session header rotates on every response, including rejected ones.
		if next := strings.TrimSpace(resp.header.Get(vqdHeader)); next != "" && next != token {
			e.creds.Rotate(e.Identifier(), next)
		}
	}
	if err != nil {
		if resp != nil {
			if _, errDecode := decodeDuckResponse(resp.header.Get("Content-Type"), resp.body); e.sessionRejected(errDecode) {
				e.creds.Invalidate(e.Identifier())
				return sdkexecutor.AuthExpired(err.Error())
			}
		}
		outcome := classifyError(err)
		if outcome.Kind == sdkexecutor.OutcomeAuthExpired {
			e.creds.Invalidate(e.Identifier())
		}
		return outcome
	}

	content, err := decodeDuckResponse(resp.header.Get("Content-Type"), resp.body)
	if err != nil {
		if e.sessionRejected(err) {
			e.creds.Invalidate(e.Identifier())
			return sdkexecutor.AuthExpired(err.Error())
		}
		return sdkexecutor.Transient(err.Error())
	}
	if strings.TrimSpace(content) == "" {
		return sdkexecutor.Transient("empty response")
	}
	return sdkexecutor.Success(&sdkexecutor.Result{
		Content:  content,
		Provider: e.Identifier(),
		Model:    upstreamModel,
	})
}

func (e *DuckAIExecutor) sessionRejected(err error) bool {
	var de duckError
	return errors.As(err, &de) && de.sessionRejected()
}
