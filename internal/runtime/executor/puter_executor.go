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

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/traylinx/freeapi/internal/config"
	"github.com/traylinx/freeapi/internal/logging"
	sdkexecutor "github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// PuterExecutor calls Puter's Claude driver with a guest JWT.
type PuterExecutor struct {
	cfg      config.ProviderConfig
	upstream *upstreamClient
	creds    sdkexecutor.Credentials
	now      func() time.Time
}

// NewPuterExecutor creates the Puter client. creds may be nil when only the handshake is used.
func NewPuterExecutor(cfg *config.Config, creds sdkexecutor.Credentials) (*PuterExecutor, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	pc := cfg.Providers.Puter
	up, err := newUpstreamClient(string(sdkexecutor.PuterClaude), pc, cfg.SDKConfig)
	if err != nil {
		return nil, fmt.Errorf("puter executor: %w", err)
	}
	return &PuterExecutor{cfg: pc, upstream: up, creds: creds, now: time.Now}, nil
}

// Identifier implements sdkexecutor.ProviderClient.
func (e *PuterExecutor) Identifier() sdkexecutor.ProviderID { return sdkexecutor.PuterClaude }

// CredentialTTL implements auth.Refresher.
func (e *PuterExecutor) CredentialTTL() time.Duration { return e.cfg.TokenTTL }

// SetCredentials binds the credential source used by Call.
func (e *PuterExecutor) SetCredentials(creds sdkexecutor.Credentials) { e.creds = creds }

// Handshake implements auth.Refresher. It requests a temporary account and falls back to a
// guest login when the signup is refused. With a fallback configured the signup is limited to
// half of the handshake budget.
func (e *PuterExecutor) Handshake(ctx context.Context) (string, error) {
	signupCtx := ctx
	if budget := e.handshakeBudget(ctx); e.cfg.FallbackAuthURL != "" && budget > 0 {
		var cancel context.CancelFunc
		signupCtx, cancel = context.WithTimeout(ctx, budget/2)
		defer cancel()
	}
	token, errSignup := e.tokenFrom(signupCtx, e.cfg.AuthURL, []byte(`{"referrer":"/app/editor","is_temp":true}`))
	if errSignup == nil {
		return token, nil
	}
	if e.cfg.FallbackAuthURL == "" {
		return "", errSignup
	}
	logging.EntryFromContext(ctx).Debugf("puter signup failed, trying guest login: %v", errSignup)

	payload := []byte(`{}`)
	payload, _ = sjson.SetBytes(payload, "username", fmt.Sprintf("guest_%d", e.now().UnixMilli()))
	payload, _ = sjson.SetBytes(payload, "password", "temporary")
	payload, _ = sjson.SetBytes(payload, "is_guest", true)
	token, errLogin := e.tokenFrom(ctx, e.cfg.FallbackAuthURL, payload)
	if errLogin != nil {
		return "", errors.Join(fmt.Errorf("signup: %w", errSignup), fmt.Errorf("guest login: %w", errLogin))
	}
	return token, nil
}

// handshakeBudget is the time left for the whole handshake: the caller's deadline when it is
// tighter than the configured handshake timeout.
func (e *PuterExecutor) handshakeBudget(ctx context.Context) time.Duration {
	budget := e.cfg.HandshakeTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); budget <= 0 || remaining < budget {
			budget = remaining
		}
	}
	return budget
}

func (e *PuterExecutor) tokenFrom(ctx context.Context, url string, payload []byte) (string, error) {
	req, err := e.upstream.newRequest(ctx, http.MethodPost, url, payload)
	if err != nil {
		return "", err
	}
	resp, err := e.upstream.do(req, payload, 0)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(gjson.GetBytes(resp.body, "token").String())
	if token == "" {
		return "", fmt.Errorf("no token in response from %s", url)
	}
	return token, nil
}

// Call implements sdkexecutor.ProviderClient.
func (e *PuterExecutor) Call(ctx context.Context, messages []sdkexecutor.ChatMessage, upstreamModel string) sdkexecutor.Outcome {
	if e.creds == nil {
		return sdkexecutor.Permanent("no credential")
	}
	token, err := e.creds.Token(ctx, e.Identifier())
	if err != nil || token == "" {
		logging.EntryFromContext(ctx).Warnf("puter credential unavailable: %v", err)
		return sdkexecutor.Permanent("no credential")
	}

	msgs, err := messagesJSON(messages)
	if err != nil {
		return sdkexecutor.Permanent(fmt.Sprintf("encode messages: %v", err))
	}
	payload := []byte(`{"interface":"puter-chat-completion","driver":"claude","method":"complete","args":{}}`)
	payload, _ = sjson.SetRawBytes(payload, "args.messages", msgs)
	payload, _ = sjson.SetBytes(payload, "args.model", upstreamModel)

	req, err := e.upstream.newRequest(ctx, http.MethodPost, e.cfg.ChatURL, payload)
	if err != nil {
		return sdkexecutor.Permanent(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.upstream.do(req, payload, e.cfg.RequestTimeout)
	if err != nil {
		outcome := classifyError(err)
		if outcome.Kind == sdkexecutor.OutcomeAuthExpired {
			e.creds.Invalidate(e.Identifier())
		}
		return outcome
	}

	if driverErr, failed := puterError(resp.body); failed {
		if driverErr.authRejected() {
			e.creds.Invalidate(e.Identifier())
			return sdkexecutor.AuthExpired(driverErr.Error())
		}
		return sdkexecutor.Transient(driverErr.Error())
	}

	content, usage, err := decodePuterResponse(resp.body)
	if err != nil {
		return sdkexecutor.Transient(err.Error())
	}
	if strings.TrimSpace(content) == "" {
		return sdkexecutor.Transient("empty response")
	}
	return sdkexecutor.Success(&sdkexecutor.Result{
		Content:  content,
		Usage:    usage,
		Provider: e.Identifier(),
		Model:    upstreamModel,
	})
}
