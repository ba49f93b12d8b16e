// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

var testMessages = []executor.ChatMessage{{Role: executor.RoleUser, Content: "Hi"}}

func twoCandidates() staticResolver {
	return staticResolver{
		"m": {
			{LogicalID: "m", Provider: executor.PuterClaude, UpstreamModel: "claude-a"},
			{LogicalID: "m", Provider: executor.DuckAIChat, UpstreamModel: "gpt-b"},
		},
	}
}

func TestConductor_FirstCandidateDelivers(t *testing.T) {
	m, _ := newTestManager(newFakeClock())
	c := NewConductor(twoCandidates(), m, nil)
	puter := &scriptedClient{provider: executor.PuterClaude, script: []executor.Outcome{
		executor.Success(&executor.Result{Content: "Hello!"}),
	}}
	duck := &scriptedClient{provider: executor.DuckAIChat}
	c.RegisterClient(puter)
	c.RegisterClient(duck)

	d := c.Execute(context.Background(), "m", testMessages)
	require.Equal(t, Delivered, d.State)
	assert.Equal(t, "Hello!", d.Result.Content)
	assert.Equal(t, executor.PuterClaude, d.Result.Provider)
	assert.Equal(t, "claude-a", d.Result.Model)
	assert.Len(t, d.Attempts, 1)
	assert.Equal(t, 0, duck.callCount())
}

func TestConductor_AuthExpiredRetriesOnceAfterRefresh(t *testing.T) {
	clock := newFakeClock()
	r := newFakeRefresher(executor.PuterClaude, 10*time.Hour)
	hook := &recordingHook{}
	m, store := newTestManager(clock, r)
	m.hook = hook
	store.Set(executor.PuterClaude, Credential{Value: "seed", AcquiredAt: clock.Now(), TTL: time.Hour})

	c := NewConductor(twoCandidates(), m, hook)
	puter := &scriptedClient{provider: executor.PuterClaude, script: []executor.Outcome{
		executor.AuthExpired("401"),
		executor.Success(&executor.Result{Content: "Hello!"}),
	}}
	duck := &scriptedClient{provider: executor.DuckAIChat}
	c.RegisterClient(puter)
	c.RegisterClient(duck)

	d := c.Execute(context.Background(), "m", testMessages)
	require.Equal(t, Delivered, d.State)
	assert.Equal(t, "Hello!", d.Result.Content)
	assert.Equal(t, 1, hook.refreshCount(), "exactly one refresh")
	assert.Equal(t, 2, puter.callCount())
	assert.Equal(t, 0, duck.callCount())
	require.Len(t, d.Attempts, 2)
	assert.False(t, d.Attempts[0].Retry)
	assert.True(t, d.Attempts[1].Retry)
}

func TestConductor_AuthExpiredTwiceMovesOn(t *testing.T) {
	r := newFakeRefresher(executor.PuterClaude, time.Hour)
	m, _ := newTestManager(newFakeClock(), r)
	c := NewConductor(twoCandidates(), m, nil)
	puter := &scriptedClient{provider: executor.PuterClaude, script: []executor.Outcome{
		executor.AuthExpired("401"),
		executor.AuthExpired("403"),
		executor.Success(&executor.Result{Content: "never"}),
	}}
	duck := &scriptedClient{provider: executor.DuckAIChat, script: []executor.Outcome{
		executor.Success(&executor.Result{Content: "from duck"}),
	}}
	c.RegisterClient(puter)
	c.RegisterClient(duck)

	d := c.Execute(context.Background(), "m", testMessages)
	require.Equal(t, Delivered, d.State)
	assert.Equal(t, "from duck", d.Result.Content)
	assert.Equal(t, 2, puter.callCount())
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestConductor_FailedRefreshSkipsRetry(t *testing.T) {
	r := newFakeRefresher(executor.PuterClaude, time.Hour)
	r.fail.Store(true)
	m, _ := newTestManager(newFakeClock(), r)
	c := NewConductor(twoCandidates(), m, nil)
	puter := &scriptedClient{provider: executor.PuterClaude, script: []executor.Outcome{executor.AuthExpired("401")}}
	duck := &scriptedClient{provider: executor.DuckAIChat, script: []executor.Outcome{executor.Transient("status 500")}}
	c.RegisterClient(puter)
	c.RegisterClient(duck)

	d := c.Execute(context.Background(), "m", testMessages)
	assert.Equal(t, Exhausted, d.State)
	assert.Equal(t, 1, puter.callCount())
	assert.Len(t, d.Attempts, 2)
}

func TestConductor_AllTransientExhaustsInOrder(t *testing.T) {
	m, _ := newTestManager(newFakeClock())
	hook := &recordingHook{}
	c := NewConductor(twoCandidates(), m, hook)
	c.RegisterClient(&scriptedClient{provider: executor.PuterClaude, script: []executor.Outcome{executor.Transient("timeout")}})
	c.RegisterClient(&scriptedClient{provider: executor.DuckAIChat, script: []executor.Outcome{executor.Permanent("no credential")}})

	d := c.Execute(context.Background(), "m", testMessages)
	require.Equal(t, Exhausted, d.State)
	assert.Nil(t, d.Result)
	require.Len(t, d.Attempts, 2)
	assert.Equal(t, executor.PuterClaude, d.Attempts[0].Provider)
	assert.Equal(t, executor.DuckAIChat, d.Attempts[1].Provider)
	assert.Equal(t, "permanent: no credential", d.LastReason())
	assert.Len(t, hook.attempts, 2)
}

func TestConductor_MissingClientIsPermanent(t *testing.T) {
	m, _ := newTestManager(newFakeClock())
	c := NewConductor(twoCandidates(), m, nil)
	duck := &scriptedClient{provider: executor.DuckAIChat, script: []executor.Outcome{
		executor.Success(&executor.Result{Content: "ok"}),
	}}
	c.RegisterClient(duck)

	d := c.Execute(context.Background(), "m", testMessages)
	require.Equal(t, Delivered, d.State)
	require.Len(t, d.Attempts, 2)
	assert.Equal(t, executor.OutcomePermanent, d.Attempts[0].Outcome.Kind)
}

func TestConductor_SuccessWithoutResultIsTransient(t *testing.T) {
	m, _ := newTestManager(newFakeClock())
	c := NewConductor(staticResolver{"m": {{LogicalID: "m", Provider: executor.DuckAIChat, UpstreamModel: "x"}}}, m, nil)
	c.RegisterClient(&scriptedClient{provider: executor.DuckAIChat, script: []executor.Outcome{{Kind: executor.OutcomeSuccess}}})

	d := c.Execute(context.Background(), "m", testMessages)
	assert.Equal(t, Exhausted, d.State)
	assert.Equal(t, executor.OutcomeTransient, d.Attempts[0].Outcome.Kind)
}

func TestConductor_IgnoresCallerCancellation(t *testing.T) {
	m, _ := newTestManager(newFakeClock())
	c := NewConductor(twoCandidates(), m, nil)
	c.RegisterClient(&ctxCheckingClient{provider: executor.PuterClaude})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := c.Execute(ctx, "m", testMessages)
	assert.Equal(t, Delivered, d.State)
}

type ctxCheckingClient struct{ provider executor.ProviderID }

func (c *ctxCheckingClient) Identifier() executor.ProviderID { return c.provider }

func (c *ctxCheckingClient) Call(ctx context.Context, _ []executor.ChatMessage, _ string) executor.Outcome {
	if ctx.Err() != nil {
		return executor.Transient(ctx.Err().Error())
	}
	return executor.Success(&executor.Result{Content: "alive"})
}
