// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package executor defines the provider-facing types shared by the credential manager,
// the conductor and the concrete upstream executors.
package executor

import (
	"context"
	"fmt"
	"strings"
)

// ProviderID identifies an upstream chat provider.
type ProviderID string

const (
	// PuterClaude is Puter's Claude driver, authenticated with a guest JWT.
	PuterClaude ProviderID = "puter"
	// DuckAIChat is DuckDuckGo AI Chat, authenticated with a rotating VQD session header.
	DuckAIChat ProviderID = "duckai"
)

// Providers lists every known provider in a stable order.
func Providers() []ProviderID {
	return []ProviderID{PuterClaude, DuckAIChat}
}

// ParseProviderID maps a configuration string to a ProviderID.
func ParseProviderID(raw string) (ProviderID, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PuterClaude):
		return PuterClaude, nil
	case string(DuckAIChat), "duck", "duckduckgo":
		return DuckAIChat, nil
	default:
		return "", fmt.Errorf("unknown provider %q", raw)
	}
}

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the supported roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is a single conversation turn as supplied by the caller.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage carries token accounting; zero values mean the upstream reported nothing.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Result is the normalized output of a successful upstream call.
type Result struct {
	Content  string
	Usage    Usage
	Provider ProviderID
	// Model is the upstream model id that produced the content.
	Model string
}

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeAuthExpired
	OutcomeTransient
	OutcomePermanent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeAuthExpired:
		return "auth_expired"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one provider call.
type Outcome struct {
	Kind   OutcomeKind
	Result *Result
	Reason string
}

// Success wraps a normalized result.
func Success(r *Result) Outcome { return Outcome{Kind: OutcomeSuccess, Result: r} }

// AuthExpired reports that the upstream rejected the credential.
func AuthExpired(reason string) Outcome { return Outcome{Kind: OutcomeAuthExpired, Reason: reason} }

// Transient reports a network, timeout or non-auth upstream failure.
func Transient(reason string) Outcome { return Outcome{Kind: OutcomeTransient, Reason: reason} }

// Permanent reports a failure that retrying the same candidate cannot fix.
func Permanent(reason string) Outcome { return Outcome{Kind: OutcomePermanent, Reason: reason} }

// OK reports whether the outcome carries a result.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess && o.Result != nil }

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Kind.String()
	}
	return o.Kind.String() + ": " + o.Reason
}

// ProviderClient issues chat calls against one upstream.
type ProviderClient interface {
	// Identifier returns the provider handled by this client.
	Identifier() ProviderID
	// Call sends messages to upstreamModel and classifies the result. It never returns an error;
	// every failure is expressed as an Outcome.
	Call(ctx context.Context, messages []ChatMessage, upstreamModel string) Outcome
}

// ModelSpec binds a caller-facing logical model id to one upstream candidate.
type ModelSpec struct {
	LogicalID     string
	Provider      ProviderID
	UpstreamModel string
}

func (s ModelSpec) String() string {
	return fmt.Sprintf("%s -> %s/%s", s.LogicalID, s.Provider, s.UpstreamModel)
}

// Credentials is the view of the credential manager a provider client needs.
type Credentials interface {
	// Token returns the live token for provider, refreshing synchronously when none is stored.
	Token(ctx context.Context, provider ProviderID) (string, error)
	// Invalidate drops the stored token after the upstream rejected it.
	Invalidate(provider ProviderID)
	// Rotate replaces the stored token with one handed back by the upstream.
	Rotate(provider ProviderID, token string)
}
