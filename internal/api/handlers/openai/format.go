// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package openai

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

const (
	// FallbackContent is returned in choices[0] when no provider could answer.
	FallbackContent = "All upstream providers are temporarily unavailable. Please try again in a moment."

	codeExhausted      = "ALL_PROVIDERS_EXHAUSTED"
	codeInvalidRequest = "INVALID_REQUEST"
	codeTooLarge       = "REQUEST_TOO_LARGE"
)

// Message is the assistant message of a choice.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one completion choice. Only index 0 is ever produced.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Completion is the chat.completion envelope.
type Completion struct {
	ID       string         `json:"id"`
	Object   string         `json:"object"`
	Created  int64          `json:"created"`
	Model    string         `json:"model"`
	Provider string         `json:"provider,omitempty"`
	Choices  []Choice       `json:"choices"`
	Usage    executor.Usage `json:"usage"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code"`
}

// Unavailable is the 503 body. It keeps the completion shape next to the error.
type Unavailable struct {
	Error ErrorDetail `json:"error"`
	Completion
}

// ErrorResponse wraps an ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Formatter renders deliveries as OpenAI-compatible bodies.
type Formatter struct {
	now   func() time.Time
	newID func() string
}

// NewFormatter returns a formatter using the wall clock and random ids.
func NewFormatter() *Formatter {
	return &Formatter{
		now:   time.Now,
		newID: func() string { return "chatcmpl-" + uuid.NewString() },
	}
}

// Format returns the status code and body for d. model is echoed back as requested.
func (f *Formatter) Format(d auth.Delivery, model string) (int, []byte, error) {
	completion := Completion{
		ID:      f.newID(),
		Object:  "chat.completion",
		Created: f.now().Unix(),
		Model:   model,
	}

	if d.State == auth.Delivered && d.Result != nil {
		completion.Provider = string(d.Result.Provider)
		completion.Choices = []Choice{{
			Message:      Message{Role: string(executor.RoleAssistant), Content: d.Result.Content},
			FinishReason: "stop",
		}}
		completion.Usage = d.Result.Usage
		body, err := json.Marshal(completion)
		return http.StatusOK, body, err
	}

	completion.Choices = []Choice{{
		Message:      Message{Role: string(executor.RoleAssistant), Content: FallbackContent},
		FinishReason: "stop",
	}}
	body, err := json.Marshal(Unavailable{
		Error: ErrorDetail{
			Message: "no provider could serve model " + model,
			Type:    "service_unavailable",
			Code:    codeExhausted,
		},
		Completion: completion,
	})
	return http.StatusServiceUnavailable, body, err
}

// InvalidRequest returns the 400 body for message.
func InvalidRequest(message string) []byte {
	return errorBody(message, codeInvalidRequest)
}

// RequestTooLarge returns the 413 body for a request over limit bytes.
func RequestTooLarge(limit int64) []byte {
	return errorBody(fmt.Sprintf("request body exceeds %d bytes", limit), codeTooLarge)
}

func errorBody(message, code string) []byte {
	body, err := json.Marshal(ErrorResponse{Error: ErrorDetail{
		Message: message,
		Type:    "invalid_request_error",
		Code:    code,
	}})
	if err != nil {
		return []byte(`{"error":{"message":"invalid request","code":"` + code + `"}}`)
	}
	return body
}
