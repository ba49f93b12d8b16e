// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package openai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// ChatRequest is the subset of an OpenAI chat request the proxy honours.
type ChatRequest struct {
	Model    string
	Messages []executor.ChatMessage
	// Stream is accepted and ignored; replies are always complete.
	Stream bool
}

var errNoMessages = errors.New("no messages provided")

// ParseChatRequest validates raw and extracts the model and messages.
func ParseChatRequest(raw []byte) (ChatRequest, error) {
	var req ChatRequest
	if !gjson.ValidBytes(raw) {
		return req, errors.New("request body is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return req, errors.New("request body must be a JSON object")
	}
	req.Model = strings.TrimSpace(root.Get("model").String())
	req.Stream = root.Get("stream").Bool()

	messages := root.Get("messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return req, errNoMessages
	}
	for i, m := range messages.Array() {
		role, err := parseRole(m.Get("role").String())
		if err != nil {
			return req, fmt.Errorf("messages[%d]: %w", i, err)
		}
		req.Messages = append(req.Messages, executor.ChatMessage{Role: role, Content: contentText(m.Get("content"))})
	}
	return req, nil
}

func parseRole(raw string) (executor.Role, error) {
	role := executor.Role(strings.ToLower(strings.TrimSpace(raw)))
	if role == "developer" {
		return executor.RoleSystem, nil
	}
	if !role.Valid() {
		return "", fmt.Errorf("unsupported role %q", raw)
	}
	return role, nil
}

// contentText accepts a plain string or an array of parts and keeps the text parts.
func contentText(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	var parts []string
	content.ForEach(func(_, part gjson.Result) bool {
		switch {
		case part.Type == gjson.String:
			parts = append(parts, part.String())
		case part.Get("type").String() == "text":
			parts = append(parts, part.Get("text").String())
		}
		return true
	})
	return strings.Join(parts, "\n")
}
