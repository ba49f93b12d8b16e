// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"strings"

	"github.com/tidwall/sjson"
	sdkexecutor "github.com/traylinx/freeapi/sdk/freeapi/executor"
)

const (
	systemPrefix    = "System: "
	userPrefix      = "User: "
	assistantPrefix = "Assistant: "
	turnSeparator   = "\n\n"
)

// messagesJSON renders messages as a JSON array of {role, content} objects in caller order.
// Appending with the "-1" path keeps the order.
func messagesJSON(messages []sdkexecutor.ChatMessage) ([]byte, error) {
	out := []byte(`[]`)
	var err error
	for _, m := range messages {
		item := []byte(`{}`)
		if item, err = sjson.SetBytes(item, "role", string(m.Role)); err != nil {
			return nil, err
		}
		if item, err = sjson.SetBytes(item, "content", m.Content); err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "-1", item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FlattenPrompt renders messages as one prompt for upstreams that accept a single user turn.
// System messages are hoisted, in order, into a leading "System: " section. The remaining turns
// follow as "User: " and "Assistant: " sections in caller order. A lone user message without a
// system message is sent verbatim.
func FlattenPrompt(messages []sdkexecutor.ChatMessage) string {
	var system []string
	turns := make([]sdkexecutor.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == sdkexecutor.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	if len(system) == 0 && len(turns) == 1 && turns[0].Role == sdkexecutor.RoleUser {
		return turns[0].Content
	}

	sections := make([]string, 0, len(turns)+1)
	if len(system) > 0 {
		sections = append(sections, systemPrefix+strings.Join(system, "\n"))
	}
	for _, m := range turns {
		prefix := userPrefix
		if m.Role == sdkexecutor.RoleAssistant {
			prefix = assistantPrefix
		}
		sections = append(sections, prefix+m.Content)
	}
	return strings.Join(sections, turnSeparator)
}
