// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package openai serves the OpenAI-compatible chat endpoints.
package openai

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/freeapi/internal/constant"
	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/internal/registry"
	"github.com/traylinx/freeapi/sdk/freeapi/auth"
	"github.com/traylinx/freeapi/sdk/freeapi/executor"
)

// Executor runs one chat request across the provider candidates.
type Executor interface {
	Execute(ctx context.Context, logicalID string, messages []executor.ChatMessage) auth.Delivery
}

// Handler serves /v1/chat/completions and /v1/models.
type Handler struct {
	executor  Executor
	registry  *registry.ModelRegistry
	formatter *Formatter
}

// NewHandler creates a handler. A nil registry uses the global one.
func NewHandler(exec Executor, reg *registry.ModelRegistry) *Handler {
	if reg == nil {
		reg = registry.GetGlobalRegistry()
	}
	return &Handler{executor: exec, registry: reg, formatter: NewFormatter()}
}

// Models lists the logical model ids.
func (h *Handler) Models(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   h.registry.Models(),
	})
}

// ChatCompletions resolves the requested model and runs it through the executor.
func (h *Handler) ChatCompletions(c *gin.Context) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, constant.MaxRequestBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Data(http.StatusRequestEntityTooLarge, "application/json", RequestTooLarge(tooLarge.Limit))
			return
		}
		c.Data(http.StatusBadRequest, "application/json", InvalidRequest("failed to read request body"))
		return
	}
	req, err := ParseChatRequest(raw)
	if err != nil {
		c.Data(http.StatusBadRequest, "application/json", InvalidRequest(err.Error()))
		return
	}

	ctx := c.Request.Context()
	model := req.Model
	if model == "" {
		model = h.registry.DefaultModel()
	}
	entry := logging.EntryFromContext(ctx)
	if !h.registry.Known(model) {
		entry.Debugf("unknown model %q, using %s", model, h.registry.DefaultModel())
	}
	entry.Infof("Request: %s (%d messages)", model, len(req.Messages))

	delivery := h.executor.Execute(ctx, model, req.Messages)
	if delivery.State == auth.Exhausted {
		entry.Warnf("model %s exhausted: %s", model, delivery.LastReason())
	}
	status, body, err := h.formatter.Format(delivery, model)
	if err != nil {
		entry.Errorf("encode response: %v", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "internal error", "code": "INTERNAL_ERROR"}})
		return
	}
	c.Data(status, "application/json", body)
}
