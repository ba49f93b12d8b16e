// Copyright 2026 The freeapi Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/traylinx/freeapi/internal/logging"
	"github.com/traylinx/freeapi/internal/util"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Id")
		h.Set("Access-Control-Expose-Headers", "X-Request-Id")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) apiKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		keys := *s.apiKeys.Load()
		if len(keys) == 0 {
			c.Next()
			return
		}
		token := util.BearerToken(c.GetHeader("Authorization"))
		for k := range keys {
			if token != "" && subtle.ConstantTimeCompare([]byte(token), []byte(k)) == 1 {
				c.Next()
				return
			}
		}
		logging.EntryFromContext(c.Request.Context()).Warnf("rejected api key %s", util.HideAPIKey(token))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{
			"message": "invalid or missing api key",
			"type":    "authentication_error",
			"code":    "invalid_api_key",
		}})
	}
}

func recoverJSON(c *gin.Context, recovered any) {
	logging.EntryFromContext(c.Request.Context()).Errorf("panic serving %s: %v", c.Request.URL.Path, recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{
		"message": "internal server error",
		"code":    "INTERNAL_ERROR",
	}})
}
