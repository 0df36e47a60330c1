package server

import (
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const blockHashKey = "blockHash"

// BlockHashMiddleware validates the :blockhash param and stores it lowercased.
func BlockHashMiddleware(c *gin.Context) {
	blockHash := strings.ToLower(c.Param("blockhash"))
	if blockHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "block hash is required"})
		c.Abort()
		return
	}

	raw, err := hex.DecodeString(blockHash)
	if err != nil || len(raw) != 32 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not parse block hash"})
		c.Abort()
		return
	}

	c.Set(blockHashKey, blockHash)
	c.Next()
}

// RequestLogger logs every request at debug level, failures at warn.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := logger.Debug()
		if status >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}
