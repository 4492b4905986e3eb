package server

import (
	"errors"
	"net/http"

	"doodle-chain/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// writeStoreError maps the store error taxonomy onto status codes the
// remote client maps back.
func writeStoreError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(c, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrConflict):
		writeError(c, http.StatusConflict, "already exists")
	case store.IsTransient(err):
		log.Warn().Err(err).Str("op", op).Msg("store call failed")
		writeError(c, http.StatusServiceUnavailable, "store unavailable")
	default:
		log.Error().Err(err).Str("op", op).Msg("store call failed")
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
