// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/modules/search"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts Slack and Firebase style user ids: alphanumerics plus
// '-' and '_' (team-prefixed Slack keys), at most 128 chars.
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeConversationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		writeError(c, http.StatusNotFound, "conversation not found")
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, search.ErrDisabled):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusBadGateway, "search provider error")
	}
}
