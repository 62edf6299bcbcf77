package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent/orchestrator"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/llm"
)

// ErrorResponse is the uniform error body of the API.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path,omitempty"`
}

func writeError(c *gin.Context, status int, name, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     name,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Path:      c.Request.URL.Path,
	})
}

// mapError maps domain errors to an HTTP status and error name.
func mapError(c *gin.Context, err error) {
	var validErr *conversation.ValidationError
	switch {
	case errors.As(err, &validErr):
		writeError(c, http.StatusBadRequest, "validation_error", validErr.Error())
	case errors.Is(err, conversation.ErrNotFound):
		writeError(c, http.StatusNotFound, "not_found", "conversation not found")
	case errors.Is(err, orchestrator.ErrTurnInProgress):
		writeError(c, http.StatusConflict, "turn_in_progress", err.Error())
	case errors.Is(err, orchestrator.ErrConversationInactive):
		writeError(c, http.StatusConflict, "conversation_inactive", err.Error())
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, llm.ErrExternalService):
		writeError(c, http.StatusBadGateway, "provider_error", err.Error())
	default:
		slog.Error("Unexpected handler error", "error", err, "path", c.Request.URL.Path)
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
