package api

import (
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// SendMessageRequest is the body of both message endpoints.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// streamMessage handles POST /api/v1/chat/conversations/:id/messages/stream.
// It runs one agentic turn and relays its events as SSE. The stream always
// ends with a Completed or Error event; closing the client connection cancels
// the turn.
func (s *Server) streamMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	// Errors before the first event still go out as plain JSON.
	events, err := s.orch.ProcessMessageStream(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		mapError(c, err)
		return
	}

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	// The channel is finite and closes after the terminal event. A client
	// disconnect cancels c.Request.Context(), which aborts the turn and
	// closes the channel from the producer side.
	for ev := range events {
		c.Render(-1, sse.Event{Event: ev.Name, Data: ev.Payload})
		c.Writer.Flush()
	}
}

// sendMessage handles POST /api/v1/chat/conversations/:id/messages. It runs
// the same loop without progressive streaming and returns the final answer.
func (s *Server) sendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	res, err := s.orch.ProcessMessageSync(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
