package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/models"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// ConversationDetail is the response of GET /chat/conversations/{id}: the
// conversation plus its current rolling window of messages.
type ConversationDetail struct {
	Conversation *models.Conversation `json:"conversation"`
	Messages     []models.Message     `json:"messages"`
}

// createConversation handles POST /api/v1/chat/conversations.
func (s *Server) createConversation(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	conv, err := s.manager.CreateConversation(c.Request.Context(), req)
	if err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// getConversation handles GET /api/v1/chat/conversations/:id.
func (s *Server) getConversation(c *gin.Context) {
	cctx, err := s.manager.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, ConversationDetail{
		Conversation: cctx.Conversation,
		Messages:     cctx.Messages,
	})
}

// listConversations handles GET /api/v1/chat/conversations?callerId=&limit=.
func (s *Server) listConversations(c *gin.Context) {
	callerID := c.Query("callerId")
	if callerID == "" {
		writeError(c, http.StatusBadRequest, "validation_error", "callerId query parameter is required")
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "validation_error", "limit must be an integer")
			return
		}
		limit = v
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	convs, err := s.manager.RecentByCaller(c.Request.Context(), callerID, limit)
	if err != nil {
		mapError(c, err)
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs, "count": len(convs)})
}

// archiveConversation handles DELETE /api/v1/chat/conversations/:id. The
// conversation is soft-archived, not removed.
func (s *Server) archiveConversation(c *gin.Context) {
	if err := s.manager.Archive(c.Request.Context(), c.Param("id")); err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "archived"})
}
