// Package api exposes the orchestrator over HTTP: conversation CRUD, the SSE
// message stream, tool discovery, and health endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/agent/orchestrator"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/conversation"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/tools"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/vector"
	"github.com/alfredoalpizar/rag-orchestrator-sub000/pkg/version"
)

// Server wires the HTTP surface to the orchestrator and its collaborators.
type Server struct {
	orch     *orchestrator.Orchestrator
	manager  *conversation.Manager
	registry *tools.Registry
	vectors  vector.Store

	listenAddr string
	httpSrv    *http.Server
}

// NewServer creates the API server.
func NewServer(
	orch *orchestrator.Orchestrator,
	manager *conversation.Manager,
	registry *tools.Registry,
	vectors vector.Store,
	listenAddr string,
) *Server {
	return &Server{
		orch:       orch,
		manager:    manager,
		registry:   registry,
		vectors:    vectors,
		listenAddr: listenAddr,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), securityHeaders())

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		chat := v1.Group("/chat")
		chat.POST("/conversations", s.createConversation)
		chat.GET("/conversations", s.listConversations)
		chat.GET("/conversations/:id", s.getConversation)
		chat.DELETE("/conversations/:id", s.archiveConversation)
		chat.POST("/conversations/:id/messages", s.sendMessage)
		chat.POST("/conversations/:id/messages/stream", s.streamMessage)

		agent := v1.Group("/agent")
		agent.GET("/tools", s.listTools)
		agent.GET("/health", s.health)
	}
	return r
}

// Start begins serving. It returns once the listener stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP server listening", "addr", s.listenAddr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, including open SSE streams, within the
// given context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
