package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 5 * time.Second

// listTools handles GET /api/v1/agent/tools: the schemas currently exposed to
// the model, in registration order.
func (s *Server) listTools(c *gin.Context) {
	defs := s.registry.GetDefinitions()
	c.JSON(http.StatusOK, gin.H{"tools": defs, "count": len(defs)})
}

// health handles GET /api/v1/agent/health. It probes conversation storage and
// the vector store; either failing makes the whole report unhealthy.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	report := gin.H{"status": "healthy"}
	status := http.StatusOK

	if err := s.manager.Health(ctx); err != nil {
		report["status"] = "unhealthy"
		report["storage"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		report["storage"] = "ok"
	}

	if err := s.vectors.Health(ctx); err != nil {
		report["status"] = "unhealthy"
		report["vector_store"] = err.Error()
		status = http.StatusServiceUnavailable
	} else {
		report["vector_store"] = "ok"
	}

	c.JSON(status, report)
}
