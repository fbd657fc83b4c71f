package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LastCoderBoy/finice-auth/pkg/database"
	"github.com/LastCoderBoy/finice-auth/pkg/redis"
)

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db    *database.PostgresDB
	cache *redis.Client
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *database.PostgresDB, cache *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

// Health returns basic health status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "finice-auth",
	})
}

// Ready checks if the service is ready to accept traffic. The
// revocation cache is fail-open, so a Redis outage degrades the
// service but does not make it unready.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not_ready",
			"service":  "finice-auth",
			"database": "disconnected",
			"error":    err.Error(),
		})
		return
	}

	cacheStatus := "connected"
	if err := h.cache.Ping(c.Request.Context()); err != nil {
		cacheStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"service":  "finice-auth",
		"database": "connected",
		"cache":    cacheStatus,
	})
}
