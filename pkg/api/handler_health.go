package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/prompthub/prompthub/pkg/database"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string                   `json:"status"`
	Database      *database.HealthStatus   `json:"database,omitempty"`
	CacheHits     uint64                   `json:"cache_hits"`
	CacheMisses   uint64                   `json:"cache_misses"`
	QueueDepth    int                      `json:"call_log_queue_depth"`
	QueueCapacity int                      `json:"call_log_queue_capacity"`
	DroppedLogs   uint64                   `json:"call_log_dropped"`
}

func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(reqCtx, s.dbClient.Pool())
	status := "healthy"
	if err != nil {
		status = "unhealthy"
	}

	hits, misses := s.cache.Stats()
	resp := &HealthResponse{
		Status:        status,
		Database:      dbHealth,
		CacheHits:     hits,
		CacheMisses:   misses,
		QueueDepth:    s.callLogSink.QueueDepth(),
		QueueCapacity: s.callLogSink.QueueCapacity(),
		DroppedLogs:   s.callLogSink.DroppedCount(),
	}

	httpStatus := http.StatusOK
	if status != "healthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	return c.JSON(httpStatus, resp)
}
