// internal/server/server.go

// Package server is the thin HTTP transport in front of the dispatcher:
// request decoding, SSE streaming, health and metrics endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calendar-assistant/internal/assistant/orchestrator"
	"calendar-assistant/internal/common/config"
	"calendar-assistant/internal/common/logger"
	"calendar-assistant/internal/common/observability"
)

// Assistant is the dispatcher surface the transport depends on.
type Assistant interface {
	Handle(ctx context.Context, req orchestrator.Request) (*orchestrator.Response, error)
	HandleStream(ctx context.Context, req orchestrator.Request, emit func(orchestrator.StreamEvent) error)
}

func NewRouter(cfg config.ServerConfig, dispatcher Assistant, obs *observability.Observability, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-Id", "X-User-Roles"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	h := &Handler{Dispatcher: dispatcher, Obs: obs, Logger: log}

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/assistant")
	{
		api.POST("/message", h.Message)
		api.POST("/stream", h.Stream)
	}

	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request", map[string]interface{}{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
		})
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
