// Package http wires the gin router and server around the handlers.
package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/lexveille/lexveille-backend/internal/http/handlers"
	httpMW "github.com/lexveille/lexveille-backend/internal/http/middleware"
	"github.com/lexveille/lexveille-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Mode           string
	AllowedOrigins []string

	ScrapeHandler   *httpH.ScrapeHandler
	DocumentHandler *httpH.DocumentHandler
	ProcessHandler  *httpH.ProcessHandler
	StatsHandler    *httpH.StatsHandler
	ConfigHandler   *httpH.ConfigHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	api := r.Group("/api")
	{
		if cfg.HealthHandler != nil {
			api.GET("/health", cfg.HealthHandler.HealthCheck)
		}

		if cfg.ScrapeHandler != nil {
			api.POST("/scrape/eurlex", cfg.ScrapeHandler.ScrapeEURLex)
			api.POST("/scrape/eurlex/range", cfg.ScrapeHandler.ScrapeEURLexRange)
			api.POST("/scrape/jorf", cfg.ScrapeHandler.ScrapeJORF)
		}

		if cfg.DocumentHandler != nil {
			api.GET("/documents", cfg.DocumentHandler.List)
			api.GET("/documents/:id", cfg.DocumentHandler.Get)
			api.POST("/documents/delete", cfg.DocumentHandler.Delete)
		}

		if cfg.ProcessHandler != nil {
			api.POST("/process/llm", cfg.ProcessHandler.Process)
			api.POST("/process/llm/stream", cfg.ProcessHandler.ProcessStream)
		}

		if cfg.StatsHandler != nil {
			api.GET("/stats", cfg.StatsHandler.Get)
		}

		if cfg.ConfigHandler != nil {
			api.GET("/config/classification", cfg.ConfigHandler.GetClassification)
		}
	}

	return r
}
