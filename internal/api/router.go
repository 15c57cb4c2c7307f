package api

import (
	"github.com/gin-gonic/gin"

	"github.com/felitsch/postforge/internal/export"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/internal/session"
)

func NewRouter(sessions *session.Registry, exporter *export.Orchestrator, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	handler := NewHandler(sessions, exporter, log)

	r.GET("/health", handler.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", handler.CreateSession)
		v1.DELETE("/sessions/:id", handler.DeleteSession)

		v1.GET("/sessions/:id/draft", handler.GetDraft)
		v1.PUT("/sessions/:id/draft", handler.UpdateDraft)

		v1.POST("/sessions/:id/slides", handler.AddSlide)
		v1.DELETE("/sessions/:id/slides/:index", handler.RemoveSlide)
		v1.POST("/sessions/:id/slides/move", handler.MoveSlide)

		v1.POST("/sessions/:id/generate", handler.Generate)
		v1.GET("/sessions/:id/pending", handler.GetPending)
		v1.POST("/sessions/:id/pending/accept", handler.AcceptPending)
		v1.POST("/sessions/:id/pending/dismiss", handler.DismissPending)

		v1.POST("/sessions/:id/undo", handler.Undo)
		v1.POST("/sessions/:id/redo", handler.Redo)

		v1.POST("/sessions/:id/export", handler.Export)
	}

	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		log.Info("request started",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.Next()
		log.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
