package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yenceelabs/speak-to-slides/internal/infra/logger"
)

func NewRouter(handler *Handler, tgHandler *TelegramHandler, filesDir string, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))

	r.GET("/health", handler.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/decks", handler.GenerateDeck)
		v1.GET("/decks/:id", handler.ServeDeck)
		v1.POST("/decks/:id/edits", handler.EditDeck)
		v1.POST("/decks/:id/images", handler.UploadImage)
	}

	// Short shareable link, same rendered page as the API path.
	r.GET("/d/:id", handler.ServeDeck)

	r.Static("/files", filesDir)

	r.POST("/telegram/webhook", tgHandler.Webhook)

	return r
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.Info("request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
