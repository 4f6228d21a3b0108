package ingest

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kestrelhq/pagegen/internal/logging"
)

// NewRouter builds the gin engine exposing the chat-transport webhook. It
// keeps the teacher's CORS/recovery/not-found shape but drops everything
// outside this component's scope (auth, users, captcha, chat sessions).
func NewRouter(h *Handler, log *logging.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(recovery(log))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "message": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "message": "method not allowed"})
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Telegram-Bot-Api-Secret-Token"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/telegram/webhook", h.Webhook)

	return r
}

// recovery turns a panic inside a handler into a logged 500 instead of a
// crashed process — ingress must stay up even if a single request misbehaves.
func recovery(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered in ingest handler", "panic", rec, "path", c.Request.URL.Path)
				c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "message": "internal error"})
				c.Abort()
			}
		}()
		c.Next()
	}
}
