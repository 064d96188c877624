// Package http exposes the ceremony engine over a JSON HTTP surface. The
// transport is a thin adapter: every endpoint parses a request, calls one
// engine operation, and maps the error taxonomy onto status codes. No
// ceremony logic lives here.
package http

import (
	"log/slog"

	"github.com/emberbase/auth"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin router serving the ceremony endpoints.
func SetupRouter(engine *auth.Engine, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger), ClientAddr())

	handlers := NewCeremonyHandlers(engine)

	ceremonies := router.Group("/auth")
	{
		ceremonies.POST("/begin", handlers.Begin)
		ceremonies.POST("/submit-prompt", handlers.SubmitPrompt)
		ceremonies.POST("/send-prompt", handlers.SendPrompt)
		ceremonies.POST("/send-validation-code", handlers.SendValidationCode)
		ceremonies.POST("/submit-validation-code", handlers.SubmitValidationCode)
		ceremonies.POST("/refresh-token", handlers.RefreshToken)
		ceremonies.POST("/sign-out", handlers.SignOut)
	}

	protected := router.Group("/auth")
	protected.Use(Guard(engine))
	{
		protected.GET("/session", handlers.Session)
	}

	return router
}
