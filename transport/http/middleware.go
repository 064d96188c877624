package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emberbase/auth"
	"github.com/gin-gonic/gin"
)

// ClientAddr stamps the caller's address into the request context so the
// engine can key rate windows before any identity is known.
func ClientAddr() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithRemoteAddr(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

const introspectionKey = "auth.introspection"

// IntrospectionFromContext returns the verified token context set by
// [Guard].
func IntrospectionFromContext(c *gin.Context) (*auth.Introspection, bool) {
	value, ok := c.Get(introspectionKey)
	if !ok {
		return nil, false
	}
	res, ok := value.(*auth.Introspection)
	return res, ok
}

// Guard rejects requests without a live bearer access token. On success the
// introspection result is available via [IntrospectionFromContext].
func Guard(engine *auth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		res, err := engine.Introspect(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			return
		}

		c.Set(introspectionKey, res)
		c.Next()
	}
}

// RequestLogger logs one structured line per request. A nil logger disables
// logging.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger == nil {
			c.Next()
			return
		}
		started := time.Now()
		c.Next()
		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(started)),
		)
	}
}
