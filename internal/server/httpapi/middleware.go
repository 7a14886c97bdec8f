package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avezhnov/ctfdeck/internal/logging"
	"github.com/avezhnov/ctfdeck/internal/server/auth"
)

const contextUserIDKey = "auth.userID"

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// authRequired verifies the bearer access token, stores the account ID in
// the request context, and stamps the account's activity time.
func (h *handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		uid, err := auth.GetUserIDFromToken(token, h.secret)
		if err != nil {
			apiError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired access token")
			return
		}

		if err := h.users.TouchActivity(c.Request.Context(), uid); err != nil {
			h.logger.Warn(c.Request.Context(), "activity stamp failed", "error", err)
		}

		c.Set(contextUserIDKey, uid)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}
