package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/example/hablo/internal/auth"
	"github.com/example/hablo/internal/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

func corsMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []interface{}{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id, ok := identityFrom(c); ok {
			fields = append(fields, "user_id", id.UserID)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// requireAuth verifies the bearer token and loads the user's progress so
// every handler sees a record that carries the account email.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", auth.ErrInvalidToken)
			return
		}
		id, err := s.identity.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.respondErr(c, err)
			return
		}
		if _, err := s.progress.Load(c.Request.Context(), id.UserID, id.Email); err != nil {
			s.respondErr(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// extractToken reads the Authorization header, or the token query parameter
// for EventSource clients that cannot set headers.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("token")
}

func identityFrom(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

func userID(c *gin.Context) string {
	id, _ := identityFrom(c)
	return id.UserID
}
