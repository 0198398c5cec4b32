package middleware

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"sightline/internal/server/api/response"
	"sightline/internal/server/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware represents middleware manager
type Middleware struct {
	logger *zap.Logger
	config *config.Config
}

// New creates a new middleware manager
func New(cfg *config.Config, logger *zap.Logger) *Middleware {
	return &Middleware{
		logger: logger,
		config: cfg,
	}
}

// RequestID adds request ID to context
func (m *Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs request details
func (m *Middleware) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		requestID := c.GetString("request_id")

		c.Next()

		m.logger.Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Recovery recovers from panics
func (m *Middleware) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				buf := make([]byte, 2048)
				n := runtime.Stack(buf, false)

				m.logger.Error("panic recovered",
					zap.String("error", fmt.Sprintf("%v", err)),
					zap.String("stack", string(buf[:n])))

				response.New(c, m.logger).InternalError(errors.New("internal server error"))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// ClientAuth gates the ingestion endpoints behind the shared client
// secret. The check runs before any parsing or storage work; a missing or
// mismatched header short-circuits with 401.
func (m *Middleware) ClientAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader("X-Client-Secret")
		if secret == "" || secret != m.config.API.ClientSecret {
			m.logger.Warn("Unauthorized client access attempt",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			response.New(c, m.logger).Unauthorized(errors.New("unauthorized client"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminAuth gates the query surface behind the admin bearer token
func (m *Middleware) AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if m.config.API.AdminToken == "" || token == "" || token != m.config.API.AdminToken {
			m.logger.Warn("Unauthorized admin access attempt",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path))
			response.New(c, m.logger).Unauthorized(errors.New("unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Secure adds security headers
func (m *Middleware) Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
