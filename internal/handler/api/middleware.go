package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/queosk/queosk/internal/domain"
	authpkg "github.com/queosk/queosk/pkg/auth"
	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/metrics"
	"github.com/queosk/queosk/pkg/observability"
	"github.com/queosk/queosk/pkg/xresponse"
)

// Context keys set by authMiddleware
const (
	ctxSubjectID = "subject_id"
	ctxUserRole  = "user_role"
)

// authMiddleware validates the bearer token and sets the caller in the context
func authMiddleware(authService domain.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			xresponse.InternalServerError(c, "Auth service not available")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			metrics.RecordAuthAttempt("bearer", "missing")
			xresponse.Unauthorized(c, "Authorization header with Bearer token required")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			metrics.RecordAuthAttempt("bearer", "missing")
			xresponse.Unauthorized(c, "Token is empty")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			metrics.RecordAuthAttempt("bearer", "rejected")
			switch {
			case errors.Is(err, authpkg.ErrExpiredToken):
				xresponse.Unauthorized(c, "Token expired")
			case errors.Is(err, authpkg.ErrInvalidToken):
				xresponse.Unauthorized(c, "Invalid token")
			default:
				xresponse.InternalServerError(c, "Failed to validate token")
			}
			c.Abort()
			return
		}

		metrics.RecordAuthAttempt("bearer", "success")
		c.Set(ctxSubjectID, claims.SubjectID)
		c.Set(ctxUserRole, claims.Role)

		logger.Debug("Caller authenticated via middleware",
			logger.Int64("subject_id", claims.SubjectID),
			logger.String("role", claims.Role),
			logger.String("token_ttl", time.Until(claims.ExpiresAt).String()),
		)

		c.Next()
	}
}

// corsMiddleware handles CORS for the kiosk and mobile clients
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Trace-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		observability.LogWithError(c, fmt.Errorf("panic: %v", recovered), "Panic recovered")
		metrics.RecordSystemError("panic", "http")

		xresponse.InternalServerError(c, "Internal server error")
		c.Abort()
	})
}
