package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/queosk/queosk/pkg/logger"
	"github.com/queosk/queosk/pkg/observability"
	"github.com/queosk/queosk/pkg/xresponse"
)

// RoleGuard provides helper functions for role-based access control in handlers
type RoleGuard struct{}

// NewRoleGuard creates a new role guard instance
func NewRoleGuard() *RoleGuard {
	return &RoleGuard{}
}

// GetCurrentSubject extracts the authenticated account from context
func (rg *RoleGuard) GetCurrentSubject(c *gin.Context) (subjectID int64, role string, exists bool) {
	idVal, exists := c.Get(ctxSubjectID)
	if !exists {
		return 0, "", false
	}

	roleVal, exists := c.Get(ctxUserRole)
	if !exists {
		return 0, "", false
	}

	id, ok := idVal.(int64)
	if !ok {
		return 0, "", false
	}

	roleStr, ok := roleVal.(string)
	if !ok {
		return 0, "", false
	}

	return id, roleStr, true
}

// RequireRole checks that the caller holds one of the allowed roles
func (rg *RoleGuard) RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, role, exists := rg.GetCurrentSubject(c)
		if !exists {
			logger.Warn("Access denied - caller not authenticated",
				logger.String("required_role", strings.Join(allowed, ",")),
				logger.String("ip", c.ClientIP()),
			)
			xresponse.Unauthorized(c, "Authentication required")
			c.Abort()
			return
		}

		for _, r := range allowed {
			if role == r {
				c.Next()
				return
			}
		}

		logger.Warn("Access denied - insufficient role",
			logger.String("user_role", role),
			logger.String("required_role", strings.Join(allowed, ",")),
			logger.String("ip", c.ClientIP()),
		)
		xresponse.Forbidden(c, "Insufficient permissions")
		c.Abort()
	}
}

// LogAccess logs access with caller information
func (rg *RoleGuard) LogAccess(c *gin.Context, action string, resource string) {
	id, role, exists := rg.GetCurrentSubject(c)
	if !exists {
		return
	}

	observability.LogWithFields(c, "Caller action",
		logger.Int64("subject_id", id),
		logger.String("role", role),
		logger.String("action", action),
		logger.String("resource", resource),
	)
}
