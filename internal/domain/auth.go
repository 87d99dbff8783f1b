package domain

import (
	"strings"
	"time"
)

const (
	RoleUser       = "USER"
	RoleRestaurant = "RESTAURANT"
	RoleAdmin      = "ADMIN"
)

// AuthClaims represents validated JWT claims
type AuthClaims struct {
	SubjectID int64
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthService issues and validates bearer tokens
type AuthService interface {
	GenerateAccessToken(subjectID int64, role string) (string, error)
	ValidateToken(token string) (*AuthClaims, error)
}

// NormalizeRole maps a raw role claim onto a known role, defaulting to USER
func NormalizeRole(role string) string {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case RoleRestaurant, "ROLE_RESTAURANT":
		return RoleRestaurant
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}
