package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queosk/queosk/config"
	"github.com/queosk/queosk/internal/domain"
)

func newService() *JWTAuthService {
	return NewJWTAuthService(config.AuthConfig{
		AccessSecret:   "test-secret",
		Issuer:         "queosk",
		AccessTokenTTL: time.Hour,
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newService()

	token, err := svc.GenerateAccessToken(42, "restaurant")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.SubjectID)
	assert.Equal(t, domain.RoleRestaurant, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestGenerateAccessToken_InvalidSubject(t *testing.T) {
	_, err := newService().GenerateAccessToken(0, domain.RoleUser)
	assert.Error(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := newService()

	other := NewJWTAuthService(config.AuthConfig{AccessSecret: "other", Issuer: "queosk"})
	foreign, err := other.GenerateAccessToken(1, domain.RoleUser)
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &customClaims{
		Role: domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "queosk",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &customClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: "queosk"},
	})
	badSubjectToken, err := badSubject.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrInvalidToken},
		{name: "garbage", token: "not.a.jwt", want: ErrInvalidToken},
		{name: "wrong secret", token: foreign, want: ErrInvalidToken},
		{name: "expired", token: expiredToken, want: ErrExpiredToken},
		{name: "non numeric subject", token: badSubjectToken, want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
