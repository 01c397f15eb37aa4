package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrowlyX/refactorproject-web/internal/config"
)

func testJWTService() *JWTService {
	return NewJWTService(config.SecurityConfig{
		JWTSecret:     "unit-test-secret",
		JWTExpiry:     time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
}

func TestJWTGenerateAndValidate(t *testing.T) {
	svc := testJWTService()

	token, err := svc.GenerateToken(7, "auth0|user")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "auth0|user", claims.AuthID)
}

func TestJWTRejectsTampering(t *testing.T) {
	svc := testJWTService()

	token, err := svc.GenerateToken(7, "auth0|user")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	require.Error(t, err)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := testJWTService().GenerateToken(7, "auth0|user")
	require.NoError(t, err)

	other := NewJWTService(config.SecurityConfig{
		JWTSecret: "a-different-secret",
		JWTExpiry: time.Hour,
	})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}
