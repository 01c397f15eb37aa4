package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/GrowlyX/refactorproject-web/internal/config"
)

// Claims carries the authenticated principal through the API layer.
type Claims struct {
	UserID uint   `json:"user_id"`
	AuthID string `json:"auth_id"`
	jwt.RegisteredClaims
}

// JWTService issues and validates the dashboard's session tokens.
type JWTService struct {
	secret        []byte
	expiry        time.Duration
	refreshExpiry time.Duration
}

func NewJWTService(cfg config.SecurityConfig) *JWTService {
	return &JWTService{
		secret:        []byte(cfg.JWTSecret),
		expiry:        cfg.JWTExpiry,
		refreshExpiry: cfg.RefreshExpiry,
	}
}

func (s *JWTService) GenerateToken(userID uint, authID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		AuthID: authID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   authID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) GenerateRefreshToken(userID uint, authID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		AuthID: authID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   authID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshExpiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
