package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/models"
)

const ProviderGitHub = "github"

// TokenManager stores user OAuth tokens encrypted at rest, one row per
// (user, provider). Decrypted tokens are cached in Redis for a short window
// when a client is configured.
type TokenManager struct {
	db         database.Database
	encryption *EncryptionService
	redis      database.RedisClient
}

func NewTokenManager(db database.Database, encryption *EncryptionService, redis database.RedisClient) *TokenManager {
	return &TokenManager{
		db:         db,
		encryption: encryption,
		redis:      redis,
	}
}

// StoreToken upserts the user's token for a provider, encrypting it first.
func (tm *TokenManager) StoreToken(ctx context.Context, userID uint, provider, accessToken, scope string, expiresAt *time.Time) error {
	encrypted, err := tm.encryption.Encrypt(accessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	userToken := models.UserToken{
		UserID:      userID,
		Provider:    provider,
		AccessToken: encrypted,
		Scope:       scope,
		ExpiresAt:   expiresAt,
	}

	err = tm.db.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "scope", "expires_at", "updated_at"}),
		}).
		Create(&userToken).Error
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	tm.invalidateCache(ctx, userID, provider)
	return nil
}

// GetDecryptedToken returns the plaintext token for a provider, or an error
// when the user has none stored or it has expired.
func (tm *TokenManager) GetDecryptedToken(ctx context.Context, userID uint, provider string) (string, error) {
	if cached := tm.cachedToken(ctx, userID, provider); cached != "" {
		return cached, nil
	}

	var userToken models.UserToken
	err := tm.db.DB().WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&userToken).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("no token found for provider %s", provider)
		}
		return "", fmt.Errorf("failed to retrieve token: %w", err)
	}

	if userToken.ExpiresAt != nil && userToken.ExpiresAt.Before(time.Now()) {
		return "", fmt.Errorf("token expired for provider %s", provider)
	}

	decrypted, err := tm.encryption.Decrypt(userToken.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}

	tm.cacheToken(ctx, userID, provider, decrypted)
	return decrypted, nil
}

func (tm *TokenManager) DeleteToken(ctx context.Context, userID uint, provider string) error {
	err := tm.db.DB().WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&models.UserToken{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	tm.invalidateCache(ctx, userID, provider)
	return nil
}

func (tm *TokenManager) cacheKey(userID uint, provider string) string {
	return fmt.Sprintf("user_token:%d:%s", userID, provider)
}

func (tm *TokenManager) cachedToken(ctx context.Context, userID uint, provider string) string {
	if tm.redis == nil {
		return ""
	}
	val, err := tm.redis.Get(ctx, tm.cacheKey(userID, provider))
	if err != nil {
		return ""
	}
	return val
}

func (tm *TokenManager) cacheToken(ctx context.Context, userID uint, provider, token string) {
	if tm.redis == nil {
		return
	}
	_ = tm.redis.Set(ctx, tm.cacheKey(userID, provider), token, 5*time.Minute)
}

func (tm *TokenManager) invalidateCache(ctx context.Context, userID uint, provider string) {
	if tm.redis == nil {
		return
	}
	_ = tm.redis.Delete(ctx, tm.cacheKey(userID, provider))
}
