package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrowlyX/refactorproject-web/internal/models"
)

func TestEncryptionRoundTrip(t *testing.T) {
	enc := NewEncryptionService("unit-test-key")

	ciphertext, err := enc.Encrypt("gho_sometoken")
	require.NoError(t, err)
	assert.NotEqual(t, "gho_sometoken", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "gho_sometoken", plaintext)
}

func TestEncryptEmptyString(t *testing.T) {
	enc := NewEncryptionService("unit-test-key")

	ciphertext, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)
}

func TestTokenManagerStoreAndRetrieve(t *testing.T) {
	db := newTestDB(t)
	tm := NewTokenManager(db, NewEncryptionService("unit-test-key"), nil)
	ctx := context.Background()

	user := &models.User{AuthID: "auth0|tokens"}
	require.NoError(t, db.DB().Create(user).Error)

	require.NoError(t, tm.StoreToken(ctx, user.ID, ProviderGitHub, "gho_first", "read:org", nil))

	token, err := tm.GetDecryptedToken(ctx, user.ID, ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, "gho_first", token)

	// stored encrypted, not in the clear
	var row models.UserToken
	require.NoError(t, db.DB().First(&row).Error)
	assert.NotEqual(t, "gho_first", row.AccessToken)

	// refresh overwrites in place
	require.NoError(t, tm.StoreToken(ctx, user.ID, ProviderGitHub, "gho_second", "read:org", nil))

	token, err = tm.GetDecryptedToken(ctx, user.ID, ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, "gho_second", token)

	var count int64
	db.DB().Model(&models.UserToken{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestTokenManagerExpiredToken(t *testing.T) {
	db := newTestDB(t)
	tm := NewTokenManager(db, NewEncryptionService("unit-test-key"), nil)
	ctx := context.Background()

	user := &models.User{AuthID: "auth0|expired"}
	require.NoError(t, db.DB().Create(user).Error)

	expired := time.Now().Add(-time.Hour)
	require.NoError(t, tm.StoreToken(ctx, user.ID, ProviderGitHub, "gho_old", "", &expired))

	_, err := tm.GetDecryptedToken(ctx, user.ID, ProviderGitHub)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokenManagerDelete(t *testing.T) {
	db := newTestDB(t)
	tm := NewTokenManager(db, NewEncryptionService("unit-test-key"), nil)
	ctx := context.Background()

	user := &models.User{AuthID: "auth0|delete"}
	require.NoError(t, db.DB().Create(user).Error)

	require.NoError(t, tm.StoreToken(ctx, user.ID, ProviderGitHub, "gho_gone", "", nil))
	require.NoError(t, tm.DeleteToken(ctx, user.ID, ProviderGitHub))

	_, err := tm.GetDecryptedToken(ctx, user.ID, ProviderGitHub)
	require.Error(t, err)
}
