package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roadside-assist-server/config"
	"roadside-assist-server/models"
)

// Refresh tokens rotate on use: the presented token dies and the response
// carries its replacement.
func TestRefreshAccessTokenRotatesRefreshToken(t *testing.T) {
	db := newTestDB(t)
	config.Load()
	jwt := NewJWTService(db)
	user := createUser(t, db, models.RoleCustomer)

	pair, err := jwt.GenerateTokenPair(user.ID, "device-1", "test-agent", "127.0.0.1")
	require.NoError(t, err)

	refreshed, err := jwt.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)
	assert.NotEmpty(t, refreshed.AccessToken)

	// The old token is dead; the new one works.
	_, err = jwt.ValidateRefreshToken(pair.RefreshToken)
	assert.Error(t, err)
	stored, err := jwt.ValidateRefreshToken(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, stored.UserID)

	// A replayed refresh with the retired token is refused.
	_, err = jwt.RefreshAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestRevokeAllUserTokens(t *testing.T) {
	db := newTestDB(t)
	config.Load()
	jwt := NewJWTService(db)
	user := createUser(t, db, models.RoleCustomer)

	first, err := jwt.GenerateTokenPair(user.ID, "device-1", "test-agent", "127.0.0.1")
	require.NoError(t, err)
	second, err := jwt.GenerateTokenPair(user.ID, "device-2", "test-agent", "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, jwt.RevokeAllUserTokens(user.ID))

	_, err = jwt.ValidateRefreshToken(first.RefreshToken)
	assert.Error(t, err)
	_, err = jwt.ValidateRefreshToken(second.RefreshToken)
	assert.Error(t, err)
}
