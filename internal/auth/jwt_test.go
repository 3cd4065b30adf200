package auth

import (
	"testing"
	"time"

	"tourhub/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		ResetSecret:   "reset",
		AccessExpiry:  time.Minute,
		RefreshExpiry: time.Hour,
		ResetExpiry:   time.Minute,
		Issuer:        "tourhub-test",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	tok, err := GenerateAccessToken(cfg, 7, "host@example.com", "HOST")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "HOST", claims.Role)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	refresh, err := GenerateRefreshToken(cfg, 3)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	id, err := ParseRefreshToken(cfg, refresh)
	require.NoError(t, err)
	assert.Equal(t, uint(3), id)
}

func TestResetTokenRequiresAudience(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ResetSecret = cfg.AccessSecret
	access, err := GenerateAccessToken(cfg, 1, "a@example.com", "TOURIST")
	require.NoError(t, err)

	_, err = ParseResetToken(cfg, access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	reset, err := GenerateResetToken(cfg, 1, "a@example.com")
	require.NoError(t, err)
	claims, err := ParseResetToken(cfg, reset)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestExpiredAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	cfg.AccessExpiry = -time.Minute
	tok, err := GenerateAccessToken(cfg, 1, "a@example.com", "ADMIN")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenCannotAuthenticate(t *testing.T) {
	cfg := testJWTConfig()
	cfg.ResetSecret = cfg.AccessSecret
	reset, err := GenerateResetToken(cfg, 1, "a@example.com")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, reset)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
