package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("90d")
	require.NoError(t, err)
	assert.Equal(t, 90*24*time.Hour, d)

	d, err = parseDuration("15m")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	_, err = parseDuration("soon")
	assert.Error(t, err)
}

func TestLoadFailsWithoutRequiredSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")
	t.Setenv("PAYMENT_PROVIDER", "stub")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
	assert.Contains(t, err.Error(), "JWT_ACCESS_SECRET is required")
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/tourhub")
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "r")
	t.Setenv("PAYMENT_PROVIDER", "stub")
	t.Setenv("SMTP_PORT", "five-eight-seven")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SMTP_PORT must be an integer")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@tcp(localhost:3306)/tourhub")
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "r")
	t.Setenv("PAYMENT_PROVIDER", "stub")
	t.Setenv("FRONTEND_URL", "https://tours.example.com/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(5000), cfg.Payout.MinimumCents)
	assert.Equal(t, "https://tours.example.com/payment/cancel", cfg.Payment.CancelURL)
	assert.Equal(t, "a", cfg.JWT.ResetSecret)
}
