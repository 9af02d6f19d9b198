package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLifetime(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"1d", 24 * time.Hour},
		{"24h", 24 * time.Hour},
		{"15m", 15 * time.Minute},
		{" 7d ", 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := ParseLifetime(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseLifetimeRejectsBadInput(t *testing.T) {
	for _, raw := range []string{"", "xd", "-1d", "0d", "-5m", "seven days"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseLifetime(raw)
			assert.Error(t, err)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "task-service", cfg.App.Name)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, 50, cfg.Activity.FeedSize)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN_LIFETIME", "12h")
	t.Setenv("AUTH_BCRYPT_COST", "4")
	t.Setenv("APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenLifetime)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
}
