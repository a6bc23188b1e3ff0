package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 14*24*time.Hour, cfg.LoanPeriod)
	assert.Equal(t, time.Hour, cfg.JWTTTL)
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("LOAN_PERIOD_DAYS", "7")
	t.Setenv("JWT_TTL_MINUTES", "15")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("RATE_LIMIT_BORROW", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.LoanPeriod)
	assert.Equal(t, 15*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.RateLimitBorrow)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"loan period", "LOAN_PERIOD_DAYS", "zero"},
		{"negative loan period", "LOAN_PERIOD_DAYS", "-1"},
		{"jwt ttl", "JWT_TTL_MINUTES", "abc"},
		{"cache ttl", "STATS_CACHE_TTL", "soon"},
		{"driver", "DB_DRIVER", "mysql"},
		{"environment", "APP_ENV", "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "test")
			t.Setenv("DB_DRIVER", "sqlite")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{
		AppEnv:             "production",
		DBDriver:           "postgres",
		JWTSecret:          defaultJWTSecret,
		AuthRateLimitRPS:   1,
		AuthRateLimitBurst: 1,
	}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())
}
