package config

import (
	"testing"
	"time"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("GLICKO_TAU", "")
	t.Setenv("GLICKO_TOLERANCE", "")
	t.Setenv("GLICKO_MAX_ITERATIONS", "")
	t.Setenv("LEADERBOARD_CACHE_SECONDS", "")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, domain.DefaultSettings(), cfg.GlickoSettings())
	assert.Equal(t, time.Minute, cfg.LeaderboardCacheTTL)
	assert.Equal(t, "0 0 0 * * *", cfg.PeriodSchedule)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FRONTEND_URL", "https://ratings.example.com")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com")
	t.Setenv("GLICKO_TAU", "0.5")
	t.Setenv("GLICKO_TOLERANCE", "1e-6")
	t.Setenv("GLICKO_MAX_ITERATIONS", "50")

	cfg := LoadConfig()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, []string{"https://ratings.example.com", "https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, domain.Settings{Tau: 0.5, Tolerance: 1e-6, MaxIterations: 50}, cfg.GlickoSettings())
}

func TestLoadConfigRejectsInvalidSettings(t *testing.T) {
	t.Setenv("GLICKO_TAU", "-1")
	t.Setenv("GLICKO_TOLERANCE", "")
	t.Setenv("GLICKO_MAX_ITERATIONS", "")

	cfg := LoadConfig()

	assert.Equal(t, domain.DefaultSettings(), cfg.GlickoSettings())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	t.Setenv("TEST_FLOAT", "0.25")

	assert.Equal(t, 7, GetEnvAsInt("TEST_INT", 7))
	assert.Equal(t, 0.25, GetEnvAsFloat("TEST_FLOAT", 1))
	assert.Equal(t, "fallback", GetEnv("TEST_MISSING_KEY", "fallback"))
}

func TestValidateRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.ErrorIs(t, LoadConfig().Validate(), ErrMissingJWTSecret)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg := LoadConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}
