package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iamasit07/glicko2-ratings/internal/domain"
)

var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")

type Config struct {
	Port                 string
	AllowedOrigins       []string
	FrontendURL          string
	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int
	RedisURL             string
	RedisPassword        string
	JWTSecret            string
	AccessTokenTTL       time.Duration
	Tau                  float64
	Tolerance            float64
	MaxIterations        int
	PeriodSchedule       string
	LeaderboardCacheTTL  time.Duration
	LeaderboardLimit     int
}

func LoadConfig() *Config {
	port := GetEnv("PORT", "8080")

	// Frontend & CORS
	frontendURL := GetEnv("FRONTEND_URL", "http://localhost:5173")
	allowedOrigins := []string{frontendURL}
	for _, origin := range strings.Split(GetEnv("ALLOWED_ORIGINS", ""), ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			allowedOrigins = append(allowedOrigins, trimmed)
		}
	}

	// Database Config
	dbURL := GetEnv("DATABASE_URL", GetEnv("DATABASE_URI", ""))
	dbMaxOpenConns := GetEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	dbMaxIdleConns := GetEnvAsInt("DB_MAX_IDLE_CONNS", 25)
	dbConnMaxLifetimeMin := GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)

	// Security
	jwtSecret := GetEnv("JWT_SECRET", "")
	accessTokenTTL := time.Duration(GetEnvAsInt("ACCESS_TOKEN_TTL_MINUTES", 24*60)) * time.Minute

	// Rating system
	settings := domain.Settings{
		Tau:           GetEnvAsFloat("GLICKO_TAU", domain.DefaultTau),
		Tolerance:     GetEnvAsFloat("GLICKO_TOLERANCE", domain.DefaultTolerance),
		MaxIterations: GetEnvAsInt("GLICKO_MAX_ITERATIONS", domain.DefaultMaxIterations),
	}
	if err := settings.Validate(); err != nil {
		log.Printf("Invalid rating settings %+v, using defaults", settings)
		settings = domain.DefaultSettings()
	}

	return &Config{
		Port:                 port,
		AllowedOrigins:       allowedOrigins,
		FrontendURL:          frontendURL,
		DatabaseURL:          dbURL,
		DBMaxOpenConns:       dbMaxOpenConns,
		DBMaxIdleConns:       dbMaxIdleConns,
		DBConnMaxLifetimeMin: dbConnMaxLifetimeMin,
		RedisURL:             GetEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:        GetEnv("REDIS_PASSWORD", ""),
		JWTSecret:            jwtSecret,
		AccessTokenTTL:       accessTokenTTL,
		Tau:                  settings.Tau,
		Tolerance:            settings.Tolerance,
		MaxIterations:        settings.MaxIterations,
		PeriodSchedule:       GetEnv("RATING_PERIOD_SCHEDULE", "0 0 0 * * *"),
		LeaderboardCacheTTL:  time.Duration(GetEnvAsInt("LEADERBOARD_CACHE_SECONDS", 60)) * time.Second,
		LeaderboardLimit:     GetEnvAsInt("LEADERBOARD_LIMIT", 100),
	}
}

// Validate reports settings the server cannot run without
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// GlickoSettings returns the rating system tuning for this deployment.
func (c *Config) GlickoSettings() domain.Settings {
	return domain.Settings{
		Tau:           c.Tau,
		Tolerance:     c.Tolerance,
		MaxIterations: c.MaxIterations,
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func GetEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s: %s, using default: %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
