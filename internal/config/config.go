package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	JWTSecret       []byte
	TokenTTL        time.Duration
	LogMode         string
	StreakLocation  *time.Location
	AllowedOrigins  []string
	FeedbackMode    string
	AnthropicModel  string
	AnthropicAPIKey string
}

// Load reads configuration from a .env file (if any) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	loc, err := time.LoadLocation(getEnv("STREAK_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAK_TIMEZONE: %w", err)
	}

	cfg := &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DatabasePath:    getEnv("DB_PATH", "./spellbuddy.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTSecret:       []byte(getEnv("JWT_SECRET", "spellbuddy-dev-signing-key")),
		TokenTTL:        72 * time.Hour,
		LogMode:         getEnv("LOG_MODE", "dev"),
		StreakLocation:  loc,
		AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		FeedbackMode:    strings.ToLower(getEnv("FEEDBACK_MODE", "mock")),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
	}

	if cfg.DatabaseType == "postgres" && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "spellbuddy"),
			getEnv("DB_PASSWORD", "spellbuddy"),
			getEnv("DB_NAME", "spellbuddy"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
