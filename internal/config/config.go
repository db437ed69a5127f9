package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	Sevdesk SevdeskConfig
}

// SevdeskConfig carries the sevdesk API settings resolvable from the
// environment. The API key may alternatively come from the settings file;
// resolution order lives in SettingsHolder.
type SevdeskConfig struct {
	BaseURL string
	APIKey  string

	// FallbackContactPersonID is the SevUser assigned to invoices when the
	// remote users list cannot be fetched. It is account specific and has
	// no sensible universal default.
	FallbackContactPersonID int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "sevsync"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DBType:     getenv("DATABASE_TYPE", "sqlite"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "sevsync"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		Sevdesk: SevdeskConfig{
			BaseURL:                 getenv("SEVDESK_BASE_URL", "https://my.sevdesk.de/api/v1"),
			APIKey:                  strings.TrimSpace(getenv("SEVDESK_API_KEY", "")),
			FallbackContactPersonID: getenvInt64("SEVDESK_FALLBACK_CONTACT_PERSON_ID", 0),
		},
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
