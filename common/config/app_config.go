package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds process-level settings read from the environment
type AppConfig struct {
	Port           string
	BaseURL        string
	DBServer       string
	DBPort         int
	DBName         string
	DBUser         string
	DBPassword     string
	DBTimezone     string
	JWTSecret      string
	JWTExpiresIn   time.Duration
	MigrateOnStart bool
	AllowedOrigins []string
}

// LoadEnv loads .env files if present. A missing file is not an error.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// FromEnv builds an AppConfig from environment variables with defaults
func FromEnv() *AppConfig {
	return &AppConfig{
		Port:           GetEnv("PORT", "8080"),
		BaseURL:        strings.TrimRight(GetEnv("BASE_URL", "http://localhost:5000"), "/"),
		DBServer:       GetEnv("DB_SERVER", "127.0.0.1"),
		DBPort:         GetEnvInt("DB_PORT", 3306),
		DBName:         GetEnv("DB_NAME", "event_registration"),
		DBUser:         GetEnv("DB_USER", "root"),
		DBPassword:     GetEnv("DB_PASSWORD", ""),
		DBTimezone:     GetEnv("DB_TIMEZONE", "Asia/Jakarta"),
		JWTSecret:      GetEnv("JWT_SECRET", ""),
		JWTExpiresIn:   GetEnvDuration("JWT_EXPIRES_IN", time.Hour),
		MigrateOnStart: GetEnvBool("MIGRATE_ON_START", false),
		AllowedOrigins: splitList(GetEnv("ALLOWED_ORIGINS", "*")),
	}
}

// GetEnv gets environment variable with fallback
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func GetEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
