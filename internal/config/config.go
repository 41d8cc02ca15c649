package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is built once at process
// start and handed to the components that need it.
type Config struct {
	Env string

	// Server
	Port        string
	CORSOrigins []string

	// Database
	DBDriver     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	DBSQLitePath string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Auth cookie
	AuthCookieName     string
	AuthCookieSecure   bool
	AuthCookieSameSite string

	// Bootstrap admin created on an empty database
	SeedAdminUsername string
	SeedAdminPassword string

	MetricsEnabled bool
}

// Load loads configuration from the environment, reading .env first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env: getEnv("ENV", "development"),

		Port: getEnv("PORT", "8000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS",
			"http://localhost:5173,http://127.0.0.1:5173,http://localhost:8000,http://127.0.0.1:8000")),

		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "ibooks"),
		DBPassword:   getEnv("DB_PASSWORD", "ibooks"),
		DBName:       getEnv("DB_NAME", "ibooks"),
		DBSSLMode:    getEnv("DB_SSLMODE", "disable"),
		DBSQLitePath: getEnv("DB_SQLITE_PATH", "ibooks.db"),

		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		AuthCookieName:     getEnv("AUTH_COOKIE_NAME", "ibooks_auth"),
		AuthCookieSecure:   getEnvBool("AUTH_COOKIE_SECURE", false),
		AuthCookieSameSite: strings.ToLower(getEnv("AUTH_COOKIE_SAMESITE", "lax")),

		SeedAdminUsername: getEnv("SEED_ADMIN_USERNAME", "admin"),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", "admin"),

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
	}

	expStr := getEnv("JWT_EXPIRES_IN", "60m")
	expDur, err := time.ParseDuration(expStr)
	if err != nil || expDur <= 0 {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 60m\n", expStr)
		expDur = 60 * time.Minute
	}
	config.JWTExpirationDur = expDur

	switch config.AuthCookieSameSite {
	case "lax", "strict", "none":
	default:
		log.Printf("Warning: invalid AUTH_COOKIE_SAMESITE value '%s', falling back to lax\n", config.AuthCookieSameSite)
		config.AuthCookieSameSite = "lax"
	}

	return config, nil
}

// IsProduction reports whether the process runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', using %v\n", key, value, defaultValue)
		return defaultValue
	}
	return b
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
