package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Backend booking API
	BackendURL            string
	BackendTimeoutSeconds int
	BackendUserAgent      string
	BackendDebug          bool
	BackendCacheBust      bool

	// Database (resolution audit trail, optional)
	DatabaseURL         string
	ResolutionRetention time.Duration

	// Redis (sessions + space cache, optional)
	RedisURL string

	// Sessions
	SessionTTL    time.Duration
	SessionCookie string

	// CORS
	AllowedOrigins []string

	// Booking rules
	Timezone string

	// Spaces
	BrandedNames   bool
	SpacesCacheTTL time.Duration

	// Rate limiting
	LoginRatePerMinute int

	// Avatar storage (S3 compatible, local fallback)
	S3Endpoint      string
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	AvatarLocalDir  string
	AvatarPublicURL string

	// CLI
	TokenFile string

	// Logging
	LogLevel string
	LogFile  string
}

func Load() *Config {
	// Load .env file in development
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Backend
		BackendURL:            getEnv("BACKEND_URL", "http://localhost:8000"),
		BackendTimeoutSeconds: parseInt(getEnv("BACKEND_TIMEOUT_SECONDS", "10"), 10),
		BackendUserAgent:      getEnv("BACKEND_USER_AGENT", "Spacebook/1.0"),
		BackendDebug:          getEnv("BACKEND_DEBUG", "0") != "0",
		BackendCacheBust:      parseBool(getEnv("BACKEND_CACHE_BUST", "true"), true),

		// Database
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ResolutionRetention: parseDuration(getEnv("RESOLUTION_RETENTION", "720h"), 30*24*time.Hour),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Sessions
		SessionTTL:    parseDuration(getEnv("SESSION_TTL", "12h"), 12*time.Hour),
		SessionCookie: getEnv("SESSION_COOKIE", "sb_session"),

		// CORS
		AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),

		// Booking rules
		Timezone: getEnv("TIMEZONE", "Local"),

		// Spaces
		BrandedNames:   parseBool(getEnv("SPACES_BRANDED_NAMES", "true"), true),
		SpacesCacheTTL: parseDuration(getEnv("SPACES_CACHE_TTL", "30s"), 30*time.Second),

		// Rate limiting
		LoginRatePerMinute: parseInt(getEnv("LOGIN_RATE_PER_MINUTE", "10"), 10),

		// Avatars
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		AvatarLocalDir:  getEnv("AVATAR_LOCAL_DIR", "./data/avatars"),
		AvatarPublicURL: getEnv("AVATAR_PUBLIC_URL", "http://localhost:8080/avatars"),

		// CLI
		TokenFile: getEnv("SPACEBOOK_TOKEN_FILE", defaultTokenFile()),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// Location returns the time zone used for local calendar-day booking rules.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, falling back to local time", c.Timezone)
		return time.Local
	}
	return loc
}

// BackendTimeout returns the outbound request timeout.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.BackendTimeoutSeconds) * time.Second
}

// S3Enabled reports whether avatar uploads go to S3 compatible storage.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spacebook-token"
	}
	return filepath.Join(home, ".spacebook", "token")
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

func parseBool(s string, defaultValue bool) bool {
	value, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseInt(s string, defaultValue int) int {
	value, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return value
}

func parseStringSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
