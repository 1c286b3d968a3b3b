package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every runtime setting read from the environment.
type Config struct {
	Port        string
	Environment string
	LogLevel    string
	LogFile     string
	CORSOrigins []string

	DBDriver   string // "postgres" (default) or "sqlite"
	DBURL      string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	MediaBackend string // "s3" or "local"
	MediaDir     string
	MediaBaseURL string
	AWSRegion    string
	AWSBucket    string
	CDNURL       string

	ElasticsearchURL string
	SESFromEmail     string
	AppURL           string // web client base, used in emailed links

	OTelEnabled      bool
	OTelEndpoint     string
	OTelSamplingRate float64

	RateLimitRequests int
	RateLimitWindow   time.Duration

	NotificationDedupWindow time.Duration
	StoryCleanupInterval    time.Duration

	// RequiredServices lists external services that must pass the startup
	// check, from FEEDORA_REQUIRE_<SERVICE>=true.
	RequiredServices []string
}

// OptionalServices are the external services that can be made required.
var OptionalServices = []string{"elasticsearch", "s3", "redis"}

// Load reads Config from the process environment. Callers are expected to have
// loaded any .env file beforehand.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:     getEnvOrDefault("LOG_FILE", "feedora.log"),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:3000")),

		DBDriver:   getEnvOrDefault("DB_DRIVER", "postgres"),
		DBURL:      os.Getenv("DATABASE_URL"),
		DBHost:     getEnvOrDefault("DB_HOST", "localhost"),
		DBPort:     getEnvOrDefault("DB_PORT", "5432"),
		DBUser:     getEnvOrDefault("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnvOrDefault("DB_NAME", "feedora"),
		DBSSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MediaBackend: getEnvOrDefault("MEDIA_BACKEND", "local"),
		MediaDir:     getEnvOrDefault("MEDIA_DIR", "./media"),
		MediaBaseURL: getEnvOrDefault("MEDIA_BASE_URL", "/media"),
		AWSRegion:    getEnvOrDefault("AWS_REGION", "us-east-1"),
		AWSBucket:    os.Getenv("AWS_BUCKET"),
		CDNURL:       os.Getenv("CDN_URL"),

		ElasticsearchURL: os.Getenv("ELASTICSEARCH_URL"),
		SESFromEmail:     os.Getenv("SES_FROM_EMAIL"),
		AppURL:           getEnvOrDefault("APP_URL", "http://localhost:3000"),

		OTelEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	}

	var err error
	if cfg.OTelEnabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTelSamplingRate, err = getFloat("OTEL_SAMPLING_RATE", 1.0); err != nil {
		return nil, err
	}
	if cfg.RateLimitRequests, err = getInt("RATE_LIMIT_REQUESTS", 120); err != nil {
		return nil, err
	}
	if cfg.RateLimitWindow, err = getDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotificationDedupWindow, err = getDuration("NOTIFICATION_DEDUP_WINDOW", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.StoryCleanupInterval, err = getDuration("STORY_CLEANUP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}

	for _, svc := range OptionalServices {
		if isTruthy(os.Getenv("FEEDORA_REQUIRE_" + strings.ToUpper(svc))) {
			cfg.RequiredServices = append(cfg.RequiredServices, svc)
		}
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET environment variable not set")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if cfg.MediaBackend == "s3" && cfg.AWSBucket == "" {
		return nil, fmt.Errorf("AWS_BUCKET is required when MEDIA_BACKEND=s3")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	if c.DBURL != "" {
		return c.DBURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// RedisEnabled is true when a redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func getBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go durations ("5m") or bare seconds ("300").
func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
