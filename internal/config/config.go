package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultWaitlistEndpoint is the EmailOctopus embedded-form endpoint the
// landing page has always posted to.
const DefaultWaitlistEndpoint = "https://emailoctopus.com/lists/d2f8c170-09ec-11f1-8328-295120792464/members/embedded/1.3/add"

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DatabaseURL   string

	// Countdown
	CountdownStore   string
	CountdownKey     string
	CountdownDefault time.Duration
	CountdownTick    time.Duration
	CountdownDir     string

	// Waitlist wizard + submission bridge
	WaitlistEndpoint       string
	WaitlistGracePeriod    time.Duration
	WaitlistDefinitionPath string
	SessionTTL             time.Duration
	SessionSweepInterval   time.Duration

	// HTTP edge
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		CountdownStore:   strings.ToLower(strings.TrimSpace(getEnv("COUNTDOWN_STORE", "auto"))),
		CountdownKey:     getEnv("COUNTDOWN_KEY", "elite_timer_remaining_ms"),
		CountdownDefault: getEnvAsDuration("COUNTDOWN_DEFAULT", 3*time.Hour),
		CountdownTick:    getEnvAsDuration("COUNTDOWN_TICK", time.Second),
		CountdownDir:     getEnv("COUNTDOWN_STATE_DIR", ""),

		WaitlistEndpoint:       getEnv("WAITLIST_ENDPOINT", DefaultWaitlistEndpoint),
		WaitlistGracePeriod:    getEnvAsDuration("WAITLIST_GRACE_PERIOD", 5*time.Second),
		WaitlistDefinitionPath: getEnv("WAITLIST_DEFINITION_PATH", ""),
		SessionTTL:             getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		SessionSweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
