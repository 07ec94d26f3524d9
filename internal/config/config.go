package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration loaded from environment variables.
// Every field has a sensible default; only DATABASE_URL is required.
type Config struct {
	// Server
	HTTPPort        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Content gateway (generation, publishing, notifications, entitlements)
	GatewayBaseURL string
	GatewayTimeout time.Duration

	// Publication loop
	TickInterval       time.Duration
	MinProcessInterval time.Duration
	CallTimeout        time.Duration

	// Review escalation
	EscalatorInterval time.Duration
	ReminderInterval  time.Duration
	MaxReminders      int

	// Rate limiting: maximum outbound calls per second per operation
	RateLimit int
}

func Load() (*Config, error) {
	// A missing .env is fine; the environment may be set by the deploy.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		ReadTimeout:     getDuration("READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getDuration("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		DatabaseURL: dbURL,
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 25)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 5)),

		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", "http://localhost:9090"),
		GatewayTimeout: getDuration("GATEWAY_TIMEOUT", 10*time.Second),

		TickInterval:       getDuration("TICK_INTERVAL", time.Minute),
		MinProcessInterval: getDuration("MIN_PROCESS_INTERVAL", 5*time.Minute),
		CallTimeout:        getDuration("CALL_TIMEOUT", 15*time.Second),

		EscalatorInterval: getDuration("ESCALATOR_INTERVAL", time.Minute),
		ReminderInterval:  getDuration("REVIEW_REMINDER_INTERVAL", 30*time.Minute),
		MaxReminders:      getInt("MAX_REVIEW_REMINDERS", 3),

		RateLimit: getInt("RATE_LIMIT_PER_OP", 10),
	}, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
