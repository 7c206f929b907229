package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// WebSocket tuning
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Queue engine
	SweepInterval   time.Duration
	MetricsInterval time.Duration
	AssignTimeout   time.Duration
	ClosedItemTTL   time.Duration
	DefaultCapacity int

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Outbound messaging channel
	ChannelBaseURL string
	ChannelToken   string

	// Department directory seed file (JSON). Empty means no seed.
	DirectoryFile string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		ChannelBaseURL: getEnv("CHANNEL_BASE_URL", ""),
		ChannelToken:   getEnv("CHANNEL_TOKEN", ""),
		DirectoryFile:  getEnv("DIRECTORY_FILE", ""),
	}

	var err error
	if config.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if config.DefaultCapacity, err = intEnv("QUEUE_DEFAULT_CAPACITY", 50); err != nil {
		return nil, err
	}

	if config.SweepInterval, err = secondsEnv("SWEEP_INTERVAL", 5); err != nil {
		return nil, err
	}
	if config.MetricsInterval, err = secondsEnv("METRICS_INTERVAL", 10); err != nil {
		return nil, err
	}
	if config.AssignTimeout, err = secondsEnv("ASSIGN_TIMEOUT", 10); err != nil {
		return nil, err
	}
	if config.ClosedItemTTL, err = secondsEnv("CLOSED_ITEM_TTL", 1800); err != nil {
		return nil, err
	}

	if config.WSReadTimeout, err = secondsEnv("WS_READ_TIMEOUT", 60); err != nil {
		return nil, err
	}
	if config.WSWriteTimeout, err = secondsEnv("WS_WRITE_TIMEOUT", 10); err != nil {
		return nil, err
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 4096

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

func intEnv(key string, defaultValue int) (int, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func secondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	value, err := intEnv(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(value) * time.Second, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
