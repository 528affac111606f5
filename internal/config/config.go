package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Discord transport configuration
	Discord DiscordConfig

	// Database configuration
	Database DatabaseConfig

	// Routing engine configuration
	Routing RoutingConfig

	// Ops HTTP server configuration
	Ops OpsConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// DiscordConfig holds gateway and REST client configuration
type DiscordConfig struct {
	Token             string
	GatewayURL        string
	RequestsPerSecond float64 // REST rate limit
	BurstSize         int
	ReconnectMinWait  time.Duration
	ReconnectMaxWait  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
	RunMigrations   bool
}

// RoutingConfig holds ticket routing configuration
type RoutingConfig struct {
	CategoryName     string
	SelectionTimeout time.Duration
	StoreTimeout     time.Duration
}

// OpsConfig holds the ops HTTP server configuration
type OpsConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Discord: DiscordConfig{
			Token:             os.Getenv("DISCORD_TOKEN"),
			GatewayURL:        getEnvOrDefault("DISCORD_GATEWAY_URL", "wss://gateway.discord.gg/?v=10&encoding=json"),
			RequestsPerSecond: getFloatOrDefault("DISCORD_REST_RPS", 25),
			BurstSize:         getIntOrDefault("DISCORD_REST_BURST", 50),
			ReconnectMinWait:  getDurationOrDefault("DISCORD_RECONNECT_MIN_WAIT", time.Second),
			ReconnectMaxWait:  getDurationOrDefault("DISCORD_RECONNECT_MAX_WAIT", time.Minute),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnvOrDefault("DB_MIGRATIONS_PATH", "migrations"),
			RunMigrations:   getBoolOrDefault("DB_RUN_MIGRATIONS", true),
		},
		Routing: RoutingConfig{
			CategoryName:     getEnvOrDefault("MODMAIL_CATEGORY_NAME", "MODMAIL"),
			SelectionTimeout: getDurationOrDefault("MODMAIL_SELECTION_TIMEOUT", time.Minute),
			StoreTimeout:     getDurationOrDefault("MODMAIL_STORE_TIMEOUT", 10*time.Second),
		},
		Ops: OpsConfig{
			Port:            getEnvOrDefault("OPS_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("OPS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("OPS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("OPS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("OPS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "modmail-backend"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getIntOrDefault(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloatOrDefault(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getBoolOrDefault(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationOrDefault(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
