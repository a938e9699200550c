package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Logging    LoggingConfig
	Tracing    TracingConfig
	Metrics    MetricsConfig
	HTTP       HTTPConfig
	Twitch     TwitchConfig
	Downloader DownloaderConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration for the batch run lock. An empty
// host disables the lock entirely.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, file path
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled        bool
	ServiceName    string
	JaegerEndpoint string
}

// MetricsConfig holds metrics server configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// HTTPConfig holds outbound HTTP transport configuration
type HTTPConfig struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// TwitchConfig holds platform API configuration
type TwitchConfig struct {
	ClientID   string
	GraphQLURL string
	UsherURL   string
	PlayerType string
}

// DownloaderConfig holds download pipeline configuration
type DownloaderConfig struct {
	OutputDir       string
	Quality         string
	ThreadCount     int
	MaxVideosPerRun int
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Twitch.ClientID == "" {
		return nil, fmt.Errorf("twitch.clientID must be set")
	}

	return &config, nil
}

func setDefaults() {
	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "vodfetch")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 10)
	viper.SetDefault("database.minConns", 2)

	// Redis defaults (lock disabled unless host is set)
	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "vodfetch")
	viper.SetDefault("tracing.jaegerEndpoint", "http://localhost:14268/api/traces")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	// HTTP transport defaults
	viper.SetDefault("http.timeout", "60s")
	viper.SetDefault("http.retryMax", 4)
	viper.SetDefault("http.retryWaitMin", "1s")
	viper.SetDefault("http.retryWaitMax", "30s")

	// Twitch defaults
	viper.SetDefault("twitch.clientID", "")
	viper.SetDefault("twitch.graphQLURL", "https://gql.twitch.tv/gql")
	viper.SetDefault("twitch.usherURL", "https://usher.ttvnw.net")
	viper.SetDefault("twitch.playerType", "embed")

	// Downloader defaults
	viper.SetDefault("downloader.outputDir", "/var/lib/vodfetch/videos")
	viper.SetDefault("downloader.quality", "source")
	viper.SetDefault("downloader.threadCount", 4)
	viper.SetDefault("downloader.maxVideosPerRun", 5)
}
