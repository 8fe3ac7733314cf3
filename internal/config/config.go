package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Hotspots HotspotsConfig `mapstructure:"hotspots"`
	Realtime RealtimeConfig `mapstructure:"realtime"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ConnString builds the pgx/migrate connection URL.
func (p PostgresConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type RedisConfig struct {
	URL               string        `mapstructure:"url"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type StatsConfig struct {
	// Timezone sets the calendar boundaries for the today/this-week counts.
	Timezone string `mapstructure:"timezone"`
}

type HotspotsConfig struct {
	DefaultClusters   int `mapstructure:"default_clusters"`
	DefaultWindowDays int `mapstructure:"default_window_days"`
}

type RealtimeConfig struct {
	// SendBuffer is the per-connection outbound queue size; broadcasts to a
	// connection with a full queue are dropped (best-effort delivery).
	SendBuffer int `mapstructure:"send_buffer"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "coastwatch")
	v.SetDefault("database.postgres.user", "coastwatch")
	v.SetDefault("database.postgres.sslmode", "require")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("redis.rate_limit_requests", 300)
	v.SetDefault("redis.rate_limit_window", "1m")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("stats.timezone", "UTC")
	v.SetDefault("hotspots.default_clusters", 5)
	v.SetDefault("hotspots.default_window_days", 30)
	v.SetDefault("realtime.send_buffer", 64)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/coastwatch")
	}

	// Environment variables override (COASTWATCH_SERVER_PORT, etc.)
	v.SetEnvPrefix("COASTWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Hotspots.DefaultClusters < 1 {
		return nil, fmt.Errorf("hotspots.default_clusters must be >= 1, got %d", cfg.Hotspots.DefaultClusters)
	}

	return &cfg, nil
}
