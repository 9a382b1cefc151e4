/*-------------------------------------------------------------------------
 *
 * config.go
 *    Configuration management for DocFlow
 *
 * Loads configuration from a YAML file with environment variable
 * overrides.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/config/config.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

/* Config holds application configuration */
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Sweeper       SweeperConfig       `yaml:"sweeper"`
}

/* ServerConfig holds HTTP server configuration */
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BaseURL      string        `yaml:"base_url"`
}

/* DatabaseConfig holds database configuration */
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

/* LoggingConfig holds logging configuration */
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

/* AuthConfig holds authentication configuration */
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

/* NotificationsConfig holds side-effect delivery configuration */
type NotificationsConfig struct {
	SMTP           SMTPConfig    `yaml:"smtp"`
	WebhookURL     string        `yaml:"webhook_url"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
}

/* SMTPConfig holds outbound email configuration */
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

/* SweeperConfig holds deadline sweeper configuration */
type SweeperConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

/* DefaultConfig returns the built-in defaults */
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8090,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BaseURL:      "http://localhost:8090",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "docflow",
			Password:        "docflow",
			Database:        "docflow",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Notifications: NotificationsConfig{
			WebhookTimeout: 30 * time.Second,
		},
		Sweeper: SweeperConfig{
			Enabled:  true,
			Interval: time.Hour,
		},
	}
}

/* LoadConfig reads a YAML configuration file over the defaults */
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	LoadFromEnv(cfg)
	return cfg, nil
}

/* LoadFromEnv applies environment variable overrides */
func LoadFromEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.BaseURL = getEnv("SERVER_BASE_URL", cfg.Server.BaseURL)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", cfg.Database.ConnMaxLifetime)
	cfg.Database.ConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.Database.ConnMaxIdleTime)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvDuration("JWT_TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Notifications.SMTP.Host = getEnv("SMTP_HOST", cfg.Notifications.SMTP.Host)
	cfg.Notifications.SMTP.Port = getEnvInt("SMTP_PORT", cfg.Notifications.SMTP.Port)
	cfg.Notifications.SMTP.Username = getEnv("SMTP_USERNAME", cfg.Notifications.SMTP.Username)
	cfg.Notifications.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.Notifications.SMTP.Password)
	cfg.Notifications.SMTP.From = getEnv("SMTP_FROM", cfg.Notifications.SMTP.From)
	cfg.Notifications.WebhookURL = getEnv("WEBHOOK_URL", cfg.Notifications.WebhookURL)
	cfg.Notifications.WebhookTimeout = getEnvDuration("WEBHOOK_TIMEOUT", cfg.Notifications.WebhookTimeout)

	cfg.Sweeper.Enabled = getEnvBool("SWEEPER_ENABLED", cfg.Sweeper.Enabled)
	cfg.Sweeper.Interval = getEnvDuration("SWEEPER_INTERVAL", cfg.Sweeper.Interval)
}

/* DSN returns the database connection string */
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
