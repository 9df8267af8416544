// Package config provides configuration management for the keiba engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Engine     EngineConfig     `mapstructure:"engine" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration.
// Only required when the data source type is db.
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// EngineConfig represents run parameters for the event engine
type EngineConfig struct {
	InitialBankroll     float64 `mapstructure:"initial_bankroll" validate:"required,gt=0"`
	PayoffDelayMinutes  int     `mapstructure:"payoff_delay_minutes" validate:"gte=0"`
	TickIntervalSeconds int     `mapstructure:"tick_interval_seconds" validate:"required,gt=0"`
	Live                bool    `mapstructure:"live"`
	OutputPath          string  `mapstructure:"output_path"`
}

// DataSourceConfig represents where historical data is loaded from
type DataSourceConfig struct {
	Type           string  `mapstructure:"type" validate:"required,oneof=csv excel db remote"`
	Path           string  `mapstructure:"path"`
	BaseURL        string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey         string  `mapstructure:"api_key"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"omitempty,gt=0"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"omitempty,gte=0"`
}

// FeedConfig represents the live data feed connection.
// Only required when the engine runs live.
type FeedConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// PayoffDelay returns the configured payoff publication delay
func (c *Config) PayoffDelay() time.Duration {
	return time.Duration(c.Engine.PayoffDelayMinutes) * time.Minute
}

// TickInterval returns the configured live tick pacing
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Engine.TickIntervalSeconds) * time.Second
}
