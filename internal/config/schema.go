// Package config provides configuration loading and validation for quotebot.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation that reports every problem at once.
//
// Configuration structure:
//   - [data]: Data directory (tracking files, pending deliveries, database)
//   - [logging]: Logging level, format, and output
//   - [telegram]: Bot token, target chat and send behavior
//   - [store]: SQLite database location
//   - [tracking]: Tracking log backend
//   - [engine]: Reconciliation interval, delivery delay and mark-used mode
//   - [workers]: Delivery worker pool
//   - [seed]: YAML seed file with quotes and schedules
//   - [metrics]: Prometheus endpoint
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: token = "${TELEGRAM_BOT_TOKEN}"
package config

import (
	"path/filepath"
	"time"
)

// Config represents the main application configuration.
type Config struct {
	Data     DataConfig     `toml:"data"`
	Logging  LoggingConfig  `toml:"logging"`
	Telegram TelegramConfig `toml:"telegram"`
	Store    StoreConfig    `toml:"store"`
	Tracking TrackingConfig `toml:"tracking"`
	Engine   EngineConfig   `toml:"engine"`
	Workers  WorkersConfig  `toml:"workers"`
	Seed     SeedConfig     `toml:"seed"`
	Metrics  MetricsConfig  `toml:"metrics"`
}

// DataConfig представляет конфигурацию каталога данных
type DataConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// TelegramConfig представляет конфигурацию Telegram
type TelegramConfig struct {
	Enabled            bool    `toml:"enabled"`
	Token              string  `toml:"token"`
	ChatID             int64   `toml:"chat_id"`
	SendTimeoutSeconds int     `toml:"send_timeout_seconds"`
	QuietMode          bool    `toml:"quiet_mode"`
	RatePerSecond      float64 `toml:"rate_per_second"`
	MaxAttempts        int     `toml:"max_attempts"`
}

// StoreConfig представляет конфигурацию хранилища цитат
type StoreConfig struct {
	Path string `toml:"path"`
}

// TrackingConfig selects the tracking log backend.
type TrackingConfig struct {
	Driver string `toml:"driver"`
}

// EngineConfig holds the reconciliation and delivery parameters.
type EngineConfig struct {
	ReconcileIntervalSeconds int    `toml:"reconcile_interval_seconds"`
	MinDelaySeconds          int    `toml:"min_delay_seconds"`
	MaxDelaySeconds          int    `toml:"max_delay_seconds"`
	MarkUsed                 string `toml:"mark_used"`
	Timezone                 string `toml:"timezone"`
}

// WorkersConfig представляет конфигурацию пула воркеров
type WorkersConfig struct {
	PoolSize  int `toml:"pool_size"`
	QueueSize int `toml:"queue_size"`
}

// SeedConfig представляет конфигурацию seed-файла
type SeedConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
	// Prune удаляет расписания, которых нет в seed-файле
	Prune bool `toml:"prune"`
}

// MetricsConfig представляет конфигурацию метрик
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// Tracking drivers.
const (
	TrackingDriverFile   = "file"
	TrackingDriverSQLite = "sqlite"
)

// Mark-used modes.
const (
	MarkUsedScheduled = "scheduled"
	MarkUsedDelivered = "delivered"
)

// StorePath returns the SQLite database path, defaulting to <data.dir>/quotebot.db.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Data.Dir, "quotebot.db")
}

// TrackingDir returns the directory used by the file tracking backend.
func (c *Config) TrackingDir() string {
	return filepath.Join(c.Data.Dir, "tracking")
}

// CronDir returns the directory holding pending deliveries.
func (c *Config) CronDir() string {
	return filepath.Join(c.Data.Dir, "cron")
}

// ReconcileInterval returns the reconciliation period.
func (e EngineConfig) ReconcileInterval() time.Duration {
	return time.Duration(e.ReconcileIntervalSeconds) * time.Second
}

// MinDelay returns the fixed part of the delivery delay.
func (e EngineConfig) MinDelay() time.Duration {
	return time.Duration(e.MinDelaySeconds) * time.Second
}

// MaxDelay returns the upper bound of the random part of the delivery delay.
func (e EngineConfig) MaxDelay() time.Duration {
	return time.Duration(e.MaxDelaySeconds) * time.Second
}

// Location resolves engine.timezone; an empty value means local time.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(e.Timezone)
}

// SendTimeout returns the per-message Telegram timeout.
func (t TelegramConfig) SendTimeout() time.Duration {
	return time.Duration(t.SendTimeoutSeconds) * time.Second
}
