package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate проверяет валидность конфигурации и возвращает все найденные ошибки
func (c *Config) Validate() []error {
	var errs []error

	if c.Data.Dir == "" {
		errs = append(errs, fmt.Errorf("data.dir is required"))
	} else if err := validatePath(c.Data.Dir, "data.dir"); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateTelegram()...)
	errs = append(errs, c.validateEngine()...)

	switch c.Tracking.Driver {
	case TrackingDriverFile, TrackingDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("invalid tracking.driver: %s (expected: file, sqlite)", c.Tracking.Driver))
	}

	if c.Workers.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("workers.pool_size must be >= 1"))
	}
	if c.Workers.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("workers.queue_size must be >= 1"))
	}

	if c.Seed.Watch && c.Seed.Path == "" {
		errs = append(errs, fmt.Errorf("seed.path is required when seed.watch is enabled"))
	}

	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			errs = append(errs, fmt.Errorf("invalid metrics.listen %q: %w", c.Metrics.Listen, err))
		}
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	return errs
}

func (c *Config) validateTelegram() []error {
	if !c.Telegram.Enabled {
		return nil
	}

	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, fmt.Errorf("telegram.token is required when telegram is enabled"))
	} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
		errs = append(errs, err)
	}

	if c.Telegram.ChatID == 0 {
		errs = append(errs, fmt.Errorf("telegram.chat_id is required when telegram is enabled"))
	}
	if c.Telegram.SendTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("telegram.send_timeout_seconds must be >= 1"))
	}
	if c.Telegram.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("telegram.rate_per_second must not be negative"))
	}
	if c.Telegram.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("telegram.max_attempts must be >= 1"))
	}

	return errs
}

func (c *Config) validateEngine() []error {
	var errs []error

	if c.Engine.ReconcileIntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("engine.reconcile_interval_seconds must be >= 1"))
	}
	if c.Engine.MinDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("engine.min_delay_seconds must not be negative"))
	}
	if c.Engine.MaxDelaySeconds < 0 {
		errs = append(errs, fmt.Errorf("engine.max_delay_seconds must not be negative"))
	}

	switch c.Engine.MarkUsed {
	case MarkUsedScheduled, MarkUsedDelivered:
	default:
		errs = append(errs, fmt.Errorf("invalid engine.mark_used: %s (expected: scheduled, delivered)", c.Engine.MarkUsed))
	}

	if c.Engine.Timezone != "" {
		if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid engine.timezone %q: %w", c.Engine.Timezone, err))
		}
	}

	return errs
}

func validateTelegramToken(token string) error {
	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return formatValidationError("telegram.token", "invalid format (expected <bot_id>:<token>)", token)
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}
