package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse разбирает TOML, применяет значения по умолчанию и переменные окружения
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := expandEnvVars(&cfg); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	applyDefaults(&cfg, md.IsDefined)

	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, nil)
	return cfg
}

// applyDefaults применяет значения по умолчанию. defined сообщает, задан ли
// ключ в файле явно; nil означает, что не задан ни один ключ.
func applyDefaults(c *Config, defined func(key ...string) bool) {
	if defined == nil {
		defined = func(...string) bool { return false }
	}

	if c.Data.Dir == "" {
		c.Data.Dir = expandHome("~/.quotebot")
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = 10
	}
	if c.Telegram.RatePerSecond == 0 {
		c.Telegram.RatePerSecond = 1
	}
	if c.Telegram.MaxAttempts == 0 {
		c.Telegram.MaxAttempts = 3
	}

	if c.Tracking.Driver == "" {
		c.Tracking.Driver = TrackingDriverFile
	}

	if c.Engine.ReconcileIntervalSeconds == 0 {
		c.Engine.ReconcileIntervalSeconds = 15
	}
	if c.Engine.MaxDelaySeconds == 0 && !defined("engine", "max_delay_seconds") {
		c.Engine.MaxDelaySeconds = 3600
	}
	if c.Engine.MarkUsed == "" {
		c.Engine.MarkUsed = MarkUsedScheduled
	}

	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = 2
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 100
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9464"
	}
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) error {
	c.Telegram.Token = expandEnv(c.Telegram.Token)

	c.Data.Dir = expandHome(expandEnv(c.Data.Dir))
	c.Store.Path = expandHome(expandEnv(c.Store.Path))
	c.Seed.Path = expandHome(expandEnv(c.Seed.Path))
	c.Engine.Timezone = expandEnv(c.Engine.Timezone)

	if c.Logging.Output != "stdout" && c.Logging.Output != "stderr" {
		c.Logging.Output = expandHome(expandEnv(c.Logging.Output))
	}

	return nil
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		if val := os.Getenv(parts[0]); val != "" {
			return val
		}
		return parts[1]
	}

	return os.Getenv(content)
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
