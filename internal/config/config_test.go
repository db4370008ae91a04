package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validToken = "123456789:ABCdefGHIjklMNOpqrSTUvwxYZ"

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg, nil)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".quotebot"), cfg.Data.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, TrackingDriverFile, cfg.Tracking.Driver)
	assert.Equal(t, 15, cfg.Engine.ReconcileIntervalSeconds)
	assert.Equal(t, 0, cfg.Engine.MinDelaySeconds)
	assert.Equal(t, 3600, cfg.Engine.MaxDelaySeconds)
	assert.Equal(t, MarkUsedScheduled, cfg.Engine.MarkUsed)
	assert.Equal(t, 2, cfg.Workers.PoolSize)
	assert.Equal(t, 100, cfg.Workers.QueueSize)
	assert.Equal(t, "127.0.0.1:9464", cfg.Metrics.Listen)
	assert.Equal(t, 10*time.Second, cfg.Telegram.SendTimeout())
	assert.Equal(t, filepath.Join(cfg.Data.Dir, "quotebot.db"), cfg.StorePath())
}

func TestLoad(t *testing.T) {
	t.Setenv("QUOTEBOT_TEST_TOKEN", validToken)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[data]
dir = "/var/lib/quotebot"

[telegram]
enabled = true
token = "${QUOTEBOT_TEST_TOKEN}"
chat_id = -100123

[tracking]
driver = "sqlite"

[engine]
reconcile_interval_seconds = 30
min_delay_seconds = 5
max_delay_seconds = 60
mark_used = "delivered"
timezone = "${QUOTEBOT_TEST_TZ:UTC}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, validToken, cfg.Telegram.Token)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	assert.Equal(t, "/var/lib/quotebot", cfg.Data.Dir)
	assert.Equal(t, TrackingDriverSQLite, cfg.Tracking.Driver)
	assert.Equal(t, 30*time.Second, cfg.Engine.ReconcileInterval())
	assert.Equal(t, 5*time.Second, cfg.Engine.MinDelay())
	assert.Equal(t, time.Minute, cfg.Engine.MaxDelay())
	assert.Equal(t, MarkUsedDelivered, cfg.Engine.MarkUsed)
	assert.Equal(t, "UTC", cfg.Engine.Timezone)

	loc, err := cfg.Engine.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	assert.Empty(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Parse([]byte("[engine\nbroken"))
	assert.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantErrs int
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name: "telegram enabled without token and chat",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
			},
			wantErrs: 2,
		},
		{
			name: "malformed token",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.Token = "not-a-token"
				c.Telegram.ChatID = 1
			},
			wantErrs: 1,
		},
		{
			name: "bad engine values",
			mutate: func(c *Config) {
				c.Engine.MinDelaySeconds = -1
				c.Engine.MarkUsed = "sometimes"
				c.Engine.Timezone = "Mars/Olympus"
			},
			wantErrs: 3,
		},
		{
			name:     "unknown tracking driver",
			mutate:   func(c *Config) { c.Tracking.Driver = "redis" },
			wantErrs: 1,
		},
		{
			name:     "watch without seed path",
			mutate:   func(c *Config) { c.Seed.Watch = true },
			wantErrs: 1,
		},
		{
			name: "invalid metrics listen address",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = "9464"
			},
			wantErrs: 1,
		},
		{
			name:     "path traversal",
			mutate:   func(c *Config) { c.Data.Dir = "/srv/../etc" },
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Len(t, cfg.Validate(), tt.wantErrs)
		})
	}
}

func TestMaskTelegramToken(t *testing.T) {
	assert.Equal(t, "", MaskTelegramToken(""))
	assert.Equal(t, "123456789:ABCd******************wxYZ", MaskTelegramToken(validToken))
	assert.Equal(t, "***", MaskTelegramToken("short"))
}

func TestValidationErrorMasksSecret(t *testing.T) {
	err := validateTelegramToken("abcdefghijklmnop")
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "telegram.token", vErr.Field)
	assert.NotContains(t, vErr.Error(), "efghijkl")
}

func TestLoadEnvOptional(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, LoadEnvOptional(filepath.Join(dir, "absent.env")))

	path := filepath.Join(dir, ".env")
	content := "# comment\n\nQUOTEBOT_ENV_A=plain\nexport QUOTEBOT_ENV_B=\"quoted value\"\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("QUOTEBOT_ENV_A", "")
	os.Unsetenv("QUOTEBOT_ENV_A")
	t.Setenv("QUOTEBOT_ENV_B", "")
	os.Unsetenv("QUOTEBOT_ENV_B")

	require.NoError(t, LoadEnvOptional(path))
	assert.Equal(t, "plain", os.Getenv("QUOTEBOT_ENV_A"))
	assert.Equal(t, "quoted value", os.Getenv("QUOTEBOT_ENV_B"))
}

func TestLoadEnv_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("QUOTEBOT_ENV_C=from-file\n"), 0600))

	t.Setenv("QUOTEBOT_ENV_C", "from-env")
	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "from-env", os.Getenv("QUOTEBOT_ENV_C"))
}

func TestParse_ExplicitZeroMaxDelay(t *testing.T) {
	cfg, err := Parse([]byte("[engine]\nmax_delay_seconds = 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Engine.MaxDelaySeconds)
	assert.Equal(t, time.Duration(0), cfg.Engine.MaxDelay())
	assert.Empty(t, cfg.Validate())

	cfg, err = Parse([]byte("[engine]\nmin_delay_seconds = 5\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Engine.MaxDelay())
}
