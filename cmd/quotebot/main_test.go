package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/aatumaykin/quotebot/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig creates a config pointing at a temporary data directory.
func writeConfig(t *testing.T, extra string) (path, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	path = filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[data]\ndir = %q\n%s", dataDir, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dataDir
}

func TestCommandStructure(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "config", "version", "quotes", "schedules", "import"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	serve, _, err := rootCmd.Find([]string{"serve"})
	require.NoError(t, err)
	assert.NotNil(t, serve.Flags().Lookup("log-level"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("env"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: "+Version)
	assert.Contains(t, out, "Git Commit:")
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path, _ := writeConfig(t, "")
		out, err := execute(t, "config", "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "is valid")
		assert.Contains(t, out, "telegram: disabled")
	})

	t.Run("masks token", func(t *testing.T) {
		path, _ := writeConfig(t, "[telegram]\nenabled = true\nchat_id = 7\ntoken = \"123456:ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi\"\n")
		out, err := execute(t, "config", "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "123456:ABCD")
		assert.NotContains(t, out, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghi")
	})

	t.Run("invalid", func(t *testing.T) {
		path, _ := writeConfig(t, "[engine]\nmark_used = \"sometimes\"\n")
		_, err := execute(t, "config", "validate", path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "config", "validate", filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
}

func TestQuotesAddAndList(t *testing.T) {
	path, dataDir := writeConfig(t, "")

	out, err := execute(t, "--config", path, "quotes", "add", "  Stay hungry  ", "--tag", "Morning", "-t", "wisdom")
	require.NoError(t, err)
	assert.Contains(t, out, "Quote added")
	assert.Contains(t, out, "morning, wisdom")

	_, err = execute(t, "--config", path, "quotes", "add", "Stay hungry", "--tag", "evening")
	require.NoError(t, err)
	_, err = execute(t, "--config", path, "quotes", "add", "Another one")
	require.NoError(t, err)

	st, err := store.Open(context.Background(), filepath.Join(dataDir, "quotebot.db"), nil)
	require.NoError(t, err)
	quotes, err := st.ListQuotes(context.Background())
	require.NoError(t, st.Close())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Stay hungry", quotes[0].Text)
	assert.Equal(t, []string{"evening", "morning", "wisdom"}, quotes[0].Tags)

	out, err = execute(t, "--config", path, "quotes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Stay hungry")
	assert.Contains(t, out, "Another one")

	out, err = execute(t, "--config", path, "quotes", "list", "--tag", "evening")
	require.NoError(t, err)
	assert.Contains(t, out, "Stay hungry")
	assert.NotContains(t, out, "Another one")
}

func TestQuotesAddRejectsEmptyText(t *testing.T) {
	path, _ := writeConfig(t, "")
	_, err := execute(t, "--config", path, "quotes", "add", "   ")
	assert.ErrorIs(t, err, store.ErrEmptyText)
}

func TestSchedules(t *testing.T) {
	path, _ := writeConfig(t, "")

	out, err := execute(t, "--config", path, "schedules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No schedules found")

	_, err = execute(t, "--config", path, "schedules", "add", "morning", "0 9 * * *", "--tag", "wisdom")
	require.NoError(t, err)

	_, err = execute(t, "--config", path, "schedules", "add", "broken", "61 * * * *")
	assert.Error(t, err)

	out, err = execute(t, "--config", path, "schedules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "morning")
	assert.Contains(t, out, "0 9 * * *")
	assert.NotContains(t, out, "broken")

	out, err = execute(t, "--config", path, "schedules", "remove", "morning")
	require.NoError(t, err)
	assert.Contains(t, out, "removed")

	_, err = execute(t, "--config", path, "schedules", "remove", "morning")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImport(t *testing.T) {
	path, _ := writeConfig(t, "")
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(`
quotes:
  - text: "One"
    tags: [a]
  - text: "Two"
    tags: [a]
schedules:
  - name: hourly
    cron: "@hourly"
    tags: [a]
`), 0o644))

	_, err := execute(t, "--config", path, "schedules", "add", "legacy", "@daily")
	require.NoError(t, err)

	out, err := execute(t, "--config", path, "import", seedPath, "--prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 quotes and 1 schedules, pruned 1")

	out, err = execute(t, "--config", path, "schedules", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "hourly")
	assert.NotContains(t, out, "legacy")
}

func TestImportMissingFile(t *testing.T) {
	path, _ := writeConfig(t, "")
	_, err := execute(t, "--config", path, "import", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	path, _ := writeConfig(t, "[telegram]\nenabled = true\n")
	_, err := execute(t, "--config", path, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a\nb", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
