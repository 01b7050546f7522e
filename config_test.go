package elsa

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 750*time.Millisecond, cfg.LongPress())
	assert.Equal(t, 100*time.Millisecond, cfg.ClickThreshold())
}

func TestLoadConfigFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "elsa.toml",
			content: `long_press_ms = 500
click_threshold_ms = 80
move_threshold = 6.5
shape_limit = 10
log_level = "debug"
`,
		},
		{
			name: "yaml",
			file: "elsa.yaml",
			content: `long_press_ms: 500
click_threshold_ms: 80
move_threshold: 6.5
shape_limit: 10
log_level: debug
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content)

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, 500*time.Millisecond, cfg.LongPress())
			assert.Equal(t, 80*time.Millisecond, cfg.ClickThreshold())
			assert.Equal(t, 6.5, cfg.MoveThreshold)
			assert.Equal(t, 10, cfg.ShapeLimit)
			assert.Equal(t, "debug", cfg.LogLevel)
			assert.Equal(t, defaultHistoryLimit, cfg.HistoryLimit, "unset keys keep their default")
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"bad toml", "a.toml", "long_press_ms = [", "parse toml"},
		{"bad yaml", "a.yml", "long_press_ms: [1", "parse yaml"},
		{"unknown extension", "a.ini", "x=1", "unsupported"},
		{"invalid value", "b.toml", "long_press_ms = 0", "long_press_ms"},
		{"negative limit", "c.toml", "history_limit = -1", "limits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			writeFile(t, path, tt.content)
			_, err := LoadConfig(path)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestGetSavePath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "page.json", cfg.GetSavePath("page.json"))

	cfg.SaveDirectory = filepath.Join(t.TempDir(), "drawings")
	assert.Equal(t, filepath.Join(cfg.SaveDirectory, "page.json"), cfg.GetSavePath("page.json"))
	info, err := os.Stat(cfg.SaveDirectory)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	abs := filepath.Join(t.TempDir(), "elsewhere.json")
	assert.Equal(t, abs, cfg.GetSavePath(abs))
}

func TestWatchConfigReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elsa.toml")
	writeFile(t, path, "long_press_ms = 500\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, path, func(c *Config) { changes <- c }, nil)
	}()

	// the watcher may not be registered yet; keep writing until it reports
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-changes:
			assert.Equal(t, 900*time.Millisecond, cfg.LongPress())
			cancel()
			require.NoError(t, <-done)
			return
		case <-tick.C:
			writeFile(t, path, "long_press_ms = 900\n")
		case <-deadline:
			t.Fatal("no reload observed")
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	logger, closeLog, err := NewLogger(cfg, &buf)
	require.NoError(t, err)
	defer closeLog()

	logger.Info().Msg("hidden")
	logger.Warn().Str("shape", "s1").Msg("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"shape":"s1"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewLoggerToFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "bogus"
	cfg.LogFile = filepath.Join(t.TempDir(), "elsa.log")
	logger, closeLog, err := NewLogger(cfg, nil)
	require.NoError(t, err)

	logger.Info().Msg("to file")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "to file"), "an unknown level falls back to info")
}
