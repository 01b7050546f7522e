package elsa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of an editor. Durations are in milliseconds and
// distances in page units.
type Config struct {
	LongPressMS      int     `toml:"long_press_ms" yaml:"long_press_ms"`
	ClickThresholdMS int     `toml:"click_threshold_ms" yaml:"click_threshold_ms"`
	MoveThreshold    float64 `toml:"move_threshold" yaml:"move_threshold"`
	HandleTolerance  float64 `toml:"handle_tolerance" yaml:"handle_tolerance"`
	ShapeLimit       int     `toml:"shape_limit" yaml:"shape_limit"`
	HistoryLimit     int     `toml:"history_limit" yaml:"history_limit"`
	PasteOffset      float64 `toml:"paste_offset" yaml:"paste_offset"`

	SaveDirectory string `toml:"save_directory" yaml:"save_directory"`
	LogLevel      string `toml:"log_level" yaml:"log_level"`
	LogFile       string `toml:"log_file" yaml:"log_file"`
}

func DefaultConfig() *Config {
	return &Config{
		LongPressMS:      int(defaultLongPress / time.Millisecond),
		ClickThresholdMS: int(defaultClickThreshold / time.Millisecond),
		MoveThreshold:    defaultMoveThreshold,
		HandleTolerance:  defaultHandleTolerance,
		ShapeLimit:       defaultShapeLimit,
		HistoryLimit:     defaultHistoryLimit,
		PasteOffset:      defaultPasteOffset,
		LogLevel:         "info",
	}
}

func (c *Config) LongPress() time.Duration {
	return time.Duration(c.LongPressMS) * time.Millisecond
}

func (c *Config) ClickThreshold() time.Duration {
	return time.Duration(c.ClickThresholdMS) * time.Millisecond
}

// Validate rejects values the interaction pipeline cannot work with.
func (c *Config) Validate() error {
	switch {
	case c.LongPressMS <= 0:
		return fmt.Errorf("long_press_ms must be positive, got %d", c.LongPressMS)
	case c.ClickThresholdMS < 0:
		return fmt.Errorf("click_threshold_ms must not be negative, got %d", c.ClickThresholdMS)
	case c.MoveThreshold < 0:
		return fmt.Errorf("move_threshold must not be negative, got %g", c.MoveThreshold)
	case c.HandleTolerance < 0:
		return fmt.Errorf("handle_tolerance must not be negative, got %g", c.HandleTolerance)
	case c.ShapeLimit < 0 || c.HistoryLimit < 0:
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

// DefaultConfigPath is ~/.elsarc.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".elsarc.toml"
	}
	return filepath.Join(home, ".elsarc.toml")
}

// LoadConfig reads path over the defaults, choosing the format by extension.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml", "":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	cfg.SaveDirectory = expandHome(cfg.SaveDirectory)
	cfg.LogFile = expandHome(cfg.LogFile)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (c *Config) GetSavePath(filename string) string {
	if c.SaveDirectory == "" || filepath.IsAbs(filename) {
		return filename
	}
	os.MkdirAll(c.SaveDirectory, 0755)
	return filepath.Join(c.SaveDirectory, filename)
}

// WatchConfig reloads path whenever it is written and hands the new config
// to onChange. Invalid intermediate writes are reported to onError and
// otherwise ignored. It blocks until ctx is done.
func WatchConfig(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	var debounce *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != filepath.Base(path) || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			cfg, err := LoadConfig(path)
			if err != nil {
				if onError != nil {
					onError(err)
				}
				continue
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}
