// Package config handles configuration loading, validation, and hot
// reload for brailled.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"brailled/internal/braille"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Engine configures the input pipeline.
	Engine EngineConfig `toml:"engine" json:"engine" yaml:"engine"`

	// Profiles configures where braille profiles come from.
	Profiles ProfilesConfig `toml:"profiles" json:"profiles" yaml:"profiles"`

	// Storage configures the profile catalog.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// IPC configures the control socket.
	IPC IPCConfig `toml:"ipc" json:"ipc" yaml:"ipc"`

	// Logging configures log output.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// EngineConfig holds input pipeline settings.
type EngineConfig struct {
	// ChordTimeoutMs is the chord quiescence timeout in milliseconds.
	// Dots pressed within this window of each other form one chord.
	ChordTimeoutMs int `toml:"chord_timeout_ms" json:"chord_timeout_ms" yaml:"chord_timeout_ms"`

	// StartupMode is the braille system active at startup:
	// grade1, grade2, kana, or nemeth.
	StartupMode string `toml:"startup_mode" json:"startup_mode" yaml:"startup_mode"`

	// ShowBrailleOverlay enables the per-line braille overlay record.
	ShowBrailleOverlay bool `toml:"show_braille_overlay" json:"show_braille_overlay" yaml:"show_braille_overlay"`
}

// ChordTimeout returns the timeout as a duration.
func (e EngineConfig) ChordTimeout() time.Duration {
	return time.Duration(e.ChordTimeoutMs) * time.Millisecond
}

// ProfilesConfig holds profile source settings.
type ProfilesConfig struct {
	// Paths lists directories scanned for profile files (json/yaml).
	Paths []string `toml:"paths" json:"paths" yaml:"paths"`

	// UseBuiltin includes the profiles compiled into the binary.
	UseBuiltin bool `toml:"use_builtin" json:"use_builtin" yaml:"use_builtin"`

	// Watch rebuilds lookup tables when profile files change.
	Watch bool `toml:"watch" json:"watch" yaml:"watch"`

	// WatchDebounceMs is the debounce for profile change events.
	WatchDebounceMs int `toml:"watch_debounce_ms" json:"watch_debounce_ms" yaml:"watch_debounce_ms"`
}

// StorageConfig holds profile catalog settings.
type StorageConfig struct {
	// CatalogPath is the SQLite profile catalog. Empty disables the
	// catalog.
	CatalogPath string `toml:"catalog_path" json:"catalog_path" yaml:"catalog_path"`
}

// IPCConfig holds control socket settings.
type IPCConfig struct {
	// SocketPath is the Unix socket that braillectl connects to.
	SocketPath string `toml:"socket_path" json:"socket_path" yaml:"socket_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stdout, stderr, file, or both.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file used when Output includes file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB rotates the log file past this size.
	MaxSizeMB int64 `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups caps rotated files kept.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: Version,
		Engine: EngineConfig{
			ChordTimeoutMs:     50,
			StartupMode:        "grade1",
			ShowBrailleOverlay: true,
		},
		Profiles: ProfilesConfig{
			UseBuiltin:      true,
			Watch:           true,
			WatchDebounceMs: 250,
		},
		Storage: StorageConfig{
			CatalogPath: filepath.Join(defaultDataDir(), "catalog.db"),
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath(),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(defaultDataDir(), "logs", "brailled.log"),
			MaxSizeMB:  50,
			MaxBackups: 3,
		},
	}
}

// defaultDataDir returns the platform data directory for brailled.
func defaultDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "brailled")
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		return filepath.Join(appData, "brailled")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, _ := os.UserHomeDir()
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "brailled")
	}
}

func defaultSocketPath() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "brailled.sock")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".brailled", "brailled.sock")
}

// DefaultPath returns the platform default config file path.
func DefaultPath() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "brailled", "config.toml")
	case "windows":
		appData := os.Getenv("APPDATA")
		return filepath.Join(appData, "brailled", "config.toml")
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, _ := os.UserHomeDir()
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "brailled", "config.toml")
	}
}

// ApplyEnvOverrides overrides fields from BRAILLED_* environment
// variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("BRAILLED_CHORD_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Engine.ChordTimeoutMs = ms
		}
	}
	if v := os.Getenv("BRAILLED_STARTUP_MODE"); v != "" {
		c.Engine.StartupMode = v
	}
	if v := os.Getenv("BRAILLED_SOCKET"); v != "" {
		c.IPC.SocketPath = v
	}
	if v := os.Getenv("BRAILLED_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("BRAILLED_CATALOG"); v != "" {
		c.Storage.CatalogPath = v
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Engine.ChordTimeoutMs <= 0 {
		return errors.New("engine.chord_timeout_ms must be positive")
	}
	if c.Engine.ChordTimeoutMs > 5000 {
		return fmt.Errorf("engine.chord_timeout_ms %d is implausibly large (max 5000)", c.Engine.ChordTimeoutMs)
	}
	if _, err := braille.ParseMode(c.Engine.StartupMode); err != nil {
		return fmt.Errorf("engine.startup_mode: %w", err)
	}
	for _, p := range c.Profiles.Paths {
		if p == "" {
			return errors.New("profiles.paths contains an empty path")
		}
	}
	if !c.Profiles.UseBuiltin && len(c.Profiles.Paths) == 0 {
		return errors.New("profiles: builtin profiles disabled and no profile paths configured")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unknown level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file", "both":
	default:
		return fmt.Errorf("logging.output: unknown output %q", c.Logging.Output)
	}
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	return nil
}

// StartupMode returns the parsed startup mode.
func (c *Config) StartupMode() braille.Mode {
	m, err := braille.ParseMode(c.Engine.StartupMode)
	if err != nil {
		return braille.Grade1
	}
	return m
}
