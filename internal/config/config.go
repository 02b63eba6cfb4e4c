package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/logging"
)

// Config represents the bridge configuration
type Config struct {
	Log       logging.Config   `json:"log"`
	Content   ContentConfig    `json:"content"`
	Watcher   WatcherConfig    `json:"watcher"`
	Metrics   MetricsConfig    `json:"metrics"`
	Providers []ProviderConfig `json:"providers"`
}

// ContentConfig represents content I/O settings
type ContentConfig struct {
	MaxReadSize int64 `json:"maxReadSize"` // Read ceiling used by the CLI; 0 means unbounded
}

// WatcherConfig represents change notifier settings
type WatcherConfig struct {
	IntervalMs int `json:"intervalMs"` // Polling interval in milliseconds
}

// Interval returns the polling interval as a duration.
func (w WatcherConfig) Interval() time.Duration {
	return time.Duration(w.IntervalMs) * time.Millisecond
}

// MetricsConfig represents metrics exposition settings
type MetricsConfig struct {
	Addr string `json:"addr"` // Listen address for /metrics; empty disables it
}

// ProviderConfig binds an authority to a provider type and its settings
type ProviderConfig struct {
	Authority string          `json:"authority"`
	Type      string          `json:"type"`   // "local", "smb", "s3", "archive"
	Config    json.RawMessage `json:"config"` // Type-specific settings
}

// Manager provides configuration management functionality
type Manager struct {
	configPath string
}

// NewManager creates a new configuration manager. DOCBRIDGE_CONFIG overrides
// the OS-specific default path.
func NewManager() *Manager {
	return &Manager{
		configPath: envOr(constants.EnvConfigPath, getConfigPath()),
	}
}

// NewManagerWithPath creates a manager bound to an explicit file.
func NewManagerWithPath(path string) *Manager {
	return &Manager{configPath: path}
}

// Path returns the configuration file path.
func (m *Manager) Path() string { return m.configPath }

// Load loads configuration from file, merges it with defaults and applies
// environment overrides.
func (m *Manager) Load() (*Config, error) {
	config := getDefaultConfig()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		logging.Debug("config file not found, using defaults",
			logging.String("path", m.configPath), logging.Err(err))
		applyEnv(config)
		return config, nil
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, apperrors.NewConfigError("load", "error parsing config file "+m.configPath, err)
	}

	mergeConfigs(config, &fileConfig)
	applyEnv(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to file
func (m *Manager) Save(config *Config) error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate checks provider entries for missing fields and duplicate authorities.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Authority == "" || p.Type == "" {
			return apperrors.NewConfigError("validate",
				fmt.Sprintf("provider %d: authority and type are required", i), nil)
		}
		if seen[p.Authority] {
			return apperrors.NewConfigError("validate", "duplicate authority "+p.Authority, nil)
		}
		seen[p.Authority] = true
	}
	if c.Content.MaxReadSize < 0 {
		return apperrors.NewConfigError("validate", "maxReadSize must not be negative", nil)
	}
	return nil
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Log: logging.Config{
			Level:  constants.DefaultLogLevel,
			Format: constants.DefaultLogFormat,
		},
		Content: ContentConfig{
			MaxReadSize: constants.DefaultMaxReadSize,
		},
		Watcher: WatcherConfig{
			IntervalMs: int(constants.WatcherInterval / time.Millisecond),
		},
		Providers: make([]ProviderConfig, 0),
	}
}

// getConfigPath returns the path to the configuration file following OS conventions
func getConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\docbridge\config.json
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return constants.ConfigFileName
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, constants.ApplicationName)

	case "darwin":
		// macOS: ~/Library/Application Support/docbridge/config.json
		home, err := os.UserHomeDir()
		if err != nil {
			return constants.ConfigFileName
		}
		configDir = filepath.Join(home, "Library", "Application Support", constants.ApplicationName)

	default:
		// Linux/Unix: $XDG_CONFIG_HOME/docbridge/config.json or ~/.config/docbridge/config.json
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return constants.ConfigFileName
			}
			xdgConfigHome = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(xdgConfigHome, constants.ApplicationName)
	}

	return filepath.Join(configDir, constants.ConfigFileName)
}

// mergeConfigs merges file config values into default config
func mergeConfigs(defaultConfig *Config, fileConfig *Config) {
	if fileConfig.Log.Level != "" {
		defaultConfig.Log.Level = fileConfig.Log.Level
	}
	if fileConfig.Log.Format != "" {
		defaultConfig.Log.Format = fileConfig.Log.Format
	}
	if fileConfig.Log.OutputPath != "" {
		defaultConfig.Log.OutputPath = fileConfig.Log.OutputPath
	}

	// Zero keeps the default ceiling
	if fileConfig.Content.MaxReadSize != 0 {
		defaultConfig.Content.MaxReadSize = fileConfig.Content.MaxReadSize
	}
	if fileConfig.Watcher.IntervalMs > 0 {
		defaultConfig.Watcher.IntervalMs = fileConfig.Watcher.IntervalMs
	}
	if fileConfig.Metrics.Addr != "" {
		defaultConfig.Metrics.Addr = fileConfig.Metrics.Addr
	}
	if fileConfig.Providers != nil {
		defaultConfig.Providers = fileConfig.Providers
	}
}

// applyEnv overrides file values with environment variables.
func applyEnv(c *Config) {
	c.Log.Level = envOr(constants.EnvLogLevel, c.Log.Level)
	c.Log.Format = envOr(constants.EnvLogFormat, c.Log.Format)
	c.Metrics.Addr = envOr(constants.EnvMetricsAddr, c.Metrics.Addr)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
