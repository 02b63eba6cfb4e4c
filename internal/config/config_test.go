package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docbridge/internal/constants"
	apperrors "docbridge/internal/errors"
	"docbridge/internal/logging"
)

func TestGetDefaultConfig(t *testing.T) {
	config := getDefaultConfig()

	if config.Log.Level != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", config.Log.Level)
	}
	if config.Log.Format != "console" {
		t.Errorf("Expected default log format 'console', got '%s'", config.Log.Format)
	}
	if config.Content.MaxReadSize != constants.DefaultMaxReadSize {
		t.Errorf("Expected default max read size %d, got %d", constants.DefaultMaxReadSize, config.Content.MaxReadSize)
	}
	if config.Watcher.Interval() != 2*time.Second {
		t.Errorf("Expected default watcher interval 2s, got %v", config.Watcher.Interval())
	}
	if config.Providers == nil {
		t.Error("Expected providers to be initialized")
	}
	if config.Metrics.Addr != "" {
		t.Errorf("Expected metrics disabled by default, got '%s'", config.Metrics.Addr)
	}
}

func TestMergeConfigs(t *testing.T) {
	defaultConfig := getDefaultConfig()
	fileConfig := &Config{
		Log:     logging.Config{Level: "debug"},
		Watcher: WatcherConfig{IntervalMs: 500},
		Providers: []ProviderConfig{
			{Authority: "com.example.home", Type: "local", Config: json.RawMessage(`{"name":"home","root":"/tmp"}`)},
		},
	}

	mergeConfigs(defaultConfig, fileConfig)

	if defaultConfig.Log.Level != "debug" {
		t.Errorf("Expected merged log level 'debug', got '%s'", defaultConfig.Log.Level)
	}
	// Unset values keep defaults
	if defaultConfig.Log.Format != "console" {
		t.Errorf("Expected format to keep default, got '%s'", defaultConfig.Log.Format)
	}
	if defaultConfig.Content.MaxReadSize != constants.DefaultMaxReadSize {
		t.Errorf("Expected max read size to keep default, got %d", defaultConfig.Content.MaxReadSize)
	}
	if defaultConfig.Watcher.IntervalMs != 500 {
		t.Errorf("Expected merged interval 500, got %d", defaultConfig.Watcher.IntervalMs)
	}
	if len(defaultConfig.Providers) != 1 || defaultConfig.Providers[0].Type != "local" {
		t.Errorf("Expected merged providers, got %+v", defaultConfig.Providers)
	}
}

func TestManagerInterface(t *testing.T) {
	var manager ManagerInterface = NewManagerWithPath("/tmp/test_config.json")
	if manager == nil {
		t.Error("Manager should implement ManagerInterface")
	}
}

func TestGetConfigPath(t *testing.T) {
	path := getConfigPath()

	if path == "" {
		t.Error("Config path should not be empty")
	}
	if !strings.HasSuffix(path, "config.json") {
		t.Errorf("Config path should end with 'config.json', got '%s'", path)
	}
}

func TestNewManagerHonorsEnvPath(t *testing.T) {
	t.Setenv(constants.EnvConfigPath, "/etc/docbridge/custom.json")
	if got := NewManager().Path(); got != "/etc/docbridge/custom.json" {
		t.Errorf("Expected env config path, got '%s'", got)
	}
}

func TestManagerLoadNonExistentFile(t *testing.T) {
	manager := NewManagerWithPath("/non/existent/path/config.json")

	config, err := manager.Load()
	if err != nil {
		t.Errorf("Load should not return error for non-existent file, got: %v", err)
	}
	if config == nil {
		t.Fatal("Load should return default config for non-existent file")
	}
	if config.Log.Level != "info" {
		t.Errorf("Should return default config with level info, got %s", config.Log.Level)
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "test_config.json")
	manager := NewManagerWithPath(configPath)

	testConfig := getDefaultConfig()
	testConfig.Content.MaxReadSize = 1024
	testConfig.Providers = []ProviderConfig{
		{Authority: "com.example.nas", Type: "smb", Config: json.RawMessage(`{"host":"nas","share":"games"}`)},
	}

	if err := manager.Save(testConfig); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	loadedConfig, err := manager.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loadedConfig.Content.MaxReadSize != 1024 {
		t.Errorf("Expected loaded max read size 1024, got %d", loadedConfig.Content.MaxReadSize)
	}
	if len(loadedConfig.Providers) != 1 || loadedConfig.Providers[0].Authority != "com.example.nas" {
		t.Fatalf("Providers not preserved: %+v", loadedConfig.Providers)
	}
	var smbCfg map[string]string
	if err := json.Unmarshal(loadedConfig.Providers[0].Config, &smbCfg); err != nil || smbCfg["share"] != "games" {
		t.Errorf("Provider config not preserved: %s", loadedConfig.Providers[0].Config)
	}
}

func TestManagerLoadEnvOverrides(t *testing.T) {
	t.Setenv(constants.EnvLogLevel, "warn")
	t.Setenv(constants.EnvLogFormat, "json")
	t.Setenv(constants.EnvMetricsAddr, ":9100")

	config, err := NewManagerWithPath(filepath.Join(t.TempDir(), "missing.json")).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config.Log.Level != "warn" || config.Log.Format != "json" || config.Metrics.Addr != ":9100" {
		t.Errorf("Env overrides not applied: %+v %+v", config.Log, config.Metrics)
	}
}

func TestManagerLoadInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(configPath, []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := NewManagerWithPath(configPath).Load()
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Type != apperrors.ErrorTypeConfig {
		t.Fatalf("Expected config error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		providers []ProviderConfig
		wantErr   bool
	}{
		{"empty", nil, false},
		{"valid", []ProviderConfig{{Authority: "a", Type: "local"}, {Authority: "b", Type: "s3"}}, false},
		{"missing type", []ProviderConfig{{Authority: "a"}}, true},
		{"duplicate authority", []ProviderConfig{{Authority: "a", Type: "local"}, {Authority: "a", Type: "smb"}}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := getDefaultConfig()
			c.Providers = tc.providers
			if err := c.Validate(); (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
