// Package config provides configuration management for Stagehand
package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all engine configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Export  ExportConfig  `mapstructure:"export"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig configures the animation clock and defaults
type EngineConfig struct {
	FrameRate      int    `mapstructure:"frame_rate"`      // ticks per second
	DefaultEmotion string `mapstructure:"default_emotion"` // preset name
	DefaultSeed    uint32 `mapstructure:"default_seed"`
}

// ExportConfig configures clip capture
type ExportConfig struct {
	CaptureWindow time.Duration `mapstructure:"capture_window"` // fixed recording length
	MimeType      string        `mapstructure:"mime_type"`
}

// StreamConfig configures the pose websocket broadcaster
type StreamConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			FrameRate:      60,
			DefaultEmotion: "neutral",
			DefaultSeed:    1,
		},
		Export: ExportConfig{
			CaptureWindow: 8 * time.Second,
			MimeType:      "video/webm",
		},
		Stream: StreamConfig{
			Enabled: false,
			Addr:    "localhost:7473",
			Path:    "/pose",
		},
		Logging: LoggingConfig{
			Level:   "debug",
			Console: true,
		},
	}
}

var watchMu sync.Mutex

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return cfg, err
	}

	configDir := filepath.Join(homeDir, ".stagehand")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("STAGEHAND")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Watch reloads the config when the file changes on disk and invokes the
// callback with the fresh value.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		watchMu.Lock()
		defer watchMu.Unlock()

		cfg := DefaultConfig()
		if err := viper.Unmarshal(cfg); err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configDir := filepath.Join(homeDir, ".stagehand")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("engine", cfg.Engine)
	viper.Set("export", cfg.Export)
	viper.Set("stream", cfg.Stream)
	viper.Set("logging", cfg.Logging)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".stagehand"), nil
}
