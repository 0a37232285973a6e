// Package config provides configuration management for PoseGate.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all PoseGate configuration.
type Config struct {
	Camera      CameraConfig      `yaml:"camera"`
	Capture     CaptureConfig     `yaml:"capture"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// CameraConfig holds camera settings.
type CameraConfig struct {
	Device      string `yaml:"device"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	ShowPreview bool   `yaml:"show_preview"`
}

// CaptureConfig holds pose capture settings.
type CaptureConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	YawThreshold   float64       `yaml:"yaw_threshold"`
	PitchThreshold float64       `yaml:"pitch_threshold"`
}

// RecognitionConfig holds face recognition settings.
type RecognitionConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	ModelPath string  `yaml:"model_path"`
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	Backend           string      `yaml:"backend"`
	Path              string      `yaml:"path"`
	EncryptionEnabled bool        `yaml:"encryption_enabled"`
	Redis             RedisConfig `yaml:"redis"`
}

// RedisConfig holds settings for the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Storage backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Default configuration locations, in lookup order.
const (
	SystemConfigPath = "/etc/posegate/posegate.yaml"
	UserConfigPath   = ".config/posegate/posegate.yaml"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Camera: CameraConfig{
			Device:      "0",
			Width:       640,
			Height:      480,
			ShowPreview: true,
		},
		Capture: CaptureConfig{
			Timeout:        40 * time.Second,
			YawThreshold:   12,
			PitchThreshold: 12,
		},
		Recognition: RecognitionConfig{
			Tolerance: 0.5,
			ModelPath: filepath.Join(homeDir, ".local/share/posegate/models"),
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    filepath.Join(homeDir, ".local/share/posegate/users.json"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "posegate",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	// Try system config first
	if _, err := os.Stat(SystemConfigPath); err == nil {
		return Load(SystemConfigPath)
	}

	// Try user config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, UserConfigPath)
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// ApplyEnv overrides settings from POSEGATE_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("POSEGATE_CAMERA_DEVICE"); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv("POSEGATE_STORE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("POSEGATE_STORE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("POSEGATE_REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("POSEGATE_CAPTURE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid POSEGATE_CAPTURE_TIMEOUT %q: %w", v, err)
		}
		c.Capture.Timeout = d
	}
	if v := os.Getenv("POSEGATE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	return nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate camera settings
	if c.Camera.Device == "" {
		return fmt.Errorf("camera device must be set")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	// Validate capture settings
	if c.Capture.Timeout <= 0 {
		return fmt.Errorf("capture timeout must be positive, got %s", c.Capture.Timeout)
	}
	if c.Capture.YawThreshold <= 0 || c.Capture.YawThreshold >= 90 {
		return fmt.Errorf("yaw_threshold must be between 0 and 90 degrees, got %f", c.Capture.YawThreshold)
	}
	if c.Capture.PitchThreshold <= 0 || c.Capture.PitchThreshold >= 90 {
		return fmt.Errorf("pitch_threshold must be between 0 and 90 degrees, got %f", c.Capture.PitchThreshold)
	}

	// Validate recognition settings
	if c.Recognition.Tolerance < 0 || c.Recognition.Tolerance > 1 {
		return fmt.Errorf("tolerance must be between 0 and 1, got %f", c.Recognition.Tolerance)
	}

	// Validate storage settings
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path must be set for the file backend")
		}
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("redis addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be file or redis)", c.Storage.Backend)
	}

	// Validate logging settings
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "nested" {
		return fmt.Errorf("invalid log format: %s (must be text or nested)", c.Logging.Format)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Camera.Device = ExpandPath(c.Camera.Device)
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Storage.Path = ExpandPath(c.Storage.Path)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	// Create storage directory
	if c.Storage.Backend == BackendFile {
		if err := os.MkdirAll(filepath.Dir(c.Storage.Path), 0700); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	// Create models directory
	if err := os.MkdirAll(c.Recognition.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	// Create log directory
	if c.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.Logging.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
