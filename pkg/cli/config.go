package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".adscreen"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config is the adscreen configuration file.
type Config struct {
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`

	// configPath is the path to the config file
	configPath string
}

// ArtifactsConfig locates the frozen scaler and classifier.
type ArtifactsConfig struct {
	// Scaler is a local path or s3://bucket/key URI
	Scaler string `yaml:"scaler,omitempty"`

	// Model is a local path or s3://bucket/key URI
	Model string `yaml:"model,omitempty"`

	// S3 configures the client used for s3:// locations
	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config configures the S3 client. Credentials come from the standard
// AWS environment and shared config files.
type S3Config struct {
	Region string `yaml:"region,omitempty"`

	// Endpoint overrides the service endpoint (MinIO, R2, etc.)
	Endpoint string `yaml:"endpoint,omitempty"`

	// UsePathStyle addresses buckets as endpoint/bucket instead of bucket.endpoint
	UsePathStyle bool `yaml:"use_path_style,omitempty"`
}

// AnalysisConfig controls audio analysis.
type AnalysisConfig struct {
	// ExpectedSampleRate is the training sample rate; mismatches are logged (0 = no check)
	ExpectedSampleRate int `yaml:"expected_sample_rate,omitempty"`

	// ResampleRate converts recordings before analysis (0 = native rate)
	ResampleRate int `yaml:"resample_rate,omitempty"`

	// AllowSilence scores all-zero recordings instead of rejecting them
	AllowSilence bool `yaml:"allow_silence,omitempty"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`

	// MaxUploadBytes limits the size of one uploaded recording
	MaxUploadBytes int64 `yaml:"max_upload_bytes,omitempty"`

	// StagingDir holds uploads while they are scored (default ~/.adscreen/staging)
	StagingDir string `yaml:"staging_dir,omitempty"`

	// ReadTimeout is the request read timeout in seconds
	ReadTimeout int `yaml:"read_timeout,omitempty"`

	// WriteTimeout is the response write timeout in seconds
	WriteTimeout int `yaml:"write_timeout,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			MaxUploadBytes: 32 << 20,
			ReadTimeout:    30,
			WriteTimeout:   60,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads the config file at path over the defaults. An empty
// path selects ~/.adscreen/config.yaml. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		paths, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = paths.ConfigFile()
	}

	cfg := DefaultConfig()
	cfg.configPath = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Analysis.ExpectedSampleRate < 0 {
		return fmt.Errorf("analysis.expected_sample_rate: %d is negative", c.Analysis.ExpectedSampleRate)
	}
	if c.Analysis.ResampleRate < 0 {
		return fmt.Errorf("analysis.resample_rate: %d is negative", c.Analysis.ResampleRate)
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes: %d is negative", c.Server.MaxUploadBytes)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Save writes the configuration to its path, creating the directory.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SaveAs sets the config path and saves.
func (c *Config) SaveAs(path string) error {
	c.configPath = path
	return c.Save()
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// ReadTimeoutDuration returns the read timeout (0 = none).
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout (0 = none).
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}
