package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// External origin types
const (
	OriginHTTP = "http"
	OriginS3   = "s3"
)

// ExternalOrigin is a named origin a request can select with an "e" directive
type ExternalOrigin struct {
	Type   string        `mapstructure:"type"`
	URL    string        `mapstructure:"url"`
	Bucket string        `mapstructure:"bucket"`
	Region string        `mapstructure:"region"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// Config holds all application configuration
type Config struct {
	// HTTP server
	ListenAddr string `mapstructure:"listen-addr"`

	// Source selection
	DefaultSource   string                    `mapstructure:"default-source"`
	ExcludeSources  string                    `mapstructure:"exclude-sources"`
	ExternalSources map[string]ExternalOrigin `mapstructure:"external-sources"`
	ImageExpiry     time.Duration             `mapstructure:"image-expiry"`

	// S3 configuration
	S3Bucket    string `mapstructure:"s3-bucket"`
	S3Region    string `mapstructure:"s3-region"`
	S3Anonymous bool   `mapstructure:"s3-anonymous"`

	// Local source root
	LocalDir string `mapstructure:"local-dir"`

	// Fetch limits
	MaxFileSize  int64         `mapstructure:"max-file-size"`
	FetchTimeout time.Duration `mapstructure:"fetch-timeout"`

	// Prefetch ledger and workflow
	SQLitePath    string `mapstructure:"sqlite-path"`
	FSMDBPath     string `mapstructure:"fsm-db-path"`
	WorkDir       string `mapstructure:"work-dir"`
	FSMMaxRetries int    `mapstructure:"fsm-max-retries"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("listen-addr", ":3001")
	viper.SetDefault("default-source", "s3")
	viper.SetDefault("exclude-sources", "")
	viper.SetDefault("image-expiry", 365*24*time.Hour)
	viper.SetDefault("s3-bucket", "")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("s3-anonymous", false)
	viper.SetDefault("local-dir", "./images")
	viper.SetDefault("max-file-size", 50*1024*1024)
	viper.SetDefault("fetch-timeout", 10*time.Second)
	viper.SetDefault("sqlite-path", ".artifacts/images.db")
	viper.SetDefault("fsm-db-path", ".artifacts/fsm.db")
	viper.SetDefault("work-dir", "/tmp/imgdispatch")
	viper.SetDefault("fsm-max-retries", 5)

	// Environment variables (will be IMGDISPATCH_DEFAULT_SOURCE, etc.)
	viper.SetEnvPrefix("IMGDISPATCH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.imgdispatch")

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Excludes splits the comma separated exclusion list, dropping blanks
func (c *Config) Excludes() []string {
	var out []string
	for _, s := range strings.Split(c.ExcludeSources, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DefaultSource == "" {
		return fmt.Errorf("default-source cannot be empty")
	}
	if c.ImageExpiry < 0 {
		return fmt.Errorf("image-expiry must be non-negative")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max-file-size must be positive")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive")
	}
	if c.FSMMaxRetries < 0 {
		return fmt.Errorf("fsm-max-retries must be non-negative")
	}
	for name, origin := range c.ExternalSources {
		if err := origin.validate(); err != nil {
			return fmt.Errorf("external-sources.%s: %w", name, err)
		}
	}
	return nil
}

func (o ExternalOrigin) validate() error {
	switch o.Type {
	case OriginHTTP:
		if o.URL == "" {
			return fmt.Errorf("url cannot be empty for http origin")
		}
	case OriginS3:
		if o.Bucket == "" {
			return fmt.Errorf("bucket cannot be empty for s3 origin")
		}
	default:
		return fmt.Errorf("unknown origin type %q", o.Type)
	}
	if o.Expiry < 0 {
		return fmt.Errorf("expiry must be non-negative")
	}
	return nil
}
