package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the bakmon runtime configuration. Credentials are never
// read from the file: S3 keys come from the usual AWS environment
// variables, device API key/secret from DEVICE_API_KEY and
// DEVICE_API_SECRET.
type Config struct {
	BaseDir   string          `yaml:"base_dir"`
	Store     StoreConfig     `yaml:"store"`
	API       APIConfig       `yaml:"api"`
	DeviceAPI DeviceAPIConfig `yaml:"device_api"`
	S3        S3Config        `yaml:"s3"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DeviceAPIConfig drives the network-config collector for appliance
// vendors reachable through the device management API.
type DeviceAPIConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Vendor          string `yaml:"vendor"`
	BaseURL         string `yaml:"base_url"`
	TokenEndpoint   string `yaml:"token_endpoint"`
	BackupsEndpoint string `yaml:"backups_endpoint"`
	Region          string `yaml:"region"`
	PageSize        int    `yaml:"page_size"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// S3Config drives the object-store collector.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Vendor          string `yaml:"vendor"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	Prefix          string `yaml:"prefix"`
	RootDir         string `yaml:"root_dir"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	Retry           struct {
		MaxAttempts int `yaml:"max_attempts"`
	} `yaml:"retry,omitempty"`
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir is required")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if !c.DeviceAPI.Enabled && !c.S3.Enabled {
		return fmt.Errorf("at least one collector must be enabled")
	}
	if c.DeviceAPI.Enabled {
		if c.DeviceAPI.Vendor == "" {
			return fmt.Errorf("device_api.vendor is required when device_api is enabled")
		}
		if c.DeviceAPI.BaseURL == "" {
			return fmt.Errorf("device_api.base_url is required when device_api is enabled")
		}
		if !strings.HasPrefix(c.DeviceAPI.BaseURL, "https://") && !strings.HasPrefix(c.DeviceAPI.BaseURL, "http://") {
			return fmt.Errorf("device_api.base_url must be an http(s) URL")
		}
		if c.DeviceAPI.TokenEndpoint == "" {
			return fmt.Errorf("device_api.token_endpoint is required when device_api is enabled")
		}
		if c.DeviceAPI.BackupsEndpoint == "" {
			return fmt.Errorf("device_api.backups_endpoint is required when device_api is enabled")
		}
	}
	if c.S3.Enabled {
		if c.S3.Vendor == "" {
			return fmt.Errorf("s3.vendor is required when s3 is enabled")
		}
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required when s3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("s3.region is required when s3 is enabled")
		}
		if c.S3.RootDir == "" {
			return fmt.Errorf("s3.root_dir is required when s3 is enabled")
		}
	}
	return nil
}

// DeviceAPIInterval returns the network-config polling interval.
func (c *Config) DeviceAPIInterval() time.Duration {
	if c.DeviceAPI.IntervalSeconds > 0 {
		return time.Duration(c.DeviceAPI.IntervalSeconds) * time.Second
	}
	return 30 * time.Second
}

// S3Interval returns the object-store polling interval.
func (c *Config) S3Interval() time.Duration {
	if c.S3.IntervalSeconds > 0 {
		return time.Duration(c.S3.IntervalSeconds) * time.Second
	}
	return 600 * time.Second
}

func (c *Config) S3RetryAttempts() int {
	if c.S3.Retry.MaxAttempts > 0 {
		return c.S3.Retry.MaxAttempts
	}
	return 3
}
