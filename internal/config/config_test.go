package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
base_dir: /var/lib/bakmon
store:
  path: state.db
api:
  enabled: true
  addr: 127.0.0.1:8080
device_api:
  enabled: true
  vendor: CheckPoint
  base_url: https://api.example.net
  token_endpoint: /oauth/token
  backups_endpoint: /v1/backups
  region: emea
  page_size: 100
s3:
  enabled: true
  vendor: F5
  bucket: netops-backups
  region: eu-central-1
  root_dir: backups
  interval_seconds: 300
  retry:
    max_attempts: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/bakmon", cfg.BaseDir)
	assert.Equal(t, "state.db", cfg.Store.Path)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "CheckPoint", cfg.DeviceAPI.Vendor)
	assert.Equal(t, "F5", cfg.S3.Vendor)
	assert.Equal(t, 300*time.Second, cfg.S3Interval())
	assert.Equal(t, 5, cfg.S3RetryAttempts())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "base_dir: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			BaseDir: "/var/lib/bakmon",
			Store:   StoreConfig{Path: "state.db"},
			DeviceAPI: DeviceAPIConfig{
				Enabled:         true,
				Vendor:          "CheckPoint",
				BaseURL:         "https://api.example.net",
				TokenEndpoint:   "/oauth/token",
				BackupsEndpoint: "/v1/backups",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing base_dir", func(c *Config) { c.BaseDir = "" }, "base_dir is required"},
		{"missing store path", func(c *Config) { c.Store.Path = "" }, "store.path is required"},
		{"no collector enabled", func(c *Config) { c.DeviceAPI.Enabled = false }, "at least one collector"},
		{"device api without vendor", func(c *Config) { c.DeviceAPI.Vendor = "" }, "device_api.vendor is required"},
		{"device api bad url", func(c *Config) { c.DeviceAPI.BaseURL = "ftp://api.example.net" }, "http(s) URL"},
		{"device api without token endpoint", func(c *Config) { c.DeviceAPI.TokenEndpoint = "" }, "token_endpoint is required"},
		{
			"s3 without bucket",
			func(c *Config) {
				c.S3.Enabled = true
				c.S3.Vendor = "F5"
				c.S3.Region = "eu-central-1"
				c.S3.RootDir = "backups"
			},
			"s3.bucket is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIntervalDefaults(t *testing.T) {
	var cfg Config
	assert.Equal(t, 30*time.Second, cfg.DeviceAPIInterval())
	assert.Equal(t, 600*time.Second, cfg.S3Interval())
	assert.Equal(t, 3, cfg.S3RetryAttempts())

	cfg.DeviceAPI.IntervalSeconds = 60
	assert.Equal(t, 60*time.Second, cfg.DeviceAPIInterval())
}
