package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaults tests the baseline values
func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "500G", cfg.ZvolSize)
	assert.Equal(t, "tank", cfg.ZFSPool)
	assert.Equal(t, "4.12", cfg.OpenshiftVersion)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.CleanupUnused)
}

// TestLoadOverlaysDefaults tests that user values override defaults
// while unset keys keep their default
func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anvil.yaml")
	content := []byte(`
truenas_ip: 192.168.1.10
api_key: secret
server_id: server1
zvol_size: 1T
dry_run: true
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.10", cfg.TrueNASIP)
	assert.Equal(t, "1T", cfg.ZvolSize)
	assert.True(t, cfg.DryRun)
	// Unset keys keep defaults
	assert.Equal(t, "tank", cfg.ZFSPool)
	assert.Equal(t, "4.12", cfg.OpenshiftVersion)
}

// TestLoadMissingFile tests the error path
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/anvil.yaml")
	assert.Error(t, err)
}

// TestValidate tests required-field and size validation
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing truenas_ip",
			mutate:  func(c *Config) { c.TrueNASIP = "" },
			wantErr: true,
		},
		{
			name:    "missing api_key",
			mutate:  func(c *Config) { c.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "malformed zvol_size",
			mutate:  func(c *Config) { c.ZvolSize = "lots" },
			wantErr: true,
		},
		{
			name:    "redfish url without credentials",
			mutate:  func(c *Config) { c.RedfishURL = "https://bmc.local" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.TrueNASIP = "10.0.0.1"
			cfg.APIKey = "k"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestBaseURL tests API URL construction
func TestBaseURL(t *testing.T) {
	cfg := Defaults()
	cfg.TrueNASIP = "10.0.0.5"
	assert.Equal(t, "https://10.0.0.5/api/v2.0", cfg.BaseURL())
}
