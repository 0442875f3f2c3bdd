package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/forgeops/anvil/pkg/units"
	"gopkg.in/yaml.v3"
)

// Config is the full, statically typed configuration surface. It is
// populated by overlaying user values on Defaults() and validated once
// at load time.
type Config struct {
	TrueNASIP        string `yaml:"truenas_ip"`
	APIKey           string `yaml:"api_key"`
	ServerID         string `yaml:"server_id"`
	Hostname         string `yaml:"hostname"`
	OpenshiftVersion string `yaml:"openshift_version"`
	ZvolSize         string `yaml:"zvol_size"`
	ZFSPool          string `yaml:"zfs_pool"`

	DryRun        bool `yaml:"dry_run"`
	DiscoverOnly  bool `yaml:"discover_only"`
	CleanupUnused bool `yaml:"cleanup_unused"`

	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	ArtifactDB         string `yaml:"artifact_db"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Optional Redfish endpoint; enables the BMC boot configurator.
	RedfishURL      string `yaml:"redfish_url"`
	RedfishUser     string `yaml:"redfish_user"`
	RedfishPassword string `yaml:"redfish_password"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		OpenshiftVersion: "4.12",
		ZvolSize:         "500G",
		ZFSPool:          "tank",
		ArtifactDB:       "anvil-artifacts.db",
		LogLevel:         "info",
	}
}

// Load reads a YAML config file and overlays it on Defaults().
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration once, up front, so the rest of the
// engine never has to probe for missing keys.
func (c *Config) Validate() error {
	var errs []error

	if c.TrueNASIP == "" {
		errs = append(errs, errors.New("truenas_ip is required"))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("api_key is required"))
	}
	if c.ZFSPool == "" {
		errs = append(errs, errors.New("zfs_pool is required"))
	}
	if c.OpenshiftVersion == "" {
		errs = append(errs, errors.New("openshift_version is required"))
	}
	if _, err := units.ParseSize(c.ZvolSize); err != nil {
		errs = append(errs, fmt.Errorf("zvol_size: %w", err))
	}
	if c.RedfishURL != "" && (c.RedfishUser == "" || c.RedfishPassword == "") {
		errs = append(errs, errors.New("redfish_url requires redfish_user and redfish_password"))
	}

	return errors.Join(errs...)
}

// BaseURL returns the TrueNAS API base URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("https://%s/api/v2.0", c.TrueNASIP)
}

// RequiredBytes returns the parsed zvol size. Validate must have
// succeeded first.
func (c *Config) RequiredBytes() int64 {
	n, _ := units.ParseSize(c.ZvolSize)
	return n
}
