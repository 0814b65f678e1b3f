package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GraphConfig describes the tenant connection.
type GraphConfig struct {
	BaseURL      string   `yaml:"base_url"`
	AuthorityURL string   `yaml:"authority_url"`
	TenantID     string   `yaml:"tenant_id"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Token        string   `yaml:"token"`
	Scopes       []string `yaml:"scopes"`
}

// MigrationConfig holds the caller-chosen migration policy.
type MigrationConfig struct {
	MarkerKey        string   `yaml:"marker_key"`
	PlatformTokens   []string `yaml:"platform_tokens"`
	SkipUnmapped     bool     `yaml:"skip_unmapped"`
	MaxCandidates    int      `yaml:"max_candidates"`
	ConfidenceFilter []string `yaml:"confidence_filter"`
	NamePrefix       string   `yaml:"name_prefix"`
	Platforms        string   `yaml:"platforms"`
	Technologies     string   `yaml:"technologies"`
}

type RetryConfig struct {
	Attempts  int           `yaml:"attempts"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type StorageConfig struct {
	// BaseURL is an afs URL: a local directory, file://, mem://, s3://, gs://.
	BaseURL string `yaml:"base_url"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config holds all configuration (config file + CLI flags + environment).
type Config struct {
	Graph     GraphConfig     `yaml:"graph"`
	Migration MigrationConfig `yaml:"migration"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the configuration used when nothing else is specified.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			BaseURL:      "https://graph.microsoft.com/beta",
			AuthorityURL: "https://login.microsoftonline.com",
		},
		Migration: MigrationConfig{
			MarkerKey:        "MigratedFromGPO",
			PlatformTokens:   []string{"device_vendor_msft", "user_vendor_msft"},
			SkipUnmapped:     true,
			MaxCandidates:    5,
			ConfidenceFilter: []string{"high"},
			Platforms:        "windows10",
			Technologies:     "mdm",
		},
		Retry: RetryConfig{
			Attempts:  5,
			BaseDelay: 2 * time.Second,
			MaxDelay:  60 * time.Second,
		},
		RateLimit: RateLimitConfig{RPS: 8, Burst: 4},
		Storage:   StorageConfig{BaseURL: "./migration-data"},
		Server:    ServerConfig{Listen: ":8080"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load returns the defaults overlaid with the YAML file at path (if path is
// non-empty) and then with environment secrets.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	c.applyEnv()
	return c, nil
}

// loadFile reads a YAML config file. Keys missing from the file keep their
// current value.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays secrets from the environment so they need not live in
// the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("MIGRATOR_CLIENT_SECRET"); v != "" {
		c.Graph.ClientSecret = v
	}
	if v := os.Getenv("MIGRATOR_TOKEN"); v != "" {
		c.Graph.Token = v
	}
	if v := os.Getenv("MIGRATOR_TENANT_ID"); v != "" && c.Graph.TenantID == "" {
		c.Graph.TenantID = v
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Migration.MarkerKey == "" {
		return fmt.Errorf("migration.marker_key must not be empty")
	}
	if len(c.Migration.PlatformTokens) == 0 {
		return fmt.Errorf("migration.platform_tokens must list at least one token")
	}
	if c.Migration.MaxCandidates <= 0 {
		return fmt.Errorf("migration.max_candidates must be positive")
	}
	for _, f := range c.Migration.ConfidenceFilter {
		if f != "high" && f != "medium" && f != "none" {
			return fmt.Errorf("migration.confidence_filter: unknown tier %q", f)
		}
	}
	if c.Retry.Attempts <= 0 {
		return fmt.Errorf("retry.attempts must be positive")
	}
	if c.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate_limit.rps must be positive")
	}
	return nil
}
