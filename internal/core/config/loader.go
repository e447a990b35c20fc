package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Site.URL == "" && cfg.Site.Name == "" {
		return nil, fmt.Errorf("config: site.url or site.name is required")
	}
	if cfg.Site.URL == "" {
		if _, ok := DeploymentFor(cfg.Site.Family); !ok {
			return nil, fmt.Errorf("config: unknown deployment family %q", cfg.Site.Family)
		}
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Site.Family == "" {
		cfg.Site.Family = FamilyGeneric
	}
	if cfg.Site.Lang == "" {
		cfg.Site.Lang = "en"
	}
	if cfg.Site.Timeout == 0 {
		if d, ok := DeploymentFor(cfg.Site.Family); ok {
			cfg.Site.Timeout = d.DefaultTimeout
		} else {
			cfg.Site.Timeout = 30 * time.Second
		}
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.Interval == 0 {
		cfg.Retry.Interval = 10 * time.Second
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Credentials.Format == "" {
		cfg.Credentials.Format = "plaintext"
	}
}
