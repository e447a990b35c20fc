package config

import (
	"time"

	redisclient "github.com/vietddude/wikibot/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Site        SiteConfig         `yaml:"site"`
	Credentials CredentialsConfig  `yaml:"credentials"`
	Retry       RetryConfig        `yaml:"retry"`
	Server      ServerConfig       `yaml:"server"`
	Redis       redisclient.Config `yaml:"redis"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// SiteConfig selects the wiki to talk to: a deployment family plus
// site name, or an explicit URL.
type SiteConfig struct {
	Family  string        `yaml:"family"` // wikigg, fandom, generic
	Name    string        `yaml:"name"`   // e.g. "terraria"
	Lang    string        `yaml:"lang"`   // appended as /<lang> when not "en"
	URL     string        `yaml:"url"`    // overrides family/name when set
	Timeout time.Duration `yaml:"timeout"`
}

// CredentialsConfig locates the bot account credentials: a file
// (plaintext or json) or a pair of environment variable names.
type CredentialsConfig struct {
	File        string `yaml:"file"`
	Format      string `yaml:"format"` // plaintext, json
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`
}

// RetryConfig holds the retry engine settings.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Interval   time.Duration `yaml:"interval"`
}

// ServerConfig holds health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
