// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	DBURL                   string        `mapstructure:"DB_URL"`
	GithubToken             string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL            string        `mapstructure:"GITHUB_API_URL"`
	GithubDomain            string        `mapstructure:"GITHUB_DOMAIN"`
	GithubRequestsPerSecond float64       `mapstructure:"GITHUB_REQUESTS_PER_SECOND"`
	FetchSubject            bool          `mapstructure:"FETCH_SUBJECT"`
	SyncInterval            time.Duration `mapstructure:"SYNC_INTERVAL"`
	SyncConcurrency         int           `mapstructure:"SYNC_CONCURRENCY"`
	SyncIncludeRead         bool          `mapstructure:"SYNC_INCLUDE_READ"`
	HTTPAddr                string        `mapstructure:"HTTP_ADDR"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Every key needs a default so that Unmarshal sees values coming from the environment.
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_URL", "")
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("GITHUB_DOMAIN", "https://github.com")
	v.SetDefault("GITHUB_REQUESTS_PER_SECOND", 10)
	v.SetDefault("FETCH_SUBJECT", false)
	v.SetDefault("SYNC_INTERVAL", "1m")
	v.SetDefault("SYNC_CONCURRENCY", 5)
	v.SetDefault("SYNC_INCLUDE_READ", true)
	v.SetDefault("HTTP_ADDR", ":8080")

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if file not found

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.GithubDomain = strings.TrimRight(cfg.GithubDomain, "/")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if c.GithubToken == "" {
		return errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if !strings.HasPrefix(c.GithubDomain, "http://") && !strings.HasPrefix(c.GithubDomain, "https://") {
		return errors.New("GITHUB_DOMAIN must be an absolute http(s) URL")
	}
	if c.SyncInterval <= 0 {
		return errors.New("SYNC_INTERVAL must be positive")
	}
	if c.SyncConcurrency < 1 {
		return errors.New("SYNC_CONCURRENCY must be at least 1")
	}
	if c.GithubRequestsPerSecond <= 0 {
		return errors.New("GITHUB_REQUESTS_PER_SECOND must be positive")
	}
	return nil
}
