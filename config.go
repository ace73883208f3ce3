package main

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds the server configuration, loaded from environment
// variables.
type AppConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"3000"`

	// PublicBaseURL overrides share link origins, for deployments behind
	// proxies that strip forwarding headers. Example: https://when.example.com
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

func loadConfig() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return cfg, nil
}

func (c AppConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
