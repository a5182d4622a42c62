// Package config loads settings from a .env file, the environment, and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	APIBaseURL  string `env:"API_BASE_URL"`
	TokenDBPath string `env:"TOKEN_DB_PATH" envDefault:"blogclient.db"`
	TemplateDir string `env:"TEMPLATE_DIR" envDefault:"web/templates"`
}

// Load parses configuration. A missing .env file is fine; a missing API
// base URL is not.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("blogclient", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "blog API base URL")
	fs.StringVar(&cfg.TokenDBPath, "tokendb", cfg.TokenDBPath, "credential token database path")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.APIBaseURL == "" {
		return Config{}, errors.New("API base URL required (use -api or API_BASE_URL env)")
	}
	return cfg, nil
}
