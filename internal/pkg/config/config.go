// Package config holds the settings of the escrowctl command line client.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// DefaultAPIURL is tried when ESCROW_API_URLS is unset.
const DefaultAPIURL = "http://localhost:5000"

type Config struct {
	// APIURLs are candidate base URLs; the first one that answers the health
	// probe is used.
	APIURLs      []string      `env:"ESCROW_API_URLS,      default=http://localhost:5000"`
	SessionFile  string        `env:"ESCROW_SESSION_FILE"`
	ProbeTimeout time.Duration `env:"ESCROW_PROBE_TIMEOUT, default=5s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}

	urls := cfg.APIURLs[:0]
	for _, u := range cfg.APIURLs {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		urls = append(urls, DefaultAPIURL)
	}
	cfg.APIURLs = urls

	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = os.TempDir()
		}
		cfg.SessionFile = filepath.Join(dir, "escrowctl", "session.json")
	}
	return &cfg, nil
}
