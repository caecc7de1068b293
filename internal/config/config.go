// Package config reads and writes the global ~/.matechat/config.toml.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults for tunables left unset in the config file. The page sizes
// follow the gateway's observed contract; the fetch timeout default has no
// contract behind it and is a local choice. The near-bottom threshold is
// measured in viewport lines, not pixels: a handful of lines of slack is
// the terminal-scale equivalent of a browser's ~150px.
const (
	DefaultGatewayURL        = "wss://gateway.matechat.app/ws"
	DefaultInitialPageSize   = 50
	DefaultOlderPageSize     = 20
	DefaultBottomThreshold   = 8
	DefaultReconnectAttempts = 10
	DefaultFetchTimeout      = 30 * time.Second
)

// Config represents the global config.toml.
type Config struct {
	DefaultSession string `toml:"default_session"`
	GatewayURL     string `toml:"gateway_url"`

	// Tunables, all optional.
	InitialPageSize   int `toml:"initial_page_size"`
	OlderPageSize     int `toml:"older_page_size"`
	BottomThreshold   int `toml:"bottom_threshold"`
	ReconnectAttempts int `toml:"reconnect_attempts"`
	FetchTimeoutSecs  int `toml:"fetch_timeout_secs"`
}

// Load reads config from the given path. Returns an error if the file is
// missing; callers that tolerate a missing file should fall back to Default.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config carrying only defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

// FetchTimeout returns the pagination request timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

func (c *Config) applyDefaults() {
	if c.GatewayURL == "" {
		c.GatewayURL = DefaultGatewayURL
	}
	if c.InitialPageSize <= 0 {
		c.InitialPageSize = DefaultInitialPageSize
	}
	if c.OlderPageSize <= 0 {
		c.OlderPageSize = DefaultOlderPageSize
	}
	if c.BottomThreshold <= 0 {
		c.BottomThreshold = DefaultBottomThreshold
	}
	if c.ReconnectAttempts <= 0 {
		c.ReconnectAttempts = DefaultReconnectAttempts
	}
	if c.FetchTimeoutSecs <= 0 {
		c.FetchTimeoutSecs = int(DefaultFetchTimeout / time.Second)
	}
}
