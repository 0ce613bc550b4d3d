// Package config loads settings for the storekeeper-admin command.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. STOREKEEPER_ADMIN_* environment variables.
//  4. Command-line flags -a (server URL) and -i (request timeout, seconds).
//
// JSON schema:
//
//	{
//	  "server_url": "http://localhost:8787",
//	  "timeout": "15s",
//	  "setup_token": "..."
//	}
package config

import "time"

type Config struct {
	ServerURL  string
	Timeout    time.Duration
	SetupToken string
}

// LoadDefaults points the tool at a local development server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:8787"
	c.Timeout = 15 * time.Second
}

func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
