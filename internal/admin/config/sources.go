package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/filex"
	"github.com/dmitrijs2005/storekeeper/internal/flagx"
	"github.com/dmitrijs2005/storekeeper/internal/timex"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces the admin variables, e.g. STOREKEEPER_ADMIN_SETUP_TOKEN.
const EnvPrefix = "STOREKEEPER_ADMIN"

// GlobalFlags lists the flags owned by this package. They must come before
// the subcommand.
var GlobalFlags = []string{"-a", "-i", "-c", "-config", "--config"}

type JsonConfig struct {
	ServerURL  string         `json:"server_url"`
	Timeout    timex.Duration `json:"timeout"`
	SetupToken string         `json:"setup_token"`
}

type EnvConfig struct {
	ServerURL  string         `envconfig:"SERVER_URL"`
	Timeout    *time.Duration `envconfig:"TIMEOUT"`
	SetupToken string         `envconfig:"SETUP_TOKEN"`
}

func parseJson(cfg *Config) {
	path := flagx.ConfigFile(os.Args[1:])
	if path == "" {
		return
	}

	var c JsonConfig
	if err := filex.ReadJSONFile(path, &c); err != nil {
		panic(err)
	}

	if c.ServerURL != "" {
		cfg.ServerURL = c.ServerURL
	}
	if c.Timeout.Duration != 0 {
		cfg.Timeout = c.Timeout.Duration
	}
	if c.SetupToken != "" {
		cfg.SetupToken = c.SetupToken
	}
}

func parseEnv(cfg *Config) {
	var e EnvConfig
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		panic(err)
	}

	if e.ServerURL != "" {
		cfg.ServerURL = e.ServerURL
	}
	if e.Timeout != nil {
		cfg.Timeout = *e.Timeout
	}
	if e.SetupToken != "" {
		cfg.SetupToken = e.SetupToken
	}
}

// parseFlags reads -a and -i only; subcommand flags are left to the cli.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "storekeeper server base URL")
	timeout := fs.Int("i", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")
	if err := fs.Parse(args); err != nil {
		panic(err)
	}
	cfg.Timeout = time.Duration(*timeout) * time.Second
}
