package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/storekeeper/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g. ":8787")
//	-u string   public base URL used in delivery links
//	-s string   store driver: memory, redis or postgres
//	-r string   redis address
//	-d string   PostgreSQL DSN
//	-t string   setup token
//	-l string   log level
//
// Other arguments are filtered out first with flagx.FilterArgs so that -c and
// friends do not make the parse fail.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-s", "-r", "-d", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.StoreDriver, "s", config.StoreDriver, "store driver (memory, redis, postgres)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SetupToken, "t", config.SetupToken, "one-time setup token")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
