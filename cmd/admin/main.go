package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/storekeeper/internal/admin/cli"
	"github.com/dmitrijs2005/storekeeper/internal/admin/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.LoadConfig()
	app := cli.NewApp(cfg, os.Stdout)

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if err != cli.ErrUsage {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		stop()
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
