// Package server assembles the Storekeeper application: it opens the
// key-value store, builds the services and runs the HTTP server until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/storekeeper/internal/logging"
	"github.com/dmitrijs2005/storekeeper/internal/server/auth"
	"github.com/dmitrijs2005/storekeeper/internal/server/config"
	"github.com/dmitrijs2005/storekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/storekeeper/internal/server/kv"
	"github.com/dmitrijs2005/storekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/storekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/storekeeper/internal/server/services"
	"golang.org/x/sync/errgroup"
)

const outboundTimeout = 15 * time.Second

// openStore is replaced in tests.
var openStore = kv.Open

type App struct {
	config  *config.Config
	logger  logging.Logger
	store   *kv.Namespaces
	handler http.Handler
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	rm, err := repomanager.NewKVRepositoryManager(ctx, store, c.MasterPassphrase)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	mc := metrics.New()
	client := &http.Client{Timeout: outboundTimeout}

	audit := services.NewAuditService(rm, c, mc, logger)
	svc := httpapi.Services{
		Setup:    services.NewSetupService(rm, c, audit, mc, logger),
		OAuth:    services.NewOAuthService(rm, c, client, audit, mc, logger),
		Checkout: services.NewCheckoutService(rm, c, auth.NewDeliverySigner(c.DeliverySigningKey), services.NewS3Presigner(c), audit, mc, logger),
		Audit:    audit,
		Inbound:  services.NewInboundService(rm, c, audit, mc, logger),
	}

	return &App{
		config:  c,
		logger:  logger,
		store:   store,
		handler: httpapi.NewRouter(c, svc, rm, mc, logger),
	}, nil
}

// Handler exposes the routed HTTP surface.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM/SIGQUIT arrives, then
// closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app...", "store", app.config.StoreDriver, "addr", app.config.HTTPAddr)

	srv := httpapi.NewServer(app.config.HTTPAddr, app.handler, app.logger)
	ln, err := srv.Listen()
	if err != nil {
		app.closeStore(ctx)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.WithoutCancel(gctx))
	})

	err = g.Wait()
	app.closeStore(ctx)
	app.logger.Info(ctx, "App stopped")
	return err
}

func (app *App) closeStore(ctx context.Context) {
	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "store close failed", "error", err)
	}
}
