package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderadmin/api"
	"orderadmin/cmd"
	"orderadmin/internal/adapters/out/sqlstore"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/gommon/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configs, err := cmd.LoadConfig(".env")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := cmd.NewLogger(configs, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := sqlstore.Open(configs.StoreConfig(), logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() {
		if closeErr := sqlstore.Close(gormDB); closeErr != nil {
			logger.Error("Failed to close store", "error", closeErr)
		}
	}()

	if err = sqlstore.Migrate(ctx, gormDB); err != nil {
		log.Fatalf("Failed to migrate store: %v", err)
	}
	if configs.SeedOnStart {
		if _, err = sqlstore.SeedIfEmpty(ctx, gormDB, sqlstore.SeedOptions{}, logger); err != nil {
			log.Fatalf("Failed to seed store: %v", err)
		}
	}

	contract, err := api.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load API contract: %v", err)
	}

	app, err := cmd.NewCompositionRoot(ctx, configs, gormDB, logger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	jobManager := app.CreateJobManager()
	if err = jobManager.StartAll(); err != nil {
		log.Fatalf("Failed to start jobs: %v", err)
	}
	defer jobManager.StopAll()

	startWebServer(ctx, app, configs.HTTPPort, contract)
}

func startWebServer(ctx context.Context, app cmd.CompositionRoot, port string, contract *openapi3.T) {
	e := app.CreateRouter(contract)
	addr := net.JoinHostPort("0.0.0.0", port)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()
	log.Infof("Order admin API listening on %s", addr)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
}
