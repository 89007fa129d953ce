package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"orderadmin/cmd"
	"orderadmin/internal/adapters/out/sqlstore"
	"orderadmin/internal/core/domain/model/order"

	"github.com/labstack/gommon/log"
)

func main() {
	count := flag.Int("count", sqlstore.DefaultSeedCount, "number of orders to generate")
	envFile := flag.String("env", ".env", "environment file, ignored when missing")
	flag.Parse()

	configs, err := cmd.LoadConfig(*envFile)
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
	defer func() { _ = sqlstore.Close(gormDB) }()

	if err = sqlstore.Migrate(ctx, gormDB); err != nil {
		log.Fatalf("Failed to migrate store: %v", err)
	}

	report, err := sqlstore.Seed(ctx, gormDB, sqlstore.SeedOptions{Count: *count}, logger)
	if err != nil {
		log.Fatalf("Failed to seed store: %v", err)
	}

	log.Infof("Seeded %d orders with %d line items", report.Orders, report.LineItems)
	for _, status := range order.Statuses() {
		log.Infof("  %-10s %d", status, report.ByStatus[status])
	}
}
