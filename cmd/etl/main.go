package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fleet-etl-service/internal/adapters/source"
	"fleet-etl-service/internal/adapters/warehouse"
	"fleet-etl-service/internal/config"
	"fleet-etl-service/internal/ports"
	"fleet-etl-service/internal/scheduler"
	"fleet-etl-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

// main is the application composition root.
// It wires the source and warehouse connectors behind ports, runs one ad-hoc
// batch at startup, and hands the daily schedule to the cron trigger.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	var (
		sourceConn    ports.SourceConnector
		warehouseConn ports.WarehouseConnector
	)

	switch driver := config.Get("DB_DRIVER", "pgx"); driver {
	case "sqlite":
		sourceConn = source.SqliteConnector{Path: config.Get("SOURCE_DB_PATH", "data/operational.db")}
		warehouseConn = warehouse.SqliteConnector{Path: config.Get("WAREHOUSE_DB_PATH", "data/warehouse.db")}
	case "pgx":
		sourceURL := os.Getenv("SOURCE_DATABASE_URL")
		if strings.TrimSpace(sourceURL) == "" {
			log.Fatal("SOURCE_DATABASE_URL is required")
		}
		warehouseURL := os.Getenv("WAREHOUSE_DATABASE_URL")
		if strings.TrimSpace(warehouseURL) == "" {
			log.Fatal("WAREHOUSE_DATABASE_URL is required")
		}
		sourceConn = source.PostgresConnector{DatabaseURL: sourceURL}
		warehouseConn = warehouse.PostgresConnector{DatabaseURL: warehouseURL}
	default:
		log.Fatalf("unsupported DB_DRIVER %q (want pgx or sqlite)", driver)
	}

	runTimeout, err := time.ParseDuration(config.Get("RUN_TIMEOUT", "10m"))
	if err != nil {
		log.Fatalf("invalid RUN_TIMEOUT: %v", err)
	}

	pipeline := services.NewPipeline(sourceConn, warehouseConn, runTimeout)

	runOnce := func() {
		summary, err := pipeline.Run(context.Background())
		if err != nil {
			log.Printf("batch_id=%d run failed: %v", summary.BatchID, err)
		}
	}

	// Ad-hoc batch at startup for operational testing, then the daily
	// schedule. Same-day batches are additive, each with its own batch id.
	runOnce()

	spec := config.Get("CRON_SCHEDULE", "0 2 * * *")
	trigger := scheduler.NewCronTrigger(spec)
	if err := trigger.Start(runOnce); err != nil {
		log.Fatal(err)
	}
	log.Printf("scheduler started spec=%q", spec)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("shutting down")
	trigger.Stop()
}
