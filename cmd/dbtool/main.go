package main

import (
	"log"
	"os"
	"strings"

	"fleet-etl-service/internal/adapters/source"
	"fleet-etl-service/internal/adapters/warehouse"
	"fleet-etl-service/internal/config"
	"fleet-etl-service/internal/platform/db"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite"
)

// dbtool initializes the warehouse schema and, in sqlite mode, seeds the
// operational store with demo data for local pipeline runs.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	switch driver := config.Get("DB_DRIVER", "pgx"); driver {
	case "sqlite":
		initSqlite()
	case "pgx":
		initPostgres()
	default:
		log.Fatalf("unsupported DB_DRIVER %q (want pgx or sqlite)", driver)
	}
}

func initPostgres() {
	warehouseURL := os.Getenv("WAREHOUSE_DATABASE_URL")
	if strings.TrimSpace(warehouseURL) == "" {
		log.Fatal("WAREHOUSE_DATABASE_URL is required")
	}

	conn, err := db.Open(warehouseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	log.Println("Initializing warehouse schema...")
	if err := warehouse.InitSchema(conn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")
}

func initSqlite() {
	whPath := config.Get("WAREHOUSE_DB_PATH", "data/warehouse.db")
	whConn, err := db.OpenSQLite(whPath)
	if err != nil {
		log.Fatal(err)
	}
	defer whConn.Close()

	log.Println("Initializing warehouse schema...")
	if err := warehouse.InitSqliteSchema(whConn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	srcPath := config.Get("SOURCE_DB_PATH", "data/operational.db")
	srcConn, err := db.OpenSQLite(srcPath)
	if err != nil {
		log.Fatal(err)
	}
	defer srcConn.Close()

	log.Println("Initializing operational schema...")
	if err := source.InitSchema(srcConn); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}

	seedPath := config.Get("SEED_PATH", "data/seeds/operational.json")
	log.Println("Seeding operational store...")
	if err := source.SeedFromJSON(srcConn, seedPath); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
