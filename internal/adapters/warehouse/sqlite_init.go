package warehouse

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the SQLite warehouse schema for local and demo runs. Mirrors the
// Postgres schema with text dates and integer booleans, plus the etl_lease
// table standing in for the advisory lock.
func InitSqliteSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init warehouse schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init warehouse schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCustomerQuery := `
	CREATE TABLE IF NOT EXISTS dim_customer (
		customer_name TEXT PRIMARY KEY,
		customer_type TEXT NOT NULL,
		city TEXT NOT NULL,
		first_delivery_date TEXT NOT NULL,
		total_deliveries INTEGER NOT NULL DEFAULT 0,
		customer_category TEXT NOT NULL
	);
	`

	createDriverQuery := `
	CREATE TABLE IF NOT EXISTS dim_driver (
		driver_key INTEGER PRIMARY KEY AUTOINCREMENT,
		driver_id INTEGER NOT NULL,
		employee_code TEXT NOT NULL,
		full_name TEXT NOT NULL,
		license_number TEXT NOT NULL,
		license_expiry TEXT NOT NULL,
		phone TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		status TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT NOT NULL,
		is_current INTEGER NOT NULL
	);
	`

	createDriverIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_driver_current
	ON dim_driver(driver_id) WHERE is_current = 1;
	`

	createVehicleQuery := `
	CREATE TABLE IF NOT EXISTS dim_vehicle (
		vehicle_key INTEGER PRIMARY KEY AUTOINCREMENT,
		vehicle_id INTEGER NOT NULL,
		license_plate TEXT NOT NULL,
		vehicle_type TEXT NOT NULL,
		capacity_kg REAL NOT NULL,
		fuel_type TEXT NOT NULL,
		acquisition_date TEXT NOT NULL,
		status TEXT NOT NULL,
		valid_from TEXT NOT NULL,
		valid_to TEXT NOT NULL,
		is_current INTEGER NOT NULL
	);
	`

	createVehicleIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_vehicle_current
	ON dim_vehicle(vehicle_id) WHERE is_current = 1;
	`

	createFactsQuery := `
	CREATE TABLE IF NOT EXISTS fact_deliveries (
		fact_key INTEGER PRIMARY KEY AUTOINCREMENT,
		delivery_id INTEGER NOT NULL,
		trip_id INTEGER NOT NULL,
		route_id INTEGER NOT NULL,
		vehicle_id INTEGER NOT NULL,
		driver_id INTEGER NOT NULL,
		customer_name TEXT NOT NULL,
		scheduled_datetime TEXT NOT NULL,
		delivered_datetime TEXT NOT NULL,
		package_weight_kg REAL NOT NULL,
		distance_km REAL NOT NULL,
		delivery_time_minutes REAL NOT NULL,
		delay_minutes REAL NOT NULL,
		is_on_time INTEGER NOT NULL,
		deliveries_per_hour REAL NOT NULL,
		fuel_efficiency_km_per_liter REAL NOT NULL,
		cost_per_delivery REAL NOT NULL,
		revenue_per_delivery REAL NOT NULL,
		etl_batch_id INTEGER NOT NULL,
		load_timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	createFactsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_fact_deliveries_batch
	ON fact_deliveries(etl_batch_id);
	`

	createTotalsQuery := `
	CREATE TABLE IF NOT EXISTS daily_totals (
		total_date TEXT NOT NULL,
		total_deliveries INTEGER NOT NULL,
		avg_delivery_time REAL NOT NULL,
		avg_fuel_efficiency REAL NOT NULL,
		total_revenue REAL NOT NULL,
		etl_batch_id INTEGER NOT NULL,
		load_timestamp TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (total_date, etl_batch_id)
	);
	`

	createLeaseQuery := `
	CREATE TABLE IF NOT EXISTS etl_lease (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		batch_id INTEGER NOT NULL,
		acquired_at TEXT NOT NULL
	);
	`

	statements := []string{
		createCustomerQuery,
		createDriverQuery,
		createDriverIndexQuery,
		createVehicleQuery,
		createVehicleIndexQuery,
		createFactsQuery,
		createFactsIndexQuery,
		createTotalsQuery,
		createLeaseQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init warehouse schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init warehouse schema: commit tx: %w", err)
	}

	return nil
}
