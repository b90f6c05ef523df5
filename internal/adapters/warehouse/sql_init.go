package warehouse

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres warehouse schema.
func InitSchema(db *sql.DB) error {
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
		first_delivery_date DATE NOT NULL,
		total_deliveries INT NOT NULL DEFAULT 0,
		customer_category TEXT NOT NULL
	);
	`

	createDriverQuery := `
	CREATE TABLE IF NOT EXISTS dim_driver (
		driver_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		driver_id INT NOT NULL,
		employee_code TEXT NOT NULL,
		full_name TEXT NOT NULL,
		license_number TEXT NOT NULL,
		license_expiry DATE NOT NULL,
		phone TEXT NOT NULL,
		hire_date DATE NOT NULL,
		status TEXT NOT NULL,
		valid_from DATE NOT NULL,
		valid_to DATE NOT NULL,
		is_current BOOLEAN NOT NULL
	);
	`

	createDriverIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_driver_current
	ON dim_driver(driver_id) WHERE is_current;
	`

	createVehicleQuery := `
	CREATE TABLE IF NOT EXISTS dim_vehicle (
		vehicle_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		vehicle_id INT NOT NULL,
		license_plate TEXT NOT NULL,
		vehicle_type TEXT NOT NULL,
		capacity_kg DECIMAL(10,2) NOT NULL,
		fuel_type TEXT NOT NULL,
		acquisition_date DATE NOT NULL,
		status TEXT NOT NULL,
		valid_from DATE NOT NULL,
		valid_to DATE NOT NULL,
		is_current BOOLEAN NOT NULL
	);
	`

	createVehicleIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_dim_vehicle_current
	ON dim_vehicle(vehicle_id) WHERE is_current;
	`

	createFactsQuery := `
	CREATE TABLE IF NOT EXISTS fact_deliveries (
		fact_key BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		delivery_id INT NOT NULL,
		trip_id INT NOT NULL,
		route_id INT NOT NULL,
		vehicle_id INT NOT NULL,
		driver_id INT NOT NULL,
		customer_name TEXT NOT NULL,
		scheduled_datetime TIMESTAMP NOT NULL,
		delivered_datetime TIMESTAMP NOT NULL,
		package_weight_kg DECIMAL(10,2) NOT NULL,
		distance_km DECIMAL(10,2) NOT NULL,
		delivery_time_minutes DECIMAL(10,2) NOT NULL,
		delay_minutes DECIMAL(10,2) NOT NULL,
		is_on_time BOOLEAN NOT NULL,
		deliveries_per_hour DECIMAL(10,2) NOT NULL,
		fuel_efficiency_km_per_liter DECIMAL(10,2) NOT NULL,
		cost_per_delivery DECIMAL(10,2) NOT NULL,
		revenue_per_delivery DECIMAL(10,2) NOT NULL,
		etl_batch_id BIGINT NOT NULL,
		load_timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	createFactsIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_fact_deliveries_batch
	ON fact_deliveries(etl_batch_id);
	`

	createTotalsQuery := `
	CREATE TABLE IF NOT EXISTS daily_totals (
		total_date DATE NOT NULL,
		total_deliveries INT NOT NULL,
		avg_delivery_time DECIMAL(10,2) NOT NULL,
		avg_fuel_efficiency DECIMAL(10,2) NOT NULL,
		total_revenue DECIMAL(12,2) NOT NULL,
		etl_batch_id BIGINT NOT NULL,
		load_timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (total_date, etl_batch_id)
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
