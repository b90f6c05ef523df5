package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/platform/db"
	"fleet-etl-service/internal/platform/obs"
	"fleet-etl-service/internal/ports"
)

// Advisory lock key for the single active-batch slot.
const runLeaseKey = 7401

// PostgresConnector opens the warehouse at run start.
type PostgresConnector struct {
	DatabaseURL string
}

func (c PostgresConnector) Connect(ctx context.Context) (ports.WarehouseConn, error) {
	conn, err := db.Open(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}
	return &SQLWarehouse{DB: conn}, nil
}

// Postgres-backed implementation of the WarehouseConn port.
type SQLWarehouse struct {
	DB *sql.DB

	// leaseConn pins the advisory lock to one session; releasing on a
	// different pooled connection would not unlock it.
	leaseConn *sql.Conn
}

func NewSQLWarehouse(conn *sql.DB) *SQLWarehouse {
	return &SQLWarehouse{DB: conn}
}

func (w *SQLWarehouse) TryAcquireRunLease(ctx context.Context, batchID int64) (bool, error) {
	if w.DB == nil {
		return false, errors.New("sql warehouse: DB is nil")
	}
	if w.leaseConn != nil {
		return false, errors.New("acquire lease: lease connection already held")
	}

	conn, err := w.DB.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lease: checkout connection: %w", err)
	}

	var ok bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1);`, runLeaseKey).Scan(&ok); err != nil {
		_ = conn.Close()
		return false, fmt.Errorf("acquire lease: batch_id=%d: %w", batchID, err)
	}
	if !ok {
		_ = conn.Close()
		return false, nil
	}

	w.leaseConn = conn
	return true, nil
}

func (w *SQLWarehouse) ReleaseRunLease(ctx context.Context) error {
	if w.leaseConn == nil {
		return nil
	}

	var released bool
	err := w.leaseConn.QueryRowContext(ctx, `SELECT pg_advisory_unlock($1);`, runLeaseKey).Scan(&released)
	cerr := w.leaseConn.Close()
	w.leaseConn = nil

	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	if cerr != nil {
		return fmt.Errorf("release lease: close connection: %w", cerr)
	}
	return nil
}

func (w *SQLWarehouse) CurrentDrivers(ctx context.Context, driverIDs []int) (map[int]domain.DriverDim, error) {
	out := make(map[int]domain.DriverDim, len(driverIDs))
	if len(driverIDs) == 0 {
		return out, nil
	}

	q := `
	SELECT driver_id, employee_code, full_name, license_number,
	       license_expiry, phone, hire_date, status,
	       valid_from, valid_to, is_current
	FROM dim_driver
	WHERE is_current AND driver_id = ANY($1::int[]);
	`

	rows, err := w.DB.QueryContext(ctx, q, driverIDs)
	if err != nil {
		return nil, fmt.Errorf("current drivers: query dim_driver: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d domain.DriverDim
		err := rows.Scan(
			&d.DriverID, &d.EmployeeCode, &d.FullName, &d.LicenseNumber,
			&d.LicenseExpiry, &d.Phone, &d.HireDate, &d.Status,
			&d.ValidFrom, &d.ValidTo, &d.IsCurrent,
		)
		if err != nil {
			return nil, fmt.Errorf("current drivers: scan row: %w", err)
		}
		out[d.DriverID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("current drivers: row iteration: %w", err)
	}

	return out, nil
}

func (w *SQLWarehouse) CurrentVehicles(ctx context.Context, vehicleIDs []int) (map[int]domain.VehicleDim, error) {
	out := make(map[int]domain.VehicleDim, len(vehicleIDs))
	if len(vehicleIDs) == 0 {
		return out, nil
	}

	q := `
	SELECT vehicle_id, license_plate, vehicle_type, capacity_kg,
	       fuel_type, acquisition_date, status,
	       valid_from, valid_to, is_current
	FROM dim_vehicle
	WHERE is_current AND vehicle_id = ANY($1::int[]);
	`

	rows, err := w.DB.QueryContext(ctx, q, vehicleIDs)
	if err != nil {
		return nil, fmt.Errorf("current vehicles: query dim_vehicle: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.VehicleDim
		err := rows.Scan(
			&v.VehicleID, &v.LicensePlate, &v.VehicleType, &v.CapacityKg,
			&v.FuelType, &v.AcquisitionDate, &v.Status,
			&v.ValidFrom, &v.ValidTo, &v.IsCurrent,
		)
		if err != nil {
			return nil, fmt.Errorf("current vehicles: scan row: %w", err)
		}
		out[v.VehicleID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("current vehicles: row iteration: %w", err)
	}

	return out, nil
}

func (w *SQLWarehouse) ExistingCustomers(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		return out, nil
	}

	q := `
	SELECT customer_name
	FROM dim_customer
	WHERE customer_name = ANY($1::text[]);
	`

	rows, err := w.DB.QueryContext(ctx, q, names)
	if err != nil {
		return nil, fmt.Errorf("existing customers: query dim_customer: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("existing customers: scan row: %w", err)
		}
		out[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("existing customers: row iteration: %w", err)
	}

	return out, nil
}

// ApplyDimensionMerge commits every dimension write of the batch in one
// transaction. Closed versions get valid_to = batch date - 1 day.
func (w *SQLWarehouse) ApplyDimensionMerge(ctx context.Context, plan ports.MergePlan) (err error) {
	defer obs.Time(ctx, "warehouse.ApplyDimensionMerge")(&err)

	if plan.Empty() {
		return nil
	}

	closeDate := plan.BatchDate.AddDate(0, 0, -1)

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply dimension merge: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(plan.CloseDrivers) > 0 {
		_, err := tx.ExecContext(ctx, `
		UPDATE dim_driver
		SET valid_to = $1, is_current = FALSE
		WHERE is_current AND driver_id = ANY($2::int[]);
		`, closeDate, plan.CloseDrivers)
		if err != nil {
			return fmt.Errorf("apply dimension merge: close drivers: %w", err)
		}
	}

	for _, d := range plan.InsertDrivers {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO dim_driver (
			driver_id, employee_code, full_name, license_number,
			license_expiry, phone, hire_date, status,
			valid_from, valid_to, is_current
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE);
		`, d.DriverID, d.EmployeeCode, d.FullName, d.LicenseNumber,
			d.LicenseExpiry, d.Phone, d.HireDate, d.Status,
			d.ValidFrom, d.ValidTo)
		if err != nil {
			return fmt.Errorf("apply dimension merge: insert driver_id=%d: %w", d.DriverID, err)
		}
	}

	if len(plan.CloseVehicles) > 0 {
		_, err := tx.ExecContext(ctx, `
		UPDATE dim_vehicle
		SET valid_to = $1, is_current = FALSE
		WHERE is_current AND vehicle_id = ANY($2::int[]);
		`, closeDate, plan.CloseVehicles)
		if err != nil {
			return fmt.Errorf("apply dimension merge: close vehicles: %w", err)
		}
	}

	for _, v := range plan.InsertVehicles {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO dim_vehicle (
			vehicle_id, license_plate, vehicle_type, capacity_kg,
			fuel_type, acquisition_date, status,
			valid_from, valid_to, is_current
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE);
		`, v.VehicleID, v.LicensePlate, v.VehicleType, v.CapacityKg,
			v.FuelType, v.AcquisitionDate, v.Status,
			v.ValidFrom, v.ValidTo)
		if err != nil {
			return fmt.Errorf("apply dimension merge: insert vehicle_id=%d: %w", v.VehicleID, err)
		}
	}

	for _, c := range plan.InsertCustomers {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO dim_customer (
			customer_name, customer_type, city,
			first_delivery_date, total_deliveries, customer_category
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_name) DO NOTHING;
		`, c.CustomerName, c.CustomerType, c.City,
			c.FirstDeliveryDate, c.TotalDeliveries, c.CustomerCategory)
		if err != nil {
			return fmt.Errorf("apply dimension merge: insert customer=%q: %w", c.CustomerName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply dimension merge: commit tx: %w", err)
	}

	return nil
}

// InsertFacts appends the batch's fact rows. Strictly append-only.
func (w *SQLWarehouse) InsertFacts(ctx context.Context, facts []domain.FactDelivery) (err error) {
	defer obs.Time(ctx, "warehouse.InsertFacts")(&err)

	if len(facts) == 0 {
		return nil
	}

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert facts: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO fact_deliveries (
		delivery_id, trip_id, route_id, vehicle_id, driver_id, customer_name,
		scheduled_datetime, delivered_datetime, package_weight_kg, distance_km,
		delivery_time_minutes, delay_minutes, is_on_time, deliveries_per_hour,
		fuel_efficiency_km_per_liter, cost_per_delivery, revenue_per_delivery,
		etl_batch_id
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`)
	if err != nil {
		return fmt.Errorf("insert facts: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		_, err := stmt.ExecContext(ctx,
			f.DeliveryID, f.TripID, f.RouteID, f.VehicleID, f.DriverID, f.CustomerName,
			f.ScheduledDatetime, f.DeliveredDatetime, f.PackageWeightKg, f.DistanceKm,
			f.DeliveryTimeMinutes, f.DelayMinutes, f.IsOnTime, f.DeliveriesPerHour,
			f.FuelEfficiencyKmPerLiter, f.CostPerDelivery, f.RevenuePerDelivery,
			f.ETLBatchID,
		)
		if err != nil {
			return fmt.Errorf("insert facts: delivery_id=%d: %w", f.DeliveryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert facts: commit tx: %w", err)
	}

	return nil
}

// InsertDailyTotals recomputes the rollup for exactly the facts of batchID
// and upserts the (totalDate, batchID) row, so a re-run replaces its own
// totals rather than double counting.
func (w *SQLWarehouse) InsertDailyTotals(ctx context.Context, totalDate time.Time, batchID int64) (_ domain.DailyTotals, err error) {
	defer obs.Time(ctx, "warehouse.InsertDailyTotals")(&err)

	_, err = w.DB.ExecContext(ctx, `
	INSERT INTO daily_totals (
		total_date, total_deliveries, avg_delivery_time,
		avg_fuel_efficiency, total_revenue, etl_batch_id
	)
	SELECT $1,
	       COUNT(*),
	       ROUND(AVG(delivery_time_minutes)::numeric, 2),
	       ROUND(AVG(fuel_efficiency_km_per_liter)::numeric, 2),
	       ROUND(SUM(revenue_per_delivery)::numeric, 2),
	       $2
	FROM fact_deliveries
	WHERE etl_batch_id = $2
	ON CONFLICT (total_date, etl_batch_id) DO UPDATE
	SET total_deliveries = EXCLUDED.total_deliveries,
	    avg_delivery_time = EXCLUDED.avg_delivery_time,
	    avg_fuel_efficiency = EXCLUDED.avg_fuel_efficiency,
	    total_revenue = EXCLUDED.total_revenue,
	    load_timestamp = CURRENT_TIMESTAMP;
	`, totalDate, batchID)
	if err != nil {
		return domain.DailyTotals{}, fmt.Errorf("insert daily totals: batch_id=%d: %w", batchID, err)
	}

	var t domain.DailyTotals
	err = w.DB.QueryRowContext(ctx, `
	SELECT total_date, total_deliveries, avg_delivery_time,
	       avg_fuel_efficiency, total_revenue, etl_batch_id
	FROM daily_totals
	WHERE total_date = $1 AND etl_batch_id = $2;
	`, totalDate, batchID).Scan(
		&t.TotalDate, &t.TotalDeliveries, &t.AvgDeliveryTime,
		&t.AvgFuelEfficiency, &t.TotalRevenue, &t.ETLBatchID,
	)
	if err != nil {
		return domain.DailyTotals{}, fmt.Errorf("insert daily totals: read back batch_id=%d: %w", batchID, err)
	}

	return t, nil
}

func (w *SQLWarehouse) Close() error {
	if w.leaseConn != nil {
		_ = w.leaseConn.Close()
		w.leaseConn = nil
	}
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
