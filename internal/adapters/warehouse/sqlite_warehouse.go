package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/platform/db"
	"fleet-etl-service/internal/ports"
)

const dateLayout = "2006-01-02"
const datetimeLayout = "2006-01-02 15:04:05"

// SqliteConnector opens a SQLite warehouse for local and demo runs.
type SqliteConnector struct {
	Path string
}

func (c SqliteConnector) Connect(ctx context.Context) (ports.WarehouseConn, error) {
	conn, err := db.OpenSQLite(c.Path)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}

	// Local runs create their schema on first connect.
	if err := InitSqliteSchema(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}

	return &SqliteWarehouse{DB: conn}, nil
}

// SQLite-backed implementation of the WarehouseConn port. Dates are stored as
// text in dateLayout, timestamps in datetimeLayout; the lease is a single-row
// table rather than an advisory lock.
type SqliteWarehouse struct {
	DB *sql.DB

	// LeaseTTL bounds how long a lease row left behind by a crashed run can
	// block later runs. Zero means defaultLeaseTTL. The Postgres variant does
	// not need this: its advisory lock dies with the session.
	LeaseTTL time.Duration

	leaseHeld bool
}

const defaultLeaseTTL = time.Hour

func NewSqliteWarehouse(conn *sql.DB) *SqliteWarehouse {
	return &SqliteWarehouse{DB: conn}
}

func (w *SqliteWarehouse) TryAcquireRunLease(ctx context.Context, batchID int64) (bool, error) {
	if w.DB == nil {
		return false, errors.New("sqlite warehouse: DB is nil")
	}

	ttl := w.LeaseTTL
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	now := time.Now().UTC()

	// A lease older than the TTL belongs to a run that never reached its
	// closing stage; take it over instead of blocking forever.
	res, err := w.DB.ExecContext(ctx, `
	INSERT INTO etl_lease (id, batch_id, acquired_at)
	VALUES (1, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		batch_id = excluded.batch_id,
		acquired_at = excluded.acquired_at
	WHERE etl_lease.acquired_at < ?;
	`, batchID, now.Format(datetimeLayout), now.Add(-ttl).Format(datetimeLayout))
	if err != nil {
		return false, fmt.Errorf("acquire lease: batch_id=%d: %w", batchID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease: rows affected: %w", err)
	}

	w.leaseHeld = n == 1
	return w.leaseHeld, nil
}

func (w *SqliteWarehouse) ReleaseRunLease(ctx context.Context) error {
	if !w.leaseHeld {
		return nil
	}

	if _, err := w.DB.ExecContext(ctx, `DELETE FROM etl_lease WHERE id = 1;`); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	w.leaseHeld = false
	return nil
}

func (w *SqliteWarehouse) CurrentDrivers(ctx context.Context, driverIDs []int) (map[int]domain.DriverDim, error) {
	out := make(map[int]domain.DriverDim, len(driverIDs))
	if len(driverIDs) == 0 {
		return out, nil
	}

	placeholders, args := intPlaceholders(driverIDs)

	// SQLite does not support binding slices in an IN (...) clause. Only the
	// placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT driver_id, employee_code, full_name, license_number,
	       license_expiry, phone, hire_date, status,
	       valid_from, valid_to, is_current
	FROM dim_driver
	WHERE is_current = 1 AND driver_id IN (%s);
	`, placeholders)

	rows, err := w.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("current drivers: query dim_driver: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			d                                            domain.DriverDim
			licenseExpiry, hireDate, validFrom, validTo string
		)
		err := rows.Scan(
			&d.DriverID, &d.EmployeeCode, &d.FullName, &d.LicenseNumber,
			&licenseExpiry, &d.Phone, &hireDate, &d.Status,
			&validFrom, &validTo, &d.IsCurrent,
		)
		if err != nil {
			return nil, fmt.Errorf("current drivers: scan row: %w", err)
		}

		if d.LicenseExpiry, err = parseDate(licenseExpiry); err != nil {
			return nil, fmt.Errorf("current drivers: driver_id=%d license_expiry: %w", d.DriverID, err)
		}
		if d.HireDate, err = parseDate(hireDate); err != nil {
			return nil, fmt.Errorf("current drivers: driver_id=%d hire_date: %w", d.DriverID, err)
		}
		if d.ValidFrom, err = parseDate(validFrom); err != nil {
			return nil, fmt.Errorf("current drivers: driver_id=%d valid_from: %w", d.DriverID, err)
		}
		if d.ValidTo, err = parseDate(validTo); err != nil {
			return nil, fmt.Errorf("current drivers: driver_id=%d valid_to: %w", d.DriverID, err)
		}

		out[d.DriverID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("current drivers: row iteration: %w", err)
	}

	return out, nil
}

func (w *SqliteWarehouse) CurrentVehicles(ctx context.Context, vehicleIDs []int) (map[int]domain.VehicleDim, error) {
	out := make(map[int]domain.VehicleDim, len(vehicleIDs))
	if len(vehicleIDs) == 0 {
		return out, nil
	}

	placeholders, args := intPlaceholders(vehicleIDs)

	q := fmt.Sprintf(`
	SELECT vehicle_id, license_plate, vehicle_type, capacity_kg,
	       fuel_type, acquisition_date, status,
	       valid_from, valid_to, is_current
	FROM dim_vehicle
	WHERE is_current = 1 AND vehicle_id IN (%s);
	`, placeholders)

	rows, err := w.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("current vehicles: query dim_vehicle: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			v                                    domain.VehicleDim
			acquisitionDate, validFrom, validTo string
		)
		err := rows.Scan(
			&v.VehicleID, &v.LicensePlate, &v.VehicleType, &v.CapacityKg,
			&v.FuelType, &acquisitionDate, &v.Status,
			&validFrom, &validTo, &v.IsCurrent,
		)
		if err != nil {
			return nil, fmt.Errorf("current vehicles: scan row: %w", err)
		}

		if v.AcquisitionDate, err = parseDate(acquisitionDate); err != nil {
			return nil, fmt.Errorf("current vehicles: vehicle_id=%d acquisition_date: %w", v.VehicleID, err)
		}
		if v.ValidFrom, err = parseDate(validFrom); err != nil {
			return nil, fmt.Errorf("current vehicles: vehicle_id=%d valid_from: %w", v.VehicleID, err)
		}
		if v.ValidTo, err = parseDate(validTo); err != nil {
			return nil, fmt.Errorf("current vehicles: vehicle_id=%d valid_to: %w", v.VehicleID, err)
		}

		out[v.VehicleID] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("current vehicles: row iteration: %w", err)
	}

	return out, nil
}

func (w *SqliteWarehouse) ExistingCustomers(ctx context.Context, names []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(names))
	if len(names) == 0 {
		return out, nil
	}

	ph := make([]string, 0, len(names))
	args := make([]any, 0, len(names))
	for _, n := range names {
		ph = append(ph, "?")
		args = append(args, n)
	}

	q := fmt.Sprintf(`
	SELECT customer_name
	FROM dim_customer
	WHERE customer_name IN (%s);
	`, strings.Join(ph, ","))

	rows, err := w.DB.QueryContext(ctx, q, args...)
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

func (w *SqliteWarehouse) ApplyDimensionMerge(ctx context.Context, plan ports.MergePlan) error {
	if plan.Empty() {
		return nil
	}

	closeDate := plan.BatchDate.AddDate(0, 0, -1).Format(dateLayout)

	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply dimension merge: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(plan.CloseDrivers) > 0 {
		placeholders, args := intPlaceholders(plan.CloseDrivers)
		q := fmt.Sprintf(`
		UPDATE dim_driver
		SET valid_to = ?, is_current = 0
		WHERE is_current = 1 AND driver_id IN (%s);
		`, placeholders)

		if _, err := tx.ExecContext(ctx, q, append([]any{closeDate}, args...)...); err != nil {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1);
		`, d.DriverID, d.EmployeeCode, d.FullName, d.LicenseNumber,
			d.LicenseExpiry.Format(dateLayout), d.Phone, d.HireDate.Format(dateLayout), d.Status,
			d.ValidFrom.Format(dateLayout), d.ValidTo.Format(dateLayout))
		if err != nil {
			return fmt.Errorf("apply dimension merge: insert driver_id=%d: %w", d.DriverID, err)
		}
	}

	if len(plan.CloseVehicles) > 0 {
		placeholders, args := intPlaceholders(plan.CloseVehicles)
		q := fmt.Sprintf(`
		UPDATE dim_vehicle
		SET valid_to = ?, is_current = 0
		WHERE is_current = 1 AND vehicle_id IN (%s);
		`, placeholders)

		if _, err := tx.ExecContext(ctx, q, append([]any{closeDate}, args...)...); err != nil {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1);
		`, v.VehicleID, v.LicensePlate, v.VehicleType, v.CapacityKg,
			v.FuelType, v.AcquisitionDate.Format(dateLayout), v.Status,
			v.ValidFrom.Format(dateLayout), v.ValidTo.Format(dateLayout))
		if err != nil {
			return fmt.Errorf("apply dimension merge: insert vehicle_id=%d: %w", v.VehicleID, err)
		}
	}

	for _, c := range plan.InsertCustomers {
		_, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO dim_customer (
			customer_name, customer_type, city,
			first_delivery_date, total_deliveries, customer_category
		)
		VALUES (?, ?, ?, ?, ?, ?);
		`, c.CustomerName, c.CustomerType, c.City,
			c.FirstDeliveryDate.Format(dateLayout), c.TotalDeliveries, c.CustomerCategory)
		if err != nil {
			return fmt.Errorf("apply dimension merge: insert customer=%q: %w", c.CustomerName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply dimension merge: commit tx: %w", err)
	}

	return nil
}

func (w *SqliteWarehouse) InsertFacts(ctx context.Context, facts []domain.FactDelivery) error {
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
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return fmt.Errorf("insert facts: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		_, err := stmt.ExecContext(ctx,
			f.DeliveryID, f.TripID, f.RouteID, f.VehicleID, f.DriverID, f.CustomerName,
			f.ScheduledDatetime.Format(datetimeLayout), f.DeliveredDatetime.Format(datetimeLayout),
			f.PackageWeightKg, f.DistanceKm,
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

func (w *SqliteWarehouse) InsertDailyTotals(ctx context.Context, totalDate time.Time, batchID int64) (domain.DailyTotals, error) {
	date := totalDate.Format(dateLayout)

	_, err := w.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO daily_totals (
		total_date, total_deliveries, avg_delivery_time,
		avg_fuel_efficiency, total_revenue, etl_batch_id
	)
	SELECT ?,
	       COUNT(*),
	       ROUND(AVG(delivery_time_minutes), 2),
	       ROUND(AVG(fuel_efficiency_km_per_liter), 2),
	       ROUND(SUM(revenue_per_delivery), 2),
	       ?
	FROM fact_deliveries
	WHERE etl_batch_id = ?;
	`, date, batchID, batchID)
	if err != nil {
		return domain.DailyTotals{}, fmt.Errorf("insert daily totals: batch_id=%d: %w", batchID, err)
	}

	var (
		t       domain.DailyTotals
		scanned string
	)
	err = w.DB.QueryRowContext(ctx, `
	SELECT total_date, total_deliveries, avg_delivery_time,
	       avg_fuel_efficiency, total_revenue, etl_batch_id
	FROM daily_totals
	WHERE total_date = ? AND etl_batch_id = ?;
	`, date, batchID).Scan(
		&scanned, &t.TotalDeliveries, &t.AvgDeliveryTime,
		&t.AvgFuelEfficiency, &t.TotalRevenue, &t.ETLBatchID,
	)
	if err != nil {
		return domain.DailyTotals{}, fmt.Errorf("insert daily totals: read back batch_id=%d: %w", batchID, err)
	}

	if t.TotalDate, err = parseDate(scanned); err != nil {
		return domain.DailyTotals{}, fmt.Errorf("insert daily totals: total_date: %w", err)
	}

	return t, nil
}

func (w *SqliteWarehouse) Close() error {
	if w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

func intPlaceholders(ids []int) (string, []any) {
	ph := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		ph = append(ph, "?")
		args = append(args, id)
	}
	return strings.Join(ph, ","), args
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", v, err)
	}
	return t, nil
}
