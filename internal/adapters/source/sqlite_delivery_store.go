package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/platform/db"
	"fleet-etl-service/internal/ports"
)

const sqliteDatetimeLayout = "2006-01-02 15:04:05"
const sqliteDateLayout = "2006-01-02"

// SqliteConnector opens a SQLite operational store for local and demo runs.
type SqliteConnector struct {
	Path string
}

func (c SqliteConnector) Connect(ctx context.Context) (ports.SourceConn, error) {
	conn, err := db.OpenSQLite(c.Path)
	if err != nil {
		return nil, fmt.Errorf("connect source: %w: %w", ports.ErrSourceUnavailable, err)
	}

	// Local runs create their schema on first connect.
	if err := InitSchema(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect source: %w: %w", ports.ErrSourceUnavailable, err)
	}

	return &SqliteDeliveryStore{DB: conn}, nil
}

// SQLite-backed implementation of the SourceConn port. Timestamps are stored
// as text in sqliteDatetimeLayout, dates in sqliteDateLayout.
type SqliteDeliveryStore struct {
	DB *sql.DB
}

func NewSqliteDeliveryStore(conn *sql.DB) *SqliteDeliveryStore {
	return &SqliteDeliveryStore{DB: conn}
}

func (s *SqliteDeliveryStore) ExtractDeliveries(ctx context.Context, window domain.Window) ([]domain.ExtractRecord, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite delivery store: DB is nil")
	}

	query := extractQueryBody + `
	WHERE d.delivered_datetime >= ?
	  AND d.delivered_datetime < ?
	ORDER BY d.delivery_id;
	`

	rows, err := s.DB.QueryContext(ctx, query,
		window.Start.Format(sqliteDatetimeLayout),
		window.End.Format(sqliteDatetimeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("extract deliveries: query window %s: %w: %w", window, ports.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	records := make([]domain.ExtractRecord, 0, 256)
	for rows.Next() {
		var (
			r                                        domain.ExtractRecord
			scheduled, delivered, departure, arrival string
			acquisitionDate, licenseExpiry, hireDate string
		)
		err := rows.Scan(
			&r.DeliveryID,
			&r.TripID,
			&r.TrackingNumber,
			&r.CustomerName,
			&r.DeliveryAddress,
			&r.PackageWeightKg,
			&scheduled,
			&delivered,
			&r.DeliveryStatus,
			&r.RecipientSignature,
			&departure,
			&arrival,
			&r.FuelConsumedLiters,
			&r.TotalWeightKg,
			&r.TripStatus,
			&r.RouteID,
			&r.OriginCity,
			&r.DestinationCity,
			&r.DistanceKm,
			&r.EstimatedDurationHours,
			&r.TollCost,
			&r.VehicleID,
			&r.LicensePlate,
			&r.VehicleType,
			&r.CapacityKg,
			&r.FuelType,
			&acquisitionDate,
			&r.VehicleStatus,
			&r.DriverID,
			&r.EmployeeCode,
			&r.FullName,
			&r.LicenseNumber,
			&licenseExpiry,
			&r.Phone,
			&hireDate,
			&r.DriverStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("extract deliveries: scan row: %w", err)
		}

		if r.ScheduledDatetime, err = parseDatetime(scheduled); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d scheduled_datetime: %w", r.DeliveryID, err)
		}
		if r.DeliveredDatetime, err = parseDatetime(delivered); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d delivered_datetime: %w", r.DeliveryID, err)
		}
		if r.DepartureDatetime, err = parseDatetime(departure); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d departure_datetime: %w", r.DeliveryID, err)
		}
		if r.ArrivalDatetime, err = parseDatetime(arrival); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d arrival_datetime: %w", r.DeliveryID, err)
		}
		if r.AcquisitionDate, err = parseDatetime(acquisitionDate); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d acquisition_date: %w", r.DeliveryID, err)
		}
		if r.LicenseExpiry, err = parseDatetime(licenseExpiry); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d license_expiry: %w", r.DeliveryID, err)
		}
		if r.HireDate, err = parseDatetime(hireDate); err != nil {
			return nil, fmt.Errorf("extract deliveries: delivery_id=%d hire_date: %w", r.DeliveryID, err)
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("extract deliveries: row iteration: %w: %w", ports.ErrSourceUnavailable, err)
	}

	return records, nil
}

func (s *SqliteDeliveryStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func parseDatetime(v string) (time.Time, error) {
	if t, err := time.Parse(sqliteDatetimeLayout, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(sqliteDateLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse datetime %q: %w", v, err)
	}
	return t, nil
}
