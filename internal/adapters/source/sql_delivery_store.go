package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/platform/db"
	"fleet-etl-service/internal/platform/obs"
	"fleet-etl-service/internal/ports"
)

// PostgresConnector opens the operational Postgres store at run start.
type PostgresConnector struct {
	DatabaseURL string
}

func (c PostgresConnector) Connect(ctx context.Context) (ports.SourceConn, error) {
	conn, err := db.Open(c.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect source: %w: %w", ports.ErrSourceUnavailable, err)
	}
	return &SQLDeliveryStore{DB: conn}, nil
}

// Postgres-backed implementation of the SourceConn port.
type SQLDeliveryStore struct {
	DB *sql.DB
}

func NewSQLDeliveryStore(conn *sql.DB) *SQLDeliveryStore {
	return &SQLDeliveryStore{DB: conn}
}

// Extract the deliveries of the window, joined with trip, route, vehicle and
// driver reference data. Read-only; repeatable for the same window.
func (s *SQLDeliveryStore) ExtractDeliveries(ctx context.Context, window domain.Window) (_ []domain.ExtractRecord, err error) {
	defer obs.Time(ctx, "source.ExtractDeliveries")(&err)

	if s.DB == nil {
		return nil, errors.New("sql delivery store: DB is nil")
	}

	query := extractQueryBody + `
	WHERE d.delivered_datetime >= $1
	  AND d.delivered_datetime < $2
	ORDER BY d.delivery_id;
	`

	rows, err := s.DB.QueryContext(ctx, query, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("extract deliveries: query window %s: %w: %w", window, ports.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	records := make([]domain.ExtractRecord, 0, 256)
	for rows.Next() {
		var r domain.ExtractRecord
		err := rows.Scan(
			&r.DeliveryID,
			&r.TripID,
			&r.TrackingNumber,
			&r.CustomerName,
			&r.DeliveryAddress,
			&r.PackageWeightKg,
			&r.ScheduledDatetime,
			&r.DeliveredDatetime,
			&r.DeliveryStatus,
			&r.RecipientSignature,
			&r.DepartureDatetime,
			&r.ArrivalDatetime,
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
			&r.AcquisitionDate,
			&r.VehicleStatus,
			&r.DriverID,
			&r.EmployeeCode,
			&r.FullName,
			&r.LicenseNumber,
			&r.LicenseExpiry,
			&r.Phone,
			&r.HireDate,
			&r.DriverStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("extract deliveries: scan row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("extract deliveries: row iteration: %w: %w", ports.ErrSourceUnavailable, err)
	}

	return records, nil
}

func (s *SQLDeliveryStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
