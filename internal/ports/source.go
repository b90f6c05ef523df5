package ports

import (
	"context"
	"errors"

	"fleet-etl-service/internal/domain"
)

// ErrSourceUnavailable distinguishes a broken operational store (cannot
// connect, query failed) from a window that legitimately had no deliveries.
var ErrSourceUnavailable = errors.New("source unavailable")

// Port: a boundary for opening the operational store at run start.
type SourceConnector interface {
	Connect(ctx context.Context) (SourceConn, error)
}

// SourceConn is an exclusively owned connection to the operational store,
// held for the duration of one run.
type SourceConn interface {
	// ExtractDeliveries returns every delivery whose delivered timestamp
	// falls in the half-open window, joined with trip, route, vehicle and
	// driver attributes. Read-only and repeatable for the same window.
	ExtractDeliveries(ctx context.Context, window domain.Window) ([]domain.ExtractRecord, error)
	Close() error
}
