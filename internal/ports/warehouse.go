package ports

import (
	"context"
	"errors"
	"time"

	"fleet-etl-service/internal/domain"
)

// ErrLeaseHeld means another run already holds the warehouse run lease.
var ErrLeaseHeld = errors.New("run lease held by another batch")

// MergePlan is the full set of dimension writes for one batch. It is applied
// in a single transaction: partial application could leave two current rows
// for a key.
type MergePlan struct {
	BatchDate       time.Time
	CloseDrivers    []int
	InsertDrivers   []domain.DriverDim
	CloseVehicles   []int
	InsertVehicles  []domain.VehicleDim
	InsertCustomers []domain.CustomerDim
}

func (p MergePlan) Empty() bool {
	return len(p.CloseDrivers) == 0 && len(p.InsertDrivers) == 0 &&
		len(p.CloseVehicles) == 0 && len(p.InsertVehicles) == 0 &&
		len(p.InsertCustomers) == 0
}

// Port: a boundary for opening the warehouse at run start.
type WarehouseConnector interface {
	Connect(ctx context.Context) (WarehouseConn, error)
}

// WarehouseConn is an exclusively owned connection to the dimensional
// warehouse, held for the duration of one run.
type WarehouseConn interface {
	// TryAcquireRunLease claims the single active-batch slot. It returns
	// false (not an error) when another run holds it.
	TryAcquireRunLease(ctx context.Context, batchID int64) (bool, error)
	ReleaseRunLease(ctx context.Context) error

	// Current* return the is_current version per natural key, for the keys
	// present in the batch.
	CurrentDrivers(ctx context.Context, driverIDs []int) (map[int]domain.DriverDim, error)
	CurrentVehicles(ctx context.Context, vehicleIDs []int) (map[int]domain.VehicleDim, error)
	ExistingCustomers(ctx context.Context, names []string) (map[string]struct{}, error)

	// ApplyDimensionMerge commits the whole plan or nothing.
	ApplyDimensionMerge(ctx context.Context, plan MergePlan) error

	// InsertFacts appends batch-tagged fact rows. Strictly append: facts are
	// never updated or deleted.
	InsertFacts(ctx context.Context, facts []domain.FactDelivery) error

	// InsertDailyTotals recomputes the rollup for exactly the facts tagged
	// with batchID and upserts the (totalDate, batchID) row.
	InsertDailyTotals(ctx context.Context, totalDate time.Time, batchID int64) (domain.DailyTotals, error)

	Close() error
}
