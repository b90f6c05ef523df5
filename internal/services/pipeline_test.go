package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"fleet-etl-service/internal/adapters/source"
	"fleet-etl-service/internal/adapters/warehouse"
	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/ports"

	_ "modernc.org/sqlite"
)

// Test connectors hand the pipeline stores over shared in-memory databases
// and swallow Close so assertions can inspect the warehouse afterwards.

type reuseSourceConnector struct{ conn ports.SourceConn }

func (c reuseSourceConnector) Connect(ctx context.Context) (ports.SourceConn, error) {
	return c.conn, nil
}

type keepOpenSource struct{ ports.SourceConn }

func (keepOpenSource) Close() error { return nil }

type reuseWarehouseConnector struct{ conn ports.WarehouseConn }

func (c reuseWarehouseConnector) Connect(ctx context.Context) (ports.WarehouseConn, error) {
	return c.conn, nil
}

type keepOpenWarehouse struct{ ports.WarehouseConn }

func (keepOpenWarehouse) Close() error { return nil }

type failingSourceConnector struct{}

func (failingSourceConnector) Connect(context.Context) (ports.SourceConn, error) {
	return nil, ports.ErrSourceUnavailable
}

type failingWarehouseConnector struct{}

func (failingWarehouseConnector) Connect(context.Context) (ports.WarehouseConn, error) {
	return nil, errors.New("warehouse down")
}

type closeRecorder struct {
	ports.SourceConn
	closed *bool
}

func (c closeRecorder) Close() error {
	*c.closed = true
	return nil
}

var errMergeFailed = errors.New("dimension merge failed")

type mergeFailWarehouse struct {
	ports.WarehouseConn
	closed *bool
}

func (w mergeFailWarehouse) ApplyDimensionMerge(context.Context, ports.MergePlan) error {
	return errMergeFailed
}

func (w mergeFailWarehouse) Close() error {
	*w.closed = true
	return nil
}

func openMemory(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newSourceDB(t *testing.T, seedDeliveries bool) *sql.DB {
	t.Helper()

	conn := openMemory(t)
	if err := source.InitSchema(conn); err != nil {
		t.Fatalf("init source schema: %v", err)
	}
	if !seedDeliveries {
		return conn
	}

	statements := []string{
		`INSERT INTO drivers VALUES (1, 'DRV-001', 'Carlos', 'Mendez', 'LIC-58291', '2027-06-30', '555-0101', '2021-03-15', 'Active');`,
		`INSERT INTO vehicles VALUES (1, 'ABC-123', 'Van', 1200, 'Diesel', '2020-05-20', 'Active');`,
		`INSERT INTO routes VALUES (1, 'Bogota', 'Medellin', 400, 8.5, 10000);`,
		`INSERT INTO trips VALUES (1, 1, 1, 1, '2024-01-01 06:00:00', '2024-01-01 14:30:00', 50, 860, 'Completed');`,
		`INSERT INTO deliveries VALUES (1, 1, 'TRK-0001', 'Almacenes Rio', 'Calle 10', 120,
			'2024-01-01 09:00:00', '2024-01-01 09:25:00', 'Delivered', 'A. Rios');`,
		`INSERT INTO deliveries VALUES (2, 1, 'TRK-0002', 'Ferreteria Central', 'Carrera 50', 340,
			'2024-01-01 11:00:00', '2024-01-01 12:05:00', 'Delivered', 'F. Gomez');`,
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("seed source: %v", err)
		}
	}
	return conn
}

func newWarehouseDB(t *testing.T) (*sql.DB, *warehouse.SqliteWarehouse) {
	t.Helper()

	conn := openMemory(t)
	if err := warehouse.InitSqliteSchema(conn); err != nil {
		t.Fatalf("init warehouse schema: %v", err)
	}
	return conn, warehouse.NewSqliteWarehouse(conn)
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 2, 0, 0, 0, time.UTC)
}

func TestPipelineRunFullBatch(t *testing.T) {
	srcDB := newSourceDB(t, true)
	whDB, wh := newWarehouseDB(t)

	p := NewPipeline(
		reuseSourceConnector{keepOpenSource{source.NewSqliteDeliveryStore(srcDB)}},
		reuseWarehouseConnector{keepOpenWarehouse{wh}},
		time.Minute,
	)
	p.Now = fixedClock

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.State != domain.StateDone {
		t.Errorf("state = %s, want done", summary.State)
	}
	if summary.BatchID != fixedClock().Unix() {
		t.Errorf("batch_id = %d, want %d", summary.BatchID, fixedClock().Unix())
	}
	if summary.Metrics.RecordsExtracted != 2 || summary.Metrics.RecordsTransformed != 2 || summary.Metrics.RecordsLoaded != 2 {
		t.Errorf("metrics = %+v, want 2/2/2", summary.Metrics)
	}
	if summary.Metrics.Errors != 0 {
		t.Errorf("errors = %d, want 0", summary.Metrics.Errors)
	}

	var facts int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM fact_deliveries WHERE etl_batch_id = ?;`, summary.BatchID).Scan(&facts); err != nil {
		t.Fatalf("count facts: %v", err)
	}
	if facts != 2 {
		t.Errorf("fact rows = %d, want 2", facts)
	}

	var currentDrivers int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM dim_driver WHERE driver_id = 1 AND is_current = 1;`).Scan(&currentDrivers); err != nil {
		t.Fatalf("count current drivers: %v", err)
	}
	if currentDrivers != 1 {
		t.Errorf("current driver rows = %d, want 1", currentDrivers)
	}

	var customers int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM dim_customer;`).Scan(&customers); err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if customers != 2 {
		t.Errorf("customer rows = %d, want 2", customers)
	}

	var totalDeliveries int
	err = whDB.QueryRow(`
	SELECT total_deliveries FROM daily_totals
	WHERE total_date = '2024-01-02' AND etl_batch_id = ?;
	`, summary.BatchID).Scan(&totalDeliveries)
	if err != nil {
		t.Fatalf("read daily totals: %v", err)
	}
	if totalDeliveries != 2 {
		t.Errorf("total_deliveries = %d, want 2", totalDeliveries)
	}

	var leases int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM etl_lease;`).Scan(&leases); err != nil {
		t.Fatalf("count leases: %v", err)
	}
	if leases != 0 {
		t.Errorf("lease rows after run = %d, want 0 (released at closing)", leases)
	}
}

func TestPipelineEmptyWindow(t *testing.T) {
	srcDB := newSourceDB(t, false)
	whDB, wh := newWarehouseDB(t)

	p := NewPipeline(
		reuseSourceConnector{keepOpenSource{source.NewSqliteDeliveryStore(srcDB)}},
		reuseWarehouseConnector{keepOpenWarehouse{wh}},
		time.Minute,
	)
	p.Now = fixedClock

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("empty window must not fail the run: %v", err)
	}
	if summary.State != domain.StateDone {
		t.Errorf("state = %s, want done", summary.State)
	}
	if summary.Metrics.RecordsExtracted != 0 || summary.Metrics.RecordsLoaded != 0 {
		t.Errorf("metrics = %+v, want zero records", summary.Metrics)
	}

	var totals int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM daily_totals;`).Scan(&totals); err != nil {
		t.Fatalf("count totals: %v", err)
	}
	if totals != 0 {
		t.Errorf("daily_totals rows = %d, want 0 for empty window", totals)
	}

	var leases int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM etl_lease;`).Scan(&leases); err != nil {
		t.Fatalf("count leases: %v", err)
	}
	if leases != 0 {
		t.Errorf("lease rows after run = %d, want 0", leases)
	}
}

func TestPipelineSourceConnectFailure(t *testing.T) {
	_, wh := newWarehouseDB(t)

	p := NewPipeline(failingSourceConnector{}, reuseWarehouseConnector{keepOpenWarehouse{wh}}, time.Minute)
	p.Now = fixedClock

	summary, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("want error when source is unreachable")
	}
	if !errors.Is(err, ports.ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
	if summary.State != domain.StateFailed {
		t.Errorf("state = %s, want failed", summary.State)
	}
	if summary.Metrics.Errors == 0 {
		t.Error("errors = 0, want at least 1")
	}
}

func TestPipelineWarehouseConnectFailureClosesSource(t *testing.T) {
	srcDB := newSourceDB(t, false)

	var sourceClosed bool
	src := closeRecorder{SourceConn: source.NewSqliteDeliveryStore(srcDB), closed: &sourceClosed}

	p := NewPipeline(
		reuseSourceConnector{src},
		failingWarehouseConnector{},
		time.Minute,
	)
	p.Now = fixedClock

	summary, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("want error when warehouse is unreachable")
	}
	if summary.State != domain.StateFailed {
		t.Errorf("state = %s, want failed", summary.State)
	}
	if !sourceClosed {
		t.Error("source connection not closed on warehouse failure")
	}
}

func TestPipelineDimensionMergeFailure(t *testing.T) {
	srcDB := newSourceDB(t, true)
	whDB, wh := newWarehouseDB(t)

	var srcClosed, whClosed bool
	src := closeRecorder{SourceConn: source.NewSqliteDeliveryStore(srcDB), closed: &srcClosed}

	p := NewPipeline(
		reuseSourceConnector{src},
		reuseWarehouseConnector{mergeFailWarehouse{WarehouseConn: wh, closed: &whClosed}},
		time.Minute,
	)
	p.Now = fixedClock

	summary, err := p.Run(context.Background())
	if !errors.Is(err, errMergeFailed) {
		t.Fatalf("err = %v, want merge failure", err)
	}
	if summary.State != domain.StateFailed {
		t.Errorf("state = %s, want failed", summary.State)
	}
	if summary.Metrics.Errors == 0 {
		t.Error("errors = 0, want at least 1")
	}
	if summary.Metrics.RecordsLoaded != 0 {
		t.Errorf("records_loaded = %d, want 0", summary.Metrics.RecordsLoaded)
	}

	var facts int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM fact_deliveries;`).Scan(&facts); err != nil {
		t.Fatalf("count facts: %v", err)
	}
	if facts != 0 {
		t.Errorf("fact rows = %d, want 0 after failed dimension load", facts)
	}

	// The failed run still passes through closing.
	var leases int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM etl_lease;`).Scan(&leases); err != nil {
		t.Fatalf("count leases: %v", err)
	}
	if leases != 0 {
		t.Errorf("lease rows after failed run = %d, want 0", leases)
	}
	if !whClosed {
		t.Error("warehouse connection not closed after failed run")
	}
	if !srcClosed {
		t.Error("source connection not closed after failed run")
	}
}

func TestPipelineLeaseHeld(t *testing.T) {
	srcDB := newSourceDB(t, true)
	whDB, wh := newWarehouseDB(t)

	// Simulate a concurrent run holding the lease.
	holder := warehouse.NewSqliteWarehouse(whDB)
	ok, err := holder.TryAcquireRunLease(context.Background(), 999)
	if err != nil || !ok {
		t.Fatalf("pre-acquire lease: ok=%v err=%v", ok, err)
	}

	p := NewPipeline(
		reuseSourceConnector{keepOpenSource{source.NewSqliteDeliveryStore(srcDB)}},
		reuseWarehouseConnector{keepOpenWarehouse{wh}},
		time.Minute,
	)
	p.Now = fixedClock

	summary, err := p.Run(context.Background())
	if !errors.Is(err, ports.ErrLeaseHeld) {
		t.Fatalf("err = %v, want ErrLeaseHeld", err)
	}
	if summary.State != domain.StateFailed {
		t.Errorf("state = %s, want failed", summary.State)
	}

	var facts int
	if err := whDB.QueryRow(`SELECT COUNT(*) FROM fact_deliveries;`).Scan(&facts); err != nil {
		t.Fatalf("count facts: %v", err)
	}
	if facts != 0 {
		t.Errorf("fact rows = %d, want 0 when lease is held", facts)
	}
}
