package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/platform/obs"
	"fleet-etl-service/internal/ports"
)

// Pipeline runs one ETL batch end to end: connect, extract, transform, merge
// dimensions, append facts, aggregate, close. It owns batch identity and both
// connection lifetimes; connections are opened at run start and released on
// every exit path.
type Pipeline struct {
	Source    ports.SourceConnector
	Warehouse ports.WarehouseConnector

	// RunTimeout bounds everything up to closing; the release path runs on
	// its own short context so cancellation cannot leak handles.
	RunTimeout time.Duration

	Now func() time.Time
}

func NewPipeline(source ports.SourceConnector, warehouse ports.WarehouseConnector, runTimeout time.Duration) *Pipeline {
	return &Pipeline{
		Source:     source,
		Warehouse:  warehouse,
		RunTimeout: runTimeout,
		Now:        time.Now,
	}
}

const closeTimeout = 15 * time.Second

// Run executes a single batch and always returns a summary, success or
// failure. Stage-local row problems are dropped and counted; connection,
// query and commit failures fail the run.
func (p *Pipeline) Run(ctx context.Context) (summary domain.RunSummary, err error) {
	start := p.Now()
	batchID := start.Unix()
	window := domain.PreviousDay(start)
	batchDate := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())

	summary = domain.RunSummary{
		BatchID:   batchID,
		Window:    window,
		State:     domain.StateIdle,
		StartedAt: start,
	}

	ctx = obs.WithBatchID(ctx, batchID)
	log.Printf("batch_id=%d state=starting window=%s", batchID, window)

	defer func() {
		summary.FinishedAt = p.Now()
		summary.Metrics.Duration = summary.FinishedAt.Sub(summary.StartedAt)
		if err != nil {
			summary.State = domain.StateFailed
		} else {
			summary.State = domain.StateDone
		}
		log.Printf(
			"batch_id=%d state=%s extracted=%d transformed=%d loaded=%d errors=%d dur=%dms",
			summary.BatchID, summary.State,
			summary.Metrics.RecordsExtracted, summary.Metrics.RecordsTransformed,
			summary.Metrics.RecordsLoaded, summary.Metrics.Errors,
			summary.Metrics.Duration.Milliseconds(),
		)
	}()

	if p.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.RunTimeout)
		defer cancel()
	}

	// connecting
	summary.State = domain.StateConnecting
	src, err := p.Source.Connect(ctx)
	if err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: connect source: %w", err)
	}

	var (
		wh        ports.WarehouseConn
		leaseHeld bool
	)

	// closing runs on every exit path.
	defer func() {
		summary.State = domain.StateClosing
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		if wh != nil {
			if leaseHeld {
				if rerr := wh.ReleaseRunLease(closeCtx); rerr != nil {
					summary.Metrics.Errors++
					log.Printf("batch_id=%d op=release_lease err=%v", batchID, rerr)
				}
			}
			if cerr := wh.Close(); cerr != nil {
				summary.Metrics.Errors++
				log.Printf("batch_id=%d op=close_warehouse err=%v", batchID, cerr)
			}
		}
		if cerr := src.Close(); cerr != nil {
			summary.Metrics.Errors++
			log.Printf("batch_id=%d op=close_source err=%v", batchID, cerr)
		}
	}()

	wh, err = p.Warehouse.Connect(ctx)
	if err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: connect warehouse: %w", err)
	}

	ok, err := wh.TryAcquireRunLease(ctx, batchID)
	if err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: acquire lease: %w", err)
	}
	if !ok {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: %w", ports.ErrLeaseHeld)
	}
	leaseHeld = true

	// extracting
	summary.State = domain.StateExtracting
	records, err := src.ExtractDeliveries(ctx, window)
	if err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: extract window %s: %w", window, err)
	}
	summary.Metrics.RecordsExtracted = len(records)
	if len(records) == 0 {
		// An empty window is "nothing to do", not a failure.
		log.Printf("batch_id=%d state=extracting records=0 msg=empty_window", batchID)
		return summary, nil
	}

	// transforming
	summary.State = domain.StateTransforming
	transformed, dropped := TransformDeliveries(records)
	summary.Metrics.RecordsTransformed = len(transformed)
	if dropped > 0 {
		log.Printf("batch_id=%d state=transforming dropped=%d", batchID, dropped)
	}
	if len(transformed) == 0 {
		log.Printf("batch_id=%d state=transforming records=0 msg=all_rows_dropped", batchID)
		return summary, nil
	}

	// loading_dimensions: must commit before facts so facts reference
	// dimension keys in a settled state.
	summary.State = domain.StateLoadingDimensions
	plan, err := BuildMergePlan(ctx, wh, transformed, batchDate)
	if err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: plan dimension merge: %w", err)
	}
	if err := wh.ApplyDimensionMerge(ctx, plan); err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: apply dimension merge: %w", err)
	}

	// loading_facts
	summary.State = domain.StateLoadingFacts
	facts := BuildFacts(transformed, batchID)
	if err := wh.InsertFacts(ctx, facts); err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: insert facts: %w", err)
	}
	summary.Metrics.RecordsLoaded = len(facts)

	// aggregating
	summary.State = domain.StateAggregating
	totals, err := wh.InsertDailyTotals(ctx, batchDate, batchID)
	if err != nil {
		summary.Metrics.Errors++
		return summary, fmt.Errorf("run: insert daily totals: %w", err)
	}
	log.Printf(
		"batch_id=%d state=aggregating deliveries=%d avg_delivery_time=%.2f avg_fuel_efficiency=%.2f total_revenue=%.2f",
		batchID, totals.TotalDeliveries, totals.AvgDeliveryTime, totals.AvgFuelEfficiency, totals.TotalRevenue,
	)

	return summary, nil
}
