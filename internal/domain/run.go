package domain

import "time"

// RunState tracks a pipeline run through its stages. A run that fails in any
// stage still passes through closing before finishing.
type RunState string

const (
	StateIdle              RunState = "idle"
	StateConnecting        RunState = "connecting"
	StateExtracting        RunState = "extracting"
	StateTransforming      RunState = "transforming"
	StateLoadingDimensions RunState = "loading_dimensions"
	StateLoadingFacts      RunState = "loading_facts"
	StateAggregating       RunState = "aggregating"
	StateClosing           RunState = "closing"
	StateDone              RunState = "done"
	StateFailed            RunState = "failed"
)

// RunMetrics is the operational summary every run emits, success or failure.
type RunMetrics struct {
	RecordsExtracted   int
	RecordsTransformed int
	RecordsLoaded      int
	Errors             int
	Duration           time.Duration
}

// RunSummary describes one completed pipeline run. BatchID is assigned once
// at connecting and tags every row the run writes.
type RunSummary struct {
	BatchID    int64
	Window     Window
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time
	Metrics    RunMetrics
}
