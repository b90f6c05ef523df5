package domain

import "time"

// FactDelivery is an immutable record of one delivery outcome tagged with the
// batch that produced it. Facts are never updated; corrections arrive as new
// facts in a later batch.
type FactDelivery struct {
	DeliveryID               int
	TripID                   int
	RouteID                  int
	VehicleID                int
	DriverID                 int
	CustomerName             string
	ScheduledDatetime        time.Time
	DeliveredDatetime        time.Time
	PackageWeightKg          float64
	DistanceKm               float64
	DeliveryTimeMinutes      float64
	DelayMinutes             float64
	IsOnTime                 bool
	DeliveriesPerHour        float64
	FuelEfficiencyKmPerLiter float64
	CostPerDelivery          float64
	RevenuePerDelivery       float64
	ETLBatchID               int64
}

// DailyTotals is the pre-aggregated rollup for one (date, batch) pair,
// derived entirely from the facts of that batch.
type DailyTotals struct {
	TotalDate         time.Time
	TotalDeliveries   int
	AvgDeliveryTime   float64
	AvgFuelEfficiency float64
	TotalRevenue      float64
	ETLBatchID        int64
}
