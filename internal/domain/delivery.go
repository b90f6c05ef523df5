package domain

import "time"

// ExtractRecord is one delivery event denormalized with its trip, route,
// vehicle and driver attributes as of extraction time. It is an immutable
// snapshot of the operational store and is never persisted itself.
type ExtractRecord struct {
	DeliveryID         int
	TripID             int
	TrackingNumber     string
	CustomerName       string
	DeliveryAddress    string
	PackageWeightKg    float64
	ScheduledDatetime  time.Time
	DeliveredDatetime  time.Time
	DeliveryStatus     string
	RecipientSignature string

	DepartureDatetime  time.Time
	ArrivalDatetime    time.Time
	FuelConsumedLiters float64
	TotalWeightKg      float64
	TripStatus         string

	RouteID                int
	OriginCity             string
	DestinationCity        string
	DistanceKm             float64
	EstimatedDurationHours float64
	TollCost               float64

	VehicleID       int
	LicensePlate    string
	VehicleType     string
	CapacityKg      float64
	FuelType        string
	AcquisitionDate time.Time
	VehicleStatus   string

	DriverID      int
	EmployeeCode  string
	FullName      string
	LicenseNumber string
	LicenseExpiry time.Time
	Phone         string
	HireDate      time.Time
	DriverStatus  string
}

// TransformedRecord is an ExtractRecord enriched with derived performance
// metrics and the versioning metadata the dimension merge consumes.
type TransformedRecord struct {
	ExtractRecord

	DeliveryTimeMinutes      float64
	DelayMinutes             float64
	IsOnTime                 bool
	TripDurationHours        float64
	DeliveriesInTrip         int
	DeliveriesPerHour        float64
	FuelEfficiencyKmPerLiter float64
	CostPerDelivery          float64
	RevenuePerDelivery       float64

	ValidFrom time.Time
	ValidTo   time.Time
	IsCurrent bool
}

// Window is a half-open [Start, End) interval selecting source rows by their
// delivered timestamp.
type Window struct {
	Start time.Time
	End   time.Time
}

// PreviousDay returns the full calendar day before now, in now's location.
func PreviousDay(now time.Time) Window {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return Window{Start: end.AddDate(0, 0, -1), End: end}
}

func (w Window) String() string {
	return "[" + w.Start.Format("2006-01-02 15:04:05") + ", " + w.End.Format("2006-01-02 15:04:05") + ")"
}
