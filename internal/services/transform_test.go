package services

import (
	"testing"
	"time"

	"fleet-etl-service/internal/domain"
)

func baseRecord() domain.ExtractRecord {
	return domain.ExtractRecord{
		DeliveryID:         1,
		TripID:             1,
		TrackingNumber:     "TRK-0001",
		CustomerName:       "Almacenes Rio",
		PackageWeightKg:    120,
		ScheduledDatetime:  time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		DeliveredDatetime:  time.Date(2024, 1, 1, 9, 25, 0, 0, time.UTC),
		DepartureDatetime:  time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
		ArrivalDatetime:    time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC),
		FuelConsumedLiters: 50,
		RouteID:            1,
		DestinationCity:    "Medellin",
		DistanceKm:         400,
		TollCost:           10000,
		VehicleID:          1,
		VehicleStatus:      "Active",
		DriverID:           1,
		FullName:           "Carlos Mendez",
		DriverStatus:       "Active",
	}
}

func TestTransformDerivedMetrics(t *testing.T) {
	out, dropped := TransformDeliveries([]domain.ExtractRecord{baseRecord()})
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}

	r := out[0]
	if r.DeliveryTimeMinutes != 25 {
		t.Errorf("delivery_time_minutes = %v, want 25", r.DeliveryTimeMinutes)
	}
	if r.DelayMinutes != 25 {
		t.Errorf("delay_minutes = %v, want 25", r.DelayMinutes)
	}
	if !r.IsOnTime {
		t.Error("is_on_time = false, want true")
	}
	if r.TripDurationHours != 8.5 {
		t.Errorf("trip_duration_hours = %v, want 8.5", r.TripDurationHours)
	}
	if r.DeliveriesPerHour != 0.12 {
		t.Errorf("deliveries_per_hour = %v, want 0.12", r.DeliveriesPerHour)
	}
	if r.FuelEfficiencyKmPerLiter != 8 {
		t.Errorf("fuel_efficiency_km_per_liter = %v, want 8", r.FuelEfficiencyKmPerLiter)
	}
	if r.CostPerDelivery != 260000 {
		t.Errorf("cost_per_delivery = %v, want 260000", r.CostPerDelivery)
	}
	if r.RevenuePerDelivery != 80000 {
		t.Errorf("revenue_per_delivery = %v, want 80000", r.RevenuePerDelivery)
	}

	wantValidFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !r.ValidFrom.Equal(wantValidFrom) {
		t.Errorf("valid_from = %v, want %v", r.ValidFrom, wantValidFrom)
	}
	if !r.ValidTo.Equal(domain.OpenEndDate) {
		t.Errorf("valid_to = %v, want open sentinel", r.ValidTo)
	}
	if !r.IsCurrent {
		t.Error("is_current = false, want true")
	}
}

func TestTransformLateDelivery(t *testing.T) {
	rec := baseRecord()
	rec.DeliveredDatetime = time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)

	out, _ := TransformDeliveries([]domain.ExtractRecord{rec})
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].DelayMinutes != 65 {
		t.Errorf("delay_minutes = %v, want 65", out[0].DelayMinutes)
	}
	if out[0].IsOnTime {
		t.Error("is_on_time = true, want false")
	}
}

func TestTransformOnTimeBoundary(t *testing.T) {
	cases := []struct {
		name      string
		delivered time.Time
		want      bool
	}{
		{"exactly 30 minutes", time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC), true},
		{"30.01 minutes", time.Date(2024, 1, 1, 9, 30, 0, 600e6, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := baseRecord()
			rec.DeliveredDatetime = tc.delivered

			out, _ := TransformDeliveries([]domain.ExtractRecord{rec})
			if len(out) != 1 {
				t.Fatalf("len(out) = %d, want 1", len(out))
			}
			if out[0].IsOnTime != tc.want {
				t.Errorf("is_on_time = %v, want %v (delay=%v)", out[0].IsOnTime, tc.want, out[0].DelayMinutes)
			}
		})
	}
}

func TestTransformQualityFilters(t *testing.T) {
	overweight := baseRecord()
	overweight.DeliveryID = 2
	overweight.PackageWeightKg = 15000

	weightless := baseRecord()
	weightless.DeliveryID = 3
	weightless.PackageWeightKg = 0

	early := baseRecord()
	early.DeliveryID = 4
	early.DeliveredDatetime = early.ScheduledDatetime.Add(-10 * time.Minute)

	zeroTrip := baseRecord()
	zeroTrip.DeliveryID = 5
	zeroTrip.ArrivalDatetime = zeroTrip.DepartureDatetime

	noFuel := baseRecord()
	noFuel.DeliveryID = 6
	noFuel.FuelConsumedLiters = 0

	out, dropped := TransformDeliveries([]domain.ExtractRecord{
		baseRecord(), overweight, weightless, early, zeroTrip, noFuel,
	})

	if dropped != 5 {
		t.Errorf("dropped = %d, want 5", dropped)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].DeliveryID != 1 {
		t.Errorf("surviving delivery_id = %d, want 1", out[0].DeliveryID)
	}
}

func TestTransformGroupsByTrip(t *testing.T) {
	first := baseRecord()
	first.TripID = 5
	first.DepartureDatetime = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	first.ArrivalDatetime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	second := first
	second.DeliveryID = 2
	second.DeliveredDatetime = time.Date(2024, 1, 1, 9, 40, 0, 0, time.UTC)
	second.ScheduledDatetime = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

	out, dropped := TransformDeliveries([]domain.ExtractRecord{first, second})
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}

	for _, r := range out {
		if r.DeliveriesInTrip != 2 {
			t.Errorf("delivery %d deliveries_in_trip = %d, want 2", r.DeliveryID, r.DeliveriesInTrip)
		}
		if r.DeliveriesPerHour != 0.5 {
			t.Errorf("delivery %d deliveries_per_hour = %v, want 0.5", r.DeliveryID, r.DeliveriesPerHour)
		}
		// Trip cost is split across both deliveries.
		if r.CostPerDelivery != 130000 {
			t.Errorf("delivery %d cost_per_delivery = %v, want 130000", r.DeliveryID, r.CostPerDelivery)
		}
	}
}
