package services

import (
	"time"

	"fleet-etl-service/internal/domain"
)

const (
	fuelCostPerLiter       = 5000.0
	baseDeliveryFee        = 20000.0
	revenuePerKg           = 500.0
	onTimeThresholdMinutes = 30.0
	maxPackageWeightKg     = 10000.0
)

// TransformDeliveries derives per-delivery performance metrics and stamps the
// versioning metadata the dimension merge consumes. Rows failing a quality
// rule (negative delivery time, out-of-range weight, zero denominators) are
// dropped and counted, never propagated downstream.
func TransformDeliveries(records []domain.ExtractRecord) ([]domain.TransformedRecord, int) {
	// Per-hour metrics are relative to how many deliveries shared the trip.
	deliveriesPerTrip := make(map[int]int, len(records))
	for _, r := range records {
		deliveriesPerTrip[r.TripID]++
	}

	out := make([]domain.TransformedRecord, 0, len(records))
	dropped := 0
	for _, r := range records {
		tr, ok := transformOne(r, deliveriesPerTrip[r.TripID])
		if !ok {
			dropped++
			continue
		}
		out = append(out, tr)
	}

	return out, dropped
}

func transformOne(r domain.ExtractRecord, deliveriesInTrip int) (domain.TransformedRecord, bool) {
	deliveryTime := round2(r.DeliveredDatetime.Sub(r.ScheduledDatetime).Minutes())
	if deliveryTime < 0 {
		return domain.TransformedRecord{}, false
	}

	if r.PackageWeightKg <= 0 || r.PackageWeightKg >= maxPackageWeightKg {
		return domain.TransformedRecord{}, false
	}

	tripHours := round2(r.ArrivalDatetime.Sub(r.DepartureDatetime).Hours())
	if tripHours <= 0 {
		return domain.TransformedRecord{}, false
	}

	if r.FuelConsumedLiters <= 0 || deliveriesInTrip <= 0 {
		return domain.TransformedRecord{}, false
	}

	delay := deliveryTime
	if delay < 0 {
		delay = 0
	}

	scheduled := r.ScheduledDatetime
	validFrom := time.Date(scheduled.Year(), scheduled.Month(), scheduled.Day(), 0, 0, 0, 0, scheduled.Location())

	return domain.TransformedRecord{
		ExtractRecord: r,

		DeliveryTimeMinutes:      deliveryTime,
		DelayMinutes:             delay,
		IsOnTime:                 delay <= onTimeThresholdMinutes,
		TripDurationHours:        tripHours,
		DeliveriesInTrip:         deliveriesInTrip,
		DeliveriesPerHour:        round2(float64(deliveriesInTrip) / tripHours),
		FuelEfficiencyKmPerLiter: round2(r.DistanceKm / r.FuelConsumedLiters),
		CostPerDelivery:          round2((r.FuelConsumedLiters*fuelCostPerLiter + r.TollCost) / float64(deliveriesInTrip)),
		RevenuePerDelivery:       round2(baseDeliveryFee + r.PackageWeightKg*revenuePerKg),

		ValidFrom: validFrom,
		ValidTo:   domain.OpenEndDate,
		IsCurrent: true,
	}, true
}
