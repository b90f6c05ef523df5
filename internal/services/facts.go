package services

import "fleet-etl-service/internal/domain"

// BuildFacts maps transformed records onto batch-tagged fact rows.
func BuildFacts(records []domain.TransformedRecord, batchID int64) []domain.FactDelivery {
	facts := make([]domain.FactDelivery, 0, len(records))
	for _, r := range records {
		facts = append(facts, domain.FactDelivery{
			DeliveryID:               r.DeliveryID,
			TripID:                   r.TripID,
			RouteID:                  r.RouteID,
			VehicleID:                r.VehicleID,
			DriverID:                 r.DriverID,
			CustomerName:             r.CustomerName,
			ScheduledDatetime:        r.ScheduledDatetime,
			DeliveredDatetime:        r.DeliveredDatetime,
			PackageWeightKg:          r.PackageWeightKg,
			DistanceKm:               r.DistanceKm,
			DeliveryTimeMinutes:      r.DeliveryTimeMinutes,
			DelayMinutes:             r.DelayMinutes,
			IsOnTime:                 r.IsOnTime,
			DeliveriesPerHour:        r.DeliveriesPerHour,
			FuelEfficiencyKmPerLiter: r.FuelEfficiencyKmPerLiter,
			CostPerDelivery:          r.CostPerDelivery,
			RevenuePerDelivery:       r.RevenuePerDelivery,
			ETLBatchID:               batchID,
		})
	}
	return facts
}
