package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fleet-etl-service/internal/domain"
	"fleet-etl-service/internal/platform/obs"
	"fleet-etl-service/internal/ports"
)

// DriverSnapshots collapses the batch into one incoming dimension snapshot
// per driver, keeping the attributes of the most recently delivered record
// for each key. Results are sorted by key for deterministic write order.
func DriverSnapshots(records []domain.TransformedRecord, batchDate time.Time) []domain.DriverDim {
	latest := map[int]domain.TransformedRecord{}
	for _, r := range records {
		prev, ok := latest[r.DriverID]
		if !ok || r.DeliveredDatetime.After(prev.DeliveredDatetime) {
			latest[r.DriverID] = r
		}
	}

	out := make([]domain.DriverDim, 0, len(latest))
	for _, r := range latest {
		out = append(out, domain.DriverDim{
			DriverID:      r.DriverID,
			EmployeeCode:  r.EmployeeCode,
			FullName:      r.FullName,
			LicenseNumber: r.LicenseNumber,
			LicenseExpiry: r.LicenseExpiry,
			Phone:         r.Phone,
			HireDate:      r.HireDate,
			Status:        r.DriverStatus,
			ValidFrom:     batchDate,
			ValidTo:       domain.OpenEndDate,
			IsCurrent:     true,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DriverID < out[j].DriverID })
	return out
}

// VehicleSnapshots collapses the batch into one incoming snapshot per vehicle.
func VehicleSnapshots(records []domain.TransformedRecord, batchDate time.Time) []domain.VehicleDim {
	latest := map[int]domain.TransformedRecord{}
	for _, r := range records {
		prev, ok := latest[r.VehicleID]
		if !ok || r.DeliveredDatetime.After(prev.DeliveredDatetime) {
			latest[r.VehicleID] = r
		}
	}

	out := make([]domain.VehicleDim, 0, len(latest))
	for _, r := range latest {
		out = append(out, domain.VehicleDim{
			VehicleID:       r.VehicleID,
			LicensePlate:    r.LicensePlate,
			VehicleType:     r.VehicleType,
			CapacityKg:      r.CapacityKg,
			FuelType:        r.FuelType,
			AcquisitionDate: r.AcquisitionDate,
			Status:          r.VehicleStatus,
			ValidFrom:       batchDate,
			ValidTo:         domain.OpenEndDate,
			IsCurrent:       true,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// CustomerSnapshots collapses the batch into one candidate dim_customer row
// per customer name with the default attribute values for new customers.
func CustomerSnapshots(records []domain.TransformedRecord, batchDate time.Time) []domain.CustomerDim {
	seen := map[string]domain.CustomerDim{}
	for _, r := range records {
		if _, ok := seen[r.CustomerName]; ok {
			continue
		}
		seen[r.CustomerName] = domain.CustomerDim{
			CustomerName:      r.CustomerName,
			CustomerType:      "Individual",
			City:              r.DestinationCity,
			FirstDeliveryDate: batchDate,
			TotalDeliveries:   0,
			CustomerCategory:  "Regular",
		}
	}

	out := make([]domain.CustomerDim, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CustomerName < out[j].CustomerName })
	return out
}

// PlanDriverMerge diffs incoming snapshots against the current versions.
// Absent keys get an insert; keys whose tracked attributes changed get a
// close plus an insert; unchanged keys are a no-op.
func PlanDriverMerge(current map[int]domain.DriverDim, incoming []domain.DriverDim) (closeIDs []int, inserts []domain.DriverDim) {
	for _, in := range incoming {
		cur, ok := current[in.DriverID]
		if !ok {
			inserts = append(inserts, in)
			continue
		}
		if cur.TrackedEquals(in) {
			continue
		}
		closeIDs = append(closeIDs, in.DriverID)
		inserts = append(inserts, in)
	}
	return closeIDs, inserts
}

// PlanVehicleMerge is the vehicle counterpart of PlanDriverMerge.
func PlanVehicleMerge(current map[int]domain.VehicleDim, incoming []domain.VehicleDim) (closeIDs []int, inserts []domain.VehicleDim) {
	for _, in := range incoming {
		cur, ok := current[in.VehicleID]
		if !ok {
			inserts = append(inserts, in)
			continue
		}
		if cur.TrackedEquals(in) {
			continue
		}
		closeIDs = append(closeIDs, in.VehicleID)
		inserts = append(inserts, in)
	}
	return closeIDs, inserts
}

// PlanCustomerInserts keeps only customers the warehouse has never seen.
func PlanCustomerInserts(existing map[string]struct{}, incoming []domain.CustomerDim) []domain.CustomerDim {
	var inserts []domain.CustomerDim
	for _, in := range incoming {
		if _, ok := existing[in.CustomerName]; ok {
			continue
		}
		inserts = append(inserts, in)
	}
	return inserts
}

// BuildMergePlan reads the current dimension versions for the keys present in
// the batch and plans the full set of writes for the merge transaction.
func BuildMergePlan(
	ctx context.Context,
	wh ports.WarehouseConn,
	records []domain.TransformedRecord,
	batchDate time.Time,
) (_ ports.MergePlan, err error) {
	defer obs.Time(ctx, "warehouse.BuildMergePlan")(&err)

	drivers := DriverSnapshots(records, batchDate)
	vehicles := VehicleSnapshots(records, batchDate)
	customers := CustomerSnapshots(records, batchDate)

	driverIDs := make([]int, 0, len(drivers))
	for _, d := range drivers {
		driverIDs = append(driverIDs, d.DriverID)
	}
	currentDrivers, err := wh.CurrentDrivers(ctx, driverIDs)
	if err != nil {
		return ports.MergePlan{}, fmt.Errorf("build merge plan: current drivers: %w", err)
	}

	vehicleIDs := make([]int, 0, len(vehicles))
	for _, v := range vehicles {
		vehicleIDs = append(vehicleIDs, v.VehicleID)
	}
	currentVehicles, err := wh.CurrentVehicles(ctx, vehicleIDs)
	if err != nil {
		return ports.MergePlan{}, fmt.Errorf("build merge plan: current vehicles: %w", err)
	}

	names := make([]string, 0, len(customers))
	for _, c := range customers {
		names = append(names, c.CustomerName)
	}
	existingCustomers, err := wh.ExistingCustomers(ctx, names)
	if err != nil {
		return ports.MergePlan{}, fmt.Errorf("build merge plan: existing customers: %w", err)
	}

	plan := ports.MergePlan{BatchDate: batchDate}
	plan.CloseDrivers, plan.InsertDrivers = PlanDriverMerge(currentDrivers, drivers)
	plan.CloseVehicles, plan.InsertVehicles = PlanVehicleMerge(currentVehicles, vehicles)
	plan.InsertCustomers = PlanCustomerInserts(existingCustomers, customers)

	return plan, nil
}
