package services

import (
	"testing"
	"time"

	"fleet-etl-service/internal/domain"
)

var batchDate = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func transformedFor(driverID int, status string, delivered time.Time) domain.TransformedRecord {
	rec := domain.TransformedRecord{}
	rec.DeliveryID = driverID * 100
	rec.TripID = driverID
	rec.CustomerName = "Almacenes Rio"
	rec.DestinationCity = "Medellin"
	rec.DriverID = driverID
	rec.FullName = "Carlos Mendez"
	rec.DriverStatus = status
	rec.Phone = "555-0101"
	rec.VehicleID = driverID
	rec.VehicleStatus = "Active"
	rec.FuelType = "Diesel"
	rec.CapacityKg = 1200
	rec.DeliveredDatetime = delivered
	return rec
}

func TestDriverSnapshotsKeepLatest(t *testing.T) {
	early := transformedFor(1, "Active", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	late := transformedFor(1, "OnLeave", time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC))

	snaps := DriverSnapshots([]domain.TransformedRecord{early, late}, batchDate)
	if len(snaps) != 1 {
		t.Fatalf("len(snaps) = %d, want 1", len(snaps))
	}
	if snaps[0].Status != "OnLeave" {
		t.Errorf("status = %q, want OnLeave (latest delivered record wins)", snaps[0].Status)
	}
	if !snaps[0].ValidFrom.Equal(batchDate) {
		t.Errorf("valid_from = %v, want %v", snaps[0].ValidFrom, batchDate)
	}
	if !snaps[0].ValidTo.Equal(domain.OpenEndDate) {
		t.Errorf("valid_to = %v, want open sentinel", snaps[0].ValidTo)
	}
}

func TestPlanDriverMerge(t *testing.T) {
	current := map[int]domain.DriverDim{
		1: {DriverID: 1, FullName: "Carlos Mendez", Status: "Active", Phone: "555-0101", IsCurrent: true},
		2: {DriverID: 2, FullName: "Lucia Ramirez", Status: "Active", Phone: "555-0102", IsCurrent: true},
		3: {DriverID: 3, FullName: "Ana Torres", Status: "Active", Phone: "555-0103", LicenseNumber: "LIC-1", IsCurrent: true},
	}

	incoming := []domain.DriverDim{
		{DriverID: 1, FullName: "Carlos Mendez", Status: "Active", Phone: "555-0101"}, // unchanged
		{DriverID: 2, FullName: "Lucia Ramirez", Status: "OnLeave", Phone: "555-0102"}, // tracked change
		{DriverID: 3, FullName: "Ana Torres", Status: "Active", Phone: "555-0103", LicenseNumber: "LIC-2"}, // untracked change
		{DriverID: 4, FullName: "Pedro Silva", Status: "Active", Phone: "555-0104"}, // absent
	}

	closeIDs, inserts := PlanDriverMerge(current, incoming)

	if len(closeIDs) != 1 || closeIDs[0] != 2 {
		t.Errorf("closeIDs = %v, want [2]", closeIDs)
	}
	if len(inserts) != 2 {
		t.Fatalf("len(inserts) = %d, want 2", len(inserts))
	}
	if inserts[0].DriverID != 2 || inserts[1].DriverID != 4 {
		t.Errorf("insert ids = [%d %d], want [2 4]", inserts[0].DriverID, inserts[1].DriverID)
	}
}

func TestPlanDriverMergeIdempotent(t *testing.T) {
	in := domain.DriverDim{DriverID: 1, FullName: "Carlos Mendez", Status: "Active", Phone: "555-0101"}
	current := map[int]domain.DriverDim{1: in}

	closeIDs, inserts := PlanDriverMerge(current, []domain.DriverDim{in})
	if len(closeIDs) != 0 || len(inserts) != 0 {
		t.Errorf("unchanged snapshot planned writes: close=%v insert=%v", closeIDs, inserts)
	}
}

func TestPlanVehicleMerge(t *testing.T) {
	current := map[int]domain.VehicleDim{
		1: {VehicleID: 1, Status: "Active", CapacityKg: 1200, FuelType: "Diesel", IsCurrent: true},
	}
	incoming := []domain.VehicleDim{
		{VehicleID: 1, Status: "Active", CapacityKg: 1500, FuelType: "Diesel"},
	}

	closeIDs, inserts := PlanVehicleMerge(current, incoming)
	if len(closeIDs) != 1 || closeIDs[0] != 1 {
		t.Errorf("closeIDs = %v, want [1]", closeIDs)
	}
	if len(inserts) != 1 || inserts[0].CapacityKg != 1500 {
		t.Errorf("inserts = %v, want one row with capacity 1500", inserts)
	}
}

func TestPlanCustomerInserts(t *testing.T) {
	existing := map[string]struct{}{"Almacenes Rio": {}}
	incoming := []domain.CustomerDim{
		{CustomerName: "Almacenes Rio"},
		{CustomerName: "Ferreteria Central"},
	}

	inserts := PlanCustomerInserts(existing, incoming)
	if len(inserts) != 1 || inserts[0].CustomerName != "Ferreteria Central" {
		t.Errorf("inserts = %v, want only Ferreteria Central", inserts)
	}
}

func TestCustomerSnapshotsDefaults(t *testing.T) {
	rec := transformedFor(1, "Active", time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	snaps := CustomerSnapshots([]domain.TransformedRecord{rec, rec}, batchDate)
	if len(snaps) != 1 {
		t.Fatalf("len(snaps) = %d, want 1", len(snaps))
	}

	c := snaps[0]
	if c.CustomerType != "Individual" || c.CustomerCategory != "Regular" || c.TotalDeliveries != 0 {
		t.Errorf("defaults = {%q %q %d}, want {Individual Regular 0}", c.CustomerType, c.CustomerCategory, c.TotalDeliveries)
	}
	if c.City != "Medellin" {
		t.Errorf("city = %q, want Medellin", c.City)
	}
}
