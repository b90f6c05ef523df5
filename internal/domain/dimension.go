package domain

import "time"

// OpenEndDate marks a dimension version that is still current.
var OpenEndDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// DriverDim is one version of a driver in dim_driver. For any driver_id at
// most one row is current at a time; closed rows are never re-opened.
type DriverDim struct {
	DriverID      int
	EmployeeCode  string
	FullName      string
	LicenseNumber string
	LicenseExpiry time.Time
	Phone         string
	HireDate      time.Time
	Status        string
	ValidFrom     time.Time
	ValidTo       time.Time
	IsCurrent     bool
}

// TrackedEquals reports whether the attributes that trigger a new version
// (full name, status, phone) are unchanged. Other attribute changes do not
// open a new version.
func (d DriverDim) TrackedEquals(o DriverDim) bool {
	return d.FullName == o.FullName && d.Status == o.Status && d.Phone == o.Phone
}

// VehicleDim is one version of a vehicle in dim_vehicle.
type VehicleDim struct {
	VehicleID       int
	LicensePlate    string
	VehicleType     string
	CapacityKg      float64
	FuelType        string
	AcquisitionDate time.Time
	Status          string
	ValidFrom       time.Time
	ValidTo         time.Time
	IsCurrent       bool
}

// TrackedEquals reports whether the versioned attributes (status, capacity,
// fuel type) are unchanged.
func (v VehicleDim) TrackedEquals(o VehicleDim) bool {
	return v.Status == o.Status && v.CapacityKg == o.CapacityKg && v.FuelType == o.FuelType
}

// CustomerDim is a row in dim_customer. Customers are not versioned: rows are
// inserted once and left alone afterwards.
type CustomerDim struct {
	CustomerName      string
	CustomerType      string
	City              string
	FirstDeliveryDate time.Time
	TotalDeliveries   int
	CustomerCategory  string
}
