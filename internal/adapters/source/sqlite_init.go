package source

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the SQLite operational schema for local and demo runs.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init source schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init source schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDriversQuery := `
	CREATE TABLE IF NOT EXISTS drivers (
		driver_id INTEGER PRIMARY KEY,
		employee_code TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		license_number TEXT NOT NULL,
		license_expiry TEXT NOT NULL,
		phone TEXT NOT NULL,
		hire_date TEXT NOT NULL,
		status TEXT NOT NULL
	);
	`

	createVehiclesQuery := `
	CREATE TABLE IF NOT EXISTS vehicles (
		vehicle_id INTEGER PRIMARY KEY,
		license_plate TEXT NOT NULL,
		vehicle_type TEXT NOT NULL,
		capacity_kg REAL NOT NULL,
		fuel_type TEXT NOT NULL,
		acquisition_date TEXT NOT NULL,
		status TEXT NOT NULL
	);
	`

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
		route_id INTEGER PRIMARY KEY,
		origin_city TEXT NOT NULL,
		destination_city TEXT NOT NULL,
		distance_km REAL NOT NULL,
		estimated_duration_hours REAL NOT NULL,
		toll_cost REAL NOT NULL
	);
	`

	createTripsQuery := `
	CREATE TABLE IF NOT EXISTS trips (
		trip_id INTEGER PRIMARY KEY,
		route_id INTEGER NOT NULL REFERENCES routes(route_id),
		vehicle_id INTEGER NOT NULL REFERENCES vehicles(vehicle_id),
		driver_id INTEGER NOT NULL REFERENCES drivers(driver_id),
		departure_datetime TEXT NOT NULL,
		arrival_datetime TEXT NOT NULL,
		fuel_consumed_liters REAL NOT NULL,
		total_weight_kg REAL NOT NULL,
		status TEXT NOT NULL
	);
	`

	createDeliveriesQuery := `
	CREATE TABLE IF NOT EXISTS deliveries (
		delivery_id INTEGER PRIMARY KEY,
		trip_id INTEGER NOT NULL REFERENCES trips(trip_id),
		tracking_number TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		delivery_address TEXT NOT NULL,
		package_weight_kg REAL NOT NULL,
		scheduled_datetime TEXT NOT NULL,
		delivered_datetime TEXT NOT NULL,
		delivery_status TEXT NOT NULL,
		recipient_signature TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_deliveries_delivered_datetime
	ON deliveries(delivered_datetime);
	`

	statements := []string{
		createDriversQuery,
		createVehiclesQuery,
		createRoutesQuery,
		createTripsQuery,
		createDeliveriesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init source schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init source schema: commit tx: %w", err)
	}

	return nil
}

type DriverSeed struct {
	DriverID      int    `json:"driver_id"`
	EmployeeCode  string `json:"employee_code"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	LicenseNumber string `json:"license_number"`
	LicenseExpiry string `json:"license_expiry"`
	Phone         string `json:"phone"`
	HireDate      string `json:"hire_date"`
	Status        string `json:"status"`
}

type VehicleSeed struct {
	VehicleID       int     `json:"vehicle_id"`
	LicensePlate    string  `json:"license_plate"`
	VehicleType     string  `json:"vehicle_type"`
	CapacityKg      float64 `json:"capacity_kg"`
	FuelType        string  `json:"fuel_type"`
	AcquisitionDate string  `json:"acquisition_date"`
	Status          string  `json:"status"`
}

type RouteSeed struct {
	RouteID                int     `json:"route_id"`
	OriginCity             string  `json:"origin_city"`
	DestinationCity        string  `json:"destination_city"`
	DistanceKm             float64 `json:"distance_km"`
	EstimatedDurationHours float64 `json:"estimated_duration_hours"`
	TollCost               float64 `json:"toll_cost"`
}

type TripSeed struct {
	TripID             int     `json:"trip_id"`
	RouteID            int     `json:"route_id"`
	VehicleID          int     `json:"vehicle_id"`
	DriverID           int     `json:"driver_id"`
	DepartureDatetime  string  `json:"departure_datetime"`
	ArrivalDatetime    string  `json:"arrival_datetime"`
	FuelConsumedLiters float64 `json:"fuel_consumed_liters"`
	TotalWeightKg      float64 `json:"total_weight_kg"`
	Status             string  `json:"status"`
}

type DeliverySeed struct {
	DeliveryID         int     `json:"delivery_id"`
	TripID             int     `json:"trip_id"`
	TrackingNumber     string  `json:"tracking_number"`
	CustomerName       string  `json:"customer_name"`
	DeliveryAddress    string  `json:"delivery_address"`
	PackageWeightKg    float64 `json:"package_weight_kg"`
	ScheduledDatetime  string  `json:"scheduled_datetime"`
	DeliveredDatetime  string  `json:"delivered_datetime"`
	DeliveryStatus     string  `json:"delivery_status"`
	RecipientSignature string  `json:"recipient_signature"`
}

type OperationalSeed struct {
	Drivers    []DriverSeed   `json:"drivers"`
	Vehicles   []VehicleSeed  `json:"vehicles"`
	Routes     []RouteSeed    `json:"routes"`
	Trips      []TripSeed     `json:"trips"`
	Deliveries []DeliverySeed `json:"deliveries"`
}

// Populate the operational store with demo data from a JSON file.
func SeedFromJSON(db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed source: read %q: %w", jsonPath, err)
	}

	var data OperationalSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed source: parse json: %w", err)
	}

	for i, d := range data.Drivers {
		if d.DriverID <= 0 {
			return fmt.Errorf("seed source: invalid driver_id at index %d: %d", i+1, d.DriverID)
		}
		if strings.TrimSpace(d.FirstName) == "" || strings.TrimSpace(d.LastName) == "" {
			return fmt.Errorf("seed source: driver at index %d: name cannot be empty", i+1)
		}
	}

	for i, v := range data.Vehicles {
		if v.VehicleID <= 0 {
			return fmt.Errorf("seed source: invalid vehicle_id at index %d: %d", i+1, v.VehicleID)
		}
		if strings.TrimSpace(v.LicensePlate) == "" {
			return fmt.Errorf("seed source: vehicle at index %d: license_plate cannot be empty", i+1)
		}
	}

	for i, r := range data.Routes {
		if r.RouteID <= 0 {
			return fmt.Errorf("seed source: invalid route_id at index %d: %d", i+1, r.RouteID)
		}
		if strings.TrimSpace(r.DestinationCity) == "" {
			return fmt.Errorf("seed source: route at index %d: destination_city cannot be empty", i+1)
		}
	}

	for i, t := range data.Trips {
		if t.TripID <= 0 {
			return fmt.Errorf("seed source: invalid trip_id at index %d: %d", i+1, t.TripID)
		}
		if t.RouteID <= 0 || t.VehicleID <= 0 || t.DriverID <= 0 {
			return fmt.Errorf("seed source: trip at index %d: route, vehicle and driver ids must be positive", i+1)
		}
	}

	for i, d := range data.Deliveries {
		if d.DeliveryID <= 0 {
			return fmt.Errorf("seed source: invalid delivery_id at index %d: %d", i+1, d.DeliveryID)
		}
		if d.TripID <= 0 {
			return fmt.Errorf("seed source: delivery at index %d: trip_id must be positive", i+1)
		}
		if strings.TrimSpace(d.CustomerName) == "" {
			return fmt.Errorf("seed source: delivery at index %d: customer_name cannot be empty", i+1)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed source: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range data.Drivers {
		_, err := tx.Exec(`
		INSERT OR REPLACE INTO drivers (
			driver_id, employee_code, first_name, last_name,
			license_number, license_expiry, phone, hire_date, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, d.DriverID, d.EmployeeCode, d.FirstName, d.LastName,
			d.LicenseNumber, d.LicenseExpiry, d.Phone, d.HireDate, d.Status)
		if err != nil {
			return fmt.Errorf("seed source: insert driver_id=%d: %w", d.DriverID, err)
		}
	}

	for _, v := range data.Vehicles {
		_, err := tx.Exec(`
		INSERT OR REPLACE INTO vehicles (
			vehicle_id, license_plate, vehicle_type, capacity_kg,
			fuel_type, acquisition_date, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?);
		`, v.VehicleID, v.LicensePlate, v.VehicleType, v.CapacityKg,
			v.FuelType, v.AcquisitionDate, v.Status)
		if err != nil {
			return fmt.Errorf("seed source: insert vehicle_id=%d: %w", v.VehicleID, err)
		}
	}

	for _, r := range data.Routes {
		_, err := tx.Exec(`
		INSERT OR REPLACE INTO routes (
			route_id, origin_city, destination_city,
			distance_km, estimated_duration_hours, toll_cost
		)
		VALUES (?, ?, ?, ?, ?, ?);
		`, r.RouteID, r.OriginCity, r.DestinationCity,
			r.DistanceKm, r.EstimatedDurationHours, r.TollCost)
		if err != nil {
			return fmt.Errorf("seed source: insert route_id=%d: %w", r.RouteID, err)
		}
	}

	for _, t := range data.Trips {
		_, err := tx.Exec(`
		INSERT OR REPLACE INTO trips (
			trip_id, route_id, vehicle_id, driver_id,
			departure_datetime, arrival_datetime,
			fuel_consumed_liters, total_weight_kg, status
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, t.TripID, t.RouteID, t.VehicleID, t.DriverID,
			t.DepartureDatetime, t.ArrivalDatetime,
			t.FuelConsumedLiters, t.TotalWeightKg, t.Status)
		if err != nil {
			return fmt.Errorf("seed source: insert trip_id=%d: %w", t.TripID, err)
		}
	}

	for _, d := range data.Deliveries {
		_, err := tx.Exec(`
		INSERT OR REPLACE INTO deliveries (
			delivery_id, trip_id, tracking_number, customer_name,
			delivery_address, package_weight_kg,
			scheduled_datetime, delivered_datetime,
			delivery_status, recipient_signature
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, d.DeliveryID, d.TripID, d.TrackingNumber, d.CustomerName,
			d.DeliveryAddress, d.PackageWeightKg,
			d.ScheduledDatetime, d.DeliveredDatetime,
			d.DeliveryStatus, d.RecipientSignature)
		if err != nil {
			return fmt.Errorf("seed source: insert delivery_id=%d: %w", d.DeliveryID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed source: commit tx: %w", err)
	}

	return nil
}
