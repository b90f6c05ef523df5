package source

// Five-way extraction join shared by the Postgres and SQLite stores. Only the
// window predicate placeholders differ per dialect.
const extractQueryBody = `
	SELECT d.delivery_id,
	       d.trip_id,
	       d.tracking_number,
	       d.customer_name,
	       d.delivery_address,
	       d.package_weight_kg,
	       d.scheduled_datetime,
	       d.delivered_datetime,
	       d.delivery_status,
	       d.recipient_signature,
	       t.departure_datetime,
	       t.arrival_datetime,
	       t.fuel_consumed_liters,
	       t.total_weight_kg,
	       t.status AS trip_status,
	       r.route_id,
	       r.origin_city,
	       r.destination_city,
	       r.distance_km,
	       r.estimated_duration_hours,
	       r.toll_cost,
	       v.vehicle_id,
	       v.license_plate,
	       v.vehicle_type,
	       v.capacity_kg,
	       v.fuel_type,
	       v.acquisition_date,
	       v.status AS vehicle_status,
	       dr.driver_id,
	       dr.employee_code,
	       dr.first_name || ' ' || dr.last_name AS full_name,
	       dr.license_number,
	       dr.license_expiry,
	       dr.phone,
	       dr.hire_date,
	       dr.status AS driver_status
	FROM deliveries d
	JOIN trips t ON d.trip_id = t.trip_id
	JOIN routes r ON t.route_id = r.route_id
	JOIN vehicles v ON t.vehicle_id = v.vehicle_id
	JOIN drivers dr ON t.driver_id = dr.driver_id
`
