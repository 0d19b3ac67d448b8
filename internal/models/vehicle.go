package models

import "time"

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusWarning     VehicleStatus = "warning"
	VehicleStatusInactive    VehicleStatus = "inactive"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"` // km/h
}

type Vehicle struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"` // car, truck, bus, emergency...
	Make      string        `json:"make"`
	Model     string        `json:"model"`
	Year      int           `json:"year"`
	Location  Location      `json:"location"`
	Status    VehicleStatus `json:"status"`
	LastSeen  time.Time     `json:"last_seen"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type NearbyVehicle struct {
	Vehicle
	DistanceKm float64 `json:"distance_km"`
}
