package domain

import (
	"fmt"
	"math"
)

const earthRadiusMeters = 6371008.8

type Coordinates struct {
	Latitude  float64
	Longitude float64
}

func (c Coordinates) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", c.Longitude)
	}
	return nil
}

type Geofence struct {
	Center       Coordinates
	RadiusMeters float64
}

func NewGeofence(center Coordinates, radiusMeters float64) (Geofence, error) {
	if err := center.Validate(); err != nil {
		return Geofence{}, fmt.Errorf("invalid geofence center: %w", err)
	}
	if math.IsNaN(radiusMeters) || radiusMeters <= 0 {
		return Geofence{}, fmt.Errorf("geofence radius must be positive, got %v", radiusMeters)
	}
	return Geofence{Center: center, RadiusMeters: radiusMeters}, nil
}

func (g Geofence) Contains(point Coordinates) bool {
	return DistanceMeters(g.Center, point) <= g.RadiusMeters
}

// DistanceMeters is the great-circle (haversine) distance between a and b
func DistanceMeters(a, b Coordinates) float64 {
	toRadians := func(deg float64) float64 { return deg * math.Pi / 180 }

	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}
