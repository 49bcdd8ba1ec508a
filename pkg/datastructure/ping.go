package datastructure

import "math"

const (
	badFixLat = 99.0
	badFixLon = 999.0
)

// Ping satu laporan gps bus.
type Ping struct {
	VehicleID   string
	RouteID     string
	Lat         float64
	Lon         float64
	SecondOfDay int
}

func (p Ping) Coordinate() Coordinate {
	return NewCoordinate(p.Lat, p.Lon)
}

// IsValidFix false for the feed's sentinel values and out of range coordinates.
func (p Ping) IsValidFix() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	if p.Lat >= badFixLat || p.Lon >= badFixLon {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}
