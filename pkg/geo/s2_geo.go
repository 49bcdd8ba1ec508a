package geo

import (
	"lintang/trafficspeed/pkg/datastructure"

	"github.com/golang/geo/s2"
)

// GreatCircleDistance jarak (km) pakai s2, dipakai buat validasi FastDistance.
func GreatCircleDistance(a, b datastructure.Coordinate) float64 {
	aLL := s2.LatLngFromDegrees(a.Lat, a.Lon)
	bLL := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return aLL.Distance(bLL).Radians() * EarthRadiusKM
}

// MidPoint titik tengah geodesic antara a dan b.
func MidPoint(a, b datastructure.Coordinate) datastructure.Coordinate {
	aP := s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon))
	bP := s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lon))
	mid := s2.LatLngFromPoint(s2.Interpolate(0.5, aP, bP))
	return datastructure.NewCoordinate(mid.Lat.Degrees(), mid.Lng.Degrees())
}

// PolylineCenter midpoint of the bounding box corners of a polyline.
func PolylineCenter(coords []datastructure.Coordinate) datastructure.Coordinate {
	if len(coords) == 0 {
		return datastructure.Coordinate{}
	}
	minC, maxC := coords[0], coords[0]
	for _, c := range coords[1:] {
		minC.Lat = min(minC.Lat, c.Lat)
		minC.Lon = min(minC.Lon, c.Lon)
		maxC.Lat = max(maxC.Lat, c.Lat)
		maxC.Lon = max(maxC.Lon, c.Lon)
	}
	return MidPoint(minC, maxC)
}
