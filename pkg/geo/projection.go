package geo

import "lintang/trafficspeed/pkg/datastructure"

// ProjectOntoEdge proyeksi p ke garis a-b di ruang lat/lon (tanpa proyeksi peta).
// ok false kalau titik proyeksi ada di luar bounding box a-b (box tertutup, jadi edge vertikal/horizontal tetap valid).
func ProjectOntoEdge(a, b, p datastructure.Coordinate) (datastructure.Coordinate, bool) {
	uLat := b.Lat - a.Lat
	uLon := b.Lon - a.Lon
	denom := uLat*uLat + uLon*uLon
	if denom == 0 {
		return datastructure.Coordinate{}, false
	}

	t := ((p.Lat-a.Lat)*uLat + (p.Lon-a.Lon)*uLon) / denom
	proj := datastructure.NewCoordinate(a.Lat+t*uLat, a.Lon+t*uLon)

	return proj, InBoundingBox(proj, a, b)
}

// InBoundingBox closed box check on both axes.
func InBoundingBox(p, a, b datastructure.Coordinate) bool {
	return p.Lat >= min(a.Lat, b.Lat) && p.Lat <= max(a.Lat, b.Lat) &&
		p.Lon >= min(a.Lon, b.Lon) && p.Lon <= max(a.Lon, b.Lon)
}
