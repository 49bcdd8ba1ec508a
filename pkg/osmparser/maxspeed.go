package osmparser

import (
	"strconv"
	"strings"

	"lintang/trafficspeed/pkg/config"
)

const kmPerMile = 1.609344

// ParseMaxSpeed parse tag maxspeed osm ke satuan unit. Tanpa satuan berarti km/h.
// Nilai seperti "none", "signals" atau "walk" dianggap tidak ada.
func ParseMaxSpeed(tag string, unit string) (float64, bool) {
	s := strings.TrimSpace(strings.ToLower(tag))
	if s == "" {
		return 0, false
	}
	// "30;50" ambil yang pertama
	if i := strings.IndexAny(s, ";|"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	mph := false
	switch {
	case strings.HasSuffix(s, "mph"):
		mph = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "mph"))
	case strings.HasSuffix(s, "km/h"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "km/h"))
	case strings.HasSuffix(s, "kmh"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "kmh"))
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}

	switch {
	case mph && unit == config.SpeedUnitKMH:
		return v * kmPerMile, true
	case !mph && unit == config.SpeedUnitMPH:
		return v / kmPerMile, true
	}
	return v, true
}
