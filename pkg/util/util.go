package util

import (
	"fmt"
	"math"
)

func RoundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// RoundToMultiple round val ke kelipatan terdekat dari base (misal speed limit dibulatkan ke kelipatan 5).
func RoundToMultiple(val, base float64) float64 {
	if base <= 0 {
		return val
	}
	return math.Round(val/base) * base
}

// WrapIndex modulo yang selalu non-negatif.
func WrapIndex(i, n int) int {
	return ((i % n) + n) % n
}

func minuteOfDayStr(minute int) string {
	h := (minute / 60) % 24
	m := minute % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// TimeRangeLabel label bin, misal bin 0 interval 5 -> "00:00 - 00:04".
func TimeRangeLabel(bin, intervalMinutes int) string {
	start := bin * intervalMinutes
	end := (bin+1)*intervalMinutes - 1
	return minuteOfDayStr(start) + " - " + minuteOfDayStr(end)
}
