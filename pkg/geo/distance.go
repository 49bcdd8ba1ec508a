package geo

import (
	"math"

	"lintang/trafficspeed/pkg/datastructure"
)

const (
	earthRadiusKM    = 6368.276
	localElevationKM = 0.183

	// EarthRadiusKM radius bumi + elevasi lokal area kalibrasi.
	EarthRadiusKM = earthRadiusKM + localElevationKM
)

// CosPolynomial aproksimasi cos(lat) pakai polinomial derajat 3 di sekitar Center (derajat).
// Coef[k] adalah koefisien untuk (lat-Center)^k.
type CosPolynomial struct {
	Center float64
	Coef   [4]float64
}

// DefaultCosPolynomial fitted over latitude 41.4..44.4 (max abs error ~3.3e-9).
var DefaultCosPolynomial = CosPolynomial{
	Center: 42.9,
	Coef: [4]float64{
		0.7325428975567796,
		-0.01188082043927639,
		-0.00011156719812985346,
		6.031611595648533e-07,
	},
}

func (c CosPolynomial) Eval(lat float64) float64 {
	t := lat - c.Center
	return c.Coef[0] + t*(c.Coef[1]+t*(c.Coef[2]+t*c.Coef[3]))
}

// Distance flat-earth distance in km. Accurate only near the fitted latitude band.
func (c CosPolynomial) Distance(a, b datastructure.Coordinate) float64 {
	avgLat := (a.Lat + b.Lat) / 2
	x := c.Eval(avgLat) * degreeToRadians(b.Lon-a.Lon) * EarthRadiusKM
	y := degreeToRadians(b.Lat-a.Lat) * EarthRadiusKM
	return math.Sqrt(x*x + y*y)
}

// FastDistance jarak (km) yang dipakai buat map matching & speed.
func FastDistance(a, b datastructure.Coordinate) float64 {
	return DefaultCosPolynomial.Distance(a, b)
}

func degreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// HaversineDistance great-circle distance in km.
func HaversineDistance(a, b datastructure.Coordinate) float64 {
	lat1, lat2 := degreeToRadians(a.Lat), degreeToRadians(b.Lat)
	dLat := lat2 - lat1
	dLon := degreeToRadians(b.Lon - a.Lon)

	hav := havFunction(dLat) + math.Cos(lat1)*math.Cos(lat2)*havFunction(dLon)
	return EarthRadiusKM * 2.0 * math.Asin(math.Sqrt(hav))
}

// FitCosPolynomial least-squares fit of cos(lat) on [center-halfWidth, center+halfWidth] sampled every step degrees.
func FitCosPolynomial(center, halfWidth, step float64) CosPolynomial {
	var ata [4][5]float64
	for lat := center - halfWidth; lat <= center+halfWidth+step/2; lat += step {
		t := lat - center
		y := math.Cos(degreeToRadians(lat))
		pow := [4]float64{1, t, t * t, t * t * t}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				ata[i][j] += pow[i] * pow[j]
			}
			ata[i][4] += pow[i] * y
		}
	}

	// gaussian elimination with partial pivoting
	for col := 0; col < 4; col++ {
		pivot := col
		for r := col + 1; r < 4; r++ {
			if math.Abs(ata[r][col]) > math.Abs(ata[pivot][col]) {
				pivot = r
			}
		}
		ata[col], ata[pivot] = ata[pivot], ata[col]
		for r := col + 1; r < 4; r++ {
			f := ata[r][col] / ata[col][col]
			for k := col; k < 5; k++ {
				ata[r][k] -= f * ata[col][k]
			}
		}
	}

	poly := CosPolynomial{Center: center}
	for i := 3; i >= 0; i-- {
		sum := ata[i][4]
		for k := i + 1; k < 4; k++ {
			sum -= ata[i][k] * poly.Coef[k]
		}
		poly.Coef[i] = sum / ata[i][i]
	}
	return poly
}
