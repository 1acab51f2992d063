package places

import (
	"fmt"
	"math"
)

// earthRadiusM is the mean Earth radius in meters.
const earthRadiusM = 6371e3

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Coordinates) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

const (
	milesPerMeter = 0.000621371
	feetPerMile   = 5280
)

// FormatDistance renders meters as "N ft away" under a tenth of a mile and
// "N.N mi away" otherwise.
func FormatDistance(meters float64) string {
	miles := meters * milesPerMeter
	if miles < 0.1 {
		return fmt.Sprintf("%d ft away", int(math.Round(miles*feetPerMile)))
	}
	return fmt.Sprintf("%.1f mi away", miles)
}

// DirectionsURL links to Google Maps directions ending at c.
func DirectionsURL(c Coordinates) string {
	return fmt.Sprintf("https://www.google.com/maps/dir/?api=1&destination=%v,%v", c.Lat, c.Lon)
}

// WithinDistance keeps places no farther than maxMeters. A non-positive
// maxMeters keeps everything.
func WithinDistance(ps []Place, maxMeters float64) []Place {
	if maxMeters <= 0 {
		return ps
	}
	out := make([]Place, 0, len(ps))
	for _, p := range ps {
		if p.Distance <= maxMeters {
			out = append(out, p)
		}
	}
	return out
}
