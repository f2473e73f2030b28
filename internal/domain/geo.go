package domain

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the spherical earth radius used for great-circle distances.
const EarthRadiusKm = 6378.0

// HaversineKm returns the great-circle distance in kilometers between a
// point and the reference, both given in decimal degrees.
func HaversineKm(lat, lon float64, ref GeoPoint) float64 {
	const degToRad = math.Pi / 180

	latR := lat * degToRad
	lonR := lon * degToRad
	refLatR := ref.Lat * degToRad
	refLonR := ref.Lon * degToRad

	sinLat := math.Sin((latR - refLatR) / 2)
	sinLon := math.Sin((lonR - refLonR) / 2)
	a := sinLat*sinLat + math.Cos(refLatR)*math.Cos(latR)*sinLon*sinLon

	// Rounding can push a just outside [0, 1] for near-identical or
	// near-antipodal points, which would take Asin out of its domain.
	a = math.Min(math.Max(a, 0), 1)

	return 2 * math.Asin(math.Sqrt(a)) * EarthRadiusKm
}

// Distances computes the distance from the reference point to each
// (lats[i], lons[i]) pair. The two slices must have equal length.
func Distances(lats, lons []float64, ref GeoPoint) ([]float64, error) {
	if len(lats) != len(lons) {
		return nil, fmt.Errorf("distances: %d latitudes vs %d longitudes", len(lats), len(lons))
	}

	out := make([]float64, len(lats))
	for i := range lats {
		out[i] = HaversineKm(lats[i], lons[i], ref)
	}
	return out, nil
}

// FillDistances sets DistanceKm on every event from its own coordinates and
// the insured location.
func FillDistances(events []CatalogueEvent, insured GeoPoint) {
	for i := range events {
		events[i].DistanceKm = HaversineKm(events[i].Latitude, events[i].Longitude, insured)
	}
}
