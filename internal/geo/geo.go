package geo

import (
	"math"

	"github.com/example/share-auto/internal/models"
)

// Haversine distance in meters between two points.
func Haversine(p1, p2 models.Point) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(p2.Lat - p1.Lat)
	dLon := toRad(p2.Lon - p1.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(p1.Lat))*math.Cos(toRad(p2.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// DistanceToRoute returns the minimum distance in meters from p to the
// route polyline. For each consecutive pair it checks both endpoints and
// the pair's midpoint rather than projecting onto the segment; good enough
// for threshold filtering and ranking at the 100m+ scale, not for
// sub-segment precision. A route with fewer than two points is unreachable
// and yields +Inf so filters degrade instead of erroring.
func DistanceToRoute(p models.Point, route *models.Route) float64 {
	if route == nil || len(route.Points) < 2 {
		return math.Inf(1)
	}
	min := math.Inf(1)
	pts := route.Points
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		mid := models.Point{Lat: (a.Lat + b.Lat) / 2, Lon: (a.Lon + b.Lon) / 2}
		for _, q := range [3]models.Point{a, b, mid} {
			if d := Haversine(p, q); d < min {
				min = d
			}
		}
	}
	return min
}
