package fare

import (
	"math"

	"github.com/example/share-auto/internal/geo"
	"github.com/example/share-auto/internal/models"
)

// Estimator prices a trip from straight-line distance. Fares are whole
// rupees: max(MinimumFare, round(BaseFare + PerKm * km)). Route geometry
// from the routing service is display-only and never feeds pricing.
type Estimator struct {
	BaseFare    float64
	PerKm       float64
	MinimumFare int64
}

func NewEstimator(base, perKm float64, minimum int64) *Estimator {
	return &Estimator{BaseFare: base, PerKm: perKm, MinimumFare: minimum}
}

// DefaultEstimator matches the fleet's published tariff card.
func DefaultEstimator() *Estimator {
	return &Estimator{BaseFare: 10, PerKm: 8, MinimumFare: 15}
}

// Estimate is pure and deterministic; a zero-distance trip still costs the
// minimum fare.
func (e *Estimator) Estimate(start, end models.Point) int64 {
	km := geo.Haversine(start, end) / 1000.0
	total := int64(math.Round(e.BaseFare + e.PerKm*km))
	if total < e.MinimumFare {
		return e.MinimumFare
	}
	return total
}
