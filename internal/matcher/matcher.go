package matcher

import (
	"errors"
	"sort"

	"github.com/example/share-auto/internal/geo"
	"github.com/example/share-auto/internal/models"
)

// ErrMissingEndpoint distinguishes "nothing to search yet" from an empty
// match list; callers should prompt for the missing point rather than
// report no availability.
var ErrMissingEndpoint = errors.New("trip request needs both start and end")

const DefaultThresholdMeters = 200.0

// Match pairs an eligible vehicle with its pickup distance so callers can
// show how far the rider is from the route.
type Match struct {
	Vehicle       models.Vehicle `json:"vehicle"`
	PickupMeters  float64        `json:"pickup_meters"`
	DropoffMeters float64        `json:"dropoff_meters"`
}

// FindEligible returns vehicles with at least one free seat whose route
// passes strictly within thresholdMeters of both trip endpoints, closest
// pickup first, ties broken by vehicle id. Pure with respect to its
// inputs; safe to call repeatedly as inventory changes. SeatsFree may be
// momentarily stale here; the authoritative seat check happens in the
// reservation registry.
func FindEligible(trip models.TripRequest, vehicles []models.Vehicle, thresholdMeters float64) ([]Match, error) {
	if trip.Start == nil || trip.End == nil {
		return nil, ErrMissingEndpoint
	}
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}

	out := make([]Match, 0, len(vehicles))
	for _, v := range vehicles {
		if v.SeatsFree <= 0 {
			continue
		}
		start := geo.DistanceToRoute(*trip.Start, v.Route)
		if start >= thresholdMeters {
			continue
		}
		end := geo.DistanceToRoute(*trip.End, v.Route)
		if end >= thresholdMeters {
			continue
		}
		out = append(out, Match{Vehicle: v, PickupMeters: start, DropoffMeters: end})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].PickupMeters != out[j].PickupMeters {
			return out[i].PickupMeters < out[j].PickupMeters
		}
		return out[i].Vehicle.ID < out[j].Vehicle.ID
	})
	return out, nil
}
