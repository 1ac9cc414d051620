package catalog

import (
	"sync"
	"time"

	"github.com/example/share-auto/internal/models"
)

// Store holds the fleet snapshot the matcher reads from. Seat counts are
// adjusted only via the reservation registry; everything else here is
// catalog bookkeeping (load, location updates, snapshots).
type Store struct {
	mu       sync.RWMutex
	vehicles map[string]*models.Vehicle
}

func NewStore() *Store {
	return &Store{vehicles: make(map[string]*models.Vehicle)}
}

// Load replaces or inserts vehicles. Capacity defaults to SeatsFree when
// unset so seeded fleets start fully free.
func (s *Store) Load(vehicles []models.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range vehicles {
		v := vehicles[i]
		if v.Capacity == 0 {
			v.Capacity = v.SeatsFree
		}
		s.vehicles[v.ID] = &v
	}
}

// Snapshot returns value copies of every vehicle, safe for the matcher to
// read without locking. Seat counts may go stale immediately; the
// reservation registry holds the authoritative check.
func (s *Store) Snapshot() []models.Vehicle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, *v)
	}
	return out
}

func (s *Store) Get(id string) (models.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return models.Vehicle{}, false
	}
	return *v, true
}

// Seats returns the free and total seat counts for a vehicle.
func (s *Store) Seats(id string) (free, capacity int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, found := s.vehicles[id]
	if !found {
		return 0, 0, false
	}
	return v.SeatsFree, v.Capacity, true
}

// AdjustSeats applies delta to a vehicle's free-seat count. The result
// must stay within [0, capacity]; out-of-range adjustments are rejected
// untouched. Only the reservation registry calls this.
func (s *Store) AdjustSeats(id string, delta int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.vehicles[id]
	if !found {
		return 0, false
	}
	next := v.SeatsFree + delta
	if next < 0 || next > v.Capacity {
		return v.SeatsFree, false
	}
	v.SeatsFree = next
	return next, true
}

// UpdateLocation folds a live position ping into the catalog.
func (s *Store) UpdateLocation(id string, loc models.Point, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, found := s.vehicles[id]
	if !found {
		return false
	}
	v.Location = loc
	v.Updated = at
	return true
}
