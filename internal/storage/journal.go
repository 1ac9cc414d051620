package storage

import (
	"sync"

	"github.com/example/share-auto/internal/models"
)

// Journal is a write-behind audit trail of reservation transitions. The
// in-memory registry stays authoritative for the seat invariant; the
// journal only has to record what happened, in order, per reservation.
type Journal interface {
	RecordCreated(r models.Reservation) error
	RecordTransition(r models.Reservation) error
}

type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string][]models.Reservation
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string][]models.Reservation)}
}

func (m *MemoryJournal) RecordCreated(r models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[r.ID] = append(m.entries[r.ID], r)
	return nil
}

func (m *MemoryJournal) RecordTransition(r models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[r.ID] = append(m.entries[r.ID], r)
	return nil
}

// History returns the recorded states for a reservation, oldest first.
func (m *MemoryJournal) History(id string) []models.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Reservation, len(m.entries[id]))
	copy(out, m.entries[id])
	return out
}
