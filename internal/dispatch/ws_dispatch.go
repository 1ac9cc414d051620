package dispatch

import (
	"errors"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/share-auto/internal/models"
)

// ErrNoSession means the driver for that vehicle is not connected.
var ErrNoSession = errors.New("no ws session for vehicle")

// WSSession is a connected driver app, one per vehicle.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WSRegistry holds driver sessions keyed by vehicle id and pushes
// reservation events to them so the driver knows a seat was taken or
// released.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(vehicleID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[vehicleID] = &WSSession{conn: conn}
}

func (r *WSRegistry) Remove(vehicleID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, vehicleID)
}

// PublishReservation implements the registry event sink. A vehicle with
// no connected driver is not an error worth surfacing to the rider path.
func (r *WSRegistry) PublishReservation(ev models.ReservationEvent) error {
	r.mu.RLock()
	s, ok := r.sessions[ev.Reservation.VehicleID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := s.send(ev); err != nil {
		log.Printf("ws send error: %v", err)
		return err
	}
	return nil
}
