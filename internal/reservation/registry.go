package reservation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/share-auto/internal/models"
	"github.com/example/share-auto/internal/observability"
	"github.com/example/share-auto/internal/storage"
)

var (
	// ErrSeatUnavailable is returned when the atomic check finds no free
	// seat. The failed attempt has no side effects.
	ErrSeatUnavailable = errors.New("no free seat on vehicle")
	// ErrNotFound covers unknown reservation and vehicle ids.
	ErrNotFound = errors.New("reservation not found")
	// ErrAlreadyTerminal is the idempotence guard: a second cancel on a
	// closed reservation must not restore the seat again. Callers treat
	// it as a no-op, e.g. a timeout firing just after a user cancel.
	ErrAlreadyTerminal = errors.New("reservation already closed")
)

// DefaultPickupWindow is how long a rider has to reach the pickup point
// before the seat is released.
const DefaultPickupWindow = 120 * time.Second

// Fleet is the seat-inventory surface the registry mutates. Implemented
// by catalog.Store.
type Fleet interface {
	Seats(vehicleID string) (free, capacity int, ok bool)
	AdjustSeats(vehicleID string, delta int) (int, bool)
}

// EventSink receives lifecycle events, best-effort. Implemented by the
// Kafka producer and the driver WS dispatcher.
type EventSink interface {
	PublishReservation(ev models.ReservationEvent) error
}

type entry struct {
	res   models.Reservation
	timer Timer
}

// Registry owns reservation lifecycles and is the only mutator of seat
// inventory. Reserve and Cancel serialize per vehicle; operations on
// different vehicles never block each other.
type Registry struct {
	fleet        Fleet
	clock        Clock
	pickupWindow time.Duration

	journal storage.Journal // optional
	sinks   []EventSink     // optional
	logger  *slog.Logger

	mu           sync.Mutex
	reservations map[string]*entry
	vehicleLocks map[string]*sync.Mutex
}

// Option tweaks an optional registry collaborator.
type Option func(*Registry)

func WithClock(c Clock) Option { return func(r *Registry) { r.clock = c } }

func WithPickupWindow(d time.Duration) Option { return func(r *Registry) { r.pickupWindow = d } }

func WithJournal(j storage.Journal) Option { return func(r *Registry) { r.journal = j } }

func WithEventSink(s EventSink) Option { return func(r *Registry) { r.sinks = append(r.sinks, s) } }

func WithLogger(l *slog.Logger) Option { return func(r *Registry) { r.logger = l } }

func NewRegistry(fleet Fleet, opts ...Option) *Registry {
	r := &Registry{
		fleet:        fleet,
		clock:        SystemClock,
		pickupWindow: DefaultPickupWindow,
		logger:       slog.Default(),
		reservations: make(map[string]*entry),
		vehicleLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) vehicleLock(vehicleID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.vehicleLocks[vehicleID]
	if !ok {
		l = &sync.Mutex{}
		r.vehicleLocks[vehicleID] = l
	}
	return l
}

// Reserve atomically checks and decrements the vehicle's free seats and
// creates an active reservation with an expiry timer. Under concurrent
// calls against one vehicle, successes never exceed the seats available
// at the start of the contention window.
func (r *Registry) Reserve(vehicleID string) (models.Reservation, error) {
	lock := r.vehicleLock(vehicleID)
	lock.Lock()

	free, _, ok := r.fleet.Seats(vehicleID)
	if !ok {
		lock.Unlock()
		return models.Reservation{}, fmt.Errorf("vehicle %s: %w", vehicleID, ErrNotFound)
	}
	if free <= 0 {
		lock.Unlock()
		observability.SeatUnavailableTotal.Inc()
		return models.Reservation{}, ErrSeatUnavailable
	}
	seatsLeft, ok := r.fleet.AdjustSeats(vehicleID, -1)
	if !ok {
		lock.Unlock()
		return models.Reservation{}, ErrSeatUnavailable
	}

	now := r.clock.Now()
	res := models.Reservation{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		State:     models.StateActive,
		CreatedAt: now,
		ExpiresAt: now.Add(r.pickupWindow),
	}
	e := &entry{res: res}
	r.mu.Lock()
	r.reservations[res.ID] = e
	r.mu.Unlock()

	// The timer is armed while the vehicle lock is held, so a firing
	// timeout queues behind us and then hits the terminal-state guard
	// like any other cancel.
	id := res.ID
	e.timer = r.clock.AfterFunc(r.pickupWindow, func() {
		if err := r.Cancel(id, models.ReasonTimeout); err != nil && !errors.Is(err, ErrAlreadyTerminal) {
			r.logger.Error("expiry cancel failed", "reservation_id", id, "error", err)
		}
	})
	lock.Unlock()

	observability.ReservationsCreated.Inc()
	observability.ActiveReservations.Inc()
	r.logger.Info("reservation created",
		"reservation_id", res.ID, "vehicle_id", vehicleID,
		"seats_left", seatsLeft, "expires_at", res.ExpiresAt)

	if r.journal != nil {
		if err := r.journal.RecordCreated(res); err != nil {
			r.logger.Error("journal write failed", "reservation_id", res.ID, "error", err)
		}
	}
	r.emit(models.ReservationEvent{Type: "reserved", Reservation: res, SeatsFree: seatsLeft, At: now})
	return res, nil
}

// Cancel moves the reservation to the terminal state for reason and
// restores its seat exactly once. A reservation that is already closed
// yields ErrAlreadyTerminal and no seat mutation.
func (r *Registry) Cancel(reservationID string, reason models.CancelReason) error {
	target, ok := terminalStateFor(reason)
	if !ok {
		return fmt.Errorf("unknown cancel reason %q", reason)
	}

	r.mu.Lock()
	e, found := r.reservations[reservationID]
	r.mu.Unlock()
	if !found {
		return ErrNotFound
	}

	lock := r.vehicleLock(e.res.VehicleID)
	lock.Lock()
	if e.res.State.Terminal() {
		lock.Unlock()
		return ErrAlreadyTerminal
	}
	e.res.State = target
	if e.timer != nil {
		e.timer.Stop()
	}
	seatsLeft, restored := r.fleet.AdjustSeats(e.res.VehicleID, +1)
	res := e.res
	lock.Unlock()

	if !restored {
		// Capacity would be exceeded only if someone mutated seats
		// outside the registry; surface it loudly.
		r.logger.Error("seat restore rejected", "reservation_id", res.ID, "vehicle_id", res.VehicleID)
	}

	observability.ActiveReservations.Dec()
	observability.ReservationsClosed.WithLabelValues(string(reason)).Inc()
	r.logger.Info("reservation closed",
		"reservation_id", res.ID, "vehicle_id", res.VehicleID,
		"reason", reason, "seats_left", seatsLeft)

	if r.journal != nil {
		if err := r.journal.RecordTransition(res); err != nil {
			r.logger.Error("journal write failed", "reservation_id", res.ID, "error", err)
		}
	}
	r.emit(models.ReservationEvent{Type: eventTypeFor(reason), Reservation: res, SeatsFree: seatsLeft, At: r.clock.Now()})
	return nil
}

// Get returns a snapshot of the reservation.
func (r *Registry) Get(reservationID string) (models.Reservation, error) {
	r.mu.Lock()
	e, found := r.reservations[reservationID]
	r.mu.Unlock()
	if !found {
		return models.Reservation{}, ErrNotFound
	}
	lock := r.vehicleLock(e.res.VehicleID)
	lock.Lock()
	res := e.res
	lock.Unlock()
	return res, nil
}

// SecondsRemaining reports whole seconds until expiry, rounded up, zero
// once expired or closed.
func (r *Registry) SecondsRemaining(reservationID string) (int64, error) {
	res, err := r.Get(reservationID)
	if err != nil {
		return 0, err
	}
	if res.State.Terminal() {
		return 0, nil
	}
	left := res.ExpiresAt.Sub(r.clock.Now())
	if left <= 0 {
		return 0, nil
	}
	return int64(math.Ceil(left.Seconds())), nil
}

func (r *Registry) emit(ev models.ReservationEvent) {
	for _, s := range r.sinks {
		if err := s.PublishReservation(ev); err != nil {
			r.logger.Warn("event publish failed", "type", ev.Type, "reservation_id", ev.Reservation.ID, "error", err)
		}
	}
}

func terminalStateFor(reason models.CancelReason) (models.ReservationState, bool) {
	switch reason {
	case models.ReasonUser:
		return models.StateCancelled, true
	case models.ReasonTimeout:
		return models.StateExpired, true
	case models.ReasonCompleted:
		return models.StateCompleted, true
	default:
		return "", false
	}
}

func eventTypeFor(reason models.CancelReason) string {
	switch reason {
	case models.ReasonTimeout:
		return "expired"
	case models.ReasonCompleted:
		return "completed"
	default:
		return "cancelled"
	}
}
