package models

import "time"

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Route is the fixed polyline an auto travels, at least two points.
// Routes are shared by reference; several vehicles may run the same route.
type Route struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Vehicle is a share auto assigned to a fixed route. SeatsFree is mutated
// only through the reservation registry, never directly by callers.
type Vehicle struct {
	ID        string `json:"id"`
	Plate     string `json:"plate"`
	Driver    string `json:"driver"`
	Route     *Route `json:"route"`
	Capacity  int    `json:"capacity"`
	SeatsFree int    `json:"seats_free"`

	Location Point     `json:"location"`
	Updated  time.Time `json:"updated"`
}

// TripRequest is a rider's start/end pair. Transient; nothing persists it.
type TripRequest struct {
	Start *Point `json:"start"`
	End   *Point `json:"end"`
}

type ReservationState string

const (
	StateActive    ReservationState = "active"
	StateCompleted ReservationState = "completed"
	StateExpired   ReservationState = "expired"
	StateCancelled ReservationState = "cancelled"
)

// Terminal reports whether the state admits no further transitions.
func (s ReservationState) Terminal() bool {
	return s == StateCompleted || s == StateExpired || s == StateCancelled
}

// CancelReason selects the terminal state a cancel drives a reservation to.
type CancelReason string

const (
	ReasonUser      CancelReason = "user"
	ReasonTimeout   CancelReason = "timeout"
	ReasonCompleted CancelReason = "completed"
)

type Reservation struct {
	ID        string           `json:"id"`
	VehicleID string           `json:"vehicle_id"`
	State     ReservationState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// ReservationEvent is emitted on every reservation lifecycle transition,
// for the driver channel and the Kafka event stream.
type ReservationEvent struct {
	Type        string      `json:"type"` // reserved, cancelled, expired, completed
	Reservation Reservation `json:"reservation"`
	SeatsFree   int         `json:"seats_free"`
	At          time.Time   `json:"at"`
}

// LocationPing is a live position update from a vehicle, published to Kafka
// and folded into the Redis tracker for display. Advisory only; matching
// works off the fixed route, not the live position.
type LocationPing struct {
	VehicleID string    `json:"vehicle_id"`
	Loc       Point     `json:"loc"`
	SeatsFree int       `json:"seats_free"`
	At        time.Time `json:"at"`
}
