package reservation

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/share-auto/internal/catalog"
	"github.com/example/share-auto/internal/models"
	"github.com/example/share-auto/internal/storage"
)

// fakeClock drives expiry deterministically: timers fire when Advance
// crosses their deadline, never on their own.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func newFleet(seats int) *catalog.Store {
	s := catalog.NewStore()
	s.Load([]models.Vehicle{{ID: "A1", Plate: "DL 1R 4321", Capacity: 3, SeatsFree: seats}})
	return s
}

func TestReserveDecrementsAndRejectsWhenFull(t *testing.T) {
	fleet := newFleet(1)
	r := NewRegistry(fleet, WithClock(newFakeClock()))

	res, err := r.Reserve("A1")
	if err != nil {
		t.Fatal(err)
	}
	if res.State != models.StateActive {
		t.Fatalf("expected active, got %s", res.State)
	}
	if free, _, _ := fleet.Seats("A1"); free != 0 {
		t.Fatalf("expected 0 seats free, got %d", free)
	}

	if _, err := r.Reserve("A1"); !errors.Is(err, ErrSeatUnavailable) {
		t.Fatalf("expected ErrSeatUnavailable, got %v", err)
	}
	if free, _, _ := fleet.Seats("A1"); free != 0 {
		t.Fatalf("failed reserve must not touch seats, got %d", free)
	}
}

func TestReserveUnknownVehicle(t *testing.T) {
	r := NewRegistry(newFleet(1), WithClock(newFakeClock()))
	if _, err := r.Reserve("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelRestoresExactlyOnce(t *testing.T) {
	fleet := newFleet(1)
	r := NewRegistry(fleet, WithClock(newFakeClock()))

	res, err := r.Reserve("A1")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Cancel(res.ID, models.ReasonUser); err != nil {
		t.Fatal(err)
	}
	if free, _, _ := fleet.Seats("A1"); free != 1 {
		t.Fatalf("expected seat restored to 1, got %d", free)
	}

	if err := r.Cancel(res.ID, models.ReasonUser); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
	if free, _, _ := fleet.Seats("A1"); free != 1 {
		t.Fatalf("second cancel must not restore again, got %d", free)
	}

	got, err := r.Get(res.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != models.StateCancelled {
		t.Fatalf("expected cancelled, got %s", got.State)
	}
}

func TestCancelUnknownReservation(t *testing.T) {
	r := NewRegistry(newFleet(1), WithClock(newFakeClock()))
	if err := r.Cancel("nope", models.ReasonUser); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelRejectsUnknownReason(t *testing.T) {
	fleet := newFleet(1)
	r := NewRegistry(fleet, WithClock(newFakeClock()))
	res, _ := r.Reserve("A1")
	if err := r.Cancel(res.ID, models.CancelReason("whim")); err == nil {
		t.Fatal("expected error for unknown reason")
	}
	if free, _, _ := fleet.Seats("A1"); free != 0 {
		t.Fatalf("rejected cancel must not restore, got %d", free)
	}
}

func TestNoOverbookingUnderConcurrency(t *testing.T) {
	const seats = 2
	const attempts = 16
	fleet := newFleet(seats)
	r := NewRegistry(fleet, WithClock(newFakeClock()))

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Reserve("A1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, unavailable int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrSeatUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != seats {
		t.Fatalf("expected %d successes, got %d", seats, succeeded)
	}
	if unavailable != attempts-seats {
		t.Fatalf("expected %d rejections, got %d", attempts-seats, unavailable)
	}
	if free, _, _ := fleet.Seats("A1"); free != 0 {
		t.Fatalf("expected 0 seats free, got %d", free)
	}
}

func TestSeatCountStaysInRangeUnderMixedCalls(t *testing.T) {
	fleet := newFleet(3)
	r := NewRegistry(fleet, WithClock(newFakeClock()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				res, err := r.Reserve("A1")
				if err != nil {
					continue
				}
				_ = r.Cancel(res.ID, models.ReasonUser)
			}
		}()
	}
	wg.Wait()

	free, capacity, _ := fleet.Seats("A1")
	if free < 0 || free > capacity {
		t.Fatalf("seat invariant violated: free=%d capacity=%d", free, capacity)
	}
	if free != 3 {
		t.Fatalf("all reservations cancelled, expected 3 free, got %d", free)
	}
}

func TestExpiryRestoresSeatAndMarksExpired(t *testing.T) {
	clock := newFakeClock()
	fleet := newFleet(1)
	r := NewRegistry(fleet, WithClock(clock))

	res, err := r.Reserve("A1")
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(119 * time.Second)
	got, _ := r.Get(res.ID)
	if got.State != models.StateActive {
		t.Fatalf("expected still active at t=119s, got %s", got.State)
	}

	clock.Advance(1 * time.Second)
	got, _ = r.Get(res.ID)
	if got.State != models.StateExpired {
		t.Fatalf("expected expired at t=120s, got %s", got.State)
	}
	if free, _, _ := fleet.Seats("A1"); free != 1 {
		t.Fatalf("expiry must restore the seat, got %d", free)
	}

	// Late user cancel after the timeout already closed it.
	if err := r.Cancel(res.ID, models.ReasonUser); !errors.Is(err, ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
	if free, _, _ := fleet.Seats("A1"); free != 1 {
		t.Fatalf("late cancel must not double-restore, got %d", free)
	}
}

func TestEarlyCancelRevokesTimer(t *testing.T) {
	clock := newFakeClock()
	fleet := newFleet(1)
	r := NewRegistry(fleet, WithClock(clock))

	res, _ := r.Reserve("A1")
	if err := r.Cancel(res.ID, models.ReasonCompleted); err != nil {
		t.Fatal(err)
	}

	// The revoked timer must not fire as a delayed double-cancel.
	clock.Advance(10 * time.Minute)
	got, _ := r.Get(res.ID)
	if got.State != models.StateCompleted {
		t.Fatalf("timer overwrote terminal state: %s", got.State)
	}
	if free, _, _ := fleet.Seats("A1"); free != 1 {
		t.Fatalf("expected exactly one restore, got %d", free)
	}
}

func TestSecondsRemaining(t *testing.T) {
	clock := newFakeClock()
	r := NewRegistry(newFleet(1), WithClock(clock))

	res, _ := r.Reserve("A1")
	if s, _ := r.SecondsRemaining(res.ID); s != 120 {
		t.Fatalf("expected 120s at creation, got %d", s)
	}

	clock.Advance(30*time.Second + 500*time.Millisecond)
	if s, _ := r.SecondsRemaining(res.ID); s != 90 {
		t.Fatalf("expected ceil to 90s, got %d", s)
	}

	clock.Advance(90 * time.Second)
	if s, _ := r.SecondsRemaining(res.ID); s != 0 {
		t.Fatalf("expected 0 after expiry, got %d", s)
	}
	if _, err := r.SecondsRemaining("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestShorterPickupWindow(t *testing.T) {
	clock := newFakeClock()
	fleet := newFleet(1)
	r := NewRegistry(fleet, WithClock(clock), WithPickupWindow(30*time.Second))

	res, _ := r.Reserve("A1")
	if s, _ := r.SecondsRemaining(res.ID); s != 30 {
		t.Fatalf("expected 30s window, got %d", s)
	}
	clock.Advance(30 * time.Second)
	got, _ := r.Get(res.ID)
	if got.State != models.StateExpired {
		t.Fatalf("expected expired, got %s", got.State)
	}
	if free, _, _ := fleet.Seats("A1"); free != 1 {
		t.Fatalf("expected seat back, got %d", free)
	}
}

type captureSink struct {
	mu     sync.Mutex
	events []models.ReservationEvent
}

func (c *captureSink) PublishReservation(ev models.ReservationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func TestJournalAndEventsFollowLifecycle(t *testing.T) {
	clock := newFakeClock()
	journal := storage.NewMemoryJournal()
	sink := &captureSink{}
	r := NewRegistry(newFleet(1), WithClock(clock), WithJournal(journal), WithEventSink(sink))

	res, _ := r.Reserve("A1")
	clock.Advance(DefaultPickupWindow)

	history := journal.History(res.ID)
	if len(history) != 2 {
		t.Fatalf("expected create + transition in journal, got %d entries", len(history))
	}
	if history[0].State != models.StateActive || history[1].State != models.StateExpired {
		t.Fatalf("journal states wrong: %s then %s", history[0].State, history[1].State)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	if sink.events[0].Type != "reserved" || sink.events[1].Type != "expired" {
		t.Fatalf("event types wrong: %s then %s", sink.events[0].Type, sink.events[1].Type)
	}
	if sink.events[0].SeatsFree != 0 || sink.events[1].SeatsFree != 1 {
		t.Fatalf("event seat counts wrong: %d then %d", sink.events[0].SeatsFree, sink.events[1].SeatsFree)
	}
}
