package payments

import (
	"context"
	"sync"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeClient wraps stripe-go PaymentIntent flows to hold the estimated
// fare while a reservation is active: hold on reserve, capture on
// completion, release on cancel or expiry. Optional; a nil client
// disables fare holds entirely.
type StripeClient struct {
	mu    sync.Mutex
	holds map[string]string // reservation id -> payment intent id
}

// NewStripeClient initializes the stripe client with the given API key.
func NewStripeClient(apiKey string) *StripeClient {
	stripe.Key = apiKey
	return &StripeClient{holds: make(map[string]string)}
}

// Hold creates a manual-capture PaymentIntent for the fare amount (minor
// units) and remembers it under the reservation id.
func (s *StripeClient) Hold(ctx context.Context, reservationID string, amount int64, currency string) error {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
	}
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	pi, err := paymentintent.New(params)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.holds[reservationID] = pi.ID
	s.mu.Unlock()
	return nil
}

// Capture finalizes the hold when the trip completes.
func (s *StripeClient) Capture(ctx context.Context, reservationID string) error {
	id, ok := s.take(reservationID)
	if !ok {
		return nil
	}
	_, err := paymentintent.Capture(id, nil)
	return err
}

// Release drops the hold when the reservation is cancelled or expires.
func (s *StripeClient) Release(ctx context.Context, reservationID string) error {
	id, ok := s.take(reservationID)
	if !ok {
		return nil
	}
	_, err := paymentintent.Cancel(id, nil)
	return err
}

func (s *StripeClient) take(reservationID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.holds[reservationID]
	if ok {
		delete(s.holds, reservationID)
	}
	return id, ok
}
