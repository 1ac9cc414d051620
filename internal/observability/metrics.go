package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "share_auto", Name: "match_queries_total", Help: "Total eligibility queries served"})
	MatchesReturned   = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "share_auto", Name: "matches_returned", Help: "Eligible vehicles per query", Buckets: []float64{0, 1, 2, 3, 5, 8, 13}})

	ReservationsCreated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "share_auto", Name: "reservations_created_total", Help: "Successful seat reservations"})
	ReservationsClosed  = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "share_auto", Name: "reservations_closed_total", Help: "Reservations reaching a terminal state"},
		[]string{"reason"},
	)
	SeatUnavailableTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "share_auto", Name: "seat_unavailable_total", Help: "Reserve attempts rejected for lack of seats"})
	ActiveReservations   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "share_auto", Name: "reservations_active", Help: "Reservations currently holding a seat"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "share_auto", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "share_auto",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
