package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/share-auto/internal/catalog"
	"github.com/example/share-auto/internal/config"
	"github.com/example/share-auto/internal/dispatch"
	"github.com/example/share-auto/internal/fare"
	"github.com/example/share-auto/internal/geo"
	"github.com/example/share-auto/internal/ingest"
	"github.com/example/share-auto/internal/matcher"
	"github.com/example/share-auto/internal/models"
	"github.com/example/share-auto/internal/observability"
	"github.com/example/share-auto/internal/payments"
	"github.com/example/share-auto/internal/places"
	"github.com/example/share-auto/internal/reservation"
	"github.com/example/share-auto/internal/routing"
	"github.com/example/share-auto/internal/storage"
)

// Server is the presentation layer over the matching and reservation core.
type Server struct {
	Catalog  *catalog.Store
	Registry *reservation.Registry
	Fare     *fare.Estimator
	Routing  routing.Client
	Places   *places.NominatimClient
	Kafka    *ingest.KafkaProducer
	Tracker  geo.Tracker
	WSReg    *dispatch.WSRegistry
	Payments *payments.StripeClient

	threshold float64
	logger    *slog.Logger
	mux       *mux.Router
}

// NewServer wires the core and its collaborators from config. Redis,
// Kafka, Postgres and Stripe are all optional; the core runs fully
// in-memory without them.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	store := catalog.NewStore()
	catalog.SeedDemoFleet(store)

	var journal storage.Journal
	if cfg.PGDSN != "" {
		if pj, err := storage.NewPostgresJournal(cfg.PGDSN); err == nil {
			journal = pj
		} else {
			logger.Warn("postgres journal unavailable", "error", err)
		}
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.LocationTopic, cfg.ReservationTopic)
	}

	var tracker geo.Tracker
	if cfg.RedisAddr != "" {
		tracker = geo.NewRedisTracker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	}

	wsreg := dispatch.NewWSRegistry()

	opts := []reservation.Option{
		reservation.WithPickupWindow(cfg.PickupWindow),
		reservation.WithLogger(logger),
		reservation.WithEventSink(wsreg),
	}
	if journal != nil {
		opts = append(opts, reservation.WithJournal(journal))
	}
	if kp != nil {
		opts = append(opts, reservation.WithEventSink(kp))
	}
	registry := reservation.NewRegistry(store, opts...)

	var pay *payments.StripeClient
	if cfg.StripeAPIKey != "" {
		pay = payments.NewStripeClient(cfg.StripeAPIKey)
	}

	s := &Server{
		Catalog:   store,
		Registry:  registry,
		Fare:      fare.NewEstimator(cfg.FareBase, cfg.FarePerKm, cfg.FareMinimum),
		Routing:   routing.NewOSRMClient(cfg.OSRMEndpoint),
		Places:    places.NewNominatimClient(cfg.NominatimEndpoint),
		Kafka:     kp,
		Tracker:   tracker,
		WSReg:     wsreg,
		Payments:  pay,
		threshold: cfg.MatchThresholdMeters,
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/trips/matches", s.handleMatches).Methods("POST")
	s.mux.HandleFunc("/api/v1/reservations", s.handleReserve).Methods("POST")
	s.mux.HandleFunc("/api/v1/reservations/{id}", s.handleGetReservation).Methods("GET")
	s.mux.HandleFunc("/api/v1/reservations/{id}", s.handleCancelReservation).Methods("DELETE")
	s.mux.HandleFunc("/api/v1/fare/estimate", s.handleFareEstimate).Methods("GET")
	s.mux.HandleFunc("/api/v1/routes/plan", s.handleRoutePlan).Methods("GET")
	s.mux.HandleFunc("/api/v1/places/search", s.handlePlaceSearch).Methods("GET")
	s.mux.HandleFunc("/internal/vehicle/locations", s.handleLocationPing).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{vehicle_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type matchRequest struct {
	Start           *models.Point `json:"start"`
	End             *models.Point `json:"end"`
	ThresholdMeters float64       `json:"threshold_meters,omitempty"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	threshold := s.threshold
	if req.ThresholdMeters > 0 {
		threshold = req.ThresholdMeters
	}
	trip := models.TripRequest{Start: req.Start, End: req.End}
	matches, err := matcher.FindEligible(trip, s.Catalog.Snapshot(), threshold)
	if errors.Is(err, matcher.ErrMissingEndpoint) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	observability.MatchQueriesTotal.Inc()
	observability.MatchesReturned.Observe(float64(len(matches)))
	writeJSON(w, map[string]any{"matches": matches})
}

type reserveRequest struct {
	VehicleID string        `json:"vehicle_id"`
	Start     *models.Point `json:"start,omitempty"`
	End       *models.Point `json:"end,omitempty"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.VehicleID == "" {
		http.Error(w, "vehicle_id required", http.StatusBadRequest)
		return
	}
	res, err := s.Registry.Reserve(req.VehicleID)
	if errors.Is(err, reservation.ErrSeatUnavailable) {
		http.Error(w, "no free seat; re-run the match query for alternatives", http.StatusConflict)
		return
	}
	if errors.Is(err, reservation.ErrNotFound) {
		http.Error(w, "unknown vehicle", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"reservation": res}
	if secs, err := s.Registry.SecondsRemaining(res.ID); err == nil {
		resp["seconds_remaining"] = secs
	}
	if req.Start != nil && req.End != nil {
		amount := s.Fare.Estimate(*req.Start, *req.End)
		resp["fare_estimate"] = amount
		if s.Payments != nil {
			// Hold the fare in paise for the life of the reservation.
			if err := s.Payments.Hold(r.Context(), res.ID, amount*100, "inr"); err != nil {
				s.logger.Warn("fare hold failed", "reservation_id", res.ID, "error", err)
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := s.Registry.Get(id)
	if errors.Is(err, reservation.ErrNotFound) {
		http.Error(w, "unknown reservation", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	secs, _ := s.Registry.SecondsRemaining(id)
	writeJSON(w, map[string]any{"reservation": res, "seconds_remaining": secs})
}

func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	reason := models.CancelReason(r.URL.Query().Get("reason"))
	if reason == "" {
		reason = models.ReasonUser
	}
	if reason == models.ReasonTimeout {
		// The expiry path belongs to the registry's timer, not the API.
		http.Error(w, "reason must be user or completed", http.StatusBadRequest)
		return
	}
	err := s.Registry.Cancel(id, reason)
	switch {
	case errors.Is(err, reservation.ErrNotFound):
		http.Error(w, "unknown reservation", http.StatusNotFound)
		return
	case errors.Is(err, reservation.ErrAlreadyTerminal):
		http.Error(w, "reservation already closed", http.StatusGone)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if s.Payments != nil {
		var perr error
		if reason == models.ReasonCompleted {
			perr = s.Payments.Capture(r.Context(), id)
		} else {
			perr = s.Payments.Release(r.Context(), id)
		}
		if perr != nil {
			s.logger.Warn("fare hold settlement failed", "reservation_id", id, "error", perr)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFareEstimate(w http.ResponseWriter, r *http.Request) {
	start, ok1 := pointFromQuery(r, "start_lat", "start_lon")
	end, ok2 := pointFromQuery(r, "end_lat", "end_lon")
	if !ok1 || !ok2 {
		http.Error(w, "start_lat, start_lon, end_lat, end_lon required", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"currency": "INR", "amount": s.Fare.Estimate(start, end)})
}

func (s *Server) handleRoutePlan(w http.ResponseWriter, r *http.Request) {
	start, ok1 := pointFromQuery(r, "start_lat", "start_lon")
	end, ok2 := pointFromQuery(r, "end_lat", "end_lon")
	if !ok1 || !ok2 {
		http.Error(w, "start_lat, start_lon, end_lat, end_lon required", http.StatusBadRequest)
		return
	}
	pts, err := s.Routing.Plan(start, end)
	if err != nil {
		http.Error(w, "routing unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"points": pts})
}

func (s *Server) handlePlaceSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if len(q) < 3 {
		http.Error(w, "q must be at least 3 characters", http.StatusBadRequest)
		return
	}
	cands, err := s.Places.Search(q, 5)
	if err != nil {
		http.Error(w, "place lookup unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, map[string]any{"candidates": cands})
}

func (s *Server) handleLocationPing(w http.ResponseWriter, r *http.Request) {
	var ping models.LocationPing
	if err := json.NewDecoder(r.Body).Decode(&ping); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ping.At.IsZero() {
		ping.At = time.Now()
	}
	s.Catalog.UpdateLocation(ping.VehicleID, ping.Loc, ping.At)
	if s.Kafka != nil {
		if err := s.Kafka.PublishLocation(ping); err != nil {
			s.logger.Warn("location publish failed", "vehicle_id", ping.VehicleID, "error", err)
		}
	}
	if s.Tracker != nil {
		if err := s.Tracker.Record(r.Context(), ping); err != nil {
			s.logger.Warn("tracker update failed", "vehicle_id", ping.VehicleID, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["vehicle_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)
}

func pointFromQuery(r *http.Request, latKey, lonKey string) (models.Point, bool) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get(lonKey), 64)
	if latErr != nil || lonErr != nil {
		return models.Point{}, false
	}
	return models.Point{Lat: lat, Lon: lon}, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
