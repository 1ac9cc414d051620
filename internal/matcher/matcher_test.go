package matcher

import (
	"errors"
	"testing"

	"github.com/example/share-auto/internal/geo"
	"github.com/example/share-auto/internal/models"
)

var testRoute = &models.Route{Name: "Route A", Points: []models.Point{
	{Lat: 28.6448, Lon: 77.216721},
	{Lat: 28.626, Lon: 77.218},
	{Lat: 28.6129, Lon: 77.2295},
	{Lat: 28.5933, Lon: 77.2273},
	{Lat: 28.5733, Lon: 77.2090},
}}

var farRoute = &models.Route{Name: "Route B", Points: []models.Point{
	{Lat: 28.6347, Lon: 77.2200},
	{Lat: 28.6400, Lon: 77.2000},
	{Lat: 28.6500, Lon: 77.1800},
	{Lat: 28.6600, Lon: 77.1600},
}}

func vehicle(id string, route *models.Route, seats int) models.Vehicle {
	return models.Vehicle{ID: id, Route: route, Capacity: 3, SeatsFree: seats}
}

func TestFindEligibleMissingEndpoint(t *testing.T) {
	start := models.Point{Lat: 28.6129, Lon: 77.2295}
	_, err := FindEligible(models.TripRequest{Start: &start}, []models.Vehicle{vehicle("A1", testRoute, 1)}, 200)
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}
	_, err = FindEligible(models.TripRequest{}, nil, 200)
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("expected ErrMissingEndpoint, got %v", err)
	}
}

func TestFindEligibleOnRoute(t *testing.T) {
	start := models.Point{Lat: 28.6129, Lon: 77.2295}
	end := models.Point{Lat: 28.5933, Lon: 77.2273}
	trip := models.TripRequest{Start: &start, End: &end}

	vehicles := []models.Vehicle{
		vehicle("A1", testRoute, 1),
		vehicle("A2", testRoute, 0), // full
		vehicle("B1", farRoute, 1),  // other corridor
	}
	got, err := FindEligible(trip, vehicles, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Vehicle.ID != "A1" {
		t.Fatalf("expected just A1, got %+v", got)
	}
}

func TestFindEligibleNoMatchesIsEmptyNotError(t *testing.T) {
	start := models.Point{Lat: 28.70, Lon: 77.10}
	end := models.Point{Lat: 28.71, Lon: 77.11}
	got, err := FindEligible(models.TripRequest{Start: &start, End: &end}, []models.Vehicle{vehicle("A1", testRoute, 1)}, 200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %+v", got)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	// Pick a point a few hundred meters off the corridor and use its exact
	// route distance as the threshold: strictly-less-than must exclude it,
	// while any wider threshold admits it.
	p := models.Point{Lat: 28.6129, Lon: 77.2330}
	end := models.Point{Lat: 28.5933, Lon: 77.2273}
	d := geo.DistanceToRoute(p, testRoute)
	if d <= 0 {
		t.Fatalf("test point unexpectedly on the route")
	}
	trip := models.TripRequest{Start: &p, End: &end}
	vehicles := []models.Vehicle{vehicle("A1", testRoute, 1)}

	if got, _ := FindEligible(trip, vehicles, d); len(got) != 0 {
		t.Fatalf("distance == threshold must be excluded, got %+v", got)
	}
	if got, _ := FindEligible(trip, vehicles, d+0.001); len(got) != 1 {
		t.Fatalf("distance just under threshold must be included")
	}
}

func TestOrderingAndTieBreak(t *testing.T) {
	start := models.Point{Lat: 28.6129, Lon: 77.2295}
	end := models.Point{Lat: 28.5933, Lon: 77.2273}
	trip := models.TripRequest{Start: &start, End: &end}

	// Same route, so identical distances: order must fall back to id.
	vehicles := []models.Vehicle{
		vehicle("A9", testRoute, 1),
		vehicle("A1", testRoute, 2),
		vehicle("A5", testRoute, 1),
	}
	got, err := FindEligible(trip, vehicles, 200)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A1", "A5", "A9"}
	if len(got) != len(want) {
		t.Fatalf("expected %d matches, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].Vehicle.ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[i].Vehicle.ID)
		}
	}
}

func TestFindEligibleDoesNotMutateInputs(t *testing.T) {
	start := models.Point{Lat: 28.6129, Lon: 77.2295}
	end := models.Point{Lat: 28.5933, Lon: 77.2273}
	trip := models.TripRequest{Start: &start, End: &end}
	vehicles := []models.Vehicle{vehicle("A1", testRoute, 2)}

	first, _ := FindEligible(trip, vehicles, 200)
	second, _ := FindEligible(trip, vehicles, 200)
	if vehicles[0].SeatsFree != 2 {
		t.Fatalf("matcher mutated seat count: %d", vehicles[0].SeatsFree)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat call diverged: %d vs %d", len(first), len(second))
	}
}
