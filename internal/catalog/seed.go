package catalog

import "github.com/example/share-auto/internal/models"

// Demo fleet on two Delhi corridors, used when no external catalog feed
// is configured. Both Route A vehicles share the same Route value.
var (
	routeA = &models.Route{Name: "Route A", Points: []models.Point{
		{Lat: 28.6448, Lon: 77.216721}, // Connaught Place
		{Lat: 28.626, Lon: 77.218},
		{Lat: 28.6129, Lon: 77.2295},
		{Lat: 28.5933, Lon: 77.2273}, // India Gate area
		{Lat: 28.5733, Lon: 77.2090},
	}}
	routeB = &models.Route{Name: "Route B", Points: []models.Point{
		{Lat: 28.6347, Lon: 77.2200},
		{Lat: 28.6400, Lon: 77.2000},
		{Lat: 28.6500, Lon: 77.1800},
		{Lat: 28.6600, Lon: 77.1600},
	}}
)

// SeedDemoFleet loads the demo autos into the store.
func SeedDemoFleet(s *Store) {
	s.Load([]models.Vehicle{
		{ID: "A1", Plate: "DL 1R 4321", Driver: "Amit", Route: routeA, Capacity: 3, SeatsFree: 1, Location: routeA.Points[2]},
		{ID: "A2", Plate: "DL 2S 9876", Driver: "Bhavna", Route: routeA, Capacity: 3, SeatsFree: 0, Location: routeA.Points[1]},
		{ID: "B1", Plate: "DL 3T 5555", Driver: "Chandan", Route: routeB, Capacity: 3, SeatsFree: 1, Location: routeB.Points[1]},
	})
}
