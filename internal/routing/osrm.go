package routing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/share-auto/internal/models"
)

// Client plans a drivable path between two points. The geometry is opaque
// display material; matching and fares never depend on it.
type Client interface {
	Plan(from, to models.Point) ([]models.Point, error)
}

// OSRMClient fetches route geometry from an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
	cache    *planCache
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 3 * time.Second},
		cache:    newPlanCache(5 * time.Minute),
	}
}

// Plan queries OSRM /route with GeoJSON geometry and returns the polyline
// as ordered points. Results are cached briefly; the demo OSRM server is
// rate limited.
func (o *OSRMClient) Plan(from, to models.Point) ([]models.Point, error) {
	if pts, ok := o.cache.get(from, to); ok {
		return pts, nil
	}
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	resp, err := o.Client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("osrm no route: %v", out.Code)
	}
	coords := out.Routes[0].Geometry.Coordinates
	pts := make([]models.Point, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		pts = append(pts, models.Point{Lat: c[1], Lon: c[0]})
	}
	o.cache.set(from, to, pts)
	return pts, nil
}
