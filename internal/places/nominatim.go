package places

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/example/share-auto/internal/models"
)

// Candidate is one geocoding suggestion for a free-text query, advisory
// input for building a trip request.
type Candidate struct {
	Name  string       `json:"name"`
	Point models.Point `json:"point"`
}

// NominatimClient looks up place candidates via the Nominatim search API.
type NominatimClient struct {
	Endpoint string
	Client   *http.Client
}

func NewNominatimClient(endpoint string) *NominatimClient {
	return &NominatimClient{Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

// Search returns up to limit candidates for the query.
func (n *NominatimClient) Search(query string, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 5
	}
	u := n.Endpoint + "/search?format=json&q=" + url.QueryEscape(query)
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", "en")
	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, limit)
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lon, lonErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		out = append(out, Candidate{Name: r.DisplayName, Point: models.Point{Lat: lat, Lon: lon}})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
