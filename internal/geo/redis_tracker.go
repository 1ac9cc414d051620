package geo

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/share-auto/internal/models"
)

// Tracker records live vehicle positions for display surfaces. It is
// advisory: matching and the seat invariant never read from it.
type Tracker interface {
	Record(ctx context.Context, ping models.LocationPing) error
	Near(ctx context.Context, center models.Point, radiusM float64, limit int) ([]models.LocationPing, error)
}

// RedisTracker keeps vehicle positions in a Redis GEO set plus a small
// metadata hash per vehicle.
type RedisTracker struct {
	client *redis.Client
	key    string
}

func NewRedisTracker(addr, password, key string) *RedisTracker {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisTracker{client: c, key: key}
}

func (t *RedisTracker) Record(ctx context.Context, ping models.LocationPing) error {
	if _, err := t.client.GeoAdd(ctx, t.key, &redis.GeoLocation{
		Longitude: ping.Loc.Lon,
		Latitude:  ping.Loc.Lat,
		Name:      ping.VehicleID,
	}).Result(); err != nil {
		return err
	}
	return t.client.HSet(ctx, metaKey(ping.VehicleID), map[string]interface{}{
		"seats_free": strconv.Itoa(ping.SeatsFree),
		"updated":    time.Now().Format(time.RFC3339),
	}).Err()
}

func (t *RedisTracker) Near(ctx context.Context, center models.Point, radiusM float64, limit int) ([]models.LocationPing, error) {
	res, err := t.client.GeoRadius(ctx, t.key, center.Lon, center.Lat, &redis.GeoRadiusQuery{
		Radius: radiusM, Unit: "m", WithCoord: true, Count: limit, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.LocationPing, 0, len(res))
	for _, g := range res {
		p := models.LocationPing{VehicleID: g.Name, Loc: models.Point{Lat: g.Latitude, Lon: g.Longitude}}
		if m, err := t.client.HGetAll(ctx, metaKey(g.Name)).Result(); err == nil {
			if v, ok := m["seats_free"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					p.SeatsFree = n
				}
			}
			if v, ok := m["updated"]; ok {
				if ts, err := time.Parse(time.RFC3339, v); err == nil {
					p.At = ts
				}
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (t *RedisTracker) Close() error { return t.client.Close() }

func metaKey(id string) string { return "vehicle:meta:" + id }
