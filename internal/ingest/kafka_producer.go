package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/share-auto/internal/models"
)

// KafkaProducer publishes vehicle location pings and reservation lifecycle
// events, each to its own topic.
type KafkaProducer struct {
	locations    *kafka.Writer
	reservations *kafka.Writer
}

func NewKafkaProducer(brokers []string, locationTopic, reservationTopic string) *KafkaProducer {
	mk := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	}
	return &KafkaProducer{locations: mk(locationTopic), reservations: mk(reservationTopic)}
}

func (k *KafkaProducer) PublishLocation(p models.LocationPing) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(p)
	return k.locations.WriteMessages(ctx, kafka.Message{Key: []byte(p.VehicleID), Value: b})
}

// PublishReservation satisfies the registry's event sink. Keyed by vehicle
// so consumers see one vehicle's seat changes in order.
func (k *KafkaProducer) PublishReservation(ev models.ReservationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(ev)
	return k.reservations.WriteMessages(ctx, kafka.Message{Key: []byte(ev.Reservation.VehicleID), Value: b})
}

func (k *KafkaProducer) Close() error {
	var first error
	for _, w := range []*kafka.Writer{k.locations, k.reservations} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
