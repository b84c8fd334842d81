package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"timeslot-service/internal/booking"
)

const TypeBookingCreated = "booking.created"

// BookingCreated is the payload published after a booking is stored.
type BookingCreated struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Booking    booking.Booking `json:"booking"`
}

// Publisher announces stored bookings.
type Publisher interface {
	BookingCreated(ctx context.Context, b booking.Booking) error
	Close() error
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) BookingCreated(context.Context, booking.Booking) error { return nil }
func (Nop) Close() error                                           { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes booking events keyed by slot id, so bookings of
// one slot land on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic, now: time.Now}
}

// New returns a Kafka publisher, or Nop when brokers is blank.
func New(brokers, topic string) Publisher {
	list := SplitBrokers(brokers)
	if len(list) == 0 {
		return Nop{}
	}
	return NewKafkaPublisher(list, topic)
}

func (p *KafkaPublisher) BookingCreated(ctx context.Context, b booking.Booking) error {
	evt := BookingCreated{EventID: uuid.NewString(), OccurredAt: p.now().UTC(), Booking: b}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: encode: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(b.SlotID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(evt.EventID)},
			{Key: "event_type", Value: []byte(TypeBookingCreated)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: publish %s: %w", TypeBookingCreated, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
