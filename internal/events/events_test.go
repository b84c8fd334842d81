package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"timeslot-service/internal/booking"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestBookingCreated(t *testing.T) {
	w := &captureWriter{}
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	p := &KafkaPublisher{writer: w, topic: "bookings.created", now: func() time.Time { return now }}

	b := booking.Booking{ID: "bk-1", SlotID: "evt-1", MeetingType: "video"}
	if err := p.BookingCreated(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "evt-1" {
		t.Errorf("expected slot id key, got %s", msg.Key)
	}
	if header(msg, "event_type") != TypeBookingCreated || header(msg, "event_id") == "" {
		t.Errorf("unexpected headers: %v", msg.Headers)
	}

	var evt BookingCreated
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.EventID != header(msg, "event_id") || evt.Booking.ID != "bk-1" || !evt.OccurredAt.Equal(now) {
		t.Errorf("unexpected payload: %+v", evt)
	}
}

func TestNewWithoutBrokers(t *testing.T) {
	if _, ok := New(" , ", "bookings.created").(Nop); !ok {
		t.Fatal("expected Nop publisher without brokers")
	}
	if got := SplitBrokers("a:9092, b:9092,,"); len(got) != 2 || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
}
