package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// ErrForwarderFull is returned when the forwarding queue cannot take more events.
var ErrForwarderFull = errors.New("kafka forwarder queue is full")

// MessageWriter is the subset of *kafka.Writer used by the forwarder.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the wire shape of a forwarded event.
type envelope struct {
	Type      string          `json:"type"`
	BookingID string          `json:"bookingId"`
	Booking   json.RawMessage `json:"booking,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// KafkaForwarder copies bus events onto a Kafka topic. Events are queued by
// Handle and written by Run so publishers never wait on the broker.
type KafkaForwarder struct {
	writer     MessageWriter
	queue      chan Event
	maxRetries int
	logger     *zerolog.Logger
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

// NewKafkaForwarder wraps writer. bufferSize bounds the pending queue.
func NewKafkaForwarder(writer MessageWriter, bufferSize, maxRetries int, logger *zerolog.Logger) *KafkaForwarder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	l := logger.With().Str("component", "kafka_forwarder").Logger()
	return &KafkaForwarder{
		writer:     writer,
		queue:      make(chan Event, bufferSize),
		maxRetries: maxRetries,
		logger:     &l,
	}
}

// Attach subscribes the forwarder to every booking event on bus.
func (f *KafkaForwarder) Attach(bus *EventBus) {
	bus.SubscribeBookings(f.Handle)
}

// Handle queues an event. It never blocks.
func (f *KafkaForwarder) Handle(event Event) error {
	select {
	case f.queue <- event:
		return nil
	default:
		return ErrForwarderFull
	}
}

// Run writes queued events until ctx is done, then drains what is left with a
// short deadline and closes the writer.
func (f *KafkaForwarder) Run(ctx context.Context) error {
	for {
		select {
		case event := <-f.queue:
			f.forward(ctx, event)
		case <-ctx.Done():
			f.drain()
			return f.writer.Close()
		}
	}
}

func (f *KafkaForwarder) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-f.queue:
			f.forward(ctx, event)
		default:
			return
		}
	}
}

func (f *KafkaForwarder) forward(ctx context.Context, event Event) {
	msg, err := Message(event)
	if err != nil {
		f.logger.Error().Err(err).Str("event", event.Type).Msg("encode event")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if lastErr = f.writer.WriteMessages(ctx, msg); lastErr == nil {
			f.logger.Debug().Str("event", event.Type).Str("booking_id", event.BookingID).Msg("event forwarded")
			return
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < f.maxRetries {
			select {
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			case <-ctx.Done():
			}
		}
	}
	f.logger.Error().
		Err(lastErr).
		Str("event", event.Type).
		Str("booking_id", event.BookingID).
		Msg("failed to forward event")
}

// Message encodes an event as a Kafka message keyed by booking id, so events
// of one booking land on one partition in order.
func Message(event Event) (kafka.Message, error) {
	env := envelope{
		Type:      event.Type,
		BookingID: event.BookingID,
		CreatedAt: event.CreatedAt.UTC(),
	}
	if len(event.Payload) > 0 {
		if !json.Valid(event.Payload) {
			return kafka.Message{}, fmt.Errorf("event %s: payload is not valid JSON", event.Type)
		}
		env.Booking = event.Payload
	}
	data, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.BookingID),
		Value: data,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}
