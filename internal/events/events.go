// Package events carries booking lifecycle notifications between components.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Booking lifecycle event types.
const (
	BookingCreated       = "booking.created"
	BookingDeleted       = "booking.deleted"
	BookingStatusChanged = "booking.status_changed"
)

// BookingEventTypes lists every event published by the booking service.
var BookingEventTypes = []string{BookingCreated, BookingDeleted, BookingStatusChanged}

// Event is a lightweight domain event. Payload is the JSON of the affected
// booking, empty for deletions.
type Event struct {
	Type      string
	BookingID string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. A nil logger discards handler errors.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "events").Logger()
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: &l}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeBookings registers handler for every booking event type.
func (b *EventBus) SubscribeBookings(handler EventHandler) {
	for _, t := range BookingEventTypes {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// in registration order; a failing handler does not stop the others.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().
				Err(err).
				Str("event", event.Type).
				Str("booking_id", event.BookingID).
				Msg("event handler failed")
		}
	}
}
