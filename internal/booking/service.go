// Package booking owns the booking draft and the list of confirmed bookings.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"grandresort/internal/events"
	"grandresort/internal/metrics"
	"grandresort/internal/models"
	"grandresort/internal/repository"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrCheckInInPast   = errors.New("check-in date is in the past")
)

// maxIDAttempts bounds identifier regeneration on collision.
const maxIDAttempts = 3

// EventPublisher receives booking lifecycle events.
type EventPublisher interface {
	Publish(event events.Event)
}

type Service struct {
	repos  *repository.Repositories
	clock  clock.Clock
	bus    EventPublisher
	newID  IDFunc
	logger *zerolog.Logger

	confirmMu sync.Mutex
}

type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithEventBus publishes booking events to bus.
func WithEventBus(bus EventPublisher) Option {
	return func(s *Service) { s.bus = bus }
}

// WithIDFunc replaces the identifier generator.
func WithIDFunc(fn IDFunc) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(repos *repository.Repositories, logger *zerolog.Logger, opts ...Option) *Service {
	l := logger.With().Str("component", "booking").Logger()
	s := &Service{
		repos:  repos,
		clock:  clock.New(),
		newID:  NewID,
		logger: &l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDates records the stay dates and guest counts in the session's draft.
// An already selected room is kept. The order of the dates is not checked here.
func (s *Service) SetDates(ctx context.Context, session string, checkIn, checkOut models.Date, adults, children int) (*models.Draft, error) {
	now := models.NewTimestamp(s.clock.Now())
	draft, err := s.repos.Drafts.Update(ctx, session, func(d *models.Draft) error {
		d.CheckIn = checkIn
		d.CheckOut = checkOut
		d.Adults = adults
		d.Children = children
		d.Timestamp = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("session", session).
		Str("check_in", checkIn.String()).
		Str("check_out", checkOut.String()).
		Int("adults", adults).
		Int("children", children).
		Msg("draft dates set")
	return draft, nil
}

// ValidateCheckIn rejects check-in days before today.
func (s *Service) ValidateCheckIn(checkIn models.Date) error {
	if checkIn.IsZero() {
		return fmt.Errorf("%w: check-in date is required", models.ErrIncompleteDraft)
	}
	if checkIn.Before(models.DateOf(s.clock.Now())) {
		return ErrCheckInInPast
	}
	return nil
}

// ComputeNights returns the whole nights between two dates.
func (s *Service) ComputeNights(checkIn, checkOut models.Date) (int, error) {
	return models.Nights(checkIn, checkOut)
}

// ComputePrice returns nights times the room's nightly price.
func (s *Service) ComputePrice(nights int, room *models.Room) models.Amount {
	return models.Price(nights, room)
}

// Quote prices a draft; incomplete drafts quote zero.
func (s *Service) Quote(draft *models.Draft) (int, models.Amount) {
	if draft == nil {
		return 0, 0
	}
	return draft.Quote()
}

// SelectRoom stores a snapshot of the catalog room into the session's draft.
func (s *Service) SelectRoom(ctx context.Context, session string, roomID int64) (*models.Draft, error) {
	room, err := s.repos.Rooms.Find(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.IncRoomSelection(false)
		return nil, fmt.Errorf("%w: %d", ErrRoomNotFound, roomID)
	}
	if err != nil {
		return nil, err
	}

	draft, err := s.repos.Drafts.Update(ctx, session, func(d *models.Draft) error {
		d.Room = room.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncRoomSelection(true)
	s.logger.Debug().Str("session", session).Int64("room_id", roomID).Str("room", room.Name).Msg("room selected")
	return draft, nil
}

// Confirm turns the session's draft into a pending booking. Once the booking
// is stored the call succeeds; failing to clear the draft or to record the
// last booking is only logged.
func (s *Service) Confirm(ctx context.Context, session string, guest models.GuestDetails) (*models.Booking, error) {
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()

	draft, err := s.repos.Drafts.Current(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := draft.Validate(guest); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var booking *models.Booking
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		booking = models.NewBooking(s.newID(now), draft, guest, now)
		err = s.repos.Bookings.Add(ctx, *booking)
		if !errors.Is(err, repository.ErrDuplicateID) {
			break
		}
		s.logger.Warn().Str("booking_id", booking.ID).Int("attempt", attempt).Msg("booking id collision")
	}
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	if err := s.repos.Drafts.ClearCurrent(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("session", session).Str("booking_id", booking.ID).Msg("clear confirmed draft")
	}
	if err := s.repos.Drafts.SaveLast(ctx, session, booking); err != nil {
		s.logger.Error().Err(err).Str("session", session).Str("booking_id", booking.ID).Msg("save last booking")
	}

	s.publish(events.BookingCreated, booking.ID, booking)
	metrics.IncBookingConfirmed(booking.Room.Type)
	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("room", booking.RoomName()).
		Int("nights", booking.Nights).
		Float64("total", booking.TotalPrice.Float64()).
		Msg("booking confirmed")
	return booking, nil
}

// DeleteBooking removes the booking with id. Deleting an absent id is a no-op.
func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	removed, err := s.repos.Bookings.Remove(ctx, id)
	if err != nil {
		return fmt.Errorf("delete booking %s: %w", id, err)
	}
	if !removed {
		s.logger.Debug().Str("booking_id", id).Msg("delete of absent booking ignored")
		return nil
	}

	s.publish(events.BookingDeleted, id, nil)
	metrics.IncBookingDeleted()
	s.logger.Info().Str("booking_id", id).Msg("booking deleted")
	return nil
}

// UpdateStatus moves a booking along the status lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error) {
	now := models.NewTimestamp(s.clock.Now())
	updated, err := s.repos.Bookings.Update(ctx, id, func(b *models.Booking) error {
		if err := models.Transition(b.Status, status); err != nil {
			return err
		}
		b.Status = status
		b.UpdatedAt = now
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	metrics.IncStatusTransition(string(status), err == nil)
	if err != nil {
		return nil, err
	}

	s.publish(events.BookingStatusChanged, id, &updated)
	s.logger.Info().Str("booking_id", id).Str("status", string(status)).Msg("booking status changed")
	return &updated, nil
}

// Draft returns the session's draft in progress.
func (s *Service) Draft(ctx context.Context, session string) (*models.Draft, error) {
	return s.repos.Drafts.Current(ctx, session)
}

// ClearDraft abandons the session's draft in progress.
func (s *Service) ClearDraft(ctx context.Context, session string) error {
	return s.repos.Drafts.ClearCurrent(ctx, session)
}

// LastBooking returns the session's most recently confirmed booking. While
// the booking is still listed its current state is returned.
func (s *Service) LastBooking(ctx context.Context, session string) (*models.Booking, error) {
	last, err := s.repos.Drafts.Last(ctx, session)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	current, err := s.repos.Bookings.Find(ctx, last.ID)
	if err != nil {
		return last, nil
	}
	return &current, nil
}

func (s *Service) Rooms(ctx context.Context) ([]models.Room, error) {
	return s.repos.Rooms.List(ctx)
}

func (s *Service) Bookings(ctx context.Context) ([]models.Booking, error) {
	return s.repos.Bookings.List(ctx)
}

func (s *Service) publish(eventType, id string, booking *models.Booking) {
	if s.bus == nil {
		return
	}
	var payload []byte
	if booking != nil {
		data, err := json.Marshal(booking)
		if err != nil {
			s.logger.Error().Err(err).Str("booking_id", id).Msg("encode event payload")
		} else {
			payload = data
		}
	}
	s.bus.Publish(events.Event{
		Type:      eventType,
		BookingID: id,
		Payload:   payload,
		CreatedAt: s.clock.Now(),
	})
}
