package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"grandresort/internal/events"
	"grandresort/internal/metrics"
	"grandresort/internal/models"
	"grandresort/internal/repository"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

const (
	DefaultRecentLimit = 10
	DefaultMonths      = 6
	// MaxMonths bounds the series length callers may request.
	MaxMonths = 36
)

// Summary is the dashboard overview.
type Summary struct {
	TodayBookings  int                   `json:"todayBookings"`
	TotalRevenue   models.Amount         `json:"totalRevenue"`
	AvailableRooms int                   `json:"availableRooms"`
	ActiveMembers  int                   `json:"activeMembers"`
	TotalBookings  int                   `json:"totalBookings"`
	RecentBookings []models.Booking      `json:"recentBookings"`
	Monthly        []MonthCount          `json:"monthlyBookings"`
	MonthlyRevenue []MonthRevenue        `json:"monthlyRevenue"`
	Statuses       map[models.Status]int `json:"statuses"`
	GeneratedAt    models.Timestamp      `json:"generatedAt"`
}

// Series holds both monthly series for the same months.
type Series struct {
	Bookings []MonthCount   `json:"bookings"`
	Revenue  []MonthRevenue `json:"revenue"`
}

// Deleter removes bookings. The booking service implements it.
type Deleter interface {
	DeleteBooking(ctx context.Context, id string) error
}

// Aggregator builds dashboard summaries from the repositories and caches the
// last one until bookings change or the day rolls over.
type Aggregator struct {
	repos       *repository.Repositories
	deleter     Deleter
	clock       clock.Clock
	recentLimit int
	months      int
	logger      *zerolog.Logger

	mu        sync.Mutex
	cached    *Summary
	cachedDay string
}

type Option func(*Aggregator)

func WithClock(c clock.Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

func WithRecentLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.recentLimit = n
		}
	}
}

func WithMonths(n int) Option {
	return func(a *Aggregator) {
		if n > 0 && n <= MaxMonths {
			a.months = n
		}
	}
}

func NewAggregator(repos *repository.Repositories, deleter Deleter, logger *zerolog.Logger, opts ...Option) *Aggregator {
	l := logger.With().Str("component", "dashboard").Logger()
	a := &Aggregator{
		repos:       repos,
		deleter:     deleter,
		clock:       clock.New(),
		recentLimit: DefaultRecentLimit,
		months:      DefaultMonths,
		logger:      &l,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attach invalidates the cache on every booking event published on bus.
func (a *Aggregator) Attach(bus *events.EventBus) {
	bus.SubscribeBookings(func(e events.Event) error {
		a.logger.Debug().Str("event", e.Type).Str("booking_id", e.BookingID).Msg("summary invalidated")
		a.Invalidate()
		return nil
	})
}

// Invalidate drops the cached summary.
func (a *Aggregator) Invalidate() {
	a.mu.Lock()
	a.cached = nil
	a.mu.Unlock()
}

// Summary returns the dashboard overview. The result is shared and must not be modified.
func (a *Aggregator) Summary(ctx context.Context) (*Summary, error) {
	now := a.clock.Now().UTC()
	today := now.Format(models.DateLayout)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached != nil && a.cachedDay == today {
		return a.cached, nil
	}

	summary, err := a.build(ctx, now)
	if err != nil {
		return nil, err
	}
	a.cached = summary
	a.cachedDay = today
	metrics.IncDashboardRebuild()
	return summary, nil
}

func (a *Aggregator) build(ctx context.Context, now time.Time) (*Summary, error) {
	bookings, err := a.repos.Bookings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}
	rooms, err := a.repos.Rooms.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	members, err := a.repos.Memberships.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}

	summary := &Summary{
		TodayBookings:  len(BookingsCreatedOn(now.Format(models.DateLayout), bookings)),
		TotalRevenue:   TotalRevenue(bookings),
		AvailableRooms: AvailableRoomCount(rooms),
		ActiveMembers:  members,
		TotalBookings:  len(bookings),
		RecentBookings: RecentBookings(bookings, a.recentLimit),
		Monthly:        BookingsPerMonth(bookings, a.months, now),
		MonthlyRevenue: RevenuePerMonth(bookings, a.months, now),
		Statuses:       StatusBreakdown(bookings),
		GeneratedAt:    models.NewTimestamp(now),
	}
	a.logger.Debug().
		Int("bookings", len(bookings)).
		Int("rooms", len(rooms)).
		Msg("summary rebuilt")
	return summary, nil
}

// Bookings returns every booking in insertion order.
func (a *Aggregator) Bookings(ctx context.Context) ([]models.Booking, error) {
	return a.repos.Bookings.List(ctx)
}

// Search returns the bookings matching query.
func (a *Aggregator) Search(ctx context.Context, query string) ([]models.Booking, error) {
	bookings, err := a.repos.Bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	return Search(bookings, query), nil
}

// Monthly returns both monthly series over the last months months.
// Non-positive months use the configured default.
func (a *Aggregator) Monthly(ctx context.Context, months int) (*Series, error) {
	if months <= 0 {
		months = a.months
	}
	if months > MaxMonths {
		months = MaxMonths
	}
	bookings, err := a.repos.Bookings.List(ctx)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	return &Series{
		Bookings: BookingsPerMonth(bookings, months, now),
		Revenue:  RevenuePerMonth(bookings, months, now),
	}, nil
}

// DeleteBooking removes a booking through the booking service and drops the cache.
func (a *Aggregator) DeleteBooking(ctx context.Context, id string) error {
	if err := a.deleter.DeleteBooking(ctx, id); err != nil {
		return err
	}
	a.Invalidate()
	return nil
}
