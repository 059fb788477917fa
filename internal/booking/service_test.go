package booking

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"grandresort/internal/events"
	"grandresort/internal/kv"
	"grandresort/internal/models"
	"grandresort/internal/repository"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSession = "s1"

type fixture struct {
	svc    *Service
	repos  *repository.Repositories
	clock  *clock.Mock
	events *[]events.Event
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	return newFixtureWithStore(t, kv.NewMemoryStore(), opts...)
}

func newFixtureWithStore(t *testing.T, store kv.Store, opts ...Option) fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	repos := repository.New(store, &logger)

	clk := clock.NewMock()
	clk.Add(time.Date(2024, time.January, 9, 8, 0, 0, 0, time.UTC).Sub(clk.Now()))

	var published []events.Event
	bus := events.NewEventBus(&logger)
	bus.SubscribeBookings(func(e events.Event) error {
		published = append(published, e)
		return nil
	})

	opts = append([]Option{WithClock(clk), WithEventBus(bus)}, opts...)
	svc := NewService(repos, &logger, opts...)

	require.NoError(t, repos.Rooms.Replace(context.Background(), []models.Room{
		{ID: 1, Name: "Deluxe", Type: models.RoomTypeDeluxe, Price: 150, Capacity: 2, Available: true},
		{ID: 2, Name: "Royal Suite", Type: models.RoomTypeRoyal, Price: 450, Capacity: 4},
	}))
	return fixture{svc: svc, repos: repos, clock: clk, events: &published}
}

func (f fixture) confirm(t *testing.T, guest string) *models.Booking {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, time.January, 10), models.NewDate(2024, time.January, 12), 2, 0)
	require.NoError(t, err)
	_, err = f.svc.SelectRoom(ctx, testSession, 1)
	require.NoError(t, err)
	b, err := f.svc.Confirm(ctx, testSession, models.GuestDetails{Name: guest})
	require.NoError(t, err)
	return b
}

func TestConfirm_PricesAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirm(t, "  Ali  ")

	assert.Equal(t, models.Amount(300), b.TotalPrice)
	assert.Equal(t, 2, b.Nights)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, "Ali", b.GuestName)
	assert.Equal(t, "2024-01-09T08:00:00.000Z", b.CreatedAt.String())
	assert.Regexp(t, regexp.MustCompile(`^GR-[0-9A-Z]+-[0-9A-F]{6}$`), b.ID)

	stored, err := f.svc.Bookings(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, b.ID, stored[0].ID)

	last, err := f.svc.LastBooking(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, b.ID, last.ID)

	draft, err := f.svc.Draft(ctx, testSession)
	require.NoError(t, err)
	assert.True(t, draft.CheckIn.IsZero())
	assert.Nil(t, draft.Room)

	require.Len(t, *f.events, 1)
	assert.Equal(t, events.BookingCreated, (*f.events)[0].Type)
	assert.Equal(t, b.ID, (*f.events)[0].BookingID)
	assert.Contains(t, string((*f.events)[0].Payload), `"totalPrice":300`)
}

func TestConfirm_RoomIsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.confirm(t, "Ali")

	_, err := f.repos.Rooms.Update(ctx, 1, func(r *models.Room) error {
		r.Price = 999
		r.Name = "Renamed"
		return nil
	})
	require.NoError(t, err)

	stored, err := f.repos.Bookings.Find(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Deluxe", stored.RoomName())
	assert.Equal(t, models.Amount(150), stored.Room.Price)
}

func TestConfirm_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		prepare func(f fixture)
		guest   string
		wantErr error
	}{
		{
			name:    "empty draft",
			prepare: func(fixture) {},
			guest:   "Ali",
			wantErr: models.ErrIncompleteDraft,
		},
		{
			name: "no room",
			prepare: func(f fixture) {
				_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 12), 1, 0)
				require.NoError(t, err)
			},
			guest:   "Ali",
			wantErr: models.ErrIncompleteDraft,
		},
		{
			name: "same day",
			prepare: func(f fixture) {
				_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 10), 1, 0)
				require.NoError(t, err)
				_, err = f.svc.SelectRoom(ctx, testSession, 1)
				require.NoError(t, err)
			},
			guest:   "Ali",
			wantErr: models.ErrInvalidDateRange,
		},
		{
			name: "inverted dates",
			prepare: func(f fixture) {
				_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 12), models.NewDate(2024, 1, 10), 1, 0)
				require.NoError(t, err)
				_, err = f.svc.SelectRoom(ctx, testSession, 1)
				require.NoError(t, err)
			},
			guest:   "Ali",
			wantErr: models.ErrInvalidDateRange,
		},
		{
			name: "missing guest name",
			prepare: func(f fixture) {
				_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 12), 1, 0)
				require.NoError(t, err)
				_, err = f.svc.SelectRoom(ctx, testSession, 1)
				require.NoError(t, err)
			},
			guest:   "   ",
			wantErr: models.ErrMissingGuestName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.prepare(f)

			_, err := f.svc.Confirm(ctx, testSession, models.GuestDetails{Name: tt.guest})
			assert.ErrorIs(t, err, tt.wantErr)

			stored, err := f.svc.Bookings(ctx)
			require.NoError(t, err)
			assert.Empty(t, stored)
			assert.Empty(t, *f.events)
		})
	}
}

func TestConfirm_RetriesOnIDCollision(t *testing.T) {
	ids := []string{"GR-A-000001", "GR-A-000001", "GR-A-000002"}
	next := 0
	f := newFixture(t, WithIDFunc(func(time.Time) string {
		id := ids[next]
		next++
		return id
	}))

	first := f.confirm(t, "Ali")
	second := f.confirm(t, "Sara")

	assert.Equal(t, "GR-A-000001", first.ID)
	assert.Equal(t, "GR-A-000002", second.ID)
	assert.Equal(t, 3, next)
}

func TestConfirm_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t, WithIDFunc(func(time.Time) string { return "GR-SAME" }))
	f.confirm(t, "Ali")

	ctx := context.Background()
	_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 12), 1, 0)
	require.NoError(t, err)
	_, err = f.svc.SelectRoom(ctx, testSession, 1)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, testSession, models.GuestDetails{Name: "Sara"})
	assert.ErrorIs(t, err, repository.ErrDuplicateID)

	// The draft survives a failed confirmation.
	draft, err := f.svc.Draft(ctx, testSession)
	require.NoError(t, err)
	assert.NotNil(t, draft.Room)
}

func TestSetDates_KeepsSelectedRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SelectRoom(ctx, testSession, 2)
	require.NoError(t, err)

	draft, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 11), 3, 1)
	require.NoError(t, err)
	require.NotNil(t, draft.Room)
	assert.Equal(t, int64(2), draft.Room.ID)
	assert.Equal(t, "2024-01-09T08:00:00.000Z", draft.Timestamp.String())

	nights, total := f.svc.Quote(draft)
	assert.Equal(t, 1, nights)
	assert.Equal(t, models.Amount(450), total)
}

func TestSelectRoom_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.SelectRoom(context.Background(), testSession, 42)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestValidateCheckIn(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.svc.ValidateCheckIn(models.NewDate(2024, 1, 9)))
	assert.NoError(t, f.svc.ValidateCheckIn(models.NewDate(2024, 2, 1)))
	assert.ErrorIs(t, f.svc.ValidateCheckIn(models.NewDate(2024, 1, 8)), ErrCheckInInPast)
	assert.ErrorIs(t, f.svc.ValidateCheckIn(models.Date{}), models.ErrIncompleteDraft)
}

func TestComputeNightsAndPrice(t *testing.T) {
	f := newFixture(t)
	d := models.NewDate(2024, 1, 10)

	n, err := f.svc.ComputeNights(d, d)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.svc.ComputeNights(d, d.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.ComputeNights(d.AddDays(1), d)
	assert.ErrorIs(t, err, models.ErrInvalidDateRange)

	assert.Equal(t, models.Amount(300), f.svc.ComputePrice(2, &models.Room{Price: 150}))
	assert.Equal(t, models.Amount(0), f.svc.ComputePrice(2, nil))

	nights, total := f.svc.Quote(nil)
	assert.Zero(t, nights)
	assert.Zero(t, total)
}

func TestDeleteBooking_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keep := f.confirm(t, "Ali")
	drop := f.confirm(t, "Sara")

	require.NoError(t, f.svc.DeleteBooking(ctx, drop.ID))
	once, err := f.svc.Bookings(ctx)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteBooking(ctx, drop.ID))
	twice, err := f.svc.Bookings(ctx)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	require.Len(t, twice, 1)
	assert.Equal(t, keep.ID, twice[0].ID)

	var deletes int
	for _, e := range *f.events {
		if e.Type == events.BookingDeleted {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.confirm(t, "Ali")

	f.clock.Add(time.Hour)
	updated, err := f.svc.UpdateStatus(ctx, b.ID, models.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, "2024-01-09T09:00:00.000Z", updated.UpdatedAt.String())
	assert.Equal(t, b.CreatedAt.String(), updated.CreatedAt.String())

	last, err := f.svc.LastBooking(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, last.Status)

	_, err = f.svc.UpdateStatus(ctx, b.ID, models.StatusPending)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, b.ID, models.Status("lost"))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "GR-NOPE", models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	stored, err := f.repos.Bookings.Find(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)

	assert.Equal(t, events.BookingStatusChanged, (*f.events)[len(*f.events)-1].Type)
}

func TestLastBooking_None(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.LastBooking(context.Background(), testSession)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestNewID(t *testing.T) {
	now := time.Date(2024, time.January, 10, 9, 30, 0, 0, time.UTC)
	a := NewID(now)
	b := NewID(now)

	assert.Regexp(t, `^GR-[0-9A-Z]+-[0-9A-F]{6}$`, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a[:len(a)-6], b[:len(b)-6])
}

func TestSessions_DraftsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetDates(ctx, "guest-a", models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 12), 2, 0)
	require.NoError(t, err)
	_, err = f.svc.SelectRoom(ctx, "guest-a", 2)
	require.NoError(t, err)
	_, err = f.svc.SetDates(ctx, "guest-b", models.NewDate(2024, 2, 1), models.NewDate(2024, 2, 8), 1, 0)
	require.NoError(t, err)

	b, err := f.svc.Confirm(ctx, "guest-a", models.GuestDetails{Name: "GuestA"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", b.CheckIn.String())
	assert.Equal(t, "2024-01-12", b.CheckOut.String())
	assert.Equal(t, 2, b.Nights)
	assert.Equal(t, models.Amount(900), b.TotalPrice)

	last, err := f.svc.LastBooking(ctx, "guest-a")
	require.NoError(t, err)
	assert.Equal(t, "GuestA", last.GuestName)

	_, err = f.svc.LastBooking(ctx, "guest-b")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	other, err := f.svc.Draft(ctx, "guest-b")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01", other.CheckIn.String())
	assert.Nil(t, other.Room)
}

func TestDraft_ConcurrentEditsKeepBothChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 13), 2, 1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.SelectRoom(ctx, testSession, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	draft, err := f.svc.Draft(ctx, testSession)
	require.NoError(t, err)
	require.NotNil(t, draft.Room)
	assert.Equal(t, int64(1), draft.Room.ID)
	assert.Equal(t, "2024-01-10", draft.CheckIn.String())
}

// failingStore rejects writes and removals of keys with the given prefixes.
type failingStore struct {
	kv.Store
	failSet    []string
	failRemove []string
}

var errWriteFailed = errors.New("disk full")

func hasAnyPrefix(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func (s *failingStore) Set(ctx context.Context, key string, value []byte) error {
	if hasAnyPrefix(key, s.failSet) {
		return errWriteFailed
	}
	return s.Store.Set(ctx, key, value)
}

func (s *failingStore) Remove(ctx context.Context, key string) error {
	if hasAnyPrefix(key, s.failRemove) {
		return errWriteFailed
	}
	return s.Store.Remove(ctx, key)
}

func TestConfirm_StoredBookingSurvivesBookkeepingFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		failSet    []string
		failRemove []string
		draftGone  bool
		lastStored bool
	}{
		{
			name:      "last booking write fails",
			failSet:   []string{repository.KeyLastBooking},
			draftGone: true,
		},
		{
			name:       "draft clear fails",
			failRemove: []string{repository.KeyCurrentBooking},
			lastStored: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &failingStore{Store: kv.NewMemoryStore()}
			f := newFixtureWithStore(t, store)

			_, err := f.svc.SetDates(ctx, testSession, models.NewDate(2024, 1, 10), models.NewDate(2024, 1, 12), 2, 0)
			require.NoError(t, err)
			_, err = f.svc.SelectRoom(ctx, testSession, 1)
			require.NoError(t, err)
			store.failSet = tt.failSet
			store.failRemove = tt.failRemove

			b, err := f.svc.Confirm(ctx, testSession, models.GuestDetails{Name: "Ali"})
			require.NoError(t, err)

			stored, err := f.svc.Bookings(ctx)
			require.NoError(t, err)
			require.Len(t, stored, 1)
			assert.Equal(t, b.ID, stored[0].ID)
			require.Len(t, *f.events, 1)

			draft, err := f.svc.Draft(ctx, testSession)
			require.NoError(t, err)
			assert.Equal(t, tt.draftGone, draft.Room == nil)

			_, err = f.svc.LastBooking(ctx, testSession)
			if tt.lastStored {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBookingNotFound)
			}
		})
	}
}

func TestLastBooking_DeletedKeepsConfirmedCopy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.confirm(t, "Ali")

	require.NoError(t, f.svc.DeleteBooking(ctx, b.ID))

	last, err := f.svc.LastBooking(ctx, testSession)
	require.NoError(t, err)
	assert.Equal(t, b.ID, last.ID)
	assert.Equal(t, models.StatusPending, last.Status)
}
