package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"grandresort/internal/kv"
	"grandresort/internal/models"

	"github.com/rs/zerolog"
)

// Store keys of the persisted documents.
const (
	KeyRooms          = "rooms"
	KeyBookings       = "bookings"
	KeyMemberships    = "memberships"
	KeyCurrentBooking = "currentBooking"
	KeyLastBooking    = "lastBooking"
	KeySchemaVersion  = "schemaVersion"
)

// Rooms is the room catalog.
type Rooms struct {
	*Collection[models.Room, int64]
}

// Bookings is the list of confirmed bookings, in insertion order.
type Bookings struct {
	*Collection[models.Booking, string]
}

// Memberships is the list of club memberships. Records are opaque.
type Memberships struct {
	store  kv.Store
	logger *zerolog.Logger
}

// List returns all membership records.
func (m *Memberships) List(ctx context.Context) ([]models.Membership, error) {
	return loadList[models.Membership](ctx, m.store, KeyMemberships, m.logger)
}

// Count returns the number of membership records.
func (m *Memberships) Count(ctx context.Context) (int, error) {
	items, err := m.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Drafts holds each session's booking draft and last confirmed booking.
// The empty session uses the bare keys.
type Drafts struct {
	store  kv.Store
	logger *zerolog.Logger
	mu     sync.Mutex
}

// SessionKey namespaces key for session.
func SessionKey(key, session string) string {
	if session == "" {
		return key
	}
	return key + ":" + session
}

// Current returns the draft in progress. A missing or malformed draft is an empty one.
func (d *Drafts) Current(ctx context.Context, session string) (*models.Draft, error) {
	draft := &models.Draft{}
	found, err := d.load(ctx, SessionKey(KeyCurrentBooking, session), draft)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.Draft{}, nil
	}
	return draft, nil
}

// SaveCurrent persists the draft in progress.
func (d *Drafts) SaveCurrent(ctx context.Context, session string, draft *models.Draft) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return saveJSON(ctx, d.store, SessionKey(KeyCurrentBooking, session), draft)
}

// Update applies fn to the session's draft and saves the result. Nothing is
// written when fn fails.
func (d *Drafts) Update(ctx context.Context, session string, fn func(*models.Draft) error) (*models.Draft, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	draft, err := d.Current(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := fn(draft); err != nil {
		return nil, err
	}
	if err := saveJSON(ctx, d.store, SessionKey(KeyCurrentBooking, session), draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ClearCurrent drops the draft in progress.
func (d *Drafts) ClearCurrent(ctx context.Context, session string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Remove(ctx, SessionKey(KeyCurrentBooking, session))
}

// Last returns the session's most recently confirmed booking or ErrNotFound.
func (d *Drafts) Last(ctx context.Context, session string) (*models.Booking, error) {
	var b models.Booking
	found, err := d.load(ctx, SessionKey(KeyLastBooking, session), &b)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &b, nil
}

// SaveLast records the session's most recently confirmed booking.
func (d *Drafts) SaveLast(ctx context.Context, session string, b *models.Booking) error {
	return saveJSON(ctx, d.store, SessionKey(KeyLastBooking, session), b)
}

func (d *Drafts) load(ctx context.Context, key string, v interface{}) (bool, error) {
	data, err := d.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		d.logger.Warn().Err(err).Str("key", key).Msg("malformed document, ignoring")
		return false, nil
	}
	return true, nil
}

// Repositories bundles every collection over one store.
type Repositories struct {
	Rooms       *Rooms
	Bookings    *Bookings
	Memberships *Memberships
	Drafts      *Drafts

	store  kv.Store
	logger *zerolog.Logger
}

// New builds the repositories over store.
func New(store kv.Store, logger *zerolog.Logger) *Repositories {
	l := logger.With().Str("component", "repository").Logger()
	return &Repositories{
		Rooms: &Rooms{NewCollection(store, KeyRooms, func(r models.Room) int64 {
			return r.ID
		}, &l)},
		Bookings: &Bookings{NewCollection(store, KeyBookings, func(b models.Booking) string {
			return b.ID
		}, &l)},
		Memberships: &Memberships{store: store, logger: &l},
		Drafts:      &Drafts{store: store, logger: &l},
		store:       store,
		logger:      &l,
	}
}

// Init writes the schema version and seeds the room catalog on first run.
func (r *Repositories) Init(ctx context.Context, catalog []models.Room) error {
	version, err := r.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	switch {
	case version == 0:
		if err := r.store.Set(ctx, KeySchemaVersion, []byte(strconv.Itoa(models.SchemaVersion))); err != nil {
			return fmt.Errorf("save schema version: %w", err)
		}
	case version > models.SchemaVersion:
		r.logger.Warn().
			Int("stored", version).
			Int("supported", models.SchemaVersion).
			Msg("store was written by a newer version")
	}

	exists, err := r.Rooms.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	for i := range catalog {
		if err := catalog[i].Validate(); err != nil {
			return fmt.Errorf("seed room %d: %w", catalog[i].ID, err)
		}
	}
	if err := r.Rooms.Replace(ctx, catalog); err != nil {
		return err
	}
	r.logger.Info().Int("rooms", len(catalog)).Msg("room catalog seeded")
	return nil
}

// SchemaVersion returns the stored format version, 0 when none was written.
func (r *Repositories) SchemaVersion(ctx context.Context) (int, error) {
	data, err := r.store.Get(ctx, KeySchemaVersion)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load schema version: %w", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		r.logger.Warn().Str("value", string(data)).Msg("malformed schema version")
		return 0, nil
	}
	return v, nil
}
