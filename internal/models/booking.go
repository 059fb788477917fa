package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the format version of the persisted documents.
const SchemaVersion = 1

// GuestDetails are collected from the guest at confirmation time.
type GuestDetails struct {
	Name            string `json:"guestName"`
	Email           string `json:"guestEmail,omitempty"`
	Phone           string `json:"guestPhone,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
}

// Draft is the in-progress booking of the current session.
type Draft struct {
	CheckIn   Date      `json:"checkIn"`
	CheckOut  Date      `json:"checkOut"`
	Adults    int       `json:"adults"`
	Children  int       `json:"children"`
	Room      *Room     `json:"room,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

// Nights returns the length of the stay described by the draft.
func (d *Draft) Nights() (int, error) {
	return Nights(d.CheckIn, d.CheckOut)
}

// Quote returns nights and total price. Drafts whose dates are unset or not in
// order quote as zero: they are incomplete, not priced.
func (d *Draft) Quote() (int, Amount) {
	nights, err := d.Nights()
	if err != nil || nights < 1 {
		return 0, 0
	}
	return nights, Price(nights, d.Room)
}

// Complete reports whether the draft can be confirmed.
func (d *Draft) Complete() bool {
	return d.validateStay() == nil
}

func (d *Draft) validateStay() error {
	if d.CheckIn.IsZero() || d.CheckOut.IsZero() {
		return fmt.Errorf("%w: check-in and check-out dates are required", ErrIncompleteDraft)
	}
	if !d.CheckOut.After(d.CheckIn) {
		return ErrInvalidDateRange
	}
	if d.Room == nil {
		return fmt.Errorf("%w: no room selected", ErrIncompleteDraft)
	}
	if d.Adults < 0 || d.Children < 0 {
		return fmt.Errorf("%w: guest counts must not be negative", ErrIncompleteDraft)
	}
	return nil
}

// Validate is the single check run when a draft becomes a booking.
func (d *Draft) Validate(guest GuestDetails) error {
	if err := d.validateStay(); err != nil {
		return err
	}
	if strings.TrimSpace(guest.Name) == "" {
		return ErrMissingGuestName
	}
	return nil
}

// Booking is a confirmed reservation.
type Booking struct {
	ID              string    `json:"id"`
	GuestName       string    `json:"guestName,omitempty"`
	GuestEmail      string    `json:"guestEmail,omitempty"`
	GuestPhone      string    `json:"guestPhone,omitempty"`
	SpecialRequests string    `json:"specialRequests,omitempty"`
	Room            *Room     `json:"room,omitempty"`
	CheckIn         Date      `json:"checkIn"`
	CheckOut        Date      `json:"checkOut"`
	Adults          int       `json:"adults"`
	Children        int       `json:"children"`
	Nights          int       `json:"nights"`
	TotalPrice      Amount    `json:"totalPrice"`
	Status          Status    `json:"status"`
	CreatedAt       Timestamp `json:"createdAt"`
	UpdatedAt       Timestamp `json:"updatedAt"`
}

// NewBooking builds a pending booking from a validated draft.
func NewBooking(id string, d *Draft, guest GuestDetails, now time.Time) *Booking {
	nights, total := d.Quote()
	var room *Room
	if d.Room != nil {
		room = d.Room.Snapshot()
	}
	ts := NewTimestamp(now)
	return &Booking{
		ID:              id,
		GuestName:       strings.TrimSpace(guest.Name),
		GuestEmail:      strings.TrimSpace(guest.Email),
		GuestPhone:      strings.TrimSpace(guest.Phone),
		SpecialRequests: guest.SpecialRequests,
		Room:            room,
		CheckIn:         d.CheckIn,
		CheckOut:        d.CheckOut,
		Adults:          d.Adults,
		Children:        d.Children,
		Nights:          nights,
		TotalPrice:      total,
		Status:          StatusPending,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
}

// RoomName returns the embedded room's name or "" when there is none.
func (b *Booking) RoomName() string {
	if b.Room == nil {
		return ""
	}
	return b.Room.Name
}

// Membership is a club membership record. Its content is not interpreted.
type Membership struct {
	Raw json.RawMessage
}

// MarshalJSON implements json.Marshaler.
func (m Membership) MarshalJSON() ([]byte, error) {
	if len(m.Raw) == 0 {
		return []byte("null"), nil
	}
	return m.Raw, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Membership) UnmarshalJSON(data []byte) error {
	m.Raw = append(m.Raw[:0], data...)
	return nil
}
