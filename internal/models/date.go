package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical calendar-date format used in stored documents.
	DateLayout = "2006-01-02"
	// TimestampLayout is the canonical creation-timestamp format (UTC, millisecond precision).
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Date is a calendar day in UTC.
type Date struct {
	t time.Time
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "YYYY-MM-DD". Longer ISO strings are cut to their date part.
// An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time { return d.t }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether both dates name the same day.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values decode as unset.
func (d *Date) UnmarshalJSON(data []byte) error {
	*d = Date{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return nil
	}
	*d = parsed
	return nil
}

// Nights returns the number of nights between checkIn and checkOut:
// the ceiling of the difference in days. The same day yields 0.
// A check-out before check-in is ErrInvalidDateRange and an unset date is
// ErrIncompleteDraft.
func Nights(checkIn, checkOut Date) (int, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return 0, ErrIncompleteDraft
	}
	diff := checkOut.t.Sub(checkIn.t)
	if diff < 0 {
		return 0, ErrInvalidDateRange
	}
	return int(math.Ceil(diff.Hours() / 24)), nil
}

// Timestamp is an instant stored in canonical UTC ISO form.
type Timestamp struct {
	t time.Time
}

// NewTimestamp wraps t, normalized to UTC with millisecond precision.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{t: t.UTC().Truncate(time.Millisecond)}
}

// IsZero reports whether the timestamp is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Time returns the underlying instant.
func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) String() string {
	if ts.IsZero() {
		return ""
	}
	return ts.t.Format(TimestampLayout)
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON implements json.Unmarshaler. Unparseable values decode as unset.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	*ts = NewTimestamp(t)
	return nil
}
