package models

import "fmt"

// Status is the lifecycle state of a confirmed booking.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
	StatusCheckedIn  Status = "checked-in"
	StatusCheckedOut Status = "checked-out"
)

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled}
}

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:  {StatusCheckedOut, StatusCancelled},
	StatusCheckedOut: {},
	StatusCancelled:  {},
}

var statusLabels = map[Status]string{
	StatusPending:    "معلق",
	StatusConfirmed:  "مؤكد",
	StatusCancelled:  "ملغي",
	StatusCheckedIn:  "تم الدخول",
	StatusCheckedOut: "تم الخروج",
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// Label returns the display label shown on the admin dashboard.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// CanTransition checks whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition validates a status change and returns ErrInvalidTransition when it is not allowed.
func Transition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
