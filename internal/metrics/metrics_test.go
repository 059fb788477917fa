package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(roomSelection.WithLabelValues("not_found"))
	IncRoomSelection(false)
	assert.Equal(t, before+1, testutil.ToFloat64(roomSelection.WithLabelValues("not_found")))

	before = testutil.ToFloat64(statusTransition.WithLabelValues("confirmed", "rejected"))
	IncStatusTransition("confirmed", false)
	assert.Equal(t, before+1, testutil.ToFloat64(statusTransition.WithLabelValues("confirmed", "rejected")))

	before = testutil.ToFloat64(storeFailover)
	IncStoreFailover()
	assert.Equal(t, before+1, testutil.ToFloat64(storeFailover))
}

func TestRoomTypeLabel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"deluxe", "deluxe"},
		{"royal", "royal"},
		{"penthouse-2024", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomTypeLabel(tt.in))
		})
	}
}

func TestIncBookingConfirmed_BoundsLabels(t *testing.T) {
	before := testutil.ToFloat64(bookingConfirmed.WithLabelValues("other"))
	IncBookingConfirmed("treehouse")
	IncBookingConfirmed("igloo")
	assert.Equal(t, before+2, testutil.ToFloat64(bookingConfirmed.WithLabelValues("other")))

	before = testutil.ToFloat64(statusTransition.WithLabelValues("other", "rejected"))
	IncStatusTransition("archived", false)
	assert.Equal(t, before+1, testutil.ToFloat64(statusTransition.WithLabelValues("other", "rejected")))
}
