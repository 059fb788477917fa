package metrics

import (
	"sync"

	"grandresort/internal/models"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "grandresort"

// labelOther replaces label values outside the known set.
const labelOther = "other"

var knownRoomTypes = map[string]bool{
	models.RoomTypeDeluxe:    true,
	models.RoomTypeExecutive: true,
	models.RoomTypeRoyal:     true,
	models.RoomTypeFamily:    true,
}

// RoomTypeLabel maps a room type tag onto a bounded label set.
func RoomTypeLabel(roomType string) string {
	if knownRoomTypes[roomType] {
		return roomType
	}
	return labelOther
}

var (
	once sync.Once

	bookingConfirmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_confirmed_total",
			Help:      "Count of drafts confirmed into bookings by room type.",
		},
		[]string{"room_type"},
	)

	bookingDeleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_deleted_total",
			Help:      "Count of bookings deleted by admins.",
		},
	)

	statusTransition = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_transition_total",
			Help:      "Count of booking status changes by outcome and target status.",
		},
		[]string{"to", "result"},
	)

	roomSelection = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_selection_total",
			Help:      "Count of room selections by result.",
		},
		[]string{"result"},
	)

	dashboardRebuild = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_rebuild_total",
			Help:      "Count of dashboard summary rebuilds after cache invalidation.",
		},
	)

	storeFailover = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failover_total",
			Help:      "Count of switches from the primary store to the fallback.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingConfirmed,
			bookingDeleted,
			statusTransition,
			roomSelection,
			dashboardRebuild,
			storeFailover,
			httpRequests,
		)
	})
}

func IncBookingConfirmed(roomType string) {
	bookingConfirmed.WithLabelValues(RoomTypeLabel(roomType)).Inc()
}

func IncBookingDeleted() {
	bookingDeleted.Inc()
}

func IncStatusTransition(to string, ok bool) {
	result := "ok"
	if !ok {
		result = "rejected"
	}
	if !models.Status(to).Valid() {
		to = labelOther
	}
	statusTransition.WithLabelValues(to, result).Inc()
}

func IncRoomSelection(found bool) {
	result := "selected"
	if !found {
		result = "not_found"
	}
	roomSelection.WithLabelValues(result).Inc()
}

func IncDashboardRebuild() {
	dashboardRebuild.Inc()
}

func IncStoreFailover() {
	storeFailover.Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
