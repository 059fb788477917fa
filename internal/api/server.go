// Package api exposes the booking flow and the admin dashboard over JSON HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"grandresort/internal/booking"
	"grandresort/internal/dashboard"
	"grandresort/internal/models"
	"grandresort/internal/repository"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 1 << 20

// BookingFlow is the guest-facing booking service. Drafts and the last
// booking are kept per session.
type BookingFlow interface {
	Rooms(ctx context.Context) ([]models.Room, error)
	Draft(ctx context.Context, session string) (*models.Draft, error)
	ClearDraft(ctx context.Context, session string) error
	SetDates(ctx context.Context, session string, checkIn, checkOut models.Date, adults, children int) (*models.Draft, error)
	ValidateCheckIn(checkIn models.Date) error
	SelectRoom(ctx context.Context, session string, roomID int64) (*models.Draft, error)
	Quote(draft *models.Draft) (int, models.Amount)
	Confirm(ctx context.Context, session string, guest models.GuestDetails) (*models.Booking, error)
	LastBooking(ctx context.Context, session string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.Status) (*models.Booking, error)
}

// Dashboard is the admin read side.
type Dashboard interface {
	Summary(ctx context.Context) (*dashboard.Summary, error)
	Search(ctx context.Context, query string) ([]models.Booking, error)
	Monthly(ctx context.Context, months int) (*dashboard.Series, error)
	Bookings(ctx context.Context) ([]models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Clock     clock.Clock
}

type HTTPServer struct {
	bookings  BookingFlow
	dashboard Dashboard
	store     Pinger
	limiter   *rate.Limiter
	clock     clock.Clock
	logger    *zerolog.Logger
	server    *http.Server
}

func NewHTTPServer(bookings BookingFlow, dash Dashboard, store Pinger, opts Options, logger *zerolog.Logger) *HTTPServer {
	l := logger.With().Str("component", "api").Logger()
	s := &HTTPServer{
		bookings:  bookings,
		dashboard: dash,
		store:     store,
		clock:     opts.Clock,
		logger:    &l,
	}
	if s.clock == nil {
		s.clock = clock.New()
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/api/rooms", s.handleRooms)
	mux.HandleFunc("/api/draft", s.handleDraft)
	mux.HandleFunc("/api/draft/dates", s.handleDraftDates)
	mux.HandleFunc("/api/draft/room", s.handleDraftRoom)

	mux.HandleFunc("/api/bookings", s.handleConfirm)
	mux.HandleFunc("/api/bookings/last", s.handleLastBooking)
	mux.HandleFunc("/api/bookings/last/voucher.pdf", s.handleVoucher)
	mux.HandleFunc("/api/bookings/{id}", s.handleBooking)
	mux.HandleFunc("/api/bookings/{id}/status", s.handleBookingStatus)

	mux.HandleFunc("/api/dashboard/summary", s.handleSummary)
	mux.HandleFunc("/api/dashboard/bookings", s.handleSearch)
	mux.HandleFunc("/api/dashboard/monthly", s.handleMonthly)
	mux.HandleFunc("/api/dashboard/export.xlsx", s.handleExport)

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.withLogging(s.withRateLimit(mux)),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) withRateLimit(next http.Handler) http.Handler {
	if s.limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		ev := s.logger.Debug()
		if rec.status >= http.StatusInternalServerError {
			ev = s.logger.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeDomainError maps service errors to HTTP statuses.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrIncompleteDraft),
		errors.Is(err, models.ErrInvalidDateRange),
		errors.Is(err, models.ErrMissingGuestName),
		errors.Is(err, booking.ErrCheckInInPast):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrRoomNotFound),
		errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, repository.ErrDuplicateID):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
