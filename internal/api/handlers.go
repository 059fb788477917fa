package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grandresort/internal/dashboard"
	"grandresort/internal/export"
	"grandresort/internal/metrics"
	"grandresort/internal/models"
)

const maxPerPage = 100

// DraftResponse is a draft with its current quote.
type DraftResponse struct {
	Draft      *models.Draft `json:"draft"`
	Nights     int           `json:"nights"`
	TotalPrice models.Amount `json:"totalPrice"`
	Complete   bool          `json:"complete"`
}

// DatesRequest is the body of PUT /api/draft/dates.
type DatesRequest struct {
	CheckIn  string `json:"checkIn"`  // YYYY-MM-DD
	CheckOut string `json:"checkOut"` // YYYY-MM-DD
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

// RoomRequest is the body of PUT /api/draft/room.
type RoomRequest struct {
	RoomID int64 `json:"roomId"`
}

// StatusRequest is the body of PATCH /api/bookings/{id}/status.
type StatusRequest struct {
	Status models.Status `json:"status"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store not ready")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// GET /api/rooms
func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooms")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	rooms, err := s.bookings.Rooms(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *HTTPServer) writeDraft(w http.ResponseWriter, status int, draft *models.Draft) {
	nights, total := s.bookings.Quote(draft)
	writeJSON(w, status, DraftResponse{
		Draft:      draft,
		Nights:     nights,
		TotalPrice: total,
		Complete:   draft.Complete(),
	})
}

// GET|DELETE /api/draft
func (s *HTTPServer) handleDraft(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("draft")
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		return
	}
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		draft, err := s.bookings.Draft(r.Context(), session)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.writeDraft(w, http.StatusOK, draft)
	case http.MethodDelete:
		if err := s.bookings.ClearDraft(r.Context(), session); err != nil {
			s.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PUT /api/draft/dates
func (s *HTTPServer) handleDraftDates(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("draft_dates")
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req DatesRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	checkIn, checkOut, err := s.validateDates(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := s.bookings.SetDates(r.Context(), session, checkIn, checkOut, req.Adults, req.Children)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeDraft(w, http.StatusOK, draft)
}

func (s *HTTPServer) validateDates(req *DatesRequest) (checkIn, checkOut models.Date, err error) {
	if req.CheckIn == "" || req.CheckOut == "" {
		return models.Date{}, models.Date{}, fmt.Errorf("checkIn and checkOut are required")
	}
	checkIn, err = models.ParseDate(req.CheckIn)
	if err != nil {
		return models.Date{}, models.Date{}, fmt.Errorf("invalid checkIn format; expected YYYY-MM-DD")
	}
	checkOut, err = models.ParseDate(req.CheckOut)
	if err != nil {
		return models.Date{}, models.Date{}, fmt.Errorf("invalid checkOut format; expected YYYY-MM-DD")
	}
	if !checkOut.After(checkIn) {
		return models.Date{}, models.Date{}, fmt.Errorf("checkOut must be after checkIn")
	}
	if req.Adults < 1 {
		return models.Date{}, models.Date{}, fmt.Errorf("at least one adult is required")
	}
	if req.Children < 0 {
		return models.Date{}, models.Date{}, fmt.Errorf("children cannot be negative")
	}
	if err := s.bookings.ValidateCheckIn(checkIn); err != nil {
		return models.Date{}, models.Date{}, err
	}
	return checkIn, checkOut, nil
}

// PUT /api/draft/room
func (s *HTTPServer) handleDraftRoom(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("draft_room")
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req RoomRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	draft, err := s.bookings.SelectRoom(r.Context(), session, req.RoomID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeDraft(w, http.StatusOK, draft)
}

// POST /api/bookings
func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_confirm")
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var guest models.GuestDetails
	if err := readJSON(w, r, &guest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b, err := s.bookings.Confirm(r.Context(), session, guest)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GET /api/bookings/last
func (s *HTTPServer) handleLastBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_last")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	b, err := s.bookings.LastBooking(r.Context(), session)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GET /api/bookings/last/voucher.pdf
func (s *HTTPServer) handleVoucher(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_voucher")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	b, err := s.bookings.LastBooking(r.Context(), session)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	data, name, err := export.BuildVoucher(b)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DELETE /api/bookings/{id}
func (s *HTTPServer) handleBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_delete")
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	if err := s.dashboard.DeleteBooking(r.Context(), r.PathValue("id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PATCH /api/bookings/{id}/status
func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_status")
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, http.MethodPatch)
		return
	}

	var req StatusRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", req.Status))
		return
	}

	b, err := s.bookings.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GET /api/dashboard/summary
func (s *HTTPServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard_summary")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	summary, err := s.dashboard.Summary(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /api/dashboard/bookings?q=&page=&per_page=
func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard_bookings")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	query := r.URL.Query()
	found, err := s.dashboard.Search(r.Context(), query.Get("q"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	// Pagination is opt-in; without "page" the whole result is returned.
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		perPage := dashboard.DefaultPerPage
		if rawPer := query.Get("per_page"); rawPer != "" {
			perPage, err = strconv.Atoi(rawPer)
			if err != nil || perPage < 1 || perPage > maxPerPage {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("per_page must be between 1 and %d", maxPerPage))
				return
			}
		}
		var pages int
		total := len(found)
		found, pages = dashboard.Paginate(found, page-1, perPage)
		w.Header().Set("X-Total-Count", strconv.Itoa(total))
		w.Header().Set("X-Total-Pages", strconv.Itoa(pages))
	}
	writeJSON(w, http.StatusOK, found)
}

// GET /api/dashboard/monthly?months=N
func (s *HTTPServer) handleMonthly(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard_monthly")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	months := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "months must be a positive integer")
			return
		}
		months = n
	}

	series, err := s.dashboard.Monthly(r.Context(), months)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// GET /api/dashboard/export.xlsx
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard_export")
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	bookings, err := s.dashboard.Bookings(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.WorkbookFilename(s.clock.Now())))
	if err := export.WriteBookingsWorkbook(w, bookings); err != nil {
		s.logger.Error().Err(err).Msg("export workbook")
	}
}
