// Package dashboard derives the admin summaries from the bookings list.
package dashboard

import (
	"strings"
	"time"

	"grandresort/internal/models"
)

const monthLayout = "2006-01"

// MonthCount is the number of bookings created in one calendar month.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthRevenue is the revenue of bookings created in one calendar month.
type MonthRevenue struct {
	Month   string        `json:"month"`
	Revenue models.Amount `json:"revenue"`
}

// TotalRevenue sums the total price of every booking. Missing prices count as 0.
func TotalRevenue(bookings []models.Booking) models.Amount {
	var total models.Amount
	for i := range bookings {
		total += bookings[i].TotalPrice
	}
	return total
}

// AvailableRoomCount counts rooms flagged available.
func AvailableRoomCount(rooms []models.Room) int {
	n := 0
	for i := range rooms {
		if rooms[i].Available {
			n++
		}
	}
	return n
}

// BookingsCreatedOn returns the bookings whose creation timestamp starts with
// day ("YYYY-MM-DD"). Bookings without a timestamp never match.
func BookingsCreatedOn(day string, bookings []models.Booking) []models.Booking {
	out := make([]models.Booking, 0)
	for i := range bookings {
		created := bookings[i].CreatedAt.String()
		if created != "" && strings.HasPrefix(created, day) {
			out = append(out, bookings[i])
		}
	}
	return out
}

// monthLabels returns the labels of the monthCount calendar months ending at
// now's month, oldest first.
func monthLabels(monthCount int, now time.Time) []string {
	if monthCount <= 0 {
		return nil
	}
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	labels := make([]string, monthCount)
	for i := 0; i < monthCount; i++ {
		labels[i] = first.AddDate(0, i-monthCount+1, 0).Format(monthLayout)
	}
	return labels
}

func monthOf(b *models.Booking) string {
	if b.CreatedAt.IsZero() {
		return ""
	}
	return b.CreatedAt.Time().UTC().Format(monthLayout)
}

// BookingsPerMonth counts bookings per creation month over the last monthCount
// months up to now. Months without bookings are reported as 0.
func BookingsPerMonth(bookings []models.Booking, monthCount int, now time.Time) []MonthCount {
	labels := monthLabels(monthCount, now)
	out := make([]MonthCount, len(labels))
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		out[i] = MonthCount{Month: label}
		index[label] = i
	}
	for i := range bookings {
		if pos, ok := index[monthOf(&bookings[i])]; ok {
			out[pos].Count++
		}
	}
	return out
}

// RevenuePerMonth sums booking revenue over the same buckets as BookingsPerMonth.
func RevenuePerMonth(bookings []models.Booking, monthCount int, now time.Time) []MonthRevenue {
	labels := monthLabels(monthCount, now)
	out := make([]MonthRevenue, len(labels))
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		out[i] = MonthRevenue{Month: label}
		index[label] = i
	}
	for i := range bookings {
		if pos, ok := index[monthOf(&bookings[i])]; ok {
			out[pos].Revenue += bookings[i].TotalPrice
		}
	}
	return out
}

// RecentBookings returns the last limit bookings in insertion order, most recent first.
func RecentBookings(bookings []models.Booking, limit int) []models.Booking {
	if limit <= 0 {
		return []models.Booking{}
	}
	if limit > len(bookings) {
		limit = len(bookings)
	}
	out := make([]models.Booking, 0, limit)
	for i := len(bookings) - 1; i >= len(bookings)-limit; i-- {
		out = append(out, bookings[i])
	}
	return out
}

// Search filters bookings whose guest name, id or room name contains query.
// Matching is case-sensitive. An empty query returns bookings unchanged.
func Search(bookings []models.Booking, query string) []models.Booking {
	if query == "" {
		return bookings
	}
	out := make([]models.Booking, 0)
	for i := range bookings {
		b := &bookings[i]
		if strings.Contains(b.GuestName, query) ||
			strings.Contains(b.ID, query) ||
			strings.Contains(b.RoomName(), query) {
			out = append(out, *b)
		}
	}
	return out
}

// StatusBreakdown counts bookings per status.
func StatusBreakdown(bookings []models.Booking) map[models.Status]int {
	out := make(map[models.Status]int)
	for i := range bookings {
		out[bookings[i].Status]++
	}
	return out
}

// DefaultPerPage is the page size used when none is requested.
const DefaultPerPage = 20

// Paginate returns the zero-based page of bookings and the number of pages.
// A page past the end is empty.
func Paginate(bookings []models.Booking, page, perPage int) ([]models.Booking, int) {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	pages := (len(bookings) + perPage - 1) / perPage
	if page < 0 {
		page = 0
	}
	startIdx := page * perPage
	if startIdx >= len(bookings) {
		return []models.Booking{}, pages
	}
	endIdx := startIdx + perPage
	if endIdx > len(bookings) {
		endIdx = len(bookings)
	}
	return bookings[startIdx:endIdx], pages
}
