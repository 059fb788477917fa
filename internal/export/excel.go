// Package export renders bookings as spreadsheet and PDF documents.
package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"grandresort/internal/dashboard"
	"grandresort/internal/models"

	"github.com/xuri/excelize/v2"
)

// Sheets of the bookings workbook.
const (
	BookingsSheet = "Bookings"
	StatusesSheet = "Statuses"
)

// StatusColumns are the header cells of the statuses sheet.
var StatusColumns = []string{"Status", "Label", "Bookings"}

// BookingColumns are the header cells of the bookings sheet.
var BookingColumns = []string{
	"ID", "Guest", "Email", "Phone", "Room", "Check-in", "Check-out",
	"Nights", "Adults", "Children", "Total", "Status", "Created",
}

// ExcelWriter appends rows to a workbook sheet by sheet.
type ExcelWriter struct {
	file         *excelize.File
	currentSheet string
	currentRow   int
}

func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{file: excelize.NewFile()}
}

// AddSheet starts a new sheet. The first call renames the default sheet.
func (w *ExcelWriter) AddSheet(name string) error {
	// Excel limits sheet names to 31 characters.
	if len(name) > 31 {
		name = name[:31]
	}

	if w.currentSheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else {
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w.currentSheet = name
	w.currentRow = 1
	return nil
}

// WriteHeader writes bold column headers to the current sheet.
func (w *ExcelWriter) WriteHeader(columns []string) error {
	if err := w.WriteRow(toCells(columns)); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	startCell, _ := excelize.CoordinatesToCellName(1, w.currentRow-1)
	endCell, _ := excelize.CoordinatesToCellName(len(columns), w.currentRow-1)
	return w.file.SetCellStyle(w.currentSheet, startCell, endCell, style)
}

// WriteRow writes one data row to the current sheet.
func (w *ExcelWriter) WriteRow(row []interface{}) error {
	if w.currentSheet == "" {
		return fmt.Errorf("no active sheet")
	}

	for i, val := range row {
		cell, err := excelize.CoordinatesToCellName(i+1, w.currentRow)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.currentSheet, cell, val); err != nil {
			return err
		}
	}

	w.currentRow++
	return nil
}

func (w *ExcelWriter) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

func (w *ExcelWriter) Close() error {
	return w.file.Close()
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// WriteBookingsWorkbook writes all bookings and their status breakdown.
func WriteBookingsWorkbook(wr io.Writer, bookings []models.Booking) error {
	w := NewExcelWriter()
	defer w.Close()

	if err := w.AddSheet(BookingsSheet); err != nil {
		return err
	}
	if err := w.WriteHeader(BookingColumns); err != nil {
		return err
	}
	for i := range bookings {
		if err := w.WriteRow(bookingRow(&bookings[i])); err != nil {
			return fmt.Errorf("write booking %s: %w", bookings[i].ID, err)
		}
	}

	if err := w.AddSheet(StatusesSheet); err != nil {
		return err
	}
	if err := w.WriteHeader(StatusColumns); err != nil {
		return err
	}
	counts := dashboard.StatusBreakdown(bookings)
	for _, st := range statusOrder(counts) {
		if err := w.WriteRow([]interface{}{string(st), st.Label(), counts[st]}); err != nil {
			return fmt.Errorf("write status %s: %w", st, err)
		}
	}
	return w.Save(wr)
}

// statusOrder lists known statuses first, then any stored unknown ones by name.
func statusOrder(counts map[models.Status]int) []models.Status {
	out := models.Statuses()
	var unknown []models.Status
	for st := range counts {
		if !st.Valid() {
			unknown = append(unknown, st)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

func bookingRow(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.GuestName,
		b.GuestEmail,
		b.GuestPhone,
		b.RoomName(),
		b.CheckIn.String(),
		b.CheckOut.String(),
		b.Nights,
		b.Adults,
		b.Children,
		b.TotalPrice.Float64(),
		b.Status.Label(),
		b.CreatedAt.String(),
	}
}

// WorkbookFilename names the export made at now, e.g. bookings_2024_01.xlsx.
func WorkbookFilename(now time.Time) string {
	return fmt.Sprintf("bookings_%04d_%02d.xlsx", now.Year(), int(now.Month()))
}
