package export

import (
	"bytes"
	"testing"
	"time"

	"grandresort/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleBookings() []models.Booking {
	return []models.Booking{
		{
			ID:         "GR-LRB3K2-A1B2C3",
			GuestName:  "Ali",
			GuestEmail: "ali@example.com",
			Room:       &models.Room{ID: 1, Name: "Deluxe Room", Price: 150},
			CheckIn:    models.NewDate(2024, time.January, 10),
			CheckOut:   models.NewDate(2024, time.January, 12),
			Adults:     2,
			Nights:     2,
			TotalPrice: 300,
			Status:     models.StatusConfirmed,
			CreatedAt:  models.NewTimestamp(time.Date(2024, time.January, 9, 8, 0, 0, 0, time.UTC)),
		},
		{
			ID:         "GR-LRB3K3-FFFFFF",
			GuestName:  "سارة",
			TotalPrice: 0,
			Status:     models.StatusPending,
		},
	}
}

func TestWriteBookingsWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsWorkbook(&buf, sampleBookings()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{BookingsSheet, StatusesSheet}, f.GetSheetList())

	rows, err := f.GetRows(BookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, BookingColumns, rows[0])

	assert.Equal(t, "GR-LRB3K2-A1B2C3", rows[1][0])
	assert.Equal(t, "Deluxe Room", rows[1][4])
	assert.Equal(t, "2024-01-10", rows[1][5])
	assert.Equal(t, "300", rows[1][10])
	assert.Equal(t, models.StatusConfirmed.Label(), rows[1][11])
	assert.Equal(t, "سارة", rows[2][1])
	assert.Equal(t, models.StatusPending.Label(), rows[2][11])

	styleID, err := f.GetCellStyle(BookingsSheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteBookingsWorkbook_StatusSheet(t *testing.T) {
	bookings := append(sampleBookings(),
		models.Booking{ID: "GR-3", Status: models.StatusPending},
		models.Booking{ID: "GR-4", Status: models.Status("archived")},
	)
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsWorkbook(&buf, bookings))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(StatusesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, StatusColumns, rows[0])
	assert.Equal(t, []string{"pending", models.StatusPending.Label(), "2"}, rows[1])
	assert.Equal(t, []string{"confirmed", models.StatusConfirmed.Label(), "1"}, rows[2])
	assert.Equal(t, []string{"checked-in", models.StatusCheckedIn.Label(), "0"}, rows[3])
	assert.Equal(t, []string{"archived", "archived", "1"}, rows[6])
}

func TestWriteBookingsWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBookingsWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(BookingsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExcelWriter_RequiresSheet(t *testing.T) {
	w := NewExcelWriter()
	defer w.Close()
	assert.Error(t, w.WriteRow([]interface{}{"x"}))
}

func TestWorkbookFilename(t *testing.T) {
	assert.Equal(t, "bookings_2024_01.xlsx", WorkbookFilename(time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "bookings_2025_12.xlsx", WorkbookFilename(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBuildVoucher(t *testing.T) {
	bookings := sampleBookings()
	bookings[0].SpecialRequests = "Late check-in"

	for _, b := range bookings {
		b := b
		t.Run(b.ID, func(t *testing.T) {
			data, name, err := BuildVoucher(&b)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
			assert.Equal(t, "voucher_"+b.ID+".pdf", name)
		})
	}

	_, _, err := BuildVoucher(nil)
	assert.Error(t, err)
}

func TestVoucherFilename(t *testing.T) {
	assert.Equal(t, "voucher_a_b_c.pdf", VoucherFilename("a/b:c"))
	assert.Equal(t, "voucher_NA.pdf", VoucherFilename(" "))
}
