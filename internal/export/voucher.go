package export

import (
	"bytes"
	"fmt"
	"strings"

	"grandresort/internal/models"

	"github.com/phpdave11/gofpdf"
)

// ResortName heads every voucher.
const ResortName = "Grand Resort"

// BuildVoucher renders the confirmation voucher of a booking and returns the
// PDF bytes with a suggested filename.
func BuildVoucher(b *models.Booking) ([]byte, string, error) {
	if b == nil {
		return nil, "", fmt.Errorf("no booking to render")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Voucher", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, ResortName)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 13)
	pdf.Cell(0, 8, "Booking Voucher")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking ID   : %s", b.ID),
		fmt.Sprintf("Guest        : %s", safe(b.GuestName, "-")),
		fmt.Sprintf("Email        : %s", safe(b.GuestEmail, "-")),
		fmt.Sprintf("Phone        : %s", safe(b.GuestPhone, "-")),
		fmt.Sprintf("Room         : %s", safe(b.RoomName(), "-")),
		fmt.Sprintf("Check-in     : %s", safe(b.CheckIn.String(), "-")),
		fmt.Sprintf("Check-out    : %s", safe(b.CheckOut.String(), "-")),
		fmt.Sprintf("Nights       : %d", b.Nights),
		fmt.Sprintf("Guests       : %d adults, %d children", b.Adults, b.Children),
		fmt.Sprintf("Status       : %s", b.Status),
		fmt.Sprintf("Booked at    : %s", safe(b.CreatedAt.String(), "-")),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Total: "+b.TotalPrice.String())
	pdf.Ln(10)

	if b.SpecialRequests != "" {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, tr("Special requests: "+b.SpecialRequests), "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render voucher %s: %w", b.ID, err)
	}

	return buf.Bytes(), VoucherFilename(b.ID), nil
}

// VoucherFilename is the download name of a voucher.
func VoucherFilename(id string) string {
	return fmt.Sprintf("voucher_%s.pdf", safeFilenamePart(id))
}

func safe(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
