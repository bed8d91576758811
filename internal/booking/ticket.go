package booking

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
)

// TicketPDF renders a printable e-ticket for b. The booking id is printed in
// large type so gate staff can key it in when the QR scan fails.
func TicketPDF(b Booking) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("ParkConnect E-Ticket "+b.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 10, "PARK ENTRY E-TICKET")
	pdf.Ln(14)

	pdf.SetFont("Courier", "B", 22)
	pdf.CellFormat(0, 12, b.ID, "1", 0, "C", false, 0, "")
	pdf.Ln(18)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booked by   : " + orDash(b.FullName),
		"Email       : " + orDash(b.Email),
		"Phone       : " + orDash(b.Phone),
		"Visit date  : " + orDash(b.DateOfVisit),
		fmt.Sprintf("Group size  : %d", b.NumberOfVisitors),
		"Payment     : " + string(b.Payment()),
		"Total       : Rs. " + fmt.Sprint(b.TotalPrice),
	}
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Visitors")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for i, v := range b.Visitors {
		pdf.Cell(0, 6, fmt.Sprintf("%2d. %s (%s)", i+1, orDash(v.Name), v.Country))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 5, "Valid only on the visit date shown above. Present this ticket at the park gate for check-in.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "ticket-" + strings.ToLower(b.ID) + ".pdf", nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
