package records

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

// ExportHeader is the column order of exported rows.
var ExportHeader = []string{
	"Booking ID",
	"Booker Name",
	"Visit Date",
	"Group Size",
	"Countries",
	"Payment Status",
	"Check-In Status",
	"Entry Time",
	"Exit Time",
	"Total Price (NPR)",
}

const notAvailable = "N/A"

// ExportRows flattens records into rows matching ExportHeader.
func ExportRows(records []booking.Booking) [][]string {
	rows := make([][]string, 0, len(records))
	for _, b := range records {
		countries := make([]string, len(b.Visitors))
		for i, v := range b.Visitors {
			countries[i] = string(v.Country)
		}
		rows = append(rows, []string{
			b.ID,
			b.FullName,
			b.DateOfVisit,
			strconv.Itoa(b.NumberOfVisitors),
			strings.Join(countries, "; "),
			orNA(string(b.PaymentStatus)),
			orNA(string(b.CheckInStatus)),
			orNA(b.EntryTime),
			orNA(b.ExitTime),
			strconv.FormatInt(b.TotalPrice, 10),
		})
	}
	return rows
}

// SummaryRows renders the trailing summary block.
func SummaryRows(s Summary) [][]string {
	return [][]string{
		{"Summary"},
		{"Total Bookings:", strconv.Itoa(s.Count)},
		{"Total Visitors:", strconv.Itoa(s.TotalVisitors)},
		{"Total Price Collected (Paid):", FormatRupees(s.TotalCollected)},
	}
}

// FormatRupees formats an amount with thousands separators, e.g. "Rs. 12,500".
func FormatRupees(amount pricing.Money) string {
	return message.NewPrinter(language.English).Sprintf("Rs. %d", amount)
}

// CSV renders records, followed by a blank line and the summary block.
func CSV(records []booking.Booking) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportHeader); err != nil {
		return nil, err
	}
	if err := w.WriteAll(ExportRows(records)); err != nil {
		return nil, err
	}
	buf.WriteString("\n")
	if err := w.WriteAll(SummaryRows(Summarize(records))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}
