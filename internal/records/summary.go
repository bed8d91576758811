package records

import (
	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

// Summary aggregates a set of records.
type Summary struct {
	Count          int           `json:"count"`
	TotalVisitors  int           `json:"totalVisitors"`
	TotalCollected pricing.Money `json:"totalCollected"`
}

// Summarize counts records and visitors and sums revenue from paid bookings.
func Summarize(records []booking.Booking) Summary {
	s := Summary{Count: len(records)}
	for _, b := range records {
		s.TotalVisitors += b.NumberOfVisitors
		if b.PaymentStatus == booking.PaymentPaid {
			s.TotalCollected += b.TotalPrice
		}
	}
	return s
}
