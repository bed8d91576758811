package booking

import (
	"strings"
	"time"

	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

// DateLayout is the calendar-date format used for visit dates.
const DateLayout = "2006-01-02"

// ClockLayout is the wall-clock format stamped on entry and exit.
const ClockLayout = "03:04 PM"

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
)

// PaymentStatus tracks whether the booking has been paid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "Unpaid"
	PaymentPaid   PaymentStatus = "Paid"
	PaymentFailed PaymentStatus = "Failed"
)

// Valid reports whether p is a known payment status.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// CheckInStatus tracks gate entry.
type CheckInStatus string

const (
	NotCheckedIn CheckInStatus = "Not Checked-In"
	CheckedIn    CheckInStatus = "Checked-In"
)

// Valid reports whether c is a known check-in status.
func (c CheckInStatus) Valid() bool {
	return c == NotCheckedIn || c == CheckedIn
}

// Visitor is one person covered by a booking.
type Visitor struct {
	Name    string           `json:"name" yaml:"name"`
	Country pricing.Category `json:"country" yaml:"country"`
}

// Booking is a stored park-entry reservation. Status fields are optional
// because older records were written before they existed.
type Booking struct {
	ID               string        `json:"id" yaml:"id"`
	FullName         string        `json:"fullName" yaml:"fullName"`
	Email            string        `json:"email" yaml:"email"`
	Phone            string        `json:"phone" yaml:"phone"`
	DateOfVisit      string        `json:"dateOfVisit" yaml:"dateOfVisit"`
	NumberOfVisitors int           `json:"numberOfVisitors" yaml:"numberOfVisitors"`
	Visitors         []Visitor     `json:"visitors" yaml:"visitors"`
	TotalPrice       pricing.Money `json:"totalPrice" yaml:"totalPrice"`
	CreatedAt        time.Time     `json:"createdAt" yaml:"createdAt"`
	Status           Status        `json:"status,omitempty" yaml:"status,omitempty"`
	PaymentStatus    PaymentStatus `json:"paymentStatus,omitempty" yaml:"paymentStatus,omitempty"`
	CheckInStatus    CheckInStatus `json:"checkInStatus,omitempty" yaml:"checkInStatus,omitempty"`
	EntryTime        string        `json:"entryTime,omitempty" yaml:"entryTime,omitempty"`
	ExitTime         string        `json:"exitTime,omitempty" yaml:"exitTime,omitempty"`
}

// Categories returns the pricing category of every visitor in order.
func (b Booking) Categories() []pricing.Category {
	out := make([]pricing.Category, len(b.Visitors))
	for i, v := range b.Visitors {
		out[i] = v.Country
	}
	return out
}

// VisitDate parses DateOfVisit in loc.
func (b Booking) VisitDate(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(b.DateOfVisit), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Payment returns the payment status, treating a missing value as unpaid.
func (b Booking) Payment() PaymentStatus {
	if b.PaymentStatus == "" {
		return PaymentUnpaid
	}
	return b.PaymentStatus
}

// CheckIn returns the check-in status, treating a missing value as not checked in.
func (b Booking) CheckIn() CheckInStatus {
	if b.CheckInStatus == "" {
		return NotCheckedIn
	}
	return b.CheckInStatus
}

// Lifecycle returns the lifecycle status, treating a missing value as pending.
func (b Booking) Lifecycle() Status {
	if b.Status == "" {
		return StatusPending
	}
	return b.Status
}
