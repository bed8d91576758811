// Package scan backs the gate scanner: ticket verification and entry/exit stamping.
package scan

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/booking"
)

// Reason explains why a ticket is not valid for entry.
type Reason string

const (
	ReasonCancelled     Reason = "cancelled"
	ReasonUnpaid        Reason = "payment_unpaid"
	ReasonPaymentFailed Reason = "payment_failed"
	ReasonWrongDate     Reason = "visit_date_not_today"
	ReasonCheckedOut    Reason = "already_checked_out"
)

// Outcome labels used for the scan metric.
const (
	OutcomeValid    = "valid"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Bookings is the slice of the booking service the scanner needs.
type Bookings interface {
	Get(ctx context.Context, id string) (booking.Booking, error)
	CheckIn(ctx context.Context, id string) (booking.Booking, error)
	CheckOut(ctx context.Context, id string) (booking.Booking, error)
}

// Verdict is the result of scanning a ticket.
type Verdict struct {
	Valid   bool            `json:"valid"`
	Reasons []Reason        `json:"reasons"`
	Booking booking.Booking `json:"booking"`
}

// Service verifies scanned booking ids.
type Service struct {
	Bookings Bookings
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time
	// OnScan receives one outcome label per verification.
	OnScan func(outcome string)
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return now().In(loc)
}

func (s *Service) observe(outcome string) {
	if s.OnScan != nil {
		s.OnScan(outcome)
	}
}

// Verify looks up id and reports whether it admits entry today.
// An unknown id returns booking.ErrNotFound.
func (s *Service) Verify(ctx context.Context, id string) (Verdict, error) {
	b, err := s.Bookings.Get(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			s.observe(OutcomeNotFound)
		} else {
			s.observe(OutcomeError)
		}
		return Verdict{}, err
	}
	v := Evaluate(b, s.now())
	if v.Valid {
		s.observe(OutcomeValid)
	} else {
		s.observe(OutcomeInvalid)
	}
	s.Logger.Debug().Str("booking_id", b.ID).Bool("valid", v.Valid).Msg("ticket scanned")
	return v, nil
}

// Evaluate computes the verdict for b at now. A ticket that is checked in but
// not yet out stays valid so the exit scan can find it.
func Evaluate(b booking.Booking, now time.Time) Verdict {
	reasons := []Reason{}
	if b.Lifecycle() == booking.StatusCancelled {
		reasons = append(reasons, ReasonCancelled)
	}
	switch b.Payment() {
	case booking.PaymentUnpaid:
		reasons = append(reasons, ReasonUnpaid)
	case booking.PaymentFailed:
		reasons = append(reasons, ReasonPaymentFailed)
	}
	if b.DateOfVisit != now.Format(booking.DateLayout) {
		reasons = append(reasons, ReasonWrongDate)
	}
	if b.ExitTime != "" {
		reasons = append(reasons, ReasonCheckedOut)
	}
	return Verdict{Valid: len(reasons) == 0, Reasons: reasons, Booking: b}
}

// CheckIn stamps entry for id.
func (s *Service) CheckIn(ctx context.Context, id string) (booking.Booking, error) {
	return s.Bookings.CheckIn(ctx, id)
}

// CheckOut stamps exit for id.
func (s *Service) CheckOut(ctx context.Context, id string) (booking.Booking, error) {
	return s.Bookings.CheckOut(ctx, id)
}
