package booking

import (
	"fmt"
	"time"
)

// ApplyPayment moves b to the next payment status.
//
//	Unpaid -> Paid | Failed
//	Failed -> Paid | Unpaid
//	Paid is terminal
//
// Reaching Paid confirms the booking.
func ApplyPayment(b *Booking, next PaymentStatus) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown payment status %q", ErrInvalidTransition, next)
	}
	if b.Lifecycle() == StatusCancelled {
		return fmt.Errorf("%w: booking is cancelled", ErrInvalidTransition)
	}
	cur := b.Payment()
	allowed := false
	switch cur {
	case PaymentUnpaid:
		allowed = next == PaymentPaid || next == PaymentFailed
	case PaymentFailed:
		allowed = next == PaymentPaid || next == PaymentUnpaid
	}
	if !allowed {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, cur, next)
	}
	b.PaymentStatus = next
	if next == PaymentPaid {
		b.Status = StatusConfirmed
	}
	return nil
}

// ApplyCheckIn records gate entry at now.
func ApplyCheckIn(b *Booking, now time.Time) error {
	switch {
	case b.Lifecycle() == StatusCancelled:
		return fmt.Errorf("%w: booking is cancelled", ErrInvalidTransition)
	case b.Payment() != PaymentPaid:
		return fmt.Errorf("%w: payment is %s", ErrInvalidTransition, b.Payment())
	case b.CheckIn() == CheckedIn || b.ExitTime != "":
		return fmt.Errorf("%w: already checked in", ErrInvalidTransition)
	}
	b.CheckInStatus = CheckedIn
	b.EntryTime = now.Format(ClockLayout)
	return nil
}

// ApplyCheckOut records gate exit at now.
func ApplyCheckOut(b *Booking, now time.Time) error {
	if b.CheckIn() != CheckedIn {
		return fmt.Errorf("%w: not checked in", ErrInvalidTransition)
	}
	if b.ExitTime != "" {
		return fmt.Errorf("%w: already checked out", ErrInvalidTransition)
	}
	b.ExitTime = now.Format(ClockLayout)
	return nil
}

// ApplyCancel cancels a booking that has not been used at the gate.
func ApplyCancel(b *Booking) error {
	if b.Lifecycle() == StatusCancelled {
		return fmt.Errorf("%w: already cancelled", ErrInvalidTransition)
	}
	if b.CheckIn() == CheckedIn {
		return fmt.Errorf("%w: visitor already checked in", ErrInvalidTransition)
	}
	b.Status = StatusCancelled
	return nil
}
