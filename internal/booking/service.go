package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/events"
	"github.com/noah-isme/parkconnect-api/internal/lock"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

var (
	// ErrNotFound is returned when no booking has the requested identifier.
	ErrNotFound = errors.New("booking: not found")
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	// ErrDuplicateID is returned by stores when a generated id already exists.
	ErrDuplicateID = errors.New("booking: duplicate id")
	// ErrUnavailable marks record store failures the caller may retry.
	ErrUnavailable = errors.New("booking: record store unavailable")
)

// Store is the record store collaborator for bookings.
type Store interface {
	FetchAll(ctx context.Context) ([]Booking, error)
	FetchByID(ctx context.Context, id string) (Booking, error)
	Insert(ctx context.Context, b Booking) error
	Update(ctx context.Context, b Booking) error
}

// TierSource provides the current tier table. A non-nil error alongside
// tiers means a fallback table was used.
type TierSource interface {
	Current(ctx context.Context) (pricing.Tiers, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// CreateResult is the outcome of a successful booking submission.
type CreateResult struct {
	Booking  Booking  `json:"booking"`
	Warnings []string `json:"warnings,omitempty"`
}

// Service coordinates booking creation and status changes.
type Service struct {
	Store     Store
	Tiers     TierSource
	Validator *Validator
	Events    Emitter
	Locker    *lock.Locker
	LockTTL   time.Duration
	Location  *time.Location
	Logger    zerolog.Logger
	Now       func() time.Time
	// OnCreated is called after a booking is stored. Warnings are non-empty
	// when the booking was priced from a fallback tier table.
	OnCreated func(CreateResult)
	// OnChanged is called after a payment, check-in, check-out or cancel
	// has been stored.
	OnChanged func(Booking)
}

const maxIDAttempts = 3

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// Create validates req, prices it with the current tier table, and stores it.
// A pricing fallback is reported as a warning, not an error.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if s.Validator != nil {
		if err := s.Validator.Validate(req); err != nil {
			return CreateResult{}, err
		}
	}

	var warnings []string
	tiers := pricing.DefaultTiers
	if s.Tiers != nil {
		current, warn := s.Tiers.Current(ctx)
		tiers = current
		if warn != nil {
			s.Logger.Warn().Err(warn).Msg("booking priced with fallback tiers")
			warnings = append(warnings, "Live pricing unavailable; prices were calculated from the last known tier table.")
		}
	}

	visitors := req.visitors()
	b := Booking{
		FullName:         strings.TrimSpace(req.FullName),
		Email:            strings.TrimSpace(req.Email),
		Phone:            req.Phone,
		DateOfVisit:      req.DateOfVisit,
		NumberOfVisitors: len(visitors),
		Visitors:         visitors,
		Status:           StatusPending,
		PaymentStatus:    PaymentUnpaid,
		CheckInStatus:    NotCheckedIn,
	}
	b.TotalPrice = pricing.ComputeTotal(b.Categories(), tiers)

	var err error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		now := s.now()
		b.ID = NewID(now)
		b.CreatedAt = now.UTC()
		err = s.Store.Insert(ctx, b)
		if !errors.Is(err, ErrDuplicateID) {
			break
		}
	}
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.emit(ctx, events.TopicBookingCreated, b)
	res := CreateResult{Booking: b, Warnings: warnings}
	if s.OnCreated != nil {
		s.OnCreated(res)
	}
	return res, nil
}

// Get looks up a single booking.
func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return Booking{}, ErrNotFound
	}
	b, err := s.Store.FetchByID(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Booking{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return b, err
}

// List returns every stored booking.
func (s *Service) List(ctx context.Context) ([]Booking, error) {
	all, err := s.Store.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return all, nil
}

// SetPayment moves the payment status of a booking.
func (s *Service) SetPayment(ctx context.Context, id string, next PaymentStatus) (Booking, error) {
	return s.mutate(ctx, id, func(b *Booking) (string, error) {
		if err := ApplyPayment(b, next); err != nil {
			return "", err
		}
		if next == PaymentPaid {
			return events.TopicBookingPaid, nil
		}
		return events.TopicBookingPayment, nil
	})
}

// CheckIn stamps gate entry for a paid booking.
func (s *Service) CheckIn(ctx context.Context, id string) (Booking, error) {
	return s.mutate(ctx, id, func(b *Booking) (string, error) {
		return events.TopicBookingCheckedIn, ApplyCheckIn(b, s.now().In(s.location()))
	})
}

// CheckOut stamps gate exit for a checked-in booking.
func (s *Service) CheckOut(ctx context.Context, id string) (Booking, error) {
	return s.mutate(ctx, id, func(b *Booking) (string, error) {
		return events.TopicBookingCheckedOut, ApplyCheckOut(b, s.now().In(s.location()))
	})
}

// Cancel cancels a booking that has not been used.
func (s *Service) Cancel(ctx context.Context, id string) (Booking, error) {
	return s.mutate(ctx, id, func(b *Booking) (string, error) {
		return events.TopicBookingCancelled, ApplyCancel(b)
	})
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*Booking) (string, error)) (Booking, error) {
	var out Booking
	run := func(ctx context.Context) error {
		b, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		topic, err := fn(&b)
		if err != nil {
			return err
		}
		if err := s.Store.Update(ctx, b); err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		out = b
		s.emit(ctx, topic, b)
		return nil
	}
	var err error
	if s.Locker == nil {
		err = run(ctx)
	} else {
		err = s.Locker.WithLock(ctx, "booking:"+strings.ToUpper(strings.TrimSpace(id)), s.LockTTL, run)
	}
	if err == nil && s.OnChanged != nil {
		s.OnChanged(out)
	}
	return out, err
}

func (s *Service) emit(ctx context.Context, topic string, b Booking) {
	if s.Events == nil || topic == "" {
		return
	}
	payload := map[string]any{
		"bookingId":        b.ID,
		"email":            b.Email,
		"fullName":         b.FullName,
		"dateOfVisit":      b.DateOfVisit,
		"numberOfVisitors": b.NumberOfVisitors,
		"totalPrice":       b.TotalPrice,
		"paymentStatus":    b.Payment(),
	}
	if _, err := s.Events.Emit(ctx, topic, b.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Str("booking_id", b.ID).Msg("event emit failed")
	}
}
