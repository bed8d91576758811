// Package analytics computes the admin dashboard counters from stored bookings.
package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/cache"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
	"github.com/noah-isme/parkconnect-api/internal/records"
)

// Source lists every stored booking.
type Source interface {
	List(ctx context.Context) ([]booking.Booking, error)
}

// Bucket counts visitor heads whose visit date falls in a window.
// Total also includes legacy records that carry a head count but no visitor list.
type Bucket struct {
	Bookings      int           `json:"bookings"`
	Total         int           `json:"total"`
	Domestic      int           `json:"domestic"`
	International int           `json:"international"`
	Collected     pricing.Money `json:"collected"`
}

// Stats is the dashboard payload.
type Stats struct {
	AsOf            string `json:"asOf"`
	Today           Bucket `json:"today"`
	Week            Bucket `json:"week"`
	Month           Bucket `json:"month"`
	YearToDate      Bucket `json:"yearToDate"`
	CurrentlyInside int    `json:"currentlyInside"`
}

// Service aggregates dashboard counters and caches the result.
type Service struct {
	Source   Source
	Cache    *cache.JSON
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s *Service) now() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return now().In(s.location())
}

// CacheKey scopes cached stats to the current park day so a stale entry never
// survives midnight.
func CacheKey(day time.Time) string {
	return cache.KeyDashboardStats + ":" + day.Format(booking.DateLayout)
}

// Dashboard returns counters for today, the Monday-start week, the month and
// the year to date. Cancelled bookings are excluded.
func (s *Service) Dashboard(ctx context.Context) (Stats, error) {
	if s == nil || s.Source == nil {
		return Stats{}, errors.New("analytics service not configured")
	}
	now := s.now()
	key := CacheKey(now)

	var cached Stats
	if ok, err := s.Cache.Get(ctx, key, &cached); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
	} else if ok {
		return cached, nil
	}

	all, err := s.Source.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Compute(all, now, s.location())
	if err := s.Cache.Set(ctx, key, stats); err != nil {
		s.Logger.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
	return stats, nil
}

// Invalidate drops today's cached stats.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.Cache.Delete(ctx, CacheKey(s.now())); err != nil {
		s.Logger.Warn().Err(err).Msg("dashboard cache invalidate failed")
	}
}

// BookingChanged drops cached stats after a booking's payment, check-in or
// cancellation state moved, so inside-now and collected counters stay current.
func (s *Service) BookingChanged(booking.Booking) {
	s.Invalidate(context.Background())
}

// Compute aggregates all bookings relative to now in loc.
func Compute(all []booking.Booking, now time.Time, loc *time.Location) Stats {
	engine := records.NewEngine(loc)
	now = now.In(loc)
	today := engine.WindowSpan(records.WindowToday, now)
	week := engine.WindowSpan(records.WindowWeek, now)
	month := engine.WindowSpan(records.WindowMonth, now)
	ytd := records.Span{
		From: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc),
		To:   today.To,
	}

	stats := Stats{AsOf: now.Format(booking.DateLayout)}
	for _, b := range all {
		if b.Lifecycle() == booking.StatusCancelled {
			continue
		}
		if b.CheckIn() == booking.CheckedIn && b.ExitTime == "" {
			stats.CurrentlyInside += heads(b)
		}
		day, ok := b.VisitDate(loc)
		if !ok {
			continue
		}
		for _, w := range []struct {
			span   records.Span
			bucket *Bucket
		}{
			{today, &stats.Today},
			{week, &stats.Week},
			{month, &stats.Month},
			{ytd, &stats.YearToDate},
		} {
			if w.span.Contains(day) {
				w.bucket.add(b)
			}
		}
	}
	return stats
}

func (bk *Bucket) add(b booking.Booking) {
	bk.Bookings++
	for _, v := range b.Visitors {
		if v.Country.Domestic() {
			bk.Domestic++
		} else {
			bk.International++
		}
	}
	bk.Total += heads(b)
	if b.Payment() == booking.PaymentPaid {
		bk.Collected += b.TotalPrice
	}
}

func heads(b booking.Booking) int {
	if len(b.Visitors) > 0 {
		return len(b.Visitors)
	}
	return b.NumberOfVisitors
}
