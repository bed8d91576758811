// Package records implements the admin view over stored bookings: filtering,
// sorting, summarising, CSV export and the daily/weekly/monthly reports.
package records

import (
	"strings"
	"time"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

// DateWindow restricts records by visit date relative to now.
type DateWindow string

const (
	WindowAll   DateWindow = "all"
	WindowToday DateWindow = "today"
	WindowWeek  DateWindow = "week"
	WindowMonth DateWindow = "month"
)

// Valid reports whether w is a known window. The empty window means all.
func (w DateWindow) Valid() bool {
	switch w {
	case "", WindowAll, WindowToday, WindowWeek, WindowMonth:
		return true
	}
	return false
}

// Criteria are ANDed filters. Zero values disable a filter.
type Criteria struct {
	Search  string
	Window  DateWindow
	Country pricing.Category
	Payment booking.PaymentStatus
	CheckIn booking.CheckInStatus
}

// Engine evaluates criteria in the park's time zone.
type Engine struct {
	Location *time.Location
	Now      func() time.Time
}

// NewEngine constructs an Engine for loc.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{Location: loc, Now: time.Now}
}

func (e *Engine) now() time.Time {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return now().In(e.Location)
}

// Today returns the current instant in the engine's time zone.
func (e *Engine) Today() time.Time { return e.now() }

// ParseDate parses a yyyy-MM-dd reference date in the engine's time zone.
// An empty string means today.
func (e *Engine) ParseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return e.now(), nil
	}
	return time.ParseInLocation(booking.DateLayout, strings.TrimSpace(s), e.Location)
}

// Query filters then sorts records. The input slice is not modified.
func (e *Engine) Query(records []booking.Booking, c Criteria, s Sort) []booking.Booking {
	out := e.Filter(records, c)
	SortRecords(out, s)
	return out
}

// Filter returns the records matching every criterion, preserving order.
func (e *Engine) Filter(records []booking.Booking, c Criteria) []booking.Booking {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	var span Span
	useWindow := c.Window != "" && c.Window != WindowAll
	if useWindow {
		span = e.WindowSpan(c.Window, e.now())
	}

	out := make([]booking.Booking, 0, len(records))
	for _, b := range records {
		if search != "" && !matchesSearch(b, search) {
			continue
		}
		if useWindow {
			day, ok := b.VisitDate(e.Location)
			if !ok || !span.Contains(day) {
				continue
			}
		}
		if c.Country != "" && !hasCountry(b, c.Country) {
			continue
		}
		if c.Payment != "" && b.PaymentStatus != c.Payment {
			continue
		}
		if c.CheckIn != "" && b.CheckInStatus != c.CheckIn {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesSearch(b booking.Booking, needle string) bool {
	for _, field := range []string{b.ID, b.FullName, b.Email, b.Phone} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func hasCountry(b booking.Booking, c pricing.Category) bool {
	for _, v := range b.Visitors {
		if v.Country == c {
			return true
		}
	}
	return false
}

// Span is a half-open range of calendar days [From, To).
type Span struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the span.
func (s Span) Contains(t time.Time) bool {
	return !t.Before(s.From) && t.Before(s.To)
}

// LastDay returns the final calendar day covered by the span.
func (s Span) LastDay() time.Time { return s.To.AddDate(0, 0, -1) }

// WindowSpan returns the calendar days covered by w around ref, evaluated in
// the engine's time zone. WindowAll yields the zero Span.
func (e *Engine) WindowSpan(w DateWindow, ref time.Time) Span {
	day := startOfDay(ref.In(e.Location))
	switch w {
	case WindowToday:
		return Span{From: day, To: day.AddDate(0, 0, 1)}
	case WindowWeek:
		start := startOfWeek(day)
		return Span{From: start, To: start.AddDate(0, 0, 7)}
	case WindowMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return Span{From: start, To: start.AddDate(0, 1, 0)}
	default:
		return Span{}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday on or before day.
func startOfWeek(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
