package repo

import (
	"context"
	"slices"
	"sync"

	"github.com/noah-isme/parkconnect-api/internal/audit"
	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/events"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

var (
	_ booking.Store = (*Memory)(nil)
	_ pricing.Store = (*Memory)(nil)
	_ events.Store  = (*Memory)(nil)
	_ audit.Store   = (*Memory)(nil)
	_ booking.Store = (*Postgres)(nil)
	_ pricing.Store = (*Postgres)(nil)
	_ events.Store  = (*Postgres)(nil)
	_ audit.Store   = (*Postgres)(nil)
)

// Memory is an in-process record store. It backs local development and
// tests, and keeps records in insertion order.
type Memory struct {
	mu       sync.RWMutex
	order    []string
	bookings map[string]booking.Booking
	tiers    pricing.Tiers
	events   []events.Event
	audit    []audit.Entry
}

// NewMemory returns a store pre-loaded with seed.
func NewMemory(seed Seed) *Memory {
	m := &Memory{bookings: map[string]booking.Booking{}, tiers: seed.Pricing.WithDefaults()}
	for _, b := range seed.Bookings {
		m.order = append(m.order, b.ID)
		m.bookings[b.ID] = clone(b)
	}
	return m
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// FetchAll returns a copy of every booking.
func (m *Memory) FetchAll(ctx context.Context) ([]booking.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.Booking, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, clone(m.bookings[id]))
	}
	return out, nil
}

// FetchByID returns booking.ErrNotFound when id is unknown.
func (m *Memory) FetchByID(_ context.Context, id string) (booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return booking.Booking{}, booking.ErrNotFound
	}
	return clone(b), nil
}

// Insert stores a new booking.
func (m *Memory) Insert(_ context.Context, b booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[b.ID]; exists {
		return booking.ErrDuplicateID
	}
	m.order = append(m.order, b.ID)
	m.bookings[b.ID] = clone(b)
	return nil
}

// Update replaces an existing booking.
func (m *Memory) Update(_ context.Context, b booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bookings[b.ID]; !exists {
		return booking.ErrNotFound
	}
	m.bookings[b.ID] = clone(b)
	return nil
}

// FetchPricing returns the stored tier table.
func (m *Memory) FetchPricing(context.Context) (pricing.Tiers, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tiers, nil
}

// UpdatePricing replaces the tier table.
func (m *Memory) UpdatePricing(_ context.Context, t pricing.Tiers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tiers = t
	return nil
}

// InsertEvent appends to the in-memory event log.
func (m *Memory) InsertEvent(_ context.Context, ev events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns the recorded events.
func (m *Memory) Events() []events.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.events)
}

// InsertAudit appends an audit entry.
func (m *Memory) InsertAudit(_ context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, e)
	return nil
}

// ListAudit returns audit entries newest first.
func (m *Memory) ListAudit(_ context.Context, limit, offset int) ([]audit.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || offset < 0 || offset >= len(m.audit) {
		return []audit.Entry{}, nil
	}
	out := make([]audit.Entry, 0, min(limit, len(m.audit)))
	for i := len(m.audit) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.audit[i])
	}
	return out, nil
}

func clone(b booking.Booking) booking.Booking {
	b.Visitors = slices.Clone(b.Visitors)
	return b
}
