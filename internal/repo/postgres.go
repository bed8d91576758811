package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/parkconnect-api/internal/audit"
	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/events"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

const uniqueViolation = "23505"

const bookingColumns = `id, full_name, email, phone, date_of_visit, number_of_visitors, visitors,
	total_price, created_at, status, payment_status, check_in_status, entry_time, exit_time`

// Postgres is the production record store.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error { return p.Pool.Ping(ctx) }

// FetchAll returns every booking, oldest first.
func (p *Postgres) FetchAll(ctx context.Context) ([]booking.Booking, error) {
	rows, err := p.Pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("repo: list bookings: %w", err)
	}
	defer rows.Close()
	var out []booking.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FetchByID returns booking.ErrNotFound when id is unknown.
func (p *Postgres) FetchByID(ctx context.Context, id string) (booking.Booking, error) {
	row := p.Pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.Booking{}, booking.ErrNotFound
	}
	return b, err
}

// Insert stores a new booking. A clashing id yields booking.ErrDuplicateID.
func (p *Postgres) Insert(ctx context.Context, b booking.Booking) error {
	visitors, err := json.Marshal(b.Visitors)
	if err != nil {
		return err
	}
	_, err = p.Pool.Exec(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		b.ID, b.FullName, b.Email, b.Phone, b.DateOfVisit, b.NumberOfVisitors, visitors,
		b.TotalPrice, b.CreatedAt, nullable(string(b.Status)), nullable(string(b.PaymentStatus)),
		nullable(string(b.CheckInStatus)), nullable(b.EntryTime), nullable(b.ExitTime))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return booking.ErrDuplicateID
	}
	return err
}

// Update writes the mutable status fields of an existing booking.
func (p *Postgres) Update(ctx context.Context, b booking.Booking) error {
	tag, err := p.Pool.Exec(ctx, `UPDATE bookings
		SET status = $2, payment_status = $3, check_in_status = $4, entry_time = $5, exit_time = $6
		WHERE id = $1`,
		b.ID, nullable(string(b.Status)), nullable(string(b.PaymentStatus)),
		nullable(string(b.CheckInStatus)), nullable(b.EntryTime), nullable(b.ExitTime))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// FetchPricing reads the tier table. Missing rows are left zero and filled
// from the defaults by the caller.
func (p *Postgres) FetchPricing(ctx context.Context) (pricing.Tiers, error) {
	rows, err := p.Pool.Query(ctx, `SELECT category, price FROM pricing_tiers`)
	if err != nil {
		return pricing.Tiers{}, fmt.Errorf("repo: fetch pricing: %w", err)
	}
	defer rows.Close()
	var t pricing.Tiers
	for rows.Next() {
		var (
			category string
			price    int64
		)
		if err := rows.Scan(&category, &price); err != nil {
			return pricing.Tiers{}, err
		}
		switch pricing.Category(category) {
		case pricing.CategoryNepal:
			t.Nepal = price
		case pricing.CategorySAARC:
			t.SAARC = price
		case pricing.CategoryOther:
			t.Other = price
		}
	}
	return t, rows.Err()
}

// UpdatePricing upserts all three tiers in one transaction.
func (p *Postgres) UpdatePricing(ctx context.Context, t pricing.Tiers) error {
	return pgx.BeginFunc(ctx, p.Pool, func(tx pgx.Tx) error {
		for _, c := range pricing.Categories {
			if _, err := tx.Exec(ctx, `INSERT INTO pricing_tiers (category, price, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (category) DO UPDATE SET price = EXCLUDED.price, updated_at = now()`,
				string(c), t.Price(c)); err != nil {
				return fmt.Errorf("repo: update pricing %s: %w", c, err)
			}
		}
		return nil
	})
}

// InsertEvent persists a domain event.
func (p *Postgres) InsertEvent(ctx context.Context, ev events.Event) error {
	_, err := p.Pool.Exec(ctx, `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`, ev.ID, ev.Topic, ev.AggregateID, []byte(ev.Payload), ev.OccurredAt)
	return err
}

// InsertAudit persists a staff action.
func (p *Postgres) InsertAudit(ctx context.Context, e audit.Entry) error {
	_, err := p.Pool.Exec(ctx, `INSERT INTO audit_log
		(id, actor, role, action, resource, resource_id, method, path, status, ip, request_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.Actor, e.Role, e.Action, e.Resource, e.ResourceID, e.Method, e.Path, e.Status,
		e.IP, e.RequestID, []byte(e.Metadata), e.CreatedAt)
	return err
}

// ListAudit returns audit entries newest first.
func (p *Postgres) ListAudit(ctx context.Context, limit, offset int) ([]audit.Entry, error) {
	rows, err := p.Pool.Query(ctx, `SELECT id, actor, role, action, resource, resource_id, method, path,
		status, ip, request_id, metadata, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Role, &e.Action, &e.Resource, &e.ResourceID, &e.Method,
			&e.Path, &e.Status, &e.IP, &e.RequestID, &metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			e.Metadata = metadata
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ImportSeed inserts seed bookings and pricing, skipping ids that already exist.
func (p *Postgres) ImportSeed(ctx context.Context, seed Seed) (int, error) {
	if err := p.UpdatePricing(ctx, seed.Pricing); err != nil {
		return 0, err
	}
	inserted := 0
	for _, b := range seed.Bookings {
		err := p.Insert(ctx, b)
		if errors.Is(err, booking.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("repo: seed %s: %w", b.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

func scanBooking(row pgx.Row) (booking.Booking, error) {
	var (
		b                                     booking.Booking
		visitors                              []byte
		status, payment, checkIn, entry, exit *string
	)
	if err := row.Scan(&b.ID, &b.FullName, &b.Email, &b.Phone, &b.DateOfVisit, &b.NumberOfVisitors,
		&visitors, &b.TotalPrice, &b.CreatedAt, &status, &payment, &checkIn, &entry, &exit); err != nil {
		return booking.Booking{}, err
	}
	if len(visitors) > 0 {
		if err := json.Unmarshal(visitors, &b.Visitors); err != nil {
			return booking.Booking{}, fmt.Errorf("repo: decode visitors of %s: %w", b.ID, err)
		}
	}
	b.Status = booking.Status(deref(status))
	b.PaymentStatus = booking.PaymentStatus(deref(payment))
	b.CheckInStatus = booking.CheckInStatus(deref(checkIn))
	b.EntryTime = deref(entry)
	b.ExitTime = deref(exit)
	return b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
