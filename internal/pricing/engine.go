package pricing

import (
	"errors"
	"fmt"
)

// Money represents an amount in whole NPR.
type Money = int64

// Category is the pricing category a visitor is charged under.
type Category string

const (
	CategoryNepal Category = "Nepal"
	CategorySAARC Category = "SAARC"
	CategoryOther Category = "Other"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryNepal, CategorySAARC, CategoryOther}

// Valid reports whether c is a known pricing category.
func (c Category) Valid() bool {
	switch c {
	case CategoryNepal, CategorySAARC, CategoryOther:
		return true
	default:
		return false
	}
}

// Domestic reports whether the category counts as a domestic visitor.
func (c Category) Domestic() bool { return c == CategoryNepal }

// ErrInvalidTiers is returned when a tier table contains a non-positive price.
var ErrInvalidTiers = errors.New("pricing: every tier price must be positive")

// Tiers maps each category to its per-person price.
type Tiers struct {
	Nepal Money `json:"Nepal" yaml:"Nepal"`
	SAARC Money `json:"SAARC" yaml:"SAARC"`
	Other Money `json:"Other" yaml:"Other"`
}

// DefaultTiers is used when no tier table has ever been fetched.
var DefaultTiers = Tiers{Nepal: 100, SAARC: 200, Other: 1000}

// Price returns the per-person price for c. Unknown categories cost nothing.
func (t Tiers) Price(c Category) Money {
	switch c {
	case CategoryNepal:
		return t.Nepal
	case CategorySAARC:
		return t.SAARC
	case CategoryOther:
		return t.Other
	default:
		return 0
	}
}

// WithDefaults fills zero entries from DefaultTiers.
func (t Tiers) WithDefaults() Tiers {
	if t.Nepal == 0 {
		t.Nepal = DefaultTiers.Nepal
	}
	if t.SAARC == 0 {
		t.SAARC = DefaultTiers.SAARC
	}
	if t.Other == 0 {
		t.Other = DefaultTiers.Other
	}
	return t
}

// Validate ensures all three prices are strictly positive.
func (t Tiers) Validate() error {
	var bad []string
	for _, c := range Categories {
		if t.Price(c) <= 0 {
			bad = append(bad, string(c))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTiers, bad)
	}
	return nil
}

// ComputeTotal sums the tier price of every visitor category.
func ComputeTotal(categories []Category, tiers Tiers) Money {
	var total Money
	for _, c := range categories {
		total += tiers.Price(c)
	}
	return total
}
