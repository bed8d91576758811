package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/parkconnect-api/internal/cache"
	"github.com/noah-isme/parkconnect-api/internal/events"
	"github.com/noah-isme/parkconnect-api/internal/lock"
	"github.com/noah-isme/parkconnect-api/internal/resilience"
)

// ErrFallback wraps the cause when Current serves a fallback table.
var ErrFallback = errors.New("pricing: using last known tier table")

// Store persists the tier table.
type Store interface {
	FetchPricing(ctx context.Context) (Tiers, error)
	UpdatePricing(ctx context.Context, t Tiers) error
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (events.Event, error)
}

// Service owns fetching, caching, and updating the tier table. Callers get
// an explicit Tiers value to pass to ComputeTotal.
type Service struct {
	Store        Store
	Cache        *cache.JSON
	Breaker      *resilience.Breaker
	Locker       *lock.Locker
	LockTTL      time.Duration
	FetchTimeout time.Duration
	Events       Emitter
	Logger       zerolog.Logger
	// OnFallback is called each time a fallback table is served.
	OnFallback func()

	mu       sync.RWMutex
	lastGood *Tiers
}

// Current returns the tier table to price with. When the store cannot be
// reached the last successfully fetched table (or DefaultTiers) is returned
// together with an error wrapping ErrFallback; the tiers are usable either way.
func (s *Service) Current(ctx context.Context) (Tiers, error) {
	var cached Tiers
	if hit, err := s.Cache.Get(ctx, cache.KeyPricingTiers, &cached); err == nil && hit {
		s.remember(cached)
		return cached, nil
	} else if err != nil {
		s.Logger.Debug().Err(err).Msg("pricing cache read failed")
	}

	tiers, err := s.fetch(ctx)
	if err != nil {
		fallback := s.lastKnown()
		s.Logger.Warn().Err(err).Interface("tiers", fallback).Msg("pricing fetch failed, serving fallback")
		if s.OnFallback != nil {
			s.OnFallback()
		}
		return fallback, fmt.Errorf("%w: %w", ErrFallback, err)
	}
	s.remember(tiers)
	if err := s.Cache.Set(ctx, cache.KeyPricingTiers, tiers); err != nil {
		s.Logger.Debug().Err(err).Msg("pricing cache write failed")
	}
	return tiers, nil
}

// Update validates and persists a new tier table.
func (s *Service) Update(ctx context.Context, t Tiers) (Tiers, error) {
	if err := t.Validate(); err != nil {
		return Tiers{}, err
	}
	write := func(ctx context.Context) error {
		if err := s.Store.UpdatePricing(ctx, t); err != nil {
			return fmt.Errorf("pricing: store: %w", err)
		}
		if err := s.Cache.Set(ctx, cache.KeyPricingTiers, t); err != nil {
			_ = s.Cache.Delete(ctx, cache.KeyPricingTiers)
		}
		s.remember(t)
		return nil
	}
	var err error
	if s.Locker != nil {
		err = s.Locker.WithLock(ctx, "pricing", s.LockTTL, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return Tiers{}, err
	}
	if s.Events != nil {
		if _, err := s.Events.Emit(ctx, events.TopicPricingUpdated, "pricing", t); err != nil {
			s.Logger.Warn().Err(err).Msg("pricing event emit failed")
		}
	}
	return t, nil
}

func (s *Service) fetch(ctx context.Context) (Tiers, error) {
	if s.Store == nil {
		return Tiers{}, errors.New("pricing: store not configured")
	}
	if s.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}
	var out Tiers
	call := func(ctx context.Context) error {
		t, err := s.Store.FetchPricing(ctx)
		if err != nil {
			return err
		}
		out = t.WithDefaults()
		return nil
	}
	if s.Breaker == nil {
		return out, call(ctx)
	}
	return out, s.Breaker.Do(ctx, call)
}

func (s *Service) remember(t Tiers) {
	s.mu.Lock()
	s.lastGood = &t
	s.mu.Unlock()
}

func (s *Service) lastKnown() Tiers {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastGood == nil {
		return DefaultTiers
	}
	return *s.lastGood
}
