package repo

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/parkconnect-api/internal/booking"
	"github.com/noah-isme/parkconnect-api/internal/pricing"
)

//go:embed seed.yaml
var demoSeed []byte

// Seed is the fixture loaded into an empty store.
type Seed struct {
	Pricing  pricing.Tiers     `yaml:"pricing"`
	Bookings []booking.Booking `yaml:"bookings"`
}

// DemoSeed returns the embedded demo fixture.
func DemoSeed() (Seed, error) { return ParseSeed(demoSeed) }

// ParseSeed decodes a YAML fixture.
func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("repo: parse seed: %w", err)
	}
	s.Pricing = s.Pricing.WithDefaults()
	for i, b := range s.Bookings {
		if b.ID == "" {
			return Seed{}, fmt.Errorf("repo: seed booking %d has no id", i)
		}
		if b.NumberOfVisitors == 0 {
			s.Bookings[i].NumberOfVisitors = len(b.Visitors)
		}
	}
	return s, nil
}
