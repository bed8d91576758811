package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	tiers := Tiers{Nepal: 100, SAARC: 200, Other: 1000}

	cases := []struct {
		name  string
		in    []Category
		total Money
	}{
		{"empty", nil, 0},
		{"single domestic", []Category{CategoryNepal}, 100},
		{"mixed", []Category{CategoryNepal, CategoryNepal, CategorySAARC, CategoryOther}, 1400},
		{"unknown contributes zero", []Category{CategoryNepal, "Atlantis"}, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.total, ComputeTotal(tc.in, tiers))
		})
	}
}

func TestComputeTotalOrderIndependent(t *testing.T) {
	tiers := Tiers{Nepal: 120, SAARC: 230, Other: 990}
	a := []Category{CategoryOther, CategoryNepal, CategorySAARC, CategoryNepal}
	b := []Category{CategoryNepal, CategoryNepal, CategorySAARC, CategoryOther}
	require.Equal(t, ComputeTotal(a, tiers), ComputeTotal(b, tiers))
}

func TestTiersDefaultsAndValidate(t *testing.T) {
	require.Equal(t, Tiers{Nepal: 100, SAARC: 200, Other: 1000}, DefaultTiers)
	require.Equal(t, Tiers{Nepal: 50, SAARC: 200, Other: 1000}, Tiers{Nepal: 50}.WithDefaults())

	require.NoError(t, DefaultTiers.Validate())
	require.ErrorIs(t, Tiers{Nepal: 100, SAARC: 0, Other: 5}.Validate(), ErrInvalidTiers)
	require.ErrorIs(t, Tiers{Nepal: -1, SAARC: 1, Other: 5}.Validate(), ErrInvalidTiers)
}

func TestCategory(t *testing.T) {
	require.True(t, CategorySAARC.Valid())
	require.False(t, Category("nepal").Valid())
	require.True(t, CategoryNepal.Domestic())
	require.False(t, CategoryOther.Domestic())
}
