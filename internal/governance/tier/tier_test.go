package tier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "equitygate/pkg/domain-errors"
)

// TestCanPromoteTo_Monotonic verifies the core progression invariant: for
// every pair (current, target), promotion is allowed iff target is exactly
// one rank above current.
func TestCanPromoteTo_Monotonic(t *testing.T) {
	for _, current := range All() {
		for _, target := range All() {
			want := Rank(target) == Rank(current)+1
			assert.Equal(t, want, CanPromoteTo(current, target),
				"CanPromoteTo(%s, %s)", current, target)
		}
	}
}

func TestCanPromoteTo_RejectsSelfAndDowngrade(t *testing.T) {
	assert.False(t, CanPromoteTo(Tier2Live, Tier2Live))
	assert.False(t, CanPromoteTo(Tier2Live, Tier1Upcoming))
	assert.False(t, CanPromoteTo(Tier0Pending, Tier2Live), "no skipping")
	assert.False(t, CanPromoteTo(Tier3Featured, Tier("tier_4_bogus")))
}

func TestNext(t *testing.T) {
	next, ok := Next(Tier0Pending)
	require.True(t, ok)
	assert.Equal(t, Tier1Upcoming, next)

	next, ok = Next(Tier2Live)
	require.True(t, ok)
	assert.Equal(t, Tier3Featured, next)

	_, ok = Next(Tier3Featured)
	assert.False(t, ok, "top tier has no successor")
}

func TestVisibilityAndInvestability(t *testing.T) {
	for _, tc := range []struct {
		tier Tier
		want bool
	}{
		{Tier0Pending, false},
		{Tier1Upcoming, false},
		{Tier2Live, true},
		{Tier3Featured, true},
	} {
		assert.Equal(t, tc.want, IsPubliclyVisible(tc.tier), "visible %s", tc.tier)
		assert.Equal(t, tc.want, IsInvestable(tc.tier), "investable %s", tc.tier)
	}
}

func TestParse(t *testing.T) {
	parsed, err := Parse("tier_1_upcoming")
	require.NoError(t, err)
	assert.Equal(t, Tier1Upcoming, parsed)

	_, err = Parse("tier_9_imaginary")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
