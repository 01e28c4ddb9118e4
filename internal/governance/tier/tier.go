// Package tier defines the ordered governance tiers a company moves through.
//
// Progression is strictly monotonic: one rank forward per promotion, no
// skips, no downgrades. The promotion operation itself lives in the company
// service; this package only answers ordering questions.
package tier

import (
	dErrors "equitygate/pkg/domain-errors"
)

// Tier is a totally ordered governance stage.
type Tier string

const (
	Tier0Pending  Tier = "tier_0_pending"
	Tier1Upcoming Tier = "tier_1_upcoming"
	Tier2Live     Tier = "tier_2_live"
	Tier3Featured Tier = "tier_3_featured"
)

// tierRanks defines the total order. Higher rank is further along.
var tierRanks = map[Tier]int{
	Tier0Pending:  0,
	Tier1Upcoming: 1,
	Tier2Live:     2,
	Tier3Featured: 3,
}

// All returns the tiers in rank order.
func All() []Tier {
	return []Tier{Tier0Pending, Tier1Upcoming, Tier2Live, Tier3Featured}
}

// Parse validates a tier string at trust boundaries.
func Parse(s string) (Tier, error) {
	t := Tier(s)
	if _, ok := tierRanks[t]; !ok {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown tier: %s", s)
	}
	return t, nil
}

// Rank returns the tier's position in the order. Unknown tiers rank -1 so
// they can never satisfy a promotion check.
func Rank(t Tier) int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return -1
}

// Next returns the tier one rank above t, or false at the top.
func Next(t Tier) (Tier, bool) {
	r := Rank(t)
	if r < 0 {
		return "", false
	}
	for candidate, rank := range tierRanks {
		if rank == r+1 {
			return candidate, true
		}
	}
	return "", false
}

// CanPromoteTo reports whether target is exactly one rank above current.
// Every other combination, including target == current and any downgrade,
// is false.
func CanPromoteTo(current, target Tier) bool {
	cr, tr := Rank(current), Rank(target)
	if cr < 0 || tr < 0 {
		return false
	}
	return tr == cr+1
}

// IsPubliclyVisible reports whether companies at this tier appear on the
// public platform.
func IsPubliclyVisible(t Tier) bool {
	return Rank(t) >= Rank(Tier2Live)
}

// IsInvestable reports whether companies at this tier can take orders at
// all. Lifecycle state and buying flags apply on top of this.
func IsInvestable(t Tier) bool {
	return Rank(t) >= Rank(Tier2Live)
}

func (t Tier) String() string { return string(t) }
