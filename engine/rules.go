/*
rules.go - Immutable per-jurisdiction rule tables

PURPOSE:
  Encodes the materially different jurisdictional rule systems the engine
  must honor: draw mechanics, point-forfeiture timers, once-only
  eligibility bans, group-average rounding policy, and fee structure.

RULE TABLES ARE CONFIG, NOT STATE:
  A RuleSet is version-controlled configuration injected into every
  dispatch. The engine never reads rules from ambient global state; this
  keeps dispatch a pure function and lets tests supply synthetic tables.

MISSING RULES ARE NOT ERRORS:
  A position whose jurisdiction has no forfeiture rule is simply skipped
  by the purge scanner. A category with no ban rule means re-entry is
  unrestricted. Absence degrades to no-op, never to failure.

SEE ALSO:
  - jurisdictions package: built-in tables and YAML rule files
  - purge.go, reset.go, group.go: the rule consumers
*/
package engine

import "sort"

// =============================================================================
// DRAW SYSTEMS
// =============================================================================

// DrawSystem is a jurisdiction's draw-probability mechanism.
type DrawSystem string

const (
	// SystemPreference awards deterministically by point rank; a small
	// random share goes to applicants below the point threshold.
	SystemPreference DrawSystem = "preference"

	// SystemHybrid splits the quota between a preference pool and a
	// random pool.
	SystemHybrid DrawSystem = "hybrid"

	// SystemBonusSquared is a weighted lottery with (points+1)^2 chances.
	SystemBonusSquared DrawSystem = "bonus_squared"

	// SystemBonus is a weighted lottery with points+1 chances.
	SystemBonus DrawSystem = "bonus"

	// SystemRandom is a uniform lottery; points never accrue.
	SystemRandom DrawSystem = "random"

	// SystemDual runs split general/special tracks; the preference track
	// dominates planning, the bonus track is a secondary uncomputed one.
	SystemDual DrawSystem = "dual"
)

// DrawCategory is the coarse classification downstream logic keys on.
// Collapsing six systems into three buckets prevents mislabeling: a pure
// random play has no trajectory that can "stall".
type DrawCategory string

const (
	CategoryPreference DrawCategory = "preference"
	CategoryLottery    DrawCategory = "lottery"
	CategoryBonus      DrawCategory = "bonus"
)

// =============================================================================
// ROUNDING POLICY - Group-draw point averaging
// =============================================================================

// RoundingPolicy is how a jurisdiction rounds a party's averaged points.
type RoundingPolicy string

const (
	RoundFloor   RoundingPolicy = "floor"
	RoundCeiling RoundingPolicy = "ceiling"
	RoundNearest RoundingPolicy = "round"
	RoundExact   RoundingPolicy = "exact" // fractional average carried as-is
)

// =============================================================================
// PER-JURISDICTION RULES
// =============================================================================

// ForfeitureRule deletes accumulated points after a number of
// consecutive inactive years.
type ForfeitureRule struct {
	InactiveYears int
}

// BanRule bars re-entry to a category after a successful draw.
// BanYears == 0 means the ban is permanent (a once-in-a-lifetime award).
type BanRule struct {
	Category string
	BanYears int
}

// Permanent reports whether the ban never lifts.
func (b BanRule) Permanent() bool { return b.BanYears == 0 }

// FeeSchedule is what a jurisdiction charges per application cycle.
// TagFeeUpfront marks jurisdictions that collect the full tag fee at
// application time and refund it when the draw is unsuccessful; that fee
// floats as recoverable capital until the result is known.
type FeeSchedule struct {
	AppFee        Money
	TagFee        Money
	TagFeeUpfront bool
}

// JurisdictionRule is the complete static ruleset for one jurisdiction.
type JurisdictionRule struct {
	Code       string
	Name       string
	System     DrawSystem
	Rounding   RoundingPolicy
	Forfeiture *ForfeitureRule // nil when points never expire
	Bans       []BanRule
	Fees       FeeSchedule
}

// BanFor returns the ban rule for a category, or nil when re-entry is
// unrestricted.
func (j JurisdictionRule) BanFor(category string) *BanRule {
	for i := range j.Bans {
		if j.Bans[i].Category == category {
			return &j.Bans[i]
		}
	}
	return nil
}

// =============================================================================
// RULE SET
// =============================================================================

// RuleSet maps jurisdiction code to its rules. Treat as immutable.
type RuleSet map[string]JurisdictionRule

// Rule looks up a jurisdiction. The second return is false when the
// jurisdiction is unknown; callers skip, they do not fail.
func (rs RuleSet) Rule(code string) (JurisdictionRule, bool) {
	r, ok := rs[code]
	return r, ok
}

// SystemFor returns the draw system for a jurisdiction, defaulting to
// random for unknown codes (the conservative choice: no accrual claims).
func (rs RuleSet) SystemFor(code string) DrawSystem {
	if r, ok := rs[code]; ok {
		return r.System
	}
	return SystemRandom
}

// Codes returns jurisdiction codes in sorted order for deterministic
// iteration.
func (rs RuleSet) Codes() []string {
	out := make([]string, 0, len(rs))
	for code := range rs {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
