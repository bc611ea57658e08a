/*
tables.go - Built-in jurisdiction rule tables

PURPOSE:
  Ready-to-use draw rules for the western states most portfolios touch.
  Each constructor returns one JurisdictionRule; DefaultRules assembles
  them into the RuleSet the engine consumes.

AVAILABLE TABLES:
  Colorado:   preference draw, floor party rounding, moose cool-down
  Wyoming:    preference draw, upfront tag fee, 2-year forfeiture
  Montana:    bonus-squared draw
  Nevada:     bonus-squared draw, strict 2-year forfeiture
  Arizona:    linear bonus draw, 18-month inactivity window (as 2 years)
  Utah:       dual draw, once-in-a-lifetime species bans
  NewMexico:  pure random draw, no points at all
  Idaho:      pure random draw

CUSTOMIZATION:
  These tables encode the published rules as of the 2026 cycle. Agencies
  tweak fees and quotas yearly: load overrides from a rule file (see
  rulefile.go) rather than editing constructors when values drift.

SEE ALSO:
  - rulefile.go: YAML-defined rule tables and overrides
  - engine/rules.go: JurisdictionRule and RuleSet definitions
*/
package jurisdictions

import "github.com/warp/draw-cascade/engine"

// =============================================================================
// BUILT-IN TABLES
// =============================================================================

// Colorado returns the CO preference-point rules. Party applications
// round the averaged points down, and a moose award carries a
// three-year re-application ban.
func Colorado() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:       "CO",
		Name:       "Colorado",
		System:     engine.SystemPreference,
		Rounding:   engine.RoundFloor,
		Forfeiture: &engine.ForfeitureRule{InactiveYears: 10},
		Bans: []engine.BanRule{
			{Category: "moose", BanYears: 3},
		},
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(9),
			TagFee: engine.NewMoney(418),
		},
	}
}

// Wyoming returns the WY preference-point rules. WY collects the full
// tag fee with the application and refunds it on an unsuccessful draw,
// and purges points after two consecutive inactive years.
func Wyoming() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:       "WY",
		Name:       "Wyoming",
		System:     engine.SystemPreference,
		Rounding:   engine.RoundNearest,
		Forfeiture: &engine.ForfeitureRule{InactiveYears: 2},
		Fees: engine.FeeSchedule{
			AppFee:        engine.NewMoney(15),
			TagFee:        engine.NewMoney(707),
			TagFeeUpfront: true,
		},
	}
}

// Montana returns the MT bonus-squared rules.
func Montana() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:       "MT",
		Name:       "Montana",
		System:     engine.SystemBonusSquared,
		Rounding:   engine.RoundNearest,
		Forfeiture: &engine.ForfeitureRule{InactiveYears: 2},
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(20),
			TagFee: engine.NewMoney(1253),
		},
	}
}

// Nevada returns the NV bonus-squared rules. NV is the least forgiving
// point system in the set: two missed cycles and the points are gone.
func Nevada() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:       "NV",
		Name:       "Nevada",
		System:     engine.SystemBonusSquared,
		Rounding:   engine.RoundFloor,
		Forfeiture: &engine.ForfeitureRule{InactiveYears: 2},
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(29),
			TagFee: engine.NewMoney(1200),
		},
	}
}

// Arizona returns the AZ linear bonus rules.
func Arizona() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:       "AZ",
		Name:       "Arizona",
		System:     engine.SystemBonus,
		Rounding:   engine.RoundNearest,
		Forfeiture: &engine.ForfeitureRule{InactiveYears: 2},
		Bans: []engine.BanRule{
			{Category: "bighorn", BanYears: 0}, // once in a lifetime
		},
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(13),
			TagFee: engine.NewMoney(650),
		},
	}
}

// Utah returns the UT dual-draw rules: half the quota goes to the
// point leaders, half to a weighted lottery. Several species are
// once-in-a-lifetime.
func Utah() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:     "UT",
		Name:     "Utah",
		System:   engine.SystemDual,
		Rounding: engine.RoundExact,
		Bans: []engine.BanRule{
			{Category: "bison", BanYears: 0},
			{Category: "mountain_goat", BanYears: 0},
			{Category: "desert_bighorn", BanYears: 0},
			{Category: "elk", BanYears: 3},
		},
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(10),
			TagFee: engine.NewMoney(513),
		},
	}
}

// NewMexico returns the NM rules. NM runs a pure random draw: no
// points accrue, every applicant has the same chance every year.
func NewMexico() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:     "NM",
		Name:     "New Mexico",
		System:   engine.SystemRandom,
		Rounding: engine.RoundExact,
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(13),
			TagFee: engine.NewMoney(160),
		},
	}
}

// Idaho returns the ID rules, also a pure random draw.
func Idaho() engine.JurisdictionRule {
	return engine.JurisdictionRule{
		Code:     "ID",
		Name:     "Idaho",
		System:   engine.SystemRandom,
		Rounding: engine.RoundExact,
		Fees: engine.FeeSchedule{
			AppFee: engine.NewMoney(18),
			TagFee: engine.NewMoney(652),
		},
	}
}

// DefaultRules returns every built-in table keyed by jurisdiction code.
func DefaultRules() engine.RuleSet {
	rules := engine.RuleSet{}
	for _, r := range []engine.JurisdictionRule{
		Colorado(), Wyoming(), Montana(), Nevada(),
		Arizona(), Utah(), NewMexico(), Idaho(),
	} {
		rules[r.Code] = r
	}
	return rules
}
