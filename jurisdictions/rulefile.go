/*
rulefile.go - YAML to rule table conversion

PURPOSE:
  Converts YAML rule definitions into engine.RuleSet entries. Agencies
  change fees, bans, and forfeiture windows every cycle; a rule file
  lets operators track those changes without code changes.

YAML SCHEMA:
  jurisdictions:
    - code: CO
      name: Colorado
      system: preference        # preference|hybrid|bonus_squared|bonus|random|dual
      rounding: floor           # floor|ceiling|round|exact
      forfeiture:
        inactive_years: 10
      bans:
        - category: moose
          ban_years: 3          # 0 = once in a lifetime
      fees:
        app_fee: 9
        tag_fee: 418
        tag_fee_upfront: false

KEY FEATURES:
  - Validates every entry; a bad field is reported with its
    jurisdiction and field name, never silently defaulted
  - Merge semantics: loaded entries override built-ins by code,
    untouched built-ins stay

SEE ALSO:
  - tables.go: Built-in rule tables
  - engine/errors.go: RuleTableError
*/
package jurisdictions

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warp/draw-cascade/engine"
)

// =============================================================================
// YAML SCHEMA TYPES
// =============================================================================

// RuleFile is the top-level YAML document.
type RuleFile struct {
	Jurisdictions []RuleYAML `yaml:"jurisdictions"`
}

// RuleYAML is the YAML representation of one jurisdiction.
type RuleYAML struct {
	Code       string          `yaml:"code"`
	Name       string          `yaml:"name"`
	System     string          `yaml:"system"`
	Rounding   string          `yaml:"rounding"`
	Forfeiture *ForfeitureYAML `yaml:"forfeiture,omitempty"`
	Bans       []BanYAML       `yaml:"bans,omitempty"`
	Fees       FeesYAML        `yaml:"fees"`
}

// ForfeitureYAML configures the consecutive-inactivity purge rule.
type ForfeitureYAML struct {
	InactiveYears int `yaml:"inactive_years"`
}

// BanYAML configures one post-award re-application ban.
type BanYAML struct {
	Category string `yaml:"category"`
	BanYears int    `yaml:"ban_years"`
}

// FeesYAML configures the fee schedule.
type FeesYAML struct {
	AppFee        float64 `yaml:"app_fee"`
	TagFee        float64 `yaml:"tag_fee"`
	TagFeeUpfront bool    `yaml:"tag_fee_upfront,omitempty"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadRuleFile reads a YAML rule file and merges its entries over the
// built-in tables. Entries sharing a code with a built-in replace it
// wholesale.
func LoadRuleFile(path string) (engine.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	loaded, err := ParseRules(data)
	if err != nil {
		return nil, err
	}

	rules := DefaultRules()
	for code, r := range loaded {
		rules[code] = r
	}
	return rules, nil
}

// ParseRules converts raw YAML into a validated RuleSet. It does not
// merge with the built-ins; callers wanting merge semantics use
// LoadRuleFile.
func ParseRules(data []byte) (engine.RuleSet, error) {
	var file RuleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	rules := engine.RuleSet{}
	for _, ry := range file.Jurisdictions {
		rule, err := fromYAML(ry)
		if err != nil {
			return nil, err
		}
		if _, dup := rules[rule.Code]; dup {
			return nil, &engine.RuleTableError{
				Jurisdiction: rule.Code, Field: "code",
				Detail: "defined more than once",
			}
		}
		rules[rule.Code] = rule
	}
	return rules, nil
}

// =============================================================================
// CONVERSION + VALIDATION
// =============================================================================

func fromYAML(ry RuleYAML) (engine.JurisdictionRule, error) {
	var zero engine.JurisdictionRule

	if ry.Code == "" {
		return zero, &engine.RuleTableError{
			Jurisdiction: "?", Field: "code", Detail: "missing",
		}
	}

	system, err := parseSystem(ry.Code, ry.System)
	if err != nil {
		return zero, err
	}
	rounding, err := parseRounding(ry.Code, ry.Rounding)
	if err != nil {
		return zero, err
	}

	rule := engine.JurisdictionRule{
		Code:     ry.Code,
		Name:     ry.Name,
		System:   system,
		Rounding: rounding,
		Fees: engine.FeeSchedule{
			AppFee:        engine.NewMoney(ry.Fees.AppFee),
			TagFee:        engine.NewMoney(ry.Fees.TagFee),
			TagFeeUpfront: ry.Fees.TagFeeUpfront,
		},
	}

	if ry.Fees.AppFee < 0 || ry.Fees.TagFee < 0 {
		return zero, &engine.RuleTableError{
			Jurisdiction: ry.Code, Field: "fees", Detail: "negative fee",
		}
	}

	if ry.Forfeiture != nil {
		if ry.Forfeiture.InactiveYears < 1 {
			return zero, &engine.RuleTableError{
				Jurisdiction: ry.Code, Field: "forfeiture.inactive_years",
				Detail: "must be at least 1 when a forfeiture rule is present",
			}
		}
		rule.Forfeiture = &engine.ForfeitureRule{InactiveYears: ry.Forfeiture.InactiveYears}
	}

	seen := map[string]bool{}
	for _, by := range ry.Bans {
		if by.Category == "" {
			return zero, &engine.RuleTableError{
				Jurisdiction: ry.Code, Field: "bans.category", Detail: "missing",
			}
		}
		if by.BanYears < 0 {
			return zero, &engine.RuleTableError{
				Jurisdiction: ry.Code, Field: "bans.ban_years",
				Detail: fmt.Sprintf("negative ban for %q", by.Category),
			}
		}
		if seen[by.Category] {
			return zero, &engine.RuleTableError{
				Jurisdiction: ry.Code, Field: "bans.category",
				Detail: fmt.Sprintf("%q banned more than once", by.Category),
			}
		}
		seen[by.Category] = true
		rule.Bans = append(rule.Bans, engine.BanRule{Category: by.Category, BanYears: by.BanYears})
	}

	return rule, nil
}

func parseSystem(code, s string) (engine.DrawSystem, error) {
	switch s {
	case "preference":
		return engine.SystemPreference, nil
	case "hybrid":
		return engine.SystemHybrid, nil
	case "bonus_squared":
		return engine.SystemBonusSquared, nil
	case "bonus":
		return engine.SystemBonus, nil
	case "random":
		return engine.SystemRandom, nil
	case "dual":
		return engine.SystemDual, nil
	default:
		return "", &engine.RuleTableError{
			Jurisdiction: code, Field: "system",
			Detail: fmt.Sprintf("unknown draw system %q", s),
		}
	}
}

func parseRounding(code, s string) (engine.RoundingPolicy, error) {
	switch s {
	case "floor":
		return engine.RoundFloor, nil
	case "ceiling":
		return engine.RoundCeiling, nil
	case "round":
		return engine.RoundNearest, nil
	case "exact", "":
		return engine.RoundExact, nil
	default:
		return "", &engine.RuleTableError{
			Jurisdiction: code, Field: "rounding",
			Detail: fmt.Sprintf("unknown rounding policy %q", s),
		}
	}
}
