/*
group.go - Group-Draw Averager

PURPOSE:
  Party applications enter the draw on the averaged standing of their
  members, rounded per jurisdiction policy. Rounding down can silently
  burn real standing - a [5,4,3,2] party in a floor jurisdiction applies
  with 3 points, not 3.5 - so any loss of half a point or more earns a
  warning naming the jurisdiction, the method, and the exact loss.

  Decimal arithmetic throughout: 14/4 must be exactly 3.5, and the loss
  exactly 0.5, on every platform.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundingLossWarningThreshold: a rounding loss at or above half a point
// is worth surfacing.
var RoundingLossWarningThreshold = decimal.NewFromFloat(0.5)

// GroupAverage is the pooled standing of a party application.
type GroupAverage struct {
	RawAverage      decimal.Decimal
	EffectivePoints decimal.Decimal
	Method          RoundingPolicy
	PointLoss       decimal.Decimal
	Warning         *Alert // nil when the rounding loss is tolerable
}

// AverageGroup pools member points under the jurisdiction's rounding
// policy. An empty member list yields a zero average and no warning.
func AverageGroup(jurisdiction string, memberPoints []int, rules RuleSet) GroupAverage {
	method := RoundExact
	if rule, ok := rules.Rule(jurisdiction); ok && rule.Rounding != "" {
		method = rule.Rounding
	}

	out := GroupAverage{Method: method}
	if len(memberPoints) == 0 {
		return out
	}

	sum := decimal.Zero
	for _, p := range memberPoints {
		sum = sum.Add(decimal.NewFromInt(int64(p)))
	}
	out.RawAverage = sum.Div(decimal.NewFromInt(int64(len(memberPoints))))
	out.EffectivePoints = applyRounding(out.RawAverage, method)
	out.PointLoss = out.RawAverage.Sub(out.EffectivePoints)

	if out.PointLoss.GreaterThanOrEqual(RoundingLossWarningThreshold) {
		out.Warning = &Alert{
			Severity: SeverityWarning,
			Position: Position{Jurisdiction: jurisdiction},
			Message: fmt.Sprintf(
				"%s party average %s rounds to %s under the %s policy, losing %s points",
				jurisdiction, out.RawAverage.String(), out.EffectivePoints.String(),
				method, out.PointLoss.String()),
			Recommendation: "consider splitting the party or rebalancing members",
		}
	}
	return out
}

func applyRounding(raw decimal.Decimal, method RoundingPolicy) decimal.Decimal {
	switch method {
	case RoundFloor:
		return raw.Floor()
	case RoundCeiling:
		return raw.Ceil()
	case RoundNearest:
		return raw.Round(0)
	default: // RoundExact: fractional average carried as-is
		return raw
	}
}

// =============================================================================
// MEMBER REMOVAL
// =============================================================================

// RemovalImpactTier grades how badly losing a member hurts the party.
type RemovalImpactTier string

const (
	RemovalSevere   RemovalImpactTier = "severe"   // effective drop >= 3
	RemovalModerate RemovalImpactTier = "moderate" // effective drop >= 1
	RemovalMinimal  RemovalImpactTier = "minimal"
)

// MemberRemovalImpact compares party standing before and after one
// member leaves.
type MemberRemovalImpact struct {
	Before     GroupAverage
	After      GroupAverage
	PointDelta decimal.Decimal // positive = the party lost standing
	Tier       RemovalImpactTier
}

// AverageAfterRemoval recomputes the party average with the member at
// removeIndex gone. ok is false when the index is out of range or the
// member is the party's only one.
func AverageAfterRemoval(jurisdiction string, memberPoints []int, removeIndex int, rules RuleSet) (MemberRemovalImpact, bool) {
	if removeIndex < 0 || removeIndex >= len(memberPoints) || len(memberPoints) < 2 {
		return MemberRemovalImpact{}, false
	}

	remaining := make([]int, 0, len(memberPoints)-1)
	remaining = append(remaining, memberPoints[:removeIndex]...)
	remaining = append(remaining, memberPoints[removeIndex+1:]...)

	impact := MemberRemovalImpact{
		Before: AverageGroup(jurisdiction, memberPoints, rules),
		After:  AverageGroup(jurisdiction, remaining, rules),
	}
	impact.PointDelta = impact.Before.EffectivePoints.Sub(impact.After.EffectivePoints)
	impact.Tier = removalTier(impact.PointDelta)
	return impact, true
}

func removalTier(drop decimal.Decimal) RemovalImpactTier {
	switch {
	case drop.GreaterThanOrEqual(decimal.NewFromInt(3)):
		return RemovalSevere
	case drop.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return RemovalModerate
	default:
		return RemovalMinimal
	}
}
