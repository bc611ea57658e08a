/*
purge.go - Inactivity-Purge Scanner

PURPOSE:
  Simulates each jurisdiction's forfeiture timer across the plan
  horizon. Jurisdictions delete accumulated points after N consecutive
  years without qualifying activity (apply, buy a point, convert);
  hunting on an already-drawn tag does not reset the clock.

SCAN SEMANTICS:
  Walk plan years in order, resetting a consecutive-inactivity counter
  on any active year. The moment the counter hits the rule's threshold,
  emit a critical alert naming the exact purge year and the dollar value
  at risk, and stop scanning that position - forfeiture is terminal, the
  later years no longer matter. Coming within one year of the threshold
  without crossing it earns a warning instead.

  Positions with no matching forfeiture rule, or no points to lose, are
  skipped entirely. Missing rules are config absence, not errors.
*/
package engine

import "fmt"

// PointPosition is the minimal view the purge scanner needs: standing
// plus what that standing cost to build.
type PointPosition struct {
	Position   Position
	Points     int
	AnnualCost Money
}

// PointPositions assembles the scanner's view of the snapshot: one
// entry per held balance, costed at the position's first planned year
// of spend. Deterministic order.
func (s Snapshot) PointPositions() []PointPosition {
	out := []PointPosition{}
	for _, pos := range s.Points.SortedPositions() {
		out = append(out, PointPosition{
			Position:   pos,
			Points:     s.Points[pos],
			AnnualCost: s.Plan.AnnualCostOf(pos),
		})
	}
	return out
}

// ScanForPurgeRisk walks the forfeiture timers for every position over
// the plan window and returns the resulting alerts. Always returns a
// non-nil slice.
func ScanForPurgeRisk(positions []PointPosition, rules RuleSet, plan Plan) []Alert {
	alerts := []Alert{}

	first, last, ok := plan.YearRange()
	if !ok {
		return alerts
	}

	for _, pp := range positions {
		if pp.Points <= 0 {
			continue
		}
		rule, found := rules.Rule(pp.Position.Jurisdiction)
		if !found || rule.Forfeiture == nil {
			continue
		}
		threshold := rule.Forfeiture.InactiveYears
		if threshold <= 0 {
			continue
		}

		active := activeYears(plan, pp.Position)

		consecutive := 0
		maxConsecutive := 0
		purged := false
		for year := first; year <= last; year++ {
			if active[year] {
				consecutive = 0
				continue
			}
			consecutive++
			if consecutive > maxConsecutive {
				maxConsecutive = consecutive
			}
			if consecutive >= threshold {
				valueAtRisk := pp.AnnualCost.MulInt(pp.Points)
				alerts = append(alerts, Alert{
					Severity: SeverityCritical,
					Position: pp.Position,
					Message: fmt.Sprintf(
						"%s: %d points will be purged in %d after %d consecutive inactive years (%s at risk)",
						pp.Position, pp.Points, year, threshold, valueAtRisk),
					Recommendation: "schedule an application or point purchase before the purge year",
				})
				purged = true
				break
			}
		}

		if !purged && threshold > 1 && maxConsecutive == threshold-1 {
			alerts = append(alerts, Alert{
				Severity: SeverityWarning,
				Position: pp.Position,
				Message: fmt.Sprintf(
					"%s: one inactive year from forfeiture (%d-year rule, %d points held)",
					pp.Position, threshold, pp.Points),
				Recommendation: "add a qualifying activity to reset the inactivity clock",
			})
		}
	}

	return alerts
}

// activeYears marks plan years containing any qualifying activity for
// the position.
func activeYears(plan Plan, pos Position) map[int]bool {
	out := make(map[int]bool)
	for _, py := range plan {
		for _, a := range py.Actions {
			if a.Position() == pos && a.Type.QualifiesForPointActivity() {
				out[py.Year] = true
				break
			}
		}
	}
	return out
}
