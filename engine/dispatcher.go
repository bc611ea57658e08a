/*
dispatcher.go - Cascade Dispatcher

PURPOSE:
  The single entry point of the engine. One discrete life event plus the
  current snapshot in; one fully-populated CascadeResult out. The
  dispatcher composes the leaf models (odds, allocator, liquidity,
  purge, reset, group) per event kind and never applies anything itself:
  the calling store owns the writes, under a single-writer discipline.

PURITY:
  Dispatch never mutates its inputs, performs no I/O, reads no clock,
  and holds no state between calls. Identical inputs produce identical
  results.

EXHAUSTIVENESS:
  The event union is sealed (see event.go) and the type switch below
  covers every kind. A kind added without a case falls through to the
  default arm, which flags the gap as a critical alert instead of
  silently dropping the event.
*/
package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIG - Named, overridable planning thresholds
// =============================================================================

// Config carries the planner-level thresholds the dispatcher applies.
// The ratios are historical heuristics with no stated derivation; they
// are fields rather than inlined literals so callers can override them.
type Config struct {
	// AnnualActivityBudget is the yearly spend ceiling for activity.
	// Zero disables the success-disaster check.
	AnnualActivityBudget Money

	// FloatLimit is the concurrent-float tolerance. Zero means any
	// concurrent float is a deficit.
	FloatLimit Money

	// AvailableDays caps field days per year. Zero disables the check.
	AvailableDays int

	// SuccessDisasterRatio: an award year costing more than this share
	// of the budget is a "success disaster".
	SuccessDisasterRatio decimal.Decimal

	// FloatCriticalRatio grades liquidity deficits; see LiquidityScheduler.
	FloatCriticalRatio decimal.Decimal

	// PointCreepThreshold: accumulated points at or above this trigger
	// a trajectory-check suggestion.
	PointCreepThreshold int
}

// DefaultConfig returns the historical threshold values.
func DefaultConfig() Config {
	return Config{
		AnnualActivityBudget: ZeroMoney(),
		FloatLimit:           ZeroMoney(),
		SuccessDisasterRatio: decimal.NewFromFloat(1.20),
		FloatCriticalRatio:   DefaultFloatCriticalRatio,
		PointCreepThreshold:  5,
	}
}

// partySpreadWarningPoints: a high-low member spread at or above this
// many points drags the party average enough to warn about.
const partySpreadWarningPoints = 3

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher computes cascades against an injected rule table.
type Dispatcher struct {
	Rules  RuleSet
	Config Config
}

func NewDispatcher(rules RuleSet, cfg Config) Dispatcher {
	return Dispatcher{Rules: rules, Config: cfg}
}

// Dispatch derives every downstream consequence of one event. The
// returned result is complete even when empty: all slices are non-nil.
func (d Dispatcher) Dispatch(ev Event, snap Snapshot) CascadeResult {
	result := NewCascadeResult()

	switch e := ev.(type) {
	case DrawOutcomeEvent:
		if e.Awarded {
			d.drawAwarded(e, snap, &result)
		} else {
			d.drawNotAwarded(e, snap, &result)
		}
	case BudgetChangeEvent:
		d.budgetChange(e, snap, &result)
	case ProfileChangeEvent:
		d.profileChange(e, snap, &result)
	case DeadlineMissedEvent:
		d.deadlineMissed(e, snap, &result)
	case PartyChangeEvent:
		d.partyChange(e, &result)
	default:
		// Unreachable while the union stays sealed; a new kind without a
		// case lands here instead of vanishing.
		result.addAlertf(SeverityCritical, Position{},
			"unhandled event kind %q; no cascade computed", ev.Kind())
	}

	return result
}

// =============================================================================
// DRAW OUTCOME - AWARDED
// =============================================================================

func (d Dispatcher) drawAwarded(e DrawOutcomeEvent, snap Snapshot, result *CascadeResult) {
	prior := snap.Points[e.Position]

	// 1. Points are consumed by the award.
	result.PointMutations = append(result.PointMutations, PointMutation{
		Position: e.Position,
		Previous: prior,
		New:      0,
		Reason:   "points consumed by successful draw",
	})

	// 2. Eligibility consequences.
	res := ResolvePostAward(e.Position, e.Year, prior, snap.Plan, d.Rules)

	// 3. Later plan years referencing this position are now invalid.
	for _, year := range res.AffectedYears {
		if res.IsPermanentBan {
			result.PlanInvalidations = append(result.PlanInvalidations, PlanInvalidation{
				Position: e.Position,
				Year:     year,
				Action:   InvalidationRemove,
				Reason:   "category permanently closed after once-in-a-lifetime award",
			})
		} else {
			result.PlanInvalidations = append(result.PlanInvalidations, PlanInvalidation{
				Position: e.Position,
				Year:     year,
				Action:   InvalidationRecalculate,
				Reason: fmt.Sprintf("re-plan around %d-year eligibility ban; next eligible %d",
					res.BanYears, *res.NextEligibleYear),
			})
		}
	}
	if res.IsPermanentBan {
		result.addAlertf(SeverityInfo, e.Position,
			"%s is once-in-a-lifetime; this category is now closed permanently", e.Position)
	}

	// 4. The floated tag fee is spent now, not coming back.
	if rule, ok := d.Rules.Rule(e.Position.Jurisdiction); ok && rule.Fees.TagFee.IsPositive() {
		result.CapitalReclassifications = append(result.CapitalReclassifications, CapitalReclassification{
			Position: e.Position,
			Amount:   rule.Fees.TagFee,
			From:     CapitalRecoverable,
			To:       CapitalCommitted,
			Reason:   "tag fee committed by successful draw",
		})
	}

	// 5. Schedule checks, in order: overlap, cost, days.
	d.checkYearOverlap(e, snap, result)
	d.checkSuccessDisaster(e, snap, result)
	d.checkDayBudget(e, snap, result)
}

func (d Dispatcher) checkYearOverlap(e DrawOutcomeEvent, snap Snapshot, result *CascadeResult) {
	overlaps := 0
	for _, a := range snap.Plan.ActionsIn(e.Year) {
		if a.Position() != e.Position {
			overlaps++
			result.ScheduleConflicts = append(result.ScheduleConflicts, ScheduleConflict{
				Year:     e.Year,
				Position: a.Position(),
				Detail:   fmt.Sprintf("%s %s scheduled the same year as the %s award", a.Position(), a.Type, e.Position),
			})
		}
	}
	if overlaps > 0 {
		result.addAlertf(SeverityWarning, e.Position,
			"award year %d already has %d other scheduled activities", e.Year, overlaps)
	}
}

func (d Dispatcher) checkSuccessDisaster(e DrawOutcomeEvent, snap Snapshot, result *CascadeResult) {
	if !d.Config.AnnualActivityBudget.IsPositive() {
		return
	}
	yearCost := ZeroMoney()
	for _, a := range snap.Plan.ActionsIn(e.Year) {
		yearCost = yearCost.Add(a.Cost)
	}
	if rule, ok := d.Rules.Rule(e.Position.Jurisdiction); ok {
		yearCost = yearCost.Add(rule.Fees.TagFee)
	}

	ceiling := d.Config.AnnualActivityBudget.Mul(d.Config.SuccessDisasterRatio)
	if yearCost.GreaterThan(ceiling) {
		result.addAlert(SeverityCritical, e.Position,
			fmt.Sprintf("success disaster: year %d now costs %s against a %s budget",
				e.Year, yearCost, d.Config.AnnualActivityBudget),
			"defer or cancel discretionary activity this year")
	}
}

func (d Dispatcher) checkDayBudget(e DrawOutcomeEvent, snap Snapshot, result *CascadeResult) {
	if d.Config.AvailableDays <= 0 {
		return
	}
	days := 0
	for _, a := range snap.Plan.ActionsIn(e.Year) {
		days += a.Days
	}
	if days > d.Config.AvailableDays {
		result.ScheduleConflicts = append(result.ScheduleConflicts, ScheduleConflict{
			Year:     e.Year,
			Position: e.Position,
			Detail:   fmt.Sprintf("year %d needs %d field days, %d available", e.Year, days, d.Config.AvailableDays),
		})
		result.addAlertf(SeverityWarning, e.Position,
			"year %d requires %d field days but only %d are available", e.Year, days, d.Config.AvailableDays)
	}
}

// =============================================================================
// DRAW OUTCOME - NOT AWARDED
// =============================================================================

func (d Dispatcher) drawNotAwarded(e DrawOutcomeEvent, snap Snapshot, result *CascadeResult) {
	prior := snap.Points[e.Position]
	system := d.Rules.SystemFor(e.Position.Jurisdiction)

	// 1. Accrue a point - unless the system is a pure lottery. Either
	// way a mutation is recorded: every draw outcome leaves a trace.
	if AccruesPoints(system) {
		result.PointMutations = append(result.PointMutations, PointMutation{
			Position: e.Position,
			Previous: prior,
			New:      prior + 1,
			Reason:   "point accrued after unsuccessful draw",
		})
	} else {
		result.PointMutations = append(result.PointMutations, PointMutation{
			Position: e.Position,
			Previous: prior,
			New:      prior,
			Reason:   "no point accrual in a random draw system",
		})
	}

	// 2. Upfront-fee jurisdictions refund the tag fee on an unsuccessful
	// draw; that capital floats back to recoverable.
	if rule, ok := d.Rules.Rule(e.Position.Jurisdiction); ok &&
		rule.Fees.TagFeeUpfront && rule.Fees.TagFee.IsPositive() {
		result.CapitalReclassifications = append(result.CapitalReclassifications, CapitalReclassification{
			Position: e.Position,
			Amount:   rule.Fees.TagFee,
			From:     CapitalCommitted,
			To:       CapitalRecoverable,
			Reason:   "upfront tag fee refunded after unsuccessful draw",
		})
	}

	// 3. Keep the pursuit alive next year.
	if !snap.Plan.HasEntryFor(e.Position, e.Year+1) {
		result.PlanInvalidations = append(result.PlanInvalidations, PlanInvalidation{
			Position: e.Position,
			Year:     e.Year + 1,
			Action:   InvalidationRecalculate,
			Reason:   "no follow-up entry scheduled; extend the pursuit",
		})
	}

	// 4. Point creep check. Gated on point accrual: a random-system
	// position can carry an imported balance, but with no trajectory
	// there is no creep to flag.
	if AccruesPoints(system) && prior+1 >= d.Config.PointCreepThreshold {
		result.addAlert(SeverityInfo, e.Position,
			fmt.Sprintf("%s has accumulated %d points", e.Position, prior+1),
			"review the draw-odds trajectory for point creep")
	}
}

// =============================================================================
// BUDGET CHANGE
// =============================================================================

func (d Dispatcher) budgetChange(e BudgetChangeEvent, snap Snapshot, result *CascadeResult) {
	if !e.Decreased() {
		result.addAlertf(SeverityInfo, Position{},
			"budget increased from %s to %s; no pruning required", e.OldBudget, e.NewBudget)
		return
	}

	assets := d.assembleAssets(snap)
	alloc := Allocate(assets, e.NewBudget)

	for _, pruned := range alloc.Pruned {
		for _, year := range snap.Plan.YearsReferencing(pruned.Position) {
			result.PlanInvalidations = append(result.PlanInvalidations, PlanInvalidation{
				Position: pruned.Position,
				Year:     year,
				Action:   InvalidationRemove,
				Reason:   "position pruned under reduced budget",
			})
		}
		if pruned.Points > 0 {
			result.addAlertf(SeverityWarning, pruned.Position,
				"pruning %s abandons %d accumulated points", pruned.Position, pruned.Points)
		} else {
			result.addAlertf(SeverityInfo, pruned.Position,
				"pruning %s (no accumulated points at stake)", pruned.Position)
		}
	}

	result.addAlertf(SeverityInfo, Position{},
		"budget cut to %s: kept %d positions, pruned %d, saved %s",
		e.NewBudget, len(alloc.Kept), len(alloc.Pruned), alloc.TotalSaved)
}

// assembleAssets builds one PortfolioAsset per distinct position in the
// plan, first occurrence wins. Sunk cost is reconstructed as
// points x annual cost: the snapshot carries standing, not spend
// history, and a point costs roughly one annual cycle to earn.
func (d Dispatcher) assembleAssets(snap Snapshot) []PortfolioAsset {
	firstYear, _, _ := snap.Plan.YearRange()

	var assets []PortfolioAsset
	for _, pos := range snap.Plan.Positions() {
		years := snap.Plan.YearsReferencing(pos)
		annual := snap.Plan.AnnualCostOf(pos)

		awardYear := 0
		for _, year := range years {
			for _, a := range snap.Plan.ActionsIn(year) {
				if a.Position() == pos && (a.Type == ActionConvert || a.Type == ActionHunt) {
					awardYear = year
					break
				}
			}
			if awardYear != 0 {
				break
			}
		}

		points := snap.Points[pos]
		assets = append(assets, PortfolioAsset{
			Position:     pos,
			Points:       points,
			AnnualCost:   annual,
			SunkCost:     annual.MulInt(points),
			DrawCategory: ClassifyDrawType(d.Rules.SystemFor(pos.Jurisdiction)),
			AwardYear:    awardYear,
			NearAward:    awardYear != 0 && awardYear-firstYear <= NearAwardHorizonYears,
		})
	}
	return assets
}

// =============================================================================
// PROFILE CHANGE
// =============================================================================

func (d Dispatcher) profileChange(e ProfileChangeEvent, snap Snapshot, result *CascadeResult) {
	if e.NewHorizonYear != nil {
		cutoff := *e.NewHorizonYear
		for _, pos := range snap.Plan.Positions() {
			for _, year := range snap.Plan.YearsReferencing(pos) {
				if year > cutoff {
					result.PlanInvalidations = append(result.PlanInvalidations, PlanInvalidation{
						Position: pos,
						Year:     year,
						Action:   InvalidationRemove,
						Reason:   fmt.Sprintf("beyond shortened planning horizon (%d)", cutoff),
					})
				}
			}
		}
	}

	if e.NewFloatTolerance != nil {
		scheduler := LiquidityScheduler{CriticalRatio: d.Config.FloatCriticalRatio}
		peak := scheduler.FindPeakExposure(snap.Commitments, *e.NewFloatTolerance)
		if peak.Deficit.IsPositive() {
			result.addAlert(SeverityWarning, Position{},
				fmt.Sprintf("reduced float tolerance %s is exceeded: peak concurrent float %s (deficit %s, %s)",
					*e.NewFloatTolerance, peak.PeakAmount, peak.Deficit, peak.Severity),
				"re-run the liquidity schedule and stagger commitments")
		} else {
			result.addAlertf(SeverityInfo, Position{},
				"reduced float tolerance %s still covers the peak concurrent float %s",
				*e.NewFloatTolerance, peak.PeakAmount)
		}
	}

	if e.NewActivityStyle != nil {
		result.addAlert(SeverityInfo, Position{},
			fmt.Sprintf("activity style changed to %q", *e.NewActivityStyle),
			"rebuild the plan around the new style; existing entries remain valid until then")
	}
}

// =============================================================================
// DEADLINE MISSED
// =============================================================================

func (d Dispatcher) deadlineMissed(e DeadlineMissedEvent, snap Snapshot, result *CascadeResult) {
	severity := SeverityWarning
	if e.PointsAtRisk {
		severity = SeverityCritical
	}
	result.addAlertf(severity, e.Position,
		"missed deadline for %s in %d", e.Position, e.Year)

	result.PlanInvalidations = append(result.PlanInvalidations, PlanInvalidation{
		Position: e.Position,
		Year:     e.Year,
		Action:   InvalidationRecalculate,
		Reason:   "application deadline missed",
	})

	if rule, ok := d.Rules.Rule(e.Position.Jurisdiction); ok &&
		rule.Forfeiture != nil && e.PointsAtRisk {
		result.addAlert(SeverityCritical, e.Position,
			fmt.Sprintf("%d counts as an inactive year under %s's %d-year forfeiture rule",
				e.Year, e.Position.Jurisdiction, rule.Forfeiture.InactiveYears),
			"apply or buy a point next cycle to reset the inactivity clock")

		// Re-run the forfeiture timers as if the missed application never
		// existed; the gap it leaves may push the position over the edge.
		scanPlan := planWithoutActivity(snap.Plan, e.Position, e.Year)
		result.Alerts = append(result.Alerts, ScanForPurgeRisk([]PointPosition{{
			Position:   e.Position,
			Points:     snap.Points[e.Position],
			AnnualCost: scanPlan.AnnualCostOf(e.Position),
		}}, d.Rules, scanPlan)...)
	}
}

// planWithoutActivity copies the plan with the position's qualifying
// actions in the given year removed. The year itself stays, empty or
// not: the scan window must not shrink.
func planWithoutActivity(plan Plan, pos Position, year int) Plan {
	out := make(Plan, 0, len(plan))
	for _, py := range plan {
		if py.Year != year {
			out = append(out, py)
			continue
		}
		filtered := PlanYear{Year: py.Year}
		for _, a := range py.Actions {
			if a.Position() == pos && a.Type.QualifiesForPointActivity() {
				continue
			}
			filtered.Actions = append(filtered.Actions, a)
		}
		out = append(out, filtered)
	}
	return out
}

// =============================================================================
// PARTY CHANGE
// =============================================================================

func (d Dispatcher) partyChange(e PartyChangeEvent, result *CascadeResult) {
	avg := AverageGroup(e.Jurisdiction, e.MemberPoints, d.Rules)
	if avg.Warning != nil {
		result.Alerts = append(result.Alerts, *avg.Warning)
	}

	if len(e.MemberPoints) > 1 {
		lo, hi := e.MemberPoints[0], e.MemberPoints[0]
		for _, p := range e.MemberPoints[1:] {
			if p < lo {
				lo = p
			}
			if p > hi {
				hi = p
			}
		}
		if hi-lo >= partySpreadWarningPoints {
			result.addAlert(SeverityWarning, Position{Jurisdiction: e.Jurisdiction},
				fmt.Sprintf("party point spread of %d (high %d, low %d) drags the group average", hi-lo, hi, lo),
				"high-point members may prefer applying solo")
		}
	}

	if e.RemovedMemberIndex != nil {
		if impact, ok := AverageAfterRemoval(e.Jurisdiction, e.MemberPoints, *e.RemovedMemberIndex, d.Rules); ok {
			severity := SeverityInfo
			if impact.Tier != RemovalMinimal {
				severity = SeverityWarning
			}
			result.addAlertf(severity, Position{Jurisdiction: e.Jurisdiction},
				"removing a member shifts effective party points from %s to %s (%s impact)",
				impact.Before.EffectivePoints, impact.After.EffectivePoints, impact.Tier)
		}
	}
}
