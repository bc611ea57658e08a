/*
Package engine implements the fiduciary cascade engine for multi-year,
multi-jurisdiction draw portfolios.

PURPOSE:
  Given a single discrete life event (a draw result, a budget cut, a
  profile change, a missed deadline, a group change), derive every
  downstream consequence across the plan: point mutations, capital
  reclassifications, plan invalidations, alerts, and schedule conflicts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Position: a jurisdiction+category pair, the unit everything keys on
  - Money: a dollar amount backed by decimal.Decimal
  - Plan / PlanYear / PlanAction: the read-only multi-year schedule
  - PortfolioAsset: one position viewed as a capital allocation
  - FloatEvent: a window of committed capital
  - CascadeResult: the engine's sole output type

DESIGN PRINCIPLES:
  1. Purity: the engine never mutates its inputs and holds no state
     between calls. Rule tables are injected, never ambient.
  2. Determinism: identical inputs produce identical results. Map
     iteration is always over sorted keys; money math is decimal.
  3. Safe iteration: every CascadeResult slice is non-nil, so callers
     can range over results without nil checks.

SEE ALSO:
  - rules.go: injected per-jurisdiction rule tables
  - event.go: the closed event union
  - dispatcher.go: the single entry point per event kind
*/
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Dollar amount backed by decimal.Decimal
// =============================================================================

// Money is a dollar amount. Decimal-backed so cascades are reproducible
// bit-for-bit across runs and platforms.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(v float64) Money      { return Money{Value: decimal.NewFromFloat(v)} }
func NewMoneyFromInt(v int) Money   { return Money{Value: decimal.NewFromInt(int64(v))} }
func ZeroMoney() Money              { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money           { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money           { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money { return Money{Value: m.Value.Mul(s)} }
func (m Money) MulInt(n int) Money          { return Money{Value: m.Value.Mul(decimal.NewFromInt(int64(n)))} }
func (m Money) Neg() Money                  { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                { return m.Value.IsZero() }
func (m Money) IsPositive() bool            { return m.Value.IsPositive() }
func (m Money) IsNegative() bool            { return m.Value.IsNegative() }
func (m Money) GreaterThan(o Money) bool    { return m.Value.GreaterThan(o.Value) }
func (m Money) GreaterOrEqual(o Money) bool { return m.Value.GreaterThanOrEqual(o.Value) }
func (m Money) LessThan(o Money) bool       { return m.Value.LessThan(o.Value) }

// String renders like "$1,234" without cents when whole, e.g. for alerts.
func (m Money) String() string {
	if m.Value.IsInteger() {
		return "$" + m.Value.StringFixed(0)
	}
	return "$" + m.Value.StringFixed(2)
}

// =============================================================================
// POSITION - Jurisdiction + category pair
// =============================================================================

// Position identifies one jurisdiction+category pursuit, e.g. WY/elk.
// It is the key every mutation, invalidation, and alert refers to.
type Position struct {
	Jurisdiction string
	Category     string
}

func (p Position) String() string { return p.Jurisdiction + "/" + p.Category }

// =============================================================================
// PLAN - Read-only multi-year schedule (externally owned)
// =============================================================================

// ActionType is what is scheduled for a position in a given year.
type ActionType string

const (
	ActionApply    ActionType = "apply"
	ActionBuyPoint ActionType = "buy_point"
	ActionHunt     ActionType = "hunt"
	ActionScout    ActionType = "scout"
	ActionConvert  ActionType = "convert" // expected award conversion
)

// QualifiesForPointActivity reports whether this action type resets a
// jurisdiction's inactivity clock. Hunting or scouting on an existing tag
// does not; only applying, buying a point, or converting does.
func (a ActionType) QualifiesForPointActivity() bool {
	return a == ActionApply || a == ActionBuyPoint || a == ActionConvert
}

// PlanAction is one scheduled action. Read-only input; the engine never
// mutates plans, it only emits invalidations for the caller to apply.
type PlanAction struct {
	Type         ActionType
	Jurisdiction string
	Category     string
	Cost         Money
	DueDate      time.Time // zero when the action has no deadline
	Days         int       // field days required (hunt/scout), 0 otherwise
}

func (a PlanAction) Position() Position {
	return Position{Jurisdiction: a.Jurisdiction, Category: a.Category}
}

// PlanYear groups the actions scheduled for one calendar year.
type PlanYear struct {
	Year    int
	Actions []PlanAction
}

// Plan is the full multi-year schedule, ordered by year.
type Plan []PlanYear

// YearRange returns the first and last plan year. ok is false for an
// empty plan.
func (p Plan) YearRange() (first, last int, ok bool) {
	if len(p) == 0 {
		return 0, 0, false
	}
	first, last = p[0].Year, p[0].Year
	for _, py := range p {
		if py.Year < first {
			first = py.Year
		}
		if py.Year > last {
			last = py.Year
		}
	}
	return first, last, true
}

// YearsReferencing returns every plan year (ascending) containing at
// least one action for the position.
func (p Plan) YearsReferencing(pos Position) []int {
	var years []int
	for _, py := range p {
		for _, a := range py.Actions {
			if a.Position() == pos {
				years = append(years, py.Year)
				break
			}
		}
	}
	sort.Ints(years)
	return years
}

// ActionsIn returns the actions scheduled in the given year.
func (p Plan) ActionsIn(year int) []PlanAction {
	for _, py := range p {
		if py.Year == year {
			return py.Actions
		}
	}
	return nil
}

// HasEntryFor reports whether the position has any action in the year.
func (p Plan) HasEntryFor(pos Position, year int) bool {
	for _, a := range p.ActionsIn(year) {
		if a.Position() == pos {
			return true
		}
	}
	return false
}

// Positions returns every distinct position in the plan, first
// occurrence wins, in deterministic first-seen order.
func (p Plan) Positions() []Position {
	seen := make(map[Position]bool)
	var out []Position
	for _, py := range p {
		for _, a := range py.Actions {
			pos := a.Position()
			if !seen[pos] {
				seen[pos] = true
				out = append(out, pos)
			}
		}
	}
	return out
}

// AnnualCostOf sums the position's action costs in its first planned
// year, the planner's proxy for one year of spend.
func (p Plan) AnnualCostOf(pos Position) Money {
	total := ZeroMoney()
	years := p.YearsReferencing(pos)
	if len(years) == 0 {
		return total
	}
	for _, a := range p.ActionsIn(years[0]) {
		if a.Position() == pos {
			total = total.Add(a.Cost)
		}
	}
	return total
}

// =============================================================================
// POINT BALANCES - Externally owned, never negative
// =============================================================================

// PointBalances maps positions to accumulated points.
// INVARIANT: values are never negative; the upstream validation layer
// rejects negative input and every mutation the engine emits preserves it.
type PointBalances map[Position]int

// SortedPositions returns balance keys in deterministic order.
func (b PointBalances) SortedPositions() []Position {
	out := make([]Position, 0, len(b))
	for pos := range b {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Jurisdiction != out[j].Jurisdiction {
			return out[i].Jurisdiction < out[j].Jurisdiction
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// =============================================================================
// PORTFOLIO ASSET - One position viewed as a capital allocation
// =============================================================================

// PortfolioAsset is one jurisdiction+category position built fresh from
// the plan snapshot on each dispatch. Never persisted by this engine.
type PortfolioAsset struct {
	Position     Position
	Points       int
	AnnualCost   Money        // per-year maintenance (fees + point cost)
	SunkCost     Money        // cumulative historical spend
	DrawCategory DrawCategory // preference | lottery | bonus
	AwardYear    int          // year expected to convert into an award
	NearAward    bool         // AwardYear within the imminent horizon
}

// NearAwardHorizonYears is the imminence window: an asset whose expected
// award is this many years out (or closer) is treated as near-award.
const NearAwardHorizonYears = 2

// =============================================================================
// FLOAT EVENT - A window of committed capital
// =============================================================================

// FloatEvent is a commitment of capital over a [Start, End) window.
// Recoverable commitments are refunded when the draw is unsuccessful.
type FloatEvent struct {
	Label       string
	Position    Position
	Amount      Money
	Start       time.Time
	End         time.Time
	Recoverable bool
}

// Contains reports whether t falls inside the [Start, End) window.
func (f FloatEvent) Contains(t time.Time) bool {
	return !t.Before(f.Start) && t.Before(f.End)
}

// =============================================================================
// SNAPSHOT - The read-only world state a cascade is computed against
// =============================================================================

// Snapshot bundles the externally owned state the dispatcher reads.
// The engine treats all of it as immutable.
type Snapshot struct {
	Plan        Plan
	Points      PointBalances
	Commitments []FloatEvent
}

// =============================================================================
// CASCADE RESULT - The engine's sole output type
// =============================================================================

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a human-readable risk notice. The engine decides content and
// severity; presentation is the caller's concern.
type Alert struct {
	Severity       Severity
	Position       Position // zero value when the alert is plan-wide
	Message        string
	Recommendation string // optional
}

// PointMutation records a balance change for one position.
// INVARIANT: New is never negative.
type PointMutation struct {
	Position Position
	Previous int
	New      int
	Reason   string
}

// CapitalClass distinguishes money that comes back from money that does not.
type CapitalClass string

const (
	CapitalRecoverable CapitalClass = "recoverable"
	CapitalCommitted   CapitalClass = "committed"
)

// CapitalReclassification moves an amount between capital classes.
type CapitalReclassification struct {
	Position Position
	Amount   Money
	From     CapitalClass
	To       CapitalClass
	Reason   string
}

// InvalidationAction says what the caller should do with a plan year.
type InvalidationAction string

const (
	InvalidationRemove      InvalidationAction = "remove"
	InvalidationRecalculate InvalidationAction = "recalculate"
)

// PlanInvalidation flags one position+year as no longer valid.
type PlanInvalidation struct {
	Position Position
	Year     int
	Action   InvalidationAction
	Reason   string
}

// ScheduleConflict flags overlapping or over-committed scheduling.
type ScheduleConflict struct {
	Year     int
	Position Position
	Detail   string
}

// CascadeResult is everything a single event implies. All slices are
// non-nil so callers can iterate without nil checks; presentation code
// binds directly to these field names, so they are a stability surface.
type CascadeResult struct {
	PointMutations           []PointMutation
	CapitalReclassifications []CapitalReclassification
	PlanInvalidations        []PlanInvalidation
	Alerts                   []Alert
	ScheduleConflicts        []ScheduleConflict
}

// NewCascadeResult returns an empty result with all slices allocated.
func NewCascadeResult() CascadeResult {
	return CascadeResult{
		PointMutations:           []PointMutation{},
		CapitalReclassifications: []CapitalReclassification{},
		PlanInvalidations:        []PlanInvalidation{},
		Alerts:                   []Alert{},
		ScheduleConflicts:        []ScheduleConflict{},
	}
}

func (r *CascadeResult) addAlert(sev Severity, pos Position, msg, rec string) {
	r.Alerts = append(r.Alerts, Alert{Severity: sev, Position: pos, Message: msg, Recommendation: rec})
}

func (r *CascadeResult) addAlertf(sev Severity, pos Position, format string, args ...any) {
	r.addAlert(sev, pos, fmt.Sprintf(format, args...), "")
}
