/*
dispatcher_test.go - Executable specification for the cascade dispatcher

These tests document the full per-event behavior of the engine. Each
test states the scenario in GIVEN/WHEN/THEN terms and asserts the exact
structured effects - mutations, reclassifications, invalidations,
alerts, conflicts - a single event must produce.
*/
package engine_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/draw-cascade/engine"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func testRules() engine.RuleSet {
	return engine.RuleSet{
		"WY": {
			Code: "WY", Name: "Wyoming", System: engine.SystemPreference,
			Rounding:   engine.RoundNearest,
			Forfeiture: &engine.ForfeitureRule{InactiveYears: 2},
			Fees: engine.FeeSchedule{
				AppFee: engine.NewMoney(15), TagFee: engine.NewMoney(700), TagFeeUpfront: true,
			},
		},
		"CO": {
			Code: "CO", Name: "Colorado", System: engine.SystemPreference,
			Rounding:   engine.RoundFloor,
			Forfeiture: &engine.ForfeitureRule{InactiveYears: 10},
			Bans:       []engine.BanRule{{Category: "moose", BanYears: 3}},
			Fees:       engine.FeeSchedule{AppFee: engine.NewMoney(7), TagFee: engine.NewMoney(400)},
		},
		"UT": {
			Code: "UT", Name: "Utah", System: engine.SystemDual,
			Rounding: engine.RoundExact,
			Bans:     []engine.BanRule{{Category: "bison", BanYears: 0}},
			Fees:     engine.FeeSchedule{AppFee: engine.NewMoney(10), TagFee: engine.NewMoney(513)},
		},
		"NM": {
			Code: "NM", Name: "New Mexico", System: engine.SystemRandom,
			Rounding: engine.RoundExact,
			Fees:     engine.FeeSchedule{AppFee: engine.NewMoney(13), TagFee: engine.NewMoney(150)},
		},
		"MT": {
			Code: "MT", Name: "Montana", System: engine.SystemBonusSquared,
			Rounding:   engine.RoundNearest,
			Forfeiture: &engine.ForfeitureRule{InactiveYears: 2},
			Fees:       engine.FeeSchedule{AppFee: engine.NewMoney(20), TagFee: engine.NewMoney(1200)},
		},
	}
}

func testDispatcher() engine.Dispatcher {
	cfg := engine.DefaultConfig()
	cfg.AnnualActivityBudget = engine.NewMoney(3000)
	cfg.FloatLimit = engine.NewMoney(2000)
	cfg.AvailableDays = 14
	return engine.NewDispatcher(testRules(), cfg)
}

func pos(j, c string) engine.Position {
	return engine.Position{Jurisdiction: j, Category: c}
}

func convert(j, c string, cost float64) engine.PlanAction {
	return engine.PlanAction{Type: engine.ActionConvert, Jurisdiction: j, Category: c, Cost: engine.NewMoney(cost)}
}

// =============================================================================
// DRAW OUTCOME - AWARDED
// =============================================================================

func TestDispatch_Awarded_CooldownBanEndToEnd(t *testing.T) {
	// GIVEN: CO/moose holds 10 points under a 3-year cool-down ban, with
	// plan entries scheduled after the award year
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026, apply("CO", "moose", 407)),
			planYear(2027, apply("CO", "moose", 407)),
			planYear(2028, apply("CO", "moose", 407)),
		},
		Points: engine.PointBalances{pos("CO", "moose"): 10},
	}

	// WHEN: the 2026 draw is won
	result := d.Dispatch(engine.DrawOutcomeEvent{Position: pos("CO", "moose"), Year: 2026, Awarded: true}, snap)

	// THEN: points zero out in a single mutation
	require.Len(t, result.PointMutations, 1)
	assert.Equal(t, 10, result.PointMutations[0].Previous)
	assert.Equal(t, 0, result.PointMutations[0].New)

	// AND: both later years are flagged recalculate, naming the
	// next-eligible year awardYear+1+banYears = 2030
	require.Len(t, result.PlanInvalidations, 2)
	for _, inv := range result.PlanInvalidations {
		assert.Equal(t, engine.InvalidationRecalculate, inv.Action)
		assert.Contains(t, inv.Reason, "2030")
	}

	// AND: the tag fee moves from recoverable to committed
	require.Len(t, result.CapitalReclassifications, 1)
	reclass := result.CapitalReclassifications[0]
	assert.Equal(t, engine.CapitalRecoverable, reclass.From)
	assert.Equal(t, engine.CapitalCommitted, reclass.To)
	assert.Equal(t, "$400", reclass.Amount.String())
}

func TestDispatch_Awarded_PermanentBanRemovesLaterYears(t *testing.T) {
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026, apply("UT", "bison", 523)),
			planYear(2029, apply("UT", "bison", 523)),
		},
		Points: engine.PointBalances{pos("UT", "bison"): 14},
	}

	result := d.Dispatch(engine.DrawOutcomeEvent{Position: pos("UT", "bison"), Year: 2026, Awarded: true}, snap)

	require.Len(t, result.PlanInvalidations, 1)
	assert.Equal(t, engine.InvalidationRemove, result.PlanInvalidations[0].Action)
	assert.Equal(t, 2029, result.PlanInvalidations[0].Year)

	var foundOIL bool
	for _, a := range result.Alerts {
		if a.Severity == engine.SeverityInfo && a.Position == pos("UT", "bison") {
			foundOIL = true
		}
	}
	assert.True(t, foundOIL, "once-in-a-lifetime closure should be announced")
}

func TestDispatch_Awarded_ScheduleChecksInOrder(t *testing.T) {
	// GIVEN: an award year already packed with other activity, blowing
	// both the 120% cost ceiling and the field-day budget
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026,
				hunt("CO", "moose", 2000, 10),
				hunt("WY", "elk", 1500, 8),
			),
		},
		Points: engine.PointBalances{pos("CO", "moose"): 3},
	}

	result := d.Dispatch(engine.DrawOutcomeEvent{Position: pos("CO", "moose"), Year: 2026, Awarded: true}, snap)

	// Overlap: the WY hunt shares the award year.
	require.NotEmpty(t, result.ScheduleConflicts)
	assert.Equal(t, pos("WY", "elk"), result.ScheduleConflicts[0].Position)

	// Success disaster: 2000+1500+400 tag = 3900 > 3000 * 1.2.
	var critical, dayWarning bool
	for _, a := range result.Alerts {
		if a.Severity == engine.SeverityCritical {
			critical = true
			assert.Contains(t, a.Message, "success disaster")
		}
		if a.Severity == engine.SeverityWarning && strings.Contains(a.Message, "field days") {
			dayWarning = true
		}
	}
	assert.True(t, critical, "expected a success-disaster alert")

	// Day budget: 18 field days against 14 available.
	assert.True(t, dayWarning, "expected a field-day warning")
}

// =============================================================================
// DRAW OUTCOME - NOT AWARDED
// =============================================================================

func TestDispatch_NotAwarded_AccruesPointAndRefundsUpfrontFee(t *testing.T) {
	// GIVEN: WY collects its tag fee upfront and refunds it on a miss
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan:   engine.Plan{planYear(2026, apply("WY", "elk", 715))},
		Points: engine.PointBalances{pos("WY", "elk"): 5},
	}

	result := d.Dispatch(engine.DrawOutcomeEvent{Position: pos("WY", "elk"), Year: 2026, Awarded: false}, snap)

	// Point accrues.
	require.Len(t, result.PointMutations, 1)
	assert.Equal(t, 6, result.PointMutations[0].New)

	// Upfront fee floats back to recoverable.
	require.Len(t, result.CapitalReclassifications, 1)
	assert.Equal(t, engine.CapitalCommitted, result.CapitalReclassifications[0].From)
	assert.Equal(t, engine.CapitalRecoverable, result.CapitalReclassifications[0].To)

	// No 2027 entry yet: the pursuit must continue.
	require.Len(t, result.PlanInvalidations, 1)
	assert.Equal(t, 2027, result.PlanInvalidations[0].Year)
	assert.Equal(t, engine.InvalidationRecalculate, result.PlanInvalidations[0].Action)

	// 6 points crosses the creep threshold.
	var creep bool
	for _, a := range result.Alerts {
		if a.Severity == engine.SeverityInfo {
			creep = true
		}
	}
	assert.True(t, creep, "expected a point-creep suggestion")
}

func TestDispatch_NotAwarded_RandomSystemNeverAccrues(t *testing.T) {
	// GIVEN: NM is a pure-random draw
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan:   engine.Plan{planYear(2026, apply("NM", "oryx", 163)), planYear(2027, apply("NM", "oryx", 163))},
		Points: engine.PointBalances{},
	}

	result := d.Dispatch(engine.DrawOutcomeEvent{Position: pos("NM", "oryx"), Year: 2026, Awarded: false}, snap)

	// Every draw outcome still records a mutation - here a zero-delta
	// one - so the audit trail stays complete.
	require.Len(t, result.PointMutations, 1)
	assert.Equal(t, 0, result.PointMutations[0].Previous)
	assert.Equal(t, 0, result.PointMutations[0].New)

	// NM's fee is not an upfront-refund arrangement; nothing reclasses.
	assert.Empty(t, result.CapitalReclassifications)

	// 2027 is already planned: no continuation flag.
	assert.Empty(t, result.PlanInvalidations)
	assert.Empty(t, result.Alerts)
}

func TestDispatch_NotAwarded_RandomStaleBalanceStaysQuiet(t *testing.T) {
	// GIVEN: a random-system position carrying an imported balance past
	// the creep threshold
	d := testDispatcher()
	snap := engine.Snapshot{Points: engine.PointBalances{pos("NM", "oryx"): 7}}

	result := d.Dispatch(engine.DrawOutcomeEvent{Position: pos("NM", "oryx"), Year: 2026, Awarded: false}, snap)

	// The balance is untouched and no creep alert fires: a position
	// with no point trajectory has no creep.
	require.Len(t, result.PointMutations, 1)
	assert.Equal(t, 7, result.PointMutations[0].Previous)
	assert.Equal(t, 7, result.PointMutations[0].New)
	assert.Empty(t, result.Alerts)
}

// =============================================================================
// BUDGET CHANGE
// =============================================================================

func TestDispatch_BudgetIncreaseNeverPrunes(t *testing.T) {
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan:   engine.Plan{planYear(2026, apply("WY", "elk", 700), apply("CO", "deer", 400))},
		Points: engine.PointBalances{pos("WY", "elk"): 3},
	}

	result := d.Dispatch(engine.BudgetChangeEvent{
		OldBudget: engine.NewMoney(2000), NewBudget: engine.NewMoney(3000),
	}, snap)

	assert.Empty(t, result.PlanInvalidations)
	assert.Empty(t, result.PointMutations)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, engine.SeverityInfo, result.Alerts[0].Severity)
}

func TestDispatch_BudgetCutPrunesWeakestAndInvalidatesTheirYears(t *testing.T) {
	// GIVEN: three positions; the cut budget holds the near-award WY
	// position and cheap MT points but not the CO pursuit
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026, apply("WY", "elk", 700), apply("CO", "deer", 400), apply("MT", "sheep", 150)),
			planYear(2027, convert("WY", "elk", 0), apply("CO", "deer", 400)),
		},
		Points: engine.PointBalances{
			pos("WY", "elk"):   2,
			pos("CO", "deer"):  4,
			pos("MT", "sheep"): 12,
		},
	}

	result := d.Dispatch(engine.BudgetChangeEvent{
		OldBudget: engine.NewMoney(2000), NewBudget: engine.NewMoney(900),
	}, snap)

	// CO/deer is pruned: both its plan years are removed.
	require.Len(t, result.PlanInvalidations, 2)
	for _, inv := range result.PlanInvalidations {
		assert.Equal(t, pos("CO", "deer"), inv.Position)
		assert.Equal(t, engine.InvalidationRemove, inv.Action)
	}

	// One warning for the abandoned points plus one summary.
	require.Len(t, result.Alerts, 2)
	assert.Equal(t, engine.SeverityWarning, result.Alerts[0].Severity)
	assert.Contains(t, result.Alerts[0].Message, "4 accumulated points")
	assert.Equal(t, engine.SeverityInfo, result.Alerts[1].Severity)
	assert.Contains(t, result.Alerts[1].Message, "kept 2")
	assert.Contains(t, result.Alerts[1].Message, "pruned 1")
}

// =============================================================================
// PROFILE CHANGE
// =============================================================================

func TestDispatch_ProfileHorizonCutRemovesOutYears(t *testing.T) {
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026, apply("WY", "elk", 700)),
			planYear(2028, apply("WY", "elk", 700), apply("CO", "deer", 400)),
			planYear(2030, apply("CO", "deer", 400)),
		},
	}
	horizon := 2028

	result := d.Dispatch(engine.ProfileChangeEvent{NewHorizonYear: &horizon}, snap)

	require.Len(t, result.PlanInvalidations, 1)
	assert.Equal(t, 2030, result.PlanInvalidations[0].Year)
	assert.Equal(t, pos("CO", "deer"), result.PlanInvalidations[0].Position)
	assert.Equal(t, engine.InvalidationRemove, result.PlanInvalidations[0].Action)
}

func TestDispatch_ProfileFloatToleranceRunsLiquidityCheck(t *testing.T) {
	d := testDispatcher()
	snap := engine.Snapshot{
		Commitments: []engine.FloatEvent{
			float("WY elk tag float", 700, day(2026, 1, 15), day(2026, 5, 1)),
			float("MT sheep tag float", 1200, day(2026, 2, 1), day(2026, 4, 15)),
		},
	}
	tolerance := engine.NewMoney(1500)

	result := d.Dispatch(engine.ProfileChangeEvent{NewFloatTolerance: &tolerance}, snap)

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, engine.SeverityWarning, result.Alerts[0].Severity)
	assert.Contains(t, result.Alerts[0].Message, "$1900")
	assert.Contains(t, result.Alerts[0].Message, "$400")
}

func TestDispatch_ProfileStyleChangeIsAdvisoryOnly(t *testing.T) {
	d := testDispatcher()
	style := "backcountry"

	result := d.Dispatch(engine.ProfileChangeEvent{NewActivityStyle: &style}, engine.Snapshot{
		Plan: engine.Plan{planYear(2026, apply("WY", "elk", 700))},
	})

	assert.Empty(t, result.PlanInvalidations, "style changes never invalidate directly")
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, engine.SeverityInfo, result.Alerts[0].Severity)
}

// =============================================================================
// DEADLINE MISSED
// =============================================================================

func TestDispatch_DeadlineMissedWithPointsAtRisk(t *testing.T) {
	d := testDispatcher()
	snap := engine.Snapshot{Points: engine.PointBalances{pos("WY", "elk"): 6}}

	result := d.Dispatch(engine.DeadlineMissedEvent{
		Position: pos("WY", "elk"), Year: 2026, PointsAtRisk: true,
	}, snap)

	// Exactly one recalculate invalidation.
	require.Len(t, result.PlanInvalidations, 1)
	assert.Equal(t, engine.InvalidationRecalculate, result.PlanInvalidations[0].Action)
	assert.Equal(t, 2026, result.PlanInvalidations[0].Year)

	// Critical miss alert plus the forfeiture-clock alert.
	require.Len(t, result.Alerts, 2)
	assert.Equal(t, engine.SeverityCritical, result.Alerts[0].Severity)
	assert.Equal(t, engine.SeverityCritical, result.Alerts[1].Severity)
	assert.Contains(t, result.Alerts[1].Message, "forfeiture")
}

func TestDispatch_DeadlineMissedSurfacesForfeitureHorizon(t *testing.T) {
	// GIVEN: the missed application was WY's only activity before 2028,
	// under WY's 2-year forfeiture rule
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026, apply("WY", "elk", 700)),
			planYear(2027, apply("CO", "deer", 400)),
			planYear(2028, apply("WY", "elk", 700)),
		},
		Points: engine.PointBalances{pos("WY", "elk"): 6},
	}

	result := d.Dispatch(engine.DeadlineMissedEvent{
		Position: pos("WY", "elk"), Year: 2026, PointsAtRisk: true,
	}, snap)

	// Miss alert, forfeiture-clock alert, then the timer re-scan: with
	// the 2026 application gone, 2026-2027 are consecutive inactive
	// years and the balance purges before the 2028 entry runs.
	require.Len(t, result.Alerts, 3)
	purge := result.Alerts[2]
	assert.Equal(t, engine.SeverityCritical, purge.Severity)
	assert.Contains(t, purge.Message, "purged in 2027")
	assert.Contains(t, purge.Message, "$4200")
}

func TestDispatch_DeadlineMissedWithoutRisk(t *testing.T) {
	d := testDispatcher()

	result := d.Dispatch(engine.DeadlineMissedEvent{
		Position: pos("NM", "oryx"), Year: 2026, PointsAtRisk: false,
	}, engine.Snapshot{})

	require.Len(t, result.Alerts, 1)
	assert.Equal(t, engine.SeverityWarning, result.Alerts[0].Severity)
	require.Len(t, result.PlanInvalidations, 1)
}

// =============================================================================
// PARTY CHANGE
// =============================================================================

func TestDispatch_PartyChangeRoundingAndSpread(t *testing.T) {
	// GIVEN: a floor jurisdiction party with a 3-point member spread
	d := testDispatcher()

	result := d.Dispatch(engine.PartyChangeEvent{
		Jurisdiction: "CO", MemberPoints: []int{5, 4, 3, 2},
	}, engine.Snapshot{})

	require.Len(t, result.Alerts, 2)
	assert.Contains(t, result.Alerts[0].Message, "losing 0.5 points")
	assert.Contains(t, result.Alerts[1].Message, "spread of 3")
}

func TestDispatch_PartyChangeMemberRemoval(t *testing.T) {
	d := testDispatcher()
	removed := 0

	result := d.Dispatch(engine.PartyChangeEvent{
		Jurisdiction: "CO", MemberPoints: []int{12, 1, 2}, RemovedMemberIndex: &removed,
	}, engine.Snapshot{})

	var removal *engine.Alert
	for i := range result.Alerts {
		if strings.Contains(result.Alerts[i].Message, "severe impact") {
			removal = &result.Alerts[i]
		}
	}
	require.NotNil(t, removal, "expected a severe removal-impact alert")
	assert.Equal(t, engine.SeverityWarning, removal.Severity)
}

// =============================================================================
// CROSS-CUTTING GUARANTEES
// =============================================================================

func TestDispatch_Deterministic(t *testing.T) {
	// Identical inputs must produce identical results, byte for byte.
	d := testDispatcher()
	snap := engine.Snapshot{
		Plan: engine.Plan{
			planYear(2026, apply("WY", "elk", 700), apply("CO", "deer", 400), apply("MT", "sheep", 150)),
			planYear(2027, convert("WY", "elk", 0)),
		},
		Points: engine.PointBalances{
			pos("WY", "elk"):   2,
			pos("CO", "deer"):  4,
			pos("MT", "sheep"): 12,
		},
	}
	ev := engine.BudgetChangeEvent{OldBudget: engine.NewMoney(2000), NewBudget: engine.NewMoney(900)}

	first := d.Dispatch(ev, snap)
	for i := 0; i < 25; i++ {
		require.Equal(t, first, d.Dispatch(ev, snap))
	}
}

func TestDispatch_NeverMutatesInputs(t *testing.T) {
	d := testDispatcher()
	points := engine.PointBalances{pos("CO", "moose"): 10}
	snap := engine.Snapshot{
		Plan:   engine.Plan{planYear(2026, apply("CO", "moose", 407)), planYear(2027, apply("CO", "moose", 407))},
		Points: points,
	}

	d.Dispatch(engine.DrawOutcomeEvent{Position: pos("CO", "moose"), Year: 2026, Awarded: true}, snap)

	assert.Equal(t, 10, points[pos("CO", "moose")], "the snapshot balance must be untouched")
	assert.Len(t, snap.Plan, 2)
}

func TestDispatch_AllSlicesNonNilForEveryKind(t *testing.T) {
	d := testDispatcher()
	horizon := 2030
	events := []engine.Event{
		engine.DrawOutcomeEvent{Position: pos("WY", "elk"), Year: 2026, Awarded: true},
		engine.DrawOutcomeEvent{Position: pos("WY", "elk"), Year: 2026},
		engine.BudgetChangeEvent{OldBudget: engine.NewMoney(1), NewBudget: engine.NewMoney(2)},
		engine.ProfileChangeEvent{NewHorizonYear: &horizon},
		engine.DeadlineMissedEvent{Position: pos("WY", "elk"), Year: 2026},
		engine.PartyChangeEvent{Jurisdiction: "WY", MemberPoints: []int{1}},
	}

	for _, ev := range events {
		result := d.Dispatch(ev, engine.Snapshot{})
		assert.NotNil(t, result.PointMutations, "%s", ev.Kind())
		assert.NotNil(t, result.CapitalReclassifications, "%s", ev.Kind())
		assert.NotNil(t, result.PlanInvalidations, "%s", ev.Kind())
		assert.NotNil(t, result.Alerts, "%s", ev.Kind())
		assert.NotNil(t, result.ScheduleConflicts, "%s", ev.Kind())
	}
}

func TestDispatch_PointMutationsNeverGoNegative(t *testing.T) {
	// Zero starting points, awarded: the zeroing mutation lands at 0.
	d := testDispatcher()

	result := d.Dispatch(engine.DrawOutcomeEvent{
		Position: pos("UT", "bison"), Year: 2026, Awarded: true,
	}, engine.Snapshot{})

	require.NotEmpty(t, result.PointMutations)
	for _, m := range result.PointMutations {
		assert.GreaterOrEqual(t, m.New, 0)
	}
}

func TestDefaultConfig_NamedThresholds(t *testing.T) {
	cfg := engine.DefaultConfig()
	assert.True(t, cfg.SuccessDisasterRatio.Equal(decimal.NewFromFloat(1.20)))
	assert.True(t, cfg.FloatCriticalRatio.Equal(decimal.NewFromFloat(0.25)))
	assert.Equal(t, 5, cfg.PointCreepThreshold)
}

