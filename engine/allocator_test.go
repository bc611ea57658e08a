package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/draw-cascade/engine"
)

func asset(j, c string, points int, annual, sunk float64, cat engine.DrawCategory, nearAward bool) engine.PortfolioAsset {
	return engine.PortfolioAsset{
		Position:     engine.Position{Jurisdiction: j, Category: c},
		Points:       points,
		AnnualCost:   engine.NewMoney(annual),
		SunkCost:     engine.NewMoney(sunk),
		DrawCategory: cat,
		NearAward:    nearAward,
	}
}

func TestAllocate_NearAwardSurvivesCut(t *testing.T) {
	// GIVEN: a near-award position and two stronger-looking hoards
	// WHEN: the budget only covers part of the portfolio
	// THEN: the near-award position is kept; its score dominates
	assets := []engine.PortfolioAsset{
		asset("WY", "elk", 2, 700, 1400, engine.CategoryPreference, true),
		asset("CO", "deer", 8, 400, 1600, engine.CategoryPreference, false),
		asset("NV", "elk", 6, 300, 1800, engine.CategoryBonus, false),
	}

	result := engine.Allocate(assets, engine.NewMoney(800))

	keptPositions := positionsOf(result.Kept)
	assert.Contains(t, keptPositions, "WY/elk")
	assert.Len(t, result.Pruned, 2)
}

func TestAllocate_NearAwardPrunedOnlyWhenBudgetBelowItsOwnCost(t *testing.T) {
	assets := []engine.PortfolioAsset{
		asset("WY", "elk", 2, 700, 1400, engine.CategoryPreference, true),
	}

	kept := engine.Allocate(assets, engine.NewMoney(700))
	assert.Len(t, kept.Kept, 1)

	pruned := engine.Allocate(assets, engine.NewMoney(699))
	assert.Len(t, pruned.Pruned, 1)
	assert.Empty(t, pruned.Kept)
}

func TestAllocate_ZeroBudgetPrunesEverything(t *testing.T) {
	assets := []engine.PortfolioAsset{
		asset("WY", "elk", 2, 700, 1400, engine.CategoryPreference, true),
		asset("CO", "deer", 8, 400, 3200, engine.CategoryPreference, false),
	}

	result := engine.Allocate(assets, engine.ZeroMoney())

	assert.Empty(t, result.Kept)
	assert.Len(t, result.Pruned, 2)
	// Full prune, no leftover: savings equal the entire original cost.
	assert.Equal(t, "$1100", result.TotalSaved.String())
}

func TestAllocate_TotalSavedPreservesHistoricalFormula(t *testing.T) {
	// Historical formula: sum(costs) - newBudget + leftover.
	// sum(costs)=1100, budget=450 keeps only CO/deer (400), leftover=50:
	// 1100 - 450 + 50 = 700.
	assets := []engine.PortfolioAsset{
		asset("WY", "elk", 0, 700, 0, engine.CategoryLottery, false),
		asset("CO", "deer", 8, 400, 3200, engine.CategoryPreference, false),
	}

	result := engine.Allocate(assets, engine.NewMoney(450))

	require.Len(t, result.Pruned, 1)
	assert.Equal(t, "WY/elk", result.Pruned[0].Position.String())
	assert.Equal(t, "$700", result.TotalSaved.String())
}

func TestAllocate_Deterministic(t *testing.T) {
	assets := []engine.PortfolioAsset{
		asset("MT", "sheep", 12, 150, 1800, engine.CategoryBonus, false),
		asset("WY", "elk", 2, 700, 1400, engine.CategoryPreference, true),
		asset("CO", "deer", 8, 400, 3200, engine.CategoryPreference, false),
		asset("NM", "oryx", 0, 120, 960, engine.CategoryLottery, false),
		asset("NV", "elk", 6, 300, 1800, engine.CategoryBonus, false),
	}

	first := engine.Allocate(assets, engine.NewMoney(1000))
	for i := 0; i < 50; i++ {
		again := engine.Allocate(assets, engine.NewMoney(1000))
		require.Equal(t, positionsOf(first.Kept), positionsOf(again.Kept))
		require.Equal(t, positionsOf(first.Pruned), positionsOf(again.Pruned))
		require.True(t, first.TotalSaved.Value.Equal(again.TotalSaved.Value))
	}
}

func TestAllocate_EmitsFullReasoningTrace(t *testing.T) {
	assets := []engine.PortfolioAsset{
		asset("WY", "elk", 2, 700, 1400, engine.CategoryPreference, true),
		asset("CO", "deer", 8, 400, 3200, engine.CategoryPreference, false),
	}

	result := engine.Allocate(assets, engine.NewMoney(500))

	// One ranking line per asset plus one keep/prune line per asset.
	assert.Len(t, result.Reasoning, 4)
}

func TestAllocate_EmptyPortfolio(t *testing.T) {
	result := engine.Allocate(nil, engine.NewMoney(1000))
	assert.NotNil(t, result.Kept)
	assert.NotNil(t, result.Pruned)
	assert.NotNil(t, result.Reasoning)
	assert.Empty(t, result.Pruned)
}

func positionsOf(assets []engine.PortfolioAsset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.Position.String()
	}
	return out
}
