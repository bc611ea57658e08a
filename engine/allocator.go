/*
allocator.go - Asset-Preservation Allocator

PURPOSE:
  Answers "the budget was cut - what do we let go?" with a greedy,
  rule-ranked liquidation. Every asset gets a preservation score; the
  reduced budget is filled from the strongest asset down, and whatever
  does not fit is pruned.

SCORING:
  score = (nearAward ? 1000 : 0)
        + sunkCost * 0.5
        + equityBonus(drawCategory, points)
        + efficiencyBonus(sunkCost, annualCost)

  The near-award bump dwarfs everything else on purpose: an asset within
  two years of converting is effectively unprunable unless the entire
  new budget is smaller than that single asset's annual cost.

AUDITABILITY:
  Every keep/prune decision lands in Reasoning, in decision order, so a
  human can replay why each position survived or died.

Scores and costs are decimal throughout: the kept/pruned partition for a
given asset list and budget is identical on every run.
*/
package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Scoring weights. Tuned for separation, not fairness: near-award must
// dominate equity, equity must dominate efficiency.
var (
	nearAwardScore       = decimal.NewFromInt(1000)
	sunkCostWeight       = decimal.NewFromFloat(0.5)
	preferencePointValue = decimal.NewFromInt(50)
	bonusPointValue      = decimal.NewFromInt(20)
	efficiencyWeight     = decimal.NewFromInt(10)
)

// AllocationResult is the liquidation order for a reduced budget.
type AllocationResult struct {
	Kept       []PortfolioAsset
	Pruned     []PortfolioAsset
	TotalSaved Money
	Reasoning  []string
}

// scoredAsset pairs an asset with its preservation score for ranking.
type scoredAsset struct {
	asset PortfolioAsset
	score decimal.Decimal
}

// Allocate partitions assets into kept and pruned under newBudget.
// A zero (or negative) budget is a valid input and prunes everything
// with a positive annual cost.
func Allocate(assets []PortfolioAsset, newBudget Money) AllocationResult {
	result := AllocationResult{
		Kept:      []PortfolioAsset{},
		Pruned:    []PortfolioAsset{},
		Reasoning: []string{},
	}

	scored := make([]scoredAsset, len(assets))
	originalCost := ZeroMoney()
	for i, a := range assets {
		scored[i] = scoredAsset{asset: a, score: preservationScore(a)}
		originalCost = originalCost.Add(a.AnnualCost)
	}

	// Rank ascending so the weakest positions surface first in the
	// trace, then fill the budget from the strongest down. Ties break
	// on position name to keep the partition deterministic.
	sort.SliceStable(scored, func(i, j int) bool {
		if !scored[i].score.Equal(scored[j].score) {
			return scored[i].score.LessThan(scored[j].score)
		}
		return scored[i].asset.Position.String() < scored[j].asset.Position.String()
	})

	for _, sa := range scored {
		result.Reasoning = append(result.Reasoning, fmt.Sprintf(
			"ranked %s: score %s (points %d, sunk %s, annual %s, near-award %t)",
			sa.asset.Position, sa.score.StringFixed(1), sa.asset.Points,
			sa.asset.SunkCost, sa.asset.AnnualCost, sa.asset.NearAward))
	}

	remaining := newBudget
	for i := len(scored) - 1; i >= 0; i-- {
		a := scored[i].asset
		if remaining.GreaterOrEqual(a.AnnualCost) {
			remaining = remaining.Sub(a.AnnualCost)
			result.Kept = append(result.Kept, a)
			result.Reasoning = append(result.Reasoning, fmt.Sprintf(
				"keep %s: annual %s fits, %s budget left", a.Position, a.AnnualCost, remaining))
		} else {
			result.Pruned = append(result.Pruned, a)
			result.Reasoning = append(result.Reasoning, fmt.Sprintf(
				"prune %s: annual %s exceeds remaining %s", a.Position, a.AnnualCost, remaining))
		}
	}

	// Historical accounting formula, kept verbatim pending confirmation:
	// sum(original costs) - newBudget + leftover. Do not simplify to the
	// pruned-cost sum even where the two coincide.
	result.TotalSaved = originalCost.Sub(newBudget).Add(remaining)

	return result
}

// preservationScore ranks how much an asset deserves to survive a cut.
func preservationScore(a PortfolioAsset) decimal.Decimal {
	score := decimal.Zero
	if a.NearAward {
		score = score.Add(nearAwardScore)
	}
	score = score.Add(a.SunkCost.Value.Mul(sunkCostWeight))
	score = score.Add(equityBonus(a.DrawCategory, a.Points))
	score = score.Add(efficiencyBonus(a.SunkCost, a.AnnualCost))
	return score
}

// equityBonus values accumulated standing: preference points are nearly
// guaranteed future value, bonus points merely better odds, and lottery
// positions hold no equity at all.
func equityBonus(category DrawCategory, points int) decimal.Decimal {
	switch category {
	case CategoryPreference:
		return decimal.NewFromInt(int64(points)).Mul(preferencePointValue)
	case CategoryBonus:
		return decimal.NewFromInt(int64(points)).Mul(bonusPointValue)
	default:
		return decimal.Zero
	}
}

// efficiencyBonus rewards positions whose history dwarfs their upkeep.
func efficiencyBonus(sunk, annual Money) decimal.Decimal {
	if !annual.IsPositive() {
		return decimal.Zero
	}
	return sunk.Value.Div(annual.Value).Mul(efficiencyWeight)
}
