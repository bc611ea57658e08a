/*
odds.go - Point-System / Draw-Odds Model

PURPOSE:
  Per-jurisdiction draw-probability formulas plus multi-year cumulative
  odds. Six draw systems, three materially different probability shapes:

    preference / dual   deterministic by point rank above the threshold,
                        small random share below it
    hybrid              preference with a different pool split
    bonus / bonus²      weighted lottery, chances grow with points
    random              uniform lottery, points are irrelevant

CLASSIFICATION:
  ClassifyDrawType collapses the six systems into three buckets so that
  downstream alerting never calls a pure-random category "stalled" -
  a random play has no trajectory, and flagging one is a false positive
  this model must never emit.

All probabilities are plain float64: they are ratios for human planning,
not money. Decimal is reserved for amounts.
*/
package engine

// Pool splits and simulation bounds. Estimated-applicant multipliers are
// planning heuristics: quota x20 approximates a squared-bonus field,
// quota x15 a linear-bonus field.
const (
	preferenceShare = 0.80
	hybridShare     = 0.75

	bonusSquaredApplicantFactor = 20
	bonusApplicantFactor        = 15
	randomDrawOdds              = 0.10

	// maxOddsSimulationYears caps the "years until likely" walk for
	// bonus systems whose odds may never cross 50%.
	maxOddsSimulationYears = 30
)

// OddsEstimate is the single-year view for one position.
type OddsEstimate struct {
	OddsThisYear       float64
	YearsToLikelyAward int
	System             DrawSystem
}

// YearOdds is one entry of the cumulative running array.
type YearOdds struct {
	Year       int // 1-based offset from the current year
	Cumulative float64
}

// CumulativeOdds is the multi-year view derived from a single-year odds.
type CumulativeOdds struct {
	CumulativeOdds  float64
	YearByYear      []YearOdds
	MedianAwardYear int // first year cumulative >= 0.5; 0 when beyond horizon
}

// ComputeOdds evaluates the draw odds for one position under the given
// system. quota <= 0 yields zero odds rather than an error.
func ComputeOdds(system DrawSystem, userPoints, required, quota int) OddsEstimate {
	est := OddsEstimate{System: system}
	if quota <= 0 {
		return est
	}

	switch system {
	case SystemPreference, SystemDual:
		// Dual systems are planned on their preference track; the bonus
		// track is a secondary, uncomputed one.
		est.OddsThisYear, est.YearsToLikelyAward = thresholdOdds(preferenceShare, userPoints, required, quota)

	case SystemHybrid:
		est.OddsThisYear, est.YearsToLikelyAward = thresholdOdds(hybridShare, userPoints, required, quota)

	case SystemBonusSquared:
		est.OddsThisYear = bonusOdds(userPoints, required, quota, bonusSquaredApplicantFactor, true)
		est.YearsToLikelyAward = yearsUntilLikely(func(p int) float64 {
			return bonusOdds(p, required, quota, bonusSquaredApplicantFactor, true)
		}, userPoints)

	case SystemBonus:
		est.OddsThisYear = bonusOdds(userPoints, required, quota, bonusApplicantFactor, false)
		est.YearsToLikelyAward = yearsUntilLikely(func(p int) float64 {
			return bonusOdds(p, required, quota, bonusApplicantFactor, false)
		}, userPoints)

	case SystemRandom:
		// Constant regardless of points; there is no accrual track.
		est.OddsThisYear = randomDrawOdds
		est.YearsToLikelyAward = yearsUntilCumulative(randomDrawOdds)

	default:
		// Unknown systems get zero odds; alerting layers treat them as
		// lottery plays (see ClassifyDrawType) and stay silent.
	}
	return est
}

// thresholdOdds implements the preference-style split: applicants at or
// above the required points take the preference share deterministically,
// everyone else competes for the remainder.
func thresholdOdds(share float64, userPoints, required, quota int) (odds float64, yearsNeeded int) {
	if userPoints >= required {
		return share, 0
	}
	return (1 - share) / float64(quota), required - userPoints
}

// bonusOdds implements the weighted-lottery shape. The applicant's
// chances are (points+1) - squared for bonus-squared systems - against a
// field of quota*factor applicants holding the average chance count.
func bonusOdds(points, required, quota, applicantFactor int, squared bool) float64 {
	chances := points + 1
	avgChances := required/2 + 1
	if squared {
		chances *= chances
		avgChances *= avgChances
	}
	estApplicants := quota * applicantFactor
	denom := float64(estApplicants) * float64(avgChances)
	if denom == 0 {
		return 0
	}
	odds := float64(chances) * float64(quota) / denom
	if odds > 1 {
		odds = 1
	}
	return odds
}

// yearsUntilLikely walks points forward one per year until the
// single-year odds cross 50%, capped at maxOddsSimulationYears.
func yearsUntilLikely(oddsAt func(points int) float64, startPoints int) int {
	for years := 0; years <= maxOddsSimulationYears; years++ {
		if oddsAt(startPoints+years) >= 0.5 {
			return years
		}
	}
	return maxOddsSimulationYears
}

// yearsUntilCumulative returns the first year the cumulative probability
// of at least one success crosses 50%, capped at maxOddsSimulationYears.
func yearsUntilCumulative(p float64) int {
	if p <= 0 {
		return maxOddsSimulationYears
	}
	missing := 1.0
	for year := 1; year <= maxOddsSimulationYears; year++ {
		missing *= 1 - p
		if 1-missing >= 0.5 {
			return year
		}
	}
	return maxOddsSimulationYears
}

// ComputeCumulativeOdds derives the n-year cumulative odds array from a
// single-year probability: C = 1 - (1-p)^n. The running array is
// monotonically non-decreasing by construction.
func ComputeCumulativeOdds(singleYearOdds float64, horizonYears int) CumulativeOdds {
	if singleYearOdds < 0 {
		singleYearOdds = 0
	}
	if singleYearOdds > 1 {
		singleYearOdds = 1
	}

	out := CumulativeOdds{YearByYear: []YearOdds{}}
	missing := 1.0
	for year := 1; year <= horizonYears; year++ {
		missing *= 1 - singleYearOdds
		cumulative := 1 - missing
		out.YearByYear = append(out.YearByYear, YearOdds{Year: year, Cumulative: cumulative})
		if out.MedianAwardYear == 0 && cumulative >= 0.5 {
			out.MedianAwardYear = year
		}
	}
	if n := len(out.YearByYear); n > 0 {
		out.CumulativeOdds = out.YearByYear[n-1].Cumulative
	}
	return out
}

// ClassifyDrawType maps every draw system into one of three buckets.
// Unknown systems classify as lottery: the bucket with no trajectory,
// so no downstream alert can claim one has stalled.
func ClassifyDrawType(system DrawSystem) DrawCategory {
	switch system {
	case SystemPreference, SystemDual, SystemHybrid:
		return CategoryPreference
	case SystemBonus, SystemBonusSquared:
		return CategoryBonus
	default:
		return CategoryLottery
	}
}

// IsLotteryPlay reports whether the system is a pure lottery with no
// point trajectory.
func IsLotteryPlay(system DrawSystem) bool {
	return ClassifyDrawType(system) == CategoryLottery
}

// AccruesPoints reports whether an unsuccessful application earns a
// point under this system.
func AccruesPoints(system DrawSystem) bool {
	return system != SystemRandom
}
