/*
liquidity.go - Liquidity Scheduler

PURPOSE:
  Detects the peak concurrent float across overlapping capital
  commitments. Application fees, upfront tag fees, and travel deposits
  all tie up money over [start, end) windows; the question a planner
  needs answered is "at the worst moment, how much is out the door at
  once, and does it blow the tolerance?"

ALGORITHM:
  Classic interval sweep. Every window boundary is a candidate peak;
  at each boundary, sum the events whose window contains it and track
  the maximum. Plans run to a few hundred commitments, so the boundary
  scan is comfortably fast; ties resolve to the earliest boundary to
  keep results deterministic.
*/
package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ExposureSeverity grades a float peak against the tolerance.
type ExposureSeverity string

const (
	ExposureOK       ExposureSeverity = "ok"
	ExposureWarning  ExposureSeverity = "warning"
	ExposureCritical ExposureSeverity = "critical"
)

// DefaultFloatCriticalRatio: a deficit above this share of the limit is
// critical. A hardcoded planning heuristic with no stated derivation;
// override via LiquidityScheduler.CriticalRatio.
var DefaultFloatCriticalRatio = decimal.NewFromFloat(0.25)

// PeakExposure describes the worst concurrent-float moment.
type PeakExposure struct {
	PeakTime    time.Time
	PeakAmount  Money
	Overlapping []FloatEvent
	Deficit     Money
	Severity    ExposureSeverity
}

// LiquidityScheduler finds peak concurrent exposure.
type LiquidityScheduler struct {
	CriticalRatio decimal.Decimal
}

func NewLiquidityScheduler() LiquidityScheduler {
	return LiquidityScheduler{CriticalRatio: DefaultFloatCriticalRatio}
}

// FindPeakExposure sweeps the event boundaries and returns the peak
// concurrent float, the events overlapping it, and the deficit against
// the limit. No events means zero exposure and severity ok.
func (ls LiquidityScheduler) FindPeakExposure(events []FloatEvent, limit Money) PeakExposure {
	peak := PeakExposure{
		PeakAmount:  ZeroMoney(),
		Deficit:     ZeroMoney(),
		Overlapping: []FloatEvent{},
		Severity:    ExposureOK,
	}
	if len(events) == 0 {
		return peak
	}

	boundaries := make([]time.Time, 0, len(events)*2)
	for _, e := range events {
		boundaries = append(boundaries, e.Start, e.End)
	}
	sort.Slice(boundaries, func(i, j int) bool { return boundaries[i].Before(boundaries[j]) })

	var lastSeen time.Time
	for i, b := range boundaries {
		if i > 0 && b.Equal(lastSeen) {
			continue
		}
		lastSeen = b

		total := ZeroMoney()
		var overlapping []FloatEvent
		for _, e := range events {
			if e.Contains(b) {
				total = total.Add(e.Amount)
				overlapping = append(overlapping, e)
			}
		}
		// Strictly-greater comparison: the earliest boundary wins ties.
		if total.GreaterThan(peak.PeakAmount) {
			peak.PeakTime = b
			peak.PeakAmount = total
			peak.Overlapping = overlapping
		}
	}

	if peak.PeakAmount.GreaterThan(limit) {
		peak.Deficit = peak.PeakAmount.Sub(limit)
	}
	peak.Severity = ls.severityFor(peak.Deficit, limit)
	return peak
}

func (ls LiquidityScheduler) severityFor(deficit, limit Money) ExposureSeverity {
	if !deficit.IsPositive() {
		return ExposureOK
	}
	critical := limit.Mul(ls.CriticalRatio)
	if deficit.GreaterThan(critical) {
		return ExposureCritical
	}
	return ExposureWarning
}
