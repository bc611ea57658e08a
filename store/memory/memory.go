// Package memory provides an in-memory engine.Store for tests and dev.
package memory

import (
	"context"
	"sync"

	"github.com/warp/draw-cascade/engine"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store holds the world state in memory behind a mutex. Reads return
// deep copies, so callers can never alias the stored snapshot.
type Store struct {
	mu      sync.RWMutex
	snap    engine.Snapshot
	applied []engine.Alert
}

func New() *Store {
	return &Store{
		snap: engine.Snapshot{Points: engine.PointBalances{}},
	}
}

var _ engine.Store = (*Store)(nil)

// Snapshot returns a deep copy of the current world state.
func (s *Store) Snapshot(_ context.Context) (engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copySnapshot(s.snap), nil
}

// ReplaceSnapshot seeds or resets the stored world state.
func (s *Store) ReplaceSnapshot(_ context.Context, snap engine.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = copySnapshot(snap)
	if s.snap.Points == nil {
		s.snap.Points = engine.PointBalances{}
	}
	return nil
}

// Apply writes one cascade result atomically. The work happens on a
// scratch copy; the store is only swapped once every mutation checks out.
func (s *Store) Apply(_ context.Context, result engine.CascadeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := copySnapshot(s.snap)

	for _, m := range result.PointMutations {
		balance := next.Points[m.Position]
		delta := m.New - m.Previous
		if balance+delta < 0 {
			return &engine.NegativeBalanceError{Position: m.Position, Balance: balance, Delta: delta}
		}
		next.Points[m.Position] = balance + delta
	}

	for _, inv := range result.PlanInvalidations {
		if inv.Action == engine.InvalidationRemove {
			next.Plan = removeFromPlan(next.Plan, inv.Position, inv.Year)
		}
	}

	for _, rc := range result.CapitalReclassifications {
		for i := range next.Commitments {
			if next.Commitments[i].Position == rc.Position {
				next.Commitments[i].Recoverable = rc.To == engine.CapitalRecoverable
			}
		}
	}

	s.snap = next
	s.applied = append(s.applied, result.Alerts...)
	return nil
}

// AppliedAlerts returns the audit trail, oldest first.
func (s *Store) AppliedAlerts(_ context.Context) ([]engine.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Alert, len(s.applied))
	copy(out, s.applied)
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func copySnapshot(snap engine.Snapshot) engine.Snapshot {
	out := engine.Snapshot{
		Points:      make(engine.PointBalances, len(snap.Points)),
		Commitments: append([]engine.FloatEvent{}, snap.Commitments...),
	}
	for pos, pts := range snap.Points {
		out.Points[pos] = pts
	}
	for _, py := range snap.Plan {
		out.Plan = append(out.Plan, engine.PlanYear{
			Year:    py.Year,
			Actions: append([]engine.PlanAction{}, py.Actions...),
		})
	}
	return out
}

// removeFromPlan drops the position's actions from one year. Years left
// empty are dropped entirely.
func removeFromPlan(plan engine.Plan, pos engine.Position, year int) engine.Plan {
	var out engine.Plan
	for _, py := range plan {
		if py.Year != year {
			out = append(out, py)
			continue
		}
		var kept []engine.PlanAction
		for _, a := range py.Actions {
			if a.Position() != pos {
				kept = append(kept, a)
			}
		}
		if len(kept) > 0 {
			out = append(out, engine.PlanYear{Year: py.Year, Actions: kept})
		}
	}
	return out
}
