/*
errors.go - Centralized error types

PURPOSE:
  The engine itself never errors on well-typed input: missing rules mean
  skip, zero budgets mean full prune, empty plans mean empty results.
  The errors here belong to the surrounding layers - stores applying a
  CascadeResult and factories parsing rule tables - kept in one place
  for consistency and discoverability.

USAGE:
  Callers match with errors.Is:

    if errors.Is(err, engine.ErrUnknownJurisdiction) { ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownJurisdiction is returned by rule-table factories when a
	// rule file references a jurisdiction without a code.
	ErrUnknownJurisdiction = errors.New("unknown jurisdiction")

	// ErrInvalidRuleTable is returned when a loaded rule table fails
	// structural validation (bad system, bad rounding policy, negative
	// forfeiture timer).
	ErrInvalidRuleTable = errors.New("invalid rule table")

	// ErrSnapshotConflict is returned by stores when an apply races a
	// concurrent write. Cascades must be applied under a single-writer
	// discipline; this surfaces a violation instead of double-applying.
	ErrSnapshotConflict = errors.New("snapshot modified since cascade was computed")

	// ErrPositionNotFound is returned by stores when a mutation names a
	// position the balance table does not carry.
	ErrPositionNotFound = errors.New("position not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleTableError pinpoints the jurisdiction and field that failed
// validation in a loaded rule file.
type RuleTableError struct {
	Jurisdiction string
	Field        string
	Detail       string
}

func (e *RuleTableError) Error() string {
	return fmt.Sprintf("rule table %s: %s: %s", e.Jurisdiction, e.Field, e.Detail)
}

func (e *RuleTableError) Unwrap() error { return ErrInvalidRuleTable }

// NegativeBalanceError reports an apply that would take a balance below
// zero. The engine guarantees it never emits such a mutation; seeing
// this error means the snapshot drifted between compute and apply.
type NegativeBalanceError struct {
	Position Position
	Balance  int
	Delta    int
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("applying delta %d to %s balance %d would go negative",
		e.Delta, e.Position, e.Balance)
}

func (e *NegativeBalanceError) Unwrap() error { return ErrSnapshotConflict }
