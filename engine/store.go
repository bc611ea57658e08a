/*
store.go - Persistence interface for the apply layer

PURPOSE:
  The engine computes effects; a store applies them. This interface is
  the contract between the two. Implementations load the read-only
  snapshot a cascade is computed against and apply a CascadeResult
  atomically: balances mutated, capital reclassified, plan years removed
  or flagged, alerts recorded for audit.

SINGLE-WRITER DISCIPLINE:
  Two cascades computed against the same stale snapshot and both applied
  would silently double-mutate. Serializing writes is the store's
  obligation, not the engine's; implementations surface violations as
  ErrSnapshotConflict instead of applying blindly.

IMPLEMENTATIONS:
  - store/sqlite: production store, single DB transaction per apply
  - store/memory: in-memory store for tests and dev
*/
package engine

import "context"

// Store loads snapshots and applies cascade results atomically.
type Store interface {
	// Snapshot returns the current plan, balances, and commitments.
	Snapshot(ctx context.Context) (Snapshot, error)

	// ReplaceSnapshot seeds or resets the stored world state.
	ReplaceSnapshot(ctx context.Context, snap Snapshot) error

	// Apply writes every mutation of one CascadeResult atomically:
	// all of it lands or none of it does. Point mutations that would
	// drive a balance negative mean the snapshot drifted since the
	// cascade was computed; the apply fails with ErrSnapshotConflict.
	Apply(ctx context.Context, result CascadeResult) error

	// AppliedAlerts returns the audit trail of alerts from applied
	// cascades, oldest first.
	AppliedAlerts(ctx context.Context) ([]Alert, error)
}
