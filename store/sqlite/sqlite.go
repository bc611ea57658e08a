/*
Package sqlite provides a SQLite-backed engine.Store.

PURPOSE:
  Persists the world state (plan, point balances, capital commitments)
  and applies cascade results in a single database transaction. The same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

ATOMIC APPLY:
  Apply runs inside one transaction: point mutations, plan-year
  removals, commitment reclassifications, and the alert audit trail all
  land together or not at all. A mutation that would drive a balance
  negative rolls the whole apply back with ErrSnapshotConflict.

KEY TABLES:
  plan_actions:    The multi-year schedule, one row per action
  point_balances:  Accumulated points per jurisdiction+category
  commitments:     Floating capital windows
  applied_alerts:  Audit trail of alerts from applied cascades

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time, better crash
  recovery.

USAGE:
  store, err := sqlite.New("./data/cascade.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/draw-cascade/engine"
)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ engine.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- The multi-year schedule, one row per scheduled action
	CREATE TABLE IF NOT EXISTS plan_actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		action_type TEXT NOT NULL,
		jurisdiction TEXT NOT NULL,
		category TEXT NOT NULL,
		cost TEXT NOT NULL,
		due_date TEXT,
		days INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_plan_actions_year
		ON plan_actions(year);
	CREATE INDEX IF NOT EXISTS idx_plan_actions_position
		ON plan_actions(jurisdiction, category);

	-- Accumulated points per position
	CREATE TABLE IF NOT EXISTS point_balances (
		jurisdiction TEXT NOT NULL,
		category TEXT NOT NULL,
		points INTEGER NOT NULL CHECK (points >= 0),
		PRIMARY KEY (jurisdiction, category)
	);

	-- Floating capital windows
	CREATE TABLE IF NOT EXISTS commitments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		label TEXT NOT NULL,
		jurisdiction TEXT NOT NULL,
		category TEXT NOT NULL,
		amount TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		recoverable BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Audit trail of alerts from applied cascades
	CREATE TABLE IF NOT EXISTS applied_alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		severity TEXT NOT NULL,
		jurisdiction TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		recommendation TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot loads the full world state.
func (s *Store) Snapshot(ctx context.Context) (engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := engine.Snapshot{Points: engine.PointBalances{}}

	plan, err := s.loadPlan(ctx)
	if err != nil {
		return snap, err
	}
	snap.Plan = plan

	rows, err := s.db.QueryContext(ctx,
		"SELECT jurisdiction, category, points FROM point_balances ORDER BY jurisdiction, category")
	if err != nil {
		return snap, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos engine.Position
		var points int
		if err := rows.Scan(&pos.Jurisdiction, &pos.Category, &points); err != nil {
			return snap, err
		}
		snap.Points[pos] = points
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	commitments, err := s.loadCommitments(ctx)
	if err != nil {
		return snap, err
	}
	snap.Commitments = commitments

	return snap, nil
}

func (s *Store) loadPlan(ctx context.Context) (engine.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT year, action_type, jurisdiction, category, cost, due_date, days
		FROM plan_actions
		ORDER BY year ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	defer rows.Close()

	var plan engine.Plan
	for rows.Next() {
		var (
			year    int
			a       engine.PlanAction
			cost    string
			dueDate sql.NullString
		)
		if err := rows.Scan(&year, &a.Type, &a.Jurisdiction, &a.Category, &cost, &dueDate, &a.Days); err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, fmt.Errorf("bad cost %q: %w", cost, err)
		}
		a.Cost = engine.Money{Value: value}
		if dueDate.Valid && dueDate.String != "" {
			a.DueDate, _ = time.Parse(time.RFC3339, dueDate.String)
		}

		if len(plan) == 0 || plan[len(plan)-1].Year != year {
			plan = append(plan, engine.PlanYear{Year: year})
		}
		plan[len(plan)-1].Actions = append(plan[len(plan)-1].Actions, a)
	}
	return plan, rows.Err()
}

func (s *Store) loadCommitments(ctx context.Context) ([]engine.FloatEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, jurisdiction, category, amount, start_at, end_at, recoverable
		FROM commitments
		ORDER BY start_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query commitments: %w", err)
	}
	defer rows.Close()

	var events []engine.FloatEvent
	for rows.Next() {
		var (
			f          engine.FloatEvent
			amount     string
			start, end string
		)
		if err := rows.Scan(&f.Label, &f.Position.Jurisdiction, &f.Position.Category,
			&amount, &start, &end, &f.Recoverable); err != nil {
			return nil, err
		}
		value, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad amount %q: %w", amount, err)
		}
		f.Amount = engine.Money{Value: value}
		f.Start, _ = time.Parse(time.RFC3339, start)
		f.End, _ = time.Parse(time.RFC3339, end)
		events = append(events, f)
	}
	return events, rows.Err()
}

// ReplaceSnapshot wipes and reseeds the world state in one transaction.
func (s *Store) ReplaceSnapshot(ctx context.Context, snap engine.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"plan_actions", "point_balances", "commitments"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for _, py := range snap.Plan {
		for _, a := range py.Actions {
			if err := insertAction(ctx, tx, py.Year, a); err != nil {
				return err
			}
		}
	}

	for _, pos := range snap.Points.SortedPositions() {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO point_balances (jurisdiction, category, points) VALUES (?, ?, ?)",
			pos.Jurisdiction, pos.Category, snap.Points[pos])
		if err != nil {
			return err
		}
	}

	for _, f := range snap.Commitments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO commitments (label, jurisdiction, category, amount, start_at, end_at, recoverable)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.Label, f.Position.Jurisdiction, f.Position.Category,
			f.Amount.Value.String(),
			f.Start.UTC().Format(time.RFC3339), f.End.UTC().Format(time.RFC3339),
			f.Recoverable)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertAction(ctx context.Context, tx *sql.Tx, year int, a engine.PlanAction) error {
	var dueDate any
	if !a.DueDate.IsZero() {
		dueDate = a.DueDate.UTC().Format(time.RFC3339)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO plan_actions (year, action_type, jurisdiction, category, cost, due_date, days)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		year, a.Type, a.Jurisdiction, a.Category, a.Cost.Value.String(), dueDate, a.Days)
	return err
}

// =============================================================================
// APPLY
// =============================================================================

// Apply writes one cascade result in a single transaction.
func (s *Store) Apply(ctx context.Context, result engine.CascadeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range result.PointMutations {
		if err := applyMutation(ctx, tx, m); err != nil {
			return err
		}
	}

	for _, inv := range result.PlanInvalidations {
		if inv.Action != engine.InvalidationRemove {
			continue
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM plan_actions WHERE year = ? AND jurisdiction = ? AND category = ?",
			inv.Year, inv.Position.Jurisdiction, inv.Position.Category)
		if err != nil {
			return err
		}
	}

	for _, rc := range result.CapitalReclassifications {
		_, err := tx.ExecContext(ctx,
			"UPDATE commitments SET recoverable = ? WHERE jurisdiction = ? AND category = ?",
			rc.To == engine.CapitalRecoverable,
			rc.Position.Jurisdiction, rc.Position.Category)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range result.Alerts {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO applied_alerts (severity, jurisdiction, category, message, recommendation, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.Severity, a.Position.Jurisdiction, a.Position.Category,
			a.Message, a.Recommendation, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func applyMutation(ctx context.Context, tx *sql.Tx, m engine.PointMutation) error {
	var balance int
	err := tx.QueryRowContext(ctx,
		"SELECT points FROM point_balances WHERE jurisdiction = ? AND category = ?",
		m.Position.Jurisdiction, m.Position.Category).Scan(&balance)
	if err == sql.ErrNoRows {
		balance = 0
	} else if err != nil {
		return err
	}

	delta := m.New - m.Previous
	if balance+delta < 0 {
		return &engine.NegativeBalanceError{Position: m.Position, Balance: balance, Delta: delta}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO point_balances (jurisdiction, category, points)
		VALUES (?, ?, ?)
		ON CONFLICT(jurisdiction, category) DO UPDATE SET points = excluded.points`,
		m.Position.Jurisdiction, m.Position.Category, balance+delta)
	return err
}

// AppliedAlerts returns the audit trail, oldest first.
func (s *Store) AppliedAlerts(ctx context.Context) ([]engine.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, jurisdiction, category, message, recommendation
		FROM applied_alerts
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []engine.Alert
	for rows.Next() {
		var a engine.Alert
		if err := rows.Scan(&a.Severity, &a.Position.Jurisdiction, &a.Position.Category,
			&a.Message, &a.Recommendation); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
