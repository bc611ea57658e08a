/*
event.go - The closed event union

PURPOSE:
  Defines the five life-event kinds the dispatcher handles. The union is
  sealed: every event type embeds the unexported marker method, so no
  package outside engine can add a kind the dispatcher does not know.
  The dispatch site type-switches over these concrete types and treats
  an unknown kind as a programming error surfaced via an alert, so the
  set of handled kinds and the set of defined kinds cannot drift apart.

EVENT KINDS:
  DrawOutcomeEvent    a draw result came in (awarded or not)
  BudgetChangeEvent   the annual activity budget moved
  ProfileChangeEvent  horizon / float tolerance / activity style changed
  DeadlineMissedEvent an application or payment deadline passed
  PartyChangeEvent    group composition changed

Events carry every date they need. The engine never reads the clock.
*/
package engine

// EventKind names an event type for logging and wire formats.
type EventKind string

const (
	KindDrawOutcome    EventKind = "draw_outcome"
	KindBudgetChange   EventKind = "budget_change"
	KindProfileChange  EventKind = "profile_change"
	KindDeadlineMissed EventKind = "deadline_missed"
	KindPartyChange    EventKind = "party_change"
)

// Event is the sealed union of everything that can trigger a cascade.
type Event interface {
	Kind() EventKind
	sealedEvent()
}

// =============================================================================
// DRAW OUTCOME
// =============================================================================

// DrawOutcomeEvent is a draw result for one position.
type DrawOutcomeEvent struct {
	Position Position
	Year     int
	Awarded  bool
}

func (DrawOutcomeEvent) Kind() EventKind { return KindDrawOutcome }
func (DrawOutcomeEvent) sealedEvent()    {}

// =============================================================================
// BUDGET CHANGE
// =============================================================================

// BudgetChangeEvent moves the annual activity budget.
type BudgetChangeEvent struct {
	OldBudget Money
	NewBudget Money
}

func (BudgetChangeEvent) Kind() EventKind { return KindBudgetChange }
func (BudgetChangeEvent) sealedEvent()    {}

// Decreased reports whether this is a cut.
func (e BudgetChangeEvent) Decreased() bool { return e.NewBudget.LessThan(e.OldBudget) }

// =============================================================================
// PROFILE CHANGE
// =============================================================================

// ProfileChangeEvent captures planning-profile edits. Nil fields mean
// "unchanged"; any combination may arrive in one event.
type ProfileChangeEvent struct {
	// NewHorizonYear invalidates plan years beyond it when it shortens
	// the forward-planning window.
	NewHorizonYear *int

	// NewFloatTolerance is a reduced tolerance for concurrent float.
	NewFloatTolerance *Money

	// NewActivityStyle is a changed activity style/category; advisory.
	NewActivityStyle *string
}

func (ProfileChangeEvent) Kind() EventKind { return KindProfileChange }
func (ProfileChangeEvent) sealedEvent()    {}

// =============================================================================
// DEADLINE MISSED
// =============================================================================

// DeadlineMissedEvent records a blown application/payment deadline.
type DeadlineMissedEvent struct {
	Position     Position
	Year         int
	PointsAtRisk bool
}

func (DeadlineMissedEvent) Kind() EventKind { return KindDeadlineMissed }
func (DeadlineMissedEvent) sealedEvent()    {}

// =============================================================================
// PARTY CHANGE
// =============================================================================

// PartyChangeEvent is a group-application composition change.
// RemovedMemberIndex, when non-nil, points into MemberPoints at the
// member who is leaving; the dispatcher reports the re-averaged delta.
type PartyChangeEvent struct {
	Jurisdiction       string
	MemberPoints       []int
	RemovedMemberIndex *int
}

func (PartyChangeEvent) Kind() EventKind { return KindPartyChange }
func (PartyChangeEvent) sealedEvent()    {}
