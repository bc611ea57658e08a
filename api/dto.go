/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

EVENT ENCODING:
  Events arrive as one JSON object with a "kind" discriminator; the
  decoder maps it onto the engine's closed event union. Unknown kinds
  are a 400, not a silent default.

MONEY ENCODING:
  Dollar amounts cross the wire as plain JSON numbers and are converted
  to decimal at the boundary. The engine never does float math.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/event.go: The event union these DTOs decode into
*/
package api

import (
	"fmt"

	"github.com/warp/draw-cascade/engine"
)

// =============================================================================
// SHARED TYPES
// =============================================================================

// PositionDTO is a jurisdiction+category pair.
type PositionDTO struct {
	Jurisdiction string `json:"jurisdiction"`
	Category     string `json:"category"`
}

func (p PositionDTO) toEngine() engine.Position {
	return engine.Position{Jurisdiction: p.Jurisdiction, Category: p.Category}
}

func toPositionDTO(p engine.Position) PositionDTO {
	return PositionDTO{Jurisdiction: p.Jurisdiction, Category: p.Category}
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// EVENT DECODING
// =============================================================================

// EventRequest is the wire form of one life event. Kind selects the
// variant; the other fields are read per kind.
type EventRequest struct {
	Kind string `json:"kind"`

	// draw_outcome, deadline_missed
	Position *PositionDTO `json:"position,omitempty"`
	Year     int          `json:"year,omitempty"`
	Awarded  bool         `json:"awarded,omitempty"`

	// deadline_missed
	PointsAtRisk bool `json:"points_at_risk,omitempty"`

	// budget_change
	OldBudget *float64 `json:"old_budget,omitempty"`
	NewBudget *float64 `json:"new_budget,omitempty"`

	// profile_change
	NewHorizonYear    *int     `json:"new_horizon_year,omitempty"`
	NewFloatTolerance *float64 `json:"new_float_tolerance,omitempty"`
	NewActivityStyle  *string  `json:"new_activity_style,omitempty"`

	// party_change
	Jurisdiction       string `json:"jurisdiction,omitempty"`
	MemberPoints       []int  `json:"member_points,omitempty"`
	RemovedMemberIndex *int   `json:"removed_member_index,omitempty"`
}

// toEvent maps the wire form onto the engine's event union.
func (e EventRequest) toEvent() (engine.Event, error) {
	switch e.Kind {
	case "draw_outcome":
		if e.Position == nil {
			return nil, fmt.Errorf("draw_outcome requires position")
		}
		return engine.DrawOutcomeEvent{
			Position: e.Position.toEngine(),
			Year:     e.Year,
			Awarded:  e.Awarded,
		}, nil

	case "budget_change":
		if e.OldBudget == nil || e.NewBudget == nil {
			return nil, fmt.Errorf("budget_change requires old_budget and new_budget")
		}
		return engine.BudgetChangeEvent{
			OldBudget: engine.NewMoney(*e.OldBudget),
			NewBudget: engine.NewMoney(*e.NewBudget),
		}, nil

	case "profile_change":
		ev := engine.ProfileChangeEvent{
			NewHorizonYear:   e.NewHorizonYear,
			NewActivityStyle: e.NewActivityStyle,
		}
		if e.NewFloatTolerance != nil {
			tolerance := engine.NewMoney(*e.NewFloatTolerance)
			ev.NewFloatTolerance = &tolerance
		}
		return ev, nil

	case "deadline_missed":
		if e.Position == nil {
			return nil, fmt.Errorf("deadline_missed requires position")
		}
		return engine.DeadlineMissedEvent{
			Position:     e.Position.toEngine(),
			Year:         e.Year,
			PointsAtRisk: e.PointsAtRisk,
		}, nil

	case "party_change":
		if e.Jurisdiction == "" {
			return nil, fmt.Errorf("party_change requires jurisdiction")
		}
		return engine.PartyChangeEvent{
			Jurisdiction:       e.Jurisdiction,
			MemberPoints:       e.MemberPoints,
			RemovedMemberIndex: e.RemovedMemberIndex,
		}, nil

	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// =============================================================================
// CASCADE RESULT
// =============================================================================

// CascadeResultDTO is the full effect set of one dispatched event.
type CascadeResultDTO struct {
	PointMutations           []PointMutationDTO           `json:"point_mutations"`
	CapitalReclassifications []CapitalReclassificationDTO `json:"capital_reclassifications"`
	PlanInvalidations        []PlanInvalidationDTO        `json:"plan_invalidations"`
	Alerts                   []AlertDTO                   `json:"alerts"`
	ScheduleConflicts        []ScheduleConflictDTO        `json:"schedule_conflicts"`
}

type PointMutationDTO struct {
	Position PositionDTO `json:"position"`
	Previous int         `json:"previous"`
	New      int         `json:"new"`
	Reason   string      `json:"reason,omitempty"`
}

type CapitalReclassificationDTO struct {
	Position PositionDTO `json:"position"`
	Amount   float64     `json:"amount"`
	From     string      `json:"from"`
	To       string      `json:"to"`
	Reason   string      `json:"reason,omitempty"`
}

type PlanInvalidationDTO struct {
	Position PositionDTO `json:"position"`
	Year     int         `json:"year"`
	Action   string      `json:"action"`
	Reason   string      `json:"reason,omitempty"`
}

type AlertDTO struct {
	Severity       string      `json:"severity"`
	Position       PositionDTO `json:"position"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation,omitempty"`
}

type ScheduleConflictDTO struct {
	Year     int         `json:"year"`
	Position PositionDTO `json:"position"`
	Detail   string      `json:"detail"`
}

func toResultDTO(result engine.CascadeResult) CascadeResultDTO {
	dto := CascadeResultDTO{
		PointMutations:           []PointMutationDTO{},
		CapitalReclassifications: []CapitalReclassificationDTO{},
		PlanInvalidations:        []PlanInvalidationDTO{},
		Alerts:                   []AlertDTO{},
		ScheduleConflicts:        []ScheduleConflictDTO{},
	}
	for _, m := range result.PointMutations {
		dto.PointMutations = append(dto.PointMutations, PointMutationDTO{
			Position: toPositionDTO(m.Position), Previous: m.Previous, New: m.New, Reason: m.Reason,
		})
	}
	for _, rc := range result.CapitalReclassifications {
		amount, _ := rc.Amount.Value.Float64()
		dto.CapitalReclassifications = append(dto.CapitalReclassifications, CapitalReclassificationDTO{
			Position: toPositionDTO(rc.Position), Amount: amount,
			From: string(rc.From), To: string(rc.To), Reason: rc.Reason,
		})
	}
	for _, inv := range result.PlanInvalidations {
		dto.PlanInvalidations = append(dto.PlanInvalidations, PlanInvalidationDTO{
			Position: toPositionDTO(inv.Position), Year: inv.Year,
			Action: string(inv.Action), Reason: inv.Reason,
		})
	}
	for _, a := range result.Alerts {
		dto.Alerts = append(dto.Alerts, toAlertDTO(a))
	}
	for _, c := range result.ScheduleConflicts {
		dto.ScheduleConflicts = append(dto.ScheduleConflicts, ScheduleConflictDTO{
			Year: c.Year, Position: toPositionDTO(c.Position), Detail: c.Detail,
		})
	}
	return dto
}

func toAlertDTO(a engine.Alert) AlertDTO {
	return AlertDTO{
		Severity:       string(a.Severity),
		Position:       toPositionDTO(a.Position),
		Message:        a.Message,
		Recommendation: a.Recommendation,
	}
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// SnapshotDTO is the full world state, both as a response and as the
// seed body for snapshot replacement.
type SnapshotDTO struct {
	Plan        []PlanYearDTO   `json:"plan"`
	Points      []PointEntryDTO `json:"points"`
	Commitments []FloatEventDTO `json:"commitments"`
}

type PlanYearDTO struct {
	Year    int             `json:"year"`
	Actions []PlanActionDTO `json:"actions"`
}

type PlanActionDTO struct {
	Type         string  `json:"type"`
	Jurisdiction string  `json:"jurisdiction"`
	Category     string  `json:"category"`
	Cost         float64 `json:"cost"`
	DueDate      string  `json:"due_date,omitempty"` // RFC 3339
	Days         int     `json:"days,omitempty"`
}

type PointEntryDTO struct {
	Position PositionDTO `json:"position"`
	Points   int         `json:"points"`
}

type FloatEventDTO struct {
	Label       string      `json:"label"`
	Position    PositionDTO `json:"position"`
	Amount      float64     `json:"amount"`
	Start       string      `json:"start"` // RFC 3339
	End         string      `json:"end"`
	Recoverable bool        `json:"recoverable"`
}

// =============================================================================
// ODDS
// =============================================================================

// OddsDTO is the response of the odds endpoint.
type OddsDTO struct {
	Jurisdiction       string        `json:"jurisdiction"`
	System             string        `json:"system"`
	UserPoints         int           `json:"user_points"`
	RequiredPoints     int           `json:"required_points"`
	Quota              int           `json:"quota"`
	AnnualOdds         float64       `json:"annual_odds"`
	YearsToLikelyAward int           `json:"years_to_likely_award"`
	CumulativeOdds     float64       `json:"cumulative_odds,omitempty"`
	MedianAwardYear    int           `json:"median_award_year,omitempty"`
	YearByYear         []YearOddsDTO `json:"year_by_year,omitempty"`
}

type YearOddsDTO struct {
	Year       int     `json:"year"`
	Cumulative float64 `json:"cumulative"`
}

// =============================================================================
// GROUP AVERAGE
// =============================================================================

// GroupAverageRequest asks for a party's effective standing.
type GroupAverageRequest struct {
	Jurisdiction       string `json:"jurisdiction"`
	MemberPoints       []int  `json:"member_points"`
	RemovedMemberIndex *int   `json:"removed_member_index,omitempty"`
}

// GroupAverageDTO is the party-average response.
type GroupAverageDTO struct {
	RawAverage      float64           `json:"raw_average"`
	EffectivePoints float64           `json:"effective_points"`
	Method          string            `json:"method"`
	PointLoss       float64           `json:"point_loss"`
	Warning         *AlertDTO         `json:"warning,omitempty"`
	RemovalImpact   *RemovalImpactDTO `json:"removal_impact,omitempty"`
}

type RemovalImpactDTO struct {
	BeforeEffective float64 `json:"before_effective"`
	AfterEffective  float64 `json:"after_effective"`
	PointDelta      float64 `json:"point_delta"`
	Tier            string  `json:"tier"`
}

func toGroupAverageDTO(avg engine.GroupAverage) GroupAverageDTO {
	raw, _ := avg.RawAverage.Float64()
	effective, _ := avg.EffectivePoints.Float64()
	loss, _ := avg.PointLoss.Float64()
	dto := GroupAverageDTO{
		RawAverage:      raw,
		EffectivePoints: effective,
		Method:          string(avg.Method),
		PointLoss:       loss,
	}
	if avg.Warning != nil {
		w := toAlertDTO(*avg.Warning)
		dto.Warning = &w
	}
	return dto
}

// =============================================================================
// RULES
// =============================================================================

// RuleDTO is one jurisdiction's rule table in API responses.
type RuleDTO struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	System        string   `json:"system"`
	Rounding      string   `json:"rounding"`
	InactiveYears int      `json:"forfeiture_inactive_years,omitempty"`
	Bans          []BanDTO `json:"bans,omitempty"`
	AppFee        float64  `json:"app_fee"`
	TagFee        float64  `json:"tag_fee"`
	TagFeeUpfront bool     `json:"tag_fee_upfront,omitempty"`
}

type BanDTO struct {
	Category  string `json:"category"`
	BanYears  int    `json:"ban_years"`
	Permanent bool   `json:"permanent"`
}

func toRuleDTO(r engine.JurisdictionRule) RuleDTO {
	appFee, _ := r.Fees.AppFee.Value.Float64()
	tagFee, _ := r.Fees.TagFee.Value.Float64()
	dto := RuleDTO{
		Code:          r.Code,
		Name:          r.Name,
		System:        string(r.System),
		Rounding:      string(r.Rounding),
		AppFee:        appFee,
		TagFee:        tagFee,
		TagFeeUpfront: r.Fees.TagFeeUpfront,
	}
	if r.Forfeiture != nil {
		dto.InactiveYears = r.Forfeiture.InactiveYears
	}
	for _, b := range r.Bans {
		dto.Bans = append(dto.Bans, BanDTO{
			Category: b.Category, BanYears: b.BanYears, Permanent: b.Permanent(),
		})
	}
	return dto
}
