/*
handlers.go - HTTP API handlers for the cascade engine

PURPOSE:
  Exposes the cascade engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine and
  the store.

ENDPOINTS:
  Cascade:
    POST   /api/cascade           Compute a cascade (dry run, nothing applied)
    POST   /api/cascade/apply     Compute and apply atomically

  Analysis:
    GET    /api/odds              Draw-odds estimate for one position
    GET    /api/purge-risk        Forfeiture-timer scan of the snapshot
    POST   /api/group/average     Party point averaging

  State:
    GET    /api/snapshot          Current world state
    POST   /api/snapshot          Replace world state (seed/reset)
    GET    /api/alerts            Audit trail of applied alerts

  Rules:
    GET    /api/rules             All jurisdiction rule tables
    GET    /api/rules/{code}      One jurisdiction

ARCHITECTURE:
  Handler holds the store, the injected rule table, and the planner
  config. The dispatcher itself is stateless; one is built per handler
  and shared across requests.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown jurisdiction
  - 409: Snapshot conflict on apply
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - engine/dispatcher.go: The logic behind POST /api/cascade
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/draw-cascade/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      engine.Store
	Rules      engine.RuleSet
	Dispatcher engine.Dispatcher
	Logger     *zap.Logger
}

// NewHandler creates a handler around a store and rule table.
func NewHandler(store engine.Store, rules engine.RuleSet, cfg engine.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:      store,
		Rules:      rules,
		Dispatcher: engine.NewDispatcher(rules, cfg),
		Logger:     logger,
	}
}

// =============================================================================
// CASCADE HANDLERS
// =============================================================================

// ComputeCascade dispatches one event against the stored snapshot and
// returns the effects without applying anything.
// POST /api/cascade
func (h *Handler) ComputeCascade(w http.ResponseWriter, r *http.Request) {
	result, ok := h.dispatchFromRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// ApplyCascade dispatches one event and applies the result atomically.
// POST /api/cascade/apply
func (h *Handler) ApplyCascade(w http.ResponseWriter, r *http.Request) {
	result, ok := h.dispatchFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.Store.Apply(r.Context(), result); err != nil {
		if errors.Is(err, engine.ErrSnapshotConflict) {
			writeError(w, http.StatusConflict, "Snapshot changed since cascade was computed", err)
			return
		}
		h.Logger.Error("cascade apply failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to apply cascade", err)
		return
	}

	writeJSON(w, http.StatusOK, toResultDTO(result))
}

func (h *Handler) dispatchFromRequest(w http.ResponseWriter, r *http.Request) (engine.CascadeResult, bool) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return engine.CascadeResult{}, false
	}

	ev, err := req.toEvent()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event", err)
		return engine.CascadeResult{}, false
	}

	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.Logger.Error("snapshot load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return engine.CascadeResult{}, false
	}

	result := h.Dispatcher.Dispatch(ev, snap)
	h.Logger.Info("cascade dispatched",
		zap.String("kind", string(ev.Kind())),
		zap.Int("mutations", len(result.PointMutations)),
		zap.Int("invalidations", len(result.PlanInvalidations)),
		zap.Int("alerts", len(result.Alerts)),
	)
	return result, true
}

// =============================================================================
// ODDS HANDLER
// =============================================================================

// GetOdds estimates annual and cumulative draw odds for one position.
// GET /api/odds?jurisdiction=WY&points=4&required=8&quota=100&horizon=10
func (h *Handler) GetOdds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	jurisdiction := q.Get("jurisdiction")
	rule, ok := h.Rules.Rule(jurisdiction)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown jurisdiction %q", jurisdiction), nil)
		return
	}

	points, err := queryInt(q.Get("points"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid points", err)
		return
	}
	required, err := queryInt(q.Get("required"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid required", err)
		return
	}
	quota, err := queryInt(q.Get("quota"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quota", err)
		return
	}
	horizon, err := queryInt(q.Get("horizon"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid horizon", err)
		return
	}

	estimate := engine.ComputeOdds(rule.System, points, required, quota)

	dto := OddsDTO{
		Jurisdiction:       jurisdiction,
		System:             string(rule.System),
		UserPoints:         points,
		RequiredPoints:     required,
		Quota:              quota,
		AnnualOdds:         estimate.OddsThisYear,
		YearsToLikelyAward: estimate.YearsToLikelyAward,
	}

	if horizon > 0 {
		cumulative := engine.ComputeCumulativeOdds(estimate.OddsThisYear, horizon)
		dto.CumulativeOdds = cumulative.CumulativeOdds
		dto.MedianAwardYear = cumulative.MedianAwardYear
		for _, y := range cumulative.YearByYear {
			dto.YearByYear = append(dto.YearByYear, YearOddsDTO{
				Year: y.Year, Cumulative: y.Cumulative,
			})
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// PURGE-RISK HANDLER
// =============================================================================

// GetPurgeRisk runs the forfeiture-timer scan over the stored snapshot
// and returns the resulting alerts.
// GET /api/purge-risk
func (h *Handler) GetPurgeRisk(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.Logger.Error("snapshot load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	alerts := engine.ScanForPurgeRisk(snap.PointPositions(), h.Rules, snap.Plan)
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// GROUP HANDLER
// =============================================================================

// AverageGroup computes a party's effective standing, optionally with
// the impact of removing one member.
// POST /api/group/average
func (h *Handler) AverageGroup(w http.ResponseWriter, r *http.Request) {
	var req GroupAverageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Jurisdiction == "" {
		writeError(w, http.StatusBadRequest, "jurisdiction is required", nil)
		return
	}

	dto := toGroupAverageDTO(engine.AverageGroup(req.Jurisdiction, req.MemberPoints, h.Rules))

	if req.RemovedMemberIndex != nil {
		impact, ok := engine.AverageAfterRemoval(req.Jurisdiction, req.MemberPoints, *req.RemovedMemberIndex, h.Rules)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid removed_member_index", nil)
			return
		}
		before, _ := impact.Before.EffectivePoints.Float64()
		after, _ := impact.After.EffectivePoints.Float64()
		delta, _ := impact.PointDelta.Float64()
		dto.RemovalImpact = &RemovalImpactDTO{
			BeforeEffective: before,
			AfterEffective:  after,
			PointDelta:      delta,
			Tier:            string(impact.Tier),
		}
	}

	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// SNAPSHOT HANDLERS
// =============================================================================

// GetSnapshot returns the current world state.
// GET /api/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.Logger.Error("snapshot load failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// ReplaceSnapshot seeds or resets the world state.
// POST /api/snapshot
func (h *Handler) ReplaceSnapshot(w http.ResponseWriter, r *http.Request) {
	var dto SnapshotDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	snap, err := fromSnapshotDTO(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid snapshot", err)
		return
	}

	if err := h.Store.ReplaceSnapshot(r.Context(), snap); err != nil {
		h.Logger.Error("snapshot replace failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to replace snapshot", err)
		return
	}

	h.Logger.Info("snapshot replaced",
		zap.Int("plan_years", len(snap.Plan)),
		zap.Int("positions", len(snap.Points)),
	)
	writeJSON(w, http.StatusOK, toSnapshotDTO(snap))
}

// GetAlerts returns the audit trail of applied alerts, oldest first.
// GET /api/alerts
func (h *Handler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Store.AppliedAlerts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load alerts", err)
		return
	}
	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns every jurisdiction rule table, sorted by code.
// GET /api/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	dtos := make([]RuleDTO, 0, len(h.Rules))
	for _, code := range h.Rules.Codes() {
		dtos = append(dtos, toRuleDTO(h.Rules[code]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRule returns one jurisdiction's rule table.
// GET /api/rules/{code}
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rule, ok := h.Rules.Rule(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown jurisdiction %q", code), nil)
		return
	}
	writeJSON(w, http.StatusOK, toRuleDTO(rule))
}

// =============================================================================
// SNAPSHOT CONVERSION
// =============================================================================

func toSnapshotDTO(snap engine.Snapshot) SnapshotDTO {
	dto := SnapshotDTO{
		Plan:        []PlanYearDTO{},
		Points:      []PointEntryDTO{},
		Commitments: []FloatEventDTO{},
	}

	for _, py := range snap.Plan {
		yearDTO := PlanYearDTO{Year: py.Year, Actions: []PlanActionDTO{}}
		for _, a := range py.Actions {
			cost, _ := a.Cost.Value.Float64()
			actionDTO := PlanActionDTO{
				Type:         string(a.Type),
				Jurisdiction: a.Jurisdiction,
				Category:     a.Category,
				Cost:         cost,
				Days:         a.Days,
			}
			if !a.DueDate.IsZero() {
				actionDTO.DueDate = a.DueDate.UTC().Format(time.RFC3339)
			}
			yearDTO.Actions = append(yearDTO.Actions, actionDTO)
		}
		dto.Plan = append(dto.Plan, yearDTO)
	}

	for _, pos := range snap.Points.SortedPositions() {
		dto.Points = append(dto.Points, PointEntryDTO{
			Position: toPositionDTO(pos), Points: snap.Points[pos],
		})
	}

	for _, f := range snap.Commitments {
		amount, _ := f.Amount.Value.Float64()
		dto.Commitments = append(dto.Commitments, FloatEventDTO{
			Label:       f.Label,
			Position:    toPositionDTO(f.Position),
			Amount:      amount,
			Start:       f.Start.UTC().Format(time.RFC3339),
			End:         f.End.UTC().Format(time.RFC3339),
			Recoverable: f.Recoverable,
		})
	}

	return dto
}

func fromSnapshotDTO(dto SnapshotDTO) (engine.Snapshot, error) {
	snap := engine.Snapshot{Points: engine.PointBalances{}}

	for _, yearDTO := range dto.Plan {
		py := engine.PlanYear{Year: yearDTO.Year}
		for _, actionDTO := range yearDTO.Actions {
			a := engine.PlanAction{
				Type:         engine.ActionType(actionDTO.Type),
				Jurisdiction: actionDTO.Jurisdiction,
				Category:     actionDTO.Category,
				Cost:         engine.NewMoney(actionDTO.Cost),
				Days:         actionDTO.Days,
			}
			if actionDTO.DueDate != "" {
				due, err := time.Parse(time.RFC3339, actionDTO.DueDate)
				if err != nil {
					return snap, fmt.Errorf("bad due_date %q: %w", actionDTO.DueDate, err)
				}
				a.DueDate = due
			}
			py.Actions = append(py.Actions, a)
		}
		snap.Plan = append(snap.Plan, py)
	}

	for _, entry := range dto.Points {
		if entry.Points < 0 {
			return snap, fmt.Errorf("negative balance for %s/%s",
				entry.Position.Jurisdiction, entry.Position.Category)
		}
		snap.Points[entry.Position.toEngine()] = entry.Points
	}

	for _, f := range dto.Commitments {
		start, err := time.Parse(time.RFC3339, f.Start)
		if err != nil {
			return snap, fmt.Errorf("bad start %q: %w", f.Start, err)
		}
		end, err := time.Parse(time.RFC3339, f.End)
		if err != nil {
			return snap, fmt.Errorf("bad end %q: %w", f.End, err)
		}
		snap.Commitments = append(snap.Commitments, engine.FloatEvent{
			Label:       f.Label,
			Position:    f.Position.toEngine(),
			Amount:      engine.NewMoney(f.Amount),
			Start:       start,
			End:         end,
			Recoverable: f.Recoverable,
		})
	}

	return snap, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
