/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with timecards in
  every stage of the workflow. Each scenario goes through the service, so
  the data it creates obeys the same rules as client requests.

AVAILABLE SCENARIOS:
  fresh-draft:     One draft with a week of lines, ready to submit
  pending-review:  A submitted timecard waiting for a reviewer
  approved-week:   A timecard approved by a manager
  sent-back:       A rejected timecard and a cancelled resubmission

USAGE VIA API:
  GET  /scenarios
  POST /scenarios/load
  {"scenario_id": "pending-review"}

ADDING NEW SCENARIOS:
  1. Add to 'scenarios' slice with ID, name, description
  2. Add a loader to 'scenarioLoaders'

NOTE:
  Scenarios add data and never clear the store. Approved and rejected
  timecards cannot be deleted afterwards. Only use in development/demo
  environments.

SEE ALSO:
  - handlers.go: Handler and error mapping
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/timesheets/timecard"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the body of POST /scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse lists the timecards a scenario created.
type LoadScenarioResponse struct {
	Scenario  string        `json:"scenario"`
	Timecards []TimecardDTO `json:"timecards"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-draft",
		Name:        "Fresh Draft",
		Description: "Draft with a full week of lines, ready to submit",
	},
	{
		ID:          "pending-review",
		Name:        "Pending Review",
		Description: "Submitted timecard waiting for approval or rejection",
	},
	{
		ID:          "approved-week",
		Name:        "Approved Week",
		Description: "Timecard submitted by its owner and approved by a manager",
	},
	{
		ID:          "sent-back",
		Name:        "Sent Back",
		Description: "Rejected timecard plus a resubmission the owner cancelled",
	},
}

var scenarioLoaders = map[string]func(context.Context, *timecard.Service) ([]timecard.ID, error){
	"fresh-draft":    loadFreshDraftScenario,
	"pending-review": loadPendingReviewScenario,
	"approved-week":  loadApprovedWeekScenario,
	"sent-back":      loadSentBackScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario creates the timecards of a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}

	ids, err := load(r.Context(), h.Service)
	if err != nil {
		h.writeServiceError(w, r, "Failed to load scenario", err)
		return
	}

	resp := LoadScenarioResponse{Scenario: req.ScenarioID, Timecards: make([]TimecardDTO, 0, len(ids))}
	for _, id := range ids {
		tc, err := h.Service.Get(r.Context(), id)
		if err != nil {
			h.writeServiceError(w, r, "Failed to load scenario", err)
			return
		}
		resp.Timecards = append(resp.Timecards, toTimecardDTO(tc))
	}

	h.logger.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID),
		zap.Int("timecards", len(ids)))
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// LOADERS
// =============================================================================

// draftWeek opens a draft for resource with eight hours on each weekday
// of the ISO week that contains monday.
func draftWeek(ctx context.Context, svc *timecard.Service, resource, project string, monday time.Time) (timecard.ID, error) {
	tc, err := svc.Create(ctx, resource)
	if err != nil {
		return "", err
	}
	for i := 0; i < 5; i++ {
		_, err := svc.AddLine(ctx, tc.ID, timecard.LineInput{
			WorkDate: monday.AddDate(0, 0, i),
			Hours:    decimal.NewFromInt(8),
			Project:  project,
		})
		if err != nil {
			return "", err
		}
	}
	return tc.ID, nil
}

// lastMonday returns the Monday of the previous ISO week.
func lastMonday() time.Time {
	year, week := time.Now().UTC().AddDate(0, 0, -7).ISOWeek()
	return timecard.DateFromISOWeek(year, week, time.Monday)
}

func loadFreshDraftScenario(ctx context.Context, svc *timecard.Service) ([]timecard.ID, error) {
	id, err := draftWeek(ctx, svc, "alice", "apollo", lastMonday())
	if err != nil {
		return nil, err
	}
	return []timecard.ID{id}, nil
}

func loadPendingReviewScenario(ctx context.Context, svc *timecard.Service) ([]timecard.ID, error) {
	id, err := draftWeek(ctx, svc, "bob", "gemini", lastMonday())
	if err != nil {
		return nil, err
	}
	if _, err := svc.Submit(ctx, id, "bob"); err != nil {
		return nil, err
	}
	return []timecard.ID{id}, nil
}

func loadApprovedWeekScenario(ctx context.Context, svc *timecard.Service) ([]timecard.ID, error) {
	id, err := draftWeek(ctx, svc, "alice", "apollo", lastMonday().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	if _, err := svc.Submit(ctx, id, "alice"); err != nil {
		return nil, err
	}
	if _, err := svc.Approve(ctx, id, "carol"); err != nil {
		return nil, err
	}
	return []timecard.ID{id}, nil
}

func loadSentBackScenario(ctx context.Context, svc *timecard.Service) ([]timecard.ID, error) {
	monday := lastMonday()

	rejected, err := draftWeek(ctx, svc, "dave", "mercury", monday)
	if err != nil {
		return nil, err
	}
	if _, err := svc.Submit(ctx, rejected, "dave"); err != nil {
		return nil, err
	}
	if _, err := svc.Reject(ctx, rejected, "carol", "hours booked to a closed project"); err != nil {
		return nil, err
	}

	resubmitted, err := draftWeek(ctx, svc, "dave", "gemini", monday)
	if err != nil {
		return nil, err
	}
	if _, err := svc.Submit(ctx, resubmitted, "dave"); err != nil {
		return nil, err
	}
	if _, err := svc.Cancel(ctx, resubmitted, "dave", "duplicate of a corrected timecard"); err != nil {
		return nil, err
	}

	return []timecard.ID{rejected, resubmitted}, nil
}
