/*
handlers.go - HTTP API handlers for the timesheet workflow

PURPOSE:
  Exposes the timecard service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every rule to package timecard.

ENDPOINTS:
  Discovery:
    GET    /                                   Links to every endpoint

  Timesheets:
    GET    /timesheets                         List, oldest first
    POST   /timesheets                         Open a draft
    GET    /timesheets/{id}                    Get one
    DELETE /timesheets/{id}                    Delete (draft or cancelled)

  Lines:
    GET    /timesheets/{id}/lines              List by (work date, recorded)
    POST   /timesheets/{id}/lines              Add
    POST   /timesheets/{id}/lines/{lineId}     Replace
    PATCH  /timesheets/{id}/lines/{lineId}     Partial update

  Transitions:
    GET    /timesheets/{id}/transitions        Full log
    POST   /timesheets/{id}/{document}         Submit, cancel, reject, approve
    GET    /timesheets/{id}/{document}         Latest transition of that kind

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid line content
  - 404: Timecard or line not found
  - 409: invalid_state, actor_mismatch, empty_timecard, missing_transition
         (the "kind" field tells them apart)
  - 500: Internal errors

SECURITY NOTE:
  The acting resource is taken from the request body as given. There is
  no authentication.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scenarios.go: Demo data endpoints
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/timesheets/timecard"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *timecard.Service
	logger  *zap.Logger
}

// NewHandler creates a new handler around the given service.
func NewHandler(svc *timecard.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, logger: logger}
}

// Root returns the discovery document.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootDTO{Links: rootLinks})
}

// =============================================================================
// TIMESHEET HANDLERS
// =============================================================================

// ListTimesheets returns all timecards ordered by opening time.
func (h *Handler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	all, err := h.Service.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list timesheets", err)
		return
	}

	dtos := make([]TimecardDTO, len(all))
	for i, tc := range all {
		dtos[i] = toTimecardDTO(tc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTimesheet opens a new draft.
func (h *Handler) CreateTimesheet(w http.ResponseWriter, r *http.Request) {
	var req CreateTimecardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Resource) == "" {
		writeError(w, http.StatusBadRequest, "resource is required", nil)
		return
	}

	tc, err := h.Service.Create(r.Context(), req.Resource)
	if err != nil {
		h.writeServiceError(w, r, "Failed to create timesheet", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimecardDTO(tc))
}

// GetTimesheet returns a single timecard.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	tc, err := h.Service.Get(r.Context(), timesheetID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get timesheet", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimecardDTO(tc))
}

// DeleteTimesheet removes a draft or cancelled timecard.
func (h *Handler) DeleteTimesheet(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), timesheetID(r)); err != nil {
		h.writeServiceError(w, r, "Failed to delete timesheet", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LINE HANDLERS
// =============================================================================

// GetLines returns the annotated lines of a timecard.
func (h *Handler) GetLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Service.Lines(r.Context(), timesheetID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get lines", err)
		return
	}

	dtos := make([]LineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toLineDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddLine appends a line to a draft.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeLine(w, r)
	if !ok {
		return
	}

	line, err := h.Service.AddLine(r.Context(), timesheetID(r), in)
	if err != nil {
		h.writeServiceError(w, r, "Failed to add line", err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(line))
}

// ReplaceLine overwrites a line of a draft.
func (h *Handler) ReplaceLine(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeLine(w, r)
	if !ok {
		return
	}

	line, err := h.Service.ReplaceLine(r.Context(), timesheetID(r), lineID(r), in)
	if err != nil {
		h.writeServiceError(w, r, "Failed to replace line", err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(line))
}

// UpdateLine applies a partial update to a line of a draft.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var req LinePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	update := timecard.LineUpdate{
		Week:    req.Week,
		Year:    req.Year,
		Project: req.Project,
	}
	if req.Day != nil {
		day, err := parseWeekday(*req.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid day", err)
			return
		}
		update.Day = &day
	}
	if req.Hours != nil {
		hours := decimal.NewFromFloat(*req.Hours)
		update.Hours = &hours
	}

	line, err := h.Service.UpdateLine(r.Context(), timesheetID(r), lineID(r), update)
	if err != nil {
		h.writeServiceError(w, r, "Failed to update line", err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(line))
}

// =============================================================================
// TRANSITION HANDLERS
// =============================================================================

// GetTransitions returns the transition log in order.
func (h *Handler) GetTransitions(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Service.Transitions(r.Context(), timesheetID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get transitions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransitionDTOs(ts))
}

// Transition returns a handler that applies a document of the given kind.
// POST /timesheets/{id}/submittal, /cancellation, /rejection, /approval
func (h *Handler) Transition(kind timecard.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DocumentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if strings.TrimSpace(req.Resource) == "" {
			writeError(w, http.StatusBadRequest, "resource is required", nil)
			return
		}

		t, err := h.Service.Transition(r.Context(), timesheetID(r), timecard.Document{
			Kind:     kind,
			Resource: req.Resource,
			Reason:   req.Reason,
		})
		if err != nil {
			h.writeServiceError(w, r, fmt.Sprintf("Failed to record %s", kind), err)
			return
		}
		writeJSON(w, http.StatusOK, toTransitionDTO(t))
	}
}

// TransitionDetail returns a handler that reads the latest transition to
// the target status of the given kind.
// GET /timesheets/{id}/submittal, /cancellation, /rejection, /approval
func (h *Handler) TransitionDetail(kind timecard.DocumentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.Service.LatestTransition(r.Context(), timesheetID(r), kind.Target())
		if err != nil {
			h.writeServiceError(w, r, fmt.Sprintf("Failed to get %s", kind), err)
			return
		}
		writeJSON(w, http.StatusOK, toTransitionDTO(t))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func timesheetID(r *http.Request) timecard.ID {
	return timecard.ID(chi.URLParam(r, "id"))
}

func lineID(r *http.Request) timecard.LineID {
	return timecard.LineID(chi.URLParam(r, "lineId"))
}

func decodeLine(w http.ResponseWriter, r *http.Request) (timecard.LineInput, bool) {
	var req LineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return timecard.LineInput{}, false
	}

	workDate, err := time.Parse(dateLayout, req.WorkDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work_date format (use YYYY-MM-DD)", err)
		return timecard.LineInput{}, false
	}

	return timecard.LineInput{
		WorkDate: workDate,
		Hours:    decimal.NewFromFloat(req.Hours),
		Project:  req.Project,
	}, true
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(strings.TrimSpace(s), d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// writeServiceError maps timecard errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var notFound *timecard.NotFoundError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, capitalize(notFound.Error()), nil)
	case timecard.IsConflict(err):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   message,
			Kind:    timecard.ConflictKind(err),
			Details: err.Error(),
		})
	case timecard.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
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
