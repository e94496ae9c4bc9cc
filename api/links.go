package api

import (
	"net/http"

	"github.com/warp/timesheets/timecard"
)

// rootLinks lists every entry point of the API.
var rootLinks = []LinkDTO{
	{Rel: "timesheets", Method: http.MethodGet, Href: "/timesheets"},
	{Rel: "timesheets", Method: http.MethodPost, Href: "/timesheets"},
	{Rel: "timesheet", Method: http.MethodGet, Href: "/timesheets/{timesheetId}"},
	{Rel: "timesheet", Method: http.MethodDelete, Href: "/timesheets/{timesheetId}"},
	{Rel: "lines", Method: http.MethodGet, Href: "/timesheets/{timesheetId}/lines"},
	{Rel: "lines", Method: http.MethodPost, Href: "/timesheets/{timesheetId}/lines"},
	{Rel: "line", Method: http.MethodPost, Href: "/timesheets/{timesheetId}/lines/{lineId}"},
	{Rel: "line", Method: http.MethodPatch, Href: "/timesheets/{timesheetId}/lines/{lineId}"},
	{Rel: "transitions", Method: http.MethodGet, Href: "/timesheets/{timesheetId}/transitions"},
	{Rel: "submittal", Method: http.MethodPost, Href: "/timesheets/{timesheetId}/submittal"},
	{Rel: "submittal", Method: http.MethodGet, Href: "/timesheets/{timesheetId}/submittal"},
	{Rel: "cancellation", Method: http.MethodPost, Href: "/timesheets/{timesheetId}/cancellation"},
	{Rel: "cancellation", Method: http.MethodGet, Href: "/timesheets/{timesheetId}/cancellation"},
	{Rel: "rejection", Method: http.MethodPost, Href: "/timesheets/{timesheetId}/rejection"},
	{Rel: "rejection", Method: http.MethodGet, Href: "/timesheets/{timesheetId}/rejection"},
	{Rel: "approval", Method: http.MethodPost, Href: "/timesheets/{timesheetId}/approval"},
	{Rel: "approval", Method: http.MethodGet, Href: "/timesheets/{timesheetId}/approval"},
	{Rel: "scenarios", Method: http.MethodGet, Href: "/scenarios"},
	{Rel: "scenarios", Method: http.MethodPost, Href: "/scenarios/load"},
}

// actionsFor returns the requests that are legal in the timecard's
// current status, ignoring who performs them.
func actionsFor(tc *timecard.Timecard) []LinkDTO {
	base := "/timesheets/" + string(tc.ID)
	link := func(rel, method, suffix string) LinkDTO {
		return LinkDTO{Rel: rel, Method: method, Href: base + suffix}
	}

	switch tc.Status() {
	case timecard.StatusDraft:
		actions := []LinkDTO{
			link("lines", http.MethodPost, "/lines"),
			link("cancellation", http.MethodPost, "/cancellation"),
			link("timesheet", http.MethodDelete, ""),
		}
		if tc.LineCount() > 0 {
			actions = append(actions, link("submittal", http.MethodPost, "/submittal"))
		}
		return actions
	case timecard.StatusSubmitted:
		return []LinkDTO{
			link("cancellation", http.MethodPost, "/cancellation"),
			link("rejection", http.MethodPost, "/rejection"),
			link("approval", http.MethodPost, "/approval"),
		}
	case timecard.StatusCancelled:
		return []LinkDTO{link("timesheet", http.MethodDelete, "")}
	default:
		return []LinkDTO{}
	}
}
