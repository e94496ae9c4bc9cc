/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the timecard aggregate from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Timecard:    TimecardDTO, CreateTimecardRequest
  Lines:       LineDTO, LineRequest, LinePatchRequest
  Transitions: TransitionDTO, DocumentDTO, DocumentRequest
  Discovery:   LinkDTO, RootDTO
  Errors:      ErrorResponse

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
  Hours cross the wire as JSON numbers and are held as decimals inside.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/timesheets/timecard"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// TimecardDTO represents a timecard in API responses.
type TimecardDTO struct {
	ID          string          `json:"id"`
	Resource    string          `json:"resource"`
	Status      string          `json:"status"`
	Opened      string          `json:"opened"`
	TotalHours  float64         `json:"total_hours"`
	Lines       []LineDTO       `json:"lines"`
	Transitions []TransitionDTO `json:"transitions"`
	Actions     []LinkDTO       `json:"actions"`
}

// CreateTimecardRequest is the request to open a timecard.
type CreateTimecardRequest struct {
	Resource string `json:"resource"`
}

// LineDTO is an annotated line. The recorded timestamp only drives
// ordering and is not exposed.
type LineDTO struct {
	ID       string  `json:"id"`
	WorkDate string  `json:"work_date"`
	Week     int     `json:"week"`
	Year     int     `json:"year"`
	Day      string  `json:"day"`
	Hours    float64 `json:"hours"`
	Project  string  `json:"project"`
}

// LineRequest is the full content of a line (add and replace).
type LineRequest struct {
	WorkDate string  `json:"work_date"`
	Hours    float64 `json:"hours"`
	Project  string  `json:"project"`
}

// LinePatchRequest is a partial line update; absent fields are unchanged.
type LinePatchRequest struct {
	Week    *int     `json:"week,omitempty"`
	Year    *int     `json:"year,omitempty"`
	Day     *string  `json:"day,omitempty"`
	Hours   *float64 `json:"hours,omitempty"`
	Project *string  `json:"project,omitempty"`
}

// DocumentDTO is the causal document of a transition.
type DocumentDTO struct {
	Kind     string `json:"kind"`
	Resource string `json:"resource"`
	Reason   string `json:"reason,omitempty"`
}

// TransitionDTO is one entry of the transition log.
type TransitionDTO struct {
	TransitionedTo string      `json:"transitioned_to,omitempty"`
	OccurredAt     string      `json:"occurred_at"`
	Document       DocumentDTO `json:"document"`
}

// DocumentRequest is the body of a submittal, cancellation, rejection or
// approval.
type DocumentRequest struct {
	Resource string `json:"resource"`
	Reason   string `json:"reason,omitempty"`
}

// LinkDTO is a hyperlink to a follow-up request.
type LinkDTO struct {
	Rel    string `json:"rel"`
	Method string `json:"method"`
	Href   string `json:"href"`
}

// RootDTO is the discovery document served at "/".
type RootDTO struct {
	Links []LinkDTO `json:"links"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toTimecardDTO(tc *timecard.Timecard) TimecardDTO {
	lines := tc.Lines()
	lineDTOs := make([]LineDTO, len(lines))
	for i, l := range lines {
		lineDTOs[i] = toLineDTO(l)
	}

	return TimecardDTO{
		ID:          string(tc.ID),
		Resource:    tc.Resource,
		Status:      string(tc.Status()),
		Opened:      tc.Opened.Format(time.RFC3339Nano),
		TotalHours:  tc.TotalHours().InexactFloat64(),
		Lines:       lineDTOs,
		Transitions: toTransitionDTOs(tc.Transitions()),
		Actions:     actionsFor(tc),
	}
}

func toLineDTO(l timecard.AnnotatedLine) LineDTO {
	return LineDTO{
		ID:       string(l.ID),
		WorkDate: l.WorkDate.Format(dateLayout),
		Week:     l.Week,
		Year:     l.Year,
		Day:      l.Day.String(),
		Hours:    l.Hours.InexactFloat64(),
		Project:  l.Project,
	}
}

func toTransitionDTO(t timecard.Transition) TransitionDTO {
	return TransitionDTO{
		TransitionedTo: string(t.TransitionedTo),
		OccurredAt:     t.OccurredAt.Format(time.RFC3339Nano),
		Document: DocumentDTO{
			Kind:     string(t.Document.Kind),
			Resource: t.Document.Resource,
			Reason:   t.Document.Reason,
		},
	}
}

func toTransitionDTOs(ts []timecard.Transition) []TransitionDTO {
	dtos := make([]TransitionDTO, len(ts))
	for i, t := range ts {
		dtos[i] = toTransitionDTO(t)
	}
	return dtos
}
