/*
Package timecard implements the timesheet approval workflow.

PURPOSE:
  A Timecard is one person's timesheet. It is drafted, filled with lines
  (hours against a project on a date), submitted, and finally resolved by
  cancellation, rejection or approval. Every status change is recorded in
  an append-only transition log together with the resource that caused it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Status: Where the timecard is in its lifecycle
  - Operation: The mutations the state machine guards
  - Document: The causal record of a transition (who did what)
  - Transition: One entry of the transition log

LIFECYCLE:
  ┌───────┐  submit  ┌───────────┐  approve  ┌──────────┐
  │ draft │ ───────▶ │ submitted │ ────────▶ │ approved │
  └───────┘          └───────────┘           └──────────┘
      │                 │     │   reject    ┌──────────┐
      │     cancel      │     └───────────▶ │ rejected │
      └────────┬────────┘                   └──────────┘
               ▼
         ┌───────────┐
         │ cancelled │
         └───────────┘

SEGREGATION OF DUTY:
  Submit and cancel are self-service: only the owner may perform them.
  Approve and reject are adjudication: the owner may NOT perform them.

SEE ALSO:
  - timecard.go: The aggregate and its state machine
  - lines.go: Line management within a draft
  - service.go: Repository access with per-timecard serialization
*/
package timecard

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ID string
type LineID string

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusApproved  Status = "approved"
)

// IsTerminal reports whether no operation leads out of the status.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRejected || s == StatusApproved
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusCancelled, StatusRejected, StatusApproved:
		return true
	}
	return false
}

// =============================================================================
// OPERATIONS
// =============================================================================

type Operation string

const (
	OpAddLine     Operation = "add line to"
	OpReplaceLine Operation = "replace line of"
	OpUpdateLine  Operation = "update line of"
	OpSubmit      Operation = "submit"
	OpCancel      Operation = "cancel"
	OpReject      Operation = "reject"
	OpApprove     Operation = "approve"
	OpDelete      Operation = "delete"
)

// =============================================================================
// DOCUMENTS - The causal record attached to each transition
// =============================================================================

type DocumentKind string

const (
	DocEntered      DocumentKind = "entered"
	DocSubmittal    DocumentKind = "submittal"
	DocCancellation DocumentKind = "cancellation"
	DocRejection    DocumentKind = "rejection"
	DocApproval     DocumentKind = "approval"
)

// Target returns the status a document of this kind transitions to.
// Entered carries no status change and returns "".
func (k DocumentKind) Target() Status {
	switch k {
	case DocSubmittal:
		return StatusSubmitted
	case DocCancellation:
		return StatusCancelled
	case DocRejection:
		return StatusRejected
	case DocApproval:
		return StatusApproved
	default:
		return ""
	}
}

// KindFor returns the document kind whose target is the given status.
func KindFor(s Status) (DocumentKind, bool) {
	for _, k := range []DocumentKind{DocSubmittal, DocCancellation, DocRejection, DocApproval} {
		if k.Target() == s {
			return k, true
		}
	}
	return "", false
}

// Document identifies who initiated a transition.
type Document struct {
	Kind     DocumentKind
	Resource string
	Reason   string // optional, used by cancellation and rejection
}

// =============================================================================
// TRANSITION - One entry of the append-only log
// =============================================================================

type Transition struct {
	TransitionedTo Status // "" for the initial entered record
	OccurredAt     time.Time
	Document       Document
}

// ChangesStatus reports whether the transition carries a status change.
func (t Transition) ChangesStatus() bool {
	return t.TransitionedTo != ""
}
