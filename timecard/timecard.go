/*
timecard.go - The timecard aggregate and its state machine

PURPOSE:
  Owns the lines and the transition log of one timecard and enforces
  which mutations are legal in which status, and by whom.

TRANSITION RULES:
  ┌──────────────┬──────────────────────┬──────────────┬──────────────┐
  │ Document     │ Allowed from         │ Actor        │ Extra        │
  ├──────────────┼──────────────────────┼──────────────┼──────────────┤
  │ submittal    │ draft                │ == owner     │ >= 1 line    │
  │ cancellation │ draft, submitted     │ == owner     │              │
  │ rejection    │ submitted            │ != owner     │              │
  │ approval     │ submitted            │ != owner     │              │
  └──────────────┴──────────────────────┴──────────────┴──────────────┘

  Checks run in this order: actor, status, lines. The first failing
  check decides the error. Nothing is mutated unless all checks pass.

STATUS:
  Status is not stored. It is the target of the most recent transition
  that carries a status change, so it can never drift from the log.

CONCURRENCY:
  A Timecard is not safe for concurrent use. The Service serializes all
  mutations of one timecard and hands out clones to readers.
*/
package timecard

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var newID = uuid.NewString

// Timecard is the aggregate root.
type Timecard struct {
	ID       ID
	Resource string
	Opened   time.Time

	lines       []Line
	transitions []Transition
}

// New opens a draft timecard for resource and logs the entered record.
func New(resource string, at time.Time) *Timecard {
	return &Timecard{
		ID:       ID(newID()),
		Resource: resource,
		Opened:   at,
		transitions: []Transition{{
			OccurredAt: at,
			Document:   Document{Kind: DocEntered, Resource: resource},
		}},
	}
}

// Restore rebuilds a timecard from persisted state.
// Lines are in storage order; transitions in log order.
func Restore(id ID, resource string, opened time.Time, lines []Line, transitions []Transition) (*Timecard, error) {
	if len(transitions) == 0 || transitions[0].Document.Kind != DocEntered {
		return nil, fmt.Errorf("timecard %s: transition log must start with an entered record", id)
	}
	for _, t := range transitions {
		if t.ChangesStatus() && !t.TransitionedTo.Valid() {
			return nil, fmt.Errorf("timecard %s: unknown status %q in transition log", id, t.TransitionedTo)
		}
	}
	return &Timecard{
		ID:          id,
		Resource:    resource,
		Opened:      opened,
		lines:       append([]Line(nil), lines...),
		transitions: append([]Transition(nil), transitions...),
	}, nil
}

// Clone returns a deep copy.
func (tc *Timecard) Clone() *Timecard {
	c := *tc
	c.lines = append([]Line(nil), tc.lines...)
	c.transitions = append([]Transition(nil), tc.transitions...)
	return &c
}

// Status returns the target of the last status-bearing transition.
func (tc *Timecard) Status() Status {
	for i := len(tc.transitions) - 1; i >= 0; i-- {
		if tc.transitions[i].ChangesStatus() {
			return tc.transitions[i].TransitionedTo
		}
	}
	return StatusDraft
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Lines returns the annotated lines sorted by (WorkDate, Recorded).
func (tc *Timecard) Lines() []AnnotatedLine {
	out := make([]AnnotatedLine, len(tc.lines))
	for i, l := range tc.lines {
		out[i] = l.Annotate()
	}
	sortLines(out)
	return out
}

// RawLines returns the lines in storage order.
func (tc *Timecard) RawLines() []Line {
	return append([]Line(nil), tc.lines...)
}

func (tc *Timecard) LineCount() int { return len(tc.lines) }

// TotalHours sums the hours of all lines.
func (tc *Timecard) TotalHours() decimal.Decimal {
	total := decimal.Zero
	for _, l := range tc.lines {
		total = total.Add(l.Hours)
	}
	return total
}

// Transitions returns the log in insertion order.
func (tc *Timecard) Transitions() []Transition {
	return append([]Transition(nil), tc.transitions...)
}

// LineIndex returns the storage position of a line, or NoLine.
func (tc *Timecard) LineIndex(id LineID) int {
	for i, l := range tc.lines {
		if l.ID == id {
			return i
		}
	}
	return NoLine
}

// LatestTransition returns the most recent transition to target.
// It fails with MissingTransitionError unless the timecard is currently
// in the target status.
func (tc *Timecard) LatestTransition(target Status) (Transition, error) {
	current := tc.Status()
	if current != target {
		return Transition{}, &MissingTransitionError{Want: target, Status: current}
	}

	var (
		latest Transition
		found  bool
	)
	for _, t := range tc.transitions {
		if t.TransitionedTo != target {
			continue
		}
		// Equal timestamps resolve to the later log entry.
		if !found || !t.OccurredAt.Before(latest.OccurredAt) {
			latest, found = t, true
		}
	}
	if !found {
		return Transition{}, &MissingTransitionError{Want: target, Status: current}
	}
	return latest, nil
}

// =============================================================================
// LINE MUTATIONS - draft only
// =============================================================================

func (tc *Timecard) requireDraft(op Operation) error {
	if s := tc.Status(); s != StatusDraft {
		return &InvalidStateError{Op: op, Status: s}
	}
	return nil
}

// AddLine appends a new line with a fresh id.
func (tc *Timecard) AddLine(in LineInput, at time.Time) (AnnotatedLine, error) {
	if err := tc.requireDraft(OpAddLine); err != nil {
		return AnnotatedLine{}, err
	}
	if err := in.validate(); err != nil {
		return AnnotatedLine{}, err
	}

	line := Line{
		ID:       LineID(newID()),
		WorkDate: Date(in.WorkDate),
		Hours:    in.Hours,
		Project:  in.Project,
		Recorded: at,
	}
	tc.lines = append(tc.lines, line)
	return line.Annotate(), nil
}

// ReplaceLine overwrites a line's content, keeping its id.
func (tc *Timecard) ReplaceLine(id LineID, in LineInput, at time.Time) (AnnotatedLine, error) {
	if err := tc.requireDraft(OpReplaceLine); err != nil {
		return AnnotatedLine{}, err
	}
	i := tc.LineIndex(id)
	if i == NoLine {
		return AnnotatedLine{}, &NotFoundError{TimecardID: tc.ID, LineID: id}
	}
	if err := in.validate(); err != nil {
		return AnnotatedLine{}, err
	}

	tc.lines[i] = Line{
		ID:       id,
		WorkDate: Date(in.WorkDate),
		Hours:    in.Hours,
		Project:  in.Project,
		Recorded: at,
	}
	return tc.lines[i].Annotate(), nil
}

// UpdateLine applies a partial update to a line.
func (tc *Timecard) UpdateLine(id LineID, u LineUpdate, at time.Time) (AnnotatedLine, error) {
	if err := tc.requireDraft(OpUpdateLine); err != nil {
		return AnnotatedLine{}, err
	}
	i := tc.LineIndex(id)
	if i == NoLine {
		return AnnotatedLine{}, &NotFoundError{TimecardID: tc.ID, LineID: id}
	}

	updated, err := u.apply(tc.lines[i])
	if err != nil {
		return AnnotatedLine{}, err
	}
	updated.Recorded = at
	tc.lines[i] = updated
	return updated.Annotate(), nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

type rule struct {
	op            Operation
	from          []Status
	ownerOnly     bool // false: owner is forbidden
	requiresLines bool
}

var rules = map[DocumentKind]rule{
	DocSubmittal:    {op: OpSubmit, from: []Status{StatusDraft}, ownerOnly: true, requiresLines: true},
	DocCancellation: {op: OpCancel, from: []Status{StatusDraft, StatusSubmitted}, ownerOnly: true},
	DocRejection:    {op: OpReject, from: []Status{StatusSubmitted}},
	DocApproval:     {op: OpApprove, from: []Status{StatusSubmitted}},
}

// Apply validates doc against the state machine and, if legal, appends
// the transition it causes.
func (tc *Timecard) Apply(doc Document, at time.Time) (Transition, error) {
	r, ok := rules[doc.Kind]
	if !ok {
		return Transition{}, fmt.Errorf("timecard: %q is not a transition document", doc.Kind)
	}

	if isOwner := doc.Resource == tc.Resource; isOwner != r.ownerOnly {
		return Transition{}, &ActorMismatchError{
			Op:          r.op,
			Actor:       doc.Resource,
			Owner:       tc.Resource,
			MustBeOwner: r.ownerOnly,
		}
	}

	current := tc.Status()
	if !containsStatus(r.from, current) {
		return Transition{}, &InvalidStateError{Op: r.op, Status: current}
	}

	if r.requiresLines && len(tc.lines) == 0 {
		return Transition{}, &EmptyTimecardError{TimecardID: tc.ID}
	}

	t := Transition{
		TransitionedTo: doc.Kind.Target(),
		OccurredAt:     at,
		Document:       doc,
	}
	tc.transitions = append(tc.transitions, t)
	return t, nil
}

func (tc *Timecard) Submit(actor string, at time.Time) (Transition, error) {
	return tc.Apply(Document{Kind: DocSubmittal, Resource: actor}, at)
}

func (tc *Timecard) Cancel(actor, reason string, at time.Time) (Transition, error) {
	return tc.Apply(Document{Kind: DocCancellation, Resource: actor, Reason: reason}, at)
}

func (tc *Timecard) Reject(actor, reason string, at time.Time) (Transition, error) {
	return tc.Apply(Document{Kind: DocRejection, Resource: actor, Reason: reason}, at)
}

func (tc *Timecard) Approve(actor string, at time.Time) (Transition, error) {
	return tc.Apply(Document{Kind: DocApproval, Resource: actor}, at)
}

// CheckDelete reports whether the timecard may be removed.
// Only drafts and cancelled timecards can be deleted.
func (tc *Timecard) CheckDelete() error {
	if s := tc.Status(); s != StatusDraft && s != StatusCancelled {
		return &InvalidStateError{Op: OpDelete, Status: s}
	}
	return nil
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
