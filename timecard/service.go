/*
service.go - Timecard workflow over a Repository

PURPOSE:
  Resolves a timecard through the Repository, lets the aggregate validate
  and apply the operation, and persists the result.

WRITE PATH:
  ┌──────────┐   ┌──────────┐   ┌───────────┐   ┌──────────┐
  │ lock(id) │──▶│ Find(id) │──▶│ aggregate │──▶│ Save(tc) │
  └──────────┘   └──────────┘   └───────────┘   └──────────┘

  Every mutation holds the per-id lock from Find to Save, so two
  concurrent submits of one draft cannot both succeed. The repository
  returns copies, so a rejected operation leaves nothing behind.

READ PATH:
  Reads go straight to the repository and see the last committed state.

EXAMPLE:
  svc := timecard.NewService(store.NewMemory(), timecard.WithLogger(logger))
  tc, _ := svc.Create(ctx, "alice")
  svc.AddLine(ctx, tc.ID, timecard.LineInput{...})
  svc.Submit(ctx, tc.ID, "alice")
  svc.Approve(ctx, tc.ID, "carol")
*/
package timecard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Service orchestrates the timecard lifecycle.
type Service struct {
	repo   Repository
	locks  *keyedLocker
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		locks:  newKeyedLocker(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// TIMECARDS
// =============================================================================

// Create opens a new draft for resource.
func (s *Service) Create(ctx context.Context, resource string) (*Timecard, error) {
	tc := New(resource, s.now())
	if err := s.repo.Add(ctx, tc); err != nil {
		return nil, fmt.Errorf("failed to add timecard: %w", err)
	}
	s.logger.Info("timecard entered",
		zap.String("timecard_id", string(tc.ID)),
		zap.String("resource", resource))
	return tc, nil
}

// List returns all timecards ordered by opening time.
func (s *Service) List(ctx context.Context) ([]*Timecard, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list timecards: %w", err)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].Opened.Equal(all[j].Opened) {
			return all[i].Opened.Before(all[j].Opened)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (s *Service) Get(ctx context.Context, id ID) (*Timecard, error) {
	tc, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find timecard: %w", err)
	}
	if tc == nil {
		return nil, &NotFoundError{TimecardID: id}
	}
	return tc, nil
}

// Delete removes a draft or cancelled timecard.
func (s *Service) Delete(ctx context.Context, id ID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := tc.CheckDelete(); err != nil {
		s.rejected(tc, OpDelete, err)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete timecard: %w", err)
	}
	s.logger.Info("timecard deleted",
		zap.String("timecard_id", string(id)),
		zap.String("status", string(tc.Status())))
	return nil
}

// =============================================================================
// LINES
// =============================================================================

// Lines returns the annotated lines of a timecard, sorted.
func (s *Service) Lines(ctx context.Context, id ID) ([]AnnotatedLine, error) {
	tc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return tc.Lines(), nil
}

func (s *Service) AddLine(ctx context.Context, id ID, in LineInput) (AnnotatedLine, error) {
	var line AnnotatedLine
	err := s.mutate(ctx, id, OpAddLine, func(tc *Timecard, at time.Time) (err error) {
		line, err = tc.AddLine(in, at)
		return err
	})
	return line, err
}

func (s *Service) ReplaceLine(ctx context.Context, id ID, lineID LineID, in LineInput) (AnnotatedLine, error) {
	var line AnnotatedLine
	err := s.mutate(ctx, id, OpReplaceLine, func(tc *Timecard, at time.Time) (err error) {
		line, err = tc.ReplaceLine(lineID, in, at)
		return err
	})
	return line, err
}

func (s *Service) UpdateLine(ctx context.Context, id ID, lineID LineID, u LineUpdate) (AnnotatedLine, error) {
	var line AnnotatedLine
	err := s.mutate(ctx, id, OpUpdateLine, func(tc *Timecard, at time.Time) (err error) {
		line, err = tc.UpdateLine(lineID, u, at)
		return err
	})
	return line, err
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Transitions returns the transition log in insertion order.
func (s *Service) Transitions(ctx context.Context, id ID) ([]Transition, error) {
	tc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return tc.Transitions(), nil
}

// Transition applies a transition document to a timecard.
func (s *Service) Transition(ctx context.Context, id ID, doc Document) (Transition, error) {
	var t Transition
	op := rules[doc.Kind].op
	err := s.mutate(ctx, id, op, func(tc *Timecard, at time.Time) (err error) {
		t, err = tc.Apply(doc, at)
		return err
	})
	if err != nil {
		return Transition{}, err
	}
	s.logger.Info("timecard transitioned",
		zap.String("timecard_id", string(id)),
		zap.String("document", string(doc.Kind)),
		zap.String("actor", doc.Resource),
		zap.String("status", string(t.TransitionedTo)))
	return t, nil
}

func (s *Service) Submit(ctx context.Context, id ID, actor string) (Transition, error) {
	return s.Transition(ctx, id, Document{Kind: DocSubmittal, Resource: actor})
}

func (s *Service) Cancel(ctx context.Context, id ID, actor, reason string) (Transition, error) {
	return s.Transition(ctx, id, Document{Kind: DocCancellation, Resource: actor, Reason: reason})
}

func (s *Service) Reject(ctx context.Context, id ID, actor, reason string) (Transition, error) {
	return s.Transition(ctx, id, Document{Kind: DocRejection, Resource: actor, Reason: reason})
}

func (s *Service) Approve(ctx context.Context, id ID, actor string) (Transition, error) {
	return s.Transition(ctx, id, Document{Kind: DocApproval, Resource: actor})
}

// LatestTransition returns the detail of the transition that led to the
// timecard's current status, provided that status is target.
func (s *Service) LatestTransition(ctx context.Context, id ID, target Status) (Transition, error) {
	tc, err := s.Get(ctx, id)
	if err != nil {
		return Transition{}, err
	}
	return tc.LatestTransition(target)
}

func (s *Service) Submittal(ctx context.Context, id ID) (Transition, error) {
	return s.LatestTransition(ctx, id, StatusSubmitted)
}

func (s *Service) Cancellation(ctx context.Context, id ID) (Transition, error) {
	return s.LatestTransition(ctx, id, StatusCancelled)
}

func (s *Service) Rejection(ctx context.Context, id ID) (Transition, error) {
	return s.LatestTransition(ctx, id, StatusRejected)
}

func (s *Service) Approval(ctx context.Context, id ID) (Transition, error) {
	return s.LatestTransition(ctx, id, StatusApproved)
}

// =============================================================================
// HELPERS
// =============================================================================

// mutate runs fn against a fresh copy of the timecard under its lock and
// saves the copy only if fn succeeds.
func (s *Service) mutate(ctx context.Context, id ID, op Operation, fn func(tc *Timecard, at time.Time) error) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(tc, s.now()); err != nil {
		s.rejected(tc, op, err)
		return err
	}
	if err := s.repo.Save(ctx, tc); err != nil {
		return fmt.Errorf("failed to save timecard: %w", err)
	}
	return nil
}

func (s *Service) rejected(tc *Timecard, op Operation, err error) {
	s.logger.Debug("timecard operation rejected",
		zap.String("timecard_id", string(tc.ID)),
		zap.String("operation", string(op)),
		zap.String("status", string(tc.Status())),
		zap.Error(err))
}
