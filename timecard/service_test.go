package timecard_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/warp/timesheets/timecard"
	"github.com/warp/timesheets/timecard/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestService(t *testing.T) (*timecard.Service, *store.Memory, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	repo := store.NewMemory()
	svc := timecard.NewService(repo,
		timecard.WithClock(stepClock()),
		timecard.WithLogger(zap.New(core)))
	return svc, repo, logs
}

func jan(day int) time.Time {
	return timecard.NewDate(2024, time.January, day)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestService_CreateAddSubmit(t *testing.T) {
	svc, _, logs := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusDraft, tc.Status())
	assert.Len(t, tc.Transitions(), 1)

	_, err = svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)

	tr, err := svc.Submit(ctx, tc.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusSubmitted, tr.TransitionedTo)

	got, err := svc.Get(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusSubmitted, got.Status())

	assert.Equal(t, 1, logs.FilterMessage("timecard transitioned").Len())
}

func TestService_SubmitByOtherResource_LeavesDraft(t *testing.T) {
	svc, _, logs := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, tc.ID, "bob")
	assert.ErrorIs(t, err, timecard.ErrActorMismatch)

	got, err := svc.Get(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusDraft, got.Status())
	assert.Len(t, got.Transitions(), 1)
	assert.Equal(t, 1, logs.FilterMessage("timecard operation rejected").Len())
}

func TestService_SubmitEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, tc.ID, "alice")
	assert.ErrorIs(t, err, timecard.ErrEmptyTimecard)
}

func TestService_ApproveRequiresOtherResource(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, tc.ID, "alice")
	require.NoError(t, err)

	_, err = svc.Approve(ctx, tc.ID, "alice")
	assert.ErrorIs(t, err, timecard.ErrActorMismatch)

	_, err = svc.Approve(ctx, tc.ID, "carol")
	require.NoError(t, err)

	tr, err := svc.Approval(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", tr.Document.Resource)
}

func TestService_ApprovedIsFrozen(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, tc.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, tc.ID, "carol")
	require.NoError(t, err)

	_, err = svc.AddLine(ctx, tc.ID, line(jan(3), 8, "P1"))
	assert.ErrorIs(t, err, timecard.ErrInvalidState)

	err = svc.Delete(ctx, tc.ID)
	assert.ErrorIs(t, err, timecard.ErrInvalidState)
	assert.Equal(t, 1, repo.Len())
}

func TestService_DetailQueries(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.Submittal(ctx, tc.ID)
	assert.ErrorIs(t, err, timecard.ErrMissingTransition)
	_, err = svc.Cancellation(ctx, tc.ID)
	assert.ErrorIs(t, err, timecard.ErrMissingTransition)
	_, err = svc.Rejection(ctx, tc.ID)
	assert.ErrorIs(t, err, timecard.ErrMissingTransition)

	_, err = svc.Cancel(ctx, tc.ID, "alice", "duplicate")
	require.NoError(t, err)
	tr, err := svc.Cancellation(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, "duplicate", tr.Document.Reason)
}

func TestService_RejectRecordsReason(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, tc.ID, "alice")
	require.NoError(t, err)

	_, err = svc.Reject(ctx, tc.ID, "carol", "wrong project")
	require.NoError(t, err)

	tr, err := svc.Rejection(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusRejected, tr.TransitionedTo)
	assert.Equal(t, "wrong project", tr.Document.Reason)
}

// =============================================================================
// LINES
// =============================================================================

func TestService_LineLifecycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	first, err := svc.AddLine(ctx, tc.ID, line(jan(3), 8, "P1"))
	require.NoError(t, err)
	second, err := svc.AddLine(ctx, tc.ID, line(jan(2), 4, "P2"))
	require.NoError(t, err)

	lines, err := svc.Lines(ctx, tc.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, second.ID, lines[0].ID)
	assert.Equal(t, first.ID, lines[1].ID)

	_, err = svc.ReplaceLine(ctx, tc.ID, first.ID, line(jan(1), 2, "P3"))
	require.NoError(t, err)

	week := 2
	updated, err := svc.UpdateLine(ctx, tc.ID, second.ID, timecard.LineUpdate{Week: &week})
	require.NoError(t, err)
	assert.Equal(t, jan(9), updated.WorkDate)

	lines, err = svc.Lines(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, lines[0].ID)
	assert.Equal(t, "P3", lines[0].Project)
	assert.Equal(t, second.ID, lines[1].ID)
}

func TestService_RejectedLineChangeLeavesNoTrace(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	l, err := svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)

	bad := decimal.NewFromInt(-3)
	project := "P2"
	_, err = svc.UpdateLine(ctx, tc.ID, l.ID, timecard.LineUpdate{Project: &project, Hours: &bad})
	assert.ErrorIs(t, err, timecard.ErrInvalidLine)

	lines, err := svc.Lines(ctx, tc.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "P1", lines[0].Project)
}

func TestService_UnknownIDs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, timecard.ErrNotFound)
	_, err = svc.Submit(ctx, "missing", "alice")
	assert.ErrorIs(t, err, timecard.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "missing"), timecard.ErrNotFound)

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.ReplaceLine(ctx, tc.ID, "missing", line(jan(2), 8, "P1"))
	assert.ErrorIs(t, err, timecard.ErrNotFound)
}

// =============================================================================
// LIST AND DELETE
// =============================================================================

func TestService_ListOrderedByOpened(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	var ids []timecard.ID
	for _, who := range []string{"alice", "bob", "carol"} {
		tc, err := svc.Create(ctx, who)
		require.NoError(t, err)
		ids = append(ids, tc.ID)
	}

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, tc := range all {
		assert.Equal(t, ids[i], tc.ID)
	}
}

func TestService_DeleteDraftAndCancelled(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	cancelled, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, cancelled.ID, "alice", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, draft.ID))
	require.NoError(t, svc.Delete(ctx, cancelled.ID))
	assert.Zero(t, repo.Len())
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestService_ConcurrentSubmits_ExactlyOneWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc.ID, line(jan(2), 8, "P1"))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Submit(ctx, tc.ID, "alice")
			switch {
			case err == nil:
				succeeded.Add(1)
			case timecard.ConflictKind(err) == timecard.KindInvalidState:
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(19), conflicts.Load())

	got, err := svc.Get(ctx, tc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Transitions(), 2)
}

func TestService_ConcurrentAddLines_NoneLost(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddLine(ctx, tc.ID, line(jan(2), 1, "P1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.LineCount())
	assert.Equal(t, "25", got.TotalHours().String())
}
