package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timesheets/store/sqlite"
	"github.com/warp/timesheets/timecard"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var opened = time.Date(2024, time.January, 8, 9, 0, 0, 123456789, time.UTC)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addLine(t *testing.T, tc *timecard.Timecard, day int, hours string, project string, at time.Time) timecard.AnnotatedLine {
	l, err := tc.AddLine(timecard.LineInput{
		WorkDate: timecard.NewDate(2024, time.January, day),
		Hours:    decimal.RequireFromString(hours),
		Project:  project,
	}, at)
	require.NoError(t, err)
	return l
}

// =============================================================================
// ROUND TRIP
// =============================================================================

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tc := timecard.New("alice", opened)
	first := addLine(t, tc, 3, "7.5", "P1", opened.Add(time.Minute))
	second := addLine(t, tc, 2, "0.25", "P2", opened.Add(2*time.Minute))
	require.NoError(t, store.Add(ctx, tc))

	got, err := store.Find(ctx, tc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, tc.ID, got.ID)
	assert.Equal(t, "alice", got.Resource)
	assert.True(t, opened.Equal(got.Opened))
	assert.Equal(t, timecard.StatusDraft, got.Status())

	raw := got.RawLines()
	require.Len(t, raw, 2)
	assert.Equal(t, first.ID, raw[0].ID)
	assert.Equal(t, second.ID, raw[1].ID)
	assert.Equal(t, "7.5", raw[0].Hours.String())
	assert.Equal(t, timecard.NewDate(2024, time.January, 3), raw[0].WorkDate)
	assert.True(t, opened.Add(time.Minute).Equal(raw[0].Recorded))

	log := got.Transitions()
	require.Len(t, log, 1)
	assert.Equal(t, timecard.DocEntered, log[0].Document.Kind)
	assert.False(t, log[0].ChangesStatus())
}

func TestStore_FindUnknown_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.Find(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_AddDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tc := timecard.New("alice", opened)
	require.NoError(t, store.Add(ctx, tc))
	assert.ErrorIs(t, store.Add(ctx, tc), timecard.ErrDuplicateID)
}

// =============================================================================
// SAVE
// =============================================================================

func TestStore_SaveAppendsTransitionsAndReplacesLines(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tc := timecard.New("alice", opened)
	l := addLine(t, tc, 2, "8", "P1", opened.Add(time.Minute))
	require.NoError(t, store.Add(ctx, tc))

	_, err := tc.ReplaceLine(l.ID, timecard.LineInput{
		WorkDate: timecard.NewDate(2024, time.January, 4),
		Hours:    decimal.NewFromInt(6),
		Project:  "P2",
	}, opened.Add(2*time.Minute))
	require.NoError(t, err)
	_, err = tc.Submit("alice", opened.Add(3*time.Minute))
	require.NoError(t, err)
	_, err = tc.Reject("carol", "wrong project", opened.Add(4*time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, tc))

	got, err := store.Find(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusRejected, got.Status())

	raw := got.RawLines()
	require.Len(t, raw, 1)
	assert.Equal(t, l.ID, raw[0].ID)
	assert.Equal(t, "P2", raw[0].Project)

	log := got.Transitions()
	require.Len(t, log, 3)
	assert.Equal(t, timecard.StatusSubmitted, log[1].TransitionedTo)
	assert.Equal(t, "carol", log[2].Document.Resource)
	assert.Equal(t, "wrong project", log[2].Document.Reason)
}

func TestStore_SaveRefusesShorterLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tc := timecard.New("alice", opened)
	addLine(t, tc, 2, "8", "P1", opened.Add(time.Minute))
	stale := tc.Clone()
	_, err := tc.Submit("alice", opened.Add(2*time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, tc))

	assert.Error(t, store.Save(ctx, stale))

	got, err := store.Find(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, timecard.StatusSubmitted, got.Status())
}

func TestStore_SaveUnknown_NotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.Save(context.Background(), timecard.New("alice", opened))
	assert.ErrorIs(t, err, timecard.ErrNotFound)
}

// =============================================================================
// ALL AND DELETE
// =============================================================================

func TestStore_AllAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := timecard.New("alice", opened)
	addLine(t, a, 2, "8", "P1", opened)
	b := timecard.New("bob", opened.Add(time.Hour))
	require.NoError(t, store.Add(ctx, a))
	require.NoError(t, store.Add(ctx, b))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	byID := map[timecard.ID]*timecard.Timecard{}
	for _, tc := range all {
		byID[tc.ID] = tc
	}
	assert.Equal(t, 1, byID[a.ID].LineCount())
	assert.Zero(t, byID[b.ID].LineCount())

	require.NoError(t, store.Delete(ctx, a.ID))
	assert.ErrorIs(t, store.Delete(ctx, a.ID), timecard.ErrNotFound)

	all, err = store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timesheets.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	tc := timecard.New("alice", opened)
	addLine(t, tc, 2, "8", "P1", opened)
	require.NoError(t, store.Add(ctx, tc))
	require.NoError(t, store.Close())

	store, err = sqlite.New(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Find(ctx, tc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.LineCount())
}

func TestStore_WithService(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	svc := timecard.NewService(store)

	tc, err := svc.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = svc.AddLine(ctx, tc.ID, timecard.LineInput{
		WorkDate: timecard.NewDate(2024, time.January, 2),
		Hours:    decimal.NewFromInt(8),
		Project:  "P1",
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, tc.ID, "alice")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, tc.ID, "carol")
	require.NoError(t, err)

	tr, err := svc.Approval(ctx, tc.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", tr.Document.Resource)
	assert.ErrorIs(t, svc.Delete(ctx, tc.ID), timecard.ErrInvalidState)
}
