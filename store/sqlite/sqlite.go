/*
Package sqlite provides a SQLite-backed timecard Repository.

PURPOSE:
  Persists whole timecard aggregates: the timecard row, its lines and
  its transition log. The workflow rules live in package timecard; this
  package only stores and rebuilds state.

KEY TABLES:
  timecards:             One row per timecard (id, resource, opened)
  timecard_lines:        Lines in storage order (position)
  timecard_transitions:  Append-only log, keyed by (timecard_id, seq)

APPEND-ONLY LOG:
  Save never rewrites existing transitions. It inserts only the entries
  past the stored log length and fails if the log would shrink. Lines
  are replaced as a set because the aggregate owns them entirely.

ATOMICITY:
  Add, Save and Delete each run in one SQL transaction, so a reader sees
  a timecard either before or after a write, never in between.

CONCURRENCY:
  Uses sync.RWMutex plus a single connection. SQLite serializes writers
  anyway, and ":memory:" databases only exist per connection.

USAGE:
  store, err := sqlite.New("./data/timesheets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := timecard.NewService(store)

SEE ALSO:
  - timecard/store.go: Repository contract
  - timecard/store/memory.go: In-memory implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/timesheets/timecard"
)

const (
	timeLayout = time.RFC3339Nano
	dateLayout = "2006-01-02"
)

// Store implements timecard.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ timecard.Repository = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS timecards (
		id TEXT PRIMARY KEY,
		resource TEXT NOT NULL,
		opened TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_timecards_opened ON timecards(opened);

	CREATE TABLE IF NOT EXISTS timecard_lines (
		timecard_id TEXT NOT NULL REFERENCES timecards(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		work_date TEXT NOT NULL,
		hours TEXT NOT NULL,
		project TEXT NOT NULL,
		recorded TEXT NOT NULL,
		PRIMARY KEY (timecard_id, id)
	);

	CREATE TABLE IF NOT EXISTS timecard_transitions (
		timecard_id TEXT NOT NULL REFERENCES timecards(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		transitioned_to TEXT,
		occurred_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		resource TEXT NOT NULL,
		reason TEXT,
		PRIMARY KEY (timecard_id, seq)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY (timecard.Repository interface)
// =============================================================================

// Find loads one timecard. Returns (nil, nil) if it doesn't exist.
func (s *Store) Find(ctx context.Context, id timecard.ID) (*timecard.Timecard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resource, opened string
	err := s.db.QueryRowContext(ctx,
		"SELECT resource, opened FROM timecards WHERE id = ?", id,
	).Scan(&resource, &opened)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query timecard: %w", err)
	}

	lines, err := s.queryLines(ctx, "WHERE timecard_id = ?", id)
	if err != nil {
		return nil, err
	}
	transitions, err := s.queryTransitions(ctx, "WHERE timecard_id = ?", id)
	if err != nil {
		return nil, err
	}

	return restore(id, resource, opened, lines[id], transitions[id])
}

// All loads every timecard.
func (s *Store) All(ctx context.Context) ([]*timecard.Timecard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, resource, opened FROM timecards ORDER BY opened ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query timecards: %w", err)
	}
	defer rows.Close()

	type header struct {
		id               timecard.ID
		resource, opened string
	}
	var headers []header
	for rows.Next() {
		var h header
		if err := rows.Scan(&h.id, &h.resource, &h.opened); err != nil {
			return nil, fmt.Errorf("failed to scan timecard: %w", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.queryLines(ctx, "")
	if err != nil {
		return nil, err
	}
	transitions, err := s.queryTransitions(ctx, "")
	if err != nil {
		return nil, err
	}

	result := make([]*timecard.Timecard, 0, len(headers))
	for _, h := range headers {
		tc, err := restore(h.id, h.resource, h.opened, lines[h.id], transitions[h.id])
		if err != nil {
			return nil, err
		}
		result = append(result, tc)
	}
	return result, nil
}

// Add inserts a new timecard with its lines and transitions.
func (s *Store) Add(ctx context.Context, tc *timecard.Timecard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO timecards (id, resource, opened) VALUES (?, ?, ?)",
			tc.ID, tc.Resource, tc.Opened.UTC().Format(timeLayout),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return timecard.ErrDuplicateID
			}
			return fmt.Errorf("failed to insert timecard: %w", err)
		}
		if err := insertLines(ctx, tx, tc); err != nil {
			return err
		}
		return insertTransitions(ctx, tx, tc.ID, tc.Transitions(), 0)
	})
}

// Save writes the current lines and appends new transitions.
func (s *Store) Save(ctx context.Context, tc *timecard.Timecard) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var stored int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM timecard_transitions WHERE timecard_id = ?", tc.ID,
		).Scan(&stored)
		if err != nil {
			return fmt.Errorf("failed to count transitions: %w", err)
		}
		if stored == 0 {
			return &timecard.NotFoundError{TimecardID: tc.ID}
		}

		transitions := tc.Transitions()
		if len(transitions) < stored {
			return fmt.Errorf("timecard %s: transition log is append-only (stored %d, got %d)",
				tc.ID, stored, len(transitions))
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM timecard_lines WHERE timecard_id = ?", tc.ID); err != nil {
			return fmt.Errorf("failed to clear lines: %w", err)
		}
		if err := insertLines(ctx, tx, tc); err != nil {
			return err
		}
		return insertTransitions(ctx, tx, tc.ID, transitions, stored)
	})
}

// Delete removes a timecard and, by cascade, its lines and transitions.
func (s *Store) Delete(ctx context.Context, id timecard.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM timecards WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete timecard: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &timecard.NotFoundError{TimecardID: id}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func insertLines(ctx context.Context, tx *sql.Tx, tc *timecard.Timecard) error {
	query := `
		INSERT INTO timecard_lines
		(timecard_id, id, position, work_date, hours, project, recorded)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, l := range tc.RawLines() {
		_, err := tx.ExecContext(ctx, query,
			tc.ID, l.ID, i,
			l.WorkDate.Format(dateLayout),
			l.Hours.String(),
			l.Project,
			l.Recorded.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("failed to insert line: %w", err)
		}
	}
	return nil
}

func insertTransitions(ctx context.Context, tx *sql.Tx, id timecard.ID, transitions []timecard.Transition, from int) error {
	query := `
		INSERT INTO timecard_transitions
		(timecard_id, seq, transitioned_to, occurred_at, kind, resource, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for seq := from; seq < len(transitions); seq++ {
		t := transitions[seq]
		_, err := tx.ExecContext(ctx, query,
			id, seq,
			nullString(string(t.TransitionedTo)),
			t.OccurredAt.UTC().Format(timeLayout),
			t.Document.Kind,
			t.Document.Resource,
			nullString(t.Document.Reason),
		)
		if err != nil {
			return fmt.Errorf("failed to append transition: %w", err)
		}
	}
	return nil
}

// queryLines loads lines grouped by timecard, in storage order.
func (s *Store) queryLines(ctx context.Context, where string, args ...any) (map[timecard.ID][]timecard.Line, error) {
	query := `
		SELECT timecard_id, id, work_date, hours, project, recorded
		FROM timecard_lines ` + where + `
		ORDER BY timecard_id, position ASC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	result := make(map[timecard.ID][]timecard.Line)
	for rows.Next() {
		var (
			owner              timecard.ID
			l                  timecard.Line
			workDate, recorded string
			hours              string
		)
		if err := rows.Scan(&owner, &l.ID, &workDate, &hours, &l.Project, &recorded); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		if l.WorkDate, err = time.Parse(dateLayout, workDate); err != nil {
			return nil, fmt.Errorf("line %s: bad work_date: %w", l.ID, err)
		}
		if l.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("line %s: bad hours: %w", l.ID, err)
		}
		if l.Recorded, err = time.Parse(timeLayout, recorded); err != nil {
			return nil, fmt.Errorf("line %s: bad recorded: %w", l.ID, err)
		}
		result[owner] = append(result[owner], l)
	}
	return result, rows.Err()
}

// queryTransitions loads transition logs grouped by timecard, in log order.
func (s *Store) queryTransitions(ctx context.Context, where string, args ...any) (map[timecard.ID][]timecard.Transition, error) {
	query := `
		SELECT timecard_id, transitioned_to, occurred_at, kind, resource, reason
		FROM timecard_transitions ` + where + `
		ORDER BY timecard_id, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	result := make(map[timecard.ID][]timecard.Transition)
	for rows.Next() {
		var (
			owner          timecard.ID
			t              timecard.Transition
			transitionedTo sql.NullString
			occurredAt     string
			reason         sql.NullString
		)
		if err := rows.Scan(&owner, &transitionedTo, &occurredAt,
			&t.Document.Kind, &t.Document.Resource, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		if t.OccurredAt, err = time.Parse(timeLayout, occurredAt); err != nil {
			return nil, fmt.Errorf("timecard %s: bad occurred_at: %w", owner, err)
		}
		t.TransitionedTo = timecard.Status(transitionedTo.String)
		t.Document.Reason = reason.String
		result[owner] = append(result[owner], t)
	}
	return result, rows.Err()
}

func restore(id timecard.ID, resource, opened string, lines []timecard.Line, transitions []timecard.Transition) (*timecard.Timecard, error) {
	openedAt, err := time.Parse(timeLayout, opened)
	if err != nil {
		return nil, fmt.Errorf("timecard %s: bad opened: %w", id, err)
	}
	return timecard.Restore(id, resource, openedAt, lines, transitions)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
