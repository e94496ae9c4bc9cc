/*
store.go - Persistence interface for timecards

PURPOSE:
  Defines the boundary between the workflow and the database. A
  Repository stores whole aggregates; it knows nothing about the state
  machine.

CONTRACT:
  Find:   returns (nil, nil) when the id is unknown
  All:    every timecard, in no particular order
  Add:    inserts a fresh aggregate; the id must be unique
  Save:   replaces the stored state of an existing aggregate atomically
  Delete: removes by id

  Implementations must never return a pointer that aliases their own
  state: callers mutate what they get and Save it back. Readers must
  see either the state before a Save or after it, never a mix.

IMPLEMENTATIONS:
  - timecard/store/memory.go: In-memory, for tests and the default server
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - service.go: The only writer, serializing mutations per timecard
*/
package timecard

import (
	"context"
	"errors"
)

// ErrDuplicateID is returned by Add when the id already exists.
var ErrDuplicateID = errors.New("duplicate timecard id")

// Repository handles persistence of timecards.
type Repository interface {
	Find(ctx context.Context, id ID) (*Timecard, error)
	All(ctx context.Context) ([]*Timecard, error)
	Add(ctx context.Context, tc *Timecard) error
	Save(ctx context.Context, tc *Timecard) error
	Delete(ctx context.Context, id ID) error
}
