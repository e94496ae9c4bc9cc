// Package store provides Repository implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/timesheets/timecard"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps timecards in a map. It stores and returns clones, so no
// caller ever shares state with the store or with another caller.
type Memory struct {
	mu        sync.RWMutex
	timecards map[timecard.ID]*timecard.Timecard
}

func NewMemory() *Memory {
	return &Memory{
		timecards: make(map[timecard.ID]*timecard.Timecard),
	}
}

var _ timecard.Repository = (*Memory)(nil)

func (m *Memory) Find(_ context.Context, id timecard.ID) (*timecard.Timecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tc, ok := m.timecards[id]
	if !ok {
		return nil, nil
	}
	return tc.Clone(), nil
}

func (m *Memory) All(_ context.Context) ([]*timecard.Timecard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*timecard.Timecard, 0, len(m.timecards))
	for _, tc := range m.timecards {
		result = append(result, tc.Clone())
	}
	return result, nil
}

// Add inserts a new timecard.
func (m *Memory) Add(_ context.Context, tc *timecard.Timecard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.timecards[tc.ID]; exists {
		return timecard.ErrDuplicateID
	}
	m.timecards[tc.ID] = tc.Clone()
	return nil
}

// Save replaces the stored state of an existing timecard.
func (m *Memory) Save(_ context.Context, tc *timecard.Timecard) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.timecards[tc.ID]; !exists {
		return &timecard.NotFoundError{TimecardID: tc.ID}
	}
	m.timecards[tc.ID] = tc.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id timecard.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.timecards[id]; !exists {
		return &timecard.NotFoundError{TimecardID: id}
	}
	delete(m.timecards, id)
	return nil
}

// Len returns the number of stored timecards.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.timecards)
}
