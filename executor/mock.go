package executor

import (
	"context"
	"iter"
	"sync"

	"github.com/getpup/pupsourcing-savedobjects"
)

// MockApplier is a mock implementation of Applier for testing.
type MockApplier struct {
	mu         sync.Mutex
	ApplyFunc  func(ctx context.Context, m savedobjects.Migration, candidates iter.Seq2[savedobjects.Document, error]) (savedobjects.MigrationResult, error)
	ApplyCalls []ApplyCall
}

// ApplyCall records the parameters of a single Apply call.
type ApplyCall struct {
	Migration savedobjects.Migration
}

// NewMockApplier creates a new MockApplier with an empty call history.
func NewMockApplier() *MockApplier {
	return &MockApplier{
		ApplyCalls: make([]ApplyCall, 0),
	}
}

// Apply implements the Applier interface.
// It records the call parameters, then:
// - If ApplyFunc is set, calls and returns it
// - Otherwise, drains the candidates and counts them as applied
func (m *MockApplier) Apply(ctx context.Context, mig savedobjects.Migration, candidates iter.Seq2[savedobjects.Document, error]) (savedobjects.MigrationResult, error) {
	m.mu.Lock()
	m.ApplyCalls = append(m.ApplyCalls, ApplyCall{Migration: mig})
	m.mu.Unlock()

	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, mig, candidates)
	}

	result := savedobjects.MigrationResult{MigrationID: mig.ID}
	for _, err := range candidates {
		if err != nil {
			return result, err
		}
		result.Applied++
	}
	return result, nil
}

// AppliedIDs returns the ids of the migrations passed to Apply, in call order.
func (m *MockApplier) AppliedIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, len(m.ApplyCalls))
	for i, c := range m.ApplyCalls {
		ids[i] = c.Migration.ID
	}
	return ids
}

// Reset clears the call history.
func (m *MockApplier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyCalls = make([]ApplyCall, 0)
}
