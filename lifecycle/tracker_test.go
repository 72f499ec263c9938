package lifecycle

import (
	"context"
	"sync"
	"testing"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockLogger struct {
	mu    sync.Mutex
	infos []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...interface{}) {}

func (m *mockLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(ctx context.Context, msg string, args ...interface{}) {}

func states(h []Transition) []savedobjects.RunState {
	out := make([]savedobjects.RunState, len(h))
	for i, tr := range h {
		out[i] = tr.To
	}
	return out
}

func TestNew_StartsInInit(t *testing.T) {
	tracker := New(Config{})
	assert.Equal(t, savedobjects.RunStateInit, tracker.State())
	assert.False(t, tracker.Terminal())
	assert.Empty(t, tracker.History())
}

func TestTransition_FullSuccessPath(t *testing.T) {
	logger := &mockLogger{}
	tracker := New(Config{RunID: "run-1", Logger: logger})
	ctx := context.Background()

	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateDetermineVersion))
	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateRunning))
	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateAdvanceMarker))
	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateDone))

	assert.Equal(t, []savedobjects.RunState{
		savedobjects.RunStateDetermineVersion,
		savedobjects.RunStateRunning,
		savedobjects.RunStateAdvanceMarker,
		savedobjects.RunStateDone,
	}, states(tracker.History()))
	assert.True(t, tracker.Terminal())
	assert.Len(t, logger.infos, 4)
}

func TestTransition_NoPendingGoesStraightToDone(t *testing.T) {
	tracker := New(Config{})
	ctx := context.Background()

	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateDetermineVersion))
	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateDone))
}

func TestTransition_RejectsIllegalMoves(t *testing.T) {
	tests := []struct {
		name string
		path []savedobjects.RunState
		next savedobjects.RunState
	}{
		{"skip version check", nil, savedobjects.RunStateRunning},
		{"marker before running", []savedobjects.RunState{savedobjects.RunStateDetermineVersion}, savedobjects.RunStateAdvanceMarker},
		{"leave done", []savedobjects.RunState{savedobjects.RunStateDetermineVersion, savedobjects.RunStateDone}, savedobjects.RunStateRunning},
		{"leave failed", []savedobjects.RunState{savedobjects.RunStateFailed}, savedobjects.RunStateDetermineVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := New(Config{})
			ctx := context.Background()
			for _, s := range tt.path {
				require.NoError(t, tracker.Transition(ctx, s))
			}
			before := tracker.State()

			err := tracker.Transition(ctx, tt.next)

			assert.ErrorIs(t, err, ErrIllegalTransition)
			assert.Equal(t, before, tracker.State())
		})
	}
}

func TestFail_IsNoOpOnceTerminal(t *testing.T) {
	tracker := New(Config{})
	ctx := context.Background()

	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateDetermineVersion))
	require.NoError(t, tracker.Transition(ctx, savedobjects.RunStateDone))

	tracker.Fail(ctx)
	assert.Equal(t, savedobjects.RunStateDone, tracker.State())

	other := New(Config{})
	require.NoError(t, other.Transition(ctx, savedobjects.RunStateDetermineVersion))
	other.Fail(ctx)
	assert.Equal(t, savedobjects.RunStateFailed, other.State())
}

func TestTransition_ReportsStateGauge(t *testing.T) {
	collector := metrics.NewCollector("test-idx-lifecycle")
	tracker := New(Config{Collector: collector})

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RunState.WithLabelValues("test-idx-lifecycle", "init")))

	require.NoError(t, tracker.Transition(context.Background(), savedobjects.RunStateDetermineVersion))

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RunState.WithLabelValues("test-idx-lifecycle", "init")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RunState.WithLabelValues("test-idx-lifecycle", "determine_version")))
}

func TestNilLogger_DoesntPanic(t *testing.T) {
	tracker := New(Config{Logger: nil})
	assert.NotPanics(t, func() {
		_ = tracker.Transition(context.Background(), savedobjects.RunStateDetermineVersion)
	})
}
