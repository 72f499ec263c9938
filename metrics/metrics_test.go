package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRunsTotal_Increment(t *testing.T) {
	before := testutil.ToFloat64(RunsTotal.WithLabelValues("test-idx", "done"))
	RunsTotal.WithLabelValues("test-idx", "done").Inc()
	after := testutil.ToFloat64(RunsTotal.WithLabelValues("test-idx", "done"))

	assert.Equal(t, before+1, after)
}

func TestMarkerVersion_SetValue(t *testing.T) {
	MarkerVersion.WithLabelValues("test-idx-2").Set(3)
	value := testutil.ToFloat64(MarkerVersion.WithLabelValues("test-idx-2"))

	assert.Equal(t, float64(3), value)
}

func TestAllMetricsAreRegistered(t *testing.T) {
	collectors := []prometheus.Collector{
		RunsTotal,
		MigrationsCompletedTotal,
		DocumentsMigratedTotal,
		DocumentsSkippedTotal,
		DocumentsFailedTotal,
		MarkerVersion,
		PendingMigrations,
		RunState,
		MigrationDuration,
		RunDuration,
	}

	for _, c := range collectors {
		err := prometheus.Register(c)
		var already prometheus.AlreadyRegisteredError
		assert.ErrorAs(t, err, &already)
	}
}
