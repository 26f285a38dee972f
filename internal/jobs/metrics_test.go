package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("audit:record").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("audit:record").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("audit:record", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("audit:record", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("audit:record")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.Enqueued("audit", nil)
}

func TestEnqueuedCounts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.Enqueued("audit", nil)
	m.Enqueued("audit", errors.New("redis down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.enqueued.WithLabelValues("audit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enqueued.WithLabelValues("audit", "error")))
}
