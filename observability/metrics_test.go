package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordMutation("create_order", nil)
	m.RecordMutation("create_order", errors.New("boom"))
	m.RecordMutation("create_order", nil)
	m.RecordRestock(3)
	m.RecordRestock(0)
	m.RecordJob("heartbeat", time.Now(), nil)
	m.RecordJobSkipped("heartbeat")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MutationsTotal.WithLabelValues("create_order", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MutationsTotal.WithLabelValues("create_order", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RestockedProductsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("heartbeat", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("heartbeat", "skipped")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMutation("x", nil)
		m.RecordRestock(1)
		m.RecordJob("x", time.Now(), nil)
		m.RecordJobSkipped("x")
	})
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger("loud", true)
	assert.Error(t, err)

	l, err := NewLogger("debug", false)
	assert.NoError(t, err)
	assert.NotNil(t, l)
}
