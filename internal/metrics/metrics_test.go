package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ExamsStarted.WithLabelValues("B").Inc()
	m.ExamsFinished.WithLabelValues("B", ReasonExpired).Inc()
	m.MediaResolutions.WithLabelValues("bundled").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExamsStarted.WithLabelValues("B")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MediaResolutions.WithLabelValues("bundled")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["theory_exam_exams_started_total"])
	assert.True(t, names["theory_exam_exams_finished_total"])
}

func TestDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
