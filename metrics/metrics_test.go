package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	t.Parallel()

	m := NewWithRegistry(prometheus.NewRegistry())

	m.Calculation("position-size")
	m.Calculation("position-size")
	m.Guard("LOCKED")
	m.Save(nil)
	m.Save(errors.New("down"))
	m.Save(errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calculations.WithLabelValues("position-size")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Calculations.WithLabelValues("adr-exit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardStatus.WithLabelValues("LOCKED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculationSaves.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CalculationSaves.WithLabelValues("error")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.Calculation("x")
		m.Guard("SAFE")
		m.Save(nil)
	})
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	NewWithRegistry(reg)
	assert.Panics(t, func() { NewWithRegistry(reg) })
}
