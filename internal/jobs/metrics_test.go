package jobmetrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the samples of family name whose labels include want.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			for k, v := range want {
				if labels[k] != v {
					continue next
				}
			}
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("quotes:expire").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("quotes:expire").End(boom), boom)
	m.AddAffected("quotes:expire", 3)
	m.AddAffected("quotes:expire", 0)

	assert.Equal(t, 1.0, counterValue(t, reg, "backoffice_jobs_total", map[string]string{"job": "quotes:expire", "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "backoffice_jobs_total", map[string]string{"job": "quotes:expire", "status": "failure"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "backoffice_jobs_failures_total", map[string]string{"job": "quotes:expire"}))
	assert.Equal(t, 3.0, counterValue(t, reg, "backoffice_job_rows_affected_total", map[string]string{"job": "quotes:expire"}))
}

func TestSkippedRunsAreNotFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	err := fmt.Errorf("payment 9 missing: %w", asynq.SkipRetry)
	require.ErrorIs(t, m.Track("mail:payment-receipt").End(err), asynq.SkipRetry)

	assert.Equal(t, StatusSkipped, Outcome(err))
	assert.Equal(t, 1.0, counterValue(t, reg, "backoffice_jobs_total", map[string]string{"job": "mail:payment-receipt", "status": StatusSkipped}))
	assert.Zero(t, counterValue(t, reg, "backoffice_jobs_failures_total", nil))
}

func TestSuccessSetsLastSuccessGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	before := float64(time.Now().Unix())
	require.NoError(t, m.Track("dashboard:warmup").End(nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	var got float64
	for _, f := range families {
		if f.GetName() == "backoffice_job_last_success_timestamp_seconds" {
			got = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.GreaterOrEqual(t, got, before)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddAffected("x", 5)
}
