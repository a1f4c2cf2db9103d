package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue finds the sample of family name whose labels include all of want
func counterValue(t *testing.T, m *Metrics, name string, want map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if labelsMatch(metric, want) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveHTTPRequest("/api/assign", http.MethodPost, http.StatusOK, 15*time.Millisecond)
	m.ObserveHTTPRequest("/api/assign", http.MethodPost, http.StatusOK, 5*time.Millisecond)
	m.ObserveHTTPRequest("/api/assign", http.MethodPost, http.StatusForbidden, time.Millisecond)
	m.LedgerMutation("assign", OutcomeSuccess)
	m.ActivityPublished(OutcomeFailure)
	m.ActivityRecorded(OutcomeSuccess)

	assert.Equal(t, float64(2), counterValue(t, m, "http_requests_total", map[string]string{"handler": "/api/assign", "method": "POST", "status": "200"}))
	assert.Equal(t, float64(1), counterValue(t, m, "http_requests_total", map[string]string{"status": "403"}))
	assert.Equal(t, float64(1), counterValue(t, m, "ledger_mutations_total", map[string]string{"operation": "assign", "outcome": OutcomeSuccess}))
	assert.Equal(t, float64(1), counterValue(t, m, "ledger_activities_published_total", map[string]string{"outcome": OutcomeFailure}))
	assert.Equal(t, float64(1), counterValue(t, m, "ledger_activities_recorded_total", map[string]string{"outcome": OutcomeSuccess}))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.LedgerMutation("approve", OutcomeNoop)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ledger_mutations_total{operation="approve",outcome="noop"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
