package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/health", 200, time.Millisecond)
		m.ObserveSearch("beers", 1, time.Millisecond, nil)
		m.DocumentIndexed("beers", true)
		m.DocumentsDeleted("beers", 3)
		m.BulkItem("beers", "index", "ok")
		m.SetShardDocCounts("beers", []int{1, 2})
		m.ForgetIndex("beers")
		m.JobStarted()
		m.JobFinished("bulk", "completed")
	})
}

// value returns the value of the series of family name matching labels.
func value(t *testing.T, m *Metrics, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matches(metric, labels) {
				return metricValue(metric), true
			}
		}
	}
	return 0, false
}

func matches(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if want != pair.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func metricValue(metric *dto.Metric) float64 {
	switch {
	case metric.Counter != nil:
		return metric.GetCounter().GetValue()
	case metric.Gauge != nil:
		return metric.GetGauge().GetValue()
	}
	return 0
}

func TestRecording(t *testing.T) {
	m := New()

	m.ObserveSearch("beers", 10, time.Millisecond, nil)
	m.ObserveSearch("beers", 0, time.Millisecond, nil)
	m.ObserveSearch("beers", 0, time.Millisecond, errors.New("boom"))
	for _, outcome := range []string{"hit", "zero_result", "error"} {
		v, ok := value(t, m, "facet_search_search_queries_total", map[string]string{"index": "beers", "outcome": outcome})
		assert.True(t, ok, outcome)
		assert.Equal(t, 1.0, v, outcome)
	}

	m.DocumentIndexed("beers", true)
	m.DocumentIndexed("beers", false)
	v, _ := value(t, m, "facet_search_docs_indexed_total", map[string]string{"index": "beers", "result": "updated"})
	assert.Equal(t, 1.0, v)

	m.SetShardDocCounts("beers", []int{4, 6})
	v, _ = value(t, m, "facet_search_shard_document_count", map[string]string{"index": "beers", "shard_id": "1"})
	assert.Equal(t, 6.0, v)

	m.ForgetIndex("beers")
	_, ok := value(t, m, "facet_search_shard_document_count", map[string]string{"index": "beers"})
	assert.False(t, ok)
}

func TestHandler(t *testing.T) {
	m := New()
	m.BulkItem("beers", "index", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "facet_search_bulk_items_total"))
}

func TestTwoNodesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
