package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFetch(t *testing.T) {
	m := New()

	m.ObserveFetch("bicycle", "ok", 20*time.Millisecond)
	m.ObserveFetch("bicycle", "ok", 30*time.Millisecond)
	m.ObserveFetch("brand", "not_found", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("bicycle", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("brand", "not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.UpstreamDuration))
}

func TestObserveAggregation(t *testing.T) {
	m := New()

	m.ObserveAggregation("ok")
	m.ObserveAggregation("upstream")
	m.ObserveRateLimited()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Aggregations.WithLabelValues("upstream")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveAggregation("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gateway_aggregations_total{result="ok"} 1`)
}
