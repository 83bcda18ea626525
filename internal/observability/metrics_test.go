package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	inFlight := 3
	m := NewPrometheusMetrics(func() int { return inFlight })
	ctx := context.Background()
	labels := RequestLabels{Method: "GET", Route: "/employees", Status: "200"}

	m.RecordRequest(ctx, labels)
	m.RecordRequest(ctx, labels)
	m.RecordLatency(ctx, 0.02, labels)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/employees", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/employees",status="200"} 2`)
	assert.Contains(t, string(body), "http_requests_in_flight 3")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNopMetrics(t *testing.T) {
	var m Metrics = NopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordRequest(context.Background(), RequestLabels{})
		m.RecordLatency(context.Background(), 1, RequestLabels{})
	})
}
