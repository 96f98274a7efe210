package bench

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExporterObserve(t *testing.T) {
	e := NewExporter()
	e.Observe("GET /a", OutcomeSuccess, 20*time.Millisecond)
	e.Observe("GET /a", OutcomeError, 30*time.Millisecond)
	e.Observe("GET /a", OutcomeTimeout, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(e.requests.WithLabelValues("GET /a", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.requests.WithLabelValues("GET /a", OutcomeTimeout)))
	assert.Equal(t, 3, testutil.CollectAndCount(e.requests))

	expected := `
# HELP httpcst_bench_requests_in_flight Bench requests currently waiting for a response.
# TYPE httpcst_bench_requests_in_flight gauge
httpcst_bench_requests_in_flight 0
`
	require.NoError(t, testutil.GatherAndCompare(e.Registry(), strings.NewReader(expected), "httpcst_bench_requests_in_flight"))
}

func TestExporterHandler(t *testing.T) {
	e := NewExporter()
	e.Observe("POST /b", OutcomeSuccess, time.Millisecond)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `httpcst_bench_requests_total{outcome="success",request="POST /b"} 1`)
	assert.Contains(t, rec.Body.String(), "httpcst_bench_request_duration_seconds_bucket")
}

func TestRunnerWithExporter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Duration = 300 * time.Millisecond
	cfg.Rate = 20

	e := NewExporter()
	r, _ := newTestRunner(t, cfg, hostVars(server), WithExporter(e))
	require.NoError(t, r.LoadFile(writeRequests(t, "GET http://{{host}}/ok\n")))

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	name := r.Targets()[0].Name
	assert.Equal(t, float64(result.Summary.Total), testutil.ToFloat64(e.requests.WithLabelValues(name, OutcomeSuccess)))
}
