package bench

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpcst/packages/core/env"
)

func writeRequests(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "load.http")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func hostVars(server *httptest.Server) map[string]string {
	return map[string]string{"host": strings.TrimPrefix(server.URL, "http://")}
}

func newTestRunner(t *testing.T, cfg *Config, vars map[string]string, opts ...RunnerOption) (*Runner, *bytes.Buffer) {
	t.Helper()
	resolver := env.NewResolver()
	resolver.SetVariables(vars)
	var out bytes.Buffer
	logger, _ := test.NewNullLogger()
	opts = append([]RunnerOption{
		WithResolver(resolver),
		WithReporter(NewReporter(WithWriter(&out), WithNoProgress(true), WithNoColor(true), WithVerbose(true))),
		WithLogger(logger),
	}, opts...)
	return NewRunner(cfg, opts...), &out
}

func TestRunnerRateMode(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeRequests(t, "GET http://{{host}}/health\n\n###\n\nGET http://{{host}}/ready\n")
	cfg := DefaultConfig()
	cfg.Duration = 500 * time.Millisecond
	cfg.Rate = 40
	cfg.Thresholds = Thresholds{ErrorRate: 0.01}

	r, out := newTestRunner(t, cfg, hostVars(server))
	require.NoError(t, r.LoadFile(path))
	require.Len(t, r.Targets(), 2)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Positive(t, result.Summary.Total)
	assert.GreaterOrEqual(t, hits.Load(), result.Summary.Total)
	assert.Zero(t, result.Summary.Errors)
	assert.True(t, result.Passed)
	assert.Equal(t, "rate", result.Mode)
	assert.Len(t, result.Summary.Requests, 2)

	r.reporter.Summary(result)
	assert.Contains(t, out.String(), "httpcst bench")
	assert.Contains(t, out.String(), "THRESHOLDS")
	assert.Contains(t, out.String(), "/ready")
}

func TestRunnerCountsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Duration = 300 * time.Millisecond
	cfg.Rate = 30
	cfg.Thresholds = Thresholds{ErrorRate: 0.1}

	r, _ := newTestRunner(t, cfg, hostVars(server))
	require.NoError(t, r.LoadFile(writeRequests(t, "GET http://{{host}}/boom\n")))

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.Summary.Total, result.Summary.Errors)
	assert.False(t, result.Passed)
}

func TestRunnerVUMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Mode = VUMode
	cfg.VUs = 3
	cfg.Duration = 300 * time.Millisecond
	cfg.RampUp = 100 * time.Millisecond

	r, _ := newTestRunner(t, cfg, hostVars(server))
	require.NoError(t, r.LoadFile(writeRequests(t, "DELETE http://{{host}}/items/1\n")))

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, result.Summary.Total)
	assert.Equal(t, "vu", result.Mode)
}

func TestRunnerFilterAndWarnings(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	cfg := DefaultConfig()
	r, _ := newTestRunner(t, cfg, map[string]string{"host": "localhost"},
		WithFilter(glob.MustCompile("POST *")),
		WithLogger(logger))

	input := "GET http://{{host}}/a\n\n###\n\nPOST http://{{host}}/b\nAuthorization: Bearer {{tokn}}\n\n> {% client.log(1); %}\n"
	require.NoError(t, r.LoadFile(writeRequests(t, input)))
	require.Len(t, r.Targets(), 1)
	assert.True(t, strings.HasPrefix(r.Targets()[0].Name, "POST "))

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "unresolved variables: tokn")
	assert.Contains(t, messages, "response handler is not run under load")
}

func TestRunnerNoTargets(t *testing.T) {
	r, _ := newTestRunner(t, DefaultConfig(), nil, WithFilter(glob.MustCompile("PUT *")))
	err := r.LoadFile(writeRequests(t, "GET http://localhost/\n"))
	assert.EqualError(t, err, "no requests to run")

	_, err = NewRunner(DefaultConfig()).Run(context.Background())
	assert.Error(t, err)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.Duration = time.Minute
	r, _ := newTestRunner(t, cfg, hostVars(server))
	require.NoError(t, r.LoadFile(writeRequests(t, "GET http://{{host}}/\n")))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
