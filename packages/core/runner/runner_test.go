package runner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/login":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"token": "t-1"}`))
		case "/me":
			if r.Header.Get("Authorization") != "Bearer t-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"name": "ann"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func quietLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

const loginFlow = `POST http://{{host}}/login
Content-Type: application/json

{"user": "{{user}}"}

> {% client.global.set("token", response.body.token); %}

###

GET http://{{host}}/me
Authorization: Bearer {{token}}

>> ./me.json
`

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r, err := NewRunner(nil)
		require.NoError(t, err)
		assert.NotNil(t, r.client)
		assert.NotNil(t, r.resolver)
		assert.Nil(t, r.filter)
	})

	t.Run("with invalid filter", func(t *testing.T) {
		_, err := NewRunner(&Config{Filter: "GET [*"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid filter")
	})
}

func TestRunner_RunFile_HandlerGlobalsChain(t *testing.T) {
	server := newAPI(t)
	host := strings.TrimPrefix(server.URL, "http://")
	dir := writeFiles(t, map[string]string{
		"flow.http":            loginFlow,
		"http-client.env.json": `{"dev": {"host": "` + host + `"}, "prod": {"host": "example.invalid"}}`,
	})

	log, _ := quietLogger()
	r, err := NewRunner(&Config{
		Environment:    "dev",
		Variables:      map[string]string{"user": "ann"},
		FollowRedirect: true,
		ValidateSSL:    true,
		SaveResponses:  true,
		Logger:         log,
	})
	require.NoError(t, err)

	result, err := r.RunFile(context.Background(), filepath.Join(dir, "flow.http"))
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, 2, result.Passed, "%+v", result.Results)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, "t-1", r.Globals()["token"])

	first := result.Results[0]
	assert.Equal(t, 1, first.Line)
	require.NotNil(t, first.Script)
	assert.Equal(t, `{"name": "ann"}`, result.Results[1].Response.BodyString())

	saved, err := os.ReadFile(filepath.Join(dir, "me.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(saved), "HTTP/1.1 200 OK\n"), string(saved))
	assert.Contains(t, string(saved), `{"name": "ann"}`)
	assert.Equal(t, filepath.Join(dir, "me.json"), result.Results[1].SavedTo)
}

func TestRunner_RunFile_Filter(t *testing.T) {
	server := newAPI(t)
	dir := writeFiles(t, map[string]string{
		"flow.http": "GET " + server.URL + "/login\n\n###\n\nDELETE " + server.URL + "/login\n",
	})

	log, _ := quietLogger()
	r, err := NewRunner(&Config{Filter: "GET *", Logger: log})
	require.NoError(t, err)

	result, err := r.RunFile(context.Background(), filepath.Join(dir, "flow.http"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "filtered out", result.Results[1].SkipReason)
}

func TestRunner_RunFile_FailingHandlerAndBail(t *testing.T) {
	server := newAPI(t)
	content := "GET " + server.URL + "/login\n\n" +
		"> {% client.test(\"status\", function() { client.assert(response.status === 418, \"teapot\"); }); %}\n" +
		"\n###\n\n" +
		"GET " + server.URL + "/login\n"
	dir := writeFiles(t, map[string]string{"flow.http": content})

	log, _ := quietLogger()
	r, err := NewRunner(&Config{Bail: true, Logger: log})
	require.NoError(t, err)

	result, err := r.RunFile(context.Background(), filepath.Join(dir, "flow.http"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Results, 1)
	require.NotNil(t, result.Results[0].Script)
	assert.Equal(t, "teapot", result.Results[0].Script.Tests[0].Message)
}

func TestRunner_RunFile_HandlerFile(t *testing.T) {
	server := newAPI(t)
	dir := writeFiles(t, map[string]string{
		"flow.http":  "GET " + server.URL + "/login\n\n> ./check.js\n",
		"check.js":   `client.global.set("seen", response.status);`,
		"unused.txt": "",
	})

	log, _ := quietLogger()
	r, err := NewRunner(&Config{Logger: log})
	require.NoError(t, err)

	result, err := r.RunFile(context.Background(), filepath.Join(dir, "flow.http"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, "200", r.Globals()["seen"])
}

func TestRunner_RunFile_UnresolvedVariableWarns(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"flow.http":            "GET http://{{hots}}/login\n",
		"http-client.env.json": `{"dev": {"host": "localhost"}}`,
	})

	log, hook := quietLogger()
	r, err := NewRunner(&Config{Environment: "dev", Logger: log})
	require.NoError(t, err)

	result, err := r.RunFile(context.Background(), filepath.Join(dir, "flow.http"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Error(t, result.Results[0].Error)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "did you mean host") {
			warned = true
		}
	}
	assert.True(t, warned, "expected a suggestion warning")
}

func TestRunner_RunFile_Errors(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.http":             "GET /a\n:bad\n",
		"ok.http":              "GET http://localhost/\n",
		"http-client.env.json": `{"development": {}}`,
	})

	log, _ := quietLogger()
	r, err := NewRunner(&Config{Environment: "developmnt", Logger: log})
	require.NoError(t, err)

	_, err = r.RunFile(context.Background(), filepath.Join(dir, "bad.http"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing file")

	_, err = r.RunFile(context.Background(), filepath.Join(dir, "ok.http"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "development")
}

func TestRunner_Run_CancelledContext(t *testing.T) {
	dir := writeFiles(t, map[string]string{"flow.http": "GET http://localhost/\n"})
	log, _ := quietLogger()
	r, err := NewRunner(&Config{Logger: log})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RunFile(ctx, filepath.Join(dir, "flow.http"))
	assert.ErrorIs(t, err, context.Canceled)
}
