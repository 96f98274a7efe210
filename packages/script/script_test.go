package script

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

func jsonResponse(body string) *csthttp.Response {
	return &csthttp.Response{
		StatusCode: 201,
		Status:     "201 Created",
		Headers:    http.Header{"Content-Type": {"application/json; charset=utf-8"}, "X-Id": {"a", "b"}},
		Body:       []byte(body),
		Duration:   40 * time.Millisecond,
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("ok.js", ` client.global.set("a", 1); `))

	err := Check("bad.js", `client.global.set("a", `)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.js")
}

func TestRunner_GlobalsFeedLaterRuns(t *testing.T) {
	r := NewRunner()
	resp := jsonResponse(`{"token": "abc", "user": {"id": 42}}`)

	_, err := r.Run(context.Background(), "login", `
		client.global.set("token", response.body.token);
		client.global.set("userId", response.jsonPath("user.id"));
	`, resp)
	require.NoError(t, err)

	token, ok := r.Global("token")
	require.True(t, ok)
	assert.Equal(t, "abc", token)
	assert.Equal(t, map[string]string{"token": "abc", "userId": "42"}, r.Globals())

	res, err := r.Run(context.Background(), "next", `
		client.test("token carried", function() {
			client.assert(client.global.get("token") === "abc", "token");
			client.assert(client.global.get("missing") === null, "missing is null");
		});
	`, resp)
	require.NoError(t, err)
	require.Len(t, res.Tests, 1)
	assert.True(t, res.Passed(), "%+v", res.Tests)
}

func TestRunner_ResponseAPI(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), "api", `
		client.test("shape", function() {
			client.assert(response.status === 201, "status");
			client.assert(response.statusText === "Created", "statusText");
			client.assert(response.contentType.mimeType === "application/json", "mime");
			client.assert(response.contentType.charset === "utf-8", "charset");
			client.assert(response.headers.valueOf("x-id") === "a", "valueOf");
			client.assert(response.headers.valuesOf("X-Id").length === 2, "valuesOf");
			client.assert(response.headers.valueOf("nope") === null, "absent header");
			client.assert(response.jsonPath("nope") === null, "absent path");
		});
	`, jsonResponse(`{"ok": true}`))
	require.NoError(t, err)
	assert.True(t, res.Passed(), "%+v", res.Tests)
}

func TestRunner_PlainTextBody(t *testing.T) {
	resp := &csthttp.Response{StatusCode: 200, Status: "200 OK", Headers: http.Header{"Content-Type": {"text/plain"}}, Body: []byte("pong")}
	res, err := NewRunner().Run(context.Background(), "text", `client.assert(response.body === "pong", "body")`, resp)
	require.NoError(t, err)
	require.Len(t, res.Tests, 1)
	assert.True(t, res.Tests[0].Passed)
}

func TestRunner_FailedChecks(t *testing.T) {
	res, err := NewRunner().Run(context.Background(), "fail", `
		client.test("first failure wins", function() {
			client.assert(false, "one");
			client.assert(false, "two");
		});
		client.test("throws", function() { throw new Error("boom"); });
		client.assert(false, "standalone");
	`, jsonResponse(`{}`))
	require.NoError(t, err)
	require.Len(t, res.Tests, 3)
	assert.False(t, res.Passed())
	assert.Equal(t, "one", res.Tests[0].Message)
	assert.Contains(t, res.Tests[1].Message, "boom")
	assert.Equal(t, "standalone", res.Tests[2].Name)
}

func TestRunner_Log(t *testing.T) {
	var logged []string
	r := NewRunner(WithLogger(func(format string, args ...any) {
		logged = append(logged, args[0].(string))
	}))
	res, err := r.Run(context.Background(), "log", `client.log("a", 1); console.log("b")`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a 1", "b"}, res.Logs)
	assert.Equal(t, res.Logs, logged)
}

func TestRunner_RuntimeError(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), "h.js", `undefinedThing.call()`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "h.js")
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner(WithTimeout(50 * time.Millisecond))
	_, err := r.Run(context.Background(), "loop", `for (;;) {}`, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)
}

func TestRunner_GlobalClear(t *testing.T) {
	r := NewRunner()
	r.SetGlobal("a", "1")
	r.SetGlobal("b", "2")

	_, err := r.Run(context.Background(), "clear", `client.global.clear("a")`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, r.GlobalNames())

	res, err := r.Run(context.Background(), "clearAll", `client.global.clearAll(); client.assert(client.global.isEmpty(), "empty")`, nil)
	require.NoError(t, err)
	assert.True(t, res.Passed())
}
