package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

func newCatalog(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient("sqlite://" + filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func configsFor(t *testing.T, input string) []*csthttp.RequestConfig {
	t.Helper()
	root, err := parser.Parse(input)
	require.NoError(t, err)
	return csthttp.Emit(root)
}

const catalogInput = "POST https://api.test/users?page=2\n" +
	"Content-Type: application/json\n" +
	"Authorization: Bearer {{token}}\n" +
	"\n" +
	"{\"name\": \"a\"}\n" +
	"\n" +
	"> ./check.js\n" +
	"\n" +
	"###\n" +
	"\n" +
	"GET /health\n" +
	"Host: localhost:8080\n" +
	"\n" +
	">> ./health.txt\n"

func TestIndexFile(t *testing.T) {
	ctx := context.Background()
	client := newCatalog(t)

	require.NoError(t, client.IndexFile(ctx, "api.http", 42, configsFor(t, catalogInput), nil))

	entries, err := client.Requests(ctx, RequestFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	post := entries[0]
	assert.Equal(t, "api.http", post.File)
	assert.Equal(t, 1, post.Line)
	assert.Equal(t, "POST", post.Method)
	assert.Equal(t, "https://api.test/", post.BaseURL)
	assert.Equal(t, "/users", post.Path)
	assert.Equal(t, "https://api.test/users?page=2", post.URL)
	assert.Equal(t, []string{"Content-Type", "Authorization"}, post.Headers)
	assert.Equal(t, "inline", post.BodyKind)
	assert.Equal(t, "./check.js", post.Handler)
	assert.Empty(t, post.ResponseRef)

	get := entries[1]
	assert.Equal(t, "GET", get.Method)
	assert.Equal(t, "http://localhost:8080/health", get.URL)
	assert.Equal(t, ">> ./health.txt", get.ResponseRef)
	assert.Empty(t, get.BodyKind)

	hash, ok, err := client.FileHash(ctx, "api.http")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, FormatHash(42), hash)
}

func TestIndexFile_Replaces(t *testing.T) {
	ctx := context.Background()
	client := newCatalog(t)

	require.NoError(t, client.IndexFile(ctx, "api.http", 1, configsFor(t, catalogInput), nil))
	require.NoError(t, client.IndexFile(ctx, "api.http", 2, configsFor(t, "DELETE https://api.test/users/1\n"), nil))

	entries, err := client.Requests(ctx, RequestFilter{File: "api.http"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DELETE", entries[0].Method)

	files, err := client.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, FormatHash(2), files[0].Hash)
	assert.Equal(t, 1, files[0].Requests)
}

func TestIndexFile_ParseError(t *testing.T) {
	ctx := context.Background()
	client := newCatalog(t)

	require.NoError(t, client.IndexFile(ctx, "bad.http", 7, nil, errors.New("bad.http:1:5: syntax error")))

	files, err := client.Files(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, 0, files[0].Requests)
	assert.Contains(t, files[0].Error, "syntax error")
}

func TestRequests_Filter(t *testing.T) {
	ctx := context.Background()
	client := newCatalog(t)

	require.NoError(t, client.IndexFile(ctx, "a.http", 1, configsFor(t, catalogInput), nil))
	require.NoError(t, client.IndexFile(ctx, "b.http", 2, configsFor(t, "GET https://other.test/users\n"), nil))

	byMethod, err := client.Requests(ctx, RequestFilter{Method: "get"})
	require.NoError(t, err)
	assert.Len(t, byMethod, 2)

	byURL, err := client.Requests(ctx, RequestFilter{URL: "/users"})
	require.NoError(t, err)
	require.Len(t, byURL, 2)
	assert.Equal(t, "a.http", byURL[0].File)
	assert.Equal(t, "b.http", byURL[1].File)

	limited, err := client.Requests(ctx, RequestFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRemoveFile(t *testing.T) {
	ctx := context.Background()
	client := newCatalog(t)

	require.NoError(t, client.IndexFile(ctx, "api.http", 1, configsFor(t, catalogInput), nil))
	require.NoError(t, client.RemoveFile(ctx, "api.http"))

	entries, err := client.Requests(ctx, RequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, ok, err := client.FileHash(ctx, "api.http")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQuery_Catalog(t *testing.T) {
	ctx := context.Background()
	client := newCatalog(t)
	require.NoError(t, client.IndexFile(ctx, "api.http", 1, configsFor(t, catalogInput), nil))

	result, err := client.Query(ctx, "SELECT method, COUNT(*) AS n FROM requests GROUP BY method ORDER BY method")
	require.NoError(t, err)
	assert.Equal(t, []string{"method", "n"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "GET", result.Rows[0]["method"])
	assert.Equal(t, int64(1), result.Rows[0]["n"])
}
