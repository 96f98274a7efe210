package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

const schema = `
CREATE TABLE IF NOT EXISTS files (
	path       TEXT PRIMARY KEY,
	hash       TEXT NOT NULL,
	indexed_at TIMESTAMP NOT NULL,
	requests   INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS requests (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	file         TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
	line         INTEGER NOT NULL,
	method       TEXT NOT NULL,
	base_url     TEXT NOT NULL,
	path         TEXT NOT NULL,
	url          TEXT NOT NULL,
	http_version TEXT NOT NULL,
	headers      TEXT NOT NULL DEFAULT '',
	body_kind    TEXT NOT NULL DEFAULT '',
	handler      TEXT NOT NULL DEFAULT '',
	response_ref TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS requests_method ON requests(method);
CREATE INDEX IF NOT EXISTS requests_file ON requests(file);
`

func (c *Client) migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create catalog schema: %w", err)
	}
	return nil
}

// FileEntry is one indexed request file.
type FileEntry struct {
	Path      string    `json:"path" yaml:"path"`
	Hash      string    `json:"hash" yaml:"hash"`
	IndexedAt time.Time `json:"indexedAt" yaml:"indexedAt"`
	Requests  int       `json:"requests" yaml:"requests"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// RequestEntry is one request as stored in the catalog.
type RequestEntry struct {
	File        string   `json:"file" yaml:"file"`
	Line        int      `json:"line" yaml:"line"`
	Method      string   `json:"method" yaml:"method"`
	BaseURL     string   `json:"baseUrl" yaml:"baseUrl"`
	Path        string   `json:"path" yaml:"path"`
	URL         string   `json:"url" yaml:"url"`
	HTTPVersion string   `json:"httpVersion" yaml:"httpVersion"`
	Headers     []string `json:"headers,omitempty" yaml:"headers,omitempty"`
	BodyKind    string   `json:"bodyKind,omitempty" yaml:"bodyKind,omitempty"`
	Handler     string   `json:"handler,omitempty" yaml:"handler,omitempty"`
	ResponseRef string   `json:"responseRef,omitempty" yaml:"responseRef,omitempty"`
}

// RequestFilter narrows Requests. Empty fields match everything; URL is a
// substring match.
type RequestFilter struct {
	Method string
	URL    string
	File   string
	Limit  int
}

// FormatHash renders a content hash the way it is stored.
func FormatHash(sum uint64) string {
	return strconv.FormatUint(sum, 16)
}

// FileHash returns the stored hash for path, or ok=false when the file has
// never been indexed.
func (c *Client) FileHash(ctx context.Context, path string) (hash string, ok bool, err error) {
	err = c.db.QueryRowContext(ctx, `SELECT hash FROM files WHERE path = ?`, path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read file hash: %w", err)
	}
	return hash, true, nil
}

// IndexFile replaces everything stored for path. A file that failed to
// parse is recorded with parseErr and no requests.
func (c *Client) IndexFile(ctx context.Context, path string, sum uint64, configs []*csthttp.RequestConfig, parseErr error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE file = ?`, path); err != nil {
		return fmt.Errorf("failed to clear requests: %w", err)
	}

	msg := ""
	if parseErr != nil {
		msg = parseErr.Error()
		configs = nil
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO files (path, hash, indexed_at, requests, error) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			indexed_at = excluded.indexed_at,
			requests = excluded.requests,
			error = excluded.error`,
		path, FormatHash(sum), time.Now().UTC(), len(configs), msg)
	if err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO requests (file, line, method, base_url, path, url, http_version, headers, body_kind, handler, response_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rc := range configs {
		e := entryFor(path, rc)
		_, err := stmt.ExecContext(ctx, e.File, e.Line, e.Method, e.BaseURL, e.Path, e.URL,
			e.HTTPVersion, strings.Join(e.Headers, "\n"), e.BodyKind, e.Handler, e.ResponseRef)
		if err != nil {
			return fmt.Errorf("failed to insert request at line %d: %w", rc.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func entryFor(file string, rc *csthttp.RequestConfig) RequestEntry {
	e := RequestEntry{
		File:        file,
		Line:        rc.Line,
		Method:      rc.Method,
		BaseURL:     rc.BaseURL,
		Path:        rc.URL,
		URL:         rc.FullURL(),
		HTTPVersion: rc.HTTPVersion,
		Headers:     rc.HeaderOrder,
	}
	switch {
	case rc.DataFile != "":
		e.BodyKind = "file"
	case rc.Data != "":
		e.BodyKind = "inline"
	}
	if rc.Handler != nil {
		e.Handler = "inline"
		if rc.Handler.File != "" {
			e.Handler = rc.Handler.File
		}
	}
	if rc.ResponseRef != nil {
		e.ResponseRef = rc.ResponseRef.Marker + " " + rc.ResponseRef.Path
	}
	return e
}

// RemoveFile drops path and its requests.
func (c *Client) RemoveFile(ctx context.Context, path string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Files lists indexed files ordered by path.
func (c *Client) Files(ctx context.Context) ([]FileEntry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path, hash, indexed_at, requests, error FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []FileEntry
	for rows.Next() {
		var f FileEntry
		if err := rows.Scan(&f.Path, &f.Hash, &f.IndexedAt, &f.Requests, &f.Error); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Requests returns the catalogued requests matching f, ordered by file and
// line.
func (c *Client) Requests(ctx context.Context, f RequestFilter) ([]RequestEntry, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("file", "line", "method", "base_url", "path", "url",
		"http_version", "headers", "body_kind", "handler", "response_ref").
		From("requests")
	if f.Method != "" {
		sb.Where(sb.Equal("method", strings.ToUpper(f.Method)))
	}
	if f.URL != "" {
		sb.Where("instr(url, " + sb.Var(f.URL) + ") > 0")
	}
	if f.File != "" {
		sb.Where(sb.Equal("file", f.File))
	}
	sb.OrderBy("file", "line")
	if f.Limit > 0 {
		sb.Limit(f.Limit)
	}
	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)

	ctx, cancel := context.WithTimeout(ctx, c.queryTimout)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []RequestEntry
	for rows.Next() {
		var (
			e       RequestEntry
			headers string
		)
		if err := rows.Scan(&e.File, &e.Line, &e.Method, &e.BaseURL, &e.Path, &e.URL,
			&e.HTTPVersion, &headers, &e.BodyKind, &e.Handler, &e.ResponseRef); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if headers != "" {
			e.Headers = strings.Split(headers, "\n")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
