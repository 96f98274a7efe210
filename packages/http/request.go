package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ResolveFunc substitutes {{variables}} in a value.
type ResolveFunc func(string) string

func identity(s string) string { return s }

// NewRequest builds the outgoing request for c. Every templated value goes
// through resolve; a body file is read relative to baseDir and sent as is.
func (c *RequestConfig) NewRequest(ctx context.Context, resolve ResolveFunc, baseDir string) (*http.Request, error) {
	if resolve == nil {
		resolve = identity
	}

	target := resolve(c.FullURL())
	if err := ValidateURL(target); err != nil {
		return nil, fmt.Errorf("line %d: %w", c.Line, err)
	}

	body, err := c.body(resolve, baseDir)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", c.Line, err)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(c.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", c.Line, err)
	}

	if major, minor, ok := parseVersion(c.HTTPVersion); ok {
		req.Proto = "HTTP/" + c.HTTPVersion
		req.ProtoMajor, req.ProtoMinor = major, minor
	}

	for _, name := range c.HeaderOrder {
		for _, value := range c.Headers[name] {
			req.Header.Add(resolve(name), resolve(value))
		}
	}
	if host := req.Header.Get("Host"); host != "" {
		req.Host = host
	}
	return req, nil
}

func (c *RequestConfig) body(resolve ResolveFunc, baseDir string) (io.Reader, error) {
	if c.DataFile != "" {
		path := resolve(c.DataFile)
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		if err := validatePathWithinBase(path, baseDir); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}
		return bytes.NewReader(data), nil
	}
	if c.Data != "" {
		return strings.NewReader(resolve(c.Data)), nil
	}
	return nil, nil
}

func parseVersion(v string) (int, int, bool) {
	majorText, minorText, found := strings.Cut(v, ".")
	major, err := strconv.Atoi(majorText)
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return major, 0, true
	}
	minor, err := strconv.Atoi(minorText)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
