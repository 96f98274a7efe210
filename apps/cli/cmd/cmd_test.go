package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/httpcst/packages/bench"
	"github.com/abdul-hamid-achik/httpcst/packages/core/config"
	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestFileMatcher_Collect(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.http":          "GET /a\n",
		"b.REST":          "GET /b\n",
		"notes.txt":       "hello",
		"skip/c.http":     "GET /c\n",
		"nested/d.http":   "GET /d\n",
		"nested/e.hitask": "GET /e\n",
	})

	m, err := newFileMatcher([]string{".http", ".rest"}, nil, []string{"**/skip/**"})
	require.NoError(t, err)

	files, err := m.collect([]string{dir})
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(dir, f)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"a.http", "b.REST", "nested/d.http"}, names)

	// Files named directly are always taken.
	files, err = m.collect([]string{filepath.Join(dir, "notes.txt")})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileMatcher_Include(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"api/users.http":  "GET /u\n",
		"api/orders.http": "GET /o\n",
	})
	m, err := newFileMatcher([]string{".http"}, []string{"**/users*"}, nil)
	require.NoError(t, err)

	files, err := m.collect([]string{dir})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "users.http", filepath.Base(files[0]))

	_, err = newFileMatcher(nil, []string{"[oops"}, nil)
	assert.Error(t, err)
}

func TestFileMatcher_Errors(t *testing.T) {
	m, err := newFileMatcher([]string{".http"}, nil, nil)
	require.NoError(t, err)

	_, err = m.collect([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Equal(t, ExitUsageError, exitCode(err))

	_, err = m.collect([]string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no request files found")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitParseError, exitCode(withExitCode(ExitParseError, errors.New("bad"))))
	assert.Equal(t, ExitTestFailure, exitCode(errors.New("plain")))
	assert.Nil(t, withExitCode(ExitConfigError, nil))

	wrapped := withExitCode(ExitNetworkError, os.ErrDeadlineExceeded)
	assert.ErrorIs(t, wrapped, os.ErrDeadlineExceeded)
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"user=ann", "token=a=b", " host =localhost"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user": "ann", "token": "a=b", "host": "localhost"}, vars)

	_, err = parseVars([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseVars([]string{"=x"})
	assert.Error(t, err)
}

func TestIsParseError(t *testing.T) {
	_, err := parser.Parse("GET /a HTTP/x\n")
	require.Error(t, err)
	assert.True(t, isParseError(err))
	assert.False(t, isParseError(errors.New("other")))
}

func TestReportParseError(t *testing.T) {
	_, err := parser.Parse("GET /post\nAccept: */* \n", parser.WithFilename("x.http"))
	require.Error(t, err)

	var buf bytes.Buffer
	reportParseError(&buf, "x.http", err)
	out := buf.String()
	assert.Contains(t, out, "x.http:")
	assert.Contains(t, out, "^\n")
}

func TestWriteParsed(t *testing.T) {
	root, err := parser.Parse("GET http://example.com/a\n")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeParsed(&buf, "tree", []parsedFile{{File: "a.http", Tree: root}}))
	assert.Contains(t, buf.String(), "RequestsFile")

	buf.Reset()
	parseQueryFlag = "kind"
	t.Cleanup(func() { parseQueryFlag = "" })
	require.NoError(t, writeParsed(&buf, "json", []parsedFile{{File: "a.http", Tree: root}}))
	assert.Equal(t, "\"RequestsFile\"\n", buf.String())

	buf.Reset()
	parseQueryFlag = ""
	pf := parsedFile{File: "a.http", Requests: csthttp.Emit(root)}
	require.NoError(t, writeParsed(&buf, "yaml", []parsedFile{pf, pf}))
	assert.Contains(t, buf.String(), "method: GET")

	err = writeParsed(&buf, "xml", nil)
	assert.Equal(t, ExitUsageError, exitCode(err))
}

func TestCheckHandler(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"ok.js":  "client.log('hi');",
		"bad.js": "function (",
	})
	file := filepath.Join(dir, "req.http")

	assert.NoError(t, checkHandler(file, &csthttp.RequestConfig{}))
	assert.NoError(t, checkHandler(file, &csthttp.RequestConfig{Handler: &csthttp.Handler{Script: "client.log(1);", Line: 3}}))
	assert.Error(t, checkHandler(file, &csthttp.RequestConfig{Handler: &csthttp.Handler{Script: "if (", Line: 3}}))
	assert.NoError(t, checkHandler(file, &csthttp.RequestConfig{Handler: &csthttp.Handler{File: "./ok.js"}}))
	assert.Error(t, checkHandler(file, &csthttp.RequestConfig{Handler: &csthttp.Handler{File: "./bad.js"}}))
	assert.Error(t, checkHandler(file, &csthttp.RequestConfig{Handler: &csthttp.Handler{File: "./missing.js"}}))
	assert.NoError(t, checkHandler(file, &csthttp.RequestConfig{Handler: &csthttp.Handler{File: "{{dir}}/x.js"}}))
}

func TestValidator(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"good.http": "GET /a\n\n> {% client.log(1); %}\n",
		"bad.http":  "GET /post\nAccept: */* \n",
	})
	cache, err := parser.NewCache(8)
	require.NoError(t, err)

	var out, errOut bytes.Buffer
	v := &validator{cache: cache, checkScripts: true, out: &out, errOut: &errOut}
	failed := v.validateAll([]string{filepath.Join(dir, "good.http"), filepath.Join(dir, "bad.http")})
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "good.http (1 requests)")
	assert.Contains(t, errOut.String(), "bad.http")

	v.validate(filepath.Join(dir, "good.http"))
	hits, _ := cache.Stats()
	assert.Equal(t, int64(1), hits)
}

func TestBuildBenchConfig(t *testing.T) {
	newFlags := func() *cobra.Command {
		c := &cobra.Command{}
		f := c.Flags()
		f.StringVarP(&benchDurationFlag, "duration", "d", "", "")
		f.Float64VarP(&benchRateFlag, "rate", "r", 0, "")
		f.IntVar(&benchVUsFlag, "vus", 0, "")
		f.IntVar(&benchMaxInFlightFlag, "max-in-flight", 0, "")
		f.StringVar(&benchThinkTimeFlag, "think-time", "", "")
		f.StringVar(&benchRampUpFlag, "ramp-up", "", "")
		f.StringVar(&benchThresholdFlag, "threshold", "", "")
		return c
	}

	t.Run("config file values", func(t *testing.T) {
		c := newFlags()
		got, err := buildBenchConfig(c.Flags(), config.BenchConfig{
			Duration:   "5s",
			Rate:       25,
			RampUp:     "1s",
			Thresholds: "p95<200ms",
		})
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, got.Duration)
		assert.Equal(t, 25.0, got.Rate)
		assert.Equal(t, time.Second, got.RampUp)
		assert.Equal(t, 200*time.Millisecond, got.Thresholds.P95)
		assert.Equal(t, bench.RateMode, got.Mode)
	})

	t.Run("flags win", func(t *testing.T) {
		c := newFlags()
		require.NoError(t, c.Flags().Parse([]string{"--duration", "2s", "--vus", "4", "--think-time", "50ms"}))
		got, err := buildBenchConfig(c.Flags(), config.BenchConfig{Duration: "5s", VUs: 1})
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, got.Duration)
		assert.Equal(t, 4, got.VUs)
		assert.Equal(t, bench.VUMode, got.Mode)
		assert.Equal(t, 50*time.Millisecond, got.ThinkTime)
	})

	t.Run("invalid values", func(t *testing.T) {
		c := newFlags()
		_, err := buildBenchConfig(c.Flags(), config.BenchConfig{Duration: "soon"})
		assert.Error(t, err)

		_, err = buildBenchConfig(c.Flags(), config.BenchConfig{Thresholds: "p95>1s"})
		assert.Error(t, err)
	})
}

func TestCompareResults(t *testing.T) {
	before := &output.JSONOutput{Tests: []output.JSONTest{
		{Name: "GET /a", File: "f.http", Line: 1, Passed: true, Duration: 100},
		{Name: "GET /b", File: "f.http", Line: 5, Passed: true, Duration: 100},
		{Name: "GET /c", File: "f.http", Line: 9, Passed: false, Duration: 100},
		{Name: "GET /gone", File: "f.http", Line: 13, Passed: true, Duration: 10},
	}}
	after := &output.JSONOutput{Tests: []output.JSONTest{
		{Name: "GET /a", File: "f.http", Line: 1, Passed: true, Duration: 105},
		{Name: "GET /b", File: "f.http", Line: 5, Passed: true, Duration: 150},
		{Name: "GET /c", File: "f.http", Line: 9, Passed: true, Duration: 100},
		{Name: "GET /new", File: "g.http", Line: 1, Passed: true, Duration: 20},
		{Name: "PUT /skip", File: "g.http", Line: 4, Skipped: true},
	}}

	diff := compareResults("before.json", "after.json", before, after, 20)
	require.Len(t, diff.Comparisons, 5)

	status := map[string]string{}
	for _, c := range diff.Comparisons {
		status[c.Name] = c.StatusChange
	}
	assert.Equal(t, map[string]string{
		"GET /a":    changeUnchanged,
		"GET /b":    changeRegressed,
		"GET /c":    changeImproved,
		"GET /gone": changeRemoved,
		"GET /new":  changeNew,
	}, status)

	assert.False(t, diff.Summary.ThresholdPassed)
	assert.Equal(t, 1, diff.Summary.NewTests)
	assert.Equal(t, 1, diff.Summary.RemovedTests)
	assert.InDelta(t, 77.5, diff.Summary.AvgDuration1, 0.01)
	assert.Equal(t, "g.http", diff.Comparisons[4].File)

	var buf bytes.Buffer
	writeDiffConsole(&buf, diff)
	assert.Contains(t, buf.String(), "Threshold check failed")
	assert.Contains(t, buf.String(), "f.http:5 GET /b  100ms → 150ms +50.0%")
}

func TestParsePercent(t *testing.T) {
	v, err := parsePercent(" 12.5% ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = parsePercent("lots")
	assert.Error(t, err)
}

func TestInitCommand_ExampleParses(t *testing.T) {
	dir := t.TempDir()
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, initCommand(cmd, []string{dir}))
	assert.Contains(t, out.String(), "Created:")

	root, err := parser.ParseFile(filepath.Join(dir, "example.http"))
	require.NoError(t, err)
	assert.Len(t, csthttp.Emit(root), 3)

	loaded, err := config.LoadConfig(filepath.Join(dir, ".httpcst.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dev", loaded.DefaultEnvironment)

	err = initCommand(cmd, []string{dir})
	assert.Equal(t, ExitUsageError, exitCode(err))
}
