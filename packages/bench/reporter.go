package bench

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Reporter prints live progress and the final summary of a run.
type Reporter struct {
	writer     io.Writer
	noProgress bool
	verbose    bool

	green *color.Color
	red   *color.Color
	cyan  *color.Color
	bold  *color.Color
}

type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		if noColor {
			color.NoColor = true
		}
	}
}

// WithNoProgress disables the live progress line.
func WithNoProgress(noProgress bool) ReporterOption {
	return func(r *Reporter) {
		r.noProgress = noProgress
	}
}

// WithVerbose adds the per-request table to the summary.
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = verbose
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{
		writer: os.Stdout,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		cyan:   color.New(color.FgCyan),
		bold:   color.New(color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reporter) Header(file string, config *Config, targets int) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "httpcst bench")
	if file != "" {
		r.cyan.Fprintf(r.writer, "%s (%d requests)\n", file, targets)
	}

	details := []string{}
	if config.Mode == RateMode {
		details = append(details, fmt.Sprintf("rate: %s req/s", formatFloat(config.Rate)))
	} else {
		details = append(details, fmt.Sprintf("vus: %d", config.VUs))
	}
	details = append(details,
		"duration: "+formatDuration(config.Duration),
		"max in-flight: "+strconv.Itoa(config.MaxInFlight))
	if config.RampUp > 0 {
		details = append(details, "ramp-up: "+formatDuration(config.RampUp))
	}
	fmt.Fprintf(r.writer, "%s\n\n", strings.Join(details, " | "))
}

// Progress redraws a single status line.
func (r *Reporter) Progress(stats Stats, duration time.Duration) {
	if r.noProgress {
		return
	}
	progress := float64(stats.Elapsed) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	const width = 20
	filled := int(progress * width)
	bar := strings.Repeat("━", filled) + strings.Repeat("─", width-filled)

	fmt.Fprintf(r.writer, "\r\033[K%s %s  %s req  %.1f req/s  %s errors  p95 %s  in-flight %d",
		bar,
		formatDuration(stats.Elapsed),
		formatNumber(stats.Total),
		stats.RPS,
		formatNumber(stats.Errors),
		formatLatency(stats.Latency.P95),
		stats.InFlight)
}

func (r *Reporter) ClearProgress() {
	if r.noProgress {
		return
	}
	fmt.Fprint(r.writer, "\r\033[K")
}

func (r *Reporter) Summary(result *Result) {
	s := result.Summary
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:  %s\n", formatDuration(s.Duration))
	fmt.Fprintf(r.writer, "Requests:  %s (%.1f req/s)\n", formatNumber(s.Total), s.RPS)
	fmt.Fprintf(r.writer, "Success:   %s\n", r.green.Sprint(formatNumber(s.Success)))
	errs := formatNumber(s.Errors)
	if s.Errors > 0 {
		errs = r.red.Sprint(errs)
	}
	fmt.Fprintf(r.writer, "Errors:    %s (%s)\n", errs, formatPercent(s.ErrorRate))
	if s.Timeouts > 0 {
		fmt.Fprintf(r.writer, "Timeouts:  %s\n", formatNumber(s.Timeouts))
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY")
	fmt.Fprintf(r.writer, "  p50 %s | p95 %s | p99 %s | max %s\n",
		formatLatency(s.Latency.P50), formatLatency(s.Latency.P95),
		formatLatency(s.Latency.P99), formatLatency(s.Latency.Max))
	fmt.Fprintf(r.writer, "  min %s | mean %s | stddev %s\n",
		formatLatency(s.Latency.Min), formatLatency(s.Latency.Mean), formatLatency(s.Latency.StdDev))

	if r.verbose && len(s.Requests) > 0 {
		fmt.Fprintln(r.writer)
		r.requestTable(s.Requests)
	}

	if len(result.Thresholds) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "THRESHOLDS")
		for _, tr := range result.Thresholds {
			mark := r.green.Sprint("✓")
			if !tr.Passed {
				mark = r.red.Sprint("✗")
			}
			fmt.Fprintf(r.writer, "  %s %s %s (actual %s)\n", mark, tr.Name, tr.Expected, tr.Actual)
		}
	}
	fmt.Fprintln(r.writer)
}

func (r *Reporter) requestTable(rows []RequestSummary) {
	table := tablewriter.NewWriter(r.writer)
	table.SetHeader([]string{"Request", "Total", "Errors", "p50", "p95", "p99", "Mean"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, rs := range rows {
		table.Append([]string{
			rs.Name,
			formatNumber(rs.Total),
			formatNumber(rs.Errors),
			formatLatency(rs.Latency.P50),
			formatLatency(rs.Latency.P95),
			formatLatency(rs.Latency.P99),
			formatLatency(rs.Latency.Mean),
		})
	}
	table.Render()
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m, s := int(d.Minutes()), int(d.Seconds())%60
	if s == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func formatLatency(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// formatNumber groups digits by thousands.
func formatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
