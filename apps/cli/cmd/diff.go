package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

var (
	diffOutputFlag    string
	diffThresholdFlag string
)

var diffCmd = &cobra.Command{
	Use:   "diff <results1.json> <results2.json>",
	Short: "Compare two run results",
	Long: `Compare two results written by "httpcst run -o json" and show which
requests changed status or got slower.

Requests are matched by file and line.

Examples:
  httpcst diff before.json after.json
  httpcst diff before.json after.json --threshold 10%
  httpcst diff before.json after.json -o json`,
	Args: cobra.ExactArgs(2),
	RunE: diffCommand,
}

func init() {
	diffCmd.Flags().StringVarP(&diffOutputFlag, "output", "o", "console", "Output format: console, json, yaml")
	diffCmd.Flags().StringVar(&diffThresholdFlag, "threshold", "", "Fail if any request is slower by this percentage (e.g., 10%)")
}

// Status changes between two runs.
const (
	changeImproved  = "improved"
	changeRegressed = "regressed"
	changeUnchanged = "unchanged"
	changeNew       = "new"
	changeRemoved   = "removed"
)

// noiseThreshold is the duration change, in percent, below which a request
// counts as unchanged.
const noiseThreshold = 10.0

type DiffResult struct {
	File1       string           `json:"file1" yaml:"file1"`
	File2       string           `json:"file2" yaml:"file2"`
	Summary     DiffSummary      `json:"summary" yaml:"summary"`
	Comparisons []TestComparison `json:"comparisons" yaml:"comparisons"`
}

// TestComparison is one request as seen in both runs. Durations are in
// milliseconds.
type TestComparison struct {
	Name           string  `json:"name" yaml:"name"`
	File           string  `json:"file" yaml:"file"`
	Line           int     `json:"line" yaml:"line"`
	StatusChange   string  `json:"statusChange" yaml:"statusChange"`
	Duration1      float64 `json:"duration1,omitempty" yaml:"duration1,omitempty"`
	Duration2      float64 `json:"duration2,omitempty" yaml:"duration2,omitempty"`
	DurationChange float64 `json:"durationChange,omitempty" yaml:"durationChange,omitempty"`
	Passed1        bool    `json:"passed1" yaml:"passed1"`
	Passed2        bool    `json:"passed2" yaml:"passed2"`
	InFile1        bool    `json:"-" yaml:"-"`
	InFile2        bool    `json:"-" yaml:"-"`
}

type DiffSummary struct {
	TotalTests       int     `json:"totalTests" yaml:"totalTests"`
	Improved         int     `json:"improved" yaml:"improved"`
	Regressed        int     `json:"regressed" yaml:"regressed"`
	Unchanged        int     `json:"unchanged" yaml:"unchanged"`
	NewTests         int     `json:"newTests" yaml:"newTests"`
	RemovedTests     int     `json:"removedTests" yaml:"removedTests"`
	AvgDuration1     float64 `json:"avgDuration1" yaml:"avgDuration1"`
	AvgDuration2     float64 `json:"avgDuration2" yaml:"avgDuration2"`
	TotalDuration1   float64 `json:"totalDuration1" yaml:"totalDuration1"`
	TotalDuration2   float64 `json:"totalDuration2" yaml:"totalDuration2"`
	ThresholdPassed  bool    `json:"thresholdPassed" yaml:"thresholdPassed"`
	ThresholdPercent float64 `json:"thresholdPercent,omitempty" yaml:"thresholdPercent,omitempty"`
}

func diffCommand(cmd *cobra.Command, args []string) error {
	file1, file2 := args[0], args[1]

	results1, err := loadResultsFile(file1)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("failed to load %s: %w", file1, err))
	}
	results2, err := loadResultsFile(file2)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("failed to load %s: %w", file2, err))
	}

	var threshold float64
	if diffThresholdFlag != "" {
		if threshold, err = parsePercent(diffThresholdFlag); err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	diff := compareResults(file1, file2, results1, results2, threshold)

	w := cmd.OutOrStdout()
	switch strings.ToLower(diffOutputFlag) {
	case "json":
		err = output.WriteJSON(w, diff, "")
	case "yaml":
		err = output.WriteYAML(w, diff)
	case "console":
		writeDiffConsole(w, diff)
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q", diffOutputFlag))
	}
	if err != nil {
		return err
	}

	if !diff.Summary.ThresholdPassed {
		return withExitCode(ExitTestFailure, fmt.Errorf("threshold exceeded"))
	}
	return nil
}

func loadResultsFile(path string) (*output.JSONOutput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var results output.JSONOutput
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

func parsePercent(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", s, err)
	}
	return v, nil
}

type testKey struct {
	file string
	line int
}

func compareResults(file1, file2 string, results1, results2 *output.JSONOutput, threshold float64) *DiffResult {
	diff := &DiffResult{
		File1: file1,
		File2: file2,
		Summary: DiffSummary{
			ThresholdPercent: threshold,
			ThresholdPassed:  true,
		},
	}

	byKey := make(map[testKey]*TestComparison)
	var keys []testKey
	entry := func(t output.JSONTest) *TestComparison {
		k := testKey{t.File, t.Line}
		c, ok := byKey[k]
		if !ok {
			c = &TestComparison{File: t.File, Line: t.Line}
			byKey[k] = c
			keys = append(keys, k)
		}
		c.Name = t.Name
		return c
	}

	var count1, count2 int
	for _, t := range results1.Tests {
		if t.Skipped {
			continue
		}
		c := entry(t)
		c.InFile1, c.Passed1, c.Duration1 = true, t.Passed, t.Duration
		diff.Summary.TotalDuration1 += t.Duration
		count1++
	}
	for _, t := range results2.Tests {
		if t.Skipped {
			continue
		}
		c := entry(t)
		c.InFile2, c.Passed2, c.Duration2 = true, t.Passed, t.Duration
		diff.Summary.TotalDuration2 += t.Duration
		count2++
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].file != keys[j].file {
			return keys[i].file < keys[j].file
		}
		return keys[i].line < keys[j].line
	})

	for _, k := range keys {
		c := byKey[k]
		switch {
		case c.InFile1 && c.InFile2:
			if c.Duration1 > 0 {
				c.DurationChange = (c.Duration2 - c.Duration1) / c.Duration1 * 100
			}
			switch {
			case c.Passed1 != c.Passed2 && c.Passed2:
				c.StatusChange = changeImproved
			case c.Passed1 != c.Passed2:
				c.StatusChange = changeRegressed
			case c.DurationChange < -noiseThreshold:
				c.StatusChange = changeImproved
			case c.DurationChange > noiseThreshold:
				c.StatusChange = changeRegressed
			default:
				c.StatusChange = changeUnchanged
			}
			if threshold > 0 && c.DurationChange > threshold {
				diff.Summary.ThresholdPassed = false
			}
		case c.InFile1:
			c.StatusChange = changeRemoved
		default:
			c.StatusChange = changeNew
		}

		switch c.StatusChange {
		case changeImproved:
			diff.Summary.Improved++
		case changeRegressed:
			diff.Summary.Regressed++
		case changeUnchanged:
			diff.Summary.Unchanged++
		case changeNew:
			diff.Summary.NewTests++
		case changeRemoved:
			diff.Summary.RemovedTests++
		}
		diff.Comparisons = append(diff.Comparisons, *c)
		diff.Summary.TotalTests++
	}

	if count1 > 0 {
		diff.Summary.AvgDuration1 = diff.Summary.TotalDuration1 / float64(count1)
	}
	if count2 > 0 {
		diff.Summary.AvgDuration2 = diff.Summary.TotalDuration2 / float64(count2)
	}
	return diff
}

func writeDiffConsole(w io.Writer, diff *DiffResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Run Results Comparison"))
	fmt.Fprintf(w, "  %s: %s\n", cyan("File 1"), diff.File1)
	fmt.Fprintf(w, "  %s: %s\n\n", cyan("File 2"), diff.File2)

	s := diff.Summary
	fmt.Fprintf(w, "%s\n", bold("Summary"))
	fmt.Fprintf(w, "  Total Requests: %d\n", s.TotalTests)
	if s.Improved > 0 {
		fmt.Fprintf(w, "  Improved:       %s\n", green(s.Improved))
	}
	if s.Regressed > 0 {
		fmt.Fprintf(w, "  Regressed:      %s\n", red(s.Regressed))
	}
	if s.Unchanged > 0 {
		fmt.Fprintf(w, "  Unchanged:      %d\n", s.Unchanged)
	}
	if s.NewTests > 0 {
		fmt.Fprintf(w, "  New:            %s\n", cyan(s.NewTests))
	}
	if s.RemovedTests > 0 {
		fmt.Fprintf(w, "  Removed:        %s\n", yellow(s.RemovedTests))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", bold("Duration"))
	fmt.Fprintf(w, "  Total (File 1): %.0fms\n", s.TotalDuration1)
	fmt.Fprintf(w, "  Total (File 2): %.0fms\n", s.TotalDuration2)
	fmt.Fprintf(w, "  Avg (File 1):   %.0fms\n", s.AvgDuration1)
	fmt.Fprintf(w, "  Avg (File 2):   %.0fms\n", s.AvgDuration2)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", bold("Requests"))
	plain := func(a ...any) string { return fmt.Sprint(a...) }
	for _, c := range diff.Comparisons {
		symbol, paint := "=", plain
		switch c.StatusChange {
		case changeImproved:
			symbol, paint = "↑", green
		case changeRegressed:
			symbol, paint = "↓", red
		case changeNew:
			symbol, paint = "+", cyan
		case changeRemoved:
			symbol, paint = "-", yellow
		}

		name := fmt.Sprintf("%s:%d %s", c.File, c.Line, c.Name)
		switch {
		case c.InFile1 && c.InFile2:
			change := ""
			if c.DurationChange > 0 {
				change = fmt.Sprintf("+%.1f%%", c.DurationChange)
			} else if c.DurationChange < 0 {
				change = fmt.Sprintf("%.1f%%", c.DurationChange)
			}
			fmt.Fprintf(w, "  %s %s  %.0fms → %.0fms %s\n", paint(symbol), name, c.Duration1, c.Duration2, paint(change))
		case c.InFile1:
			fmt.Fprintf(w, "  %s %s  (removed)\n", paint(symbol), name)
		default:
			fmt.Fprintf(w, "  %s %s  (new, %.0fms)\n", paint(symbol), name, c.Duration2)
		}
	}
	fmt.Fprintln(w)

	if s.ThresholdPercent > 0 {
		if s.ThresholdPassed {
			fmt.Fprintf(w, "%s Threshold check passed (max regression: %.1f%%)\n", green("✓"), s.ThresholdPercent)
		} else {
			fmt.Fprintf(w, "%s Threshold check failed (some requests exceeded %.1f%% regression)\n", red("✗"), s.ThresholdPercent)
		}
	}
}
