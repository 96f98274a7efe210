package output

import (
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/httpcst/packages/core/runner"
)

// Formatter renders run results.
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable is implemented by formatters that accumulate results and
// write them at the end.
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names New accepts.
var Formats = []string{"console", "json", "junit", "tap"}

// New returns the formatter called name writing to w.
func New(name string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch name {
	case "", "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected one of %v)", name, Formats)
	}
}
