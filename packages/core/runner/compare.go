package runner

import (
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

// compareResponse diffs resp against the response stored at path. Only the
// status line and body are compared; headers such as Date change between
// runs. An empty diff means the two match.
func compareResponse(path string, resp *csthttp.Response) (string, error) {
	stored, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading response reference: %w", err)
	}
	want := comparable(string(stored))
	got := comparable(string(resp.Dump()))
	if want == got {
		return "", nil
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	return formatDiff(diffs), nil
}

// comparable keeps the status line and body of a dumped response.
func comparable(dump string) string {
	dump = strings.ReplaceAll(dump, "\r\n", "\n")
	status, rest, _ := strings.Cut(dump, "\n")
	_, body, found := strings.Cut(rest, "\n\n")
	if !found {
		body = ""
	}
	return status + "\n\n" + strings.TrimRight(body, "\n") + "\n"
}

func formatDiff(diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix)
			b.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}
