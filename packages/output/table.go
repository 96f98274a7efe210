package output

import (
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

const maxTableFieldLen = 60

// RequestRow is one line of a request listing.
type RequestRow struct {
	File   string
	Config *csthttp.RequestConfig
}

// WriteRequestTable lists requests with their location, method, URL and
// the extras attached to them.
func WriteRequestTable(w io.Writer, rows []RequestRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Line", "Method", "URL", "Body", "Handler"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoMergeCells(true)

	for _, row := range rows {
		c := row.Config
		table.Append([]string{
			row.File,
			strconv.Itoa(c.Line),
			c.Method,
			truncateStr(c.FullURL()),
			bodySummary(c),
			handlerSummary(c),
		})
	}
	table.Render()
}

func bodySummary(c *csthttp.RequestConfig) string {
	switch {
	case c.DataFile != "":
		return "< " + c.DataFile
	case c.Data != "":
		return strconv.Itoa(strings.Count(c.Data, "\n")+1) + " lines"
	default:
		return "-"
	}
}

func handlerSummary(c *csthttp.RequestConfig) string {
	var parts []string
	if c.Handler != nil {
		if c.Handler.File != "" {
			parts = append(parts, "> "+c.Handler.File)
		} else {
			parts = append(parts, "> {% script %}")
		}
	}
	if c.ResponseRef != nil {
		parts = append(parts, c.ResponseRef.Marker+" "+c.ResponseRef.Path)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func truncateStr(s string) string {
	if len(s) <= maxTableFieldLen {
		return s
	}
	return s[:maxTableFieldLen] + "..."
}
