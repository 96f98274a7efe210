package cmd

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

var (
	listOutputFlag string
	listFilterFlag string
)

var listCmd = &cobra.Command{
	Use:   "list <file|directory>...",
	Short: "List the requests in request files",
	Long: `List the requests defined in request files.

Examples:
  httpcst list api.http
  httpcst list ./requests/ --filter 'POST *'
  httpcst list api.http -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFlag, "output", "o", "table", "Output format: table, json, yaml")
	listCmd.Flags().StringVar(&listFilterFlag, "filter", "", "Glob matched against \"METHOD url\"")
}

func listCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	var filter glob.Glob
	if listFilterFlag != "" {
		if filter, err = glob.Compile(listFilterFlag); err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid filter %q: %w", listFilterFlag, err))
		}
	}

	var rows []output.RequestRow
	failed := 0
	for _, file := range files {
		root, err := parser.ParseFile(file, parser.WithMemoize(cfg.GetMemoize()))
		if err != nil {
			reportParseError(cmd.ErrOrStderr(), file, err)
			failed++
			continue
		}
		for _, c := range csthttp.Emit(root) {
			if filter != nil && !filter.Match(c.Label()) {
				continue
			}
			rows = append(rows, output.RequestRow{File: file, Config: c})
		}
	}

	switch strings.ToLower(listOutputFlag) {
	case "json":
		err = output.WriteJSON(cmd.OutOrStdout(), rowsDoc(rows), "")
	case "yaml":
		err = output.WriteYAML(cmd.OutOrStdout(), rowsDoc(rows))
	case "table":
		output.WriteRequestTable(cmd.OutOrStdout(), rows)
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q", listOutputFlag))
	}
	if err != nil {
		return err
	}

	if failed > 0 {
		return withExitCode(ExitParseError, fmt.Errorf("%d of %d files failed to parse", failed, len(files)))
	}
	return nil
}

type listedRequest struct {
	File    string                 `json:"file" yaml:"file"`
	Request *csthttp.RequestConfig `json:"request" yaml:"request"`
}

func rowsDoc(rows []output.RequestRow) []listedRequest {
	out := make([]listedRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, listedRequest{File: r.File, Request: r.Config})
	}
	return out
}
