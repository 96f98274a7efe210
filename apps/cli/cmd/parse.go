package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/cst"
	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	"github.com/abdul-hamid-achik/httpcst/packages/core/peg"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

var (
	parseFormatFlag   string
	parseQueryFlag    string
	parseTraceFlag    bool
	parseMemoizeFlag  bool
	parseLiteralsFlag bool
	parseEmitFlag     bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|directory>...",
	Short: "Print the syntax tree of request files",
	Long: `Parse request files and print their concrete syntax tree.

Examples:
  httpcst parse api.http
  httpcst parse api.http -f json --query 'children.0.kind'
  httpcst parse api.http --emit -f yaml
  httpcst parse api.http --trace 2> trace.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: parseCommand,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormatFlag, "format", "f", getEnvString("HTTPCST_FORMAT", ""), "Output format: tree, json, yaml (env: HTTPCST_FORMAT)")
	parseCmd.Flags().StringVar(&parseQueryFlag, "query", "", "gjson path applied to JSON output")
	parseCmd.Flags().BoolVar(&parseTraceFlag, "trace", false, "Trace rule entry and exit to stderr")
	parseCmd.Flags().BoolVar(&parseMemoizeFlag, "memoize", false, "Memoize rule results while parsing")
	parseCmd.Flags().BoolVar(&parseLiteralsFlag, "literals", false, "Show literal tokens in tree output")
	parseCmd.Flags().BoolVar(&parseEmitFlag, "emit", false, "Print the requests built from the tree instead of the tree")
}

// parsedFile pairs a request file with its tree, for multi-file output.
type parsedFile struct {
	File     string                   `json:"file" yaml:"file"`
	Tree     *cst.Node                `json:"tree,omitempty" yaml:"tree,omitempty"`
	Requests []*csthttp.RequestConfig `json:"requests,omitempty" yaml:"requests,omitempty"`
}

func parseCommand(cmd *cobra.Command, args []string) error {
	format := parseFormatFlag
	if format == "" {
		format = cfg.Format
	}
	if parseQueryFlag != "" && format != "json" {
		return withExitCode(ExitUsageError, errors.New("--query needs --format json"))
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	opts := []parser.Option{parser.WithMemoize(parseMemoizeFlag || cfg.GetMemoize())}
	if parseTraceFlag {
		opts = append(opts, parser.WithTrace(cmd.ErrOrStderr()))
	}

	var parsed []parsedFile
	failed := 0
	for _, file := range files {
		root, err := parser.ParseFile(file, opts...)
		if err != nil {
			reportParseError(cmd.ErrOrStderr(), file, err)
			failed++
			continue
		}
		pf := parsedFile{File: file, Tree: root}
		if parseEmitFlag {
			pf.Tree = nil
			pf.Requests = csthttp.Emit(root)
		}
		parsed = append(parsed, pf)
	}

	if err := writeParsed(cmd.OutOrStdout(), format, parsed); err != nil {
		return err
	}
	if failed > 0 {
		return withExitCode(ExitParseError, fmt.Errorf("%d of %d files failed to parse", failed, len(files)))
	}
	return nil
}

func writeParsed(w io.Writer, format string, parsed []parsedFile) error {
	var doc any = parsed
	if len(parsed) == 1 {
		doc = parsed[0].Tree
		if parsed[0].Tree == nil {
			doc = parsed[0].Requests
		}
	}

	switch strings.ToLower(format) {
	case "json":
		return output.WriteJSON(w, doc, parseQueryFlag)
	case "yaml":
		return output.WriteYAML(w, doc)
	case "", "tree":
		for i, pf := range parsed {
			if len(parsed) > 1 {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "%s:\n", pf.File)
			}
			if pf.Tree == nil {
				if err := output.WriteYAML(w, pf.Requests); err != nil {
					return err
				}
				continue
			}
			tw := output.NewTreeWriter(w, output.TreeWithLiterals(parseLiteralsFlag))
			if err := tw.Write(pf.Tree); err != nil {
				return err
			}
		}
		return nil
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown format %q (expected tree, json or yaml)", format))
	}
}

// reportParseError prints err, with the offending line and a caret under
// the failing column for syntax errors.
func reportParseError(w io.Writer, file string, err error) {
	var syntaxErr *peg.SyntaxError
	if !errors.As(err, &syntaxErr) {
		fmt.Fprintf(w, "Error in %s: %v\n", file, err)
		return
	}
	fmt.Fprintf(w, "%v\n", syntaxErr)
	if syntaxErr.Snippet != "" {
		fmt.Fprintf(w, "  %s\n", syntaxErr.Snippet)
		fmt.Fprintf(w, "  %s^\n", strings.Repeat(" ", max(syntaxErr.Pos.Column-1, 0)))
	}
}

func isParseError(err error) bool {
	var (
		syntaxErr *peg.SyntaxError
		actionErr *peg.ActionError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &actionErr)
}
