package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	"github.com/abdul-hamid-achik/httpcst/packages/db"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

var (
	catalogPathFlag   string
	indexForceFlag    bool
	indexPruneFlag    bool
	catalogOutputFlag string

	catalogMethodFlag string
	catalogURLFlag    string
	catalogFileFlag   string
	catalogLimitFlag  int
)

var indexCmd = &cobra.Command{
	Use:   "index <file|directory>...",
	Short: "Record the requests of request files in the catalog",
	Long: `Parse request files and record their requests in a SQLite catalog.
Files whose content has not changed since they were last indexed are
skipped. Files that fail to parse are recorded with their error.

Examples:
  httpcst index ./requests/
  httpcst index ./requests/ --prune --catalog /tmp/catalog.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: indexCommand,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the request catalog",
}

var catalogFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  catalogFilesCommand,
}

var catalogRequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List indexed requests",
	Long: `List indexed requests.

Examples:
  httpcst catalog requests --method POST
  httpcst catalog requests --url /users --limit 10 -o json`,
	Args: cobra.NoArgs,
	RunE: catalogRequestsCommand,
}

var catalogQueryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a SQL query against the catalog",
	Long: `Run a SQL query against the catalog tables "files" and "requests".

Examples:
  httpcst catalog query "SELECT method, count(*) AS n FROM requests GROUP BY method"`,
	Args: cobra.ExactArgs(1),
	RunE: catalogQueryCommand,
}

func init() {
	for _, c := range []*cobra.Command{indexCmd, catalogCmd} {
		c.PersistentFlags().StringVar(&catalogPathFlag, "catalog", getEnvString("HTTPCST_CATALOG", ""), "Catalog database path (env: HTTPCST_CATALOG)")
	}
	indexCmd.Flags().BoolVar(&indexForceFlag, "force", false, "Re-index files even when unchanged")
	indexCmd.Flags().BoolVar(&indexPruneFlag, "prune", false, "Drop catalog entries for files that no longer exist")

	catalogCmd.PersistentFlags().StringVarP(&catalogOutputFlag, "output", "o", "table", "Output format: table, json, yaml")
	catalogRequestsCmd.Flags().StringVar(&catalogMethodFlag, "method", "", "Only requests with this method")
	catalogRequestsCmd.Flags().StringVar(&catalogURLFlag, "url", "", "Only requests whose URL contains this text")
	catalogRequestsCmd.Flags().StringVar(&catalogFileFlag, "file", "", "Only requests from this file")
	catalogRequestsCmd.Flags().IntVar(&catalogLimitFlag, "limit", 0, "Maximum number of requests")

	catalogCmd.AddCommand(catalogFilesCmd, catalogRequestsCmd, catalogQueryCmd)
}

func openCatalog() (*db.Client, error) {
	path := catalogPathFlag
	if path == "" {
		path = cfg.Catalog
	}
	client, err := db.NewClient(path)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return client, nil
}

type indexStats struct {
	indexed, unchanged, failed, pruned int
}

func indexCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	client, err := openCatalog()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx := commandContext(cmd)
	stats, err := indexFiles(ctx, client, files, indexForceFlag)
	if err != nil {
		return err
	}
	if indexPruneFlag {
		if stats.pruned, err = pruneCatalog(ctx, client); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d files (%d unchanged, %d with errors, %d pruned)\n",
		stats.indexed, stats.unchanged, stats.failed, stats.pruned)
	return nil
}

func indexFiles(ctx context.Context, client *db.Client, files []string, force bool) (indexStats, error) {
	var stats indexStats
	for _, file := range files {
		path, err := filepath.Abs(file)
		if err != nil {
			return stats, err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return stats, err
		}
		sum := xxhash.Sum64(content)

		if !force {
			stored, ok, err := client.FileHash(ctx, path)
			if err != nil {
				return stats, err
			}
			if ok && stored == db.FormatHash(sum) {
				stats.unchanged++
				continue
			}
		}

		var configs []*csthttp.RequestConfig
		root, parseErr := parser.Parse(string(content), parser.WithFilename(path), parser.WithMemoize(cfg.GetMemoize()))
		if parseErr == nil {
			configs = csthttp.Emit(root)
		} else {
			log.WithField("file", path).WithError(parseErr).Warn("indexing file with parse error")
			stats.failed++
		}
		if err := client.IndexFile(ctx, path, sum, configs, parseErr); err != nil {
			return stats, err
		}
		stats.indexed++
	}
	return stats, nil
}

func pruneCatalog(ctx context.Context, client *db.Client) (int, error) {
	entries, err := client.Files(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, e := range entries {
		if _, err := os.Stat(e.Path); os.IsNotExist(err) {
			if err := client.RemoveFile(ctx, e.Path); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}

func catalogFilesCommand(cmd *cobra.Command, args []string) error {
	client, err := openCatalog()
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.Files(commandContext(cmd))
	if err != nil {
		return err
	}
	return writeCatalog(cmd.OutOrStdout(), entries, []string{"Path", "Requests", "Indexed", "Error"}, func() [][]string {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Path, strconv.Itoa(e.Requests), e.IndexedAt.Local().Format("2006-01-02 15:04:05"), e.Error})
		}
		return rows
	})
}

func catalogRequestsCommand(cmd *cobra.Command, args []string) error {
	client, err := openCatalog()
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.Requests(commandContext(cmd), db.RequestFilter{
		Method: catalogMethodFlag,
		URL:    catalogURLFlag,
		File:   catalogFileFlag,
		Limit:  catalogLimitFlag,
	})
	if err != nil {
		return err
	}
	return writeCatalog(cmd.OutOrStdout(), entries, []string{"File", "Line", "Method", "URL", "Body", "Handler"}, func() [][]string {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.File, strconv.Itoa(e.Line), e.Method, e.URL, e.BodyKind, e.Handler})
		}
		return rows
	})
}

func catalogQueryCommand(cmd *cobra.Command, args []string) error {
	client, err := openCatalog()
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := client.Query(commandContext(cmd), args[0])
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	return writeCatalog(cmd.OutOrStdout(), result.Rows, result.Columns, func() [][]string {
		rows := make([][]string, 0, len(result.Rows))
		for _, r := range result.Rows {
			row := make([]string, len(result.Columns))
			for i, col := range result.Columns {
				row[i] = formatCell(r[col])
			}
			rows = append(rows, row)
		}
		return rows
	})
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// writeCatalog writes doc as JSON or YAML, or the rows from tableRows as
// a table.
func writeCatalog(w io.Writer, doc any, header []string, tableRows func() [][]string) error {
	switch strings.ToLower(catalogOutputFlag) {
	case "json":
		return output.WriteJSON(w, doc, "")
	case "yaml":
		return output.WriteYAML(w, doc)
	case "table":
		table := tablewriter.NewWriter(w)
		table.SetHeader(header)
		table.SetAutoFormatHeaders(false)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetAutoWrapText(false)
		table.AppendBulk(tableRows())
		table.Render()
		return nil
	default:
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q", catalogOutputFlag))
	}
}
