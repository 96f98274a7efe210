package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/script"
)

// WatchDebounceDelay is the debounce delay for file watch events
const WatchDebounceDelay = 300 * time.Millisecond

var (
	validateWatchFlag   bool
	validateNoCheckFlag bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Validate request files for syntax errors",
	Long: `Validate request files for syntax errors without sending them.
Response handler scripts are compiled too, unless --no-scripts is given.

Examples:
  httpcst validate api.http
  httpcst validate ./requests/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().BoolVarP(&validateWatchFlag, "watch", "w", false, "Re-validate files when they change")
	validateCmd.Flags().BoolVar(&validateNoCheckFlag, "no-scripts", false, "Skip compiling response handler scripts")
}

type validator struct {
	cache        *parser.Cache
	checkScripts bool
	out          io.Writer
	errOut       io.Writer
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	cache, err := parser.NewCache(cfg.CacheSize, parser.WithMemoize(cfg.GetMemoize()))
	if err != nil {
		return err
	}
	v := &validator{
		cache:        cache,
		checkScripts: cfg.GetCheckScripts() && !validateNoCheckFlag,
		out:          cmd.OutOrStdout(),
		errOut:       cmd.ErrOrStderr(),
	}

	failed := v.validateAll(files)
	if !validateWatchFlag {
		if failed > 0 {
			return withExitCode(ExitParseError, fmt.Errorf("validation failed: %d of %d files", failed, len(files)))
		}
		return nil
	}
	return v.watch(cmd.Context(), args)
}

func (v *validator) validateAll(files []string) int {
	failed := 0
	for _, file := range files {
		if !v.validate(file) {
			failed++
		}
	}
	return failed
}

// validate reports on one file and returns whether it is valid.
func (v *validator) validate(file string) bool {
	root, err := v.cache.ParseFile(file)
	if err != nil {
		reportParseError(v.errOut, file, err)
		return false
	}

	configs := csthttp.Emit(root)
	ok := true
	if v.checkScripts {
		for _, c := range configs {
			if err := checkHandler(file, c); err != nil {
				fmt.Fprintf(v.errOut, "Error in %s: %v\n", file, err)
				ok = false
			}
		}
	}
	if ok {
		fmt.Fprintf(v.out, "Valid: %s (%d requests)\n", file, len(configs))
	}
	return ok
}

// checkHandler compiles the response handler of c, if any. Handler files
// whose path still holds variables are skipped.
func checkHandler(file string, c *csthttp.RequestConfig) error {
	h := c.Handler
	if h == nil {
		return nil
	}
	if h.File == "" {
		return script.Check(fmt.Sprintf("%s:%d", file, h.Line), h.Script)
	}
	if strings.Contains(h.File, "{{") {
		return nil
	}
	path := h.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(file), path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("line %d: reading handler: %w", h.Line, err)
	}
	return script.Check(path, string(data))
}

func (v *validator) watch(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	m, err := newFileMatcher(cfg.Extensions, cfg.Include, cfg.Exclude)
	if err != nil {
		return err
	}
	watched := make(map[string]bool)
	for _, arg := range args {
		root := arg
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			root = filepath.Dir(arg)
		}
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !watched[path] {
				if err := watcher.Add(path); err != nil {
					log.WithError(err).WithField("dir", path).Warn("cannot watch directory")
				}
				watched[path] = true
			}
			return nil
		})
	}

	fmt.Fprintf(v.out, "\nWatching for changes... (press Ctrl+C to stop)\n")

	var debounce *time.Timer
	changed := make(chan string, 1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !m.hasExtension(event.Name) {
				continue
			}
			name := event.Name
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case changed <- name:
				default:
				}
			})
		case name := <-changed:
			fmt.Fprintf(v.out, "\nFile changed: %s\n", name)
			v.validate(name)
			hits, misses := v.cache.Stats()
			log.WithFields(logrus.Fields{"hits": hits, "misses": misses, "entries": v.cache.Len()}).Debug("parse cache")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watcher error")
		}
	}
}
