package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
	noColorFlag  bool
	verboseFlag  bool

	// cfg is loaded before every command runs.
	cfg = config.DefaultConfig()
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "httpcst",
	Short: "Parse, check and send HTTP request files",
	Long: `httpcst reads HTTP request files (.http, .rest) into a concrete syntax
tree. It prints the tree, validates files, lists the requests they hold,
sends them and benchmarks them.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFlag, "config", getEnvString("HTTPCST_CONFIG", ""), "Path to config file (env: HTTPCST_CONFIG)")
	flags.StringVar(&logLevelFlag, "log-level", getEnvString("HTTPCST_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HTTPCST_LOG_LEVEL)")
	flags.BoolVar(&noColorFlag, "no-color", getEnvBool("HTTPCST_NO_COLOR", false), "Disable colored output (env: HTTPCST_NO_COLOR)")
	flags.BoolVarP(&verboseFlag, "verbose", "v", getEnvBool("HTTPCST_VERBOSE", false), "Verbose output (env: HTTPCST_VERBOSE)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("loading config: %w", err))
	}
	cfg = loaded

	if !cmd.Flags().Changed("no-color") && cfg.GetNoColor() {
		noColorFlag = true
	}
	if !cmd.Flags().Changed("verbose") && cfg.GetVerbose() {
		verboseFlag = true
	}
	if noColorFlag {
		color.NoColor = true
	}

	level := logLevelFlag
	if level == "" {
		level = cfg.LogLevel
	}
	if verboseFlag && logLevelFlag == "" {
		level = "info"
	}
	return setupLogger(level, noColorFlag)
}

func setupLogger(level string, noColor bool) error {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    noColor,
		DisableTimestamp: true,
	})
	if level == "" {
		level = "warn"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid log level %q: %w", level, err))
	}
	log.SetLevel(lvl)
	return nil
}

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCode(err error) int {
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return ExitTestFailure
}
