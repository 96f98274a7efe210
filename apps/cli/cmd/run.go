package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpcst/packages/core/runner"
	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

var (
	envFlag        string
	envFileFlag    string
	varFlags       []string
	filterFlag     string
	rateFlag       float64
	saveFlag       bool
	bailFlag       bool
	timeoutFlag    string
	proxyFlag      string
	insecureFlag   bool
	outputFlag     string
	outputFileFlag string
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>...",
	Short: "Send the requests of request files",
	Long: `Send the requests of request files in order. Response handlers run
after each response and the globals they set are visible to later requests.

A request passes when its status is 2xx, or when its handler declared
tests and all of them passed.

Examples:
  httpcst run api.http
  httpcst run api.http --env staging --var user=ann
  httpcst run ./requests/ --filter 'GET *' -o junit --output-file report.xml
  httpcst run api.http --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&envFlag, "env", "e", getEnvString("HTTPCST_ENV", ""), "Environment to use (env: HTTPCST_ENV)")
	f.StringVar(&envFileFlag, "env-file", getEnvString("HTTPCST_ENV_FILE", ""), "Path to .env file for variable interpolation (env: HTTPCST_ENV_FILE)")
	f.StringArrayVar(&varFlags, "var", nil, "Set a variable (name=value), may be repeated")
	f.StringVar(&filterFlag, "filter", getEnvString("HTTPCST_FILTER", ""), "Glob matched against \"METHOD url\" (env: HTTPCST_FILTER)")
	f.Float64Var(&rateFlag, "rate", getEnvFloat("HTTPCST_RATE", 0), "Maximum requests per second, 0 for unlimited (env: HTTPCST_RATE)")
	f.BoolVar(&saveFlag, "save", getEnvBool("HTTPCST_SAVE", false), "Write responses to their >> references (env: HTTPCST_SAVE)")
	f.BoolVar(&bailFlag, "bail", getEnvBool("HTTPCST_BAIL", false), "Stop on first failure (env: HTTPCST_BAIL)")
	f.StringVar(&timeoutFlag, "timeout", getEnvString("HTTPCST_TIMEOUT", ""), "Request timeout, e.g. 30s (env: HTTPCST_TIMEOUT)")
	f.StringVar(&proxyFlag, "proxy", getEnvString("HTTPCST_PROXY", ""), "Proxy URL for HTTP requests (env: HTTPCST_PROXY)")
	f.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HTTPCST_INSECURE", false), "Disable SSL certificate validation (env: HTTPCST_INSECURE)")
	f.StringVarP(&outputFlag, "output", "o", getEnvString("HTTPCST_OUTPUT", "console"), "Output format: "+strings.Join(output.Formats, ", ")+" (env: HTTPCST_OUTPUT)")
	f.StringVar(&outputFileFlag, "output-file", getEnvString("HTTPCST_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: HTTPCST_OUTPUT_FILE)")
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid variable %q (expected name=value)", p)
		}
		vars[strings.TrimSpace(name)] = value
	}
	return vars, nil
}

func timeoutSetting() (time.Duration, error) {
	raw := timeoutFlag
	if raw == "" {
		raw = cfg.Timeout
	}
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", raw, err)
	}
	return d, nil
}

func buildRunnerConfig() (*runner.Config, error) {
	vars, err := parseVars(varFlags)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	timeout, err := timeoutSetting()
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}

	environment := envFlag
	if environment == "" {
		environment = cfg.DefaultEnvironment
	}
	envFile := envFileFlag
	if envFile == "" {
		envFile = cfg.EnvFile
	}
	proxy := proxyFlag
	if proxy == "" {
		proxy = cfg.Proxy
	}

	return &runner.Config{
		Environment:    environment,
		EnvFile:        envFile,
		EnvDir:         cfg.EnvDir,
		Variables:      vars,
		Timeout:        timeout,
		FollowRedirect: cfg.GetFollowRedirects(),
		ValidateSSL:    cfg.GetValidateSSL() && !insecureFlag,
		Proxy:          proxy,
		DefaultHeaders: cfg.Headers,
		Bail:           bailFlag,
		Memoize:        cfg.GetMemoize(),
		SaveResponses:  saveFlag,
		Logger:         log,
		Filter:         filterFlag,
		Rate:           rateFlag,
	}, nil
}

func runCommand(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	runCfg, err := buildRunnerConfig()
	if err != nil {
		return err
	}
	r, err := runner.NewRunner(runCfg)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputFileFlag != "" {
		file, err := os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer file.Close()
		w = file
	}
	formatter, err := output.New(strings.ToLower(outputFlag), w, verboseFlag, noColorFlag || outputFileFlag != "")
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	formatter.FormatHeader(version)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var (
		failed     int
		firstError error
	)
	for _, file := range files {
		result, err := r.RunFile(ctx, file)
		if err != nil {
			formatter.FormatError(fmt.Errorf("%s: %w", file, err))
			if firstError == nil {
				firstError = err
			}
			if bailFlag || ctx.Err() != nil {
				break
			}
			continue
		}
		formatter.FormatResult(result)
		failed += result.Failed
		if firstError == nil {
			firstError = networkError(result)
		}
		if bailFlag && result.Failed > 0 {
			break
		}
	}

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(time.Since(start)); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	switch {
	case firstError != nil && isParseError(firstError):
		return withExitCode(ExitParseError, firstError)
	case firstError != nil && isNetworkError(firstError):
		return withExitCode(ExitNetworkError, firstError)
	case firstError != nil:
		return firstError
	case failed > 0:
		return withExitCode(ExitTestFailure, fmt.Errorf("%d requests failed", failed))
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// networkError returns the first transport error of result, if any.
func networkError(result *runner.RunResult) error {
	for _, r := range result.Results {
		if r.Error != nil && isNetworkError(r.Error) {
			return r.Error
		}
	}
	return nil
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}
