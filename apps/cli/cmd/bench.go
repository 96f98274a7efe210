package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abdul-hamid-achik/httpcst/packages/bench"
	"github.com/abdul-hamid-achik/httpcst/packages/core/config"
	"github.com/abdul-hamid-achik/httpcst/packages/core/env"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/output"
)

var (
	benchDurationFlag    string
	benchRateFlag        float64
	benchVUsFlag         int
	benchMaxInFlightFlag int
	benchThinkTimeFlag   string
	benchRampUpFlag      string
	benchThresholdFlag   string
	benchNoProgressFlag  bool
	benchOutputFlag      string
	benchMetricsAddrFlag string
)

var benchCmd = &cobra.Command{
	Use:   "bench <file>",
	Short: "Send the requests of a file under load",
	Long: `Send the requests of a request file repeatedly, either at a fixed rate
or from a number of virtual users, and report latency percentiles.
Response handlers are not run.

Examples:
  httpcst bench api.http --duration 1m --rate 100
  httpcst bench api.http --vus 20 --think-time 200ms --ramp-up 10s
  httpcst bench api.http -d 30s -r 50 --threshold "p95<200ms,errors<1%"
  httpcst bench api.http --metrics-addr :9090 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: benchCommand,
}

func init() {
	f := benchCmd.Flags()
	f.StringVarP(&benchDurationFlag, "duration", "d", "", "Test duration, e.g. 30s, 5m")
	f.Float64VarP(&benchRateFlag, "rate", "r", 0, "Target requests per second")
	f.IntVar(&benchVUsFlag, "vus", 0, "Number of virtual users (switches to VU mode)")
	f.IntVar(&benchMaxInFlightFlag, "max-in-flight", 0, "Maximum concurrent requests in rate mode")
	f.StringVar(&benchThinkTimeFlag, "think-time", "", "Pause between requests of one virtual user")
	f.StringVar(&benchRampUpFlag, "ramp-up", "", "Time to reach the target rate or VU count")
	f.StringVar(&benchThresholdFlag, "threshold", "", "Pass/fail thresholds, e.g. \"p95<200ms,errors<1%\"")
	f.BoolVar(&benchNoProgressFlag, "no-progress", false, "Disable the live progress line")
	f.StringVarP(&benchOutputFlag, "output", "o", "console", "Output format: console, json, yaml")
	f.StringVar(&benchMetricsAddrFlag, "metrics-addr", getEnvString("HTTPCST_METRICS_ADDR", ""), "Serve Prometheus metrics on this address during the run (env: HTTPCST_METRICS_ADDR)")

	f.StringVarP(&envFlag, "env", "e", getEnvString("HTTPCST_ENV", ""), "Environment to use (env: HTTPCST_ENV)")
	f.StringVar(&envFileFlag, "env-file", getEnvString("HTTPCST_ENV_FILE", ""), "Path to .env file (env: HTTPCST_ENV_FILE)")
	f.StringArrayVar(&varFlags, "var", nil, "Set a variable (name=value), may be repeated")
	f.StringVar(&filterFlag, "filter", "", "Glob matched against \"METHOD url\"")
	f.StringVar(&timeoutFlag, "timeout", getEnvString("HTTPCST_TIMEOUT", ""), "Request timeout (env: HTTPCST_TIMEOUT)")
	f.StringVar(&proxyFlag, "proxy", getEnvString("HTTPCST_PROXY", ""), "Proxy URL (env: HTTPCST_PROXY)")
	f.BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HTTPCST_INSECURE", false), "Disable SSL certificate validation (env: HTTPCST_INSECURE)")
}

// buildBenchConfig layers the bench section of the config file and then
// the flags the user set over the defaults.
func buildBenchConfig(flags *pflag.FlagSet, fileCfg config.BenchConfig) (*bench.Config, error) {
	c := bench.DefaultConfig()

	duration := fileCfg.Duration
	if flags.Changed("duration") {
		duration = benchDurationFlag
	}
	if duration != "" {
		d, err := time.ParseDuration(duration)
		if err != nil {
			return nil, fmt.Errorf("invalid duration: %w", err)
		}
		c.Duration = d
	}

	if fileCfg.Rate > 0 {
		c.Rate = fileCfg.Rate
	}
	if flags.Changed("rate") {
		c.Rate = benchRateFlag
	}

	vus := fileCfg.VUs
	if flags.Changed("vus") {
		vus = benchVUsFlag
	}
	if vus > 0 {
		c.VUs = vus
		c.Mode = bench.VUMode
	}

	if fileCfg.MaxInFlight > 0 {
		c.MaxInFlight = fileCfg.MaxInFlight
	}
	if flags.Changed("max-in-flight") {
		c.MaxInFlight = benchMaxInFlightFlag
	}

	for _, d := range []struct {
		name   string
		file   string
		flag   string
		target *time.Duration
	}{
		{"think-time", fileCfg.ThinkTime, benchThinkTimeFlag, &c.ThinkTime},
		{"ramp-up", fileCfg.RampUp, benchRampUpFlag, &c.RampUp},
	} {
		raw := d.file
		if flags.Changed(d.name) {
			raw = d.flag
		}
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.target = v
	}

	thresholds := fileCfg.Thresholds
	if flags.Changed("threshold") {
		thresholds = benchThresholdFlag
	}
	if thresholds != "" {
		t, err := bench.ParseThresholds(thresholds)
		if err != nil {
			return nil, fmt.Errorf("invalid thresholds: %w", err)
		}
		c.Thresholds = t
	}

	return c, c.Validate()
}

func benchCommand(cmd *cobra.Command, args []string) error {
	file := args[0]
	benchCfg, err := buildBenchConfig(cmd.Flags(), cfg.Bench)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	runCfg, err := buildRunnerConfig()
	if err != nil {
		return err
	}
	envDir := runCfg.EnvDir
	if envDir == "" {
		envDir = filepath.Dir(file)
	}
	vars, err := env.LoadVariables(envDir, env.Sources{
		Environment: runCfg.Environment,
		EnvFile:     runCfg.EnvFile,
		Overrides:   runCfg.Variables,
	})
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	resolver := env.NewResolver()
	resolver.SetVariables(vars)

	clientOpts := []csthttp.ClientOption{
		csthttp.WithFollowRedirects(runCfg.FollowRedirect),
		csthttp.WithValidateSSL(runCfg.ValidateSSL),
		csthttp.WithDefaultHeaders(runCfg.DefaultHeaders),
	}
	if runCfg.Timeout > 0 {
		clientOpts = append(clientOpts, csthttp.WithTimeout(runCfg.Timeout))
	}
	if runCfg.Proxy != "" {
		clientOpts = append(clientOpts, csthttp.WithProxy(runCfg.Proxy))
	}

	format := strings.ToLower(benchOutputFlag)
	structured := format == "json" || format == "yaml"
	reporterOut := cmd.OutOrStdout()
	if structured {
		reporterOut = cmd.ErrOrStderr()
	}
	reporter := bench.NewReporter(
		bench.WithWriter(reporterOut),
		bench.WithNoColor(noColorFlag),
		bench.WithNoProgress(benchNoProgressFlag || structured),
		bench.WithVerbose(verboseFlag),
	)

	opts := []bench.RunnerOption{
		bench.WithHTTPClient(csthttp.NewClient(clientOpts...)),
		bench.WithResolver(resolver),
		bench.WithReporter(reporter),
		bench.WithLogger(log),
	}
	if filterFlag != "" {
		g, err := glob.Compile(filterFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid filter %q: %w", filterFlag, err))
		}
		opts = append(opts, bench.WithFilter(g))
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if benchMetricsAddrFlag != "" {
		exporter := bench.NewExporter()
		opts = append(opts, bench.WithExporter(exporter))
		go func() {
			if err := exporter.Serve(ctx, benchMetricsAddrFlag); err != nil {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		log.Infof("Prometheus metrics available at http://%s/metrics", benchMetricsAddrFlag)
	}

	r := bench.NewRunner(benchCfg, opts...)
	if err := r.LoadFile(file); err != nil {
		if isParseError(err) {
			return withExitCode(ExitParseError, err)
		}
		return withExitCode(ExitUsageError, err)
	}

	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		err = output.WriteJSON(cmd.OutOrStdout(), result, "")
	case "yaml":
		err = output.WriteYAML(cmd.OutOrStdout(), result)
	default:
		reporter.Summary(result)
	}
	if err != nil {
		return err
	}

	if !result.Passed {
		return withExitCode(ExitTestFailure, fmt.Errorf("thresholds failed"))
	}
	return nil
}
