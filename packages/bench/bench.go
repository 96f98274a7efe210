package bench

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/httpcst/packages/core/env"
	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

const (
	rampInterval     = 100 * time.Millisecond
	progressInterval = 500 * time.Millisecond
)

type Runner struct {
	config   *Config
	client   *csthttp.Client
	resolver *env.Resolver
	reporter *Reporter
	log      logrus.FieldLogger
	filter   glob.Glob
	metrics  *Metrics
	exporter *Exporter

	file    string
	baseDir string
	targets []*Target
}

type RunnerOption func(*Runner)

func WithHTTPClient(client *csthttp.Client) RunnerOption {
	return func(r *Runner) {
		r.client = client
	}
}

// WithResolver supplies the variables used to build every request.
func WithResolver(resolver *env.Resolver) RunnerOption {
	return func(r *Runner) {
		r.resolver = resolver
	}
}

func WithReporter(reporter *Reporter) RunnerOption {
	return func(r *Runner) {
		r.reporter = reporter
	}
}

func WithLogger(log logrus.FieldLogger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// WithFilter keeps only requests whose label ("METHOD url") matches g.
func WithFilter(g glob.Glob) RunnerOption {
	return func(r *Runner) {
		r.filter = g
	}
}

// WithExporter mirrors every result into e.
func WithExporter(e *Exporter) RunnerOption {
	return func(r *Runner) {
		r.exporter = e
	}
}

func NewRunner(config *Config, opts ...RunnerOption) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	r := &Runner{
		config:  config,
		metrics: NewMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = csthttp.NewClient()
	}
	if r.resolver == nil {
		r.resolver = env.NewResolver()
	}
	if r.reporter == nil {
		r.reporter = NewReporter()
	}
	if r.log == nil {
		r.log = logrus.StandardLogger()
	}
	return r
}

// LoadFile parses path and registers its requests as targets.
func (r *Runner) LoadFile(path string) error {
	root, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing file: %w", err)
	}
	r.file = path
	return r.Load(csthttp.Emit(root), filepath.Dir(path))
}

// Load registers configs as targets. Body files are read relative to
// baseDir.
func (r *Runner) Load(configs []*csthttp.RequestConfig, baseDir string) error {
	r.baseDir = baseDir
	r.targets = r.targets[:0]

	for _, c := range configs {
		label := c.Label()
		if r.filter != nil && !r.filter.Match(label) {
			continue
		}
		log := r.log.WithFields(logrus.Fields{"line": c.Line, "request": label})
		if c.Handler != nil {
			log.Debug("response handler is not run under load")
		}
		if missing := r.unresolved(c); len(missing) > 0 {
			log.Warnf("unresolved variables: %s", strings.Join(missing, ", "))
		}
		r.targets = append(r.targets, &Target{Name: label, Config: c})
	}

	if len(r.targets) == 0 {
		return errors.New("no requests to run")
	}
	return nil
}

func (r *Runner) unresolved(c *csthttp.RequestConfig) []string {
	parts := []string{c.FullURL(), c.Data}
	for _, name := range c.HeaderOrder {
		parts = append(parts, c.Headers[name]...)
	}
	return r.resolver.Unresolved(strings.Join(parts, "\n"))
}

// Targets returns the registered requests in file order.
func (r *Runner) Targets() []*Target {
	return r.targets
}

type Result struct {
	File       string            `json:"file,omitempty" yaml:"file,omitempty"`
	Mode       string            `json:"mode" yaml:"mode"`
	Summary    *Summary          `json:"summary" yaml:"summary"`
	Thresholds []ThresholdResult `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Passed     bool              `json:"passed" yaml:"passed"`
}

// Run generates load until the configured duration elapses or ctx is done.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(r.targets) == 0 {
		return nil, errors.New("no requests loaded")
	}

	// Warnings were reported once by Load.
	resolver := r.resolver.Clone()
	resolver.SetWarnFunc(nil)

	scheduler := NewScheduler(r.config, r.targets)
	r.reporter.Header(r.file, r.config, len(r.targets))

	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	r.metrics.Start()
	progressDone := make(chan struct{})
	var progressWG sync.WaitGroup
	progressWG.Add(1)
	go func() {
		defer progressWG.Done()
		r.progressLoop(progressDone)
	}()

	exec := func(ctx context.Context, t *Target) {
		r.execute(ctx, resolver, t)
	}
	if r.config.Mode == VUMode {
		r.runVUs(ctx, scheduler, exec)
	} else {
		r.runRate(ctx, scheduler, exec)
	}

	r.metrics.Stop()
	close(progressDone)
	progressWG.Wait()
	r.reporter.ClearProgress()

	summary := r.metrics.Summary()
	result := &Result{
		File:       r.file,
		Mode:       r.config.Mode.String(),
		Summary:    summary,
		Thresholds: summary.Evaluate(r.config.Thresholds),
		Passed:     true,
	}
	for _, tr := range result.Thresholds {
		if !tr.Passed {
			result.Passed = false
		}
	}
	return result, nil
}

func (r *Runner) runRate(ctx context.Context, s *Scheduler, exec func(context.Context, *Target)) {
	var wg sync.WaitGroup
	defer wg.Wait()

	start := time.Now()
	lastRamp := start
	for {
		if r.config.RampUp > 0 && time.Since(lastRamp) >= rampInterval {
			lastRamp = time.Now()
			s.SetRate(s.RateAt(lastRamp.Sub(start)))
		}
		if err := s.Wait(ctx); err != nil {
			return
		}
		if err := s.Acquire(ctx); err != nil {
			return
		}
		t := s.Next()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.Release()
			exec(ctx, t)
		}()
	}
}

func (r *Runner) runVUs(ctx context.Context, s *Scheduler, exec func(context.Context, *Target)) {
	pool := newVUPool(s, r.config.ThinkTime, exec)
	pool.Scale(ctx, s.VUsAt(0))

	if r.config.RampUp > 0 {
		ticker := time.NewTicker(rampInterval)
		defer ticker.Stop()
		start := time.Now()
	ramp:
		for {
			select {
			case <-ctx.Done():
				break ramp
			case <-ticker.C:
				pool.Scale(ctx, s.VUsAt(time.Since(start)))
			}
		}
	}

	<-ctx.Done()
	pool.Stop()
}

// execute sends one request for t and records its outcome. Requests still
// in flight when the run ends count as timeouts.
func (r *Runner) execute(ctx context.Context, resolver *env.Resolver, t *Target) {
	r.metrics.Begin()
	defer r.metrics.Done()
	if r.exporter != nil {
		r.exporter.inFlight.Inc()
		defer r.exporter.inFlight.Dec()
	}

	start := time.Now()
	err := r.send(ctx, resolver, t)
	elapsed := time.Since(start)

	outcome := OutcomeSuccess
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = OutcomeTimeout
		r.metrics.RecordTimeout(t.Name)
	case err != nil:
		outcome = OutcomeError
		r.metrics.Record(t.Name, elapsed, err)
	default:
		r.metrics.Record(t.Name, elapsed, nil)
	}
	if r.exporter != nil {
		r.exporter.Observe(t.Name, outcome, elapsed)
	}
}

// send returns an error for transport failures and non-2xx statuses.
func (r *Runner) send(ctx context.Context, resolver *env.Resolver, t *Target) error {
	req, err := t.Config.NewRequest(ctx, resolver.Resolve, r.baseDir)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func (r *Runner) progressLoop(done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			r.reporter.Progress(r.metrics.Stats(), r.config.Duration)
		}
	}
}
