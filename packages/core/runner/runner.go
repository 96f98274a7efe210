package runner

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/httpcst/packages/core/env"
	"github.com/abdul-hamid-achik/httpcst/packages/core/parser"
	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
	"github.com/abdul-hamid-achik/httpcst/packages/script"
)

type Runner struct {
	client   *csthttp.Client
	resolver *env.Resolver
	scripts  *script.Runner
	filter   glob.Glob
	log      logrus.FieldLogger
	config   *Config
}

type Config struct {
	Environment    string
	EnvFile        string
	// EnvDir holds the environment files; empty means the directory of
	// each request file.
	EnvDir         string
	Variables      map[string]string
	Timeout        time.Duration
	FollowRedirect bool
	ValidateSSL    bool
	Proxy          string
	DefaultHeaders map[string]string
	Bail           bool
	Memoize        bool
	SaveResponses  bool
	Logger         logrus.FieldLogger

	// Filter is a glob matched against each request's label, e.g.
	// "POST */users*".
	Filter string

	// Rate caps outgoing requests per second; zero is unlimited.
	Rate float64
}

func NewRunner(cfg *Config) (*Runner, error) {
	if cfg == nil {
		cfg = &Config{FollowRedirect: true, ValidateSSL: true}
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	clientOpts := []csthttp.ClientOption{
		csthttp.WithFollowRedirects(cfg.FollowRedirect),
		csthttp.WithValidateSSL(cfg.ValidateSSL),
		csthttp.WithDefaultHeaders(cfg.DefaultHeaders),
		csthttp.WithRateLimit(cfg.Rate),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, csthttp.WithTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, csthttp.WithProxy(cfg.Proxy))
	}

	r := &Runner{
		client:   csthttp.NewClient(clientOpts...),
		resolver: env.NewResolver(),
		scripts: script.NewRunner(script.WithLogger(func(format string, args ...any) {
			log.WithField("source", "handler").Infof(format, args...)
		})),
		log:    log,
		config: cfg,
	}
	r.resolver.SetWarnFunc(log.Warnf)

	if cfg.Filter != "" {
		g, err := glob.Compile(cfg.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", cfg.Filter, err)
		}
		r.filter = g
	}
	return r, nil
}

type RunResult struct {
	File     string           `json:"file"`
	Results  []*RequestResult `json:"results"`
	Duration time.Duration    `json:"duration"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	Skipped  int              `json:"skipped"`
}

type RequestResult struct {
	Name       string                 `json:"name"`
	Line       int                    `json:"line"`
	Passed     bool                   `json:"passed"`
	Skipped    bool                   `json:"skipped,omitempty"`
	SkipReason string                 `json:"skipReason,omitempty"`
	Duration   time.Duration          `json:"duration"`
	Request    *http.Request          `json:"-"`
	Response   *csthttp.Response      `json:"-"`
	Script     *script.Result         `json:"script,omitempty"`
	SavedTo    string                 `json:"savedTo,omitempty"`
	Diff       string                 `json:"diff,omitempty"`
	Config     *csthttp.RequestConfig `json:"-"`
	Error      error                  `json:"-"`
}

// RunFile parses path and sends its requests in order. Variables come from
// the environment files next to path, then the dotenv file, then the
// configured overrides; values set by response handlers win over all of
// them for the requests that follow.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	root, err := parser.ParseFile(path, parser.WithMemoize(r.config.Memoize))
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	baseDir := filepath.Dir(path)
	if err := r.loadVariables(baseDir); err != nil {
		return nil, err
	}

	result, err := r.Run(ctx, csthttp.Emit(root), baseDir)
	if err != nil {
		return nil, err
	}
	result.File = path
	return result, nil
}

func (r *Runner) loadVariables(baseDir string) error {
	if r.config.EnvDir != "" {
		baseDir = r.config.EnvDir
	}
	vars, err := env.LoadVariables(baseDir, env.Sources{
		Environment: r.config.Environment,
		EnvFile:     r.config.EnvFile,
		Overrides:   r.config.Variables,
	})
	if err != nil {
		return err
	}
	r.resolver.SetVariables(vars)
	return nil
}

// Run sends configs in order.
func (r *Runner) Run(ctx context.Context, configs []*csthttp.RequestConfig, baseDir string) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	for _, c := range configs {
		if r.filter != nil && !r.filter.Match(c.Label()) {
			result.Results = append(result.Results, &RequestResult{
				Name:       c.Label(),
				Line:       c.Line,
				Skipped:    true,
				SkipReason: "filtered out",
				Config:     c,
			})
			result.Skipped++
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reqResult := r.runRequest(ctx, c, baseDir)
		result.Results = append(result.Results, reqResult)
		if reqResult.Passed {
			result.Passed++
			continue
		}
		result.Failed++
		if r.config.Bail {
			break
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (r *Runner) runRequest(ctx context.Context, c *csthttp.RequestConfig, baseDir string) *RequestResult {
	result := &RequestResult{
		Name:   c.Label(),
		Line:   c.Line,
		Config: c,
	}
	log := r.log.WithFields(logrus.Fields{"line": c.Line, "request": result.Name})

	r.resolver.SetVariables(r.scripts.Globals())

	start := time.Now()
	req, err := c.NewRequest(ctx, r.resolver.Resolve, baseDir)
	if err != nil {
		result.Error = err
		return result
	}
	result.Request = req
	result.Name = c.Method + " " + req.URL.String()

	resp, err := r.client.Do(ctx, req)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.Response = resp
	log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": resp.Duration}).Debug("response received")

	result.Passed = resp.IsSuccess()
	if c.Handler != nil {
		res, err := r.runHandler(ctx, c.Handler, baseDir, resp)
		result.Script = res
		if err != nil {
			result.Error = err
			result.Passed = false
		} else if res != nil && len(res.Tests) > 0 {
			result.Passed = res.Passed()
		}
	}

	if c.ResponseRef != nil {
		r.handleResponseRef(log, c.ResponseRef, baseDir, resp, result)
	}

	return result
}

// handleResponseRef saves the response for ">>" when saving is enabled, and
// diffs it against the stored one for "<>". A mismatch is reported but does
// not fail the request.
func (r *Runner) handleResponseRef(log logrus.FieldLogger, ref *csthttp.ResponseRef, baseDir string, resp *csthttp.Response, result *RequestResult) {
	path := resolvePath(baseDir, r.resolver.Resolve(ref.Path))
	switch ref.Marker {
	case ">>":
		if !r.config.SaveResponses {
			return
		}
		if err := os.WriteFile(path, resp.Dump(), 0o644); err != nil {
			log.WithError(err).Warn("could not save response")
			return
		}
		result.SavedTo = path
	case "<>":
		diff, err := compareResponse(path, resp)
		if err != nil {
			log.WithError(err).Warn("could not compare response")
			return
		}
		if diff != "" {
			log.WithField("reference", path).Info("response differs from reference")
			result.Diff = diff
		}
	}
}

func (r *Runner) runHandler(ctx context.Context, h *csthttp.Handler, baseDir string, resp *csthttp.Response) (*script.Result, error) {
	name := fmt.Sprintf("handler:%d", h.Line)
	source := h.Script
	if h.File != "" {
		path := resolvePath(baseDir, r.resolver.Resolve(h.File))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading handler: %w", err)
		}
		name, source = path, string(data)
	}
	return r.scripts.Run(ctx, name, source, resp)
}

// Globals returns the variables set by response handlers so far.
func (r *Runner) Globals() map[string]string {
	return r.scripts.Globals()
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
