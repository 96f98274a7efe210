package script

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

// DefaultTimeout bounds a single handler run.
const DefaultTimeout = 5 * time.Second

var ErrInterrupted = errors.New("script interrupted")

// Check compiles source without running it and reports syntax errors.
func Check(name, source string) error {
	if _, err := goja.Compile(name, source, false); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

type TestResult struct {
	Name    string        `json:"name"`
	Passed  bool          `json:"passed"`
	Message string        `json:"message,omitempty"`
	Elapsed time.Duration `json:"elapsed"`
}

type Result struct {
	Tests []TestResult `json:"tests,omitempty"`
	Logs  []string     `json:"logs,omitempty"`
}

// Passed reports whether every recorded check passed.
func (r *Result) Passed() bool {
	for _, t := range r.Tests {
		if !t.Passed {
			return false
		}
	}
	return true
}

type Runner struct {
	mu      sync.RWMutex
	globals map[string]string
	timeout time.Duration
	logf    func(format string, args ...any)
}

type Option func(*Runner)

func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger mirrors client.log output to logf as well as the Result.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(r *Runner) {
		r.logf = logf
	}
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		globals: make(map[string]string),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Global returns a variable stored by an earlier script.
func (r *Runner) Global(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.globals[name]
	return v, ok
}

func (r *Runner) SetGlobal(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.globals[name] = value
}

// Globals returns a copy of every stored variable.
func (r *Runner) Globals() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.globals))
	for k, v := range r.globals {
		out[k] = v
	}
	return out
}

// GlobalNames returns the stored variable names, sorted.
func (r *Runner) GlobalNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.globals))
	for k := range r.globals {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Run executes source against resp. A runtime error or a timeout is
// returned as an error; failed checks are reported in the Result.
func (r *Runner) Run(ctx context.Context, name, source string, resp *csthttp.Response) (*Result, error) {
	program, err := goja.Compile(name, source, false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	vm := goja.New()

	api := &clientAPI{runner: r, result: &Result{}}
	if err := vm.Set("client", api.object()); err != nil {
		return nil, err
	}
	if err := vm.Set("response", newResponseAPI(resp).object()); err != nil {
		return nil, err
	}
	if err := vm.Set("console", map[string]any{"log": api.log}); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ErrInterrupted)
	})
	defer stop()

	if _, err := vm.RunProgram(program); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return api.result, fmt.Errorf("%s: %w: %v", name, ErrInterrupted, ctx.Err())
		}
		return api.result, fmt.Errorf("%s: %w", name, err)
	}
	return api.result, nil
}

type clientAPI struct {
	runner  *Runner
	result  *Result
	current *TestResult
}

func (api *clientAPI) object() map[string]any {
	return map[string]any{
		"global": map[string]any{
			"set": func(name string, value goja.Value) {
				api.runner.SetGlobal(name, value.String())
			},
			"get": func(name string) any {
				if v, ok := api.runner.Global(name); ok {
					return v
				}
				return nil
			},
			"isEmpty": func() bool {
				return len(api.runner.GlobalNames()) == 0
			},
			"clear": func(name string) {
				api.runner.mu.Lock()
				delete(api.runner.globals, name)
				api.runner.mu.Unlock()
			},
			"clearAll": func() {
				api.runner.mu.Lock()
				api.runner.globals = make(map[string]string)
				api.runner.mu.Unlock()
			},
		},
		"test":   api.test,
		"assert": api.assert,
		"log":    api.log,
	}
}

func (api *clientAPI) log(call goja.FunctionCall) goja.Value {
	parts := make([]string, 0, len(call.Arguments))
	for _, arg := range call.Arguments {
		parts = append(parts, arg.String())
	}
	line := strings.Join(parts, " ")
	api.result.Logs = append(api.result.Logs, line)
	if api.runner.logf != nil {
		api.runner.logf("%s", line)
	}
	return goja.Undefined()
}

func (api *clientAPI) test(name string, fn goja.Callable) {
	tr := TestResult{Name: name, Passed: true}
	start := time.Now()
	api.current = &tr
	defer func() {
		api.current = nil
		tr.Elapsed = time.Since(start)
		api.result.Tests = append(api.result.Tests, tr)
	}()

	if fn == nil {
		tr.Passed = false
		tr.Message = "client.test requires a function argument"
		return
	}
	if _, err := fn(goja.Undefined()); err != nil {
		tr.Passed = false
		tr.Message = err.Error()
	}
}

// assert fails the enclosing client.test, or records a standalone check
// when called outside one.
func (api *clientAPI) assert(condition bool, message string) {
	if message == "" {
		message = "assertion failed"
	}
	if api.current != nil {
		if !condition && api.current.Passed {
			api.current.Passed = false
			api.current.Message = message
		}
		return
	}
	tr := TestResult{Name: message, Passed: condition}
	if !condition {
		tr.Message = message
	}
	api.result.Tests = append(api.result.Tests, tr)
}
