package env

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/httpcst/packages/builtin"
)

var variablePattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Resolver replaces {{name}} references with environment variables and
// {{$name}} references with dynamic variables. It is safe for concurrent
// use.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]string
	funcs     *builtin.Registry
	warnFunc  WarnFunc
}

func NewResolver() *Resolver {
	return NewResolverWith(builtin.NewRegistry())
}

// NewResolverWith creates a resolver that computes dynamic variables with
// funcs.
func NewResolverWith(funcs *builtin.Registry) *Resolver {
	return &Resolver{
		variables: make(map[string]string),
		funcs:     funcs,
	}
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

func (r *Resolver) SetVariables(vars map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

func (r *Resolver) GetVariable(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.variables[name]
	return v, ok
}

// Names returns the names of all environment variables in sorted order.
func (r *Resolver) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.variables))
	for k := range r.variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// lookup resolves a single reference body, already trimmed.
func (r *Resolver) lookup(expr string) (string, bool) {
	if name, ok := strings.CutPrefix(expr, "$"); ok {
		return r.funcs.Call(name)
	}
	return r.GetVariable(expr)
}

// Resolve substitutes every reference in input. Unresolved references are
// left as written and reported through the warn function, with the closest
// known names as a hint.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := r.lookup(expr); ok {
			return v
		}
		r.warnUnresolved(expr)
		return match
	})
}

func (r *Resolver) warnUnresolved(expr string) {
	kind := "variable"
	candidates := r.Names()
	if strings.HasPrefix(expr, "$") {
		kind = "dynamic variable"
		candidates = r.funcs.Names()
	}
	if hint := Suggest(expr, candidates); hint != "" {
		r.warn("unresolved %s: %s (%s)", kind, expr, hint)
		return
	}
	r.warn("unresolved %s: %s", kind, expr)
}

// ResolveAll resolves every value of values.
func (r *Resolver) ResolveAll(values map[string]string) map[string]string {
	result := make(map[string]string, len(values))
	for k, v := range values {
		result[k] = r.Resolve(v)
	}
	return result
}

// Unresolved returns the references in input that cannot be resolved, in
// order of appearance and without duplicates.
func (r *Resolver) Unresolved(input string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if seen[expr] {
			continue
		}
		seen[expr] = true
		// Dynamic variables are not evaluated here; only their names are checked.
		if name, ok := strings.CutPrefix(expr, "$"); ok && r.isDynamic(name) {
			continue
		}
		if _, ok := r.GetVariable(expr); ok {
			continue
		}
		out = append(out, expr)
	}
	return out
}

// HasUnresolvedVariables reports whether input holds a reference that
// cannot be resolved.
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.Unresolved(input)) > 0
}

func (r *Resolver) isDynamic(name string) bool {
	if strings.HasPrefix(name, "processEnv.") {
		_, ok := r.funcs.Call(name)
		return ok
	}
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	for _, n := range r.funcs.Names() {
		if n == "$"+name {
			return true
		}
	}
	return false
}

func (r *Resolver) Clone() *Resolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := NewResolverWith(r.funcs)
	for k, v := range r.variables {
		clone.variables[k] = v
	}
	clone.warnFunc = r.warnFunc
	return clone
}
