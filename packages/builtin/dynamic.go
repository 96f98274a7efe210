package builtin

import (
	"math/rand"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Func computes a dynamic variable. args holds the arguments of a call
// such as $random.integer(1, 10) and is nil for a bare name.
type Func func(args []string) (string, bool)

const processEnvPrefix = "processEnv."

// Registry maps dynamic variable names (without the leading '$') to their
// implementations.
type Registry struct {
	funcs  map[string]Func
	now    func() time.Time
	getenv func(string) (string, bool)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the clock used by the timestamp variables.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithLookupEnv replaces the process environment lookup used by
// $processEnv.NAME.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(r *Registry) {
		r.getenv = fn
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		funcs:  make(map[string]Func),
		now:    time.Now,
		getenv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["uuid"] = funcUUID
	r.funcs["random.uuid"] = funcUUID
	r.funcs["timestamp"] = func(_ []string) (string, bool) {
		return strconv.FormatInt(r.now().Unix(), 10), true
	}
	r.funcs["isoTimestamp"] = func(_ []string) (string, bool) {
		return r.now().UTC().Format(time.RFC3339), true
	}
	r.funcs["randomInt"] = funcRandomInt
	r.funcs["random.integer"] = funcRandomInt
	r.funcs["random.float"] = funcRandomFloat
	r.funcs["random.email"] = funcRandomEmail
	r.funcs["random.alphabetic"] = charsetFunc(lowerLetters + upperLetters)
	r.funcs["random.alphanumeric"] = charsetFunc(lowerLetters + upperLetters + digits + "_")
	r.funcs["random.hexadecimal"] = charsetFunc(digits + "abcdef")
}

// Register adds or replaces a dynamic variable.
func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Names returns the registered variable names in sorted order, each with
// its leading '$'.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs)+1)
	for name := range r.funcs {
		names = append(names, "$"+name)
	}
	names = append(names, "$"+processEnvPrefix+"NAME")
	sort.Strings(names)
	return names
}

var callPattern = regexp.MustCompile(`^([\w.]+)\((.*)\)$`)

// Call evaluates expr, a dynamic variable reference without its leading
// '$': "uuid", "random.integer(1, 6)" or "processEnv.HOME". It reports
// false when the variable is unknown or cannot be computed.
func (r *Registry) Call(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	if name, ok := strings.CutPrefix(expr, processEnvPrefix); ok {
		if name == "" {
			return "", false
		}
		return r.getenv(name)
	}

	name, argsStr := expr, ""
	hasArgs := false
	if m := callPattern.FindStringSubmatch(expr); m != nil {
		name, argsStr, hasArgs = m[1], m[2], true
	}

	fn, ok := r.funcs[name]
	if !ok {
		return "", false
	}
	var args []string
	if hasArgs && strings.TrimSpace(argsStr) != "" {
		args = parseArgs(argsStr)
	}
	return fn(args)
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	args = append(args, strings.TrimSpace(current.String()))
	return args
}

const (
	lowerLetters = "abcdefghijklmnopqrstuvwxyz"
	upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits       = "0123456789"
)

func funcUUID(_ []string) (string, bool) {
	return uuid.New().String(), true
}

// funcRandomInt returns an integer in [from, to). Without arguments the
// range is [0, 1000).
func funcRandomInt(args []string) (string, bool) {
	from, to := 0, 1000
	if len(args) > 0 {
		if len(args) != 2 {
			return "", false
		}
		var err error
		if from, err = strconv.Atoi(args[0]); err != nil {
			return "", false
		}
		if to, err = strconv.Atoi(args[1]); err != nil {
			return "", false
		}
	}
	if to <= from {
		return "", false
	}
	return strconv.Itoa(from + rand.Intn(to-from)), true
}

func funcRandomFloat(args []string) (string, bool) {
	from, to := 0.0, 1000.0
	if len(args) > 0 {
		if len(args) != 2 {
			return "", false
		}
		var err error
		if from, err = strconv.ParseFloat(args[0], 64); err != nil {
			return "", false
		}
		if to, err = strconv.ParseFloat(args[1], 64); err != nil {
			return "", false
		}
	}
	if to <= from {
		return "", false
	}
	return strconv.FormatFloat(from+rand.Float64()*(to-from), 'f', -1, 64), true
}

func funcRandomEmail(_ []string) (string, bool) {
	return randomString(8, lowerLetters) + "@" + randomString(6, lowerLetters) + ".com", true
}

// charsetFunc returns a Func producing a random string of the requested
// length (default 10) drawn from charset.
func charsetFunc(charset string) Func {
	return func(args []string) (string, bool) {
		length := 10
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return "", false
			}
			length = n
		}
		return randomString(length, charset), true
	}
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
