// Package bench replays the requests of a request file under load and
// reports latency percentiles, throughput and error rates against optional
// pass/fail thresholds.
package bench

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Mode selects how load is generated.
type Mode int

const (
	// RateMode sends requests at a fixed rate regardless of latency.
	RateMode Mode = iota
	// VUMode runs a number of virtual users that each send one request
	// after another.
	VUMode
)

func (m Mode) String() string {
	if m == VUMode {
		return "vu"
	}
	return "rate"
}

// ParseMode accepts "rate" or "vu".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "rate":
		return RateMode, nil
	case "vu", "vus":
		return VUMode, nil
	}
	return RateMode, fmt.Errorf("unknown bench mode %q (want rate or vu)", s)
}

type Config struct {
	Mode     Mode
	Duration time.Duration
	// Rate is requests per second in RateMode.
	Rate float64
	// VUs is the number of virtual users in VUMode.
	VUs int
	// MaxInFlight caps concurrent requests in both modes.
	MaxInFlight int
	// ThinkTime is the pause between requests of one virtual user.
	ThinkTime time.Duration
	// RampUp grows the rate or VU count linearly from zero.
	RampUp     time.Duration
	Thresholds Thresholds
}

func DefaultConfig() *Config {
	return &Config{
		Mode:        RateMode,
		Duration:    10 * time.Second,
		Rate:        10,
		VUs:         1,
		MaxInFlight: 100,
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Duration <= 0:
		return fmt.Errorf("duration must be positive")
	case c.Mode == RateMode && c.Rate <= 0:
		return fmt.Errorf("rate must be positive in rate mode")
	case c.Mode == VUMode && c.VUs <= 0:
		return fmt.Errorf("vus must be positive in vu mode")
	case c.MaxInFlight < 1:
		return fmt.Errorf("max in-flight must be at least 1")
	case c.RampUp < 0:
		return fmt.Errorf("ramp-up cannot be negative")
	case c.RampUp > c.Duration:
		return fmt.Errorf("ramp-up cannot exceed duration")
	}
	return nil
}

// Thresholds are pass/fail limits checked after a run. Zero values are
// unset.
type Thresholds struct {
	P50        time.Duration
	P95        time.Duration
	P99        time.Duration
	MaxLatency time.Duration
	ErrorRate  float64
	MinRPS     float64
}

func (t Thresholds) IsZero() bool {
	return t == Thresholds{}
}

type ThresholdResult struct {
	Name     string `json:"name" yaml:"name"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Expected string `json:"expected" yaml:"expected"`
	Actual   string `json:"actual" yaml:"actual"`
}

var thresholdPattern = regexp.MustCompile(`^(\w+)\s*([<>]=?)\s*(.+)$`)

// ParseThresholds parses a comma separated list such as
// "p95<200ms,errors<1%,rps>50".
func ParseThresholds(s string) (Thresholds, error) {
	var t Thresholds
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := parseThreshold(part, &t); err != nil {
			return Thresholds{}, err
		}
	}
	return t, nil
}

func parseThreshold(part string, t *Thresholds) error {
	m := thresholdPattern.FindStringSubmatch(part)
	if m == nil {
		return fmt.Errorf("invalid threshold %q", part)
	}
	metric, op, value := strings.ToLower(m[1]), m[2], strings.TrimSpace(m[3])
	upper := op == "<" || op == "<="

	var latency *time.Duration
	switch metric {
	case "p50":
		latency = &t.P50
	case "p95":
		latency = &t.P95
	case "p99":
		latency = &t.P99
	case "max":
		latency = &t.MaxLatency
	}
	if latency != nil {
		if !upper {
			return fmt.Errorf("%s threshold must use < or <=", metric)
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %s", metric, value)
		}
		*latency = d
		return nil
	}

	switch metric {
	case "errors", "errorrate":
		if !upper {
			return fmt.Errorf("error rate threshold must use < or <=")
		}
		pct := strings.HasSuffix(value, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return fmt.Errorf("invalid error rate: %s", value)
		}
		if pct {
			f /= 100
		}
		t.ErrorRate = f
	case "rps":
		if upper {
			return fmt.Errorf("rps threshold must use > or >=")
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid rps: %s", value)
		}
		t.MinRPS = f
	default:
		return fmt.Errorf("unknown threshold metric %q", metric)
	}
	return nil
}
