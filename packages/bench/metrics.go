package bench

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are recorded in microseconds between 1µs and one minute.
const (
	minLatencyUs = 1
	maxLatencyUs = 60_000_000
	sigFigs      = 3
)

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(minLatencyUs, maxLatencyUs, sigFigs)
}

func clampUs(d time.Duration) int64 {
	us := d.Microseconds()
	if us < minLatencyUs {
		return minLatencyUs
	}
	if us > maxLatencyUs {
		return maxLatencyUs
	}
	return us
}

func usToDuration(v int64) time.Duration {
	return time.Duration(v) * time.Microsecond
}

// series is a counter set plus latency histogram.
type series struct {
	total    atomic.Int64
	errors   atomic.Int64
	timeouts atomic.Int64

	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func newSeries() *series {
	return &series{hist: newHistogram()}
}

func (s *series) record(d time.Duration, err error) {
	s.total.Add(1)
	if err != nil {
		s.errors.Add(1)
	}
	s.mu.Lock()
	_ = s.hist.RecordValue(clampUs(d))
	s.mu.Unlock()
}

func (s *series) timeout() {
	s.timeouts.Add(1)
}

func (s *series) latency() Latency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Latency{
		P50:    usToDuration(s.hist.ValueAtQuantile(50)),
		P95:    usToDuration(s.hist.ValueAtQuantile(95)),
		P99:    usToDuration(s.hist.ValueAtQuantile(99)),
		Min:    usToDuration(s.hist.Min()),
		Max:    usToDuration(s.hist.Max()),
		Mean:   time.Duration(s.hist.Mean() * float64(time.Microsecond)),
		StdDev: time.Duration(s.hist.StdDev() * float64(time.Microsecond)),
	}
}

// Metrics aggregates results across all requests and per request label.
type Metrics struct {
	all *series

	mu        sync.RWMutex
	byRequest map[string]*series

	inFlight atomic.Int32
	start    time.Time
	end      time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{
		all:       newSeries(),
		byRequest: make(map[string]*series),
	}
}

func (m *Metrics) Start() { m.start = time.Now() }
func (m *Metrics) Stop()  { m.end = time.Now() }

func (m *Metrics) request(name string) *series {
	m.mu.RLock()
	s, ok := m.byRequest[name]
	m.mu.RUnlock()
	if ok {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.byRequest[name]; !ok {
		s = newSeries()
		m.byRequest[name] = s
	}
	return s
}

// Record adds one completed request. A non-nil err counts as a failure.
func (m *Metrics) Record(name string, d time.Duration, err error) {
	m.all.record(d, err)
	if name != "" {
		m.request(name).record(d, err)
	}
}

// RecordTimeout notes a request cut off by the end of the run. It is kept
// out of the totals and the error rate.
func (m *Metrics) RecordTimeout(name string) {
	m.all.timeout()
	if name != "" {
		m.request(name).timeout()
	}
}

func (m *Metrics) Begin() { m.inFlight.Add(1) }
func (m *Metrics) Done()  { m.inFlight.Add(-1) }

type Latency struct {
	P50    time.Duration `json:"p50" yaml:"p50"`
	P95    time.Duration `json:"p95" yaml:"p95"`
	P99    time.Duration `json:"p99" yaml:"p99"`
	Min    time.Duration `json:"min" yaml:"min"`
	Max    time.Duration `json:"max" yaml:"max"`
	Mean   time.Duration `json:"mean" yaml:"mean"`
	StdDev time.Duration `json:"stddev" yaml:"stddev"`
}

// Stats is a point-in-time view used for progress display.
type Stats struct {
	Elapsed   time.Duration
	Total     int64
	Errors    int64
	InFlight  int32
	RPS       float64
	ErrorRate float64
	Latency   Latency
}

func (m *Metrics) Stats() Stats {
	elapsed := time.Since(m.start)
	total := m.all.total.Load()
	errs := m.all.errors.Load()
	return Stats{
		Elapsed:   elapsed,
		Total:     total,
		Errors:    errs,
		InFlight:  m.inFlight.Load(),
		RPS:       perSecond(total, elapsed),
		ErrorRate: ratio(errs, total),
		Latency:   m.all.latency(),
	}
}

type RequestSummary struct {
	Name    string  `json:"name" yaml:"name"`
	Total   int64   `json:"total" yaml:"total"`
	Errors  int64   `json:"errors" yaml:"errors"`
	Latency Latency `json:"latency" yaml:"latency"`
}

type Summary struct {
	Duration  time.Duration    `json:"duration" yaml:"duration"`
	Total     int64            `json:"total" yaml:"total"`
	Success   int64            `json:"success" yaml:"success"`
	Errors    int64            `json:"errors" yaml:"errors"`
	Timeouts  int64            `json:"timeouts" yaml:"timeouts"`
	RPS       float64          `json:"rps" yaml:"rps"`
	ErrorRate float64          `json:"errorRate" yaml:"errorRate"`
	Latency   Latency          `json:"latency" yaml:"latency"`
	Requests  []RequestSummary `json:"requests" yaml:"requests"`
}

// Summary returns the totals so far, with per-request rows sorted by name.
func (m *Metrics) Summary() *Summary {
	duration := m.end.Sub(m.start)
	if m.end.IsZero() {
		duration = time.Since(m.start)
	}
	total := m.all.total.Load()
	errs := m.all.errors.Load()

	s := &Summary{
		Duration:  duration,
		Total:     total,
		Success:   total - errs,
		Errors:    errs,
		Timeouts:  m.all.timeouts.Load(),
		RPS:       perSecond(total, duration),
		ErrorRate: ratio(errs, total),
		Latency:   m.all.latency(),
	}

	m.mu.RLock()
	for name, rs := range m.byRequest {
		s.Requests = append(s.Requests, RequestSummary{
			Name:    name,
			Total:   rs.total.Load(),
			Errors:  rs.errors.Load(),
			Latency: rs.latency(),
		})
	}
	m.mu.RUnlock()
	sort.Slice(s.Requests, func(i, j int) bool { return s.Requests[i].Name < s.Requests[j].Name })
	return s
}

// Evaluate checks s against t, one result per configured threshold.
func (s *Summary) Evaluate(t Thresholds) []ThresholdResult {
	var out []ThresholdResult
	latency := func(name string, limit, actual time.Duration) {
		if limit > 0 {
			out = append(out, ThresholdResult{
				Name:     name,
				Passed:   actual <= limit,
				Expected: "<= " + limit.String(),
				Actual:   actual.String(),
			})
		}
	}
	latency("p50", t.P50, s.Latency.P50)
	latency("p95", t.P95, s.Latency.P95)
	latency("p99", t.P99, s.Latency.P99)
	latency("max", t.MaxLatency, s.Latency.Max)

	if t.ErrorRate > 0 {
		out = append(out, ThresholdResult{
			Name:     "errors",
			Passed:   s.ErrorRate <= t.ErrorRate,
			Expected: "<= " + formatPercent(t.ErrorRate),
			Actual:   formatPercent(s.ErrorRate),
		})
	}
	if t.MinRPS > 0 {
		out = append(out, ThresholdResult{
			Name:     "rps",
			Passed:   s.RPS >= t.MinRPS,
			Expected: ">= " + formatFloat(t.MinRPS),
			Actual:   formatFloat(s.RPS),
		})
	}
	return out
}

func perSecond(n int64, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}

func ratio(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func formatPercent(f float64) string {
	return formatFloat(f*100) + "%"
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
