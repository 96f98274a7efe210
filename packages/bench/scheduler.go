package bench

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	csthttp "github.com/abdul-hamid-achik/httpcst/packages/http"
)

// Target is one request of the file being replayed.
type Target struct {
	Name   string
	Config *csthttp.RequestConfig
}

// Scheduler hands out targets round-robin and paces and bounds the
// requests sent for them.
type Scheduler struct {
	config  *Config
	limiter *rate.Limiter
	slots   chan struct{}

	targets []*Target
	next    atomic.Uint64
}

func NewScheduler(config *Config, targets []*Target) *Scheduler {
	s := &Scheduler{
		config:  config,
		targets: targets,
	}
	if config.Mode == RateMode && config.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.RateAt(0)), 1)
	}
	n := config.MaxInFlight
	if n < 1 {
		n = 1
	}
	s.slots = make(chan struct{}, n)
	return s
}

// Next returns the following target in file order, wrapping around.
func (s *Scheduler) Next() *Target {
	if len(s.targets) == 0 {
		return nil
	}
	i := s.next.Add(1) - 1
	return s.targets[i%uint64(len(s.targets))]
}

// Wait blocks until the limiter admits another request. It returns at
// once in VUMode.
func (s *Scheduler) Wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Release() {
	<-s.slots
}

// RateAt is the target rate after elapsed, ramping linearly during RampUp.
// It never drops below one request per second, or the full rate when that
// is lower, so the limiter keeps moving.
func (s *Scheduler) RateAt(elapsed time.Duration) float64 {
	r := s.config.Rate * s.progress(elapsed)
	return math.Max(r, math.Min(1, s.config.Rate))
}

// VUsAt is the number of virtual users after elapsed, at least one.
func (s *Scheduler) VUsAt(elapsed time.Duration) int {
	n := int(float64(s.config.VUs) * s.progress(elapsed))
	if n < 1 {
		return 1
	}
	return n
}

func (s *Scheduler) progress(elapsed time.Duration) float64 {
	if s.config.RampUp <= 0 || elapsed >= s.config.RampUp {
		return 1
	}
	return float64(elapsed) / float64(s.config.RampUp)
}

func (s *Scheduler) SetRate(r float64) {
	if s.limiter != nil && r > 0 {
		s.limiter.SetLimit(rate.Limit(r))
	}
}

// vuPool runs one goroutine per virtual user and resizes on demand.
type vuPool struct {
	scheduler *Scheduler
	think     time.Duration
	exec      func(context.Context, *Target)

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

func newVUPool(s *Scheduler, think time.Duration, exec func(context.Context, *Target)) *vuPool {
	return &vuPool{scheduler: s, think: think, exec: exec}
}

// Scale starts or stops users until n are running.
func (p *vuPool) Scale(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.cancels) < n {
		vuCtx, cancel := context.WithCancel(ctx)
		p.cancels = append(p.cancels, cancel)
		p.wg.Add(1)
		go p.run(vuCtx)
	}
	for len(p.cancels) > n {
		last := len(p.cancels) - 1
		p.cancels[last]()
		p.cancels = p.cancels[:last]
	}
}

func (p *vuPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cancels)
}

// Stop cancels every user and waits for them to return.
func (p *vuPool) Stop() {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.cancels = nil
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *vuPool) run(ctx context.Context) {
	defer p.wg.Done()
	for ctx.Err() == nil {
		t := p.scheduler.Next()
		if t == nil {
			return
		}
		if err := p.scheduler.Acquire(ctx); err != nil {
			return
		}
		p.exec(ctx, t)
		p.scheduler.Release()

		if p.think > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.think):
			}
		}
	}
}
