// Package scheduler runs the probe loop: it keeps a bounded number of
// concurrent queries in flight, adapts its pacing to how fast they complete,
// and feeds everything the probes find into the sinks.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hamed0406/subprober/internal/candidates"
	"github.com/hamed0406/subprober/internal/probe"
	"github.com/hamed0406/subprober/internal/sink"
)

const (
	// DefaultInterval is the pause the loop starts with before the first
	// retune.
	DefaultInterval = 500 * time.Millisecond

	// tuneStep is the fraction the pause shrinks or grows by each tick.
	tuneStep = 0.1

	// minInterval and maxInterval clamp the adaptive pause so it can
	// neither spin nor stall.
	minInterval = 50 * time.Millisecond
	maxInterval = 30 * time.Second
)

// Picker hands out the name server address for one query.
type Picker interface {
	Pick() string
}

// Progress is a point-in-time snapshot of a running scan.
type Progress struct {
	Total    uint64        `json:"total"`
	Done     uint64        `json:"done"`
	InFlight int           `json:"in_flight"`
	Found    uint64        `json:"found"`
	Errored  int           `json:"errored"`
	Interval time.Duration `json:"interval_ns"`
}

// Config carries everything a Scheduler needs. Source, Domain, Pool, Prober,
// Results and Errors are required.
type Config struct {
	Log     *zap.Logger
	Source  candidates.Source
	Domain  string
	Pool    Picker
	Prober  probe.Prober
	Results *sink.Results
	Errors  *sink.Errors

	// Budget is the maximum number of queries in flight at once.
	Budget int

	// Interval is the starting pause between ticks; DefaultInterval when
	// zero.
	Interval time.Duration

	// Limiter, when set, caps the global query launch rate on top of the
	// concurrency budget.
	Limiter *rate.Limiter

	// OnTick, when set, is called after every tick with fresh progress.
	OnTick func(Progress)

	// Wake, when set, is called after every tick so the output writer can
	// drain what the tick produced.
	Wake func()
}

// Scheduler owns one scan. It is not reusable; build a new one per run.
type Scheduler struct {
	log     *zap.Logger
	source  candidates.Source
	domain  string
	pool    Picker
	prober  probe.Prober
	results *sink.Results
	errors  *sink.Errors
	budget  int
	limiter *rate.Limiter
	onTick  func(Progress)
	wake    func()

	// completions has capacity for every in-flight probe, so a worker can
	// always hand in its token without blocking.
	completions chan struct{}

	mu       sync.Mutex
	interval time.Duration
	done     uint64
	inFlight int
}

// New validates cfg and builds a scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("scheduler: source is required")
	}
	if cfg.Domain == "" {
		return nil, fmt.Errorf("scheduler: domain is required")
	}
	if cfg.Pool == nil {
		return nil, fmt.Errorf("scheduler: name server pool is required")
	}
	if cfg.Prober == nil {
		return nil, fmt.Errorf("scheduler: prober is required")
	}
	if cfg.Results == nil || cfg.Errors == nil {
		return nil, fmt.Errorf("scheduler: result and error sinks are required")
	}
	if cfg.Budget < 1 {
		return nil, fmt.Errorf("scheduler: budget must be at least 1, got %d", cfg.Budget)
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Scheduler{
		log:         cfg.Log,
		source:      cfg.Source,
		domain:      cfg.Domain,
		pool:        cfg.Pool,
		prober:      cfg.Prober,
		results:     cfg.Results,
		errors:      cfg.Errors,
		budget:      cfg.Budget,
		limiter:     cfg.Limiter,
		onTick:      cfg.OnTick,
		wake:        cfg.Wake,
		completions: make(chan struct{}, cfg.Budget),
		interval:    cfg.Interval,
	}, nil
}

// Run probes every candidate the source yields and returns once all launched
// probes have finished. Cancelling ctx stops new launches and returns
// ctx.Err() after the in-flight probes are drained; a source read failure is
// returned after the same drain.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scan_started",
		zap.String("domain", s.domain),
		zap.Int("budget", s.budget),
		zap.Uint64("candidates", s.source.Total()))

	exhausted := !s.fill(ctx, s.budget)

	timer := time.NewTimer(s.currentInterval())
	defer timer.Stop()

	for s.pending() > 0 {
		select {
		case <-ctx.Done():
			s.drainRemaining()
			s.notify()
			s.log.Info("scan_cancelled", zap.Uint64("done", s.snapshot().Done))
			return ctx.Err()
		case <-timer.C:
			delta := s.collect()
			s.retune(delta)
			if !exhausted {
				exhausted = !s.fill(ctx, delta)
			}
			s.notify()
			timer.Reset(s.currentInterval())
		}
	}

	s.notify()
	if err := s.source.Err(); err != nil {
		return fmt.Errorf("reading candidates: %w", err)
	}
	s.log.Info("scan_finished",
		zap.Uint64("done", s.snapshot().Done),
		zap.Uint64("found", s.results.Appended()),
		zap.Int("errored", s.errors.Len()))
	return nil
}

// fill launches up to n probes and reports whether the source can still
// yield more.
func (s *Scheduler) fill(ctx context.Context, n int) bool {
	for i := 0; i < n; i++ {
		label, ok := s.source.Next()
		if !ok {
			return false
		}
		s.launch(ctx, label)
	}
	return true
}

// launch runs one probe in its own goroutine. The worker classifies its own
// outcome into the sinks and always hands in exactly one completion token.
func (s *Scheduler) launch(ctx context.Context, label string) {
	fqdn := label + "." + s.domain
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	go func() {
		defer func() { s.completions <- struct{}{} }()

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
		}
		res := s.prober.Resolve(ctx, fqdn, s.pool.Pick())
		switch res.Outcome {
		case probe.OutcomeAnswered:
			for _, v := range res.Records {
				s.results.Append(sink.Record{Target: fqdn, Value: v})
			}
		case probe.OutcomeTimeout:
			s.errors.Append(fmt.Sprintf("%s: %v", fqdn, res.Err))
		default:
			if res.Err != nil {
				s.log.Debug("probe_failed",
					zap.String("target", fqdn),
					zap.Error(res.Err))
			}
		}
	}()
}

// collect drains every completion token already handed in and returns how
// many there were.
func (s *Scheduler) collect() int {
	delta := 0
	for {
		select {
		case <-s.completions:
			delta++
		default:
			s.mu.Lock()
			s.done += uint64(delta)
			s.inFlight -= delta
			s.mu.Unlock()
			return delta
		}
	}
}

// retune adapts the pause to the completion rate: a tick that completed more
// than a tenth of the budget means the loop is lagging behind the network, so
// it speeds up; anything else slows it down.
func (s *Scheduler) retune(delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.interval
	if delta > 0 && float64(delta) > float64(s.budget)/10 {
		s.interval = time.Duration(float64(s.interval) * (1 - tuneStep))
	} else {
		s.interval = time.Duration(float64(s.interval) * (1 + tuneStep))
	}
	if s.interval < minInterval {
		s.interval = minInterval
	}
	if s.interval > maxInterval {
		s.interval = maxInterval
	}
	if s.interval != before {
		s.log.Debug("interval_tuned",
			zap.Int("delta", delta),
			zap.Duration("interval", s.interval))
	}
}

// drainRemaining blocks until every in-flight probe has handed in its token.
// Probes see the cancelled context and finish quickly.
func (s *Scheduler) drainRemaining() {
	for s.pending() > 0 {
		<-s.completions
		s.mu.Lock()
		s.done++
		s.inFlight--
		s.mu.Unlock()
	}
}

func (s *Scheduler) notify() {
	if s.wake != nil {
		s.wake()
	}
	if s.onTick != nil {
		s.onTick(s.snapshot())
	}
}

func (s *Scheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Scheduler) currentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{
		Total:    s.source.Total(),
		Done:     s.done,
		InFlight: s.inFlight,
		Found:    s.results.Appended(),
		Errored:  s.errors.Len(),
		Interval: s.interval,
	}
}

// Progress reports a snapshot of the scan, safe to call from other
// goroutines while Run is looping.
func (s *Scheduler) Progress() Progress {
	return s.snapshot()
}
