package enumerate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/channelvisor/tg-members/pkg/governor"
	"github.com/channelvisor/tg-members/pkg/telegram"
)

// Prometheus metrics for enumeration runs.
var (
	tgEnumRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_enum_runs_total",
		Help: "Total enumeration runs by terminal status",
	}, []string{"status"})

	tgEnumFiltersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_enum_filters_total",
		Help: "Total filter values processed by result",
	}, []string{"result"})

	tgEnumRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tg_enum_run_duration_seconds",
		Help:    "Enumeration run duration in seconds",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})

	tgEnumUniqueMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tg_enum_unique_members",
		Help: "Unique members collected by the most recent run",
	})
)

// Resolver resolves a collection reference into channel metadata.
type Resolver interface {
	ResolveChannel(ctx context.Context, ref string) (*telegram.ChannelInfo, error)
}

// API is the full gateway surface the orchestrator needs.
type API interface {
	Resolver
	Lister
}

// ProgressFunc receives advisory progress notifications: the filter that
// just finished, the fraction of the alphabet processed, and the unique
// member count so far.
type ProgressFunc func(filter string, fraction float64, unique int)

// Config holds enumeration parameters.
type Config struct {
	// PageSize is the per-call result limit.
	PageSize int

	// MaxPerFilter bounds how many members a single filter may yield
	// before its drain is aborted as runaway. The per-filter request
	// budget is ceil(MaxPerFilter / PageSize).
	MaxPerFilter int

	// MinInterval is the minimum delay between listing calls. Ignored
	// when Pacer is set.
	MinInterval time.Duration

	// Pacer overrides the internally built pacer, letting several
	// orchestrators share one aggregate rate budget.
	Pacer *governor.Pacer

	// Alphabet is the filter cover. Normalized so the empty filter runs
	// first; empty means DefaultAlphabet.
	Alphabet []string

	// Workers is the number of filters drained concurrently. 1 (the
	// default) preserves the serial, alphabet-ordered behavior.
	Workers int

	// ProgressEvery emits a progress notification after every Nth
	// filter; the last filter always notifies.
	ProgressEvery int

	// ProgressTimeout bounds how long a progress callback may block the
	// run before it is abandoned.
	ProgressTimeout time.Duration

	// OnProgress is the optional progress sink.
	OnProgress ProgressFunc
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        200,
		MaxPerFilter:    10000,
		MinInterval:     500 * time.Millisecond,
		Workers:         1,
		ProgressEvery:   5,
		ProgressTimeout: 5 * time.Second,
	}
}

// Orchestrator sequences the filter cover through the paginator and
// merges every page into one identity-unique result.
type Orchestrator struct {
	api       API
	cfg       Config
	alphabet  []string
	paginator *Paginator
	logger    zerolog.Logger
}

// New creates an orchestrator for the given gateway API.
func New(api API, cfg Config) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.MaxPerFilter <= 0 {
		cfg.MaxPerFilter = defaults.MaxPerFilter
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaults.ProgressEvery
	}
	if cfg.ProgressTimeout <= 0 {
		cfg.ProgressTimeout = defaults.ProgressTimeout
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}

	pacer := cfg.Pacer
	if pacer == nil {
		pacer = governor.NewPacer(cfg.MinInterval)
	}

	maxRequests := (cfg.MaxPerFilter + cfg.PageSize - 1) / cfg.PageSize

	return &Orchestrator{
		api:       api,
		cfg:       cfg,
		alphabet:  NormalizeAlphabet(cfg.Alphabet),
		paginator: NewPaginator(api, pacer, cfg.PageSize, maxRequests),
		logger:    log.With().Str("component", "orchestrator").Logger(),
	}
}

// Run enumerates the channel and returns the terminal result. The error
// is non-nil only for fatal conditions (lost authorization, unresolvable
// channel); even then the returned result carries everything collected
// so far. Per-filter failures are recorded in the result and reported as
// success with a coverage caveat. Cancelling ctx stops new listing calls
// after the in-flight one completes and yields a Cancelled result.
func (o *Orchestrator) Run(ctx context.Context, ref string) (*Result, error) {
	start := time.Now()
	defer func() {
		tgEnumRunDuration.Observe(time.Since(start).Seconds())
	}()

	result := &Result{Status: StatusFailed}

	info, err := o.api.ResolveChannel(ctx, ref)
	if err != nil {
		tgEnumRunsTotal.WithLabelValues(string(StatusFailed)).Inc()
		return result, fmt.Errorf("resolve channel %q: %w", ref, err)
	}
	result.Channel = info

	o.logger.Info().
		Str("channel", info.Label()).
		Int("expected_total", info.ParticipantsCount).
		Int("filters", len(o.alphabet)).
		Int("workers", o.cfg.Workers).
		Msg("Starting enumeration")

	set := NewSet()
	var runErr error
	if o.cfg.Workers > 1 {
		runErr = o.runParallel(ctx, ref, set, result)
	} else {
		runErr = o.runSerial(ctx, ref, set, result)
	}

	result.Members = set.Members()
	tgEnumRunsTotal.WithLabelValues(string(result.Status)).Inc()
	tgEnumUniqueMembers.Set(float64(result.Unique()))

	event := o.logger.Info()
	if result.Status == StatusFailed {
		event = o.logger.Error().Err(runErr)
	}
	event.
		Str("status", string(result.Status)).
		Int("unique", result.Unique()).
		Int("calls", result.Calls).
		Int("filters_completed", result.FiltersCompleted).
		Int("filters_failed", len(result.FilterErrors)).
		Float64("coverage", result.Coverage()).
		Dur("duration", time.Since(start)).
		Msg("Enumeration finished")

	return result, runErr
}

// runSerial processes filters in alphabet order on one goroutine.
func (o *Orchestrator) runSerial(ctx context.Context, ref string, set *Set, result *Result) error {
	for i, filter := range o.alphabet {
		if ctx.Err() != nil {
			result.Status = StatusCancelled
			return nil
		}

		calls, err := o.paginator.Drain(ctx, ref, filter, func(pg Page) error {
			added := set.Merge(pg.Members)
			o.logger.Debug().
				Str("filter", filter).
				Int("added", added).
				Int("unique", set.Len()).
				Msg("Merged page")
			return nil
		})
		result.Calls += calls

		switch {
		case err == nil:
			result.FiltersCompleted++
			tgEnumFiltersTotal.WithLabelValues("ok").Inc()
		case isCancellation(err):
			result.Status = StatusCancelled
			return nil
		case telegram.IsFatal(err):
			result.Status = StatusFailed
			return err
		default:
			result.FilterErrors = append(result.FilterErrors, FilterError{Filter: filter, Err: err})
			tgEnumFiltersTotal.WithLabelValues("failed").Inc()
			o.logger.Warn().
				Err(err).
				Str("filter", filter).
				Msg("Filter drain failed, continuing with next filter")
		}

		if (i+1)%o.cfg.ProgressEvery == 0 || i == len(o.alphabet)-1 {
			o.notify(filter, float64(i+1)/float64(len(o.alphabet)), set.Len())
		}
	}

	result.Status = StatusCompleted
	return nil
}

// runParallel drains distinct filters through a bounded worker pool. The
// pacer is shared, so the aggregate request rate stays bounded; the set
// takes its own lock. The merged result does not depend on completion
// order, so the final result matches a serial run over the same data.
func (o *Orchestrator) runParallel(ctx context.Context, ref string, set *Set, result *Result) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)

	var mu sync.Mutex
	var calls atomic.Int64
	var processed atomic.Int64
	total := len(o.alphabet)

	for _, filter := range o.alphabet {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			n, err := o.paginator.Drain(gctx, ref, filter, func(pg Page) error {
				set.Merge(pg.Members)
				return nil
			})
			calls.Add(int64(n))

			if err != nil && !isCancellation(err) && telegram.IsFatal(err) {
				// Fatal errors cancel the group; in-flight drains finish
				// their current call and stop at the next pacer wait.
				return err
			}
			if err != nil && isCancellation(err) {
				return err
			}

			mu.Lock()
			if err != nil {
				result.FilterErrors = append(result.FilterErrors, FilterError{Filter: filter, Err: err})
				tgEnumFiltersTotal.WithLabelValues("failed").Inc()
			} else {
				result.FiltersCompleted++
				tgEnumFiltersTotal.WithLabelValues("ok").Inc()
			}
			mu.Unlock()

			done := int(processed.Add(1))
			if done%o.cfg.ProgressEvery == 0 && done < total {
				o.notify(filter, float64(done)/float64(total), set.Len())
			}
			return nil
		})
	}

	err := g.Wait()
	result.Calls = int(calls.Load())

	done := int(processed.Load())
	o.notify("", float64(done)/float64(total), set.Len())

	switch {
	case err == nil:
		result.Status = StatusCompleted
		return nil
	case isCancellation(err):
		result.Status = StatusCancelled
		return nil
	default:
		result.Status = StatusFailed
		return err
	}
}

// notify invokes the progress sink with an advisory timeout so a slow
// consumer cannot stall the run indefinitely.
func (o *Orchestrator) notify(filter string, fraction float64, unique int) {
	if o.cfg.OnProgress == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.cfg.OnProgress(filter, fraction, unique)
	}()

	select {
	case <-done:
	case <-time.After(o.cfg.ProgressTimeout):
		o.logger.Warn().
			Str("filter", filter).
			Dur("timeout", o.cfg.ProgressTimeout).
			Msg("Progress sink too slow, abandoning notification")
	}
}

// isCancellation reports whether err stems from the run's context being
// cancelled rather than from the gateway.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, telegram.ErrContextCancelled)
}
