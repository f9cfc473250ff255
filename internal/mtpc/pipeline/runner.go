package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tdis-data/mtpc.reco/internal/monitoring"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/hits"
	"github.com/tdis-data/mtpc.reco/internal/mtpc/reco"
	"github.com/tdis-data/mtpc.reco/internal/timeutil"
)

// EventProcessor reconstructs one event. *reco.Reconstructor implements it.
type EventProcessor interface {
	ProcessEvent(ev *hits.Event) (reco.EventResult, error)
}

// ResultSink receives event results in event order after processing.
// Implementations live with their adapters (storage, export, validation).
type ResultSink interface {
	WriteResult(ctx context.Context, res *reco.EventResult) error
}

// ResultSinkFunc adapts a function to ResultSink.
type ResultSinkFunc func(ctx context.Context, res *reco.EventResult) error

func (f ResultSinkFunc) WriteResult(ctx context.Context, res *reco.EventResult) error {
	return f(ctx, res)
}

// Config holds the dependencies of a Runner.
type Config struct {
	Processor EventProcessor
	Sinks     []ResultSink
	Workers   int            // values below 1 run sequentially
	Clock     timeutil.Clock // nil uses the system clock
}

// Summary counts what a run produced.
type Summary struct {
	Events       int64
	Hits         int64
	Measurements int64
	Skipped      int64
	Duration     time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("events=%d hits=%d measurements=%d skipped=%d duration=%s",
		s.Events, s.Hits, s.Measurements, s.Skipped, s.Duration.Round(time.Millisecond))
}

// Runner processes batches of events on a bounded worker pool.
type Runner struct {
	cfg Config

	events       atomic.Int64
	hits         atomic.Int64
	measurements atomic.Int64
	skipped      atomic.Int64
	elapsed      atomic.Int64
}

// NewRunner returns a Runner for cfg.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Processor == nil {
		return nil, fmt.Errorf("pipeline: no event processor")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Runner{cfg: cfg}, nil
}

// Run processes events and returns their results in input order. The first
// event error cancels the remaining work and is returned; no sink sees any
// result of a failed run. Sinks are called sequentially after processing.
func (r *Runner) Run(ctx context.Context, events []*hits.Event) ([]reco.EventResult, error) {
	start := r.cfg.Clock.Now()
	diagf("run: %d events on %d workers", len(events), r.cfg.Workers)

	results := make([]reco.EventResult, len(events))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for i, ev := range events {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.cfg.Processor.ProcessEvent(ev)
			if err != nil {
				monitoring.EventsProcessed.WithLabelValues("error").Inc()
				opsf("event %d failed: %v", ev.Number, err)
				return err
			}
			monitoring.EventsProcessed.WithLabelValues("ok").Inc()
			tracef("event %d: hits=%d measurements=%d skipped=%d",
				res.Event, len(res.Hits), len(res.Measurements), res.Skipped)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range results {
		res := &results[i]
		for _, sink := range r.cfg.Sinks {
			if err := sink.WriteResult(ctx, res); err != nil {
				opsf("sink failed on event %d: %v", res.Event, err)
				return nil, fmt.Errorf("pipeline: write event %d: %w", res.Event, err)
			}
		}
		r.events.Add(1)
		r.hits.Add(int64(len(res.Hits)))
		r.measurements.Add(int64(len(res.Measurements)))
		r.skipped.Add(int64(res.Skipped))
	}
	r.elapsed.Add(int64(r.cfg.Clock.Since(start)))

	diagf("run done: %s", r.Summary())
	return results, nil
}

// Summary returns the counters accumulated over all successful runs.
func (r *Runner) Summary() Summary {
	return Summary{
		Events:       r.events.Load(),
		Hits:         r.hits.Load(),
		Measurements: r.measurements.Load(),
		Skipped:      r.skipped.Load(),
		Duration:     time.Duration(r.elapsed.Load()),
	}
}
