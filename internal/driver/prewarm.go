package driver

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/sema"
	"tyinc/internal/trace"
)

// Prewarm runs inference for every body in parallel so later reads hit the
// memo tables. jobs <= 0 uses one worker per CPU. The returned durations are
// indexed like bodies. observe, when not nil, sees each body start and
// finish. Cancelling ctx abandons the remaining work and returns the
// cancellation error.
func Prewarm(ctx context.Context, db *sema.Database, bodies []hir.DefWithBodyID, jobs int, observe BodyObserver) ([]time.Duration, error) {
	durations := make([]time.Duration, len(bodies))
	if len(bodies) == 0 {
		return durations, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	tracer := trace.FromContext(ctx)
	parent := trace.CurrentSpan(ctx).SpanID
	span := trace.Begin(tracer, trace.ScopeDriver, "prewarm", parent)
	defer span.End("")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(bodies)))
	for i, def := range bodies {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			ev := BodyEvent{Index: i, Total: len(bodies), Def: def, Status: BodyStarted}
			if observe != nil {
				observe(ev)
			}
			start := time.Now()
			res, err := sema.Run(gctx, db, func(rt *query.Runtime) *sema.InferenceResult {
				return db.Infer(rt, def)
			})
			// each goroutine owns its slot
			durations[i] = time.Since(start)
			if err != nil {
				return err
			}
			if observe != nil {
				ev.Status, ev.Elapsed, ev.Diagnostics = BodyDone, durations[i], len(res.Diagnostics)
				observe(ev)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		db.Logger().Debug("prewarm abandoned", zap.Error(err))
		return durations, err
	}
	return durations, nil
}
