package query

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"tyinc/internal/trace"
)

func mustRun[V any](t *testing.T, db *Database, fn func(rt *Runtime) V) V {
	t.Helper()
	v, err := Run(context.Background(), db, fn)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return v
}

func TestGreenPathIsIdempotent(t *testing.T) {
	db := New()
	src := DefineInput[string, int](db, "src")
	double := Define(db, "double", func(rt *Runtime, key string) int {
		return src.Get(rt, key) * 2
	})
	src.Set("a", 21)

	first := mustRun(t, db, func(rt *Runtime) int { return double.Get(rt, "a") })
	second := mustRun(t, db, func(rt *Runtime) int { return double.Get(rt, "a") })
	if first != 42 || second != 42 {
		t.Fatalf("expected 42 twice, got %d and %d", first, second)
	}
	if n := double.Executions("a"); n != 1 {
		t.Fatalf("expected one execution, got %d", n)
	}
	stats, ok := db.Stats().Find("double")
	if !ok || stats.Hits < 1 {
		t.Fatalf("expected a memo hit, got %+v", stats)
	}
}

func TestBackdatingStopsPropagation(t *testing.T) {
	db := New()
	num := DefineInput[int, int](db, "num")
	parity := Define(db, "parity", func(rt *Runtime, key int) bool {
		return num.Get(rt, key)%2 == 0
	})
	label := Define(db, "label", func(rt *Runtime, key int) string {
		if parity.Get(rt, key) {
			return "even"
		}
		return "odd"
	})

	num.Set(1, 3)
	if got := mustRun(t, db, func(rt *Runtime) string { return label.Get(rt, 1) }); got != "odd" {
		t.Fatalf("expected odd, got %q", got)
	}
	num.Set(1, 5)
	if got := mustRun(t, db, func(rt *Runtime) string { return label.Get(rt, 1) }); got != "odd" {
		t.Fatalf("expected odd, got %q", got)
	}
	if n := parity.Executions(1); n != 2 {
		t.Fatalf("parity should re-run once, ran %d times", n)
	}
	if n := label.Executions(1); n != 1 {
		t.Fatalf("label should be backdated, ran %d times", n)
	}

	num.Set(1, 6)
	if got := mustRun(t, db, func(rt *Runtime) string { return label.Get(rt, 1) }); got != "even" {
		t.Fatalf("expected even, got %q", got)
	}
	if n := label.Executions(1); n != 2 {
		t.Fatalf("label should re-run after parity changed, ran %d times", n)
	}
}

func TestInvalidationIsPrecise(t *testing.T) {
	db := New()
	src := DefineInput[string, int](db, "src")
	inc := Define(db, "inc", func(rt *Runtime, key string) int {
		return src.Get(rt, key) + 1
	})
	src.Set("a", 1)
	src.Set("b", 1)
	mustRun(t, db, func(rt *Runtime) int { return inc.Get(rt, "a") + inc.Get(rt, "b") })

	src.Set("a", 10)
	sum := mustRun(t, db, func(rt *Runtime) int { return inc.Get(rt, "a") + inc.Get(rt, "b") })
	if sum != 13 {
		t.Fatalf("expected 13, got %d", sum)
	}
	if n := inc.Executions("b"); n != 1 {
		t.Fatalf("unrelated key re-ran %d times", n)
	}
	if n := inc.Executions("a"); n != 2 {
		t.Fatalf("changed key ran %d times", n)
	}
}

func TestSyntheticWriteDeepVerifies(t *testing.T) {
	db := New()
	src := DefineInput[int, int](db, "src")
	sq := Define(db, "sq", func(rt *Runtime, key int) int {
		v := src.Get(rt, key)
		return v * v
	})
	src.Set(1, 4)
	mustRun(t, db, func(rt *Runtime) int { return sq.Get(rt, 1) })
	db.SyntheticWrite()
	if got := mustRun(t, db, func(rt *Runtime) int { return sq.Get(rt, 1) }); got != 16 {
		t.Fatalf("expected 16, got %d", got)
	}
	if n := sq.Executions(1); n != 1 {
		t.Fatalf("expected verification without re-run, ran %d times", n)
	}
	stats, _ := db.Stats().Find("sq")
	if stats.Verifications != 1 {
		t.Fatalf("expected one deep verification, got %+v", stats)
	}
}

func TestRemovedInputIsAbsent(t *testing.T) {
	db := New()
	src := DefineInput[string, string](db, "src")
	present := Define(db, "present", func(rt *Runtime, key string) bool {
		_, ok := src.Lookup(rt, key)
		return ok
	})
	src.Set("x", "v")
	if !mustRun(t, db, func(rt *Runtime) bool { return present.Get(rt, "x") }) {
		t.Fatalf("expected key to be present")
	}
	src.Remove("x")
	if mustRun(t, db, func(rt *Runtime) bool { return present.Get(rt, "x") }) {
		t.Fatalf("expected key to be absent after removal")
	}
	if keys := src.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keys, got %v", keys)
	}
}

func TestSameKeyEvaluatesOnce(t *testing.T) {
	db := New()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	slow := Define(db, "slow", func(rt *Runtime, key int) int {
		once.Do(func() { close(started) })
		<-release
		return key * 3
	})

	const workers = 8
	results := make(chan int, workers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results <- mustRun(t, db, func(rt *Runtime) int { return slow.Get(rt, 7) })
	}()
	<-started
	for range workers - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- mustRun(t, db, func(rt *Runtime) int { return slow.Get(rt, 7) })
		}()
	}
	time.Sleep(10 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		if v != 21 {
			t.Fatalf("expected 21, got %d", v)
		}
	}
	if n := slow.Executions(7); n != 1 {
		t.Fatalf("expected a single evaluation, got %d", n)
	}
}

func TestPendingWriteCancelsRuntime(t *testing.T) {
	db := New()
	src := DefineInput[int, int](db, "src")
	started := make(chan struct{})
	var once sync.Once
	spin := Define(db, "spin", func(rt *Runtime, key int) int {
		src.Get(rt, key)
		once.Do(func() { close(started) })
		for {
			rt.CheckCancelled()
			runtime.Gosched()
		}
	})
	src.Set(1, 1)

	errc := make(chan error, 1)
	go func() {
		_, err := Run(context.Background(), db, func(rt *Runtime) int { return spin.Get(rt, 1) })
		errc <- err
	}()
	<-started
	src.Set(1, 2)

	select {
	case err := <-errc:
		if !errors.Is(err, ErrCancelled) {
			t.Fatalf("expected ErrCancelled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("runtime was not cancelled")
	}
	if _, ok := spin.Peek(1); ok {
		t.Fatalf("cancelled evaluation must not be memoized")
	}
	stats, _ := db.Stats().Find("spin")
	if stats.Cancellations != 1 {
		t.Fatalf("expected one cancellation, got %+v", stats)
	}
}

func TestContextCancelsRuntime(t *testing.T) {
	db := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	probe := Define(db, "probe", func(rt *Runtime, key int) int { return key })
	_, err := Run(ctx, db, func(rt *Runtime) int { return probe.Get(rt, 1) })
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestIndependentDatabases(t *testing.T) {
	build := func() (*Database, *Input[int, int], *Query[int, int]) {
		db := New()
		src := DefineInput[int, int](db, "src")
		q := Define(db, "neg", func(rt *Runtime, key int) int { return -src.Get(rt, key) })
		return db, src, q
	}
	db1, src1, q1 := build()
	db2, src2, q2 := build()
	src1.Set(1, 5)
	src2.Set(1, 9)
	src2.Set(1, 8)
	if got := mustRun(t, db1, func(rt *Runtime) int { return q1.Get(rt, 1) }); got != -5 {
		t.Fatalf("db1: expected -5, got %d", got)
	}
	if got := mustRun(t, db2, func(rt *Runtime) int { return q2.Get(rt, 1) }); got != -8 {
		t.Fatalf("db2: expected -8, got %d", got)
	}
	if db1.Revision() == db2.Revision() {
		t.Fatalf("revisions should be independent: %s vs %s", db1.Revision(), db2.Revision())
	}
}

func TestEvaluationSpansCarryKeyAndRevision(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelDetail)
	db := New(WithTracer(ring))
	src := DefineInput[string, int](db, "src")
	double := Define(db, "double", func(rt *Runtime, key string) int {
		return src.Get(rt, key) * 2
	})
	src.Set("a", 21)
	mustRun(t, db, func(rt *Runtime) int { return double.Get(rt, "a") })

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected begin and end, got %+v", events)
	}
	begin, end := events[0], events[1]
	if begin.Kind != trace.KindSpanBegin || begin.Name != "double" || begin.Key != "a" {
		t.Fatalf("begin = %+v", begin)
	}
	if begin.Revision != uint64(db.Revision()) || begin.Runtime == 0 {
		t.Fatalf("begin not tagged with runtime and revision: %+v", begin)
	}
	if end.Kind != trace.KindSpanEnd || end.SpanID != begin.SpanID || end.Outcome != "executed" {
		t.Fatalf("end = %+v", end)
	}
}
