package query

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fallback(*Runtime, []Participant, int) int { return -1 }

func TestLocalCycleRecovers(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	db := New(WithLogger(zap.New(core)))

	var a, b *Query[int, int]
	a = Define(db, "a", func(rt *Runtime, key int) int { return b.Get(rt, key) + 1 }, WithRecovery(fallback))
	b = Define(db, "b", func(rt *Runtime, key int) int { return a.Get(rt, key) + 1 }, WithRecovery(fallback))

	if got := mustRun(t, db, func(rt *Runtime) int { return a.Get(rt, 1) }); got != -1 {
		t.Fatalf("expected fallback -1, got %d", got)
	}
	if v, ok := b.Peek(1); !ok || v != -1 {
		t.Fatalf("expected b to memoize its fallback, got %d (%v)", v, ok)
	}

	cycles := db.Cycles()
	if len(cycles) != 1 || !cycles[0].Recovered || len(cycles[0].Participants) != 2 {
		t.Fatalf("unexpected cycle history: %+v", cycles)
	}
	if n := logs.FilterMessage("query cycle recovered").Len(); n != 1 {
		t.Fatalf("expected one recovery log entry, got %d", n)
	}
	stats, _ := db.Stats().Find("a")
	if stats.Recoveries != 1 {
		t.Fatalf("expected a to record a recovery, got %+v", stats)
	}
}

func TestSelfCycleRecovers(t *testing.T) {
	db := New()
	var self *Query[int, int]
	self = Define(db, "self", func(rt *Runtime, key int) int { return self.Get(rt, key) * 2 }, WithRecovery(fallback))
	if got := mustRun(t, db, func(rt *Runtime) int { return self.Get(rt, 3) }); got != -1 {
		t.Fatalf("expected fallback, got %d", got)
	}
}

func TestCycleWithoutRecoveryFailsHeadOnly(t *testing.T) {
	db := New()
	var a, b *Query[int, int]
	a = Define(db, "a", func(rt *Runtime, key int) int { return b.Get(rt, key) })
	b = Define(db, "b", func(rt *Runtime, key int) int { return a.Get(rt, key) }, WithRecovery(fallback))
	leaf := Define(db, "leaf", func(rt *Runtime, key int) int { return key })

	err := mustRun(t, db, func(rt *Runtime) error {
		_, err := a.Fetch(rt, 1)
		return err
	})
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	if len(cycle.Participants) != 2 || cycle.Participants[0].Query != "a" {
		t.Fatalf("unexpected participants: %v", cycle.Participants)
	}
	if want := "query: dependency cycle: a(1) -> b(1) -> a(1)"; cycle.Error() != want {
		t.Fatalf("unexpected message %q", cycle.Error())
	}
	if _, ok := b.Peek(1); ok {
		t.Fatalf("abandoned participant must not be memoized")
	}
	if got := mustRun(t, db, func(rt *Runtime) int { return leaf.Get(rt, 9) }); got != 9 {
		t.Fatalf("unrelated query affected by cycle: %d", got)
	}
}

func TestCycleThroughCallerStaysLocal(t *testing.T) {
	db := New()
	var a, b *Query[int, int]
	a = Define(db, "a", func(rt *Runtime, key int) int { return b.Get(rt, key) })
	b = Define(db, "b", func(rt *Runtime, key int) int { return a.Get(rt, key) })
	outer := Define(db, "outer", func(rt *Runtime, key int) string {
		if _, err := a.Fetch(rt, key); err != nil {
			return "cycle"
		}
		return "ok"
	})
	if got := mustRun(t, db, func(rt *Runtime) string { return outer.Get(rt, 1) }); got != "cycle" {
		t.Fatalf("caller should observe the cycle as a value, got %q", got)
	}
}

func TestCrossRuntimeCycleTerminates(t *testing.T) {
	db := New()
	aStarted := make(chan struct{})
	bStarted := make(chan struct{})
	var aOnce, bOnce sync.Once
	var a, b *Query[int, int]
	a = Define(db, "a", func(rt *Runtime, key int) int {
		aOnce.Do(func() { close(aStarted) })
		<-bStarted
		return b.Get(rt, key) + 1
	}, WithRecovery(fallback))
	b = Define(db, "b", func(rt *Runtime, key int) int {
		bOnce.Do(func() { close(bStarted) })
		<-aStarted
		return a.Get(rt, key) + 1
	}, WithRecovery(fallback))

	results := make(chan int, 2)
	for _, q := range []*Query[int, int]{a, b} {
		go func() {
			v, _ := Run(context.Background(), db, func(rt *Runtime) int { return q.Get(rt, 1) })
			results <- v
		}()
	}
	var got []int
	for range 2 {
		select {
		case v := <-results:
			got = append(got, v)
		case <-time.After(5 * time.Second):
			t.Fatalf("cross-runtime cycle deadlocked")
		}
	}
	if got[0] != -1 || got[1] != -1 {
		t.Fatalf("expected both runtimes to observe the fallback, got %v", got)
	}
	for _, q := range []*Query[int, int]{a, b} {
		if v, ok := q.Peek(1); !ok || v != -1 {
			t.Fatalf("expected %s(1) to memoize its fallback, got %d (%v)", q.Name(), v, ok)
		}
	}
	var cross *CycleRecord
	for _, rec := range db.Cycles() {
		if rec.CrossRuntime {
			cross = &rec
		}
	}
	if cross == nil {
		t.Fatalf("expected a cross-runtime cycle record, got %+v", db.Cycles())
	}
	names := make([]string, 0, len(cross.Participants))
	for _, p := range cross.Participants {
		names = append(names, p.Query)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("expected both queries as cycle members, got %v", cross.Participants)
	}
}

func TestCrossRuntimeCycleMatchesSingleRuntime(t *testing.T) {
	build := func(concurrent bool) (*Database, *Query[int, int], *Query[int, int]) {
		db := New()
		aStarted := make(chan struct{})
		bStarted := make(chan struct{})
		var aOnce, bOnce sync.Once
		var a, b *Query[int, int]
		a = Define(db, "a", func(rt *Runtime, key int) int {
			if concurrent {
				aOnce.Do(func() { close(aStarted) })
				<-bStarted
			}
			return b.Get(rt, key) + 1
		}, WithRecovery(fallback))
		b = Define(db, "b", func(rt *Runtime, key int) int {
			if concurrent {
				bOnce.Do(func() { close(bStarted) })
				<-aStarted
			}
			return a.Get(rt, key) + 1
		}, WithRecovery(fallback))
		return db, a, b
	}

	db, a, b := build(false)
	mustRun(t, db, func(rt *Runtime) int { return a.Get(rt, 1) })
	serialA, _ := a.Peek(1)
	serialB, _ := b.Peek(1)

	for range 3 {
		db, a, b = build(true)
		var wg sync.WaitGroup
		for _, q := range []*Query[int, int]{a, b} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = Run(context.Background(), db, func(rt *Runtime) int { return q.Get(rt, 1) })
			}()
		}
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("cross-runtime cycle deadlocked")
		}
		gotA, _ := a.Peek(1)
		gotB, _ := b.Peek(1)
		if gotA != serialA || gotB != serialB {
			t.Fatalf("memos depend on scheduling: concurrent a=%d b=%d, serial a=%d b=%d", gotA, gotB, serialA, serialB)
		}
	}
}

func TestFallbackIsRecomputedInLaterRevisions(t *testing.T) {
	db := New()
	src := DefineInput[int, bool](db, "loop")
	var a *Query[int, int]
	a = Define(db, "a", func(rt *Runtime, key int) int {
		if src.Get(rt, key) {
			return a.Get(rt, key) + 1
		}
		return 10
	}, WithRecovery(fallback))

	src.Set(1, true)
	if got := mustRun(t, db, func(rt *Runtime) int { return a.Get(rt, 1) }); got != -1 {
		t.Fatalf("expected fallback, got %d", got)
	}
	src.Set(1, false)
	if got := mustRun(t, db, func(rt *Runtime) int { return a.Get(rt, 1) }); got != 10 {
		t.Fatalf("expected cycle to disappear, got %d", got)
	}
}
