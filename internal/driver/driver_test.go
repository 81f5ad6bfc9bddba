package driver

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tyinc/internal/hir"
	"tyinc/internal/project"
	"tyinc/internal/sema"
)

const showWorkspace = `
[[crate]]
name = "core"

[[crate.trait]]
name = "Show"
types = ["Out"]

[[crate.trait.fn]]
name = "show"
self = "&self"
ret = "Self::Out"

[[crate]]
name = "app"
deps = ["core"]

[[crate.struct]]
name = "W"
generics = ["T"]
fields = ["inner: T"]

[[crate.impl]]
trait = "Show"
for = "W<i32>"
types = ["Out = u32"]

[[crate.impl.fn]]
name = "show"
self = "&self"
ret = "u32"
body = "{ 7 }"

[[crate.impl]]
generics = ["T"]
for = "W<T>"

[[crate.impl.fn]]
name = "get"
self = "&self"
ret = "&T"
body = "{ &self.inner }"

[[crate.fn]]
name = "main"
ret = "u32"
body = '{ let w = W { inner: 1i32 }; w.show() }'

[[crate.fn]]
name = "bad"
ret = "bool"
body = "1"
`

func newSession(t *testing.T, opts ...sema.Option) *Session {
	t.Helper()
	ws, err := project.ParseWorkspace(showWorkspace)
	if err != nil {
		t.Fatalf("ParseWorkspace: %v", err)
	}
	return NewSession(ws, opts...)
}

func TestCheckReportsBodies(t *testing.T) {
	s := newSession(t)
	var events []PhaseEvent
	var (
		mu   sync.Mutex
		done = map[string]BodyEvent{}
		seen int
	)
	report, err := Check(context.Background(), s, CheckOptions{
		Jobs:     2,
		Observer: func(e PhaseEvent) { events = append(events, e) },
		Bodies: func(e BodyEvent) {
			mu.Lock()
			defer mu.Unlock()
			seen++
			if e.Status == BodyDone {
				done[e.Name] = e
			}
		},
	})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	want := []struct {
		def  hir.DefID
		name string
	}{{7, "W::show"}, {9, "W::get"}, {10, "main"}, {11, "bad"}}
	if len(report.Bodies) != len(want) {
		t.Fatalf("bodies = %+v", report.Bodies)
	}
	for i, w := range want {
		b := report.Bodies[i]
		if b.Def != w.def || b.Name != w.name || b.Crate != "app" {
			t.Fatalf("body %d = %+v, want %v %s", i, b, w.def, w.name)
		}
	}

	byName := map[string]BodyReport{}
	for _, b := range report.Bodies {
		byName[b.Name] = b
	}
	if sig := byName["main"].Signature; sig != "fn main() -> u32" {
		t.Fatalf("main signature = %q", sig)
	}
	if sig := byName["W::get"].Signature; sig != "fn W::get(self: &W<T>) -> &T" {
		t.Fatalf("get signature = %q", sig)
	}
	if d := byName["main"].Diagnostics; len(d) != 0 {
		t.Fatalf("main diagnostics = %v", d)
	}
	if d := byName["bad"].Diagnostics; len(d) != 1 || d[0] != "type-mismatch: expected bool, found i32" {
		t.Fatalf("bad diagnostics = %v", d)
	}
	if report.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d", report.ErrorCount())
	}

	if seen != 8 || len(done) != 4 || done["bad"].Diagnostics != 1 || done["main"].Total != 4 {
		t.Fatalf("body events: seen %d, done %+v", seen, done)
	}

	if len(report.Timings.Phases) != 2 || report.Timings.Phases[0].Name != "prewarm" {
		t.Fatalf("timings = %+v", report.Timings)
	}
	if len(events) != 4 || events[0].Status != PhaseStart || events[3].Name != "report" || events[3].Status != PhaseEnd {
		t.Fatalf("phase events = %+v", events)
	}
}

func TestPrewarmHonorsCancellation(t *testing.T) {
	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Prewarm(ctx, s.DB, s.DB.Bodies(), 1, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Prewarm on a cancelled context: %v", err)
	}
	if d, err := Prewarm(context.Background(), s.DB, nil, 4, nil); err != nil || len(d) != 0 {
		t.Fatalf("Prewarm(nil) = %v, %v", d, err)
	}
}

func TestImplsListsIndices(t *testing.T) {
	s := newSession(t)
	rows, err := Impls(context.Background(), s)
	if err != nil {
		t.Fatalf("Impls: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if r := rows[0]; r.Impl != 8 || r.Trait != "" || r.Header != "impl<T> W<T>" || r.Crate != "app" {
		t.Fatalf("inherent row = %+v", r)
	}
	if r := rows[1]; r.Impl != 5 || r.Trait != "Show" || r.Header != "impl Show for W<i32>" || r.Key == "blanket" {
		t.Fatalf("trait row = %+v", r)
	}
}

func TestSolveBound(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()

	got, err := Solve(ctx, s, "app", "W<i32>", "Show<Out = u32>")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(got) != 2 || got[0].Goal != "W<i32>: Show" {
		t.Fatalf("goals = %+v", got)
	}
	for _, g := range got {
		if g.Outcome != OutcomeUnique {
			t.Fatalf("%s: %s, want unique", g.Goal, g.Outcome)
		}
	}

	got, err = Solve(ctx, s, "app", "W<bool>", "Show")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != OutcomeNoSolution {
		t.Fatalf("W<bool>: Show = %+v", got)
	}

	if _, err := Solve(ctx, s, "nope", "W<i32>", "Show"); err == nil {
		t.Fatalf("unknown crate accepted")
	}
	if _, err := Solve(ctx, s, "app", "W<i32>", "Missing"); err == nil || !strings.Contains(err.Error(), "Missing") {
		t.Fatalf("unknown trait: %v", err)
	}
}

func TestOptionsAndLogging(t *testing.T) {
	cfg := project.DefaultConfig()
	cfg.Recovery.SolverCycle = "sometimes"
	if _, err := Options(cfg, nil, nil); err == nil {
		t.Fatalf("invalid solver_cycle accepted")
	}

	core, logs := observer.New(zapcore.DebugLevel)
	cfg.Recovery.SolverCycle = "ambiguous"
	opts, err := Options(cfg, zap.New(core), nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	newSession(t, opts...)
	if n := logs.FilterMessage("workspace applied").Len(); n != 1 {
		t.Fatalf("workspace applied logged %d times", n)
	}
}
