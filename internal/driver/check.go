package driver

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"tyinc/internal/hir"
	"tyinc/internal/observ"
	"tyinc/internal/query"
	"tyinc/internal/sema"
	"tyinc/internal/trace"
	"tyinc/internal/types"
)

// CheckOptions configures Check.
type CheckOptions struct {
	Jobs     int
	Observer PhaseObserver
	// Bodies, when set, follows per-body progress during prewarm.
	Bodies BodyObserver
}

// BodyReport is the outcome of inferring one body.
type BodyReport struct {
	Def         hir.DefWithBodyID
	Crate       string
	Name        string
	Signature   string
	Diagnostics []string
	Duration    time.Duration
}

// Report is the outcome of Check.
type Report struct {
	Bodies  []BodyReport
	Timings observ.Report
	Queries observ.QueryReport
}

// ErrorCount returns the number of diagnostics over all bodies.
func (r *Report) ErrorCount() int {
	n := 0
	for _, b := range r.Bodies {
		n += len(b.Diagnostics)
	}
	return n
}

// Check infers every body of the session and reports signatures and
// diagnostics in crate order, then definition order.
func Check(ctx context.Context, s *Session, opts CheckOptions) (*Report, error) {
	timer := observ.NewTimer()
	steps := phases{timer: timer, observer: opts.Observer}

	span := trace.Begin(trace.FromContext(ctx), trace.ScopeDriver, "check", trace.CurrentSpan(ctx).SpanID)
	defer span.End("")
	ctx = trace.WithSpanContext(ctx, trace.SpanContext{SpanID: span.ID()})

	bodies := s.DB.Bodies()
	crateRank := map[hir.CrateID]int{}
	for i, k := range s.Workspace.Order {
		crateRank[k] = i
	}
	slices.SortFunc(bodies, func(a, b hir.DefWithBodyID) int {
		ra, rb := crateRank[s.crateOf(a)], crateRank[s.crateOf(b)]
		if ra != rb {
			return ra - rb
		}
		return int(a) - int(b)
	})

	var durations []time.Duration
	err := steps.run("prewarm", func() (string, error) {
		var err error
		var observe BodyObserver
		if opts.Bodies != nil {
			observe = func(e BodyEvent) {
				e.Name = s.Label(e.Def)
				opts.Bodies(e)
			}
		}
		durations, err = Prewarm(ctx, s.DB, bodies, opts.Jobs, observe)
		return fmt.Sprintf("%d bodies", len(bodies)), err
	})
	if err != nil {
		return nil, err
	}

	var reports []BodyReport
	err = steps.run("report", func() (string, error) {
		var err error
		reports, err = sema.Run(ctx, s.DB, func(rt *query.Runtime) []BodyReport {
			namer := s.DB.Namer(rt)
			out := make([]BodyReport, len(bodies))
			for i, def := range bodies {
				res := s.DB.Infer(rt, def)
				out[i] = BodyReport{
					Def:       def,
					Crate:     s.CrateName(s.crateOf(def)),
					Name:      s.Label(def),
					Signature: s.signature(def, res, namer),
					Duration:  durations[i],
				}
				for _, d := range res.Diagnostics {
					out[i].Diagnostics = append(out[i].Diagnostics, fmt.Sprintf("%s: %s", d.Kind, d.Message(namer)))
				}
			}
			return out
		})
		return "", err
	})
	if err != nil {
		return nil, err
	}

	return &Report{
		Bodies:  reports,
		Timings: timer.Report(),
		Queries: s.DB.Store().Stats(),
	}, nil
}

func (s *Session) crateOf(def hir.DefID) hir.CrateID {
	if item := s.Workspace.Items[def]; item != nil {
		return item.Crate
	}
	return hir.NoCrateID
}

// signature renders the inferred signature of a body owner: parameter
// patterns with their types for functions, the declared type otherwise.
func (s *Session) signature(def hir.DefWithBodyID, res *sema.InferenceResult, n types.Namer) string {
	item := s.Workspace.Items[def]
	body := s.Workspace.Bodies[def]
	if item == nil || body == nil {
		return ""
	}
	ret := types.Display(res.ReturnTy, n)
	switch item.Kind {
	case hir.ItemConst:
		return fmt.Sprintf("const %s: %s", item.Name, ret)
	case hir.ItemStatic:
		return fmt.Sprintf("static %s: %s", item.Name, ret)
	}
	params := make([]string, len(body.Params))
	for i, p := range body.Params {
		params[i] = fmt.Sprintf("%s: %s", patternText(body, p), types.Display(res.TypeOfPat(p), n))
	}
	sig := fmt.Sprintf("fn %s(%s)", s.Label(def), strings.Join(params, ", "))
	if !res.ReturnTy.IsUnit() {
		sig += " -> " + ret
	}
	return sig
}

func patternText(body *hir.Body, id hir.PatID) string {
	p := body.Pat(id)
	switch p.Kind {
	case hir.PatBind:
		if p.Mut {
			return "mut " + p.Name
		}
		return p.Name
	case hir.PatTuple:
		elems := make([]string, len(p.Elems))
		for i, e := range p.Elems {
			elems[i] = patternText(body, e)
		}
		return "(" + strings.Join(elems, ", ") + ")"
	default:
		return "_"
	}
}
