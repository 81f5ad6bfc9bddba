package solve

import (
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/types"
)

const (
	traitFoo  hir.TraitID     = 1
	traitBar  hir.TraitID     = 2
	traitIter hir.TraitID     = 3
	traitSend hir.TraitID     = 4
	assocItem hir.AssocTypeID = 10
	adtVec    hir.DefID       = 20
	adtS      hir.DefID       = 21
	adtW      hir.DefID       = 22
)

type fakeProgram struct {
	impls   map[hir.TraitID][]hir.ImplID
	data    map[hir.ImplID]*ImplDatum
	traits  map[hir.TraitID]*TraitDatum
	structs map[hir.AdtID]*StructDatum
	assoc   map[hir.AssocTypeID]*AssociatedTyDatum
	values  map[hir.ImplID]*AssociatedTyValue
	env     types.Predicates
	solver  *Solver
	nested  int
}

func newFake() *fakeProgram {
	p := &fakeProgram{
		impls:   map[hir.TraitID][]hir.ImplID{},
		data:    map[hir.ImplID]*ImplDatum{},
		traits:  map[hir.TraitID]*TraitDatum{},
		structs: map[hir.AdtID]*StructDatum{},
		assoc:   map[hir.AssocTypeID]*AssociatedTyDatum{},
		values:  map[hir.ImplID]*AssociatedTyValue{},
	}
	p.solver = New(p)
	return p
}

func (p *fakeProgram) addImpl(id hir.ImplID, generics int, trait hir.TraitID, self *types.Ty, where ...types.WhereClause) {
	kinds := make([]types.ParamKind, generics)
	p.impls[trait] = append(p.impls[trait], id)
	p.data[id] = &ImplDatum{
		ID:      id,
		Kinds:   kinds,
		Binders: types.MakeBinders(generics, ImplBound{Trait: ref(trait, self), Where: where}),
	}
}

func (p *fakeProgram) ImplsForTrait(trait hir.TraitID, _ *types.Ty, _ types.Environment) []hir.ImplID {
	return p.impls[trait]
}
func (p *fakeProgram) ImplDatum(id hir.ImplID) *ImplDatum { return p.data[id] }
func (p *fakeProgram) TraitDatum(id hir.TraitID) *TraitDatum { return p.traits[id] }
func (p *fakeProgram) StructDatum(id hir.AdtID) *StructDatum { return p.structs[id] }
func (p *fakeProgram) AssociatedTyData(id hir.AssocTypeID) *AssociatedTyDatum { return p.assoc[id] }
func (p *fakeProgram) AssociatedTyValue(impl hir.ImplID, _ hir.AssocTypeID) *AssociatedTyValue {
	return p.values[impl]
}
func (p *fakeProgram) EnvClauses(types.Environment) types.Predicates { return p.env }
func (p *fakeProgram) OpaqueBounds(types.OpaqueID, types.Substitution) types.Predicates {
	return nil
}
func (p *fakeProgram) CheckCancelled() {}
func (p *fakeProgram) Solve(goal types.CanonicalGoal) *types.Solution {
	p.nested++
	return p.solver.Solve(goal)
}

func ref(trait hir.TraitID, self *types.Ty) types.TraitRef {
	return types.TraitRef{Trait: trait, Args: types.Substitution{types.TyArg(self)}}
}

func vec(elem *types.Ty) *types.Ty {
	return types.MakeAdt(adtVec, types.Substitution{types.TyArg(elem)})
}

func canon(tab *types.Table, g types.Goal) types.CanonicalGoal {
	c, _ := types.Canonicalize(tab, types.InEnvironment{Goal: g})
	return c
}

func TestBlanketImplSolvesEveryType(t *testing.T) {
	p := newFake()
	p.addImpl(100, 1, traitFoo, types.MakeBound(0, 0))
	tab := types.NewTable()

	sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, types.MakeAdt(adtS, nil)))))
	if !sol.Unique() {
		t.Fatalf("expected unique solution, got %+v", sol)
	}
	sol = p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, tab.NewVar(types.VarGeneral)))))
	if sol == nil || sol.Unique() {
		t.Fatalf("unknown self type must be ambiguous, got %+v", sol)
	}
}

func TestNoImplMeansNoSolution(t *testing.T) {
	p := newFake()
	tab := types.NewTable()
	if sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, types.Bool())))); sol != nil {
		t.Fatalf("expected no solution, got %+v", sol)
	}
}

func TestImplWhereClausesAreSolvedRecursively(t *testing.T) {
	p := newFake()
	p.addImpl(100, 1, traitFoo, vec(types.MakeBound(0, 0)), types.Implemented(ref(traitBar, types.MakeBound(0, 0))))
	p.addImpl(101, 0, traitBar, types.MakeScalar(types.ScalarI32))
	tab := types.NewTable()

	if sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, vec(types.MakeScalar(types.ScalarI32)))))); !sol.Unique() {
		t.Fatalf("Vec<i32>: Foo must hold, got %+v", sol)
	}
	if p.nested == 0 {
		t.Fatalf("where clauses must be proven through the program")
	}
	if sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, vec(types.Bool()))))); sol != nil {
		t.Fatalf("Vec<bool>: Foo must fail, got %+v", sol)
	}
}

func TestUniqueImplDeterminesVariables(t *testing.T) {
	p := newFake()
	p.addImpl(100, 0, traitFoo, vec(types.MakeScalar(types.ScalarI32)))
	tab := types.NewTable()
	v := tab.NewVar(types.VarGeneral)
	goal, vars := types.Canonicalize(tab, types.InEnvironment{Goal: types.Implemented(ref(traitFoo, vec(v)))})

	sol := p.solver.Solve(goal)
	if !sol.Unique() {
		t.Fatalf("expected unique solution, got %+v", sol)
	}
	if !tab.Apply(sol, vars) {
		t.Fatalf("apply failed")
	}
	if s := types.Display(tab.ResolveDeep(v, nil), nil); s != "i32" {
		t.Fatalf("expected ?1 := i32, got %q", s)
	}

	p.addImpl(101, 0, traitFoo, vec(types.MakeScalar(types.ScalarU8)))
	w := tab.NewVar(types.VarGeneral)
	sol = p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, vec(w)))))
	if sol == nil || sol.Unique() {
		t.Fatalf("two matching impls must be ambiguous, got %+v", sol)
	}
}

func TestEnvironmentClauses(t *testing.T) {
	p := newFake()
	param := types.MakePlaceholder(7)
	tab := types.NewTable()
	goal := canon(tab, types.Implemented(ref(traitFoo, param)))
	if sol := p.solver.Solve(goal); sol != nil {
		t.Fatalf("placeholder without bounds must fail, got %+v", sol)
	}
	p.env = types.Predicates{types.Implemented(ref(traitFoo, param))}
	if sol := p.solver.Solve(goal); !sol.Unique() {
		t.Fatalf("bound in environment must hold, got %+v", sol)
	}
}

func TestNormalizeThroughImpl(t *testing.T) {
	p := newFake()
	p.assoc[assocItem] = &AssociatedTyDatum{Trait: traitIter, ID: assocItem, Name: "Item"}
	p.addImpl(100, 0, traitIter, types.MakeAdt(adtS, nil))
	p.values[100] = &AssociatedTyValue{Impl: 100, Assoc: assocItem, Value: types.Empty(types.MakeScalar(types.ScalarI32))}
	tab := types.NewTable()
	out := tab.NewVar(types.VarGeneral)
	proj := types.ProjectionTy{Assoc: assocItem, Args: types.Substitution{types.TyArg(types.MakeAdt(adtS, nil))}}
	goal, vars := types.Canonicalize(tab, types.InEnvironment{Goal: types.Normalizes(proj, out)})

	sol := p.solver.Solve(goal)
	if !sol.Unique() || !tab.Apply(sol, vars) {
		t.Fatalf("expected unique normalization, got %+v", sol)
	}
	if s := types.Display(tab.ResolveDeep(out, nil), nil); s != "i32" {
		t.Fatalf("expected Item = i32, got %q", s)
	}
}

func TestAutoTraitIsStructural(t *testing.T) {
	p := newFake()
	p.traits[traitSend] = &TraitDatum{ID: traitSend, Kinds: []types.ParamKind{types.ParamType}, Auto: true}
	p.structs[hir.AdtID(adtW)] = &StructDatum{
		ID:      hir.AdtID(adtW),
		Kinds:   []types.ParamKind{types.ParamType},
		Binders: types.MakeBinders(1, StructBound{Fields: []*types.Ty{types.MakeScalar(types.ScalarI32), types.MakeBound(0, 0)}}),
	}
	w := func(arg *types.Ty) *types.Ty { return types.MakeAdt(adtW, types.Substitution{types.TyArg(arg)}) }
	tab := types.NewTable()

	if sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitSend, w(types.Str()))))); !sol.Unique() {
		t.Fatalf("W<str>: Send must hold structurally, got %+v", sol)
	}
	if sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitSend, w(types.MakePlaceholder(3)))))); sol != nil {
		t.Fatalf("W<P>: Send without bounds must fail, got %+v", sol)
	}
}

func TestOversizedGoalIsAmbiguous(t *testing.T) {
	p := newFake()
	p.addImpl(100, 1, traitFoo, types.MakeBound(0, 0))
	ty := types.Bool()
	for range DefaultMaxTypeDepth + 1 {
		ty = vec(ty)
	}
	tab := types.NewTable()
	sol := p.solver.Solve(canon(tab, types.Implemented(ref(traitFoo, ty))))
	if sol == nil || sol.Unique() {
		t.Fatalf("expected overflow to be ambiguous, got %+v", sol)
	}
}
