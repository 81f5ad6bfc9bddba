package project

import "tyinc/internal/hir"

// crateScope holds the names a crate declares at top level.
type crateScope struct {
	id    hir.CrateID
	name  string
	deps  []*crateScope
	names map[string]hir.DefID
}

// paramDecl is one declared type or const parameter.
type paramDecl struct {
	name    string
	isConst bool
}

// genericFrame is the parameter list of one generic definition.
type genericFrame struct {
	owner     hir.DefID
	params    []paramDecl
	lifetimes []string
}

// scope resolves names inside one signature or body: generic parameters of
// the item and its container, then the crate's items, then its direct
// dependencies in declaration order.
type scope struct {
	r      *Resolved
	krate  *crateScope
	frames []genericFrame
	self   bool
	// selfAdt is the ADT an impl is for, used by `Self { .. }` literals.
	selfAdt hir.DefID
}

func (sc *scope) lookupParam(name string) (hir.TypeOrConstParamID, bool, bool) {
	for i := len(sc.frames) - 1; i >= 0; i-- {
		f := sc.frames[i]
		for j, p := range f.params {
			if p.name == name {
				return hir.TypeOrConstParamID{Parent: f.owner, Local: uint32(j)}, p.isConst, true
			}
		}
	}
	return hir.TypeOrConstParamID{}, false, false
}

func (sc *scope) isParam(name string) bool {
	_, _, ok := sc.lookupParam(name)
	return ok
}

func (sc *scope) lookupLifetime(name string) (hir.LifetimeParamID, bool) {
	for i := len(sc.frames) - 1; i >= 0; i-- {
		f := sc.frames[i]
		for j, lt := range f.lifetimes {
			if lt == name {
				return hir.LifetimeParamID{Parent: f.owner, Local: uint32(j)}, true
			}
		}
	}
	return hir.LifetimeParamID{}, false
}

func (sc *scope) lookupItem(name string) (hir.DefID, bool) {
	if def, ok := sc.krate.names[name]; ok {
		return def, true
	}
	for _, dep := range sc.krate.deps {
		if def, ok := dep.names[name]; ok {
			return def, true
		}
	}
	return hir.NoDefID, false
}

// isCrate reports whether name is the current crate or a direct dependency.
func (sc *scope) isCrate(name string) bool {
	if name == sc.krate.name {
		return true
	}
	for _, dep := range sc.krate.deps {
		if dep.name == name {
			return true
		}
	}
	return false
}

func (sc *scope) lookupIn(krate, name string) (hir.DefID, bool) {
	cs := sc.krate
	if krate != cs.name {
		cs = nil
		for _, dep := range sc.krate.deps {
			if dep.name == krate {
				cs = dep
			}
		}
	}
	if cs == nil {
		return hir.NoDefID, false
	}
	def, ok := cs.names[name]
	return def, ok
}

// with returns a copy of sc with one more generic frame.
func (sc *scope) with(f genericFrame) *scope {
	out := *sc
	out.frames = append(append([]genericFrame(nil), sc.frames...), f)
	return &out
}
