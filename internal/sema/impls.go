package sema

import (
	"slices"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// InherentImpls indexes inherent impls by the fingerprint of their self type.
// Impls whose self type has no inherent fingerprint are kept in Invalid.
type InherentImpls struct {
	Map     map[types.Fingerprint][]hir.ImplID
	Invalid []hir.ImplID
}

// ForSelfTy returns the impls whose self type may equal a type with fingerprint fp.
func (i *InherentImpls) ForSelfTy(fp types.Fingerprint) []hir.ImplID {
	if i == nil {
		return nil
	}
	return i.Map[fp]
}

// All returns every indexed impl in ID order.
func (i *InherentImpls) All() []hir.ImplID {
	if i == nil {
		return nil
	}
	var out []hir.ImplID
	for _, impls := range i.Map {
		out = append(out, impls...)
	}
	out = append(out, i.Invalid...)
	slices.Sort(out)
	return out
}

func (db *Database) collectInherentImpls(rt *query.Runtime, defs []hir.DefID) *InherentImpls {
	idx := &InherentImpls{Map: map[types.Fingerprint][]hir.ImplID{}}
	for _, def := range defs {
		impl := hir.ImplID(def)
		info := db.implData.Get(rt, impl)
		if info == nil || info.HasTrait {
			continue
		}
		self := db.implSelfTy.Get(rt, impl).SkipBinders()
		fp, ok := types.InherentFingerprintOf(self)
		if !ok {
			idx.Invalid = append(idx.Invalid, impl)
			continue
		}
		idx.Map[fp] = append(idx.Map[fp], impl)
	}
	return idx
}

func (db *Database) inherentImplsInCrateQuery(rt *query.Runtime, krate hir.CrateID) *InherentImpls {
	return db.collectInherentImpls(rt, db.crateItems(rt, krate))
}

func (db *Database) inherentImplsInBlockQuery(rt *query.Runtime, block hir.BlockID) *InherentImpls {
	defs := db.block(rt, block)
	if defs == nil {
		return nil
	}
	idx := db.collectInherentImpls(rt, defs.Items)
	if len(idx.Map) == 0 && len(idx.Invalid) == 0 {
		return nil
	}
	return idx
}

// maxImplCrates bounds how many crates inherent_impl_crates reports.
const maxImplCrates = 2

// ImplCrates is a short list of crates, stored inline.
type ImplCrates struct {
	crates [maxImplCrates]hir.CrateID
	n      uint8
}

// Len returns the number of crates.
func (c ImplCrates) Len() int { return int(c.n) }

// At returns the i-th crate.
func (c ImplCrates) At(i int) hir.CrateID { return c.crates[i] }

// Slice copies the crates out.
func (c ImplCrates) Slice() []hir.CrateID { return append([]hir.CrateID(nil), c.crates[:c.n]...) }

// Full reports whether no more crates fit.
func (c ImplCrates) Full() bool { return int(c.n) == maxImplCrates }

func (c *ImplCrates) push(krate hir.CrateID) bool {
	if c.Full() {
		return false
	}
	c.crates[c.n] = krate
	c.n++
	return true
}

func (db *Database) inherentImplCratesQuery(rt *query.Runtime, key ImplCratesKey) ImplCrates {
	var out ImplCrates
	for _, dep := range db.graph(rt).TransitiveDeps(key.Crate) {
		if len(db.inherentImplsInCrate.Get(rt, dep).ForSelfTy(key.Fingerprint)) == 0 {
			continue
		}
		if !out.push(dep) {
			break
		}
	}
	return out
}

// TraitImplSet holds the impls of one trait.
type TraitImplSet struct {
	ByFingerprint map[types.Fingerprint][]hir.ImplID
	// Blanket impls have a self type without a fingerprint.
	Blanket []hir.ImplID
}

// TraitImpls indexes trait impls by trait, then by self type fingerprint.
type TraitImpls struct {
	ByTrait map[hir.TraitID]*TraitImplSet
}

func newTraitImpls() *TraitImpls {
	return &TraitImpls{ByTrait: map[hir.TraitID]*TraitImplSet{}}
}

func (t *TraitImpls) add(trait hir.TraitID, fp types.Fingerprint, ok bool, impl hir.ImplID) {
	set := t.ByTrait[trait]
	if set == nil {
		set = &TraitImplSet{ByFingerprint: map[types.Fingerprint][]hir.ImplID{}}
		t.ByTrait[trait] = set
	}
	if ok {
		set.ByFingerprint[fp] = append(set.ByFingerprint[fp], impl)
		return
	}
	set.Blanket = append(set.Blanket, impl)
}

func (t *TraitImpls) merge(o *TraitImpls) {
	if o == nil {
		return
	}
	for trait, set := range o.ByTrait {
		for fp, impls := range set.ByFingerprint {
			for _, impl := range impls {
				t.add(trait, fp, true, impl)
			}
		}
		for _, impl := range set.Blanket {
			t.add(trait, types.Fingerprint{}, false, impl)
		}
	}
}

// ForTraitAndSelf returns the impls of trait that may apply to a self type
// with fingerprint fp, or every impl of trait when the self type has none.
// The result is freshly allocated.
func (t *TraitImpls) ForTraitAndSelf(trait hir.TraitID, fp types.Fingerprint, ok bool) []hir.ImplID {
	if t == nil {
		return nil
	}
	set := t.ByTrait[trait]
	if set == nil {
		return nil
	}
	var out []hir.ImplID
	if ok {
		out = append(out, set.ByFingerprint[fp]...)
	} else {
		for _, impls := range set.ByFingerprint {
			out = append(out, impls...)
		}
		slices.Sort(out)
	}
	return append(out, set.Blanket...)
}

// ForTrait returns every impl of trait in ID order.
func (t *TraitImpls) ForTrait(trait hir.TraitID) []hir.ImplID {
	out := t.ForTraitAndSelf(trait, types.Fingerprint{}, false)
	slices.Sort(out)
	return out
}

// Traits returns the indexed traits in ID order.
func (t *TraitImpls) Traits() []hir.TraitID {
	if t == nil {
		return nil
	}
	out := make([]hir.TraitID, 0, len(t.ByTrait))
	for trait := range t.ByTrait {
		out = append(out, trait)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of indexed impls.
func (t *TraitImpls) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, set := range t.ByTrait {
		n += len(set.Blanket)
		for _, impls := range set.ByFingerprint {
			n += len(impls)
		}
	}
	return n
}

func (db *Database) collectTraitImpls(rt *query.Runtime, defs []hir.DefID) *TraitImpls {
	idx := newTraitImpls()
	for _, def := range defs {
		impl := hir.ImplID(def)
		info := db.implData.Get(rt, impl)
		if info == nil || !info.HasTrait {
			continue
		}
		ref := db.implTrait.Get(rt, impl)
		if ref == nil {
			continue
		}
		fp, ok := types.FingerprintOf(ref.SkipBinders().SelfTy())
		idx.add(ref.SkipBinders().Trait, fp, ok, impl)
	}
	return idx
}

func (db *Database) traitImplsInCrateQuery(rt *query.Runtime, krate hir.CrateID) *TraitImpls {
	return db.collectTraitImpls(rt, db.crateItems(rt, krate))
}

func (db *Database) traitImplsInBlockQuery(rt *query.Runtime, block hir.BlockID) *TraitImpls {
	defs := db.block(rt, block)
	if defs == nil {
		return nil
	}
	idx := db.collectTraitImpls(rt, defs.Items)
	if len(idx.ByTrait) == 0 {
		return nil
	}
	return idx
}

func (db *Database) traitImplsInDepsQuery(rt *query.Runtime, krate hir.CrateID) *TraitImpls {
	idx := newTraitImpls()
	for _, dep := range db.graph(rt).TransitiveDeps(krate) {
		idx.merge(db.traitImplsInCrate.Get(rt, dep))
	}
	return idx
}

func (db *Database) traitsInScopeQuery(rt *query.Runtime, krate hir.CrateID) []hir.TraitID {
	var out []hir.TraitID
	for _, dep := range db.graph(rt).TransitiveDeps(krate) {
		for _, def := range db.crateItems(rt, dep) {
			if db.traitData.Get(rt, hir.TraitID(def)) != nil {
				out = append(out, hir.TraitID(def))
			}
		}
	}
	return out
}

// blockChain returns block and its enclosing item blocks, innermost first.
func (db *Database) blockChain(rt *query.Runtime, block hir.BlockID) []hir.BlockID {
	var out []hir.BlockID
	for block.IsValid() && len(out) < 64 {
		out = append(out, block)
		defs := db.block(rt, block)
		if defs == nil {
			break
		}
		block = defs.Parent
	}
	return out
}
