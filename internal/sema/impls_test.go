package sema

import (
	"slices"
	"testing"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// twoCrates declares `core` with a trait Show implemented for i32 and an
// inherent impl on i32, and `app` depending on core with a struct S, its
// Show impl and an inherent impl.
type twoCrates struct {
	f              *fixture
	core, app      hir.CrateID
	show, s        hir.DefID
	showI32, showS hir.DefID
	inherentI32    hir.DefID
	inherentS      hir.DefID
}

func newTwoCrates(t *testing.T) *twoCrates {
	f := newFixture(t)
	c := &twoCrates{f: f}
	c.core = f.crate("core")
	c.app = f.crate("app", c.core)
	c.show = f.add(c.core, traitItem("Show"))
	c.showI32 = f.add(c.core, implItem(hir.GenericParams{}, hir.Builtin("i32"), &hir.TypeBound{Trait: hir.TraitID(c.show)}))
	c.inherentI32 = f.add(c.core, implItem(hir.GenericParams{}, hir.Builtin("i32"), nil))
	c.s = f.add(c.app, structItem("S", hir.GenericParams{}))
	c.showS = f.add(c.app, implItem(hir.GenericParams{}, hir.Path(c.s), &hir.TypeBound{Trait: hir.TraitID(c.show)}))
	c.inherentS = f.add(c.app, implItem(hir.GenericParams{}, hir.Path(c.s), nil))
	f.commit()
	return c
}

func TestTraitImplsInDepsIsComplete(t *testing.T) {
	c := newTwoCrates(t)
	db := c.f.db
	show := hir.TraitID(c.show)

	app := run(t, db, func(rt *query.Runtime) []hir.ImplID { return db.TraitImplsInDeps(rt, c.app).ForTrait(show) })
	want := []hir.ImplID{hir.ImplID(c.showI32), hir.ImplID(c.showS)}
	if !slices.Equal(app, want) {
		t.Fatalf("impls visible from app = %v, want %v", app, want)
	}
	core := run(t, db, func(rt *query.Runtime) []hir.ImplID { return db.TraitImplsInDeps(rt, c.core).ForTrait(show) })
	if !slices.Equal(core, want[:1]) {
		t.Fatalf("impls visible from core = %v, want %v", core, want[:1])
	}
	own := run(t, db, func(rt *query.Runtime) int { return db.TraitImplsInCrate(rt, c.app).Len() })
	if own != 1 {
		t.Fatalf("trait impls in app = %d, want 1", own)
	}
}

func TestTraitImplsFilterBySelfType(t *testing.T) {
	c := newTwoCrates(t)
	db := c.f.db
	fp, ok := types.FingerprintOf(types.MakeScalar(types.ScalarI32))
	if !ok {
		t.Fatalf("i32 has no fingerprint")
	}
	got := run(t, db, func(rt *query.Runtime) []hir.ImplID {
		return db.TraitImplsInDeps(rt, c.app).ForTraitAndSelf(hir.TraitID(c.show), fp, true)
	})
	if !slices.Equal(got, []hir.ImplID{hir.ImplID(c.showI32)}) {
		t.Fatalf("impls for i32 = %v", got)
	}
}

func TestInherentImplIndices(t *testing.T) {
	c := newTwoCrates(t)
	db := c.f.db

	adt := types.MakeAdt(c.s, nil)
	fpS, _ := types.InherentFingerprintOf(adt)
	got := run(t, db, func(rt *query.Runtime) []hir.ImplID { return db.InherentImplsInCrate(rt, c.app).ForSelfTy(fpS) })
	if !slices.Equal(got, []hir.ImplID{hir.ImplID(c.inherentS)}) {
		t.Fatalf("inherent impls of S = %v", got)
	}

	fpI32, _ := types.InherentFingerprintOf(types.MakeScalar(types.ScalarI32))
	crates := run(t, db, func(rt *query.Runtime) ImplCrates { return db.InherentImplCrates(rt, c.app, fpI32) })
	if !slices.Equal(crates.Slice(), []hir.CrateID{c.core}) {
		t.Fatalf("crates with inherent i32 impls = %v", crates.Slice())
	}
	none := run(t, db, func(rt *query.Runtime) ImplCrates { return db.InherentImplCrates(rt, c.core, fpS) })
	if none.Len() != 0 {
		t.Fatalf("core sees inherent impls of S in %v", none.Slice())
	}
}

func TestEmptyBlockIndicesAreNil(t *testing.T) {
	c := newTwoCrates(t)
	db := c.f.db
	db.SetBlockDefs(&hir.BlockDefs{Block: 1, Crate: c.app})
	inherent := run(t, db, func(rt *query.Runtime) *InherentImpls { return db.InherentImplsInBlock(rt, 1) })
	traits := run(t, db, func(rt *query.Runtime) *TraitImpls { return db.TraitImplsInBlock(rt, 1) })
	if inherent != nil || traits != nil {
		t.Fatalf("empty block produced indices %v %v", inherent, traits)
	}
}

func TestImplCratesCapacity(t *testing.T) {
	var c ImplCrates
	for i := hir.CrateID(1); i <= 3; i++ {
		c.push(i)
	}
	if c.Len() != maxImplCrates || !c.Full() || c.At(1) != 2 {
		t.Fatalf("crates = %v", c.Slice())
	}
}
