package sema

import (
	"fmt"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/types"
)

// Namer returns a types.Namer that reads definition names through rt.
func (db *Database) Namer(rt *query.Runtime) types.Namer {
	return &namer{db: db, rt: rt}
}

type namer struct {
	db *Database
	rt *query.Runtime
}

func (n *namer) DefName(def hir.DefID) string {
	if item := n.db.item(n.rt, def); item != nil && item.Name != "" {
		return item.Name
	}
	return def.String()
}

func (n *namer) FnDefName(id types.FnDefID) string {
	c := n.db.callables.Lookup(id)
	switch c.Kind {
	case hir.CallableVariant:
		if v, ok := n.db.adtData.Get(n.rt, hir.AdtID(c.Def)).Variant(c.Variant); ok {
			return n.DefName(c.Def) + "::" + v.Name
		}
	case hir.CallableFunction:
		if fn := n.db.functionData.Get(n.rt, hir.FunctionID(c.Def)); fn != nil && fn.Container.IsValid() {
			if item := n.db.item(n.rt, fn.Container); item != nil && item.Name != "" {
				return item.Name + "::" + fn.Name
			}
		}
	}
	return n.DefName(c.Def)
}

func (n *namer) ParamName(id types.PlaceholderID) string {
	p := n.db.params.Lookup(id)
	if p.IsTraitSelf() {
		return "Self"
	}
	for _, gp := range n.db.genericParams.Get(n.rt, p.Parent).Params {
		if gp.ID == p {
			return gp.Name
		}
	}
	return fmt.Sprintf("?P%d", id)
}
