package driver

import (
	"context"
	"strings"

	"tyinc/internal/hir"
	"tyinc/internal/query"
	"tyinc/internal/sema"
	"tyinc/internal/types"
)

// ImplRow is one entry of a crate's impl indices.
type ImplRow struct {
	Crate  string
	Impl   hir.ImplID
	Trait  string // empty for inherent impls
	Header string
	// Key is the self type fingerprint the impl is indexed under, or
	// "blanket" when the self type has none.
	Key string
}

// Impls lists the inherent and trait impl indices of every crate, crates
// in dependency order.
func Impls(ctx context.Context, s *Session) ([]ImplRow, error) {
	return sema.Run(ctx, s.DB, func(rt *query.Runtime) []ImplRow {
		namer := s.DB.Namer(rt)
		var rows []ImplRow
		for _, krate := range s.Workspace.Order {
			crate := s.CrateName(krate)
			for _, impl := range s.DB.InherentImplsInCrate(rt, krate).All() {
				rows = append(rows, s.implRow(rt, namer, crate, impl))
			}
			traits := s.DB.TraitImplsInCrate(rt, krate)
			for _, trait := range traits.Traits() {
				for _, impl := range traits.ForTrait(trait) {
					row := s.implRow(rt, namer, crate, impl)
					row.Trait = namer.DefName(trait.Def())
					rows = append(rows, row)
				}
			}
		}
		return rows
	})
}

func (s *Session) implRow(rt *query.Runtime, n types.Namer, crate string, impl hir.ImplID) ImplRow {
	ph := s.DB.PlaceholderSubst(rt, impl.Def())
	selfB := s.DB.ImplSelfTy(rt, impl)
	self := selfB.SkipBinders()
	if selfB.Len == len(ph) {
		self = selfB.Substitute(ph)
	}

	var sb strings.Builder
	sb.WriteString("impl")
	sb.WriteString(types.DisplayArgs(ph, n))
	sb.WriteByte(' ')

	row := ImplRow{Crate: crate, Impl: impl, Key: "blanket"}
	fp, ok := types.InherentFingerprintOf(self)
	if tr := s.DB.ImplTrait(rt, impl); tr != nil {
		fp, ok = types.FingerprintOf(self)
		if item := s.Workspace.Items[impl.Def()]; item != nil && item.Impl.Negative {
			sb.WriteByte('!')
		}
		ref := tr.SkipBinders()
		if tr.Len == len(ph) {
			ref = tr.Substitute(ph)
		}
		sb.WriteString(n.DefName(ref.Trait.Def()))
		if len(ref.Args) > 1 {
			sb.WriteString(types.DisplayArgs(ref.Args[1:], n))
		}
		sb.WriteString(" for ")
	}
	sb.WriteString(types.Display(self, n))
	if ok {
		row.Key = fp.String()
	}
	row.Header = sb.String()
	return row
}
