package types

import (
	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Canonical is a value whose free inference variables have been replaced by
// bound variables of an implicit outer binder, numbered in order of first
// appearance. Two goals that differ only in variable numbering canonicalize
// to the same value.
type Canonical[T Foldable[T]] struct {
	Binders []VarKind `msgpack:",omitempty"`
	Value   T
}

// CanonicalGoal is the form in which goals are handed to the solver.
type CanonicalGoal = Canonical[InEnvironment]

// Canonicalize resolves goal against t and replaces its remaining variables
// with bound variables. vars[i] is the table variable behind binder i.
func Canonicalize(t *Table, goal InEnvironment) (c CanonicalGoal, vars []*Ty) {
	index := map[InferVar]uint32{}
	var kinds []VarKind
	f := &Folder{}
	f.Ty = func(x *Ty, depth uint32) *Ty {
		if x.Kind != KindInferVar {
			return nil
		}
		r := t.Resolve(x)
		if r.Kind != KindInferVar {
			return r.FoldWith(f, depth)
		}
		i, ok := index[r.Var]
		if !ok {
			i = uint32(len(kinds))
			index[r.Var] = i
			kinds = append(kinds, t.VarKind(r.Var))
			vars = append(vars, r)
		}
		return MakeBound(depth, i)
	}
	return CanonicalGoal{Binders: kinds, Value: goal.FoldWith(f, 0)}, vars
}

// IsGround reports whether the canonical value has no free variables.
func (c Canonical[T]) IsGround() bool { return len(c.Binders) == 0 }

// InstantiateCanonical replaces c's binders with fresh variables of t and
// returns the value along with those variables.
func InstantiateCanonical[T Foldable[T]](t *Table, c Canonical[T]) (T, []*Ty) {
	args := make(Substitution, len(c.Binders))
	vars := make([]*Ty, len(c.Binders))
	for i, k := range c.Binders {
		vars[i] = t.NewVar(k)
		args[i] = TyArg(vars[i])
	}
	return MakeBinders(len(c.Binders), c.Value).Substitute(args), vars
}

// EncodeCanonical returns the canonical byte form of a goal. Equal goals
// encode to equal bytes, so the encoding can serve as an interning key.
func EncodeCanonical(c CanonicalGoal) ([]byte, error) {
	b, err := msgpack.Marshal(&c)
	if err != nil {
		return nil, errors.Wrap(err, "encode canonical goal")
	}
	return b, nil
}

// DecodeCanonical is the inverse of EncodeCanonical.
func DecodeCanonical(b []byte) (CanonicalGoal, error) {
	var c CanonicalGoal
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return CanonicalGoal{}, errors.Wrap(err, "decode canonical goal")
	}
	return c, nil
}
