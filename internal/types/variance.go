package types

// Variance describes how a type parameter may be subtyped.
type Variance uint8

const (
	Bivariant Variance = iota
	Covariant
	Contravariant
	Invariant
)

func (v Variance) String() string {
	switch v {
	case Covariant:
		return "+"
	case Contravariant:
		return "-"
	case Invariant:
		return "="
	default:
		return "*"
	}
}

// Xform composes v with the variance of the position it appears in.
func (v Variance) Xform(pos Variance) Variance {
	switch {
	case v == Bivariant || pos == Bivariant:
		return Bivariant
	case v == Invariant || pos == Invariant:
		return Invariant
	case v == pos:
		return Covariant
	default:
		return Contravariant
	}
}

// Meet combines two uses of the same parameter.
func (v Variance) Meet(o Variance) Variance {
	switch {
	case v == o:
		return v
	case v == Bivariant:
		return o
	case o == Bivariant:
		return v
	default:
		return Invariant
	}
}
