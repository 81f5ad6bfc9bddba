// Package hir is the resolved input model consumed by semantic analysis.
//
// Name resolution lives outside this module. It hands over crates, items and
// bodies whose paths already point at stable definition identifiers; this
// package only describes that shape. Every value here is an immutable
// snapshot: a new source revision replaces values, it never edits them.
package hir

import "fmt"

// CrateID identifies a compilation unit.
type CrateID uint32

// DefID identifies a definition (function, type, trait, impl, const, static,
// type alias). IDs are stable across revisions.
type DefID uint32

// BlockID identifies a block expression that declares local items.
type BlockID uint32

// ExprID identifies an expression within one body.
type ExprID uint32

// PatID identifies a pattern within one body.
type PatID uint32

// LocalFieldID is the position of a field within its variant.
type LocalFieldID uint32

// Invalid ID constants (zero is sentinel).
const (
	NoCrateID CrateID = 0
	NoDefID   DefID   = 0
	NoBlockID BlockID = 0
	NoExprID  ExprID  = 0
	NoPatID   PatID   = 0
)

// IsValid returns true if the ID is valid (non-zero).
func (id CrateID) IsValid() bool { return id != NoCrateID }
func (id DefID) IsValid() bool   { return id != NoDefID }
func (id BlockID) IsValid() bool { return id != NoBlockID }
func (id ExprID) IsValid() bool  { return id != NoExprID }
func (id PatID) IsValid() bool   { return id != NoPatID }

func (id CrateID) String() string { return fmt.Sprintf("crate#%d", uint32(id)) }
func (id DefID) String() string   { return fmt.Sprintf("def#%d", uint32(id)) }
func (id BlockID) String() string { return fmt.Sprintf("block#%d", uint32(id)) }

// Typed views of DefID for query keys that accept one item kind only.
type (
	FunctionID  DefID
	AdtID       DefID
	TraitID     DefID
	ImplID      DefID
	TypeAliasID DefID
	ConstID     DefID
	StaticID    DefID
)

func (id FunctionID) Def() DefID  { return DefID(id) }
func (id AdtID) Def() DefID       { return DefID(id) }
func (id TraitID) Def() DefID     { return DefID(id) }
func (id ImplID) Def() DefID      { return DefID(id) }
func (id TypeAliasID) Def() DefID { return DefID(id) }
func (id ConstID) Def() DefID     { return DefID(id) }
func (id StaticID) Def() DefID    { return DefID(id) }

func (id FunctionID) String() string { return DefID(id).String() }
func (id AdtID) String() string      { return DefID(id).String() }
func (id TraitID) String() string    { return DefID(id).String() }
func (id ImplID) String() string     { return DefID(id).String() }
func (id ConstID) String() string    { return DefID(id).String() }

// GenericDefID is any definition that can declare generic parameters.
type GenericDefID = DefID

// DefWithBodyID is a function, const or static: a definition with a body.
type DefWithBodyID = DefID

// AssocTypeID is a type alias declared inside a trait.
type AssocTypeID = TypeAliasID
