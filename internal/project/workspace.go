package project

import (
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"

	"tyinc/internal/hir"
	"tyinc/internal/query"
)

// Workspace is a decoded fixture file. It stands in for the output of name
// resolution: crates, their dependencies and their items, with signatures
// and bodies written in a small surface syntax.
//
//	[[crate]]
//	name = "app"
//	deps = ["core"]
//
//	[[crate.fn]]
//	name = "main"
//	ret = "i32"
//	body = "{ let x = 1u8; x.show() }"
type Workspace struct {
	Crates []CrateDecl `toml:"crate"`
}

// CrateDecl is one crate. Items are numbered per crate in the order
// structs, enums, type aliases, traits, impls, consts, statics, fns.
type CrateDecl struct {
	Name    string       `toml:"name"`
	Deps    []string     `toml:"deps"`
	Structs []StructDecl `toml:"struct"`
	Enums   []EnumDecl   `toml:"enum"`
	Types   []AliasDecl  `toml:"type"`
	Traits  []TraitDecl  `toml:"trait"`
	Impls   []ImplDecl   `toml:"impl"`
	Consts  []ConstDecl  `toml:"const"`
	Statics []ConstDecl  `toml:"static"`
	Fns     []FnDecl     `toml:"fn"`
}

// StructDecl declares a struct. Fields are "name: Type"; Tuple lists the
// field types of a tuple struct. A struct with neither is a unit struct.
type StructDecl struct {
	Name     string   `toml:"name"`
	Generics []string `toml:"generics"`
	Where    []string `toml:"where"`
	Fields   []string `toml:"fields"`
	Tuple    []string `toml:"tuple"`
}

// EnumDecl declares an enum. Variants are written "None", "Some(T)" or
// "Point { x: i32, y: i32 }".
type EnumDecl struct {
	Name     string   `toml:"name"`
	Generics []string `toml:"generics"`
	Where    []string `toml:"where"`
	Variants []string `toml:"variants"`
}

// AliasDecl declares `type Name<Generics> = Type`.
type AliasDecl struct {
	Name     string   `toml:"name"`
	Generics []string `toml:"generics"`
	Type     string   `toml:"type"`
}

// TraitDecl declares a trait. Types lists associated types, optionally
// bounded: "Item" or "Item: Show".
type TraitDecl struct {
	Name     string   `toml:"name"`
	Generics []string `toml:"generics"`
	Where    []string `toml:"where"`
	Super    []string `toml:"super"`
	Types    []string `toml:"types"`
	Fns      []FnDecl `toml:"fn"`
	Auto     bool     `toml:"auto"`
	Marker   bool     `toml:"marker"`
}

// ImplDecl declares `impl<Generics> Trait for For`; an empty Trait makes an
// inherent impl. Types gives associated type values: "Item = u32".
type ImplDecl struct {
	Generics []string `toml:"generics"`
	Where    []string `toml:"where"`
	Trait    string   `toml:"trait"`
	For      string   `toml:"for"`
	Negative bool     `toml:"negative"`
	Types    []string `toml:"types"`
	Fns      []FnDecl `toml:"fn"`
}

// FnDecl declares a function or method. Self is "self", "&self" or
// "&mut self"; Params are "pattern: Type". A function without a body is a
// declaration only.
type FnDecl struct {
	Name     string   `toml:"name"`
	Generics []string `toml:"generics"`
	Where    []string `toml:"where"`
	Self     string   `toml:"self"`
	Params   []string `toml:"params"`
	Ret      string   `toml:"ret"`
	Body     string   `toml:"body"`
}

// ConstDecl declares a const or static with its initializer expression.
type ConstDecl struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Value string `toml:"value"`
	Mut   bool   `toml:"mut"`
}

// LoadWorkspace decodes and resolves a workspace fixture file.
func LoadWorkspace(path string) (*Resolved, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read workspace %s", path)
	}
	r, err := ParseWorkspace(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return r, nil
}

// ParseWorkspace decodes and resolves a workspace fixture.
func ParseWorkspace(src string) (*Resolved, error) {
	var ws Workspace
	meta, err := toml.Decode(src, &ws)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse TOML")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Newf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if !meta.IsDefined("crate") || len(ws.Crates) == 0 {
		return nil, errors.New("missing [[crate]]")
	}
	return Resolve(&ws)
}

// Sink receives resolved inputs.
type Sink interface {
	SetCrateGraph(g *hir.CrateGraph) query.Revision
	SetCrateDefs(defs *hir.CrateDefs) query.Revision
	SetItem(def hir.DefID, item *hir.Item) query.Revision
	SetBody(def hir.DefWithBodyID, body *hir.Body) query.Revision
}

// Apply writes every input to s in a deterministic order and returns the
// revision of the last write.
func (r *Resolved) Apply(s Sink) query.Revision {
	rev := s.SetCrateGraph(r.Graph)
	for _, defs := range r.Defs {
		rev = s.SetCrateDefs(defs)
	}
	for _, def := range sortedKeys(r.Items) {
		rev = s.SetItem(def, r.Items[def])
	}
	for _, def := range sortedKeys(r.Bodies) {
		rev = s.SetBody(def, r.Bodies[def])
	}
	return rev
}

func sortedKeys[V any](m map[hir.DefID]V) []hir.DefID {
	keys := make([]hir.DefID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
