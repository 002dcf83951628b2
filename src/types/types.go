// Package types defines MiniC's closed set of types and the asymmetric
// widening order bool ≺ int ≺ float that drives both the type checker and
// the IR builder's coercion insertion.
package types

import (
	"fmt"
	"strings"
)

// Kind differentiates the members of MiniC's closed type set.
type Kind int

const (
	Invalid Kind = iota
	Bool
	Int
	Float
	Void
	Array
)

// rank gives the position of a scalar kind in the widening order
// bool ≺ int ≺ float. Only scalar kinds are ranked; Void and Array are not
// part of the order.
var rank = map[Kind]int{
	Bool:  0,
	Int:   1,
	Float: 2,
}

// Type is MiniC's structural type representation. Elem and Dims are only
// meaningful when Kind is Array; Elem is restricted to Int or Float.
type Type struct {
	Kind Kind
	Elem Kind
	Dims []int
}

// Scalar type singletons. Type holds a slice and so is not comparable with
// ==; compare with Equal.
var (
	TBool  = Type{Kind: Bool}
	TInt   = Type{Kind: Int}
	TFloat = Type{Kind: Float}
	TVoid  = Type{Kind: Void}
)

// NewArray returns an array type of the given element kind and dimensions.
func NewArray(elem Kind, dims []int) Type {
	d := make([]int, len(dims))
	copy(d, dims)
	return Type{Kind: Array, Elem: elem, Dims: d}
}

// IsScalar reports whether t is one of bool, int or float.
func (t Type) IsScalar() bool {
	_, ok := rank[t.Kind]
	return ok
}

// Equal reports structural equality between t and u.
func (t Type) Equal(u Type) bool {
	if t.Kind != u.Kind {
		return false
	}
	if t.Kind != Array {
		return true
	}
	if t.Elem != u.Elem || len(t.Dims) != len(u.Dims) {
		return false
	}
	for i, d := range t.Dims {
		if u.Dims[i] != d {
			return false
		}
	}
	return true
}

// Widens reports whether t can be implicitly widened to u, i.e. t ≺ u or
// t == u, for scalar types only.
func Widens(t, u Type) bool {
	if !t.IsScalar() || !u.IsScalar() {
		return t.Equal(u)
	}
	return rank[t.Kind] <= rank[u.Kind]
}

// Narrows reports whether converting t to u would lose information, i.e.
// t ≻ u under the widening order. Both must be scalar.
func Narrows(t, u Type) bool {
	if !t.IsScalar() || !u.IsScalar() {
		return false
	}
	return rank[t.Kind] > rank[u.Kind]
}

// Wider returns whichever of t, u ranks higher in the widening order. Both
// must be scalar; Wider panics otherwise, since callers are expected to have
// already checked IsScalar as part of expression type-checking.
func Wider(t, u Type) Type {
	if !t.IsScalar() || !u.IsScalar() {
		panic("types: Wider called on non-scalar type")
	}
	if rank[u.Kind] > rank[t.Kind] {
		return u
	}
	return t
}

// String renders t the way diagnostics and the -vb AST dump print it.
func (t Type) String() string {
	switch t.Kind {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Void:
		return "void"
	case Array:
		dims := make([]string, len(t.Dims))
		for i, d := range t.Dims {
			dims[i] = fmt.Sprintf("[%d]", d)
		}
		return fmt.Sprintf("%s%s", elemName(t.Elem), strings.Join(dims, ""))
	default:
		return "<invalid type>"
	}
}

func elemName(k Kind) string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "<invalid elem>"
	}
}

// MaxArrayDims is the hard limit on array dimensionality; parsing 4+ dims is
// a parse-level error (spec invariant 5).
const MaxArrayDims = 3

// SymbolKind differentiates what a Symbol names.
type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymParam
	SymFunc
	SymExtern
)

// Symbol is a resolved declaration: a variable, parameter, function
// definition or extern declaration. Every Ident node is memoized to
// exactly one Symbol at its use-site (spec invariant 4).
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Type   Type   // variable/parameter type, or function/extern return type
	Params []Type // function/extern parameter types; nil for variables
}

// IsFunction reports whether sym names a function or extern declaration.
func (s *Symbol) IsFunction() bool {
	return s.Kind == SymFunc || s.Kind == SymExtern
}
