// Package frontend implements MiniC's lexer, recursive-descent parser and
// abstract syntax tree.
//
// The AST follows a single tagged-variant Node type — one Kind, a Span, an
// untyped Data payload and a Children slice — rather than a hierarchy of
// per-construct Go types. This mirrors the reference compiler's ir.Node and
// is the shape spec.md's own design notes recommend: "a single Expr variant
// bearing kind and ty is preferable to parallel class hierarchies".
package frontend

import (
	"fmt"

	"minicc/src/diag"
	"minicc/src/types"
)

// NodeKind tags the variant a Node represents.
type NodeKind int

const (
	// Program / top level.
	NProgram NodeKind = iota
	NGlobalVar
	NExternDecl
	NFuncDef
	NParam

	// Statements.
	NBlock
	NExprStmt
	NAssign
	NIf
	NWhile
	NReturn
	NEmpty
	NLocalDecl

	// Expressions.
	NIntLit
	NFloatLit
	NBoolLit
	NIdent
	NIndex
	NCall
	NUnary
	NBinary
	NCoerce
)

var nodeKindNames = [...]string{
	NProgram:    "Program",
	NGlobalVar:  "GlobalVar",
	NExternDecl: "ExternDecl",
	NFuncDef:    "FuncDef",
	NParam:      "Param",
	NBlock:      "Block",
	NExprStmt:   "ExprStmt",
	NAssign:     "Assign",
	NIf:         "If",
	NWhile:      "While",
	NReturn:     "Return",
	NEmpty:      "Empty",
	NLocalDecl:  "LocalDecl",
	NIntLit:     "IntLit",
	NFloatLit:   "FloatLit",
	NBoolLit:    "BoolLit",
	NIdent:      "Ident",
	NIndex:      "Index",
	NCall:       "Call",
	NUnary:      "Unary",
	NBinary:     "Binary",
	NCoerce:     "Coerce",
}

// String renders the node kind's name, used by Node.Print and diagnostics.
func (k NodeKind) String() string {
	if int(k) < 0 || int(k) >= len(nodeKindNames) {
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
	return nodeKindNames[k]
}

// CoerceKind differentiates the four coercions the checker can insert.
type CoerceKind int

const (
	IntToFloat  CoerceKind = iota // widen
	BoolToInt                     // widen
	IntToBool                     // explicit Boolean context
	FloatToBool                   // explicit Boolean context
)

func (k CoerceKind) String() string {
	switch k {
	case IntToFloat:
		return "int->float"
	case BoolToInt:
		return "bool->int"
	case IntToBool:
		return "int->bool"
	case FloatToBool:
		return "float->bool"
	default:
		return "?->?"
	}
}

// Node is the single AST node type for both statements and expressions.
//
// Data carries kind-specific payload:
//
//	NIntLit      int32
//	NFloatLit    float32
//	NIdent       string (name)      also used for NGlobalVar/NExternDecl/NFuncDef/NParam/NLocalDecl name
//	NCall        string (callee name)
//	NUnary       string (operator: "-" or "!")
//	NBinary      string (operator)
//	NCoerce      CoerceKind
//
// Ty and Sym are populated by the type checker (component F) and are the
// only state that subsequent phases (the IR builder) consult; invariant 1
// of spec.md §3 requires Ty to be set on every expression node once F has
// run, with no implicit conversion reaching codegen.
type Node struct {
	Kind     NodeKind
	Span     diag.Span
	Data     interface{}
	Ty       types.Type
	Sym      *types.Symbol
	Children []*Node
}

// NewNode constructs a Node with the given children already attached.
func NewNode(kind NodeKind, span diag.Span, data interface{}, children ...*Node) *Node {
	return &Node{Kind: kind, Span: span, Data: data, Children: children}
}

// Name returns the Data payload as a string, used for all the node kinds
// that carry an identifier (declarations, params, calls, operators).
func (n *Node) Name() string {
	s, _ := n.Data.(string)
	return s
}

// Print recursively prints the subtree rooted at n, indenting one level per
// recursive call, in the style of the reference compiler's Node.Print.
func (n *Node) Print(depth int) {
	if n == nil {
		fmt.Printf("%*s---> NIL\n", depth*2, "")
		return
	}
	label := n.Kind.String()
	if n.Data != nil {
		label = fmt.Sprintf("%s [%v]", label, n.Data)
	}
	if n.Ty.Kind != types.Invalid {
		label = fmt.Sprintf("%s : %s", label, n.Ty)
	}
	fmt.Printf("%*s%s\n", depth*2, "", label)
	for _, c := range n.Children {
		c.Print(depth + 1)
	}
}
