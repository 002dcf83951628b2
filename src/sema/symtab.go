// Package sema implements MiniC's symbol table (component E) and two-pass
// type checker (component F).
package sema

import "minicc/src/types"

// scope is one frame of block-scoped bindings. Frames are pushed and
// popped as a plain slice-backed stack; unlike the reference compiler's
// util.Stack this is not mutex-guarded, since spec.md §5 requires a
// single-threaded pipeline with no concurrent access to the symbol table.
type scope struct {
	vars map[string]*types.Symbol
}

func newScope() *scope {
	return &scope{vars: make(map[string]*types.Symbol)}
}

// SymbolTable is MiniC's scope stack. Functions and externs live in a
// separate global namespace: spec.md §4.E requires function names to be
// visible everywhere regardless of block nesting, and to never collide
// with variable scoping rules.
type SymbolTable struct {
	globals map[string]*types.Symbol
	frames  []*scope
}

// NewSymbolTable returns an empty symbol table with no open scopes.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{globals: make(map[string]*types.Symbol)}
}

// EnterScope pushes a fresh, empty block scope.
func (t *SymbolTable) EnterScope() {
	t.frames = append(t.frames, newScope())
}

// LeaveScope pops the innermost block scope. Calling it with no open scope
// is a programming error in the checker and panics.
func (t *SymbolTable) LeaveScope() {
	if len(t.frames) == 0 {
		panic("sema: LeaveScope called with no open scope")
	}
	t.frames = t.frames[:len(t.frames)-1]
}

// DeclareGlobal binds name in the global namespace (used for both global
// variables and function/extern signatures). It reports false if name is
// already bound at global scope.
func (t *SymbolTable) DeclareGlobal(sym *types.Symbol) bool {
	if _, exists := t.globals[sym.Name]; exists {
		return false
	}
	t.globals[sym.Name] = sym
	return true
}

// DeclareLocal binds name in the innermost open scope. It reports false if
// name is already bound in that same scope — shadowing an outer scope's
// binding is permitted, per spec.md §4.E's nested-block example, but
// redeclaring within one block is not.
func (t *SymbolTable) DeclareLocal(sym *types.Symbol) bool {
	cur := t.frames[len(t.frames)-1]
	if _, exists := cur.vars[sym.Name]; exists {
		return false
	}
	cur.vars[sym.Name] = sym
	return true
}

// Lookup resolves name by searching block scopes from innermost to
// outermost, falling back to the global namespace.
func (t *SymbolTable) Lookup(name string) (*types.Symbol, bool) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if sym, ok := t.frames[i].vars[name]; ok {
			return sym, true
		}
	}
	sym, ok := t.globals[name]
	return sym, ok
}

// LookupGlobal resolves name in the global namespace only, used to look up
// function signatures at call sites regardless of local shadowing.
func (t *SymbolTable) LookupGlobal(name string) (*types.Symbol, bool) {
	sym, ok := t.globals[name]
	return sym, ok
}
