package sema

import (
	"minicc/src/diag"
	"minicc/src/frontend"
	"minicc/src/types"
)

// checker drives the two-pass walk described by spec.md §4.F: pass 1
// records every global variable, extern and function signature so forward
// references and mutual recursion resolve regardless of declaration order;
// pass 2 walks each function body and type-checks it against the table
// pass 1 built.
type checker struct {
	syms *SymbolTable
	sink *diag.Sink

	curReturn types.Type
}

// Check runs both passes over prog, decorating every expression Node with
// its resolved Ty (and Sym, where applicable) and inserting explicit Coerce
// nodes wherever an implicit widening occurs. It returns the populated
// symbol table, mainly useful to tests and to the IR builder for global
// layout information.
func Check(prog *frontend.Node, sink *diag.Sink) *SymbolTable {
	c := &checker{syms: NewSymbolTable(), sink: sink}
	c.pass1(prog)
	c.pass2(prog)
	return c.syms
}

func (c *checker) errorf(n *frontend.Node, kind diag.Kind, format string, args ...interface{}) {
	c.sink.Reportf(kind, n.Span, format, args...)
}

// --- pass 1: declare globals, externs and function signatures ---

func (c *checker) pass1(prog *frontend.Node) {
	for _, n := range prog.Children {
		switch n.Kind {
		case frontend.NGlobalVar:
			c.declareGlobalVar(n)
		case frontend.NExternDecl:
			c.declareSignature(n, types.SymExtern, n.Children)
		case frontend.NFuncDef:
			params := n.Children[:len(n.Children)-1]
			c.declareSignature(n, types.SymFunc, params)
		}
	}
}

func (c *checker) declareGlobalVar(n *frontend.Node) {
	if n.Ty.Kind == types.Void {
		c.errorf(n, diag.VoidVariable, "global variable %q cannot have type void", n.Name())
	}
	sym := &types.Symbol{Name: n.Name(), Kind: types.SymVar, Type: n.Ty}
	n.Sym = sym
	if !c.syms.DeclareGlobal(sym) {
		c.errorf(n, diag.Duplicate, "%q is already declared at global scope", n.Name())
	}
}

func (c *checker) declareSignature(n *frontend.Node, kind types.SymbolKind, params []*frontend.Node) {
	seen := make(map[string]bool, len(params))
	paramTypes := make([]types.Type, len(params))
	for i, p := range params {
		if p.Ty.Kind == types.Void {
			c.errorf(p, diag.VoidVariable, "parameter %q cannot have type void", p.Name())
		}
		if seen[p.Name()] {
			c.errorf(p, diag.ParamNameCollision, "duplicate parameter name %q", p.Name())
		}
		seen[p.Name()] = true
		paramTypes[i] = p.Ty
	}
	sym := &types.Symbol{Name: n.Name(), Kind: kind, Type: n.Ty, Params: paramTypes}
	n.Sym = sym
	if !c.syms.DeclareGlobal(sym) {
		c.errorf(n, diag.Duplicate, "%q is already declared at global scope", n.Name())
	}
}

// --- pass 2: check function bodies ---

func (c *checker) pass2(prog *frontend.Node) {
	for _, n := range prog.Children {
		if n.Kind != frontend.NFuncDef {
			continue
		}
		c.checkFuncDef(n)
	}
}

func (c *checker) checkFuncDef(n *frontend.Node) {
	params := n.Children[:len(n.Children)-1]
	body := n.Children[len(n.Children)-1]

	c.curReturn = n.Ty
	c.syms.EnterScope()
	for _, p := range params {
		sym := &types.Symbol{Name: p.Name(), Kind: types.SymParam, Type: p.Ty}
		p.Sym = sym
		// Collisions were already reported in pass1; silently keep the
		// first binding here so pass 2 can still resolve uses of it.
		if _, exists := c.syms.frames[len(c.syms.frames)-1].vars[p.Name()]; !exists {
			c.syms.DeclareLocal(sym)
		}
	}

	c.checkStmt(body)

	if n.Ty.Kind != types.Void && !returnsOnAllPaths(body) {
		n.Children[len(n.Children)-1] = synthesizeTerminalReturn(body, n.Ty)
	}

	c.syms.LeaveScope()
}

// synthesizeTerminalReturn appends "return <zero of ty>" to the end of
// body, covering the fall-off-the-end case the checker does not treat as
// an error (spec.md §9 resolution 2 generalized: a function is only
// required to return a value on paths that are reachable without it).
func synthesizeTerminalReturn(body *frontend.Node, ty types.Type) *frontend.Node {
	var zero *frontend.Node
	switch ty.Kind {
	case types.Float:
		zero = frontend.NewNode(frontend.NFloatLit, body.Span, float32(0))
	case types.Bool:
		zero = frontend.NewNode(frontend.NBoolLit, body.Span, false)
	default:
		zero = frontend.NewNode(frontend.NIntLit, body.Span, int32(0))
	}
	zero.Ty = ty
	ret := frontend.NewNode(frontend.NReturn, body.Span, nil, zero)
	body.Children = append(body.Children, ret)
	return body
}

// returnsOnAllPaths performs a conservative reachability check: it reports
// true only when every control-flow path through n is guaranteed to hit a
// return statement. While loops are always treated as not guaranteeing a
// return, since the checker does not attempt to prove loop conditions
// execute at least once.
func returnsOnAllPaths(n *frontend.Node) bool {
	switch n.Kind {
	case frontend.NReturn:
		return true
	case frontend.NBlock:
		for _, c := range n.Children {
			if returnsOnAllPaths(c) {
				return true
			}
		}
		return false
	case frontend.NIf:
		if len(n.Children) < 3 {
			return false
		}
		return returnsOnAllPaths(n.Children[1]) && returnsOnAllPaths(n.Children[2])
	default:
		return false
	}
}

// --- statements ---

func (c *checker) checkStmt(n *frontend.Node) {
	switch n.Kind {
	case frontend.NBlock:
		c.syms.EnterScope()
		for _, child := range n.Children {
			c.checkBlockItem(child)
		}
		c.syms.LeaveScope()
	default:
		c.checkBlockItem(n)
	}
}

func (c *checker) checkBlockItem(n *frontend.Node) {
	switch n.Kind {
	case frontend.NLocalDecl:
		c.checkLocalDecl(n)
	case frontend.NBlock, frontend.NIf, frontend.NWhile, frontend.NReturn, frontend.NExprStmt, frontend.NAssign, frontend.NEmpty:
		c.checkOtherStmt(n)
	}
}

func (c *checker) checkLocalDecl(n *frontend.Node) {
	if n.Ty.Kind == types.Void {
		c.errorf(n, diag.VoidVariable, "local variable %q cannot have type void", n.Name())
	}
	sym := &types.Symbol{Name: n.Name(), Kind: types.SymVar, Type: n.Ty}
	n.Sym = sym
	if !c.syms.DeclareLocal(sym) {
		c.errorf(n, diag.Duplicate, "%q is already declared in this scope", n.Name())
	}
}

func (c *checker) checkOtherStmt(n *frontend.Node) {
	switch n.Kind {
	case frontend.NBlock:
		c.checkStmt(n)
	case frontend.NExprStmt:
		n.Children[0] = c.checkExpr(n.Children[0])
	case frontend.NAssign:
		c.checkAssign(n)
	case frontend.NIf:
		n.Children[0] = c.coerceToBool(c.checkExpr(n.Children[0]))
		c.checkStmt(n.Children[1])
		if len(n.Children) == 3 {
			c.checkStmt(n.Children[2])
		}
	case frontend.NWhile:
		n.Children[0] = c.coerceToBool(c.checkExpr(n.Children[0]))
		c.checkStmt(n.Children[1])
	case frontend.NReturn:
		c.checkReturn(n)
	case frontend.NEmpty:
	}
}

func (c *checker) checkAssign(n *frontend.Node) {
	lhs := c.checkExpr(n.Children[0])
	rhs := c.checkExpr(n.Children[1])
	n.Children[0] = lhs

	if lhs.Kind != frontend.NIdent && lhs.Kind != frontend.NIndex {
		c.errorf(n, diag.ExpectedLValue, "left-hand side of assignment must be an identifier or array element")
		n.Children[1] = rhs
		n.Ty = lhs.Ty
		return
	}

	n.Children[1] = c.coerceAssignable(rhs, lhs.Ty, n)
	n.Ty = lhs.Ty
}

func (c *checker) checkReturn(n *frontend.Node) {
	if c.curReturn.Kind == types.Void {
		if len(n.Children) > 0 {
			c.errorf(n, diag.VoidReturnsValue, "void function must not return a value")
		}
		return
	}
	if len(n.Children) == 0 {
		c.errorf(n, diag.MissingReturnValue, "function must return a value of type %s", c.curReturn)
		return
	}
	n.Children[0] = c.coerceAssignable(c.checkExpr(n.Children[0]), c.curReturn, n)
}

// coerceAssignable enforces spec.md's assignment/return compatibility
// rule: widening is inserted silently, narrowing is always an error, and
// anything else is a flat type mismatch.
func (c *checker) coerceAssignable(val *frontend.Node, target types.Type, at *frontend.Node) *frontend.Node {
	if val.Ty.Equal(target) {
		return val
	}
	if !val.Ty.IsScalar() || !target.IsScalar() {
		c.errorf(at, diag.TypeMismatch, "cannot convert %s to %s", val.Ty, target)
		return val
	}
	if types.Widens(val.Ty, target) {
		return c.wrapCoerce(val, target)
	}
	c.errorf(at, diag.NarrowingError, "narrowing conversion from %s to %s is not allowed", val.Ty, target)
	return val
}

// --- expressions ---

// checkExpr resolves n's type in place and returns n. Coerce nodes needed by
// n's operands are spliced into n's own Children; a Coerce around n itself is
// added by the caller that knows the target type.
func (c *checker) checkExpr(n *frontend.Node) *frontend.Node {
	switch n.Kind {
	case frontend.NIntLit:
		n.Ty = types.TInt
	case frontend.NFloatLit:
		n.Ty = types.TFloat
	case frontend.NBoolLit:
		n.Ty = types.TBool
	case frontend.NIdent:
		c.checkIdent(n)
	case frontend.NIndex:
		c.checkIndex(n)
	case frontend.NCall:
		c.checkCall(n)
	case frontend.NUnary:
		c.checkUnary(n)
	case frontend.NBinary:
		c.checkBinary(n)
	default:
		c.errorf(n, diag.InternalError, "unexpected node kind %s in expression position", n.Kind)
	}
	return n
}

func (c *checker) checkIdent(n *frontend.Node) {
	sym, ok := c.syms.Lookup(n.Name())
	if !ok {
		c.errorf(n, diag.Undefined, "undefined identifier %q", n.Name())
		n.Ty = types.TInt
		return
	}
	if sym.IsFunction() {
		c.errorf(n, diag.TypeMismatch, "%q is a function, not a value", n.Name())
		n.Ty = types.TInt
		return
	}
	n.Sym = sym
	n.Ty = sym.Type
}

func (c *checker) checkIndex(n *frontend.Node) {
	sym, ok := c.syms.Lookup(n.Name())
	if !ok {
		c.errorf(n, diag.Undefined, "undefined identifier %q", n.Name())
		n.Ty = types.TInt
		return
	}
	if sym.Type.Kind != types.Array {
		c.errorf(n, diag.NotAnArray, "%q is not an array", n.Name())
		n.Ty = types.TInt
		return
	}
	if len(n.Children) != len(sym.Type.Dims) {
		c.errorf(n, diag.ArrayDimMismatch, "%q has %d dimensions, got %d indices", n.Name(), len(sym.Type.Dims), len(n.Children))
	}
	for i, idx := range n.Children {
		checked := c.checkExpr(idx)
		switch checked.Ty.Kind {
		case types.Int:
			n.Children[i] = checked
		case types.Bool:
			n.Children[i] = c.wrapCoerce(checked, types.TInt)
		default:
			c.errorf(checked, diag.NonIntegerIndex, "array index must be an integer, got %s", checked.Ty)
			n.Children[i] = checked
		}
	}
	n.Sym = sym
	n.Ty = types.Type{Kind: sym.Type.Elem}
}

func (c *checker) checkCall(n *frontend.Node) {
	sym, ok := c.syms.LookupGlobal(n.Name())
	if !ok {
		c.errorf(n, diag.Undefined, "undefined function %q", n.Name())
		n.Ty = types.TInt
		return
	}
	if !sym.IsFunction() {
		c.errorf(n, diag.NotCallable, "%q is not callable", n.Name())
		n.Ty = types.TInt
		return
	}
	if len(n.Children) != len(sym.Params) {
		c.errorf(n, diag.ArgCountMismatch, "%q expects %d arguments, got %d", n.Name(), len(sym.Params), len(n.Children))
	}
	limit := len(n.Children)
	if len(sym.Params) < limit {
		limit = len(sym.Params)
	}
	for i := 0; i < limit; i++ {
		arg := c.checkExpr(n.Children[i])
		n.Children[i] = c.coerceAssignable(arg, sym.Params[i], n)
	}
	for i := limit; i < len(n.Children); i++ {
		n.Children[i] = c.checkExpr(n.Children[i])
	}
	n.Sym = sym
	n.Ty = sym.Type
}

func (c *checker) checkUnary(n *frontend.Node) {
	operand := c.checkExpr(n.Children[0])
	switch n.Name() {
	case "-":
		if operand.Ty.Kind != types.Int && operand.Ty.Kind != types.Float {
			c.errorf(n, diag.InvalidUnaryOperand, "unary - requires an int or float operand, got %s", operand.Ty)
			n.Ty = types.TInt
			n.Children[0] = operand
			return
		}
		n.Ty = operand.Ty
		n.Children[0] = operand
	case "!":
		n.Children[0] = c.coerceToBool(operand)
		n.Ty = types.TBool
	}
}

func (c *checker) checkBinary(n *frontend.Node) {
	lhs := c.checkExpr(n.Children[0])
	rhs := c.checkExpr(n.Children[1])

	switch n.Name() {
	case "&&", "||":
		n.Children[0] = c.coerceToBool(lhs)
		n.Children[1] = c.coerceToBool(rhs)
		n.Ty = types.TBool
	case "%":
		if lhs.Ty.Kind != types.Int {
			c.errorf(lhs, diag.NonIntegerModulo, "modulo requires int operands, got %s", lhs.Ty)
		}
		if rhs.Ty.Kind != types.Int {
			c.errorf(rhs, diag.NonIntegerModulo, "modulo requires int operands, got %s", rhs.Ty)
		}
		n.Children[0], n.Children[1] = lhs, rhs
		n.Ty = types.TInt
	case "==", "!=":
		common, a, b, ok := c.widenPair(lhs, rhs, n)
		n.Children[0], n.Children[1] = a, b
		_ = common
		n.Ty = types.TBool
		if !ok {
			return
		}
	case "<", "<=", ">", ">=":
		a, b := c.requireNumeric(lhs, rhs, n)
		common, a, b, ok := c.widenPair(a, b, n)
		n.Children[0], n.Children[1] = a, b
		_ = common
		n.Ty = types.TBool
		if !ok {
			return
		}
	default: // "+", "-", "*", "/"
		lhs, rhs = c.requireNumeric(lhs, rhs, n)
		common, a, b, ok := c.widenPair(lhs, rhs, n)
		n.Children[0], n.Children[1] = a, b
		if !ok {
			n.Ty = types.TInt
			return
		}
		n.Ty = common
	}
}

// requireNumeric reports an error if either operand of an arithmetic or
// ordered relational operator is bool, which per the language's widening
// rule is scalar but not numeric. On mismatch it substitutes an int node of
// the same value-less shape so widenPair still has something to work with.
func (c *checker) requireNumeric(a, b *frontend.Node, at *frontend.Node) (*frontend.Node, *frontend.Node) {
	if a.Ty.Kind == types.Bool {
		c.errorf(a, diag.TypeMismatch, "operator %s is not defined on bool, got %s", at.Name(), a.Ty)
		a = coerceNode(a, frontend.BoolToInt, types.TInt)
	}
	if b.Ty.Kind == types.Bool {
		c.errorf(b, diag.TypeMismatch, "operator %s is not defined on bool, got %s", at.Name(), b.Ty)
		b = coerceNode(b, frontend.BoolToInt, types.TInt)
	}
	return a, b
}

// widenPair widens whichever of a, b ranks lower so both share a common
// scalar type, per the bool ≺ int ≺ float order.
func (c *checker) widenPair(a, b *frontend.Node, at *frontend.Node) (types.Type, *frontend.Node, *frontend.Node, bool) {
	if !a.Ty.IsScalar() || !b.Ty.IsScalar() {
		c.errorf(at, diag.TypeMismatch, "operands have incompatible types %s and %s", a.Ty, b.Ty)
		return types.TInt, a, b, false
	}
	if a.Ty.Equal(b.Ty) {
		return a.Ty, a, b, true
	}
	common := types.Wider(a.Ty, b.Ty)
	if !a.Ty.Equal(common) {
		a = c.wrapCoerce(a, common)
	}
	if !b.Ty.Equal(common) {
		b = c.wrapCoerce(b, common)
	}
	return common, a, b, true
}

// wrapCoerce inserts the widening conversion(s) needed to take n from its
// current type to target, composing bool->int and int->float when n must
// cross both steps (bool -> float).
func (c *checker) wrapCoerce(n *frontend.Node, target types.Type) *frontend.Node {
	if n.Ty.Equal(target) {
		return n
	}
	if n.Ty.Kind == types.Bool && target.Kind == types.Int {
		return coerceNode(n, frontend.BoolToInt, types.TInt)
	}
	if n.Ty.Kind == types.Int && target.Kind == types.Float {
		return coerceNode(n, frontend.IntToFloat, types.TFloat)
	}
	if n.Ty.Kind == types.Bool && target.Kind == types.Float {
		return coerceNode(coerceNode(n, frontend.BoolToInt, types.TInt), frontend.IntToFloat, types.TFloat)
	}
	return n
}

// coerceToBool inserts the narrowing conversion permitted only in Boolean
// contexts (if/while conditions and !, && and || operands), per spec.md's
// asymmetric widening rules.
func (c *checker) coerceToBool(n *frontend.Node) *frontend.Node {
	switch n.Ty.Kind {
	case types.Bool:
		return n
	case types.Int:
		return coerceNode(n, frontend.IntToBool, types.TBool)
	case types.Float:
		return coerceNode(n, frontend.FloatToBool, types.TBool)
	default:
		c.errorf(n, diag.TypeMismatch, "expected a boolean-context expression, got %s", n.Ty)
		n.Ty = types.TBool
		return n
	}
}

func coerceNode(n *frontend.Node, kind frontend.CoerceKind, ty types.Type) *frontend.Node {
	c := frontend.NewNode(frontend.NCoerce, n.Span, kind, n)
	c.Ty = ty
	return c
}
