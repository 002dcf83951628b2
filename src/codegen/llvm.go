// Package codegen lowers a type-checked MiniC syntax tree to textual LLVM
// IR (component G). It is built on the same tinygo.org/x/go-llvm
// Context/Module/Builder API the reference compiler's LLVM backend uses,
// rather than hand-formatting IR text, but drives it toward a textual
// Module.String() result instead of the reference's target-machine object
// emission path — MiniC never produces native code.
//
// Every alloca, load and basic block is given the same explicit,
// non-unique name the source identifier or control construct suggests
// ("i", "then", "loop", ...); LLVM's own builder uniquifies on collision by
// appending a numeric suffix, which is what gives a second load of the
// same variable or a second while loop in a function its "i1" or "loop7"
// style name in the emitted text.
package codegen

import (
	"tinygo.org/x/go-llvm"

	"minicc/src/frontend"
	"minicc/src/types"
)

// Generator holds the LLVM context for one compilation unit.
type Generator struct {
	ctx llvm.Context
	mod llvm.Module
	b   llvm.Builder

	globals map[string]llvm.Value
	locals  []map[string]binding
	curFunc llvm.Value
}

// binding is the address of a local or parameter slot. arrayParam marks an
// array parameter: its slot holds the incoming decayed pointer itself,
// rather than being the array's own address the way a local/global array's
// alloca or global directly is, so a use must load the slot before it has
// an address to GEP through.
type binding struct {
	addr       llvm.Value
	arrayParam bool
}

// Gen lowers prog (already type-checked by sema.Check, with every
// expression's Ty populated and all widenings made explicit as Coerce
// nodes) to a textual LLVM module named moduleName.
func Gen(prog *frontend.Node, moduleName string) string {
	g := &Generator{globals: make(map[string]llvm.Value)}
	g.ctx = llvm.NewContext()
	defer g.ctx.Dispose()
	g.mod = g.ctx.NewModule(moduleName)
	defer g.mod.Dispose()
	g.b = g.ctx.NewBuilder()
	defer g.b.Dispose()

	for _, n := range prog.Children {
		switch n.Kind {
		case frontend.NGlobalVar:
			g.declareGlobal(n)
		case frontend.NExternDecl:
			g.declareFunc(n, n.Children)
		case frontend.NFuncDef:
			g.declareFunc(n, n.Children[:len(n.Children)-1])
		}
	}

	for _, n := range prog.Children {
		if n.Kind == frontend.NFuncDef {
			g.genFuncBody(n)
		}
	}

	return g.mod.String()
}

// --- type and constant lowering ---

func (g *Generator) llvmType(t types.Type) llvm.Type {
	switch t.Kind {
	case types.Bool:
		return g.ctx.Int1Type()
	case types.Int:
		return g.ctx.Int32Type()
	case types.Float:
		return g.ctx.FloatType()
	case types.Void:
		return g.ctx.VoidType()
	case types.Array:
		elem := g.llvmType(types.Type{Kind: t.Elem})
		for i := len(t.Dims) - 1; i >= 0; i-- {
			elem = llvm.ArrayType(elem, t.Dims[i])
		}
		return elem
	default:
		return g.ctx.Int32Type()
	}
}

// decayedType returns the type an array decays to when passed as a
// parameter: stripping the outermost dimension, the same way C's
// int a[3][4] parameter decays to int (*)[4] and int a[10] decays to int*.
func (g *Generator) decayedType(t types.Type) llvm.Type {
	if len(t.Dims) <= 1 {
		return g.llvmType(types.Type{Kind: t.Elem})
	}
	return g.llvmType(types.Type{Kind: types.Array, Elem: t.Elem, Dims: t.Dims[1:]})
}

// paramLLVMType is the type a parameter is declared with in the function
// signature: array parameters lower to a pointer to the decayed type, every
// other parameter lowers the same as a local of that type would.
func (g *Generator) paramLLVMType(p *frontend.Node) llvm.Type {
	if p.Ty.Kind == types.Array {
		return llvm.PointerType(g.decayedType(p.Ty), 0)
	}
	return g.llvmType(p.Ty)
}

func (g *Generator) zeroValue(t types.Type) llvm.Value {
	switch t.Kind {
	case types.Bool:
		return llvm.ConstInt(g.ctx.Int1Type(), 0, false)
	case types.Float:
		return llvm.ConstFloat(g.ctx.FloatType(), 0)
	case types.Array:
		return llvm.ConstNull(g.llvmType(t))
	default:
		return llvm.ConstInt(g.ctx.Int32Type(), 0, false)
	}
}

// --- declarations ---

func (g *Generator) declareGlobal(n *frontend.Node) {
	glob := llvm.AddGlobal(g.mod, g.llvmType(n.Ty), n.Name())
	glob.SetInitializer(g.zeroValue(n.Ty))
	g.globals[n.Name()] = glob
}

func (g *Generator) declareFunc(n *frontend.Node, params []*frontend.Node) {
	ptypes := make([]llvm.Type, len(params))
	for i, p := range params {
		ptypes[i] = g.paramLLVMType(p)
	}
	ftyp := llvm.FunctionType(g.llvmType(n.Ty), ptypes, false)
	fn := llvm.AddFunction(g.mod, n.Name(), ftyp)
	for i, p := range params {
		fn.Param(i).SetName(p.Name())
	}
	g.globals[n.Name()] = fn
}

// --- function bodies ---

func (g *Generator) genFuncBody(n *frontend.Node) {
	fn := g.globals[n.Name()]
	params := n.Children[:len(n.Children)-1]
	body := n.Children[len(n.Children)-1]

	entry := g.ctx.AddBasicBlock(fn, "entry")
	g.b.SetInsertPointAtEnd(entry)

	g.curFunc = fn
	g.locals = []map[string]binding{{}}
	for i, p := range params {
		param := fn.Param(i)
		alloca := g.b.CreateAlloca(param.Type(), p.Name())
		g.b.CreateStore(param, alloca)
		g.declareLocal(p.Name(), binding{addr: alloca, arrayParam: p.Ty.Kind == types.Array})
	}

	if !g.genBlock(body) {
		if n.Ty.Kind == types.Void {
			g.b.CreateRetVoid()
		}
	}
	g.locals = nil
}

func (g *Generator) pushScope() { g.locals = append(g.locals, map[string]binding{}) }
func (g *Generator) popScope()  { g.locals = g.locals[:len(g.locals)-1] }

func (g *Generator) declareLocal(name string, b binding) {
	g.locals[len(g.locals)-1][name] = b
}

func (g *Generator) lookup(name string) binding {
	for i := len(g.locals) - 1; i >= 0; i-- {
		if v, ok := g.locals[i][name]; ok {
			return v
		}
	}
	return binding{addr: g.globals[name]}
}

// --- statements ---

// genBlock emits n's statements in its own scope and reports whether it
// ended in a terminator instruction, so callers (genIf, genWhile,
// genFuncBody) know whether to add a fallthrough branch of their own.
func (g *Generator) genBlock(n *frontend.Node) bool {
	g.pushScope()
	defer g.popScope()
	terminated := false
	for _, c := range n.Children {
		if terminated {
			break
		}
		terminated = g.genStmt(c)
	}
	return terminated
}

func (g *Generator) genStmt(n *frontend.Node) bool {
	switch n.Kind {
	case frontend.NBlock:
		return g.genBlock(n)
	case frontend.NLocalDecl:
		alloca := g.b.CreateAlloca(g.llvmType(n.Ty), n.Name())
		g.declareLocal(n.Name(), binding{addr: alloca})
		return false
	case frontend.NExprStmt:
		g.genExpr(n.Children[0])
		return false
	case frontend.NAssign:
		g.genAssign(n)
		return false
	case frontend.NIf:
		return g.genIf(n)
	case frontend.NWhile:
		return g.genWhile(n)
	case frontend.NReturn:
		g.genReturn(n)
		return true
	default: // NEmpty
		return false
	}
}

func (g *Generator) genAssign(n *frontend.Node) {
	val := g.genExpr(n.Children[1])
	ptr := g.lvaluePtr(n.Children[0])
	g.b.CreateStore(val, ptr)
}

// lvaluePtr returns the address an identifier or array-element expression
// names, for use on the left of an assignment or as the source of a load.
func (g *Generator) lvaluePtr(n *frontend.Node) llvm.Value {
	switch n.Kind {
	case frontend.NIdent:
		return g.lookup(n.Name()).addr
	case frontend.NIndex:
		b := g.lookup(n.Name())
		var base llvm.Value
		indices := make([]llvm.Value, 0, len(n.Children)+1)
		if b.arrayParam {
			// b.addr holds the decayed pointer itself; load it before
			// indexing, and skip the leading 0 a direct aggregate address
			// needs, since the pointer already refers to the array data.
			base = g.b.CreateLoad(b.addr, n.Name())
		} else {
			base = b.addr
			indices = append(indices, llvm.ConstInt(g.ctx.Int32Type(), 0, false))
		}
		for _, idx := range n.Children {
			indices = append(indices, g.genExpr(idx))
		}
		return g.b.CreateGEP(base, indices, n.Name())
	default:
		return llvm.Value{}
	}
}

func (g *Generator) genReturn(n *frontend.Node) {
	if len(n.Children) == 0 {
		g.b.CreateRetVoid()
		return
	}
	g.b.CreateRet(g.genExpr(n.Children[0]))
}

func (g *Generator) genIf(n *frontend.Node) bool {
	cond := g.genExpr(n.Children[0])
	fn := g.curFunc
	thenBB := g.ctx.AddBasicBlock(fn, "then")

	if len(n.Children) == 2 {
		contBB := g.ctx.AddBasicBlock(fn, "ifcont")
		g.b.CreateCondBr(cond, thenBB, contBB)

		g.b.SetInsertPointAtEnd(thenBB)
		if !g.genStmt(n.Children[1]) {
			g.b.CreateBr(contBB)
		}
		g.b.SetInsertPointAtEnd(contBB)
		return false
	}

	elseBB := g.ctx.AddBasicBlock(fn, "else")
	g.b.CreateCondBr(cond, thenBB, elseBB)

	g.b.SetInsertPointAtEnd(thenBB)
	thenTerm := g.genStmt(n.Children[1])
	var contBB llvm.BasicBlock
	haveCont := false
	if !thenTerm {
		contBB = g.ctx.AddBasicBlock(fn, "ifcont")
		haveCont = true
		g.b.CreateBr(contBB)
	}

	g.b.SetInsertPointAtEnd(elseBB)
	elseTerm := g.genStmt(n.Children[2])
	if !elseTerm {
		if !haveCont {
			contBB = g.ctx.AddBasicBlock(fn, "ifcont")
			haveCont = true
		}
		g.b.CreateBr(contBB)
	}

	if !haveCont {
		return true
	}
	g.b.SetInsertPointAtEnd(contBB)
	return false
}

func (g *Generator) genWhile(n *frontend.Node) bool {
	fn := g.curFunc
	headBB := g.ctx.AddBasicBlock(fn, "loop")
	bodyBB := g.ctx.AddBasicBlock(fn, "body")
	afterBB := g.ctx.AddBasicBlock(fn, "afterloop")

	g.b.CreateBr(headBB)
	g.b.SetInsertPointAtEnd(headBB)
	cond := g.genExpr(n.Children[0])
	g.b.CreateCondBr(cond, bodyBB, afterBB)

	g.b.SetInsertPointAtEnd(bodyBB)
	if !g.genStmt(n.Children[1]) {
		g.b.CreateBr(headBB)
	}

	g.b.SetInsertPointAtEnd(afterBB)
	return false
}

// --- expressions ---

func (g *Generator) genExpr(n *frontend.Node) llvm.Value {
	switch n.Kind {
	case frontend.NIntLit:
		return llvm.ConstInt(g.ctx.Int32Type(), uint64(uint32(n.Data.(int32))), false)
	case frontend.NFloatLit:
		return llvm.ConstFloat(g.ctx.FloatType(), float64(n.Data.(float32)))
	case frontend.NBoolLit:
		v := uint64(0)
		if n.Data.(bool) {
			v = 1
		}
		return llvm.ConstInt(g.ctx.Int1Type(), v, false)
	case frontend.NIdent:
		b := g.lookup(n.Name())
		if n.Ty.Kind == types.Array {
			if b.arrayParam {
				return g.b.CreateLoad(b.addr, n.Name())
			}
			return b.addr
		}
		return g.b.CreateLoad(b.addr, n.Name())
	case frontend.NIndex:
		return g.b.CreateLoad(g.lvaluePtr(n), n.Name())
	case frontend.NCall:
		return g.genCall(n)
	case frontend.NUnary:
		return g.genUnary(n)
	case frontend.NBinary:
		return g.genBinary(n)
	case frontend.NCoerce:
		return g.genCoerce(n)
	default:
		return llvm.Value{}
	}
}

func (g *Generator) genCall(n *frontend.Node) llvm.Value {
	fn := g.globals[n.Name()]
	args := make([]llvm.Value, len(n.Children))
	for i, c := range n.Children {
		args[i] = g.genExpr(c)
	}
	name := n.Name()
	if n.Ty.Kind == types.Void {
		name = ""
	}
	return g.b.CreateCall(fn, args, name)
}

func (g *Generator) genUnary(n *frontend.Node) llvm.Value {
	operand := g.genExpr(n.Children[0])
	switch n.Name() {
	case "-":
		if n.Ty.Kind == types.Float {
			return g.b.CreateFNeg(operand, "")
		}
		return g.b.CreateNeg(operand, "")
	default: // "!"
		return g.b.CreateNot(operand, "")
	}
}

func (g *Generator) genCoerce(n *frontend.Node) llvm.Value {
	inner := g.genExpr(n.Children[0])
	switch n.Data.(frontend.CoerceKind) {
	case frontend.IntToFloat:
		return g.b.CreateSIToFP(inner, g.ctx.FloatType(), "")
	case frontend.BoolToInt:
		return g.b.CreateZExt(inner, g.ctx.Int32Type(), "")
	case frontend.IntToBool:
		return g.b.CreateICmp(llvm.IntNE, inner, llvm.ConstInt(g.ctx.Int32Type(), 0, false), "")
	case frontend.FloatToBool:
		return g.b.CreateFCmp(llvm.FloatONE, inner, llvm.ConstFloat(g.ctx.FloatType(), 0), "")
	default:
		return inner
	}
}

func (g *Generator) genBinary(n *frontend.Node) llvm.Value {
	op := n.Name()
	if op == "&&" || op == "||" {
		return g.genShortCircuit(n, op)
	}

	lhs := g.genExpr(n.Children[0])
	rhs := g.genExpr(n.Children[1])
	operandIsFloat := n.Children[0].Ty.Kind == types.Float

	switch op {
	case "+":
		if operandIsFloat {
			return g.b.CreateFAdd(lhs, rhs, "")
		}
		return g.b.CreateAdd(lhs, rhs, "")
	case "-":
		if operandIsFloat {
			return g.b.CreateFSub(lhs, rhs, "")
		}
		return g.b.CreateSub(lhs, rhs, "")
	case "*":
		if operandIsFloat {
			return g.b.CreateFMul(lhs, rhs, "")
		}
		return g.b.CreateMul(lhs, rhs, "")
	case "/":
		if operandIsFloat {
			return g.b.CreateFDiv(lhs, rhs, "")
		}
		return g.b.CreateSDiv(lhs, rhs, "")
	case "%":
		return g.b.CreateSRem(lhs, rhs, "")
	default: // relational
		if operandIsFloat {
			return g.b.CreateFCmp(floatPredicate(op), lhs, rhs, "")
		}
		return g.b.CreateICmp(intPredicate(op), lhs, rhs, "")
	}
}

// genShortCircuit lowers && and || with real control flow so the right
// operand is not evaluated once the left operand already decides the
// result.
func (g *Generator) genShortCircuit(n *frontend.Node, op string) llvm.Value {
	fn := g.curFunc
	lhs := g.genExpr(n.Children[0])
	lhsBlock := g.b.GetInsertBlock()

	rhsBB := g.ctx.AddBasicBlock(fn, "rhs")
	contBB := g.ctx.AddBasicBlock(fn, "scend")
	if op == "&&" {
		g.b.CreateCondBr(lhs, rhsBB, contBB)
	} else {
		g.b.CreateCondBr(lhs, contBB, rhsBB)
	}

	g.b.SetInsertPointAtEnd(rhsBB)
	rhs := g.genExpr(n.Children[1])
	rhsEndBlock := g.b.GetInsertBlock()
	g.b.CreateBr(contBB)

	g.b.SetInsertPointAtEnd(contBB)
	phi := g.b.CreatePHI(g.ctx.Int1Type(), "")
	shortCircuitValue := uint64(0)
	if op == "||" {
		shortCircuitValue = 1
	}
	phi.AddIncoming(
		[]llvm.Value{llvm.ConstInt(g.ctx.Int1Type(), shortCircuitValue, false), rhs},
		[]llvm.BasicBlock{lhsBlock, rhsEndBlock},
	)
	return phi
}

func intPredicate(op string) llvm.IntPredicate {
	switch op {
	case "==":
		return llvm.IntEQ
	case "!=":
		return llvm.IntNE
	case "<":
		return llvm.IntSLT
	case "<=":
		return llvm.IntSLE
	case ">":
		return llvm.IntSGT
	default:
		return llvm.IntSGE
	}
}

func floatPredicate(op string) llvm.FloatPredicate {
	switch op {
	case "==":
		return llvm.FloatOEQ
	case "!=":
		return llvm.FloatONE
	case "<":
		return llvm.FloatOLT
	case "<=":
		return llvm.FloatOLE
	case ">":
		return llvm.FloatOGT
	default:
		return llvm.FloatOGE
	}
}
