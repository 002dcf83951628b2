package frontend

import (
	"minicc/src/diag"
	"minicc/src/types"
)

// parser is a hand-written recursive-descent parser with one token of
// lookahead. A function definition and a global variable declaration both
// start with "type IDENT"; parseFuncOrGlobal consumes both tokens and then
// tells them apart by whether '(' or ';'/'[' follows.
type parser struct {
	toks []Token
	pos  int
	sink *diag.Sink
}

// Parse lexes and parses src into a Program Node. Parse errors are
// reported to sink and recovered from at statement/declaration boundaries;
// the returned Node may contain partially-recovered subtrees when sink has
// errors, and callers must not run the type checker or IR builder over it
// in that case.
func Parse(src string, sink *diag.Sink) *Node {
	toks, lexErr := Lex(src)
	if lexErr != nil {
		sink.Report(*lexErr)
		return nil
	}
	p := &parser{toks: toks, sink: sink}
	return p.parseProgram()
}

// --- token stream helpers ---

func (p *parser) cur() Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(k Kind) bool {
	return p.cur().Kind == k
}

func (p *parser) span() diag.Span {
	t := p.cur()
	return diag.Span{Line: t.Line, Col: t.Col}
}

// expect consumes a token of kind k or reports UnexpectedToken and returns
// false, leaving the cursor in place for recover() to resynchronize from.
func (p *parser) expect(k Kind) (Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.errorf(diag.UnexpectedToken, "expected %s, got %s %q", k, p.cur().Kind, p.cur().Lexeme)
	return Token{}, false
}

func (p *parser) errorf(kind diag.Kind, format string, args ...interface{}) {
	p.sink.Reportf(kind, p.span(), format, args...)
}

// recover advances past tokens until ';', '}' or EOF, implementing the
// panic-mode recovery spec.md §4.D requires. The resynchronizing token
// itself is consumed when it is ';', left in place when it is '}' so block
// parsing can still see it end the block.
func (p *parser) recover() {
	for {
		switch p.cur().Kind {
		case Semicolon:
			p.advance()
			return
		case RBrace, EOF:
			return
		default:
			p.advance()
		}
	}
}

// --- grammar: Program / top-level ---

func (p *parser) parseProgram() *Node {
	prog := NewNode(NProgram, diag.Span{Line: 1, Col: 1}, nil)
	for !p.at(EOF) {
		if d := p.parseTopDecl(); d != nil {
			prog.Children = append(prog.Children, d)
		}
	}
	return prog
}

func (p *parser) parseTopDecl() *Node {
	if p.at(KwExtern) {
		return p.parseExternDecl()
	}
	if !isTypeStart(p.cur().Kind) {
		p.errorf(diag.UnexpectedToken, "expected a declaration, got %s %q", p.cur().Kind, p.cur().Lexeme)
		p.recover()
		return nil
	}
	return p.parseFuncOrGlobal()
}

func isTypeStart(k Kind) bool {
	return k == KwInt || k == KwFloat || k == KwBool || k == KwVoid
}

func (p *parser) parseType() (types.Type, bool) {
	switch p.cur().Kind {
	case KwInt:
		p.advance()
		return types.TInt, true
	case KwFloat:
		p.advance()
		return types.TFloat, true
	case KwBool:
		p.advance()
		return types.TBool, true
	case KwVoid:
		p.advance()
		return types.TVoid, true
	default:
		p.errorf(diag.MissingParamType, "expected a type, got %s %q", p.cur().Kind, p.cur().Lexeme)
		return types.Type{}, false
	}
}

// parseArrayDims parses zero or more '[' INT ']' declarator suffixes. A
// count of 4 or more is a hard parse error (spec invariant 5); each
// dimension must be a positive integer literal.
func (p *parser) parseArrayDims() ([]int, bool) {
	var dims []int
	for p.at(LBracket) {
		start := p.span()
		p.advance()
		tok, ok := p.expect(IntLit)
		if !ok {
			return nil, false
		}
		if tok.IntVal <= 0 {
			p.sink.Reportf(diag.ArrayDimMismatch, start, "array dimension must be a positive integer literal, got %d", tok.IntVal)
			return nil, false
		}
		if _, ok := p.expect(RBracket); !ok {
			return nil, false
		}
		dims = append(dims, int(tok.IntVal))
		if len(dims) > types.MaxArrayDims {
			p.sink.Reportf(diag.ArrayDimMismatch, start, "array has %d dimensions, at most %d are allowed", len(dims), types.MaxArrayDims)
			return nil, false
		}
	}
	return dims, true
}

func (p *parser) parseExternDecl() *Node {
	start := p.span()
	p.advance() // 'extern'
	ret, ok := p.parseType()
	if !ok {
		p.recover()
		return nil
	}
	nameTok, ok := p.expect(Identifier)
	if !ok {
		p.recover()
		return nil
	}
	if _, ok := p.expect(LParen); !ok {
		p.recover()
		return nil
	}
	params, ok := p.parseParamList()
	if !ok {
		p.recover()
		return nil
	}
	if _, ok := p.expect(RParen); !ok {
		p.recover()
		return nil
	}
	if _, ok := p.expect(Semicolon); !ok {
		p.recover()
		return nil
	}
	n := NewNode(NExternDecl, start, nameTok.Lexeme, params...)
	n.Ty = ret
	return n
}

// parseFuncOrGlobal parses "Type IDENT ..." and decides, by looking past
// the identifier, whether it continues as a FuncDef ('(') or a GlobalVar
// (';' or '['), per spec.md §4.D.
func (p *parser) parseFuncOrGlobal() *Node {
	start := p.span()
	typ, ok := p.parseType()
	if !ok {
		p.recover()
		return nil
	}
	nameTok, ok := p.expect(Identifier)
	if !ok {
		p.recover()
		return nil
	}

	if p.at(LParen) {
		return p.parseFuncDef(start, typ, nameTok.Lexeme)
	}
	return p.parseGlobalVarTail(start, typ, nameTok.Lexeme)
}

func (p *parser) parseGlobalVarTail(start diag.Span, typ types.Type, name string) *Node {
	dims, ok := p.parseArrayDims()
	if !ok {
		p.recover()
		return nil
	}
	if _, ok := p.expect(Semicolon); !ok {
		p.recover()
		return nil
	}
	n := NewNode(NGlobalVar, start, name)
	if len(dims) > 0 {
		n.Ty = types.NewArray(elemKind(typ), dims)
	} else {
		n.Ty = typ
	}
	return n
}

func elemKind(t types.Type) types.Kind {
	return t.Kind
}

func (p *parser) parseFuncDef(start diag.Span, ret types.Type, name string) *Node {
	p.advance() // '('
	params, ok := p.parseParamList()
	if !ok {
		p.recover()
		return nil
	}
	if _, ok := p.expect(RParen); !ok {
		p.recover()
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	children := append(params, body)
	n := NewNode(NFuncDef, start, name, children...)
	n.Ty = ret
	return n
}

func (p *parser) parseParamList() ([]*Node, bool) {
	var params []*Node
	if p.at(RParen) {
		return params, true
	}
	for {
		param, ok := p.parseParam()
		if !ok {
			return nil, false
		}
		params = append(params, param)
		if p.at(Comma) {
			p.advance()
			continue
		}
		break
	}
	return params, true
}

func (p *parser) parseParam() (*Node, bool) {
	start := p.span()
	typ, ok := p.parseType()
	if !ok {
		return nil, false
	}
	nameTok, ok := p.expect(Identifier)
	if !ok {
		return nil, false
	}
	dims, ok := p.parseArrayDims()
	if !ok {
		return nil, false
	}
	n := NewNode(NParam, start, nameTok.Lexeme)
	if len(dims) > 0 {
		n.Ty = types.NewArray(elemKind(typ), dims)
	} else {
		n.Ty = typ
	}
	return n, true
}

// --- grammar: statements ---

func (p *parser) parseBlock() *Node {
	start := p.span()
	if _, ok := p.expect(LBrace); !ok {
		p.recover()
		return nil
	}
	n := NewNode(NBlock, start, nil)
	for !p.at(RBrace) && !p.at(EOF) {
		if isTypeStart(p.cur().Kind) {
			if d := p.parseLocalDecl(); d != nil {
				n.Children = append(n.Children, d)
			}
			continue
		}
		if s := p.parseStmt(); s != nil {
			n.Children = append(n.Children, s)
		}
	}
	if _, ok := p.expect(RBrace); !ok {
		p.recover()
		return n
	}
	return n
}

func (p *parser) parseLocalDecl() *Node {
	start := p.span()
	typ, ok := p.parseType()
	if !ok {
		p.recover()
		return nil
	}
	nameTok, ok := p.expect(Identifier)
	if !ok {
		p.recover()
		return nil
	}
	dims, ok := p.parseArrayDims()
	if !ok {
		p.recover()
		return nil
	}
	if _, ok := p.expect(Semicolon); !ok {
		p.recover()
		return nil
	}
	n := NewNode(NLocalDecl, start, nameTok.Lexeme)
	if len(dims) > 0 {
		n.Ty = types.NewArray(elemKind(typ), dims)
	} else {
		n.Ty = typ
	}
	return n
}

func (p *parser) parseStmt() *Node {
	switch p.cur().Kind {
	case LBrace:
		return p.parseBlock()
	case KwIf:
		return p.parseIf()
	case KwWhile:
		return p.parseWhile()
	case KwReturn:
		return p.parseReturn()
	case Semicolon:
		start := p.span()
		p.advance()
		return NewNode(NEmpty, start, nil)
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *parser) parseIf() *Node {
	start := p.span()
	p.advance() // 'if'
	if _, ok := p.expect(LParen); !ok {
		p.recover()
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		p.recover()
		return nil
	}
	if _, ok := p.expect(RParen); !ok {
		p.recover()
		return nil
	}
	then := p.parseStmt()
	if then == nil {
		return nil
	}
	children := []*Node{cond, then}
	// Dangling else: binds to the nearest preceding if, which falls out
	// naturally here since a nested "if (c2) s2" consumes its own 'else'
	// before control returns to this call.
	if p.at(KwElse) {
		p.advance()
		els := p.parseStmt()
		if els == nil {
			return nil
		}
		children = append(children, els)
	}
	return NewNode(NIf, start, nil, children...)
}

func (p *parser) parseWhile() *Node {
	start := p.span()
	p.advance() // 'while'
	if _, ok := p.expect(LParen); !ok {
		p.recover()
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		p.recover()
		return nil
	}
	if _, ok := p.expect(RParen); !ok {
		p.recover()
		return nil
	}
	body := p.parseStmt()
	if body == nil {
		return nil
	}
	return NewNode(NWhile, start, nil, cond, body)
}

func (p *parser) parseReturn() *Node {
	start := p.span()
	p.advance() // 'return'
	if p.at(Semicolon) {
		p.advance()
		return NewNode(NReturn, start, nil)
	}
	e := p.parseExpr()
	if e == nil {
		p.recover()
		return nil
	}
	if _, ok := p.expect(Semicolon); !ok {
		p.recover()
		return nil
	}
	return NewNode(NReturn, start, nil, e)
}

// parseExprOrAssignStmt parses either an assignment "LValue '=' Expr ';'"
// or a bare expression statement "Expr ';'". It disambiguates by parsing a
// full expression first and then checking whether an '=' follows: if it
// does, the parsed expression must already be a valid LValue shape
// (Ident or Index), matching spec.md invariant 2.
func (p *parser) parseExprOrAssignStmt() *Node {
	start := p.span()
	e := p.parseExpr()
	if e == nil {
		p.recover()
		return nil
	}
	if p.at(Assign) {
		if e.Kind != NIdent && e.Kind != NIndex {
			p.errorf(diag.ExpectedLValue, "left-hand side of assignment must be an identifier or array element")
			p.recover()
			return nil
		}
		p.advance()
		rhs := p.parseExpr()
		if rhs == nil {
			p.recover()
			return nil
		}
		if _, ok := p.expect(Semicolon); !ok {
			p.recover()
			return nil
		}
		return NewNode(NAssign, start, nil, e, rhs)
	}
	if _, ok := p.expect(Semicolon); !ok {
		p.recover()
		return nil
	}
	return NewNode(NExprStmt, start, nil, e)
}

// --- grammar: expressions ---

func (p *parser) parseExpr() *Node {
	return p.parseLogicOr()
}

func (p *parser) parseLogicOr() *Node {
	left := p.parseLogicAnd()
	for left != nil && p.at(OrOr) {
		start := p.span()
		p.advance()
		right := p.parseLogicAnd()
		if right == nil {
			return nil
		}
		left = NewNode(NBinary, start, "||", left, right)
	}
	return left
}

func (p *parser) parseLogicAnd() *Node {
	left := p.parseEquality()
	for left != nil && p.at(AndAnd) {
		start := p.span()
		p.advance()
		right := p.parseEquality()
		if right == nil {
			return nil
		}
		left = NewNode(NBinary, start, "&&", left, right)
	}
	return left
}

func (p *parser) parseEquality() *Node {
	left := p.parseRel()
	for left != nil && (p.at(Eq) || p.at(Ne)) {
		op := "=="
		if p.at(Ne) {
			op = "!="
		}
		start := p.span()
		p.advance()
		right := p.parseRel()
		if right == nil {
			return nil
		}
		left = NewNode(NBinary, start, op, left, right)
	}
	return left
}

func (p *parser) parseRel() *Node {
	left := p.parseAdd()
	for left != nil {
		var op string
		switch p.cur().Kind {
		case Lt:
			op = "<"
		case Le:
			op = "<="
		case Gt:
			op = ">"
		case Ge:
			op = ">="
		default:
			return left
		}
		start := p.span()
		p.advance()
		right := p.parseAdd()
		if right == nil {
			return nil
		}
		left = NewNode(NBinary, start, op, left, right)
	}
	return left
}

func (p *parser) parseAdd() *Node {
	left := p.parseMul()
	for left != nil {
		var op string
		switch p.cur().Kind {
		case Plus:
			op = "+"
		case Minus:
			op = "-"
		default:
			return left
		}
		start := p.span()
		p.advance()
		right := p.parseMul()
		if right == nil {
			return nil
		}
		left = NewNode(NBinary, start, op, left, right)
	}
	return left
}

func (p *parser) parseMul() *Node {
	left := p.parseUnary()
	for left != nil {
		var op string
		switch p.cur().Kind {
		case Star:
			op = "*"
		case Slash:
			op = "/"
		case Percent:
			op = "%"
		default:
			return left
		}
		start := p.span()
		p.advance()
		right := p.parseUnary()
		if right == nil {
			return nil
		}
		left = NewNode(NBinary, start, op, left, right)
	}
	return left
}

func (p *parser) parseUnary() *Node {
	if p.at(Minus) || p.at(Bang) {
		op := "-"
		if p.at(Bang) {
			op = "!"
		}
		start := p.span()
		p.advance()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return NewNode(NUnary, start, op, operand)
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() *Node {
	start := p.span()
	switch p.cur().Kind {
	case IntLit:
		tok := p.advance()
		return NewNode(NIntLit, start, tok.IntVal)
	case FloatLit:
		tok := p.advance()
		return NewNode(NFloatLit, start, tok.FloatVal)
	case KwTrue:
		p.advance()
		return NewNode(NBoolLit, start, true)
	case KwFalse:
		p.advance()
		return NewNode(NBoolLit, start, false)
	case LParen:
		p.advance()
		e := p.parseExpr()
		if e == nil {
			return nil
		}
		if _, ok := p.expect(RParen); !ok {
			return nil
		}
		return e
	case Identifier:
		tok := p.advance()
		if p.at(LParen) {
			return p.parseCallTail(start, tok.Lexeme)
		}
		if p.at(LBracket) {
			return p.parseIndexTail(start, tok.Lexeme)
		}
		return NewNode(NIdent, start, tok.Lexeme)
	default:
		p.errorf(diag.UnexpectedToken, "expected an expression, got %s %q", p.cur().Kind, p.cur().Lexeme)
		return nil
	}
}

func (p *parser) parseCallTail(start diag.Span, name string) *Node {
	p.advance() // '('
	var args []*Node
	if !p.at(RParen) {
		for {
			a := p.parseExpr()
			if a == nil {
				return nil
			}
			args = append(args, a)
			if p.at(Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	if _, ok := p.expect(RParen); !ok {
		return nil
	}
	return NewNode(NCall, start, name, args...)
}

func (p *parser) parseIndexTail(start diag.Span, name string) *Node {
	var idx []*Node
	for p.at(LBracket) {
		p.advance()
		e := p.parseExpr()
		if e == nil {
			return nil
		}
		if _, ok := p.expect(RBracket); !ok {
			return nil
		}
		idx = append(idx, e)
	}
	return NewNode(NIndex, start, name, idx...)
}
