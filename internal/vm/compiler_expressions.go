package vm

import (
	"strconv"

	"github.com/Lemon-Chad/NupizLang/internal/token"
)

// Aliases so the rest of the compiler package reads naturally without a
// "token." prefix on every comparison.
const (
	identTok = token.IDENT
	eqTok    = token.EQUAL
)

type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // ||
	precAnd                   // &&
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! - unpack
	precCall                  // . () []
	precPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LEFT_PAREN:    {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: precCall},
		token.LEFT_BRACKET:  {prefix: (*Parser).listLiteral, infix: (*Parser).index, precedence: precCall},
		token.DOT:           {infix: (*Parser).dot, precedence: precCall},
		token.MINUS:         {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: precTerm},
		token.PLUS:          {infix: (*Parser).binary, precedence: precTerm},
		token.SLASH:         {infix: (*Parser).binary, precedence: precFactor},
		token.STAR:          {infix: (*Parser).binary, precedence: precFactor},
		token.BANG:          {prefix: (*Parser).unary},
		token.BANG_EQUAL:    {infix: (*Parser).binary, precedence: precEquality},
		token.EQUAL_EQUAL:   {infix: (*Parser).binary, precedence: precEquality},
		token.GREATER:       {infix: (*Parser).binary, precedence: precComparison},
		token.GREATER_EQUAL: {infix: (*Parser).binary, precedence: precComparison},
		token.LESS:          {infix: (*Parser).binary, precedence: precComparison},
		token.LESS_EQUAL:    {infix: (*Parser).binary, precedence: precComparison},
		token.AMP_AMP:       {infix: (*Parser).and_, precedence: precAnd},
		token.PIPE_PIPE:     {infix: (*Parser).or_, precedence: precOr},
		token.IDENT:         {prefix: (*Parser).variable},
		token.NUMBER:        {prefix: (*Parser).number},
		token.STRING:        {prefix: (*Parser).stringLit},
		token.TRUE:          {prefix: (*Parser).literal},
		token.FALSE:         {prefix: (*Parser).literal},
		token.NULL:          {prefix: (*Parser).literal},
		token.THIS:          {prefix: (*Parser).this},
		token.SUPER:         {prefix: (*Parser).super},
		token.UNPACK:        {prefix: (*Parser).unpackExpr},
		token.IMPORT:        {prefix: (*Parser).importExpr},
		token.NEW:           {prefix: (*Parser).newExpr},
	}
}

func (p *Parser) getRule(t token.Type) parseRule { return rules[t] }

// matchAssignOp consumes one of `= += -= *= /=` if present.
func (p *Parser) matchAssignOp() bool {
	switch p.current.Type {
	case token.EQUAL, token.PLUS_EQUAL, token.MINUS_EQUAL, token.STAR_EQUAL, token.SLASH_EQUAL:
		p.advance()
		return true
	}
	return false
}

func compoundArithOp(t token.Type) Opcode {
	switch t {
	case token.PLUS_EQUAL:
		return OP_ADD
	case token.MINUS_EQUAL:
		return OP_SUBTRACT
	case token.STAR_EQUAL:
		return OP_MULTIPLY
	case token.SLASH_EQUAL:
		return OP_DIVIDE
	}
	return OP_ADD
}

// expression parses at precAssignment, the widest precedence.
func (p *Parser) expression() { p.parsePrecedence(precAssignment) }

func (p *Parser) parsePrecedence(prec precedence) {
	p.advance()
	rule := p.getRule(p.previous.Type)
	if rule.prefix == nil {
		p.error("expected expression")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(p, canAssign)

	for prec <= p.getRule(p.current.Type).precedence {
		p.advance()
		infRule := p.getRule(p.previous.Type)
		infRule.infix(p, canAssign)
	}

	if canAssign && p.matchAssignOp() {
		p.error("invalid assignment target")
	}
}

// ---- primary / literal parselets ----

func (p *Parser) number(canAssign bool) {
	n, _ := strconv.ParseFloat(p.previous.Lexeme, 64)
	p.emitConstant(NumberVal(n))
}

// stringLit translates backslash escapes at compile time:
// \n \t \b \r \a \? \f \v \0, and \<other> -> <other>.
func (p *Parser) stringLit(canAssign bool) {
	raw := p.previous.Lexeme
	body := raw[1 : len(raw)-1] // strip surrounding quotes
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			out = append(out, c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'r':
			out = append(out, '\r')
		case 'a':
			out = append(out, '\a')
		case '?':
			out = append(out, '?')
		case 'f':
			out = append(out, '\f')
		case 'v':
			out = append(out, '\v')
		case '0':
			out = append(out, 0)
		default:
			out = append(out, body[i])
		}
	}
	p.emitConstant(ObjVal(p.vm.gc.CopyString(out)))
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case token.TRUE:
		p.emitOp(OP_TRUE)
	case token.FALSE:
		p.emitOp(OP_FALSE)
	case token.NULL:
		p.emitOp(OP_NULL)
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RIGHT_PAREN, "expected ')' after expression")
}

func (p *Parser) unary(canAssign bool) {
	op := p.previous.Type
	p.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		p.emitOp(OP_NEGATE)
	case token.BANG:
		p.emitOp(OP_NOT)
	}
}

func (p *Parser) binary(canAssign bool) {
	op := p.previous.Type
	rule := p.getRule(op)
	p.parsePrecedence(rule.precedence + 1)
	switch op {
	case token.PLUS:
		p.emitOp(OP_ADD)
	case token.MINUS:
		p.emitOp(OP_SUBTRACT)
	case token.STAR:
		p.emitOp(OP_MULTIPLY)
	case token.SLASH:
		p.emitOp(OP_DIVIDE)
	case token.BANG_EQUAL:
		p.emitOp(OP_NOT_EQUAL)
	case token.EQUAL_EQUAL:
		p.emitOp(OP_EQUAL)
	case token.GREATER:
		p.emitOp(OP_GREATER)
	case token.GREATER_EQUAL:
		p.emitOp(OP_GREATER_EQUAL)
	case token.LESS:
		p.emitOp(OP_LESS)
	case token.LESS_EQUAL:
		p.emitOp(OP_LESS_EQUAL)
	}
}

// and_/or_ implement short-circuit logical operators via jumps that don't
// pop the scrutinee.
func (p *Parser) and_(canAssign bool) {
	endJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emitOp(OP_POP)
	p.parsePrecedence(precAnd)
	p.patchJump(endJump)
}

func (p *Parser) or_(canAssign bool) {
	endJump := p.emitJump(OP_JUMP_IF_TRUE)
	p.emitOp(OP_POP)
	p.parsePrecedence(precOr)
	p.patchJump(endJump)
}

func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous.Lexeme, canAssign)
}

func (p *Parser) this(canAssign bool) {
	if p.frame.kind != KindMethod && p.frame.kind != KindBuilder {
		p.error("'this' can only be used inside a method")
		return
	}
	p.namedVariable("this", false)
}

// super handles both `super.name` and `super.name(args)`: push `this`,
// resolve `super` (the synthetic local bound to the superclass), then
// either GET_SUPER or SUPER_INVOKE.
func (p *Parser) super(canAssign bool) {
	if p.class == nil {
		p.error("'super' can only be used inside a class")
	} else if !p.class.hasSuperclass {
		p.error("'super' can only be used in a class with a superclass")
	}
	p.consume(token.DOT, "expected '.' after 'super'")
	p.consume(identTok, "expected superclass method name")
	name := p.previous.Lexeme
	nameIdx := p.identifierConstant(name)

	p.namedVariable("this", false)
	if p.match(token.LEFT_PAREN) {
		argc := p.argumentList()
		p.namedVariable("super", false)
		p.emitOp(OP_SUPER_INVOKE)
		p.emitByte(byte(nameIdx))
		p.emitByte(byte(argc))
		return
	}
	p.namedVariable("super", false)
	p.emitOp(OP_GET_SUPER)
	p.emitByte(byte(nameIdx))
}

// unpackExpr compiles `unpack <expr>`: OP_UNPACK itself pops a namespace
// and leaves nothing, so the parselet pushes NULL afterward to give the
// construct a value in expression position, keeping it stack-neutral like
// every other unary operator.
func (p *Parser) unpackExpr(canAssign bool) {
	p.parsePrecedence(precUnary)
	p.emitOp(OP_UNPACK)
	p.emitOp(OP_NULL)
}

// importExpr compiles `import <ident>` (library import, pushes the
// library's namespace) or `import <string>` (file import via
// OP_IMPORT_FILE) as a primary expression.
func (p *Parser) importExpr(canAssign bool) {
	if p.match(identTok) {
		name := p.previous.Lexeme
		idx := p.identifierConstant(name)
		p.emitOp(OP_IMPORT)
		p.emitByte(byte(idx))
		return
	}
	if p.match(token.STRING) {
		p.stringLitFrom(p.previous)
		p.emitOp(OP_IMPORT_FILE)
		return
	}
	p.errorAtCurrent("expected a library name or file path after 'import'")
}

// stringLitFrom emits a string constant for a token already consumed into
// p.previous (used by importExpr, which consumes STRING itself rather than
// going through the Pratt prefix dispatch).
func (p *Parser) stringLitFrom(tok token.Token) {
	saved := p.previous
	p.previous = tok
	p.stringLit(false)
	p.previous = saved
}

// newExpr compiles `new Class(args)`: CALL already constructs an instance
// when the callee is a class, so `new` is transparent sugar - it just
// parses the following call expression at call precedence.
func (p *Parser) newExpr(canAssign bool) {
	p.parsePrecedence(precCall)
}

func (p *Parser) listLiteral(canAssign bool) {
	argc := 0
	if !p.check(token.RIGHT_BRACKET) {
		for {
			p.expression()
			argc++
			if argc > maxArgs {
				panic("too many list elements")
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_BRACKET, "expected ']' after list elements")
	p.emitOp(OP_MAKE_LIST)
	p.emitByte(byte(argc))
}

// index compiles `target[expr]` as either GET_INDEX or, when canAssign and
// followed by `=`, SET_INDEX.
func (p *Parser) index(canAssign bool) {
	p.expression()
	p.consume(token.RIGHT_BRACKET, "expected ']' after index")
	if canAssign && p.match(eqTok) {
		p.expression()
		p.emitOp(OP_SET_INDEX)
		return
	}
	p.emitOp(OP_GET_INDEX)
}

// dot compiles `target.name`, `target.name(args)`, or an assignment to
// `target.name`.
func (p *Parser) dot(canAssign bool) {
	// `new` is a keyword, but libraries export a `new` constructor
	// (vector.new, map.new), so it is accepted as a property name.
	if !p.match(token.NEW) {
		p.consume(identTok, "expected property name after '.'")
	}
	name := p.previous.Lexeme
	nameIdx := p.identifierConstant(name)

	if canAssign && p.match(eqTok) {
		p.expression()
		p.emitOp(OP_SET_PROPERTY)
		p.emitByte(byte(nameIdx))
		return
	}
	if p.match(token.LEFT_PAREN) {
		argc := p.argumentList()
		p.emitOp(OP_INVOKE)
		p.emitByte(byte(nameIdx))
		p.emitByte(byte(argc))
		return
	}
	p.emitOp(OP_GET_PROPERTY)
	p.emitByte(byte(nameIdx))
}

// call compiles `callee(args)`.
func (p *Parser) call(canAssign bool) {
	argc := p.argumentList()
	p.emitOp(OP_CALL)
	p.emitByte(byte(argc))
}

func (p *Parser) argumentList() int {
	argc := 0
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.expression()
			argc++
			if argc > maxArgs {
				panic("can't have more than 255 arguments")
			}
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "expected ')' after arguments")
	return argc
}
