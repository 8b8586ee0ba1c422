package vm

import (
	"strings"

	"github.com/Lemon-Chad/NupizLang/internal/token"
)

// isPublicName is the npz surface's visibility convention: there is no
// `public`/`private` keyword in the reserved-word list, so
// npz follows the common leading-underscore convention instead - a field
// or method named `_foo` is private, everything else is public.
func isPublicName(name string) bool { return !strings.HasPrefix(name, "_") }

// classDeclaration parses `class Name [<- Super] { body }`.
func (p *Parser) classDeclaration() {
	p.consume(token.IDENT, "expected class name")
	nameTok := p.previous
	className := nameTok.Lexeme
	nameConst := p.identifierConstant(className)
	p.declareVariable(className, false)

	p.emitOp(OP_CLASS)
	p.emitByte(byte(nameConst))
	p.defineVariable(nameConst)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.match(token.ARROW_LEFT) {
		p.consume(token.IDENT, "expected superclass name")
		superName := p.previous.Lexeme
		if superName == className {
			p.error("a class can't inherit from itself")
		}
		p.namedVariable(superName, false) // push superclass value

		p.beginScope()
		p.addLocal("super", true)
		p.markInitialized()

		p.namedVariable(className, false) // duplicate subclass on top
		p.emitOp(OP_INHERIT)
		cs.hasSuperclass = true
	}

	p.namedVariable(className, false) // leave class on stack for the body
	p.consume(token.LEFT_BRACE, "expected '{' before class body")
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.classMember()
	}
	p.consume(token.RIGHT_BRACE, "expected '}' after class body")
	p.emitOp(OP_POP) // drop the class itself

	if cs.hasSuperclass {
		p.endScope() // pop the synthetic `super` local
	}
	p.class = cs.enclosing
}

// classMember parses one class-body entry: `fn`, `build`, `def <builtin>`,
// or an (optionally `static`-prefixed) field declaration.
func (p *Parser) classMember() {
	isStatic := p.match(token.STATIC)
	switch {
	case p.match(token.FN):
		p.method(isStatic)
	case p.match(token.BUILD):
		if isStatic {
			p.error("a constructor cannot be static")
		}
		p.builder()
	case p.match(token.DEF):
		if isStatic {
			p.error("a default method cannot be static")
		}
		p.defaultMethod()
	case p.match(token.VAR):
		p.fieldDeclaration(isStatic, false)
	case p.match(token.LET):
		p.fieldDeclaration(isStatic, false)
	case p.match(token.CONST):
		p.fieldDeclaration(isStatic, true)
	default:
		p.errorAtCurrent("expected a method or field declaration in class body")
		p.advance()
	}
}

// method compiles a named method: `fn name(params) { body }`.
func (p *Parser) method(isStatic bool) {
	p.consume(token.IDENT, "expected method name")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)
	p.compileFunction(KindMethod, name)

	p.emitOp(OP_METHOD)
	p.emitByte(MethodKindNamed)
	p.emitByte(byte(nameConst))
	p.emitBool(isPublicName(name))
	p.emitBool(isStatic)
}

// builder compiles the constructor: `build(params) { body }`.
func (p *Parser) builder() {
	p.compileFunction(KindBuilder, "build")
	p.emitOp(OP_METHOD)
	p.emitByte(MethodKindBuilder)
	p.emitBool(true)
	p.emitBool(false)
}

// defaultMethod compiles `def string|eq|hash (params) { body }`.
func (p *Parser) defaultMethod() {
	p.consume(token.IDENT, "expected a default method name (string, eq, or hash)")
	name := p.previous.Lexeme
	idx := -1
	for i, n := range builtinDefaultNames {
		if n == name {
			idx = i
		}
	}
	if idx == -1 {
		p.error("unknown default method, expected 'string', 'eq', or 'hash'")
		idx = DefaultString
	}
	p.compileFunction(KindMethod, name)
	p.emitOp(OP_METHOD)
	p.emitByte(MethodKindBuiltin)
	p.emitByte(byte(idx))
	p.emitBool(true)
	p.emitBool(false)
}

// fieldDeclaration compiles a class field: `[static] var/let/const name [=
// expr];`.
func (p *Parser) fieldDeclaration(isStatic, isConstant bool) {
	p.consume(token.IDENT, "expected field name")
	name := p.previous.Lexeme
	nameConst := p.identifierConstant(name)

	if p.match(eqTok) {
		p.expression()
	} else {
		p.emitOp(OP_NULL)
	}
	p.consume(token.SEMICOLON, "expected ';' after field declaration")

	p.emitOp(OP_ATTRIBUTE)
	p.emitByte(byte(nameConst))
	p.emitBool(isConstant)
	p.emitBool(isPublicName(name))
	p.emitBool(isStatic)
}

func (p *Parser) emitBool(b bool) {
	if b {
		p.emitByte(1)
	} else {
		p.emitByte(0)
	}
}
