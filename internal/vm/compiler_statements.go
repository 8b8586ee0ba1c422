package vm

import "github.com/Lemon-Chad/NupizLang/internal/token"

// declaration parses one top-level or block-level declaration and
// resynchronizes past the next probable statement boundary if it errored.
func (p *Parser) declaration() {
	switch {
	case p.match(token.VAR):
		p.varDeclaration(false)
	case p.match(token.LET):
		p.varDeclaration(false)
	case p.match(token.CONST):
		p.varDeclaration(true)
	case p.match(token.FN):
		p.fnDeclaration()
	case p.match(token.CLASS):
		p.classDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

// varDeclaration parses `var/let/const name [= expr];`;
// let is a plain mutable declaration, kept distinct from var only as
// surface sugar.
func (p *Parser) varDeclaration(isConst bool) {
	global := p.parseVariable("expected variable name", isConst)
	if p.match(eqTok) {
		p.expression()
	} else {
		p.emitOp(OP_NULL)
	}
	p.consume(token.SEMICOLON, "expected ';' after variable declaration")
	p.defineVariable(global)
}

// fnDeclaration parses `fn name(params) { body }` as a nested function.
func (p *Parser) fnDeclaration() {
	global := p.parseVariable("expected function name", false)
	p.markInitialized()
	p.compileFunction(KindFunction, p.localNameOf(global))
	p.defineVariable(global)
}

// localNameOf recovers the just-declared identifier's name for naming the
// ObjFunction; purely cosmetic, it only feeds `<func NAME>` printing.
func (p *Parser) localNameOf(globalIdx int) string {
	if p.frame.scopeDepth > 0 {
		return p.frame.locals[len(p.frame.locals)-1].name
	}
	return string(p.frame.currentChunk().Constants[globalIdx].Obj.(*ObjString).Chars)
}

// compileFunction parses `(params) { body }` in a fresh nested Compiler
// frame of the given kind, ending with endCompiler emitting OP_CLOSURE into
// the enclosing frame.
func (p *Parser) compileFunction(kind FunctionKind, name string) {
	p.pushCompiler(kind, name)
	p.beginScope()

	p.consume(token.LEFT_PAREN, "expected '(' after function name")
	if !p.check(token.RIGHT_PAREN) {
		for {
			p.frame.fn.Arity++
			if p.frame.fn.Arity > maxArgs {
				panic("can't have more than 255 parameters")
			}
			paramConst := false
			if p.match(token.CONST) {
				paramConst = true
			}
			p.consume(identTok, "expected parameter name")
			p.declareVariable(p.previous.Lexeme, paramConst)
			p.markInitialized()
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RIGHT_PAREN, "expected ')' after parameters")
	p.consume(token.LEFT_BRACE, "expected '{' before function body")
	p.block()

	p.endCompiler()
}

// block parses `{ declaration* }`, assuming the opening brace was already
// consumed by the caller.
func (p *Parser) block() {
	for !p.check(token.RIGHT_BRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RIGHT_BRACE, "expected '}' after block")
}

func (p *Parser) statement() {
	switch {
	case p.match(token.IF):
		p.ifStatement()
	case p.match(token.WHILE):
		p.whileStatement()
	case p.match(token.FOR):
		p.forStatement()
	case p.match(token.BREAK):
		p.breakStatement()
	case p.match(token.CONTINUE):
		p.continueStatement()
	case p.match(token.RETURN):
		p.returnStatement()
	case p.match(token.UNPACK):
		p.unpackStatement()
	case p.match(token.IMPORT):
		p.importStatement()
	case p.match(token.LEFT_BRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "expected ';' after expression")
	p.emitOp(OP_POP)
}

// unpackStatement is `unpack <expr>;` compiled directly to OP_UNPACK with
// no trailing pop, since OP_UNPACK itself consumes the namespace and
// leaves nothing behind. The expression-position `unpack x` form is
// handled by unpackExpr instead.
func (p *Parser) unpackStatement() {
	p.parsePrecedence(precUnary)
	p.consume(token.SEMICOLON, "expected ';' after unpack")
	p.emitOp(OP_UNPACK)
}

// importStatement compiles bare `import <ident>;`, binding the imported
// library's namespace to a variable named after the library (so
// `import std;` makes `std.println` reachable), or `import <string>;` to
// run a file import purely for its side effects, with no name to bind
// the resulting namespace to.
func (p *Parser) importStatement() {
	if p.match(identTok) {
		name := p.previous.Lexeme
		p.declareVariable(name, false)
		nameConst := p.identifierConstant(name)
		p.emitOp(OP_IMPORT)
		p.emitByte(byte(nameConst))
		p.consume(token.SEMICOLON, "expected ';' after import")
		p.defineVariable(nameConst)
		return
	}
	if p.match(token.STRING) {
		p.stringLitFrom(p.previous)
		p.emitOp(OP_IMPORT_FILE)
		p.consume(token.SEMICOLON, "expected ';' after import")
		p.emitOp(OP_POP)
		return
	}
	p.errorAtCurrent("expected a library name or file path after 'import'")
}

func (p *Parser) ifStatement() {
	p.consume(token.LEFT_PAREN, "expected '(' after 'if'")
	p.expression()
	p.consume(token.RIGHT_PAREN, "expected ')' after condition")

	thenJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emitOp(OP_POP)
	p.statement()

	elseJump := p.emitJump(OP_JUMP)
	p.patchJump(thenJump)
	p.emitOp(OP_POP)

	if p.match(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

// ---- loops: beginLoop/endLoop track break/continue targets ----

func (p *Parser) beginLoop() *loopState {
	c := p.frame
	c.loopDepth++
	ls := loopState{start: len(c.currentChunk().Code), scopeDepth: c.scopeDepth, loopDepth: c.loopDepth}
	c.loops = append(c.loops, ls)
	return &c.loops[len(c.loops)-1]
}

// endLoop patches every break jump belonging to the loop just finished and
// pops it off the loop stack.
func (p *Parser) endLoop() {
	c := p.frame
	ls := c.loops[len(c.loops)-1]
	for _, j := range ls.breakJumps {
		p.patchJump(j)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.loopDepth--
}

// popLocalsAtOrAbove emits POP_N for every local declared at or above
// depth, used by break/continue to unwind block-scoped locals without
// waiting for the enclosing endScope.
func (p *Parser) popLocalsAtOrAbove(depth int) {
	c := p.frame
	n := 0
	for i := len(c.locals) - 1; i >= 0 && c.locals[i].depth >= depth; i-- {
		n++
	}
	if n > 0 {
		p.emitOp(OP_POP_N)
		p.emitByte(byte(n))
	}
}

func (p *Parser) whileStatement() {
	ls := p.beginLoop()
	loopStart := ls.start

	p.consume(token.LEFT_PAREN, "expected '(' after 'while'")
	p.expression()
	p.consume(token.RIGHT_PAREN, "expected ')' after condition")

	exitJump := p.emitJump(OP_JUMP_IF_FALSE)
	p.emitOp(OP_POP)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OP_POP)
	p.endLoop()
}

// forStatement compiles the classic three-clause `for(init; cond; incr)
// body`. The increment is evaluated after the body in the loop's own
// scope; locals declared in the body do not persist into it.
func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LEFT_PAREN, "expected '(' after 'for'")

	switch {
	case p.match(token.SEMICOLON):
		// no initializer
	case p.match(token.VAR):
		p.varDeclaration(false)
	case p.match(token.LET):
		p.varDeclaration(false)
	case p.match(token.CONST):
		p.varDeclaration(true)
	default:
		p.expressionStatement()
	}

	ls := p.beginLoop()
	loopStart := len(p.frame.currentChunk().Code)
	ls.start = loopStart

	exitJump := -1
	if !p.match(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "expected ';' after loop condition")
		exitJump = p.emitJump(OP_JUMP_IF_FALSE)
		p.emitOp(OP_POP)
	}

	if !p.check(token.RIGHT_PAREN) {
		bodyJump := p.emitJump(OP_JUMP)
		incrStart := len(p.frame.currentChunk().Code)
		p.expression()
		p.emitOp(OP_POP)
		p.consume(token.RIGHT_PAREN, "expected ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrStart
		ls.start = loopStart
		p.patchJump(bodyJump)
	} else {
		p.consume(token.RIGHT_PAREN, "expected ')' after for clauses")
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OP_POP)
	}

	p.endLoop()
	p.endScope()
}

func (p *Parser) breakStatement() {
	if p.frame.loopDepth == 0 {
		p.error("'break' outside a loop")
		return
	}
	ls := &p.frame.loops[len(p.frame.loops)-1]
	p.popLocalsAtOrAbove(ls.scopeDepth + 1)
	p.consume(token.SEMICOLON, "expected ';' after 'break'")
	jump := p.emitJump(OP_JUMP)
	ls.breakJumps = append(ls.breakJumps, jump)
}

func (p *Parser) continueStatement() {
	if p.frame.loopDepth == 0 {
		p.error("'continue' outside a loop")
		return
	}
	ls := &p.frame.loops[len(p.frame.loops)-1]
	p.popLocalsAtOrAbove(ls.scopeDepth + 1)
	p.consume(token.SEMICOLON, "expected ';' after 'continue'")
	p.emitLoop(ls.start)
}

func (p *Parser) returnStatement() {
	if p.frame.kind == KindScript {
		p.error("can't return from top-level code")
	}
	if p.match(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	if p.frame.kind == KindBuilder {
		p.error("can't return a value from a builder")
	}
	p.expression()
	p.consume(token.SEMICOLON, "expected ';' after return value")
	p.emitOp(OP_RETURN)
}
