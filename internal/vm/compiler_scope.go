package vm

// addLocal declares name in the current scope without yet marking it
// defined: depth stays -1 until markInitialized/defineVariable runs.
func (p *Parser) addLocal(name string, isConst bool) {
	c := p.frame
	if len(c.locals) >= maxLocals {
		panic("too many local variables in function")
	}
	c.locals = append(c.locals, local{name: name, depth: -1, isConst: isConst})
}

func (p *Parser) markInitialized() {
	c := p.frame
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

// resolveLocal finds name among c's locals, innermost first, or -1 if
// absent. Reading a local whose declaration hasn't finished (depth still
// -1, e.g. `var a = a;`) is a compile error.
func (p *Parser) resolveLocal(c *Compiler, name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("cannot read a local variable in its own initializer")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue resolves name through enclosing frames (locals ->
// enclosing upvalues), interning the same (index, isLocal) pair to the
// same upvalue slot, and marking a captured enclosing local so its scope
// exit emits CLOSE_UPVALUE instead of a bare POP.
func (p *Parser) resolveUpvalue(c *Compiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if slot := p.resolveLocal(c.enclosing, name); slot != -1 {
		c.enclosing.locals[slot].isCaptured = true
		return addUpvalue(c, uint8(slot), true)
	}
	if up := p.resolveUpvalue(c.enclosing, name); up != -1 {
		return addUpvalue(c, uint8(up), false)
	}
	return -1
}

func addUpvalue(c *Compiler, index uint8, isLocal bool) int {
	for i, u := range c.upvalues {
		if u.index == index && u.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) >= maxUpvalues {
		panic("too many closure variables in function")
	}
	c.upvalues = append(c.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	return len(c.upvalues) - 1
}

// declareVariable registers a local for the identifier just consumed
// (p.previous), rejecting a duplicate name in the same scope. A
// scope depth of 0 means a global: nothing to declare here, DEFINE_GLOBAL
// handles it entirely at runtime.
func (p *Parser) declareVariable(name string, isConst bool) {
	c := p.frame
	if c.scopeDepth == 0 {
		return
	}
	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			p.error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name, isConst)
}

// identifierConstant interns name as a string constant, used for every
// const8-name operand (globals, properties, methods).
func (p *Parser) identifierConstant(name string) int {
	return p.frame.currentChunk().AddConstant(ObjVal(p.vm.gc.CopyString([]byte(name))))
}

// parseVariable consumes an identifier, declares it as a local (scope > 0)
// and returns its name constant index for DEFINE_GLOBAL (scope == 0).
func (p *Parser) parseVariable(errMsg string, isConst bool) int {
	p.consume(identTok, errMsg)
	name := p.previous.Lexeme
	p.declareVariable(name, isConst)
	if p.frame.scopeDepth > 0 {
		return -1
	}
	return p.identifierConstant(name)
}

// defineVariable finishes a declaration: for a local, just marks it
// initialized (the value is already sitting on the stack at its slot); for
// a global, emits DEFINE_GLOBAL.
func (p *Parser) defineVariable(globalIdx int) {
	if p.frame.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOp(OP_DEFINE_GLOBAL)
	p.emitByte(byte(globalIdx))
}

// namedVariable resolves an identifier to GET/SET_LOCAL, GET/SET_UPVALUE or
// GET/SET_GLOBAL, handling plain `=` and compound `+= -= *= /=` assignment
// when canAssign is set.
func (p *Parser) namedVariable(name string, canAssign bool) {
	var getOp, setOp Opcode
	var arg int
	isConst := false
	if slot := p.resolveLocal(p.frame, name); slot != -1 {
		getOp, setOp, arg, isConst = OP_GET_LOCAL, OP_SET_LOCAL, slot, p.frame.locals[slot].isConst
	} else if up := p.resolveUpvalue(p.frame, name); up != -1 {
		getOp, setOp, arg = OP_GET_UPVALUE, OP_SET_UPVALUE, up
	} else {
		idx := p.identifierConstant(name)
		getOp, setOp, arg = OP_GET_GLOBAL, OP_SET_GLOBAL, idx
	}

	if canAssign && p.matchAssignOp() {
		op := p.previous.Type
		if isConst {
			p.error("cannot assign to a constant local")
		}
		if op == eqTok {
			p.expression()
		} else {
			p.emitOp(getOp)
			p.emitByte(byte(arg))
			p.expression()
			p.emitOp(compoundArithOp(op))
		}
		p.emitOp(setOp)
		p.emitByte(byte(arg))
		return
	}

	p.emitOp(getOp)
	p.emitByte(byte(arg))
}
