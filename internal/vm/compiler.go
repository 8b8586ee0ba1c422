package vm

import (
	"fmt"

	"github.com/Lemon-Chad/NupizLang/internal/lexer"
	"github.com/Lemon-Chad/NupizLang/internal/token"
)

// FunctionKind distinguishes the four contexts a Compiler frame can nest
// inside of: top-level script, plain function, instance method, and class
// constructor.
type FunctionKind int

const (
	KindScript FunctionKind = iota
	KindFunction
	KindMethod
	KindBuilder
)

const (
	maxLocals   = 256
	maxUpvalues = 256
	maxArgs     = 255
	maxJump     = 1<<16 - 1
)

// local is one slot in a compiler frame's fixed-capacity local array.
// Depth -1 means declared-but-not-yet-defined: reading it is a compile
// error.
type local struct {
	name       string
	depth      int
	isCaptured bool
	isConst    bool
}

// upvalueDesc records how this function captures a variable from its
// enclosing frame: either directly off a local slot, or by forwarding an
// upvalue the enclosing frame already captured.
type upvalueDesc struct {
	index   uint8
	isLocal bool
}

// loopState is what beginLoop/endLoop push/pop to track break/continue
// targets across (possibly nested) loops.
type loopState struct {
	start      int
	scopeDepth int
	loopDepth  int
	breakJumps []int
}

// classState is the class-compiler frame stack entry, tracking only
// whether the class currently being compiled has a superclass (so `super`
// resolves correctly inside its method bodies).
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler is one per-function compilation frame. Frames
// chain via enclosing so the GC can walk every in-progress function via
// markCompilerRoots even if a collection is triggered mid-parse.
type Compiler struct {
	enclosing *Compiler
	fn        *ObjFunction
	kind      FunctionKind

	locals     []local
	scopeDepth int

	upvalues []upvalueDesc

	loops     []loopState
	loopDepth int
}

func (p *Parser) newCompiler(enclosing *Compiler, kind FunctionKind, name string) *Compiler {
	c := &Compiler{enclosing: enclosing, kind: kind}
	c.fn = p.vm.gc.NewFunction()
	// Thread the frame onto the compiler chain before the name string is
	// allocated: a collection triggered by CopyString must already be able
	// to reach the fresh function through markCompilerRoots.
	p.frame = c
	p.vm.activeCompiler = c
	if name != "" {
		c.fn.Name = p.vm.gc.CopyString([]byte(name))
	}
	// Slot 0 is reserved: the receiver for method/builder, anonymous
	// otherwise.
	recv := ""
	if kind == KindMethod || kind == KindBuilder {
		recv = "this"
	}
	c.locals = append(c.locals, local{name: recv, depth: 0})
	return c
}

func (c *Compiler) currentChunk() *Chunk { return c.fn.Chunk }

// Parser drives the single-pass Pratt parser: it owns the token stream and
// the chain of in-progress Compiler/classState frames.
type Parser struct {
	vm *VM

	lx       *lexer.Lexer
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool

	frame *Compiler // the innermost compiler frame
	class *classState
}

// Compile parses source into a top-level script function attached to vm,
// or returns an error if any compile error was reported.
func Compile(vm *VM, source string) (fn *ObjFunction, err error) {
	p := &Parser{vm: vm, lx: lexer.New(source)}
	p.pushCompiler(KindScript, "")

	defer func() {
		vm.activeCompiler = nil
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				err = fmt.Errorf("compile error: %s", msg)
				fn = nil
				return
			}
			panic(r)
		}
	}()

	p.advance()
	for !p.match(token.EOF) {
		p.declaration()
	}
	fn = p.endCompiler()
	if p.hadError {
		return nil, fmt.Errorf("compile error")
	}
	return fn, nil
}

// ---- token stream ----

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.lx.Next()
		if p.current.Type != token.ERROR {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Type, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

// ---- error reporting / panic-mode recovery ----

func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true
	where := tok.Lexeme
	if tok.Type == token.EOF {
		where = "end"
	}
	fmt.Fprintf(p.vm.Err, "[line %d] Error at '%s': %s\n", tok.Line, where, msg)
}

func (p *Parser) error(msg string)          { p.errorAt(p.previous, msg) }
func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }

// synchronize consumes tokens until a likely statement boundary, so a
// single parse error doesn't cascade.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		switch p.current.Type {
		case token.CLASS, token.FN, token.VAR, token.LET, token.CONST,
			token.FOR, token.IF, token.WHILE, token.RETURN, token.BREAK, token.CONTINUE:
			return
		}
		p.advance()
	}
}

// ---- emission helpers ----

func (p *Parser) line() int { return p.previous.Line }

func (p *Parser) emitByte(b byte)  { p.frame.currentChunk().WriteByte(b, p.line()) }
func (p *Parser) emitOp(op Opcode) { p.frame.currentChunk().WriteOp(op, p.line()) }

func (p *Parser) emitConstant(v Value) { p.frame.currentChunk().WriteConstant(v, p.line()) }

// emitJump writes op followed by a placeholder u16 operand, returning the
// operand's offset for later patchJump.
func (p *Parser) emitJump(op Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.frame.currentChunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.frame.currentChunk().Code) - offset - 2
	if jump > maxJump {
		panic("too much code to jump over")
	}
	p.frame.currentChunk().PatchU16(offset, uint16(jump))
}

// emitLoop writes a backward OP_LOOP to loopStart.
func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(OP_LOOP)
	offset := len(p.frame.currentChunk().Code) - loopStart + 2
	if offset > maxJump {
		panic("loop body too large")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// emitReturn emits a bare fall-off-the-end return: null for every function
// kind except a builder, which the VM forces to `this` regardless of what
// is pushed here (vm_exec.go OP_RETURN substitutes f.bound when
// IsConstructor is set).
func (p *Parser) emitReturn() {
	p.emitOp(OP_NULL)
	p.emitOp(OP_RETURN)
}

// ---- function / scope lifecycle ----

// pushCompiler enters a nested function/method/builder compilation unit,
// threading it onto vm.activeCompiler so a GC triggered mid-parse can still
// reach the work-in-progress function.
func (p *Parser) pushCompiler(kind FunctionKind, name string) {
	p.newCompiler(p.frame, kind, name)
}

func (p *Parser) beginScope() { p.frame.scopeDepth++ }

func (p *Parser) endScope() {
	c := p.frame
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		last := c.locals[len(c.locals)-1]
		if last.isCaptured {
			p.emitOp(OP_CLOSE_UPVALUE)
		} else {
			p.emitOp(OP_POP)
		}
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// endCompiler finishes the current function, emits an implicit trailing
// return (always, even after an explicit one), and pops back to the enclosing compiler,
// emitting OP_CLOSURE for the finished function into the caller's chunk.
func (p *Parser) endCompiler() *ObjFunction {
	p.emitReturn()
	fn := p.frame.fn
	fn.UpvalueCount = len(p.frame.upvalues)

	enclosing := p.frame.enclosing
	if enclosing != nil {
		upvals := p.frame.upvalues
		p.frame = enclosing
		p.vm.activeCompiler = enclosing
		idx := p.frame.currentChunk().AddConstant(ObjVal(fn))
		p.emitOp(OP_CLOSURE)
		p.emitByte(byte(idx))
		p.emitByte(byte(idx >> 8))
		p.emitByte(byte(idx >> 16))
		for _, u := range upvals {
			if u.isLocal {
				p.emitByte(1)
			} else {
				p.emitByte(0)
			}
			p.emitByte(u.index)
		}
	} else {
		p.frame = nil
	}
	return fn
}
