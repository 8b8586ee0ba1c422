package vm

import (
	"fmt"
	"io"
	"os"
)

// Fixed interpreter limits.
const (
	MaxFrames     = 64
	StackPerFrame = 256
	MaxStack      = MaxFrames * StackPerFrame
)

// CallFrame is one in-flight call: its closure, instruction pointer, stack
// base, and lexical binder.
type CallFrame struct {
	closure *ObjClosure
	ip      int
	base    int
	bound   Value // the lexical container (instance/class/namespace) for `this`
}

// InterpretResult is the coarse outcome of running a function to completion.
type InterpretResult int

const (
	InterpretOK InterpretResult = iota
	InterpretCompileError
	InterpretRuntimeError
)

// RuntimeError is the VM's own typed fatal-run error.
type RuntimeError struct {
	Message string
	Trace   []string // one "[line N] in <name>" entry per unwound frame
}

func (e *RuntimeError) Error() string { return e.Message }

// VM is the stack-based interpreter: call frames, value stack, open
// upvalues, globals, library registry and intern table.
type VM struct {
	stack []Value
	sp    int

	frames     []CallFrame
	frameCount int

	openUpvalues *ObjUpvalue // ordered descending by stack slot address

	globals   map[string]Value
	libraries map[string]*ObjLibrary

	importedFiles map[string]*ObjNamespace // IMPORT_FILE cache, keyed by literal file name
	currentNS     *ObjNamespace

	gc *GC

	// activeCompiler threads the chain of in-progress compiler frames so
	// the GC can walk their not-yet-finished functions.
	activeCompiler *Compiler

	// safeMode counts open PushSafe brackets; InSafeMode reports it.
	safeMode int

	// keepTop prevents the top-level script's return value from being
	// implicitly popped, so an embedder can inspect peek(0) after InterpretErr.
	keepTop int

	Out io.Writer
	Err io.Writer

	cmdArgs []string

	// ImportFile backs OP_IMPORT_FILE: the embedder supplies how a literal
	// file-path argument is compiled and run to produce a namespace. Left
	// nil, file imports report a runtime error.
	ImportFile func(path string) (*ObjNamespace, error)
}

// New creates a VM with its own GC, globals table and library registry.
func New() *VM {
	gc := NewGC()
	vm := &VM{
		stack:         make([]Value, MaxStack),
		frames:        make([]CallFrame, MaxFrames),
		globals:       map[string]Value{},
		libraries:     map[string]*ObjLibrary{},
		importedFiles: map[string]*ObjNamespace{},
		gc:            gc,
		Out:           os.Stdout,
		Err:           os.Stderr,
	}
	gc.vm = vm
	return vm
}

func (vm *VM) push(v Value) {
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) frame() *CallFrame { return &vm.frames[vm.frameCount-1] }

// resetStack clears the stack and frame count to empty, the "never unwinds
// partially" contract for a runtime error.
func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// runtimeError formats a fatal runtime error with a per-frame stack trace
// (line, function name) and resets the stack. It prints nothing; the error
// is returned to the caller, whatever safeMode is.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	trace := make([]string, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		line := f.closure.Function.Chunk.GetLine(f.ip - 1)
		name := "<script>"
		if f.closure.Function.Name != nil {
			name = string(f.closure.Function.Name.Chars)
		}
		trace = append(trace, fmt.Sprintf("[line %d] in %s", line, name))
	}
	vm.resetStack()
	return &RuntimeError{Message: msg, Trace: trace}
}

// DefineLibrary registers a library under name with an initializer that
// will populate its namespace on first IMPORT.
func (vm *VM) DefineLibrary(name string, init func(vm *VM, ns *ObjNamespace)) {
	vm.libraries[name] = vm.gc.NewLibrary(name, init)
}

// GC exposes the VM's allocator to native library code that needs to
// construct strings, lists or opaque pointers.
func (vm *VM) GC() *GC { return vm.gc }

// CmdArgs returns the arguments forwarded by `-R <bin> [args...]`,
// exposed to native code as the `cmdargs()` builtin.
func (vm *VM) CmdArgs() []string { return vm.cmdArgs }

func (vm *VM) SetCmdArgs(args []string) { vm.cmdArgs = args }
