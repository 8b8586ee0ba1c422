package vm

// Interpret runs a freshly compiled top-level function to completion,
// returning its final value alongside the coarse InterpretResult the CLI
// driver uses to pick an exit code.
//
// keepTop (SetKeepTop) controls whether the top-level script's return value
// stays pushed on the stack after InterpretErr returns, so an embedder can
// inspect vm.peek(0); the CLI driver sets it on the child VM that runs an
// imported file.
func (vm *VM) Interpret(fn *ObjFunction) (Value, InterpretResult) {
	v, result, _ := vm.InterpretErr(fn)
	return v, result
}

// InterpretErr is Interpret plus the underlying *RuntimeError (nil on
// InterpretOK), so a driver can print the per-frame stack trace (line,
// function name) the interpreter computed while unwinding.
func (vm *VM) InterpretErr(fn *ObjFunction) (Value, InterpretResult, error) {
	vm.resetStack()
	closure := vm.gc.NewClosure(fn)
	vm.push(ObjVal(closure))
	if err := vm.callClosure(closure, 0, NullVal()); err != nil {
		return NullVal(), InterpretRuntimeError, err
	}

	result, err := vm.run(0)
	if err != nil {
		return NullVal(), InterpretRuntimeError, err
	}
	if vm.keepTop > 0 {
		vm.push(result)
	}
	return result, InterpretOK, nil
}

// SetKeepTop toggles whether Interpret leaves its result pushed on the stack
// afterwards.
func (vm *VM) SetKeepTop(keep bool) {
	if keep {
		vm.keepTop++
	} else if vm.keepTop > 0 {
		vm.keepTop--
	}
}

// PushSafe brackets a speculative call (used by library natives that need
// to invoke back into npz code, e.g. a callback passed to a `map`/`filter`
// native). The bracket only moves the counter InSafeMode reports: a runtime
// error inside the call still resets the whole stack and frame count, and
// Call returns it to the native.
func (vm *VM) PushSafe() { vm.safeMode++ }
func (vm *VM) PopSafe()  { vm.safeMode-- }

// InSafeMode reports whether a PushSafe bracket is open.
func (vm *VM) InSafeMode() bool { return vm.safeMode > 0 }

// Globals exposes this VM's global table, the table TakeNamespace packages
// into the namespace IMPORT_FILE hands back to the importing VM.
func (vm *VM) Globals() map[string]Value { return vm.globals }

// Stringify renders v the way the host prints it, dispatching an
// instance's `def string` default method if its class defines one.
func (vm *VM) Stringify(v Value) (string, error) { return vm.stringify(v) }

// HashValue hashes v, dispatching an instance's `def hash` default method
// if its class defines one.
func (vm *VM) HashValue(v Value) (uint32, error) { return vm.hashValue(v) }

// DefineNative registers a native function directly in the global table,
// the always-available builtins a program can call without any import.
func (vm *VM) DefineNative(name string, fn NativeFn) {
	vm.globals[name] = ObjVal(vm.gc.NewNative(name, fn))
}

// SetCurrentNamespace creates the namespace this VM's file-level script
// compiles into and makes it the VM's current namespace: classes declared
// while it is set get it as their lexical binder, so their methods can
// resolve sibling file-level names through the bound chain.
func (vm *VM) SetCurrentNamespace(name string) *ObjNamespace {
	vm.gc.PauseGC()
	defer vm.gc.UnpauseGC()
	vm.currentNS = vm.gc.NewNamespace(vm.gc.CopyString([]byte(name)))
	return vm.currentNS
}

// TakeNamespace packages this VM's globals as a namespace (the current
// namespace if one was set, a fresh one otherwise) and adopts every object
// this VM's GC tracks onto parentGC, so the namespace and everything it
// reaches survive after this VM is discarded. This is the "fresh VM is
// initialized ... the resulting namespace is transferred back" migration
// IMPORT_FILE performs.
func (vm *VM) TakeNamespace(parentGC *GC, name string) *ObjNamespace {
	ns := vm.currentNS
	if ns == nil {
		ns = vm.SetCurrentNamespace(name)
	}
	for k, v := range vm.globals {
		ns.Values[k] = v
		ns.Publics[k] = true
	}
	parentGC.Adopt(vm.gc)
	return ns
}

// Call invokes an arbitrary callable Value (closure, bound method, native,
// or class) from Go code with the given arguments, running it to
// completion. Used by library natives that accept callbacks.
func (vm *VM) Call(callee Value, args []Value) (Value, error) {
	entry := vm.frameCount
	vm.push(callee)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callValue(callee, len(args)); err != nil {
		return NullVal(), err
	}
	if vm.frameCount == entry {
		// A native ran synchronously; its result already replaced the call
		// region on the stack.
		return vm.pop(), nil
	}
	return vm.run(entry)
}
