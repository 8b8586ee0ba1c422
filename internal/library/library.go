// Package library implements npz's native library surface: the std,
// math, file, vector, and map libraries registered onto a VM before it
// runs a program. Each library is a registration-only shim
// around the object model the VM already owns - no new VM opcodes or
// object variants are introduced here.
package library

import (
	"fmt"

	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// RegisterAll wires every built-in library onto vm, as a CLI driver would
// before compiling/running a user program. The bare global builtins
// (println and friends) are defined eagerly; the named libraries are
// registered lazily and materialize on first import.
func RegisterAll(v *vm.VM) {
	registerGlobals(v)
	registerStd(v)
	registerMath(v)
	registerFile(v)
	registerVector(v)
	registerMap(v)
}

// ok/fail build the {success, Value} native return convention every
// library in this package follows.
func ok(v vm.Value) vm.NativeResult { return vm.NativeResult{OK: true, Value: v} }
func fail(format string, a ...interface{}) vm.NativeResult {
	return vm.NativeResult{OK: false, Err: fmt.Sprintf(format, a...)}
}

// expectArgs reports a uniform "expected N, got M" arity-mismatch error.
func expectArgs(argc, expected int) (vm.NativeResult, bool) {
	if argc != expected {
		return fail("expected %d, got %d", expected, argc), false
	}
	return vm.NativeResult{}, true
}

// define registers a native function into ns, as every library's
// initializer does for each of its symbols.
func define(v *vm.VM, ns *vm.ObjNamespace, name string, public bool, fn vm.NativeFn) {
	native := v.GC().NewNative(name, fn)
	ns.Values[name] = vm.ObjVal(native)
	ns.Publics[name] = public
}

// defineConst registers a plain value (not a function) into ns.
func defineConst(ns *vm.ObjNamespace, name string, public bool, value vm.Value) {
	ns.Values[name] = value
	ns.Publics[name] = public
}

func wantNumber(v vm.Value, argIdx int) (float64, vm.NativeResult, bool) {
	if v.Type != vm.ValNumber {
		return 0, fail("argument %d must be a number", argIdx), false
	}
	return v.Num, vm.NativeResult{}, true
}

func wantString(v vm.Value, argIdx int) (*vm.ObjString, vm.NativeResult, bool) {
	s, ok := v.Obj.(*vm.ObjString)
	if v.Type != vm.ValObj || !ok {
		return nil, fail("argument %d must be a string", argIdx), false
	}
	return s, vm.NativeResult{}, true
}

func wantList(v vm.Value, argIdx int) (*vm.ObjList, vm.NativeResult, bool) {
	l, ok := v.Obj.(*vm.ObjList)
	if v.Type != vm.ValObj || !ok {
		return nil, fail("argument %d must be a list", argIdx), false
	}
	return l, vm.NativeResult{}, true
}
