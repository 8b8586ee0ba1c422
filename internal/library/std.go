package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// registerStd wires the `std` library: the namespaced twin of the global
// builtin surface, plus cmdargs() exposing `-R <bin> [args...]` forwarded
// arguments.
func registerStd(v *vm.VM) {
	v.DefineLibrary("std", func(state *vm.VM, ns *vm.ObjNamespace) {
		define(state, ns, "println", true, nativePrintln)
		define(state, ns, "print", true, nativePrint)
		define(state, ns, "asString", true, nativeAsString)
		define(state, ns, "length", true, nativeLength)
		define(state, ns, "append", true, nativeAppend)
		define(state, ns, "remove", true, nativeRemove)
		define(state, ns, "pop", true, nativePop)
		define(state, ns, "clock", true, nativeClock)
		define(state, ns, "cmdargs", true, nativeCmdArgs)
	})
}

// stringifyArgs renders each argument through Stringify so a class's
// `def string` is honored.
func stringifyArgs(state *vm.VM, args []vm.Value) (string, vm.NativeResult, bool) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := state.Stringify(a)
		if err != nil {
			r := fail("%s", err)
			return "", r, false
		}
		parts[i] = s
	}
	return strings.Join(parts, " "), vm.NativeResult{}, true
}

func nativePrintln(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	line, r, good := stringifyArgs(state, args)
	if !good {
		return r
	}
	fmt.Fprintln(state.Out, line)
	return ok(vm.NullVal())
}

func nativePrint(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	line, r, good := stringifyArgs(state, args)
	if !good {
		return r
	}
	fmt.Fprint(state.Out, line)
	return ok(vm.NullVal())
}

// nativeClock is purely observational: it never blocks or suspends.
func nativeClock(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 0); !good {
		return r
	}
	return ok(vm.NumberVal(float64(time.Now().UnixNano()) / 1e9))
}

// nativeCmdArgs exposes the arguments forwarded by `-R <bin> [args...]`
// as an npz list of strings.
func nativeCmdArgs(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 0); !good {
		return r
	}
	cmdArgs := state.CmdArgs()
	items := make([]vm.Value, len(cmdArgs))
	for i, a := range cmdArgs {
		items[i] = vm.ObjVal(state.GC().CopyString([]byte(a)))
	}
	return ok(vm.ObjVal(state.GC().NewList(items)))
}
