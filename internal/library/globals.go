package library

import (
	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// registerGlobals defines the always-available builtins directly in the
// global table, callable without any import: output, stringification,
// length, the basic list mutators, and clock. The `std` library exposes
// the same surface under a namespace for programs that prefer qualified
// names.
func registerGlobals(v *vm.VM) {
	v.DefineNative("print", nativePrint)
	v.DefineNative("println", nativePrintln)
	v.DefineNative("asString", nativeAsString)
	v.DefineNative("length", nativeLength)

	v.DefineNative("append", nativeAppend)
	v.DefineNative("remove", nativeRemove)
	v.DefineNative("pop", nativePop)

	v.DefineNative("clock", nativeClock)
}

func nativeAsString(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	s, err := state.Stringify(args[0])
	if err != nil {
		return fail("%s", err)
	}
	return ok(vm.ObjVal(state.GC().CopyString([]byte(s))))
}

func nativeLength(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	switch o := args[0].Obj.(type) {
	case *vm.ObjString:
		if args[0].Type == vm.ValObj {
			return ok(vm.NumberVal(float64(len(o.Chars))))
		}
	case *vm.ObjList:
		if args[0].Type == vm.ValObj {
			return ok(vm.NumberVal(float64(len(o.Items))))
		}
	}
	return fail("cannot measure length of the given value")
}

// nativeAppend pushes an element onto a list, returning the new length.
func nativeAppend(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	l.Items = append(l.Items, args[1])
	return ok(vm.NumberVal(float64(len(l.Items))))
}

// nativeRemove deletes the element at an index (negative counts from the
// end), returning the new length.
func nativeRemove(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	n, r, good := wantNumber(args[1], 1)
	if !good {
		return r
	}
	idx := int(n)
	if idx < 0 {
		idx += len(l.Items)
	}
	if idx < 0 || idx >= len(l.Items) {
		return fail("index %d out of range (len %d)", idx, len(l.Items))
	}
	l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
	return ok(vm.NumberVal(float64(len(l.Items))))
}

func nativePop(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	if len(l.Items) == 0 {
		return fail("cannot pop from an empty list")
	}
	last := l.Items[len(l.Items)-1]
	l.Items = l.Items[:len(l.Items)-1]
	return ok(last)
}
