package library

import (
	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// registerVector wires the `vector` library, a set of natives over the existing ObjList runtime
// representation - no new object variant is introduced.
func registerVector(v *vm.VM) {
	v.DefineLibrary("vector", func(state *vm.VM, ns *vm.ObjNamespace) {
		define(state, ns, "new", true, nativeVectorNew)
		define(state, ns, "push", true, nativeVectorPush)
		define(state, ns, "pop", true, nativeVectorPop)
		define(state, ns, "len", true, nativeVectorLen)
		define(state, ns, "get", true, nativeVectorGet)
		define(state, ns, "set", true, nativeVectorSet)
		define(state, ns, "map", true, nativeVectorMap)
		define(state, ns, "filter", true, nativeVectorFilter)
		define(state, ns, "forEach", true, nativeVectorForEach)
	})
}

func nativeVectorNew(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	items := make([]vm.Value, argc)
	copy(items, args)
	return ok(vm.ObjVal(state.GC().NewList(items)))
}

func nativeVectorPush(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if argc != 2 {
		return fail("expected 2, got %d", argc)
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	l.Items = append(l.Items, args[1])
	return ok(args[0])
}

func nativeVectorPop(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	if len(l.Items) == 0 {
		return fail("cannot pop from an empty vector")
	}
	last := l.Items[len(l.Items)-1]
	l.Items = l.Items[:len(l.Items)-1]
	return ok(last)
}

func nativeVectorLen(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	return ok(vm.NumberVal(float64(len(l.Items))))
}

func nativeVectorGet(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	idx, r, good := wantNumber(args[1], 1)
	if !good {
		return r
	}
	i := int(idx)
	if i < 0 || i >= len(l.Items) {
		return fail("index %d out of range (len %d)", i, len(l.Items))
	}
	return ok(l.Items[i])
}

func nativeVectorSet(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 3); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	idx, r, good := wantNumber(args[1], 1)
	if !good {
		return r
	}
	i := int(idx)
	if i < 0 || i >= len(l.Items) {
		return fail("index %d out of range (len %d)", i, len(l.Items))
	}
	l.Items[i] = args[2]
	return ok(args[2])
}

// nativeVectorMap applies a callable to every element, collecting results
// into a fresh list.
func nativeVectorMap(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	fn := args[1]
	out := make([]vm.Value, len(l.Items))
	state.PushSafe()
	defer state.PopSafe()
	for i, item := range l.Items {
		res, err := state.Call(fn, []vm.Value{item})
		if err != nil {
			return fail("%s", err)
		}
		out[i] = res
	}
	return ok(vm.ObjVal(state.GC().NewList(out)))
}

func nativeVectorFilter(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	fn := args[1]
	out := make([]vm.Value, 0, len(l.Items))
	state.PushSafe()
	defer state.PopSafe()
	for _, item := range l.Items {
		res, err := state.Call(fn, []vm.Value{item})
		if err != nil {
			return fail("%s", err)
		}
		if !res.Falsey() {
			out = append(out, item)
		}
	}
	return ok(vm.ObjVal(state.GC().NewList(out)))
}

func nativeVectorForEach(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	l, r, good := wantList(args[0], 0)
	if !good {
		return r
	}
	fn := args[1]
	state.PushSafe()
	defer state.PopSafe()
	for _, item := range l.Items {
		if _, err := state.Call(fn, []vm.Value{item}); err != nil {
			return fail("%s", err)
		}
	}
	return ok(vm.NullVal())
}
