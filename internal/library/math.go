package library

import (
	"math"

	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// registerMath wires the `math` library.
func registerMath(v *vm.VM) {
	v.DefineLibrary("math", func(state *vm.VM, ns *vm.ObjNamespace) {
		defineConst(ns, "pi", true, vm.NumberVal(math.Pi))
		defineConst(ns, "e", true, vm.NumberVal(math.E))
		define(state, ns, "sqrt", true, math1(math.Sqrt))
		define(state, ns, "abs", true, math1(math.Abs))
		define(state, ns, "floor", true, math1(math.Floor))
		define(state, ns, "ceil", true, math1(math.Ceil))
		define(state, ns, "round", true, math1(math.Round))
		define(state, ns, "sin", true, math1(math.Sin))
		define(state, ns, "cos", true, math1(math.Cos))
		define(state, ns, "log", true, math1(math.Log))
		define(state, ns, "pow", true, nativePow)
		define(state, ns, "min", true, nativeMin)
		define(state, ns, "max", true, nativeMax)
	})
}

// math1 adapts a single-argument Go math function into a NativeFn.
func math1(fn func(float64) float64) vm.NativeFn {
	return func(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
		if r, good := expectArgs(argc, 1); !good {
			return r
		}
		n, r, good := wantNumber(args[0], 0)
		if !good {
			return r
		}
		return ok(vm.NumberVal(fn(n)))
	}
}

func nativePow(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	base, r, good := wantNumber(args[0], 0)
	if !good {
		return r
	}
	exp, r, good := wantNumber(args[1], 1)
	if !good {
		return r
	}
	return ok(vm.NumberVal(math.Pow(base, exp)))
}

func nativeMin(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	a, r, good := wantNumber(args[0], 0)
	if !good {
		return r
	}
	b, r, good := wantNumber(args[1], 1)
	if !good {
		return r
	}
	return ok(vm.NumberVal(math.Min(a, b)))
}

func nativeMax(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	a, r, good := wantNumber(args[0], 0)
	if !good {
		return r
	}
	b, r, good := wantNumber(args[1], 1)
	if !good {
		return r
	}
	return ok(vm.NumberVal(math.Max(a, b)))
}
