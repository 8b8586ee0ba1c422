package library

import (
	"github.com/google/uuid"

	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// mapTypeTag discriminates the map library's opaque pointer from any
// other library's ObjPointer payloads sharing the same VM. The map
// library sits atop an opaque pointer rather than a new object variant,
// since the runtime has no dedicated hash-map type; every allocated
// handle also gets a unique google/uuid origin tag. The natives check
// only the type tag, and a map prints as "<map>", so the origin does not
// appear in output or error messages.
const mapTypeTag = 1

// hashMap is the Go-native payload behind a map.new() opaque pointer.
// order tracks insertion order so keys()/iteration is deterministic.
type hashMap struct {
	values map[string]vm.Value
	order  []string
}

func registerMap(v *vm.VM) {
	v.DefineLibrary("map", func(state *vm.VM, ns *vm.ObjNamespace) {
		define(state, ns, "new", true, nativeMapNew)
		define(state, ns, "put", true, nativeMapPut)
		define(state, ns, "get", true, nativeMapGet)
		define(state, ns, "has", true, nativeMapHas)
		define(state, ns, "remove", true, nativeMapRemove)
		define(state, ns, "len", true, nativeMapLen)
		define(state, ns, "keys", true, nativeMapKeys)
	})
}

func asHashMap(v vm.Value, argIdx int) (*hashMap, vm.NativeResult, bool) {
	p, isPtr := v.Obj.(*vm.ObjPointer)
	if v.Type != vm.ValObj || !isPtr || p.TypeTag != mapTypeTag {
		return nil, fail("argument %d must be a map", argIdx), false
	}
	m, _ := p.Ptr.(*hashMap)
	return m, vm.NativeResult{}, true
}

// mapKey renders any hashable value to the string key the Go-native map is
// keyed by - a simplification over a full user-hash-aware bucket table,
// adequate for a registration-only surface.
func mapKey(v vm.Value) string { return v.String() }

func nativeMapNew(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 0); !good {
		return r
	}
	state.GC().PauseGC()
	defer state.GC().UnpauseGC()

	m := &hashMap{values: map[string]vm.Value{}}
	ptr := state.GC().NewPointer(uuid.NewString(), mapTypeTag, m)
	ptr.Blacken = func(gc *vm.GC) {
		for _, k := range m.order {
			gc.MarkValue(m.values[k])
		}
	}
	ptr.Str = func() string { return "<map>" }
	return ok(vm.ObjVal(ptr))
}

func nativeMapPut(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 3); !good {
		return r
	}
	m, r, good := asHashMap(args[0], 0)
	if !good {
		return r
	}
	key := mapKey(args[1])
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = args[2]
	return ok(args[0])
}

func nativeMapGet(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	m, r, good := asHashMap(args[0], 0)
	if !good {
		return r
	}
	v, exists := m.values[mapKey(args[1])]
	if !exists {
		return ok(vm.NullVal())
	}
	return ok(v)
}

func nativeMapHas(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	m, r, good := asHashMap(args[0], 0)
	if !good {
		return r
	}
	_, exists := m.values[mapKey(args[1])]
	return ok(vm.BoolVal(exists))
}

func nativeMapRemove(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	m, r, good := asHashMap(args[0], 0)
	if !good {
		return r
	}
	key := mapKey(args[1])
	if _, exists := m.values[key]; !exists {
		return ok(vm.BoolVal(false))
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return ok(vm.BoolVal(true))
}

func nativeMapLen(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	m, r, good := asHashMap(args[0], 0)
	if !good {
		return r
	}
	return ok(vm.NumberVal(float64(len(m.values))))
}

func nativeMapKeys(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	m, r, good := asHashMap(args[0], 0)
	if !good {
		return r
	}
	items := make([]vm.Value, len(m.order))
	for i, k := range m.order {
		items[i] = vm.ObjVal(state.GC().CopyString([]byte(k)))
	}
	return ok(vm.ObjVal(state.GC().NewList(items)))
}
