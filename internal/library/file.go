package library

import (
	"os"

	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// registerFile wires the `file` library.
// Every native here does host I/O directly and surfaces a Go error as a
// runtime error through the {success, Value} convention rather
// than panicking - host I/O failures are recoverable from npz's point of
// view even though the CLI driver exits non-zero on its own I/O failures.
func registerFile(v *vm.VM) {
	v.DefineLibrary("file", func(state *vm.VM, ns *vm.ObjNamespace) {
		define(state, ns, "read", true, nativeFileRead)
		define(state, ns, "write", true, nativeFileWrite)
		define(state, ns, "append", true, nativeFileAppend)
		define(state, ns, "exists", true, nativeFileExists)
	})
}

func nativeFileRead(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	path, r, good := wantString(args[0], 0)
	if !good {
		return r
	}
	data, err := os.ReadFile(string(path.Chars))
	if err != nil {
		return fail("%s", err)
	}
	return ok(vm.ObjVal(state.GC().CopyString(data)))
}

func nativeFileWrite(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	path, r, good := wantString(args[0], 0)
	if !good {
		return r
	}
	body, r, good := wantString(args[1], 1)
	if !good {
		return r
	}
	if err := os.WriteFile(string(path.Chars), body.Chars, 0o644); err != nil {
		return fail("%s", err)
	}
	return ok(vm.NullVal())
}

func nativeFileAppend(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 2); !good {
		return r
	}
	path, r, good := wantString(args[0], 0)
	if !good {
		return r
	}
	body, r, good := wantString(args[1], 1)
	if !good {
		return r
	}
	f, err := os.OpenFile(string(path.Chars), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fail("%s", err)
	}
	defer f.Close()
	if _, err := f.Write(body.Chars); err != nil {
		return fail("%s", err)
	}
	return ok(vm.NullVal())
}

func nativeFileExists(state *vm.VM, argc int, args []vm.Value) vm.NativeResult {
	if r, good := expectArgs(argc, 1); !good {
		return r
	}
	path, r, good := wantString(args[0], 0)
	if !good {
		return r
	}
	_, err := os.Stat(string(path.Chars))
	return ok(vm.BoolVal(err == nil))
}
