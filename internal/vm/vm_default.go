package vm

import "fmt"

// callDefaultMethod pushes the receiver and args, invokes the closure, runs
// the nested interpreter to completion, and returns its result.
func (vm *VM) callDefaultMethod(closure *ObjClosure, receiver Value, args []Value) (Value, error) {
	entry := vm.frameCount
	vm.push(receiver)
	for _, a := range args {
		vm.push(a)
	}
	if err := vm.callClosure(closure, len(args), receiver); err != nil {
		return NullVal(), err
	}
	return vm.run(entry)
}

// valuesEqual is the runtime-dispatching equality OP_EQUAL uses: same
// variant first, string/primitive equality, otherwise identity unless the
// class defines `def eq`.
func (vm *VM) valuesEqual(a, b Value) (bool, error) {
	if a.Type != b.Type {
		return false, nil
	}
	switch a.Type {
	case ValNull:
		return true, nil
	case ValBool:
		return a.Bool == b.Bool, nil
	case ValNumber:
		return a.Num == b.Num, nil
	case ValObj:
		if as, ok := a.Obj.(*ObjString); ok {
			bs, ok2 := b.Obj.(*ObjString)
			if !ok2 {
				return false, nil
			}
			return as == bs || (as.Hash == bs.Hash && bytesEqual(as.Chars, bs.Chars)), nil
		}
		if ai, ok := a.Obj.(*ObjInstance); ok {
			if m := ai.Class.Defaults[DefaultEq]; m != nil {
				res, err := vm.callDefaultMethod(m, a, []Value{b})
				if err != nil {
					return false, err
				}
				return !res.Falsey(), nil
			}
		}
		return a.Obj == b.Obj, nil
	}
	return false, nil
}

// stringify renders v the way the host prints it, consulting the class's
// `def string` default method for instances, falling back to
// "<addr classname>" if unset.
func (vm *VM) stringify(v Value) (string, error) {
	if inst, ok := v.Obj.(*ObjInstance); ok && v.Type == ValObj {
		if m := inst.Class.Defaults[DefaultString]; m != nil {
			res, err := vm.callDefaultMethod(m, v, nil)
			if err != nil {
				return "", err
			}
			return res.String(), nil
		}
		return fmt.Sprintf("<%p %s>", inst, string(inst.Class.Name.Chars)), nil
	}
	return v.String(), nil
}

// hashValue consults the class's `def hash` default method, falling back to
// a hash of the fallback string representation. A non-number
// result from `def hash` is a runtime error.
func (vm *VM) hashValue(v Value) (uint32, error) {
	if inst, ok := v.Obj.(*ObjInstance); ok && v.Type == ValObj {
		if m := inst.Class.Defaults[DefaultHash]; m != nil {
			res, err := vm.callDefaultMethod(m, v, nil)
			if err != nil {
				return 0, err
			}
			if res.Type != ValNumber {
				return 0, vm.runtimeError("def hash must return a number")
			}
			return uint32(int64(res.Num)), nil
		}
		fallback := fmt.Sprintf("<%p %s>", inst, string(inst.Class.Name.Chars))
		return fnv1a([]byte(fallback)), nil
	}
	return v.Hash(), nil
}

// Hash gives a stable hash for primitives and strings; any other heap
// object hashes to 0.
func (v Value) Hash() uint32 {
	switch v.Type {
	case ValNull:
		return 0
	case ValBool:
		if v.Bool {
			return 1
		}
		return 0
	case ValNumber:
		return fnv1a([]byte(fmt.Sprintf("%g", v.Num)))
	case ValObj:
		if s, ok := v.Obj.(*ObjString); ok {
			return s.Hash
		}
	}
	return 0
}
