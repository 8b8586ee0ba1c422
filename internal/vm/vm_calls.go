package vm

// callValue dispatches a CALL instruction based on the callee's runtime
// type: closure, class (construction), bound method, or native.
func (vm *VM) callValue(callee Value, argCount int) error {
	if callee.Type != ValObj {
		return vm.runtimeError("can only call functions and classes")
	}
	switch fn := callee.Obj.(type) {
	case *ObjClosure:
		return vm.callClosure(fn, argCount, NullVal())
	case *ObjClass:
		return vm.callClass(fn, argCount)
	case *ObjBoundMethod:
		// Replace the call target with the receiver, call the closure with
		// the receiver as binder.
		vm.stack[vm.sp-argCount-1] = fn.Receiver
		return vm.callClosure(fn.Method, argCount, fn.Receiver)
	case *ObjNative:
		return vm.callNative(fn, argCount)
	default:
		return vm.runtimeError("can only call functions and classes")
	}
}

// callClosure pushes a new call frame after checking arity matches exactly.
func (vm *VM) callClosure(closure *ObjClosure, argCount int, bound Value) error {
	if argCount != closure.Function.Arity {
		return vm.runtimeError("expected %d arguments but got %d", closure.Function.Arity, argCount)
	}
	if vm.frameCount >= MaxFrames {
		return vm.runtimeError("stack overflow")
	}
	f := &vm.frames[vm.frameCount]
	vm.frameCount++
	f.closure = closure
	f.ip = 0
	f.base = vm.sp - argCount - 1
	f.bound = bound
	return nil
}

// callClass constructs a new instance seeded from the class field template,
// replaces the call target on the stack with it, then invokes the
// constructor (if any) with the same arguments.
func (vm *VM) callClass(class *ObjClass, argCount int) error {
	instance := vm.gc.NewInstance(class)
	vm.stack[vm.sp-argCount-1] = ObjVal(instance)
	if class.Constructor != nil {
		return vm.callClosure(class.Constructor, argCount, ObjVal(instance))
	}
	if argCount != 0 {
		return vm.runtimeError("expected 0 arguments but got %d", argCount)
	}
	return nil
}

// callNative invokes a native callback and replaces the argc+1 call region
// with its result, or propagates a runtime error.
func (vm *VM) callNative(native *ObjNative, argCount int) error {
	args := make([]Value, argCount)
	copy(args, vm.stack[vm.sp-argCount:vm.sp])
	result := native.Fn(vm, argCount, args)
	vm.sp -= argCount + 1
	if !result.OK {
		return vm.runtimeError("%s", result.Err)
	}
	vm.push(result.Value)
	return nil
}

// invoke fuses a property lookup with a call (OP_INVOKE), avoiding the
// intermediate BoundMethod allocation the general path would need.
func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	if receiver.Type != ValObj {
		return vm.runtimeError("only instances have methods")
	}
	switch r := receiver.Obj.(type) {
	case *ObjInstance:
		if attr, ok := r.Fields[name]; ok {
			if !attr.Public && !vm.isInternalAccess(r.Class) {
				return vm.runtimeError("property '%s' is not accessible", name)
			}
			vm.stack[vm.sp-argCount-1] = attr.Value
			return vm.callValue(attr.Value, argCount)
		}
		method, owner := r.Class.findMethod(name)
		if method == nil {
			return vm.runtimeError("undefined property '%s'", name)
		}
		if !method.Public && !vm.isInternalAccess(owner) {
			return vm.runtimeError("property '%s' is not accessible", name)
		}
		closure, ok := method.Value.Obj.(*ObjClosure)
		if !ok {
			return vm.runtimeError("'%s' is not callable", name)
		}
		return vm.callClosure(closure, argCount, receiver)
	case *ObjClass:
		attr, ok := r.StaticFields[name]
		if !ok {
			attr, ok = r.Methods[name]
		}
		if !ok {
			return vm.runtimeError("undefined property '%s'", name)
		}
		if !attr.Public && !vm.isInternalAccess(r) {
			return vm.runtimeError("property '%s' is not accessible", name)
		}
		vm.stack[vm.sp-argCount-1] = attr.Value
		// A method invoked on the class itself runs with the class as
		// binder, so its body can reach statics and privates.
		if closure, ok := attr.Value.Obj.(*ObjClosure); ok && attr.Value.Type == ValObj {
			return vm.callClosure(closure, argCount, receiver)
		}
		return vm.callValue(attr.Value, argCount)
	case *ObjNamespace:
		if !r.Publics[name] {
			return vm.runtimeError("undefined name '%s'", name)
		}
		val, ok := r.Values[name]
		if !ok {
			return vm.runtimeError("undefined name '%s'", name)
		}
		vm.stack[vm.sp-argCount-1] = val
		// A closure fused-invoked off a namespace runs with the namespace
		// as binder, same as the BoundMethod the unfused path would build.
		if closure, ok := val.Obj.(*ObjClosure); ok && val.Type == ValObj {
			return vm.callClosure(closure, argCount, receiver)
		}
		return vm.callValue(val, argCount)
	default:
		return vm.runtimeError("only instances have methods")
	}
}

// superInvoke pops the superclass (pushed by the compiler as the
// `super` local), looks up the method there, and binds it to `this` - never
// to the superclass.
func (vm *VM) superInvoke(name string, argCount int) error {
	superVal := vm.pop()
	super, ok := superVal.Obj.(*ObjClass)
	if !ok {
		return vm.runtimeError("'super' must be a class")
	}
	receiver := vm.peek(argCount)
	method, _ := super.findMethod(name)
	if method == nil {
		return vm.runtimeError("undefined property '%s'", name)
	}
	closure, ok := method.Value.Obj.(*ObjClosure)
	if !ok {
		return vm.runtimeError("'%s' is not callable", name)
	}
	return vm.callClosure(closure, argCount, receiver)
}
