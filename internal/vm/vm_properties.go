package vm

// classInChain reports whether target appears in c's single-inheritance
// chain (c itself or any ancestor).
func classInChain(c, target *ObjClass) bool {
	for ; c != nil; c = c.Super {
		if c == target {
			return true
		}
	}
	return false
}

// currentAccessClass identifies the class context the executing frame is
// running inside of (an instance method or a static method), used to decide
// internal-vs-external access.
func (vm *VM) currentAccessClass() *ObjClass {
	b := vm.frame().bound
	if b.Type != ValObj {
		return nil
	}
	switch o := b.Obj.(type) {
	case *ObjInstance:
		return o.Class
	case *ObjClass:
		return o
	}
	return nil
}

// isInternalAccess is true when the code currently executing belongs to
// ownerClass or one of its subclasses - internal accesses ignore isPublic.
func (vm *VM) isInternalAccess(ownerClass *ObjClass) bool {
	cur := vm.currentAccessClass()
	return cur != nil && classInChain(cur, ownerClass)
}

// getProperty resolves peek(0).name, replacing the receiver with the
// result. The receiver is peeked, not popped, so it stays rooted across
// the BoundMethod allocations below.
func (vm *VM) getProperty(name string) error {
	receiverVal := vm.peek(0)
	if receiverVal.Type != ValObj {
		return vm.runtimeError("only instances have properties")
	}
	switch r := receiverVal.Obj.(type) {
	case *ObjInstance:
		if attr, ok := r.Fields[name]; ok {
			if !attr.Public && !vm.isInternalAccess(r.Class) {
				return vm.runtimeError("property '%s' is not accessible", name)
			}
			vm.pop()
			vm.push(attr.Value)
			return nil
		}
		if m, owner := r.Class.findMethod(name); m != nil {
			if !m.Public && !vm.isInternalAccess(owner) {
				return vm.runtimeError("property '%s' is not accessible", name)
			}
			closure, ok := m.Value.Obj.(*ObjClosure)
			if !ok {
				return vm.runtimeError("'%s' is not callable", name)
			}
			bound := vm.gc.NewBoundMethod(receiverVal, closure)
			vm.pop()
			vm.push(ObjVal(bound))
			return nil
		}
		return vm.runtimeError("undefined property '%s'", name)
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
		// A method read off the class itself binds to the class.
		if closure, ok := attr.Value.Obj.(*ObjClosure); ok && attr.Value.Type == ValObj {
			bound := vm.gc.NewBoundMethod(receiverVal, closure)
			vm.pop()
			vm.push(ObjVal(bound))
			return nil
		}
		vm.pop()
		vm.push(attr.Value)
		return nil
	case *ObjNamespace:
		if !r.Publics[name] {
			return vm.runtimeError("undefined property '%s'", name)
		}
		val, ok := r.Values[name]
		if !ok {
			return vm.runtimeError("undefined property '%s'", name)
		}
		if closure, ok := val.Obj.(*ObjClosure); ok && val.Type == ValObj {
			bound := vm.gc.NewBoundMethod(receiverVal, closure)
			vm.pop()
			vm.push(ObjVal(bound))
			return nil
		}
		// A class read out of a namespace inherits it as lexical binder.
		if cls, ok := val.Obj.(*ObjClass); ok && val.Type == ValObj && cls.Binder.IsNull() {
			cls.Binder = receiverVal
		}
		vm.pop()
		vm.push(val)
		return nil
	default:
		return vm.runtimeError("only instances have properties")
	}
}

// setProperty assigns peek(0) to peek(1).name, leaving the value on the
// stack as the assignment expression's result. Operands are peeked until
// the write lands, so the NewAttribute allocation for a fresh field cannot
// collect them.
func (vm *VM) setProperty(name string) error {
	value := vm.peek(0)
	receiverVal := vm.peek(1)
	switch r := receiverVal.Obj.(type) {
	case *ObjInstance:
		attr, ok := r.Fields[name]
		if !ok {
			// Assigning an undeclared name creates a fresh public field on
			// this instance only; declared fields keep their flags.
			r.Fields[name] = vm.gc.NewAttribute(value, true, false, false)
			vm.sp -= 2
			vm.push(value)
			return nil
		}
		if attr.Constant {
			return vm.runtimeError("cannot assign to constant property '%s'", name)
		}
		if !attr.Public && !vm.isInternalAccess(r.Class) {
			return vm.runtimeError("property '%s' is not accessible", name)
		}
		attr.Value = value
		vm.sp -= 2
		vm.push(value)
		return nil
	case *ObjClass:
		attr, ok := r.StaticFields[name]
		if !ok {
			return vm.runtimeError("undefined property '%s'", name)
		}
		if attr.Constant {
			return vm.runtimeError("cannot assign to constant property '%s'", name)
		}
		if !attr.Public && !vm.isInternalAccess(r) {
			return vm.runtimeError("property '%s' is not accessible", name)
		}
		attr.Value = value
		vm.sp -= 2
		vm.push(value)
		return nil
	default:
		return vm.runtimeError("only instances have properties")
	}
}

func (vm *VM) getSuper(name string) error {
	superVal := vm.peek(0)
	thisVal := vm.peek(1)
	super, ok := superVal.Obj.(*ObjClass)
	if !ok {
		return vm.runtimeError("'super' must be a class")
	}
	method, _ := super.findMethod(name)
	if method == nil {
		return vm.runtimeError("undefined property '%s'", name)
	}
	closure, ok := method.Value.Obj.(*ObjClosure)
	if !ok {
		return vm.runtimeError("'%s' is not callable", name)
	}
	bound := vm.gc.NewBoundMethod(thisVal, closure)
	vm.sp -= 2
	vm.push(ObjVal(bound))
	return nil
}

// resolveGlobal resolves a name through the lexical bound chain
// (instance -> class -> outer namespace) first, then the global table. This is always an "internal" lookup (self/lexical
// access), so isPublic is never consulted here.
func (vm *VM) resolveGlobal(name string) (Value, bool) {
	container := vm.frame().bound
	for container.Type == ValObj {
		switch c := container.Obj.(type) {
		case *ObjInstance:
			if attr, ok := c.Fields[name]; ok {
				return attr.Value, true
			}
			if m, _ := c.Class.findMethod(name); m != nil {
				if closure, ok := m.Value.Obj.(*ObjClosure); ok {
					return ObjVal(vm.gc.NewBoundMethod(container, closure)), true
				}
			}
			container = c.Binder
		case *ObjClass:
			if attr, ok := c.StaticFields[name]; ok {
				return attr.Value, true
			}
			if attr, ok := c.Methods[name]; ok {
				return attr.Value, true
			}
			container = c.Binder
		case *ObjNamespace:
			if val, ok := c.Values[name]; ok {
				if closure, ok2 := val.Obj.(*ObjClosure); ok2 && val.Type == ValObj {
					return ObjVal(vm.gc.NewBoundMethod(container, closure)), true
				}
				if cls, ok2 := val.Obj.(*ObjClass); ok2 && val.Type == ValObj && cls.Binder.IsNull() {
					cls.Binder = container
				}
				return val, true
			}
			container = NullVal()
		default:
			container = NullVal()
		}
	}
	if val, ok := vm.globals[name]; ok {
		return val, true
	}
	return NullVal(), false
}

func (vm *VM) setGlobal(name string, value Value) error {
	container := vm.frame().bound
	for container.Type == ValObj {
		switch c := container.Obj.(type) {
		case *ObjInstance:
			if attr, ok := c.Fields[name]; ok {
				if attr.Constant {
					return vm.runtimeError("cannot assign to constant '%s'", name)
				}
				attr.Value = value
				return nil
			}
			container = c.Binder
		case *ObjClass:
			if attr, ok := c.StaticFields[name]; ok {
				if attr.Constant {
					return vm.runtimeError("cannot assign to constant '%s'", name)
				}
				attr.Value = value
				return nil
			}
			container = c.Binder
		case *ObjNamespace:
			if _, ok := c.Values[name]; ok {
				c.Values[name] = value
				return nil
			}
			container = NullVal()
		default:
			container = NullVal()
		}
	}
	if _, ok := vm.globals[name]; !ok {
		return vm.runtimeError("undefined variable '%s'", name)
	}
	vm.globals[name] = value
	return nil
}
