package vm

// run drives frames down to entryFrameCount, stepping one instruction at a
// time, and returns the value OP_RETURN left behind at that depth.
func (vm *VM) run(entryFrameCount int) (Value, error) {
	for {
		if err := vm.step(); err != nil {
			return NullVal(), err
		}
		if vm.frameCount <= entryFrameCount {
			return vm.pop(), nil
		}
	}
}

func (f *CallFrame) readByte() byte {
	b := f.closure.Function.Chunk.Code[f.ip]
	f.ip++
	return b
}

// readU16 reads a big-endian two-byte operand.
func (f *CallFrame) readU16() uint16 {
	hi := f.readByte()
	lo := f.readByte()
	return uint16(hi)<<8 | uint16(lo)
}

// readConstIndexLong reads a little-endian three-byte constant-pool index,
// used only by OP_CONSTANT_LONG and OP_CLOSURE.
func (f *CallFrame) readConstIndexLong() int {
	b0 := f.readByte()
	b1 := f.readByte()
	b2 := f.readByte()
	return int(b0) | int(b1)<<8 | int(b2)<<16
}

func (f *CallFrame) constant(idx int) Value {
	return f.closure.Function.Chunk.Constants[idx]
}

func (f *CallFrame) constantName(idx int) string {
	return string(f.constant(idx).Obj.(*ObjString).Chars)
}

// step decodes and executes exactly one instruction in the current top
// frame.
func (vm *VM) step() error {
	f := vm.frame()
	op := Opcode(f.readByte())

	switch op {
	case OP_CONSTANT:
		vm.push(f.constant(int(f.readByte())))

	case OP_CONSTANT_LONG:
		vm.push(f.constant(f.readConstIndexLong()))

	case OP_NULL:
		vm.push(NullVal())
	case OP_TRUE:
		vm.push(BoolVal(true))
	case OP_FALSE:
		vm.push(BoolVal(false))

	case OP_POP:
		vm.pop()
	case OP_POP_N:
		vm.sp -= int(f.readByte())

	case OP_DEFINE_GLOBAL:
		name := f.constantName(int(f.readByte()))
		vm.globals[name] = vm.pop()

	case OP_GET_GLOBAL:
		name := f.constantName(int(f.readByte()))
		val, ok := vm.resolveGlobal(name)
		if !ok {
			return vm.runtimeError("undefined variable '%s'", name)
		}
		vm.push(val)

	case OP_SET_GLOBAL:
		name := f.constantName(int(f.readByte()))
		if err := vm.setGlobal(name, vm.peek(0)); err != nil {
			return err
		}

	case OP_GET_LOCAL:
		slot := int(f.readByte())
		vm.push(vm.stack[f.base+slot])

	case OP_SET_LOCAL:
		slot := int(f.readByte())
		vm.stack[f.base+slot] = vm.peek(0)

	case OP_GET_UPVALUE:
		slot := int(f.readByte())
		vm.push(*f.closure.Upvalues[slot].Location)

	case OP_SET_UPVALUE:
		slot := int(f.readByte())
		*f.closure.Upvalues[slot].Location = vm.peek(0)

	case OP_CLOSE_UPVALUE:
		vm.closeUpvalues(&vm.stack[vm.sp-1])
		vm.pop()

	case OP_JUMP:
		offset := f.readU16()
		f.ip += int(offset)

	case OP_JUMP_IF_FALSE:
		offset := f.readU16()
		if vm.peek(0).Falsey() {
			f.ip += int(offset)
		}

	case OP_JUMP_IF_TRUE:
		offset := f.readU16()
		if !vm.peek(0).Falsey() {
			f.ip += int(offset)
		}

	case OP_LOOP:
		offset := f.readU16()
		f.ip -= int(offset)

	case OP_CALL:
		argc := int(f.readByte())
		if err := vm.callValue(vm.peek(argc), argc); err != nil {
			return err
		}

	case OP_CLOSURE:
		fnVal := f.constant(f.readConstIndexLong())
		fn := fnVal.Obj.(*ObjFunction)
		closure := vm.gc.NewClosure(fn)
		// Push before capturing: each captureUpvalue may allocate, and the
		// half-built closure must already be rooted on the stack.
		vm.push(ObjVal(closure))
		for i := 0; i < fn.UpvalueCount; i++ {
			isLocal := f.readByte()
			index := int(f.readByte())
			if isLocal != 0 {
				closure.Upvalues[i] = vm.captureUpvalue(&vm.stack[f.base+index])
			} else {
				closure.Upvalues[i] = f.closure.Upvalues[index]
			}
		}

	case OP_CLASS:
		name := f.constant(int(f.readByte())).Obj.(*ObjString)
		class := vm.gc.NewClass(name)
		if vm.currentNS != nil {
			class.Binder = ObjVal(vm.currentNS)
		}
		vm.push(ObjVal(class))

	case OP_INHERIT:
		if err := vm.inherit(); err != nil {
			return err
		}

	case OP_METHOD:
		if err := vm.method(f); err != nil {
			return err
		}

	case OP_ATTRIBUTE:
		if err := vm.attribute(f); err != nil {
			return err
		}

	case OP_GET_PROPERTY:
		name := f.constantName(int(f.readByte()))
		if err := vm.getProperty(name); err != nil {
			return err
		}

	case OP_SET_PROPERTY:
		name := f.constantName(int(f.readByte()))
		if err := vm.setProperty(name); err != nil {
			return err
		}

	case OP_INVOKE:
		name := f.constantName(int(f.readByte()))
		argc := int(f.readByte())
		if err := vm.invoke(name, argc); err != nil {
			return err
		}

	case OP_GET_SUPER:
		name := f.constantName(int(f.readByte()))
		if err := vm.getSuper(name); err != nil {
			return err
		}

	case OP_SUPER_INVOKE:
		name := f.constantName(int(f.readByte()))
		argc := int(f.readByte())
		if err := vm.superInvoke(name, argc); err != nil {
			return err
		}

	case OP_MAKE_LIST:
		// The elements stay on the stack (rooted) until the list exists.
		argc := int(f.readByte())
		items := make([]Value, argc)
		copy(items, vm.stack[vm.sp-argc:vm.sp])
		list := vm.gc.NewList(items)
		vm.sp -= argc
		vm.push(ObjVal(list))

	case OP_GET_INDEX:
		if err := vm.getIndex(); err != nil {
			return err
		}

	case OP_SET_INDEX:
		if err := vm.setIndex(); err != nil {
			return err
		}

	case OP_IMPORT:
		if err := vm.importLibrary(f); err != nil {
			return err
		}

	case OP_IMPORT_FILE:
		if err := vm.importFile(); err != nil {
			return err
		}

	case OP_UNPACK:
		if err := vm.unpack(); err != nil {
			return err
		}

	case OP_RETURN:
		result := vm.pop()
		if f.closure.Function.IsConstructor {
			result = f.bound
		}
		vm.closeUpvalues(&vm.stack[f.base])
		vm.frameCount--
		vm.sp = f.base
		vm.push(result)

	case OP_NOT:
		vm.not()

	case OP_NEGATE:
		if err := vm.negate(); err != nil {
			return err
		}

	case OP_EQUAL, OP_NOT_EQUAL:
		// Operands are peeked, not popped: valuesEqual may run a user
		// `def eq` method, and both must stay rooted while it executes.
		b := vm.peek(0)
		a := vm.peek(1)
		eq, err := vm.valuesEqual(a, b)
		if err != nil {
			return err
		}
		if op == OP_NOT_EQUAL {
			eq = !eq
		}
		vm.sp -= 2
		vm.push(BoolVal(eq))

	case OP_GREATER, OP_GREATER_EQUAL, OP_LESS, OP_LESS_EQUAL:
		if err := vm.binaryCompare(op); err != nil {
			return err
		}

	case OP_ADD, OP_SUBTRACT, OP_MULTIPLY, OP_DIVIDE:
		if err := vm.binaryArith(op); err != nil {
			return err
		}

	default:
		return vm.runtimeError("unknown opcode %d", op)
	}
	return nil
}

// inherit wires sub.Super to the superclass; method resolution walks the
// chain dynamically (findMethod), so no method-table copy is needed. The
// constructor, default-method slots and field template are per-class, so
// they are copied into the still-empty subclass, whose body may override them.
func (vm *VM) inherit() error {
	superVal := vm.peek(1)
	super, ok := superVal.Obj.(*ObjClass)
	if !ok || superVal.Type != ValObj {
		return vm.runtimeError("superclass must be a class")
	}
	subVal := vm.peek(0)
	sub, ok := subVal.Obj.(*ObjClass)
	if !ok || subVal.Type != ValObj {
		return vm.runtimeError("superclass must be a class")
	}
	sub.Super = super
	sub.Constructor = super.Constructor
	sub.Defaults = super.Defaults
	for name, attr := range super.FieldTemplate {
		sub.FieldTemplate[name] = attr
	}
	vm.pop() // drop the subclass duplicate; superclass remains as the `super` local
	return nil
}

func (vm *VM) method(f *CallFrame) error {
	kind := f.readByte()
	var name string
	var builtinIdx int
	switch kind {
	case MethodKindNamed:
		name = f.constantName(int(f.readByte()))
	case MethodKindBuiltin:
		builtinIdx = int(f.readByte())
	}
	isPublic := f.readByte() != 0
	isStatic := f.readByte() != 0

	closureVal := vm.peek(0)
	closure, ok := closureVal.Obj.(*ObjClosure)
	if !ok {
		return vm.runtimeError("method body must be a function")
	}
	class := vm.peek(1).Obj.(*ObjClass)

	// The closure stays on the stack until it has a home on the class, so
	// the NewAttribute allocation cannot collect it.
	switch kind {
	case MethodKindBuilder:
		closure.Function.IsConstructor = true
		class.Constructor = closure
	case MethodKindBuiltin:
		class.Defaults[builtinIdx] = closure
	default:
		class.Methods[name] = vm.gc.NewAttribute(ObjVal(closure), isPublic, isStatic, false)
	}
	vm.pop()
	return nil
}

func (vm *VM) attribute(f *CallFrame) error {
	name := f.constantName(int(f.readByte()))
	isConstant := f.readByte() != 0
	isPublic := f.readByte() != 0
	isStatic := f.readByte() != 0

	value := vm.peek(0)
	class := vm.peek(1).Obj.(*ObjClass)
	attr := vm.gc.NewAttribute(value, isPublic, isStatic, isConstant)
	if isStatic {
		class.StaticFields[name] = attr
	} else {
		class.FieldTemplate[name] = attr
	}
	vm.pop()
	return nil
}

func (vm *VM) importLibrary(f *CallFrame) error {
	name := f.constantName(int(f.readByte()))
	lib, ok := vm.libraries[name]
	if !ok {
		return vm.runtimeError("undefined library '%s'", name)
	}
	if !lib.Imported {
		if lib.Namespace == nil {
			lib.Namespace = vm.gc.NewNamespace(vm.gc.CopyString([]byte(name)))
		}
		lib.Init(vm, lib.Namespace)
		lib.Imported = true
	}
	vm.push(ObjVal(lib.Namespace))
	return nil
}

// importFile backs OP_IMPORT_FILE: the cache key is the literal argument
// string, with no path normalization.
func (vm *VM) importFile() error {
	pathVal := vm.pop()
	pathStr, ok := pathVal.Obj.(*ObjString)
	if !ok || pathVal.Type != ValObj {
		return vm.runtimeError("import path must be a string")
	}
	key := string(pathStr.Chars)
	if ns, ok := vm.importedFiles[key]; ok {
		vm.push(ObjVal(ns))
		return nil
	}
	if vm.ImportFile == nil {
		return vm.runtimeError("file imports are not supported in this embedding")
	}
	ns, err := vm.ImportFile(key)
	if err != nil {
		return vm.runtimeError("%s", err.Error())
	}
	vm.importedFiles[key] = ns
	vm.push(ObjVal(ns))
	return nil
}

// unpack defines every public member of a namespace as a global.
func (vm *VM) unpack() error {
	nsVal := vm.pop()
	ns, ok := nsVal.Obj.(*ObjNamespace)
	if !ok || nsVal.Type != ValObj {
		return vm.runtimeError("can only unpack a namespace")
	}
	for name, public := range ns.Publics {
		if !public {
			continue
		}
		if val, ok := ns.Values[name]; ok {
			vm.globals[name] = val
		}
	}
	return nil
}
