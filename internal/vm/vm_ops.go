package vm

// binaryArith applies op to the two numbers on top of the stack, replacing
// them with the result; OP_ADD on other operands goes to add, and any other
// op on non-numbers is a runtime type error.
func (vm *VM) binaryArith(op Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)

	if a.Type == ValNumber && b.Type == ValNumber {
		vm.sp -= 2
		switch op {
		case OP_ADD:
			vm.push(NumberVal(a.Num + b.Num))
		case OP_SUBTRACT:
			vm.push(NumberVal(a.Num - b.Num))
		case OP_MULTIPLY:
			vm.push(NumberVal(a.Num * b.Num))
		case OP_DIVIDE:
			vm.push(NumberVal(a.Num / b.Num))
		}
		return nil
	}

	if op == OP_ADD {
		return vm.add(a, b)
	}
	return vm.runtimeError("operands must be numbers")
}

// add implements `+`: numeric addition, string concatenation, or
// element-wise list concatenation into a new list.
func (vm *VM) add(a, b Value) error {
	// Both operands stay on the stack until the result is allocated.
	if as, ok := a.Obj.(*ObjString); ok && a.Type == ValObj {
		if bs, ok := b.Obj.(*ObjString); ok && b.Type == ValObj {
			buf := make([]byte, 0, len(as.Chars)+len(bs.Chars))
			buf = append(buf, as.Chars...)
			buf = append(buf, bs.Chars...)
			s := vm.gc.TakeString(buf)
			vm.sp -= 2
			vm.push(ObjVal(s))
			return nil
		}
	}
	if al, ok := a.Obj.(*ObjList); ok && a.Type == ValObj {
		if bl, ok := b.Obj.(*ObjList); ok && b.Type == ValObj {
			items := make([]Value, 0, len(al.Items)+len(bl.Items))
			items = append(items, al.Items...)
			items = append(items, bl.Items...)
			l := vm.gc.NewList(items)
			vm.sp -= 2
			vm.push(ObjVal(l))
			return nil
		}
	}
	return vm.runtimeError("operands must be two numbers, two strings, or two lists")
}

// binaryCompare handles `>`,`<`,`>=`,`<=`: numeric or lexicographic byte
// comparison of two strings.
func (vm *VM) binaryCompare(op Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)

	if a.Type == ValNumber && b.Type == ValNumber {
		vm.sp -= 2
		vm.push(BoolVal(compareNumbers(a.Num, b.Num, op)))
		return nil
	}
	if as, ok := a.Obj.(*ObjString); ok && a.Type == ValObj {
		if bs, ok := b.Obj.(*ObjString); ok && b.Type == ValObj {
			vm.sp -= 2
			vm.push(BoolVal(compareBytes(as.Chars, bs.Chars, op)))
			return nil
		}
	}
	return vm.runtimeError("operands must be two numbers or two strings")
}

func compareNumbers(a, b float64, op Opcode) bool {
	switch op {
	case OP_GREATER:
		return a > b
	case OP_GREATER_EQUAL:
		return a >= b
	case OP_LESS:
		return a < b
	case OP_LESS_EQUAL:
		return a <= b
	}
	return false
}

func compareBytes(a, b []byte, op Opcode) bool {
	cmp := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				cmp = -1
			} else {
				cmp = 1
			}
			break
		}
	}
	if cmp == 0 {
		switch {
		case len(a) < len(b):
			cmp = -1
		case len(a) > len(b):
			cmp = 1
		}
	}
	switch op {
	case OP_GREATER:
		return cmp > 0
	case OP_GREATER_EQUAL:
		return cmp >= 0
	case OP_LESS:
		return cmp < 0
	case OP_LESS_EQUAL:
		return cmp <= 0
	}
	return false
}

func (vm *VM) negate() error {
	v := vm.peek(0)
	if v.Type != ValNumber {
		return vm.runtimeError("operand must be a number")
	}
	vm.sp--
	vm.push(NumberVal(-v.Num))
	return nil
}

func (vm *VM) not() {
	v := vm.pop()
	vm.push(BoolVal(v.Falsey()))
}

// getIndex implements GET_INDEX for lists and strings (byte index).
func (vm *VM) getIndex() error {
	idxVal := vm.pop()
	target := vm.pop()
	if idxVal.Type != ValNumber {
		return vm.runtimeError("index must be a number")
	}
	idx := int(idxVal.Num)
	switch t := target.Obj.(type) {
	case *ObjList:
		if idx < 0 || idx >= len(t.Items) {
			return vm.runtimeError("list index out of range")
		}
		vm.push(t.Items[idx])
		return nil
	case *ObjString:
		if idx < 0 || idx >= len(t.Chars) {
			return vm.runtimeError("string index out of range")
		}
		vm.push(ObjVal(vm.gc.CopyString(t.Chars[idx : idx+1])))
		return nil
	default:
		return vm.runtimeError("value is not indexable")
	}
}

// setIndex implements SET_INDEX for lists.
func (vm *VM) setIndex() error {
	value := vm.pop()
	idxVal := vm.pop()
	target := vm.pop()
	if idxVal.Type != ValNumber {
		return vm.runtimeError("index must be a number")
	}
	idx := int(idxVal.Num)
	list, ok := target.Obj.(*ObjList)
	if !ok || target.Type != ValObj {
		return vm.runtimeError("value is not indexable")
	}
	if idx < 0 || idx >= len(list.Items) {
		return vm.runtimeError("list index out of range")
	}
	list.Items[idx] = value
	vm.push(value)
	return nil
}
