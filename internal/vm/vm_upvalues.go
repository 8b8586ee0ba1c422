package vm

import "unsafe"

// captureUpvalue walks the open-upvalue list (descending by slot address)
// and returns an existing upvalue if one already points at slot, otherwise
// inserts a new one, keeping the list in descending order.
func (vm *VM) captureUpvalue(slot *Value) *ObjUpvalue {
	var prev *ObjUpvalue
	cur := vm.openUpvalues
	for cur != nil && ptrGE(cur.Location, slot) {
		if cur.Location == slot {
			return cur
		}
		prev = cur
		cur = cur.NextOpen
	}

	created := vm.gc.NewUpvalue(slot)
	created.NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// ptrGE reports whether a's slot is at or above b's slot in the stack
// array. The backing array is fixed-capacity for the VM's lifetime, so raw pointer comparison via unsafe.Pointer is safe and
// never invalidated by a reallocating append.
func ptrGE(a, b *Value) bool {
	return uintptr(unsafe.Pointer(a)) >= uintptr(unsafe.Pointer(b))
}

// closeUpvalues closes every open upvalue whose slot is at or above limit:
// it copies the stack value into the upvalue's inline Closed field and
// redirects Location to point at Closed.
func (vm *VM) closeUpvalues(limit *Value) {
	for vm.openUpvalues != nil && ptrGE(vm.openUpvalues.Location, limit) {
		u := vm.openUpvalues
		u.Closed = *u.Location
		u.Location = &u.Closed
		vm.openUpvalues = u.NextOpen
		u.NextOpen = nil
	}
}
