package vm

// markRoots marks every GC root: the live stack, each frame's closure and
// binder, the open-upvalue list, globals, libraries, imported files, the
// current namespace, and every compiler frame's in-progress function.
func (vm *VM) markRoots(gc *GC) {
	for i := 0; i < vm.sp; i++ {
		gc.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		f := &vm.frames[i]
		gc.markObject(f.closure)
		gc.markValue(f.bound)
	}
	for u := vm.openUpvalues; u != nil; u = u.NextOpen {
		gc.markObject(u)
	}
	for _, v := range vm.globals {
		gc.markValue(v)
	}
	for _, lib := range vm.libraries {
		gc.markObject(lib)
	}
	for _, ns := range vm.importedFiles {
		gc.markObject(ns)
	}
	if vm.currentNS != nil {
		gc.markObject(vm.currentNS)
	}

	vm.markCompilerRoots(gc)
}

// markCompilerRoots walks the chain of in-progress compiler frames so a
// collection triggered mid-compile doesn't reclaim the function currently
// being built.
func (vm *VM) markCompilerRoots(gc *GC) {
	for c := vm.activeCompiler; c != nil; c = c.enclosing {
		gc.markObject(c.fn)
	}
}
