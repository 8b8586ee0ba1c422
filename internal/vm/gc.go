package vm

// GC is a tri-color precise mark-sweep collector over the VM's single
// intrusive object list, triggered by allocation pressure.
type GC struct {
	vm             *VM
	objects        Object
	bytesAllocated int
	nextGC         int
	gray           []Object
	pauseGC        int
	strings        *InternTable
}

const initialNextGC = 1 << 20 // 1 MiB

func NewGC() *GC {
	return &GC{nextGC: initialNextGC, strings: NewInternTable()}
}

// PauseGC brackets sequences (serialization, load) where an intermediate
// allocation must not trigger a collection mid-construction.
func (gc *GC) PauseGC()   { gc.pauseGC++ }
func (gc *GC) UnpauseGC() { gc.pauseGC-- }

// track links a freshly constructed object onto the VM's object list and
// charges its approximate size against the allocation budget, possibly
// triggering a collection. The pressure check runs before o is linked, so
// the object being constructed can never be swept by the collection its
// own allocation triggered; temporaries allocated earlier in the same
// construction sequence must be rooted by the caller (stack-pushed or
// bracketed with PauseGC).
func (gc *GC) track(o Object, size int) {
	gc.bytesAllocated += size
	if gc.bytesAllocated > gc.nextGC && gc.pauseGC == 0 {
		gc.Collect()
	}
	h := o.header()
	h.next = gc.objects
	gc.objects = o
}

// ---- allocation constructors ----

func (gc *GC) internOrTrack(chars []byte, owned bool) *ObjString {
	h := fnv1a(chars)
	if existing := gc.strings.findString(chars, h); existing != nil {
		return existing
	}
	buf := chars
	if !owned {
		buf = append([]byte(nil), chars...)
	}
	s := &ObjString{Chars: buf, Hash: h}
	s.objType = ObjTypeString
	// Track before interning: if track's pressure check collects, s is in
	// neither the table nor the sweep list yet, so the weak-intern pass
	// cannot drop an entry for a string that is still being constructed.
	gc.track(s, 32+len(buf))
	gc.strings.set(s)
	return s
}

// CopyString interns a defensive copy of chars.
func (gc *GC) CopyString(chars []byte) *ObjString { return gc.internOrTrack(chars, false) }

// TakeString interns chars, taking ownership without copying; the caller
// must not mutate chars afterwards.
func (gc *GC) TakeString(chars []byte) *ObjString { return gc.internOrTrack(chars, true) }

func (gc *GC) NewFunction() *ObjFunction {
	f := &ObjFunction{Chunk: NewChunk()}
	f.objType = ObjTypeFunction
	gc.track(f, 64)
	return f
}

func (gc *GC) NewClosure(fn *ObjFunction) *ObjClosure {
	c := &ObjClosure{Function: fn, Upvalues: make([]*ObjUpvalue, fn.UpvalueCount)}
	c.objType = ObjTypeClosure
	gc.track(c, 16+8*fn.UpvalueCount)
	return c
}

func (gc *GC) NewUpvalue(slot *Value) *ObjUpvalue {
	u := &ObjUpvalue{Location: slot}
	u.objType = ObjTypeUpvalue
	gc.track(u, 32)
	return u
}

func (gc *GC) NewClass(name *ObjString) *ObjClass {
	c := &ObjClass{
		Name:          name,
		Methods:       map[string]*ObjAttribute{},
		FieldTemplate: map[string]*ObjAttribute{},
		StaticFields:  map[string]*ObjAttribute{},
	}
	c.objType = ObjTypeClass
	gc.track(c, 96)
	return c
}

// NewInstance seeds Fields by copying the class's field template so later
// mutation is per-instance. The copies are tracked attributes; collection
// is paused while they are unreachable from any root.
func (gc *GC) NewInstance(class *ObjClass) *ObjInstance {
	gc.PauseGC()
	defer gc.UnpauseGC()
	fields := make(map[string]*ObjAttribute, len(class.FieldTemplate))
	for name, tmpl := range class.FieldTemplate {
		fields[name] = gc.NewAttribute(tmpl.Value, tmpl.Public, tmpl.Static, tmpl.Constant)
	}
	i := &ObjInstance{Class: class, Fields: fields, Binder: class.Binder}
	i.objType = ObjTypeInstance
	gc.track(i, 48+32*len(fields))
	return i
}

func (gc *GC) NewBoundMethod(receiver Value, method *ObjClosure) *ObjBoundMethod {
	b := &ObjBoundMethod{Receiver: receiver, Method: method}
	b.objType = ObjTypeBoundMethod
	gc.track(b, 40)
	return b
}

func (gc *GC) NewList(items []Value) *ObjList {
	l := &ObjList{Items: items}
	l.objType = ObjTypeList
	gc.track(l, 24+16*len(items))
	return l
}

func (gc *GC) NewNamespace(name *ObjString) *ObjNamespace {
	n := &ObjNamespace{Name: name, Values: map[string]Value{}, Publics: map[string]bool{}}
	n.objType = ObjTypeNamespace
	gc.track(n, 64)
	return n
}

func (gc *GC) NewLibrary(name string, init func(vm *VM, ns *ObjNamespace)) *ObjLibrary {
	l := &ObjLibrary{Name: name, Init: init}
	l.objType = ObjTypeLibrary
	gc.track(l, 48)
	return l
}

func (gc *GC) NewNative(name string, fn NativeFn) *ObjNative {
	n := &ObjNative{Name: name, Fn: fn}
	n.objType = ObjTypeNative
	gc.track(n, 32)
	return n
}

func (gc *GC) NewAttribute(v Value, public, static, constant bool) *ObjAttribute {
	a := &ObjAttribute{Value: v, Public: public, Static: static, Constant: constant}
	a.objType = ObjTypeAttribute
	gc.track(a, 40)
	return a
}

func (gc *GC) NewPointer(origin string, typeTag int, ptr interface{}) *ObjPointer {
	p := &ObjPointer{Origin: origin, TypeTag: typeTag, Ptr: ptr}
	p.objType = ObjTypePointer
	gc.track(p, 32)
	return p
}

// Adopt re-homes every heap object owned by src onto gc's own object list
// and merges src's allocation total into gc's, transferring ownership
// (not sharing) rather than copying. Adopted strings are folded into this
// GC's intern table where their content is not already present, so future
// interning in the adopting VM dedups against them.
func (gc *GC) Adopt(src *GC) {
	if src.objects == nil {
		return
	}
	tail := src.objects
	for tail.header().next != nil {
		tail = tail.header().next
	}
	tail.header().next = gc.objects
	gc.objects = src.objects
	gc.bytesAllocated += src.bytesAllocated
	src.objects = nil
	src.bytesAllocated = 0

	for i := range src.strings.entries {
		if s := src.strings.entries[i].key; s != nil {
			if gc.strings.findString(s.Chars, s.Hash) == nil {
				gc.strings.set(s)
			}
		}
	}
	src.strings = NewInternTable()
}

// MarkValue exposes markValue to callers outside the package (the opaque
// pointer Blacken callback's only way to mark values it holds).
func (gc *GC) MarkValue(v Value) { gc.markValue(v) }

// markValue marks v's underlying object, a no-op for non-object variants.
func (gc *GC) markValue(v Value) {
	if v.Type == ValObj {
		gc.markObject(v.Obj)
	}
}

// markObject sets o's mark bit and pushes it onto the gray worklist,
// unless it is nil or already marked. Callers pass only non-nil concrete
// pointers: optional references (a script's nil name, a class with no
// constructor) are guarded at the call site in blacken.
func (gc *GC) markObject(o Object) {
	if o == nil {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true
	gc.gray = append(gc.gray, o)
}

// markAttribute marks an Attribute's wrapped value; Attributes themselves
// are ordinary tracked objects, so mark the attribute object too.
func (gc *GC) markAttribute(a *ObjAttribute) {
	gc.markObject(a)
}

// Collect runs one full mark-sweep cycle: mark roots, trace the gray
// worklist to exhaustion, weak-sweep the intern table, then sweep unmarked
// objects, and finally double the allocation threshold.
func (gc *GC) Collect() {
	if gc.vm != nil {
		gc.vm.markRoots(gc)
	}
	gc.traceReferences()
	gc.strings.removeWhiteStrings()
	gc.sweep()
	gc.nextGC = gc.bytesAllocated * 2
	if gc.nextGC < initialNextGC {
		gc.nextGC = initialNextGC
	}
}

func (gc *GC) traceReferences() {
	for len(gc.gray) > 0 {
		n := len(gc.gray) - 1
		o := gc.gray[n]
		gc.gray = gc.gray[:n]
		gc.blacken(o)
	}
}

// blacken marks every outgoing reference from o, dispatched on the
// object's variant.
func (gc *GC) blacken(o Object) {
	switch obj := o.(type) {
	case *ObjString, *ObjNative:
		// no outgoing references
	case *ObjFunction:
		if obj.Name != nil {
			gc.markObject(obj.Name)
		}
		for _, c := range obj.Chunk.Constants {
			gc.markValue(c)
		}
	case *ObjClosure:
		gc.markObject(obj.Function)
		for _, u := range obj.Upvalues {
			if u != nil {
				gc.markObject(u)
			}
		}
	case *ObjUpvalue:
		gc.markValue(*obj.Location)
	case *ObjClass:
		gc.markObject(obj.Name)
		if obj.Constructor != nil {
			gc.markObject(obj.Constructor)
		}
		for _, m := range obj.Methods {
			gc.markAttribute(m)
		}
		for _, f := range obj.FieldTemplate {
			gc.markAttribute(f)
		}
		for _, f := range obj.StaticFields {
			gc.markAttribute(f)
		}
		for _, d := range obj.Defaults {
			if d != nil {
				gc.markObject(d)
			}
		}
		if obj.Super != nil {
			gc.markObject(obj.Super)
		}
		gc.markValue(obj.Binder)
	case *ObjInstance:
		gc.markObject(obj.Class)
		for _, f := range obj.Fields {
			gc.markAttribute(f)
		}
		gc.markValue(obj.Binder)
	case *ObjBoundMethod:
		gc.markValue(obj.Receiver)
		gc.markObject(obj.Method)
	case *ObjList:
		for _, v := range obj.Items {
			gc.markValue(v)
		}
	case *ObjNamespace:
		gc.markObject(obj.Name)
		for _, v := range obj.Values {
			gc.markValue(v)
		}
	case *ObjLibrary:
		if obj.Namespace != nil {
			gc.markObject(obj.Namespace)
		}
	case *ObjAttribute:
		gc.markValue(obj.Value)
	case *ObjPointer:
		if obj.Blacken != nil {
			obj.Blacken(gc)
		}
	}
}

// sweep unlinks and drops every unmarked object from the VM's object list,
// clearing the mark bit on survivors.
func (gc *GC) sweep() {
	var prev Object
	o := gc.objects
	for o != nil {
		h := o.header()
		next := h.next
		if h.marked {
			h.marked = false
			prev = o
		} else {
			if prev == nil {
				gc.objects = next
			} else {
				prev.header().next = next
			}
			gc.free(o)
		}
		o = next
	}
}

func (gc *GC) free(o Object) {
	if p, ok := o.(*ObjPointer); ok && p.Free != nil {
		p.Free()
	}
	gc.bytesAllocated -= objSize(o)
	if gc.bytesAllocated < 0 {
		gc.bytesAllocated = 0
	}
}

func objSize(o Object) int {
	switch obj := o.(type) {
	case *ObjString:
		return 32 + len(obj.Chars)
	case *ObjFunction:
		return 64
	case *ObjClosure:
		return 16 + 8*len(obj.Upvalues)
	case *ObjUpvalue:
		return 32
	case *ObjClass:
		return 96
	case *ObjInstance:
		return 48 + 32*len(obj.Fields)
	case *ObjBoundMethod:
		return 40
	case *ObjList:
		return 24 + 16*len(obj.Items)
	case *ObjNamespace:
		return 64
	case *ObjLibrary:
		return 48
	case *ObjNative:
		return 32
	case *ObjAttribute:
		return 40
	case *ObjPointer:
		return 32
	}
	return 16
}
