package vm

import "fmt"

// ObjType tags each heap object variant.
type ObjType int

const (
	ObjTypeString ObjType = iota
	ObjTypeFunction
	ObjTypeClosure
	ObjTypeUpvalue
	ObjTypeClass
	ObjTypeInstance
	ObjTypeBoundMethod
	ObjTypeList
	ObjTypeNamespace
	ObjTypeLibrary
	ObjTypeNative
	ObjTypeAttribute
	ObjTypePointer
)

// Header carries the GC metadata every heap object needs: a type tag, a
// mark bit, and the intrusive next-link threading it onto the VM's single
// object list.
type Header struct {
	objType ObjType
	marked  bool
	next    Object
}

func (h *Header) header() *Header { return h }
func (h *Header) Type() ObjType   { return h.objType }

// Object is satisfied by every heap-allocated variant via embedding Header.
type Object interface {
	Type() ObjType
	Print() string
	header() *Header
}

// ---- String ----

// ObjString is an immutable, interned byte buffer with a precomputed
// FNV-1a hash.
type ObjString struct {
	Header
	Chars []byte
	Hash  uint32
}

func (s *ObjString) Print() string { return string(s.Chars) }

func fnv1a(b []byte) uint32 {
	h := uint32(2166136261)
	for _, c := range b {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}

// ---- Function / Closure / Upvalue ----

// ObjFunction is an immutable compiled function body.
type ObjFunction struct {
	Header
	Arity         int
	UpvalueCount  int
	Name          *ObjString // nil for the top-level script
	Chunk         *Chunk
	IsConstructor bool // true for a class's `build` method: OP_RETURN forces `this`
}

func (f *ObjFunction) Print() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<func %s>", string(f.Name.Chars))
}

// ObjClosure pairs a Function with the upvalues it captured at creation.
type ObjClosure struct {
	Header
	Function *ObjFunction
	Upvalues []*ObjUpvalue
}

func (c *ObjClosure) Print() string { return c.Function.Print() }

// ObjUpvalue is open (Location points into a live stack slot) or closed
// (Location points at its own Closed field) exactly once, never reopened.
type ObjUpvalue struct {
	Header
	Location *Value
	Closed   Value
	NextOpen *ObjUpvalue // intrusive open-upvalue list link, descending by slot
}

func (u *ObjUpvalue) Print() string { return "<upvalue>" }

func (u *ObjUpvalue) isClosed() bool { return u.Location == &u.Closed }

// ---- Class / Instance / BoundMethod ----

// ObjAttribute wraps a Value with its public/static/const flags, used
// both for class fields and class methods.
type ObjAttribute struct {
	Header
	Value    Value
	Public   bool
	Static   bool
	Constant bool
}

func (a *ObjAttribute) Print() string { return "<attribute>" }

// ObjClass has single inheritance, a method table, an instance-field
// template, static fields, and three well-known default-method slots.
type ObjClass struct {
	Header
	Name          *ObjString
	Constructor   *ObjClosure
	Methods       map[string]*ObjAttribute
	FieldTemplate map[string]*ObjAttribute
	StaticFields  map[string]*ObjAttribute
	Defaults      [3]*ObjClosure // indexed by DefaultString/DefaultEq/DefaultHash
	Super         *ObjClass
	Binder        Value // lexical container (namespace) this class was read out of, if any
}

func (c *ObjClass) Print() string { return fmt.Sprintf("<class %s>", string(c.Name.Chars)) }

// findMethod looks up name along the single-inheritance chain.
func (c *ObjClass) findMethod(name string) (*ObjAttribute, *ObjClass) {
	for cls := c; cls != nil; cls = cls.Super {
		if m, ok := cls.Methods[name]; ok {
			return m, cls
		}
	}
	return nil, nil
}

// ObjInstance seeds its Fields by copying the class's field template at
// construction time, so later mutation is per-instance.
type ObjInstance struct {
	Header
	Class  *ObjClass
	Fields map[string]*ObjAttribute
	Binder Value
}

func (i *ObjInstance) Print() string {
	return fmt.Sprintf("<%p %s>", i, string(i.Class.Name.Chars))
}

// ObjBoundMethod is created when a method is read off an instance/class;
// calling it substitutes Receiver for the call target.
type ObjBoundMethod struct {
	Header
	Receiver Value
	Method   *ObjClosure
}

func (b *ObjBoundMethod) Print() string { return b.Method.Print() }

// ---- List ----

// ObjList is a dynamically grown Value array.
type ObjList struct {
	Header
	Items []Value
}

func (l *ObjList) Print() string {
	return fmt.Sprintf("<list %p len=%d>", l, len(l.Items))
}

// ---- Namespace / Library / Native ----

// ObjNamespace holds one compiled file or library's exported surface: a
// full "values" table plus the "publics" subset.
type ObjNamespace struct {
	Header
	Name    *ObjString
	Values  map[string]Value
	Publics map[string]bool
}

func (n *ObjNamespace) Print() string { return fmt.Sprintf("<namespace %s>", string(n.Name.Chars)) }

// ObjLibrary is registered at VM init and lazily materialized into a
// Namespace on first IMPORT.
type ObjLibrary struct {
	Header
	Name      string
	Init      func(vm *VM, ns *ObjNamespace)
	Namespace *ObjNamespace
	Imported  bool
}

func (l *ObjLibrary) Print() string { return fmt.Sprintf("<library %s>", l.Name) }

// NativeResult is what a native callback returns to the calling convention.
type NativeResult struct {
	OK    bool
	Value Value
	Err   string
}

// NativeFn is a registered library function's Go implementation.
type NativeFn func(vm *VM, argc int, args []Value) NativeResult

// ObjNative wraps a native function pointer.
type ObjNative struct {
	Header
	Name string
	Fn   NativeFn
}

func (n *ObjNative) Print() string { return fmt.Sprintf("<native %s>", n.Name) }

// ---- Opaque pointer ----

// ObjPointer is owned by foreign/native code; the GC calls its Blacken and
// Free callbacks during marking/sweeping.
type ObjPointer struct {
	Header
	Origin  string
	TypeTag int
	Ptr     interface{}
	Free    func()
	Blacken func(gc *GC)
	Str     func() string
	HashFn  func() uint32
}

func (p *ObjPointer) Print() string {
	if p.Str != nil {
		return p.Str()
	}
	return fmt.Sprintf("<opaque %s>", p.Origin)
}
