package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// objectListContains is a white-box helper walking the GC's intrusive
// object list directly.
func objectListContains(gc *GC, target Object) bool {
	for o := gc.objects; o != nil; o = o.header().next {
		if o == target {
			return true
		}
	}
	return false
}

func TestSweepReclaimsUnreachableMarksReachable(t *testing.T) {
	vm := New()

	reachable := vm.gc.CopyString([]byte("kept"))
	vm.globals["g"] = ObjVal(reachable)

	unreachable := vm.gc.CopyString([]byte("dropped"))
	require.True(t, objectListContains(vm.gc, unreachable))

	vm.gc.Collect()

	require.True(t, objectListContains(vm.gc, reachable), "a value reachable from a root must survive a collection")
	require.False(t, objectListContains(vm.gc, unreachable), "a value unreachable from any root must be swept")
}

func TestWeakInternDropsUnmarkedString(t *testing.T) {
	vm := New()
	s := vm.gc.CopyString([]byte("ephemeral"))
	require.NotNil(t, vm.gc.strings.findString(s.Chars, s.Hash))

	vm.gc.Collect() // nothing roots s

	require.Nil(t, vm.gc.strings.findString([]byte("ephemeral"), s.Hash), "sweep must remove the intern entry for an unmarked string")
}

func TestStringInterningIsPointerIdentical(t *testing.T) {
	vm := New()
	a := vm.gc.CopyString([]byte("shared"))
	b := vm.gc.CopyString([]byte("shared"))
	require.True(t, a == b, "two copies of the same literal must intern to the same object")
}

func TestCloseUpvaluesOrderingAndIdentity(t *testing.T) {
	vm := New()
	slots := make([]Value, 4)
	slots[0] = NumberVal(10)
	slots[1] = NumberVal(20)
	slots[2] = NumberVal(30)
	slots[3] = NumberVal(40)

	// capture out of address order (1, 0, 2); captureUpvalue must keep the
	// open list ordered by descending slot address regardless.
	u1 := vm.captureUpvalue(&slots[1])
	u0 := vm.captureUpvalue(&slots[0])
	u2 := vm.captureUpvalue(&slots[2])

	// re-capturing an already-open slot must return the same upvalue.
	again := vm.captureUpvalue(&slots[1])
	require.True(t, again == u1)

	// descending order: addr(slot2) > addr(slot1) > addr(slot0)
	require.True(t, ptrGE(u2.Location, u1.Location))
	require.True(t, ptrGE(u1.Location, u0.Location))

	vm.closeUpvalues(&slots[1])

	require.True(t, u2.isClosed())
	require.True(t, u1.isClosed())
	require.False(t, u0.isClosed(), "closeUpvalues(limit) must not close a slot below limit")
	require.Equal(t, 30.0, u2.Closed.Num)
	require.Equal(t, 20.0, u1.Closed.Num)
}
