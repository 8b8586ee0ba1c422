package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPeekPopDiscipline(t *testing.T) {
	machine := New()
	values := []Value{NumberVal(1), BoolVal(true), NullVal(), NumberVal(-2.5)}

	for _, v := range values {
		machine.push(v)
		require.True(t, machine.peek(0).Equals(v), "peek(0) must see the just-pushed value")
	}
	for i := len(values) - 1; i >= 0; i-- {
		require.True(t, machine.pop().Equals(values[i]))
	}
	require.Equal(t, 0, machine.sp)
}

func TestResetStackClearsFramesAndUpvalues(t *testing.T) {
	machine := New()
	machine.push(NumberVal(1))
	machine.captureUpvalue(&machine.stack[0])
	machine.frameCount = 3

	machine.resetStack()
	require.Equal(t, 0, machine.sp)
	require.Equal(t, 0, machine.frameCount)
	require.Nil(t, machine.openUpvalues)
}
