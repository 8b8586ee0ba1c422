package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddConstantDedups(t *testing.T) {
	c := NewChunk()
	i1 := c.AddConstant(NumberVal(3.14))
	i2 := c.AddConstant(NumberVal(3.14))
	i3 := c.AddConstant(NumberVal(2.71))
	require.Equal(t, i1, i2, "equal constants must share one pool slot")
	require.NotEqual(t, i1, i3)
	require.Len(t, c.Constants, 2)
}

func TestAddConstantStringIdentityDedup(t *testing.T) {
	gc := NewGC()
	c := NewChunk()
	a := gc.CopyString([]byte("hello"))
	b := gc.CopyString([]byte("hello")) // interned: pointer-identical to a
	i1 := c.AddConstant(ObjVal(a))
	i2 := c.AddConstant(ObjVal(b))
	require.Equal(t, i1, i2)
}

func TestWriteConstantPicksLongFormPast256(t *testing.T) {
	c := NewChunk()
	for i := 0; i < 300; i++ {
		c.WriteConstant(NumberVal(float64(i)), 1)
	}
	require.Len(t, c.Constants, 300)
	// the 257th distinct constant (index 256) must use OP_CONSTANT_LONG
	found := false
	for i := 0; i < len(c.Code); i++ {
		if Opcode(c.Code[i]) == OP_CONSTANT_LONG {
			found = true
			break
		}
	}
	require.True(t, found, "a constant pool over 256 entries must emit CONSTANT_LONG")
}

func TestGetLineDecodesRunLengthTable(t *testing.T) {
	c := NewChunk()
	c.WriteOp(OP_NULL, 1)
	c.WriteOp(OP_TRUE, 1)
	c.WriteOp(OP_FALSE, 2)
	require.Equal(t, 1, c.GetLine(0))
	require.Equal(t, 1, c.GetLine(1))
	require.Equal(t, 2, c.GetLine(2))
}
