package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisassembleChunkCoversEveryEmittedOpcode(t *testing.T) {
	machine := New()
	fn, err := Compile(machine, `
var g = 1;
fn f(x) {
  var local = x + g;
  if (local > 0) { return local; }
  return -local;
}
f(2);
`)
	require.NoError(t, err)

	out := DisassembleChunk(fn.Chunk, "<script>")
	require.True(t, strings.HasPrefix(out, "== <script> ==\n"))
	require.Contains(t, out, "DEFINE_GLOBAL")
	require.Contains(t, out, "CLOSURE")
	require.Contains(t, out, "CALL")
	require.Contains(t, out, "RETURN")
	require.NotContains(t, out, "UNKNOWN", "every emitted opcode must decode")

	var nested *ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.Obj.(*ObjFunction); ok {
			nested = f
		}
	}
	require.NotNil(t, nested)
	inner := DisassembleChunk(nested.Chunk, "f")
	require.Contains(t, inner, "JUMP_IF_FALSE")
	require.Contains(t, inner, "GET_LOCAL")
	require.Contains(t, inner, "NEGATE")
	require.NotContains(t, inner, "UNKNOWN")
}
