package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func compileForTest(t *testing.T, source string) (*VM, *ObjFunction) {
	t.Helper()
	machine := New()
	fn, err := Compile(machine, source)
	require.NoError(t, err)
	return machine, fn
}

func TestDumpIsDeterministic(t *testing.T) {
	_, fn := compileForTest(t, `var a = 1; var b = "two"; fn f(x) { return x + a; }`)

	first, err := Dump(fn)
	require.NoError(t, err)
	second, err := Dump(fn)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDumpLoadDumpIsByteIdentical(t *testing.T) {
	_, fn := compileForTest(t, `
fn outer() {
  var n = 0;
  fn inner() { n = n + 1; return n; }
  return inner;
}
var f = outer();
`)

	data, err := Dump(fn)
	require.NoError(t, err)

	loaded, err := Load(NewGC(), data)
	require.NoError(t, err)

	again, err := Dump(loaded)
	require.NoError(t, err)
	require.Equal(t, data, again, "dump(load(dump(fn))) must reproduce the stream byte for byte")
}

func TestLoadPreservesFunctionShape(t *testing.T) {
	_, fn := compileForTest(t, `fn add(a, b) { return a + b; }`)

	data, err := Dump(fn)
	require.NoError(t, err)
	loaded, err := Load(NewGC(), data)
	require.NoError(t, err)

	require.Nil(t, loaded.Name, "the top-level script is unnamed")
	require.Equal(t, fn.Arity, loaded.Arity)
	require.Equal(t, fn.Chunk.Code, loaded.Chunk.Code)
	require.Len(t, loaded.Chunk.Constants, len(fn.Chunk.Constants))

	var nested *ObjFunction
	for _, c := range loaded.Chunk.Constants {
		if f, ok := c.Obj.(*ObjFunction); ok && c.Type == ValObj {
			nested = f
		}
	}
	require.NotNil(t, nested)
	require.Equal(t, 2, nested.Arity)
	require.Equal(t, "add", string(nested.Name.Chars))
}

func TestLoadInternsStrings(t *testing.T) {
	_, fn := compileForTest(t, `var a = "shared"; var b = "shared";`)
	data, err := Dump(fn)
	require.NoError(t, err)

	gc := NewGC()
	loaded, err := Load(gc, data)
	require.NoError(t, err)

	var strs []*ObjString
	for _, c := range loaded.Chunk.Constants {
		if s, ok := c.Obj.(*ObjString); ok && string(s.Chars) == "shared" {
			strs = append(strs, s)
		}
	}
	require.NotEmpty(t, strs)
	canonical := gc.CopyString([]byte("shared"))
	for _, s := range strs {
		require.True(t, s == canonical, "loaded strings must pass through the intern table")
	}
}

func TestLoadRejectsTruncatedStream(t *testing.T) {
	_, fn := compileForTest(t, `var a = 1;`)
	data, err := Dump(fn)
	require.NoError(t, err)

	for _, cut := range []int{1, len(data) / 2, len(data) - 1} {
		_, err := Load(NewGC(), data[:cut])
		require.Error(t, err, "truncating at %d bytes must fail", cut)
	}
}

func TestLoadRejectsTrailingGarbage(t *testing.T) {
	_, fn := compileForTest(t, `var a = 1;`)
	data, err := Dump(fn)
	require.NoError(t, err)

	_, err = Load(NewGC(), append(data, 0xAB))
	require.Error(t, err)
}

func TestLoadRejectsBadNameTag(t *testing.T) {
	_, fn := compileForTest(t, `var a = 1;`)
	data, err := Dump(fn)
	require.NoError(t, err)

	// FUNC tag, arity, then the name tag (NULL for a script)
	corrupt := append([]byte(nil), data...)
	corrupt[2] = 0x7F
	_, err = Load(NewGC(), corrupt)
	require.Error(t, err)
}

func TestLoadRejectsOutOfRangeCount(t *testing.T) {
	// FUNC, arity 0, NULL name, 0 upvalues, CHUNK, then a negative lines
	// count.
	stream := []byte{tagFunc, 0, tagNull, 0, tagChunk, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := Load(NewGC(), stream)
	require.Error(t, err)
}
