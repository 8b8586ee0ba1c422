package library

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// runProgram compiles and runs source on a fresh VM with every built-in
// library registered, returning whatever it printed to stdout.
func runProgram(t *testing.T, source string) string {
	t.Helper()
	machine := vm.New()
	RegisterAll(machine)
	var out bytes.Buffer
	machine.Out = &out

	fn, err := vm.Compile(machine, source)
	require.NoError(t, err, "compile error for: %s", source)

	_, result, runErr := machine.InterpretErr(fn)
	require.NoError(t, runErr)
	require.Equal(t, vm.InterpretOK, result)
	return out.String()
}

func TestStdPrintlnJoinsArgsWithSpace(t *testing.T) {
	require.Equal(t, "a b 3\n", runProgram(t, `import std; std.println("a", "b", 3);`))
}

func TestStdClockIsNonNegative(t *testing.T) {
	require.Equal(t, "true\n", runProgram(t, `import std; println(std.clock() >= 0);`))
}

func TestMathFunctions(t *testing.T) {
	src := `import math;
println(math.sqrt(16));
println(math.abs(-3));
println(math.floor(3.9));
println(math.pow(2,10));
println(math.min(4,9));
println(math.max(4,9));`
	require.Equal(t, "4\n3\n3\n1024\n4\n9\n", runProgram(t, src))
}

func TestMathWrongArgTypeIsRuntimeError(t *testing.T) {
	machine := vm.New()
	RegisterAll(machine)
	fn, err := vm.Compile(machine, `import math; math.sqrt("nope");`)
	require.NoError(t, err)

	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, runErr)
}

func TestVectorPushPopLenGet(t *testing.T) {
	src := `import vector;
var v = vector.new(1,2);
vector.push(v, 3);
println(vector.len(v));
println(vector.get(v, 2));
println(vector.pop(v));
println(vector.len(v));`
	require.Equal(t, "3\n3\n3\n2\n", runProgram(t, src))
}

func TestVectorMapFilterForEach(t *testing.T) {
	src := `import vector; import math;
fn double(x) { return x*2; }
fn isEven(x) { return x - math.floor(x/2)*2 == 0; }
var v = vector.new(1,2,3,4);
var doubled = vector.map(v, double);
println(vector.get(doubled, 0));
println(vector.get(doubled, 3));
var evens = vector.filter(v, isEven);
println(vector.len(evens));
var sum = 0;
fn accum(x) { sum = sum + x; }
vector.forEach(v, accum);
println(sum);`
	require.Equal(t, "2\n8\n2\n10\n", runProgram(t, src))
}

func TestVectorOutOfRangeIsRuntimeError(t *testing.T) {
	machine := vm.New()
	RegisterAll(machine)
	fn, err := vm.Compile(machine, `import vector; var v = vector.new(1); vector.get(v, 5);`)
	require.NoError(t, err)

	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, runErr)
}

func TestMapPutGetHasRemoveKeys(t *testing.T) {
	src := `import map;
var m = map.new();
map.put(m, "a", 1);
map.put(m, "b", 2);
println(map.has(m, "a"));
println(map.get(m, "a"));
println(map.len(m));
map.remove(m, "a");
println(map.has(m, "a"));
println(map.len(m));`
	require.Equal(t, "true\n1\n2\nfalse\n1\n", runProgram(t, src))
}

func TestMapGetMissingKeyIsNull(t *testing.T) {
	require.Equal(t, "null\n", runProgram(t, `import map; var m = map.new(); println(map.get(m, "nope"));`))
}

func TestFileWriteReadAppendExistsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	path = filepath.ToSlash(path)

	src := `import file;
file.write("` + path + `", "hello ");
file.append("` + path + `", "world");
println(file.exists("` + path + `"));
println(file.read("` + path + `"));`
	require.Equal(t, "true\nhello world\n", runProgram(t, src))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
}

func TestFileReadMissingIsRuntimeError(t *testing.T) {
	machine := vm.New()
	RegisterAll(machine)
	fn, err := vm.Compile(machine, `import file; file.read("/does/not/exist-npz-test");`)
	require.NoError(t, err)

	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, runErr)
}
