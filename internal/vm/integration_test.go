package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lemon-Chad/NupizLang/internal/library"
	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// runProgram compiles and runs source on a fresh VM with every built-in
// library registered, returning whatever it printed to stdout.
func runProgram(t *testing.T, source string) string {
	t.Helper()
	machine := vm.New()
	library.RegisterAll(machine)
	var out bytes.Buffer
	machine.Out = &out

	fn, err := vm.Compile(machine, source)
	require.NoError(t, err, "compile error for: %s", source)

	_, result, runErr := machine.InterpretErr(fn)
	require.NoError(t, runErr)
	require.Equal(t, vm.InterpretOK, result)
	return out.String()
}

func TestArithmeticPrecedence(t *testing.T) {
	require.Equal(t, "7\n", runProgram(t, "println(1+2*3);"))
}

func TestStringConcatenationLoop(t *testing.T) {
	src := `var s="a"; for(var i=0;i<3;i=i+1) s=s+"b"; println(s);`
	require.Equal(t, "abbb\n", runProgram(t, src))
}

func TestClosureCounter(t *testing.T) {
	src := `fn makeCounter(){var n=0; fn inc(){n=n+1; return n;} return inc;}
const c=makeCounter(); println(c()); println(c()); println(c());`
	require.Equal(t, "1\n2\n3\n", runProgram(t, src))
}

func TestInheritanceAndSuper(t *testing.T) {
	src := `class A { build(x){ this.x=x; } fn get(){ return this.x; } }
class B <- A { fn get(){ return super.get()+1; } }
println((new B(41)).get());`
	require.Equal(t, "42\n", runProgram(t, src))
}

func TestInheritanceAndSuperWithoutNew(t *testing.T) {
	src := `class A { build(x){ this.x=x; } fn get(){ return this.x; } }
class B <- A { fn get(){ return super.get()+1; } }
println(B(41).get());`
	require.Equal(t, "42\n", runProgram(t, src))
}

func TestListIndexing(t *testing.T) {
	src := `var xs=[3,1,2]; xs[1]=9; println(xs[0]+xs[1]+xs[2]);`
	require.Equal(t, "14\n", runProgram(t, src))
}

func TestImportStd(t *testing.T) {
	require.Equal(t, "hi\n", runProgram(t, `import std; std.println("hi");`))
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	machine := vm.New()
	library.RegisterAll(machine)
	fn, err := vm.Compile(machine, `fn f(a,b){ return a+b; } f(1);`)
	require.NoError(t, err)

	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, runErr)
}

func TestBreakContinueNesting(t *testing.T) {
	src := `var sum=0;
for (var i=0;i<5;i=i+1) {
  if (i==2) continue;
  if (i==4) break;
  sum = sum + i;
}
println(sum);`
	require.Equal(t, "4\n", runProgram(t, src))
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	machine := vm.New()
	library.RegisterAll(machine)
	fn, err := vm.Compile(machine, `println(doesNotExist);`)
	require.NoError(t, err)

	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)
	require.Error(t, runErr)
}

func TestDumpLoadRoundTrip(t *testing.T) {
	src := `var s="a"; for(var i=0;i<3;i=i+1) s=s+"b"; println(s);`

	compileVM := vm.New()
	library.RegisterAll(compileVM)
	fn, err := vm.Compile(compileVM, src)
	require.NoError(t, err)

	data, err := vm.Dump(fn)
	require.NoError(t, err)

	runVM := vm.New()
	library.RegisterAll(runVM)
	loaded, err := vm.Load(runVM.GC(), data)
	require.NoError(t, err)

	var out bytes.Buffer
	runVM.Out = &out
	_, result, runErr := runVM.InterpretErr(loaded)
	require.NoError(t, runErr)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "abbb\n", out.String())
}

func TestCompileErrorReturnsNil(t *testing.T) {
	machine := vm.New()
	_, err := vm.Compile(machine, `var = ;`)
	require.Error(t, err)
}
