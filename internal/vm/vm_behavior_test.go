package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Lemon-Chad/NupizLang/internal/library"
	"github.com/Lemon-Chad/NupizLang/internal/vm"
)

// runExpectError compiles source and runs it expecting a runtime error.
func runExpectError(t *testing.T, source string) *vm.RuntimeError {
	t.Helper()
	machine := vm.New()
	library.RegisterAll(machine)
	machine.Out = new(bytes.Buffer)

	fn, err := vm.Compile(machine, source)
	require.NoError(t, err, "compile error for: %s", source)

	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)
	re, ok := runErr.(*vm.RuntimeError)
	require.True(t, ok, "runtime failures must surface as *RuntimeError")
	return re
}

func TestDeclaredFieldDefaultsAndPerInstanceMutation(t *testing.T) {
	src := `class Counter {
  var n = 10;
  fn bump() { this.n = this.n + 1; return this.n; }
}
var a = Counter();
var b = Counter();
a.bump();
a.bump();
println(a.n);
println(b.n);`
	require.Equal(t, "12\n10\n", runProgram(t, src))
}

func TestUndeclaredFieldCreatedByAssignment(t *testing.T) {
	src := `class Box { build(v) { this.payload = v; } }
var b = Box(7);
println(b.payload);`
	require.Equal(t, "7\n", runProgram(t, src))
}

func TestStaticFieldLivesOnClass(t *testing.T) {
	src := `class Registry {
  static var count = 0;
  fn register() { Registry.count = Registry.count + 1; }
}
var r = Registry();
r.register();
r.register();
println(Registry.count);`
	require.Equal(t, "2\n", runProgram(t, src))
}

func TestPrivateFieldInternalOkExternalError(t *testing.T) {
	src := `class Vault {
  var _secret = 41;
  fn reveal() { return this._secret + 1; }
}
var v = Vault();
println(v.reveal());`
	require.Equal(t, "42\n", runProgram(t, src))

	re := runExpectError(t, `class Vault { var _secret = 41; }
var v = Vault();
println(v._secret);`)
	require.Contains(t, re.Message, "not accessible")
}

func TestPrivateMethodInternalOkExternalError(t *testing.T) {
	src := `class C {
  fn _helper() { return 1; }
  fn pub() { return this._helper() + 1; }
}
println(C().pub());`
	require.Equal(t, "2\n", runProgram(t, src))

	re := runExpectError(t, `class C { fn _helper() { return 1; } }
C()._helper();`)
	require.Contains(t, re.Message, "not accessible")
}

func TestConstAttributeWriteIsRuntimeError(t *testing.T) {
	re := runExpectError(t, `class C { const limit = 5; }
var c = C();
c.limit = 6;`)
	require.Contains(t, re.Message, "constant")
}

func TestDefStringDrivesPrinting(t *testing.T) {
	src := `class Point {
  build(x, y) { this.x = x; this.y = y; }
  def string() { return "(" + asString(this.x) + ", " + asString(this.y) + ")"; }
}
println(Point(1, 2));`
	require.Equal(t, "(1, 2)\n", runProgram(t, src))
}

func TestDefEqOverridesIdentity(t *testing.T) {
	src := `class Money {
  build(cents) { this.cents = cents; }
  def eq(other) { return this.cents == other.cents; }
}
println(Money(100) == Money(100));
println(Money(100) == Money(101));
println(Money(100) != Money(101));`
	require.Equal(t, "true\nfalse\ntrue\n", runProgram(t, src))
}

func TestInstanceIdentityEqualityWithoutDefEq(t *testing.T) {
	src := `class C {}
var a = C();
var b = C();
println(a == a);
println(a == b);`
	require.Equal(t, "true\nfalse\n", runProgram(t, src))
}

func TestDefHashNonNumberIsRuntimeError(t *testing.T) {
	machine := vm.New()
	library.RegisterAll(machine)
	machine.Out = new(bytes.Buffer)

	fn, err := vm.Compile(machine, `class C { def hash() { return "nope"; } } var c = C();`)
	require.NoError(t, err)
	_, result, runErr := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretOK, result)
	require.NoError(t, runErr)

	c, ok := machine.Globals()["c"]
	require.True(t, ok)
	_, hashErr := machine.HashValue(c)
	require.Error(t, hashErr)
}

func TestListConcatenationMakesFreshList(t *testing.T) {
	src := `var a = [1, 2];
var b = [3];
var c = a + b;
println(length(c));
println(c[0] + c[2]);
println(length(a));`
	require.Equal(t, "3\n4\n2\n", runProgram(t, src))
}

func TestStringComparisonIsLexicographic(t *testing.T) {
	src := `println("abc" < "abd");
println("b" > "ab");
println("same" <= "same");
println("z" >= "az");`
	require.Equal(t, "true\ntrue\ntrue\ntrue\n", runProgram(t, src))
}

func TestMixedComparisonIsRuntimeError(t *testing.T) {
	re := runExpectError(t, `println(1 < "two");`)
	require.Contains(t, re.Message, "operands")
}

func TestGlobalBuiltins(t *testing.T) {
	src := `var xs = [1, 2];
append(xs, 9);
println(length(xs));
println(pop(xs));
remove(xs, 0);
println(length(xs));
println(asString(5) + "!");
println(clock() >= 0);`
	require.Equal(t, "3\n9\n1\n5!\ntrue\n", runProgram(t, src))
}

func TestUnpackSplicesPublicsIntoGlobals(t *testing.T) {
	src := `unpack import math;
println(floor(3.7));
println(pi > 3.14);`
	require.Equal(t, "3\ntrue\n", runProgram(t, src))
}

func TestLogicalShortCircuit(t *testing.T) {
	src := `fn boom() { crashMissingGlobal; return true; }
println(false && boom());
println(true || boom());
println(true && false);
println(false || true);`
	require.Equal(t, "false\ntrue\nfalse\ntrue\n", runProgram(t, src))
}

func TestStringEscapes(t *testing.T) {
	src := "println(\"a\\tb\");\nprintln(\"q\\\"q\");"
	require.Equal(t, "a\tb\nq\"q\n", runProgram(t, src))
}

func TestRuntimeErrorCarriesFrameTrace(t *testing.T) {
	re := runExpectError(t, `fn inner() { return 1 + "no"; }
fn outer() { return inner(); }
outer();`)
	require.Len(t, re.Trace, 3)
	require.Contains(t, re.Trace[0], "inner")
	require.Contains(t, re.Trace[1], "outer")
	require.Contains(t, re.Trace[2], "<script>")
}

func TestStackResetAfterRuntimeError(t *testing.T) {
	machine := vm.New()
	library.RegisterAll(machine)
	machine.Out = new(bytes.Buffer)

	fn, err := vm.Compile(machine, `fn f() { return missing; } f();`)
	require.NoError(t, err)
	_, result, _ := machine.InterpretErr(fn)
	require.Equal(t, vm.InterpretRuntimeError, result)

	// The same VM must be reusable after a fatal run.
	fn2, err := vm.Compile(machine, `println("recovered");`)
	require.NoError(t, err)
	var out bytes.Buffer
	machine.Out = &out
	_, result, runErr := machine.InterpretErr(fn2)
	require.NoError(t, runErr)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "recovered\n", out.String())
}

func TestImportFileCachesByLiteralKey(t *testing.T) {
	machine := vm.New()
	library.RegisterAll(machine)
	var out bytes.Buffer
	machine.Out = &out

	calls := 0
	machine.ImportFile = func(path string) (*vm.ObjNamespace, error) {
		calls++
		child := vm.New()
		library.RegisterAll(child)
		fn, err := vm.Compile(child, `var answer = 42;`)
		if err != nil {
			return nil, err
		}
		if _, _, err := child.InterpretErr(fn); err != nil {
			return nil, err
		}
		return child.TakeNamespace(machine.GC(), path), nil
	}

	fn, err := vm.Compile(machine, `var m1 = import "mod";
var m2 = import "mod";
println(m1.answer + m2.answer);`)
	require.NoError(t, err)

	_, result, runErr := machine.InterpretErr(fn)
	require.NoError(t, runErr)
	require.Equal(t, vm.InterpretOK, result)
	require.Equal(t, "84\n", out.String())
	require.Equal(t, 1, calls, "the imported-files table must cache by the literal path string")
}

func TestDeepCallStackOverflows(t *testing.T) {
	re := runExpectError(t, `fn f() { return f(); } f();`)
	require.Contains(t, re.Message, "stack overflow")
}

func TestStaticMethodCallableOnClass(t *testing.T) {
	src := `class MathUtil {
  static fn twice(x) { return x * 2; }
}
println(MathUtil.twice(21));`
	require.Equal(t, "42\n", runProgram(t, src))
}
