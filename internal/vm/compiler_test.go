package vm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

// compileErr compiles source expecting failure, returning the diagnostics
// the parser wrote.
func compileErr(t *testing.T, source string) string {
	t.Helper()
	machine := New()
	var diag bytes.Buffer
	machine.Err = &diag
	_, err := Compile(machine, source)
	require.Error(t, err, "expected a compile error for: %s", source)
	return diag.String()
}

func TestAssignToConstLocalIsCompileError(t *testing.T) {
	out := compileErr(t, `{ const x = 1; x = 2; }`)
	require.Contains(t, out, "constant")
}

func TestAssignToConstParameterIsCompileError(t *testing.T) {
	compileErr(t, `fn f(const a) { a = 2; }`)
}

func TestReadLocalInOwnInitializerIsCompileError(t *testing.T) {
	out := compileErr(t, `{ var a = a; }`)
	require.Contains(t, out, "own initializer")
}

func TestDuplicateLocalIsCompileError(t *testing.T) {
	out := compileErr(t, `{ var a = 1; var a = 2; }`)
	require.Contains(t, out, "already a variable")
}

func TestBreakOutsideLoopIsCompileError(t *testing.T) {
	compileErr(t, `break;`)
}

func TestContinueOutsideLoopIsCompileError(t *testing.T) {
	compileErr(t, `continue;`)
}

func TestReturnAtTopLevelIsCompileError(t *testing.T) {
	compileErr(t, `return 1;`)
}

func TestReturnValueFromBuilderIsCompileError(t *testing.T) {
	compileErr(t, `class C { build() { return 1; } }`)
}

func TestThisOutsideMethodIsCompileError(t *testing.T) {
	compileErr(t, `println(this);`)
}

func TestSuperOutsideClassIsCompileError(t *testing.T) {
	compileErr(t, `println(super.x);`)
}

func TestSuperWithoutSuperclassIsCompileError(t *testing.T) {
	compileErr(t, `class C { fn m() { return super.m(); } }`)
}

func TestSelfInheritanceIsCompileError(t *testing.T) {
	compileErr(t, `class C <- C {}`)
}

func TestInvalidAssignmentTargetIsCompileError(t *testing.T) {
	compileErr(t, `1 + 2 = 3;`)
}

func TestUnknownDefaultMethodIsCompileError(t *testing.T) {
	compileErr(t, `class C { def bogus() { return 1; } }`)
}

func TestParserSynchronizesAcrossStatements(t *testing.T) {
	machine := New()
	var diag bytes.Buffer
	machine.Err = &diag
	_, err := Compile(machine, "var = 1;\nvar ok = 2;\nvar = 3;\n")
	require.Error(t, err)
	// Two independent errors: panic mode must reset at the statement
	// boundary rather than suppressing the second report.
	require.Equal(t, 2, bytes.Count(diag.Bytes(), []byte("Error")))
}

func TestCompoundAssignmentEmitsGetArithSet(t *testing.T) {
	machine := New()
	fn, err := Compile(machine, `var a = 1; a += 2;`)
	require.NoError(t, err)

	var ops []Opcode
	code := fn.Chunk.Code
	for i := 0; i < len(code); i++ {
		op := Opcode(code[i])
		ops = append(ops, op)
		switch op {
		case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL, OP_POP_N:
			i++
		case OP_CONSTANT_LONG:
			i += 3
		}
	}
	require.Contains(t, ops, OP_GET_GLOBAL)
	require.Contains(t, ops, OP_ADD)
	require.Contains(t, ops, OP_SET_GLOBAL)
}

func TestClosureCaptureMarksLocalCaptured(t *testing.T) {
	machine := New()
	fn, err := Compile(machine, `
fn outer() {
  var f = null;
  {
    var captured = 1;
    fn inner() { return captured; }
    f = inner;
  }
  return f;
}
`)
	require.NoError(t, err)

	var outer *ObjFunction
	for _, c := range fn.Chunk.Constants {
		if f, ok := c.Obj.(*ObjFunction); ok && f.Name != nil && string(f.Name.Chars) == "outer" {
			outer = f
		}
	}
	require.NotNil(t, outer)

	// outer's body must close the captured slot rather than popping it.
	require.Contains(t, outer.Chunk.Code, byte(OP_CLOSE_UPVALUE))

	var inner *ObjFunction
	for _, c := range outer.Chunk.Constants {
		if f, ok := c.Obj.(*ObjFunction); ok && f.Name != nil && string(f.Name.Chars) == "inner" {
			inner = f
		}
	}
	require.NotNil(t, inner)
	require.Equal(t, 1, inner.UpvalueCount)
}
