// Package vm implements the npz bytecode compiler, chunk format, object
// model, garbage collector and stack-based interpreter.
package vm

// Opcode identifies a single bytecode instruction.
type Opcode byte

const (
	OP_CONSTANT      Opcode = iota // const8
	OP_CONSTANT_LONG               // const24
	OP_NULL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_POP_N // u8 count

	OP_DEFINE_GLOBAL // const8 name
	OP_GET_GLOBAL    // const8 name
	OP_SET_GLOBAL    // const8 name

	OP_GET_LOCAL // u8 slot
	OP_SET_LOCAL // u8 slot

	OP_GET_UPVALUE // u8 slot
	OP_SET_UPVALUE // u8 slot
	OP_CLOSE_UPVALUE

	OP_JUMP          // u16
	OP_JUMP_IF_FALSE // u16
	OP_JUMP_IF_TRUE  // u16
	OP_LOOP          // u16

	OP_CALL // u8 argc

	OP_CLOSURE // const24 function (always long form), then upvalueCount * (u8 isLocal, u8 index)

	OP_CLASS     // const8 name
	OP_INHERIT   //
	OP_METHOD    // u8 kind, [u8 builtinIdx | const8 name], [u8 isPublic, u8 isStatic]
	OP_ATTRIBUTE // const8 name, u8 isConstant, u8 isPublic, u8 isStatic

	OP_GET_PROPERTY // const8 name
	OP_SET_PROPERTY // const8 name
	OP_INVOKE       // const8 name, u8 argc
	OP_GET_SUPER    // const8 name
	OP_SUPER_INVOKE // const8 name, u8 argc

	OP_MAKE_LIST // u8 argc
	OP_GET_INDEX
	OP_SET_INDEX

	OP_IMPORT      // const8 libname
	OP_IMPORT_FILE //
	OP_UNPACK      //

	OP_RETURN

	OP_NOT
	OP_NEGATE
	OP_EQUAL
	OP_NOT_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
)

// Method discriminants for OP_METHOD.
const (
	MethodKindNamed   = 0 // `method` - const8 name operand
	MethodKindBuilder = 1 // `build`  - no name operand
	MethodKindBuiltin = 2 // `def <builtin>` - u8 builtin index operand
)

// Built-in default-method slot indices.
const (
	DefaultString = 0
	DefaultEq     = 1
	DefaultHash   = 2
)

var builtinDefaultNames = [3]string{"string", "eq", "hash"}

// opcodeNames backs the disassembler (disasm.go); the compile/run/dump
// paths the driver exercises never consult it.
var opcodeNames = map[Opcode]string{
	OP_CONSTANT:      "CONSTANT",
	OP_CONSTANT_LONG: "CONSTANT_LONG",
	OP_NULL:          "NULL",
	OP_TRUE:          "TRUE",
	OP_FALSE:         "FALSE",
	OP_POP:           "POP",
	OP_POP_N:         "POP_N",
	OP_DEFINE_GLOBAL: "DEFINE_GLOBAL",
	OP_GET_GLOBAL:    "GET_GLOBAL",
	OP_SET_GLOBAL:    "SET_GLOBAL",
	OP_GET_LOCAL:     "GET_LOCAL",
	OP_SET_LOCAL:     "SET_LOCAL",
	OP_GET_UPVALUE:   "GET_UPVALUE",
	OP_SET_UPVALUE:   "SET_UPVALUE",
	OP_CLOSE_UPVALUE: "CLOSE_UPVALUE",
	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",
	OP_JUMP_IF_TRUE:  "JUMP_IF_TRUE",
	OP_LOOP:          "LOOP",
	OP_CALL:          "CALL",
	OP_CLOSURE:       "CLOSURE",
	OP_CLASS:         "CLASS",
	OP_INHERIT:       "INHERIT",
	OP_METHOD:        "METHOD",
	OP_ATTRIBUTE:     "ATTRIBUTE",
	OP_GET_PROPERTY:  "GET_PROPERTY",
	OP_SET_PROPERTY:  "SET_PROPERTY",
	OP_INVOKE:        "INVOKE",
	OP_GET_SUPER:     "GET_SUPER",
	OP_SUPER_INVOKE:  "SUPER_INVOKE",
	OP_MAKE_LIST:     "MAKE_LIST",
	OP_GET_INDEX:     "GET_INDEX",
	OP_SET_INDEX:     "SET_INDEX",
	OP_IMPORT:        "IMPORT",
	OP_IMPORT_FILE:   "IMPORT_FILE",
	OP_UNPACK:        "UNPACK",
	OP_RETURN:        "RETURN",
	OP_NOT:           "NOT",
	OP_NEGATE:        "NEGATE",
	OP_EQUAL:         "EQUAL",
	OP_NOT_EQUAL:     "NOT_EQUAL",
	OP_GREATER:       "GREATER",
	OP_GREATER_EQUAL: "GREATER_EQUAL",
	OP_LESS:          "LESS",
	OP_LESS_EQUAL:    "LESS_EQUAL",
	OP_ADD:           "ADD",
	OP_SUBTRACT:      "SUBTRACT",
	OP_MULTIPLY:      "MULTIPLY",
	OP_DIVIDE:        "DIVIDE",
}
