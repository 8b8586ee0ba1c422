package vm

import (
	"fmt"
	"strings"
)

// DisassembleChunk renders every instruction in c, one per line, with
// offsets and run-length-decoded source lines. Development tooling only:
// the compile/run/dump paths never call it.
func DisassembleChunk(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = disassembleInstruction(&b, c, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	if offset > 0 && c.GetLine(offset) == c.GetLine(offset-1) {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(b, "%4d ", c.GetLine(offset))
	}

	op := Opcode(c.Code[offset])
	name, known := opcodeNames[op]
	if !known {
		fmt.Fprintf(b, "UNKNOWN %d\n", op)
		return offset + 1
	}

	switch op {
	case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL,
		OP_CLASS, OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER, OP_IMPORT:
		return constantInstruction(b, name, c, offset)

	case OP_CONSTANT_LONG:
		idx := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])<<16
		fmt.Fprintf(b, "%-16s %4d '%s'\n", name, idx, c.Constants[idx].String())
		return offset + 4

	case OP_POP_N, OP_GET_LOCAL, OP_SET_LOCAL, OP_GET_UPVALUE, OP_SET_UPVALUE,
		OP_CALL, OP_MAKE_LIST:
		fmt.Fprintf(b, "%-16s %4d\n", name, c.Code[offset+1])
		return offset + 2

	case OP_JUMP, OP_JUMP_IF_FALSE, OP_JUMP_IF_TRUE:
		return jumpInstruction(b, name, 1, c, offset)
	case OP_LOOP:
		return jumpInstruction(b, name, -1, c, offset)

	case OP_INVOKE, OP_SUPER_INVOKE:
		idx := int(c.Code[offset+1])
		argc := c.Code[offset+2]
		fmt.Fprintf(b, "%-16s (%d args) %4d '%s'\n", name, argc, idx, c.Constants[idx].String())
		return offset + 3

	case OP_CLOSURE:
		idx := int(c.Code[offset+1]) | int(c.Code[offset+2])<<8 | int(c.Code[offset+3])<<16
		fn := c.Constants[idx].Obj.(*ObjFunction)
		fmt.Fprintf(b, "%-16s %4d %s\n", name, idx, fn.Print())
		offset += 4
		for i := 0; i < fn.UpvalueCount; i++ {
			kind := "upvalue"
			if c.Code[offset] != 0 {
				kind = "local"
			}
			fmt.Fprintf(b, "%04d    |   %s %d\n", offset, kind, c.Code[offset+1])
			offset += 2
		}
		return offset

	case OP_METHOD:
		kind := c.Code[offset+1]
		switch kind {
		case MethodKindBuilder:
			fmt.Fprintf(b, "%-16s build\n", name)
			return offset + 4
		case MethodKindBuiltin:
			fmt.Fprintf(b, "%-16s def %s\n", name, builtinDefaultNames[c.Code[offset+2]])
			return offset + 5
		default:
			idx := int(c.Code[offset+2])
			fmt.Fprintf(b, "%-16s fn '%s'\n", name, c.Constants[idx].String())
			return offset + 5
		}

	case OP_ATTRIBUTE:
		idx := int(c.Code[offset+1])
		fmt.Fprintf(b, "%-16s '%s' const=%d public=%d static=%d\n",
			name, c.Constants[idx].String(), c.Code[offset+2], c.Code[offset+3], c.Code[offset+4])
		return offset + 5

	default:
		fmt.Fprintf(b, "%s\n", name)
		return offset + 1
	}
}

func constantInstruction(b *strings.Builder, name string, c *Chunk, offset int) int {
	idx := int(c.Code[offset+1])
	fmt.Fprintf(b, "%-16s %4d '%s'\n", name, idx, c.Constants[idx].String())
	return offset + 2
}

func jumpInstruction(b *strings.Builder, name string, sign int, c *Chunk, offset int) int {
	jump := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
	fmt.Fprintf(b, "%-16s %4d -> %d\n", name, offset, offset+3+sign*jump)
	return offset + 3
}
