package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
)

// Tag discriminants for the bit-exact value/function/chunk/namespace wire
// format. A loaded program must round-trip byte-for-byte through a
// hand-written tag stream, so encoding/gob is not used.
const (
	tagNull byte = iota
	tagNumber
	tagBool
	tagString
	tagFunc
	tagChunk
	tagNamespace
)

// Dump serializes fn (and everything it transitively references through
// its constant pool) to a canonical byte stream. The file is a single
// tagged FUNC record with no header or magic.
func Dump(fn *ObjFunction) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeFunc(buf, fn); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load reads a byte stream produced by Dump back into a top-level
// ObjFunction, interning every string through gc so identity is preserved
// across the round-trip.
func Load(gc *GC, data []byte) (*ObjFunction, error) {
	gc.PauseGC()
	defer gc.UnpauseGC()
	r := bytes.NewReader(data)
	fn, err := readFunc(r, gc)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("load: %d trailing bytes after top-level function", r.Len())
	}
	return fn, nil
}

// ---- writer ----

func writeValue(buf *bytes.Buffer, v Value) error {
	switch v.Type {
	case ValNull:
		buf.WriteByte(tagNull)
		return nil
	case ValNumber:
		buf.WriteByte(tagNumber)
		return binary.Write(buf, binary.LittleEndian, v.Num)
	case ValBool:
		buf.WriteByte(tagBool)
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	case ValObj:
		switch o := v.Obj.(type) {
		case *ObjString:
			return writeString(buf, o.Chars)
		case *ObjFunction:
			return writeFunc(buf, o)
		case *ObjNamespace:
			return writeNamespace(buf, o)
		}
		return fmt.Errorf("dump: value of type %T is not serializable", v.Obj)
	}
	return fmt.Errorf("dump: unknown value tag %d", v.Type)
}

func writeString(buf *bytes.Buffer, chars []byte) error {
	buf.WriteByte(tagString)
	return writeBytes(buf, chars)
}

func writeBytes(buf *bytes.Buffer, b []byte) error {
	if err := binary.Write(buf, binary.LittleEndian, int32(len(b))); err != nil {
		return err
	}
	_, err := buf.Write(b)
	return err
}

func writeFunc(buf *bytes.Buffer, fn *ObjFunction) error {
	buf.WriteByte(tagFunc)
	buf.WriteByte(byte(fn.Arity))
	if fn.Name == nil {
		buf.WriteByte(tagNull)
	} else if err := writeString(buf, fn.Name.Chars); err != nil {
		return err
	}
	buf.WriteByte(byte(fn.UpvalueCount))
	return writeChunk(buf, fn.Chunk)
}

func writeChunk(buf *bytes.Buffer, c *Chunk) error {
	buf.WriteByte(tagChunk)
	if err := binary.Write(buf, binary.LittleEndian, int32(len(c.lines))); err != nil {
		return err
	}
	for i, line := range c.lines {
		if err := binary.Write(buf, binary.LittleEndian, int32(line)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.LittleEndian, int32(c.runs[i])); err != nil {
			return err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(c.Constants))); err != nil {
		return err
	}
	for _, v := range c.Constants {
		if err := writeValue(buf, v); err != nil {
			return err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(c.Code))); err != nil {
		return err
	}
	_, err := buf.Write(c.Code)
	return err
}

func writeNamespace(buf *bytes.Buffer, ns *ObjNamespace) error {
	buf.WriteByte(tagNamespace)
	if err := writeString(buf, ns.Name.Chars); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(ns.Values))); err != nil {
		return err
	}
	// Sorted keys keep the stream canonical: dumping the same namespace
	// twice yields identical bytes.
	keys := make([]string, 0, len(ns.Values))
	for key := range ns.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writeString(buf, []byte(key)); err != nil {
			return err
		}
		if err := writeValue(buf, ns.Values[key]); err != nil {
			return err
		}
		if ns.Publics[key] {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	return nil
}

// ---- reader ----

// maxLoadCount bounds every length-prefixed count the loader trusts from
// the stream, rejecting a corrupt or adversarial file before it drives an
// enormous allocation.
const maxLoadCount = 1 << 24

func readCount(r *bytes.Reader) (int, error) {
	var n int32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, fmt.Errorf("truncated count: %w", err)
	}
	if n < 0 || int(n) > maxLoadCount {
		return 0, fmt.Errorf("out-of-range count %d", n)
	}
	return int(n), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("truncated string body: %w", err)
	}
	return out, nil
}

func readTag(r *bytes.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("truncated stream: %w", err)
	}
	return b, nil
}

// consumeTag reads one byte and fails unless it is the expected tag.
func consumeTag(r *bytes.Reader, want byte, what string) error {
	tag, err := readTag(r)
	if err != nil {
		return err
	}
	if tag != want {
		return fmt.Errorf("expected %s tag %d, found %d", what, want, tag)
	}
	return nil
}

func readValue(r *bytes.Reader, gc *GC) (Value, error) {
	tag, err := readTag(r)
	if err != nil {
		return NullVal(), err
	}
	switch tag {
	case tagNull:
		return NullVal(), nil
	case tagNumber:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return NullVal(), fmt.Errorf("truncated number: %w", err)
		}
		return NumberVal(math.Float64frombits(bits)), nil
	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return NullVal(), fmt.Errorf("truncated bool: %w", err)
		}
		return BoolVal(b != 0), nil
	case tagString:
		chars, err := readBytes(r)
		if err != nil {
			return NullVal(), err
		}
		return ObjVal(gc.TakeString(chars)), nil
	case tagFunc:
		fn, err := readFuncBody(r, gc)
		if err != nil {
			return NullVal(), err
		}
		return ObjVal(fn), nil
	case tagNamespace:
		ns, err := readNamespaceBody(r, gc)
		if err != nil {
			return NullVal(), err
		}
		return ObjVal(ns), nil
	}
	return NullVal(), fmt.Errorf("unknown value tag %d", tag)
}

func readString(r *bytes.Reader, gc *GC) (*ObjString, error) {
	if err := consumeTag(r, tagString, "string"); err != nil {
		return nil, err
	}
	chars, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	return gc.TakeString(chars), nil
}

func readFunc(r *bytes.Reader, gc *GC) (*ObjFunction, error) {
	if err := consumeTag(r, tagFunc, "function"); err != nil {
		return nil, err
	}
	return readFuncBody(r, gc)
}

func readFuncBody(r *bytes.Reader, gc *GC) (*ObjFunction, error) {
	arity, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("truncated function arity: %w", err)
	}
	nameTag, err := readTag(r)
	if err != nil {
		return nil, err
	}
	var name *ObjString
	switch nameTag {
	case tagNull:
	case tagString:
		chars, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		name = gc.TakeString(chars)
	default:
		return nil, fmt.Errorf("function name tag %d is not NULL or STRING", nameTag)
	}
	upvalueCount, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("truncated function upvalueCount: %w", err)
	}
	chunk, err := readChunk(r, gc)
	if err != nil {
		return nil, err
	}
	fn := gc.NewFunction()
	fn.Arity = int(arity)
	fn.Name = name
	fn.UpvalueCount = int(upvalueCount)
	fn.Chunk = chunk
	return fn, nil
}

func readChunk(r *bytes.Reader, gc *GC) (*Chunk, error) {
	if err := consumeTag(r, tagChunk, "chunk"); err != nil {
		return nil, err
	}
	lineCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	c := &Chunk{lines: make([]int, lineCount), runs: make([]int, lineCount)}
	for i := 0; i < lineCount; i++ {
		var line, run int32
		if err := binary.Read(r, binary.LittleEndian, &line); err != nil {
			return nil, fmt.Errorf("truncated line entry: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &run); err != nil {
			return nil, fmt.Errorf("truncated line entry: %w", err)
		}
		c.lines[i] = int(line)
		c.runs[i] = int(run)
	}

	constCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	c.Constants = make([]Value, constCount)
	for i := 0; i < constCount; i++ {
		v, err := readValue(r, gc)
		if err != nil {
			return nil, err
		}
		c.Constants[i] = v
	}

	codeCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	c.Code = make([]byte, codeCount)
	if _, err := io.ReadFull(r, c.Code); err != nil {
		return nil, fmt.Errorf("truncated code body: %w", err)
	}
	return c, nil
}

func readNamespaceBody(r *bytes.Reader, gc *GC) (*ObjNamespace, error) {
	name, err := readString(r, gc)
	if err != nil {
		return nil, err
	}
	ns := gc.NewNamespace(name)

	entryCount, err := readCount(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < entryCount; i++ {
		key, err := readString(r, gc)
		if err != nil {
			return nil, err
		}
		val, err := readValue(r, gc)
		if err != nil {
			return nil, err
		}
		isPublic, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("truncated namespace entry flag: %w", err)
		}
		k := string(key.Chars)
		ns.Values[k] = val
		ns.Publics[k] = isPublic != 0
	}
	return ns, nil
}
