package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Binary instruction format, little-endian throughout.
//
// Function record:
//
//	u16 name length, name bytes (UTF-8)
//	u8  parameter count, then per parameter: u16 length + name
//	u16 local count, then per local: u16 length + name
//	u8  return-type-present flag, + 1 reserved byte when present
//	u16 stack size
//	u16 max stack depth
//	u32 instruction count, then each instruction
//
// Instruction:
//
//	u8 opcode
//	u8 operand count, then per operand: u8 type tag + payload
//
// Operand payloads by tag: int is a signed 32-bit LE integer, float is an
// IEEE-754 64-bit LE double, string is u16 length + UTF-8 bytes, bool is one
// byte (0/1).

// Operand type tags.
const (
	tagInt    byte = 0x00
	tagFloat  byte = 0x01
	tagString byte = 0x02
	tagBool   byte = 0x03
)

// EncodeFunction serializes a function record to its binary form.
func EncodeFunction(f *FunctionCode) ([]byte, error) {
	var buf bytes.Buffer

	if err := writeString16(&buf, f.Name); err != nil {
		return nil, fmt.Errorf("function %q: %w", f.Name, err)
	}

	if len(f.Params) > math.MaxUint8 {
		return nil, fmt.Errorf("function %q: %d parameters exceeds limit", f.Name, len(f.Params))
	}
	buf.WriteByte(byte(len(f.Params)))
	for _, name := range f.Params {
		if err := writeString16(&buf, name); err != nil {
			return nil, fmt.Errorf("function %q parameter: %w", f.Name, err)
		}
	}

	if len(f.Locals) > math.MaxUint16 {
		return nil, fmt.Errorf("function %q: %d locals exceeds limit", f.Name, len(f.Locals))
	}
	writeUint16(&buf, uint16(len(f.Locals)))
	for _, name := range f.Locals {
		if err := writeString16(&buf, name); err != nil {
			return nil, fmt.Errorf("function %q local: %w", f.Name, err)
		}
	}

	if f.ReturnType != "" {
		buf.WriteByte(1)
		buf.WriteByte(0) // reserved
	} else {
		buf.WriteByte(0)
	}

	writeUint16(&buf, uint16(f.StackSize))
	writeUint16(&buf, uint16(f.MaxStackDepth))

	writeUint32(&buf, uint32(len(f.Instructions)))
	for i, in := range f.Instructions {
		if err := encodeInstruction(&buf, in); err != nil {
			return nil, fmt.Errorf("function %q instruction %d: %w", f.Name, i, err)
		}
	}

	return buf.Bytes(), nil
}

func encodeInstruction(buf *bytes.Buffer, in Instruction) error {
	buf.WriteByte(byte(in.Op))
	if len(in.Operands) > math.MaxUint8 {
		return fmt.Errorf("%d operands exceeds limit", len(in.Operands))
	}
	buf.WriteByte(byte(len(in.Operands)))
	for _, operand := range in.Operands {
		switch v := operand.(type) {
		case int64:
			if v > math.MaxInt32 || v < math.MinInt32 {
				return fmt.Errorf("integer operand %d out of 32-bit range", v)
			}
			buf.WriteByte(tagInt)
			writeUint32(buf, uint32(int32(v)))
		case float64:
			buf.WriteByte(tagFloat)
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
			buf.Write(b[:])
		case string:
			buf.WriteByte(tagString)
			if err := writeString16(buf, v); err != nil {
				return err
			}
		case bool:
			buf.WriteByte(tagBool)
			if v {
				buf.WriteByte(1)
			} else {
				buf.WriteByte(0)
			}
		default:
			return fmt.Errorf("unsupported operand type %T", operand)
		}
	}
	return nil
}

// DecodeFunction reads one function record from data, returning the record
// and the number of bytes consumed.
func DecodeFunction(data []byte) (*FunctionCode, int, error) {
	r := &reader{data: data}

	name, err := r.string16()
	if err != nil {
		return nil, 0, fmt.Errorf("function name: %w", err)
	}
	f := NewFunctionCode(name)

	paramCount, err := r.byte()
	if err != nil {
		return nil, 0, fmt.Errorf("function %q: %w", name, err)
	}
	for i := 0; i < int(paramCount); i++ {
		p, err := r.string16()
		if err != nil {
			return nil, 0, fmt.Errorf("function %q parameter %d: %w", name, i, err)
		}
		f.Params = append(f.Params, p)
	}

	localCount, err := r.uint16()
	if err != nil {
		return nil, 0, fmt.Errorf("function %q: %w", name, err)
	}
	for i := 0; i < int(localCount); i++ {
		l, err := r.string16()
		if err != nil {
			return nil, 0, fmt.Errorf("function %q local %d: %w", name, i, err)
		}
		f.Locals = append(f.Locals, l)
	}

	retFlag, err := r.byte()
	if err != nil {
		return nil, 0, fmt.Errorf("function %q: %w", name, err)
	}
	if retFlag != 0 {
		if _, err := r.byte(); err != nil { // reserved
			return nil, 0, fmt.Errorf("function %q: %w", name, err)
		}
		f.ReturnType = "any"
	}

	stackSize, err := r.uint16()
	if err != nil {
		return nil, 0, fmt.Errorf("function %q: %w", name, err)
	}
	f.StackSize = int(stackSize)
	maxDepth, err := r.uint16()
	if err != nil {
		return nil, 0, fmt.Errorf("function %q: %w", name, err)
	}
	f.MaxStackDepth = int(maxDepth)

	count, err := r.uint32()
	if err != nil {
		return nil, 0, fmt.Errorf("function %q: %w", name, err)
	}
	for i := 0; i < int(count); i++ {
		in, err := decodeInstruction(r)
		if err != nil {
			return nil, 0, fmt.Errorf("function %q instruction %d: %w", name, i, err)
		}
		f.Instructions = append(f.Instructions, in)
	}

	return f, r.off, nil
}

func decodeInstruction(r *reader) (Instruction, error) {
	opByte, err := r.byte()
	if err != nil {
		return Instruction{}, err
	}
	op := Opcode(opByte)

	operandCount, err := r.byte()
	if err != nil {
		return Instruction{}, err
	}
	var operands []any
	for i := 0; i < int(operandCount); i++ {
		tag, err := r.byte()
		if err != nil {
			return Instruction{}, err
		}
		switch tag {
		case tagInt:
			v, err := r.uint32()
			if err != nil {
				return Instruction{}, err
			}
			operands = append(operands, int64(int32(v)))
		case tagFloat:
			b, err := r.bytes(8)
			if err != nil {
				return Instruction{}, err
			}
			operands = append(operands, math.Float64frombits(binary.LittleEndian.Uint64(b)))
		case tagString:
			s, err := r.string16()
			if err != nil {
				return Instruction{}, err
			}
			operands = append(operands, s)
		case tagBool:
			b, err := r.byte()
			if err != nil {
				return Instruction{}, err
			}
			operands = append(operands, b != 0)
		default:
			return Instruction{}, fmt.Errorf("unknown operand type tag 0x%02X", tag)
		}
	}

	return Instruction{Op: op, Operands: operands}, nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeString16(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string of %d bytes exceeds length prefix", len(s))
	}
	writeUint16(buf, uint16(len(s)))
	buf.WriteString(s)
	return nil
}

// reader tracks a decode offset over a byte slice.
type reader struct {
	data []byte
	off  int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, fmt.Errorf("truncated record at offset %d", r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) string16() (string, error) {
	n, err := r.uint16()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
