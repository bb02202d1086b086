// Package ir implements the SSA-style intermediate representation shared by
// the SH-4 recompiler frontend and its optimization passes. Values and
// instructions are arena-allocated: a compilation unit owns exactly one
// arena, and every node in the unit's use-def graph dies with it.
package ir

import "fmt"

// Type is the closed set of value types the IR can carry.
type Type uint8

const (
	I8 Type = iota
	I16
	I32
	I64
	F32
	F64
	V128
	BlockType // a value that names a basic block (branch targets)
)

func (t Type) String() string {
	switch t {
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case BlockType:
		return "block"
	}
	return "?"
}

// IsInt reports whether t is one of the integer types.
func (t Type) IsInt() bool {
	return t == I8 || t == I16 || t == I32 || t == I64
}

// IsFloat reports whether t is one of the floating-point types.
func (t Type) IsFloat() bool {
	return t == F32 || t == F64
}

// SizeOf returns the size in bytes of a value of type t, used when sizing
// local-stack slots (AllocLocal).
func SizeOf(t Type) int {
	switch t {
	case I8:
		return 1
	case I16:
		return 2
	case I32, F32:
		return 4
	case I64, F64, BlockType:
		return 8
	case V128:
		return 16
	}
	return 0
}

// Value is either a constant (type + immediate payload) or the single result
// of a defining Instr. Non-constant values track their use-sites so that
// ReplaceAllUsesWith is O(uses) rather than a scan over every instruction.
type Value struct {
	typ      Type
	constant bool

	// payload, discriminated by typ when constant is true.
	i64 int64
	f32 float32
	f64 float64
	blk *Block

	def  *Instr // defining instruction, nil for constants
	refs []*ValueRef
	reg  int // assigned by the (out of scope) register allocator; -1 if unset
}

// ValueRef is one use-site of a Value: the instruction and argument slot
// that reads it. Held by Instr.args so a Value can walk its own uses.
type ValueRef struct {
	instr *Instr
	idx   int
	value *Value
}

func newConstInt(t Type, v int64) *Value {
	return &Value{typ: t, constant: true, i64: v, reg: -1}
}

// ConstI8 allocates an 8-bit integer constant.
func ConstI8(v int8) *Value { return newConstInt(I8, int64(v)) }

// ConstI16 allocates a 16-bit integer constant.
func ConstI16(v int16) *Value { return newConstInt(I16, int64(v)) }

// ConstI32 allocates a 32-bit integer constant.
func ConstI32(v int32) *Value { return newConstInt(I32, int64(v)) }

// ConstI64 allocates a 64-bit integer constant.
func ConstI64(v int64) *Value { return newConstInt(I64, v) }

// ConstF32 allocates a 32-bit float constant.
func ConstF32(v float32) *Value { return &Value{typ: F32, constant: true, f32: v, reg: -1} }

// ConstF64 allocates a 64-bit float constant.
func ConstF64(v float64) *Value { return &Value{typ: F64, constant: true, f64: v, reg: -1} }

// ConstBlock allocates a constant referencing a basic block, used as a
// branch target operand.
func ConstBlock(b *Block) *Value { return &Value{typ: BlockType, constant: true, blk: b, reg: -1} }

func dynamic(t Type, def *Instr) *Value {
	return &Value{typ: t, def: def, reg: -1}
}

// Type returns the value's type tag.
func (v *Value) Type() Type { return v.typ }

// IsConstant reports whether v is a constant rather than an instruction result.
func (v *Value) IsConstant() bool { return v.constant }

// Def returns the instruction that produced v, or nil for a constant.
func (v *Value) Def() *Instr { return v.def }

// Reg returns the register assigned to v by the (external) register
// allocator, or -1 if none has been assigned yet.
func (v *Value) Reg() int { return v.reg }

// SetReg records the host register assigned to v.
func (v *Value) SetReg(r int) { v.reg = r }

// AsI32 returns the constant's value reinterpreted as int32. Panics if v is
// not a constant integer value.
func (v *Value) AsI32() int32 {
	if !v.constant {
		panic("ir: AsI32 on non-constant value")
	}
	return int32(v.i64)
}

// AsI64 returns the constant's raw 64-bit integer payload.
func (v *Value) AsI64() int64 {
	if !v.constant {
		panic("ir: AsI64 on non-constant value")
	}
	return v.i64
}

// AsF32 returns the constant's float32 payload.
func (v *Value) AsF32() float32 {
	if !v.constant {
		panic("ir: AsF32 on non-constant value")
	}
	if v.typ == F64 {
		return float32(v.f64)
	}
	return v.f32
}

// AsF64 returns the constant's float64 payload.
func (v *Value) AsF64() float64 {
	if !v.constant {
		panic("ir: AsF64 on non-constant value")
	}
	if v.typ == F32 {
		return float64(v.f32)
	}
	return v.f64
}

// AsBlock returns the constant block payload. Panics if v is not a block
// constant.
func (v *Value) AsBlock() *Block {
	if !v.constant || v.typ != BlockType {
		panic("ir: AsBlock on non-block value")
	}
	return v.blk
}

// ZExtValue returns the constant's raw bit pattern zero-extended to 64 bits,
// matching the original IR builder's GetZExtValue (used to round-trip
// pointer-sized external function addresses through a constant).
func (v *Value) ZExtValue() uint64 {
	if !v.constant {
		panic("ir: ZExtValue on non-constant value")
	}
	switch v.typ {
	case I8:
		return uint64(uint8(v.i64))
	case I16:
		return uint64(uint16(v.i64))
	case I32:
		return uint64(uint32(v.i64))
	case I64:
		return uint64(v.i64)
	case F32:
		return uint64(f32bits(v.f32))
	case F64:
		return f64bits(v.f64)
	case BlockType:
		return uint64(uintptr(blockID(v.blk)))
	}
	return 0
}

func blockID(b *Block) uintptr {
	// Stable, arena-local identity for dumping/debugging only.
	return uintptr(b.index)
}

func (v *Value) addRef(r *ValueRef) {
	v.refs = append(v.refs, r)
}

func (v *Value) removeRef(r *ValueRef) {
	for i, ref := range v.refs {
		if ref == r {
			v.refs = append(v.refs[:i], v.refs[i+1:]...)
			return
		}
	}
}

// ReplaceAllUsesWith rewrites every use-site of v to read other instead,
// mirroring Value::ReplaceRefsWith in the original IR builder. Used by load
// elimination to retire a redundant value.
func (v *Value) ReplaceAllUsesWith(other *Value) {
	if v == other {
		panic("ir: ReplaceAllUsesWith(self)")
	}
	refs := v.refs
	v.refs = nil
	for _, r := range refs {
		r.value = other
		other.addRef(r)
	}
}

// NumUses reports how many argument slots currently read v.
func (v *Value) NumUses() int { return len(v.refs) }

func (v *Value) String() string {
	if v.constant {
		switch v.typ {
		case I8, I16, I32, I64:
			return fmt.Sprintf("%d", v.i64)
		case F32:
			return fmt.Sprintf("%g", v.f32)
		case F64:
			return fmt.Sprintf("%g", v.f64)
		case BlockType:
			return fmt.Sprintf("blk%d", v.blk.index)
		}
	}
	return fmt.Sprintf("%%%p", v)
}
