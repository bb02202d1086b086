package sh4

import (
	"fmt"

	"github.com/dcshade/dcore/internal/ir"
)

// MemoryReader fetches guest instruction words during translation. The
// frontend never touches guest RAM itself; it asks the caller (normally
// the scheduler's bus binding) for each 16-bit word it decodes.
type MemoryReader interface {
	ReadCode16(addr uint32) uint16
}

// Frontend translates the guest code starting at Entry into a single
// ir.Unit, emitting delay slots along the way, until it reaches any
// branch (conditional or unconditional, including RTS/JMP/JSR), an
// unknown opcode, or the per-unit instruction budget.
type Frontend struct {
	mem   MemoryReader
	unit  *ir.Unit
	pc    uint32
	fpscr struct{ pr, sz uint32 } // captured at translation start

	// delay-slot bookkeeping fields named after the original recompiler's
	// preserve/preserve_offset/offset_preserved emitter state. They are
	// not read or written: emitDelaySlot keeps a branch's pre-slot
	// register value as an IR value loaded before the slot is emitted.
	preserve        bool
	preserveOffset  int32
	preserveMask    uint32
	offsetPreserved int32
}

// NewFrontend constructs a translator reading code through mem.
func NewFrontend(mem MemoryReader) *Frontend { return &Frontend{mem: mem} }

// Translate builds a translation unit starting at entry. fpscrPR/fpscrSZ
// are the guest FPSCR.PR/SZ bits in effect at entry, captured once since a
// compiled block never observes them change mid-block (a precision switch
// always ends the current block in the guest's own code, by convention the
// same way redream's SH-4 frontend relies on).
func (f *Frontend) Translate(entry uint32, fpscrPR, fpscrSZ uint32) *ir.Unit {
	f.unit = ir.NewUnit(entry)
	f.pc = entry
	f.fpscr.pr, f.fpscr.sz = fpscrPR, fpscrSZ
	f.unit.AppendBlock("entry")

	const maxInstrs = 128 // same conservative per-block cap the original translator uses
	for i := 0; i < maxInstrs; i++ {
		word := f.mem.ReadCode16(f.pc)
		entryOp, ok := lookup(word)
		if !ok {
			f.unit.Fallback(fmt.Sprintf("unknown opcode %#04x at %#08x", word, f.pc))
			f.unit.Return()
			return f.unit
		}
		in := decode(word)
		f.pc += 2
		entryOp.emit(f, in)
		if isBlockEnd(entryOp) {
			break
		}
	}
	if f.unit.Open() {
		f.unit.Return()
	}
	return f.unit
}

func isBlockEnd(e opEntry) bool {
	switch e.name {
	case "BRA disp", "BSR disp", "BT disp", "BF disp", "BT/S disp", "BF/S disp",
		"JMP @Rn", "JSR @Rn", "RTS":
		return true
	}
	return false
}

// emitDelaySlot decodes and emits the instruction immediately following a
// branch (the delay slot), which architecturally executes before the
// branch's effect is visible. protectReg names a register the branch
// itself still needs after the slot executes (-1 if none); that register
// is loaded before the slot is emitted and the loaded value is returned,
// so it holds the pre-slot value whether or not the slot writes it.
func (f *Frontend) emitDelaySlot(protectReg int) *ir.Value {
	word := f.mem.ReadCode16(f.pc)
	in := decode(word)

	var preserved *ir.Value
	if protectReg >= 0 {
		preserved = f.unit.LoadContext(RegOffset(protectReg), ir.I32)
	}

	if entryOp, ok := lookup(word); ok {
		f.pc += 2
		entryOp.emit(f, in)
	} else {
		f.pc += 2
	}
	return preserved
}

// U returns the unit currently being built; emitters use this to reach the
// IR builder API.
func (f *Frontend) U() *ir.Unit { return f.unit }

// PC returns the guest address of the instruction currently being
// translated (post-increment, i.e. the address of the NEXT fetch).
func (f *Frontend) PC() uint32 { return f.pc }
