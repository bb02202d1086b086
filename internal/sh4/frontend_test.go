package sh4

import (
	"testing"

	"github.com/dcshade/dcore/internal/ir"
)

// fakeMemory serves instruction words from a flat slice, padding with RTS
// (0x000b) past the end so a test's translation always terminates.
type fakeMemory struct {
	base  uint32
	words []uint16
}

func (m *fakeMemory) ReadCode16(addr uint32) uint16 {
	idx := (addr - m.base) / 2
	if int(idx) >= len(m.words) {
		return 0x000b // RTS
	}
	return m.words[idx]
}

func TestTranslateAddSequence(t *testing.T) {
	mem := &fakeMemory{base: 0x8c010000, words: []uint16{
		0x7001, // ADD #1,R0
		0x000b, // RTS
		0x0009, // NOP (delay slot): matches no decode-table entry, so it emits nothing
	}}
	f := NewFrontend(mem)
	u := f.Translate(mem.base, 0, 0)
	if err := ir.Verify(u); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(u.Blocks()) == 0 {
		t.Fatalf("expected at least one block")
	}
}

func TestDIV1EmitsNoBranchInstr(t *testing.T) {
	mem := &fakeMemory{base: 0, words: []uint16{0x3004}} // DIV1 R0,R0
	f := NewFrontend(mem)
	f.unit = ir.NewUnit(0)
	f.pc = 0
	f.unit.AppendBlock("entry")
	emitDIV1(f, decode(0x3004))

	branches := 0
	f.unit.EntryBlock().Instrs(func(in *ir.Instr) {
		if in.Op() == ir.OpBranch || in.Op() == ir.OpBranchCond {
			branches++
		}
	})
	if branches != 0 {
		t.Fatalf("DIV1 step must be branchless, found %d branch instructions", branches)
	}
}

func TestDIV0SSeedsFromSignBits(t *testing.T) {
	f := NewFrontend(&fakeMemory{})
	f.unit = ir.NewUnit(0)
	f.unit.AppendBlock("entry")
	emitDIV0S(f, decode(0x2007))

	var storesQ, storesM, storesT bool
	f.unit.EntryBlock().Instrs(func(in *ir.Instr) {
		if in.Op() == ir.OpStoreContext {
			switch in.Offset() {
			case OffQ:
				storesQ = true
			case OffM:
				storesM = true
			case OffT:
				storesT = true
			}
		}
	})
	if !storesQ || !storesM || !storesT {
		t.Fatalf("DIV0S must seed Q, M and T (got Q=%v M=%v T=%v)", storesQ, storesM, storesT)
	}
}

func TestMacOpcodesFallBackToInterpreter(t *testing.T) {
	f := NewFrontend(&fakeMemory{})
	f.unit = ir.NewUnit(0)
	f.unit.AppendBlock("entry")
	emitMACFallback(f, decode(0x000f))

	found := false
	f.unit.EntryBlock().Instrs(func(in *ir.Instr) {
		if in.Op() == ir.OpFallback {
			found = true
		}
	})
	if !found {
		t.Fatalf("MAC.L/MAC.W must emit a FALLBACK instruction per the known-gaps stub")
	}
}
