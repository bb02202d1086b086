package ir

import "fmt"

// Unit is one compiled translation unit: an arena of blocks and
// instructions rooted at a single guest entry address. The SH-4 frontend
// builds exactly one Unit per basic block group discovered by the block
// linker, then hands it to the optimizer passes before host code
// generation (out of scope here).
type Unit struct {
	Entry uint32 // guest address this unit begins translating at

	blocks []*Block
	cur    *Block // block AppendInstr is currently appending to; nil until opened

	locals int32 // running size of the local-variable stack frame
}

// NewUnit allocates a fresh, empty translation unit for the given guest
// entry address.
func NewUnit(entry uint32) *Unit {
	return &Unit{Entry: entry}
}

// NewBuilder is an alias for NewUnit kept for readability at call sites
// that construct a unit purely to build IR into it.
func NewBuilder(entry uint32) *Unit { return NewUnit(entry) }

// Blocks returns the unit's blocks in creation order.
func (u *Unit) Blocks() []*Block { return u.blocks }

// EntryBlock returns the first block created in the unit, or nil if none
// has been created yet.
func (u *Unit) EntryBlock() *Block {
	if len(u.blocks) == 0 {
		return nil
	}
	return u.blocks[0]
}

// AppendBlock creates a new block with the given label and makes it the
// current insertion point. Mirrors IRBuilder::AppendBlock.
func (u *Unit) AppendBlock(label string) *Block {
	b := &Block{index: len(u.blocks), label: label, unit: u}
	u.blocks = append(u.blocks, b)
	u.cur = b
	return b
}

// CurrentBlock returns the block AppendInstr currently targets, lazily
// opening an unlabeled block if none has been started yet (the "lazy
// block-opening" behavior the frontend relies on when it emits
// straight-line instructions before the first explicit label).
func (u *Unit) CurrentBlock() *Block {
	if u.cur == nil {
		u.AppendBlock(fmt.Sprintf("L%d", len(u.blocks)))
	}
	return u.cur
}

// SetInsertPoint redirects subsequent AppendInstr calls to b.
func (u *Unit) SetInsertPoint(b *Block) { u.cur = b }

// Open reports whether there is a current insertion block that hasn't yet
// been closed by a terminator (Branch/BranchCond/Return leave no open
// block). Callers that want to know "has this unit's last block already
// been terminated" should check this rather than CurrentBlock, since
// CurrentBlock lazily opens a new block as a side effect.
func (u *Unit) Open() bool { return u.cur != nil }

func (u *Unit) emit(op Op, typ Type, args ...*Value) *Instr {
	in := newInstr(op, typ)
	for idx, a := range args {
		in.setArg(idx, a)
	}
	u.CurrentBlock().append(in)
	return in
}

func (u *Unit) emitValue(op Op, typ Type, args ...*Value) *Value {
	in := u.emit(op, typ, args...)
	in.result = dynamic(typ, in)
	return in.result
}

// --- Context / memory access -------------------------------------------------

// LoadContext emits a read of the guest CPU context at the given byte
// offset (e.g. offsetof(sh4_ctx, r[n])), matching IRBuilder::LoadContext.
func (u *Unit) LoadContext(offset int32, typ Type) *Value {
	in := u.emit(OpLoadContext, typ)
	in.offset = offset
	in.result = dynamic(typ, in)
	return in.result
}

// StoreContext emits a write of v into the guest CPU context at offset.
func (u *Unit) StoreContext(offset int32, v *Value) {
	in := u.emit(OpStoreContext, 0, v)
	in.offset = offset
}

// AllocLocal reserves a scratch local-stack slot of typ and returns its
// offset.
func (u *Unit) AllocLocal(typ Type) int32 {
	off := u.locals
	u.locals += int32(SizeOf(typ))
	return off
}

// LoadLocal reads the scratch local slot at offset.
func (u *Unit) LoadLocal(offset int32, typ Type) *Value {
	in := u.emit(OpLoadLocal, typ)
	in.offset = offset
	in.result = dynamic(typ, in)
	return in.result
}

// StoreLocal writes v into the scratch local slot at offset.
func (u *Unit) StoreLocal(offset int32, v *Value) {
	in := u.emit(OpStoreLocal, 0, v)
	in.offset = offset
}

// Load emits a guest memory read through addr (an I32 guest address).
func (u *Unit) Load(addr *Value, typ Type) *Value { return u.emitValue(OpLoad, typ, addr) }

// Store emits a guest memory write of v to addr.
func (u *Unit) Store(addr, v *Value) { u.emit(OpStore, 0, addr, v) }

// --- Conversions --------------------------------------------------------

func (u *Unit) Cast(v *Value, typ Type) *Value  { return u.emitValue(OpCast, typ, v) }
func (u *Unit) SExt(v *Value, typ Type) *Value  { return u.emitValue(OpSExt, typ, v) }
func (u *Unit) ZExt(v *Value, typ Type) *Value  { return u.emitValue(OpZExt, typ, v) }
func (u *Unit) Trunc(v *Value, typ Type) *Value { return u.emitValue(OpTrunc, typ, v) }
func (u *Unit) FToI(v *Value, typ Type) *Value  { return u.emitValue(OpFToI, typ, v) }
func (u *Unit) IToF(v *Value, typ Type) *Value  { return u.emitValue(OpIToF, typ, v) }

// Select emits a branchless ternary: cond (I8 0/1) selects t or f.
func (u *Unit) Select(cond, t, f *Value) *Value {
	return u.emitValue(OpSelect, t.Type(), cond, t, f)
}

// --- Arithmetic -----------------------------------------------------------

func (u *Unit) Add(a, b *Value) *Value  { return u.emitValue(OpAdd, a.Type(), a, b) }
func (u *Unit) Sub(a, b *Value) *Value  { return u.emitValue(OpSub, a.Type(), a, b) }
func (u *Unit) SMul(a, b *Value) *Value { return u.emitValue(OpSMul, a.Type(), a, b) }
func (u *Unit) UMul(a, b *Value) *Value { return u.emitValue(OpUMul, a.Type(), a, b) }
func (u *Unit) Div(a, b *Value) *Value  { return u.emitValue(OpDiv, a.Type(), a, b) }
func (u *Unit) Neg(a *Value) *Value     { return u.emitValue(OpNeg, a.Type(), a) }
func (u *Unit) Abs(a *Value) *Value     { return u.emitValue(OpAbs, a.Type(), a) }
func (u *Unit) Sqrt(a *Value) *Value    { return u.emitValue(OpSqrt, a.Type(), a) }
func (u *Unit) Recip(a *Value) *Value   { return u.emitValue(OpRecip, a.Type(), a) }

// --- Bitwise / shifts -------------------------------------------------------

func (u *Unit) And(a, b *Value) *Value  { return u.emitValue(OpAnd, a.Type(), a, b) }
func (u *Unit) Or(a, b *Value) *Value   { return u.emitValue(OpOr, a.Type(), a, b) }
func (u *Unit) Xor(a, b *Value) *Value  { return u.emitValue(OpXor, a.Type(), a, b) }
func (u *Unit) Not(a *Value) *Value     { return u.emitValue(OpNot, a.Type(), a) }
func (u *Unit) Shl(a, n *Value) *Value  { return u.emitValue(OpShl, a.Type(), a, n) }
func (u *Unit) AShr(a, n *Value) *Value { return u.emitValue(OpAShr, a.Type(), a, n) }
func (u *Unit) LShr(a, n *Value) *Value { return u.emitValue(OpLShr, a.Type(), a, n) }

// AShd/LShd take their shift direction from the sign of n at runtime,
// matching SH-4's SHAD/SHLD instructions (negative n shifts right).
func (u *Unit) AShd(a, n *Value) *Value { return u.emitValue(OpAShd, a.Type(), a, n) }
func (u *Unit) LShd(a, n *Value) *Value { return u.emitValue(OpLShd, a.Type(), a, n) }

// --- Comparisons (result is I8, 0 or 1) -------------------------------------

func (u *Unit) CmpEq(a, b *Value) *Value  { return u.emitValue(OpCmpEq, I8, a, b) }
func (u *Unit) CmpNe(a, b *Value) *Value  { return u.emitValue(OpCmpNe, I8, a, b) }
func (u *Unit) CmpSGt(a, b *Value) *Value { return u.emitValue(OpCmpSGt, I8, a, b) }
func (u *Unit) CmpSGe(a, b *Value) *Value { return u.emitValue(OpCmpSGe, I8, a, b) }
func (u *Unit) CmpUGt(a, b *Value) *Value { return u.emitValue(OpCmpUGt, I8, a, b) }
func (u *Unit) CmpUGe(a, b *Value) *Value { return u.emitValue(OpCmpUGe, I8, a, b) }

// --- FPU --------------------------------------------------------------------

// FTRV emits a 4x4 matrix-by-vector transform: mat is 16 consecutive F32
// values loaded from the XF bank, v is a V128 holding FV[n..n+3].
func (u *Unit) FTRV(mat, v *Value) *Value { return u.emitValue(OpFTRV, V128, mat, v) }

// --- Control flow ------------------------------------------------------------

// Branch emits an unconditional jump to target.
func (u *Unit) Branch(target *Block) {
	u.emit(OpBranch, 0, ConstBlock(target))
	u.cur = nil
}

// BranchCond emits a conditional jump: to trueTarget when cond is nonzero,
// falseTarget otherwise.
func (u *Unit) BranchCond(cond *Value, trueTarget, falseTarget *Block) {
	u.emit(OpBranchCond, 0, cond, ConstBlock(trueTarget), ConstBlock(falseTarget))
	u.cur = nil
}

// CallExternal emits a call out to a host-implemented helper (used for
// operations too irregular to lower directly, e.g. FSCA's sine/cosine
// table lookup).
func (u *Unit) CallExternal(symbol string, typ Type, args ...*Value) *Value {
	in := u.emit(OpCallExternal, typ, args...)
	in.aux = symbol
	if typ != 0 {
		in.result = dynamic(typ, in)
		return in.result
	}
	return nil
}

// Return emits the unit's exit instruction.
func (u *Unit) Return() {
	u.emit(OpReturn, 0)
	u.cur = nil
}

// InvalidateContext marks that subsequent LoadContext results may not be
// assumed identical to any prior load of the same offset: load elimination
// drops its context cache at this instruction.
func (u *Unit) InvalidateContext() {
	u.emit(OpInvalidateContext, 0)
}

// Fallback emits a stub marking a guest opcode this translator intentionally
// does not implement (per spec.md's Known gaps — modifier volumes,
// MACL/MACW, FCNVDS/FCNVSD). The host codegen for this op always traps to
// the interpreter.
func (u *Unit) Fallback(reason string) {
	in := u.emit(OpFallback, 0)
	in.aux = reason
}

// RemoveInstr unlinks in from its block and clears its operand refs. Used
// by DCE and load elimination.
func (u *Unit) RemoveInstr(in *Instr) {
	in.unsetArgs()
	in.block.unlink(in)
}

// BuildCFG (re)computes every block's predecessor/successor lists from its
// terminator instruction. Passes that rewrite branches should call this
// again before relying on Preds/Succs.
func (u *Unit) BuildCFG() {
	for _, b := range u.blocks {
		b.preds = nil
		b.succs = nil
	}
	for _, b := range u.blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		switch term.op {
		case OpBranch:
			t := term.Arg(0).AsBlock()
			b.succs = append(b.succs, t)
			t.preds = append(t.preds, b)
		case OpBranchCond:
			t := term.Arg(1).AsBlock()
			f := term.Arg(2).AsBlock()
			b.succs = append(b.succs, t, f)
			t.preds = append(t.preds, b)
			f.preds = append(f.preds, b)
		}
	}
}
