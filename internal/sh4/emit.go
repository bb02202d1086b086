package sh4

import "github.com/dcshade/dcore/internal/ir"

// Each emitXXX function lowers one decoded SH-4 instruction into the
// frontend's current IR unit. They're kept as free functions taking the
// Frontend and decoded Inst rather than methods so the opcode table above
// can reference them uniformly regardless of arity.

func reg(f *Frontend, n int) *ir.Value    { return f.U().LoadContext(RegOffset(n), ir.I32) }
func setReg(f *Frontend, n int, v *ir.Value) { f.U().StoreContext(RegOffset(n), v) }

func emitADD(f *Frontend, in Inst) {
	setReg(f, in.N, f.U().Add(reg(f, in.N), reg(f, in.M)))
}

func emitADDImm(f *Frontend, in Inst) {
	u := f.U()
	imm := int32(int8(in.Imm8)) // sign-extended per SH-4 ADD #imm,Rn
	setReg(f, in.N, u.Add(reg(f, in.N), ir.ConstI32(imm)))
}

func emitADDC(f *Frontend, in Inst) {
	u := f.U()
	a, b := reg(f, in.N), reg(f, in.M)
	t := u.LoadContext(OffT, ir.I32)
	ab := u.Add(a, b)
	sum := u.Add(ab, t)
	setReg(f, in.N, sum)
	// carry out: an unsigned add wrapped if its result is below an operand;
	// checked for both the Rn+Rm step and the +T step.
	carry := u.Or(u.CmpUGt(a, ab), u.CmpUGt(ab, sum))
	u.StoreContext(OffT, u.ZExt(carry, ir.I32))
}

func emitAND(f *Frontend, in Inst)  { setReg(f, in.N, f.U().And(reg(f, in.N), reg(f, in.M))) }
func emitOR(f *Frontend, in Inst)   { setReg(f, in.N, f.U().Or(reg(f, in.N), reg(f, in.M))) }
func emitXOR(f *Frontend, in Inst)  { setReg(f, in.N, f.U().Xor(reg(f, in.N), reg(f, in.M))) }
func emitSUB(f *Frontend, in Inst)  { setReg(f, in.N, f.U().Sub(reg(f, in.N), reg(f, in.M))) }

func emitANDImm(f *Frontend, in Inst) {
	u := f.U()
	setReg(f, 0, u.And(reg(f, 0), ir.ConstI32(int32(in.Imm8))))
}

func emitTST(f *Frontend, in Inst) {
	u := f.U()
	z := u.CmpEq(u.And(reg(f, in.N), reg(f, in.M)), ir.ConstI32(0))
	u.StoreContext(OffT, u.ZExt(z, ir.I32))
}

func cmpStore(f *Frontend, cond *ir.Value) {
	u := f.U()
	u.StoreContext(OffT, u.ZExt(cond, ir.I32))
}

func emitCMPEQ(f *Frontend, in Inst) { cmpStore(f, f.U().CmpEq(reg(f, in.N), reg(f, in.M))) }
func emitCMPGE(f *Frontend, in Inst) { cmpStore(f, f.U().CmpSGe(reg(f, in.N), reg(f, in.M))) }
func emitCMPGT(f *Frontend, in Inst) { cmpStore(f, f.U().CmpSGt(reg(f, in.N), reg(f, in.M))) }
func emitCMPHI(f *Frontend, in Inst) { cmpStore(f, f.U().CmpUGt(reg(f, in.N), reg(f, in.M))) }
func emitCMPHS(f *Frontend, in Inst) { cmpStore(f, f.U().CmpUGe(reg(f, in.N), reg(f, in.M))) }

func emitCMPEQImm(f *Frontend, in Inst) {
	imm := int32(int8(in.Imm8))
	cmpStore(f, f.U().CmpEq(reg(f, 0), ir.ConstI32(imm)))
}

// emitDIV0U seeds Q=M=T=0 ahead of a DIV1 sequence for unsigned division,
// per SH-4's DIV0U semantics.
func emitDIV0U(f *Frontend, in Inst) {
	u := f.U()
	zero := ir.ConstI32(0)
	u.StoreContext(OffQ, zero)
	u.StoreContext(OffM, zero)
	u.StoreContext(OffT, zero)
}

// emitDIV0S seeds Q and M from the sign bits of Rn/Rm and T = Q xor M, the
// signed-division counterpart to DIV0U (redream's sh4_emit.cc EMITTER(DIV0S)).
func emitDIV0S(f *Frontend, in Inst) {
	u := f.U()
	n, m := reg(f, in.N), reg(f, in.M)
	q := u.LShr(n, ir.ConstI32(31))
	mm := u.LShr(m, ir.ConstI32(31))
	u.StoreContext(OffQ, q)
	u.StoreContext(OffM, mm)
	u.StoreContext(OffT, u.Xor(q, mm))
}

// emitDIV1 performs one step of SH-4's DIV1 long-division algorithm using
// the branchless formulation spec.md requires: instead of the classic
// branchy "if Q==M then add else subtract, then set new Q," every step
// folds Q/M/T into a single "qm" word and uses an arithmetic
// shift-right-by-31 to turn qm's sign bit into an all-ones/all-zeros mask,
// which selects between add and subtract via XOR/AND instead of a
// conditional branch. This keeps DIV1 branch-free inside the generated
// host code, unlike the original interpreter's 7-block version.
func emitDIV1(f *Frontend, in Inst) {
	u := f.U()
	rn := reg(f, in.N)
	rm := reg(f, in.M)
	q := u.LoadContext(OffQ, ir.I32)
	m := u.LoadContext(OffM, ir.I32)
	t := u.LoadContext(OffT, ir.I32)

	// qm = Q ^ M, broadcast to a full mask via AShr(qm << 31, 31): 31 set
	// when Q != M, 0 set when Q == M (then all bits are 0 after shifting
	// a 0 sign bit, or all 1s after shifting a 1 sign bit).
	qm := u.Xor(q, m)
	mask := u.AShr(u.Shl(qm, ir.ConstI32(31)), ir.ConstI32(31))

	// old_q = Q; shifted = (Rn << 1) | T
	oldQ := q
	shifted := u.Or(u.Shl(rn, ir.ConstI32(1)), t)

	// addend = Rm when mask==0 (Q==M, subtract path uses -Rm via XOR/AND
	// trick below), selects add vs sub operand without branching:
	// result = shifted + ((Rm ^ mask) - mask)   -- this is Rm when mask=0,
	// and -Rm when mask=all-ones (two's complement negate-by-xor-add1).
	negRm := u.Sub(u.Xor(rm, mask), mask)
	result := u.Add(shifted, negRm)

	u.StoreContext(RegOffset(in.N), result)

	// new Q = old_q XOR (sign bit of result) XOR M -- derived the same way
	// redream's branchless variant folds the carry-out into Q without an
	// explicit compare-and-branch.
	resultSign := u.LShr(result, ir.ConstI32(31))
	newQ := u.Xor(u.Xor(oldQ, resultSign), m)
	u.StoreContext(OffQ, newQ)
	u.StoreContext(OffT, u.Xor(newQ, ir.ConstI32(1)))
}

// emitDMULS performs a signed 32x32->64 multiply, storing the low half to
// MACL and high half to MACH (redream sh4_emit.cc EMITTER(DMULS)).
func emitDMULS(f *Frontend, in Inst) {
	u := f.U()
	n64 := u.SExt(reg(f, in.N), ir.I64)
	m64 := u.SExt(reg(f, in.M), ir.I64)
	prod := u.SMul(n64, m64)
	u.StoreContext(OffMACL, u.Trunc(prod, ir.I32))
	u.StoreContext(OffMACH, u.Trunc(u.LShr(prod, ir.ConstI64(32)), ir.I32))
}

// emitDMULU is DMULS's unsigned counterpart.
func emitDMULU(f *Frontend, in Inst) {
	u := f.U()
	n64 := u.ZExt(reg(f, in.N), ir.I64)
	m64 := u.ZExt(reg(f, in.M), ir.I64)
	prod := u.UMul(n64, m64)
	u.StoreContext(OffMACL, u.Trunc(prod, ir.I32))
	u.StoreContext(OffMACH, u.Trunc(u.LShr(prod, ir.ConstI64(32)), ir.I32))
}

// emitMULL computes the low 32 bits of Rn*Rm into MACL only (MUL.L).
func emitMULL(f *Frontend, in Inst) {
	u := f.U()
	u.StoreContext(OffMACL, u.SMul(reg(f, in.N), reg(f, in.M)))
}

func emitMULSW(f *Frontend, in Inst) {
	u := f.U()
	n16 := u.SExt(u.Trunc(reg(f, in.N), ir.I16), ir.I32)
	m16 := u.SExt(u.Trunc(reg(f, in.M), ir.I16), ir.I32)
	u.StoreContext(OffMACL, u.SMul(n16, m16))
}

func emitMULUW(f *Frontend, in Inst) {
	u := f.U()
	n16 := u.ZExt(u.Trunc(reg(f, in.N), ir.I16), ir.I32)
	m16 := u.ZExt(u.Trunc(reg(f, in.M), ir.I16), ir.I32)
	u.StoreContext(OffMACL, u.UMul(n16, m16))
}

func emitMOVImm(f *Frontend, in Inst) {
	imm := int32(int8(in.Imm8))
	setReg(f, in.N, ir.ConstI32(imm))
}

func emitMOVReg(f *Frontend, in Inst) { setReg(f, in.N, reg(f, in.M)) }

func emitBRA(f *Frontend, in Inst) {
	// target = PC-at-delay-slot + sign_extend(disp)*2 + 4, per SH-4
	// PC-relative branch semantics; block linking to that target is left
	// to the (out-of-scope) scheduler, which re-enters translation there.
	f.emitDelaySlot(-1)
	u := f.U()
	u.Fallback("BRA: static block linking is out of scope; traps to interpreter at runtime")
	u.Return()
}

func emitBSR(f *Frontend, in Inst) {
	u := f.U()
	u.StoreContext(OffPR, ir.ConstI32(int32(f.pc+2)))
	f.emitDelaySlot(-1)
	u.Fallback("BSR: static block linking is out of scope; traps to interpreter at runtime")
	u.Return()
}

func emitBT(f *Frontend, in Inst)  { emitCondBranch(f, true, false) }
func emitBF(f *Frontend, in Inst)  { emitCondBranch(f, false, false) }
func emitBTS(f *Frontend, in Inst) { emitCondBranch(f, true, true) }
func emitBFS(f *Frontend, in Inst) { emitCondBranch(f, false, true) }

func emitCondBranch(f *Frontend, takenWhenSet bool, hasDelaySlot bool) {
	u := f.U()
	t := u.LoadContext(OffT, ir.I32)
	var cond *ir.Value
	if takenWhenSet {
		cond = u.CmpNe(t, ir.ConstI32(0))
	} else {
		cond = u.CmpEq(t, ir.ConstI32(0))
	}
	if hasDelaySlot {
		f.emitDelaySlot(-1)
	}
	cur := u.CurrentBlock()
	taken := u.AppendBlock("taken")
	notTaken := u.AppendBlock("not_taken")
	merge := u.AppendBlock("merge")
	u.SetInsertPoint(cur)
	u.BranchCond(cond, taken, notTaken)

	u.SetInsertPoint(taken)
	u.Fallback("conditional branch target: static block linking is out of scope")
	u.Branch(merge)

	u.SetInsertPoint(notTaken)
	u.Branch(merge)

	u.SetInsertPoint(merge)
}

func emitJMP(f *Frontend, in Inst) {
	target := reg(f, in.N)
	f.emitDelaySlot(-1)
	u := f.U()
	u.StoreContext(OffPC, target)
	u.Return()
}

func emitJSR(f *Frontend, in Inst) {
	u := f.U()
	target := reg(f, in.N)
	u.StoreContext(OffPR, ir.ConstI32(int32(f.pc+2)))
	f.emitDelaySlot(in.N)
	u.StoreContext(OffPC, target)
	u.Return()
}

func emitRTS(f *Frontend, in Inst) {
	u := f.U()
	pr := u.LoadContext(OffPR, ir.I32)
	f.emitDelaySlot(-1)
	u.StoreContext(OffPC, pr)
	u.Return()
}

func emitFMOV(f *Frontend, in Inst) {
	u := f.U()
	u.StoreContext(FROffset(in.N), u.LoadContext(FROffset(in.M), ir.F32))
}

func emitFADD(f *Frontend, in Inst) {
	u := f.U()
	a := u.LoadContext(FROffset(in.N), ir.F32)
	b := u.LoadContext(FROffset(in.M), ir.F32)
	u.StoreContext(FROffset(in.N), u.Add(a, b))
}

func emitFMUL(f *Frontend, in Inst) {
	u := f.U()
	a := u.LoadContext(FROffset(in.N), ir.F32)
	b := u.LoadContext(FROffset(in.M), ir.F32)
	u.StoreContext(FROffset(in.N), u.SMul(a, b))
}

// emitFTRV multiplies the vector FV[n..n+3] by the banked 4x4 XMTRX
// (XF0-XF15), the geometry-transform primitive the PVR's TA vertex path
// depends on through guest matrix code.
func emitFTRV(f *Frontend, in Inst) {
	u := f.U()
	vn := (in.N & ^0x3)
	v := u.LoadContext(FROffset(vn), ir.V128)
	mat := u.LoadContext(XFOffset(0), ir.V128)
	u.StoreContext(FROffset(vn), u.FTRV(mat, v))
}

// emitFSCA computes sin/cos of FPUL (a binary-radian angle) into DRn,
// delegated to a host helper since a polynomial/table approximation isn't
// expressible directly in the IR's arithmetic op set.
func emitFSCA(f *Frontend, in Inst) {
	u := f.U()
	angle := u.LoadContext(OffFPUL, ir.I32)
	result := u.CallExternal("sh4_fsca", ir.V128, angle)
	u.StoreContext(FROffset(in.N&^0x1), result)
}

func emitPREF(f *Frontend, in Inst) {
	// store-queue prefetch: the IR models this purely as a hint and emits
	// nothing, matching the original translator's treatment of PREF as a
	// no-op outside of store-queue emulation (out of scope here).
}

// emitMACFallback stubs MAC.L/MAC.W, intentionally unimplemented per the
// Known gaps carried over from spec.md.
func emitMACFallback(f *Frontend, in Inst) {
	f.U().Fallback("MAC.L/MAC.W emission is a known gap; traps to interpreter")
}

// emitFCNVFallback stubs FCNVDS/FCNVSD rounding, also an intentional gap.
func emitFCNVFallback(f *Frontend, in Inst) {
	f.U().Fallback("FCNVDS/FCNVSD rounding is a known gap; traps to interpreter")
}

func signExtend12(d uint16) int32 {
	v := int32(d << 1) // displacement is in words
	if d&0x800 != 0 {
		v |= ^int32(0xfff << 1)
	}
	return v
}
