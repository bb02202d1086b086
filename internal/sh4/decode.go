package sh4

// Inst is a decoded SH-4 instruction: the raw 16-bit word plus the fields
// extracted from it per the standard n/m/imm/disp encoding groups. Not
// every field is meaningful for every opcode.
type Inst struct {
	Raw  uint16
	N    int // Rn (bits 11:8)
	M    int // Rm (bits 7:4)
	Imm8 uint8
	Imm4 uint8
	D4   uint8  // disp (bits 3:0)
	D8   uint8  // disp (bits 7:0)
	D12  uint16 // disp (bits 11:0)
}

func decode(word uint16) Inst {
	return Inst{
		Raw:  word,
		N:    int(word>>8) & 0xf,
		M:    int(word>>4) & 0xf,
		Imm8: uint8(word),
		Imm4: uint8(word & 0xf),
		D4:   uint8(word & 0xf),
		D8:   uint8(word),
		D12:  word & 0xfff,
	}
}

// opEntry pairs an opcode's (mask, pattern) with the emitter that lowers it.
// Matching a 16-bit word walks the table in order and uses the first
// pattern whose masked bits match, following the same fixed-priority
// decode the original interpreter's dispatch table uses (more specific
// patterns — larger popcount mask — listed first).
type opEntry struct {
	mask, pattern uint16
	name          string
	emit          func(f *Frontend, in Inst)
}

var opcodeTable = []opEntry{
	{0xf00f, 0x300c, "ADD Rm,Rn", emitADD},
	{0xf000, 0x7000, "ADD #imm,Rn", emitADDImm},
	{0xf00f, 0x300e, "ADDC Rm,Rn", emitADDC},
	{0xf00f, 0x2009, "AND Rm,Rn", emitAND},
	{0xff00, 0xc900, "AND #imm,R0", emitANDImm},
	{0xf00f, 0x2008, "TST Rm,Rn", emitTST},
	{0xf00f, 0x200a, "XOR Rm,Rn", emitXOR},
	{0xf00f, 0x200b, "OR Rm,Rn", emitOR},
	{0xf00f, 0x3000, "CMP/EQ Rm,Rn", emitCMPEQ},
	{0xf00f, 0x3003, "CMP/GE Rm,Rn", emitCMPGE},
	{0xf00f, 0x3007, "CMP/GT Rm,Rn", emitCMPGT},
	{0xf00f, 0x3006, "CMP/HI Rm,Rn", emitCMPHI},
	{0xf00f, 0x3002, "CMP/HS Rm,Rn", emitCMPHS},
	{0xff00, 0x8800, "CMP/EQ #imm,R0", emitCMPEQImm},
	{0xf00f, 0x3008, "SUB Rm,Rn", emitSUB},
	{0xf00f, 0x2007, "DIV0S Rm,Rn", emitDIV0S},
	{0xffff, 0x0019, "DIV0U", emitDIV0U},
	{0xf00f, 0x3004, "DIV1 Rm,Rn", emitDIV1},
	{0xf00f, 0x300d, "DMULS.L Rm,Rn", emitDMULS},
	{0xf00f, 0x3005, "DMULU.L Rm,Rn", emitDMULU},
	{0xf00f, 0x0007, "MUL.L Rm,Rn", emitMULL},
	{0xf00f, 0x200f, "MULS.W Rm,Rn", emitMULSW},
	{0xf00f, 0x200e, "MULU.W Rm,Rn", emitMULUW},
	{0xf000, 0xe000, "MOV #imm,Rn", emitMOVImm},
	{0xf00f, 0x6003, "MOV Rm,Rn", emitMOVReg},
	{0xf000, 0xa000, "BRA disp", emitBRA},
	{0xf000, 0xb000, "BSR disp", emitBSR},
	{0xff00, 0x8900, "BT disp", emitBT},
	{0xff00, 0x8b00, "BF disp", emitBF},
	{0xff00, 0x8d00, "BT/S disp", emitBTS},
	{0xff00, 0x8f00, "BF/S disp", emitBFS},
	{0xf0ff, 0x402b, "JMP @Rn", emitJMP},
	{0xf0ff, 0x400b, "JSR @Rn", emitJSR},
	{0xffff, 0x000b, "RTS", emitRTS},
	{0xf00f, 0xf00c, "FMOV FRm,FRn", emitFMOV},
	{0xf00f, 0xf000, "FADD FRm,FRn", emitFADD},
	{0xf00f, 0xf002, "FMUL FRm,FRn", emitFMUL},
	{0xf3ff, 0xf1fd, "FTRV XMTRX,FVn", emitFTRV},
	{0xf1ff, 0xf0fd, "FSCA FPUL,DRn", emitFSCA},
	{0xf0ff, 0x0083, "PREF @Rn", emitPREF},
	{0xf00f, 0x000f, "MAC.L @Rm+,@Rn+", emitMACFallback},
	{0xf00f, 0x400f, "MAC.W @Rm+,@Rn+", emitMACFallback},
	{0xf0ff, 0xf0bd, "FCNVDS FRn,FPUL", emitFCNVFallback},
	{0xf0ff, 0xf0ad, "FCNVSD FPUL,FRn", emitFCNVFallback},
}

// lookupTable is opcodeTable, installed by init: delay-slot emitters listed
// in opcodeTable call lookup, so lookup reading opcodeTable directly would
// be an initialization cycle.
var lookupTable []opEntry

func init() { lookupTable = opcodeTable }

func lookup(word uint16) (opEntry, bool) {
	for _, e := range lookupTable {
		if word&e.mask == e.pattern {
			return e, true
		}
	}
	return opEntry{}, false
}
