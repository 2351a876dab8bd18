package emulator

import (
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
)

// Op is the closed set of instruction classes the decoder can produce.
type Op uint8

const (
	OpInvalid Op = iota

	// ALU
	OpLUI
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpSLL
	OpSRL
	OpSRA
	OpROTR
	OpSLLV
	OpSRLV
	OpSRAV
	OpROTRV
	OpMOVZ
	OpMOVN
	OpMAX
	OpMIN
	OpCLZ
	OpCLO
	OpSEB
	OpSEH
	OpWSBH
	OpWSBW
	OpBITREV
	OpEXT
	OpINS

	// HI/LO
	OpMULT
	OpMULTU
	OpMADD
	OpMADDU
	OpMSUB
	OpMSUBU
	OpDIV
	OpDIVU
	OpMFHI
	OpMFLO
	OpMTHI
	OpMTLO
	OpMFIC
	OpMTIC

	// memory
	OpLB
	OpLBU
	OpLH
	OpLHU
	OpLW
	OpLWL
	OpLWR
	OpSB
	OpSH
	OpSW
	OpSWL
	OpSWR
	OpLWC1
	OpSWC1

	// branches and jumps
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpBLTZ
	OpBGEZ
	OpBLTZAL
	OpBGEZAL
	OpBEQL
	OpBNEL
	OpBLEZL
	OpBGTZL
	OpBLTZL
	OpBGEZL
	OpBLTZALL
	OpBGEZALL
	OpJ
	OpJAL
	OpJR
	OpJALR

	// special
	OpSYSCALL
	OpBREAK
	OpSYNC
	OpCACHE

	// FPU
	OpMFC1
	OpMTC1
	OpCFC1
	OpCTC1
	OpBC1F
	OpBC1T
	OpBC1FL
	OpBC1TL
	OpADDS
	OpSUBS
	OpMULS
	OpDIVS
	OpSQRTS
	OpABSS
	OpMOVS
	OpNEGS
	OpROUNDWS
	OpTRUNCWS
	OpCEILWS
	OpFLOORWS
	OpCVTSW
	OpCVTWS
	OpCCONDS

	// decoded but without semantics
	OpMFC0
	OpMTC0
	OpERET
	OpHALT
	OpLL
	OpSC
	OpLVS
	OpSVS
	OpVFPU

	opCount
)

type opInfo struct {
	name   string
	branch bool // has a delay slot
	likely bool
}

var opTable = [opCount]opInfo{
	OpInvalid: {name: "invalid"},
	OpLUI:     {name: "lui"}, OpADDI: {name: "addi"}, OpADDIU: {name: "addiu"},
	OpSLTI: {name: "slti"}, OpSLTIU: {name: "sltiu"}, OpANDI: {name: "andi"},
	OpORI: {name: "ori"}, OpXORI: {name: "xori"}, OpADD: {name: "add"},
	OpADDU: {name: "addu"}, OpSUB: {name: "sub"}, OpSUBU: {name: "subu"},
	OpAND: {name: "and"}, OpOR: {name: "or"}, OpXOR: {name: "xor"},
	OpNOR: {name: "nor"}, OpSLT: {name: "slt"}, OpSLTU: {name: "sltu"},
	OpSLL: {name: "sll"}, OpSRL: {name: "srl"}, OpSRA: {name: "sra"},
	OpROTR: {name: "rotr"}, OpSLLV: {name: "sllv"}, OpSRLV: {name: "srlv"},
	OpSRAV: {name: "srav"}, OpROTRV: {name: "rotrv"}, OpMOVZ: {name: "movz"},
	OpMOVN: {name: "movn"}, OpMAX: {name: "max"}, OpMIN: {name: "min"},
	OpCLZ: {name: "clz"}, OpCLO: {name: "clo"}, OpSEB: {name: "seb"},
	OpSEH: {name: "seh"}, OpWSBH: {name: "wsbh"}, OpWSBW: {name: "wsbw"},
	OpBITREV: {name: "bitrev"}, OpEXT: {name: "ext"}, OpINS: {name: "ins"},

	OpMULT: {name: "mult"}, OpMULTU: {name: "multu"}, OpMADD: {name: "madd"},
	OpMADDU: {name: "maddu"}, OpMSUB: {name: "msub"}, OpMSUBU: {name: "msubu"},
	OpDIV: {name: "div"}, OpDIVU: {name: "divu"}, OpMFHI: {name: "mfhi"},
	OpMFLO: {name: "mflo"}, OpMTHI: {name: "mthi"}, OpMTLO: {name: "mtlo"},
	OpMFIC: {name: "mfic"}, OpMTIC: {name: "mtic"},

	OpLB: {name: "lb"}, OpLBU: {name: "lbu"}, OpLH: {name: "lh"},
	OpLHU: {name: "lhu"}, OpLW: {name: "lw"}, OpLWL: {name: "lwl"},
	OpLWR: {name: "lwr"}, OpSB: {name: "sb"}, OpSH: {name: "sh"},
	OpSW: {name: "sw"}, OpSWL: {name: "swl"}, OpSWR: {name: "swr"},
	OpLWC1: {name: "lwc1"}, OpSWC1: {name: "swc1"},

	OpBEQ: {name: "beq", branch: true}, OpBNE: {name: "bne", branch: true},
	OpBLEZ: {name: "blez", branch: true}, OpBGTZ: {name: "bgtz", branch: true},
	OpBLTZ: {name: "bltz", branch: true}, OpBGEZ: {name: "bgez", branch: true},
	OpBLTZAL: {name: "bltzal", branch: true}, OpBGEZAL: {name: "bgezal", branch: true},
	OpBEQL: {name: "beql", branch: true, likely: true}, OpBNEL: {name: "bnel", branch: true, likely: true},
	OpBLEZL: {name: "blezl", branch: true, likely: true}, OpBGTZL: {name: "bgtzl", branch: true, likely: true},
	OpBLTZL: {name: "bltzl", branch: true, likely: true}, OpBGEZL: {name: "bgezl", branch: true, likely: true},
	OpBLTZALL: {name: "bltzall", branch: true, likely: true}, OpBGEZALL: {name: "bgezall", branch: true, likely: true},
	OpJ: {name: "j", branch: true}, OpJAL: {name: "jal", branch: true},
	OpJR: {name: "jr", branch: true}, OpJALR: {name: "jalr", branch: true},

	OpSYSCALL: {name: "syscall"}, OpBREAK: {name: "break"},
	OpSYNC: {name: "sync"}, OpCACHE: {name: "cache"},

	OpMFC1: {name: "mfc1"}, OpMTC1: {name: "mtc1"}, OpCFC1: {name: "cfc1"}, OpCTC1: {name: "ctc1"},
	OpBC1F: {name: "bc1f", branch: true}, OpBC1T: {name: "bc1t", branch: true},
	OpBC1FL: {name: "bc1fl", branch: true, likely: true}, OpBC1TL: {name: "bc1tl", branch: true, likely: true},
	OpADDS: {name: "add.s"}, OpSUBS: {name: "sub.s"}, OpMULS: {name: "mul.s"},
	OpDIVS: {name: "div.s"}, OpSQRTS: {name: "sqrt.s"}, OpABSS: {name: "abs.s"},
	OpMOVS: {name: "mov.s"}, OpNEGS: {name: "neg.s"}, OpROUNDWS: {name: "round.w.s"},
	OpTRUNCWS: {name: "trunc.w.s"}, OpCEILWS: {name: "ceil.w.s"}, OpFLOORWS: {name: "floor.w.s"},
	OpCVTSW: {name: "cvt.s.w"}, OpCVTWS: {name: "cvt.w.s"}, OpCCONDS: {name: "c.cond.s"},

	OpMFC0: {name: "mfc0"}, OpMTC0: {name: "mtc0"}, OpERET: {name: "eret"},
	OpHALT: {name: "halt"}, OpLL: {name: "ll"}, OpSC: {name: "sc"},
	OpLVS: {name: "lv.s"}, OpSVS: {name: "sv.s"}, OpVFPU: {name: "vfpu"},
}

func (op Op) String() string {
	if op >= opCount {
		return "invalid"
	}
	return opTable[op].name
}

// HasDelaySlot reports whether the instruction after op always runs before
// its control transfer takes effect.
func (op Op) HasDelaySlot() bool {
	return op < opCount && opTable[op].branch
}

func (op Op) IsLikely() bool {
	return op < opCount && opTable[op].likely
}

// Decoded is an immutable, fully extracted instruction.
type Decoded struct {
	Op     Op
	Word   uint32
	Rs     int
	Rt     int
	Rd     int
	Sa     int
	Funct  uint32
	Imm    uint16
	Target uint32 // 26 bit jump index
	Code   uint32 // syscall/break code
}

func (d Decoded) SImm() int32 {
	return int32(int16(d.Imm))
}

func (d Decoded) UImm() uint32 {
	return uint32(d.Imm)
}

// FPU operand aliases over the R-type fields
func (d Decoded) Fd() int { return d.Sa }
func (d Decoded) Fs() int { return d.Rd }
func (d Decoded) Ft() int { return d.Rt }

// ext/ins bit field: lsb in sa, msb (ins) or size-1 (ext) in rd
func (d Decoded) Pos() int  { return d.Sa }
func (d Decoded) Size() int { return d.Rd }

// Decode extracts the opcode class and operand fields of a word. It is a pure
// function of the bits.
func Decode(word uint32) Decoded {
	opcode, rs, rt, rd, sa, funct := assembler.DecodeRTypeInstruction(word)
	_, target := assembler.DecodeJTypeInstruction(word)
	d := Decoded{
		Word:   word,
		Rs:     int(rs),
		Rt:     int(rt),
		Rd:     int(rd),
		Sa:     int(sa),
		Funct:  funct,
		Imm:    uint16(word),
		Target: target,
		Code:   assembler.DecodeCodeField(word),
	}
	d.Op = decodeOp(opcode, rs, rt, sa, funct)
	return d
}

func decodeOp(opcode, rs, rt, sa, funct uint32) Op {
	switch opcode {
	case assembler.OPCODE_SPECIAL:
		return decodeSpecial(rs, sa, funct)
	case assembler.OPCODE_REGIMM:
		switch rt {
		case assembler.REGIMM_BLTZ:
			return OpBLTZ
		case assembler.REGIMM_BGEZ:
			return OpBGEZ
		case assembler.REGIMM_BLTZL:
			return OpBLTZL
		case assembler.REGIMM_BGEZL:
			return OpBGEZL
		case assembler.REGIMM_BLTZAL:
			return OpBLTZAL
		case assembler.REGIMM_BGEZAL:
			return OpBGEZAL
		case assembler.REGIMM_BLTZALL:
			return OpBLTZALL
		case assembler.REGIMM_BGEZALL:
			return OpBGEZALL
		}
	case assembler.OPCODE_J:
		return OpJ
	case assembler.OPCODE_JAL:
		return OpJAL
	case assembler.OPCODE_BEQ:
		return OpBEQ
	case assembler.OPCODE_BNE:
		return OpBNE
	case assembler.OPCODE_BLEZ:
		return OpBLEZ
	case assembler.OPCODE_BGTZ:
		return OpBGTZ
	case assembler.OPCODE_ADDI:
		return OpADDI
	case assembler.OPCODE_ADDIU:
		return OpADDIU
	case assembler.OPCODE_SLTI:
		return OpSLTI
	case assembler.OPCODE_SLTIU:
		return OpSLTIU
	case assembler.OPCODE_ANDI:
		return OpANDI
	case assembler.OPCODE_ORI:
		return OpORI
	case assembler.OPCODE_XORI:
		return OpXORI
	case assembler.OPCODE_LUI:
		return OpLUI
	case assembler.OPCODE_COP0:
		switch rs {
		case assembler.COP_MF:
			return OpMFC0
		case assembler.COP_MT:
			return OpMTC0
		case assembler.COP_S:
			if funct == assembler.COP0_ERET {
				return OpERET
			}
		}
	case assembler.OPCODE_COP1:
		return decodeCop1(rs, rt, funct)
	case assembler.OPCODE_VFPU2:
		return OpVFPU
	case assembler.OPCODE_BEQL:
		return OpBEQL
	case assembler.OPCODE_BNEL:
		return OpBNEL
	case assembler.OPCODE_BLEZL:
		return OpBLEZL
	case assembler.OPCODE_BGTZL:
		return OpBGTZL
	case assembler.OPCODE_SPECIAL2:
		switch funct {
		case assembler.FUNCT2_HALT:
			return OpHALT
		case assembler.FUNCT2_MFIC:
			return OpMFIC
		case assembler.FUNCT2_MTIC:
			return OpMTIC
		}
	case assembler.OPCODE_SPECIAL3:
		switch funct {
		case assembler.FUNCT3_EXT:
			return OpEXT
		case assembler.FUNCT3_INS:
			return OpINS
		case assembler.FUNCT3_BSHFL:
			switch sa {
			case assembler.BSHFL_WSBH:
				return OpWSBH
			case assembler.BSHFL_WSBW:
				return OpWSBW
			case assembler.BSHFL_SEB:
				return OpSEB
			case assembler.BSHFL_SEH:
				return OpSEH
			case assembler.BSHFL_BITREV:
				return OpBITREV
			}
		}
	case assembler.OPCODE_LB:
		return OpLB
	case assembler.OPCODE_LH:
		return OpLH
	case assembler.OPCODE_LWL:
		return OpLWL
	case assembler.OPCODE_LW:
		return OpLW
	case assembler.OPCODE_LBU:
		return OpLBU
	case assembler.OPCODE_LHU:
		return OpLHU
	case assembler.OPCODE_LWR:
		return OpLWR
	case assembler.OPCODE_SB:
		return OpSB
	case assembler.OPCODE_SH:
		return OpSH
	case assembler.OPCODE_SWL:
		return OpSWL
	case assembler.OPCODE_SW:
		return OpSW
	case assembler.OPCODE_SWR:
		return OpSWR
	case assembler.OPCODE_CACHE:
		return OpCACHE
	case assembler.OPCODE_LL:
		return OpLL
	case assembler.OPCODE_LWC1:
		return OpLWC1
	case assembler.OPCODE_LVS:
		return OpLVS
	case assembler.OPCODE_SC:
		return OpSC
	case assembler.OPCODE_SWC1:
		return OpSWC1
	case assembler.OPCODE_SVS:
		return OpSVS
	}
	return OpInvalid
}

func decodeSpecial(rs, sa, funct uint32) Op {
	switch funct {
	case assembler.FUNCT_SLL:
		return OpSLL
	case assembler.FUNCT_SRL:
		if rs == 1 {
			return OpROTR
		}
		return OpSRL
	case assembler.FUNCT_SRA:
		return OpSRA
	case assembler.FUNCT_SLLV:
		return OpSLLV
	case assembler.FUNCT_SRLV:
		if sa == 1 {
			return OpROTRV
		}
		return OpSRLV
	case assembler.FUNCT_SRAV:
		return OpSRAV
	case assembler.FUNCT_JR:
		return OpJR
	case assembler.FUNCT_JALR:
		return OpJALR
	case assembler.FUNCT_MOVZ:
		return OpMOVZ
	case assembler.FUNCT_MOVN:
		return OpMOVN
	case assembler.FUNCT_SYSCALL:
		return OpSYSCALL
	case assembler.FUNCT_BREAK:
		return OpBREAK
	case assembler.FUNCT_SYNC:
		return OpSYNC
	case assembler.FUNCT_MFHI:
		return OpMFHI
	case assembler.FUNCT_MTHI:
		return OpMTHI
	case assembler.FUNCT_MFLO:
		return OpMFLO
	case assembler.FUNCT_MTLO:
		return OpMTLO
	case assembler.FUNCT_CLZ:
		return OpCLZ
	case assembler.FUNCT_CLO:
		return OpCLO
	case assembler.FUNCT_MULT:
		return OpMULT
	case assembler.FUNCT_MULTU:
		return OpMULTU
	case assembler.FUNCT_DIV:
		return OpDIV
	case assembler.FUNCT_DIVU:
		return OpDIVU
	case assembler.FUNCT_MADD:
		return OpMADD
	case assembler.FUNCT_MADDU:
		return OpMADDU
	case assembler.FUNCT_ADD:
		return OpADD
	case assembler.FUNCT_ADDU:
		return OpADDU
	case assembler.FUNCT_SUB:
		return OpSUB
	case assembler.FUNCT_SUBU:
		return OpSUBU
	case assembler.FUNCT_AND:
		return OpAND
	case assembler.FUNCT_OR:
		return OpOR
	case assembler.FUNCT_XOR:
		return OpXOR
	case assembler.FUNCT_NOR:
		return OpNOR
	case assembler.FUNCT_SLT:
		return OpSLT
	case assembler.FUNCT_SLTU:
		return OpSLTU
	case assembler.FUNCT_MAX:
		return OpMAX
	case assembler.FUNCT_MIN:
		return OpMIN
	case assembler.FUNCT_MSUB:
		return OpMSUB
	case assembler.FUNCT_MSUBU:
		return OpMSUBU
	}
	return OpInvalid
}

func decodeCop1(rs, rt, funct uint32) Op {
	switch rs {
	case assembler.COP_MF:
		return OpMFC1
	case assembler.COP_CF:
		return OpCFC1
	case assembler.COP_MT:
		return OpMTC1
	case assembler.COP_CT:
		return OpCTC1
	case assembler.COP_BC:
		switch rt {
		case assembler.BC1F:
			return OpBC1F
		case assembler.BC1T:
			return OpBC1T
		case assembler.BC1FL:
			return OpBC1FL
		case assembler.BC1TL:
			return OpBC1TL
		}
	case assembler.COP_S:
		switch {
		case funct == assembler.FPU_ADD:
			return OpADDS
		case funct == assembler.FPU_SUB:
			return OpSUBS
		case funct == assembler.FPU_MUL:
			return OpMULS
		case funct == assembler.FPU_DIV:
			return OpDIVS
		case funct == assembler.FPU_SQRT:
			return OpSQRTS
		case funct == assembler.FPU_ABS:
			return OpABSS
		case funct == assembler.FPU_MOV:
			return OpMOVS
		case funct == assembler.FPU_NEG:
			return OpNEGS
		case funct == assembler.FPU_ROUND_W:
			return OpROUNDWS
		case funct == assembler.FPU_TRUNC_W:
			return OpTRUNCWS
		case funct == assembler.FPU_CEIL_W:
			return OpCEILWS
		case funct == assembler.FPU_FLOOR_W:
			return OpFLOORWS
		case funct == assembler.FPU_CVT_W:
			return OpCVTWS
		case funct >= assembler.FPU_C_F:
			return OpCCONDS
		}
	case assembler.COP_W:
		if funct == assembler.FPU_CVT_S {
			return OpCVTSW
		}
	}
	return OpInvalid
}
