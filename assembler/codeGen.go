package assembler

func makeRTypeInstruction(opcode, rs, rt, rd, sa, funct uint32) uint32 {
	return (opcode << 26) | ((rs & 0x1F) << 21) | ((rt & 0x1F) << 16) | ((rd & 0x1F) << 11) | ((sa & 0x1F) << 6) | (funct & 0x3F)
}

func makeITypeInstruction(opcode, rs, rt, imm uint32) uint32 {
	imm = imm & 0xFFFF
	return (opcode << 26) | ((rs & 0x1F) << 21) | ((rt & 0x1F) << 16) | imm
}

func makeJTypeInstruction(opcode, target uint32) uint32 {
	// expects the byte address; only bits 27..2 are encodable
	return (opcode << 26) | ((target >> 2) & 0x3FFFFFF)
}

// MakeBreakInstruction encodes a break carrying a 20 bit code.
func MakeBreakInstruction(code uint32) uint32 {
	return makeRTypeInstruction(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_BREAK) | ((code & 0xFFFFF) << 6)
}

// MakeSyscallInstruction encodes a syscall carrying a 20 bit code.
func MakeSyscallInstruction(code uint32) uint32 {
	return makeRTypeInstruction(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SYSCALL) | ((code & 0xFFFFF) << 6)
}

// MakeJumpRegisterInstruction encodes jr rs.
func MakeJumpRegisterInstruction(rs uint32) uint32 {
	return makeRTypeInstruction(OPCODE_SPECIAL, rs, 0, 0, 0, FUNCT_JR)
}

func DecodeRTypeInstruction(instruction uint32) (opcode, rs, rt, rd, sa, funct uint32) {
	opcode = instruction >> 26
	rs = (instruction >> 21) & 0x1F
	rt = (instruction >> 16) & 0x1F
	rd = (instruction >> 11) & 0x1F
	sa = (instruction >> 6) & 0x1F
	funct = instruction & 0x3F
	return
}

func DecodeITypeInstruction(instruction uint32) (opcode, rs, rt, imm uint32) {
	opcode = instruction >> 26
	rs = (instruction >> 21) & 0x1F
	rt = (instruction >> 16) & 0x1F
	imm = instruction & 0xFFFF
	return
}

func DecodeJTypeInstruction(instruction uint32) (opcode, target uint32) {
	opcode = instruction >> 26
	target = instruction & 0x3FFFFFF
	return
}

// DecodeCodeField returns the 20 bit code of a syscall or break.
func DecodeCodeField(instruction uint32) uint32 {
	return (instruction >> 6) & 0xFFFFF
}

func GetOpCode(instruction uint32) uint32 {
	return instruction >> 26
}

// primary opcodes
const (
	OPCODE_SPECIAL  = 0b000000
	OPCODE_REGIMM   = 0b000001
	OPCODE_J        = 0b000010
	OPCODE_JAL      = 0b000011
	OPCODE_BEQ      = 0b000100
	OPCODE_BNE      = 0b000101
	OPCODE_BLEZ     = 0b000110
	OPCODE_BGTZ     = 0b000111
	OPCODE_ADDI     = 0b001000
	OPCODE_ADDIU    = 0b001001
	OPCODE_SLTI     = 0b001010
	OPCODE_SLTIU    = 0b001011
	OPCODE_ANDI     = 0b001100
	OPCODE_ORI      = 0b001101
	OPCODE_XORI     = 0b001110
	OPCODE_LUI      = 0b001111
	OPCODE_COP0     = 0b010000
	OPCODE_COP1     = 0b010001
	OPCODE_VFPU2    = 0b010010
	OPCODE_BEQL     = 0b010100
	OPCODE_BNEL     = 0b010101
	OPCODE_BLEZL    = 0b010110
	OPCODE_BGTZL    = 0b010111
	OPCODE_SPECIAL2 = 0b011100
	OPCODE_SPECIAL3 = 0b011111
	OPCODE_LB       = 0b100000
	OPCODE_LH       = 0b100001
	OPCODE_LWL      = 0b100010
	OPCODE_LW       = 0b100011
	OPCODE_LBU      = 0b100100
	OPCODE_LHU      = 0b100101
	OPCODE_LWR      = 0b100110
	OPCODE_SB       = 0b101000
	OPCODE_SH       = 0b101001
	OPCODE_SWL      = 0b101010
	OPCODE_SW       = 0b101011
	OPCODE_SWR      = 0b101110
	OPCODE_CACHE    = 0b101111
	OPCODE_LL       = 0b110000
	OPCODE_LWC1     = 0b110001
	OPCODE_LVS      = 0b110010
	OPCODE_SC       = 0b111000
	OPCODE_SWC1     = 0b111001
	OPCODE_SVS      = 0b111010
)

// SPECIAL function codes
const (
	FUNCT_SLL     = 0x00
	FUNCT_SRL     = 0x02 // rotr when rs == 1
	FUNCT_SRA     = 0x03
	FUNCT_SLLV    = 0x04
	FUNCT_SRLV    = 0x06 // rotrv when sa == 1
	FUNCT_SRAV    = 0x07
	FUNCT_JR      = 0x08
	FUNCT_JALR    = 0x09
	FUNCT_MOVZ    = 0x0A
	FUNCT_MOVN    = 0x0B
	FUNCT_SYSCALL = 0x0C
	FUNCT_BREAK   = 0x0D
	FUNCT_SYNC    = 0x0F
	FUNCT_MFHI    = 0x10
	FUNCT_MTHI    = 0x11
	FUNCT_MFLO    = 0x12
	FUNCT_MTLO    = 0x13
	FUNCT_CLZ     = 0x16
	FUNCT_CLO     = 0x17
	FUNCT_MULT    = 0x18
	FUNCT_MULTU   = 0x19
	FUNCT_DIV     = 0x1A
	FUNCT_DIVU    = 0x1B
	FUNCT_MADD    = 0x1C
	FUNCT_MADDU   = 0x1D
	FUNCT_ADD     = 0x20
	FUNCT_ADDU    = 0x21
	FUNCT_SUB     = 0x22
	FUNCT_SUBU    = 0x23
	FUNCT_AND     = 0x24
	FUNCT_OR      = 0x25
	FUNCT_XOR     = 0x26
	FUNCT_NOR     = 0x27
	FUNCT_SLT     = 0x2A
	FUNCT_SLTU    = 0x2B
	FUNCT_MAX     = 0x2C
	FUNCT_MIN     = 0x2D
	FUNCT_MSUB    = 0x2E
	FUNCT_MSUBU   = 0x2F
)

// REGIMM rt codes
const (
	REGIMM_BLTZ    = 0x00
	REGIMM_BGEZ    = 0x01
	REGIMM_BLTZL   = 0x02
	REGIMM_BGEZL   = 0x03
	REGIMM_BLTZAL  = 0x10
	REGIMM_BGEZAL  = 0x11
	REGIMM_BLTZALL = 0x12
	REGIMM_BGEZALL = 0x13
)

// SPECIAL2 and SPECIAL3 function codes
const (
	FUNCT2_HALT  = 0x00
	FUNCT2_MFIC  = 0x24
	FUNCT2_MTIC  = 0x26
	FUNCT3_EXT   = 0x00
	FUNCT3_INS   = 0x04
	FUNCT3_BSHFL = 0x20

	BSHFL_WSBH   = 0x02
	BSHFL_WSBW   = 0x03
	BSHFL_SEB    = 0x10
	BSHFL_BITREV = 0x14
	BSHFL_SEH    = 0x18
)

// COP0 / COP1 rs codes and formats
const (
	COP_MF = 0x00
	COP_CF = 0x02
	COP_MT = 0x04
	COP_CT = 0x06
	COP_BC = 0x08
	COP_S  = 0x10
	COP_W  = 0x14

	COP0_ERET = 0x18 // funct with rs == 0x10

	BC1F  = 0x00
	BC1T  = 0x01
	BC1FL = 0x02
	BC1TL = 0x03
)

// COP1 single precision function codes
const (
	FPU_ADD     = 0x00
	FPU_SUB     = 0x01
	FPU_MUL     = 0x02
	FPU_DIV     = 0x03
	FPU_SQRT    = 0x04
	FPU_ABS     = 0x05
	FPU_MOV     = 0x06
	FPU_NEG     = 0x07
	FPU_ROUND_W = 0x0C
	FPU_TRUNC_W = 0x0D
	FPU_CEIL_W  = 0x0E
	FPU_FLOOR_W = 0x0F
	FPU_CVT_S   = 0x20
	FPU_CVT_W   = 0x24
	FPU_C_F     = 0x30
	FPU_C_EQ    = 0x32
	FPU_C_LT    = 0x3C
	FPU_C_LE    = 0x3E
)
