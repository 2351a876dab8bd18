package assembler

import "strings"

type operandFormat int

const (
	formatNone operandFormat = iota
	formatRdRsRt
	formatRdRtRs
	formatRdRtSa
	formatRsRt
	formatRdRs
	formatRdRt
	formatRd
	formatRs
	formatRt
	formatJalr
	formatRtRsImm  // signed 16 bit immediate
	formatRtRsUImm // zero extended 16 bit immediate
	formatRtImm
	formatRtMem
	formatFtMem
	formatRsRtBranch
	formatRsBranch
	formatBranch
	formatJump
	formatCode
	formatExt
	formatIns
	formatRtFs
	formatRtFcr
	formatFdFsFt
	formatFdFs
	formatFsFt
)

var formatStrings = map[operandFormat]string{
	formatNone:       "<opcode>",
	formatRdRsRt:     "<opcode> <dst reg>, <src reg>, <src reg>",
	formatRdRtRs:     "<opcode> <dst reg>, <src reg>, <amt reg>",
	formatRdRtSa:     "<opcode> <dst reg>, <src reg>, <amt>",
	formatRsRt:       "<opcode> <src reg>, <src reg>",
	formatRdRs:       "<opcode> <dst reg>, <src reg>",
	formatRdRt:       "<opcode> <dst reg>, <src reg>",
	formatRd:         "<opcode> <dst reg>",
	formatRs:         "<opcode> <src reg>",
	formatRt:         "<opcode> <reg>",
	formatJalr:       "<opcode> [<link reg>,] <target reg>",
	formatRtRsImm:    "<opcode> <dst reg>, <src reg>, <imm>",
	formatRtRsUImm:   "<opcode> <dst reg>, <src reg>, <imm>",
	formatRtImm:      "<opcode> <dst reg>, <imm>",
	formatRtMem:      "<opcode> <reg>, <imm>(<base reg>)",
	formatFtMem:      "<opcode> <fp reg>, <imm>(<base reg>)",
	formatRsRtBranch: "<opcode> <src reg>, <src reg>, <label>",
	formatRsBranch:   "<opcode> <src reg>, <label>",
	formatBranch:     "<opcode> <label>",
	formatJump:       "<opcode> <label>",
	formatCode:       "<opcode> [<code>]",
	formatExt:        "<opcode> <dst reg>, <src reg>, <pos>, <size>",
	formatIns:        "<opcode> <dst reg>, <src reg>, <pos>, <size>",
	formatRtFs:       "<opcode> <reg>, <fp reg>",
	formatRtFcr:      "<opcode> <reg>, <fp control reg>",
	formatFdFsFt:     "<opcode> <dst fp reg>, <src fp reg>, <src fp reg>",
	formatFdFs:       "<opcode> <dst fp reg>, <src fp reg>",
	formatFsFt:       "<opcode> <src fp reg>, <src fp reg>",
}

var operandCounts = map[operandFormat]int{
	formatNone: 0, formatRdRsRt: 3, formatRdRtRs: 3, formatRdRtSa: 3, formatRsRt: 2,
	formatRdRs: 2, formatRdRt: 2, formatRd: 1, formatRs: 1, formatRt: 1, formatJalr: -1,
	formatRtRsImm: 3, formatRtRsUImm: 3, formatRtImm: 2, formatRtMem: 2, formatFtMem: 2,
	formatRsRtBranch: 3, formatRsBranch: 2, formatBranch: 1, formatJump: 1, formatCode: -1,
	formatExt: 4, formatIns: 4, formatRtFs: 2, formatRtFcr: 2, formatFdFsFt: 3, formatFdFs: 2,
	formatFsFt: 2,
}

type instructionSpec struct {
	base        uint32 // opcode and fixed fields
	format      operandFormat
	description string
}

func rType(opcode, rs, rt, rd, sa, funct uint32) uint32 {
	return makeRTypeInstruction(opcode, rs, rt, rd, sa, funct)
}

func iType(opcode, rs, rt uint32) uint32 {
	return makeITypeInstruction(opcode, rs, rt, 0)
}

var instructionSet = map[string]instructionSpec{
	// ALU
	"add":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_ADD), formatRdRsRt, "Addition. `add $t0, $t1, $t2` is `t0 = t1 + t2`. Overflow does not trap."},
	"addu": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_ADDU), formatRdRsRt, "Addition Unsigned. `addu $t0, $t1, $t2` is `t0 = t1 + t2`."},
	"sub":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SUB), formatRdRsRt, "Subtraction. `sub $t0, $t1, $t2` is `t0 = t1 - t2`. Overflow does not trap."},
	"subu": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SUBU), formatRdRsRt, "Subtraction Unsigned. `subu $t0, $t1, $t2` is `t0 = t1 - t2`."},
	"and":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_AND), formatRdRsRt, "AND. `and $t0, $t1, $t2` is `t0 = t1 & t2`."},
	"or":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_OR), formatRdRsRt, "OR. `or $t0, $t1, $t2` is `t0 = t1 | t2`."},
	"xor":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_XOR), formatRdRsRt, "XOR. `xor $t0, $t1, $t2` is `t0 = t1 ^ t2`."},
	"nor":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_NOR), formatRdRsRt, "NOR. `nor $t0, $t1, $t2` is `t0 = ~(t1 | t2)`."},
	"slt":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SLT), formatRdRsRt, "Set Less Than. `t0 = t1 < t2 ? 1 : 0`, signed comparison."},
	"sltu": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SLTU), formatRdRsRt, "Set Less Than Unsigned. `t0 = t1 < t2 ? 1 : 0`, unsigned comparison."},
	"movz": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MOVZ), formatRdRsRt, "Move If Zero. `movz $t0, $t1, $t2` is `if t2 == 0 { t0 = t1 }`."},
	"movn": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MOVN), formatRdRsRt, "Move If Not Zero. `movn $t0, $t1, $t2` is `if t2 != 0 { t0 = t1 }`."},
	"max":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MAX), formatRdRsRt, "Signed maximum of two registers."},
	"min":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MIN), formatRdRsRt, "Signed minimum of two registers."},

	"sll":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SLL), formatRdRtSa, "Shift Left Logical. `sll $t0, $t1, 4` is `t0 = t1 << 4`."},
	"srl":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SRL), formatRdRtSa, "Shift Right Logical. `srl $t0, $t1, 4` is `t0 = t1 >> 4`, zero filled."},
	"sra":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SRA), formatRdRtSa, "Shift Right Arithmetic. `sra $t0, $t1, 4` is `t0 = t1 >> 4`, copying the sign bit."},
	"rotr":  {rType(OPCODE_SPECIAL, 1, 0, 0, 0, FUNCT_SRL), formatRdRtSa, "Rotate Right by a constant."},
	"sllv":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SLLV), formatRdRtRs, "Shift Left Logical Variable. Only the low 5 bits of the amount are used."},
	"srlv":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SRLV), formatRdRtRs, "Shift Right Logical Variable. Only the low 5 bits of the amount are used."},
	"srav":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SRAV), formatRdRtRs, "Shift Right Arithmetic Variable. Only the low 5 bits of the amount are used."},
	"rotrv": {rType(OPCODE_SPECIAL, 0, 0, 0, 1, FUNCT_SRLV), formatRdRtRs, "Rotate Right Variable."},

	"clz":    {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_CLZ), formatRdRs, "Count Leading Zeros."},
	"clo":    {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_CLO), formatRdRs, "Count Leading Ones."},
	"seb":    {rType(OPCODE_SPECIAL3, 0, 0, 0, BSHFL_SEB, FUNCT3_BSHFL), formatRdRt, "Sign Extend Byte."},
	"seh":    {rType(OPCODE_SPECIAL3, 0, 0, 0, BSHFL_SEH, FUNCT3_BSHFL), formatRdRt, "Sign Extend Halfword."},
	"wsbh":   {rType(OPCODE_SPECIAL3, 0, 0, 0, BSHFL_WSBH, FUNCT3_BSHFL), formatRdRt, "Swap the bytes within each halfword."},
	"wsbw":   {rType(OPCODE_SPECIAL3, 0, 0, 0, BSHFL_WSBW, FUNCT3_BSHFL), formatRdRt, "Swap the bytes of a word."},
	"bitrev": {rType(OPCODE_SPECIAL3, 0, 0, 0, BSHFL_BITREV, FUNCT3_BSHFL), formatRdRt, "Reverse the bits of a word."},
	"ext":    {rType(OPCODE_SPECIAL3, 0, 0, 0, 0, FUNCT3_EXT), formatExt, "Extract Bit Field. `ext $t0, $t1, pos, size` is `t0 = (t1 >> pos) & (1<<size - 1)`."},
	"ins":    {rType(OPCODE_SPECIAL3, 0, 0, 0, 0, FUNCT3_INS), formatIns, "Insert Bit Field. Copies the low `size` bits of the source into the destination at `pos`."},

	"addi":  {iType(OPCODE_ADDI, 0, 0), formatRtRsImm, "Addition Immediate. `addi $t0, $t1, -4` is `t0 = t1 - 4`. The immediate is a signed 16-bit value."},
	"addiu": {iType(OPCODE_ADDIU, 0, 0), formatRtRsImm, "Addition Immediate Unsigned. The immediate is still sign extended; only the overflow behaviour differs in name."},
	"slti":  {iType(OPCODE_SLTI, 0, 0), formatRtRsImm, "Set Less Than Immediate, signed comparison."},
	"sltiu": {iType(OPCODE_SLTIU, 0, 0), formatRtRsImm, "Set Less Than Immediate Unsigned. The immediate is sign extended, then compared unsigned."},
	"andi":  {iType(OPCODE_ANDI, 0, 0), formatRtRsUImm, "AND Immediate. The immediate is zero extended."},
	"ori":   {iType(OPCODE_ORI, 0, 0), formatRtRsUImm, "OR Immediate. The immediate is zero extended."},
	"xori":  {iType(OPCODE_XORI, 0, 0), formatRtRsUImm, "XOR Immediate. The immediate is zero extended."},
	"lui":   {iType(OPCODE_LUI, 0, 0), formatRtImm, "Load Upper Immediate. `lui $t0, 0x1234` is `t0 = 0x12340000`."},

	// HI/LO
	"mult":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MULT), formatRsRt, "Multiply. The signed 64-bit product goes to HI:LO."},
	"multu": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MULTU), formatRsRt, "Multiply Unsigned. The 64-bit product goes to HI:LO."},
	"madd":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MADD), formatRsRt, "Multiply and add the signed product to HI:LO."},
	"maddu": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MADDU), formatRsRt, "Multiply and add the unsigned product to HI:LO."},
	"msub":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MSUB), formatRsRt, "Multiply and subtract the signed product from HI:LO."},
	"msubu": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MSUBU), formatRsRt, "Multiply and subtract the unsigned product from HI:LO."},
	"div":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_DIV), formatRsRt, "Divide. LO receives the quotient and HI the remainder. Division by zero does not trap."},
	"divu":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_DIVU), formatRsRt, "Divide Unsigned. LO receives the quotient and HI the remainder."},
	"mfhi":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MFHI), formatRd, "Move From HI."},
	"mflo":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MFLO), formatRd, "Move From LO."},
	"mthi":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MTHI), formatRs, "Move To HI."},
	"mtlo":  {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_MTLO), formatRs, "Move To LO."},
	"mfic":  {rType(OPCODE_SPECIAL2, 0, 0, 0, 0, FUNCT2_MFIC), formatRt, "Move From the instruction counter."},
	"mtic":  {rType(OPCODE_SPECIAL2, 0, 0, 0, 0, FUNCT2_MTIC), formatRt, "Move To the instruction counter."},

	// memory
	"lb":   {iType(OPCODE_LB, 0, 0), formatRtMem, "Load Byte. `lb $t0, 4($sp)` is `t0 = mem8[sp + 4]`, sign extended."},
	"lbu":  {iType(OPCODE_LBU, 0, 0), formatRtMem, "Load Byte Unsigned. `lbu $t0, 4($sp)` is `t0 = mem8[sp + 4]`, zero extended."},
	"lh":   {iType(OPCODE_LH, 0, 0), formatRtMem, "Load Halfword, sign extended. The address must be 2-byte aligned."},
	"lhu":  {iType(OPCODE_LHU, 0, 0), formatRtMem, "Load Halfword Unsigned, zero extended. The address must be 2-byte aligned."},
	"lw":   {iType(OPCODE_LW, 0, 0), formatRtMem, "Load Word. `lw $t0, 4($sp)` is `t0 = mem32[sp + 4]`. The address must be 4-byte aligned."},
	"lwl":  {iType(OPCODE_LWL, 0, 0), formatRtMem, "Load Word Left, the high part of an unaligned word."},
	"lwr":  {iType(OPCODE_LWR, 0, 0), formatRtMem, "Load Word Right, the low part of an unaligned word."},
	"sb":   {iType(OPCODE_SB, 0, 0), formatRtMem, "Store Byte. `sb $t0, 4($sp)` is `mem8[sp + 4] = t0`."},
	"sh":   {iType(OPCODE_SH, 0, 0), formatRtMem, "Store Halfword. The address must be 2-byte aligned."},
	"sw":   {iType(OPCODE_SW, 0, 0), formatRtMem, "Store Word. `sw $t0, 4($sp)` is `mem32[sp + 4] = t0`. The address must be 4-byte aligned."},
	"swl":  {iType(OPCODE_SWL, 0, 0), formatRtMem, "Store Word Left, the high part of an unaligned word."},
	"swr":  {iType(OPCODE_SWR, 0, 0), formatRtMem, "Store Word Right, the low part of an unaligned word."},
	"lwc1": {iType(OPCODE_LWC1, 0, 0), formatFtMem, "Load a word into a floating point register."},
	"swc1": {iType(OPCODE_SWC1, 0, 0), formatFtMem, "Store a floating point register to memory."},

	// branches, all with one delay slot
	"beq":     {iType(OPCODE_BEQ, 0, 0), formatRsRtBranch, "Branch Equal. The following instruction (delay slot) always executes."},
	"bne":     {iType(OPCODE_BNE, 0, 0), formatRsRtBranch, "Branch Not Equal. The following instruction (delay slot) always executes."},
	"blez":    {iType(OPCODE_BLEZ, 0, 0), formatRsBranch, "Branch if Less than or Equal to Zero."},
	"bgtz":    {iType(OPCODE_BGTZ, 0, 0), formatRsBranch, "Branch if Greater Than Zero."},
	"bltz":    {iType(OPCODE_REGIMM, 0, REGIMM_BLTZ), formatRsBranch, "Branch if Less Than Zero."},
	"bgez":    {iType(OPCODE_REGIMM, 0, REGIMM_BGEZ), formatRsBranch, "Branch if Greater than or Equal to Zero."},
	"bltzal":  {iType(OPCODE_REGIMM, 0, REGIMM_BLTZAL), formatRsBranch, "Branch if Less Than Zero And Link. `$ra` is always written."},
	"bgezal":  {iType(OPCODE_REGIMM, 0, REGIMM_BGEZAL), formatRsBranch, "Branch if Greater than or Equal to Zero And Link. `$ra` is always written."},
	"beql":    {iType(OPCODE_BEQL, 0, 0), formatRsRtBranch, "Branch Equal Likely. The delay slot is skipped when the branch is not taken."},
	"bnel":    {iType(OPCODE_BNEL, 0, 0), formatRsRtBranch, "Branch Not Equal Likely. The delay slot is skipped when the branch is not taken."},
	"blezl":   {iType(OPCODE_BLEZL, 0, 0), formatRsBranch, "Likely form of `blez`."},
	"bgtzl":   {iType(OPCODE_BGTZL, 0, 0), formatRsBranch, "Likely form of `bgtz`."},
	"bltzl":   {iType(OPCODE_REGIMM, 0, REGIMM_BLTZL), formatRsBranch, "Likely form of `bltz`."},
	"bgezl":   {iType(OPCODE_REGIMM, 0, REGIMM_BGEZL), formatRsBranch, "Likely form of `bgez`."},
	"bltzall": {iType(OPCODE_REGIMM, 0, REGIMM_BLTZALL), formatRsBranch, "Likely form of `bltzal`."},
	"bgezall": {iType(OPCODE_REGIMM, 0, REGIMM_BGEZALL), formatRsBranch, "Likely form of `bgezal`."},
	"bc1f":    {iType(OPCODE_COP1, COP_BC, BC1F), formatBranch, "Branch if the FPU condition is false."},
	"bc1t":    {iType(OPCODE_COP1, COP_BC, BC1T), formatBranch, "Branch if the FPU condition is true."},
	"bc1fl":   {iType(OPCODE_COP1, COP_BC, BC1FL), formatBranch, "Likely form of `bc1f`."},
	"bc1tl":   {iType(OPCODE_COP1, COP_BC, BC1TL), formatBranch, "Likely form of `bc1t`."},

	"j":    {makeJTypeInstruction(OPCODE_J, 0), formatJump, "Jump within the current 256MB region."},
	"jal":  {makeJTypeInstruction(OPCODE_JAL, 0), formatJump, "Jump And Link. `$ra` receives the address after the delay slot."},
	"jr":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_JR), formatRs, "Jump Register. `jr $ra` returns from a function."},
	"jalr": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_JALR), formatJalr, "Jump And Link Register. The link register defaults to `$ra`."},

	"syscall": {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SYSCALL), formatCode, "System Call. The 20-bit code selects the kernel function."},
	"break":   {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_BREAK), formatCode, "Breakpoint exception carrying a 20-bit code."},
	"sync":    {rType(OPCODE_SPECIAL, 0, 0, 0, 0, FUNCT_SYNC), formatNone, "Memory barrier, a no-op here."},

	// FPU
	"mfc1":      {rType(OPCODE_COP1, COP_MF, 0, 0, 0, 0), formatRtFs, "Move the raw bits of a floating point register to a general register."},
	"mtc1":      {rType(OPCODE_COP1, COP_MT, 0, 0, 0, 0), formatRtFs, "Move the raw bits of a general register to a floating point register."},
	"cfc1":      {rType(OPCODE_COP1, COP_CF, 0, 0, 0, 0), formatRtFcr, "Read an FPU control register (0 or 31)."},
	"ctc1":      {rType(OPCODE_COP1, COP_CT, 0, 0, 0, 0), formatRtFcr, "Write FPU control register 31."},
	"add.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_ADD), formatFdFsFt, "Single precision addition."},
	"sub.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_SUB), formatFdFsFt, "Single precision subtraction."},
	"mul.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_MUL), formatFdFsFt, "Single precision multiplication."},
	"div.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_DIV), formatFdFsFt, "Single precision division."},
	"sqrt.s":    {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_SQRT), formatFdFs, "Single precision square root."},
	"abs.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_ABS), formatFdFs, "Single precision absolute value."},
	"mov.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_MOV), formatFdFs, "Copy a floating point register."},
	"neg.s":     {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_NEG), formatFdFs, "Single precision negation."},
	"round.w.s": {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_ROUND_W), formatFdFs, "Round to the nearest integer."},
	"trunc.w.s": {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_TRUNC_W), formatFdFs, "Truncate toward zero."},
	"ceil.w.s":  {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_CEIL_W), formatFdFs, "Round toward positive infinity."},
	"floor.w.s": {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_FLOOR_W), formatFdFs, "Round toward negative infinity."},
	"cvt.s.w":   {rType(OPCODE_COP1, COP_W, 0, 0, 0, FPU_CVT_S), formatFdFs, "Convert an integer to single precision."},
	"cvt.w.s":   {rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_CVT_W), formatFdFs, "Convert single precision to an integer using the fcr31 rounding mode."},
}

var fpuConditions = []string{
	"f", "un", "eq", "ueq", "olt", "ult", "ole", "ule",
	"sf", "ngle", "seq", "ngl", "lt", "nge", "le", "ngt",
}

// pseudo instructions and their word counts; li is sized from its operand
var pseudoInstructions = map[string]string{
	"move": "Copy a register. Assembles to `addu <dst>, <src>, $zero`.",
	"li":   "Load Immediate. Assembles to one or two instructions depending on the value.",
	"la":   "Load Address. Assembles to `lui` and `ori`.",
	"b":    "Unconditional branch. Assembles to `beq $zero, $zero, <label>`.",
	"beqz": "Branch if zero. Assembles to `beq <reg>, $zero, <label>`.",
	"bnez": "Branch if not zero. Assembles to `bne <reg>, $zero, <label>`.",
	"nop":  "No operation. Assembles to `sll $zero, $zero, 0`.",
}

func init() {
	for cond, name := range fpuConditions {
		instructionSet["c."+name+".s"] = instructionSpec{
			base:        rType(OPCODE_COP1, COP_S, 0, 0, 0, FPU_C_F|uint32(cond)),
			format:      formatFsFt,
			description: "Compare two single precision values and set the FPU condition if `" + name + "` holds.",
		}
	}
}

// DescribeInstruction returns markdown documentation for a mnemonic, or an
// empty string when it is unknown.
func DescribeInstruction(mnemonic string) string {
	mnemonic = strings.TrimSpace(strings.ToLower(mnemonic))
	if spec, ok := instructionSet[mnemonic]; ok {
		return "`" + mnemonic + "`: " + spec.description + "\n\nFormat: `" + strings.Replace(formatStrings[spec.format], "<opcode>", mnemonic, 1) + "`"
	}
	if desc, ok := pseudoInstructions[mnemonic]; ok {
		return "`" + mnemonic + "` (pseudo instruction): " + desc
	}
	return ""
}

// IsBranch reports whether a mnemonic has a delay slot.
func IsBranch(mnemonic string) bool {
	spec, ok := instructionSet[mnemonic]
	if ok {
		switch spec.format {
		case formatRsRtBranch, formatRsBranch, formatBranch, formatJump, formatJalr:
			return true
		}
		return mnemonic == "jr"
	}
	return mnemonic == "b" || mnemonic == "beqz" || mnemonic == "bnez"
}
