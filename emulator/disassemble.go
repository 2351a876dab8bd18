package emulator

import (
	"fmt"
)

func gprName(i int) string {
	return "$" + GprNames[i&0x1F]
}

// Disassemble renders d, located at pc, in assembler syntax. Branch and jump
// targets are resolved to absolute addresses.
func Disassemble(d Decoded, pc uint32) string {
	name := d.Op.String()
	branchTarget := pc + 4 + uint32(d.SImm()<<2)

	switch d.Op {
	case OpInvalid:
		return fmt.Sprintf(".word 0x%08X", d.Word)
	case OpSLL:
		if d.Word == 0 {
			return "nop"
		}
		fallthrough
	case OpSRL, OpSRA, OpROTR:
		return fmt.Sprintf("%s %s, %s, %d", name, gprName(d.Rd), gprName(d.Rt), d.Sa)
	case OpSLLV, OpSRLV, OpSRAV, OpROTRV:
		return fmt.Sprintf("%s %s, %s, %s", name, gprName(d.Rd), gprName(d.Rt), gprName(d.Rs))
	case OpADD, OpADDU, OpSUB, OpSUBU, OpAND, OpOR, OpXOR, OpNOR, OpSLT, OpSLTU,
		OpMOVZ, OpMOVN, OpMAX, OpMIN:
		if d.Op == OpADDU && d.Rt == 0 {
			return fmt.Sprintf("move %s, %s", gprName(d.Rd), gprName(d.Rs))
		}
		return fmt.Sprintf("%s %s, %s, %s", name, gprName(d.Rd), gprName(d.Rs), gprName(d.Rt))
	case OpCLZ, OpCLO:
		return fmt.Sprintf("%s %s, %s", name, gprName(d.Rd), gprName(d.Rs))
	case OpSEB, OpSEH, OpWSBH, OpWSBW, OpBITREV:
		return fmt.Sprintf("%s %s, %s", name, gprName(d.Rd), gprName(d.Rt))
	case OpEXT:
		return fmt.Sprintf("%s %s, %s, %d, %d", name, gprName(d.Rt), gprName(d.Rs), d.Pos(), d.Size()+1)
	case OpINS:
		return fmt.Sprintf("%s %s, %s, %d, %d", name, gprName(d.Rt), gprName(d.Rs), d.Pos(), d.Size()-d.Pos()+1)
	case OpMULT, OpMULTU, OpMADD, OpMADDU, OpMSUB, OpMSUBU, OpDIV, OpDIVU:
		return fmt.Sprintf("%s %s, %s", name, gprName(d.Rs), gprName(d.Rt))
	case OpMFHI, OpMFLO:
		return fmt.Sprintf("%s %s", name, gprName(d.Rd))
	case OpMTHI, OpMTLO, OpJR:
		return fmt.Sprintf("%s %s", name, gprName(d.Rs))
	case OpJALR:
		return fmt.Sprintf("%s %s, %s", name, gprName(d.Rd), gprName(d.Rs))
	case OpMFIC, OpMTIC:
		return fmt.Sprintf("%s %s", name, gprName(d.Rt))
	case OpLUI:
		return fmt.Sprintf("%s %s, 0x%04X", name, gprName(d.Rt), d.Imm)
	case OpANDI, OpORI, OpXORI:
		return fmt.Sprintf("%s %s, %s, 0x%04X", name, gprName(d.Rt), gprName(d.Rs), d.Imm)
	case OpADDI, OpADDIU, OpSLTI, OpSLTIU:
		if d.Op == OpADDIU && d.Rs == 0 {
			return fmt.Sprintf("li %s, %d", gprName(d.Rt), d.SImm())
		}
		return fmt.Sprintf("%s %s, %s, %d", name, gprName(d.Rt), gprName(d.Rs), d.SImm())
	case OpLB, OpLBU, OpLH, OpLHU, OpLW, OpLWL, OpLWR, OpSB, OpSH, OpSW, OpSWL, OpSWR, OpLL, OpSC:
		return fmt.Sprintf("%s %s, %d(%s)", name, gprName(d.Rt), d.SImm(), gprName(d.Rs))
	case OpLWC1, OpSWC1:
		return fmt.Sprintf("%s $f%d, %d(%s)", name, d.Ft(), d.SImm(), gprName(d.Rs))
	case OpBEQ, OpBNE, OpBEQL, OpBNEL:
		if d.Op == OpBEQ && d.Rs == 0 && d.Rt == 0 {
			return fmt.Sprintf("b 0x%08X", branchTarget)
		}
		return fmt.Sprintf("%s %s, %s, 0x%08X", name, gprName(d.Rs), gprName(d.Rt), branchTarget)
	case OpBLEZ, OpBGTZ, OpBLTZ, OpBGEZ, OpBLTZAL, OpBGEZAL, OpBLEZL, OpBGTZL, OpBLTZL, OpBGEZL,
		OpBLTZALL, OpBGEZALL:
		return fmt.Sprintf("%s %s, 0x%08X", name, gprName(d.Rs), branchTarget)
	case OpBC1F, OpBC1T, OpBC1FL, OpBC1TL:
		return fmt.Sprintf("%s 0x%08X", name, branchTarget)
	case OpJ, OpJAL:
		return fmt.Sprintf("%s 0x%08X", name, ((pc+4)&0xF0000000)|(d.Target<<2))
	case OpSYSCALL, OpBREAK:
		return fmt.Sprintf("%s 0x%X", name, d.Code)
	case OpMFC1, OpMTC1:
		return fmt.Sprintf("%s %s, $f%d", name, gprName(d.Rt), d.Fs())
	case OpCFC1, OpCTC1:
		return fmt.Sprintf("%s %s, $fcr%d", name, gprName(d.Rt), d.Fs())
	case OpADDS, OpSUBS, OpMULS, OpDIVS:
		return fmt.Sprintf("%s $f%d, $f%d, $f%d", name, d.Fd(), d.Fs(), d.Ft())
	case OpSQRTS, OpABSS, OpMOVS, OpNEGS, OpROUNDWS, OpTRUNCWS, OpCEILWS, OpFLOORWS, OpCVTSW, OpCVTWS:
		return fmt.Sprintf("%s $f%d, $f%d", name, d.Fd(), d.Fs())
	case OpCCONDS:
		return fmt.Sprintf("c.%s.s $f%d, $f%d", fpuConditionNames[d.Funct&0xF], d.Fs(), d.Ft())
	}
	return name
}

var fpuConditionNames = [16]string{
	"f", "un", "eq", "ueq", "olt", "ult", "ole", "ule",
	"sf", "ngle", "seq", "ngl", "lt", "nge", "le", "ngt",
}

// DisassembleRange decodes count words starting at addr.
func DisassembleRange(mem *AddressSpace, addr uint32, count int) ([]string, error) {
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		pc := addr + uint32(i)*4
		word, err := mem.Read32(pc)
		if err != nil {
			return out, err
		}
		out = append(out, fmt.Sprintf("0x%08X: %s", pc, Disassemble(Decode(word), pc)))
	}
	return out, nil
}
