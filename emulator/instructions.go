package emulator

import (
	"math/bits"
)

func (inst *Interpreter) executeNOP(c *CpuContext, d Decoded) error {
	return nil
}

// ALU

func (inst *Interpreter) executeLUI(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, d.UImm()<<16)
	return nil
}

// addi/add do not trap on overflow, they behave like addiu/addu
func (inst *Interpreter) executeADDIU(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, c.Gpr(d.Rs)+uint32(d.SImm()))
	return nil
}

func (inst *Interpreter) executeSLTI(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, boolToWord(int32(c.Gpr(d.Rs)) < d.SImm()))
	return nil
}

func (inst *Interpreter) executeSLTIU(c *CpuContext, d Decoded) error {
	// the immediate is sign extended, then compared unsigned
	c.SetGpr(d.Rt, boolToWord(c.Gpr(d.Rs) < uint32(d.SImm())))
	return nil
}

func (inst *Interpreter) executeANDI(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, c.Gpr(d.Rs)&d.UImm())
	return nil
}

func (inst *Interpreter) executeORI(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, c.Gpr(d.Rs)|d.UImm())
	return nil
}

func (inst *Interpreter) executeXORI(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, c.Gpr(d.Rs)^d.UImm())
	return nil
}

func (inst *Interpreter) executeADDU(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rs)+c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeSUBU(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rs)-c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeAND(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rs)&c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeOR(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rs)|c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeXOR(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rs)^c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeNOR(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, ^(c.Gpr(d.Rs) | c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeSLT(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, boolToWord(int32(c.Gpr(d.Rs)) < int32(c.Gpr(d.Rt))))
	return nil
}

func (inst *Interpreter) executeSLTU(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, boolToWord(c.Gpr(d.Rs) < c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeSLL(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rt)<<uint(d.Sa))
	return nil
}

func (inst *Interpreter) executeSRL(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rt)>>uint(d.Sa))
	return nil
}

func (inst *Interpreter) executeSRA(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, uint32(int32(c.Gpr(d.Rt))>>uint(d.Sa)))
	return nil
}

func (inst *Interpreter) executeROTR(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, bits.RotateLeft32(c.Gpr(d.Rt), -d.Sa))
	return nil
}

func (inst *Interpreter) executeSLLV(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rt)<<(c.Gpr(d.Rs)&0b11111))
	return nil
}

func (inst *Interpreter) executeSRLV(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.Gpr(d.Rt)>>(c.Gpr(d.Rs)&0b11111))
	return nil
}

func (inst *Interpreter) executeSRAV(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, uint32(int32(c.Gpr(d.Rt))>>(c.Gpr(d.Rs)&0b11111)))
	return nil
}

func (inst *Interpreter) executeROTRV(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, bits.RotateLeft32(c.Gpr(d.Rt), -int(c.Gpr(d.Rs)&0b11111)))
	return nil
}

func (inst *Interpreter) executeMOVZ(c *CpuContext, d Decoded) error {
	if c.Gpr(d.Rt) == 0 {
		c.SetGpr(d.Rd, c.Gpr(d.Rs))
	}
	return nil
}

func (inst *Interpreter) executeMOVN(c *CpuContext, d Decoded) error {
	if c.Gpr(d.Rt) != 0 {
		c.SetGpr(d.Rd, c.Gpr(d.Rs))
	}
	return nil
}

func (inst *Interpreter) executeMAX(c *CpuContext, d Decoded) error {
	a, b := int32(c.Gpr(d.Rs)), int32(c.Gpr(d.Rt))
	if b > a {
		a = b
	}
	c.SetGpr(d.Rd, uint32(a))
	return nil
}

func (inst *Interpreter) executeMIN(c *CpuContext, d Decoded) error {
	a, b := int32(c.Gpr(d.Rs)), int32(c.Gpr(d.Rt))
	if b < a {
		a = b
	}
	c.SetGpr(d.Rd, uint32(a))
	return nil
}

func (inst *Interpreter) executeCLZ(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, uint32(bits.LeadingZeros32(c.Gpr(d.Rs))))
	return nil
}

func (inst *Interpreter) executeCLO(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, uint32(bits.LeadingZeros32(^c.Gpr(d.Rs))))
	return nil
}

func (inst *Interpreter) executeSEB(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, uint32(int32(int8(c.Gpr(d.Rt)))))
	return nil
}

func (inst *Interpreter) executeSEH(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, uint32(int32(int16(c.Gpr(d.Rt)))))
	return nil
}

func (inst *Interpreter) executeWSBH(c *CpuContext, d Decoded) error {
	v := c.Gpr(d.Rt)
	c.SetGpr(d.Rd, ((v&0x00FF00FF)<<8)|((v&0xFF00FF00)>>8))
	return nil
}

func (inst *Interpreter) executeWSBW(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, bits.ReverseBytes32(c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeBITREV(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, bits.Reverse32(c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeEXT(c *CpuContext, d Decoded) error {
	size := uint(d.Size() + 1)
	mask := uint32((uint64(1) << size) - 1)
	c.SetGpr(d.Rt, (c.Gpr(d.Rs)>>uint(d.Pos()))&mask)
	return nil
}

func (inst *Interpreter) executeINS(c *CpuContext, d Decoded) error {
	lsb := uint(d.Pos())
	msb := uint(d.Size())
	if msb < lsb {
		return nil
	}
	size := msb - lsb + 1
	mask := uint32((uint64(1)<<size)-1) << lsb
	c.SetGpr(d.Rt, (c.Gpr(d.Rt)&^mask)|((c.Gpr(d.Rs)<<lsb)&mask))
	return nil
}

// HI/LO

func (inst *Interpreter) executeMULT(c *CpuContext, d Decoded) error {
	c.SetHiLo(uint64(int64(int32(c.Gpr(d.Rs))) * int64(int32(c.Gpr(d.Rt)))))
	return nil
}

func (inst *Interpreter) executeMULTU(c *CpuContext, d Decoded) error {
	c.SetHiLo(uint64(c.Gpr(d.Rs)) * uint64(c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeMADD(c *CpuContext, d Decoded) error {
	c.SetHiLo(uint64(int64(c.HiLo()) + int64(int32(c.Gpr(d.Rs)))*int64(int32(c.Gpr(d.Rt)))))
	return nil
}

func (inst *Interpreter) executeMADDU(c *CpuContext, d Decoded) error {
	c.SetHiLo(c.HiLo() + uint64(c.Gpr(d.Rs))*uint64(c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeMSUB(c *CpuContext, d Decoded) error {
	c.SetHiLo(uint64(int64(c.HiLo()) - int64(int32(c.Gpr(d.Rs)))*int64(int32(c.Gpr(d.Rt)))))
	return nil
}

func (inst *Interpreter) executeMSUBU(c *CpuContext, d Decoded) error {
	c.SetHiLo(c.HiLo() - uint64(c.Gpr(d.Rs))*uint64(c.Gpr(d.Rt)))
	return nil
}

func (inst *Interpreter) executeDIV(c *CpuContext, d Decoded) error {
	rs, rt := int32(c.Gpr(d.Rs)), int32(c.Gpr(d.Rt))
	switch {
	case rt == 0:
		// no trap: LO is +-1 depending on the dividend sign, HI keeps the dividend
		if rs < 0 {
			c.LO = 1
		} else {
			c.LO = 0xFFFFFFFF
		}
		c.HI = uint32(rs)
	case rs == -0x80000000 && rt == -1:
		c.LO = 0x80000000
		c.HI = 0
	default:
		c.LO = uint32(rs / rt)
		c.HI = uint32(rs % rt)
	}
	return nil
}

func (inst *Interpreter) executeDIVU(c *CpuContext, d Decoded) error {
	rs, rt := c.Gpr(d.Rs), c.Gpr(d.Rt)
	if rt == 0 {
		c.LO = 0xFFFFFFFF
		c.HI = rs
		return nil
	}
	c.LO = rs / rt
	c.HI = rs % rt
	return nil
}

func (inst *Interpreter) executeMFHI(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.HI)
	return nil
}

func (inst *Interpreter) executeMFLO(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rd, c.LO)
	return nil
}

func (inst *Interpreter) executeMTHI(c *CpuContext, d Decoded) error {
	c.HI = c.Gpr(d.Rs)
	return nil
}

func (inst *Interpreter) executeMTLO(c *CpuContext, d Decoded) error {
	c.LO = c.Gpr(d.Rs)
	return nil
}

func (inst *Interpreter) executeMFIC(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, c.IC)
	return nil
}

func (inst *Interpreter) executeMTIC(c *CpuContext, d Decoded) error {
	c.IC = c.Gpr(d.Rt)
	return nil
}

// memory

func (c *CpuContext) effectiveAddress(d Decoded) uint32 {
	return c.Gpr(d.Rs) + uint32(d.SImm())
}

func (inst *Interpreter) executeLB(c *CpuContext, d Decoded) error {
	v, err := inst.memory.LoadSigned8(c.effectiveAddress(d))
	if err != nil {
		return err
	}
	c.SetGpr(d.Rt, v)
	return nil
}

func (inst *Interpreter) executeLBU(c *CpuContext, d Decoded) error {
	v, err := inst.memory.LoadUnsigned8(c.effectiveAddress(d))
	if err != nil {
		return err
	}
	c.SetGpr(d.Rt, v)
	return nil
}

func (inst *Interpreter) executeLH(c *CpuContext, d Decoded) error {
	v, err := inst.memory.LoadSigned16(c.effectiveAddress(d))
	if err != nil {
		return err
	}
	c.SetGpr(d.Rt, v)
	return nil
}

func (inst *Interpreter) executeLHU(c *CpuContext, d Decoded) error {
	v, err := inst.memory.LoadUnsigned16(c.effectiveAddress(d))
	if err != nil {
		return err
	}
	c.SetGpr(d.Rt, v)
	return nil
}

func (inst *Interpreter) executeLW(c *CpuContext, d Decoded) error {
	v, err := inst.memory.Read32(c.effectiveAddress(d))
	if err != nil {
		return err
	}
	c.SetGpr(d.Rt, v)
	return nil
}

// lwl/lwr/swl/swr work on the aligned word containing the address
// (little endian byte order)

func (inst *Interpreter) executeLWL(c *CpuContext, d Decoded) error {
	addr := c.effectiveAddress(d)
	word, err := inst.memory.Read32(addr &^ 3)
	if err != nil {
		return err
	}
	shift := (3 - (addr & 3)) * 8
	mask := uint32(0xFFFFFFFF) >> (32 - shift) // bytes of rt kept
	if shift == 0 {
		mask = 0
	}
	c.SetGpr(d.Rt, (c.Gpr(d.Rt)&mask)|(word<<shift))
	return nil
}

func (inst *Interpreter) executeLWR(c *CpuContext, d Decoded) error {
	addr := c.effectiveAddress(d)
	word, err := inst.memory.Read32(addr &^ 3)
	if err != nil {
		return err
	}
	shift := (addr & 3) * 8
	mask := ^(uint32(0xFFFFFFFF) >> shift)
	c.SetGpr(d.Rt, (c.Gpr(d.Rt)&mask)|(word>>shift))
	return nil
}

func (inst *Interpreter) executeSB(c *CpuContext, d Decoded) error {
	return inst.memory.Write8(c.effectiveAddress(d), uint8(c.Gpr(d.Rt)))
}

func (inst *Interpreter) executeSH(c *CpuContext, d Decoded) error {
	return inst.memory.Write16(c.effectiveAddress(d), uint16(c.Gpr(d.Rt)))
}

func (inst *Interpreter) executeSW(c *CpuContext, d Decoded) error {
	return inst.memory.Write32(c.effectiveAddress(d), c.Gpr(d.Rt))
}

func (inst *Interpreter) executeSWL(c *CpuContext, d Decoded) error {
	addr := c.effectiveAddress(d)
	word, err := inst.memory.Read32(addr &^ 3)
	if err != nil {
		return err
	}
	shift := (3 - (addr & 3)) * 8
	mask := ^(uint32(0xFFFFFFFF) >> shift)
	if shift == 0 {
		mask = 0
	}
	return inst.memory.Write32(addr&^3, (word&mask)|(c.Gpr(d.Rt)>>shift))
}

func (inst *Interpreter) executeSWR(c *CpuContext, d Decoded) error {
	addr := c.effectiveAddress(d)
	word, err := inst.memory.Read32(addr &^ 3)
	if err != nil {
		return err
	}
	shift := (addr & 3) * 8
	mask := uint32(0xFFFFFFFF) >> (32 - shift)
	if shift == 0 {
		mask = 0
	}
	return inst.memory.Write32(addr&^3, (word&mask)|(c.Gpr(d.Rt)<<shift))
}

func (inst *Interpreter) executeLWC1(c *CpuContext, d Decoded) error {
	v, err := inst.memory.Read32(c.effectiveAddress(d))
	if err != nil {
		return err
	}
	c.SetFprBits(d.Ft(), v)
	return nil
}

func (inst *Interpreter) executeSWC1(c *CpuContext, d Decoded) error {
	return inst.memory.Write32(c.effectiveAddress(d), c.FprBits(d.Ft()))
}

// branches

// branch advances the pipeline for a conditional branch at c.PC. The target
// is relative to the delay slot. A likely branch that is not taken skips its
// delay slot entirely.
func (c *CpuContext) branch(d Decoded, taken bool) {
	switch {
	case taken:
		c.PC = c.NPC
		c.NPC = c.PC + uint32(d.SImm()<<2)
	case d.Op.IsLikely():
		c.PC = c.NPC + 4
		c.NPC = c.PC + 4
	default:
		c.PC = c.NPC
		c.NPC = c.PC + 4
	}
}

func (inst *Interpreter) executeBEQ(c *CpuContext, d Decoded) error {
	c.branch(d, c.Gpr(d.Rs) == c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeBNE(c *CpuContext, d Decoded) error {
	c.branch(d, c.Gpr(d.Rs) != c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeBLEZ(c *CpuContext, d Decoded) error {
	c.branch(d, int32(c.Gpr(d.Rs)) <= 0)
	return nil
}

func (inst *Interpreter) executeBGTZ(c *CpuContext, d Decoded) error {
	c.branch(d, int32(c.Gpr(d.Rs)) > 0)
	return nil
}

func (inst *Interpreter) executeBLTZ(c *CpuContext, d Decoded) error {
	c.branch(d, int32(c.Gpr(d.Rs)) < 0)
	return nil
}

func (inst *Interpreter) executeBGEZ(c *CpuContext, d Decoded) error {
	c.branch(d, int32(c.Gpr(d.Rs)) >= 0)
	return nil
}

func (inst *Interpreter) executeBLTZAL(c *CpuContext, d Decoded) error {
	taken := int32(c.Gpr(d.Rs)) < 0
	c.SetGpr(RegRA, c.NPC+4)
	c.branch(d, taken)
	return nil
}

func (inst *Interpreter) executeBGEZAL(c *CpuContext, d Decoded) error {
	taken := int32(c.Gpr(d.Rs)) >= 0
	c.SetGpr(RegRA, c.NPC+4)
	c.branch(d, taken)
	return nil
}

func (inst *Interpreter) executeJ(c *CpuContext, d Decoded) error {
	c.PC = c.NPC
	c.NPC = (c.PC & 0xF0000000) | (d.Target << 2)
	return nil
}

func (inst *Interpreter) executeJAL(c *CpuContext, d Decoded) error {
	c.SetGpr(RegRA, c.NPC+4)
	c.PC = c.NPC
	c.NPC = (c.PC & 0xF0000000) | (d.Target << 2)
	return nil
}

func (inst *Interpreter) executeJR(c *CpuContext, d Decoded) error {
	target := c.Gpr(d.Rs)
	c.PC = c.NPC
	c.NPC = target
	return nil
}

func (inst *Interpreter) executeJALR(c *CpuContext, d Decoded) error {
	target := c.Gpr(d.Rs)
	c.SetGpr(d.Rd, c.NPC+4)
	c.PC = c.NPC
	c.NPC = target
	return nil
}

// special

func (inst *Interpreter) executeSYSCALL(c *CpuContext, d Decoded) error {
	return &controlSignal{signal: Signal{Kind: SignalSyscall, Code: d.Code}}
}

func (inst *Interpreter) executeBREAK(c *CpuContext, d Decoded) error {
	return &controlSignal{signal: Signal{Kind: SignalBreak, Code: d.Code}}
}

func boolToWord(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}
