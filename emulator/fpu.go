package emulator

import (
	"math"
)

func (inst *Interpreter) executeMFC1(c *CpuContext, d Decoded) error {
	c.SetGpr(d.Rt, c.FprBits(d.Fs()))
	return nil
}

func (inst *Interpreter) executeMTC1(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fs(), c.Gpr(d.Rt))
	return nil
}

func (inst *Interpreter) executeCFC1(c *CpuContext, d Decoded) error {
	switch d.Fs() {
	case 0:
		c.SetGpr(d.Rt, c.fcr0)
	case 31:
		c.SetGpr(d.Rt, c.fcr31)
	default:
		c.SetGpr(d.Rt, 0)
	}
	return nil
}

func (inst *Interpreter) executeCTC1(c *CpuContext, d Decoded) error {
	// fcr0 is read only
	if d.Fs() == 31 {
		c.SetFCR31(c.Gpr(d.Rt))
	}
	return nil
}

func (inst *Interpreter) executeBC1F(c *CpuContext, d Decoded) error {
	c.branch(d, !c.fpuCondition())
	return nil
}

func (inst *Interpreter) executeBC1T(c *CpuContext, d Decoded) error {
	c.branch(d, c.fpuCondition())
	return nil
}

func (inst *Interpreter) executeADDS(c *CpuContext, d Decoded) error {
	c.SetFpr(d.Fd(), c.Fpr(d.Fs())+c.Fpr(d.Ft()))
	return nil
}

func (inst *Interpreter) executeSUBS(c *CpuContext, d Decoded) error {
	c.SetFpr(d.Fd(), c.Fpr(d.Fs())-c.Fpr(d.Ft()))
	return nil
}

func (inst *Interpreter) executeMULS(c *CpuContext, d Decoded) error {
	c.SetFpr(d.Fd(), c.Fpr(d.Fs())*c.Fpr(d.Ft()))
	return nil
}

func (inst *Interpreter) executeDIVS(c *CpuContext, d Decoded) error {
	c.SetFpr(d.Fd(), c.Fpr(d.Fs())/c.Fpr(d.Ft()))
	return nil
}

func (inst *Interpreter) executeSQRTS(c *CpuContext, d Decoded) error {
	c.SetFpr(d.Fd(), float32(math.Sqrt(float64(c.Fpr(d.Fs())))))
	return nil
}

func (inst *Interpreter) executeABSS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), c.FprBits(d.Fs())&0x7FFFFFFF)
	return nil
}

func (inst *Interpreter) executeMOVS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), c.FprBits(d.Fs()))
	return nil
}

func (inst *Interpreter) executeNEGS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), c.FprBits(d.Fs())^0x80000000)
	return nil
}

// toWord converts with saturation; NaN and out of range values produce the
// largest positive integer like the hardware does.
func toWord(v float64) uint32 {
	if math.IsNaN(v) || v >= math.MaxInt32+1.0 {
		return 0x7FFFFFFF
	}
	if v < math.MinInt32 {
		return 0x80000000
	}
	return uint32(int32(v))
}

func (inst *Interpreter) executeROUNDWS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), toWord(math.RoundToEven(float64(c.Fpr(d.Fs())))))
	return nil
}

func (inst *Interpreter) executeTRUNCWS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), toWord(math.Trunc(float64(c.Fpr(d.Fs())))))
	return nil
}

func (inst *Interpreter) executeCEILWS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), toWord(math.Ceil(float64(c.Fpr(d.Fs())))))
	return nil
}

func (inst *Interpreter) executeFLOORWS(c *CpuContext, d Decoded) error {
	c.SetFprBits(d.Fd(), toWord(math.Floor(float64(c.Fpr(d.Fs())))))
	return nil
}

func (inst *Interpreter) executeCVTSW(c *CpuContext, d Decoded) error {
	c.SetFpr(d.Fd(), float32(int32(c.FprBits(d.Fs()))))
	return nil
}

// cvt.w.s honours the rounding mode in the low two bits of fcr31
func (inst *Interpreter) executeCVTWS(c *CpuContext, d Decoded) error {
	v := float64(c.Fpr(d.Fs()))
	switch c.fcr31 & 0x3 {
	case 0:
		v = math.RoundToEven(v)
	case 1:
		v = math.Trunc(v)
	case 2:
		v = math.Ceil(v)
	case 3:
		v = math.Floor(v)
	}
	c.SetFprBits(d.Fd(), toWord(v))
	return nil
}

// c.cond.s: the low four bits of funct select unordered, equal and less than
// tests, the result lands in the fcr31 condition bit.
func (inst *Interpreter) executeCCONDS(c *CpuContext, d Decoded) error {
	fs, ft := c.Fpr(d.Fs()), c.Fpr(d.Ft())
	cond := d.Funct & 0xF

	unordered := fs != fs || ft != ft
	result := false
	if unordered {
		result = cond&0x1 != 0
	} else {
		if cond&0x2 != 0 && fs == ft {
			result = true
		}
		if cond&0x4 != 0 && fs < ft {
			result = true
		}
	}
	c.setFpuCondition(result)
	return nil
}
