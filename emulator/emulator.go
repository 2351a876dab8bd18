package emulator

import (
	"sort"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

type instructionHandler func(inst *Interpreter, c *CpuContext, d Decoded) error

// dispatchTable maps every opcode class to its semantics. A nil entry is a
// class the decoder knows about but the interpreter does not implement.
var dispatchTable [opCount]instructionHandler

// controlSignal carries syscall/break out of a handler; Execute turns it back
// into a Signal so it never escapes as an error.
type controlSignal struct {
	signal Signal
}

func (s *controlSignal) Error() string {
	return "control signal"
}

func NewInterpreter(memory *AddressSpace) *Interpreter {
	return &Interpreter{
		memory:      memory,
		breakpoints: map[uint32]*Breakpoint{},
	}
}

func (inst *Interpreter) Memory() *AddressSpace {
	return inst.memory
}

// Handles reports whether op has semantics.
func Handles(op Op) bool {
	return op < opCount && dispatchTable[op] != nil
}

// Step fetches, decodes and executes the instruction at c.PC.
func (inst *Interpreter) Step(c *CpuContext) (Signal, error) {
	pc := c.PC
	if pc == 0 {
		return Signal{}, ZeroPCError{}
	}
	if pc&0x3 != 0 {
		return Signal{}, &AddressFault{Addr: pc, Width: 4, Kind: AccessFetch, PC: pc, Unaligned: true}
	}

	word, err := inst.memory.Read32(pc)
	if err != nil {
		f := err.(*AddressFault)
		f.Kind = AccessFetch
		f.PC = pc
		return Signal{}, f
	}

	d := Decode(word)
	if inst.Trace != nil {
		inst.Trace(c, d)
	}
	return inst.Execute(c, d)
}

// Execute runs an already decoded instruction located at c.PC.
func (inst *Interpreter) Execute(c *CpuContext, d Decoded) (Signal, error) {
	pc := c.PC
	handler := dispatchTable[d.Op]
	if handler == nil {
		return Signal{}, newUnimplementedInstruction(d, pc)
	}

	inst.executed++
	c.IC++
	sig := Signal{}
	if err := handler(inst, c, d); err != nil {
		cs, ok := err.(*controlSignal)
		if !ok {
			return Signal{}, withPC(err, pc)
		}
		sig = cs.signal
		sig.PC = pc
	}

	// branches move the pipeline themselves, a break leaves PC on the break
	if !d.Op.HasDelaySlot() && sig.Kind != SignalBreak {
		c.PC = c.NPC
		c.NPC += 4
	}
	return sig, nil
}

// Run steps up to limit instructions, stopping early on a signal, a fault or
// an armed breakpoint. A breakpoint at c.PC stops the run before anything
// executes.
func (inst *Interpreter) Run(c *CpuContext, limit int) (int, Signal, error) {
	return inst.run(c, limit, false)
}

// Resume is Run for a context stopped on a breakpoint: the instruction at
// c.PC executes without checking breakpoints.
func (inst *Interpreter) Resume(c *CpuContext, limit int) (int, Signal, error) {
	return inst.run(c, limit, true)
}

func (inst *Interpreter) run(c *CpuContext, limit int, resume bool) (int, Signal, error) {
	executed := 0
	for executed < limit {
		if (executed > 0 || !resume) && len(inst.breakpoints) > 0 {
			if bp, ok := inst.breakpoints[c.PC]; ok && inst.breakpointTriggered(c, bp) {
				bp.Hits++
				return executed, Signal{Kind: SignalBreakpoint, Code: uint32(bp.ID), PC: c.PC}, nil
			}
		}

		sig, err := inst.Step(c)
		executed++
		if err != nil {
			return executed, Signal{}, err
		}
		if sig.Kind != SignalNone {
			return executed, sig, nil
		}
	}
	return executed, Signal{}, nil
}

func (inst *Interpreter) breakpointTriggered(c *CpuContext, bp *Breakpoint) bool {
	if bp.Condition == "" {
		return true
	}
	res, err := EvaluateExpression(c, inst.memory, bp.Condition)
	if err != nil {
		util.LogF("breakpoint %d: error evaluating condition %q: %v", bp.ID, bp.Condition, err)
		return true
	}
	return res.Truthy
}

func (inst *Interpreter) TotalExecuted() uint64 {
	return inst.executed
}

func (inst *Interpreter) AddBreakpoint(bp Breakpoint) {
	b := bp
	inst.breakpoints[bp.Addr] = &b
}

func (inst *Interpreter) RemoveBreakpoint(addr uint32) {
	delete(inst.breakpoints, addr)
}

func (inst *Interpreter) RemoveAllBreakpoints() {
	inst.breakpoints = map[uint32]*Breakpoint{}
}

func (inst *Interpreter) Breakpoints() []Breakpoint {
	out := make([]Breakpoint, 0, len(inst.breakpoints))
	for _, bp := range inst.breakpoints {
		out = append(out, *bp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

func init() {
	dispatchTable = [opCount]instructionHandler{
		OpLUI:    (*Interpreter).executeLUI,
		OpADDI:   (*Interpreter).executeADDIU,
		OpADDIU:  (*Interpreter).executeADDIU,
		OpSLTI:   (*Interpreter).executeSLTI,
		OpSLTIU:  (*Interpreter).executeSLTIU,
		OpANDI:   (*Interpreter).executeANDI,
		OpORI:    (*Interpreter).executeORI,
		OpXORI:   (*Interpreter).executeXORI,
		OpADD:    (*Interpreter).executeADDU,
		OpADDU:   (*Interpreter).executeADDU,
		OpSUB:    (*Interpreter).executeSUBU,
		OpSUBU:   (*Interpreter).executeSUBU,
		OpAND:    (*Interpreter).executeAND,
		OpOR:     (*Interpreter).executeOR,
		OpXOR:    (*Interpreter).executeXOR,
		OpNOR:    (*Interpreter).executeNOR,
		OpSLT:    (*Interpreter).executeSLT,
		OpSLTU:   (*Interpreter).executeSLTU,
		OpSLL:    (*Interpreter).executeSLL,
		OpSRL:    (*Interpreter).executeSRL,
		OpSRA:    (*Interpreter).executeSRA,
		OpROTR:   (*Interpreter).executeROTR,
		OpSLLV:   (*Interpreter).executeSLLV,
		OpSRLV:   (*Interpreter).executeSRLV,
		OpSRAV:   (*Interpreter).executeSRAV,
		OpROTRV:  (*Interpreter).executeROTRV,
		OpMOVZ:   (*Interpreter).executeMOVZ,
		OpMOVN:   (*Interpreter).executeMOVN,
		OpMAX:    (*Interpreter).executeMAX,
		OpMIN:    (*Interpreter).executeMIN,
		OpCLZ:    (*Interpreter).executeCLZ,
		OpCLO:    (*Interpreter).executeCLO,
		OpSEB:    (*Interpreter).executeSEB,
		OpSEH:    (*Interpreter).executeSEH,
		OpWSBH:   (*Interpreter).executeWSBH,
		OpWSBW:   (*Interpreter).executeWSBW,
		OpBITREV: (*Interpreter).executeBITREV,
		OpEXT:    (*Interpreter).executeEXT,
		OpINS:    (*Interpreter).executeINS,

		OpMULT:  (*Interpreter).executeMULT,
		OpMULTU: (*Interpreter).executeMULTU,
		OpMADD:  (*Interpreter).executeMADD,
		OpMADDU: (*Interpreter).executeMADDU,
		OpMSUB:  (*Interpreter).executeMSUB,
		OpMSUBU: (*Interpreter).executeMSUBU,
		OpDIV:   (*Interpreter).executeDIV,
		OpDIVU:  (*Interpreter).executeDIVU,
		OpMFHI:  (*Interpreter).executeMFHI,
		OpMFLO:  (*Interpreter).executeMFLO,
		OpMTHI:  (*Interpreter).executeMTHI,
		OpMTLO:  (*Interpreter).executeMTLO,
		OpMFIC:  (*Interpreter).executeMFIC,
		OpMTIC:  (*Interpreter).executeMTIC,

		OpLB:   (*Interpreter).executeLB,
		OpLBU:  (*Interpreter).executeLBU,
		OpLH:   (*Interpreter).executeLH,
		OpLHU:  (*Interpreter).executeLHU,
		OpLW:   (*Interpreter).executeLW,
		OpLWL:  (*Interpreter).executeLWL,
		OpLWR:  (*Interpreter).executeLWR,
		OpSB:   (*Interpreter).executeSB,
		OpSH:   (*Interpreter).executeSH,
		OpSW:   (*Interpreter).executeSW,
		OpSWL:  (*Interpreter).executeSWL,
		OpSWR:  (*Interpreter).executeSWR,
		OpLWC1: (*Interpreter).executeLWC1,
		OpSWC1: (*Interpreter).executeSWC1,

		OpBEQ:     (*Interpreter).executeBEQ,
		OpBNE:     (*Interpreter).executeBNE,
		OpBLEZ:    (*Interpreter).executeBLEZ,
		OpBGTZ:    (*Interpreter).executeBGTZ,
		OpBLTZ:    (*Interpreter).executeBLTZ,
		OpBGEZ:    (*Interpreter).executeBGEZ,
		OpBLTZAL:  (*Interpreter).executeBLTZAL,
		OpBGEZAL:  (*Interpreter).executeBGEZAL,
		OpBEQL:    (*Interpreter).executeBEQ,
		OpBNEL:    (*Interpreter).executeBNE,
		OpBLEZL:   (*Interpreter).executeBLEZ,
		OpBGTZL:   (*Interpreter).executeBGTZ,
		OpBLTZL:   (*Interpreter).executeBLTZ,
		OpBGEZL:   (*Interpreter).executeBGEZ,
		OpBLTZALL: (*Interpreter).executeBLTZAL,
		OpBGEZALL: (*Interpreter).executeBGEZAL,
		OpJ:       (*Interpreter).executeJ,
		OpJAL:     (*Interpreter).executeJAL,
		OpJR:      (*Interpreter).executeJR,
		OpJALR:    (*Interpreter).executeJALR,

		OpSYSCALL: (*Interpreter).executeSYSCALL,
		OpBREAK:   (*Interpreter).executeBREAK,
		OpSYNC:    (*Interpreter).executeNOP,
		OpCACHE:   (*Interpreter).executeNOP,

		OpMFC1:    (*Interpreter).executeMFC1,
		OpMTC1:    (*Interpreter).executeMTC1,
		OpCFC1:    (*Interpreter).executeCFC1,
		OpCTC1:    (*Interpreter).executeCTC1,
		OpBC1F:    (*Interpreter).executeBC1F,
		OpBC1T:    (*Interpreter).executeBC1T,
		OpBC1FL:   (*Interpreter).executeBC1F,
		OpBC1TL:   (*Interpreter).executeBC1T,
		OpADDS:    (*Interpreter).executeADDS,
		OpSUBS:    (*Interpreter).executeSUBS,
		OpMULS:    (*Interpreter).executeMULS,
		OpDIVS:    (*Interpreter).executeDIVS,
		OpSQRTS:   (*Interpreter).executeSQRTS,
		OpABSS:    (*Interpreter).executeABSS,
		OpMOVS:    (*Interpreter).executeMOVS,
		OpNEGS:    (*Interpreter).executeNEGS,
		OpROUNDWS: (*Interpreter).executeROUNDWS,
		OpTRUNCWS: (*Interpreter).executeTRUNCWS,
		OpCEILWS:  (*Interpreter).executeCEILWS,
		OpFLOORWS: (*Interpreter).executeFLOORWS,
		OpCVTSW:   (*Interpreter).executeCVTSW,
		OpCVTWS:   (*Interpreter).executeCVTWS,
		OpCCONDS:  (*Interpreter).executeCCONDS,
	}
}
