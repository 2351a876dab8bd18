package session

import (
	"errors"
	"fmt"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

// Fault is a fatal error raised while a thread was running. The session stops
// for good once one is reported.
type Fault struct {
	ThreadID   int
	ThreadName string
	PC         uint32
	Opcode     uint32
	Err        error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("thread %d (%s) at 0x%08X: %v", f.ThreadID, f.ThreadName, f.PC, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// newFault pins err to the thread that raised it. The faulting PC comes from
// the error when it carries one.
func newFault(t *kernel.Thread, mem *emulator.AddressSpace, err error) *Fault {
	f := &Fault{Err: err}
	if t == nil {
		return f
	}
	f.ThreadID, f.ThreadName = t.ID, t.Name
	f.PC = t.Context.PC

	var unimpl *emulator.UnimplementedInstruction
	var addr *emulator.AddressFault
	var sys *kernel.UnknownSyscall
	var brk *kernel.UnexpectedBreak
	switch {
	case errors.As(err, &unimpl):
		f.PC, f.Opcode = unimpl.PC, unimpl.Word
		return f
	case errors.As(err, &addr) && addr.PC != 0:
		f.PC = addr.PC
	case errors.As(err, &sys):
		f.PC = sys.PC
	case errors.As(err, &brk):
		f.PC = brk.PC
	}
	if word, rerr := mem.Read32(f.PC); rerr == nil {
		f.Opcode = word
	}
	return f
}

// AssembleError reports a program that did not assemble.
type AssembleError struct {
	Diagnostics []assembler.Diagnostic
}

func (e *AssembleError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "assembly failed"
	}
	d := e.Diagnostics[0]
	msg := fmt.Sprintf("line %d: %s", d.Range.Start.Line+1, d.Message)
	if len(e.Diagnostics) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Diagnostics)-1)
	}
	return msg
}
