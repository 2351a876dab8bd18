package emulator

import "fmt"

// UnimplementedInstruction is raised for any word that decodes to an opcode
// without semantics, including reserved encodings.
type UnimplementedInstruction struct {
	Word     uint32
	PC       uint32
	Mnemonic string
}

func (e *UnimplementedInstruction) Error() string {
	return fmt.Sprintf("unimplemented instruction %s (0x%08X) at 0x%08X", e.Mnemonic, e.Word, e.PC)
}

type AccessKind string

const (
	AccessRead  AccessKind = "read"
	AccessWrite AccessKind = "write"
	AccessFetch AccessKind = "fetch"
)

// AddressFault is an access outside every configured segment, or a misaligned
// word/halfword access.
type AddressFault struct {
	Addr      uint32
	Width     int
	Kind      AccessKind
	PC        uint32
	Unaligned bool
}

func (e *AddressFault) Error() string {
	if e.Unaligned {
		return fmt.Sprintf("unaligned %d byte %s at 0x%08X (pc 0x%08X)", e.Width, e.Kind, e.Addr, e.PC)
	}
	return fmt.Sprintf("segmentation fault: %d byte %s at 0x%08X (pc 0x%08X)", e.Width, e.Kind, e.Addr, e.PC)
}

type InvalidRegister struct {
	Name string
}

func (e *InvalidRegister) Error() string {
	return fmt.Sprintf("invalid register %q", e.Name)
}

// ZeroPCError is returned when a thread tries to execute address 0, almost
// always a return through an uninitialised $ra.
type ZeroPCError struct{}

func (ZeroPCError) Error() string {
	return "trying to execute PC=0"
}

func newUnimplementedInstruction(d Decoded, pc uint32) error {
	return &UnimplementedInstruction{Word: d.Word, PC: pc, Mnemonic: d.Op.String()}
}

func newAddressFault(addr uint32, width int, kind AccessKind) *AddressFault {
	return &AddressFault{Addr: addr, Width: width, Kind: kind}
}

func newUnalignedFault(addr uint32, width int, kind AccessKind) *AddressFault {
	return &AddressFault{Addr: addr, Width: width, Kind: kind, Unaligned: true}
}

// withPC stamps the faulting instruction address onto memory faults raised
// below the interpreter.
func withPC(err error, pc uint32) error {
	if f, ok := err.(*AddressFault); ok && f.PC == 0 {
		f.PC = pc
	}
	return err
}
