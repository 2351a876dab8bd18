package emulator

// CpuContext is the register state of one thread. PC and NPC form the two
// deep pipeline that makes delay slots work: PC is the instruction executing
// now and NPC the one that runs after it.
type CpuContext struct {
	gpr   [32]uint32
	fpr   [32]uint32 // raw bits, viewed as float32 through Fpr/SetFpr
	vfpr  [128]uint32
	fcr0  uint32
	fcr31 uint32

	PC  uint32
	NPC uint32
	HI  uint32
	LO  uint32
	IC  uint32 // counts executed instructions, mfic/mtic
}

type MemoryConfig struct {
	ScratchpadBase uint32 `json:"scratchpadBase"`
	ScratchpadSize uint32 `json:"scratchpadSize"`
	MainBase       uint32 `json:"mainBase"`
	MainSize       uint32 `json:"mainSize"`
	TrampolineBase uint32 `json:"trampolineBase"`
	UserBase       uint32 `json:"userBase"` // first address loaders may use
}

// Segment is a named, contiguous sub-range of the address space.
type Segment struct {
	Name string
	Base uint32
	Size uint32
	data []byte
}

// AddressSpace is the flat, bounds-checked emulated memory.
type AddressSpace struct {
	segments []*Segment
	last     *Segment
	config   MemoryConfig
}

// Trampolines holds the addresses of the reserved break words.
type Trampolines struct {
	ThreadWait      uint32
	ThreadExitKill  uint32
	InterruptReturn uint32
}

type Breakpoint struct {
	ID        int    `json:"id"`
	Addr      uint32 `json:"addr"`
	Condition string `json:"condition,omitempty"` // lua expression, empty means always
	Hits      uint32 `json:"hits"`
}

type SignalKind int

const (
	SignalNone SignalKind = iota
	SignalSyscall
	SignalBreak
	SignalBreakpoint
)

// Signal is a control transfer out of interpreted code. It is not an error:
// syscalls hand control to the native call bridge and breaks carry trampoline
// codes back to the scheduler.
type Signal struct {
	Kind SignalKind
	Code uint32
	PC   uint32
}

// Interpreter executes decoded instructions against a CpuContext. It holds no
// per-thread state, so one interpreter serves every thread of a session.
type Interpreter struct {
	memory      *AddressSpace
	breakpoints map[uint32]*Breakpoint
	Trace       func(ctx *CpuContext, d Decoded)

	executed uint64
}
