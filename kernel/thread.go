package kernel

import (
	"fmt"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
)

type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusWaiting
	StatusStopped
	StatusDeleted
)

var statusNames = [...]string{"READY", "RUNNING", "WAITING", "STOPPED", "DELETED"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// pspStatus is the PSP_THREAD_* bit of SceKernelThreadInfo.status.
func (s Status) pspStatus() uint32 {
	switch s {
	case StatusRunning:
		return 0x01
	case StatusReady:
		return 0x02
	case StatusWaiting:
		return 0x04
	case StatusStopped:
		return 0x10
	}
	return 0x20
}

// Thread attribute bits.
const (
	AttrVFPU   = 0x00004000
	AttrUser   = 0x80000000
	AttrNoFill = 0x00100000
)

// Thread is one emulated execution context. Everything the scheduler needs to
// know about it is a named field.
type Thread struct {
	ID           int
	Name         string
	Priority     int
	InitPriority int
	Attributes   uint32
	Status       Status
	Wait         WaitReason
	ExitStatus   int32
	EntryPoint   uint32
	Stack        Block
	WakeupCount  int
	// Started is false until the first StartThread.
	Started  bool
	RunTicks uint64 // instructions executed on this thread

	Context emulator.CpuContext

	// parked call, nil unless WAITING on a native continuation
	resumable *Resumable
	// where the ThreadWait trampoline returns to once the call completes
	wakePC, wakeNPC uint32
	// contexts saved while callbacks run on this thread
	callbackFrames []callbackFrame
	callbacks      []*Callback
	// timer heap entries older than this are stale
	waitSeq uint64
	// set when the last slice stopped on the breakpoint at breakpointPC
	atBreakpoint bool
	breakpointPC uint32
}

func (t *Thread) String() string {
	return fmt.Sprintf("thread %d (%s)", t.ID, t.Name)
}

// Alive reports whether the thread counts toward AliveThreadCount.
func (t *Thread) Alive() bool {
	return t.Status == StatusReady || t.Status == StatusRunning || t.Status == StatusWaiting
}

// k0Block is the kernel block stored at the top of a thread stack and
// addressed through $k0.
type k0Block struct {
	ThreadID int32
	StackLow uint32
	F1, F2   int32
}

const (
	k0BlockSize       = 16
	stackFrameReserve = 0x200
	minStackSize      = 0x200
)

// ThreadInfo is the SceKernelThreadInfo layout written by ReferThreadStatus.
type ThreadInfo struct {
	Size              uint32
	Name              [32]byte
	Attributes        uint32
	Status            uint32
	EntryPoint        uint32
	Stack             uint32
	StackSize         uint32
	GP                uint32
	InitPriority      uint32
	CurrentPriority   uint32
	WaitType          uint32
	WaitID            uint32
	WakeupCount       uint32
	ExitStatus        uint32
	RunClocks         uint64
	InterruptPreempts uint32
	ThreadPreempts    uint32
	ReleaseCount      uint32
}

const threadInfoSize = 0x68

func (t *Thread) info() ThreadInfo {
	info := ThreadInfo{
		Size:            threadInfoSize,
		Attributes:      t.Attributes,
		Status:          t.Status.pspStatus(),
		EntryPoint:      t.EntryPoint,
		Stack:           t.Stack.Low,
		StackSize:       t.Stack.Size(),
		GP:              t.Context.Gpr(emulator.RegGP),
		InitPriority:    uint32(t.InitPriority),
		CurrentPriority: uint32(t.Priority),
		WaitType:        t.Wait.pspWaitType(),
		WaitID:          uint32(t.Wait.Object),
		WakeupCount:     uint32(t.WakeupCount),
		ExitStatus:      uint32(t.ExitStatus),
		RunClocks:       t.RunTicks,
	}
	copy(info.Name[:31], t.Name)
	return info
}
