package kernel

import (
	"errors"
	"fmt"
)

// KernelError is a PSP kernel status code. Native functions return it and the
// bridge places it in $v0; it never reaches the scheduler.
type KernelError int32

func (e KernelError) Error() string {
	if name, ok := kernelErrorNames[e]; ok {
		return fmt.Sprintf("%s (0x%08X)", name, uint32(e))
	}
	return fmt.Sprintf("kernel error 0x%08X", uint32(e))
}

// Code is the value the emulated program sees.
func (e KernelError) Code() uint32 {
	return uint32(e)
}

const (
	ErrNoMemory          KernelError = -0x7FFDFE70 // 0x80020190
	ErrIllegalAttr       KernelError = -0x7FFDFE6F // 0x80020191
	ErrIllegalEntry      KernelError = -0x7FFDFE6E // 0x80020192
	ErrIllegalPriority   KernelError = -0x7FFDFE6D // 0x80020193
	ErrIllegalStackSize  KernelError = -0x7FFDFE6C // 0x80020194
	ErrIllegalThread     KernelError = -0x7FFDFE69 // 0x80020197
	ErrNotFoundThread    KernelError = -0x7FFDFE68 // 0x80020198
	ErrNotFoundSemaphore KernelError = -0x7FFDFE67 // 0x80020199
	ErrNotFoundCallback  KernelError = -0x7FFDFE5F // 0x800201A1
	ErrDormant           KernelError = -0x7FFDFE5E // 0x800201A2
	ErrNotDormant        KernelError = -0x7FFDFE5C // 0x800201A4
	ErrWaitTimeout       KernelError = -0x7FFDFE58 // 0x800201A8
	ErrWaitCancel        KernelError = -0x7FFDFE57 // 0x800201A9
	ErrThreadTerminated  KernelError = -0x7FFDFE54 // 0x800201AC
	ErrSemaZero          KernelError = -0x7FFDFE53 // 0x800201AD
	ErrSemaOverflow      KernelError = -0x7FFDFE52 // 0x800201AE
	ErrWaitDelete        KernelError = -0x7FFDFE4B // 0x800201B5
	ErrIllegalCount      KernelError = -0x7FFDFE43 // 0x800201BD
	ErrUnknownThread                 = ErrIllegalThread
)

var kernelErrorNames = map[KernelError]string{
	ErrNoMemory:          "no memory",
	ErrIllegalAttr:       "illegal attribute",
	ErrIllegalEntry:      "illegal entry point",
	ErrIllegalPriority:   "illegal priority",
	ErrIllegalStackSize:  "illegal stack size",
	ErrIllegalThread:     "illegal thread",
	ErrNotFoundThread:    "thread not found",
	ErrNotFoundSemaphore: "semaphore not found",
	ErrNotFoundCallback:  "callback not found",
	ErrDormant:           "thread is dormant",
	ErrNotDormant:        "thread is not dormant",
	ErrWaitTimeout:       "wait timed out",
	ErrWaitCancel:        "wait cancelled",
	ErrThreadTerminated:  "thread terminated",
	ErrSemaZero:          "semaphore count is zero",
	ErrSemaOverflow:      "semaphore overflow",
	ErrWaitDelete:        "wait object deleted",
	ErrIllegalCount:      "illegal count",
}

// ErrInconsistentState wraps fatal scheduler misuse, such as resuming a thread
// that was deleted.
var ErrInconsistentState = errors.New("inconsistent scheduler state")

// ErrDeadlock is returned when live threads remain but none can ever become
// ready again.
var ErrDeadlock = errors.New("deadlock: every live thread waits on an event that cannot happen")

// UnknownSyscall is a syscall code no native function was registered under.
type UnknownSyscall struct {
	Code uint32
	PC   uint32
}

func (e *UnknownSyscall) Error() string {
	return fmt.Sprintf("unknown syscall 0x%X at 0x%08X", e.Code, e.PC)
}

// UnexpectedBreak is a break whose code is not one of the trampoline codes.
type UnexpectedBreak struct {
	Code uint32
	PC   uint32
}

func (e *UnexpectedBreak) Error() string {
	return fmt.Sprintf("break 0x%X at 0x%08X", e.Code, e.PC)
}

func inconsistent(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}
