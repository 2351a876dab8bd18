package kernel

import "fmt"

type WaitKind int

const (
	WaitNone WaitKind = iota
	WaitSleep
	WaitTimed
	WaitSemaphore
	WaitThreadEnd
	WaitCallbackPending
	WaitNativeContinuation
)

var waitKindNames = [...]string{"none", "sleep", "timed", "semaphore", "thread-end", "callback-pending", "native-continuation"}

func (k WaitKind) String() string {
	if int(k) < len(waitKindNames) {
		return waitKindNames[k]
	}
	return fmt.Sprintf("wait(%d)", int(k))
}

// WaitReason tags why a thread is WAITING. Object is the semaphore or target
// thread id, Token names the native continuation. A non-zero Deadline puts
// the thread on the timer heap.
type WaitReason struct {
	Kind     WaitKind `json:"kind"`
	Object   int      `json:"object,omitempty"`
	Token    string   `json:"token,omitempty"`
	Deadline uint64   `json:"deadline,omitempty"`
}

func (w WaitReason) String() string {
	s := w.Kind.String()
	switch w.Kind {
	case WaitSemaphore, WaitThreadEnd:
		s = fmt.Sprintf("%s(%d)", s, w.Object)
	case WaitNativeContinuation:
		s = fmt.Sprintf("%s(%s)", s, w.Token)
	}
	if w.Deadline != 0 {
		s += fmt.Sprintf(" until %dus", w.Deadline)
	}
	return s
}

// pspWaitType is the waitType field of SceKernelThreadInfo.
func (w WaitReason) pspWaitType() uint32 {
	switch w.Kind {
	case WaitSleep:
		return 1
	case WaitTimed:
		return 2
	case WaitSemaphore:
		return 3
	case WaitThreadEnd:
		return 9
	}
	return 0
}

// Resumable is a blocking native call parked between scheduling passes. Poll
// is run once synchronously and again on every wakeup of the thread; it
// returns the call's result once the awaited condition holds. Cancel runs if
// the thread is terminated while parked.
type Resumable struct {
	Reason WaitReason
	// Callbacks marks the CB variants: notified callbacks run while parked.
	Callbacks bool
	Poll      func() (result int64, done bool)
	Cancel    func()

	write               func(t *Thread, result int64)
	returnPC, returnNPC uint32
}

// Done is a Resumable that completes on its first poll.
func Done(result int64) *Resumable {
	return &Resumable{Poll: func() (int64, bool) { return result, true }}
}

// Failed completes on its first poll with a kernel error code.
func Failed(err KernelError) *Resumable {
	return Done(int64(err))
}
