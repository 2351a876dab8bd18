package kernel

import (
	"container/heap"
	"context"
	"io"
	"sort"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

const (
	MinPriority    = 1
	MaxPriority    = 127
	priorityLevels = MaxPriority + 1
)

type Config struct {
	SliceLength      int    `json:"sliceLength"` // instructions per slice
	DefaultStackSize uint32 `json:"defaultStackSize"`
	StackBase        uint32 `json:"stackBase"` // partition thread stacks are carved from
	StackSize        uint32 `json:"stackSize"`
}

func DefaultConfig() Config {
	return Config{
		SliceLength:      10000,
		DefaultStackSize: 0x4000,
		StackBase:        0x09800000,
		StackSize:        0x00800000,
	}
}

// ThreadEvent reports a thread's creation or a status change.
type ThreadEvent struct {
	Thread  *Thread
	Old     Status
	New     Status
	Created bool
}

// SliceResult describes one scheduling pass.
type SliceResult struct {
	Thread   *Thread // nil when idle
	Executed int
	// Idle passes ran nothing. NextDeadline is the earliest timed wakeup.
	Idle         bool
	NextDeadline uint64
	// Breakpoint is set when the slice stopped at an armed breakpoint.
	Breakpoint *emulator.Signal
}

// ThreadManager owns every kernel object and drives the interpreter one
// slice at a time. It is single threaded: callers serialize Step and every
// other method.
type ThreadManager struct {
	interp *emulator.Interpreter
	mem    *emulator.AddressSpace
	clock  Clock
	config Config
	tramp  emulator.Trampolines
	bridge *NativeCallBridge
	stacks *MemoryPartition

	threads    map[int]*Thread
	semaphores map[int]*Semaphore
	callbacks  map[int]*Callback
	ready      [priorityLevels][]*Thread
	timers     timerHeap
	// threads with notified callbacks to run at the next pass
	callbackQueue []*Thread

	current    *Thread
	reschedule bool
	nextUID    int
	timerSeq   uint64

	// Output receives IoFileMgrForUser writes to stdout and stderr.
	Output    io.Writer
	observers []func(ThreadEvent)
}

// NewThreadManager installs the trampolines in the interpreter's memory and
// registers the kernel modules with a fresh bridge.
func NewThreadManager(interp *emulator.Interpreter, clock Clock, config Config) (*ThreadManager, error) {
	defaults := DefaultConfig()
	if config.SliceLength <= 0 {
		config.SliceLength = defaults.SliceLength
	}
	if config.DefaultStackSize == 0 {
		config.DefaultStackSize = defaults.DefaultStackSize
	}
	if config.StackSize == 0 {
		config.StackBase, config.StackSize = defaults.StackBase, defaults.StackSize
	}

	mem := interp.Memory()
	tramp, err := mem.InstallTrampolines()
	if err != nil {
		return nil, err
	}
	if !mem.Valid(config.StackBase, config.StackSize) {
		return nil, &emulator.AddressFault{Addr: config.StackBase, Width: int(config.StackSize), Kind: emulator.AccessWrite}
	}

	tm := &ThreadManager{
		interp:     interp,
		mem:        mem,
		clock:      clock,
		config:     config,
		tramp:      tramp,
		stacks:     NewMemoryPartition(config.StackBase, config.StackSize),
		threads:    map[int]*Thread{},
		semaphores: map[int]*Semaphore{},
		callbacks:  map[int]*Callback{},
		nextUID:    1,
		Output:     io.Discard,
	}
	tm.bridge = newNativeCallBridge(tm)
	registerThreadManForUser(tm.bridge)
	registerSysMemUserForUser(tm.bridge)
	registerIoFileMgrForUser(tm.bridge)
	return tm, nil
}

func (tm *ThreadManager) Bridge() *NativeCallBridge          { return tm.bridge }
func (tm *ThreadManager) Clock() Clock                       { return tm.clock }
func (tm *ThreadManager) Memory() *emulator.AddressSpace     { return tm.mem }
func (tm *ThreadManager) Interpreter() *emulator.Interpreter { return tm.interp }
func (tm *ThreadManager) Trampolines() emulator.Trampolines  { return tm.tramp }
func (tm *ThreadManager) Stacks() *MemoryPartition           { return tm.stacks }
func (tm *ThreadManager) Config() Config                     { return tm.config }

// Current is the thread whose slice is executing, nil between slices.
func (tm *ThreadManager) Current() *Thread {
	return tm.current
}

// Subscribe registers fn for every ThreadEvent.
func (tm *ThreadManager) Subscribe(fn func(ThreadEvent)) {
	tm.observers = append(tm.observers, fn)
}

func (tm *ThreadManager) Thread(id int) (*Thread, bool) {
	t, ok := tm.threads[id]
	return t, ok
}

// Threads lists every thread that was not deleted, in id order.
func (tm *ThreadManager) Threads() []*Thread {
	out := make([]*Thread, 0, len(tm.threads))
	for _, t := range tm.threads {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (tm *ThreadManager) AliveThreadCount() int {
	n := 0
	for _, t := range tm.threads {
		if t.Alive() {
			n++
		}
	}
	return n
}

func (tm *ThreadManager) allocUID() int {
	id := tm.nextUID
	tm.nextUID++
	return id
}

func (tm *ThreadManager) setStatus(t *Thread, s Status) {
	old := t.Status
	if old == s {
		return
	}
	t.Status = s
	util.LogF("%s: %s -> %s", t, old, s)
	for _, fn := range tm.observers {
		fn(ThreadEvent{Thread: t, Old: old, New: s})
	}
}

// CreateThread allocates a stack and a dormant thread. It runs once started.
func (tm *ThreadManager) CreateThread(name string, entry uint32, priority int, stackSize uint32, attr uint32) (*Thread, error) {
	if priority < MinPriority || priority > MaxPriority {
		return nil, ErrIllegalPriority
	}
	if entry == 0 || entry&3 != 0 {
		return nil, ErrIllegalEntry
	}
	if stackSize == 0 {
		stackSize = tm.config.DefaultStackSize
	}
	if stackSize < minStackSize {
		return nil, ErrIllegalStackSize
	}

	block, err := tm.stacks.Alloc(name, stackSize)
	if err != nil {
		return nil, err
	}
	t := &Thread{
		ID:           tm.allocUID(),
		Name:         name,
		Priority:     priority,
		InitPriority: priority,
		Attributes:   attr | AttrUser,
		Status:       StatusStopped,
		EntryPoint:   entry,
		Stack:        block,
	}
	if attr&AttrNoFill == 0 {
		if err := tm.mem.Fill(block.Low, block.Size(), 0xFF); err != nil {
			return nil, err
		}
	}
	if err := tm.mem.Write32(block.Low, uint32(t.ID)); err != nil {
		return nil, err
	}
	if err := tm.initContext(t, 0); err != nil {
		return nil, err
	}

	tm.threads[t.ID] = t
	util.LogF("created %s entry=0x%08X priority=%d stack=[0x%08X, 0x%08X)", t, entry, priority, block.Low, block.High)
	for _, fn := range tm.observers {
		fn(ThreadEvent{Thread: t, Old: StatusStopped, New: StatusStopped, Created: true})
	}
	return t, nil
}

// initContext gives t a fresh register file at its entry point. The kernel
// block sits at the top of the stack and $sp starts below the frame reserve.
func (tm *ThreadManager) initContext(t *Thread, gp uint32) error {
	k0 := t.Stack.High - k0BlockSize
	if err := writeStruct(tm.mem, k0, k0Block{ThreadID: int32(t.ID), StackLow: t.Stack.Low, F1: -1, F2: -1}); err != nil {
		return err
	}

	t.Context = *emulator.NewCpuContext()
	c := &t.Context
	c.Jump(t.EntryPoint)
	c.SetGpr(emulator.RegSP, t.Stack.High-stackFrameReserve)
	c.SetGpr(emulator.RegK0, k0)
	c.SetGpr(emulator.RegGP, gp)
	c.SetGpr(emulator.RegRA, tm.tramp.ThreadExitKill)
	return nil
}

// StartThread makes a dormant thread ready. A non-nil argument block is
// copied onto the new stack and passed as ($a0 = len, $a1 = pointer).
func (tm *ThreadManager) StartThread(id int, argLen uint32, argPtr uint32) error {
	t, ok := tm.threads[id]
	if !ok {
		return ErrNotFoundThread
	}
	if t.Status != StatusStopped {
		return ErrNotDormant
	}

	var gp uint32
	if tm.current != nil {
		gp = tm.current.Context.Gpr(emulator.RegGP)
	}
	if err := tm.initContext(t, gp); err != nil {
		return err
	}

	c := &t.Context
	if argPtr != 0 {
		data, err := tm.mem.ReadBytes(argPtr, argLen)
		if err != nil {
			return err
		}
		sp := (c.Gpr(emulator.RegSP) - argLen) &^ 0xF
		if err := tm.mem.WriteBytes(sp, data); err != nil {
			return err
		}
		c.SetGpr(emulator.RegSP, sp)
		c.SetGpr(emulator.RegA0, argLen)
		c.SetGpr(emulator.RegA1, sp)
	}

	t.Started = true
	t.ExitStatus = 0
	t.Wait = WaitReason{}
	tm.makeReady(t)
	if tm.current != nil && t.Priority < tm.current.Priority {
		tm.reschedule = true
	}
	return nil
}

// stopThread moves t to STOPPED from any live state, dropping whatever it
// was waiting on, and wakes threads waiting for its end.
func (tm *ThreadManager) stopThread(t *Thread, exitStatus int32) {
	switch t.Status {
	case StatusReady:
		tm.removeReady(t)
	case StatusWaiting:
		if t.resumable != nil && t.resumable.Cancel != nil {
			t.resumable.Cancel()
		}
	}
	for _, frame := range t.callbackFrames {
		if frame.resumable != nil && frame.resumable.Cancel != nil {
			frame.resumable.Cancel()
		}
	}
	t.callbackFrames = nil
	t.resumable = nil
	t.Wait = WaitReason{}
	t.waitSeq++
	t.ExitStatus = exitStatus
	tm.setStatus(t, StatusStopped)

	tm.retryWaiting(func(w *Thread) bool {
		return w.Wait.Kind == WaitThreadEnd && w.Wait.Object == t.ID
	})
}

// ExitThread stops the calling thread.
func (tm *ThreadManager) ExitThread(t *Thread, exitStatus int32) {
	tm.stopThread(t, exitStatus)
}

// TerminateThread stops another thread.
func (tm *ThreadManager) TerminateThread(id int) error {
	t, ok := tm.threads[id]
	if !ok {
		return ErrNotFoundThread
	}
	if t == tm.current {
		return ErrIllegalThread
	}
	if t.Status == StatusStopped {
		return ErrDormant
	}
	tm.stopThread(t, int32(ErrThreadTerminated))
	return nil
}

// DeleteThread releases a stopped thread. The id is gone afterwards.
func (tm *ThreadManager) DeleteThread(id int) error {
	t, ok := tm.threads[id]
	if !ok {
		return ErrNotFoundThread
	}
	if t.Status != StatusStopped {
		return ErrNotDormant
	}

	for _, cb := range t.callbacks {
		delete(tm.callbacks, cb.ID)
	}
	t.callbacks = nil
	if err := tm.stacks.Free(t.Stack); err != nil {
		return err
	}
	delete(tm.threads, id)
	tm.setStatus(t, StatusDeleted)

	tm.retryWaiting(func(w *Thread) bool {
		return w.Wait.Kind == WaitThreadEnd && w.Wait.Object == id
	})
	return nil
}

func (tm *ThreadManager) ChangeThreadPriority(id int, priority int) error {
	t, err := tm.threadOrCurrent(id)
	if err != nil {
		return err
	}
	if priority < MinPriority || priority > MaxPriority {
		return ErrIllegalPriority
	}
	if t.Status == StatusReady {
		tm.removeReady(t)
		t.Priority = priority
		tm.makeReady(t)
		return nil
	}
	t.Priority = priority
	return nil
}

// RotateReadyQueue moves the head of the priority class to its back. When the
// caller belongs to that class it yields instead.
func (tm *ThreadManager) RotateReadyQueue(priority int) error {
	if priority == 0 && tm.current != nil {
		priority = tm.current.Priority
	}
	if priority < MinPriority || priority > MaxPriority {
		return ErrIllegalPriority
	}
	if tm.current != nil && tm.current.Priority == priority {
		tm.reschedule = true
		return nil
	}
	q := tm.ready[priority]
	if len(q) > 1 {
		tm.ready[priority] = append(q[1:], q[0])
	}
	return nil
}

// threadOrCurrent resolves id 0 to the calling thread.
func (tm *ThreadManager) threadOrCurrent(id int) (*Thread, error) {
	if id == 0 || id == -1 {
		if tm.current == nil {
			return nil, ErrIllegalThread
		}
		return tm.current, nil
	}
	t, ok := tm.threads[id]
	if !ok {
		return nil, ErrNotFoundThread
	}
	return t, nil
}

func (tm *ThreadManager) makeReady(t *Thread) {
	tm.setStatus(t, StatusReady)
	tm.ready[t.Priority] = append(tm.ready[t.Priority], t)
}

func (tm *ThreadManager) makeReadyFront(t *Thread) {
	tm.setStatus(t, StatusReady)
	tm.ready[t.Priority] = append([]*Thread{t}, tm.ready[t.Priority]...)
}

func (tm *ThreadManager) removeReady(t *Thread) {
	q := tm.ready[t.Priority]
	for i, r := range q {
		if r == t {
			tm.ready[t.Priority] = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}

func (tm *ThreadManager) nextReady() *Thread {
	for p := MinPriority; p < priorityLevels; p++ {
		if q := tm.ready[p]; len(q) > 0 {
			tm.ready[p] = q[1:]
			return q[0]
		}
	}
	return nil
}

// suspend parks t on r. The thread resumes at the ThreadWait trampoline,
// which returns to the instruction after the call once r completes.
func (tm *ThreadManager) suspend(t *Thread, r *Resumable) {
	r.returnPC, r.returnNPC = t.Context.PC, t.Context.NPC
	t.Context.Jump(tm.tramp.ThreadWait)
	tm.park(t, r)
}

func (tm *ThreadManager) park(t *Thread, r *Resumable) {
	if t.Status == StatusReady {
		tm.removeReady(t)
	}
	t.resumable = r
	t.Wait = r.Reason
	t.waitSeq++
	tm.setStatus(t, StatusWaiting)

	if r.Reason.Deadline != 0 {
		tm.timerSeq++
		heap.Push(&tm.timers, timerEntry{deadline: r.Reason.Deadline, seq: tm.timerSeq, thread: t, waitSeq: t.waitSeq})
	}
	if r.Callbacks && t.hasNotifiedCallbacks() {
		tm.queueCallbacks(t)
	}
}

// retry polls a parked thread again and readies it if its call completed.
func (tm *ThreadManager) retry(t *Thread) {
	if t.Status != StatusWaiting || t.resumable == nil {
		return
	}
	r := t.resumable
	result, done := r.Poll()
	if !done {
		return
	}
	t.resumable = nil
	t.Wait = WaitReason{}
	t.waitSeq++
	r.write(t, result)
	t.wakePC, t.wakeNPC = r.returnPC, r.returnNPC
	tm.makeReady(t)
}

// retryWaiting polls every parked thread matching pred, oldest id first.
func (tm *ThreadManager) retryWaiting(pred func(*Thread) bool) {
	for _, t := range tm.Threads() {
		if t.Status == StatusWaiting && pred(t) {
			tm.retry(t)
		}
	}
}

// WakeContinuations re-polls threads parked on the native continuation
// token. Collaborators such as the graphics queue call it when their state
// changes.
func (tm *ThreadManager) WakeContinuations(token string) {
	tm.retryWaiting(func(t *Thread) bool {
		return t.Wait.Kind == WaitNativeContinuation && t.Wait.Token == token
	})
}

func (tm *ThreadManager) processTimers() {
	now := tm.clock.Now()
	for len(tm.timers) > 0 && tm.timers[0].deadline <= now {
		e := heap.Pop(&tm.timers).(timerEntry)
		if e.thread.waitSeq == e.waitSeq {
			tm.retry(e.thread)
		}
	}
}

// nextDeadline drops stale timers and returns the earliest live one.
func (tm *ThreadManager) nextDeadline() (uint64, bool) {
	for len(tm.timers) > 0 {
		e := tm.timers[0]
		if e.thread.waitSeq == e.waitSeq && e.thread.Status == StatusWaiting {
			return e.deadline, true
		}
		heap.Pop(&tm.timers)
	}
	return 0, false
}

// Step is one scheduling pass: due timers, pending callbacks, then one slice
// of the highest priority ready thread.
func (tm *ThreadManager) Step() (SliceResult, error) {
	return tm.step(tm.config.SliceLength)
}

// StepInstructions is a scheduling pass that runs at most n instructions. A
// thread stopped short of its slice keeps its place at the head of its queue,
// so repeated calls single step the same thread.
func (tm *ThreadManager) StepInstructions(n int) (SliceResult, error) {
	if n <= 0 || n > tm.config.SliceLength {
		n = tm.config.SliceLength
	}
	return tm.step(n)
}

func (tm *ThreadManager) step(limit int) (SliceResult, error) {
	tm.processTimers()
	tm.processCallbacks()

	t := tm.nextReady()
	if t == nil {
		res := SliceResult{Idle: true}
		if tm.AliveThreadCount() == 0 {
			return res, nil
		}
		deadline, ok := tm.nextDeadline()
		if !ok {
			return res, ErrDeadlock
		}
		res.NextDeadline = deadline
		return res, nil
	}
	return tm.runSlice(t, limit)
}

func (tm *ThreadManager) runSlice(t *Thread, limit int) (SliceResult, error) {
	res := SliceResult{Thread: t}
	tm.current = t
	tm.reschedule = false
	tm.setStatus(t, StatusRunning)
	defer func() { tm.current = nil }()

	for res.Executed < limit && t.Status == StatusRunning && !tm.reschedule {
		run := tm.interp.Run
		if t.atBreakpoint && t.Context.PC == t.breakpointPC {
			run = tm.interp.Resume
		}
		t.atBreakpoint = false
		n, sig, err := run(&t.Context, limit-res.Executed)
		res.Executed += n
		t.RunTicks += uint64(n)
		if err != nil {
			return res, err
		}

		switch sig.Kind {
		case emulator.SignalSyscall:
			err = tm.bridge.Dispatch(t, sig)
		case emulator.SignalBreak:
			err = tm.handleBreak(t, sig)
		case emulator.SignalBreakpoint:
			res.Breakpoint = &sig
			t.atBreakpoint, t.breakpointPC = true, sig.PC
			tm.makeReadyFront(t)
			return res, nil
		}
		if err != nil {
			return res, err
		}
	}

	if t.Status == StatusRunning {
		if limit < tm.config.SliceLength && !tm.reschedule {
			tm.makeReadyFront(t)
		} else {
			tm.makeReady(t)
		}
	}
	return res, nil
}

func (tm *ThreadManager) handleBreak(t *Thread, sig emulator.Signal) error {
	switch {
	case sig.Code == emulator.BreakThreadWait && sig.PC == tm.tramp.ThreadWait:
		t.Context.PC, t.Context.NPC = t.wakePC, t.wakeNPC
		return nil
	case sig.Code == emulator.BreakThreadExitKill && sig.PC == tm.tramp.ThreadExitKill:
		tm.ExitThread(t, int32(t.Context.Gpr(emulator.RegV0)))
		return nil
	case sig.Code == emulator.BreakInterruptReturn && sig.PC == tm.tramp.InterruptReturn:
		return tm.returnFromCallback(t)
	}
	return &UnexpectedBreak{Code: sig.Code, PC: sig.PC}
}

// WaitIdle blocks until the clock reaches deadline, as reported by an idle
// Step.
func (tm *ThreadManager) WaitIdle(ctx context.Context, deadline uint64) error {
	return tm.clock.WaitUntil(ctx, deadline)
}

type timerEntry struct {
	deadline uint64
	seq      uint64
	thread   *Thread
	waitSeq  uint64
}

// timerHeap orders wakeups by deadline, then by the order they were armed.
type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x interface{}) { *h = append(*h, x.(timerEntry)) }
func (h *timerHeap) Pop() interface{} {
	old := *h
	e := old[len(old)-1]
	*h = old[:len(old)-1]
	return e
}
