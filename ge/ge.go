package ge

import (
	"errors"
	"fmt"
	"sync"
)

// SyncKind is the answer of ListSync and DrawSync.
type SyncKind int

const (
	SyncDone SyncKind = iota
	SyncQueued
	SyncDrawingDone
	SyncStallReached
	SyncCancelDone
)

var syncKindNames = [...]string{"done", "queued", "drawing-done", "stall-reached", "cancel-done"}

func (k SyncKind) String() string {
	if int(k) < len(syncKindNames) {
		return syncKindNames[k]
	}
	return fmt.Sprintf("SyncKind(%d)", int(k))
}

// display list commands the queue interprets itself, everything else only
// updates the command state
const (
	CmdNop    = 0x00
	CmdJump   = 0x08
	CmdBJump  = 0x09
	CmdCall   = 0x0A
	CmdRet    = 0x0B
	CmdEnd    = 0x0C
	CmdSignal = 0x0E
	CmdFinish = 0x0F
	CmdBase   = 0x10
)

const maxCallDepth = 32

var ErrInvalidID = errors.New("invalid display list id")

// Memory is the part of the address space the queue reads lists from.
type Memory interface {
	Read32(addr uint32) (uint32, error)
}

// List is one enqueued display list.
type List struct {
	ID         int    `json:"id"`
	Start      uint32 `json:"start"`
	Stall      uint32 `json:"stall"` // 0 means no stall address
	PC         uint32 `json:"pc"`
	CallbackID int    `json:"callbackId"`
	Args       uint32 `json:"args"`
	Commands   int    `json:"commands"` // commands executed so far
	Completed  bool   `json:"completed"`
	Stalled    bool   `json:"stalled"`

	Signals []uint32 `json:"signals,omitempty"`

	callStack []uint32
}

// Update summarizes a list that finished since the last call to Updates.
type Update struct {
	ListID   int    `json:"listId"`
	Start    uint32 `json:"start"`
	Commands int    `json:"commands"`
	Finished bool   `json:"finished"`
}

// Queue is the command list collaborator of the kernel. It walks the lists
// to find their end and tracks the command state, but draws nothing.
type Queue struct {
	mu      sync.Mutex
	mem     Memory
	queue   []*List
	byID    map[int]*List
	nextID  int
	state   [256]uint32
	updates []Update

	// MaxCommands bounds one Run so a looping list cannot hang the caller.
	MaxCommands int
}

func NewQueue(mem Memory) *Queue {
	return &Queue{
		mem:         mem,
		byID:        map[int]*List{},
		nextID:      1,
		MaxCommands: 1 << 20,
	}
}

// Enqueue adds a list at the tail, or at the head, and runs the queue.
func (q *Queue) Enqueue(start, stall uint32, callbackID int, args uint32, head bool) (*List, error) {
	q.mu.Lock()
	l := &List{ID: q.nextID, Start: start, Stall: stall, PC: start, CallbackID: callbackID, Args: args}
	q.nextID++
	q.byID[l.ID] = l
	if head {
		q.queue = append([]*List{l}, q.queue...)
	} else {
		q.queue = append(q.queue, l)
	}
	q.mu.Unlock()
	return l, q.Run()
}

// UpdateStall moves a list's stall address and resumes processing.
func (q *Queue) UpdateStall(id int, stall uint32) error {
	q.mu.Lock()
	l, ok := q.byID[id]
	if !ok {
		q.mu.Unlock()
		return ErrInvalidID
	}
	l.Stall = stall
	l.Stalled = false
	q.mu.Unlock()
	return q.Run()
}

// Run processes lists in queue order until the queue is empty or the head
// list stalls.
func (q *Queue) Run() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	budget := q.MaxCommands
	for len(q.queue) > 0 {
		l := q.queue[0]
		n, err := q.runList(l, budget)
		budget -= n
		if err != nil {
			return err
		}
		if !l.Completed {
			return nil
		}
		q.queue = q.queue[1:]
		q.updates = append(q.updates, Update{ListID: l.ID, Start: l.Start, Commands: l.Commands, Finished: true})
	}
	return nil
}

func (q *Queue) runList(l *List, budget int) (int, error) {
	executed := 0
	for !l.Completed {
		if l.Stall != 0 && l.PC == l.Stall {
			l.Stalled = true
			return executed, nil
		}
		if executed >= budget {
			return executed, fmt.Errorf("display list %d: more than %d commands without reaching END", l.ID, q.MaxCommands)
		}

		word, err := q.mem.Read32(l.PC)
		if err != nil {
			return executed, fmt.Errorf("display list %d: %w", l.ID, err)
		}
		executed++
		l.Commands++
		l.Stalled = false
		next := l.PC + 4

		cmd, arg := word>>24, word&0x00FFFFFF
		switch cmd {
		case CmdJump, CmdBJump:
			next = q.address(arg)
		case CmdCall:
			if len(l.callStack) >= maxCallDepth {
				return executed, fmt.Errorf("display list %d: call stack overflow at 0x%08X", l.ID, l.PC)
			}
			l.callStack = append(l.callStack, next)
			next = q.address(arg)
		case CmdRet:
			if n := len(l.callStack); n > 0 {
				next = l.callStack[n-1]
				l.callStack = l.callStack[:n-1]
			}
		case CmdSignal:
			l.Signals = append(l.Signals, arg)
		case CmdEnd:
			l.Completed = true
		}
		q.state[cmd] = arg
		l.PC = next
	}
	return executed, nil
}

// address resolves a 24 bit list address against the BASE command.
func (q *Queue) address(arg uint32) uint32 {
	return (q.state[CmdBase]<<8)&0x0F000000 | arg&0x00FFFFFF
}

// ListSync reports the state of one list.
func (q *Queue) ListSync(id int) (SyncKind, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.byID[id]
	if !ok {
		return 0, ErrInvalidID
	}
	switch {
	case l.Completed:
		return SyncDone, nil
	case l.Stalled:
		return SyncStallReached, nil
	}
	return SyncQueued, nil
}

// DrawSync reports whether every list has completed.
func (q *Queue) DrawSync() SyncKind {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return SyncDone
	}
	if q.queue[0].Stalled {
		return SyncStallReached
	}
	return SyncQueued
}

func (q *Queue) List(id int) (List, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.byID[id]
	if !ok {
		return List{}, false
	}
	return *l, true
}

// State is the last argument seen for a command.
func (q *Queue) State(cmd uint8) uint32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state[cmd]
}

// Updates returns the lists finished since the previous call.
func (q *Queue) Updates() []Update {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.updates
	q.updates = nil
	return out
}
