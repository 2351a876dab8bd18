package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/ge"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

var (
	ErrNoProgram        = errors.New("no program loaded")
	ErrInstructionLimit = errors.New("instruction limit reached")
	ErrNoThread         = errors.New("no such thread")
)

// StopReason says why Run returned.
type StopReason string

const (
	StopExited     StopReason = "exited"
	StopBreakpoint StopReason = "breakpoint"
	StopPaused     StopReason = "pause"
	StopStep       StopReason = "step"
	StopFault      StopReason = "exception"
)

// Session is one emulated program: memory, interpreter, kernel and graphics
// queue, driven one scheduling pass at a time. Its methods are safe to call
// from several goroutines.
type Session struct {
	config  Config
	mem     *emulator.AddressSpace
	interp  *emulator.Interpreter
	clock   kernel.Clock
	tm      *kernel.ThreadManager
	ge      *ge.Queue
	symbols map[string]uint32

	mu          sync.Mutex
	program     *assembler.AssembledResult
	output      bytes.Buffer
	fault       *Fault
	lastThread  int
	nextBreakID int

	pause atomic.Bool

	listenersMu  sync.Mutex
	listeners    map[int]func(Event)
	nextListener int
}

func New(config Config) (*Session, error) {
	config.applyDefaults()
	if config.Logging {
		util.LoggingEnabled = true
	}

	var clock kernel.Clock
	switch config.Clock {
	case ClockHost:
		clock = kernel.NewHostClock()
	case ClockVirtual:
		clock = kernel.NewVirtualClock()
	default:
		return nil, fmt.Errorf("unknown clock %q", config.Clock)
	}

	mem := emulator.NewAddressSpace(config.Memory)
	interp := emulator.NewInterpreter(mem)
	tm, err := kernel.NewThreadManager(interp, clock, config.Kernel)
	if err != nil {
		return nil, err
	}
	queue := ge.NewQueue(mem)
	kernel.RegisterGeUser(tm, queue)
	symbols, err := tm.InstallImports()
	if err != nil {
		return nil, err
	}

	s := &Session{
		config:      config,
		mem:         mem,
		interp:      interp,
		clock:       clock,
		tm:          tm,
		ge:          queue,
		symbols:     symbols,
		nextBreakID: 1,
		listeners:   map[int]func(Event){},
	}
	tm.Output = outputWriter{s}
	tm.Subscribe(s.threadEvent)
	return s, nil
}

func (s *Session) Config() Config { return s.config }

// Kernel exposes the thread manager. Callers must not use it concurrently with Run.
func (s *Session) Kernel() *kernel.ThreadManager  { return s.tm }
func (s *Session) Memory() *emulator.AddressSpace { return s.mem }

// Symbols maps every kernel function name to its import stub.
func (s *Session) Symbols() map[string]uint32 {
	return s.symbols
}

// LoadProgram assembles source at the user base, with kernel functions
// callable by name, and copies it into memory.
func (s *Session) LoadProgram(source string) (*assembler.AssembledResult, error) {
	cfg := s.mem.Config()
	res := assembler.AssembleWithConfig(source, assembler.AssemblerConfig{TextBase: cfg.UserBase, Symbols: s.symbols})
	if res.HasErrors() {
		var errs []assembler.Diagnostic
		for _, d := range res.Diagnostics {
			if d.Severity == assembler.Error {
				errs = append(errs, d)
			}
		}
		return res, &AssembleError{Diagnostics: errs}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mem.WriteWords(res.TextBase, res.ProgramText); err != nil {
		return res, err
	}
	if err := s.mem.WriteWords(res.DataBase, res.ProgramData); err != nil {
		return res, err
	}
	s.program = res
	util.LogF("loaded program: %d text words at 0x%08X, %d data words at 0x%08X", len(res.ProgramText), res.TextBase, len(res.ProgramData), res.DataBase)
	return res, nil
}

func (s *Session) Program() *assembler.AssembledResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// CreateMainThread starts the loaded program's entry point as thread "main".
// args, when given, are copied onto its stack.
func (s *Session) CreateMainThread(args []byte) (*kernel.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.program == nil {
		return nil, ErrNoProgram
	}

	t, err := s.tm.CreateThread("main", s.program.Entry, s.config.MainPriority, 0, 0)
	if err != nil {
		return nil, err
	}
	var argPtr uint32
	if len(args) > 0 {
		// stage the block at the bottom of the new stack; StartThread copies it up
		argPtr = t.Stack.Low + 0x10
		if err := s.mem.WriteBytes(argPtr, args); err != nil {
			return nil, err
		}
	}
	if err := s.tm.StartThread(t.ID, uint32(len(args)), argPtr); err != nil {
		return nil, err
	}
	s.lastThread = t.ID
	return t, nil
}

// Step runs one scheduling pass.
func (s *Session) Step() (kernel.SliceResult, error) {
	return s.step(0)
}

// StepInstruction runs a single instruction of the next thread.
func (s *Session) StepInstruction() (kernel.SliceResult, error) {
	return s.step(1)
}

func (s *Session) step(limit int) (kernel.SliceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fault != nil {
		return kernel.SliceResult{}, s.fault
	}
	if max := s.config.MaxInstructions; max != 0 && s.interp.TotalExecuted() >= max {
		return kernel.SliceResult{}, ErrInstructionLimit
	}

	var res kernel.SliceResult
	var err error
	if limit > 0 {
		res, err = s.tm.StepInstructions(limit)
	} else {
		res, err = s.tm.Step()
	}
	if res.Thread != nil {
		s.lastThread = res.Thread.ID
	}
	for _, u := range s.ge.Updates() {
		s.emit(Event{Type: EventDisplayList, Text: fmt.Sprintf("display list %d finished after %d commands", u.ListID, u.Commands), Data: u})
	}

	if err != nil {
		if errors.Is(err, kernel.ErrDeadlock) {
			return res, err
		}
		s.fault = newFault(res.Thread, s.mem, err)
		s.emit(Event{Type: EventFault, Text: s.fault.Error(), ThreadID: s.fault.ThreadID, Thread: s.fault.ThreadName, PC: s.fault.PC})
		return res, s.fault
	}
	if res.Breakpoint != nil {
		s.emit(Event{Type: EventBreakpoint, ThreadID: res.Thread.ID, Thread: res.Thread.Name, PC: res.Breakpoint.PC, Data: res.Breakpoint.Code})
	}
	return res, nil
}

// Run schedules threads until none is alive, a breakpoint is hit, Pause is
// called or ctx is done. Idle time is spent waiting on the clock, which a
// virtual clock skips.
func (s *Session) Run(ctx context.Context) (StopReason, error) {
	for {
		if err := ctx.Err(); err != nil {
			return StopPaused, err
		}
		if s.pause.Swap(false) {
			return StopPaused, nil
		}

		res, err := s.Step()
		if err != nil {
			return StopFault, err
		}
		if res.Breakpoint != nil {
			return StopBreakpoint, nil
		}
		if !res.Idle {
			continue
		}
		if s.AliveThreadCount() == 0 {
			s.emit(Event{Type: EventExited, Text: "all threads exited"})
			return StopExited, nil
		}
		if err := s.tm.WaitIdle(ctx, res.NextDeadline); err != nil {
			return StopPaused, err
		}
	}
}

// Pause makes a concurrent Run return after its current pass.
func (s *Session) Pause() {
	s.pause.Store(true)
}

func (s *Session) AliveThreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tm.AliveThreadCount()
}

// Fault is the fatal error that stopped the session, if any.
func (s *Session) Fault() *Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

// Output is everything written to stdout and stderr so far.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output.String()
}
