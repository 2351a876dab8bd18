package session

import (
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/ge"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

// ThreadSnapshot is a copy of a thread's scheduling state.
type ThreadSnapshot struct {
	ID         int                `json:"id"`
	Name       string             `json:"name"`
	Priority   int                `json:"priority"`
	Status     string             `json:"status"`
	Wait       *kernel.WaitReason `json:"wait,omitempty"`
	PC         uint32             `json:"pc"`
	ExitStatus int32              `json:"exitStatus"`
	RunTicks   uint64             `json:"runTicks"`
	Stack      kernel.Block       `json:"stack"`
}

func snapshot(t *kernel.Thread) ThreadSnapshot {
	ts := ThreadSnapshot{
		ID:         t.ID,
		Name:       t.Name,
		Priority:   t.Priority,
		Status:     t.Status.String(),
		PC:         t.Context.PC,
		ExitStatus: t.ExitStatus,
		RunTicks:   t.RunTicks,
		Stack:      t.Stack,
	}
	if t.Status == kernel.StatusWaiting {
		w := t.Wait
		ts.Wait = &w
	}
	return ts
}

// Status is the snapshot served on the monitor's /status endpoint.
type Status struct {
	Threads      []ThreadSnapshot      `json:"threads"`
	Alive        int                   `json:"alive"`
	ClockUs      uint64                `json:"clockUs"`
	Executed     uint64                `json:"executed"`
	Output       string                `json:"output"`
	Fault        string                `json:"fault,omitempty"`
	Breakpoints  []emulator.Breakpoint `json:"breakpoints"`
	FreeStack    uint32                `json:"freeStack"`
	DisplayLists []ge.List             `json:"displayLists,omitempty"`
}

func (s *Session) Threads() []ThreadSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	threads := s.tm.Threads()
	out := make([]ThreadSnapshot, 0, len(threads))
	for _, t := range threads {
		out = append(out, snapshot(t))
	}
	return out
}

func (s *Session) Status() Status {
	threads := s.Threads()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Threads:     threads,
		Alive:       s.tm.AliveThreadCount(),
		ClockUs:     s.clock.Now(),
		Executed:    s.interp.TotalExecuted(),
		Output:      s.output.String(),
		Breakpoints: s.interp.Breakpoints(),
		FreeStack:   s.tm.Stacks().FreeBytes(),
	}
	if s.fault != nil {
		st.Fault = s.fault.Error()
	}
	for id := 1; ; id++ {
		l, ok := s.ge.List(id)
		if !ok {
			break
		}
		st.DisplayLists = append(st.DisplayLists, l)
	}
	return st
}

// thread resolves id, where 0 means the thread that ran last.
func (s *Session) thread(id int) (*kernel.Thread, error) {
	if id == 0 {
		id = s.lastThread
	}
	t, ok := s.tm.Thread(id)
	if !ok {
		return nil, ErrNoThread
	}
	return t, nil
}

// Registers returns every named register of a thread.
func (s *Session) Registers(threadID int) (map[string]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return nil, err
	}
	out := map[string]uint32{}
	for _, name := range emulator.RegisterNames() {
		id, _ := emulator.LookupRegister(name)
		out[name] = id.Get(&t.Context)
	}
	return out, nil
}

func (s *Session) SetRegister(threadID int, name string, value uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return err
	}
	id, ok := emulator.LookupRegister(name)
	if !ok {
		return &emulator.InvalidRegister{Name: name}
	}
	id.Set(&t.Context, value)
	return nil
}

func (s *Session) ReadMemory(addr, size uint32) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.ReadBytes(addr, size)
}

func (s *Session) WriteMemory(addr uint32, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mem.WriteBytes(addr, data)
}

// Evaluate runs a debugger expression against a thread's registers.
func (s *Session) Evaluate(threadID int, expr string) (emulator.EvaluationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.thread(threadID)
	if err != nil {
		return emulator.EvaluationResult{}, err
	}
	return emulator.EvaluateExpression(&t.Context, s.mem, expr)
}

func (s *Session) Disassemble(addr uint32, count int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return emulator.DisassembleRange(s.mem, addr, count)
}

// AddBreakpoint arms a breakpoint at addr. condition is an optional debugger
// expression that must be truthy for the hit to stop the run.
func (s *Session) AddBreakpoint(addr uint32, condition string) emulator.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	bp := emulator.Breakpoint{ID: s.nextBreakID, Addr: addr, Condition: condition}
	s.nextBreakID++
	s.interp.AddBreakpoint(bp)
	return bp
}

func (s *Session) RemoveBreakpoint(addr uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interp.RemoveBreakpoint(addr)
}

// SetBreakpoints replaces every breakpoint, the way an editor sends them.
func (s *Session) SetBreakpoints(addrs []uint32, conditions []string) []emulator.Breakpoint {
	s.mu.Lock()
	s.interp.RemoveAllBreakpoints()
	s.mu.Unlock()

	out := make([]emulator.Breakpoint, 0, len(addrs))
	for i, addr := range addrs {
		cond := ""
		if i < len(conditions) {
			cond = conditions[i]
		}
		out = append(out, s.AddBreakpoint(addr, cond))
	}
	return out
}

func (s *Session) Breakpoints() []emulator.Breakpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interp.Breakpoints()
}

// LastThread is the id of the thread that ran most recently.
func (s *Session) LastThread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastThread
}
