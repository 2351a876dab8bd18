package session

import (
	"sort"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

type EventType string

const (
	EventThreadCreated      EventType = "threadCreated"
	EventThreadStateChanged EventType = "threadState"
	EventFault              EventType = "fault"
	EventOutput             EventType = "console"
	EventBreakpoint         EventType = "breakpoint"
	EventDisplayList        EventType = "displayList"
	EventExited             EventType = "exited"
)

// Event is what listeners, the monitor and the debug server see of a run.
type Event struct {
	Type     EventType   `json:"type"`
	Text     string      `json:"text,omitempty"`
	ThreadID int         `json:"threadId,omitempty"`
	Thread   string      `json:"thread,omitempty"`
	Status   string      `json:"status,omitempty"`
	PC       uint32      `json:"pc,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

// Subscribe registers fn for every event. Listeners run on the emulation
// goroutine while the session is locked and must not call back into it.
func (s *Session) Subscribe(fn func(Event)) (remove func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Session) emit(ev Event) {
	s.listenersMu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Session) threadEvent(ev kernel.ThreadEvent) {
	e := Event{
		Type:     EventThreadStateChanged,
		ThreadID: ev.Thread.ID,
		Thread:   ev.Thread.Name,
		Status:   ev.New.String(),
		PC:       ev.Thread.Context.PC,
	}
	if ev.Created {
		e.Type = EventThreadCreated
	}
	s.emit(e)
}

// outputWriter collects kernel stdout/stderr and reports each write.
type outputWriter struct {
	s *Session
}

func (w outputWriter) Write(p []byte) (int, error) {
	w.s.output.Write(p)
	w.s.emit(Event{Type: EventOutput, Text: string(p)})
	return len(p), nil
}
