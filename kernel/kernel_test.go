package kernel_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

type harness struct {
	tm      *kernel.ThreadManager
	clock   *kernel.VirtualClock
	mem     *emulator.AddressSpace
	program *assembler.AssembledResult
	out     *bytes.Buffer
}

// newHarness builds a kernel on a virtual clock, lets setup register extra
// native functions, installs the import stubs and loads source against them.
func newHarness(t *testing.T, source string, setup ...func(tm *kernel.ThreadManager)) *harness {
	t.Helper()
	mem := emulator.NewAddressSpace(emulator.DefaultMemoryConfig())
	clock := kernel.NewVirtualClock()
	tm, err := kernel.NewThreadManager(emulator.NewInterpreter(mem), clock, kernel.Config{SliceLength: 1000})
	require.NoError(t, err)
	for _, fn := range setup {
		fn(tm)
	}

	symbols, err := tm.InstallImports()
	require.NoError(t, err)
	program := assembler.AssembleWithConfig(source, assembler.AssemblerConfig{TextBase: assembler.DefaultTextBase, Symbols: symbols})
	if program.HasErrors() {
		t.Fatalf("program did not assemble: %v", program.Diagnostics)
	}
	require.NoError(t, mem.WriteWords(program.TextBase, program.ProgramText))
	require.NoError(t, mem.WriteWords(program.DataBase, program.ProgramData))

	out := &bytes.Buffer{}
	tm.Output = out
	return &harness{tm: tm, clock: clock, mem: mem, program: program, out: out}
}

func (h *harness) label(t *testing.T, name string) uint32 {
	t.Helper()
	addr, ok := h.program.Labels[name]
	if !ok {
		t.Fatalf("no label %q", name)
	}
	return addr
}

func (h *harness) word(t *testing.T, name string, offset uint32) uint32 {
	t.Helper()
	v, err := h.mem.Read32(h.label(t, name) + offset)
	require.NoError(t, err)
	return v
}

// start creates and starts a thread at label.
func (h *harness) start(t *testing.T, label string, priority int) *kernel.Thread {
	t.Helper()
	th, err := h.tm.CreateThread(label, h.label(t, label), priority, 0, 0)
	require.NoError(t, err)
	require.NoError(t, h.tm.StartThread(th.ID, 0, 0))
	return th
}

// runErr steps the kernel until no thread is alive, jumping the clock over
// idle periods.
func (h *harness) runErr() error {
	for i := 0; i < 10000; i++ {
		res, err := h.tm.Step()
		if err != nil {
			return err
		}
		if res.Idle {
			if h.tm.AliveThreadCount() == 0 {
				return nil
			}
			h.clock.AdvanceTo(res.NextDeadline)
		}
	}
	return errTooManySteps
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	if err := h.runErr(); err != nil {
		t.Fatalf("running threads: %v", err)
	}
}

type stepError string

func (e stepError) Error() string { return string(e) }

const errTooManySteps = stepError("threads did not finish")
