package kernel_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

func TestThreadLifecycle(t *testing.T) {
	h := newHarness(t, `
	.data
	result: .word 0, 0, 0
	wname:  .asciiz "worker"
	.text
	main:
		la $a0, wname
		la $a1, worker
		li $a2, 0x20
		li $a3, 0x1000
		li $t0, 0
		jal sceKernelCreateThread
		li $t1, 0
		move $s0, $v0
		la $s1, result
		sw $s0, 0($s1)

		move $a0, $s0
		li $a1, 0
		jal sceKernelStartThread
		li $a2, 0

		move $a0, $s0
		jal sceKernelWaitThreadEnd
		li $a1, 0
		sw $v0, 4($s1)

		move $a0, $s0
		jal sceKernelDeleteThread
		nop
		sw $v0, 8($s1)
		jal sceKernelExitThread
		li $a0, 0

	worker:
		jr $ra
		li $v0, 42
	`)

	main := h.start(t, "main", 0x20)
	assert.Equal(t, 1, h.tm.AliveThreadCount())

	var created int
	h.tm.Subscribe(func(ev kernel.ThreadEvent) {
		if ev.Created {
			created++
		}
	})
	h.run(t)

	workerID := int(h.word(t, "result", 0))
	assert.Equal(t, 1, created, "worker created through the syscall")
	assert.Equal(t, uint32(42), h.word(t, "result", 4), "exit status of the worker")
	assert.Equal(t, uint32(0), h.word(t, "result", 8), "delete succeeded")

	assert.Equal(t, 0, h.tm.AliveThreadCount())
	assert.Equal(t, kernel.StatusStopped, main.Status)
	_, ok := h.tm.Thread(workerID)
	assert.False(t, ok)
	assert.ErrorIs(t, h.tm.DeleteThread(workerID), kernel.ErrNotFoundThread)
}

func TestDeleteLiveThread(t *testing.T) {
	h := newHarness(t, `
	main:
		jr $ra
		nop
	`)
	th := h.start(t, "main", 0x20)
	assert.ErrorIs(t, h.tm.DeleteThread(th.ID), kernel.ErrNotDormant)

	h.run(t)
	assert.NoError(t, h.tm.DeleteThread(th.ID))
	assert.Equal(t, kernel.StatusDeleted, th.Status)
	assert.ErrorIs(t, h.tm.DeleteThread(th.ID), kernel.ErrNotFoundThread)
}

func TestCreateThreadValidation(t *testing.T) {
	h := newHarness(t, `
	main:
		jr $ra
		nop
	`)
	entry := h.label(t, "main")

	_, err := h.tm.CreateThread("bad", entry, 0, 0, 0)
	assert.ErrorIs(t, err, kernel.ErrIllegalPriority)
	_, err = h.tm.CreateThread("bad", entry, 128, 0, 0)
	assert.ErrorIs(t, err, kernel.ErrIllegalPriority)
	_, err = h.tm.CreateThread("bad", entry+2, 0x20, 0, 0)
	assert.ErrorIs(t, err, kernel.ErrIllegalEntry)
	_, err = h.tm.CreateThread("bad", entry, 0x20, 0x10, 0)
	assert.ErrorIs(t, err, kernel.ErrIllegalStackSize)

	th, err := h.tm.CreateThread("good", entry, 0x20, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, kernel.StatusStopped, th.Status)
	assert.Equal(t, h.tm.Config().DefaultStackSize, th.Stack.Size())

	id, err := h.mem.Read32(th.Stack.Low)
	require.NoError(t, err)
	assert.Equal(t, uint32(th.ID), id, "thread id at the stack bottom")
	fill, err := h.mem.Read32(th.Stack.Low + 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), fill)

	assert.ErrorIs(t, h.tm.StartThread(th.ID+100, 0, 0), kernel.ErrNotFoundThread)
	require.NoError(t, h.tm.StartThread(th.ID, 0, 0))
	assert.ErrorIs(t, h.tm.StartThread(th.ID, 0, 0), kernel.ErrNotDormant)
}

func TestStartThreadCopiesArguments(t *testing.T) {
	h := newHarness(t, `
	.data
	args:   .word 0x11223344, 0x55667788
	result: .word 0, 0
	.text
	main:
		lw $t0, 4($a1)
		la $t1, result
		sw $a0, 0($t1)
		sw $t0, 4($t1)
		jr $ra
		nop
	`)
	th, err := h.tm.CreateThread("main", h.label(t, "main"), 0x20, 0, 0)
	require.NoError(t, err)
	require.NoError(t, h.tm.StartThread(th.ID, 8, h.label(t, "args")))

	sp := th.Context.Gpr(emulator.RegSP)
	assert.Equal(t, uint32(0), sp&0xF, "argument block is 16 byte aligned")
	assert.True(t, sp >= th.Stack.Low && sp < th.Stack.High)
	assert.Equal(t, sp, th.Context.Gpr(emulator.RegA1))

	h.run(t)
	assert.Equal(t, uint32(8), h.word(t, "result", 0))
	assert.Equal(t, uint32(0x55667788), h.word(t, "result", 4))
}

func TestPriorityOrder(t *testing.T) {
	h := newHarness(t, `
	.data
	msgA: .ascii "A"
	msgB: .ascii "B"
	msgC: .ascii "C"
	.text
	low:
		li $a0, 1
		la $a1, msgA
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	high:
		li $a0, 1
		la $a1, msgB
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	mid:
		li $a0, 1
		la $a1, msgC
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "low", 0x30)
	h.start(t, "high", 0x10)
	h.start(t, "mid", 0x20)
	h.run(t)
	assert.Equal(t, "BCA", h.out.String())
}

func TestRoundRobinOnRotate(t *testing.T) {
	h := newHarness(t, `
	.data
	msgX: .ascii "x"
	msgY: .ascii "y"
	.text
	x:
		li $a0, 1
		la $a1, msgX
		jal sceIoWrite
		li $a2, 1
		jal sceKernelRotateThreadReadyQueue
		li $a0, 0
		li $a0, 1
		la $a1, msgX
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	y:
		li $a0, 1
		la $a1, msgY
		jal sceIoWrite
		li $a2, 1
		jal sceKernelRotateThreadReadyQueue
		li $a0, 0
		li $a0, 1
		la $a1, msgY
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "x", 0x20)
	h.start(t, "y", 0x20)
	h.run(t)
	assert.Equal(t, "xyxy", h.out.String())
}

func TestTimedWakeupOrder(t *testing.T) {
	h := newHarness(t, `
	.data
	msgA: .ascii "a"
	msgB: .ascii "b"
	msgC: .ascii "c"
	.text
	late:
		la $s1, msgC
		b sleeper
		li $s0, 300
	early:
		la $s1, msgA
		b sleeper
		li $s0, 100
	middle:
		la $s1, msgB
		b sleeper
		li $s0, 200
	sleeper:
		jal sceKernelDelayThread
		move $a0, $s0
		li $a0, 1
		move $a1, $s1
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "late", 0x20)
	h.start(t, "early", 0x20)
	h.start(t, "middle", 0x20)
	h.run(t)

	assert.Equal(t, "abc", h.out.String())
	assert.Equal(t, uint64(300), h.clock.Now())
}

func TestDelayZeroYields(t *testing.T) {
	h := newHarness(t, `
	.data
	msgX: .ascii "x"
	msgY: .ascii "y"
	.text
	x:
		jal sceKernelDelayThread
		li $a0, 0
		li $a0, 1
		la $a1, msgX
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	y:
		li $a0, 1
		la $a1, msgY
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "x", 0x20)
	h.start(t, "y", 0x20)
	h.run(t)
	assert.Equal(t, "yx", h.out.String())
}

func TestDeadlockDetected(t *testing.T) {
	h := newHarness(t, `
	main:
		jal sceKernelSleepThread
		nop
		jal sceKernelExitThread
		li $a0, 0
	`)
	th := h.start(t, "main", 0x20)
	err := h.runErr()
	assert.ErrorIs(t, err, kernel.ErrDeadlock)
	assert.Equal(t, kernel.StatusWaiting, th.Status)
	assert.Equal(t, kernel.WaitSleep, th.Wait.Kind)
}

func TestWakeupBeforeSleepIsConsumed(t *testing.T) {
	h := newHarness(t, `
	main:
		jal sceKernelWakeupThread
		li $a0, 0
		jal sceKernelSleepThread
		nop
		jal sceKernelExitThread
		li $a0, 0
	`)
	th := h.start(t, "main", 0x20)
	h.run(t)
	assert.Equal(t, kernel.StatusStopped, th.Status)
	assert.Equal(t, 0, th.WakeupCount)
}

func TestTerminateWaitingThread(t *testing.T) {
	h := newHarness(t, `
	main:
		jal sceKernelSleepThread
		nop
		jal sceKernelExitThread
		li $a0, 0
	`)
	th := h.start(t, "main", 0x20)
	_, err := h.tm.Step()
	require.NoError(t, err)
	require.Equal(t, kernel.StatusWaiting, th.Status)

	require.NoError(t, h.tm.TerminateThread(th.ID))
	assert.Equal(t, kernel.StatusStopped, th.Status)
	assert.Equal(t, int32(kernel.ErrThreadTerminated), th.ExitStatus)
	assert.ErrorIs(t, h.tm.TerminateThread(th.ID), kernel.ErrDormant)

	res, err := h.tm.Step()
	require.NoError(t, err)
	assert.True(t, res.Idle)
}

func TestUnexpectedBreakIsFatal(t *testing.T) {
	h := newHarness(t, `
	main:
		break 5
	`)
	th := h.start(t, "main", 0x20)
	res, err := h.tm.Step()

	var brk *kernel.UnexpectedBreak
	require.True(t, errors.As(err, &brk), "got %v", err)
	assert.Equal(t, uint32(5), brk.Code)
	assert.Equal(t, h.label(t, "main"), brk.PC)
	assert.Equal(t, th, res.Thread)
}

func TestTrampolineBreakOutsideTrampolineIsFatal(t *testing.T) {
	h := newHarness(t, `
	main:
		break 10001
	`)
	h.start(t, "main", 0x20)
	_, err := h.tm.Step()

	var brk *kernel.UnexpectedBreak
	require.True(t, errors.As(err, &brk), "got %v", err)
	assert.Equal(t, uint32(emulator.BreakThreadWait), brk.Code)
}

func TestBreakpointResumesSameThread(t *testing.T) {
	h := newHarness(t, `
	.data
	result: .word 0
	.text
	main:
		li $t0, 1
	stop:
		li $t0, 2
		la $t1, result
		sw $t0, 0($t1)
		jr $ra
		nop
	`)
	h.tm.Interpreter().AddBreakpoint(emulator.Breakpoint{ID: 7, Addr: h.label(t, "stop")})
	th := h.start(t, "main", 0x20)

	res, err := h.tm.Step()
	require.NoError(t, err)
	require.NotNil(t, res.Breakpoint)
	assert.Equal(t, uint32(7), res.Breakpoint.Code)
	assert.Equal(t, h.label(t, "stop"), th.Context.PC)
	assert.Equal(t, kernel.StatusReady, th.Status)

	h.run(t)
	assert.Equal(t, uint32(2), h.word(t, "result", 0))
}

func TestBreakpointAfterKernelCall(t *testing.T) {
	h := newHarness(t, `
	main:
		jal sceKernelGetThreadId
		nop
	after:
		li $t3, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.tm.Interpreter().AddBreakpoint(emulator.Breakpoint{ID: 2, Addr: h.label(t, "after")})
	th := h.start(t, "main", 0x20)

	res, err := h.tm.Step()
	require.NoError(t, err)
	require.NotNil(t, res.Breakpoint, "stops where the call returns")
	assert.Equal(t, uint32(2), res.Breakpoint.Code)
	assert.Equal(t, h.label(t, "after"), th.Context.PC)
	assert.Equal(t, uint32(th.ID), th.Context.Gpr(emulator.RegV0))
	assert.Equal(t, uint32(0), th.Context.Gpr(emulator.RegT0+3))

	res, err = h.tm.Step()
	require.NoError(t, err)
	assert.Nil(t, res.Breakpoint)
	assert.Equal(t, uint32(1), th.Context.Gpr(emulator.RegT0+3))
	assert.Equal(t, kernel.StatusStopped, th.Status)
}

func TestReferThreadStatus(t *testing.T) {
	h := newHarness(t, `
	.data
	info: .word 0x68
	      .space 0x64
	.text
	main:
		li $a0, 0
		la $a1, info
		jal sceKernelReferThreadStatus
		nop
		jal sceKernelExitThread
		li $a0, 0
	`)
	th := h.start(t, "main", 0x25)
	h.run(t)

	name, err := h.mem.ReadStringZ(h.label(t, "info") + 4)
	require.NoError(t, err)
	assert.Equal(t, "main", name)
	assert.Equal(t, uint32(0x01), h.word(t, "info", 0x28), "status is RUNNING while it asks")
	assert.Equal(t, th.EntryPoint, h.word(t, "info", 0x2C))
	assert.Equal(t, th.Stack.Low, h.word(t, "info", 0x30))
	assert.Equal(t, uint32(0x25), h.word(t, "info", 0x40))
}
