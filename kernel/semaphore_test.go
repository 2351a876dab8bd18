package kernel_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

func TestSemaphoreRendezvous(t *testing.T) {
	h := newHarness(t, `
	.data
	sema:    .word 0
	semname: .asciiz "rendezvous"
	wname:   .asciiz "waiter"
	msgA:    .ascii "A"
	msgB:    .ascii "B"
	msgW:    .ascii "W"
	.text
	main:
		la $a0, semname
		li $a1, 0
		li $a2, 0
		li $a3, 1
		jal sceKernelCreateSema
		li $t0, 0
		la $s1, sema
		sw $v0, 0($s1)

		la $a0, wname
		la $a1, waiter
		li $a2, 0x10
		li $a3, 0x1000
		li $t0, 0
		jal sceKernelCreateThread
		li $t1, 0
		move $a0, $v0
		li $a1, 0
		jal sceKernelStartThread
		li $a2, 0

		li $a0, 1
		la $a1, msgA
		jal sceIoWrite
		li $a2, 1
		lw $a0, 0($s1)
		jal sceKernelSignalSema
		li $a1, 1
		li $a0, 1
		la $a1, msgB
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0

	waiter:
		la $t0, sema
		lw $a0, 0($t0)
		li $a1, 1
		jal sceKernelWaitSema
		li $a2, 0
		li $a0, 1
		la $a1, msgW
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "main", 0x20)
	h.run(t)

	// the waiter parks before main prints and wakes only once main blocks
	assert.Equal(t, "ABW", h.out.String())
	s, ok := h.tm.Semaphore(int(h.word(t, "sema", 0)))
	require.True(t, ok)
	assert.Equal(t, int32(0), s.Count)
	assert.Equal(t, 0, s.WaitingThreads())
}

func TestSemaphoreWaitTimeout(t *testing.T) {
	h := newHarness(t, `
	.data
	sema:    .word 0
	timeout: .word 500
	result:  .word 0
	semname: .asciiz "never"
	.text
	main:
		la $a0, semname
		li $a1, 0
		li $a2, 0
		li $a3, 1
		jal sceKernelCreateSema
		li $t0, 0
		la $s1, sema
		sw $v0, 0($s1)

		move $a0, $v0
		li $a1, 1
		la $a2, timeout
		jal sceKernelWaitSema
		nop
		sw $v0, 8($s1)
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "main", 0x20)
	h.run(t)

	assert.Equal(t, kernel.ErrWaitTimeout.Code(), h.word(t, "result", 0))
	assert.Equal(t, uint32(0), h.word(t, "timeout", 0), "remaining time written back")
	assert.Equal(t, uint64(500), h.clock.Now())
}

func TestSemaphoreWakesInWaitOrder(t *testing.T) {
	h := newHarness(t, `
	.data
	sema: .word 0
	msg1: .ascii "1"
	msg2: .ascii "2"
	.text
	first:
		la $s1, msg1
		b waiter
		nop
	second:
		la $s1, msg2
		b waiter
		nop
	waiter:
		la $t0, sema
		lw $a0, 0($t0)
		li $a1, 1
		jal sceKernelWaitSema
		li $a2, 0
		li $a0, 1
		move $a1, $s1
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`)
	s, err := h.tm.CreateSemaphore("order", 0, 0, 5)
	require.NoError(t, err)
	require.NoError(t, h.mem.Write32(h.label(t, "sema"), uint32(s.ID)))

	h.start(t, "first", 0x20)
	h.start(t, "second", 0x20)
	for i := 0; i < 2; i++ {
		_, err := h.tm.Step()
		require.NoError(t, err)
	}
	require.Equal(t, 2, s.WaitingThreads())

	require.NoError(t, h.tm.SignalSemaphore(s.ID, 1))
	assert.Equal(t, 1, s.WaitingThreads(), "one unit wakes one waiter")
	require.NoError(t, h.tm.SignalSemaphore(s.ID, 1))
	h.run(t)
	assert.Equal(t, "12", h.out.String())
}

func TestDeleteSemaphoreFailsWaiters(t *testing.T) {
	h := newHarness(t, `
	.data
	sema:   .word 0
	result: .word 0
	.text
	main:
		la $t0, sema
		lw $a0, 0($t0)
		li $a1, 1
		jal sceKernelWaitSema
		li $a2, 0
		la $t0, result
		sw $v0, 0($t0)
		jal sceKernelExitThread
		li $a0, 0
	`)
	s, err := h.tm.CreateSemaphore("doomed", 0, 0, 1)
	require.NoError(t, err)
	require.NoError(t, h.mem.Write32(h.label(t, "sema"), uint32(s.ID)))
	th := h.start(t, "main", 0x20)

	_, err = h.tm.Step()
	require.NoError(t, err)
	require.Equal(t, kernel.WaitSemaphore, th.Wait.Kind)

	require.NoError(t, h.tm.DeleteSemaphore(s.ID))
	h.run(t)
	assert.Equal(t, uint32(0x800201B5), h.word(t, "result", 0))
	assert.ErrorIs(t, h.tm.DeleteSemaphore(s.ID), kernel.ErrNotFoundSemaphore)
}

func TestSemaphoreCounts(t *testing.T) {
	h := newHarness(t, `
	main:
		jr $ra
		nop
	`)
	_, err := h.tm.CreateSemaphore("bad", 0, 2, 1)
	assert.ErrorIs(t, err, kernel.ErrIllegalCount)
	_, err = h.tm.CreateSemaphore("bad", 0, -1, 1)
	assert.ErrorIs(t, err, kernel.ErrIllegalCount)

	s, err := h.tm.CreateSemaphore("counter", 0, 1, 3)
	require.NoError(t, err)
	require.NoError(t, h.tm.SignalSemaphore(s.ID, 10))
	assert.Equal(t, int32(3), s.Count, "clamped to the maximum")

	assert.NoError(t, h.tm.PollSemaphore(s.ID, 2))
	assert.ErrorIs(t, h.tm.PollSemaphore(s.ID, 2), kernel.ErrSemaZero)
	assert.ErrorIs(t, h.tm.PollSemaphore(s.ID, 0), kernel.ErrIllegalCount)
	assert.ErrorIs(t, h.tm.SignalSemaphore(s.ID+100, 1), kernel.ErrNotFoundSemaphore)
	assert.Equal(t, int32(1), s.Count)
}

func TestSemaphoreSignalSaturates(t *testing.T) {
	h := newHarness(t, `
	main:
		jr $ra
		nop
	`)
	s, err := h.tm.CreateSemaphore("big", 0, 1, 5)
	require.NoError(t, err)

	require.NoError(t, h.tm.SignalSemaphore(s.ID, math.MaxInt32))
	assert.Equal(t, int32(5), s.Count)
	require.NoError(t, h.tm.SignalSemaphore(s.ID, math.MaxInt32))
	assert.Equal(t, int32(5), s.Count)

	full, err := h.tm.CreateSemaphore("full", 0, math.MaxInt32, math.MaxInt32)
	require.NoError(t, err)
	require.NoError(t, h.tm.SignalSemaphore(full.ID, 1))
	assert.Equal(t, int32(math.MaxInt32), full.Count)
}
