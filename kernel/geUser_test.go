package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/ge"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

func TestListSyncWaitsForStallUpdate(t *testing.T) {
	var queue *ge.Queue
	h := newHarness(t, `
	.data
	glist:  .word 0x00000000, 0x0C000000
	listID: .word 0
	result: .word 0xFFFF
	sname:  .asciiz "sync"
	msgM:   .ascii "M"
	msgG:   .ascii "G"
	.text
	main:
		la $a0, glist
		la $a1, glist
		li $a2, -1
		li $a3, 0
		jal sceGeListEnQueue
		nop
		la $s1, listID
		sw $v0, 0($s1)

		la $a0, sname
		la $a1, syncer
		li $a2, 0x10
		li $a3, 0x1000
		li $t0, 0
		jal sceKernelCreateThread
		li $t1, 0
		move $a0, $v0
		li $a1, 0
		jal sceKernelStartThread
		li $a2, 0

		lw $a0, 0($s1)
		jal sceGeListUpdateStallAddr
		li $a1, 0
		li $a0, 1
		la $a1, msgM
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0

	syncer:
		la $s1, listID
		lw $a0, 0($s1)
		jal sceGeListSync
		li $a1, 0
		sw $v0, 4($s1)
		li $a0, 1
		la $a1, msgG
		jal sceIoWrite
		li $a2, 1
		jal sceKernelExitThread
		li $a0, 0
	`, func(tm *kernel.ThreadManager) {
		queue = ge.NewQueue(tm.Memory())
		kernel.RegisterGeUser(tm, queue)
	})
	h.start(t, "main", 0x20)
	h.run(t)

	assert.Equal(t, "MG", h.out.String())
	assert.Equal(t, uint32(ge.SyncDone), h.word(t, "result", 0))
	l, ok := queue.List(int(h.word(t, "listID", 0)))
	require.True(t, ok)
	assert.True(t, l.Completed)
	assert.Equal(t, 2, l.Commands)
	assert.Equal(t, ge.SyncDone, queue.DrawSync())
}

func TestListSyncUnknownID(t *testing.T) {
	h := newHarness(t, `
	.data
	result: .word 0, 0
	.text
	main:
		la $s1, result
		li $a0, 77
		jal sceGeListSync
		li $a1, 1
		sw $v0, 0($s1)
		li $a0, 77
		jal sceGeListUpdateStallAddr
		li $a1, 0
		sw $v0, 4($s1)
		jal sceKernelExitThread
		li $a0, 0
	`, func(tm *kernel.ThreadManager) {
		kernel.RegisterGeUser(tm, ge.NewQueue(tm.Memory()))
	})
	h.start(t, "main", 0x20)
	h.run(t)
	assert.Equal(t, kernel.ErrInvalidID.Code(), h.word(t, "result", 0))
	assert.Equal(t, uint32(0x80000100), h.word(t, "result", 4))
}
