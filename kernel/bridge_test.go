package kernel_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

func TestLongArgumentUsesAlignedPair(t *testing.T) {
	var gotInt int32
	var gotLong int64
	h := newHarness(t, `
	.data
	result: .word 0, 0
	.text
	main:
		li $a0, 5
		li $a1, 0x7777
		li $a2, 0x11111111
		li $a3, 0x22222222
		jal testLong
		nop
		la $t0, result
		sw $v0, 0($t0)
		sw $v1, 4($t0)
		jal sceKernelExitThread
		li $a0, 0
	`, func(tm *kernel.ThreadManager) {
		tm.Bridge().RegisterLong("Test", "testLong", 0x10000001, func(c *kernel.Call) (int64, error) {
			gotInt = c.Int()
			gotLong = c.Long()
			return gotLong + int64(gotInt), nil
		})
	})
	h.start(t, "main", 0x20)
	h.run(t)

	assert.Equal(t, int32(5), gotInt)
	assert.Equal(t, int64(0x2222222211111111), gotLong, "$a1 is skipped to align the pair")
	assert.Equal(t, uint32(0x11111116), h.word(t, "result", 0))
	assert.Equal(t, uint32(0x22222222), h.word(t, "result", 4))
}

func TestStackArguments(t *testing.T) {
	var got []int32
	h := newHarness(t, `
	.data
	result: .word 0
	.text
	main:
		addiu $sp, $sp, -16
		li $t4, 9
		sw $t4, 0($sp)
		li $t4, 10
		sw $t4, 4($sp)
		li $a0, 1
		li $a1, 2
		li $a2, 3
		li $a3, 4
		li $t0, 5
		li $t1, 6
		li $t2, 7
		jal sum10
		li $t3, 8
		addiu $sp, $sp, 16
		la $t0, result
		sw $v0, 0($t0)
		jal sceKernelExitThread
		li $a0, 0
	`, func(tm *kernel.ThreadManager) {
		tm.Bridge().RegisterInt("Test", "sum10", 0x10000002, func(c *kernel.Call) (int32, error) {
			var sum int32
			for i := 0; i < 10; i++ {
				v := c.Int()
				got = append(got, v)
				sum += v
			}
			return sum, nil
		})
	})
	h.start(t, "main", 0x20)
	h.run(t)

	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
	assert.Equal(t, uint32(55), h.word(t, "result", 0))
}

func TestKernelErrorGoesToV0(t *testing.T) {
	h := newHarness(t, `
	.data
	result: .word 0
	.text
	main:
		li $a0, 12345
		jal sceKernelDeleteThread
		nop
		la $t0, result
		sw $v0, 0($t0)
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.start(t, "main", 0x20)
	h.run(t)
	assert.Equal(t, uint32(0x80020198), h.word(t, "result", 0))
}

func TestFatalNativeErrorStopsTheSlice(t *testing.T) {
	h := newHarness(t, `
	main:
		jal broken
		nop
		jal sceKernelExitThread
		li $a0, 0
	`, func(tm *kernel.ThreadManager) {
		tm.Bridge().RegisterVoid("Test", "broken", 0x10000003, func(c *kernel.Call) error {
			return errors.New("host failure")
		})
	})
	th := h.start(t, "main", 0x20)
	res, err := h.tm.Step()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Test:broken: host failure")
	assert.Equal(t, th, res.Thread)
}

func TestUnknownSyscall(t *testing.T) {
	h := newHarness(t, `
	main:
		syscall 0x7FFF
		nop
	`)
	h.start(t, "main", 0x20)
	_, err := h.tm.Step()

	var unknown *kernel.UnknownSyscall
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, uint32(0x7FFF), unknown.Code)
	assert.Equal(t, h.label(t, "main"), unknown.PC)
}

func TestImportStubs(t *testing.T) {
	h := newHarness(t, `
	main:
		jr $ra
		nop
	`)
	b := h.tm.Bridge()
	fn, ok := b.LookupName("sceKernelCreateThread")
	require.True(t, ok)
	assert.Equal(t, uint32(0x446D8DE6), fn.NID)
	assert.GreaterOrEqual(t, fn.Syscall, uint32(kernel.FirstSyscall))

	byNID, ok := b.Lookup(0x446D8DE6)
	require.True(t, ok)
	assert.Same(t, fn, byNID)

	stub, err := b.ImportStub(fn.NID)
	require.NoError(t, err)
	assert.Equal(t, assembler.MakeJumpRegisterInstruction(emulator.RegRA), stub[0])
	assert.Equal(t, assembler.MakeSyscallInstruction(fn.Syscall), stub[1])

	_, err = b.ImportStub(0xDEADBEEF)
	assert.Error(t, err)

	functions := b.Functions()
	for i := 1; i < len(functions); i++ {
		assert.Less(t, functions[i-1].Syscall, functions[i].Syscall)
	}
}

func TestSystemTimeWide(t *testing.T) {
	h := newHarness(t, `
	.data
	result: .word 0, 0
	.text
	main:
		jal sceKernelGetSystemTimeWide
		nop
		la $t0, result
		sw $v0, 0($t0)
		sw $v1, 4($t0)
		jal sceKernelExitThread
		li $a0, 0
	`)
	h.clock.Advance(0x100000002)
	h.start(t, "main", 0x20)
	h.run(t)
	assert.Equal(t, uint32(2), h.word(t, "result", 0))
	assert.Equal(t, uint32(1), h.word(t, "result", 4))
}
