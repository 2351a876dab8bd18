package emulator_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
)

// loadProgram assembles source into a fresh address space and points a
// context at its entry.
func loadProgram(t *testing.T, source string) (*emulator.Interpreter, *emulator.CpuContext) {
	t.Helper()
	program := assembler.Assemble(source)
	if program.HasErrors() {
		t.Fatalf("program did not assemble: %v", program.Diagnostics)
	}

	mem := emulator.NewAddressSpace(emulator.DefaultMemoryConfig())
	require.NoError(t, mem.WriteWords(program.TextBase, program.ProgramText))
	require.NoError(t, mem.WriteWords(program.DataBase, program.ProgramData))

	c := emulator.NewCpuContext()
	c.Jump(program.Entry)
	c.SetGpr(emulator.RegSP, 0x09FFFF00)
	return emulator.NewInterpreter(mem), c
}

func run(t *testing.T, inst *emulator.Interpreter, c *emulator.CpuContext) emulator.Signal {
	t.Helper()
	_, sig, err := inst.Run(c, 1000)
	require.NoError(t, err)
	return sig
}

func TestZeroRegisterIgnoresWrites(t *testing.T) {
	inst, c := loadProgram(t, `
		addiu $zero, $zero, 5
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(0), c.Gpr(emulator.RegZero))
}

func TestAddImmediateNegative(t *testing.T) {
	inst, c := loadProgram(t, `
		addiu $t0, $zero, -1
		addiu $t1, $t0, 1
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(0xFFFFFFFF), c.Gpr(emulator.RegT0))
	assert.Equal(t, uint32(0), c.Gpr(emulator.RegT0+1))
}

func TestDecodeFields(t *testing.T) {
	tests := []struct {
		name   string
		word   uint32
		op     emulator.Op
		rs     int
		rt     int
		rd     int
		sa     int
		imm    uint16
		target uint32
		code   uint32
	}{
		{"addiu $t0, $sp, -16", 0x27A8FFF0, emulator.OpADDIU, 29, 8, 31, 31, 0xFFF0, 0x3A8FFF0, 0xEA3FF},
		{"addu $v0, $a0, $a1", 0x00851021, emulator.OpADDU, 4, 5, 2, 0, 0x1021, 0x0851021, 0x21440},
		{"sll $t1, $t2, 3", 0x000A48C0, emulator.OpSLL, 0, 10, 9, 3, 0x48C0, 0x00A48C0, 0x02923},
		{"movz $t0, $t1, $t2", 0x012A400A, emulator.OpMOVZ, 9, 10, 8, 0, 0x400A, 0x12A400A, 0x4A900},
		{"lw $ra, 20($sp)", 0x8FBF0014, emulator.OpLW, 29, 31, 0, 0, 0x0014, 0x3BF0014, 0xEFC00},
		{"beq $zero, $zero, -1", 0x1000FFFF, emulator.OpBEQ, 0, 0, 31, 31, 0xFFFF, 0x000FFFF, 0x003FF},
		{"jal 0x08804000", 0x0E201000, emulator.OpJAL, 17, 0, 2, 0, 0x1000, 0x2201000, 0x88040},
		{"syscall 0x2001", 0x0008004C, emulator.OpSYSCALL, 0, 8, 0, 1, 0x004C, 0x008004C, 0x02001},
		{"break 7", 0x000001CD, emulator.OpBREAK, 0, 0, 0, 7, 0x01CD, 0x00001CD, 0x00007},
		{"reserved opcode 0x13", 0x4C001234, emulator.OpInvalid, 0, 0, 2, 8, 0x1234, 0x0001234, 0x00048},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := emulator.Decode(tt.word)
			assert.Equal(t, tt.op, d.Op)
			assert.Equal(t, tt.word, d.Word)
			assert.Equal(t, tt.rs, d.Rs, "rs")
			assert.Equal(t, tt.rt, d.Rt, "rt")
			assert.Equal(t, tt.rd, d.Rd, "rd")
			assert.Equal(t, tt.sa, d.Sa, "sa")
			assert.Equal(t, tt.imm, d.Imm, "imm")
			assert.Equal(t, tt.target, d.Target, "target")
			assert.Equal(t, tt.code, d.Code, "code")
		})
	}
}

func TestConditionalMoves(t *testing.T) {
	inst, c := loadProgram(t, `
		li $t1, 0x1234
		li $t2, 0
		li $t3, 7
		li $s0, 0xAAAA
		li $s1, 0xBBBB
		li $s2, 0xCCCC
		li $s3, 0xDDDD
		movz $s0, $t1, $t2
		movz $s1, $t1, $t3
		movn $s2, $t1, $t3
		movn $s3, $t1, $t2
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(0x1234), c.Gpr(16), "movz taken")
	assert.Equal(t, uint32(0xBBBB), c.Gpr(17), "movz untaken leaves rd")
	assert.Equal(t, uint32(0x1234), c.Gpr(18), "movn taken")
	assert.Equal(t, uint32(0xDDDD), c.Gpr(19), "movn untaken leaves rd")
	assert.Equal(t, uint32(0x1234), c.Gpr(9))
	assert.Equal(t, uint32(0), c.Gpr(10))
	assert.Equal(t, uint32(7), c.Gpr(11))
}

func TestInstructionCounter(t *testing.T) {
	inst, c := loadProgram(t, `
		mtic $zero
		nop
		nop
		mfic $t0
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(3), c.Gpr(emulator.RegT0), "mfic counts itself")
	assert.Equal(t, uint32(4), c.IC)
}

func TestSetLessThan(t *testing.T) {
	inst, c := loadProgram(t, `
		addiu $t0, $zero, -1
		addiu $t1, $zero, 1
		slt $t2, $t0, $t1
		sltu $t3, $t0, $t1
		sltiu $t4, $t1, -1
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(1), c.Gpr(10), "signed -1 < 1")
	assert.Equal(t, uint32(0), c.Gpr(11), "unsigned 0xFFFFFFFF > 1")
	assert.Equal(t, uint32(1), c.Gpr(12), "sltiu compares against the sign extended immediate")
}

func TestMultiplyAndDivide(t *testing.T) {
	inst, c := loadProgram(t, `
		addiu $t0, $zero, -1
		mult $t0, $t0
		mfhi $t1
		mflo $t2
		addiu $t3, $zero, -7
		addiu $t4, $zero, 2
		div $t3, $t4
		mflo $t5
		mfhi $t6
		div $t3, $zero
		mflo $t7
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(0), c.Gpr(9))
	assert.Equal(t, uint32(1), c.Gpr(10))
	assert.Equal(t, uint32(0xFFFFFFFD), c.Gpr(13), "-7 / 2 truncates to -3")
	assert.Equal(t, uint32(0xFFFFFFFF), c.Gpr(14), "remainder keeps the dividend sign")
	assert.Equal(t, uint32(1), c.Gpr(15), "negative dividend over zero gives LO 1")
	assert.Equal(t, uint32(0xFFFFFFF9), c.HI)
}

func TestDelaySlotExecutes(t *testing.T) {
	inst, c := loadProgram(t, `
	main:
		addiu $t0, $zero, 1
		beq $zero, $zero, target
		addiu $t1, $zero, 2
		addiu $t2, $zero, 3
	target:
		addiu $t3, $zero, 4
		break 0x10
	`)
	sig := run(t, inst, c)

	assert.Equal(t, emulator.SignalBreak, sig.Kind)
	assert.Equal(t, uint32(0x10), sig.Code)
	assert.Equal(t, uint32(2), c.Gpr(9), "delay slot runs")
	assert.Equal(t, uint32(0), c.Gpr(10), "skipped instruction")
	assert.Equal(t, uint32(4), c.Gpr(11))
	assert.Equal(t, sig.PC, c.PC, "break leaves PC on itself")
}

func TestLikelyBranchAnnulsDelaySlot(t *testing.T) {
	inst, c := loadProgram(t, `
		addiu $t0, $zero, 1
		beql $t0, $zero, skip
		addiu $t1, $zero, 5
		addiu $t2, $zero, 6
	skip:
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(0), c.Gpr(9))
	assert.Equal(t, uint32(6), c.Gpr(10))
}

func TestJumpAndLink(t *testing.T) {
	inst, c := loadProgram(t, `
	main:
		jal double
		addiu $a0, $zero, 7
		break 1
	double:
		jr $ra
		addu $v0, $a0, $a0
	`)
	entry := c.PC
	sig := run(t, inst, c)

	assert.Equal(t, uint32(1), sig.Code)
	assert.Equal(t, uint32(14), c.Gpr(emulator.RegV0))
	assert.Equal(t, entry+8, c.Gpr(emulator.RegRA))
}

func TestSyscallSignalAdvancesPC(t *testing.T) {
	inst, c := loadProgram(t, `
		syscall 0x2000
		break
	`)
	start := c.PC
	sig, err := inst.Step(c)
	require.NoError(t, err)

	assert.Equal(t, emulator.SignalSyscall, sig.Kind)
	assert.Equal(t, uint32(0x2000), sig.Code)
	assert.Equal(t, start, sig.PC)
	assert.Equal(t, start+4, c.PC)
}

func TestUnalignedLoadStore(t *testing.T) {
	inst, c := loadProgram(t, `
	.data
	buf: .word 0x44332211, 0x88776655
	.text
	main:
		la $t0, buf
		lwr $t1, 1($t0)
		lwl $t1, 4($t0)
		break
	`)
	run(t, inst, c)
	assert.Equal(t, uint32(0x55443322), c.Gpr(9))
}

func TestUnimplementedInstruction(t *testing.T) {
	inst, c := loadProgram(t, `
		nop
		.word 0x70000000
	`)
	_, _, err := inst.Run(c, 10)

	var unimpl *emulator.UnimplementedInstruction
	require.True(t, errors.As(err, &unimpl), "got %v", err)
	assert.Equal(t, uint32(0x70000000), unimpl.Word)
	assert.Equal(t, uint32(0x08804004), unimpl.PC)
}

func TestAddressFault(t *testing.T) {
	inst, c := loadProgram(t, `
		lw $t0, 0($zero)
	`)
	_, _, err := inst.Run(c, 10)

	var fault *emulator.AddressFault
	require.True(t, errors.As(err, &fault), "got %v", err)
	assert.Equal(t, uint32(0), fault.Addr)
	assert.Equal(t, emulator.AccessRead, fault.Kind)
	assert.Equal(t, uint32(0x08804000), fault.PC)
}

func TestUnalignedWordFaults(t *testing.T) {
	inst, c := loadProgram(t, `
		li $t0, 0x08900002
		sw $t1, 0($t0)
	`)
	_, _, err := inst.Run(c, 10)

	var fault *emulator.AddressFault
	require.True(t, errors.As(err, &fault))
	assert.True(t, fault.Unaligned)
	assert.Equal(t, emulator.AccessWrite, fault.Kind)
}

func TestFloatingPoint(t *testing.T) {
	inst, c := loadProgram(t, `
		li $t0, 3
		mtc1 $t0, $f0
		cvt.s.w $f0, $f0
		add.s $f1, $f0, $f0
		c.lt.s $f0, $f1
		bc1t less
		nop
		break 1
	less:
		trunc.w.s $f2, $f1
		mfc1 $t1, $f2
		break 2
	`)
	sig := run(t, inst, c)

	assert.Equal(t, uint32(2), sig.Code)
	assert.Equal(t, float32(6), c.Fpr(1))
	assert.Equal(t, uint32(6), c.Gpr(9))
}

func TestBreakpointStopsRun(t *testing.T) {
	inst, c := loadProgram(t, `
		addiu $t0, $zero, 1
		addiu $t0, $t0, 1
		addiu $t0, $t0, 1
		break
	`)
	inst.AddBreakpoint(emulator.Breakpoint{ID: 3, Addr: 0x08804008, Condition: "t0 == 2"})

	sig := run(t, inst, c)
	assert.Equal(t, emulator.SignalBreakpoint, sig.Kind)
	assert.Equal(t, uint32(3), sig.Code)
	assert.Equal(t, uint32(2), c.Gpr(emulator.RegT0))

	// running again stops on the same breakpoint, resuming makes progress
	n, sig, err := inst.Run(c, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, emulator.SignalBreakpoint, sig.Kind)

	_, sig, err = inst.Resume(c, 1000)
	require.NoError(t, err)
	assert.Equal(t, emulator.SignalBreak, sig.Kind)
	assert.Equal(t, uint32(3), c.Gpr(emulator.RegT0))
}

func TestRegisterLookup(t *testing.T) {
	c := emulator.NewCpuContext()
	for _, name := range []string{"a0", "$a0", "r4", "4"} {
		id, ok := emulator.LookupRegister(name)
		require.True(t, ok, name)
		id.Set(c, 0x1234)
		assert.Equal(t, "a0", id.Name())
	}
	assert.Equal(t, uint32(0x1234), c.Gpr(emulator.RegA0))

	for _, name := range []string{"nope", "32", "$r32", "-1", "f32"} {
		_, ok := emulator.LookupRegister(name)
		assert.False(t, ok, name)
	}
}

func TestTrampolines(t *testing.T) {
	mem := emulator.NewAddressSpace(emulator.DefaultMemoryConfig())
	tramp, err := mem.InstallTrampolines()
	require.NoError(t, err)

	inst := emulator.NewInterpreter(mem)
	c := emulator.NewCpuContext()
	c.Jump(tramp.ThreadExitKill)
	sig, err := inst.Step(c)
	require.NoError(t, err)
	assert.Equal(t, emulator.SignalBreak, sig.Kind)
	assert.Equal(t, uint32(emulator.BreakThreadExitKill), sig.Code)
}
