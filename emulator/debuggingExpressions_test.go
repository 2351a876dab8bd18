package emulator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
)

func TestEvaluateExpression(t *testing.T) {
	mem := emulator.NewAddressSpace(emulator.DefaultMemoryConfig())
	require.NoError(t, mem.Write32(0x08900000, 0xDEADBEEF))

	c := emulator.NewCpuContext()
	c.SetGpr(emulator.RegA0, 0x08900000)
	c.SetGpr(emulator.RegA1, 0xFFFFFFFF)
	c.SetFpr(12, 1.5)

	cases := []struct {
		expr   string
		typ    int
		value  uint32
		truthy bool
	}{
		{"a0", emulator.EvaluationResultTypeInteger, 0x08900000, true},
		{"mem32(a0)", emulator.EvaluationResultTypeInteger, 0xDEADBEEF, true},
		{"mem8(a0 + 3)", emulator.EvaluationResultTypeInteger, 0xDE, true},
		{"signed(a1)", emulator.EvaluationResultTypeInteger, 0xFFFFFFFF, true},
		{"reg(\"$a0\") == a0", emulator.EvaluationResultTypeBoolean, 0, true},
		{"zero", emulator.EvaluationResultTypeInteger, 0, false},
	}
	for _, tc := range cases {
		res, err := emulator.EvaluateExpression(c, mem, tc.expr)
		require.NoError(t, err, tc.expr)
		assert.Equal(t, tc.typ, res.Type, tc.expr)
		assert.Equal(t, tc.value, res.Value, tc.expr)
		assert.Equal(t, tc.truthy, res.Truthy, tc.expr)
	}

	res, err := emulator.EvaluateExpression(c, mem, "float(f12)")
	require.NoError(t, err)
	assert.Equal(t, emulator.EvaluationResultTypeFloat, res.Type)
	assert.Equal(t, "1.5", res.String)
}

func TestEvaluateExpressionErrors(t *testing.T) {
	mem := emulator.NewAddressSpace(emulator.DefaultMemoryConfig())
	c := emulator.NewCpuContext()

	_, err := emulator.EvaluateExpression(c, mem, "")
	assert.ErrorIs(t, err, emulator.ErrEmptyExpression)

	_, err = emulator.EvaluateExpression(c, mem, "mem32(0)")
	assert.Error(t, err, "reading unmapped memory")

	_, err = emulator.EvaluateExpression(c, mem, "a0 +")
	assert.Error(t, err)

	// the standard library is not loaded
	_, err = emulator.EvaluateExpression(c, mem, "os.exit(1)")
	assert.Error(t, err)
}

func TestDisassemble(t *testing.T) {
	pc := uint32(0x08804000)
	cases := []struct {
		word uint32
		want string
	}{
		{0x00000000, "nop"},
		{0x24080001, "li $t0, 1"},
		{0x2509FFFF, "addiu $t1, $t0, -1"},
		{0x1109FFFD, "beq $t0, $t1, 0x08803FF8"},
		{0x0E201003, "jal 0x0880400C"},
		{0x03E00008, "jr $ra"},
		{0x01004821, "move $t1, $t0"},
		{0x8D090004, "lw $t1, 4($t0)"},
		{0x0000000C, "syscall 0x0"},
		{0x46020800, "add.s $f0, $f1, $f2"},
		{0x7D283900, "ext $t0, $t1, 4, 8"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, emulator.Disassemble(emulator.Decode(tc.word), pc), "0x%08X", tc.word)
	}
}
