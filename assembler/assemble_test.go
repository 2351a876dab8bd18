package assembler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
)

func TestProgramIType(t *testing.T) {
	source := `
	.text
		addiu $t0, $zero, 1
		addiu $t1, $zero, -2
	`
	expected := []uint32{
		0x24080001,
		0x2409FFFE,
	}

	program := assembler.Assemble(source)
	validateResult(t, program, expected, nil, nil)
}

func TestProgramBranchesAndLabels(t *testing.T) {
	source := `
	.text
		label1: addiu $t0, $zero, 1
		addiu $t1, $zero, 2
		beq $t0, $t1, label1 # should evaluate to -3 words
		nop
	`

	expected := []uint32{
		0x24080001,
		0x24090002,
		0x1109FFFD,
		0x00000000,
	}

	program := assembler.Assemble(source)
	validateResult(t, program, expected, nil, nil)
}

func TestProgramJumps(t *testing.T) {
	source := `
	.text
		jal label1
		nop
		addiu $t1, $zero, 2
		label1: jr $ra
		nop
	`

	expected := []uint32{
		0x0E201003,
		0x00000000,
		0x24090002,
		0x03E00008,
		0x00000000,
	}

	program := assembler.Assemble(source)
	validateResult(t, program, expected, nil, nil)
}

func TestLoadImmediateSizes(t *testing.T) {
	source := `
	.text
		li $t0, 0x12345678
		li $t1, -1
		li $t2, 0xFFFF
		li $t3, 0x10000
	`

	expected := []uint32{
		0x3C081234,
		0x35085678,
		0x2409FFFF,
		0x340AFFFF,
		0x3C0B0001,
	}

	program := assembler.Assemble(source)
	validateResult(t, program, expected, nil, nil)
}

func TestBitFields(t *testing.T) {
	source := `
	.text
		ext $t0, $t1, 4, 8
	`

	program := assembler.Assemble(source)
	validateResult(t, program, []uint32{0x7D283900}, nil, nil)
}

func TestDataWord(t *testing.T) {
	source := `
	.data
	MyWord: .word 0x12345678
	`

	expectedText := []uint32{}
	expectedData := []uint32{0x12345678}

	program := assembler.Assemble(source)
	validateResult(t, program, expectedText, expectedData, nil)
}

func TestDataString(t *testing.T) {
	source := `
	.data
	MyString: .asciiz "Hello World!"
	`

	expectedText := []uint32{}
	expectedData := []uint32{0x6c6c6548, 0x6f57206f, 0x21646c72, 0x00000000}

	program := assembler.Assemble(source)
	validateResult(t, program, expectedText, expectedData, nil)
}

func TestDataInProgram(t *testing.T) {
	source := `
	.data
	MyWord: .word 0x12345678
	.text
	main:
	la $t0, MyWord
	lw $t1, 0($t0)
	`

	expectedText := []uint32{
		0x3C080880,
		0x35084010,
		0x8D090000,
	}

	expectedData := []uint32{0x12345678}

	program := assembler.Assemble(source)
	validateResult(t, program, expectedText, expectedData, nil)

	assert.Equal(t, uint32(0x08804010), program.DataBase)
	assert.Equal(t, uint32(0x08804010), program.Labels["MyWord"])
	assert.Equal(t, uint32(0x08804000), program.Entry)
	assert.Equal(t, 6, program.AddressToLine[0x08804008])
}

func TestImmediateOverflow(t *testing.T) {
	source := "\n\taddiu $t0, $zero, 70000\n"

	expectedDiagnostics := []assembler.Diagnostic{
		{
			Range: assembler.TextRange{
				Start: assembler.TextPosition{Line: 1, Char: 19},
				End:   assembler.TextPosition{Line: 1, Char: 24},
			},
			Message:  "Immediate value \"70000\" is out of range of 16 bits [-32768, 32768)",
			Severity: assembler.Error,
		},
	}

	program := assembler.Assemble(source)
	validateResult(t, program, []uint32{0}, nil, expectedDiagnostics)
	assert.True(t, program.HasErrors())
}

func TestUnresolvedLabel(t *testing.T) {
	program := assembler.Assemble("j nowhere\nnop")

	require.Len(t, program.Diagnostics, 1)
	assert.Equal(t, "Unresolved symbol name: \"nowhere\"", program.Diagnostics[0].Message)
	assert.Equal(t, 0, program.Diagnostics[0].Range.Start.Line)
	assert.Equal(t, 2, program.Diagnostics[0].Range.Start.Char)
	// layout is kept so the following instruction stays in place
	assert.Len(t, program.ProgramText, 2)
}

func TestBranchInDelaySlotWarns(t *testing.T) {
	program := assembler.Assemble("a: b a\nb a\nnop")

	require.Len(t, program.Diagnostics, 1)
	assert.Equal(t, assembler.Warning, program.Diagnostics[0].Severity)
	assert.False(t, program.HasErrors())
}

func TestCustomTextBase(t *testing.T) {
	program := assembler.AssembleWithConfig("nop\n_start: jr $ra\nnop", assembler.AssemblerConfig{TextBase: 0x08900000})

	require.Empty(t, program.Diagnostics)
	assert.Equal(t, uint32(0x08900004), program.Entry)
	assert.Equal(t, uint32(0x08900010), program.DataBase)
}

func TestHover(t *testing.T) {
	program := assembler.Assemble("loop: addiu $sp, $sp, -16 # grow\nb loop\nnop")

	info, ok := program.EvaluateHover(assembler.TextPosition{Line: 0, Char: 7})
	require.True(t, ok)
	assert.Contains(t, info, "Addition Immediate Unsigned")

	info, ok = program.EvaluateHover(assembler.TextPosition{Line: 0, Char: 13})
	require.True(t, ok)
	assert.Contains(t, info, "Stack pointer")

	info, ok = program.EvaluateHover(assembler.TextPosition{Line: 1, Char: 3})
	require.True(t, ok)
	assert.Contains(t, info, "0x08804000")

	_, ok = program.EvaluateHover(assembler.TextPosition{Line: 0, Char: 28})
	assert.False(t, ok, "comments have no hover")
}

func validateResult(t *testing.T, program *assembler.AssembledResult, expectedText []uint32, expectedData []uint32, expectedDiagnostics []assembler.Diagnostic) {
	if len(program.Diagnostics) != len(expectedDiagnostics) {
		t.Fatalf("Expected %d diagnostics, got %d (%v)", len(expectedDiagnostics), len(program.Diagnostics), program.Diagnostics)
	}

	for i, diagnostic := range program.Diagnostics {
		if diagnostic.Severity != expectedDiagnostics[i].Severity {
			t.Errorf("Expected diagnostic %d to have severity %d, got %d", i, expectedDiagnostics[i].Severity, diagnostic.Severity)
		}

		if diagnostic.Range.Start.Line != expectedDiagnostics[i].Range.Start.Line {
			t.Errorf("Expected diagnostic %d to start on line %d, got %d", i, expectedDiagnostics[i].Range.Start.Line, diagnostic.Range.Start.Line)
		}

		if diagnostic.Range.Start.Char != expectedDiagnostics[i].Range.Start.Char {
			t.Errorf("Expected diagnostic %d to start on char %d, got %d", i, expectedDiagnostics[i].Range.Start.Char, diagnostic.Range.Start.Char)
		}

		if diagnostic.Range.End.Line != expectedDiagnostics[i].Range.End.Line {
			t.Errorf("Expected diagnostic %d to end on line %d, got %d", i, expectedDiagnostics[i].Range.End.Line, diagnostic.Range.End.Line)
		}

		if diagnostic.Range.End.Char != expectedDiagnostics[i].Range.End.Char {
			t.Errorf("Expected diagnostic %d to end on char %d, got %d", i, expectedDiagnostics[i].Range.End.Char, diagnostic.Range.End.Char)
		}

		if diagnostic.Message != expectedDiagnostics[i].Message {
			t.Errorf("Expected diagnostic %d to be \"%s\", got \"%s\"", i, expectedDiagnostics[i].Message, diagnostic.Message)
		}
	}

	if len(program.ProgramText) != len(expectedText) {
		t.Fatalf("Expected %d instructions, got %d", len(expectedText), len(program.ProgramText))
	}

	if len(program.ProgramData) != len(expectedData) {
		t.Fatalf("Expected %d data words, got %d", len(expectedData), len(program.ProgramData))
	}

	for i, instruction := range program.ProgramText {
		if instruction != expectedText[i] {
			t.Errorf("Expected instruction %d to be 0x%08x, got 0x%08x", i, expectedText[i], instruction)
		}
	}

	for i, data := range program.ProgramData {
		if data != expectedData[i] {
			t.Errorf("Expected data word %d to be 0x%08x, got 0x%08x", i, expectedData[i], data)
		}
	}
}
