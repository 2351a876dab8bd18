package assembler

import (
	"errors"
	"fmt"
)

// AdjustRange trims spaces off text and moves the range to match.
func AdjustRange(r TextRange, text string) (TextRange, string) {
	for len(text) > 0 && text[0] == ' ' {
		text = text[1:]
		r.Start.Char++
	}
	for len(text) > 0 && text[len(text)-1] == ' ' {
		text = text[:len(text)-1]
		r.End.Char--
	}
	return r, text
}

func diagnostic(severity DiagnosticSeverity, r TextRange, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Range:    r,
		Message:  fmt.Sprintf(format, args...),
		Source:   "Assembler",
		Severity: severity,
	}
}

// diagnosticOn points at subject within r and quotes it in the message.
func diagnosticOn(severity DiagnosticSeverity, r TextRange, subject, format string) Diagnostic {
	r, subject = AdjustRange(r, subject)
	return diagnostic(severity, r, format, subject)
}

type assemblyError struct{}

var Errors assemblyError

func (assemblyError) InvalidDataSectionValue(value string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, value, "Invalid data section value: %q")
}

func (assemblyError) InvalidDataSection(sectionType string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, sectionType, "Invalid data section: %q")
}

func (assemblyError) InvalidSymbolName(symbolName, context string, r TextRange) Diagnostic {
	r, symbolName = AdjustRange(r, symbolName)
	return diagnostic(Error, r, "Invalid symbol name: %q, %s", symbolName, context)
}

func (assemblyError) UnresolvedSymbolName(symbolName string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, symbolName, "Unresolved symbol name: %q")
}

func (assemblyError) InvalidIntegerLiteral(literal string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, literal, "Expected integer literal, got: %q")
}

func (assemblyError) InvalidRegister(register string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, register, "Expected register, got: %q")
}

func (assemblyError) ImmediateOverflow(value string, bits int, r TextRange) Diagnostic {
	r, value = AdjustRange(r, value)
	half := int64(1) << (bits - 1)
	return diagnostic(Error, r, "Immediate value %q is out of range of %d bits [-%d, %d)", value, bits, half, half)
}

func (assemblyError) UnsignedImmediateOverflow(value string, bits int, r TextRange) Diagnostic {
	r, value = AdjustRange(r, value)
	return diagnostic(Error, r, "Immediate value %q is too large. Must be less than %d bits (%d)", value, bits, int64(1)<<bits)
}

func (assemblyError) InvalidInstructionFormat(format string, opcode string, r TextRange) Diagnostic {
	return diagnostic(Error, r, "Invalid instruction format for %s\nFormat: %s", opcode, format)
}

func (assemblyError) JumpOutOfRegion(label string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, label, "Jump target %q is outside the current 256MB region")
}

func (assemblyError) InvalidInstruction(instruction string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, instruction, "Invalid instruction: %q")
}

func (assemblyError) InvalidExpression(expression string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, expression, "Invalid expression: %q")
}

func (assemblyError) AnonymousError(message string, r TextRange) Diagnostic {
	return diagnostic(Error, r, "%s", message)
}

func (assemblyError) LabelTooFar(label string, r TextRange) Diagnostic {
	return diagnosticOn(Error, r, label, "Label %q is too far away and the branch offset overflows. Use j or jal instead")
}

type assemblyWarning struct{}

var Warnings assemblyWarning

func (assemblyWarning) BranchInDelaySlot(r TextRange) Diagnostic {
	return diagnostic(Warning, r, "Branch or jump placed in the delay slot of another branch")
}

func (assemblyWarning) UnintendedSignExtension(value string, r TextRange) Diagnostic {
	return diagnosticOn(Warning, r, value, "Possible unintended sign extension of %q")
}

func (assemblyWarning) ExplicitNumberLiteralForLabel(r TextRange) Diagnostic {
	return diagnostic(Warning, r, "Explicit number literal used instead of label")
}

func (assemblyWarning) LabelUsedForNumberLiteral(r TextRange) Diagnostic {
	return diagnostic(Warning, r, "Label used instead of numeric literal for instructions expecting a numeric literal")
}

// EvaluationError is why an operand expression could not be evaluated.
type EvaluationError struct {
	Kind       EvaluationErrorKind
	Expression string
}

type EvaluationErrorKind int

const (
	UnresolvedSymbol EvaluationErrorKind = iota
	InvalidNumberLiteral
	InvalidExpression
	ImmOverflow
)

func (e *EvaluationError) Error() string {
	switch e.Kind {
	case UnresolvedSymbol:
		return "Unresolved symbol: " + e.Expression
	case InvalidNumberLiteral:
		return "Invalid number literal: " + e.Expression
	case ImmOverflow:
		return "Immediate overflow: " + e.Expression
	}
	return "Invalid expression: " + e.Expression
}

type evaluationErrors struct{}

var EvaluationErrors evaluationErrors

func (evaluationErrors) ImmOverflow(expression string) error {
	return &EvaluationError{Kind: ImmOverflow, Expression: expression}
}

func (evaluationErrors) InvalidExpression(expression string) error {
	return &EvaluationError{Kind: InvalidExpression, Expression: expression}
}

func (evaluationErrors) UnresolvedSymbol(symbolName string) error {
	return &EvaluationError{Kind: UnresolvedSymbol, Expression: symbolName}
}

func (evaluationErrors) InvalidNumberLiteral(expression string) error {
	return &EvaluationError{Kind: InvalidNumberLiteral, Expression: expression}
}

func isEvaluationError(err error, kind EvaluationErrorKind) bool {
	var e *EvaluationError
	return errors.As(err, &e) && e.Kind == kind
}

func (evaluationErrors) IsImmOverflowError(err error) bool {
	return isEvaluationError(err, ImmOverflow)
}

func (evaluationErrors) IsUnresolvedSymbolError(err error) bool {
	return isEvaluationError(err, UnresolvedSymbol)
}

func (evaluationErrors) IsInvalidNumberLiteralError(err error) bool {
	return isEvaluationError(err, InvalidNumberLiteral)
}

func (evaluationErrors) IsInvalidExpressionError(err error) bool {
	return isEvaluationError(err, InvalidExpression)
}
