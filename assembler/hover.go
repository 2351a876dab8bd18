package assembler

import (
	"fmt"
	"strconv"
	"strings"
)

var hoverInfoFormats = struct {
	labelDefinition string
	labelReference  string
	integerLiteral  string
	floatRegister   string
}{
	labelDefinition: "Definition of label `%s`.\n\n %s of 0x%08X",
	labelReference:  "Reference to label `%s`\n\nEvaluates to `0x%08X`",
	integerLiteral:  "Integer Literal `%d` (`%s`)",
	floatRegister:   "Floating Point Register `$f%d`. 32-Bit single precision",
}

var registerDescriptions = map[int]string{
	0:  "Always evaluates to `0`",
	1:  "Assembler temporary, clobbered by pseudo instructions",
	2:  "Function return value, and the kernel call result",
	3:  "High word of a 64-bit return value",
	26: "Reserved for the kernel. Points at the thread's kernel block",
	27: "Reserved for the kernel",
	28: "Global pointer, inherited by every created thread",
	29: "Stack pointer. Contains the address of the top of the stack",
	30: "Frame pointer (also `s8`)",
	31: "Return address of the current function",
}

var registerNames = []string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

func getHoverInfoForRegister(register int) string {
	text := fmt.Sprintf("Register `$%s` (`$%d`). 32-Bit General Purpose Register", registerNames[register], register)
	if desc, ok := registerDescriptions[register]; ok {
		text += "\n\n" + desc
	}
	switch {
	case register >= 4 && register <= 7:
		text += "\n\nArgument register, also used for kernel call arguments"
	case register >= 8 && register <= 11:
		text += "\n\nTemporary, carries kernel call arguments 5 to 8"
	}
	return text
}

func (a *AssembledResult) labelAtLine(line int) (string, bool) {
	for k, v := range a.LabelToLineNumber {
		if v == line {
			return k, true
		}
	}
	return "", false
}

// EvaluateHover returns markdown describing whatever is under position, and
// false if there is nothing to show.
func (a *AssembledResult) EvaluateHover(position TextPosition) (string, bool) {
	if position.Line < 0 || position.Line >= len(a.fileContents) {
		return "", false
	}
	line := stripComment(a.fileContents[position.Line])
	if position.Char >= len(line) {
		// past the code, inside a comment or trailing space
		return "", false
	}

	if position.Char < a.lineLengthDeltas[position.Line] {
		// the hover is over a label definition
		label, ok := a.labelAtLine(position.Line)
		if !ok {
			return "", false
		}
		labelValueType := "Data address"
		if a.LabelTypes[label] == "text" {
			labelValueType = "Address"
		}
		return fmt.Sprintf(hoverInfoFormats.labelDefinition, label, labelValueType, a.Labels[label]), true
	}

	var sl *sourceLine
	for i := range a.lines {
		if a.lines[i].lineNum == position.Line {
			sl = &a.lines[i]
			break
		}
	}
	if sl == nil || position.Char < sl.diff {
		return "", false
	}

	if position.Char < sl.diff+len(sl.mnemonic) {
		desc := DescribeInstruction(sl.mnemonic)
		return desc, desc != ""
	}

	for _, op := range sl.operands {
		if position.Char < op.pos || position.Char > op.pos+len(op.text) {
			continue
		}
		text := op.text
		// for memory operands pick the part inside or before the parentheses
		if open := strings.Index(text, "("); open != -1 {
			if position.Char > op.pos+open {
				text = strings.Trim(text[open:], "() ")
			} else {
				text = strings.TrimSpace(text[:open])
			}
		}
		return a.hoverForOperand(text)
	}
	return "", false
}

func (a *AssembledResult) hoverForOperand(text string) (string, bool) {
	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "$f") && !strings.HasPrefix(lower, "$fp") {
		if n, err := strconv.Atoi(lower[2:]); err == nil && n < 32 {
			return fmt.Sprintf(hoverInfoFormats.floatRegister, n), true
		}
	}

	evRes, err := a.Evaluate(text, 32, false)
	if err != nil {
		evRes, err = a.Evaluate(text, 32, true)
		if err != nil {
			return "", false
		}
	}

	switch evRes.Type {
	case EvaluationTypeLabel:
		return fmt.Sprintf(hoverInfoFormats.labelReference, evRes.MatchedValue, uint32(evRes.Value)), true
	case EvaluationTypeIntegerLiteral, EvaluationTypeUnsignedIntegerLiteral:
		return fmt.Sprintf(hoverInfoFormats.integerLiteral, evRes.Value, "0x"+strconv.FormatUint(uint64(evRes.Value)&0xFFFFFFFF, 16)), true
	case EvaluationTypeRegister:
		return getHoverInfoForRegister(int(evRes.Value)), true
	}
	return "", false
}
