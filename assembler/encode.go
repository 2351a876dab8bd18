package assembler

import "strings"

// loadImmediate returns the shortest sequence that puts value into rt.
func loadImmediate(rt, value uint32) []uint32 {
	signed := int32(value)
	switch {
	case signed >= -0x8000 && signed < 0x8000:
		return []uint32{makeITypeInstruction(OPCODE_ADDIU, 0, rt, value)}
	case value <= 0xFFFF:
		return []uint32{makeITypeInstruction(OPCODE_ORI, 0, rt, value)}
	case value&0xFFFF == 0:
		return []uint32{makeITypeInstruction(OPCODE_LUI, 0, rt, value>>16)}
	}
	return loadAddress(rt, value)
}

func loadAddress(rt, value uint32) []uint32 {
	return []uint32{
		makeITypeInstruction(OPCODE_LUI, 0, rt, value>>16),
		makeITypeInstruction(OPCODE_ORI, rt, rt, value&0xFFFF),
	}
}

func (a *AssembledResult) checkOperandCount(sl *sourceLine, format operandFormat, min, max int) bool {
	if len(sl.operands) < min || len(sl.operands) > max {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(
			strings.Replace(formatStrings[format], "<opcode>", sl.mnemonic, 1), sl.mnemonic, a.mnemonicRange(sl)))
		return false
	}
	return true
}

func (a *AssembledResult) parseRegister(sl *sourceLine, op operand) (uint32, bool) {
	if reg, ok := RegisterNameMap[strings.ToLower(op.text)]; ok {
		return uint32(reg), true
	}
	a.Diagnostics = append(a.Diagnostics, Errors.InvalidRegister(op.text, a.operandRange(sl, op)))
	return 0, false
}

// parseIndexedRegister accepts "$f12"/"f12" style names for the given prefix.
func (a *AssembledResult) parseIndexedRegister(sl *sourceLine, op operand, prefixes ...string) (uint32, bool) {
	name := strings.TrimPrefix(strings.ToLower(op.text), "$")
	for _, prefix := range prefixes {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		digits := name[len(prefix):]
		if len(digits) == 0 || len(digits) > 2 {
			break
		}
		n := uint32(0)
		valid := true
		for _, c := range digits {
			if c < '0' || c > '9' {
				valid = false
				break
			}
			n = n*10 + uint32(c-'0')
		}
		if valid && n < 32 {
			return n, true
		}
	}
	a.Diagnostics = append(a.Diagnostics, Errors.InvalidRegister(op.text, a.operandRange(sl, op)))
	return 0, false
}

func (a *AssembledResult) parseFloatRegister(sl *sourceLine, op operand) (uint32, bool) {
	return a.parseIndexedRegister(sl, op, "f")
}

func (a *AssembledResult) parseControlRegister(sl *sourceLine, op operand) (uint32, bool) {
	return a.parseIndexedRegister(sl, op, "fcr", "")
}

func (a *AssembledResult) parseImmediate(sl *sourceLine, op operand, width int, signed bool) (uint32, bool) {
	evalRes, ok := a.EvaluateAndReportErrors(op.text, width, signed, sl.lineNum, op.pos)
	if !ok {
		return 0, false
	}
	switch evalRes.Type {
	case EvaluationTypeRegister:
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidIntegerLiteral(op.text, a.operandRange(sl, op)))
		return 0, false
	case EvaluationTypeLabel:
		if !fitsWidth(evalRes.Value, width, signed) {
			a.Diagnostics = append(a.Diagnostics, Errors.ImmediateOverflow(op.text, width, a.operandRange(sl, op)))
			return 0, false
		}
		a.Diagnostics = append(a.Diagnostics, Warnings.LabelUsedForNumberLiteral(a.operandRange(sl, op)))
	}
	return uint32(evalRes.Value), true
}

// parseMemory parses "imm(base)", "(base)" or a bare offset from $zero.
func (a *AssembledResult) parseMemory(sl *sourceLine, op operand) (offset, base uint32, ok bool) {
	open := strings.Index(op.text, "(")
	if open == -1 {
		offset, ok = a.parseImmediate(sl, op, 16, true)
		return offset, 0, ok
	}
	closing := strings.LastIndex(op.text, ")")
	if closing < open || strings.TrimSpace(op.text[closing+1:]) != "" {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(op.text, a.operandRange(sl, op)))
		return 0, 0, false
	}

	baseText, front := trimAndGetFrontDiffCount(op.text[open+1:closing], " ")
	base, ok = a.parseRegister(sl, operand{text: baseText, pos: op.pos + open + 1 + front})
	if !ok {
		return 0, 0, false
	}
	offsetText := strings.TrimSpace(op.text[:open])
	if offsetText == "" {
		return 0, base, true
	}
	offset, ok = a.parseImmediate(sl, operand{text: offsetText, pos: op.pos}, 16, true)
	return offset, base, ok
}

func (a *AssembledResult) parseBranchTarget(sl *sourceLine, op operand, addr uint32) (uint32, bool) {
	evalRes, ok := a.EvaluateAndReportErrors(op.text, 32, false, sl.lineNum, op.pos)
	if !ok {
		return 0, false
	}
	if evalRes.Type == EvaluationTypeRegister {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(op.text, a.operandRange(sl, op)))
		return 0, false
	}
	if evalRes.Type != EvaluationTypeLabel {
		a.Diagnostics = append(a.Diagnostics, Warnings.ExplicitNumberLiteralForLabel(a.operandRange(sl, op)))
	}

	diff := evalRes.Value - int64(addr+4)
	if diff%4 != 0 || diff < -(1<<17) || diff >= (1<<17) {
		a.Diagnostics = append(a.Diagnostics, Errors.LabelTooFar(op.text, a.operandRange(sl, op)))
		return 0, false
	}
	return uint32(diff>>2) & 0xFFFF, true
}

func (a *AssembledResult) parseJumpTarget(sl *sourceLine, op operand, addr uint32) (uint32, bool) {
	evalRes, ok := a.EvaluateAndReportErrors(op.text, 32, false, sl.lineNum, op.pos)
	if !ok {
		return 0, false
	}
	if evalRes.Type == EvaluationTypeRegister {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(op.text, a.operandRange(sl, op)))
		return 0, false
	}
	target := uint32(evalRes.Value)
	if target&3 != 0 || target&0xF0000000 != (addr+4)&0xF0000000 {
		a.Diagnostics = append(a.Diagnostics, Errors.JumpOutOfRegion(op.text, a.operandRange(sl, op)))
		return 0, false
	}
	return target, true
}

// expandPseudo rewrites the single word pseudo instructions into their real
// form. li and la are handled separately since their size varies.
func expandPseudo(sl *sourceLine) (string, []operand) {
	zero := operand{text: "$zero", pos: sl.diff}
	ops := sl.operands
	switch sl.mnemonic {
	case "move":
		if len(ops) == 2 {
			return "addu", []operand{ops[0], ops[1], zero}
		}
	case "b":
		if len(ops) == 1 {
			return "beq", []operand{zero, zero, ops[0]}
		}
	case "beqz":
		if len(ops) == 2 {
			return "beq", []operand{ops[0], zero, ops[1]}
		}
	case "bnez":
		if len(ops) == 2 {
			return "bne", []operand{ops[0], zero, ops[1]}
		}
	}
	return sl.mnemonic, ops
}

func (a *AssembledResult) parseLoadPseudo(sl *sourceLine) ([]uint32, bool) {
	format := formatRtImm
	if !a.checkOperandCount(sl, format, 2, 2) {
		return nil, false
	}
	rt, ok := a.parseRegister(sl, sl.operands[0])
	if !ok {
		return nil, false
	}
	evalRes, ok := a.EvaluateAndReportErrors(sl.operands[1].text, 32, true, sl.lineNum, sl.operands[1].pos)
	if !ok {
		return nil, false
	}
	if evalRes.Type == EvaluationTypeRegister {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidIntegerLiteral(sl.operands[1].text, a.operandRange(sl, sl.operands[1])))
		return nil, false
	}
	value := uint32(evalRes.Value)
	if sl.mnemonic == "la" || evalRes.Type == EvaluationTypeLabel {
		return loadAddress(rt, value), true
	}
	return loadImmediate(rt, value), true
}

func (a *AssembledResult) parseInstruction(sl *sourceLine, addr uint32) ([]uint32, bool) {
	if sl.mnemonic == "li" || sl.mnemonic == "la" {
		return a.parseLoadPseudo(sl)
	}

	mnemonic, ops := expandPseudo(sl)
	spec, exists := instructionSet[mnemonic]
	if !exists {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstruction(sl.mnemonic, a.mnemonicRange(sl)))
		return nil, false
	}

	expected := operandCounts[spec.format]
	switch {
	case spec.format == formatJalr && (len(ops) < 1 || len(ops) > 2),
		spec.format == formatCode && len(ops) > 1,
		expected >= 0 && len(ops) != expected:
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(
			strings.Replace(formatStrings[spec.format], "<opcode>", sl.mnemonic, 1), sl.mnemonic, a.mnemonicRange(sl)))
		return nil, false
	}

	word := spec.base
	var f [4]uint32
	var ok bool
	reg := func(i int) bool {
		f[i], ok = a.parseRegister(sl, ops[i])
		return ok
	}
	freg := func(i int) bool {
		f[i], ok = a.parseFloatRegister(sl, ops[i])
		return ok
	}
	imm := func(i, width int, signed bool) bool {
		f[i], ok = a.parseImmediate(sl, ops[i], width, signed)
		return ok
	}

	switch spec.format {
	case formatNone:
	case formatRdRsRt:
		if !reg(0) || !reg(1) || !reg(2) {
			return nil, false
		}
		word |= f[0]<<11 | f[1]<<21 | f[2]<<16
	case formatRdRtRs:
		if !reg(0) || !reg(1) || !reg(2) {
			return nil, false
		}
		word |= f[0]<<11 | f[1]<<16 | f[2]<<21
	case formatRdRtSa:
		if !reg(0) || !reg(1) || !imm(2, 5, false) {
			return nil, false
		}
		word |= f[0]<<11 | f[1]<<16 | f[2]<<6
	case formatRsRt:
		if !reg(0) || !reg(1) {
			return nil, false
		}
		word |= f[0]<<21 | f[1]<<16
	case formatRdRs:
		if !reg(0) || !reg(1) {
			return nil, false
		}
		word |= f[0]<<11 | f[1]<<21
	case formatRdRt:
		if !reg(0) || !reg(1) {
			return nil, false
		}
		word |= f[0]<<11 | f[1]<<16
	case formatRd:
		if !reg(0) {
			return nil, false
		}
		word |= f[0] << 11
	case formatRs:
		if !reg(0) {
			return nil, false
		}
		word |= f[0] << 21
	case formatRt:
		if !reg(0) {
			return nil, false
		}
		word |= f[0] << 16
	case formatJalr:
		rd, rsIndex := uint32(31), 0
		if len(ops) == 2 {
			if !reg(0) {
				return nil, false
			}
			rd, rsIndex = f[0], 1
		}
		if !reg(rsIndex) {
			return nil, false
		}
		word |= rd<<11 | f[rsIndex]<<21
	case formatRtRsImm, formatRtRsUImm:
		if !reg(0) || !reg(1) || !imm(2, 16, spec.format == formatRtRsImm) {
			return nil, false
		}
		word |= f[0]<<16 | f[1]<<21 | f[2]&0xFFFF
	case formatRtImm:
		if !reg(0) || !imm(1, 16, false) {
			return nil, false
		}
		word |= f[0]<<16 | f[1]&0xFFFF
	case formatRtMem, formatFtMem:
		if spec.format == formatRtMem && !reg(0) || spec.format == formatFtMem && !freg(0) {
			return nil, false
		}
		offset, base, ok := a.parseMemory(sl, ops[1])
		if !ok {
			return nil, false
		}
		word |= f[0]<<16 | base<<21 | offset&0xFFFF
	case formatRsRtBranch:
		if !reg(0) || !reg(1) {
			return nil, false
		}
		offset, ok := a.parseBranchTarget(sl, ops[2], addr)
		if !ok {
			return nil, false
		}
		word |= f[0]<<21 | f[1]<<16 | offset
	case formatRsBranch:
		if !reg(0) {
			return nil, false
		}
		offset, ok := a.parseBranchTarget(sl, ops[1], addr)
		if !ok {
			return nil, false
		}
		word |= f[0]<<21 | offset
	case formatBranch:
		offset, ok := a.parseBranchTarget(sl, ops[0], addr)
		if !ok {
			return nil, false
		}
		word |= offset
	case formatJump:
		target, ok := a.parseJumpTarget(sl, ops[0], addr)
		if !ok {
			return nil, false
		}
		word = makeJTypeInstruction(word>>26, target)
	case formatCode:
		if len(ops) == 1 {
			if !imm(0, 20, false) {
				return nil, false
			}
			word |= f[0] << 6
		}
	case formatExt, formatIns:
		if !reg(0) || !reg(1) || !imm(2, 5, false) || !imm(3, 6, false) {
			return nil, false
		}
		pos, size := f[2], f[3]
		if size == 0 || pos+size > 32 {
			a.Diagnostics = append(a.Diagnostics, Errors.AnonymousError("bit field position plus size must be within 1 and 32", a.operandRange(sl, ops[3])))
			return nil, false
		}
		field := size - 1 // ext stores msbd
		if spec.format == formatIns {
			field = pos + size - 1 // ins stores msb
		}
		word |= f[0]<<16 | f[1]<<21 | field<<11 | pos<<6
	case formatRtFs:
		if !reg(0) || !freg(1) {
			return nil, false
		}
		word |= f[0]<<16 | f[1]<<11
	case formatRtFcr:
		if !reg(0) {
			return nil, false
		}
		fcr, ok := a.parseControlRegister(sl, ops[1])
		if !ok {
			return nil, false
		}
		word |= f[0]<<16 | fcr<<11
	case formatFdFsFt:
		if !freg(0) || !freg(1) || !freg(2) {
			return nil, false
		}
		word |= f[0]<<6 | f[1]<<11 | f[2]<<16
	case formatFdFs:
		if !freg(0) || !freg(1) {
			return nil, false
		}
		word |= f[0]<<6 | f[1]<<11
	case formatFsFt:
		if !freg(0) || !freg(1) {
			return nil, false
		}
		word |= f[0]<<11 | f[1]<<16
	}

	if spec.format == formatRtRsImm && f[2]&0x8000 != 0 && strings.HasPrefix(strings.ToLower(ops[2].text), "0x") {
		a.Diagnostics = append(a.Diagnostics, Warnings.UnintendedSignExtension(ops[2].text, a.operandRange(sl, ops[2])))
	}
	return []uint32{word}, true
}
