package assembler

import (
	"strconv"
	"strings"
)

var assemblerConfig = AssemblerConfig{TextBase: DefaultTextBase}

func GetConfig() AssemblerConfig {
	return assemblerConfig
}

func SetConfig(config AssemblerConfig) {
	assemblerConfig = config
}

// operand is one comma separated field with its character position in the file
type operand struct {
	text string
	pos  int
}

func trimAndGetFrontDiffCount(str, cutset string) (string, int) {
	strOut := strings.Trim(str, cutset)
	return strOut, len(str) - len(strings.TrimLeft(str, cutset))
}

func checkValidSymbolName(str string) (bool, string) {
	str = strings.TrimSpace(str)
	if len(str) == 0 {
		return false, "symbol names must not be empty"
	}

	// must only contain alphanumeric characters, underscores and dots
	for i, char := range str {
		if !((char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '_' || char == '.') {
			return false, "symbol names must only contain alphanumeric characters, underscores and dots"
		}
		if i == 0 && char >= '0' && char <= '9' {
			return false, "symbol names must not start with a digit"
		}
	}

	return true, ""
}

func fitsWidth(value int64, fieldWidth int, signed bool) bool {
	if fieldWidth >= 32 {
		return value >= -(1<<31) && value < (1<<32)
	}
	if signed {
		return value >= -(1<<(fieldWidth-1)) && value < (1<<(fieldWidth-1))
	}
	return value >= 0 && value < (1<<fieldWidth)
}

func (a *AssembledResult) Evaluate(str string, fieldWidth int, signed bool) (EvaluationResult, error) {
	str = strings.TrimSpace(str)
	if len(str) == 0 {
		return EvaluationResult{}, EvaluationErrors.InvalidExpression(str)
	}

	// check if it is a label
	if value, ok := a.Labels[str]; ok {
		return EvaluationResult{Value: int64(value), Type: EvaluationTypeLabel, MatchedValue: str}, nil
	}
	if value, ok := a.config.Symbols[str]; ok {
		return EvaluationResult{Value: int64(value), Type: EvaluationTypeLabel, MatchedValue: str}, nil
	}

	// check if it is a register
	if reg, ok := RegisterNameMap[strings.ToLower(str)]; ok {
		return EvaluationResult{Value: int64(reg), Type: EvaluationTypeRegister, MatchedValue: str}, nil
	}

	// character literal
	if len(str) >= 3 && str[0] == '\'' && str[len(str)-1] == '\'' {
		c, _, _, err := strconv.UnquoteChar(str[1:len(str)-1], '\'')
		if err != nil {
			return EvaluationResult{}, EvaluationErrors.InvalidNumberLiteral(str)
		}
		return EvaluationResult{Value: int64(c), Type: EvaluationTypeUnsignedIntegerLiteral, MatchedValue: str}, nil
	}

	first := str[0]
	if !(first >= '0' && first <= '9') && first != '-' && first != '+' {
		return EvaluationResult{}, EvaluationErrors.UnresolvedSymbol(str)
	}

	value, err := strconv.ParseInt(str, 0, 64)
	if err != nil {
		return EvaluationResult{}, EvaluationErrors.InvalidNumberLiteral(str)
	}

	if !fitsWidth(value, fieldWidth, signed) {
		// a hex literal that fills the field exactly is taken as its two's complement
		isHex := strings.HasPrefix(strings.ToLower(str), "0x")
		if signed && isHex && fieldWidth < 32 && fitsWidth(value, fieldWidth, false) {
			value -= 1 << fieldWidth
		} else {
			return EvaluationResult{}, EvaluationErrors.ImmOverflow(str)
		}
	}

	if value >= 0 {
		return EvaluationResult{Value: value, Type: EvaluationTypeUnsignedIntegerLiteral, MatchedValue: str}, nil
	}

	return EvaluationResult{Value: value, Type: EvaluationTypeIntegerLiteral, MatchedValue: str}, nil
}

func (a *AssembledResult) EvaluateAndReportErrors(str string, fieldWidth int, signed bool, line, charPos int) (EvaluationResult, bool) {
	result, err := a.Evaluate(str, fieldWidth, signed)
	r := TextRange{
		Start: TextPosition{Line: line, Char: charPos}, End: TextPosition{Line: line, Char: charPos + len(str)},
	}
	if err != nil && EvaluationErrors.IsUnresolvedSymbolError(err) {
		a.Diagnostics = append(a.Diagnostics, Errors.UnresolvedSymbolName(str, r))
		return EvaluationResult{}, false
	} else if err != nil && EvaluationErrors.IsInvalidNumberLiteralError(err) {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidIntegerLiteral(str, r))
		return EvaluationResult{}, false
	} else if err != nil && EvaluationErrors.IsInvalidExpressionError(err) {
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidExpression(str, r))
		return EvaluationResult{}, false
	} else if err != nil && EvaluationErrors.IsImmOverflowError(err) {
		if signed {
			a.Diagnostics = append(a.Diagnostics, Errors.ImmediateOverflow(str, fieldWidth, r))
		} else {
			a.Diagnostics = append(a.Diagnostics, Errors.UnsignedImmediateOverflow(str, fieldWidth, r))
		}
		return EvaluationResult{}, false
	} else if err != nil {
		a.Diagnostics = append(a.Diagnostics, Errors.AnonymousError(err.Error(), r))
		return EvaluationResult{}, false
	}
	return result, true
}

func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case '#', ';':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

func (a *AssembledResult) extractLabels() {
	for i, line := range a.fileContents {
		// removing whitespaces
		line, diff := trimAndGetFrontDiffCount(line, " \t\r")
		line = stripComment(line)
		colonIndex := strings.Index(line, ":")
		if colonIndex == -1 || strings.Contains(line[:colonIndex], "\"") {
			continue
		}

		labelName := line[:colonIndex]
		if valid, reason := checkValidSymbolName(labelName); !valid {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidSymbolName(labelName, reason, TextRange{
				Start: TextPosition{Line: i, Char: diff}, End: TextPosition{Line: i, Char: diff + colonIndex + 1},
			}))
			continue
		}
		if _, exists := a.LabelToLineNumber[labelName]; exists {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidSymbolName(labelName, "label is already defined", TextRange{
				Start: TextPosition{Line: i, Char: diff}, End: TextPosition{Line: i, Char: diff + colonIndex},
			}))
			continue
		}
		a.LabelToLineNumber[labelName] = i
		a.fileContents[i] = line[colonIndex+1:] // remove the label from the line
		a.lineLengthDeltas[i] = diff + colonIndex + 1
	}
}

// splitOperands splits the text after the mnemonic on commas, keeping the
// position of every operand.
func splitOperands(rest string, start int) []operand {
	if strings.TrimSpace(rest) == "" {
		return nil
	}
	ops := []operand{}
	pos := start
	for _, part := range strings.Split(rest, ",") {
		trimmed, front := trimAndGetFrontDiffCount(part, " \t")
		ops = append(ops, operand{text: trimmed, pos: pos + front})
		pos += len(part) + 1
	}
	return ops
}

func alignUp(v, alignment uint32) uint32 {
	return (v + alignment - 1) &^ (alignment - 1)
}

// layoutLines is the first pass: it splits every statement into mnemonic and
// operands and computes the section offset and size of each one so that all
// labels are known before anything is encoded.
func (a *AssembledResult) layoutLines() {
	textSection := true
	textOffset, dataOffset := uint32(0), uint32(0)
	pendingLabels := []string{}
	labelsByLine := map[int]string{}
	for label, line := range a.LabelToLineNumber {
		labelsByLine[line] = label
	}

	flushLabels := func(isText bool, offset uint32) {
		for _, label := range pendingLabels {
			a.labelOffsets[label] = offset
			if isText {
				a.LabelTypes[label] = "text"
			} else {
				a.LabelTypes[label] = "data"
			}
		}
		pendingLabels = pendingLabels[:0]
	}

	for i, raw := range a.fileContents {
		if label, ok := labelsByLine[i]; ok {
			pendingLabels = append(pendingLabels, label)
		}

		line, diff := trimAndGetFrontDiffCount(stripComment(raw), " \t\r")
		diff += a.lineLengthDeltas[i]
		line = strings.ReplaceAll(line, "\t", " ") // replacing tabs with single space because it was originally just one character

		// if the entire line is a macro (say, nop), then we can just replace it with the macro's contents
		if eval, ok := MacroMap[strings.ToLower(line)]; ok {
			line = eval
		}
		if len(line) == 0 {
			continue
		}

		mnemonic := strings.ToLower(strings.SplitN(line, " ", 2)[0])
		rest := strings.TrimPrefix(line[len(mnemonic):], " ")
		sl := sourceLine{
			lineNum:  i,
			diff:     diff,
			text:     line,
			mnemonic: mnemonic,
			isText:   textSection,
		}
		if !strings.HasPrefix(mnemonic, ".") || (mnemonic != ".ascii" && mnemonic != ".asciiz") {
			sl.operands = splitOperands(rest, diff+len(line)-len(rest))
		} else {
			sl.operands = []operand{{text: strings.TrimSpace(rest), pos: diff + len(line) - len(rest)}}
		}

		switch mnemonic {
		case ".text":
			flushLabels(textSection, pick(textSection, textOffset, dataOffset))
			textSection = true
			continue
		case ".data", ".rodata", ".bss":
			flushLabels(textSection, pick(textSection, textOffset, dataOffset))
			textSection = false
			continue
		case ".globl", ".global", ".ent", ".end", ".set", ".type", ".size", ".section", ".file":
			continue
		}

		offset := pick(textSection, textOffset, dataOffset)
		alignment, size := a.statementSize(&sl, offset)
		offset = alignUp(offset, alignment)
		sl.offset = offset
		sl.size = size
		flushLabels(textSection, offset)

		if textSection {
			textOffset = offset + size
		} else {
			dataOffset = offset + size
		}
		a.lines = append(a.lines, sl)
	}
	flushLabels(textSection, pick(textSection, textOffset, dataOffset))

	a.TextBase = assemblerConfigTextBase(a.config)
	a.DataBase = a.config.DataBase
	if a.DataBase == 0 {
		a.DataBase = alignUp(a.TextBase+textOffset, 16)
	}
	for label, offset := range a.labelOffsets {
		if a.LabelTypes[label] == "text" {
			a.Labels[label] = a.TextBase + offset
		} else {
			a.Labels[label] = a.DataBase + offset
		}
	}
	a.dataBytes = make([]byte, dataOffset)
	a.Entry = a.TextBase
	for _, name := range []string{"_start", "main"} {
		if addr, ok := a.Labels[name]; ok && a.LabelTypes[name] == "text" {
			a.Entry = addr
			break
		}
	}
}

func pick(textSection bool, text, data uint32) uint32 {
	if textSection {
		return text
	}
	return data
}

func assemblerConfigTextBase(config AssemblerConfig) uint32 {
	if config.TextBase == 0 {
		return DefaultTextBase
	}
	return config.TextBase
}

// statementSize returns the alignment and byte size of a statement. Sizing
// never reports diagnostics, the encoding pass does.
func (a *AssembledResult) statementSize(sl *sourceLine, offset uint32) (uint32, uint32) {
	switch sl.mnemonic {
	case ".word":
		return 4, uint32(len(sl.operands)) * 4
	case ".half":
		return 2, uint32(len(sl.operands)) * 2
	case ".byte":
		return 1, uint32(len(sl.operands))
	case ".ascii", ".asciiz":
		s, err := unquoteString(sl.operands[0].text)
		if err != nil {
			return 1, 0
		}
		if sl.mnemonic == ".asciiz" {
			return 1, uint32(len(s)) + 1
		}
		return 1, uint32(len(s))
	case ".space":
		if len(sl.operands) == 0 {
			return 1, 0
		}
		n, err := a.Evaluate(sl.operands[0].text, 32, false)
		if err != nil || n.Type != EvaluationTypeUnsignedIntegerLiteral {
			return 1, 0
		}
		return 1, uint32(n.Value)
	case ".align":
		if len(sl.operands) == 0 {
			return 1, 0
		}
		n, err := a.Evaluate(sl.operands[0].text, 5, false)
		if err != nil || n.Type != EvaluationTypeUnsignedIntegerLiteral {
			return 1, 0
		}
		return 1 << uint32(n.Value), 0
	case "la":
		return 4, 8
	case "li":
		if len(sl.operands) != 2 {
			return 4, 4
		}
		if _, isLabel := a.LabelToLineNumber[sl.operands[1].text]; isLabel {
			return 4, 8
		}
		v, err := a.Evaluate(sl.operands[1].text, 32, true)
		if err != nil {
			return 4, 4
		}
		return 4, uint32(len(loadImmediate(0, uint32(v.Value)))) * 4
	}
	if strings.HasPrefix(sl.mnemonic, ".") {
		return 1, 0
	}
	return 4, 4
}

func unquoteString(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", strconv.ErrSyntax
	}
	return strconv.Unquote(s)
}

// parseLines is the second pass: every statement is encoded at the address
// computed by layoutLines.
func (a *AssembledResult) parseLines() {
	prevBranch := false
	for idx := range a.lines {
		sl := &a.lines[idx]
		if strings.HasPrefix(sl.mnemonic, ".") {
			a.parseDirective(sl)
			prevBranch = false
			continue
		}

		if !sl.isText {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidDataSection(sl.mnemonic, a.mnemonicRange(sl)))
			continue
		}

		addr := a.TextBase + sl.offset
		a.fillTextTo(sl.offset)
		words, ok := a.parseInstruction(sl, addr)
		if !ok {
			// keep the layout stable so later labels stay correct
			words = make([]uint32, sl.size/4)
		}
		for i, w := range words {
			a.AddressToLine[addr+uint32(i)*4] = sl.lineNum
			a.ProgramText = append(a.ProgramText, w)
		}

		isBranch := IsBranch(sl.mnemonic)
		if isBranch && prevBranch {
			a.Diagnostics = append(a.Diagnostics, Warnings.BranchInDelaySlot(a.mnemonicRange(sl)))
		}
		prevBranch = isBranch
	}

	for i := 0; i < len(a.dataBytes); i += 4 {
		word := uint32(0)
		for b := 0; b < 4 && i+b < len(a.dataBytes); b++ {
			word |= uint32(a.dataBytes[i+b]) << (8 * b)
		}
		a.ProgramData = append(a.ProgramData, word)
	}
}

func (a *AssembledResult) mnemonicRange(sl *sourceLine) TextRange {
	return TextRange{
		Start: TextPosition{Line: sl.lineNum, Char: sl.diff},
		End:   TextPosition{Line: sl.lineNum, Char: sl.diff + len(sl.mnemonic)},
	}
}

func (a *AssembledResult) operandRange(sl *sourceLine, op operand) TextRange {
	return TextRange{
		Start: TextPosition{Line: sl.lineNum, Char: op.pos},
		End:   TextPosition{Line: sl.lineNum, Char: op.pos + len(op.text)},
	}
}

func (a *AssembledResult) parseDirective(sl *sourceLine) {
	switch sl.mnemonic {
	case ".word", ".half", ".byte":
		width := map[string]int{".word": 4, ".half": 2, ".byte": 1}[sl.mnemonic]
		for i, op := range sl.operands {
			evalRes, ok := a.EvaluateAndReportErrors(op.text, width*8, false, sl.lineNum, op.pos)
			if !ok {
				// negative values are fine in data, retry as signed
				a.Diagnostics = a.Diagnostics[:len(a.Diagnostics)-1]
				evalRes, ok = a.EvaluateAndReportErrors(op.text, width*8, true, sl.lineNum, op.pos)
				if !ok {
					continue
				}
			}
			if evalRes.Type == EvaluationTypeRegister {
				a.Diagnostics = append(a.Diagnostics, Errors.InvalidDataSectionValue(op.text, a.operandRange(sl, op)))
				continue
			}
			a.emitData(sl, sl.offset+uint32(i*width), uint32(evalRes.Value), width)
		}
	case ".ascii", ".asciiz":
		op := sl.operands[0]
		s, err := unquoteString(op.text)
		if err != nil {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidDataSectionValue(op.text, a.operandRange(sl, op)))
			return
		}
		for i := 0; i < len(s); i++ {
			a.emitData(sl, sl.offset+uint32(i), uint32(s[i]), 1)
		}
	case ".space":
		if len(sl.operands) != 1 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(".space <size>", sl.mnemonic, a.mnemonicRange(sl)))
			return
		}
		evalRes, ok := a.EvaluateAndReportErrors(sl.operands[0].text, 32, false, sl.lineNum, sl.operands[0].pos)
		if ok && evalRes.Type != EvaluationTypeUnsignedIntegerLiteral {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidDataSectionValue(sl.operands[0].text, a.operandRange(sl, sl.operands[0])))
		}
		if sl.isText {
			// zero words already reserved by the layout
			a.fillText(sl)
		}
	case ".align":
		if len(sl.operands) != 1 {
			a.Diagnostics = append(a.Diagnostics, Errors.InvalidInstructionFormat(".align <power of two>", sl.mnemonic, a.mnemonicRange(sl)))
			return
		}
		a.EvaluateAndReportErrors(sl.operands[0].text, 5, false, sl.lineNum, sl.operands[0].pos)
		if sl.isText {
			a.fillText(sl)
		}
	default:
		a.Diagnostics = append(a.Diagnostics, Errors.InvalidDataSection(sl.mnemonic, a.mnemonicRange(sl)))
	}
}

// emitData stores little endian bytes at a section offset. In the text
// section the words are appended to the program text instead.
func (a *AssembledResult) emitData(sl *sourceLine, offset uint32, value uint32, width int) {
	if !sl.isText {
		for b := 0; b < width; b++ {
			a.dataBytes[offset+uint32(b)] = byte(value >> (8 * b))
		}
		return
	}

	addr := a.TextBase + (offset &^ 3)
	a.fillTextTo(offset&^3 + 4)
	index := (addr - a.TextBase) / 4
	shift := (offset & 3) * 8
	mask := uint32((uint64(1)<<(uint(width)*8))-1) << shift
	a.ProgramText[index] = (a.ProgramText[index] &^ mask) | ((value << shift) & mask)
	a.AddressToLine[addr] = sl.lineNum
}

func (a *AssembledResult) fillText(sl *sourceLine) {
	a.fillTextTo(sl.offset + sl.size)
}

func (a *AssembledResult) fillTextTo(end uint32) {
	for uint32(len(a.ProgramText))*4 < alignUp(end, 4) {
		a.ProgramText = append(a.ProgramText, 0)
	}
}

func Assemble(input string) (res *AssembledResult) {
	return AssembleWithConfig(input, GetConfig())
}

func AssembleWithConfig(input string, config AssemblerConfig) (res *AssembledResult) {
	res = new(AssembledResult)
	res.config = config
	res.Labels = make(map[string]uint32)
	res.LabelTypes = make(map[string]string)
	res.lineLengthDeltas = make(map[int]int)
	res.AddressToLine = make(map[uint32]int)
	res.LabelToLineNumber = make(map[string]int)
	res.labelOffsets = make(map[string]uint32)
	res.fileContents = strings.Split(input, "\n")

	// extract labels so the line parser can determine which symbols are labels
	res.extractLabels()

	res.layoutLines()

	res.parseLines()
	return
}
