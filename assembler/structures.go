package assembler

import "strconv"

type AssemblerConfig struct {
	TextBase uint32 `json:"textBase"`
	DataBase uint32 `json:"dataBase"` // 0 places data directly after the text

	// Symbols are predefined names, such as kernel import stubs, resolved
	// like labels.
	Symbols map[string]uint32 `json:"-"`
}

const DefaultTextBase = 0x08804000

type AssembledResult struct {
	Labels            map[string]uint32 // label name to absolute address
	LabelTypes        map[string]string // label name to section, "text" or "data"
	LabelToLineNumber map[string]int    // label name to line number
	AddressToLine     map[uint32]int    // absolute address to line number
	ProgramText       []uint32
	ProgramData       []uint32
	TextBase          uint32
	DataBase          uint32
	Entry             uint32
	Diagnostics       []Diagnostic
	FileName          string // for reflection
	fileContents      []string
	lineLengthDeltas  map[int]int // the number of characters removed from the front of each line
	lines             []sourceLine
	labelOffsets      map[string]uint32 // section relative, resolved once the text size is known
	dataBytes         []byte
	config            AssemblerConfig
}

// sourceLine is one statement surviving the first pass, with its section
// relative offset and size so the second pass can encode it.
type sourceLine struct {
	lineNum  int
	diff     int
	text     string
	mnemonic string
	operands []operand
	isText   bool
	offset   uint32
	size     uint32
}

type EvaluationType int

const (
	EvaluationTypeIntegerLiteral EvaluationType = iota
	EvaluationTypeUnsignedIntegerLiteral
	EvaluationTypeRegister
	EvaluationTypeLabel
	EvaluationTypeFloatRegister
)

type EvaluationResult struct {
	// must be an integer
	Value        int64
	Type         EvaluationType
	MatchedValue string // the string that was matched to get this result
}

type TextPosition struct {
	Line int `json:"line"`
	Char int `json:"character"`
}

type TextRange struct {
	Start TextPosition `json:"start"`
	End   TextPosition `json:"end"`
}

type CodeDescription struct {
	URL string `json:"href"`
}

type DiagnosticSeverity int

const (
	Error       DiagnosticSeverity = 1
	Warning     DiagnosticSeverity = 2
	Information DiagnosticSeverity = 3
	Hint        DiagnosticSeverity = 4
)

type Diagnostic struct {
	Range           TextRange          `json:"range"`
	Message         string             `json:"message"`
	Source          string             `json:"source,omitempty"`
	CodeDescription *CodeDescription   `json:"codeDescription,omitempty"`
	Severity        DiagnosticSeverity `json:"severity,omitempty"`
}

// HasErrors reports whether any diagnostic is an error rather than a warning.
func (a *AssembledResult) HasErrors() bool {
	for _, d := range a.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// RegisterNameMap maps every accepted general register spelling to its index.
var RegisterNameMap = map[string]int{}

// MacroMap holds whole-line replacements applied before parsing.
var MacroMap = map[string]string{
	"nop":   "sll $zero, $zero, 0",
	"ssnop": "sll $zero, $zero, 1",
}

func init() {
	names := []string{
		"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
		"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
		"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
		"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
	}
	for i, name := range names {
		RegisterNameMap["$"+name] = i
		RegisterNameMap[name] = i
		RegisterNameMap["$"+strconv.Itoa(i)] = i
		RegisterNameMap["r"+strconv.Itoa(i)] = i
		RegisterNameMap["$r"+strconv.Itoa(i)] = i
	}
	RegisterNameMap["$s8"] = 30
	RegisterNameMap["s8"] = 30
}
