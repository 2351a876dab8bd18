package debugServer

import (
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
)

type TextDocumentItem struct {
	URI        DocumentUri `json:"uri"`
	LanguageID string      `json:"languageId"`
	Version    int         `json:"version"`
	Text       string      `json:"text"`
}

type DocumentUri string

type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

type TextDocumentIdentifier struct {
	URI DocumentUri `json:"uri"`
}

type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type VersionedTextDocumentIdentifier struct {
	URI     DocumentUri `json:"uri"`
	Version int         `json:"version"`
}

type TextDocumentContentChangeEvent struct {
	Text string `json:"text"` // full document sync only
}

type DidChangeTextDocumentParams struct {
	TextDocument   VersionedTextDocumentIdentifier  `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent `json:"contentChanges"`
}

type InitializeParams struct {
	ProcessID int `json:"processId"`
}

type DocumentDiagnosticsParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type DocumentDiagnosticsReport struct {
	Kind  string                 `json:"kind"` // always "full"
	Items []assembler.Diagnostic `json:"items"`
}

type PublishDiagnosticsParams struct {
	URI         DocumentUri            `json:"uri"`
	Version     int                    `json:"version"`
	Diagnostics []assembler.Diagnostic `json:"diagnostics"`
}

type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     assembler.TextPosition `json:"position"`
}

type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type Hover struct {
	Contents MarkupContent `json:"contents"`
}

type ServerCapabilities struct {
	TextDocumentSync int  `json:"textDocumentSync"`
	HoverProvider    bool `json:"hoverProvider"`
	// Emulator lists the emulator/* methods this server answers.
	Emulator []string `json:"emulator"`
}

type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
}

// Emulator control

type LoadProgramParams struct {
	// Source is assembly text. When empty, Path is read instead.
	Source string `json:"source"`
	Path   string `json:"path"`
	Args   string `json:"args"`
}

type LoadProgramResult struct {
	Entry       uint32                 `json:"entry"`
	ThreadID    int                    `json:"threadId"`
	Labels      map[string]uint32      `json:"labels"`
	Diagnostics []assembler.Diagnostic `json:"diagnostics"`
}

type StepParams struct {
	// Instruction steps a single instruction instead of a full slice.
	Instruction bool `json:"instruction"`
}

type StoppedEvent struct {
	Reason   string `json:"reason"`
	ThreadID int    `json:"threadId,omitempty"`
	PC       uint32 `json:"pc,omitempty"`
	Executed int    `json:"executed,omitempty"`
	Error    string `json:"error,omitempty"`
}

type OutputEvent struct {
	Text string `json:"text"`
}

type ThreadParams struct {
	ThreadID int `json:"threadId"` // 0 is the thread that ran last
}

type WriteRegisterParams struct {
	ThreadID int    `json:"threadId"`
	Name     string `json:"name"`
	Value    uint32 `json:"value"`
}

type ReadMemoryParams struct {
	Address uint32 `json:"address"`
	Length  uint32 `json:"length"`
}

type ReadMemoryResult struct {
	Address uint32 `json:"address"`
	Data    []byte `json:"data"` // base64 on the wire
}

type SourceBreakpoint struct {
	Address   uint32 `json:"address"`
	Label     string `json:"label,omitempty"`
	Condition string `json:"condition,omitempty"`
}

type SetBreakpointsParams struct {
	Breakpoints []SourceBreakpoint `json:"breakpoints"`
}

type SetBreakpointsResult struct {
	Breakpoints []emulator.Breakpoint `json:"breakpoints"`
}

type EvaluateParams struct {
	ThreadID   int    `json:"threadId"`
	Expression string `json:"expression"`
}

type EvaluateResult struct {
	Result string `json:"result"`
	Type   string `json:"type"`
	Value  uint32 `json:"value"`
}

type DisassembleParams struct {
	Address uint32 `json:"address"`
	Count   int    `json:"count"`
}

type DisassembleResult struct {
	Instructions []string `json:"instructions"`
}
