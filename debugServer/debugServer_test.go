package debugServer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/debugServer"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
)

const program = `
.data
msg: .ascii "hello"
.text
main:
	li $t4, 9
stop:
	li $a0, 1
	la $a1, msg
	jal sceIoWrite
	li $a2, 5
	jal sceKernelExitThread
	li $a0, 0
`

type notifications chan *jsonrpc2.Request

func (n notifications) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	n <- req
}

// waitFor returns the params of the next notification named method.
func (n notifications) waitFor(t *testing.T, method string, v interface{}) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case req := <-n:
			if req.Method != method {
				continue
			}
			require.NotNil(t, req.Params)
			require.NoError(t, json.Unmarshal(*req.Params, v))
			return
		case <-timeout:
			t.Fatalf("no %s notification", method)
		}
	}
}

func connect(t *testing.T) (*debugServer.Server, *jsonrpc2.Conn, notifications) {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Clock = session.ClockVirtual
	srv, err := debugServer.NewServer(cfg)
	require.NoError(t, err)

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	go srv.ServeStream(ctx, serverSide)

	notes := make(notifications, 64)
	client := jsonrpc2.NewConn(ctx, jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}), notes)
	t.Cleanup(func() {
		client.Close()
		cancel()
	})
	return srv, client, notes
}

func TestInitialize(t *testing.T) {
	_, client, _ := connect(t)
	ctx := context.Background()

	res := debugServer.InitializeResult{}
	require.NoError(t, client.Call(ctx, "initialize", debugServer.InitializeParams{ProcessID: 1}, &res))
	assert.Equal(t, 1, res.Capabilities.TextDocumentSync)
	assert.True(t, res.Capabilities.HoverProvider)
	assert.Contains(t, res.Capabilities.Emulator, "emulator/continue")

	err := client.Call(ctx, "nonsense/method", nil, nil)
	var rpcErr *jsonrpc2.Error
	require.True(t, errors.As(err, &rpcErr), "got %v", err)
	assert.Equal(t, int64(jsonrpc2.CodeMethodNotFound), rpcErr.Code)
}

func TestDiagnosticsKnowKernelNames(t *testing.T) {
	_, client, notes := connect(t)
	ctx := context.Background()

	require.NoError(t, client.Notify(ctx, "textDocument/didOpen", debugServer.DidOpenTextDocumentParams{
		TextDocument: debugServer.TextDocumentItem{URI: "file:///a.s", Version: 1, Text: program},
	}))
	published := debugServer.PublishDiagnosticsParams{}
	notes.waitFor(t, "textDocument/publishDiagnostics", &published)
	assert.Equal(t, debugServer.DocumentUri("file:///a.s"), published.URI)
	for _, d := range published.Diagnostics {
		assert.NotEqual(t, assembler.Error, d.Severity, d.Message)
	}

	require.NoError(t, client.Notify(ctx, "textDocument/didChange", debugServer.DidChangeTextDocumentParams{
		TextDocument:   debugServer.VersionedTextDocumentIdentifier{URI: "file:///a.s", Version: 2},
		ContentChanges: []debugServer.TextDocumentContentChangeEvent{{Text: "main:\n\tjal sceNotAThing\n\tnop\n"}},
	}))
	notes.waitFor(t, "textDocument/publishDiagnostics", &published)
	assert.Equal(t, 2, published.Version)
	assert.NotEmpty(t, published.Diagnostics)
}

func TestLoadBreakContinue(t *testing.T) {
	_, client, notes := connect(t)
	ctx := context.Background()

	loaded := debugServer.LoadProgramResult{}
	require.NoError(t, client.Call(ctx, "program/load", debugServer.LoadProgramParams{Source: program}, &loaded))
	require.NotZero(t, loaded.ThreadID)
	stop := loaded.Labels["stop"]
	require.NotZero(t, stop)

	bps := debugServer.SetBreakpointsResult{}
	require.NoError(t, client.Call(ctx, "breakpoints/set", debugServer.SetBreakpointsParams{
		Breakpoints: []debugServer.SourceBreakpoint{{Label: "stop"}},
	}, &bps))
	require.Len(t, bps.Breakpoints, 1)
	assert.Equal(t, stop, bps.Breakpoints[0].Addr)

	require.NoError(t, client.Call(ctx, "emulator/continue", nil, nil))
	stopped := debugServer.StoppedEvent{}
	notes.waitFor(t, "emulator/stopped", &stopped)
	assert.Equal(t, string(session.StopBreakpoint), stopped.Reason)
	assert.Equal(t, stop, stopped.PC)
	assert.Equal(t, loaded.ThreadID, stopped.ThreadID)

	regs := map[string]uint32{}
	require.NoError(t, client.Call(ctx, "registers/read", debugServer.ThreadParams{}, &regs))
	assert.Equal(t, uint32(9), regs["t4"])

	eval := debugServer.EvaluateResult{}
	require.NoError(t, client.Call(ctx, "evaluate", debugServer.EvaluateParams{Expression: "t4 * 2"}, &eval))
	assert.Equal(t, uint32(18), eval.Value)
	assert.Equal(t, "integer", eval.Type)

	mem := debugServer.ReadMemoryResult{}
	require.NoError(t, client.Call(ctx, "memory/read", debugServer.ReadMemoryParams{Address: loaded.Labels["msg"], Length: 5}, &mem))
	assert.Equal(t, "hello", string(mem.Data))

	dis := debugServer.DisassembleResult{}
	require.NoError(t, client.Call(ctx, "disassemble", debugServer.DisassembleParams{Address: stop, Count: 3}, &dis))
	assert.Len(t, dis.Instructions, 3)

	require.NoError(t, client.Call(ctx, "breakpoints/set", debugServer.SetBreakpointsParams{}, &bps))
	require.NoError(t, client.Call(ctx, "emulator/continue", nil, nil))
	output := debugServer.OutputEvent{}
	notes.waitFor(t, "emulator/output", &output)
	assert.Equal(t, "hello", output.Text)
	notes.waitFor(t, "emulator/stopped", &stopped)
	assert.Equal(t, string(session.StopExited), stopped.Reason)
}

func TestLoadReportsAssemblyErrors(t *testing.T) {
	srv, client, _ := connect(t)
	loaded := debugServer.LoadProgramResult{}
	require.NoError(t, client.Call(context.Background(), "program/load", debugServer.LoadProgramParams{Source: "main:\n\tbogus $t0\n"}, &loaded))
	assert.NotEmpty(t, loaded.Diagnostics)
	assert.Nil(t, srv.Session())

	err := client.Call(context.Background(), "threads/list", nil, nil)
	assert.Error(t, err)
}

func TestStepInstruction(t *testing.T) {
	srv, client, _ := connect(t)
	ctx := context.Background()
	loaded := debugServer.LoadProgramResult{}
	require.NoError(t, client.Call(ctx, "program/load", debugServer.LoadProgramParams{Source: program}, &loaded))

	stepped := debugServer.StoppedEvent{}
	require.NoError(t, client.Call(ctx, "emulator/step", debugServer.StepParams{Instruction: true}, &stepped))
	assert.Equal(t, string(session.StopStep), stepped.Reason)
	assert.Equal(t, 1, stepped.Executed)
	assert.Equal(t, loaded.Labels["stop"], stepped.PC)

	var threads []session.ThreadSnapshot
	require.NoError(t, client.Call(ctx, "threads/list", nil, &threads))
	require.Len(t, threads, 1)
	assert.Equal(t, "main", threads[0].Name)
	assert.NotNil(t, srv.Session())
}
