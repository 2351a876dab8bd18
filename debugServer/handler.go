package debugServer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sourcegraph/jsonrpc2"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/session"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

var emulatorMethods = []string{
	"program/load", "emulator/step", "emulator/continue", "emulator/pause", "emulator/status",
	"threads/list", "registers/read", "registers/write", "memory/read",
	"breakpoints/set", "evaluate", "disassemble",
}

type handler struct {
	server *Server
}

func (h *handler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	util.LogF("PSP emulator debug server: received request: %s", req.Method)
	switch req.Method {
	case "initialize":
		h.initialize(ctx, conn, req)
	case "textDocument/didOpen":
		h.documentOpen(ctx, conn, req)
	case "textDocument/didClose":
		h.documentClose(ctx, conn, req)
	case "textDocument/didChange":
		h.documentChange(ctx, conn, req)
	case "textDocument/diagnostic":
		h.documentDiagnostics(ctx, conn, req)
	case "textDocument/hover":
		h.hover(ctx, conn, req)

	case "program/load":
		h.loadProgram(ctx, conn, req)
	case "emulator/step":
		h.step(ctx, conn, req)
	case "emulator/continue":
		h.continueRun(ctx, conn, req)
	case "emulator/pause":
		h.pause(ctx, conn, req)
	case "emulator/status":
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			return sess.Status(), nil
		})
	case "threads/list":
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			return sess.Threads(), nil
		})
	case "registers/read":
		params := ThreadParams{}
		if req.Params != nil && !decodeParams(ctx, conn, req, &params) {
			return
		}
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			return sess.Registers(params.ThreadID)
		})
	case "registers/write":
		params := WriteRegisterParams{}
		if !decodeParams(ctx, conn, req, &params) {
			return
		}
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			return nil, sess.SetRegister(params.ThreadID, params.Name, params.Value)
		})
	case "memory/read":
		params := ReadMemoryParams{}
		if !decodeParams(ctx, conn, req, &params) {
			return
		}
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			b, err := sess.ReadMemory(params.Address, params.Length)
			return ReadMemoryResult{Address: params.Address, Data: b}, err
		})
	case "breakpoints/set":
		h.setBreakpoints(ctx, conn, req)
	case "evaluate":
		params := EvaluateParams{}
		if !decodeParams(ctx, conn, req, &params) {
			return
		}
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			res, err := sess.Evaluate(params.ThreadID, params.Expression)
			if err != nil {
				return nil, err
			}
			return EvaluateResult{Result: res.String, Type: evaluationTypeName(res.Type), Value: res.Value}, nil
		})
	case "disassemble":
		params := DisassembleParams{}
		if !decodeParams(ctx, conn, req, &params) {
			return
		}
		h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
			lines, err := sess.Disassemble(params.Address, params.Count)
			return DisassembleResult{Instructions: lines}, err
		})

	// quitting
	case "shutdown":
		if sess := h.server.Session(); sess != nil {
			sess.Pause()
		}
		conn.Reply(ctx, req.ID, nil)
	case "exit":
		if !req.Notif {
			conn.Reply(ctx, req.ID, nil)
		}
		conn.Close()

	default:
		replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound, fmt.Sprintf("method not supported: %s", req.Method))
	}
}

func (h *handler) initialize(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := InitializeParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	result := InitializeResult{}
	result.Capabilities.TextDocumentSync = 1
	result.Capabilities.HoverProvider = true
	result.Capabilities.Emulator = emulatorMethods
	conn.Reply(ctx, req.ID, result)
}

func (h *handler) loadProgram(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := LoadProgramParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	if h.server.isRunning() {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, ErrRunning.Error())
		return
	}

	source := params.Source
	if source == "" {
		b, err := os.ReadFile(params.Path)
		if err != nil {
			replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, err.Error())
			return
		}
		source = string(b)
	}

	sess, err := session.New(h.server.config)
	if err != nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInternalError, err.Error())
		return
	}
	program, err := sess.LoadProgram(source)
	if err != nil {
		var asmErr *session.AssembleError
		if errors.As(err, &asmErr) {
			// diagnostics are a result, the editor shows them
			conn.Reply(ctx, req.ID, LoadProgramResult{Diagnostics: asmErr.Diagnostics})
			return
		}
		replyError(ctx, conn, req, jsonrpc2.CodeInternalError, err.Error())
		return
	}
	var args []byte
	if params.Args != "" {
		args = append([]byte(params.Args), 0)
	}
	main, err := sess.CreateMainThread(args)
	if err != nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInternalError, err.Error())
		return
	}
	h.server.setSession(sess)

	conn.Reply(ctx, req.ID, LoadProgramResult{
		Entry:       program.Entry,
		ThreadID:    main.ID,
		Labels:      program.Labels,
		Diagnostics: program.Diagnostics,
	})
}

func (h *handler) step(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := StepParams{}
	if req.Params != nil && !decodeParams(ctx, conn, req, &params) {
		return
	}
	if h.server.isRunning() {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, ErrRunning.Error())
		return
	}
	h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
		step := sess.Step
		if params.Instruction {
			step = sess.StepInstruction
		}
		res, err := step()
		ev := StoppedEvent{Reason: string(session.StopStep), Executed: res.Executed}
		if res.Thread != nil {
			ev.ThreadID = res.Thread.ID
			ev.PC = res.Thread.Context.PC
		}
		switch {
		case err != nil:
			ev.Reason = string(session.StopFault)
			ev.Error = err.Error()
		case res.Breakpoint != nil:
			ev.Reason = string(session.StopBreakpoint)
		case res.Idle && sess.AliveThreadCount() == 0:
			ev.Reason = string(session.StopExited)
		}
		return ev, nil
	})
}

// continueRun replies at once and reports the stop with an
// emulator/stopped notification.
func (h *handler) continueRun(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	sess := h.server.Session()
	if sess == nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, ErrNoSession.Error())
		return
	}
	if !h.server.startRun() {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, ErrRunning.Error())
		return
	}
	conn.Reply(ctx, req.ID, nil)

	go func() {
		reason, err := sess.Run(context.Background())
		h.server.endRun()

		ev := StoppedEvent{Reason: string(reason), ThreadID: sess.LastThread()}
		if regs, rerr := sess.Registers(0); rerr == nil {
			ev.PC = regs["pc"]
		}
		if err != nil {
			ev.Error = err.Error()
		}
		h.server.broadcast("emulator/stopped", ev)
	}()
}

func (h *handler) pause(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if sess := h.server.Session(); sess != nil && h.server.isRunning() {
		sess.Pause()
	}
	if !req.Notif {
		conn.Reply(ctx, req.ID, nil)
	}
}

func (h *handler) setBreakpoints(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := SetBreakpointsParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	h.withSession(ctx, conn, req, func(sess *session.Session) (interface{}, error) {
		addrs := make([]uint32, 0, len(params.Breakpoints))
		conds := make([]string, 0, len(params.Breakpoints))
		for _, bp := range params.Breakpoints {
			addr := bp.Address
			if bp.Label != "" {
				var ok bool
				if addr, ok = sess.Program().Labels[bp.Label]; !ok {
					return nil, fmt.Errorf("unknown label %q", bp.Label)
				}
			}
			addrs = append(addrs, addr)
			conds = append(conds, bp.Condition)
		}
		return SetBreakpointsResult{Breakpoints: sess.SetBreakpoints(addrs, conds)}, nil
	})
}

// withSession replies with fn's result, or with an error when there is no
// session or fn fails.
func (h *handler) withSession(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, fn func(*session.Session) (interface{}, error)) {
	sess := h.server.Session()
	if sess == nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidRequest, ErrNoSession.Error())
		return
	}
	result, err := fn(sess)
	if err != nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, err.Error())
		return
	}
	conn.Reply(ctx, req.ID, result)
}

func decodeParams(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, v interface{}) bool {
	if req.Params == nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "missing parameters")
		return false
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid parameters")
		return false
	}
	return true
}

func replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, msg string) {
	if req.Notif {
		util.LogF("PSP emulator debug server: %s: %s", req.Method, msg)
		return
	}
	conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{Code: code, Message: msg})
}

func evaluationTypeName(t int) string {
	switch t {
	case emulator.EvaluationResultTypeInteger:
		return "integer"
	case emulator.EvaluationResultTypeFloat:
		return "float"
	case emulator.EvaluationResultTypeBoolean:
		return "boolean"
	case emulator.EvaluationResultTypeNil:
		return "nil"
	}
	return "string"
}
