package emulator

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

const (
	EvaluationResultTypeInteger = iota
	EvaluationResultTypeString
	EvaluationResultTypeFloat
	EvaluationResultTypeBoolean
	EvaluationResultTypeNil
)

// EvaluationResult is what the debugger shows for a watch expression or
// breakpoint condition.
type EvaluationResult struct {
	String string
	Type   int
	Value  uint32 // integer results only
	Truthy bool
}

var ErrEmptyExpression = errors.New("empty expression")

// EvaluateExpression evaluates expr as a Lua expression against a thread's
// registers and memory. Every register name is a global (a0, sp, pc, f12...),
// memory is read with mem8/mem16/mem32(addr) and a register can be looked up
// dynamically with reg("name"). The state is throwaway and has no standard
// libraries, so an expression cannot touch the host.
func EvaluateExpression(c *CpuContext, mem *AddressSpace, expr string) (EvaluationResult, error) {
	if expr == "" {
		return EvaluationResult{}, ErrEmptyExpression
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	for id, r := range registerTable {
		L.SetGlobal(r.name, lua.LNumber(RegisterID(id).Get(c)))
	}
	L.SetGlobal("s8", lua.LNumber(c.Gpr(RegFP)))

	L.SetGlobal("reg", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		id, ok := LookupRegister(name)
		if !ok {
			L.RaiseError("invalid register %q", name)
			return 0
		}
		L.Push(lua.LNumber(id.Get(c)))
		return 1
	}))
	L.SetGlobal("mem8", memoryReader(L, func(addr uint32) (uint32, error) {
		v, err := mem.Read8(addr)
		return uint32(v), err
	}))
	L.SetGlobal("mem16", memoryReader(L, func(addr uint32) (uint32, error) {
		v, err := mem.Read16(addr)
		return uint32(v), err
	}))
	L.SetGlobal("mem32", memoryReader(L, mem.Read32))
	L.SetGlobal("float", L.NewFunction(func(L *lua.LState) int {
		bits := uint32(int64(L.CheckNumber(1)))
		L.Push(lua.LNumber(math.Float32frombits(bits)))
		return 1
	}))
	L.SetGlobal("signed", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(int32(uint32(int64(L.CheckNumber(1))))))
		return 1
	}))

	if err := L.DoString("return " + expr); err != nil {
		return EvaluationResult{}, fmt.Errorf("evaluating %q: %w", expr, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return toEvaluationResult(ret), nil
}

func memoryReader(L *lua.LState, read func(addr uint32) (uint32, error)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		addr := uint32(int64(L.CheckNumber(1)))
		v, err := read(addr)
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		L.Push(lua.LNumber(v))
		return 1
	})
}

func toEvaluationResult(v lua.LValue) EvaluationResult {
	switch val := v.(type) {
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			w := uint32(int64(f))
			return EvaluationResult{
				String: fmt.Sprintf("%d (0x%08X)", int64(f), w),
				Type:   EvaluationResultTypeInteger,
				Value:  w,
				Truthy: w != 0,
			}
		}
		return EvaluationResult{
			String: strconv.FormatFloat(f, 'g', -1, 64),
			Type:   EvaluationResultTypeFloat,
			Truthy: f != 0,
		}
	case lua.LBool:
		return EvaluationResult{String: val.String(), Type: EvaluationResultTypeBoolean, Truthy: bool(val)}
	case lua.LString:
		return EvaluationResult{String: string(val), Type: EvaluationResultTypeString, Truthy: true}
	}
	if v == lua.LNil {
		return EvaluationResult{String: "nil", Type: EvaluationResultTypeNil}
	}
	return EvaluationResult{String: v.String(), Type: EvaluationResultTypeString, Truthy: lua.LVAsBool(v)}
}
