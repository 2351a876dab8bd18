package kernel

import (
	"errors"
	"fmt"
	"sort"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

// FirstSyscall is the code given to the first registered function.
const FirstSyscall = 0x2000

// NativeFunction is a kernel entry point reachable through a syscall.
type NativeFunction struct {
	Module  string
	Name    string
	NID     uint32
	Syscall uint32
	handler func(c *Call) error
}

// NativeCallBridge maps syscall codes to native functions and marshals their
// arguments and results.
type NativeCallBridge struct {
	tm          *ThreadManager
	byNID       map[uint32]*NativeFunction
	bySyscall   map[uint32]*NativeFunction
	byName      map[string]*NativeFunction
	nextSyscall uint32
}

func newNativeCallBridge(tm *ThreadManager) *NativeCallBridge {
	return &NativeCallBridge{
		tm:          tm,
		byNID:       map[uint32]*NativeFunction{},
		bySyscall:   map[uint32]*NativeFunction{},
		byName:      map[string]*NativeFunction{},
		nextSyscall: FirstSyscall,
	}
}

// Register adds a raw handler that reads its own arguments and writes its own
// results. Registering a NID twice replaces the handler but keeps its code.
func (b *NativeCallBridge) Register(module, name string, nid uint32, handler func(c *Call) error) *NativeFunction {
	if fn, ok := b.byNID[nid]; ok {
		fn.handler = handler
		return fn
	}
	fn := &NativeFunction{Module: module, Name: name, NID: nid, Syscall: b.nextSyscall, handler: handler}
	b.nextSyscall++
	b.byNID[nid] = fn
	b.bySyscall[fn.Syscall] = fn
	b.byName[name] = fn
	return fn
}

// kernelResult splits err into the kernel status to return and a fatal error.
func kernelResult(err error) (KernelError, error) {
	var kerr KernelError
	if errors.As(err, &kerr) {
		return kerr, nil
	}
	return 0, err
}

// RegisterInt registers a function returning a 32-bit value in $v0.
func (b *NativeCallBridge) RegisterInt(module, name string, nid uint32, fn func(c *Call) (int32, error)) *NativeFunction {
	return b.Register(module, name, nid, func(c *Call) error {
		v, err := fn(c)
		if err != nil {
			kerr, fatal := kernelResult(err)
			if fatal != nil {
				return fatal
			}
			v = int32(kerr)
		}
		writeInt(c.Thread, int64(v))
		return nil
	})
}

// RegisterLong registers a function returning a 64-bit value in $v0:$v1.
func (b *NativeCallBridge) RegisterLong(module, name string, nid uint32, fn func(c *Call) (int64, error)) *NativeFunction {
	return b.Register(module, name, nid, func(c *Call) error {
		v, err := fn(c)
		if err != nil {
			kerr, fatal := kernelResult(err)
			if fatal != nil {
				return fatal
			}
			v = int64(kerr)
		}
		writeLong(c.Thread, v)
		return nil
	})
}

// RegisterFloat registers a function returning a float in $f0.
func (b *NativeCallBridge) RegisterFloat(module, name string, nid uint32, fn func(c *Call) (float32, error)) *NativeFunction {
	return b.Register(module, name, nid, func(c *Call) error {
		v, err := fn(c)
		if err != nil {
			kerr, fatal := kernelResult(err)
			if fatal != nil {
				return fatal
			}
			c.Thread.Context.SetFprBits(0, uint32(kerr))
			return nil
		}
		c.Thread.Context.SetFpr(0, v)
		return nil
	})
}

// RegisterVoid registers a function with no result.
func (b *NativeCallBridge) RegisterVoid(module, name string, nid uint32, fn func(c *Call) error) *NativeFunction {
	return b.Register(module, name, nid, func(c *Call) error {
		_, fatal := kernelResult(fn(c))
		return fatal
	})
}

// RegisterSuspend registers a function that may block. fn starts the call and
// returns its continuation; the bridge polls it once and parks the thread if
// it is not done. The result goes to $v0.
func (b *NativeCallBridge) RegisterSuspend(module, name string, nid uint32, fn func(c *Call) (*Resumable, error)) *NativeFunction {
	return b.registerSuspend(module, name, nid, fn, writeInt)
}

// RegisterSuspendLong is RegisterSuspend with a 64-bit result in $v0:$v1.
func (b *NativeCallBridge) RegisterSuspendLong(module, name string, nid uint32, fn func(c *Call) (*Resumable, error)) *NativeFunction {
	return b.registerSuspend(module, name, nid, fn, writeLong)
}

func (b *NativeCallBridge) registerSuspend(module, name string, nid uint32, fn func(c *Call) (*Resumable, error), write func(*Thread, int64)) *NativeFunction {
	return b.Register(module, name, nid, func(c *Call) error {
		r, err := fn(c)
		if err != nil {
			kerr, fatal := kernelResult(err)
			if fatal != nil {
				return fatal
			}
			write(c.Thread, int64(kerr))
			return nil
		}
		r.write = write
		if result, done := r.Poll(); done {
			write(c.Thread, result)
			return nil
		}
		if r.Reason.Kind == WaitNone {
			r.Reason = WaitReason{Kind: WaitNativeContinuation, Token: c.Function.Name}
		}
		util.LogF("%s: %s parks on %s", c.Thread, c.Function.Name, r.Reason)
		b.tm.suspend(c.Thread, r)
		return nil
	})
}

func writeInt(t *Thread, v int64) {
	t.Context.SetGpr(emulator.RegV0, uint32(v))
}

func writeLong(t *Thread, v int64) {
	t.Context.SetGpr(emulator.RegV0, uint32(v))
	t.Context.SetGpr(emulator.RegV1, uint32(uint64(v)>>32))
}

// Dispatch runs the function registered under the syscall's code on t.
func (b *NativeCallBridge) Dispatch(t *Thread, sig emulator.Signal) error {
	fn, ok := b.bySyscall[sig.Code]
	if !ok {
		return &UnknownSyscall{Code: sig.Code, PC: sig.PC}
	}
	c := &Call{Thread: t, Kernel: b.tm, Memory: b.tm.mem, Function: fn}
	if err := fn.handler(c); err != nil {
		return fmt.Errorf("%s:%s: %w", fn.Module, fn.Name, err)
	}
	if c.err != nil {
		return fmt.Errorf("%s:%s: reading arguments: %w", fn.Module, fn.Name, c.err)
	}
	return nil
}

func (b *NativeCallBridge) Lookup(nid uint32) (*NativeFunction, bool) {
	fn, ok := b.byNID[nid]
	return fn, ok
}

func (b *NativeCallBridge) LookupName(name string) (*NativeFunction, bool) {
	fn, ok := b.byName[name]
	return fn, ok
}

// Functions lists every registered function by syscall code.
func (b *NativeCallBridge) Functions() []*NativeFunction {
	out := make([]*NativeFunction, 0, len(b.bySyscall))
	for _, fn := range b.bySyscall {
		out = append(out, fn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Syscall < out[j].Syscall })
	return out
}

// ImportStub returns the two words a loader writes at an import slot for nid.
func (b *NativeCallBridge) ImportStub(nid uint32) ([2]uint32, error) {
	fn, ok := b.byNID[nid]
	if !ok {
		return [2]uint32{}, fmt.Errorf("no native function with NID 0x%08X", nid)
	}
	return [2]uint32{
		assembler.MakeJumpRegisterInstruction(emulator.RegRA),
		assembler.MakeSyscallInstruction(fn.Syscall),
	}, nil
}

// InstallImports writes a stub for every registered function from base on and
// returns the stub address of each function name, ready to be used as
// assembler symbols.
func (b *NativeCallBridge) InstallImports(base uint32) (map[string]uint32, error) {
	symbols := map[string]uint32{}
	addr := base
	for _, fn := range b.Functions() {
		stub, err := b.ImportStub(fn.NID)
		if err != nil {
			return nil, err
		}
		if err := b.tm.mem.WriteWords(addr, stub[:]); err != nil {
			return nil, fmt.Errorf("installing import %s: %w", fn.Name, err)
		}
		symbols[fn.Name] = addr
		addr += 8
	}
	return symbols, nil
}

// Call is the view a native function has of one invocation. Arguments are
// consumed in order from $a0-$a3, $t0-$t3 and then the caller's stack.
type Call struct {
	Thread   *Thread
	Kernel   *ThreadManager
	Memory   *emulator.AddressSpace
	Function *NativeFunction

	pos  int
	fpos int
	err  error
}

const registerArguments = 8

func (c *Call) next() uint32 {
	i := c.pos
	c.pos++
	ctx := &c.Thread.Context
	if i < registerArguments {
		return ctx.Gpr(emulator.RegA0 + i)
	}
	v, err := c.Memory.Read32(ctx.Gpr(emulator.RegSP) + uint32(i-registerArguments)*4)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func (c *Call) Int() int32     { return int32(c.next()) }
func (c *Call) Uint32() uint32 { return c.next() }
func (c *Call) Ptr() uint32    { return c.next() }
func (c *Call) Bool() bool     { return c.next() != 0 }

// Long reads a 64-bit argument from an even aligned register pair, low word
// first.
func (c *Call) Long() int64 {
	c.pos = (c.pos + 1) &^ 1
	lo := c.next()
	hi := c.next()
	return int64(uint64(hi)<<32 | uint64(lo))
}

// Float reads the next float argument from $f12 on.
func (c *Call) Float() float32 {
	i := c.fpos
	c.fpos++
	return c.Thread.Context.Fpr(12 + i)
}

// Str reads a NUL terminated string argument; a null pointer is "".
func (c *Call) Str() string {
	ptr := c.next()
	if ptr == 0 {
		return ""
	}
	s, err := c.Memory.ReadStringZ(ptr)
	if err != nil && c.err == nil {
		c.err = err
	}
	return s
}
