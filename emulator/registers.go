package emulator

import (
	"math"
	"strconv"
	"strings"
)

const (
	fcr0Default   = 0x00003351
	fcr31Default  = 0x00000E00
	fcr31Writable = 0x0183FFFF
	fcr31CC       = 1 << 23
)

// general purpose register indices
const (
	RegZero = 0
	RegAT   = 1
	RegV0   = 2
	RegV1   = 3
	RegA0   = 4
	RegA1   = 5
	RegA2   = 6
	RegA3   = 7
	RegT0   = 8
	RegK0   = 26
	RegK1   = 27
	RegGP   = 28
	RegSP   = 29
	RegFP   = 30
	RegRA   = 31
)

var GprNames = [32]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

func NewCpuContext() *CpuContext {
	c := &CpuContext{}
	c.Reset()
	return c
}

func (c *CpuContext) Reset() {
	*c = CpuContext{fcr0: fcr0Default, fcr31: fcr31Default}
}

// Gpr reads a general purpose register. index comes from a 5 bit decoded
// field, so it is masked rather than checked; names from outside the
// instruction stream go through LookupRegister, which rejects unknown ones.
func (c *CpuContext) Gpr(index int) uint32 {
	if index == 0 {
		return 0
	}
	return c.gpr[index&0x1F]
}

// SetGpr writes a general purpose register; writes to r0 are dropped.
func (c *CpuContext) SetGpr(index int, value uint32) {
	if index == 0 {
		return
	}
	c.gpr[index&0x1F] = value
}

func (c *CpuContext) FprBits(index int) uint32 {
	return c.fpr[index&0x1F]
}

func (c *CpuContext) SetFprBits(index int, value uint32) {
	c.fpr[index&0x1F] = value
}

func (c *CpuContext) Fpr(index int) float32 {
	return math.Float32frombits(c.fpr[index&0x1F])
}

func (c *CpuContext) SetFpr(index int, value float32) {
	c.fpr[index&0x1F] = math.Float32bits(value)
}

func (c *CpuContext) VfprBits(index int) uint32 {
	return c.vfpr[index&0x7F]
}

func (c *CpuContext) SetVfprBits(index int, value uint32) {
	c.vfpr[index&0x7F] = value
}

func (c *CpuContext) Vfpr(index int) float32 {
	return math.Float32frombits(c.vfpr[index&0x7F])
}

func (c *CpuContext) SetVfpr(index int, value float32) {
	c.vfpr[index&0x7F] = math.Float32bits(value)
}

func (c *CpuContext) FCR0() uint32 {
	return c.fcr0
}

func (c *CpuContext) FCR31() uint32 {
	return c.fcr31
}

func (c *CpuContext) SetFCR31(value uint32) {
	c.fcr31 = value & fcr31Writable
}

func (c *CpuContext) fpuCondition() bool {
	return c.fcr31&fcr31CC != 0
}

func (c *CpuContext) setFpuCondition(v bool) {
	if v {
		c.fcr31 |= fcr31CC
	} else {
		c.fcr31 &^= fcr31CC
	}
}

func (c *CpuContext) HiLo() uint64 {
	return uint64(c.HI)<<32 | uint64(c.LO)
}

func (c *CpuContext) SetHiLo(value uint64) {
	c.HI = uint32(value >> 32)
	c.LO = uint32(value)
}

// Jump points the pipeline at addr, discarding any pending delay slot.
func (c *CpuContext) Jump(addr uint32) {
	c.PC = addr
	c.NPC = addr + 4
}

// Clone returns a deep copy; every field is a value so a plain copy suffices.
func (c *CpuContext) Clone() CpuContext {
	return *c
}

// RegisterID indexes the accessor table built in init. Tooling reads and
// writes registers by name through it.
type RegisterID int

type registerAccessor struct {
	name string
	get  func(c *CpuContext) uint32
	set  func(c *CpuContext, v uint32)
}

var registerTable []registerAccessor
var registerIndex = map[string]RegisterID{}

func init() {
	add := func(name string, get func(c *CpuContext) uint32, set func(c *CpuContext, v uint32), aliases ...string) {
		id := RegisterID(len(registerTable))
		registerTable = append(registerTable, registerAccessor{name: name, get: get, set: set})
		registerIndex[name] = id
		for _, alias := range aliases {
			registerIndex[alias] = id
		}
	}

	for i := 0; i < 32; i++ {
		i := i
		add(GprNames[i],
			func(c *CpuContext) uint32 { return c.Gpr(i) },
			func(c *CpuContext, v uint32) { c.SetGpr(i, v) },
			"r"+strconv.Itoa(i))
	}
	registerIndex["s8"] = registerIndex["fp"]

	for i := 0; i < 32; i++ {
		i := i
		add("f"+strconv.Itoa(i),
			func(c *CpuContext) uint32 { return c.FprBits(i) },
			func(c *CpuContext, v uint32) { c.SetFprBits(i, v) })
	}

	add("pc", func(c *CpuContext) uint32 { return c.PC }, func(c *CpuContext, v uint32) { c.Jump(v) })
	add("npc", func(c *CpuContext) uint32 { return c.NPC }, func(c *CpuContext, v uint32) { c.NPC = v })
	add("hi", func(c *CpuContext) uint32 { return c.HI }, func(c *CpuContext, v uint32) { c.HI = v })
	add("lo", func(c *CpuContext) uint32 { return c.LO }, func(c *CpuContext, v uint32) { c.LO = v })
	add("ic", func(c *CpuContext) uint32 { return c.IC }, func(c *CpuContext, v uint32) { c.IC = v })
	add("fcr0", func(c *CpuContext) uint32 { return c.fcr0 }, func(c *CpuContext, v uint32) {})
	add("fcr31", func(c *CpuContext) uint32 { return c.fcr31 }, func(c *CpuContext, v uint32) { c.SetFCR31(v) })
}

// LookupRegister resolves a register name such as "a0", "$sp", "r4", "f12" or "pc".
func LookupRegister(name string) (RegisterID, bool) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "$"))
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < 32 {
		return RegisterID(n), true
	}
	id, ok := registerIndex[name]
	return id, ok
}

func (id RegisterID) Name() string {
	if id < 0 || int(id) >= len(registerTable) {
		return "?"
	}
	return registerTable[id].name
}

func (id RegisterID) Get(c *CpuContext) uint32 {
	return registerTable[id].get(c)
}

func (id RegisterID) Set(c *CpuContext, v uint32) {
	registerTable[id].set(c, v)
}

// RegisterNames lists every register in table order.
func RegisterNames() []string {
	names := make([]string, len(registerTable))
	for i, r := range registerTable {
		names[i] = r.name
	}
	return names
}
