package emulator

import (
	"encoding/binary"
	"fmt"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
)

// the PSP mirrors main memory through the cached/uncached/kernel windows
const addressMask = 0x1FFFFFFF

func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{
		ScratchpadBase: 0x00010000,
		ScratchpadSize: 0x00004000,
		MainBase:       0x08000000,
		MainSize:       0x02000000,
		TrampolineBase: 0x08000000,
		UserBase:       0x08804000,
	}
}

func NewAddressSpace(config MemoryConfig) *AddressSpace {
	m := &AddressSpace{config: config}
	if config.ScratchpadSize > 0 {
		m.AddSegment("scratchpad", config.ScratchpadBase, config.ScratchpadSize)
	}
	m.AddSegment("main", config.MainBase, config.MainSize)
	return m
}

func (m *AddressSpace) Config() MemoryConfig {
	return m.config
}

func (m *AddressSpace) AddSegment(name string, base, size uint32) *Segment {
	seg := &Segment{Name: name, Base: base, Size: size, data: make([]byte, size)}
	m.segments = append(m.segments, seg)
	return seg
}

func (m *AddressSpace) Segments() []*Segment {
	return m.segments
}

func (s *Segment) Contains(addr uint32) bool {
	return addr >= s.Base && addr-s.Base < s.Size
}

func (s *Segment) High() uint32 {
	return s.Base + s.Size
}

// resolve returns the backing slice for [addr, addr+width) or an AddressFault.
func (m *AddressSpace) resolve(addr uint32, width int, kind AccessKind) ([]byte, error) {
	phys := addr & addressMask
	seg := m.last
	if seg == nil || !seg.Contains(phys) {
		seg = nil
		for _, s := range m.segments {
			if s.Contains(phys) {
				seg = s
				break
			}
		}
		if seg == nil {
			return nil, newAddressFault(addr, width, kind)
		}
		m.last = seg
	}

	offset := phys - seg.Base
	if uint64(offset)+uint64(width) > uint64(seg.Size) {
		return nil, newAddressFault(addr, width, kind)
	}
	return seg.data[offset : offset+uint32(width)], nil
}

func (m *AddressSpace) Valid(addr uint32, size uint32) bool {
	_, err := m.resolve(addr, int(size), AccessRead)
	return err == nil
}

func (m *AddressSpace) Read8(addr uint32) (uint8, error) {
	b, err := m.resolve(addr, 1, AccessRead)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *AddressSpace) Read16(addr uint32) (uint16, error) {
	if addr&0x1 != 0 {
		return 0, newUnalignedFault(addr, 2, AccessRead)
	}
	b, err := m.resolve(addr, 2, AccessRead)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *AddressSpace) Read32(addr uint32) (uint32, error) {
	if addr&0x3 != 0 {
		return 0, newUnalignedFault(addr, 4, AccessRead)
	}
	b, err := m.resolve(addr, 4, AccessRead)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *AddressSpace) Write8(addr uint32, value uint8) error {
	b, err := m.resolve(addr, 1, AccessWrite)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (m *AddressSpace) Write16(addr uint32, value uint16) error {
	if addr&0x1 != 0 {
		return newUnalignedFault(addr, 2, AccessWrite)
	}
	b, err := m.resolve(addr, 2, AccessWrite)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

func (m *AddressSpace) Write32(addr uint32, value uint32) error {
	if addr&0x3 != 0 {
		return newUnalignedFault(addr, 4, AccessWrite)
	}
	b, err := m.resolve(addr, 4, AccessWrite)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// signed/unsigned widening loads, as the lb/lbu/lh/lhu instructions need them

func (m *AddressSpace) LoadSigned8(addr uint32) (uint32, error) {
	v, err := m.Read8(addr)
	return uint32(int32(int8(v))), err
}

func (m *AddressSpace) LoadUnsigned8(addr uint32) (uint32, error) {
	v, err := m.Read8(addr)
	return uint32(v), err
}

func (m *AddressSpace) LoadSigned16(addr uint32) (uint32, error) {
	v, err := m.Read16(addr)
	return uint32(int32(int16(v))), err
}

func (m *AddressSpace) LoadUnsigned16(addr uint32) (uint32, error) {
	v, err := m.Read16(addr)
	return uint32(v), err
}

func (m *AddressSpace) ReadBytes(addr uint32, size uint32) ([]byte, error) {
	b, err := m.resolve(addr, int(size), AccessRead)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

func (m *AddressSpace) WriteBytes(addr uint32, data []byte) error {
	b, err := m.resolve(addr, len(data), AccessWrite)
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (m *AddressSpace) Fill(addr uint32, size uint32, value byte) error {
	b, err := m.resolve(addr, int(size), AccessWrite)
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = value
	}
	return nil
}

// ReadStringZ reads a NUL terminated string. It stops at the end of the
// segment instead of faulting.
func (m *AddressSpace) ReadStringZ(addr uint32) (string, error) {
	out := []byte{}
	for {
		c, err := m.Read8(addr)
		if err != nil {
			if len(out) > 0 {
				return string(out), nil
			}
			return "", err
		}
		if c == 0 {
			return string(out), nil
		}
		out = append(out, c)
		addr++
	}
}

// WriteWords stores a slice of instruction or data words starting at addr.
func (m *AddressSpace) WriteWords(addr uint32, words []uint32) error {
	for i, w := range words {
		if err := m.Write32(addr+uint32(i)*4, w); err != nil {
			return err
		}
	}
	return nil
}

// InstallTrampolines writes the three reserved break words. Loaders must not
// place code over them.
func (m *AddressSpace) InstallTrampolines() (Trampolines, error) {
	base := m.config.TrampolineBase
	t := Trampolines{
		ThreadWait:      base,
		ThreadExitKill:  base + 4,
		InterruptReturn: base + 8,
	}
	words := []uint32{
		assembler.MakeBreakInstruction(BreakThreadWait),
		assembler.MakeBreakInstruction(BreakThreadExitKill),
		assembler.MakeBreakInstruction(BreakInterruptReturn),
	}
	if err := m.WriteWords(base, words); err != nil {
		return Trampolines{}, fmt.Errorf("installing trampolines: %w", err)
	}
	return t, nil
}

// trampoline break codes
const (
	BreakThreadWait      = 10001
	BreakThreadExitKill  = 10002
	BreakInterruptReturn = 10003
)
