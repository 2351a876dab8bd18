package kernel

import (
	"bytes"
	"encoding/binary"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
)

// writeStruct stores a fixed layout struct little endian at addr.
func writeStruct(mem *emulator.AddressSpace, addr uint32, v interface{}) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return err
	}
	return mem.WriteBytes(addr, buf.Bytes())
}

// writeSizedStruct honours the size word the program put at the start of the
// buffer, writing no more than it asked for.
func writeSizedStruct(mem *emulator.AddressSpace, addr uint32, v interface{}) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		return err
	}
	data := buf.Bytes()
	size, err := mem.Read32(addr)
	if err != nil {
		return err
	}
	if size != 0 && int(size) < len(data) {
		data = data[:size]
	}
	return mem.WriteBytes(addr, data)
}
