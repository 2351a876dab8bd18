package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/kernel"
)

func TestPartitionAllocFromTop(t *testing.T) {
	p := kernel.NewMemoryPartition(0x1000, 0x1000)
	b, err := p.Alloc("a", 0x10)
	require.NoError(t, err)
	assert.Equal(t, kernel.Block{Low: 0x1F00, High: 0x2000, Name: "a"}, b)
	assert.Equal(t, uint32(0xF00), p.FreeBytes())
}

func TestPartitionBestFit(t *testing.T) {
	p := kernel.NewMemoryPartition(0x1000, 0x1000)
	a, err := p.Alloc("a", 0x100)
	require.NoError(t, err)
	b, err := p.Alloc("b", 0x400)
	require.NoError(t, err)
	_, err = p.Alloc("c", 0x100)
	require.NoError(t, err)

	require.NoError(t, p.Free(b))
	d, err := p.Alloc("d", 0x300)
	require.NoError(t, err)
	assert.Equal(t, a.Low, d.High, "the freed hole is the best fit")
	assert.Equal(t, uint32(0x1C00), d.Low)
}

func TestPartitionFreeMerges(t *testing.T) {
	p := kernel.NewMemoryPartition(0x1000, 0x1000)
	var blocks []kernel.Block
	for _, name := range []string{"a", "b", "c"} {
		b, err := p.Alloc(name, 0x200)
		require.NoError(t, err)
		blocks = append(blocks, b)
	}
	assert.Len(t, p.Allocated(), 3)

	require.NoError(t, p.Free(blocks[1]))
	require.NoError(t, p.Free(blocks[0]))
	require.NoError(t, p.Free(blocks[2]))
	assert.Empty(t, p.Allocated())
	assert.Equal(t, uint32(0x1000), p.FreeBytes())
	assert.Equal(t, uint32(0x1000), p.MaxFreeBlock())

	assert.ErrorIs(t, p.Free(blocks[0]), kernel.ErrInconsistentState)
}

func TestPartitionExhausted(t *testing.T) {
	p := kernel.NewMemoryPartition(0x1000, 0x1000)
	_, err := p.Alloc("huge", 0x2000)
	assert.ErrorIs(t, err, kernel.ErrNoMemory)
	_, err = p.Alloc("empty", 0)
	assert.ErrorIs(t, err, kernel.ErrIllegalStackSize)
}
