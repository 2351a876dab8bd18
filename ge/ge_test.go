package ge_test

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/ge"
)

// flatMemory is a little endian word store starting at base.
type flatMemory struct {
	base uint32
	data []byte
}

func (m *flatMemory) Read32(addr uint32) (uint32, error) {
	off := addr - m.base
	if addr < m.base || int(off)+4 > len(m.data) {
		return 0, fmt.Errorf("read outside list memory: 0x%08X", addr)
	}
	return binary.LittleEndian.Uint32(m.data[off:]), nil
}

func newMemory(base uint32, words ...uint32) *flatMemory {
	m := &flatMemory{base: base, data: make([]byte, 0x1000)}
	for i, w := range words {
		binary.LittleEndian.PutUint32(m.data[i*4:], w)
	}
	return m
}

func cmd(op, arg uint32) uint32 {
	return op<<24 | arg&0x00FFFFFF
}

const base = 0x08100000

func TestListRunsToEnd(t *testing.T) {
	mem := newMemory(base,
		cmd(0x12, 3),
		cmd(ge.CmdSignal, 0x42),
		cmd(ge.CmdFinish, 0),
		cmd(ge.CmdEnd, 0),
	)
	q := ge.NewQueue(mem)
	l, err := q.Enqueue(base, 0, -1, 0, false)
	require.NoError(t, err)

	kind, err := q.ListSync(l.ID)
	require.NoError(t, err)
	assert.Equal(t, ge.SyncDone, kind)
	assert.Equal(t, ge.SyncDone, q.DrawSync())
	assert.Equal(t, uint32(3), q.State(0x12))

	got, ok := q.List(l.ID)
	require.True(t, ok)
	assert.Equal(t, 4, got.Commands)
	assert.Equal(t, []uint32{0x42}, got.Signals)

	updates := q.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, ge.Update{ListID: l.ID, Start: base, Commands: 4, Finished: true}, updates[0])
	assert.Empty(t, q.Updates())
}

func TestStallAndResume(t *testing.T) {
	mem := newMemory(base,
		cmd(ge.CmdNop, 0),
		cmd(ge.CmdNop, 0),
		cmd(ge.CmdEnd, 0),
	)
	q := ge.NewQueue(mem)
	l, err := q.Enqueue(base, base+8, -1, 0, false)
	require.NoError(t, err)

	kind, err := q.ListSync(l.ID)
	require.NoError(t, err)
	assert.Equal(t, ge.SyncStallReached, kind)
	assert.Equal(t, ge.SyncStallReached, q.DrawSync())

	require.NoError(t, q.UpdateStall(l.ID, base+12))
	kind, err = q.ListSync(l.ID)
	require.NoError(t, err)
	assert.Equal(t, ge.SyncDone, kind)

	assert.ErrorIs(t, q.UpdateStall(99, 0), ge.ErrInvalidID)
	_, err = q.ListSync(99)
	assert.ErrorIs(t, err, ge.ErrInvalidID)
}

func TestCallAndReturn(t *testing.T) {
	// BASE selects 0x08xxxxxx, the call lands on the SIGNAL at base+0x10
	mem := newMemory(base,
		cmd(ge.CmdBase, 0x080000),
		cmd(ge.CmdCall, 0x100010),
		cmd(ge.CmdEnd, 0),
		cmd(ge.CmdNop, 0),
		cmd(ge.CmdSignal, 1),
		cmd(ge.CmdRet, 0),
	)
	q := ge.NewQueue(mem)
	l, err := q.Enqueue(base, 0, -1, 0, false)
	require.NoError(t, err)

	got, _ := q.List(l.ID)
	assert.True(t, got.Completed)
	assert.Equal(t, []uint32{1}, got.Signals)
	assert.Equal(t, 5, got.Commands)
}

func TestHeadListRunsFirst(t *testing.T) {
	mem := newMemory(base,
		cmd(ge.CmdEnd, 0),
		cmd(ge.CmdNop, 0),
		cmd(ge.CmdEnd, 0),
	)
	q := ge.NewQueue(mem)
	stalled, err := q.Enqueue(base+4, base+4, -1, 0, false)
	require.NoError(t, err)
	head, err := q.Enqueue(base, 0, -1, 0, true)
	require.NoError(t, err)

	kind, err := q.ListSync(head.ID)
	require.NoError(t, err)
	assert.Equal(t, ge.SyncDone, kind)
	kind, err = q.ListSync(stalled.ID)
	require.NoError(t, err)
	assert.Equal(t, ge.SyncStallReached, kind)
}

func TestRunawayListIsAnError(t *testing.T) {
	mem := newMemory(base,
		cmd(ge.CmdBase, 0x080000),
		cmd(ge.CmdJump, 0x100004),
	)
	q := ge.NewQueue(mem)
	q.MaxCommands = 100
	_, err := q.Enqueue(base, 0, -1, 0, false)
	assert.Error(t, err)
}

func TestSyncKindString(t *testing.T) {
	assert.Equal(t, "stall-reached", ge.SyncStallReached.String())
	assert.Equal(t, "SyncKind(9)", ge.SyncKind(9).String())
}
