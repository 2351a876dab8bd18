package kernel

import (
	"errors"

	"github.gatech.edu/ECEInnovation/PSP-Emulator/ge"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

// ErrInvalidID is the generic invalid-id status sceGe_user returns.
const ErrInvalidID KernelError = -0x7FFFFF00 // 0x80000100

const geContinuation = "sceGe"

func geResult(err error) error {
	if errors.Is(err, ge.ErrInvalidID) {
		return ErrInvalidID
	}
	return err
}

// RegisterGeUser exposes q through sceGe_user. Blocking syncs park on the
// "sceGe" continuation and are re-polled whenever the queue moves.
func RegisterGeUser(tm *ThreadManager, q *ge.Queue) {
	b := tm.bridge
	m := "sceGe_user"

	enqueue := func(head bool) func(c *Call) (int32, error) {
		return func(c *Call) (int32, error) {
			start, stall, cbid, args := c.Ptr(), c.Ptr(), c.Int(), c.Ptr()
			util.LogF("%s:sceGeListEnQueue(0x%08X, 0x%08X, %d, 0x%08X) head=%v", m, start, stall, cbid, args, head)
			l, err := q.Enqueue(start, stall, int(cbid), args, head)
			if err != nil {
				return 0, err
			}
			tm.WakeContinuations(geContinuation)
			return int32(l.ID), nil
		}
	}
	b.RegisterInt(m, "sceGeListEnQueue", 0xAB49E76A, enqueue(false))
	b.RegisterInt(m, "sceGeListEnQueueHead", 0x1C0D95A6, enqueue(true))

	b.RegisterInt(m, "sceGeListUpdateStallAddr", 0xE0D68148, func(c *Call) (int32, error) {
		id, stall := c.Int(), c.Ptr()
		if err := q.UpdateStall(int(id), stall); err != nil {
			return 0, geResult(err)
		}
		tm.WakeContinuations(geContinuation)
		return 0, nil
	})

	// mode 0 waits for completion, mode 1 only peeks
	b.RegisterSuspend(m, "sceGeListSync", 0x03444EB4, func(c *Call) (*Resumable, error) {
		id, mode := c.Int(), c.Int()
		kind, err := q.ListSync(int(id))
		if err != nil {
			return nil, geResult(err)
		}
		if mode == 1 || kind == ge.SyncDone {
			return Done(int64(kind)), nil
		}
		return &Resumable{
			Reason: WaitReason{Kind: WaitNativeContinuation, Token: geContinuation},
			Poll: func() (int64, bool) {
				kind, err := q.ListSync(int(id))
				if err != nil {
					return int64(ErrInvalidID), true
				}
				return int64(kind), kind == ge.SyncDone
			},
		}, nil
	})
	b.RegisterSuspend(m, "sceGeDrawSync", 0xB287BD61, func(c *Call) (*Resumable, error) {
		mode := c.Int()
		if kind := q.DrawSync(); mode == 1 || kind == ge.SyncDone {
			return Done(int64(kind)), nil
		}
		return &Resumable{
			Reason: WaitReason{Kind: WaitNativeContinuation, Token: geContinuation},
			Poll: func() (int64, bool) {
				kind := q.DrawSync()
				return int64(kind), kind == ge.SyncDone
			},
		}, nil
	})
}
