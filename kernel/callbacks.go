package kernel

import (
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

// Callback is a function owned by a thread and run on that thread's context
// when it waits with a CB variant or calls CheckCallback.
type Callback struct {
	ID          int
	Name        string
	Thread      *Thread
	Func        uint32
	Arg         uint32
	NotifyCount uint32
	NotifyArg   uint32
}

// callbackFrame is what a callback interrupted; INTERRUPT_RETURN restores it.
type callbackFrame struct {
	context   emulator.CpuContext
	wait      WaitReason
	resumable *Resumable
	callback  *Callback
}

func (t *Thread) hasNotifiedCallbacks() bool {
	return t.nextNotifiedCallback() != nil
}

func (t *Thread) nextNotifiedCallback() *Callback {
	for _, cb := range t.callbacks {
		if cb.NotifyCount > 0 {
			return cb
		}
	}
	return nil
}

func (tm *ThreadManager) CreateCallback(t *Thread, name string, fn uint32, arg uint32) *Callback {
	cb := &Callback{ID: tm.allocUID(), Name: name, Thread: t, Func: fn, Arg: arg}
	tm.callbacks[cb.ID] = cb
	t.callbacks = append(t.callbacks, cb)
	return cb
}

func (tm *ThreadManager) DeleteCallback(id int) error {
	cb, ok := tm.callbacks[id]
	if !ok {
		return ErrNotFoundCallback
	}
	delete(tm.callbacks, id)
	owner := cb.Thread
	for i, c := range owner.callbacks {
		if c == cb {
			owner.callbacks = append(owner.callbacks[:i:i], owner.callbacks[i+1:]...)
			break
		}
	}
	return nil
}

// NotifyCallback counts a notification and schedules delivery if the owner is
// already parked in a CB wait.
func (tm *ThreadManager) NotifyCallback(id int, arg uint32) error {
	cb, ok := tm.callbacks[id]
	if !ok {
		return ErrNotFoundCallback
	}
	cb.NotifyCount++
	cb.NotifyArg = arg

	t := cb.Thread
	if t.Status == StatusWaiting && t.resumable != nil && t.resumable.Callbacks {
		tm.queueCallbacks(t)
	}
	return nil
}

func (tm *ThreadManager) queueCallbacks(t *Thread) {
	for _, q := range tm.callbackQueue {
		if q == t {
			return
		}
	}
	tm.callbackQueue = append(tm.callbackQueue, t)
}

func (tm *ThreadManager) processCallbacks() {
	queue := tm.callbackQueue
	tm.callbackQueue = nil
	for _, t := range queue {
		if t.Status != StatusWaiting || t.resumable == nil || !t.resumable.Callbacks {
			continue
		}
		if cb := t.nextNotifiedCallback(); cb != nil {
			tm.deliverCallback(t, cb)
		}
	}
}

// deliverCallback saves t's parked state and readies it at the callback
// function, with INTERRUPT_RETURN as the return address.
func (tm *ThreadManager) deliverCallback(t *Thread, cb *Callback) {
	t.callbackFrames = append(t.callbackFrames, callbackFrame{
		context:   t.Context,
		wait:      t.Wait,
		resumable: t.resumable,
		callback:  cb,
	})
	t.resumable = nil
	t.waitSeq++
	t.Wait = WaitReason{Kind: WaitCallbackPending, Object: cb.ID}

	c := &t.Context
	c.SetGpr(emulator.RegA0, cb.NotifyCount)
	c.SetGpr(emulator.RegA1, cb.NotifyArg)
	c.SetGpr(emulator.RegA2, cb.Arg)
	c.SetGpr(emulator.RegRA, tm.tramp.InterruptReturn)
	c.Jump(cb.Func)
	cb.NotifyCount = 0
	cb.NotifyArg = 0

	util.LogF("%s: running callback %d (%s) at 0x%08X", t, cb.ID, cb.Name, cb.Func)
	tm.makeReady(t)
}

// returnFromCallback handles INTERRUPT_RETURN. A non-zero $v0 deletes the
// callback. The interrupted call is polled again and either completes or
// parks the thread once more.
func (tm *ThreadManager) returnFromCallback(t *Thread) error {
	n := len(t.callbackFrames)
	if n == 0 {
		return inconsistent("%s returned from a callback it was not running", t)
	}
	frame := t.callbackFrames[n-1]
	t.callbackFrames = t.callbackFrames[:n-1]

	if t.Context.Gpr(emulator.RegV0) != 0 {
		_ = tm.DeleteCallback(frame.callback.ID)
	}
	t.Context = frame.context
	t.Wait = frame.wait

	r := frame.resumable
	result, done := r.Poll()
	if done {
		t.Wait = WaitReason{}
		r.write(t, result)
		t.Context.PC, t.Context.NPC = r.returnPC, r.returnNPC
		return nil
	}
	tm.park(t, r)
	return nil
}
