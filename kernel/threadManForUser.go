package kernel

import (
	"github.gatech.edu/ECEInnovation/PSP-Emulator/emulator"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/util"
)

const threadManForUser = "ThreadManForUser"

// Sleep parks t until a WakeupThread is pending for it. Wakeups that arrived
// early are consumed first.
func (tm *ThreadManager) Sleep(t *Thread, callbacks bool) *Resumable {
	return &Resumable{
		Reason:    WaitReason{Kind: WaitSleep},
		Callbacks: callbacks,
		Poll: func() (int64, bool) {
			if t.WakeupCount > 0 {
				t.WakeupCount--
				return 0, true
			}
			return 0, false
		},
	}
}

func (tm *ThreadManager) WakeupThread(id int) error {
	t, err := tm.threadOrCurrent(id)
	if err != nil {
		return err
	}
	if t.Status == StatusStopped {
		return ErrDormant
	}
	t.WakeupCount++
	if t.Status == StatusWaiting && t.Wait.Kind == WaitSleep {
		tm.retry(t)
	}
	return nil
}

// Delay parks the caller for us microseconds. It always yields, even for 0.
func (tm *ThreadManager) Delay(us uint32, callbacks bool) *Resumable {
	deadline := tm.clock.Now() + uint64(us)
	if deadline == 0 {
		deadline = 1
	}
	first := true
	return &Resumable{
		Reason:    WaitReason{Kind: WaitTimed, Deadline: deadline},
		Callbacks: callbacks,
		Poll: func() (int64, bool) {
			if first {
				first = false
				return 0, false
			}
			return 0, tm.clock.Now() >= deadline
		},
	}
}

// WaitThreadEnd parks t until thread id stops and returns its exit status.
func (tm *ThreadManager) WaitThreadEnd(t *Thread, id int, timeout uint32, callbacks bool, remaining func(uint32)) *Resumable {
	target, ok := tm.threads[id]
	if !ok {
		return Failed(ErrNotFoundThread)
	}
	if target == t {
		return Failed(ErrIllegalThread)
	}

	var deadline uint64
	if timeout != 0 {
		deadline = tm.clock.Now() + uint64(timeout)
	}
	report := func() {
		if remaining == nil || deadline == 0 {
			return
		}
		left := uint32(0)
		if now := tm.clock.Now(); now < deadline {
			left = uint32(deadline - now)
		}
		remaining(left)
	}

	return &Resumable{
		Reason:    WaitReason{Kind: WaitThreadEnd, Object: id, Deadline: deadline},
		Callbacks: callbacks,
		Poll: func() (int64, bool) {
			switch {
			case tm.threads[id] != target:
				return int64(ErrWaitDelete), true
			case target.Status == StatusStopped:
				report()
				return int64(target.ExitStatus), true
			case deadline != 0 && tm.clock.Now() >= deadline:
				report()
				return int64(ErrWaitTimeout), true
			}
			return 0, false
		},
	}
}

// CheckCallbacks runs the caller's notified callbacks, one delivery per pass,
// and returns 1 if any ran.
func (tm *ThreadManager) CheckCallbacks(t *Thread) *Resumable {
	ran := false
	return &Resumable{
		Reason:    WaitReason{Kind: WaitCallbackPending},
		Callbacks: true,
		Poll: func() (int64, bool) {
			if t.hasNotifiedCallbacks() {
				ran = true
				return 0, false
			}
			if ran {
				return 1, true
			}
			return 0, true
		},
	}
}

// timeoutArg reads the optional in/out microsecond timeout behind ptr.
func timeoutArg(c *Call, ptr uint32) (uint32, func(uint32), error) {
	if ptr == 0 {
		return 0, nil, nil
	}
	timeout, err := c.Memory.Read32(ptr)
	if err != nil {
		return 0, nil, err
	}
	return timeout, func(left uint32) {
		if err := c.Memory.Write32(ptr, left); err != nil {
			util.LogF("%s: writing remaining timeout to 0x%08X: %v", c.Function.Name, ptr, err)
		}
	}, nil
}

func registerThreadManForUser(b *NativeCallBridge) {
	tm := b.tm
	m := threadManForUser

	b.RegisterInt(m, "sceKernelCreateThread", 0x446D8DE6, func(c *Call) (int32, error) {
		name, entry, priority, stackSize, attr := c.Str(), c.Ptr(), c.Int(), c.Uint32(), c.Uint32()
		_ = c.Ptr() // option block
		util.LogF("%s:sceKernelCreateThread(%q, 0x%08X, %d, 0x%X, 0x%X)", m, name, entry, priority, stackSize, attr)
		t, err := tm.CreateThread(name, entry, int(priority), stackSize, attr)
		if err != nil {
			return 0, err
		}
		return int32(t.ID), nil
	})
	b.RegisterInt(m, "sceKernelStartThread", 0xF475845D, func(c *Call) (int32, error) {
		id, argLen, argPtr := c.Int(), c.Uint32(), c.Ptr()
		util.LogF("%s:sceKernelStartThread(%d, %d, 0x%08X)", m, id, argLen, argPtr)
		return 0, tm.StartThread(int(id), argLen, argPtr)
	})
	b.RegisterVoid(m, "sceKernelExitThread", 0xAA73C935, func(c *Call) error {
		tm.ExitThread(c.Thread, c.Int())
		return nil
	})
	b.RegisterInt(m, "sceKernelExitDeleteThread", 0x809CE29B, func(c *Call) (int32, error) {
		tm.ExitThread(c.Thread, c.Int())
		return 0, tm.DeleteThread(c.Thread.ID)
	})
	b.RegisterInt(m, "sceKernelDeleteThread", 0x9FA03CD3, func(c *Call) (int32, error) {
		return 0, tm.DeleteThread(int(c.Int()))
	})
	b.RegisterInt(m, "sceKernelTerminateThread", 0x616403BA, func(c *Call) (int32, error) {
		return 0, tm.TerminateThread(int(c.Int()))
	})
	b.RegisterInt(m, "sceKernelTerminateDeleteThread", 0x383F7BCC, func(c *Call) (int32, error) {
		id := int(c.Int())
		if err := tm.TerminateThread(id); err != nil && err != ErrDormant {
			return 0, err
		}
		return 0, tm.DeleteThread(id)
	})
	b.RegisterInt(m, "sceKernelChangeThreadPriority", 0x71BC9871, func(c *Call) (int32, error) {
		id, priority := c.Int(), c.Int()
		return 0, tm.ChangeThreadPriority(int(id), int(priority))
	})
	b.RegisterInt(m, "sceKernelGetThreadCurrentPriority", 0x94AA61EE, func(c *Call) (int32, error) {
		return int32(c.Thread.Priority), nil
	})
	b.RegisterInt(m, "sceKernelRotateThreadReadyQueue", 0x912354A7, func(c *Call) (int32, error) {
		return 0, tm.RotateReadyQueue(int(c.Int()))
	})
	b.RegisterInt(m, "sceKernelGetThreadId", 0x293B45B8, func(c *Call) (int32, error) {
		return int32(c.Thread.ID), nil
	})
	b.RegisterInt(m, "sceKernelChangeCurrentThreadAttr", 0xEA748E31, func(c *Call) (int32, error) {
		remove, add := c.Uint32(), c.Uint32()
		c.Thread.Attributes = (c.Thread.Attributes &^ remove) | add
		return 0, nil
	})
	b.RegisterInt(m, "sceKernelReferThreadStatus", 0x17C1684E, func(c *Call) (int32, error) {
		id, ptr := c.Int(), c.Ptr()
		t, err := tm.threadOrCurrent(int(id))
		if err != nil {
			return 0, err
		}
		return 0, writeSizedStruct(c.Memory, ptr, t.info())
	})

	b.RegisterSuspend(m, "sceKernelSleepThread", 0x9ACE131E, func(c *Call) (*Resumable, error) {
		return tm.Sleep(c.Thread, false), nil
	})
	b.RegisterSuspend(m, "sceKernelSleepThreadCB", 0x82826F70, func(c *Call) (*Resumable, error) {
		return tm.Sleep(c.Thread, true), nil
	})
	b.RegisterInt(m, "sceKernelWakeupThread", 0xD59EAD2F, func(c *Call) (int32, error) {
		return 0, tm.WakeupThread(int(c.Int()))
	})
	b.RegisterSuspend(m, "sceKernelDelayThread", 0xCEADEB47, func(c *Call) (*Resumable, error) {
		return tm.Delay(c.Uint32(), false), nil
	})
	b.RegisterSuspend(m, "sceKernelDelayThreadCB", 0x68DA9E36, func(c *Call) (*Resumable, error) {
		return tm.Delay(c.Uint32(), true), nil
	})
	waitThreadEnd := func(callbacks bool) func(c *Call) (*Resumable, error) {
		return func(c *Call) (*Resumable, error) {
			id, ptr := c.Int(), c.Ptr()
			timeout, remaining, err := timeoutArg(c, ptr)
			if err != nil {
				return nil, err
			}
			return tm.WaitThreadEnd(c.Thread, int(id), timeout, callbacks, remaining), nil
		}
	}
	b.RegisterSuspend(m, "sceKernelWaitThreadEnd", 0x278C0DF5, waitThreadEnd(false))
	b.RegisterSuspend(m, "sceKernelWaitThreadEndCB", 0x840E8133, waitThreadEnd(true))

	b.RegisterInt(m, "sceKernelCreateCallback", 0xE81CAF8F, func(c *Call) (int32, error) {
		name, fn, arg := c.Str(), c.Ptr(), c.Uint32()
		return int32(tm.CreateCallback(c.Thread, name, fn, arg).ID), nil
	})
	b.RegisterInt(m, "sceKernelNotifyCallback", 0xC11BA8C4, func(c *Call) (int32, error) {
		id, arg := c.Int(), c.Uint32()
		return 0, tm.NotifyCallback(int(id), arg)
	})
	b.RegisterSuspend(m, "sceKernelCheckCallback", 0x349D6D6C, func(c *Call) (*Resumable, error) {
		return tm.CheckCallbacks(c.Thread), nil
	})
	b.RegisterInt(m, "sceKernelDeleteCallback", 0xEDBA5844, func(c *Call) (int32, error) {
		return 0, tm.DeleteCallback(int(c.Int()))
	})

	b.RegisterInt(m, "sceKernelCreateSema", 0xD6DA4BA1, func(c *Call) (int32, error) {
		name, attr, initial, max := c.Str(), c.Uint32(), c.Int(), c.Int()
		_ = c.Ptr() // option block
		s, err := tm.CreateSemaphore(name, attr, initial, max)
		if err != nil {
			return 0, err
		}
		return int32(s.ID), nil
	})
	b.RegisterInt(m, "sceKernelDeleteSema", 0x28B6489C, func(c *Call) (int32, error) {
		return 0, tm.DeleteSemaphore(int(c.Int()))
	})
	b.RegisterInt(m, "sceKernelSignalSema", 0x3F53E640, func(c *Call) (int32, error) {
		id, signal := c.Int(), c.Int()
		return 0, tm.SignalSemaphore(int(id), signal)
	})
	waitSema := func(callbacks bool) func(c *Call) (*Resumable, error) {
		return func(c *Call) (*Resumable, error) {
			id, signal, ptr := c.Int(), c.Int(), c.Ptr()
			timeout, remaining, err := timeoutArg(c, ptr)
			if err != nil {
				return nil, err
			}
			return tm.WaitSemaphore(c.Thread, int(id), signal, timeout, callbacks, remaining), nil
		}
	}
	b.RegisterSuspend(m, "sceKernelWaitSema", 0x4E3A1105, waitSema(false))
	b.RegisterSuspend(m, "sceKernelWaitSemaCB", 0x6D212BAC, waitSema(true))
	b.RegisterInt(m, "sceKernelPollSema", 0x58B1F937, func(c *Call) (int32, error) {
		id, signal := c.Int(), c.Int()
		return 0, tm.PollSemaphore(int(id), signal)
	})
	b.RegisterInt(m, "sceKernelReferSemaStatus", 0xBC6FEBC5, func(c *Call) (int32, error) {
		id, ptr := c.Int(), c.Ptr()
		s, ok := tm.semaphores[int(id)]
		if !ok {
			return 0, ErrNotFoundSemaphore
		}
		return 0, writeSizedStruct(c.Memory, ptr, s.info())
	})

	b.RegisterLong(m, "sceKernelGetSystemTimeWide", 0x82BC5777, func(c *Call) (int64, error) {
		return int64(tm.clock.Now()), nil
	})
	b.RegisterInt(m, "sceKernelGetSystemTimeLow", 0x369ED59D, func(c *Call) (int32, error) {
		return int32(uint32(tm.clock.Now())), nil
	})
	b.RegisterInt(m, "sceKernelGetSystemTime", 0xDB738F35, func(c *Call) (int32, error) {
		return 0, writeStruct(c.Memory, c.Ptr(), tm.clock.Now())
	})
}

// InstallImports writes import stubs for every registered function just
// after the trampolines and returns their addresses by function name.
func (tm *ThreadManager) InstallImports() (map[string]uint32, error) {
	cfg := tm.mem.Config()
	base := tm.tramp.InterruptReturn + 8
	if end := base + uint32(len(tm.bridge.Functions()))*8; end > cfg.UserBase {
		return nil, &emulator.AddressFault{Addr: end, Width: 8, Kind: emulator.AccessWrite}
	}
	return tm.bridge.InstallImports(base)
}
